package listings

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oldphonedeals/backend/pkg/db/models"
)

const rankingMinReviews = 2

// Repository exposes listing persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a listings repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a clone of the repository bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindByID loads a listing with its seller and reviews.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	var listing models.Listing
	err := r.db.WithContext(ctx).
		Preload("Seller").
		Preload("Reviews", func(db *gorm.DB) *gorm.DB {
			return db.Order("reviews.created_at ASC")
		}).
		Preload("Reviews.Reviewer").
		First(&listing, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

// FindBareByID loads the listing row only, no associations.
func (r *Repository) FindBareByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	var listing models.Listing
	if err := r.db.WithContext(ctx).First(&listing, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}

// LockByID loads a listing row under FOR UPDATE. Meant to run inside a
// transaction so concurrent checkouts serialize on the same row.
func (r *Repository) LockByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	var listing models.Listing
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&listing, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

// DecrementStock reduces stock by qty for the given listing.
func (r *Repository) DecrementStock(ctx context.Context, id uuid.UUID, qty int) error {
	return r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id = ?", id).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty)).Error
}

// Create inserts a new listing.
func (r *Repository) Create(ctx context.Context, listing *models.Listing) error {
	return r.db.WithContext(ctx).Create(listing).Error
}

// Update applies the given column map to a listing.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// SetDisabled flips the listing's disabled flag.
func (r *Repository) SetDisabled(ctx context.Context, id uuid.UUID, disabled bool) error {
	return r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id = ?", id).
		Update("disabled", disabled).Error
}

// Delete removes the listing. Reviews cascade via the FK.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Listing{}, "id = ?", id).Error
}

// ListBySeller returns every listing the seller owns, newest first.
func (r *Repository) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Listing, error) {
	var rows []models.Listing
	err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

// SoldOutSoon returns the enabled in-stock listings closest to selling out.
func (r *Repository) SoldOutSoon(ctx context.Context, limit int) ([]models.Listing, error) {
	var rows []models.Listing
	err := r.db.WithContext(ctx).
		Where("stock > 0 AND disabled = ?", false).
		Order("stock ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

type bestSellerRow struct {
	models.Listing
	NumberReviews int     `gorm:"column:number_reviews"`
	AvgRating     float64 `gorm:"column:avg_rating"`
}

// BestSellers ranks enabled listings by mean review rating, keeping only
// listings with more than rankingMinReviews reviews.
func (r *Repository) BestSellers(ctx context.Context, limit int) ([]BestSellerDTO, error) {
	var rows []bestSellerRow
	err := r.db.WithContext(ctx).
		Table("listings").
		Select("listings.*, COUNT(reviews.id) AS number_reviews, AVG(reviews.rating) AS avg_rating").
		Joins("JOIN reviews ON reviews.listing_id = listings.id").
		Where("listings.disabled = ?", false).
		Group("listings.id").
		Having("COUNT(reviews.id) > ?", rankingMinReviews).
		Order("avg_rating DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]BestSellerDTO, 0, len(rows))
	for i := range rows {
		out = append(out, BestSellerDTO{
			ListingDTO:    FromModel(&rows[i].Listing),
			NumberReviews: rows[i].NumberReviews,
			AvgRating:     rows[i].AvgRating,
		})
	}
	return out, nil
}

// SearchTitle matches enabled listings by case-insensitive title substring.
func (r *Repository) SearchTitle(ctx context.Context, query string) ([]models.Listing, error) {
	var rows []models.Listing
	err := r.db.WithContext(ctx).
		Where("disabled = ? AND LOWER(title) LIKE ?", false, likePattern(query)).
		Order("title ASC").
		Find(&rows).Error
	return rows, err
}

// SearchAdmin matches listings by title or brand, including disabled rows.
func (r *Repository) SearchAdmin(ctx context.Context, query string) ([]models.Listing, error) {
	var rows []models.Listing
	q := r.db.WithContext(ctx).Preload("Seller")
	if strings.TrimSpace(query) != "" {
		pattern := likePattern(query)
		q = q.Where("LOWER(title) LIKE ? OR LOWER(brand) LIKE ?", pattern, pattern)
	}
	err := q.Order("created_at DESC").Find(&rows).Error
	return rows, err
}

func likePattern(query string) string {
	return "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
}
