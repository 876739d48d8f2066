package reviews

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oldphonedeals/backend/pkg/db/models"
)

// Repository exposes review persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a reviews repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a clone bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create appends a review. Duplicate reviews by the same reviewer on the
// same listing are allowed.
func (r *Repository) Create(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).Create(review).Error
}

// FindByID loads one review.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	var review models.Review
	if err := r.db.WithContext(ctx).First(&review, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

// SetHiddenByListingAndReviewer flips hidden on every review the reviewer
// left on the listing and returns how many rows changed.
func (r *Repository) SetHiddenByListingAndReviewer(ctx context.Context, listingID, reviewerID uuid.UUID, hidden bool) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Where("listing_id = ? AND reviewer_id = ?", listingID, reviewerID).
		Updates(map[string]any{"hidden": hidden, "updated_at": time.Now().UTC()})
	return result.RowsAffected, result.Error
}

// FirstByListingAndReviewer returns the oldest review matching the pair.
func (r *Repository) FirstByListingAndReviewer(ctx context.Context, listingID, reviewerID uuid.UUID) (*models.Review, error) {
	var review models.Review
	err := r.db.WithContext(ctx).
		Where("listing_id = ? AND reviewer_id = ?", listingID, reviewerID).
		Order("created_at ASC").
		First(&review).Error
	if err != nil {
		return nil, err
	}
	return &review, nil
}

type authoredReviewRow struct {
	models.Review
	ListingTitle string `gorm:"column:listing_title"`
}

// ListByReviewer returns the reviews a user has written joined to the
// listing title, newest first.
func (r *Repository) ListByReviewer(ctx context.Context, reviewerID uuid.UUID) ([]AuthoredReviewDTO, error) {
	var rows []authoredReviewRow
	err := r.db.WithContext(ctx).
		Table("reviews").
		Select("reviews.*, listings.title AS listing_title").
		Joins("JOIN listings ON listings.id = reviews.listing_id").
		Where("reviews.reviewer_id = ?", reviewerID).
		Order("reviews.created_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]AuthoredReviewDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, AuthoredReviewDTO{
			ID:           row.ID,
			ListingID:    row.ListingID,
			ListingTitle: row.ListingTitle,
			Rating:       row.Rating,
			Comment:      row.Comment,
			Hidden:       row.Hidden,
			CreatedAt:    row.CreatedAt,
		})
	}
	return out, nil
}

// SearchByComment matches reviews by case-insensitive comment substring,
// hidden rows included. Used by the moderation surface.
func (r *Repository) SearchByComment(ctx context.Context, query string) ([]models.Review, error) {
	var rows []models.Review
	q := r.db.WithContext(ctx).Preload("Reviewer")
	if query != "" {
		q = q.Where("LOWER(comment) LIKE ?", "%"+query+"%")
	}
	err := q.Order("created_at DESC").Find(&rows).Error
	return rows, err
}
