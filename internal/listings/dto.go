package listings

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oldphonedeals/backend/pkg/db/models"
	"github.com/oldphonedeals/backend/pkg/enums"
)

// ListingDTO is the public read shape for a listing.
type ListingDTO struct {
	ID         uuid.UUID        `json:"id"`
	Title      string           `json:"title"`
	Brand      enums.PhoneBrand `json:"brand"`
	Image      string           `json:"image"`
	Stock      int              `json:"stock"`
	Price      decimal.Decimal  `json:"price"`
	SellerID   uuid.UUID        `json:"sellerId"`
	SellerName string           `json:"sellerName,omitempty"`
	Disabled   bool             `json:"disabled"`
	Reviews    []ReviewDTO      `json:"reviews,omitempty"`
	CreatedAt  time.Time        `json:"createdAt"`
	UpdatedAt  time.Time        `json:"updatedAt"`
}

// ReviewDTO is the review shape embedded in listing detail responses.
type ReviewDTO struct {
	ID           uuid.UUID `json:"id"`
	ReviewerID   uuid.UUID `json:"reviewerId"`
	ReviewerName string    `json:"reviewerName,omitempty"`
	Rating       int       `json:"rating"`
	Comment      string    `json:"comment"`
	Hidden       bool      `json:"hidden"`
	CreatedAt    time.Time `json:"createdAt"`
}

// BestSellerDTO carries the aggregate fields the ranking injects.
type BestSellerDTO struct {
	ListingDTO
	NumberReviews int     `json:"numberReviews"`
	AvgRating     float64 `json:"avgRating"`
}

// CreateListingInput holds the fields a seller supplies for a new listing.
type CreateListingInput struct {
	Title string
	Brand enums.PhoneBrand
	Image string
	Stock int
	Price decimal.Decimal
}

// UpdateListingInput holds the optional fields for a partial edit.
type UpdateListingInput struct {
	Title *string
	Brand *enums.PhoneBrand
	Image *string
	Stock *int
	Price *decimal.Decimal
}

// FromModel converts a listing row into its DTO, without reviews.
func FromModel(l *models.Listing) ListingDTO {
	dto := ListingDTO{
		ID:        l.ID,
		Title:     l.Title,
		Brand:     l.Brand,
		Image:     l.Image,
		Stock:     l.Stock,
		Price:     l.Price,
		SellerID:  l.SellerID,
		Disabled:  l.Disabled,
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
	if l.Seller != nil {
		dto.SellerName = l.Seller.FullName()
	}
	return dto
}

func reviewFromModel(r models.Review) ReviewDTO {
	dto := ReviewDTO{
		ID:         r.ID,
		ReviewerID: r.ReviewerID,
		Rating:     r.Rating,
		Comment:    r.Comment,
		Hidden:     r.Hidden,
		CreatedAt:  r.CreatedAt,
	}
	if r.Reviewer != nil {
		dto.ReviewerName = r.Reviewer.FullName()
	}
	return dto
}
