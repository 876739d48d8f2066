package reviews

import (
	"time"

	"github.com/google/uuid"

	"github.com/oldphonedeals/backend/pkg/db/models"
)

// ReviewDTO is the read shape for a single review.
type ReviewDTO struct {
	ID         uuid.UUID `json:"id"`
	ListingID  uuid.UUID `json:"listingId"`
	ReviewerID uuid.UUID `json:"reviewerId"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
	Hidden     bool      `json:"hidden"`
	CreatedAt  time.Time `json:"createdAt"`
}

// AuthoredReviewDTO is a review joined with the listing it was left on.
type AuthoredReviewDTO struct {
	ID           uuid.UUID `json:"id"`
	ListingID    uuid.UUID `json:"listingId"`
	ListingTitle string    `json:"listingTitle"`
	Rating       int       `json:"rating"`
	Comment      string    `json:"comment"`
	Hidden       bool      `json:"hidden"`
	CreatedAt    time.Time `json:"createdAt"`
}

func fromModel(r *models.Review) ReviewDTO {
	return ReviewDTO{
		ID:         r.ID,
		ListingID:  r.ListingID,
		ReviewerID: r.ReviewerID,
		Rating:     r.Rating,
		Comment:    r.Comment,
		Hidden:     r.Hidden,
		CreatedAt:  r.CreatedAt,
	}
}
