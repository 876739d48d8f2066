package models

import (
	"time"

	"github.com/google/uuid"
)

// Review is a rating-plus-comment left on a listing. Hidden reviews stay in
// the table and are filtered out of buyer-facing reads.
type Review struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ListingID  uuid.UUID `gorm:"column:listing_id;type:uuid;not null;index:reviews_listing_id_idx"`
	ReviewerID uuid.UUID `gorm:"column:reviewer_id;type:uuid;not null;index:reviews_reviewer_id_idx"`
	Rating     int       `gorm:"column:rating;not null"`
	Comment    string    `gorm:"column:comment;not null"`
	Hidden     bool      `gorm:"column:hidden;not null;default:false"`
	Reviewer   *User     `gorm:"foreignKey:ReviewerID"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
