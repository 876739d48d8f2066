package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is one listing line inside a cart. Quantity is the absolute count
// requested, not a delta.
type CartItem struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	CartID    uuid.UUID `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:cart_items_cart_listing_key"`
	ListingID uuid.UUID `gorm:"column:listing_id;type:uuid;not null;uniqueIndex:cart_items_cart_listing_key"`
	Quantity  int       `gorm:"column:quantity;not null"`
	Listing   *Listing  `gorm:"foreignKey:ListingID"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
