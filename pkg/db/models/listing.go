package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oldphonedeals/backend/pkg/enums"
)

// Listing represents a second-hand phone offered for sale.
type Listing struct {
	ID        uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	SellerID  uuid.UUID        `gorm:"column:seller_id;type:uuid;not null;index:listings_seller_id_idx"`
	Title     string           `gorm:"column:title;not null;index:listings_title_idx"`
	Brand     enums.PhoneBrand `gorm:"column:brand;type:text;not null;index:listings_brand_idx"`
	Image     string           `gorm:"column:image;not null"`
	Stock     int              `gorm:"column:stock;not null;default:0"`
	Price     decimal.Decimal  `gorm:"column:price;type:numeric(12,2);not null"`
	Disabled  bool             `gorm:"column:disabled;not null;default:false"`
	Seller    *User            `gorm:"foreignKey:SellerID"`
	Reviews   []Review         `gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// Purchasable reports whether the listing can appear in carts and checkouts.
func (l Listing) Purchasable() bool {
	return !l.Disabled && l.Stock > 0
}
