package outbox

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderPlacedData is the v1 payload for order_placed events.
type OrderPlacedData struct {
	OrderID   uuid.UUID             `json:"orderId"`
	UserID    uuid.UUID             `json:"userId"`
	Total     decimal.Decimal       `json:"total"`
	Items     []OrderPlacedLineItem `json:"items"`
	PlacedAt  time.Time             `json:"placedAt"`
	ItemCount int                   `json:"itemCount"`
}

type OrderPlacedLineItem struct {
	ListingID uuid.UUID       `json:"listingId"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
}

// UserRegisteredData is the v1 payload for user_registered events. The raw
// verification token rides along so the mail consumer can build the link.
type UserRegisteredData struct {
	UserID            uuid.UUID `json:"userId"`
	Email             string    `json:"email"`
	FirstName         string    `json:"firstName"`
	VerificationToken string    `json:"verificationToken"`
}

// PasswordResetRequestedData is the v1 payload for password_reset_requested events.
type PasswordResetRequestedData struct {
	UserID     uuid.UUID `json:"userId"`
	Email      string    `json:"email"`
	ResetToken string    `json:"resetToken"`
}

// ListingDisabledData is the v1 payload for listing_disabled events.
type ListingDisabledData struct {
	ListingID uuid.UUID `json:"listingId"`
	SellerID  uuid.UUID `json:"sellerId"`
	Disabled  bool      `json:"disabled"`
}
