package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oldphonedeals/backend/pkg/db/models"
)

// OrderItemDTO is one snapshotted purchase line.
type OrderItemDTO struct {
	ListingID uuid.UUID       `json:"listingId"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// OrderDTO is the read shape for one order.
type OrderDTO struct {
	ID          uuid.UUID       `json:"id"`
	BuyerID     uuid.UUID       `json:"buyerId"`
	BuyerName   string          `json:"buyerName,omitempty"`
	Items       []OrderItemDTO  `json:"items"`
	TotalNumber int             `json:"totalNumber"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// FromModel converts an order row into its DTO.
func FromModel(o *models.Order) OrderDTO {
	dto := OrderDTO{
		ID:         o.ID,
		BuyerID:    o.UserID,
		Items:      make([]OrderItemDTO, 0, len(o.Items)),
		TotalPrice: o.Total,
		CreatedAt:  o.CreatedAt,
	}
	if o.User != nil {
		dto.BuyerName = o.User.FullName()
	}
	for _, item := range o.Items {
		dto.TotalNumber += item.Quantity
		dto.Items = append(dto.Items, OrderItemDTO{
			ListingID: item.ListingID,
			Title:     item.Title,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			Subtotal:  item.Subtotal(),
		})
	}
	return dto
}
