package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/oldphonedeals/backend/internal/cart"
	"github.com/oldphonedeals/backend/internal/listings"
	"github.com/oldphonedeals/backend/internal/orders"
	"github.com/oldphonedeals/backend/pkg/db/models"
	"github.com/oldphonedeals/backend/pkg/enums"
	pkgerrors "github.com/oldphonedeals/backend/pkg/errors"
	"github.com/oldphonedeals/backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Line is one requested purchase: a listing and an absolute quantity.
type Line struct {
	ListingID uuid.UUID
	Quantity  int
}

// Service converts a set of requested lines into an immutable order.
type Service interface {
	Execute(ctx context.Context, userID uuid.UUID, lines []Line) (orders.OrderDTO, error)
}

// ServiceParams bundles the checkout dependencies.
type ServiceParams struct {
	TX           txRunner
	ListingsRepo *listings.Repository
	OrdersRepo   *orders.Repository
	CartRepo     *cart.Repository
	Outbox       outboxEmitter
}

type service struct {
	tx           txRunner
	listingsRepo *listings.Repository
	ordersRepo   *orders.Repository
	cartRepo     *cart.Repository
	outbox       outboxEmitter
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.TX == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.ListingsRepo == nil {
		return nil, fmt.Errorf("listings repository required")
	}
	if params.OrdersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.CartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{
		tx:           params.TX,
		listingsRepo: params.ListingsRepo,
		ordersRepo:   params.OrdersRepo,
		cartRepo:     params.CartRepo,
		outbox:       params.Outbox,
	}, nil
}

// Execute runs the whole checkout in one transaction: every listing row is
// locked FOR UPDATE, stock is validated and decremented, the order and its
// snapshot lines are inserted, the buyer's cart is deleted, and an
// order_placed event lands in the outbox. Any failure rolls back all of it,
// so stock never moves without a matching order.
func (s *service) Execute(ctx context.Context, userID uuid.UUID, lines []Line) (orders.OrderDTO, error) {
	if userID == uuid.Nil {
		return orders.OrderDTO{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	if len(lines) == 0 {
		return orders.OrderDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "items are required")
	}
	for _, line := range lines {
		if line.ListingID == uuid.Nil {
			return orders.OrderDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
		}
		if line.Quantity < 1 {
			return orders.OrderDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
		}
	}

	var placed *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		listingsRepo := s.listingsRepo.WithTx(tx)
		ordersRepo := s.ordersRepo.WithTx(tx)
		cartRepo := s.cartRepo.WithTx(tx)

		now := time.Now().UTC()
		order := &models.Order{
			ID:     uuid.New(),
			UserID: userID,
			Total:  decimal.Zero,
		}
		eventItems := make([]outbox.OrderPlacedLineItem, 0, len(lines))
		itemCount := 0

		for _, line := range lines {
			listing, err := listingsRepo.LockByID(ctx, line.ListingID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "listing no longer exists").
						WithDetails(map[string]any{"listingId": line.ListingID})
				}
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock listing")
			}
			if listing.Disabled {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "listing is disabled").
					WithDetails(map[string]any{"listingId": listing.ID})
			}
			if listing.Stock < line.Quantity {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient stock").
					WithDetails(map[string]any{
						"listingId": listing.ID,
						"stock":     listing.Stock,
						"requested": line.Quantity,
					})
			}

			if err := listingsRepo.DecrementStock(ctx, listing.ID, line.Quantity); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decrement stock")
			}

			order.Items = append(order.Items, models.OrderItem{
				ID:        uuid.New(),
				OrderID:   order.ID,
				ListingID: listing.ID,
				Title:     listing.Title,
				UnitPrice: listing.Price,
				Quantity:  line.Quantity,
			})
			order.Total = order.Total.Add(listing.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
			itemCount += line.Quantity
			eventItems = append(eventItems, outbox.OrderPlacedLineItem{
				ListingID: listing.ID,
				Title:     listing.Title,
				UnitPrice: listing.Price,
				Quantity:  line.Quantity,
			})
		}

		if err := ordersRepo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}
		if err := cartRepo.DeleteByUser(ctx, userID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: userID, Role: string(enums.RoleUser)},
			Data: outbox.OrderPlacedData{
				OrderID:   order.ID,
				UserID:    userID,
				Total:     order.Total,
				Items:     eventItems,
				PlacedAt:  now,
				ItemCount: itemCount,
			},
			Version:    1,
			OccurredAt: now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order event")
		}

		placed = order
		return nil
	})
	if err != nil {
		return orders.OrderDTO{}, err
	}
	return orders.FromModel(placed), nil
}
