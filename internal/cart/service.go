package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/oldphonedeals/backend/internal/listings"
	"github.com/oldphonedeals/backend/pkg/db"
	"github.com/oldphonedeals/backend/pkg/db/models"
	pkgerrors "github.com/oldphonedeals/backend/pkg/errors"
)

// CartItemDTO is one resolved cart line.
type CartItemDTO struct {
	ListingID uuid.UUID           `json:"listingId"`
	Quantity  int                 `json:"quantity"`
	Listing   listings.ListingDTO `json:"listing"`
	Subtotal  decimal.Decimal     `json:"subtotal"`
}

// CartDTO is the read shape for a cart after pruning.
type CartDTO struct {
	ID        uuid.UUID       `json:"id"`
	Items     []CartItemDTO   `json:"items"`
	Total     decimal.Decimal `json:"total"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Service exposes cart reads and line mutations.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (CartDTO, error)
	SetItem(ctx context.Context, userID, listingID uuid.UUID, quantity int) (CartDTO, error)
	RemoveItem(ctx context.Context, userID, listingID uuid.UUID) (CartDTO, error)
}

type listingLoader interface {
	FindBareByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
}

// ServiceParams bundles the dependencies for the cart service.
type ServiceParams struct {
	DB       *db.Client
	Repo     *Repository
	Listings listingLoader
}

type service struct {
	db       *db.Client
	repo     *Repository
	listings listingLoader
}

// NewService builds the cart service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Listings == nil {
		return nil, fmt.Errorf("listing loader required")
	}
	return &service{db: params.DB, repo: params.Repo, listings: params.Listings}, nil
}

// Get loads the cart and prunes every line whose listing is gone, disabled,
// or whose quantity dropped to zero or below. The prune persists in the
// same transaction as the read.
func (s *service) Get(ctx context.Context, userID uuid.UUID) (CartDTO, error) {
	var dto CartDTO
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := repo.FindOrCreateByUser(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
		}

		var stale []uuid.UUID
		kept := make([]models.CartItem, 0, len(cart.Items))
		for _, item := range cart.Items {
			if item.Quantity <= 0 || item.Listing == nil || item.Listing.Disabled {
				stale = append(stale, item.ID)
				continue
			}
			kept = append(kept, item)
		}
		if len(stale) > 0 {
			if err := repo.RemoveItems(ctx, stale); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "prune cart")
			}
		}

		dto = toDTO(cart, kept)
		return nil
	})
	if err != nil {
		return CartDTO{}, err
	}
	return dto, nil
}

// SetItem writes the absolute quantity for a listing line. A quantity of
// zero or less removes the line instead.
func (s *service) SetItem(ctx context.Context, userID, listingID uuid.UUID, quantity int) (CartDTO, error) {
	if listingID == uuid.Nil {
		return CartDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "itemId is required")
	}
	if quantity <= 0 {
		return s.RemoveItem(ctx, userID, listingID)
	}

	listing, err := s.listings.FindBareByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return CartDTO{}, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return CartDTO{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load listing")
	}
	if listing.Disabled {
		return CartDTO{}, pkgerrors.New(pkgerrors.CodeStateConflict, "listing is disabled")
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := repo.FindOrCreateByUser(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
		}
		if err := repo.UpsertItem(ctx, cart.ID, listingID, quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "upsert cart item")
		}
		return nil
	})
	if err != nil {
		return CartDTO{}, err
	}
	return s.Get(ctx, userID)
}

// RemoveItem drops the listing line from the cart if present.
func (s *service) RemoveItem(ctx context.Context, userID, listingID uuid.UUID) (CartDTO, error) {
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := repo.FindOrCreateByUser(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
		}
		if _, err := repo.RemoveItem(ctx, cart.ID, listingID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove cart item")
		}
		return nil
	})
	if err != nil {
		return CartDTO{}, err
	}
	return s.Get(ctx, userID)
}

func toDTO(cart *models.Cart, items []models.CartItem) CartDTO {
	dto := CartDTO{
		ID:        cart.ID,
		Items:     make([]CartItemDTO, 0, len(items)),
		Total:     decimal.Zero,
		UpdatedAt: cart.UpdatedAt,
	}
	for _, item := range items {
		subtotal := item.Listing.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		dto.Items = append(dto.Items, CartItemDTO{
			ListingID: item.ListingID,
			Quantity:  item.Quantity,
			Listing:   listings.FromModel(item.Listing),
			Subtotal:  subtotal,
		})
		dto.Total = dto.Total.Add(subtotal)
	}
	return dto
}
