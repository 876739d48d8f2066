package wishlist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oldphonedeals/backend/internal/listings"
	"github.com/oldphonedeals/backend/pkg/db/models"
	pkgerrors "github.com/oldphonedeals/backend/pkg/errors"
)

// ItemDTO is one saved listing.
type ItemDTO struct {
	ListingID uuid.UUID           `json:"listingId"`
	Listing   listings.ListingDTO `json:"listing"`
	SavedAt   time.Time           `json:"savedAt"`
}

type listingLoader interface {
	FindBareByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
}

// Service exposes wishlist reads and mutations.
type Service interface {
	List(ctx context.Context, userID uuid.UUID) ([]ItemDTO, error)
	Add(ctx context.Context, userID, listingID uuid.UUID) error
	Remove(ctx context.Context, userID, listingID uuid.UUID) error
}

// ServiceParams bundles the dependencies for the wishlist service.
type ServiceParams struct {
	Repo     *Repository
	Listings listingLoader
}

type service struct {
	repo     *Repository
	listings listingLoader
}

// NewService builds the wishlist service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("wishlist repository required")
	}
	if params.Listings == nil {
		return nil, fmt.Errorf("listing loader required")
	}
	return &service{repo: params.Repo, listings: params.Listings}, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]ItemDTO, error) {
	rows, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list wishlist")
	}
	out := make([]ItemDTO, 0, len(rows))
	for _, row := range rows {
		if row.Listing == nil {
			continue
		}
		out = append(out, ItemDTO{
			ListingID: row.ListingID,
			Listing:   listings.FromModel(row.Listing),
			SavedAt:   row.CreatedAt,
		})
	}
	return out, nil
}

// Add saves the listing, rejecting duplicates explicitly.
func (s *service) Add(ctx context.Context, userID, listingID uuid.UUID) error {
	if listingID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "itemId is required")
	}
	if _, err := s.listings.FindBareByID(ctx, listingID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load listing")
	}

	exists, err := s.repo.Exists(ctx, userID, listingID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check wishlist")
	}
	if exists {
		return pkgerrors.New(pkgerrors.CodeConflict, "listing already in wishlist")
	}
	if err := s.repo.Add(ctx, userID, listingID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add wishlist item")
	}
	return nil
}

// Remove drops the listing, rejecting absent entries explicitly.
func (s *service) Remove(ctx context.Context, userID, listingID uuid.UUID) error {
	if listingID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "itemId is required")
	}
	removed, err := s.repo.Remove(ctx, userID, listingID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove wishlist item")
	}
	if removed == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "listing not in wishlist")
	}
	return nil
}
