package listings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oldphonedeals/backend/pkg/db"
	"github.com/oldphonedeals/backend/pkg/db/models"
	"github.com/oldphonedeals/backend/pkg/enums"
	pkgerrors "github.com/oldphonedeals/backend/pkg/errors"
	"github.com/oldphonedeals/backend/pkg/outbox"
)

const featuredLimit = 5

type imageStore interface {
	Remove(name string) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service exposes catalog reads and seller-side listing management.
type Service interface {
	SoldOutSoon(ctx context.Context) ([]ListingDTO, error)
	BestSellers(ctx context.Context) ([]BestSellerDTO, error)
	Search(ctx context.Context, query string) ([]ListingDTO, error)
	Brands(ctx context.Context) []enums.PhoneBrand
	Get(ctx context.Context, id, viewerID uuid.UUID) (ListingDTO, error)

	ListMine(ctx context.Context, sellerID uuid.UUID) ([]ListingDTO, error)
	Create(ctx context.Context, sellerID uuid.UUID, input CreateListingInput) (ListingDTO, error)
	Update(ctx context.Context, sellerID, listingID uuid.UUID, input UpdateListingInput) (ListingDTO, error)
	SetDisabled(ctx context.Context, sellerID, listingID uuid.UUID, disabled bool) error
	Delete(ctx context.Context, sellerID, listingID uuid.UUID) error
}

// ServiceParams bundles the dependencies for the listings service.
type ServiceParams struct {
	DB     *db.Client
	Repo   *Repository
	Images imageStore
	Outbox outboxEmitter
}

type service struct {
	db     *db.Client
	repo   *Repository
	images imageStore
	outbox outboxEmitter
}

// NewService builds the listings service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("listings repository required")
	}
	if params.Images == nil {
		return nil, fmt.Errorf("image store required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{
		db:     params.DB,
		repo:   params.Repo,
		images: params.Images,
		outbox: params.Outbox,
	}, nil
}

// SoldOutSoon returns the five in-stock listings closest to running out.
// An empty catalog is reported as not found, not an empty page.
func (s *service) SoldOutSoon(ctx context.Context) ([]ListingDTO, error) {
	rows, err := s.repo.SoldOutSoon(ctx, featuredLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "query sold out soon")
	}
	if len(rows) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no phones close to selling out")
	}
	return toDTOs(rows), nil
}

// BestSellers ranks listings by mean rating, requiring more than two reviews.
func (s *service) BestSellers(ctx context.Context) ([]BestSellerDTO, error) {
	rows, err := s.repo.BestSellers(ctx, featuredLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "query best sellers")
	}
	if len(rows) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no best sellers available")
	}
	return rows, nil
}

// Search matches enabled listings by case-insensitive title substring.
func (s *service) Search(ctx context.Context, query string) ([]ListingDTO, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "queryString is required")
	}
	rows, err := s.repo.SearchTitle(ctx, trimmed)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "search listings")
	}
	if len(rows) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no phones match the search")
	}
	return toDTOs(rows), nil
}

// Brands returns the fixed brand catalog used by search filters.
func (s *service) Brands(ctx context.Context) []enums.PhoneBrand {
	return enums.PhoneBrands()
}

// Get loads one listing with its reviews, filtering hidden reviews for
// everyone except the review author and the listing seller.
func (s *service) Get(ctx context.Context, id, viewerID uuid.UUID) (ListingDTO, error) {
	listing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ListingDTO{}, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return ListingDTO{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load listing")
	}

	dto := FromModel(listing)
	dto.Reviews = make([]ReviewDTO, 0, len(listing.Reviews))
	for _, review := range listing.Reviews {
		if review.Hidden && viewerID != review.ReviewerID && viewerID != listing.SellerID {
			continue
		}
		dto.Reviews = append(dto.Reviews, reviewFromModel(review))
	}
	return dto, nil
}

// ListMine returns every listing owned by the seller, disabled ones included.
func (s *service) ListMine(ctx context.Context, sellerID uuid.UUID) ([]ListingDTO, error) {
	rows, err := s.repo.ListBySeller(ctx, sellerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list seller listings")
	}
	return toDTOs(rows), nil
}

func (s *service) Create(ctx context.Context, sellerID uuid.UUID, input CreateListingInput) (ListingDTO, error) {
	if err := validateCreateInput(input); err != nil {
		return ListingDTO{}, err
	}

	listing := &models.Listing{
		ID:       uuid.New(),
		SellerID: sellerID,
		Title:    strings.TrimSpace(input.Title),
		Brand:    input.Brand,
		Image:    input.Image,
		Stock:    input.Stock,
		Price:    input.Price,
	}
	if err := s.repo.Create(ctx, listing); err != nil {
		return ListingDTO{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create listing")
	}
	return FromModel(listing), nil
}

// validateCreateInput checks each required field in a fixed order so the
// first missing field determines the message.
func validateCreateInput(input CreateListingInput) error {
	switch {
	case strings.TrimSpace(input.Title) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	case input.Brand == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "brand is required")
	case strings.TrimSpace(input.Image) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "image is required")
	case input.Stock < 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "stock must be zero or more")
	case input.Price.IsNegative():
		return pkgerrors.New(pkgerrors.CodeValidation, "price must be zero or more")
	}
	if !input.Brand.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown brand")
	}
	return nil
}

func (s *service) Update(ctx context.Context, sellerID, listingID uuid.UUID, input UpdateListingInput) (ListingDTO, error) {
	listing, err := s.ownedListing(ctx, sellerID, listingID)
	if err != nil {
		return ListingDTO{}, err
	}

	updates := map[string]any{}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return ListingDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "title cannot be empty")
		}
		updates["title"] = title
	}
	if input.Brand != nil {
		if !input.Brand.IsValid() {
			return ListingDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown brand")
		}
		updates["brand"] = *input.Brand
	}
	if input.Image != nil {
		updates["image"] = *input.Image
	}
	if input.Stock != nil {
		if *input.Stock < 0 {
			return ListingDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "stock must be zero or more")
		}
		updates["stock"] = *input.Stock
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return ListingDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "price must be zero or more")
		}
		updates["price"] = *input.Price
	}

	if err := s.repo.Update(ctx, listing.ID, updates); err != nil {
		return ListingDTO{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update listing")
	}

	updated, err := s.repo.FindBareByID(ctx, listing.ID)
	if err != nil {
		return ListingDTO{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload listing")
	}
	return FromModel(updated), nil
}

func (s *service) SetDisabled(ctx context.Context, sellerID, listingID uuid.UUID, disabled bool) error {
	listing, err := s.ownedListing(ctx, sellerID, listingID)
	if err != nil {
		return err
	}

	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).SetDisabled(ctx, listing.ID, disabled); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "toggle listing")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventListingDisabled,
			AggregateType: enums.AggregateListing,
			AggregateID:   listing.ID,
			Actor:         &outbox.ActorRef{UserID: sellerID, Role: string(enums.RoleUser)},
			Data: outbox.ListingDisabledData{
				ListingID: listing.ID,
				SellerID:  listing.SellerID,
				Disabled:  disabled,
			},
			Version: 1,
		})
	})
}

// Delete removes the listing, its reviews, and the stored image file.
func (s *service) Delete(ctx context.Context, sellerID, listingID uuid.UUID) error {
	listing, err := s.ownedListing(ctx, sellerID, listingID)
	if err != nil {
		return err
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Delete(ctx, listing.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete listing")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventListingDeleted,
			AggregateType: enums.AggregateListing,
			AggregateID:   listing.ID,
			Actor:         &outbox.ActorRef{UserID: sellerID, Role: string(enums.RoleUser)},
			Data: outbox.ListingDisabledData{
				ListingID: listing.ID,
				SellerID:  listing.SellerID,
				Disabled:  true,
			},
			Version: 1,
		})
	})
	if err != nil {
		return err
	}

	// Image removal happens after commit; a leftover file is preferable to a
	// dangling listing row pointing at a deleted image.
	if listing.Image != "" {
		if err := s.images.Remove(listing.Image); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove listing image")
		}
	}
	return nil
}

func (s *service) ownedListing(ctx context.Context, sellerID, listingID uuid.UUID) (*models.Listing, error) {
	listing, err := s.repo.FindBareByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load listing")
	}
	if listing.SellerID != sellerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "listing belongs to another seller")
	}
	return listing, nil
}

func toDTOs(rows []models.Listing) []ListingDTO {
	out := make([]ListingDTO, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return out
}
