package reviews

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oldphonedeals/backend/pkg/db"
	"github.com/oldphonedeals/backend/pkg/db/models"
	"github.com/oldphonedeals/backend/pkg/enums"
	pkgerrors "github.com/oldphonedeals/backend/pkg/errors"
	"github.com/oldphonedeals/backend/pkg/outbox"
)

type listingLoader interface {
	FindBareByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// PostInput carries the raw review submission. Pointer fields distinguish
// missing from zero so presence checks can run field by field.
type PostInput struct {
	ListingID  *uuid.UUID
	ReviewerID *uuid.UUID
	Rating     *int
	Comment    *string
}

// ToggleResult reports the outcome of a visibility toggle.
type ToggleResult struct {
	Updated int64      `json:"updated"`
	Hidden  bool       `json:"hidden"`
	First   *ReviewDTO `json:"review,omitempty"`
}

// Service exposes review posting and moderation.
type Service interface {
	Post(ctx context.Context, input PostInput) (ReviewDTO, error)
	ToggleVisibility(ctx context.Context, actorID, listingID, reviewerID uuid.UUID, hidden bool) (ToggleResult, error)
	AdminToggleVisibility(ctx context.Context, adminID, listingID, reviewerID uuid.UUID, hidden bool) (ToggleResult, error)
	ListMine(ctx context.Context, reviewerID uuid.UUID) ([]AuthoredReviewDTO, error)
}

// ServiceParams bundles the dependencies for the reviews service.
type ServiceParams struct {
	DB       *db.Client
	Repo     *Repository
	Listings listingLoader
	Outbox   outboxEmitter
}

type service struct {
	db       *db.Client
	repo     *Repository
	listings listingLoader
	outbox   outboxEmitter
}

// NewService builds the reviews service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("reviews repository required")
	}
	if params.Listings == nil {
		return nil, fmt.Errorf("listing loader required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{
		db:       params.DB,
		repo:     params.Repo,
		listings: params.Listings,
		outbox:   params.Outbox,
	}, nil
}

// Post appends a review after checking each required field in a fixed
// order. The first missing field decides the error message.
func (s *service) Post(ctx context.Context, input PostInput) (ReviewDTO, error) {
	switch {
	case input.ListingID == nil || *input.ListingID == uuid.Nil:
		return ReviewDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "productId is required")
	case input.ReviewerID == nil || *input.ReviewerID == uuid.Nil:
		return ReviewDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "reviewer is required")
	case input.Rating == nil:
		return ReviewDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "rating is required")
	case input.Comment == nil || strings.TrimSpace(*input.Comment) == "":
		return ReviewDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "comment is required")
	}
	if *input.Rating < 1 || *input.Rating > 5 {
		return ReviewDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}

	if _, err := s.listings.FindBareByID(ctx, *input.ListingID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ReviewDTO{}, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return ReviewDTO{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load listing")
	}

	review := &models.Review{
		ID:         uuid.New(),
		ListingID:  *input.ListingID,
		ReviewerID: *input.ReviewerID,
		Rating:     *input.Rating,
		Comment:    strings.TrimSpace(*input.Comment),
	}
	if err := s.repo.Create(ctx, review); err != nil {
		return ReviewDTO{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create review")
	}
	return fromModel(review), nil
}

// ToggleVisibility flips hidden on every review the reviewer left on the
// listing. Only the reviewer or the listing seller may do this.
func (s *service) ToggleVisibility(ctx context.Context, actorID, listingID, reviewerID uuid.UUID, hidden bool) (ToggleResult, error) {
	listing, err := s.listings.FindBareByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ToggleResult{}, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return ToggleResult{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load listing")
	}
	if actorID != reviewerID && actorID != listing.SellerID {
		return ToggleResult{}, pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to toggle this review")
	}

	return s.toggle(ctx, outbox.ActorRef{UserID: actorID, Role: string(enums.RoleUser)}, listingID, reviewerID, hidden, false)
}

// AdminToggleVisibility performs the same bulk update but echoes back the
// first matched review instead of the row count.
func (s *service) AdminToggleVisibility(ctx context.Context, adminID, listingID, reviewerID uuid.UUID, hidden bool) (ToggleResult, error) {
	return s.toggle(ctx, outbox.ActorRef{UserID: adminID, Role: string(enums.RoleAdmin)}, listingID, reviewerID, hidden, true)
}

func (s *service) toggle(ctx context.Context, actor outbox.ActorRef, listingID, reviewerID uuid.UUID, hidden, includeFirst bool) (ToggleResult, error) {
	var updated int64
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		count, err := s.repo.WithTx(tx).SetHiddenByListingAndReviewer(ctx, listingID, reviewerID, hidden)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "toggle reviews")
		}
		if count == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "no reviews to toggle")
		}
		updated = count
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReviewVisibilityChanged,
			AggregateType: enums.AggregateReview,
			AggregateID:   listingID,
			Actor:         &actor,
			Data: map[string]any{
				"listingId":  listingID,
				"reviewerId": reviewerID,
				"hidden":     hidden,
				"updated":    count,
			},
			Version:    1,
			OccurredAt: time.Now().UTC(),
		})
	})
	if err != nil {
		return ToggleResult{}, err
	}

	result := ToggleResult{Updated: updated, Hidden: hidden}
	if includeFirst {
		first, err := s.repo.FirstByListingAndReviewer(ctx, listingID, reviewerID)
		if err != nil {
			return ToggleResult{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load toggled review")
		}
		dto := fromModel(first)
		result.First = &dto
	}
	return result, nil
}

// ListMine returns the reviews the user has authored, hidden ones included.
func (s *service) ListMine(ctx context.Context, reviewerID uuid.UUID) ([]AuthoredReviewDTO, error) {
	rows, err := s.repo.ListByReviewer(ctx, reviewerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list authored reviews")
	}
	return rows, nil
}
