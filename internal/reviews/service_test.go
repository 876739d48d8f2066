package reviews

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/oldphonedeals/backend/internal/listings"
	"github.com/oldphonedeals/backend/pkg/config"
	"github.com/oldphonedeals/backend/pkg/db"
	"github.com/oldphonedeals/backend/pkg/db/models"
	"github.com/oldphonedeals/backend/pkg/enums"
	pkgerrors "github.com/oldphonedeals/backend/pkg/errors"
	"github.com/oldphonedeals/backend/pkg/outbox"
)

type stubOutbox struct {
	events []outbox.DomainEvent
}

func (s *stubOutbox) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type testEnv struct {
	svc    Service
	client *db.Client
	outbox *stubOutbox
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := "file:reviews_" + uuid.NewString() + "?mode=memory&cache=shared"
	client, err := db.New(context.Background(), config.DBConfig{Driver: "sqlite", DSN: dsn}, nil)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	err = client.DB().AutoMigrate(&models.User{}, &models.Listing{}, &models.Review{})
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	emitter := &stubOutbox{}
	svc, err := NewService(ServiceParams{
		DB:       client,
		Repo:     NewRepository(client.DB()),
		Listings: listings.NewRepository(client.DB()),
		Outbox:   emitter,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &testEnv{svc: svc, client: client, outbox: emitter}
}

func (e *testEnv) mustCreateListing(t *testing.T, sellerID uuid.UUID) *models.Listing {
	t.Helper()
	listing := &models.Listing{
		ID:       uuid.New(),
		SellerID: sellerID,
		Title:    "HTC One",
		Brand:    "HTC",
		Image:    "htc.jpeg",
		Stock:    2,
		Price:    decimal.RequireFromString("80.00"),
	}
	if err := e.client.DB().Create(listing).Error; err != nil {
		t.Fatalf("create listing: %v", err)
	}
	return listing
}

func ptr[T any](v T) *T { return &v }

func TestPostValidatesFieldsInOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	listing := env.mustCreateListing(t, uuid.New())

	valid := PostInput{
		ListingID:  ptr(listing.ID),
		ReviewerID: ptr(uuid.New()),
		Rating:     ptr(4),
		Comment:    ptr("solid device"),
	}

	cases := []struct {
		name    string
		mutate  func(in *PostInput)
		message string
	}{
		{"missing listing", func(in *PostInput) { in.ListingID = nil }, "productId is required"},
		{"missing reviewer", func(in *PostInput) { in.ReviewerID = nil }, "reviewer is required"},
		{"missing rating", func(in *PostInput) { in.Rating = nil }, "rating is required"},
		{"missing comment", func(in *PostInput) { in.Comment = ptr("   ") }, "comment is required"},
		{"rating too low", func(in *PostInput) { in.Rating = ptr(0) }, "rating must be between 1 and 5"},
		{"rating too high", func(in *PostInput) { in.Rating = ptr(6) }, "rating must be between 1 and 5"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := valid
			tc.mutate(&input)
			_, err := env.svc.Post(ctx, input)
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
			if typed.Message() != tc.message {
				t.Fatalf("expected %q, got %q", tc.message, typed.Message())
			}
		})
	}

	dto, err := env.svc.Post(ctx, valid)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if dto.Comment != "solid device" {
		t.Fatalf("unexpected comment %q", dto.Comment)
	}
}

func TestPostRejectsUnknownListing(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Post(context.Background(), PostInput{
		ListingID:  ptr(uuid.New()),
		ReviewerID: ptr(uuid.New()),
		Rating:     ptr(3),
		Comment:    ptr("where is it"),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestToggleVisibilityUpdatesAllMatching(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sellerID := uuid.New()
	reviewerID := uuid.New()
	listing := env.mustCreateListing(t, sellerID)

	for i := 0; i < 2; i++ {
		if _, err := env.svc.Post(ctx, PostInput{
			ListingID:  ptr(listing.ID),
			ReviewerID: ptr(reviewerID),
			Rating:     ptr(4),
			Comment:    ptr("again"),
		}); err != nil {
			t.Fatalf("post review: %v", err)
		}
	}

	result, err := env.svc.ToggleVisibility(ctx, reviewerID, listing.ID, reviewerID, true)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if result.Updated != 2 || !result.Hidden {
		t.Fatalf("expected 2 hidden rows, got %+v", result)
	}

	var hiddenCount int64
	err = env.client.DB().Model(&models.Review{}).
		Where("reviewer_id = ? AND hidden = ?", reviewerID, true).
		Count(&hiddenCount).Error
	if err != nil {
		t.Fatalf("count hidden: %v", err)
	}
	if hiddenCount != 2 {
		t.Fatalf("expected both reviews hidden, got %d", hiddenCount)
	}
	if len(env.outbox.events) != 1 || env.outbox.events[0].EventType != enums.EventReviewVisibilityChanged {
		t.Fatalf("expected one visibility event, got %v", env.outbox.events)
	}
}

func TestToggleVisibilityRequiresReviewerOrSeller(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sellerID := uuid.New()
	reviewerID := uuid.New()
	listing := env.mustCreateListing(t, sellerID)

	if _, err := env.svc.Post(ctx, PostInput{
		ListingID:  ptr(listing.ID),
		ReviewerID: ptr(reviewerID),
		Rating:     ptr(2),
		Comment:    ptr("meh"),
	}); err != nil {
		t.Fatalf("post review: %v", err)
	}

	_, err := env.svc.ToggleVisibility(ctx, uuid.New(), listing.ID, reviewerID, true)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for stranger, got %v", err)
	}

	if _, err := env.svc.ToggleVisibility(ctx, sellerID, listing.ID, reviewerID, true); err != nil {
		t.Fatalf("seller toggle: %v", err)
	}
}

func TestToggleVisibilityNoMatchesIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	reviewerID := uuid.New()
	listing := env.mustCreateListing(t, uuid.New())

	_, err := env.svc.ToggleVisibility(ctx, reviewerID, listing.ID, reviewerID, true)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if typed.Message() != "no reviews to toggle" {
		t.Fatalf("unexpected message %q", typed.Message())
	}
}

func TestAdminToggleReturnsFirstReview(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	reviewerID := uuid.New()
	listing := env.mustCreateListing(t, uuid.New())

	first, err := env.svc.Post(ctx, PostInput{
		ListingID:  ptr(listing.ID),
		ReviewerID: ptr(reviewerID),
		Rating:     ptr(5),
		Comment:    ptr("first"),
	})
	if err != nil {
		t.Fatalf("post review: %v", err)
	}

	result, err := env.svc.AdminToggleVisibility(ctx, uuid.New(), listing.ID, reviewerID, true)
	if err != nil {
		t.Fatalf("admin toggle: %v", err)
	}
	if result.First == nil {
		t.Fatal("expected first review echoed back")
	}
	if result.First.ID != first.ID {
		t.Fatalf("expected review %s, got %s", first.ID, result.First.ID)
	}
	if !result.First.Hidden {
		t.Fatal("expected echoed review to reflect the new state")
	}
}

func TestListMineIncludesHidden(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	reviewerID := uuid.New()
	listing := env.mustCreateListing(t, uuid.New())

	if _, err := env.svc.Post(ctx, PostInput{
		ListingID:  ptr(listing.ID),
		ReviewerID: ptr(reviewerID),
		Rating:     ptr(1),
		Comment:    ptr("hide me"),
	}); err != nil {
		t.Fatalf("post review: %v", err)
	}
	if _, err := env.svc.ToggleVisibility(ctx, reviewerID, listing.ID, reviewerID, true); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	rows, err := env.svc.ListMine(ctx, reviewerID)
	if err != nil {
		t.Fatalf("list mine: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 authored review, got %d", len(rows))
	}
	if !rows[0].Hidden {
		t.Fatal("expected hidden review to be listed")
	}
	if rows[0].ListingTitle != "HTC One" {
		t.Fatalf("expected listing title joined, got %q", rows[0].ListingTitle)
	}
}
