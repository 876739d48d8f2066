package wishlist

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oldphonedeals/backend/internal/listings"
	"github.com/oldphonedeals/backend/pkg/config"
	"github.com/oldphonedeals/backend/pkg/db"
	"github.com/oldphonedeals/backend/pkg/db/models"
	pkgerrors "github.com/oldphonedeals/backend/pkg/errors"
)

func newTestService(t *testing.T) (Service, *db.Client) {
	t.Helper()
	dsn := "file:wishlist_" + uuid.NewString() + "?mode=memory&cache=shared"
	client, err := db.New(context.Background(), config.DBConfig{Driver: "sqlite", DSN: dsn}, nil)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	err = client.DB().AutoMigrate(
		&models.User{},
		&models.Listing{},
		&models.Review{},
		&models.WishlistItem{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(client.DB()),
		Listings: listings.NewRepository(client.DB()),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, client
}

func mustCreateListing(t *testing.T, client *db.Client, title string) *models.Listing {
	t.Helper()
	listing := &models.Listing{
		ID:       uuid.New(),
		SellerID: uuid.New(),
		Title:    title,
		Brand:    "Nokia",
		Image:    "nokia.jpeg",
		Stock:    3,
		Price:    decimal.RequireFromString("35.00"),
	}
	if err := client.DB().Create(listing).Error; err != nil {
		t.Fatalf("create listing: %v", err)
	}
	return listing
}

func TestAddAndList(t *testing.T) {
	svc, client := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	listing := mustCreateListing(t, client, "Nokia 3310")

	if err := svc.Add(ctx, userID, listing.ID); err != nil {
		t.Fatalf("add: %v", err)
	}

	items, err := svc.List(ctx, userID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected one item, got %d", len(items))
	}
	if items[0].ListingID != listing.ID {
		t.Fatalf("expected listing %s, got %s", listing.ID, items[0].ListingID)
	}
	if items[0].Listing.Title != "Nokia 3310" {
		t.Fatalf("expected resolved listing title, got %q", items[0].Listing.Title)
	}
}

func TestAddRejectsDuplicate(t *testing.T) {
	svc, client := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	listing := mustCreateListing(t, client, "Nokia 3310")

	if err := svc.Add(ctx, userID, listing.ID); err != nil {
		t.Fatalf("first add: %v", err)
	}
	err := svc.Add(ctx, userID, listing.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}

	var count int64
	if err := client.DB().Model(&models.WishlistItem{}).Count(&count).Error; err != nil {
		t.Fatalf("count items: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected cardinality unchanged, got %d rows", count)
	}
}

func TestAddRejectsUnknownListing(t *testing.T) {
	svc, _ := newTestService(t)

	err := svc.Add(context.Background(), uuid.New(), uuid.New())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAddRequiresListingID(t *testing.T) {
	svc, _ := newTestService(t)

	err := svc.Add(context.Background(), uuid.New(), uuid.Nil)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if typed.Message() != "itemId is required" {
		t.Fatalf("unexpected message %q", typed.Message())
	}
}

func TestRemoveRejectsAbsentEntry(t *testing.T) {
	svc, client := newTestService(t)
	ctx := context.Background()
	listing := mustCreateListing(t, client, "Nokia 3310")

	err := svc.Remove(ctx, uuid.New(), listing.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRemoveDropsEntry(t *testing.T) {
	svc, client := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	listing := mustCreateListing(t, client, "Nokia 3310")

	if err := svc.Add(ctx, userID, listing.ID); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := svc.Remove(ctx, userID, listing.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}

	items, err := svc.List(ctx, userID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty wishlist, got %d items", len(items))
	}
}
