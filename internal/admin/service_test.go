package admin

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/oldphonedeals/backend/internal/listings"
	"github.com/oldphonedeals/backend/internal/orders"
	"github.com/oldphonedeals/backend/internal/reviews"
	"github.com/oldphonedeals/backend/pkg/config"
	"github.com/oldphonedeals/backend/pkg/db"
	"github.com/oldphonedeals/backend/pkg/db/models"
	pkgerrors "github.com/oldphonedeals/backend/pkg/errors"
	"github.com/oldphonedeals/backend/pkg/outbox"

	userspkg "github.com/oldphonedeals/backend/internal/users"
)

type stubImages struct {
	removed []string
}

func (s *stubImages) Remove(name string) error {
	s.removed = append(s.removed, name)
	return nil
}

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
	images *stubImages
	outbox *stubOutbox
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := "file:admin_" + uuid.NewString() + "?mode=memory&cache=shared"
	client, err := db.New(context.Background(), config.DBConfig{Driver: "sqlite", DSN: dsn}, nil)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	err = client.DB().AutoMigrate(
		&models.User{},
		&models.Listing{},
		&models.Review{},
		&models.Order{},
		&models.OrderItem{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	images := &stubImages{}
	emitter := &stubOutbox{}
	reviewsSvc, err := reviews.NewService(reviews.ServiceParams{
		DB:       client,
		Repo:     reviews.NewRepository(client.DB()),
		Listings: listings.NewRepository(client.DB()),
		Outbox:   emitter,
	})
	if err != nil {
		t.Fatalf("reviews service: %v", err)
	}
	svc, err := NewService(ServiceParams{
		DB:           client,
		UsersRepo:    userspkg.NewRepository(client.DB()),
		ListingsRepo: listings.NewRepository(client.DB()),
		ReviewsRepo:  reviews.NewRepository(client.DB()),
		ReviewsSvc:   reviewsSvc,
		OrdersRepo:   orders.NewRepository(client.DB()),
		Images:       images,
		Outbox:       emitter,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &testEnv{svc: svc, client: client, images: images, outbox: emitter}
}

func (e *testEnv) mustCreateUser(t *testing.T, first, last, email string) *models.User {
	t.Helper()
	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: "x",
		FirstName:    first,
		LastName:     last,
	}
	if err := e.client.DB().Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func (e *testEnv) mustCreateListing(t *testing.T, sellerID uuid.UUID, title, image string, disabled bool) *models.Listing {
	t.Helper()
	listing := &models.Listing{
		ID:       uuid.New(),
		SellerID: sellerID,
		Title:    title,
		Brand:    "Sony",
		Image:    image,
		Stock:    2,
		Price:    decimal.RequireFromString("60.00"),
		Disabled: disabled,
	}
	if err := e.client.DB().Create(listing).Error; err != nil {
		t.Fatalf("create listing: %v", err)
	}
	return listing
}

func (e *testEnv) mustCreateOrder(t *testing.T, buyerID uuid.UUID, title, unitPrice string, qty int) *models.Order {
	t.Helper()
	price := decimal.RequireFromString(unitPrice)
	order := &models.Order{
		ID:     uuid.New(),
		UserID: buyerID,
		Total:  price.Mul(decimal.NewFromInt(int64(qty))),
		Items: []models.OrderItem{{
			ID:        uuid.New(),
			ListingID: uuid.New(),
			Title:     title,
			UnitPrice: price,
			Quantity:  qty,
		}},
	}
	order.Items[0].OrderID = order.ID
	if err := e.client.DB().Create(order).Error; err != nil {
		t.Fatalf("create order: %v", err)
	}
	return order
}

func TestSearchUsersSplitsNameQueries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.mustCreateUser(t, "John", "Smith", "john@example.com")
	env.mustCreateUser(t, "Jane", "Smith", "jane@example.com")
	env.mustCreateUser(t, "Ada", "Lovelace", "ada@example.com")

	rows, err := env.svc.SearchUsers(ctx, "john smith")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(rows) != 1 || rows[0].Email != "john@example.com" {
		t.Fatalf("expected only John Smith, got %d rows", len(rows))
	}

	rows, err = env.svc.SearchUsers(ctx, "smith")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected both Smiths, got %d", len(rows))
	}

	rows, err = env.svc.SearchUsers(ctx, "")
	if err != nil {
		t.Fatalf("search all: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected all users on empty query, got %d", len(rows))
	}
}

func TestUserDetailAggregatesOwnership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.mustCreateUser(t, "John", "Smith", "john@example.com")
	env.mustCreateListing(t, user.ID, "Xperia Z", "xperia.jpeg", false)
	other := env.mustCreateListing(t, uuid.New(), "Xperia X", "x.jpeg", false)
	review := &models.Review{
		ID:         uuid.New(),
		ListingID:  other.ID,
		ReviewerID: user.ID,
		Rating:     4,
		Comment:    "decent",
	}
	if err := env.client.DB().Create(review).Error; err != nil {
		t.Fatalf("create review: %v", err)
	}

	detail, err := env.svc.UserDetail(ctx, user.ID)
	if err != nil {
		t.Fatalf("user detail: %v", err)
	}
	if detail.User.Email != "john@example.com" {
		t.Fatalf("unexpected user %+v", detail.User)
	}
	if len(detail.Listings) != 1 || detail.Listings[0].Title != "Xperia Z" {
		t.Fatalf("expected owned listing, got %+v", detail.Listings)
	}
	if len(detail.Reviews) != 1 || detail.Reviews[0].ListingTitle != "Xperia X" {
		t.Fatalf("expected authored review, got %+v", detail.Reviews)
	}

	_, err = env.svc.UserDetail(ctx, uuid.New())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteUserRemovesListingImages(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.mustCreateUser(t, "John", "Smith", "john@example.com")
	env.mustCreateListing(t, user.ID, "Xperia Z", "xperia.jpeg", false)

	if err := env.svc.DeleteUser(ctx, uuid.New(), user.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}

	var count int64
	if err := env.client.DB().Model(&models.User{}).Where("id = ?", user.ID).Count(&count).Error; err != nil {
		t.Fatalf("count users: %v", err)
	}
	if count != 0 {
		t.Fatal("expected user deleted")
	}
	if len(env.images.removed) != 1 || env.images.removed[0] != "xperia.jpeg" {
		t.Fatalf("expected listing image cleanup, got %v", env.images.removed)
	}
}

func TestSearchListingsIncludesDisabled(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.mustCreateListing(t, uuid.New(), "Xperia Z", "a.jpeg", false)
	env.mustCreateListing(t, uuid.New(), "Xperia X disabled", "b.jpeg", true)

	rows, err := env.svc.SearchListings(ctx, "xperia")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected disabled rows included, got %d", len(rows))
	}

	// Brand matches too.
	rows, err = env.svc.SearchListings(ctx, "sony")
	if err != nil {
		t.Fatalf("search by brand: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected brand match, got %d", len(rows))
	}
}

func TestSalesLogPaging(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	buyer := env.mustCreateUser(t, "John", "Smith", "john@example.com")

	for i := 0; i < 3; i++ {
		env.mustCreateOrder(t, buyer.ID, "Xperia Z", "60.00", 1)
	}

	page, err := env.svc.SalesLog(ctx, 1, 2)
	if err != nil {
		t.Fatalf("sales log: %v", err)
	}
	if page.Total != 3 || len(page.Orders) != 2 {
		t.Fatalf("expected total 3 with 2 rows, got total %d rows %d", page.Total, len(page.Orders))
	}

	page, err = env.svc.SalesLog(ctx, 2, 2)
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(page.Orders) != 1 {
		t.Fatalf("expected 1 row on second page, got %d", len(page.Orders))
	}

	page, err = env.svc.SalesLog(ctx, 0, 0)
	if err != nil {
		t.Fatalf("defaulted page: %v", err)
	}
	if page.Page != 1 || page.Limit != defaultSalesPageSize {
		t.Fatalf("expected defaults, got page %d limit %d", page.Page, page.Limit)
	}
}

func TestExportSalesJSON(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	buyer := env.mustCreateUser(t, "John", "Smith", "john@example.com")
	env.mustCreateOrder(t, buyer.ID, "Xperia Z", "60.00", 2)

	data, contentType, err := env.svc.ExportSales(ctx, "json")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if contentType != "application/json" {
		t.Fatalf("unexpected content type %q", contentType)
	}
	var dtos []orders.OrderDTO
	if err := json.Unmarshal(data, &dtos); err != nil {
		t.Fatalf("unmarshal export: %v", err)
	}
	if len(dtos) != 1 || dtos[0].BuyerName != "John Smith" {
		t.Fatalf("unexpected export %+v", dtos)
	}
}

func TestExportSalesCSV(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	buyer := env.mustCreateUser(t, "John", "Smith", "john@example.com")
	order := env.mustCreateOrder(t, buyer.ID, "Xperia Z", "60.00", 2)

	data, contentType, err := env.svc.ExportSales(ctx, "CSV")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if contentType != "text/csv" {
		t.Fatalf("unexpected content type %q", contentType)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header plus one line, got %d", len(lines))
	}
	if lines[0] != "order_id,buyer,listing_id,title,quantity,unit_price,subtotal,placed_at" {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], order.ID.String()+",John Smith,") {
		t.Fatalf("unexpected row %q", lines[1])
	}
	if !strings.Contains(lines[1], ",2,60.00,120.00,") {
		t.Fatalf("expected quantity and prices in row %q", lines[1])
	}
}

func TestExportSalesSpansBatches(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	buyer := env.mustCreateUser(t, "John", "Smith", "john@example.com")

	total := exportSalesBatch + 3
	batch := make([]models.Order, 0, total)
	for i := 0; i < total; i++ {
		batch = append(batch, models.Order{
			ID:     uuid.New(),
			UserID: buyer.ID,
			Total:  decimal.RequireFromString("60.00"),
		})
	}
	if err := env.client.DB().CreateInBatches(&batch, 100).Error; err != nil {
		t.Fatalf("seed orders: %v", err)
	}

	data, _, err := env.svc.ExportSales(ctx, "json")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	var dtos []orders.OrderDTO
	if err := json.Unmarshal(data, &dtos); err != nil {
		t.Fatalf("unmarshal export: %v", err)
	}
	if len(dtos) != total {
		t.Fatalf("expected %d orders exported, got %d", total, len(dtos))
	}
}

func TestExportSalesRejectsUnknownFormat(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.svc.ExportSales(context.Background(), "xml")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if typed.Message() != "format must be json or csv" {
		t.Fatalf("unexpected message %q", typed.Message())
	}
}
