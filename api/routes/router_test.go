package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	adminsvc "github.com/oldphonedeals/backend/internal/admin"
	authsvc "github.com/oldphonedeals/backend/internal/auth"
	cartsvc "github.com/oldphonedeals/backend/internal/cart"
	checkoutsvc "github.com/oldphonedeals/backend/internal/checkout"
	listingssvc "github.com/oldphonedeals/backend/internal/listings"
	orderssvc "github.com/oldphonedeals/backend/internal/orders"
	reviewssvc "github.com/oldphonedeals/backend/internal/reviews"
	userssvc "github.com/oldphonedeals/backend/internal/users"
	wishlistsvc "github.com/oldphonedeals/backend/internal/wishlist"
	pkgAuth "github.com/oldphonedeals/backend/pkg/auth"
	"github.com/oldphonedeals/backend/pkg/auth/session"
	"github.com/oldphonedeals/backend/pkg/config"
	"github.com/oldphonedeals/backend/pkg/enums"
	pkgerrors "github.com/oldphonedeals/backend/pkg/errors"
	"github.com/oldphonedeals/backend/pkg/logger"
	"github.com/oldphonedeals/backend/pkg/redis"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubSessionChecker struct{}

func (stubSessionChecker) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

type stubListingsService struct{}

func (stubListingsService) SoldOutSoon(ctx context.Context) ([]listingssvc.ListingDTO, error) {
	return []listingssvc.ListingDTO{{ID: uuid.New(), Title: "Galaxy S10"}}, nil
}

func (stubListingsService) BestSellers(ctx context.Context) ([]listingssvc.BestSellerDTO, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no best sellers available")
}

func (stubListingsService) Search(ctx context.Context, query string) ([]listingssvc.ListingDTO, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no phones match the search")
}

func (stubListingsService) Brands(ctx context.Context) []enums.PhoneBrand {
	return enums.PhoneBrands()
}

func (stubListingsService) Get(ctx context.Context, id, viewerID uuid.UUID) (listingssvc.ListingDTO, error) {
	return listingssvc.ListingDTO{ID: id}, nil
}

func (stubListingsService) ListMine(ctx context.Context, sellerID uuid.UUID) ([]listingssvc.ListingDTO, error) {
	return nil, nil
}

func (stubListingsService) Create(ctx context.Context, sellerID uuid.UUID, input listingssvc.CreateListingInput) (listingssvc.ListingDTO, error) {
	return listingssvc.ListingDTO{}, nil
}

func (stubListingsService) Update(ctx context.Context, sellerID, listingID uuid.UUID, input listingssvc.UpdateListingInput) (listingssvc.ListingDTO, error) {
	return listingssvc.ListingDTO{}, nil
}

func (stubListingsService) SetDisabled(ctx context.Context, sellerID, listingID uuid.UUID, disabled bool) error {
	return nil
}

func (stubListingsService) Delete(ctx context.Context, sellerID, listingID uuid.UUID) error {
	return nil
}

type stubReviewsService struct{}

func (stubReviewsService) Post(ctx context.Context, input reviewssvc.PostInput) (reviewssvc.ReviewDTO, error) {
	return reviewssvc.ReviewDTO{}, nil
}

func (stubReviewsService) ToggleVisibility(ctx context.Context, actorID, listingID, reviewerID uuid.UUID, hidden bool) (reviewssvc.ToggleResult, error) {
	return reviewssvc.ToggleResult{Updated: 1, Hidden: hidden}, nil
}

func (stubReviewsService) AdminToggleVisibility(ctx context.Context, adminID, listingID, reviewerID uuid.UUID, hidden bool) (reviewssvc.ToggleResult, error) {
	return reviewssvc.ToggleResult{Updated: 1, Hidden: hidden}, nil
}

func (stubReviewsService) ListMine(ctx context.Context, reviewerID uuid.UUID) ([]reviewssvc.AuthoredReviewDTO, error) {
	return nil, nil
}

type stubCartService struct{}

func (stubCartService) Get(ctx context.Context, userID uuid.UUID) (cartsvc.CartDTO, error) {
	return cartsvc.CartDTO{ID: uuid.New()}, nil
}

func (stubCartService) SetItem(ctx context.Context, userID, listingID uuid.UUID, quantity int) (cartsvc.CartDTO, error) {
	return cartsvc.CartDTO{}, nil
}

func (stubCartService) RemoveItem(ctx context.Context, userID, listingID uuid.UUID) (cartsvc.CartDTO, error) {
	return cartsvc.CartDTO{}, nil
}

type stubCheckoutService struct{}

func (stubCheckoutService) Execute(ctx context.Context, userID uuid.UUID, lines []checkoutsvc.Line) (orderssvc.OrderDTO, error) {
	return orderssvc.OrderDTO{ID: uuid.New()}, nil
}

type stubOrdersService struct{}

func (stubOrdersService) ListMine(ctx context.Context, userID uuid.UUID) ([]orderssvc.OrderDTO, error) {
	return nil, nil
}

func (stubOrdersService) GetMine(ctx context.Context, userID, orderID uuid.UUID) (orderssvc.OrderDTO, error) {
	return orderssvc.OrderDTO{}, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

type stubWishlistService struct{}

func (stubWishlistService) List(ctx context.Context, userID uuid.UUID) ([]wishlistsvc.ItemDTO, error) {
	return nil, nil
}

func (stubWishlistService) Add(ctx context.Context, userID, listingID uuid.UUID) error {
	return nil
}

func (stubWishlistService) Remove(ctx context.Context, userID, listingID uuid.UUID) error {
	return nil
}

type stubUsersService struct{}

func (stubUsersService) Register(ctx context.Context, input userssvc.RegisterInput) (userssvc.UserDTO, error) {
	return userssvc.UserDTO{}, nil
}

func (stubUsersService) ConfirmEmail(ctx context.Context, rawToken string) (userssvc.UserDTO, error) {
	return userssvc.UserDTO{}, nil
}

func (stubUsersService) RequestPasswordReset(ctx context.Context, email string) error {
	return nil
}

func (stubUsersService) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	return nil
}

func (stubUsersService) Profile(ctx context.Context, userID uuid.UUID) (userssvc.UserDTO, error) {
	return userssvc.UserDTO{ID: userID}, nil
}

func (stubUsersService) UpdateProfile(ctx context.Context, userID uuid.UUID, input userssvc.UpdateProfileInput) (userssvc.UserDTO, error) {
	return userssvc.UserDTO{}, nil
}

func (stubUsersService) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	return nil
}

func (stubUsersService) UsernameByID(ctx context.Context, userID uuid.UUID) (string, error) {
	return "Test User", nil
}

type stubAuthService struct{}

func (stubAuthService) Login(ctx context.Context, req authsvc.LoginRequest) (*authsvc.LoginResponse, error) {
	return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid email or password")
}

func (stubAuthService) AdminLogin(ctx context.Context, req authsvc.LoginRequest) (*authsvc.AdminLoginResponse, error) {
	return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid email or password")
}

func (stubAuthService) Refresh(ctx context.Context, accessID, refreshToken string, claims *pkgAuth.AccessTokenClaims) (*authsvc.RefreshResponse, error) {
	return &authsvc.RefreshResponse{}, nil
}

func (stubAuthService) Logout(ctx context.Context, accessID string) error {
	return nil
}

type stubAdminService struct{}

func (stubAdminService) SearchUsers(ctx context.Context, query string) ([]userssvc.UserDTO, error) {
	return []userssvc.UserDTO{}, nil
}

func (stubAdminService) UserDetail(ctx context.Context, userID uuid.UUID) (adminsvc.UserDetailDTO, error) {
	return adminsvc.UserDetailDTO{}, nil
}

func (stubAdminService) UpdateUser(ctx context.Context, adminID, userID uuid.UUID, input adminsvc.UpdateUserInput) (userssvc.UserDTO, error) {
	return userssvc.UserDTO{}, nil
}

func (stubAdminService) SetUserDisabled(ctx context.Context, adminID, userID uuid.UUID, disabled bool) error {
	return nil
}

func (stubAdminService) DeleteUser(ctx context.Context, adminID, userID uuid.UUID) error {
	return nil
}

func (stubAdminService) SearchListings(ctx context.Context, query string) ([]listingssvc.ListingDTO, error) {
	return nil, nil
}

func (stubAdminService) UpdateListing(ctx context.Context, adminID, listingID uuid.UUID, input listingssvc.UpdateListingInput) (listingssvc.ListingDTO, error) {
	return listingssvc.ListingDTO{}, nil
}

func (stubAdminService) SetListingDisabled(ctx context.Context, adminID, listingID uuid.UUID, disabled bool) error {
	return nil
}

func (stubAdminService) DeleteListing(ctx context.Context, adminID, listingID uuid.UUID) error {
	return nil
}

func (stubAdminService) SearchReviews(ctx context.Context, query string) ([]reviewssvc.ReviewDTO, error) {
	return nil, nil
}

func (stubAdminService) ToggleReview(ctx context.Context, adminID, listingID, reviewerID uuid.UUID, hidden bool) (reviewssvc.ToggleResult, error) {
	return reviewssvc.ToggleResult{}, nil
}

func (stubAdminService) SalesLog(ctx context.Context, page, limit int) (adminsvc.SalesPage, error) {
	return adminsvc.SalesPage{Page: 1, Limit: 25}, nil
}

func (stubAdminService) ExportSales(ctx context.Context, format string) ([]byte, string, error) {
	return []byte("[]"), "application/json", nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:                 "secret",
			Issuer:                 "issuer",
			ExpirationMinutes:      60,
			RefreshTokenTTLMinutes: 120,
		},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		(*redis.Client)(nil),
		stubSessionChecker{},
		nil,
		nil,
		nil,
		Services{
			Listings: stubListingsService{},
			Reviews:  stubReviewsService{},
			Cart:     stubCartService{},
			Checkout: stubCheckoutService{},
			Orders:   stubOrdersService{},
			Wishlist: stubWishlistService{},
			Users:    stubUsersService{},
			Auth:     stubAuthService{},
			Admin:    stubAdminService{},
		},
	)
}

func buildToken(t *testing.T, cfg *config.Config, role enums.Role) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
		JTI:    session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLiveIsPublic(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for liveness got %d", resp.Code)
	}
}

func TestCatalogRoutesArePublic(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/phones/sold-out-soon", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for public catalog got %d", resp.Code)
	}
}

func TestCartRequiresToken(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestCartAllowsAuthenticatedUser(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleUser))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for cart got %d", resp.Code)
	}
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	asUser := httptest.NewRequest(http.MethodGet, "/api/admin/v1/users", nil)
	asUser.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleUser))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, asUser)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin got %d", resp.Code)
	}

	asAdmin := httptest.NewRequest(http.MethodGet, "/api/admin/v1/users", nil)
	asAdmin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleAdmin))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, asAdmin)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d", resp.Code)
	}
}

func TestPlaceOrderRequiresIdempotencyKey(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	token := buildToken(t, cfg, enums.RoleUser)

	for _, target := range []string{"/api/v1/orders", "/api/v1/cart/item"} {
		req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(`{}`))
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400 without Idempotency-Key got %d", target, resp.Code)
		}
	}
}

func TestMyOrdersRequiresToken(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}
