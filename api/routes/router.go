package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oldphonedeals/backend/api/controllers"
	"github.com/oldphonedeals/backend/api/middleware"
	adminsvc "github.com/oldphonedeals/backend/internal/admin"
	authsvc "github.com/oldphonedeals/backend/internal/auth"
	cartsvc "github.com/oldphonedeals/backend/internal/cart"
	checkoutsvc "github.com/oldphonedeals/backend/internal/checkout"
	listingssvc "github.com/oldphonedeals/backend/internal/listings"
	"github.com/oldphonedeals/backend/internal/media"
	orderssvc "github.com/oldphonedeals/backend/internal/orders"
	reviewssvc "github.com/oldphonedeals/backend/internal/reviews"
	userssvc "github.com/oldphonedeals/backend/internal/users"
	wishlistsvc "github.com/oldphonedeals/backend/internal/wishlist"
	"github.com/oldphonedeals/backend/pkg/auth/session"
	"github.com/oldphonedeals/backend/pkg/config"
	"github.com/oldphonedeals/backend/pkg/db"
	"github.com/oldphonedeals/backend/pkg/logger"
	"github.com/oldphonedeals/backend/pkg/metrics"
	"github.com/oldphonedeals/backend/pkg/redis"
)

// Services bundles the wired domain services the router mounts.
type Services struct {
	Listings listingssvc.Service
	Reviews  reviewssvc.Service
	Cart     cartsvc.Service
	Checkout checkoutsvc.Service
	Orders   orderssvc.Service
	Wishlist wishlistsvc.Service
	Users    userssvc.Service
	Auth     authsvc.Service
	Admin    adminsvc.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessionChecker session.AccessSessionChecker,
	promRegistry *prometheus.Registry,
	httpMetrics *metrics.HTTPMetrics,
	mediaStore *media.Store,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(httpMetrics),
		middleware.CORS(cfg.App.PublicURL, cfg.App.FrontendURL),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, dbP, redisClient, logg))
	})

	if promRegistry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))
	}

	if mediaStore != nil {
		fs := http.StripPrefix("/images/", http.FileServer(http.Dir(mediaStore.Dir())))
		r.Get("/images/*", fs.ServeHTTP)
	}

	r.Route("/api/v1/phones", func(r chi.Router) {
		r.Get("/sold-out-soon", controllers.SoldOutSoon(svcs.Listings, logg))
		r.Get("/best-sellers", controllers.BestSellers(svcs.Listings, logg))
		r.Get("/search", controllers.SearchPhones(svcs.Listings, logg))
		r.Get("/brands", controllers.PhoneBrands(svcs.Listings, logg))
		r.Get("/{listingID}", controllers.GetPhone(svcs.Listings, logg))
		r.With(middleware.Auth(cfg.JWT, sessionChecker, logg)).
			Patch("/{listingID}/reviews/visibility", controllers.ToggleReviewVisibility(svcs.Reviews, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(
			middleware.AuthRateLimit(registerPolicy, redisClient, logg),
			middleware.Idempotency(redisClient, logg),
		).Post("/register", controllers.Register(svcs.Users, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.Login(svcs.Auth, logg))
		r.Get("/verify-email", controllers.ConfirmEmail(svcs.Users, logg))
		r.Post("/request-reset", controllers.RequestPasswordReset(svcs.Users, logg))
		r.Post("/reset-password", controllers.ResetPassword(svcs.Users, logg))
		r.Post("/refresh", controllers.Refresh(svcs.Auth, cfg.JWT, logg))
		r.With(middleware.Auth(cfg.JWT, sessionChecker, logg)).Post("/logout", controllers.Logout(svcs.Auth, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionChecker, logg))

		// Idempotency mounts per route: group-level middleware runs before
		// the subtree is matched, so chi only reports "/api/v1/*" there.
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.GetCart(svcs.Cart, logg))
			r.With(middleware.Idempotency(redisClient, logg)).Post("/item", controllers.UpsertCartItem(svcs.Cart, logg))
			r.Delete("/item/{listingID}", controllers.RemoveCartItem(svcs.Cart, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.With(middleware.Idempotency(redisClient, logg)).Post("/", controllers.PlaceOrder(svcs.Checkout, logg))
			r.Get("/", controllers.MyOrders(svcs.Orders, logg))
			r.Get("/{orderID}", controllers.GetOrder(svcs.Orders, logg))
		})

		r.Route("/wishlist", func(r chi.Router) {
			r.Get("/", controllers.GetWishlist(svcs.Wishlist, logg))
			r.Post("/item", controllers.MutateWishlist(svcs.Wishlist, logg))
		})

		r.Route("/reviews", func(r chi.Router) {
			r.Post("/", controllers.PostReview(svcs.Reviews, logg))
			r.Get("/mine", controllers.MyReviews(svcs.Reviews, logg))
		})

		r.Route("/profile", func(r chi.Router) {
			r.Get("/", controllers.GetProfile(svcs.Users, logg))
			r.Put("/", controllers.UpdateProfile(svcs.Users, logg))
			r.Post("/password", controllers.ChangePassword(svcs.Users, logg))
		})
		r.Post("/users/username", controllers.Username(svcs.Users, logg))

		r.Route("/listings", func(r chi.Router) {
			r.Get("/mine", controllers.MyListings(svcs.Listings, logg))
			r.Post("/", controllers.CreateListing(svcs.Listings, logg))
			r.Patch("/{listingID}", controllers.UpdateListing(svcs.Listings, logg))
			r.Patch("/{listingID}/visibility", controllers.ToggleListing(svcs.Listings, logg))
			r.Delete("/{listingID}", controllers.DeleteListing(svcs.Listings, logg))
			r.Post("/images", controllers.UploadListingImage(mediaStore, cfg.Media, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/auth/login", controllers.AdminLogin(svcs.Auth, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, sessionChecker, logg))
			r.Use(middleware.RequireRole("admin", logg))

			r.Post("/auth/logout", controllers.Logout(svcs.Auth, logg))

			r.Route("/users", func(r chi.Router) {
				r.Get("/", controllers.AdminSearchUsers(svcs.Admin, logg))
				r.Get("/{userID}", controllers.AdminUserDetail(svcs.Admin, logg))
				r.Patch("/{userID}", controllers.AdminUpdateUser(svcs.Admin, logg))
				r.Patch("/{userID}/visibility", controllers.AdminToggleUser(svcs.Admin, logg))
				r.Delete("/{userID}", controllers.AdminDeleteUser(svcs.Admin, logg))
			})

			r.Route("/listings", func(r chi.Router) {
				r.Get("/", controllers.AdminSearchListings(svcs.Admin, logg))
				r.Patch("/{listingID}", controllers.AdminUpdateListing(svcs.Admin, logg))
				r.Patch("/{listingID}/visibility", controllers.AdminToggleListing(svcs.Admin, logg))
				r.Delete("/{listingID}", controllers.AdminDeleteListing(svcs.Admin, logg))
				r.Patch("/{listingID}/reviews/visibility", controllers.AdminToggleReview(svcs.Admin, logg))
			})

			r.Route("/reviews", func(r chi.Router) {
				r.Get("/", controllers.AdminSearchReviews(svcs.Admin, logg))
			})

			r.Route("/sales", func(r chi.Router) {
				r.Get("/", controllers.AdminSalesLog(svcs.Admin, logg))
				r.Get("/export", controllers.AdminExportSales(svcs.Admin, logg))
			})
		})
	})

	return r
}
