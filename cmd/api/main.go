package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/oldphonedeals/backend/api/routes"
	"github.com/oldphonedeals/backend/internal/admin"
	"github.com/oldphonedeals/backend/internal/auth"
	"github.com/oldphonedeals/backend/internal/cart"
	"github.com/oldphonedeals/backend/internal/checkout"
	"github.com/oldphonedeals/backend/internal/listings"
	"github.com/oldphonedeals/backend/internal/media"
	"github.com/oldphonedeals/backend/internal/orders"
	"github.com/oldphonedeals/backend/internal/reviews"
	"github.com/oldphonedeals/backend/internal/users"
	"github.com/oldphonedeals/backend/internal/wishlist"
	"github.com/oldphonedeals/backend/pkg/auth/session"
	"github.com/oldphonedeals/backend/pkg/config"
	"github.com/oldphonedeals/backend/pkg/db"
	"github.com/oldphonedeals/backend/pkg/logger"
	"github.com/oldphonedeals/backend/pkg/metrics"
	"github.com/oldphonedeals/backend/pkg/migrate"
	"github.com/oldphonedeals/backend/pkg/outbox"
	"github.com/oldphonedeals/backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	mediaStore, err := media.NewStore(cfg.Media.ImageDir)
	if err != nil {
		logg.Error(context.Background(), "failed to prepare image directory", err)
		os.Exit(1)
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := metrics.NewHTTPMetrics(promRegistry)

	outboxSvc := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	listingsRepo := listings.NewRepository(dbClient.DB())
	reviewsRepo := reviews.NewRepository(dbClient.DB())
	cartRepo := cart.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())
	wishlistRepo := wishlist.NewRepository(dbClient.DB())
	usersRepo := users.NewRepository(dbClient.DB())
	tokensRepo := users.NewTokenRepository(dbClient.DB())
	adminsRepo := admin.NewRepository(dbClient.DB())

	listingsService, err := listings.NewService(listings.ServiceParams{
		DB:     dbClient,
		Repo:   listingsRepo,
		Images: mediaStore,
		Outbox: outboxSvc,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create listings service", err)
		os.Exit(1)
	}

	reviewsService, err := reviews.NewService(reviews.ServiceParams{
		DB:       dbClient,
		Repo:     reviewsRepo,
		Listings: listingsRepo,
		Outbox:   outboxSvc,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reviews service", err)
		os.Exit(1)
	}

	cartService, err := cart.NewService(cart.ServiceParams{
		DB:       dbClient,
		Repo:     cartRepo,
		Listings: listingsRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		TX:           dbClient,
		ListingsRepo: listingsRepo,
		OrdersRepo:   ordersRepo,
		CartRepo:     cartRepo,
		Outbox:       outboxSvc,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(ordersRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	wishlistService, err := wishlist.NewService(wishlist.ServiceParams{
		Repo:     wishlistRepo,
		Listings: listingsRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create wishlist service", err)
		os.Exit(1)
	}

	usersService, err := users.NewService(users.ServiceParams{
		DB:          dbClient,
		Repo:        usersRepo,
		Tokens:      tokensRepo,
		Outbox:      outboxSvc,
		PasswordCfg: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create users service", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       usersRepo,
		TokenRepo:      tokensRepo,
		AdminRepo:      adminsRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	adminService, err := admin.NewService(admin.ServiceParams{
		DB:           dbClient,
		UsersRepo:    usersRepo,
		ListingsRepo: listingsRepo,
		ReviewsRepo:  reviewsRepo,
		ReviewsSvc:   reviewsService,
		OrdersRepo:   ordersRepo,
		Images:       mediaStore,
		Outbox:       outboxSvc,
		Logger:       logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create admin service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			sessionManager,
			promRegistry,
			httpMetrics,
			mediaStore,
			routes.Services{
				Listings: listingsService,
				Reviews:  reviewsService,
				Cart:     cartService,
				Checkout: checkoutService,
				Orders:   ordersService,
				Wishlist: wishlistService,
				Users:    usersService,
				Auth:     authService,
				Admin:    adminService,
			},
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
