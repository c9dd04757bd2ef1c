package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lucasrioja/storefront-backend/api/routes"
	"github.com/lucasrioja/storefront-backend/internal/cart"
	"github.com/lucasrioja/storefront-backend/internal/catalog"
	"github.com/lucasrioja/storefront-backend/internal/reservation"
	"github.com/lucasrioja/storefront-backend/pkg/config"
	"github.com/lucasrioja/storefront-backend/pkg/db"
	"github.com/lucasrioja/storefront-backend/pkg/logger"
	"github.com/lucasrioja/storefront-backend/pkg/metrics"
	"github.com/lucasrioja/storefront-backend/pkg/migrate"
	"github.com/lucasrioja/storefront-backend/pkg/redis"
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

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	cartMetrics := metrics.NewCartMetrics(prometheus.DefaultRegisterer)
	catalogReader := catalog.NewReader(dbClient.DB())

	userStore, err := cart.NewUserStore(dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create user cart store", err)
		os.Exit(1)
	}
	guestStore, err := cart.NewGuestStore(redisClient, cfg.Cart.GuestTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create guest cart store", err)
		os.Exit(1)
	}

	cartService, err := cart.NewService(cart.ServiceParams{
		UserStore:  userStore,
		GuestStore: guestStore,
		Catalog:    catalogReader,
		Limits:     cfg.Cart,
		Logger:     logg,
		Metrics:    cartMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	cartMerger, err := cart.NewMerger(cart.MergerParams{
		Service:    cartService,
		UserStore:  userStore,
		GuestStore: guestStore,
		Limits:     cfg.Cart,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cart merger", err)
		os.Exit(1)
	}

	reservationService, err := reservation.NewService(reservation.ServiceParams{
		Redis:   redisClient,
		DB:      dbClient,
		Catalog: catalogReader,
		Config:  cfg.Reservation,
		Logger:  logg,
		Metrics: cartMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reservation service", err)
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
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, cartService, cartMerger, reservationService),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
