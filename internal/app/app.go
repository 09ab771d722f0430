package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kirinyoku/tour-go/internal/config"
	lsclient "github.com/kirinyoku/tour-go/internal/lemonsqueezy"
	"github.com/kirinyoku/tour-go/internal/metrics"
	"github.com/kirinyoku/tour-go/internal/postgres"
	redisx "github.com/kirinyoku/tour-go/internal/redis"
	postgresrepo "github.com/kirinyoku/tour-go/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/tour-go/internal/repository/redis"
	"github.com/kirinyoku/tour-go/internal/service"
	"github.com/kirinyoku/tour-go/internal/service/lemonsqueezy"
	"github.com/kirinyoku/tour-go/internal/service/payment"
	stripeclient "github.com/kirinyoku/tour-go/internal/stripe"
	httpgin "github.com/kirinyoku/tour-go/internal/transport/http/gin"
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server
	pubsub     *redisx.ToursPubSub
	cache      *redisrepo.Cache
}

func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	// Initialize dependencies
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.Name,
		cfg.Postgres.SSLMode,
	)

	pgxPool, err := postgres.New(context.Background(), postgres.Config{DSN: dsn})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}

	rdb, err := redisx.New(context.Background(), redisx.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	metrics.Register()

	// Initialize repositories
	store := postgresrepo.NewStore(pgxPool)
	cache := redisrepo.New(rdb)
	pubsub := redisx.NewToursPubSub(rdb)
	limiter := redisrepo.NewSlidingWindowLimiter(rdb, "rl", 10, 1*time.Minute)
	idempotencyStore := redisrepo.NewIdempotencyStore(rdb, 2*time.Hour)

	// Initialize provider clients
	stripeAPI := stripeclient.New(stripeclient.Config{SecretKey: cfg.Stripe.SecretKey})
	lsAPI := lsclient.New(lsclient.Config{
		APIKey:  cfg.LemonSqueezy.APIKey,
		StoreID: cfg.LemonSqueezy.StoreID,
	})

	// Initialize services
	services := service.NewServices(store, cache, pubsub, limiter, stripeAPI, lsAPI, logger, service.Config{
		Payment: payment.Config{
			WebhookSecret: cfg.Stripe.WebhookSecret,
			Currency:      cfg.Stripe.Currency,
			SuccessURL:    cfg.Server.FrontendURL + "/payment/success",
			CancelURL:     cfg.Server.FrontendURL + "/payment/cancel",
		},
		LemonSqueezy: lemonsqueezy.Config{
			SuccessURL: cfg.Server.FrontendURL + "/payment/success",
		},
	})

	// Initialize Gin router
	router := httpgin.NewRouter(services, idempotencyStore, logger, httpgin.RouterConfig{
		JWTSecret: cfg.Auth.JWTSecret,
	})

	return &App{
		cfg:    cfg,
		logger: logger,
		httpServer: &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler: router,
		},
		pubsub: pubsub,
		cache:  cache,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server
	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	// Drop cached tour reads when another instance reports a change
	g.Go(func() error {
		err := a.pubsub.Subscribe(gCtx, func(ctx context.Context, tourID int64) {
			if err := a.cache.InvalidateTour(ctx, tourID); err != nil {
				a.logger.Warn("tour cache invalidation failed", "tour_id", tourID, "error", err)
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("tours pubsub subscriber: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	})

	return g.Wait()
}
