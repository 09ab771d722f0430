package service

import (
	"log/slog"

	lsclient "github.com/kirinyoku/tour-go/internal/lemonsqueezy"
	redisx "github.com/kirinyoku/tour-go/internal/redis"
	postgres "github.com/kirinyoku/tour-go/internal/repository/postgres"
	redis "github.com/kirinyoku/tour-go/internal/repository/redis"
	"github.com/kirinyoku/tour-go/internal/service/booking"
	"github.com/kirinyoku/tour-go/internal/service/lemonsqueezy"
	"github.com/kirinyoku/tour-go/internal/service/payment"
	"github.com/kirinyoku/tour-go/internal/service/tours"
	stripeclient "github.com/kirinyoku/tour-go/internal/stripe"
)

type Services struct {
	Booking      *booking.Service
	Tours        *tours.Service
	Payment      *payment.Service
	LemonSqueezy *lemonsqueezy.Service
}

type Config struct {
	Payment      payment.Config
	LemonSqueezy lemonsqueezy.Config
}

func NewServices(
	store *postgres.Store,
	cache *redis.Cache,
	pubsub *redisx.ToursPubSub,
	limiter *redis.SlidingWindowLimiter,
	stripeAPI *stripeclient.Client,
	lsAPI *lsclient.Client,
	log *slog.Logger,
	cfg Config,
) *Services {
	bookings := booking.New(store, cache, pubsub, limiter)
	tourSvc := tours.New(store, cache, pubsub)

	return &Services{
		Booking: bookings,
		Tours:   tourSvc,
		Payment: payment.New(
			stripeAPI,
			bookings,
			store.Tours(),
			store.Webhooks(),
			cfg.Payment,
		),
		LemonSqueezy: lemonsqueezy.New(
			lsAPI,
			bookings,
			store.Tours(),
			store.Webhooks(),
			store.Subscriptions(),
			log,
			cfg.LemonSqueezy,
		),
	}
}
