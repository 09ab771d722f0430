package tours

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kirinyoku/tour-go/internal/domain"
	redisx "github.com/kirinyoku/tour-go/internal/redis"
	"github.com/kirinyoku/tour-go/internal/repository"
	postgresrepo "github.com/kirinyoku/tour-go/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/tour-go/internal/repository/redis"
)

const (
	summaryTTL      = 5 * time.Minute
	availabilityTTL = 15 * time.Second
	listTTL         = time.Minute
)

// Service serves the tour catalog. Reads go through the cache; writes come
// only from admins, and seat counters are owned by the booking ledger.
type Service struct {
	store  *postgresrepo.Store
	cache  *redisrepo.Cache
	pubsub *redisx.ToursPubSub
}

func New(store *postgresrepo.Store, cache *redisrepo.Cache, pubsub *redisx.ToursPubSub) *Service {
	return &Service{
		store:  store,
		cache:  cache,
		pubsub: pubsub,
	}
}

// Availability is the hot read: the remaining seat count for one tour.
type Availability struct {
	TourID         int64 `json:"tour_id"`
	AvailableSeats int   `json:"available_seats"`
}

// Get returns a tour, cache-first.
//
// Returns:
//   - error: tours.ErrTourNotFound if absent.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Tour, error) {
	const op = "service.tours.Get"

	t, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisx.KeyTourSummary(id),
		summaryTTL,
		func(ctx context.Context) (*domain.Tour, error) {
			return s.store.Tours().Get(ctx, id)
		},
	)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrTourNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return t, nil
}

// GetAvailability returns the remaining seats with a short TTL: stale by at
// most availabilityTTL, and invalidated on every booking write anyway.
func (s *Service) GetAvailability(ctx context.Context, id int64) (*Availability, error) {
	const op = "service.tours.GetAvailability"

	a, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisx.KeyTourAvailability(id),
		availabilityTTL,
		func(ctx context.Context) (*Availability, error) {
			t, err := s.store.Tours().Get(ctx, id)
			if err != nil {
				return nil, err
			}
			return &Availability{TourID: t.ID, AvailableSeats: t.AvailableSeats}, nil
		},
	)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrTourNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return a, nil
}

// List returns active tours. Only the first page is cached; deeper pages are
// rare and read through.
func (s *Service) List(ctx context.Context, limit, offset int) ([]domain.Tour, error) {
	const op = "service.tours.List"

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	if offset == 0 && limit == 20 {
		out, err := redisrepo.GetOrSetJSON(
			ctx,
			s.cache,
			redisx.KeyTourList(),
			listTTL,
			func(ctx context.Context) ([]domain.Tour, error) {
				return s.store.Tours().List(ctx, limit, offset)
			},
		)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		return out, nil
	}

	out, err := s.store.Tours().List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// CreateParams carries the admin-supplied tour fields. Both Lemon Squeezy ids
// are mandatory so the subscription-side checkout can always be built; the
// Stripe price id is optional because payment intents are created from the
// stored amount.
type CreateParams struct {
	Title          string
	Description    string
	Location       string
	PriceCents     int64
	AvailableSeats int
	StripePriceID  string
	LsProductID    string
	LsVariantID    string
}

// Create inserts a new active tour.
func (s *Service) Create(ctx context.Context, p CreateParams) (*domain.Tour, error) {
	const op = "service.tours.Create"

	if p.PriceCents <= 0 {
		return nil, fmt.Errorf("%s:%w", op, ErrInvalidPriceCents)
	}
	if p.AvailableSeats < 0 {
		return nil, fmt.Errorf("%s:%w", op, ErrInvalidSeatCount)
	}
	if p.LsProductID == "" || p.LsVariantID == "" {
		return nil, fmt.Errorf("%s:%w", op, ErrMissingLsIDs)
	}

	t := &domain.Tour{
		Title:          p.Title,
		Description:    p.Description,
		Location:       p.Location,
		PriceCents:     p.PriceCents,
		AvailableSeats: p.AvailableSeats,
		IsActive:       true,
		StripePriceID:  p.StripePriceID,
		LsProductID:    p.LsProductID,
		LsVariantID:    p.LsVariantID,
	}

	id, err := s.store.Tours().Create(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	t.ID = id

	_ = s.cache.Del(ctx, redisx.KeyTourList())
	_ = s.pubsub.PublishTourChanged(ctx, id)

	return t, nil
}

// InvalidateTour drops a tour's cached entries. Wired to the pub/sub
// subscriber so every instance clears its shared keys on change.
func (s *Service) InvalidateTour(ctx context.Context, tourID int64) {
	_ = s.cache.InvalidateTour(ctx, tourID)
}
