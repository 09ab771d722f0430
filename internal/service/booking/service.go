package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/kirinyoku/tour-go/internal/domain"
	"github.com/kirinyoku/tour-go/internal/metrics"
	redisx "github.com/kirinyoku/tour-go/internal/redis"
	"github.com/kirinyoku/tour-go/internal/repository"
	postgresrepo "github.com/kirinyoku/tour-go/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/tour-go/internal/repository/redis"
	"github.com/kirinyoku/tour-go/internal/uow"
)

// TourStore is the slice of the tour repository the ledger drives: one read
// plus the two seat-counter mutations. Seat columns are never touched through
// any other path.
type TourStore interface {
	Get(ctx context.Context, id int64) (*domain.Tour, error)
	DecreaseAvailableSeats(ctx context.Context, id int64, count int) error
	IncreaseAvailableSeats(ctx context.Context, id int64, count int) error
}

// BookingStore persists booking rows.
type BookingStore interface {
	Create(ctx context.Context, b *domain.Booking) (int64, error)
	Get(ctx context.Context, id int64) (*domain.Booking, error)
	GetForUpdate(ctx context.Context, id int64) (*domain.Booking, error)
	Update(ctx context.Context, b *domain.Booking) error
	SetStatus(ctx context.Context, id int64, status domain.BookingStatus) error
	SetPaid(ctx context.Context, id int64, paymentID string) (*domain.Booking, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]domain.Booking, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Booking, error)
	ListByTour(ctx context.Context, tourID int64) ([]domain.Booking, error)
}

// TxRunner hands fn transactional views of both stores. Hooks registered
// through after fire only once the transaction commits.
type TxRunner interface {
	Do(
		ctx context.Context,
		fn func(ctx context.Context, tours TourStore, bookings BookingStore, after func(uow.AfterCommit)) error,
	) error
}

// storeTxRunner is the production TxRunner: one serializable pgx transaction
// shared by both repos.
type storeTxRunner struct {
	store *postgresrepo.Store
	uow   *uow.UoW
}

func (r *storeTxRunner) Do(
	ctx context.Context,
	fn func(ctx context.Context, tours TourStore, bookings BookingStore, after func(uow.AfterCommit)) error,
) error {
	return r.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		return fn(ctx, r.store.Tours().With(tx), r.store.Bookings().With(tx), after)
	})
}

// Service is the booking ledger. It owns the booking lifecycle and is the
// only caller of the tour seat counters: every reserve and release runs
// through here, inside one serializable transaction with the booking row
// change it belongs to.
type Service struct {
	bookings BookingStore
	tx       TxRunner
	cache    *redisrepo.Cache
	pubsub   *redisx.ToursPubSub
	limiter  *redisrepo.SlidingWindowLimiter
}

func New(
	store *postgresrepo.Store,
	cache *redisrepo.Cache,
	pubsub *redisx.ToursPubSub,
	limiter *redisrepo.SlidingWindowLimiter,
) *Service {
	return &Service{
		bookings: store.Bookings(),
		tx:       &storeTxRunner{store: store, uow: uow.NewUoW(store)},
		cache:    cache,
		pubsub:   pubsub,
		limiter:  limiter,
	}
}

// validateTransition guards the status moves a direct update may make.
// pending -> cancelled|completed is rejected for completed (only confirmed
// bookings complete); terminal statuses never move.
func validateTransition(from, to domain.BookingStatus) error {
	if from.Terminal() {
		if from == domain.BookingCompleted {
			return ErrAlreadyCompleted
		}
		return fmt.Errorf("booking is already %s", from)
	}

	switch to {
	case domain.BookingCancelled:
		return nil
	case domain.BookingCompleted:
		if from != domain.BookingConfirmed {
			return ErrNotConfirmed
		}
		return nil
	case domain.BookingConfirmed, domain.BookingPending:
		return fmt.Errorf("cannot set status to %s directly", to)
	default:
		return fmt.Errorf("unknown booking status %q", to)
	}
}

// CreateParams carries the caller-supplied booking fields.
type CreateParams struct {
	TourID          int64
	NumberOfPeople  int
	ContactEmail    string
	SpecialRequests string
}

// Create reserves seats and persists a pending, unpaid booking.
//
// The booking insert and the conditional seat decrement run in the same
// transaction, so a failed decrement (not enough seats) rolls the insert
// back and a concurrent request cannot oversell the tour.
//
// Returns:
//   - *domain.Booking: the created booking.
//   - error: booking.ErrTourNotFound if the tour is absent.
//   - error: booking.ErrNotEnoughSeats if fewer seats remain than requested.
func (s *Service) Create(ctx context.Context, userID int64, p CreateParams, rlKey string) (*domain.Booking, error) {
	const op = "service.booking.Create"

	if p.NumberOfPeople < 1 {
		return nil, fmt.Errorf("%s:%w", op, ErrInvalidPeople)
	}

	if s.limiter != nil && rlKey != "" {
		ok, _, retry, err := s.limiter.Allow(ctx, rlKey)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		if !ok {
			return nil, fmt.Errorf("%s: rate limited, retry in %s", op, retry)
		}
	}

	var created *domain.Booking

	err := s.tx.Do(ctx, func(
		ctx context.Context,
		tours TourStore,
		bookings BookingStore,
		after func(uow.AfterCommit),
	) error {
		tour, err := tours.Get(ctx, p.TourID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s:%w", op, ErrTourNotFound)
			}
			return fmt.Errorf("%s:%w", op, err)
		}

		b := &domain.Booking{
			UserID:          userID,
			TourID:          tour.ID,
			NumberOfPeople:  p.NumberOfPeople,
			TotalCents:      tour.PriceCents * int64(p.NumberOfPeople),
			Status:          domain.BookingPending,
			IsPaid:          false,
			ContactEmail:    p.ContactEmail,
			SpecialRequests: p.SpecialRequests,
		}

		id, err := bookings.Create(ctx, b)
		if err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}
		b.ID = id

		if err := tours.DecreaseAvailableSeats(ctx, tour.ID, p.NumberOfPeople); err != nil {
			if errors.Is(err, repository.ErrNotEnoughSeats) {
				return fmt.Errorf("%s:%w", op, ErrNotEnoughSeats)
			}
			return fmt.Errorf("%s:%w", op, err)
		}

		created = b

		after(func(ctx context.Context) {
			_ = s.cache.InvalidateTour(ctx, tour.ID)
			_ = s.pubsub.PublishTourChanged(ctx, tour.ID)
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.BookingsCreated.Inc()

	return created, nil
}

// UpdatePatch holds the optional booking fields a caller may change. Status
// may only move to cancelled or completed here; confirmation happens through
// ConfirmPayment.
type UpdatePatch struct {
	NumberOfPeople  *int
	Status          *domain.BookingStatus
	ContactEmail    *string
	SpecialRequests *string
}

// Update applies the patch. A people-count change re-validates availability
// for the delta and recomputes the total from the tour's current price; a
// transition to cancelled releases the reserved seats exactly once.
func (s *Service) Update(ctx context.Context, id int64, patch UpdatePatch) (*domain.Booking, error) {
	const op = "service.booking.Update"

	var updated *domain.Booking
	var touchedTour int64

	err := s.tx.Do(ctx, func(
		ctx context.Context,
		tours TourStore,
		bookings BookingStore,
		after func(uow.AfterCommit),
	) error {
		b, err := bookings.GetForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s:%w", op, ErrBookingNotFound)
			}
			return fmt.Errorf("%s:%w", op, err)
		}

		if patch.NumberOfPeople != nil && *patch.NumberOfPeople != b.NumberOfPeople {
			// Cancelled bookings already released their seats; adjusting the
			// count here would skew the counter.
			if b.Status.Terminal() {
				return fmt.Errorf("%s:%w", op, ErrBookingFinalized)
			}

			n := *patch.NumberOfPeople
			if n < 1 {
				return fmt.Errorf("%s:%w", op, ErrInvalidPeople)
			}

			tour, err := tours.Get(ctx, b.TourID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return fmt.Errorf("%s:%w", op, ErrTourNotFound)
				}
				return fmt.Errorf("%s:%w", op, err)
			}

			diff := n - b.NumberOfPeople
			if diff > 0 {
				if err := tours.DecreaseAvailableSeats(ctx, b.TourID, diff); err != nil {
					if errors.Is(err, repository.ErrNotEnoughSeats) {
						return fmt.Errorf("%s:%w", op, ErrNotEnoughSeats)
					}
					return fmt.Errorf("%s:%w", op, err)
				}
			} else {
				if err := tours.IncreaseAvailableSeats(ctx, b.TourID, -diff); err != nil {
					return fmt.Errorf("%s:%w", op, err)
				}
			}

			b.NumberOfPeople = n
			b.TotalCents = tour.PriceCents * int64(n)
			touchedTour = b.TourID
		}

		if patch.Status != nil && *patch.Status != b.Status {
			next := *patch.Status
			if err := validateTransition(b.Status, next); err != nil {
				return fmt.Errorf("%s:%w", op, err)
			}

			// Seats are released only on the first transition into
			// cancelled; the guard above already rejected re-cancelling.
			if next == domain.BookingCancelled {
				if err := tours.IncreaseAvailableSeats(ctx, b.TourID, b.NumberOfPeople); err != nil {
					return fmt.Errorf("%s:%w", op, err)
				}
				touchedTour = b.TourID
			}

			b.Status = next
		}

		if patch.ContactEmail != nil {
			b.ContactEmail = *patch.ContactEmail
		}
		if patch.SpecialRequests != nil {
			b.SpecialRequests = *patch.SpecialRequests
		}

		if err := bookings.Update(ctx, b); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		updated = b

		if touchedTour != 0 {
			tourID := touchedTour
			after(func(ctx context.Context) {
				_ = s.cache.InvalidateTour(ctx, tourID)
				_ = s.pubsub.PublishTourChanged(ctx, tourID)
			})
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// Remove deletes a booking.
//
// Returns:
//   - error: booking.ErrPaidBookingDelete if the booking is paid.
//   - error: booking.ErrBookingNotFound if it is absent.
//
// A non-cancelled booking returns its seats to the tour before the row is
// deleted; a cancelled one already released them.
func (s *Service) Remove(ctx context.Context, id int64) error {
	const op = "service.booking.Remove"

	return s.tx.Do(ctx, func(
		ctx context.Context,
		tours TourStore,
		bookings BookingStore,
		after func(uow.AfterCommit),
	) error {
		b, err := bookings.GetForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s:%w", op, ErrBookingNotFound)
			}
			return fmt.Errorf("%s:%w", op, err)
		}

		if b.IsPaid {
			return fmt.Errorf("%s:%w", op, ErrPaidBookingDelete)
		}

		if b.Status != domain.BookingCancelled {
			if err := tours.IncreaseAvailableSeats(ctx, b.TourID, b.NumberOfPeople); err != nil {
				return fmt.Errorf("%s:%w", op, err)
			}

			tourID := b.TourID
			after(func(ctx context.Context) {
				_ = s.cache.InvalidateTour(ctx, tourID)
				_ = s.pubsub.PublishTourChanged(ctx, tourID)
			})
		}

		if err := bookings.Delete(ctx, id); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		return nil
	})
}

// ConfirmPayment records the external payment reference and moves the booking
// to confirmed/paid. It is idempotent and never touches seat counters: the
// seats were reserved when the booking was created.
func (s *Service) ConfirmPayment(ctx context.Context, id int64, paymentID string) (*domain.Booking, error) {
	const op = "service.booking.ConfirmPayment"

	b, err := s.bookings.SetPaid(ctx, id, paymentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrBookingNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return b, nil
}

// Cancel releases the booking's seats (once) and marks it cancelled.
// Cancelling an already-cancelled booking is a no-op on inventory.
func (s *Service) Cancel(ctx context.Context, id int64) (*domain.Booking, error) {
	const op = "service.booking.Cancel"

	var cancelled *domain.Booking

	err := s.tx.Do(ctx, func(
		ctx context.Context,
		tours TourStore,
		bookings BookingStore,
		after func(uow.AfterCommit),
	) error {
		b, err := bookings.GetForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s:%w", op, ErrBookingNotFound)
			}
			return fmt.Errorf("%s:%w", op, err)
		}

		if b.Status == domain.BookingCancelled {
			cancelled = b
			return nil
		}

		if b.Status == domain.BookingCompleted {
			return fmt.Errorf("%s:%w", op, ErrAlreadyCompleted)
		}

		if err := tours.IncreaseAvailableSeats(ctx, b.TourID, b.NumberOfPeople); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		if err := bookings.SetStatus(ctx, id, domain.BookingCancelled); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		b.Status = domain.BookingCancelled
		cancelled = b

		tourID := b.TourID
		after(func(ctx context.Context) {
			_ = s.cache.InvalidateTour(ctx, tourID)
			_ = s.pubsub.PublishTourChanged(ctx, tourID)
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return cancelled, nil
}

// Complete marks a confirmed booking as completed. No seat effect.
func (s *Service) Complete(ctx context.Context, id int64) (*domain.Booking, error) {
	const op = "service.booking.Complete"

	var completed *domain.Booking

	err := s.tx.Do(ctx, func(
		ctx context.Context,
		_ TourStore,
		bookings BookingStore,
		after func(uow.AfterCommit),
	) error {
		b, err := bookings.GetForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s:%w", op, ErrBookingNotFound)
			}
			return fmt.Errorf("%s:%w", op, err)
		}

		if b.Status != domain.BookingConfirmed {
			return fmt.Errorf("%s:%w", op, ErrNotConfirmed)
		}

		if err := bookings.SetStatus(ctx, id, domain.BookingCompleted); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		b.Status = domain.BookingCompleted
		completed = b

		return nil
	})
	if err != nil {
		return nil, err
	}

	return completed, nil
}

// FindOne retrieves a booking by ID.
//
// Returns:
//   - error: booking.ErrBookingNotFound if absent.
func (s *Service) FindOne(ctx context.Context, id int64) (*domain.Booking, error) {
	const op = "service.booking.FindOne"

	b, err := s.bookings.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrBookingNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return b, nil
}

func (s *Service) FindAll(ctx context.Context) ([]domain.Booking, error) {
	const op = "service.booking.FindAll"

	out, err := s.bookings.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

func (s *Service) FindByUser(ctx context.Context, userID int64) ([]domain.Booking, error) {
	const op = "service.booking.FindByUser"

	out, err := s.bookings.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

func (s *Service) FindByTour(ctx context.Context, tourID int64) ([]domain.Booking, error) {
	const op = "service.booking.FindByTour"

	out, err := s.bookings.ListByTour(ctx, tourID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}
