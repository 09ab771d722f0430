package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/tour-go/internal/domain"
	"github.com/kirinyoku/tour-go/internal/repository"
)

type BookingRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *BookingRepo) With(db DB) *BookingRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *BookingRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const bookingColumns = `id, user_id, tour_id, number_of_people, total_cents,
	status, is_paid, payment_id, contact_email, special_requests,
	created_at, updated_at`

func scanBooking(row interface{ Scan(...any) error }, b *domain.Booking) error {
	return row.Scan(
		&b.ID, &b.UserID, &b.TourID, &b.NumberOfPeople, &b.TotalCents,
		&b.Status, &b.IsPaid, &b.PaymentID, &b.ContactEmail,
		&b.SpecialRequests, &b.CreatedAt, &b.UpdatedAt,
	)
}

// Create inserts a booking row and returns its ID.
func (r *BookingRepo) Create(ctx context.Context, b *domain.Booking) (int64, error) {
	const op = "postgres.BookingRepo.Create"

	db := r.handle()

	var id int64
	err := db.QueryRow(ctx,
		`INSERT INTO bookings (user_id, tour_id, number_of_people,
			total_cents, status, is_paid, payment_id, contact_email,
			special_requests)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		b.UserID, b.TourID, b.NumberOfPeople, b.TotalCents, b.Status,
		b.IsPaid, b.PaymentID, b.ContactEmail, b.SpecialRequests,
	).Scan(&id)
	if err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}

// Get retrieves a booking by its ID.
//
// Returns:
//   - error: repository.ErrNotFound if the booking is absent.
func (r *BookingRepo) Get(ctx context.Context, id int64) (*domain.Booking, error) {
	const op = "postgres.BookingRepo.Get"

	db := r.handle()

	var b domain.Booking
	row := db.QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`,
		id,
	)
	if err := scanBooking(row, &b); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &b, nil
}

// GetForUpdate retrieves a booking with a row lock so lifecycle decisions
// (seat release, deletion checks) stay consistent within the transaction.
func (r *BookingRepo) GetForUpdate(ctx context.Context, id int64) (*domain.Booking, error) {
	const op = "postgres.BookingRepo.GetForUpdate"

	db := r.handle()

	var b domain.Booking
	row := db.QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`,
		id,
	)
	if err := scanBooking(row, &b); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &b, nil
}

func (r *BookingRepo) list(ctx context.Context, op, where string, args ...any) ([]domain.Booking, error) {
	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT `+bookingColumns+` FROM bookings `+where+` ORDER BY created_at DESC`,
		args...,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.Booking
	for rows.Next() {
		var b domain.Booking
		if err := scanBooking(rows, &b); err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *BookingRepo) List(ctx context.Context) ([]domain.Booking, error) {
	return r.list(ctx, "postgres.BookingRepo.List", "")
}

func (r *BookingRepo) ListByUser(ctx context.Context, userID int64) ([]domain.Booking, error) {
	return r.list(ctx, "postgres.BookingRepo.ListByUser", "WHERE user_id = $1", userID)
}

func (r *BookingRepo) ListByTour(ctx context.Context, tourID int64) ([]domain.Booking, error) {
	return r.list(ctx, "postgres.BookingRepo.ListByTour", "WHERE tour_id = $1", tourID)
}

// Update persists the mutable booking fields.
func (r *BookingRepo) Update(ctx context.Context, b *domain.Booking) error {
	const op = "postgres.BookingRepo.Update"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE bookings
		 SET number_of_people = $2, total_cents = $3, status = $4,
		     contact_email = $5, special_requests = $6, updated_at = now()
		 WHERE id = $1`,
		b.ID, b.NumberOfPeople, b.TotalCents, b.Status, b.ContactEmail,
		b.SpecialRequests,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

// SetStatus updates only the lifecycle status.
func (r *BookingRepo) SetStatus(ctx context.Context, id int64, status domain.BookingStatus) error {
	const op = "postgres.BookingRepo.SetStatus"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE bookings SET status = $2, updated_at = now() WHERE id = $1`,
		id, status,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

// SetPaid marks the booking as paid and confirmed with the external payment
// reference. The statement is unconditional on prior status, which makes
// payment confirmation idempotent: replays rewrite the same values.
func (r *BookingRepo) SetPaid(ctx context.Context, id int64, paymentID string) (*domain.Booking, error) {
	const op = "postgres.BookingRepo.SetPaid"

	db := r.handle()

	var b domain.Booking
	row := db.QueryRow(ctx,
		`UPDATE bookings
		 SET payment_id = $2, is_paid = true, status = $3, updated_at = now()
		 WHERE id = $1
		 RETURNING `+bookingColumns,
		id, paymentID, domain.BookingConfirmed,
	)
	if err := scanBooking(row, &b); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &b, nil
}

// Delete removes a booking row.
func (r *BookingRepo) Delete(ctx context.Context, id int64) error {
	const op = "postgres.BookingRepo.Delete"

	db := r.handle()

	tag, err := db.Exec(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}
