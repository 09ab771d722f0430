package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/tour-go/internal/domain"
	"github.com/kirinyoku/tour-go/internal/repository"
)

type TourRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *TourRepo) With(db DB) *TourRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *TourRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const tourColumns = `id, title, description, location, price_cents,
	available_seats, is_active, stripe_price_id, ls_product_id,
	ls_variant_id, created_at, updated_at`

func scanTour(row interface{ Scan(...any) error }, t *domain.Tour) error {
	return row.Scan(
		&t.ID, &t.Title, &t.Description, &t.Location, &t.PriceCents,
		&t.AvailableSeats, &t.IsActive, &t.StripePriceID, &t.LsProductID,
		&t.LsVariantID, &t.CreatedAt, &t.UpdatedAt,
	)
}

// Get retrieves a tour by its ID.
//
// Returns:
//   - *domain.Tour: the tour when found.
//   - error: repository.ErrNotFound if the tour is absent.
func (r *TourRepo) Get(ctx context.Context, id int64) (*domain.Tour, error) {
	const op = "postgres.TourRepo.Get"

	db := r.handle()

	var t domain.Tour
	row := db.QueryRow(ctx,
		`SELECT `+tourColumns+` FROM tours WHERE id = $1`,
		id,
	)
	if err := scanTour(row, &t); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &t, nil
}

// List returns active tours ordered by creation time.
func (r *TourRepo) List(ctx context.Context, limit, offset int) ([]domain.Tour, error) {
	const op = "postgres.TourRepo.List"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT `+tourColumns+`
		 FROM tours
		 WHERE is_active
		 ORDER BY created_at DESC
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.Tour
	for rows.Next() {
		var t domain.Tour
		if err := scanTour(rows, &t); err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// Create inserts a tour and returns its ID.
func (r *TourRepo) Create(ctx context.Context, t *domain.Tour) (int64, error) {
	const op = "postgres.TourRepo.Create"

	db := r.handle()

	var id int64
	err := db.QueryRow(ctx,
		`INSERT INTO tours (title, description, location, price_cents,
			available_seats, is_active, stripe_price_id, ls_product_id,
			ls_variant_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		t.Title, t.Description, t.Location, t.PriceCents,
		t.AvailableSeats, t.IsActive, t.StripePriceID, t.LsProductID,
		t.LsVariantID,
	).Scan(&id)
	if err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}

// DecreaseAvailableSeats atomically subtracts count from the tour's seat
// counter. The conditional UPDATE is the only guard against overselling:
// concurrent callers racing for the last seats serialize on the row, and the
// loser sees zero affected rows.
//
// Returns:
//   - error: repository.ErrNotEnoughSeats if the counter is below count.
//   - error: repository.ErrNotFound if the tour is absent.
func (r *TourRepo) DecreaseAvailableSeats(ctx context.Context, id int64, count int) error {
	const op = "postgres.TourRepo.DecreaseAvailableSeats"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE tours
		 SET available_seats = available_seats - $2, updated_at = now()
		 WHERE id = $1 AND available_seats >= $2`,
		id, count,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		var exists bool
		if err := db.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM tours WHERE id = $1)`, id,
		).Scan(&exists); err != nil {
			return wrapDBErr(op, err)
		}
		if !exists {
			return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
		}
		return fmt.Errorf("%s:%w", op, repository.ErrNotEnoughSeats)
	}

	return nil
}

// IncreaseAvailableSeats adds count back to the tour's seat counter. No upper
// bound is enforced: callers release only what they reserved.
func (r *TourRepo) IncreaseAvailableSeats(ctx context.Context, id int64, count int) error {
	const op = "postgres.TourRepo.IncreaseAvailableSeats"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE tours
		 SET available_seats = available_seats + $2, updated_at = now()
		 WHERE id = $1`,
		id, count,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}
