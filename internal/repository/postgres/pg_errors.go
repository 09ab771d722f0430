package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kirinyoku/tour-go/internal/repository"
)

// IsRetryable reports whether the error is a serialization failure or
// deadlock, i.e. the transaction may be retried as-is.
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return true
		}
	}

	return false
}

// translateDBErr maps driver errors to the repository sentinels. The
// available_seats >= 0 check on tours surfaces as ErrNotEnoughSeats so a
// concurrent decrement that slips past the conditional UPDATE still fails
// the same way for callers.
func translateDBErr(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}

	var pge *pgconn.PgError
	if errors.As(err, &pge) {
		switch pge.Code {
		case "23505": // unique_violation
			return repository.ErrConflict
		case "23514": // check_violation
			return repository.ErrNotEnoughSeats
		case "23503": // foreign_key_violation
			return repository.ErrNotFound
		}
	}

	return err
}
