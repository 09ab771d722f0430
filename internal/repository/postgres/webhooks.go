package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/tour-go/internal/domain"
	"github.com/kirinyoku/tour-go/internal/repository"
)

type WebhookEventRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *WebhookEventRepo) With(db DB) *WebhookEventRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *WebhookEventRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Record inserts an unprocessed event row before any dispatch happens, so no
// inbound call is lost even when handling fails.
func (r *WebhookEventRepo) Record(ctx context.Context, provider, eventName string, body []byte) (uuid.UUID, error) {
	const op = "postgres.WebhookEventRepo.Record"

	db := r.handle()

	id := uuid.New()
	if body == nil {
		body = []byte("{}")
	}

	if _, err := db.Exec(ctx,
		`INSERT INTO webhook_events (id, provider, event_name, processed, body)
		 VALUES ($1, $2, $3, false, $4)`,
		id, provider, eventName, body,
	); err != nil {
		return uuid.Nil, wrapDBErr(op, err)
	}

	return id, nil
}

// MarkProcessed stamps the outcome onto the event row. processingError is
// empty on success.
func (r *WebhookEventRepo) MarkProcessed(ctx context.Context, id uuid.UUID, processingError string) error {
	const op = "postgres.WebhookEventRepo.MarkProcessed"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE webhook_events
		 SET processed = true, processing_error = $2
		 WHERE id = $1`,
		id, processingError,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

// Get retrieves one event row, used by tests and diagnostics.
func (r *WebhookEventRepo) Get(ctx context.Context, id uuid.UUID) (*domain.WebhookEvent, error) {
	const op = "postgres.WebhookEventRepo.Get"

	db := r.handle()

	var e domain.WebhookEvent
	err := db.QueryRow(ctx,
		`SELECT id, provider, event_name, processed, body, processing_error, created_at
		 FROM webhook_events WHERE id = $1`,
		id,
	).Scan(&e.ID, &e.Provider, &e.EventName, &e.Processed, &e.Body,
		&e.ProcessingError, &e.CreatedAt)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &e, nil
}
