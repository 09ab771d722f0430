package uow

import (
	"context"

	"github.com/jackc/pgx/v5"

	postgres "github.com/kirinyoku/tour-go/internal/repository/postgres"
)

// AfterCommit runs once the surrounding transaction has committed. The
// booking service uses it for cache invalidation and tour-changed publishes:
// side effects that must not fire on rollback.
type AfterCommit func(ctx context.Context)

// UoW groups a booking-row change and its seat-counter effects into one
// transaction.
type UoW struct {
	store *postgres.Store
}

func NewUoW(store *postgres.Store) *UoW {
	return &UoW{store: store}
}

// Do runs fn in a transaction with the store's default options. Hooks
// registered through after run only when the commit succeeds, in
// registration order.
func (u *UoW) Do(
	ctx context.Context,
	fn func(ctx context.Context, tx postgres.DB, after func(AfterCommit)) error,
) error {
	return u.DoWithOpts(ctx, nil, fn)
}

// DoWithOpts is Do with explicit transaction options.
func (u *UoW) DoWithOpts(
	ctx context.Context,
	opts *pgx.TxOptions,
	fn func(ctx context.Context, tx postgres.DB, after func(AfterCommit)) error,
) error {
	var hooks []AfterCommit

	register := func(h AfterCommit) {
		hooks = append(hooks, h)
	}

	err := u.store.RunTx(ctx, opts, func(ctx context.Context, tx postgres.DB) error {
		return fn(ctx, tx, register)
	})
	if err != nil {
		return err
	}

	for _, h := range hooks {
		h(ctx)
	}

	return nil
}
