package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/tour-go/internal/domain"
)

type SubscriptionRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *SubscriptionRepo) With(db DB) *SubscriptionRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *SubscriptionRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// GetPlanByVariantID looks a plan up by the provider variant identifier.
//
// Returns:
//   - error: repository.ErrNotFound if no plan carries the variant.
func (r *SubscriptionRepo) GetPlanByVariantID(ctx context.Context, variantID int64) (*domain.SubscriptionPlan, error) {
	const op = "postgres.SubscriptionRepo.GetPlanByVariantID"

	db := r.handle()

	var p domain.SubscriptionPlan
	err := db.QueryRow(ctx,
		`SELECT id, product_id, product_name, variant_id, name, description,
			price, is_usage_based, billing_interval, billing_interval_count,
			created_at, updated_at
		 FROM subscription_plans WHERE variant_id = $1`,
		variantID,
	).Scan(&p.ID, &p.ProductID, &p.ProductName, &p.VariantID, &p.Name,
		&p.Description, &p.Price, &p.IsUsageBased, &p.Interval,
		&p.IntervalCount, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &p, nil
}

// CreatePlan inserts a plan bootstrapped from provider data and returns its ID.
func (r *SubscriptionRepo) CreatePlan(ctx context.Context, p *domain.SubscriptionPlan) (uuid.UUID, error) {
	const op = "postgres.SubscriptionRepo.CreatePlan"

	db := r.handle()

	id := uuid.New()
	if _, err := db.Exec(ctx,
		`INSERT INTO subscription_plans (id, product_id, product_name,
			variant_id, name, description, price, is_usage_based,
			billing_interval, billing_interval_count)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		id, p.ProductID, p.ProductName, p.VariantID, p.Name, p.Description,
		p.Price, p.IsUsageBased, p.Interval, p.IntervalCount,
	); err != nil {
		return uuid.Nil, wrapDBErr(op, err)
	}

	return id, nil
}

// UpsertUserSubscription inserts a user subscription or, when the provider
// subscription id already exists, rewrites the mutable state.
func (r *SubscriptionRepo) UpsertUserSubscription(ctx context.Context, s *domain.UserSubscription) error {
	const op = "postgres.SubscriptionRepo.UpsertUserSubscription"

	db := r.handle()

	if _, err := db.Exec(ctx,
		`INSERT INTO user_subscriptions (id, ls_subscription_id, order_id,
			user_id, plan_id, name, email, status, status_formatted,
			renews_at, ends_at, trial_ends_at, price, is_usage_based,
			is_paused, subscription_item_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			$14, $15, $16)
		 ON CONFLICT (ls_subscription_id) DO UPDATE SET
			order_id = EXCLUDED.order_id,
			user_id = EXCLUDED.user_id,
			plan_id = EXCLUDED.plan_id,
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			status = EXCLUDED.status,
			status_formatted = EXCLUDED.status_formatted,
			renews_at = EXCLUDED.renews_at,
			ends_at = EXCLUDED.ends_at,
			trial_ends_at = EXCLUDED.trial_ends_at,
			price = EXCLUDED.price,
			is_usage_based = EXCLUDED.is_usage_based,
			is_paused = EXCLUDED.is_paused,
			subscription_item_id = EXCLUDED.subscription_item_id,
			updated_at = now()`,
		uuid.New(), s.LsSubscriptionID, s.OrderID, s.UserID, s.PlanID,
		s.Name, s.Email, s.Status, s.StatusFormatted, s.RenewsAt, s.EndsAt,
		s.TrialEndsAt, s.Price, s.IsUsageBased, s.IsPaused,
		s.SubscriptionItemID,
	); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}
