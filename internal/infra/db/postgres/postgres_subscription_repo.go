package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-english-tutor/internal/domain"
	"telegram-english-tutor/internal/domain/model"
	"telegram-english-tutor/internal/domain/ports/repository"
)

var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

func (r *subscriptionRepo) Find(ctx context.Context, tx repository.Tx, userID int64) (*model.Subscription, error) {
	const q = `SELECT user_id, expires_at FROM subscriptions WHERE user_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, err
	}
	var s model.Subscription
	if err := row.Scan(&s.UserID, &s.ExpiresAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// Upsert writes the expiry for a user. GREATEST keeps a concurrent shorter
// write from clawing back days already granted.
func (r *subscriptionRepo) Upsert(ctx context.Context, tx repository.Tx, userID int64, expiresAt time.Time) error {
	const q = `
INSERT INTO subscriptions (user_id, expires_at)
VALUES ($1, $2)
ON CONFLICT (user_id) DO UPDATE
   SET expires_at = GREATEST(subscriptions.expires_at, EXCLUDED.expires_at);`
	_, err := execSQL(ctx, r.pool, tx, q, userID, expiresAt)
	return err
}

func (r *subscriptionRepo) CountActive(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM subscriptions WHERE expires_at > $1;`, now)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
