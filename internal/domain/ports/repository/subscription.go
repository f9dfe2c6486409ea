package repository

import (
	"context"
	"time"

	"telegram-english-tutor/internal/domain/model"
)

// SubscriptionRepository holds at most one row per user. Upsert never
// shortens an existing expiry; extension semantics live in the use case.
type SubscriptionRepository interface {
	Find(ctx context.Context, tx Tx, userID int64) (*model.Subscription, error)
	Upsert(ctx context.Context, tx Tx, userID int64, expiresAt time.Time) error
	CountActive(ctx context.Context, tx Tx, now time.Time) (int, error)
}
