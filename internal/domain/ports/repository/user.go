package repository

import (
	"context"

	"telegram-english-tutor/internal/domain/model"
)

// UserRepository persists tutor-bot users. Create is idempotent
// ("create if absent"); counters move through the dedicated mutators so the
// read-modify-write stays inside one statement.
type UserRepository interface {
	Create(ctx context.Context, tx Tx, u *model.User) error
	FindByID(ctx context.Context, tx Tx, id int64) (*model.User, error)
	FindByReferralCode(ctx context.Context, tx Tx, code string) (*model.User, error)

	IncrementMessageCount(ctx context.Context, tx Tx, id int64) error
	AddBonusMessages(ctx context.Context, tx Tx, id int64, amount int) error
	SetLevel(ctx context.Context, tx Tx, id int64, level model.Level) error
	MarkOnboardingCompleted(ctx context.Context, tx Tx, id int64) error
	SetReferralCode(ctx context.Context, tx Tx, id int64, code string) error
	UpdateStreak(ctx context.Context, tx Tx, id int64, streakDays int, lastActiveDate string) error
	SetLastStreakReward(ctx context.Context, tx Tx, id int64, milestone int) error
	TouchReferralBonus(ctx context.Context, tx Tx, id int64) error

	// Stats for the admin surface.
	CountUsers(ctx context.Context, tx Tx) (int, error)
	CountByLevel(ctx context.Context, tx Tx) (map[string]int, error)
	AverageMessages(ctx context.Context, tx Tx) (float64, error)
}
