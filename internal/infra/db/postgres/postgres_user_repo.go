package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-english-tutor/internal/domain"
	"telegram-english-tutor/internal/domain/model"
	"telegram-english-tutor/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*PostgresUserRepo)(nil)

type PostgresUserRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresUserRepo(pool *pgxpool.Pool) *PostgresUserRepo {
	return &PostgresUserRepo{pool: pool}
}

const userColumns = `
id, username, message_count, bonus_messages, level, onboarding_completed,
last_active_date, streak_days, last_streak_reward, referral_code,
last_referral_bonus_at, created_at`

func (r *PostgresUserRepo) Create(ctx context.Context, tx repository.Tx, u *model.User) error {
	const q = `
INSERT INTO users (id, username, created_at)
VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET username = EXCLUDED.username;`
	_, err := execSQL(ctx, r.pool, tx, q, u.ID, u.Username, u.CreatedAt)
	return err
}

func (r *PostgresUserRepo) FindByID(ctx context.Context, tx repository.Tx, id int64) (*model.User, error) {
	return r.queryOne(ctx, tx, `SELECT `+userColumns+` FROM users WHERE id=$1;`, id)
}

func (r *PostgresUserRepo) FindByReferralCode(ctx context.Context, tx repository.Tx, code string) (*model.User, error) {
	return r.queryOne(ctx, tx, `SELECT `+userColumns+` FROM users WHERE referral_code=$1 AND referral_code<>'';`, code)
}

func (r *PostgresUserRepo) IncrementMessageCount(ctx context.Context, tx repository.Tx, id int64) error {
	return r.exec(ctx, tx, `UPDATE users SET message_count = message_count + 1 WHERE id=$1;`, id)
}

func (r *PostgresUserRepo) AddBonusMessages(ctx context.Context, tx repository.Tx, id int64, amount int) error {
	return r.exec(ctx, tx, `UPDATE users SET bonus_messages = bonus_messages + $2 WHERE id=$1;`, id, amount)
}

func (r *PostgresUserRepo) SetLevel(ctx context.Context, tx repository.Tx, id int64, level model.Level) error {
	return r.exec(ctx, tx, `UPDATE users SET level=$2 WHERE id=$1;`, id, string(level))
}

func (r *PostgresUserRepo) MarkOnboardingCompleted(ctx context.Context, tx repository.Tx, id int64) error {
	return r.exec(ctx, tx, `UPDATE users SET onboarding_completed=TRUE WHERE id=$1;`, id)
}

func (r *PostgresUserRepo) SetReferralCode(ctx context.Context, tx repository.Tx, id int64, code string) error {
	return r.exec(ctx, tx, `UPDATE users SET referral_code=$2 WHERE id=$1;`, id, code)
}

func (r *PostgresUserRepo) UpdateStreak(ctx context.Context, tx repository.Tx, id int64, streakDays int, lastActiveDate string) error {
	return r.exec(ctx, tx, `UPDATE users SET streak_days=$2, last_active_date=$3 WHERE id=$1;`, id, streakDays, lastActiveDate)
}

func (r *PostgresUserRepo) SetLastStreakReward(ctx context.Context, tx repository.Tx, id int64, milestone int) error {
	return r.exec(ctx, tx, `UPDATE users SET last_streak_reward=$2 WHERE id=$1;`, id, milestone)
}

func (r *PostgresUserRepo) TouchReferralBonus(ctx context.Context, tx repository.Tx, id int64) error {
	return r.exec(ctx, tx, `UPDATE users SET last_referral_bonus_at=NOW() WHERE id=$1;`, id)
}

func (r *PostgresUserRepo) CountUsers(ctx context.Context, tx repository.Tx) (int, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM users;`)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (r *PostgresUserRepo) CountByLevel(ctx context.Context, tx repository.Tx) (map[string]int, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT level, COUNT(*) FROM users WHERE level<>'' GROUP BY level;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	m := make(map[string]int)
	for rows.Next() {
		var level string
		var c int
		if err := rows.Scan(&level, &c); err != nil {
			return nil, err
		}
		m[level] = c
	}
	return m, rows.Err()
}

func (r *PostgresUserRepo) AverageMessages(ctx context.Context, tx repository.Tx) (float64, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT COALESCE(AVG(message_count),0) FROM users;`)
	if err != nil {
		return 0, err
	}
	var avg float64
	if err := row.Scan(&avg); err != nil {
		return 0, fmt.Errorf("average messages: %w", err)
	}
	return avg, nil
}

func (r *PostgresUserRepo) exec(ctx context.Context, tx repository.Tx, sql string, args ...any) error {
	tag, err := execSQL(ctx, r.pool, tx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresUserRepo) queryOne(ctx context.Context, tx repository.Tx, sql string, args ...any) (*model.User, error) {
	row, err := pickRow(ctx, r.pool, tx, sql, args...)
	if err != nil {
		return nil, err
	}
	var u model.User
	var level string
	if err := row.Scan(&u.ID, &u.Username, &u.MessageCount, &u.BonusMessages, &level,
		&u.OnboardingCompleted, &u.LastActiveDate, &u.StreakDays, &u.LastStreakReward,
		&u.ReferralCode, &u.LastReferralBonusAt, &u.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.Level = model.Level(level)
	return &u, nil
}
