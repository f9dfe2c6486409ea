package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
)

// migration is one forward-only schema step. Steps run in order inside a
// transaction each; applied versions are recorded in schema_migrations so
// startup is idempotent.
type migration struct {
	version int
	name    string
	sql     string
}

var migrations = []migration{
	{1, "users", `
CREATE TABLE IF NOT EXISTS users (
    id                   BIGINT PRIMARY KEY,
    username             TEXT NOT NULL DEFAULT '',
    message_count        INT NOT NULL DEFAULT 0,
    bonus_messages       INT NOT NULL DEFAULT 0,
    level                TEXT NOT NULL DEFAULT '',
    onboarding_completed BOOLEAN NOT NULL DEFAULT FALSE,
    last_active_date     TEXT NOT NULL DEFAULT '',
    streak_days          INT NOT NULL DEFAULT 0,
    last_streak_reward   INT NOT NULL DEFAULT 0,
    referral_code        TEXT NOT NULL DEFAULT '',
    last_referral_bonus_at TIMESTAMPTZ,
    created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS users_referral_code_idx
    ON users (referral_code) WHERE referral_code <> '';`},

	{2, "subscriptions", `
CREATE TABLE IF NOT EXISTS subscriptions (
    user_id    BIGINT PRIMARY KEY REFERENCES users(id),
    expires_at TIMESTAMPTZ NOT NULL
);`},

	{3, "conversations", `
CREATE TABLE IF NOT EXISTS conversations (
    id        BIGSERIAL PRIMARY KEY,
    user_id   BIGINT NOT NULL REFERENCES users(id),
    role      TEXT NOT NULL,
    content   TEXT NOT NULL,
    timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS conversations_user_ts_idx
    ON conversations (user_id, timestamp DESC);`},

	{4, "payments", `
CREATE TABLE IF NOT EXISTS payments (
    id         UUID PRIMARY KEY,
    user_id    BIGINT NOT NULL REFERENCES users(id),
    method     TEXT NOT NULL,
    amount     DOUBLE PRECISION NOT NULL,
    currency   TEXT NOT NULL DEFAULT '',
    tx_id      TEXT NOT NULL DEFAULT '',
    status     TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS payments_tx_id_idx
    ON payments (tx_id) WHERE tx_id <> '';`},

	{5, "processed_transactions", `
CREATE TABLE IF NOT EXISTS processed_transactions (
    tx_hash      TEXT PRIMARY KEY,
    user_id      BIGINT NOT NULL DEFAULT 0,
    amount       DOUBLE PRECISION NOT NULL DEFAULT 0,
    processed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`},

	{6, "referrals", `
CREATE TABLE IF NOT EXISTS referrals (
    id            BIGSERIAL PRIMARY KEY,
    inviter_id    BIGINT NOT NULL REFERENCES users(id),
    invitee_id    BIGINT NOT NULL UNIQUE,
    referral_code TEXT NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`},
}

// Migrate applies all pending schema steps. Safe to run on every startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	const marker = `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version    INT PRIMARY KEY,
    name       TEXT NOT NULL,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`
	if _, err := pool.Exec(ctx, marker); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var current int
	if err := pool.QueryRow(ctx, `SELECT COALESCE(MAX(version),0) FROM schema_migrations;`).Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, m.sql); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
		if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version, name) VALUES ($1,$2);`, m.version, m.name); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return err
		}
	}
	return nil
}
