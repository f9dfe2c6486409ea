package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-english-tutor/internal/domain"
	"telegram-english-tutor/internal/domain/model"
	"telegram-english-tutor/internal/domain/ports/repository"
)

var _ repository.ReferralRepository = (*referralRepo)(nil)

type referralRepo struct {
	pool *pgxpool.Pool
}

func NewReferralRepo(pool *pgxpool.Pool) *referralRepo {
	return &referralRepo{pool: pool}
}

// Add inserts one activation. The unique invitee column turns a second
// activation attempt into domain.ErrReferralAlreadyActivated.
func (r *referralRepo) Add(ctx context.Context, tx repository.Tx, ref *model.Referral) error {
	const q = `
INSERT INTO referrals (inviter_id, invitee_id, referral_code, created_at)
VALUES ($1,$2,$3,$4);`
	_, err := execSQL(ctx, r.pool, tx, q, ref.InviterID, ref.InviteeID, ref.ReferralCode, ref.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrReferralAlreadyActivated
		}
		return err
	}
	return nil
}

func (r *referralRepo) FindByInvitee(ctx context.Context, tx repository.Tx, inviteeID int64) (*model.Referral, error) {
	const q = `
SELECT id, inviter_id, invitee_id, referral_code, created_at
  FROM referrals WHERE invitee_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, inviteeID)
	if err != nil {
		return nil, err
	}
	var ref model.Referral
	if err := row.Scan(&ref.ID, &ref.InviterID, &ref.InviteeID, &ref.ReferralCode, &ref.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &ref, nil
}

func (r *referralRepo) CountByInviter(ctx context.Context, tx repository.Tx, inviterID int64) (int, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM referrals WHERE inviter_id=$1;`, inviterID)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
