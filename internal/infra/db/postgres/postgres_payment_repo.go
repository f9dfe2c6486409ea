package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-english-tutor/internal/domain"
	"telegram-english-tutor/internal/domain/model"
	"telegram-english-tutor/internal/domain/ports/repository"
)

var (
	_ repository.PaymentRepository              = (*paymentRepo)(nil)
	_ repository.ProcessedTransactionRepository = (*processedTxRepo)(nil)
)

type paymentRepo struct {
	pool *pgxpool.Pool
}

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

func (r *paymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	const q = `
INSERT INTO payments (id, user_id, method, amount, currency, tx_id, status, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8);`
	_, err := execSQL(ctx, r.pool, tx, q,
		p.ID, p.UserID, string(p.Method), p.Amount, p.Currency, p.TxID, string(p.Status), p.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *paymentRepo) ListByUser(ctx context.Context, tx repository.Tx, userID int64, limit int) ([]*model.Payment, error) {
	const q = `
SELECT id, user_id, method, amount, currency, tx_id, status, created_at
  FROM payments
 WHERE user_id=$1
 ORDER BY created_at DESC
 LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPayment(row pgx.Row) (*model.Payment, error) {
	var p model.Payment
	var method, status string
	if err := row.Scan(&p.ID, &p.UserID, &method, &p.Amount, &p.Currency, &p.TxID, &status, &p.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan payment: %w", err)
	}
	p.Method = model.PaymentMethod(method)
	p.Status = model.PaymentStatus(status)
	return &p, nil
}

type processedTxRepo struct {
	pool *pgxpool.Pool
}

func NewProcessedTxRepo(pool *pgxpool.Pool) *processedTxRepo {
	return &processedTxRepo{pool: pool}
}

func (r *processedTxRepo) IsProcessed(ctx context.Context, tx repository.Tx, txHash string) (bool, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT EXISTS (SELECT 1 FROM processed_transactions WHERE tx_hash=$1);`, txHash)
	if err != nil {
		return false, err
	}
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// MarkProcessed inserts the hash once. RowsAffected()==0 means another
// reconciler pass already claimed it.
func (r *processedTxRepo) MarkProcessed(ctx context.Context, tx repository.Tx, rec *model.ProcessedTransaction) error {
	const q = `
INSERT INTO processed_transactions (tx_hash, user_id, amount, processed_at)
VALUES ($1,$2,$3,$4)
ON CONFLICT (tx_hash) DO NOTHING;`
	tag, err := execSQL(ctx, r.pool, tx, q, rec.TxHash, rec.UserID, rec.Amount, rec.ProcessedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDuplicateTransaction
	}
	return nil
}
