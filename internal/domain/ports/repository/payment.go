package repository

import (
	"context"

	"telegram-english-tutor/internal/domain/model"
)

// PaymentRepository is the append-only payment ledger.
type PaymentRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Payment) error
	ListByUser(ctx context.Context, tx Tx, userID int64, limit int) ([]*model.Payment, error)
}

// ProcessedTransactionRepository makes external-chain crediting idempotent.
// MarkProcessed returns domain.ErrDuplicateTransaction when the hash was
// already recorded.
type ProcessedTransactionRepository interface {
	IsProcessed(ctx context.Context, tx Tx, txHash string) (bool, error)
	MarkProcessed(ctx context.Context, tx Tx, rec *model.ProcessedTransaction) error
}
