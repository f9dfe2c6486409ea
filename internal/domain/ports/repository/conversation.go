package repository

import (
	"context"

	"telegram-english-tutor/internal/domain/model"
)

// ConversationRepository is the append-only history store. Recent returns at
// most limit turns in chronological order (oldest of the window first).
// Reset removes all rows for one user and only that user.
type ConversationRepository interface {
	Append(ctx context.Context, tx Tx, turn *model.ConversationTurn) error
	Recent(ctx context.Context, tx Tx, userID int64, limit int) ([]*model.ConversationTurn, error)
	Reset(ctx context.Context, tx Tx, userID int64) error
}
