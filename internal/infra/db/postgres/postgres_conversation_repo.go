package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-english-tutor/internal/domain/model"
	"telegram-english-tutor/internal/domain/ports/repository"
)

var _ repository.ConversationRepository = (*conversationRepo)(nil)

type conversationRepo struct {
	pool *pgxpool.Pool
}

func NewConversationRepo(pool *pgxpool.Pool) *conversationRepo {
	return &conversationRepo{pool: pool}
}

func (r *conversationRepo) Append(ctx context.Context, tx repository.Tx, turn *model.ConversationTurn) error {
	const q = `INSERT INTO conversations (user_id, role, content, timestamp) VALUES ($1,$2,$3,$4);`
	_, err := execSQL(ctx, r.pool, tx, q, turn.UserID, turn.Role, turn.Content, turn.Timestamp)
	return err
}

// Recent returns the newest limit turns in chronological order.
func (r *conversationRepo) Recent(ctx context.Context, tx repository.Tx, userID int64, limit int) ([]*model.ConversationTurn, error) {
	const q = `
SELECT id, user_id, role, content, timestamp FROM (
    SELECT id, user_id, role, content, timestamp
      FROM conversations
     WHERE user_id=$1
     ORDER BY timestamp DESC, id DESC
     LIMIT $2
) w ORDER BY timestamp ASC, id ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.ConversationTurn
	for rows.Next() {
		var t model.ConversationTurn
		if err := rows.Scan(&t.ID, &t.UserID, &t.Role, &t.Content, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

func (r *conversationRepo) Reset(ctx context.Context, tx repository.Tx, userID int64) error {
	_, err := execSQL(ctx, r.pool, tx, `DELETE FROM conversations WHERE user_id=$1;`, userID)
	return err
}
