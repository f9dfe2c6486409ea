package model

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationTurn is one row of the append-only conversation history.
// History is ordered by timestamp; windowed reads return the most recent N
// rows in chronological order, oldest first.
type ConversationTurn struct {
	ID        int64
	UserID    int64
	Role      string
	Content   string
	Timestamp time.Time
}
