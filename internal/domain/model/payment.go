package model

import "time"

type PaymentMethod string

const (
	PaymentMethodStars PaymentMethod = "stars"
	PaymentMethodUSDT  PaymentMethod = "usdt_bep20"
	PaymentMethodPhone PaymentMethod = "phone_topup"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusRejected  PaymentStatus = "rejected"
)

// Payment is an append-only ledger row. Rows are immutable once written and
// exist for auditing and idempotent subscription activation.
type Payment struct {
	ID        string // UUID
	UserID    int64
	Method    PaymentMethod
	Amount    float64
	Currency  string
	TxID      string // external transaction id; unique when present
	Status    PaymentStatus
	CreatedAt time.Time
}

// ProcessedTransaction records an external-chain transaction hash that has
// already been credited. A hash is recorded at most once; later sightings
// are no-ops.
type ProcessedTransaction struct {
	TxHash      string
	UserID      int64 // 0 when the transfer is not yet attributed to a user
	Amount      float64
	ProcessedAt time.Time
}
