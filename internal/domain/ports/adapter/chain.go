package adapter

import "context"

// TokenTransfer is one incoming BEP-20 transfer to the payment wallet.
type TokenTransfer struct {
	Hash      string
	From      string
	To        string
	Amount    float64 // token units, not wei
	Timestamp int64   // unix seconds
	Block     int64
}

// TokenTransferScanner is the port for the chain explorer used to detect
// USDT payments arriving at the configured wallet.
type TokenTransferScanner interface {
	IncomingTransfers(ctx context.Context, wallet string, startBlock int64) ([]TokenTransfer, error)
}
