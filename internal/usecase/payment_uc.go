package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"telegram-english-tutor/internal/config"
	"telegram-english-tutor/internal/domain"
	"telegram-english-tutor/internal/domain/model"
	"telegram-english-tutor/internal/domain/ports/adapter"
	"telegram-english-tutor/internal/domain/ports/repository"
	"telegram-english-tutor/internal/infra/metrics"
)

// ActivationResult carries what a credited payment produced, for the
// surface to phrase the confirmation message.
type ActivationResult struct {
	Payment   *model.Payment
	ExpiresAt time.Time
	Days      int
}

var _ PaymentUseCase = (*paymentUC)(nil)

type PaymentUseCase interface {
	// ActivateSubscription writes a completed ledger row and extends the
	// user's premium expiry in one transaction. A duplicate external
	// transaction id returns domain.ErrAlreadyExists without crediting.
	ActivateSubscription(ctx context.Context, userID int64, method model.PaymentMethod, amount float64, currency, txID string) (*ActivationResult, error)
	// RecordPhoneRequest appends a pending row when a user claims a
	// phone-balance topup; the subscription is credited only after an
	// operator confirms via ConfirmPhonePayment.
	RecordPhoneRequest(ctx context.Context, userID int64) (*model.Payment, error)
	ConfirmPhonePayment(ctx context.Context, userID int64) (*ActivationResult, error)
	RejectPhonePayment(ctx context.Context, userID int64) error
	// ProcessChainTransfer records a wallet transfer sighted on-chain.
	// Transfers outside the price tolerance are ignored; a hash seen
	// before is skipped. Returns true when the transfer is new and needs
	// operator attribution.
	ProcessChainTransfer(ctx context.Context, t adapter.TokenTransfer) (bool, error)
	History(ctx context.Context, userID int64, limit int) ([]*model.Payment, error)
}

type paymentUC struct {
	payments  repository.PaymentRepository
	processed repository.ProcessedTransactionRepository
	subs      repository.SubscriptionRepository
	tm        repository.TransactionManager
	cfg       config.PaymentConfig
	chain     config.ChainConfig
	log       *zerolog.Logger
}

func NewPaymentUseCase(
	payments repository.PaymentRepository,
	processed repository.ProcessedTransactionRepository,
	subs repository.SubscriptionRepository,
	tm repository.TransactionManager,
	cfg config.PaymentConfig,
	chain config.ChainConfig,
	logger *zerolog.Logger,
) *paymentUC {
	return &paymentUC{
		payments:  payments,
		processed: processed,
		subs:      subs,
		tm:        tm,
		cfg:       cfg,
		chain:     chain,
		log:       logger,
	}
}

func (p *paymentUC) ActivateSubscription(ctx context.Context, userID int64, method model.PaymentMethod, amount float64, currency, txID string) (*ActivationResult, error) {
	if userID == 0 {
		return nil, domain.ErrInvalidArgument
	}

	now := time.Now()
	days := p.cfg.SubscriptionDays
	pay := &model.Payment{
		ID:        uuid.NewString(),
		UserID:    userID,
		Method:    method,
		Amount:    amount,
		Currency:  currency,
		TxID:      txID,
		Status:    model.PaymentStatusCompleted,
		CreatedAt: now,
	}

	res := &ActivationResult{Payment: pay, Days: days}
	err := p.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := p.payments.Save(ctx, tx, pay); err != nil {
			return err
		}
		sub, err := p.subs.Find(ctx, tx, userID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		res.ExpiresAt = sub.ExtendedBy(now, days)
		return p.subs.Upsert(ctx, tx, userID, res.ExpiresAt)
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			p.log.Warn().Int64("user_id", userID).Str("tx_id", txID).Msg("duplicate payment ignored")
		}
		return nil, err
	}

	metrics.ObservePayment(string(method), string(model.PaymentStatusCompleted))
	metrics.ObserveSubscriptionDays("payment", days)
	p.log.Info().
		Int64("user_id", userID).
		Str("method", string(method)).
		Float64("amount", amount).
		Str("currency", currency).
		Time("expires_at", res.ExpiresAt).
		Msg("subscription activated")
	return res, nil
}

func (p *paymentUC) RecordPhoneRequest(ctx context.Context, userID int64) (*model.Payment, error) {
	if userID == 0 {
		return nil, domain.ErrInvalidArgument
	}
	pay := &model.Payment{
		ID:        uuid.NewString(),
		UserID:    userID,
		Method:    model.PaymentMethodPhone,
		Amount:    phoneTopupRUB,
		Currency:  "RUB",
		Status:    model.PaymentStatusPending,
		CreatedAt: time.Now(),
	}
	if err := p.payments.Save(ctx, repository.NoTX, pay); err != nil {
		return nil, err
	}
	metrics.ObservePayment(string(model.PaymentMethodPhone), string(model.PaymentStatusPending))
	return pay, nil
}

const phoneTopupRUB = 179

func (p *paymentUC) ConfirmPhonePayment(ctx context.Context, userID int64) (*ActivationResult, error) {
	txID := phoneTxID(userID, time.Now())
	return p.ActivateSubscription(ctx, userID, model.PaymentMethodPhone, phoneTopupRUB, "RUB", txID)
}

func (p *paymentUC) RejectPhonePayment(ctx context.Context, userID int64) error {
	if userID == 0 {
		return domain.ErrInvalidArgument
	}
	pay := &model.Payment{
		ID:        uuid.NewString(),
		UserID:    userID,
		Method:    model.PaymentMethodPhone,
		Amount:    phoneTopupRUB,
		Currency:  "RUB",
		Status:    model.PaymentStatusRejected,
		CreatedAt: time.Now(),
	}
	if err := p.payments.Save(ctx, repository.NoTX, pay); err != nil {
		return err
	}
	metrics.ObservePayment(string(model.PaymentMethodPhone), string(model.PaymentStatusRejected))
	p.log.Info().Int64("user_id", userID).Msg("phone topup rejected")
	return nil
}

func (p *paymentUC) ProcessChainTransfer(ctx context.Context, t adapter.TokenTransfer) (bool, error) {
	if math.Abs(t.Amount-p.chain.PriceUSDT) > p.chain.Tolerance {
		return false, nil
	}
	metrics.ObserveChainTransferSeen()

	done, err := p.processed.IsProcessed(ctx, repository.NoTX, t.Hash)
	if err != nil {
		return false, err
	}
	if done {
		metrics.ObserveChainTransferDeduped()
		return false, nil
	}

	// UserID 0: the sender's wallet does not identify a Telegram account,
	// so crediting waits for operator attribution.
	err = p.processed.MarkProcessed(ctx, repository.NoTX, &model.ProcessedTransaction{
		TxHash:      t.Hash,
		UserID:      0,
		Amount:      t.Amount,
		ProcessedAt: time.Now(),
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateTransaction) {
			metrics.ObserveChainTransferDeduped()
			return false, nil
		}
		return false, err
	}

	p.log.Info().
		Str("tx_hash", t.Hash).
		Str("from", t.From).
		Float64("amount", t.Amount).
		Msg("incoming transfer needs attribution")
	return true, nil
}

func (p *paymentUC) History(ctx context.Context, userID int64, limit int) ([]*model.Payment, error) {
	return p.payments.ListByUser(ctx, repository.NoTX, userID, limit)
}

func phoneTxID(userID int64, now time.Time) string {
	return fmt.Sprintf("phone_%d_%d", userID, now.Unix())
}
