//go:build !integration

package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"telegram-english-tutor/internal/config"
	"telegram-english-tutor/internal/domain"
	"telegram-english-tutor/internal/domain/model"
	"telegram-english-tutor/internal/domain/ports/adapter"
)

func testPaymentCfg() config.PaymentConfig {
	return config.PaymentConfig{StarsPrice: 100, SubscriptionDays: 7}
}

func testChainCfg() config.ChainConfig {
	return config.ChainConfig{PriceUSDT: 1.5, Tolerance: 0.01}
}

func newPaymentFixture() (*paymentUC, *memPaymentRepo, *memProcessedTxRepo, *memSubRepo) {
	payments := newMemPaymentRepo()
	processed := newMemProcessedTxRepo()
	subs := newMemSubRepo()
	uc := NewPaymentUseCase(payments, processed, subs, newMockTxManager(), testPaymentCfg(), testChainCfg(), newTestLogger())
	return uc, payments, processed, subs
}

func TestPaymentUC_ActivateSubscription(t *testing.T) {
	ctx := context.Background()

	t.Run("first payment starts a week from now", func(t *testing.T) {
		uc, payments, _, subs := newPaymentFixture()
		before := time.Now()

		res, err := uc.ActivateSubscription(ctx, 1, model.PaymentMethodStars, 100, "XTR", "charge-1")
		if err != nil {
			t.Fatalf("ActivateSubscription failed: %v", err)
		}
		want := before.Add(7 * 24 * time.Hour)
		if res.ExpiresAt.Before(want) || res.ExpiresAt.After(want.Add(time.Minute)) {
			t.Errorf("unexpected expiry %v", res.ExpiresAt)
		}
		sub, err := subs.Find(ctx, nil, 1)
		if err != nil || !sub.ExpiresAt.Equal(res.ExpiresAt) {
			t.Errorf("subscription not persisted: %v %v", sub, err)
		}
		rows, _ := payments.ListByUser(ctx, nil, 1, 10)
		if len(rows) != 1 || rows[0].Status != model.PaymentStatusCompleted {
			t.Errorf("unexpected ledger rows: %+v", rows)
		}
	})

	t.Run("renewal stacks on the current expiry", func(t *testing.T) {
		uc, _, _, subs := newPaymentFixture()
		cur := time.Now().Add(48 * time.Hour)
		subs.Upsert(ctx, nil, 1, cur)

		res, err := uc.ActivateSubscription(ctx, 1, model.PaymentMethodStars, 100, "XTR", "charge-2")
		if err != nil {
			t.Fatalf("ActivateSubscription failed: %v", err)
		}
		if !res.ExpiresAt.Equal(cur.Add(7 * 24 * time.Hour)) {
			t.Errorf("expected stacked expiry, got %v", res.ExpiresAt)
		}
	})

	t.Run("duplicate charge id is rejected and credits nothing", func(t *testing.T) {
		uc, _, _, subs := newPaymentFixture()
		first, err := uc.ActivateSubscription(ctx, 1, model.PaymentMethodStars, 100, "XTR", "charge-3")
		if err != nil {
			t.Fatalf("first activation failed: %v", err)
		}
		_, err = uc.ActivateSubscription(ctx, 1, model.PaymentMethodStars, 100, "XTR", "charge-3")
		if !errors.Is(err, domain.ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
		sub, _ := subs.Find(ctx, nil, 1)
		if !sub.ExpiresAt.Equal(first.ExpiresAt) {
			t.Errorf("duplicate must not extend: %v vs %v", sub.ExpiresAt, first.ExpiresAt)
		}
	})
}

func TestPaymentUC_PhoneTopup(t *testing.T) {
	ctx := context.Background()

	t.Run("request then confirm leaves pending and completed rows", func(t *testing.T) {
		uc, payments, _, subs := newPaymentFixture()

		if _, err := uc.RecordPhoneRequest(ctx, 5); err != nil {
			t.Fatalf("RecordPhoneRequest failed: %v", err)
		}
		res, err := uc.ConfirmPhonePayment(ctx, 5)
		if err != nil {
			t.Fatalf("ConfirmPhonePayment failed: %v", err)
		}
		if res.Payment.Method != model.PaymentMethodPhone || res.Payment.Currency != "RUB" {
			t.Errorf("unexpected payment: %+v", res.Payment)
		}
		if !strings.HasPrefix(res.Payment.TxID, "phone_5_") {
			t.Errorf("unexpected tx id: %s", res.Payment.TxID)
		}
		if _, err := subs.Find(ctx, nil, 5); err != nil {
			t.Errorf("subscription not created: %v", err)
		}
		rows, _ := payments.ListByUser(ctx, nil, 5, 10)
		if len(rows) != 2 {
			t.Fatalf("expected pending+completed rows, got %d", len(rows))
		}
	})

	t.Run("reject records the outcome without crediting", func(t *testing.T) {
		uc, payments, _, subs := newPaymentFixture()
		if err := uc.RejectPhonePayment(ctx, 6); err != nil {
			t.Fatalf("RejectPhonePayment failed: %v", err)
		}
		if _, err := subs.Find(ctx, nil, 6); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("rejection must not create a subscription, got %v", err)
		}
		rows, _ := payments.ListByUser(ctx, nil, 6, 10)
		if len(rows) != 1 || rows[0].Status != model.PaymentStatusRejected {
			t.Errorf("unexpected ledger rows: %+v", rows)
		}
	})
}

func TestPaymentUC_ProcessChainTransfer(t *testing.T) {
	ctx := context.Background()
	transfer := adapter.TokenTransfer{Hash: "0xabc", From: "0xsender", Amount: 1.5}

	t.Run("matching transfer is recorded once", func(t *testing.T) {
		uc, _, processed, _ := newPaymentFixture()

		fresh, err := uc.ProcessChainTransfer(ctx, transfer)
		if err != nil {
			t.Fatalf("ProcessChainTransfer failed: %v", err)
		}
		if !fresh {
			t.Fatal("expected first sighting to be fresh")
		}
		done, _ := processed.IsProcessed(ctx, nil, "0xabc")
		if !done {
			t.Error("hash not marked processed")
		}

		fresh, err = uc.ProcessChainTransfer(ctx, transfer)
		if err != nil {
			t.Fatalf("second sighting failed: %v", err)
		}
		if fresh {
			t.Error("expected dedupe on second sighting")
		}
	})

	t.Run("amount outside tolerance is ignored", func(t *testing.T) {
		uc, _, processed, _ := newPaymentFixture()

		fresh, err := uc.ProcessChainTransfer(ctx, adapter.TokenTransfer{Hash: "0xdef", Amount: 2.0})
		if err != nil {
			t.Fatalf("ProcessChainTransfer failed: %v", err)
		}
		if fresh {
			t.Error("expected mismatching amount to be skipped")
		}
		done, _ := processed.IsProcessed(ctx, nil, "0xdef")
		if done {
			t.Error("mismatching transfer must not be marked processed")
		}
	})

	t.Run("amount within tolerance is accepted", func(t *testing.T) {
		uc, _, _, _ := newPaymentFixture()
		fresh, err := uc.ProcessChainTransfer(ctx, adapter.TokenTransfer{Hash: "0x123", Amount: 1.495})
		if err != nil || !fresh {
			t.Fatalf("expected acceptance within tolerance, got fresh=%v err=%v", fresh, err)
		}
	})
}
