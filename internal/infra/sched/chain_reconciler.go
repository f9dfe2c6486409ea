package sched

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"

	"telegram-english-tutor/internal/config"
	"telegram-english-tutor/internal/domain/ports/adapter"
	"telegram-english-tutor/internal/infra/i18n"
	"telegram-english-tutor/internal/usecase"
)

// ChainReconciler periodically scans the payment wallet for incoming USDT
// transfers at the subscription price and records fresh ones through
// PaymentUseCase. Attribution to a user is manual, so every new transfer is
// forwarded to operator chats. The processed-transaction ledger makes
// rescans after a crash harmless.
type ChainReconciler struct {
	scanner    adapter.TokenTransferScanner
	payments   usecase.PaymentUseCase
	bot        adapter.TelegramBot
	translator *i18n.Translator
	cfg        config.ChainConfig
	adminIDs   []int64
	log        *zerolog.Logger

	lastBlock int64 // highest block seen this process, scans resume above it
}

func NewChainReconciler(
	scanner adapter.TokenTransferScanner,
	payments usecase.PaymentUseCase,
	bot adapter.TelegramBot,
	translator *i18n.Translator,
	cfg config.ChainConfig,
	adminIDs []int64,
	logger *zerolog.Logger,
) *ChainReconciler {
	return &ChainReconciler{
		scanner:    scanner,
		payments:   payments,
		bot:        bot,
		translator: translator,
		cfg:        cfg,
		adminIDs:   adminIDs,
		log:        logger,
	}
}

func (w *ChainReconciler) Start(ctx context.Context) {
	t := time.NewTicker(w.cfg.CheckInterval)
	defer t.Stop()

	w.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *ChainReconciler) tick(ctx context.Context) {
	transfers, err := w.scanner.IncomingTransfers(ctx, w.cfg.Wallet, w.lastBlock)
	if err != nil {
		w.log.Warn().Err(err).Msg("chain scan failed")
		return
	}

	for _, t := range transfers {
		if t.Block > w.lastBlock {
			w.lastBlock = t.Block
		}
		if math.Abs(t.Amount-w.cfg.PriceUSDT) > w.cfg.Tolerance {
			continue
		}
		fresh, err := w.payments.ProcessChainTransfer(ctx, t)
		if err != nil {
			w.log.Error().Err(err).Str("tx", t.Hash).Msg("chain transfer processing failed")
			continue
		}
		if !fresh {
			continue
		}
		w.log.Info().Str("tx", t.Hash).Float64("amount", t.Amount).Msg("new chain transfer recorded")
		w.notifyAdmins(ctx, t)
	}
}

func (w *ChainReconciler) notifyAdmins(ctx context.Context, t adapter.TokenTransfer) {
	text := w.translator.T("admin_chain_transfer", t.Amount, t.From, t.Hash)
	for _, id := range w.adminIDs {
		if err := w.bot.SendMessage(ctx, id, text); err != nil {
			w.log.Warn().Err(err).Int64("admin_id", id).Msg("chain transfer notification failed")
		}
	}
}
