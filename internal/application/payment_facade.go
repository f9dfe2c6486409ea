package application

import (
	"context"
	"errors"
	"fmt"

	"telegram-english-tutor/internal/domain"
	"telegram-english-tutor/internal/domain/model"
	"telegram-english-tutor/internal/usecase"
)

// InvoiceSpec is everything the adapter needs to send a Stars invoice.
type InvoiceSpec struct {
	Title       string
	Description string
	Payload     string
	Currency    string
	Amount      int
}

func (b *BotFacade) HandleBuyMenu() string    { return b.T.T("buy_menu") }
func (b *BotFacade) HandleStarsGuide() string { return b.T.T("stars_guide") }

// StarsInvoice describes the weekly premium invoice in Telegram Stars. XTR
// invoices carry no provider token.
func (b *BotFacade) StarsInvoice(userID int64) InvoiceSpec {
	return InvoiceSpec{
		Title:       b.T.T("invoice_title"),
		Description: b.T.T("invoice_desc", b.Cfg.Payment.SubscriptionDays),
		Payload:     fmt.Sprintf("premium_week_%d", userID),
		Currency:    "XTR",
		Amount:      b.Cfg.Payment.StarsPrice,
	}
}

// HandleSuccessfulPayment credits a paid Stars invoice. Telegram retries
// webhook-style deliveries, so a charge id seen before is acknowledged with
// the current expiry instead of crediting twice.
func (b *BotFacade) HandleSuccessfulPayment(ctx context.Context, userID int64, chargeID string, amount int) (string, error) {
	res, err := b.Payments.ActivateSubscription(ctx, userID, model.PaymentMethodStars, float64(amount), "XTR", chargeID)
	if err == nil {
		return b.T.T("payment_success", res.ExpiresAt.Format(dateLayout)), nil
	}
	if !errors.Is(err, domain.ErrAlreadyExists) {
		return "", fmt.Errorf("activate stars payment: %w", err)
	}

	user, uerr := b.Users.Get(ctx, userID)
	if uerr != nil {
		return "", uerr
	}
	ent, eerr := b.Entitlements.Status(ctx, user)
	if eerr != nil || ent.Tier != usecase.TierPremium {
		return b.T.T("error_generic"), nil
	}
	return b.T.T("payment_success", ent.ExpiresAt.Format(dateLayout)), nil
}

// HandleUSDTMenu renders the crypto payment instructions with the deposit
// wallet on its own line so it is easy to copy.
func (b *BotFacade) HandleUSDTMenu() string {
	return b.T.T("pay_usdt_instructions", b.Cfg.Chain.PriceUSDT) + "\n" + b.Cfg.Chain.Wallet
}

func (b *BotFacade) HandlePhoneMenu() string {
	return b.T.T("pay_phone_instructions", b.Cfg.Payment.PhonePriceLabel, b.Cfg.Payment.PhoneNumber)
}

// HandlePhoneClaim records a user's "I topped up" claim and returns the
// confirmation for the user plus the approval request for operator chats.
func (b *BotFacade) HandlePhoneClaim(ctx context.Context, userID int64) (userText, adminText string, err error) {
	user, err := b.Users.Get(ctx, userID)
	if err != nil {
		return "", "", fmt.Errorf("load claimant: %w", err)
	}
	if _, err := b.Payments.RecordPhoneRequest(ctx, userID); err != nil {
		return "", "", fmt.Errorf("record phone request: %w", err)
	}
	return b.T.T("pay_phone_submitted"),
		b.T.T("admin_phone_request", displayName(user.Username), userID, b.Cfg.Payment.PhonePriceLabel),
		nil
}

// HandlePhoneDecision applies an operator verdict on a phone-topup claim and
// returns the notification for the user plus the receipt for the operator.
func (b *BotFacade) HandlePhoneDecision(ctx context.Context, targetID int64, approve bool) (userText, adminText string, err error) {
	if !approve {
		if err := b.Payments.RejectPhonePayment(ctx, targetID); err != nil {
			return "", "", fmt.Errorf("reject phone payment: %w", err)
		}
		return b.T.T("pay_phone_rejected"), b.T.T("admin_phone_rejected", targetID), nil
	}

	res, err := b.Payments.ConfirmPhonePayment(ctx, targetID)
	if err != nil {
		return "", "", fmt.Errorf("confirm phone payment: %w", err)
	}
	expires := res.ExpiresAt.Format(dateLayout)
	return b.T.T("pay_phone_confirmed", expires), b.T.T("admin_phone_confirmed", targetID, expires), nil
}
