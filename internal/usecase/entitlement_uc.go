package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"telegram-english-tutor/internal/domain"
	"telegram-english-tutor/internal/domain/model"
	"telegram-english-tutor/internal/domain/ports/repository"
)

// Tier is the effective access class of a user for one message.
type Tier string

const (
	TierVIP     Tier = "vip"     // whitelisted operator account, never limited
	TierPremium Tier = "premium" // active subscription
	TierFree    Tier = "free"    // counting against the free allowance
)

// Entitlement is the answer to "may this user send a message right now,
// and what should we tell them about it".
type Entitlement struct {
	Tier         Tier
	Limit        int       // total free allowance (base + bonus), free tier only
	MessagesLeft int       // remaining allowance, free tier only
	ExpiresAt    time.Time // subscription expiry, premium only
}

var _ EntitlementUseCase = (*entitlementUC)(nil)

type EntitlementUseCase interface {
	Status(ctx context.Context, user *model.User) (*Entitlement, error)
	CanSendMessage(ctx context.Context, user *model.User) (*Entitlement, error)
}

type entitlementUC struct {
	subs      repository.SubscriptionRepository
	whitelist map[string]struct{}
	baseFree  int
	log       *zerolog.Logger
}

func NewEntitlementUseCase(subs repository.SubscriptionRepository, whitelist []string, baseFree int, logger *zerolog.Logger) *entitlementUC {
	wl := make(map[string]struct{}, len(whitelist))
	for _, u := range whitelist {
		if u != "" {
			wl[u] = struct{}{}
		}
	}
	return &entitlementUC{subs: subs, whitelist: wl, baseFree: baseFree, log: logger}
}

// Status resolves the user's tier: whitelist wins over subscription, which
// wins over the free counter.
func (e *entitlementUC) Status(ctx context.Context, user *model.User) (*Entitlement, error) {
	if user == nil {
		return nil, domain.ErrInvalidArgument
	}
	if _, ok := e.whitelist[user.Username]; ok {
		return &Entitlement{Tier: TierVIP}, nil
	}

	sub, err := e.subs.Find(ctx, repository.NoTX, user.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	now := time.Now()
	if sub.Active(now) {
		return &Entitlement{Tier: TierPremium, ExpiresAt: sub.ExpiresAt}, nil
	}

	return &Entitlement{
		Tier:         TierFree,
		Limit:        user.TotalLimit(e.baseFree),
		MessagesLeft: user.MessagesLeft(e.baseFree),
	}, nil
}

// CanSendMessage returns the entitlement when the message may proceed, or
// domain.ErrMessageLimitReached when the free allowance is spent.
func (e *entitlementUC) CanSendMessage(ctx context.Context, user *model.User) (*Entitlement, error) {
	ent, err := e.Status(ctx, user)
	if err != nil {
		return nil, err
	}
	if ent.Tier == TierFree && ent.MessagesLeft <= 0 {
		e.log.Debug().Int64("user_id", user.ID).Int("limit", ent.Limit).Msg("free message limit reached")
		return ent, domain.ErrMessageLimitReached
	}
	return ent, nil
}
