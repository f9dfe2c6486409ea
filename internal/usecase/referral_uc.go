package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"telegram-english-tutor/internal/config"
	"telegram-english-tutor/internal/domain"
	"telegram-english-tutor/internal/domain/model"
	"telegram-english-tutor/internal/domain/ports/repository"
	"telegram-english-tutor/internal/infra/metrics"
)

const referralCodeLen = 6

// ReferralOutcome reports what bonuses an activation produced, for the
// surface to phrase the confirmation.
type ReferralOutcome struct {
	InviterID            int64
	InviteeVIP           bool
	InviteeBonusMessages int
	InviteeBonusDays     int
	InviterRewarded      bool
	InviterOnCooldown    bool // eligible inviter, reward withheld this window
}

var _ ReferralUseCase = (*referralUC)(nil)

type ReferralUseCase interface {
	EnsureCode(ctx context.Context, user *model.User) (string, error)
	Activate(ctx context.Context, invitee *model.User, code string) (*ReferralOutcome, error)
}

type referralUC struct {
	users     repository.UserRepository
	refs      repository.ReferralRepository
	subs      repository.SubscriptionRepository
	tm        repository.TransactionManager
	cfg       config.ReferralConfig
	whitelist map[string]struct{}
	log       *zerolog.Logger
}

func NewReferralUseCase(
	users repository.UserRepository,
	refs repository.ReferralRepository,
	subs repository.SubscriptionRepository,
	tm repository.TransactionManager,
	cfg config.ReferralConfig,
	whitelist []string,
	logger *zerolog.Logger,
) *referralUC {
	wl := make(map[string]struct{}, len(whitelist))
	for _, u := range whitelist {
		if u != "" {
			wl[u] = struct{}{}
		}
	}
	return &referralUC{
		users:     users,
		refs:      refs,
		subs:      subs,
		tm:        tm,
		cfg:       cfg,
		whitelist: wl,
		log:       logger,
	}
}

// EnsureCode returns the user's referral code, minting one on first use.
// Codes are short ULID suffixes (Crockford base32, no ambiguous letters);
// a collision with an existing code just rolls a new one.
func (r *referralUC) EnsureCode(ctx context.Context, user *model.User) (string, error) {
	if user == nil {
		return "", domain.ErrInvalidArgument
	}
	if user.ReferralCode != "" {
		return user.ReferralCode, nil
	}

	for attempt := 0; attempt < 5; attempt++ {
		code := r.newCode()
		_, err := r.users.FindByReferralCode(ctx, repository.NoTX, code)
		if err == nil {
			continue // taken
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return "", err
		}
		if err := r.users.SetReferralCode(ctx, repository.NoTX, user.ID, code); err != nil {
			return "", err
		}
		user.ReferralCode = code
		return code, nil
	}
	return "", domain.ErrAlreadyExists
}

func (r *referralUC) newCode() string {
	id := ulid.Make().String()
	return id[len(id)-referralCodeLen:]
}

// Activate applies a referral code for the invitee. The whole flow runs in
// one transaction: the unique activation row, the invitee bonus and the
// inviter reward land together or not at all.
func (r *referralUC) Activate(ctx context.Context, invitee *model.User, code string) (*ReferralOutcome, error) {
	if invitee == nil || code == "" {
		return nil, domain.ErrInvalidArgument
	}

	inviter, err := r.users.FindByReferralCode(ctx, repository.NoTX, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrReferralCodeNotFound
		}
		return nil, err
	}
	if inviter.ID == invitee.ID {
		return nil, domain.ErrSelfReferral
	}

	now := time.Now()
	inviterVIP := r.isVIP(inviter.Username)
	inviterSub, err := r.subs.Find(ctx, repository.NoTX, inviter.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if !inviterVIP && !inviterSub.Active(now) {
		return nil, domain.ErrInviterNotEligible
	}

	out := &ReferralOutcome{InviterID: inviter.ID}
	err = r.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := r.refs.Add(ctx, tx, &model.Referral{
			InviterID:    inviter.ID,
			InviteeID:    invitee.ID,
			ReferralCode: code,
			CreatedAt:    now,
		}); err != nil {
			return err
		}

		// Invitee bonus: premium users get days, free users get messages,
		// VIPs need nothing.
		switch {
		case r.isVIP(invitee.Username):
			out.InviteeVIP = true
		default:
			inviteeSub, err := r.subs.Find(ctx, tx, invitee.ID)
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				return err
			}
			if inviteeSub.Active(now) {
				if err := r.subs.Upsert(ctx, tx, invitee.ID, inviteeSub.ExtendedBy(now, r.cfg.BonusDays)); err != nil {
					return err
				}
				out.InviteeBonusDays = r.cfg.BonusDays
				metrics.ObserveSubscriptionDays("referral", r.cfg.BonusDays)
			} else {
				if err := r.users.AddBonusMessages(ctx, tx, invitee.ID, r.cfg.BonusMessages); err != nil {
					return err
				}
				invitee.BonusMessages += r.cfg.BonusMessages
				out.InviteeBonusMessages = r.cfg.BonusMessages
			}
		}

		// Inviter reward: subscribed non-VIPs get days, at most once per
		// cooldown window.
		if !inviterVIP && inviterSub.Active(now) {
			if !r.inviterOffCooldown(inviter, now) {
				out.InviterOnCooldown = true
				return nil
			}
			if err := r.subs.Upsert(ctx, tx, inviter.ID, inviterSub.ExtendedBy(now, r.cfg.BonusDays)); err != nil {
				return err
			}
			if err := r.users.TouchReferralBonus(ctx, tx, inviter.ID); err != nil {
				return err
			}
			out.InviterRewarded = true
			metrics.ObserveSubscriptionDays("referral", r.cfg.BonusDays)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.ObserveReferralActivated()
	r.log.Info().Int64("inviter_id", inviter.ID).Int64("invitee_id", invitee.ID).Msg("referral activated")
	return out, nil
}

func (r *referralUC) inviterOffCooldown(inviter *model.User, now time.Time) bool {
	if inviter.LastReferralBonusAt == nil {
		return true
	}
	return now.Sub(*inviter.LastReferralBonusAt) >= r.cfg.Cooldown
}

func (r *referralUC) isVIP(username string) bool {
	_, ok := r.whitelist[username]
	return ok
}
