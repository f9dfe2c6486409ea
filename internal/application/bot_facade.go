package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"telegram-english-tutor/internal/config"
	"telegram-english-tutor/internal/domain"
	"telegram-english-tutor/internal/domain/model"
	"telegram-english-tutor/internal/infra/i18n"
	"telegram-english-tutor/internal/usecase"
)

const dateLayout = "02.01.2006"

// BotFacade composes usecases into high-level bot interactions and owns all
// user-facing Russian copy. The Telegram adapter stays a thin transport: it
// forwards updates here and renders the returned texts and button hints.
type BotFacade struct {
	Users        usecase.UserUseCase
	Convo        usecase.ConversationUseCase
	Entitlements usecase.EntitlementUseCase
	Streaks      usecase.StreakUseCase
	Onboarding   usecase.OnboardingUseCase
	Referrals    usecase.ReferralUseCase
	Payments     usecase.PaymentUseCase
	Stats        usecase.StatsUseCase

	T   *i18n.Translator
	Cfg *config.Config
	Log *zerolog.Logger
}

func NewBotFacade(
	users usecase.UserUseCase,
	convo usecase.ConversationUseCase,
	entitlements usecase.EntitlementUseCase,
	streaks usecase.StreakUseCase,
	onboarding usecase.OnboardingUseCase,
	referrals usecase.ReferralUseCase,
	payments usecase.PaymentUseCase,
	stats usecase.StatsUseCase,
	translator *i18n.Translator,
	cfg *config.Config,
	logger *zerolog.Logger,
) *BotFacade {
	return &BotFacade{
		Users:        users,
		Convo:        convo,
		Entitlements: entitlements,
		Streaks:      streaks,
		Onboarding:   onboarding,
		Referrals:    referrals,
		Payments:     payments,
		Stats:        stats,
		T:            translator,
		Cfg:          cfg,
		Log:          logger,
	}
}

// StartReply tells the adapter what /start produced and which follow-up
// surface to show.
type StartReply struct {
	Text            string
	OfferOnboarding bool
	LaunchQuiz      bool // deep link quiz30: jump straight into the express quiz
}

// HandleStart registers or refreshes the user and resolves /start payloads:
// REF_<code> activates a referral, quiz30 launches the express quiz.
func (b *BotFacade) HandleStart(ctx context.Context, tgID int64, username, payload string) (*StartReply, error) {
	user, created, err := b.Users.Register(ctx, tgID, username)
	if err != nil {
		return nil, fmt.Errorf("register user: %w", err)
	}

	if payload == "quiz30" {
		return &StartReply{LaunchQuiz: true}, nil
	}

	var bonus string
	if code, ok := strings.CutPrefix(payload, "REF_"); ok && code != "" {
		bonus = b.activateReferral(ctx, user, code)
	}

	name := displayName(username)
	var text string
	if created || !user.OnboardingCompleted {
		text = b.T.T("welcome_new", name)
	} else {
		text = b.T.T("welcome_back", name, b.Cfg.Limits.FreeMessages, b.Cfg.Payment.StarsPrice)
	}
	if bonus != "" {
		text = bonus + "\n\n" + text
	}
	return &StartReply{Text: text, OfferOnboarding: !user.OnboardingCompleted}, nil
}

func (b *BotFacade) activateReferral(ctx context.Context, user *model.User, code string) string {
	out, err := b.Referrals.Activate(ctx, user, code)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrReferralCodeNotFound):
		return b.T.T("referral_not_found")
	case errors.Is(err, domain.ErrSelfReferral):
		return b.T.T("referral_self")
	case errors.Is(err, domain.ErrInviterNotEligible):
		return b.T.T("referral_inviter_not_eligible")
	case errors.Is(err, domain.ErrReferralAlreadyActivated):
		return b.T.T("referral_already")
	default:
		b.Log.Error().Err(err).Int64("user_id", user.ID).Msg("referral activation failed")
		return b.T.T("error_generic")
	}

	var text string
	switch {
	case out.InviteeVIP:
		return b.T.T("referral_bonus_vip")
	case out.InviteeBonusDays > 0:
		text = b.T.T("referral_bonus_days", out.InviteeBonusDays)
	default:
		text = b.T.T("referral_bonus_messages", out.InviteeBonusMessages)
	}
	if out.InviterOnCooldown {
		text += b.T.T("referral_cooldown_note")
	}
	return text
}

// TurnReply is one rendered conversation turn plus the surfaces the adapter
// should offer alongside it.
type TurnReply struct {
	Text            string
	SpeechText      string // English-only text for TTS, empty when nothing to voice
	Transcript      string // voice turns only
	QuickReplies    []string
	OfferOnboarding bool
	OfferBuy        bool
}

func (b *BotFacade) HandleText(ctx context.Context, userID int64, text string) (*TurnReply, error) {
	res, err := b.Convo.Respond(ctx, userID, text)
	if err != nil {
		return b.turnError(err)
	}
	return b.renderTurn(res), nil
}

func (b *BotFacade) HandleVoice(ctx context.Context, userID int64, audio []byte) (*TurnReply, error) {
	res, err := b.Convo.RespondVoice(ctx, userID, audio)
	if err != nil {
		return b.turnError(err)
	}
	reply := b.renderTurn(res)
	reply.Transcript = res.Transcript
	reply.Text = b.T.T("voice_heard", res.Transcript) + "\n\n" + reply.Text
	return reply, nil
}

// HandleTopicStarter feeds a picked conversation starter through the normal
// pipeline after wiping prior history, so the dialogue begins on the topic.
func (b *BotFacade) HandleTopicStarter(ctx context.Context, userID int64, phrase string) (*TurnReply, error) {
	if err := b.Convo.Reset(ctx, userID); err != nil {
		return nil, fmt.Errorf("reset before topic: %w", err)
	}
	return b.HandleText(ctx, userID, phrase)
}

func (b *BotFacade) renderTurn(res *usecase.ConversationResult) *TurnReply {
	reply := &TurnReply{
		Text:         res.Text,
		SpeechText:   res.SpeechText,
		QuickReplies: res.QuickReplies,
	}
	if res.Degraded {
		return reply
	}
	if s := res.Streak; s != nil && s.Extended {
		note := b.T.T("streak_note", s.Days, ruDays(s.Days))
		switch {
		case s.RewardMessages > 0:
			note += b.T.T("streak_reward_messages", s.RewardMilestone, s.RewardMessages)
		case s.RewardPremiumDays > 0:
			note += b.T.T("streak_reward_premium", s.RewardMilestone, s.RewardPremiumDays)
		case s.NextMilestoneIn > 0:
			note += b.T.T("streak_progress", s.NextMilestoneIn)
		}
		reply.Text += "\n\n" + note
	}
	if ent := res.Entitlement; ent != nil && ent.Tier == usecase.TierFree &&
		ent.MessagesLeft > 0 && ent.MessagesLeft <= b.Cfg.Limits.UpsellThreshold {
		reply.Text += "\n\n" + b.T.T("limit_warning", ent.MessagesLeft)
		reply.OfferBuy = true
	}
	return reply
}

// turnError converts expected gate failures into user-facing replies;
// anything else propagates.
func (b *BotFacade) turnError(err error) (*TurnReply, error) {
	switch {
	case errors.Is(err, domain.ErrRateLimited):
		return &TurnReply{Text: b.T.T("rate_limited")}, nil
	case errors.Is(err, domain.ErrOnboardingRequired):
		return &TurnReply{Text: b.T.T("onboarding_required"), OfferOnboarding: true}, nil
	case errors.Is(err, domain.ErrMessageLimitReached):
		return &TurnReply{Text: b.T.T("limit_reached"), OfferBuy: true}, nil
	case errors.Is(err, domain.ErrEmptyTranscript):
		return &TurnReply{Text: b.T.T("voice_not_understood")}, nil
	case errors.Is(err, domain.ErrNotFound):
		return &TurnReply{Text: b.T.T("user_not_found")}, nil
	}
	return nil, err
}

func (b *BotFacade) HandleReset(ctx context.Context, userID int64) (string, error) {
	if err := b.Convo.Reset(ctx, userID); err != nil {
		return "", fmt.Errorf("reset conversation: %w", err)
	}
	return b.T.T("reset_done"), nil
}

func (b *BotFacade) HandleHelp() string     { return b.T.T("help") }
func (b *BotFacade) HandleMainMenu() string { return b.T.T("main_menu") }

// HandleStatus renders the subscription/streak card for one user.
func (b *BotFacade) HandleStatus(ctx context.Context, userID int64) (string, error) {
	user, err := b.Users.Get(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return b.T.T("user_not_found"), nil
	}
	if err != nil {
		return "", err
	}
	ent, err := b.Entitlements.Status(ctx, user)
	if err != nil {
		return "", err
	}

	badge := "—"
	if user.OnboardingCompleted {
		bdg := usecase.BadgeFor(user.Level.OrDefault())
		badge = bdg.Emoji + " " + bdg.Name
	}
	suffix := b.T.T("streak_all_rewards")
	if next := b.Streaks.NextMilestoneIn(user.StreakDays); next > 0 {
		suffix = b.T.T("streak_next_reward", next)
	}

	switch ent.Tier {
	case usecase.TierVIP:
		code, _ := b.Referrals.EnsureCode(ctx, user)
		return b.T.T("status_vip", badge, user.StreakDays, suffix, code), nil
	case usecase.TierPremium:
		code, _ := b.Referrals.EnsureCode(ctx, user)
		return b.T.T("status_premium", badge, user.StreakDays, suffix, ent.ExpiresAt.Format(dateLayout), code), nil
	default:
		if ent.MessagesLeft == 0 {
			return b.T.T("status_exhausted", user.MessageCount, ent.Limit), nil
		}
		return b.T.T("status_free", badge, user.StreakDays, suffix, user.MessageCount, ent.Limit, ent.MessagesLeft), nil
	}
}

// HandleStats renders the operator dashboard. Access control is the
// adapter's job.
func (b *BotFacade) HandleStats(ctx context.Context) (string, error) {
	snap, err := b.Stats.Snapshot(ctx)
	if err != nil {
		return "", fmt.Errorf("stats snapshot: %w", err)
	}
	text := b.T.T("stats", snap.TotalUsers, snap.ActiveSubscriptions, snap.ConversionPercent, snap.AverageMessages)
	if len(snap.UsersByLevel) > 0 {
		var sb strings.Builder
		sb.WriteString(text)
		sb.WriteString("\n🎓 По уровням:\n")
		for _, lvl := range model.Levels {
			if n := snap.UsersByLevel[string(lvl)]; n > 0 {
				sb.WriteString(fmt.Sprintf("  %s: %d\n", lvl, n))
			}
		}
		text = strings.TrimRight(sb.String(), "\n")
	}
	return text, nil
}

func (b *BotFacade) HandleReferralInfo(ctx context.Context, userID int64) (string, error) {
	user, err := b.Users.Get(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return b.T.T("user_not_found"), nil
	}
	if err != nil {
		return "", err
	}
	code, err := b.Referrals.EnsureCode(ctx, user)
	if err != nil {
		return "", fmt.Errorf("ensure referral code: %w", err)
	}
	return b.T.T("referral_show", code) + "\n" + b.referralLink(code), nil
}

func (b *BotFacade) HandleInvite(ctx context.Context, userID int64) (string, error) {
	user, err := b.Users.Get(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return b.T.T("user_not_found"), nil
	}
	if err != nil {
		return "", err
	}
	code, err := b.Referrals.EnsureCode(ctx, user)
	if err != nil {
		return "", fmt.Errorf("ensure referral code: %w", err)
	}
	return b.T.T("invite_text", b.referralLink(code), b.Cfg.Referral.BonusMessages), nil
}

func (b *BotFacade) referralLink(code string) string {
	return fmt.Sprintf("https://t.me/%s?start=REF_%s", b.Cfg.Bot.Username, code)
}

func displayName(username string) string {
	if username == "" {
		return "друг"
	}
	return username
}

// ruDays picks the Russian plural form for a day count.
func ruDays(n int) string {
	n = n % 100
	if n >= 11 && n <= 14 {
		return "дней"
	}
	switch n % 10 {
	case 1:
		return "день"
	case 2, 3, 4:
		return "дня"
	default:
		return "дней"
	}
}
