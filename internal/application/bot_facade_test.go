//go:build !integration

package application_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"telegram-english-tutor/internal/application"
	"telegram-english-tutor/internal/config"
	"telegram-english-tutor/internal/domain"
	"telegram-english-tutor/internal/domain/model"
	"telegram-english-tutor/internal/domain/ports/adapter"
	"telegram-english-tutor/internal/domain/ports/repository"
	"telegram-english-tutor/internal/infra/i18n"
	"telegram-english-tutor/internal/usecase"
)

// ---- usecase mocks ----

type mockUserUC struct {
	user    *model.User
	created bool
	err     error
}

func (m *mockUserUC) Register(ctx context.Context, id int64, username string) (*model.User, bool, error) {
	if m.err != nil {
		return nil, false, m.err
	}
	return m.user, m.created, nil
}

func (m *mockUserUC) Get(ctx context.Context, id int64) (*model.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.user, nil
}

type mockConvoUC struct {
	res      *usecase.ConversationResult
	err      error
	lastText string
	resets   int
}

func (m *mockConvoUC) Respond(ctx context.Context, userID int64, text string) (*usecase.ConversationResult, error) {
	m.lastText = text
	if m.err != nil {
		return nil, m.err
	}
	return m.res, nil
}

func (m *mockConvoUC) RespondVoice(ctx context.Context, userID int64, audio []byte) (*usecase.ConversationResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.res, nil
}

func (m *mockConvoUC) Reset(ctx context.Context, userID int64) error {
	m.resets++
	return nil
}

type mockEntUC struct {
	ent *usecase.Entitlement
	err error
}

func (m *mockEntUC) Status(ctx context.Context, user *model.User) (*usecase.Entitlement, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.ent, nil
}

func (m *mockEntUC) CanSendMessage(ctx context.Context, user *model.User) (*usecase.Entitlement, error) {
	return m.Status(ctx, user)
}

type mockStreakUC struct {
	next int
}

func (m *mockStreakUC) Track(ctx context.Context, tx repository.Tx, user *model.User, now time.Time) (*usecase.StreakResult, error) {
	return &usecase.StreakResult{}, nil
}

func (m *mockStreakUC) NextMilestoneIn(days int) int { return m.next }

type mockOnboardingUC struct {
	step *usecase.QuizStep
	prog *usecase.QuizProgress
	err  error
}

func (m *mockOnboardingUC) StartVerification(ctx context.Context, userID int64, level model.Level) (*usecase.QuizStep, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.step, nil
}

func (m *mockOnboardingUC) StartExpress(ctx context.Context, userID int64) (*usecase.QuizStep, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.step, nil
}

func (m *mockOnboardingUC) Answer(ctx context.Context, user *model.User, questionIdx, answerIdx int) (*usecase.QuizProgress, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.prog, nil
}

type mockReferralUC struct {
	code    string
	outcome *usecase.ReferralOutcome
	err     error
}

func (m *mockReferralUC) EnsureCode(ctx context.Context, user *model.User) (string, error) {
	return m.code, nil
}

func (m *mockReferralUC) Activate(ctx context.Context, invitee *model.User, code string) (*usecase.ReferralOutcome, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.outcome, nil
}

type mockPaymentUC struct {
	activation  *usecase.ActivationResult
	activateErr error
	confirmed   []int64
	rejected    []int64
}

func (m *mockPaymentUC) ActivateSubscription(ctx context.Context, userID int64, method model.PaymentMethod, amount float64, currency, txID string) (*usecase.ActivationResult, error) {
	if m.activateErr != nil {
		return nil, m.activateErr
	}
	return m.activation, nil
}

func (m *mockPaymentUC) RecordPhoneRequest(ctx context.Context, userID int64) (*model.Payment, error) {
	return &model.Payment{UserID: userID, Status: model.PaymentStatusPending}, nil
}

func (m *mockPaymentUC) ConfirmPhonePayment(ctx context.Context, userID int64) (*usecase.ActivationResult, error) {
	m.confirmed = append(m.confirmed, userID)
	return m.activation, nil
}

func (m *mockPaymentUC) RejectPhonePayment(ctx context.Context, userID int64) error {
	m.rejected = append(m.rejected, userID)
	return nil
}

func (m *mockPaymentUC) ProcessChainTransfer(ctx context.Context, t adapter.TokenTransfer) (bool, error) {
	return false, nil
}

func (m *mockPaymentUC) History(ctx context.Context, userID int64, limit int) ([]*model.Payment, error) {
	return nil, nil
}

type mockStatsUC struct{ stats *usecase.Stats }

func (m *mockStatsUC) Snapshot(ctx context.Context) (*usecase.Stats, error) {
	return m.stats, nil
}

// ---- fixture ----

type facadeFixture struct {
	users    *mockUserUC
	convo    *mockConvoUC
	ents     *mockEntUC
	streaks  *mockStreakUC
	onb      *mockOnboardingUC
	refs     *mockReferralUC
	payments *mockPaymentUC
	stats    *mockStatsUC
	facade   *application.BotFacade
}

func newFacadeFixture(t *testing.T) *facadeFixture {
	t.Helper()
	translator, err := i18n.NewTranslator(i18n.LocalesFS, "ru")
	if err != nil {
		t.Fatalf("translator: %v", err)
	}
	cfg := &config.Config{}
	cfg.Bot.Username = "tutor_bot"
	cfg.Limits.FreeMessages = 25
	cfg.Limits.UpsellThreshold = 5
	cfg.Payment.StarsPrice = 100
	cfg.Payment.SubscriptionDays = 7
	cfg.Payment.PhoneNumber = "+7 900 000-00-00"
	cfg.Payment.PhonePriceLabel = "179 ₽"
	cfg.Referral.BonusMessages = 50
	cfg.Chain.PriceUSDT = 1.5
	cfg.Chain.Wallet = "0xWALLET"

	f := &facadeFixture{
		users:    &mockUserUC{user: &model.User{ID: 42, Username: "lena", OnboardingCompleted: true, Level: model.LevelA2}},
		convo:    &mockConvoUC{res: &usecase.ConversationResult{Text: "Great job!"}},
		ents:     &mockEntUC{ent: &usecase.Entitlement{Tier: usecase.TierFree, Limit: 25, MessagesLeft: 20}},
		streaks:  &mockStreakUC{next: 2},
		onb:      &mockOnboardingUC{},
		refs:     &mockReferralUC{code: "AB12CD"},
		payments: &mockPaymentUC{activation: &usecase.ActivationResult{ExpiresAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), Days: 7}},
		stats:    &mockStatsUC{stats: &usecase.Stats{TotalUsers: 10, ActiveSubscriptions: 3, ConversionPercent: 30, AverageMessages: 12.5}},
	}
	logger := zerolog.Nop()
	f.facade = application.NewBotFacade(
		f.users, f.convo, f.ents, f.streaks, f.onb, f.refs, f.payments, f.stats,
		translator, cfg, &logger,
	)
	return f
}

// ---- tests ----

func TestHandleStart(t *testing.T) {
	ctx := context.Background()

	t.Run("new user is welcomed and offered onboarding", func(t *testing.T) {
		f := newFacadeFixture(t)
		f.users.user.OnboardingCompleted = false
		f.users.created = true

		start, err := f.facade.HandleStart(ctx, 42, "lena", "")
		if err != nil {
			t.Fatalf("HandleStart: %v", err)
		}
		if !start.OfferOnboarding {
			t.Fatalf("expected onboarding offer for a new user")
		}
		if !strings.Contains(start.Text, "lena") {
			t.Fatalf("welcome should greet by name, got %q", start.Text)
		}
	})

	t.Run("quiz30 deep link launches the express quiz", func(t *testing.T) {
		f := newFacadeFixture(t)
		start, err := f.facade.HandleStart(ctx, 42, "lena", "quiz30")
		if err != nil {
			t.Fatalf("HandleStart: %v", err)
		}
		if !start.LaunchQuiz {
			t.Fatalf("expected LaunchQuiz for quiz30 payload")
		}
	})

	t.Run("referral payload prepends the bonus note", func(t *testing.T) {
		f := newFacadeFixture(t)
		f.refs.outcome = &usecase.ReferralOutcome{InviterID: 7, InviteeBonusMessages: 50}

		start, err := f.facade.HandleStart(ctx, 42, "lena", "REF_XYZ123")
		if err != nil {
			t.Fatalf("HandleStart: %v", err)
		}
		if !strings.Contains(start.Text, "+50") {
			t.Fatalf("expected bonus note in welcome, got %q", start.Text)
		}
	})

	t.Run("inviter cooldown is noted for a free invitee", func(t *testing.T) {
		f := newFacadeFixture(t)
		f.refs.outcome = &usecase.ReferralOutcome{InviterID: 7, InviteeBonusMessages: 50, InviterOnCooldown: true}

		start, err := f.facade.HandleStart(ctx, 42, "lena", "REF_XYZ123")
		if err != nil {
			t.Fatalf("HandleStart: %v", err)
		}
		if !strings.Contains(start.Text, "отложен") {
			t.Fatalf("expected cooldown note, got %q", start.Text)
		}
	})

	t.Run("ineligible inviter does not trigger the cooldown note", func(t *testing.T) {
		f := newFacadeFixture(t)
		f.refs.outcome = &usecase.ReferralOutcome{InviterID: 7, InviteeBonusDays: 7}

		start, err := f.facade.HandleStart(ctx, 42, "lena", "REF_XYZ123")
		if err != nil {
			t.Fatalf("HandleStart: %v", err)
		}
		if strings.Contains(start.Text, "отложен") {
			t.Fatalf("unexpected cooldown note for rewarded-free outcome: %q", start.Text)
		}
	})

	t.Run("self referral is reported, start still succeeds", func(t *testing.T) {
		f := newFacadeFixture(t)
		f.refs.err = domain.ErrSelfReferral

		start, err := f.facade.HandleStart(ctx, 42, "lena", "REF_OWN")
		if err != nil {
			t.Fatalf("HandleStart: %v", err)
		}
		if !strings.Contains(start.Text, "собственную") {
			t.Fatalf("expected self-referral note, got %q", start.Text)
		}
	})
}

func TestHandleText(t *testing.T) {
	ctx := context.Background()

	t.Run("gate errors become user-facing replies", func(t *testing.T) {
		cases := []struct {
			err      error
			contains string
			buy      bool
			onboard  bool
		}{
			{domain.ErrRateLimited, "Подожди", false, false},
			{domain.ErrOnboardingRequired, "онбординг", false, true},
			{domain.ErrMessageLimitReached, "подписку", true, false},
			{domain.ErrNotFound, "/start", false, false},
		}
		for _, tc := range cases {
			f := newFacadeFixture(t)
			f.convo.err = tc.err

			reply, err := f.facade.HandleText(ctx, 42, "hello")
			if err != nil {
				t.Fatalf("HandleText(%v): %v", tc.err, err)
			}
			if !strings.Contains(reply.Text, tc.contains) {
				t.Errorf("reply for %v should contain %q, got %q", tc.err, tc.contains, reply.Text)
			}
			if reply.OfferBuy != tc.buy || reply.OfferOnboarding != tc.onboard {
				t.Errorf("offers for %v = buy:%v onboard:%v", tc.err, reply.OfferBuy, reply.OfferOnboarding)
			}
		}
	})

	t.Run("streak extension and low quota append notes", func(t *testing.T) {
		f := newFacadeFixture(t)
		f.convo.res = &usecase.ConversationResult{
			Text:        "Nice!",
			Streak:      &usecase.StreakResult{Days: 3, Extended: true, RewardMilestone: 3, RewardMessages: 5},
			Entitlement: &usecase.Entitlement{Tier: usecase.TierFree, Limit: 30, MessagesLeft: 4},
		}

		reply, err := f.facade.HandleText(ctx, 42, "hello")
		if err != nil {
			t.Fatalf("HandleText: %v", err)
		}
		if !strings.Contains(reply.Text, "streak: 3 дня") {
			t.Errorf("expected streak note, got %q", reply.Text)
		}
		if !strings.Contains(reply.Text, "+5") {
			t.Errorf("expected milestone reward note, got %q", reply.Text)
		}
		if !strings.Contains(reply.Text, "Осталось 4") || !reply.OfferBuy {
			t.Errorf("expected upsell warning, got %q buy=%v", reply.Text, reply.OfferBuy)
		}
	})

	t.Run("degraded turn passes through without notes", func(t *testing.T) {
		f := newFacadeFixture(t)
		f.convo.res = &usecase.ConversationResult{Text: "Sorry, try again", Degraded: true}

		reply, err := f.facade.HandleText(ctx, 42, "hello")
		if err != nil {
			t.Fatalf("HandleText: %v", err)
		}
		if reply.Text != "Sorry, try again" || reply.OfferBuy {
			t.Fatalf("degraded reply should be bare, got %+v", reply)
		}
	})
}

func TestHandleVoice_PrependsTranscript(t *testing.T) {
	f := newFacadeFixture(t)
	f.convo.res = &usecase.ConversationResult{Text: "Well said!", Transcript: "hello teacher"}

	reply, err := f.facade.HandleVoice(context.Background(), 42, []byte("ogg"))
	if err != nil {
		t.Fatalf("HandleVoice: %v", err)
	}
	if !strings.Contains(reply.Text, "«hello teacher»") {
		t.Errorf("expected transcript echo, got %q", reply.Text)
	}
	if reply.Transcript != "hello teacher" {
		t.Errorf("Transcript = %q", reply.Transcript)
	}
}

func TestHandleTopicStarter_ResetsFirst(t *testing.T) {
	f := newFacadeFixture(t)

	if _, err := f.facade.HandleTopicStarter(context.Background(), 42, "What did you do today?"); err != nil {
		t.Fatalf("HandleTopicStarter: %v", err)
	}
	if f.convo.resets != 1 {
		t.Errorf("resets = %d, want 1", f.convo.resets)
	}
	if f.convo.lastText != "What did you do today?" {
		t.Errorf("starter not forwarded, got %q", f.convo.lastText)
	}
}

func TestHandleStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("free tier shows counters", func(t *testing.T) {
		f := newFacadeFixture(t)
		f.users.user.MessageCount = 5
		f.users.user.StreakDays = 2

		text, err := f.facade.HandleStatus(ctx, 42)
		if err != nil {
			t.Fatalf("HandleStatus: %v", err)
		}
		if !strings.Contains(text, "5/25") || !strings.Contains(text, "Осталось: 20") {
			t.Errorf("free status counters missing: %q", text)
		}
	})

	t.Run("premium shows expiry and referral code", func(t *testing.T) {
		f := newFacadeFixture(t)
		f.ents.ent = &usecase.Entitlement{Tier: usecase.TierPremium, ExpiresAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}

		text, err := f.facade.HandleStatus(ctx, 42)
		if err != nil {
			t.Fatalf("HandleStatus: %v", err)
		}
		if !strings.Contains(text, "01.03.2026") || !strings.Contains(text, "AB12CD") {
			t.Errorf("premium status missing fields: %q", text)
		}
	})

	t.Run("exhausted quota gets its own card", func(t *testing.T) {
		f := newFacadeFixture(t)
		f.users.user.MessageCount = 25
		f.ents.ent = &usecase.Entitlement{Tier: usecase.TierFree, Limit: 25, MessagesLeft: 0}

		text, err := f.facade.HandleStatus(ctx, 42)
		if err != nil {
			t.Fatalf("HandleStatus: %v", err)
		}
		if !strings.Contains(text, "закончились") {
			t.Errorf("expected exhausted card, got %q", text)
		}
	})
}

func TestHandleQuizAnswer(t *testing.T) {
	ctx := context.Background()

	t.Run("verification pass renders level and badge", func(t *testing.T) {
		f := newFacadeFixture(t)
		f.onb.prog = &usecase.QuizProgress{
			Correct: true,
			Outcome: &usecase.QuizOutcome{
				Kind: usecase.QuizKindVerify, Passed: true, Score: 3, Total: 3,
				Level: model.LevelB1, Badge: usecase.BadgeFor(model.LevelB1),
			},
		}

		reply, err := f.facade.HandleQuizAnswer(ctx, 42, false, 2, 0)
		if err != nil {
			t.Fatalf("HandleQuizAnswer: %v", err)
		}
		if !reply.Done || !reply.Passed {
			t.Fatalf("expected passed outcome, got %+v", reply)
		}
		if !strings.Contains(reply.Text, "B1") || !strings.Contains(reply.Text, "🦁") {
			t.Errorf("result should name level and badge: %q", reply.Text)
		}
	})

	t.Run("verification failure offers a retry at the same tier", func(t *testing.T) {
		f := newFacadeFixture(t)
		f.onb.prog = &usecase.QuizProgress{
			Outcome: &usecase.QuizOutcome{Kind: usecase.QuizKindVerify, Score: 1, Total: 3, Level: model.LevelB2},
		}

		reply, err := f.facade.HandleQuizAnswer(ctx, 42, false, 2, 1)
		if err != nil {
			t.Fatalf("HandleQuizAnswer: %v", err)
		}
		if reply.RetryLevel != model.LevelB2 {
			t.Errorf("RetryLevel = %q, want B2", reply.RetryLevel)
		}
		if !strings.Contains(reply.Text, "1 / 3") {
			t.Errorf("failure text should show the score: %q", reply.Text)
		}
	})

	t.Run("express result carries a share link", func(t *testing.T) {
		f := newFacadeFixture(t)
		f.onb.prog = &usecase.QuizProgress{
			Correct: true, ChosenText: "went",
			Outcome: &usecase.QuizOutcome{
				Kind: usecase.QuizKindExpress, Score: 5, Total: 5,
				Level: model.LevelB2, Badge: usecase.BadgeFor(model.LevelB2),
			},
		}

		reply, err := f.facade.HandleQuizAnswer(ctx, 42, true, 4, 0)
		if err != nil {
			t.Fatalf("HandleQuizAnswer: %v", err)
		}
		if !strings.Contains(reply.ShareURL, "t.me/share/url") || !strings.Contains(reply.ShareURL, "quiz30") {
			t.Errorf("ShareURL = %q", reply.ShareURL)
		}
		if !reply.OfferOnboarding {
			t.Errorf("express result should offer the full test")
		}
	})

	t.Run("stale tap is dropped silently", func(t *testing.T) {
		f := newFacadeFixture(t)
		f.onb.err = domain.ErrInvalidArgument

		reply, err := f.facade.HandleQuizAnswer(ctx, 42, false, 0, 0)
		if err != nil {
			t.Fatalf("HandleQuizAnswer: %v", err)
		}
		if !reply.Stale {
			t.Errorf("expected stale reply, got %+v", reply)
		}
	})

	t.Run("expired session points back to onboarding", func(t *testing.T) {
		f := newFacadeFixture(t)
		f.onb.err = domain.ErrNotFound

		reply, err := f.facade.HandleQuizAnswer(ctx, 42, false, 0, 0)
		if err != nil {
			t.Fatalf("HandleQuizAnswer: %v", err)
		}
		if !reply.Done || !reply.OfferOnboarding {
			t.Errorf("expected expiry notice with onboarding offer, got %+v", reply)
		}
	})
}

func TestPayments(t *testing.T) {
	ctx := context.Background()

	t.Run("stars payment reports the new expiry", func(t *testing.T) {
		f := newFacadeFixture(t)
		text, err := f.facade.HandleSuccessfulPayment(ctx, 42, "charge-1", 100)
		if err != nil {
			t.Fatalf("HandleSuccessfulPayment: %v", err)
		}
		if !strings.Contains(text, "01.03.2026") {
			t.Errorf("expected expiry date, got %q", text)
		}
	})

	t.Run("duplicate charge acknowledges with the current expiry", func(t *testing.T) {
		f := newFacadeFixture(t)
		f.payments.activateErr = domain.ErrAlreadyExists
		f.ents.ent = &usecase.Entitlement{Tier: usecase.TierPremium, ExpiresAt: time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)}

		text, err := f.facade.HandleSuccessfulPayment(ctx, 42, "charge-1", 100)
		if err != nil {
			t.Fatalf("HandleSuccessfulPayment: %v", err)
		}
		if !strings.Contains(text, "02.04.2026") {
			t.Errorf("expected existing expiry, got %q", text)
		}
	})

	t.Run("phone decision notifies both sides", func(t *testing.T) {
		f := newFacadeFixture(t)
		userText, adminText, err := f.facade.HandlePhoneDecision(ctx, 42, true)
		if err != nil {
			t.Fatalf("HandlePhoneDecision: %v", err)
		}
		if len(f.payments.confirmed) != 1 || f.payments.confirmed[0] != 42 {
			t.Fatalf("confirm not forwarded: %v", f.payments.confirmed)
		}
		if !strings.Contains(userText, "подтверждена") || !strings.Contains(adminText, "42") {
			t.Errorf("texts = %q / %q", userText, adminText)
		}
	})

	t.Run("usdt menu includes price and wallet", func(t *testing.T) {
		f := newFacadeFixture(t)
		text := f.facade.HandleUSDTMenu()
		if !strings.Contains(text, "1.5") || !strings.Contains(text, "0xWALLET") {
			t.Errorf("usdt menu = %q", text)
		}
	})
}

func TestHandleStats_ListsLevels(t *testing.T) {
	f := newFacadeFixture(t)
	f.stats.stats.UsersByLevel = map[string]int{string(model.LevelA1): 4, string(model.LevelB1): 2}

	text, err := f.facade.HandleStats(context.Background())
	if err != nil {
		t.Fatalf("HandleStats: %v", err)
	}
	if !strings.Contains(text, "Всего пользователей: 10") || !strings.Contains(text, "A1: 4") {
		t.Errorf("stats text = %q", text)
	}
}
