//go:build !integration

package usecase

import (
	"context"
	"errors"
	"testing"

	"telegram-english-tutor/internal/config"
	"telegram-english-tutor/internal/domain"
	"telegram-english-tutor/internal/domain/model"
	"telegram-english-tutor/internal/domain/ports/repository"
)

func newOnboardingFixture() (*onboardingUC, *memUserRepo, *memQuizRepo) {
	log := newTestLogger()
	users := newMemUserRepo()
	sessions := newMemQuizRepo()
	refs := NewReferralUseCase(users, newMemReferralRepo(), newMemSubRepo(), newMockTxManager(),
		config.ReferralConfig{BonusMessages: 50, BonusDays: 1}, nil, log)
	return NewOnboardingUseCase(users, sessions, refs, log), users, sessions
}

// answerAll walks a session answering every question, correctly when right
// is true.
func answerAll(t *testing.T, uc *onboardingUC, sessions *memQuizRepo, user *model.User, right bool) *QuizProgress {
	t.Helper()
	ctx := context.Background()
	var last *QuizProgress
	for {
		s, err := sessions.GetSession(ctx, user.ID)
		if err != nil {
			t.Fatalf("session lost mid-quiz: %v", err)
		}
		q := s.Questions[s.Current]
		answer := q.Correct
		if !right {
			answer = (q.Correct + 1) % len(q.Options)
		}
		last, err = uc.Answer(ctx, user, s.Current, answer)
		if err != nil {
			t.Fatalf("Answer failed: %v", err)
		}
		if last.Outcome != nil {
			return last
		}
	}
}

func TestOnboardingUC_Verification(t *testing.T) {
	ctx := context.Background()

	t.Run("start draws three questions for the chosen level", func(t *testing.T) {
		uc, users, sessions := newOnboardingFixture()
		users.seed(&model.User{ID: 1})

		step, err := uc.StartVerification(ctx, 1, model.LevelB1)
		if err != nil {
			t.Fatalf("StartVerification failed: %v", err)
		}
		if step.Index != 0 || step.Total != 3 {
			t.Errorf("unexpected first step: %+v", step)
		}
		s, err := sessions.GetSession(ctx, 1)
		if err != nil {
			t.Fatalf("session not stored: %v", err)
		}
		if s.Kind != QuizKindVerify || s.Level != "B1" || len(s.Questions) != 3 {
			t.Errorf("unexpected session: %+v", s)
		}
	})

	t.Run("invalid level is rejected", func(t *testing.T) {
		uc, _, _ := newOnboardingFixture()
		if _, err := uc.StartVerification(ctx, 1, model.Level("C2")); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("all correct passes and completes onboarding", func(t *testing.T) {
		uc, users, sessions := newOnboardingFixture()
		u := &model.User{ID: 1}
		users.seed(u)
		if _, err := uc.StartVerification(ctx, 1, model.LevelA2); err != nil {
			t.Fatalf("StartVerification failed: %v", err)
		}

		prog := answerAll(t, uc, sessions, u, true)
		out := prog.Outcome
		if !out.Passed || out.Score != 3 {
			t.Fatalf("expected a 3/3 pass, got %+v", out)
		}
		if out.Level != model.LevelA2 || out.Badge.Name != "Curious Fox" {
			t.Errorf("unexpected level/badge: %+v", out)
		}
		if out.ReferralCode == "" {
			t.Error("expected a minted referral code")
		}
		stored, _ := users.FindByID(ctx, nil, 1)
		if !stored.OnboardingCompleted || stored.Level != model.LevelA2 {
			t.Errorf("completion not persisted: %+v", stored)
		}
		if _, err := sessions.GetSession(ctx, 1); !errors.Is(err, domain.ErrNotFound) {
			t.Error("session should be cleared after completion")
		}
	})

	t.Run("two of three is enough to pass", func(t *testing.T) {
		uc, users, sessions := newOnboardingFixture()
		u := &model.User{ID: 1}
		users.seed(u)
		if _, err := uc.StartVerification(ctx, 1, model.LevelA1); err != nil {
			t.Fatalf("StartVerification failed: %v", err)
		}

		// Miss the first, hit the rest.
		s, _ := sessions.GetSession(ctx, 1)
		wrong := (s.Questions[0].Correct + 1) % len(s.Questions[0].Options)
		if _, err := uc.Answer(ctx, u, 0, wrong); err != nil {
			t.Fatalf("Answer failed: %v", err)
		}
		prog := answerAll(t, uc, sessions, u, true)
		if !prog.Outcome.Passed || prog.Outcome.Score != 2 {
			t.Fatalf("expected a 2/3 pass, got %+v", prog.Outcome)
		}
	})

	t.Run("failing leaves onboarding incomplete and allows a retry", func(t *testing.T) {
		uc, users, sessions := newOnboardingFixture()
		u := &model.User{ID: 1}
		users.seed(u)
		if _, err := uc.StartVerification(ctx, 1, model.LevelB2); err != nil {
			t.Fatalf("StartVerification failed: %v", err)
		}

		prog := answerAll(t, uc, sessions, u, false)
		if prog.Outcome.Passed {
			t.Fatal("expected failure")
		}
		stored, _ := users.FindByID(ctx, nil, 1)
		if stored.OnboardingCompleted {
			t.Error("failed test must not complete onboarding")
		}

		// Retry opens a fresh session.
		if _, err := uc.StartVerification(ctx, 1, model.LevelB2); err != nil {
			t.Fatalf("retry failed: %v", err)
		}
		s, err := sessions.GetSession(ctx, 1)
		if err != nil || s.Current != 0 || s.Score != 0 {
			t.Errorf("expected a fresh session, got %+v (%v)", s, err)
		}
	})

	t.Run("stale question index is dropped", func(t *testing.T) {
		uc, users, _ := newOnboardingFixture()
		u := &model.User{ID: 1}
		users.seed(u)
		if _, err := uc.StartVerification(ctx, 1, model.LevelA1); err != nil {
			t.Fatalf("StartVerification failed: %v", err)
		}
		if _, err := uc.Answer(ctx, u, 1, 0); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument for out-of-order answer, got %v", err)
		}
	})

	t.Run("expired session surfaces not found", func(t *testing.T) {
		uc, users, _ := newOnboardingFixture()
		u := &model.User{ID: 1}
		users.seed(u)
		if _, err := uc.Answer(ctx, u, 0, 0); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestOnboardingUC_Express(t *testing.T) {
	ctx := context.Background()

	t.Run("express draws five balanced questions", func(t *testing.T) {
		uc, users, sessions := newOnboardingFixture()
		users.seed(&model.User{ID: 1})

		step, err := uc.StartExpress(ctx, 1)
		if err != nil {
			t.Fatalf("StartExpress failed: %v", err)
		}
		if step.Total != 5 {
			t.Errorf("expected 5 questions, got %d", step.Total)
		}
		s, _ := sessions.GetSession(ctx, 1)
		levels := make(map[string]bool)
		for _, q := range s.Questions {
			levels[q.Level] = true
		}
		for _, lvl := range model.Levels {
			if !levels[string(lvl)] {
				t.Errorf("missing a %s question in %+v", lvl, s.Questions)
			}
		}
	})

	t.Run("perfect score estimates B2 without touching the profile", func(t *testing.T) {
		uc, users, sessions := newOnboardingFixture()
		u := &model.User{ID: 1}
		users.seed(u)
		if _, err := uc.StartExpress(ctx, 1); err != nil {
			t.Fatalf("StartExpress failed: %v", err)
		}

		prog := answerAll(t, uc, sessions, u, true)
		out := prog.Outcome
		if out.Kind != QuizKindExpress || out.Level != model.LevelB2 {
			t.Fatalf("expected B2 estimate, got %+v", out)
		}
		stored, _ := users.FindByID(ctx, nil, 1)
		if stored.OnboardingCompleted || stored.Level != "" {
			t.Errorf("express quiz must not complete onboarding: %+v", stored)
		}
	})

	t.Run("low score estimates A1", func(t *testing.T) {
		uc, users, sessions := newOnboardingFixture()
		u := &model.User{ID: 1}
		users.seed(u)
		if _, err := uc.StartExpress(ctx, 1); err != nil {
			t.Fatalf("StartExpress failed: %v", err)
		}
		prog := answerAll(t, uc, sessions, u, false)
		if prog.Outcome.Level != model.LevelA1 {
			t.Errorf("expected A1 estimate for 0/5, got %s", prog.Outcome.Level)
		}
	})
}

func TestEstimateLevel(t *testing.T) {
	cases := []struct {
		score int
		want  model.Level
	}{
		{0, model.LevelA1}, {1, model.LevelA1}, {2, model.LevelA2},
		{3, model.LevelB1}, {4, model.LevelB2}, {5, model.LevelB2},
	}
	for _, c := range cases {
		if got := estimateLevel(c.score); got != c.want {
			t.Errorf("score %d: expected %s, got %s", c.score, c.want, got)
		}
	}
}

func TestDrawExpress_ShufflesOptionsKeepingAnswer(t *testing.T) {
	qs := drawExpress(expressQuestionCount)
	if len(qs) != expressQuestionCount {
		t.Fatalf("expected %d questions, got %d", expressQuestionCount, len(qs))
	}
	for _, q := range qs {
		if q.Correct < 0 || q.Correct >= len(q.Options) {
			t.Fatalf("correct index out of range: %+v", q)
		}
		// The answer text must match the source bank entry.
		var want string
		for _, src := range expressBank {
			if src.Question == q.Question {
				want = src.Options[src.Correct]
			}
		}
		if want == "" {
			t.Fatalf("question not found in bank: %q", q.Question)
		}
		if q.Options[q.Correct] != want {
			t.Errorf("answer lost in shuffle: %+v, want %q", q, want)
		}
	}
}

var _ repository.QuizStateRepository = (*memQuizRepo)(nil)
