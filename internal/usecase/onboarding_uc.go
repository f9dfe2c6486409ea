package usecase

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"telegram-english-tutor/internal/domain"
	"telegram-english-tutor/internal/domain/model"
	"telegram-english-tutor/internal/domain/ports/repository"
)

const (
	verifyQuestionCount  = 3
	verifyPassScore      = 2
	expressQuestionCount = 5

	// Session kinds, also reported in QuizOutcome.Kind.
	QuizKindVerify  = "verify"
	QuizKindExpress = "express"
)

// QuizStep is one question as the surface should render it.
type QuizStep struct {
	Question repository.QuizQuestion
	Index    int
	Total    int
}

// QuizOutcome is the finished-test summary.
type QuizOutcome struct {
	Kind         string
	Passed       bool // verify only
	Score        int
	Total        int
	Level        model.Level // chosen (verify) or estimated (express)
	Badge        Badge
	ReferralCode string // minted when verification completes
}

// QuizProgress is the result of one answer: feedback plus either the next
// step or the outcome.
type QuizProgress struct {
	Correct     bool
	CorrectText string
	ChosenText  string
	Next        *QuizStep
	Outcome     *QuizOutcome
}

var _ OnboardingUseCase = (*onboardingUC)(nil)

type OnboardingUseCase interface {
	// StartVerification opens a level test for the chosen tier. Calling it
	// again replaces the session with fresh random questions, which is how
	// a retry works.
	StartVerification(ctx context.Context, userID int64, level model.Level) (*QuizStep, error)
	// StartExpress opens the shareable quick quiz.
	StartExpress(ctx context.Context, userID int64) (*QuizStep, error)
	// Answer applies one answer to the in-flight session. A missing or
	// expired session returns domain.ErrNotFound; an answer for a question
	// other than the current one returns domain.ErrInvalidArgument so the
	// surface can drop duplicate taps.
	Answer(ctx context.Context, user *model.User, questionIdx, answerIdx int) (*QuizProgress, error)
}

type onboardingUC struct {
	users     repository.UserRepository
	sessions  repository.QuizStateRepository
	referrals ReferralUseCase
	log       *zerolog.Logger
}

func NewOnboardingUseCase(
	users repository.UserRepository,
	sessions repository.QuizStateRepository,
	referrals ReferralUseCase,
	logger *zerolog.Logger,
) *onboardingUC {
	return &onboardingUC{
		users:     users,
		sessions:  sessions,
		referrals: referrals,
		log:       logger,
	}
}

func (o *onboardingUC) StartVerification(ctx context.Context, userID int64, level model.Level) (*QuizStep, error) {
	if !level.Valid() {
		return nil, domain.ErrInvalidArgument
	}
	s := &repository.QuizSession{
		Kind:      QuizKindVerify,
		Level:     string(level),
		Questions: drawVerification(level, verifyQuestionCount),
	}
	if err := o.sessions.SetSession(ctx, userID, s); err != nil {
		return nil, err
	}
	return stepAt(s, 0), nil
}

func (o *onboardingUC) StartExpress(ctx context.Context, userID int64) (*QuizStep, error) {
	s := &repository.QuizSession{
		Kind:      QuizKindExpress,
		Questions: drawExpress(expressQuestionCount),
	}
	if err := o.sessions.SetSession(ctx, userID, s); err != nil {
		return nil, err
	}
	return stepAt(s, 0), nil
}

func (o *onboardingUC) Answer(ctx context.Context, user *model.User, questionIdx, answerIdx int) (*QuizProgress, error) {
	if user == nil {
		return nil, domain.ErrInvalidArgument
	}
	s, err := o.sessions.GetSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if questionIdx != s.Current || questionIdx >= len(s.Questions) {
		return nil, domain.ErrInvalidArgument
	}
	q := s.Questions[questionIdx]
	if answerIdx < 0 || answerIdx >= len(q.Options) {
		return nil, domain.ErrInvalidArgument
	}

	prog := &QuizProgress{
		Correct:     answerIdx == q.Correct,
		CorrectText: q.Options[q.Correct],
		ChosenText:  q.Options[answerIdx],
	}
	if prog.Correct {
		s.Score++
	}
	s.Current++

	if s.Current < len(s.Questions) {
		if err := o.sessions.SetSession(ctx, user.ID, s); err != nil {
			return nil, err
		}
		prog.Next = stepAt(s, s.Current)
		return prog, nil
	}

	// Last question answered; the session is spent either way.
	if err := o.sessions.ClearSession(ctx, user.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	switch s.Kind {
	case QuizKindExpress:
		prog.Outcome = o.expressOutcome(s)
	default:
		out, err := o.verifyOutcome(ctx, user, s)
		if err != nil {
			return nil, err
		}
		prog.Outcome = out
	}
	return prog, nil
}

func (o *onboardingUC) verifyOutcome(ctx context.Context, user *model.User, s *repository.QuizSession) (*QuizOutcome, error) {
	level := model.Level(s.Level).OrDefault()
	out := &QuizOutcome{
		Kind:   QuizKindVerify,
		Score:  s.Score,
		Total:  len(s.Questions),
		Level:  level,
		Badge:  BadgeFor(level),
		Passed: s.Score >= verifyPassScore,
	}
	if !out.Passed {
		return out, nil
	}

	if err := o.users.SetLevel(ctx, repository.NoTX, user.ID, level); err != nil {
		return nil, err
	}
	if err := o.users.MarkOnboardingCompleted(ctx, repository.NoTX, user.ID); err != nil {
		return nil, err
	}
	user.Level = level
	user.OnboardingCompleted = true

	code, err := o.referrals.EnsureCode(ctx, user)
	if err != nil {
		return nil, err
	}
	out.ReferralCode = code

	o.log.Info().
		Int64("user_id", user.ID).
		Str("level", string(level)).
		Int("score", s.Score).
		Msg("onboarding completed")
	return out, nil
}

func (o *onboardingUC) expressOutcome(s *repository.QuizSession) *QuizOutcome {
	level := estimateLevel(s.Score)
	return &QuizOutcome{
		Kind:  QuizKindExpress,
		Score: s.Score,
		Total: len(s.Questions),
		Level: level,
		Badge: BadgeFor(level),
	}
}

// estimateLevel maps an express-quiz score to a rough tier.
func estimateLevel(score int) model.Level {
	switch {
	case score <= 1:
		return model.LevelA1
	case score == 2:
		return model.LevelA2
	case score == 3:
		return model.LevelB1
	default:
		return model.LevelB2
	}
}

func stepAt(s *repository.QuizSession, idx int) *QuizStep {
	return &QuizStep{
		Question: s.Questions[idx],
		Index:    idx,
		Total:    len(s.Questions),
	}
}
