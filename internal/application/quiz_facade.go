package application

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"telegram-english-tutor/internal/domain"
	"telegram-english-tutor/internal/domain/model"
	"telegram-english-tutor/internal/usecase"
)

// QuizView is one question the adapter should render with answer buttons.
type QuizView struct {
	Text    string
	Options []string
	Index   int
}

// QuizReply is the result of one answered question: either the next view,
// or the finished-test summary with follow-up surfaces.
type QuizReply struct {
	Stale bool // duplicate tap on an old question, drop silently

	Next *QuizView

	Done       bool
	Passed     bool        // verification only
	RetryLevel model.Level // verification failure: offer a retry at this tier
	Text       string      // final summary when Done

	// express quiz result extras
	ShareText       string
	ShareURL        string
	OfferOnboarding bool
}

// HandleOnboardingIntro returns the level-picker prompt. The adapter renders
// one button per CEFR tier. Users who already hold a level get the retest
// wording instead.
func (b *BotFacade) HandleOnboardingIntro(ctx context.Context, userID int64) string {
	if user, err := b.Users.Get(ctx, userID); err == nil && user.OnboardingCompleted {
		return b.T.T("level_retest") + "\n\n" + b.T.T("onboarding_pick_level")
	}
	return b.T.T("onboarding_pick_level")
}

// HandleLevelPicked opens a verification test for the chosen tier. Picking a
// level again, or retrying after a failure, starts over with fresh questions.
func (b *BotFacade) HandleLevelPicked(ctx context.Context, userID int64, level string) (*QuizView, error) {
	step, err := b.Onboarding.StartVerification(ctx, userID, model.Level(strings.ToUpper(level)))
	if err != nil {
		return nil, fmt.Errorf("start verification: %w", err)
	}
	return &QuizView{
		Text:    b.T.T("onboarding_started", strings.ToUpper(level), step.Total, step.Question.Question),
		Options: step.Question.Options,
		Index:   step.Index,
	}, nil
}

// HandleQuizStart opens the shareable express quiz.
func (b *BotFacade) HandleQuizStart(ctx context.Context, userID int64) (*QuizView, error) {
	step, err := b.Onboarding.StartExpress(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("start express quiz: %w", err)
	}
	return &QuizView{
		Text:    b.T.T("quiz_intro", step.Total) + "\n\n" + b.expressQuestion(step),
		Options: step.Question.Options,
		Index:   step.Index,
	}, nil
}

// HandleQuizAnswer applies one tapped answer. The express flag comes from
// the callback prefix and only affects how feedback and questions are
// phrased; the session itself knows its kind.
func (b *BotFacade) HandleQuizAnswer(ctx context.Context, userID int64, express bool, questionIdx, answerIdx int) (*QuizReply, error) {
	user, err := b.Users.Get(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return &QuizReply{Done: true, Text: b.T.T("user_not_found")}, nil
	}
	if err != nil {
		return nil, err
	}

	prog, err := b.Onboarding.Answer(ctx, user, questionIdx, answerIdx)
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return &QuizReply{Stale: true}, nil
	case errors.Is(err, domain.ErrNotFound):
		return &QuizReply{Done: true, Text: b.T.T("onboarding_expired"), OfferOnboarding: true}, nil
	case err != nil:
		return nil, err
	}

	feedback := b.answerFeedback(prog, express)

	if next := prog.Next; next != nil {
		view := &QuizView{Options: next.Question.Options, Index: next.Index}
		if express {
			view.Text = feedback + "\n\n" + b.expressQuestion(next)
		} else {
			view.Text = feedback + "\n\n" + b.T.T("onboarding_question", next.Index+1, next.Total, next.Question.Question)
		}
		return &QuizReply{Next: view}, nil
	}

	out := prog.Outcome
	if out.Kind == usecase.QuizKindExpress {
		return b.expressResult(out), nil
	}
	if out.Passed {
		badge := out.Badge.Emoji + " " + out.Badge.Name
		return &QuizReply{
			Done:   true,
			Passed: true,
			Text:   b.T.T("onboarding_passed", feedback, out.Level, badge),
		}, nil
	}
	return &QuizReply{
		Done:       true,
		RetryLevel: out.Level,
		Text:       b.T.T("onboarding_failed", out.Level, out.Score, out.Total),
	}, nil
}

func (b *BotFacade) answerFeedback(prog *usecase.QuizProgress, express bool) string {
	if express {
		if prog.Correct {
			return b.T.T("quiz_answer_right", prog.ChosenText)
		}
		return b.T.T("quiz_answer_wrong", prog.ChosenText, prog.CorrectText)
	}
	if prog.Correct {
		return b.T.T("quiz_correct")
	}
	return b.T.T("quiz_incorrect")
}

func (b *BotFacade) expressQuestion(step *usecase.QuizStep) string {
	return b.T.T("quiz_question", step.Index+1, step.Total, progressBar(step.Index, step.Total), step.Question.Question)
}

func (b *BotFacade) expressResult(out *usecase.QuizOutcome) *QuizReply {
	badge := out.Badge.Emoji + " " + out.Badge.Name
	text := b.T.T("quiz_result", starBar(out.Score, out.Total), out.Score, out.Total, out.Level, badge)
	switch {
	case out.Score <= out.Total/3:
		text += "\n\n" + b.T.T("quiz_result_low")
	case out.Score < out.Total:
		text += "\n\n" + b.T.T("quiz_result_mid")
	default:
		text += "\n\n" + b.T.T("quiz_result_high")
	}

	share := b.T.T("quiz_share", out.Score, out.Total)
	botLink := fmt.Sprintf("https://t.me/%s?start=quiz30", b.Cfg.Bot.Username)
	return &QuizReply{
		Done:            true,
		Text:            text,
		ShareText:       share,
		ShareURL:        fmt.Sprintf("https://t.me/share/url?url=%s&text=%s", url.QueryEscape(botLink), url.QueryEscape(share)),
		OfferOnboarding: true,
	}
}

// TopicCard is a suggested conversation topic with tappable starter phrases.
type TopicCard struct {
	Text            string
	Starters        []string
	OfferOnboarding bool
}

// HandleTopic picks a random conversation topic. Topics feed the tutor, so
// they require a completed onboarding.
func (b *BotFacade) HandleTopic(ctx context.Context, userID int64) (*TopicCard, error) {
	user, err := b.Users.Get(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return &TopicCard{Text: b.T.T("user_not_found")}, nil
	}
	if err != nil {
		return nil, err
	}
	if !user.OnboardingCompleted {
		return &TopicCard{Text: b.T.T("onboarding_required"), OfferOnboarding: true}, nil
	}

	t := usecase.RandomTopic()
	var phrases strings.Builder
	for _, s := range t.Starters {
		phrases.WriteString("• " + s + "\n")
	}
	header := fmt.Sprintf("%s %s (%s)\n%s", t.Emoji, t.Name, t.NameRU, t.Desc)
	return &TopicCard{
		Text:     b.T.T("topic_suggestion", header, strings.TrimRight(phrases.String(), "\n")),
		Starters: t.Starters,
	}, nil
}

func progressBar(current, total int) string {
	var sb strings.Builder
	for i := 0; i < total; i++ {
		if i < current {
			sb.WriteString("🟢")
		} else {
			sb.WriteString("⚪")
		}
	}
	return sb.String()
}

func starBar(score, total int) string {
	var sb strings.Builder
	for i := 0; i < total; i++ {
		if i < score {
			sb.WriteString("⭐")
		} else {
			sb.WriteString("☆")
		}
	}
	return sb.String()
}
