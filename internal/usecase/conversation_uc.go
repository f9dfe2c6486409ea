package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"telegram-english-tutor/internal/domain"
	"telegram-english-tutor/internal/domain/model"
	"telegram-english-tutor/internal/domain/ports/adapter"
	"telegram-english-tutor/internal/domain/ports/repository"
	"telegram-english-tutor/internal/infra/logging"
	"telegram-english-tutor/internal/infra/metrics"
)

const (
	fallbackReply     = "Sorry, I'm having trouble right now. Please try again!"
	maxQuickReplyLen  = 35
	conversationTemp  = 0.5
	lookupTemp        = 0.3
	completionTopP    = 0.9
	conversationToken = 300
	lookupTokens      = 250
)

// RateLimiter is the per-user message pacing gate.
type RateLimiter interface {
	Allow(ctx context.Context, userID int64) (bool, error)
}

// ConversationResult carries everything a surface needs to answer one turn:
// the structured reply, the assembled display text, the English-only speech
// text, quick-reply suggestions, and the post-turn entitlement and streak.
type ConversationResult struct {
	Transcript   string // recognized text, voice turns only
	Reply        model.TutorReply
	Text         string
	SpeechText   string
	QuickReplies []string
	Entitlement  *Entitlement
	Streak       *StreakResult
	Degraded     bool // model failed, Text is an apology, turn was not charged
}

var _ ConversationUseCase = (*conversationUC)(nil)

type ConversationUseCase interface {
	Respond(ctx context.Context, userID int64, text string) (*ConversationResult, error)
	RespondVoice(ctx context.Context, userID int64, audio []byte) (*ConversationResult, error)
	Reset(ctx context.Context, userID int64) error
}

type conversationUC struct {
	users        repository.UserRepository
	convos       repository.ConversationRepository
	tm           repository.TransactionManager
	entitlements EntitlementUseCase
	streaks      StreakUseCase
	limiter      RateLimiter
	mdl          adapter.TutorModel
	stt          adapter.Transcriber
	prompts      *PromptBuilder
	historyTurns int
	log          *zerolog.Logger
}

func NewConversationUseCase(
	users repository.UserRepository,
	convos repository.ConversationRepository,
	tm repository.TransactionManager,
	entitlements EntitlementUseCase,
	streaks StreakUseCase,
	limiter RateLimiter,
	mdl adapter.TutorModel,
	stt adapter.Transcriber,
	prompts *PromptBuilder,
	historyTurns int,
	logger *zerolog.Logger,
) *conversationUC {
	if historyTurns <= 0 {
		historyTurns = 10
	}
	return &conversationUC{
		users:        users,
		convos:       convos,
		tm:           tm,
		entitlements: entitlements,
		streaks:      streaks,
		limiter:      limiter,
		mdl:          mdl,
		stt:          stt,
		prompts:      prompts,
		historyTurns: historyTurns,
		log:          logger,
	}
}

func (c *conversationUC) Respond(ctx context.Context, userID int64, text string) (*ConversationResult, error) {
	defer logging.TraceDuration(c.log, "ConversationUC.Respond")()

	user, ent, err := c.admit(ctx, userID)
	if err != nil {
		return nil, err
	}
	return c.respond(ctx, user, ent, text, "")
}

func (c *conversationUC) RespondVoice(ctx context.Context, userID int64, audio []byte) (*ConversationResult, error) {
	defer logging.TraceDuration(c.log, "ConversationUC.RespondVoice")()

	user, ent, err := c.admit(ctx, userID)
	if err != nil {
		return nil, err
	}

	transcript, err := c.stt.Transcribe(ctx, audio)
	if err != nil {
		return nil, err
	}
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return nil, domain.ErrEmptyTranscript
	}
	return c.respond(ctx, user, ent, transcript, transcript)
}

func (c *conversationUC) Reset(ctx context.Context, userID int64) error {
	return c.convos.Reset(ctx, repository.NoTX, userID)
}

// admit runs the gates every turn passes: rate limit, known user,
// completed onboarding, message allowance. The resolved entitlement decides
// later whether the turn counts against the free allowance.
func (c *conversationUC) admit(ctx context.Context, userID int64) (*model.User, *Entitlement, error) {
	ok, err := c.limiter.Allow(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		metrics.ObserveRateLimited()
		return nil, nil, domain.ErrRateLimited
	}

	user, err := c.users.FindByID(ctx, repository.NoTX, userID)
	if err != nil {
		return nil, nil, err
	}
	if !user.OnboardingCompleted {
		return nil, nil, domain.ErrOnboardingRequired
	}
	ent, err := c.entitlements.CanSendMessage(ctx, user)
	if err != nil {
		metrics.ObserveTurnDenied("limit")
		return nil, nil, err
	}
	return user, ent, nil
}

func (c *conversationUC) respond(ctx context.Context, user *model.User, ent *Entitlement, text, transcript string) (*ConversationResult, error) {
	ctx = logging.WithUserID(ctx, user.ID)
	level := user.Level.OrDefault()

	prompt, opts, kind := c.buildPrompt(ctx, user, text, level)

	start := time.Now()
	raw, err := c.mdl.Complete(ctx, prompt, opts)
	metrics.ObserveAICall(c.mdl.Name(), time.Since(start), err == nil)
	if err != nil {
		// The turn is not charged and not recorded when the model is down.
		c.log.Error().Err(err).Int64("user_id", user.ID).Msg("model completion failed")
		return &ConversationResult{
			Transcript: transcript,
			Reply:      model.TutorReply{Reply: fallbackReply},
			Text:       fallbackReply,
			Degraded:   true,
		}, nil
	}

	reply, stage := model.ParseTutorReplyStaged(raw)
	metrics.ObserveReplyParseStage(stage)

	res := &ConversationResult{
		Transcript: transcript,
		Reply:      reply,
		Text:       reply.DisplayText(),
		SpeechText: ExtractEnglishForTTS(strings.TrimSpace(reply.Reply + " " + reply.Question)),
	}
	if level.UsesQuickReplies() && reply.Question != "" {
		res.QuickReplies = cleanQuickReplies(reply.QuickReplies)
	}

	now := time.Now()
	err = c.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := c.convos.Append(ctx, tx, &model.ConversationTurn{
			UserID: user.ID, Role: model.RoleUser, Content: text, Timestamp: now,
		}); err != nil {
			return err
		}
		if err := c.convos.Append(ctx, tx, &model.ConversationTurn{
			UserID: user.ID, Role: model.RoleAssistant, Content: res.Text, Timestamp: now.Add(time.Millisecond),
		}); err != nil {
			return err
		}
		// VIP and premium turns do not consume the free allowance.
		if ent.Tier == TierFree {
			if err := c.users.IncrementMessageCount(ctx, tx, user.ID); err != nil {
				return err
			}
			user.MessageCount++
		}

		streak, err := c.streaks.Track(ctx, tx, user, now)
		if err != nil {
			return err
		}
		res.Streak = streak
		return nil
	})
	if err != nil {
		return nil, err
	}

	ent, err = c.entitlements.Status(ctx, user)
	if err != nil {
		return nil, err
	}
	res.Entitlement = ent

	metrics.ObserveTurn(kind)
	return res, nil
}

func (c *conversationUC) buildPrompt(ctx context.Context, user *model.User, text string, level model.Level) (string, adapter.CompletionOptions, string) {
	intent, arg := DetectIntent(text)
	switch intent {
	case IntentWordLookup:
		return c.prompts.WordLookup(arg, level),
			adapter.CompletionOptions{Temperature: lookupTemp, TopP: completionTopP, MaxTokens: lookupTokens},
			"word_lookup"
	case IntentTranslateRU:
		return c.prompts.TranslateRussian(arg, level),
			adapter.CompletionOptions{Temperature: lookupTemp, TopP: completionTopP, MaxTokens: lookupTokens},
			"translate_ru"
	default:
		history, err := c.convos.Recent(ctx, repository.NoTX, user.ID, c.historyTurns)
		if err != nil {
			c.log.Warn().Err(err).Int64("user_id", user.ID).Msg("history load failed, continuing without")
			history = nil
		}
		return c.prompts.Conversation(history, text, level),
			adapter.CompletionOptions{Temperature: conversationTemp, TopP: completionTopP, MaxTokens: conversationToken},
			"conversation"
	}
}

func cleanQuickReplies(raw []string) []string {
	var out []string
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p == "" || len(p) > maxQuickReplyLen {
			continue
		}
		out = append(out, p)
		if len(out) == 4 {
			break
		}
	}
	return out
}
