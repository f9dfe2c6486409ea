package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-english-tutor/internal/application"
	"telegram-english-tutor/internal/domain/ports/adapter"
)

type cbHandler func(ctx context.Context, chatID int64, data string) error

type prefixCB struct {
	Prefix string
	Fn     cbHandler
}

// Exact-match callbacks
func (r *RealTelegramBotAdapter) cbRoutes() map[string]cbHandler {
	return map[string]cbHandler{
		"start_onboarding": r.onboardingCBRoute,
		"quiz_restart":     r.quizRestartCBRoute,
		"topic_random":     r.topicCBRoute,
		"buy":              r.buyCBRoute,
		"pay_stars":        r.payStarsCBRoute,
		"pay_usdt":         r.payUSDTCBRoute,
		"pay_phone":        r.payPhoneCBRoute,
		"phone_paid":       r.phonePaidCBRoute,
		"stars_guide":      r.starsGuideCBRoute,
		"main_menu":        r.mainMenuCBRoute,
	}
}

// Prefix-match callbacks
func (r *RealTelegramBotAdapter) cbPrefixRoutes() []prefixCB {
	return []prefixCB{
		{Prefix: "level:", Fn: r.levelPickedCBRoute},
		{Prefix: "retry:", Fn: r.levelPickedCBRoute},
		{Prefix: "qa:", Fn: r.verifyAnswerCBRoute},
		{Prefix: "qz:", Fn: r.expressAnswerCBRoute},
		{Prefix: "say:", Fn: r.quickReplyCBRoute},
		{Prefix: "topic:", Fn: r.topicStarterCBRoute},
		{Prefix: "confirm_phone:", Fn: r.adminCB(r.confirmPhoneCBRoute)},
		{Prefix: "reject_phone:", Fn: r.adminCB(r.rejectPhoneCBRoute)},
	}
}

func (r *RealTelegramBotAdapter) handleQuery(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	// Always ack so the client stops its spinner, even on handler errors.
	defer func() {
		if _, err := r.bot.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
			r.log.Warn().Err(err).Msg("callback ack failed")
		}
	}()

	chatID := query.From.ID
	if query.Message != nil && query.Message.Chat.ID != 0 {
		chatID = query.Message.Chat.ID
	}

	data := query.Data
	if handler, ok := r.cbRoutes()[data]; ok {
		return handler(ctx, chatID, data)
	}
	for _, route := range r.cbPrefixRoutes() {
		if strings.HasPrefix(data, route.Prefix) {
			return route.Fn(ctx, chatID, data)
		}
	}
	r.log.Warn().Str("data", data).Int64("chat_id", chatID).Msg("unknown callback")
	return nil
}

func (r *RealTelegramBotAdapter) adminCB(next cbHandler) cbHandler {
	return func(ctx context.Context, chatID int64, data string) error {
		if !r.cfg.IsAdmin(chatID) {
			r.log.Warn().Int64("chat_id", chatID).Str("data", data).Msg("admin callback from non-admin")
			return nil
		}
		return next(ctx, chatID, data)
	}
}

// ----- onboarding and quizzes -----

func (r *RealTelegramBotAdapter) onboardingCBRoute(ctx context.Context, chatID int64, _ string) error {
	return r.sendLevelPicker(ctx, chatID)
}

func (r *RealTelegramBotAdapter) sendLevelPicker(ctx context.Context, chatID int64) error {
	rows := [][]adapter.InlineButton{
		{
			{Text: "A1 🐣", Data: "level:A1"},
			{Text: "A2 🦊", Data: "level:A2"},
		},
		{
			{Text: "B1 🦁", Data: "level:B1"},
			{Text: "B2 🦅", Data: "level:B2"},
		},
	}
	return r.SendButtons(ctx, chatID, r.facade.HandleOnboardingIntro(ctx, chatID), rows)
}

func (r *RealTelegramBotAdapter) levelPickedCBRoute(ctx context.Context, chatID int64, data string) error {
	_, level, _ := strings.Cut(data, ":")
	view, err := r.facade.HandleLevelPicked(ctx, chatID, level)
	if err != nil {
		r.log.Error().Err(err).Int64("tg_id", chatID).Str("level", level).Msg("verification start failed")
		return r.SendMessage(ctx, chatID, r.translator.T("error_generic"))
	}
	return r.sendQuizView(ctx, chatID, view, false)
}

func (r *RealTelegramBotAdapter) quizRestartCBRoute(ctx context.Context, chatID int64, _ string) error {
	return r.startExpressQuiz(ctx, chatID, chatID)
}

func (r *RealTelegramBotAdapter) startExpressQuiz(ctx context.Context, chatID, userID int64) error {
	view, err := r.facade.HandleQuizStart(ctx, userID)
	if err != nil {
		r.log.Error().Err(err).Int64("tg_id", userID).Msg("express quiz start failed")
		return r.SendMessage(ctx, chatID, r.translator.T("error_generic"))
	}
	return r.sendQuizView(ctx, chatID, view, true)
}

// sendQuizView renders one question, one answer button per row. The prefix
// keeps verification and express answers on separate routes.
func (r *RealTelegramBotAdapter) sendQuizView(ctx context.Context, chatID int64, view *application.QuizView, express bool) error {
	prefix := "qa"
	if express {
		prefix = "qz"
	}
	rows := make([][]adapter.InlineButton, 0, len(view.Options))
	for i, opt := range view.Options {
		rows = append(rows, []adapter.InlineButton{
			{Text: opt, Data: fmt.Sprintf("%s:%d:%d", prefix, view.Index, i)},
		})
	}
	return r.SendButtons(ctx, chatID, view.Text, rows)
}

func (r *RealTelegramBotAdapter) verifyAnswerCBRoute(ctx context.Context, chatID int64, data string) error {
	return r.quizAnswer(ctx, chatID, data, false)
}

func (r *RealTelegramBotAdapter) expressAnswerCBRoute(ctx context.Context, chatID int64, data string) error {
	return r.quizAnswer(ctx, chatID, data, true)
}

func (r *RealTelegramBotAdapter) quizAnswer(ctx context.Context, chatID int64, data string, express bool) error {
	parts := strings.Split(data, ":")
	if len(parts) != 3 {
		return nil
	}
	qIdx, err1 := strconv.Atoi(parts[1])
	aIdx, err2 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil {
		return nil
	}

	reply, err := r.facade.HandleQuizAnswer(ctx, chatID, express, qIdx, aIdx)
	if err != nil {
		r.log.Error().Err(err).Int64("tg_id", chatID).Msg("quiz answer failed")
		return r.SendMessage(ctx, chatID, r.translator.T("error_generic"))
	}
	switch {
	case reply.Stale:
		return nil
	case reply.Next != nil:
		return r.sendQuizView(ctx, chatID, reply.Next, express)
	}
	return r.sendQuizResult(ctx, chatID, reply)
}

func (r *RealTelegramBotAdapter) sendQuizResult(ctx context.Context, chatID int64, reply *application.QuizReply) error {
	if reply.Passed {
		return r.sendMainMenu(ctx, chatID, reply.Text)
	}

	var rows [][]adapter.InlineButton
	if reply.ShareURL != "" {
		rows = append(rows,
			[]adapter.InlineButton{{Text: r.translator.T("btn_share"), URL: reply.ShareURL}},
			[]adapter.InlineButton{{Text: r.translator.T("btn_quiz_again"), Data: "quiz_restart"}},
		)
	}
	if reply.RetryLevel != "" {
		rows = append(rows,
			[]adapter.InlineButton{{Text: r.translator.T("btn_retry"), Data: "retry:" + string(reply.RetryLevel)}},
			[]adapter.InlineButton{{Text: r.translator.T("btn_other_level"), Data: "start_onboarding"}},
		)
	} else if reply.OfferOnboarding {
		rows = append(rows, []adapter.InlineButton{{Text: r.translator.T("btn_check_level"), Data: "start_onboarding"}})
	}

	if len(rows) == 0 {
		return r.SendMessage(ctx, chatID, reply.Text)
	}
	return r.SendButtons(ctx, chatID, reply.Text, rows)
}

// ----- conversation shortcuts -----

func (r *RealTelegramBotAdapter) quickReplyCBRoute(ctx context.Context, chatID int64, data string) error {
	phrase := strings.TrimPrefix(data, "say:")
	reply, err := r.facade.HandleText(ctx, chatID, phrase)
	if err != nil {
		r.log.Error().Err(err).Int64("tg_id", chatID).Msg("quick reply turn failed")
		return r.SendMessage(ctx, chatID, r.translator.T("error_generic"))
	}
	return r.sendTurn(ctx, chatID, reply)
}

func (r *RealTelegramBotAdapter) topicCBRoute(ctx context.Context, chatID int64, _ string) error {
	return r.sendTopicCard(ctx, chatID, chatID)
}

func (r *RealTelegramBotAdapter) sendTopicCard(ctx context.Context, chatID, userID int64) error {
	card, err := r.facade.HandleTopic(ctx, userID)
	if err != nil {
		r.log.Error().Err(err).Int64("tg_id", userID).Msg("topic pick failed")
		return r.SendMessage(ctx, chatID, r.translator.T("error_generic"))
	}
	if card.OfferOnboarding {
		rows := [][]adapter.InlineButton{{{Text: r.translator.T("btn_check_level"), Data: "start_onboarding"}}}
		return r.SendButtons(ctx, chatID, card.Text, rows)
	}

	rows := make([][]adapter.InlineButton, 0, len(card.Starters)+1)
	for _, s := range card.Starters {
		data := "topic:" + s
		// Callback payloads are capped at 64 bytes; the handler replays
		// whatever fits.
		if len(data) > 64 {
			data = data[:64]
		}
		rows = append(rows, []adapter.InlineButton{{Text: s, Data: data}})
	}
	rows = append(rows, []adapter.InlineButton{{Text: r.translator.T("btn_topic_other"), Data: "topic_random"}})
	return r.SendButtons(ctx, chatID, card.Text, rows)
}

func (r *RealTelegramBotAdapter) topicStarterCBRoute(ctx context.Context, chatID int64, data string) error {
	phrase := strings.TrimPrefix(data, "topic:")
	reply, err := r.facade.HandleTopicStarter(ctx, chatID, phrase)
	if err != nil {
		r.log.Error().Err(err).Int64("tg_id", chatID).Msg("topic starter turn failed")
		return r.SendMessage(ctx, chatID, r.translator.T("error_generic"))
	}
	return r.sendTurn(ctx, chatID, reply)
}

// ----- payments -----

func (r *RealTelegramBotAdapter) buyCBRoute(ctx context.Context, chatID int64, _ string) error {
	return r.sendBuyMenu(ctx, chatID)
}

func (r *RealTelegramBotAdapter) sendBuyMenu(ctx context.Context, chatID int64) error {
	rows := [][]adapter.InlineButton{
		{{Text: r.translator.T("btn_pay_stars", r.cfg.Payment.StarsPrice), Data: "pay_stars"}},
		{{Text: r.translator.T("btn_pay_usdt"), Data: "pay_usdt"}},
		{{Text: r.translator.T("btn_pay_phone"), Data: "pay_phone"}},
		{{Text: r.translator.T("btn_stars_guide"), Data: "stars_guide"}},
		{{Text: r.translator.T("btn_main_menu"), Data: "main_menu"}},
	}
	return r.SendButtons(ctx, chatID, r.facade.HandleBuyMenu(), rows)
}

func (r *RealTelegramBotAdapter) payStarsCBRoute(ctx context.Context, chatID int64, _ string) error {
	if err := r.sendInvoice(ctx, chatID, r.facade.StarsInvoice(chatID)); err != nil {
		r.log.Error().Err(err).Int64("tg_id", chatID).Msg("invoice send failed")
		return r.SendMessage(ctx, chatID, r.translator.T("error_generic"))
	}
	return nil
}

func (r *RealTelegramBotAdapter) payUSDTCBRoute(ctx context.Context, chatID int64, _ string) error {
	rows := [][]adapter.InlineButton{{{Text: r.translator.T("btn_main_menu"), Data: "main_menu"}}}
	return r.SendButtons(ctx, chatID, r.facade.HandleUSDTMenu(), rows)
}

func (r *RealTelegramBotAdapter) payPhoneCBRoute(ctx context.Context, chatID int64, _ string) error {
	rows := [][]adapter.InlineButton{
		{{Text: r.translator.T("btn_phone_paid"), Data: "phone_paid"}},
		{{Text: r.translator.T("btn_main_menu"), Data: "main_menu"}},
	}
	return r.SendButtons(ctx, chatID, r.facade.HandlePhoneMenu(), rows)
}

func (r *RealTelegramBotAdapter) phonePaidCBRoute(ctx context.Context, chatID int64, _ string) error {
	userText, adminText, err := r.facade.HandlePhoneClaim(ctx, chatID)
	if err != nil {
		r.log.Error().Err(err).Int64("tg_id", chatID).Msg("phone claim failed")
		return r.SendMessage(ctx, chatID, r.translator.T("error_generic"))
	}
	r.NotifyAdmins(ctx, adminText, [][]adapter.InlineButton{{
		{Text: r.translator.T("btn_confirm"), Data: fmt.Sprintf("confirm_phone:%d", chatID)},
		{Text: r.translator.T("btn_reject"), Data: fmt.Sprintf("reject_phone:%d", chatID)},
	}})
	return r.SendMessage(ctx, chatID, userText)
}

func (r *RealTelegramBotAdapter) confirmPhoneCBRoute(ctx context.Context, chatID int64, data string) error {
	return r.phoneDecision(ctx, chatID, strings.TrimPrefix(data, "confirm_phone:"), true)
}

func (r *RealTelegramBotAdapter) rejectPhoneCBRoute(ctx context.Context, chatID int64, data string) error {
	return r.phoneDecision(ctx, chatID, strings.TrimPrefix(data, "reject_phone:"), false)
}

func (r *RealTelegramBotAdapter) phoneDecision(ctx context.Context, adminChatID int64, rawTarget string, approve bool) error {
	targetID, err := strconv.ParseInt(rawTarget, 10, 64)
	if err != nil {
		return nil
	}
	userText, adminText, err := r.facade.HandlePhoneDecision(ctx, targetID, approve)
	if err != nil {
		r.log.Error().Err(err).Int64("target_id", targetID).Bool("approve", approve).Msg("phone decision failed")
		return r.SendMessage(ctx, adminChatID, r.translator.T("error_generic"))
	}
	if err := r.SendMessage(ctx, targetID, userText); err != nil {
		r.log.Warn().Err(err).Int64("target_id", targetID).Msg("user notification failed")
	}
	return r.SendMessage(ctx, adminChatID, adminText)
}

func (r *RealTelegramBotAdapter) starsGuideCBRoute(ctx context.Context, chatID int64, _ string) error {
	rows := [][]adapter.InlineButton{
		{{Text: r.translator.T("btn_pay_stars", r.cfg.Payment.StarsPrice), Data: "pay_stars"}},
		{{Text: r.translator.T("btn_main_menu"), Data: "main_menu"}},
	}
	return r.SendButtons(ctx, chatID, r.facade.HandleStarsGuide(), rows)
}

func (r *RealTelegramBotAdapter) mainMenuCBRoute(ctx context.Context, chatID int64, _ string) error {
	return r.sendMainMenu(ctx, chatID, r.facade.HandleMainMenu())
}
