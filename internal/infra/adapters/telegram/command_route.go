package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-english-tutor/internal/domain/ports/adapter"
)

type commandHandler func(ctx context.Context, message *tgbotapi.Message) error

func (r *RealTelegramBotAdapter) commandRoutes() map[string]commandHandler {
	return map[string]commandHandler{
		"start":    r.handleStartCommand,
		"status":   r.handleStatusCommand,
		"topic":    r.handleTopicCommand,
		"level":    r.handleLevelCommand,
		"buy":      r.handleBuyCommand,
		"reset":    r.handleResetCommand,
		"referral": r.handleReferralCommand,
		"invite":   r.handleInviteCommand,
		"help":     r.handleHelpCommand,

		"stats": r.adminOnly(r.handleStatsCommand),
	}
}

// menuRoutes maps the persistent reply-keyboard labels onto the same
// handlers as the slash commands.
func (r *RealTelegramBotAdapter) menuRoutes() map[string]commandHandler {
	return map[string]commandHandler{
		r.translator.T("kb_status"): r.handleStatusCommand,
		r.translator.T("kb_topic"):  r.handleTopicCommand,
		r.translator.T("kb_level"):  r.handleLevelCommand,
		r.translator.T("kb_buy"):    r.handleBuyCommand,
		r.translator.T("kb_reset"):  r.handleResetCommand,
		r.translator.T("kb_help"):   r.handleHelpCommand,
	}
}

func (r *RealTelegramBotAdapter) adminOnly(next commandHandler) commandHandler {
	return func(ctx context.Context, message *tgbotapi.Message) error {
		if !r.cfg.IsAdmin(message.From.ID) && !r.cfg.IsWhitelisted(message.From.UserName) {
			return r.SendMessage(ctx, message.Chat.ID, r.facade.HandleHelp())
		}
		return next(ctx, message)
	}
}

func (r *RealTelegramBotAdapter) handleStartCommand(ctx context.Context, message *tgbotapi.Message) error {
	start, err := r.facade.HandleStart(ctx, message.From.ID, message.From.UserName, message.CommandArguments())
	if err != nil {
		r.log.Error().Err(err).Int64("tg_id", message.From.ID).Msg("start failed")
		return r.SendMessage(ctx, message.Chat.ID, r.translator.T("error_generic"))
	}
	if start.LaunchQuiz {
		return r.startExpressQuiz(ctx, message.Chat.ID, message.From.ID)
	}
	if start.OfferOnboarding {
		rows := [][]adapter.InlineButton{
			{{Text: r.translator.T("btn_check_level"), Data: "start_onboarding"}},
		}
		return r.SendButtons(ctx, message.Chat.ID, start.Text, rows)
	}
	return r.sendMainMenu(ctx, message.Chat.ID, start.Text)
}

func (r *RealTelegramBotAdapter) handleStatusCommand(ctx context.Context, message *tgbotapi.Message) error {
	text, err := r.facade.HandleStatus(ctx, message.From.ID)
	if err != nil {
		r.log.Error().Err(err).Int64("tg_id", message.From.ID).Msg("status failed")
		return r.SendMessage(ctx, message.Chat.ID, r.translator.T("error_generic"))
	}
	return r.SendMessage(ctx, message.Chat.ID, text)
}

func (r *RealTelegramBotAdapter) handleTopicCommand(ctx context.Context, message *tgbotapi.Message) error {
	return r.sendTopicCard(ctx, message.Chat.ID, message.From.ID)
}

func (r *RealTelegramBotAdapter) handleLevelCommand(ctx context.Context, message *tgbotapi.Message) error {
	return r.sendLevelPicker(ctx, message.Chat.ID)
}

func (r *RealTelegramBotAdapter) handleBuyCommand(ctx context.Context, message *tgbotapi.Message) error {
	return r.sendBuyMenu(ctx, message.Chat.ID)
}

func (r *RealTelegramBotAdapter) handleResetCommand(ctx context.Context, message *tgbotapi.Message) error {
	text, err := r.facade.HandleReset(ctx, message.From.ID)
	if err != nil {
		r.log.Error().Err(err).Int64("tg_id", message.From.ID).Msg("reset failed")
		return r.SendMessage(ctx, message.Chat.ID, r.translator.T("error_generic"))
	}
	return r.SendMessage(ctx, message.Chat.ID, text)
}

func (r *RealTelegramBotAdapter) handleReferralCommand(ctx context.Context, message *tgbotapi.Message) error {
	text, err := r.facade.HandleReferralInfo(ctx, message.From.ID)
	if err != nil {
		r.log.Error().Err(err).Int64("tg_id", message.From.ID).Msg("referral info failed")
		return r.SendMessage(ctx, message.Chat.ID, r.translator.T("error_generic"))
	}
	return r.SendMessage(ctx, message.Chat.ID, text)
}

func (r *RealTelegramBotAdapter) handleInviteCommand(ctx context.Context, message *tgbotapi.Message) error {
	text, err := r.facade.HandleInvite(ctx, message.From.ID)
	if err != nil {
		r.log.Error().Err(err).Int64("tg_id", message.From.ID).Msg("invite failed")
		return r.SendMessage(ctx, message.Chat.ID, r.translator.T("error_generic"))
	}
	return r.SendMessage(ctx, message.Chat.ID, text)
}

func (r *RealTelegramBotAdapter) handleHelpCommand(ctx context.Context, message *tgbotapi.Message) error {
	return r.sendMainMenu(ctx, message.Chat.ID, r.facade.HandleHelp())
}

func (r *RealTelegramBotAdapter) handleStatsCommand(ctx context.Context, message *tgbotapi.Message) error {
	text, err := r.facade.HandleStats(ctx)
	if err != nil {
		r.log.Error().Err(err).Msg("stats failed")
		return r.SendMessage(ctx, message.Chat.ID, r.translator.T("error_generic"))
	}
	return r.SendMessage(ctx, message.Chat.ID, text)
}
