package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"telegram-english-tutor/internal/application"
	"telegram-english-tutor/internal/config"
	"telegram-english-tutor/internal/domain/ports/adapter"
	"telegram-english-tutor/internal/infra/i18n"
)

// Voice notes longer than this are rejected before download.
const maxVoiceBytes = 15 << 20

var _ adapter.TelegramBot = (*RealTelegramBotAdapter)(nil)

// RealTelegramBotAdapter polls Telegram updates and delegates everything to
// the BotFacade. It owns only transport concerns: update routing, keyboards,
// voice file download and TTS playback.
type RealTelegramBotAdapter struct {
	bot        *tgbotapi.BotAPI
	cfg        *config.Config
	facade     *application.BotFacade
	translator *i18n.Translator
	tts        adapter.Synthesizer
	httpClient *http.Client
	log        *zerolog.Logger

	updateWorkers int
	cancelPolling context.CancelFunc
}

func NewRealTelegramBotAdapter(
	cfg *config.Config,
	facade *application.BotFacade,
	translator *i18n.Translator,
	tts adapter.Synthesizer,
	logger *zerolog.Logger,
) (*RealTelegramBotAdapter, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if facade == nil {
		return nil, errors.New("bot facade is nil")
	}
	if translator == nil {
		return nil, errors.New("translator is nil")
	}

	bot, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}

	return &RealTelegramBotAdapter{
		bot:           bot,
		cfg:           cfg,
		facade:        facade,
		translator:    translator,
		tts:           tts,
		httpClient:    &http.Client{Timeout: 60 * time.Second},
		log:           logger,
		updateWorkers: cfg.Bot.Workers,
	}, nil
}

func (r *RealTelegramBotAdapter) StartPolling(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := r.bot.GetUpdatesChan(u)

	ctx, cancel := context.WithCancel(ctx)
	r.cancelPolling = cancel

	var wg sync.WaitGroup
	updateChan := make(chan tgbotapi.Update, 100)

	for i := 0; i < r.updateWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case up := <-updateChan:
					if err := r.handleUpdate(ctx, up); err != nil {
						r.log.Error().Err(err).Int("worker", id).Msg("update handling failed")
					}
				}
			}
		}(i)
	}

	for {
		select {
		case <-ctx.Done():
			close(updateChan)
			wg.Wait()
			return ctx.Err()
		case up := <-updates:
			updateChan <- up
		}
	}
}

func (r *RealTelegramBotAdapter) StopPolling() {
	if r.cancelPolling != nil {
		r.cancelPolling()
	}
}

func (r *RealTelegramBotAdapter) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	if update.CallbackQuery != nil {
		return r.handleQuery(ctx, update.CallbackQuery)
	}
	if update.PreCheckoutQuery != nil {
		// Stars invoices need no extra validation before capture.
		_, err := r.bot.Request(tgbotapi.PreCheckoutConfig{
			PreCheckoutQueryID: update.PreCheckoutQuery.ID,
			OK:                 true,
		})
		return err
	}

	msg := update.Message
	if msg == nil || msg.From == nil {
		return nil
	}
	if msg.SuccessfulPayment != nil {
		return r.handleSuccessfulPayment(ctx, msg)
	}
	if msg.Voice != nil {
		return r.handleVoiceMessage(ctx, msg)
	}

	if msg.IsCommand() {
		if handler, ok := r.commandRoutes()[msg.Command()]; ok {
			return handler(ctx, msg)
		}
		return r.SendMessage(ctx, msg.Chat.ID, r.facade.HandleHelp())
	}
	if handler, ok := r.menuRoutes()[msg.Text]; ok {
		return handler(ctx, msg)
	}
	return r.handleTextMessage(ctx, msg)
}

func (r *RealTelegramBotAdapter) handleTextMessage(ctx context.Context, msg *tgbotapi.Message) error {
	reply, err := r.facade.HandleText(ctx, msg.From.ID, msg.Text)
	if err != nil {
		r.log.Error().Err(err).Int64("tg_id", msg.From.ID).Msg("text turn failed")
		return r.SendMessage(ctx, msg.Chat.ID, r.translator.T("error_generic"))
	}
	return r.sendTurn(ctx, msg.Chat.ID, reply)
}

func (r *RealTelegramBotAdapter) handleVoiceMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.Voice.FileSize > maxVoiceBytes {
		return r.SendMessage(ctx, msg.Chat.ID, r.translator.T("voice_error"))
	}
	audio, err := r.downloadFile(ctx, msg.Voice.FileID)
	if err != nil {
		r.log.Error().Err(err).Int64("tg_id", msg.From.ID).Msg("voice download failed")
		return r.SendMessage(ctx, msg.Chat.ID, r.translator.T("voice_error"))
	}

	reply, err := r.facade.HandleVoice(ctx, msg.From.ID, audio)
	if err != nil {
		r.log.Error().Err(err).Int64("tg_id", msg.From.ID).Msg("voice turn failed")
		return r.SendMessage(ctx, msg.Chat.ID, r.translator.T("voice_error"))
	}
	return r.sendTurn(ctx, msg.Chat.ID, reply)
}

// sendTurn renders one tutor reply: the text with any offered surfaces as
// inline buttons, then a voiced version of the English part when TTS is up.
func (r *RealTelegramBotAdapter) sendTurn(ctx context.Context, chatID int64, reply *application.TurnReply) error {
	rows := r.turnButtons(reply)
	var err error
	if len(rows) > 0 {
		err = r.SendButtons(ctx, chatID, reply.Text, rows)
	} else {
		err = r.SendMessage(ctx, chatID, reply.Text)
	}
	if err != nil {
		return err
	}

	if r.tts != nil && reply.SpeechText != "" {
		audio, terr := r.tts.Synthesize(ctx, reply.SpeechText)
		if terr != nil {
			// Voice is best-effort; the text answer already went out.
			r.log.Warn().Err(terr).Int64("tg_id", chatID).Msg("tts synthesis failed")
			return nil
		}
		if len(audio) > 0 {
			if verr := r.SendVoice(ctx, chatID, audio); verr != nil {
				r.log.Warn().Err(verr).Int64("tg_id", chatID).Msg("voice send failed")
			}
		}
	}
	return nil
}

func (r *RealTelegramBotAdapter) turnButtons(reply *application.TurnReply) [][]adapter.InlineButton {
	var rows [][]adapter.InlineButton
	for _, qr := range reply.QuickReplies {
		rows = append(rows, []adapter.InlineButton{{Text: qr, Data: "say:" + qr}})
	}
	if reply.OfferOnboarding {
		rows = append(rows, []adapter.InlineButton{{Text: r.translator.T("btn_check_level"), Data: "start_onboarding"}})
	}
	if reply.OfferBuy {
		rows = append(rows, []adapter.InlineButton{{Text: r.translator.T("btn_buy"), Data: "buy"}})
	}
	return rows
}

func (r *RealTelegramBotAdapter) handleSuccessfulPayment(ctx context.Context, msg *tgbotapi.Message) error {
	pay := msg.SuccessfulPayment
	text, err := r.facade.HandleSuccessfulPayment(ctx, msg.From.ID, pay.TelegramPaymentChargeID, pay.TotalAmount)
	if err != nil {
		r.log.Error().Err(err).Int64("tg_id", msg.From.ID).Str("charge_id", pay.TelegramPaymentChargeID).
			Msg("stars payment activation failed")
		return r.SendMessage(ctx, msg.Chat.ID, r.translator.T("error_generic"))
	}
	return r.SendMessage(ctx, msg.Chat.ID, text)
}

func (r *RealTelegramBotAdapter) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	url, err := r.bot.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("resolve file url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxVoiceBytes))
}

// SendMessage implements adapter.TelegramBot.
func (r *RealTelegramBotAdapter) SendMessage(ctx context.Context, chatID int64, text string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	_, err := r.bot.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

// SendButtons sends a message with inline buttons. URL wins over Data; a
// button with neither falls back to its label as callback data.
func (r *RealTelegramBotAdapter) SendButtons(ctx context.Context, chatID int64, text string, rows [][]adapter.InlineButton) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	kbRows := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		kbRow := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			label := strings.TrimSpace(btn.Text)
			if label == "" {
				label = "•"
			}
			var kb tgbotapi.InlineKeyboardButton
			switch {
			case btn.URL != "":
				kb = tgbotapi.NewInlineKeyboardButtonURL(label, btn.URL)
			case btn.Data != "":
				kb = tgbotapi.NewInlineKeyboardButtonData(label, btn.Data)
			default:
				kb = tgbotapi.NewInlineKeyboardButtonData(label, label)
			}
			kbRow = append(kbRow, kb)
		}
		kbRows = append(kbRows, kbRow)
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(kbRows...)
	_, err := r.bot.Send(msg)
	return err
}

// SendVoice implements adapter.TelegramBot.
func (r *RealTelegramBotAdapter) SendVoice(ctx context.Context, chatID int64, audio []byte) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	voice := tgbotapi.NewVoice(chatID, tgbotapi.FileBytes{Name: "reply.ogg", Bytes: audio})
	_, err := r.bot.Send(voice)
	return err
}

// sendInvoice issues a Telegram Stars invoice. XTR invoices carry an empty
// provider token.
func (r *RealTelegramBotAdapter) sendInvoice(ctx context.Context, chatID int64, spec application.InvoiceSpec) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	invoice := tgbotapi.NewInvoice(
		chatID,
		spec.Title,
		spec.Description,
		spec.Payload,
		"", // provider token
		"", // start parameter
		spec.Currency,
		[]tgbotapi.LabeledPrice{{Label: spec.Title, Amount: spec.Amount}},
	)
	invoice.SuggestedTipAmounts = []int{}
	_, err := r.bot.Send(invoice)
	return err
}

// sendMainMenu shows the persistent reply keyboard under the given text.
func (r *RealTelegramBotAdapter) sendMainMenu(ctx context.Context, chatID int64, text string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(r.translator.T("kb_status")),
			tgbotapi.NewKeyboardButton(r.translator.T("kb_topic")),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(r.translator.T("kb_level")),
			tgbotapi.NewKeyboardButton(r.translator.T("kb_buy")),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(r.translator.T("kb_reset")),
			tgbotapi.NewKeyboardButton(r.translator.T("kb_help")),
		),
	)
	kb.ResizeKeyboard = true
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = kb
	_, err := r.bot.Send(msg)
	return err
}

// NotifyAdmins fans a message out to every operator chat.
func (r *RealTelegramBotAdapter) NotifyAdmins(ctx context.Context, text string, rows [][]adapter.InlineButton) {
	for _, id := range r.cfg.Bot.AdminIDs {
		var err error
		if len(rows) > 0 {
			err = r.SendButtons(ctx, id, text, rows)
		} else {
			err = r.SendMessage(ctx, id, text)
		}
		if err != nil {
			r.log.Warn().Err(err).Int64("admin_id", id).Msg("admin notification failed")
		}
	}
}
