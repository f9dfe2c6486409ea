package adapter

import "context"

// InlineButton is a transport-agnostic inline keyboard button. URL wins over
// Data when both are set.
type InlineButton struct {
	Text string
	Data string
	URL  string
}

// TelegramBot is the outbound messaging port. Background workers use it to
// notify users without depending on the transport package.
type TelegramBot interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendButtons(ctx context.Context, chatID int64, text string, rows [][]InlineButton) error
	SendVoice(ctx context.Context, chatID int64, audio []byte) error
}
