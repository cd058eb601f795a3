// Package notify abstracts outbound user notifications. Delivery is
// best-effort: callers log failures but never let them fail the
// operation that produced the notification.
package notify

import "github.com/rs/zerolog"

// Transport delivers a notification to a Telegram chat.
type Transport interface {
	Send(chatID int64, text string) error
}

// TelegramSender is the subset of the Telegram client used for delivery.
type TelegramSender interface {
	SendMessage(chatID int64, text string) error
}

// TelegramTransport delivers notifications through the Telegram Bot API.
type TelegramTransport struct {
	sender TelegramSender
}

// NewTelegramTransport creates a transport backed by a Telegram client.
func NewTelegramTransport(sender TelegramSender) *TelegramTransport {
	return &TelegramTransport{sender: sender}
}

func (t *TelegramTransport) Send(chatID int64, text string) error {
	return t.sender.SendMessage(chatID, text)
}

// LogTransport logs notifications instead of delivering them.
// Used in dev mode and whenever no bot token is configured.
type LogTransport struct {
	log zerolog.Logger
}

// NewLogTransport creates a log-only transport.
func NewLogTransport(log zerolog.Logger) *LogTransport {
	return &LogTransport{log: log.With().Str("transport", "log").Logger()}
}

func (t *LogTransport) Send(chatID int64, text string) error {
	t.log.Info().
		Int64("chat_id", chatID).
		Str("text", text).
		Msg("Notification (not delivered)")
	return nil
}
