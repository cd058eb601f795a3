package account

import "time"

// Account is the minimal account record the engine needs: identity plus the
// optional Telegram chat binding used for notifications. Credentials and
// sessions live elsewhere.
type Account struct {
	ID             int64     `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	TelegramChatID *int64    `json:"telegram_chat_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
