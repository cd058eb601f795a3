// Package telegram provides a minimal Telegram Bot API client for
// delivering notifications and building account-linking deep links.
package telegram

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Client for the Telegram Bot API
type Client struct {
	baseURL     string
	botUsername string
	client      *http.Client
	log         zerolog.Logger
}

// NewClient creates a new Telegram Bot API client.
// token is the bot token from @BotFather; botUsername is used for deep links.
func NewClient(token, botUsername string, log zerolog.Logger) *Client {
	return &Client{
		baseURL:     "https://api.telegram.org/bot" + token,
		botUsername: botUsername,
		client:      &http.Client{Timeout: 10 * time.Second},
		log:         log.With().Str("client", "telegram").Logger(),
	}
}

// SendMessage delivers a text message to a chat.
func (c *Client) SendMessage(chatID int64, text string) error {
	form := url.Values{}
	form.Set("chat_id", strconv.FormatInt(chatID, 10))
	form.Set("text", text)

	resp, err := c.client.PostForm(c.baseURL+"/sendMessage", form)
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if !result.OK {
		return fmt.Errorf("API returned error: %s", result.Description)
	}

	c.log.Debug().
		Int64("chat_id", chatID).
		Int("length", len(text)).
		Msg("Message sent")

	return nil
}

// DeepLink builds a t.me start link carrying a one-time linking code.
// The user opens the link, Telegram sends "/start <code>" to the bot,
// and the webhook verifies the code.
func (c *Client) DeepLink(code string) string {
	return fmt.Sprintf("https://t.me/%s?start=%s", c.botUsername, code)
}

// ParseStartCode extracts the linking code from a "/start <code>" command.
// Returns empty string when the text is not a start command with payload.
func ParseStartCode(text string) string {
	const prefix = "/start "
	if !strings.HasPrefix(text, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(text, prefix))
}
