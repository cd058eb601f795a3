package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aristath/folio/internal/clients/telegram"
	"github.com/aristath/folio/internal/domain"
)

// handleRequestLink handles POST /api/link. Issues a one-time code the
// account holder opens through a t.me deep link.
func (s *Server) handleRequestLink(w http.ResponseWriter, r *http.Request) {
	code, expiresAt, err := s.linkService.RequestLink(actorID(r))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	response := map[string]interface{}{
		"code":       code,
		"expires_at": expiresAt,
	}
	if s.telegramClient != nil {
		response["link"] = s.telegramClient.DeepLink(code)
	}

	s.writeJSON(w, http.StatusCreated, response)
}

// telegramUpdate is the subset of the Bot API Update we consume.
type telegramUpdate struct {
	Message struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

// handleTelegramWebhook handles POST /api/telegram/webhook. Telegram
// retries on non-2xx responses, so every outcome after parsing answers
// 200; verification results go back to the user as chat messages.
func (s *Server) handleTelegramWebhook(w http.ResponseWriter, r *http.Request) {
	// Updates carry many fields we do not model, so no strict decoding.
	var update telegramUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	chatID := update.Message.Chat.ID
	code := telegram.ParseStartCode(update.Message.Text)
	if chatID == 0 || code == "" {
		w.WriteHeader(http.StatusOK)
		return
	}

	acct, err := s.linkService.Verify(code, chatID)

	reply := ""
	switch {
	case err == nil:
		reply = "Account linked: " + acct.Username
	case errors.Is(err, domain.ErrNotFound):
		reply = "That link code is invalid or has expired. Request a new one."
	case errors.Is(err, domain.ErrConflict):
		reply = "This chat is already linked to a different account."
	default:
		s.log.Error().Err(err).Msg("Link verification failed")
	}

	if reply != "" && s.telegramClient != nil {
		if sendErr := s.telegramClient.SendMessage(chatID, reply); sendErr != nil {
			s.log.Warn().Err(sendErr).Int64("chat_id", chatID).Msg("Failed to send webhook reply")
		}
	}

	w.WriteHeader(http.StatusOK)
}
