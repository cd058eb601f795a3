package linking

import (
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/database"
	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/events"
	"github.com/aristath/folio/internal/modules/account"
)

// codeBytes is the entropy of a linking code before encoding.
const codeBytes = 24

// Service issues and verifies one-time Telegram linking codes.
type Service struct {
	db           *sql.DB
	repo         *Repository
	accountRepo  *account.Repository
	eventManager *events.Manager
	clock        domain.Clock
	ttl          time.Duration
	log          zerolog.Logger
}

// NewService creates a new linking service
func NewService(
	db *sql.DB,
	repo *Repository,
	accountRepo *account.Repository,
	eventManager *events.Manager,
	clock domain.Clock,
	ttl time.Duration,
	log zerolog.Logger,
) *Service {
	return &Service{
		db:           db,
		repo:         repo,
		accountRepo:  accountRepo,
		eventManager: eventManager,
		clock:        clock,
		ttl:          ttl,
		log:          log.With().Str("service", "linking").Logger(),
	}
}

// RequestLink issues a fresh one-time code for the account and reports
// when it expires. Codes from earlier requests stay valid until they
// expire or one of them is used.
func (s *Service) RequestLink(accountID int64) (string, time.Time, error) {
	if _, err := s.accountRepo.GetByID(accountID); err != nil {
		return "", time.Time{}, err
	}

	code, err := generateCode()
	if err != nil {
		return "", time.Time{}, err
	}

	expiresAt := s.clock.Now().Add(s.ttl)
	if err := s.repo.Insert(code, accountID, expiresAt); err != nil {
		return "", time.Time{}, err
	}

	s.log.Info().
		Int64("account_id", accountID).
		Time("expires_at", expiresAt).
		Msg("Link code issued")

	return code, expiresAt, nil
}

// Verify consumes a code and binds the chat to the code's account.
// An expired code behaves exactly like an unknown one. A chat already
// bound to a different account yields domain.ErrConflict; re-verifying
// with the account's own chat is idempotent.
func (s *Service) Verify(code string, chatID int64) (*account.Account, error) {
	lc, err := s.repo.Get(code)
	if err != nil {
		return nil, err
	}

	if !s.clock.Now().Before(lc.ExpiresAt) {
		return nil, domain.ErrNotFound
	}

	existing, err := s.accountRepo.GetByChatID(chatID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if existing != nil && existing.ID != lc.AccountID {
		return nil, domain.ErrConflict
	}

	err = database.WithTransaction(s.db, func(tx *sql.Tx) error {
		if err := s.repo.DeleteTx(tx, code); err != nil {
			return err
		}
		return s.accountRepo.BindChatID(tx, lc.AccountID, chatID)
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	acct, err := s.accountRepo.GetByID(lc.AccountID)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("account_id", acct.ID).
		Int64("chat_id", chatID).
		Msg("Telegram chat linked")

	if s.eventManager != nil {
		s.eventManager.Emit(events.TelegramLinked, "linking", map[string]interface{}{
			"account_id": acct.ID,
			"chat_id":    chatID,
		})
	}

	return acct, nil
}

// PruneExpired removes codes past their expiry. Run periodically so
// unused codes do not pile up.
func (s *Service) PruneExpired() (int64, error) {
	removed, err := s.repo.DeleteExpired(s.clock.Now())
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.log.Debug().Int64("removed", removed).Msg("Expired link codes pruned")
	}
	return removed, nil
}

func generateCode() (string, error) {
	buf := make([]byte, codeBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate link code: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
