// Package account stores user accounts and their Telegram chat bindings.
package account

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/domain"
)

// Repository handles account database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new account repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "account").Logger(),
	}
}

// Create inserts a new account and returns it with its assigned id.
func (r *Repository) Create(username, email string) (*Account, error) {
	now := time.Now()

	res, err := r.db.Exec(
		"INSERT INTO accounts (username, email, created_at) VALUES (?, ?, ?)",
		username, email, now.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get account id: %w", err)
	}

	r.log.Info().Int64("account_id", id).Str("username", username).Msg("Account created")

	return &Account{ID: id, Username: username, Email: email, CreatedAt: now}, nil
}

// GetByID returns the account with the given id, or domain.ErrNotFound.
func (r *Repository) GetByID(id int64) (*Account, error) {
	row := r.db.QueryRow(
		"SELECT id, username, email, telegram_chat_id, created_at FROM accounts WHERE id = ?", id)
	return r.scanAccount(row)
}

// GetByChatID returns the account bound to a Telegram chat id, or
// domain.ErrNotFound when no account has claimed it.
func (r *Repository) GetByChatID(chatID int64) (*Account, error) {
	row := r.db.QueryRow(
		"SELECT id, username, email, telegram_chat_id, created_at FROM accounts WHERE telegram_chat_id = ?", chatID)
	return r.scanAccount(row)
}

// BindChatID attaches a Telegram chat id to an account within the given
// transaction. Used by the linking flow so the bind and the code consumption
// commit together.
func (r *Repository) BindChatID(tx *sql.Tx, accountID, chatID int64) error {
	res, err := tx.Exec("UPDATE accounts SET telegram_chat_id = ? WHERE id = ?", chatID, accountID)
	if err != nil {
		return fmt.Errorf("failed to bind chat id: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check bind result: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}

	return nil
}

func (r *Repository) scanAccount(row *sql.Row) (*Account, error) {
	var a Account
	var chatID sql.NullInt64
	var createdAt int64

	err := row.Scan(&a.ID, &a.Username, &a.Email, &chatID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}

	if chatID.Valid {
		a.TelegramChatID = &chatID.Int64
	}
	a.CreatedAt = time.Unix(createdAt, 0)

	return &a, nil
}
