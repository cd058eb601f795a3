// Package linking issues one-time codes that bind a Telegram chat to
// an account. Codes are short-lived and consumed on first use.
package linking

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/domain"
)

// LinkCode is a pending one-time linking code.
type LinkCode struct {
	Code      string
	AccountID int64
	ExpiresAt time.Time
}

// Repository handles link code database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new link code repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "linking").Logger(),
	}
}

// Insert stores a new link code.
func (r *Repository) Insert(code string, accountID int64, expiresAt time.Time) error {
	_, err := r.db.Exec(
		"INSERT INTO link_codes (code, account_id, expires_at) VALUES (?, ?, ?)",
		code, accountID, expiresAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert link code: %w", err)
	}
	return nil
}

// Get returns the link code row, or domain.ErrNotFound. Expiry is not
// checked here; the service compares against its clock.
func (r *Repository) Get(code string) (*LinkCode, error) {
	row := r.db.QueryRow(
		"SELECT code, account_id, expires_at FROM link_codes WHERE code = ?", code)

	var lc LinkCode
	var expiresAt int64
	if err := row.Scan(&lc.Code, &lc.AccountID, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get link code: %w", err)
	}
	lc.ExpiresAt = time.Unix(expiresAt, 0)

	return &lc, nil
}

// DeleteTx consumes a code inside the linking transaction.
func (r *Repository) DeleteTx(tx *sql.Tx, code string) error {
	result, err := tx.Exec("DELETE FROM link_codes WHERE code = ?", code)
	if err != nil {
		return fmt.Errorf("failed to delete link code: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted rows: %w", err)
	}
	if affected == 0 {
		// Another verification consumed it first.
		return domain.ErrNotFound
	}
	return nil
}

// DeleteExpired removes every code that expired before the given time.
func (r *Repository) DeleteExpired(before time.Time) (int64, error) {
	result, err := r.db.Exec("DELETE FROM link_codes WHERE expires_at < ?", before.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired link codes: %w", err)
	}
	return result.RowsAffected()
}
