// Package watch persists daily rate watches and drives their cron
// triggers. Each watch maps to exactly one scheduled trigger.
package watch

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/domain"
)

// Repository handles watch database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new watch repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "watch").Logger(),
	}
}

// Insert stores a watch row.
func (r *Repository) Insert(w *Watch) error {
	_, err := r.db.Exec(
		"INSERT INTO watches (id, portfolio_id, currency_id, notify_time) VALUES (?, ?, ?, ?)",
		w.ID, w.PortfolioID, w.CurrencyID, w.NotifyTime,
	)
	if err != nil {
		return fmt.Errorf("failed to insert watch: %w", err)
	}
	return nil
}

// GetByID returns the watch with the given id, or domain.ErrNotFound.
func (r *Repository) GetByID(id string) (*Watch, error) {
	row := r.db.QueryRow(
		"SELECT id, portfolio_id, currency_id, notify_time FROM watches WHERE id = ?", id)

	var w Watch
	if err := row.Scan(&w.ID, &w.PortfolioID, &w.CurrencyID, &w.NotifyTime); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get watch: %w", err)
	}
	return &w, nil
}

// ListByPortfolio returns all watches registered on a portfolio.
func (r *Repository) ListByPortfolio(portfolioID string) ([]Watch, error) {
	rows, err := r.db.Query(
		"SELECT id, portfolio_id, currency_id, notify_time FROM watches WHERE portfolio_id = ? ORDER BY notify_time, id", portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to query watches: %w", err)
	}
	defer rows.Close()

	return collectWatches(rows)
}

// ListAll returns every persisted watch. Used on startup to re-register
// cron triggers.
func (r *Repository) ListAll() ([]Watch, error) {
	rows, err := r.db.Query(
		"SELECT id, portfolio_id, currency_id, notify_time FROM watches ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query watches: %w", err)
	}
	defer rows.Close()

	return collectWatches(rows)
}

// Delete removes a watch row. Returns domain.ErrNotFound when no row
// matched.
func (r *Repository) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM watches WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete watch: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted rows: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func collectWatches(rows *sql.Rows) ([]Watch, error) {
	var watches []Watch
	for rows.Next() {
		var w Watch
		if err := rows.Scan(&w.ID, &w.PortfolioID, &w.CurrencyID, &w.NotifyTime); err != nil {
			return nil, fmt.Errorf("failed to scan watch: %w", err)
		}
		watches = append(watches, w)
	}
	return watches, rows.Err()
}
