// Package portfolio stores portfolios and their per-currency holdings.
// Balance and holdings are only ever mutated through the ledger's
// transactions; the tx-scoped methods here exist for that purpose.
package portfolio

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/folio/internal/domain"
)

// Repository handles portfolio and holding database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new portfolio repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "portfolio").Logger(),
	}
}

// Create inserts a new portfolio with an initial cash balance.
func (r *Repository) Create(accountID int64, balance decimal.Decimal) (*Portfolio, error) {
	if balance.IsNegative() {
		return nil, fmt.Errorf("%w: balance must not be negative", domain.ErrValidation)
	}

	p := &Portfolio{
		ID:        uuid.New().String(),
		AccountID: accountID,
		Balance:   balance,
		CreatedAt: time.Now(),
	}

	_, err := r.db.Exec(
		"INSERT INTO portfolios (id, account_id, balance, created_at) VALUES (?, ?, ?, ?)",
		p.ID, p.AccountID, p.Balance.String(), p.CreatedAt.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create portfolio: %w", err)
	}

	r.log.Info().Str("portfolio_id", p.ID).Int64("account_id", accountID).Msg("Portfolio created")

	return p, nil
}

// GetByID returns the portfolio with the given id, or domain.ErrNotFound.
func (r *Repository) GetByID(id string) (*Portfolio, error) {
	row := r.db.QueryRow(
		"SELECT id, account_id, balance, notify_threshold, created_at FROM portfolios WHERE id = ?", id)
	return scanPortfolio(row.Scan)
}

// GetByIDTx is GetByID inside a ledger transaction.
func (r *Repository) GetByIDTx(tx *sql.Tx, id string) (*Portfolio, error) {
	row := tx.QueryRow(
		"SELECT id, account_id, balance, notify_threshold, created_at FROM portfolios WHERE id = ?", id)
	return scanPortfolio(row.Scan)
}

// ListByAccount returns all portfolios owned by an account.
func (r *Repository) ListByAccount(accountID int64) ([]Portfolio, error) {
	rows, err := r.db.Query(
		"SELECT id, account_id, balance, notify_threshold, created_at FROM portfolios WHERE account_id = ? ORDER BY created_at", accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolios: %w", err)
	}
	defer rows.Close()

	return collectPortfolios(rows)
}

// ListWithThreshold returns every portfolio that has a notify threshold set.
// Used by the valuation sweep.
func (r *Repository) ListWithThreshold() ([]Portfolio, error) {
	rows, err := r.db.Query(
		"SELECT id, account_id, balance, notify_threshold, created_at FROM portfolios WHERE notify_threshold IS NOT NULL")
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolios with threshold: %w", err)
	}
	defer rows.Close()

	return collectPortfolios(rows)
}

// UpdateThreshold sets or clears a portfolio's notify threshold.
func (r *Repository) UpdateThreshold(id string, threshold *float64) error {
	if threshold != nil && *threshold < 0 {
		return fmt.Errorf("%w: notify threshold must not be negative", domain.ErrValidation)
	}

	var value interface{}
	if threshold != nil {
		value = *threshold
	}

	res, err := r.db.Exec("UPDATE portfolios SET notify_threshold = ? WHERE id = ?", value, id)
	if err != nil {
		return fmt.Errorf("failed to update notify threshold: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check threshold update: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}

	return nil
}

// Delete removes a portfolio. Holdings, operations and watches cascade in
// the schema.
func (r *Repository) Delete(id string) error {
	res, err := r.db.Exec("DELETE FROM portfolios WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete portfolio: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check portfolio delete: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}

	r.log.Info().Str("portfolio_id", id).Msg("Portfolio deleted")
	return nil
}

// SetBalanceTx writes a portfolio's balance inside a ledger transaction.
func (r *Repository) SetBalanceTx(tx *sql.Tx, id string, balance decimal.Decimal) error {
	res, err := tx.Exec("UPDATE portfolios SET balance = ? WHERE id = ?", balance.String(), id)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check balance update: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}

	return nil
}

// Holdings returns all holdings of a portfolio.
func (r *Repository) Holdings(portfolioID string) ([]Holding, error) {
	rows, err := r.db.Query(
		"SELECT portfolio_id, currency_id, amount FROM holdings WHERE portfolio_id = ? ORDER BY currency_id", portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	var holdings []Holding
	for rows.Next() {
		h, err := scanHolding(rows.Scan)
		if err != nil {
			return nil, err
		}
		holdings = append(holdings, *h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holdings: %w", err)
	}

	return holdings, nil
}

// GetHoldingTx returns one holding inside a ledger transaction, or
// domain.ErrNotFound when the portfolio holds none of the currency.
func (r *Repository) GetHoldingTx(tx *sql.Tx, portfolioID string, currencyID int64) (*Holding, error) {
	row := tx.QueryRow(
		"SELECT portfolio_id, currency_id, amount FROM holdings WHERE portfolio_id = ? AND currency_id = ?",
		portfolioID, currencyID)
	return scanHolding(row.Scan)
}

// UpsertHoldingTx creates or replaces a holding amount inside a ledger
// transaction.
func (r *Repository) UpsertHoldingTx(tx *sql.Tx, portfolioID string, currencyID int64, amount decimal.Decimal) error {
	_, err := tx.Exec(`
		INSERT INTO holdings (portfolio_id, currency_id, amount)
		VALUES (?, ?, ?)
		ON CONFLICT (portfolio_id, currency_id) DO UPDATE SET amount = excluded.amount
	`, portfolioID, currencyID, amount.String())
	if err != nil {
		return fmt.Errorf("failed to upsert holding: %w", err)
	}
	return nil
}

// DeleteHoldingTx removes a holding row inside a ledger transaction.
// Called when a sell brings the amount to exactly zero.
func (r *Repository) DeleteHoldingTx(tx *sql.Tx, portfolioID string, currencyID int64) error {
	_, err := tx.Exec(
		"DELETE FROM holdings WHERE portfolio_id = ? AND currency_id = ?", portfolioID, currencyID)
	if err != nil {
		return fmt.Errorf("failed to delete holding: %w", err)
	}
	return nil
}

func scanPortfolio(scan func(dest ...interface{}) error) (*Portfolio, error) {
	var p Portfolio
	var balance string
	var threshold sql.NullFloat64
	var createdAt int64

	err := scan(&p.ID, &p.AccountID, &balance, &threshold, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan portfolio: %w", err)
	}

	p.Balance, err = decimal.NewFromString(balance)
	if err != nil {
		return nil, fmt.Errorf("failed to parse balance %q: %w", balance, err)
	}
	if threshold.Valid {
		p.NotifyThreshold = &threshold.Float64
	}
	p.CreatedAt = time.Unix(createdAt, 0)

	return &p, nil
}

func collectPortfolios(rows *sql.Rows) ([]Portfolio, error) {
	var portfolios []Portfolio
	for rows.Next() {
		p, err := scanPortfolio(rows.Scan)
		if err != nil {
			return nil, err
		}
		portfolios = append(portfolios, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating portfolios: %w", err)
	}

	return portfolios, nil
}

func scanHolding(scan func(dest ...interface{}) error) (*Holding, error) {
	var h Holding
	var amount string

	err := scan(&h.PortfolioID, &h.CurrencyID, &amount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan holding: %w", err)
	}

	h.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("failed to parse holding amount %q: %w", amount, err)
	}

	return &h, nil
}
