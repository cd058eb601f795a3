// Package currency stores reference currencies and their rate time series.
// The engine treats rates as read-only input: only the most recent rate per
// currency matters to trading and valuation.
package currency

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/folio/internal/domain"
)

// Repository handles currency and rate database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new currency repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "currency").Logger(),
	}
}

// Create inserts a new reference currency.
func (r *Repository) Create(name, shortName, description string) (*Currency, error) {
	res, err := r.db.Exec(
		"INSERT INTO currencies (name, short_name, description) VALUES (?, ?, ?)",
		name, shortName, description,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create currency: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get currency id: %w", err)
	}

	return &Currency{ID: id, Name: name, ShortName: shortName, Description: description}, nil
}

// GetByID returns the currency with the given id, or domain.ErrNotFound.
func (r *Repository) GetByID(id int64) (*Currency, error) {
	row := r.db.QueryRow(
		"SELECT id, name, short_name, description FROM currencies WHERE id = ?", id)
	return scanCurrency(row)
}

// GetByShortName returns the currency with the given short code.
func (r *Repository) GetByShortName(shortName string) (*Currency, error) {
	row := r.db.QueryRow(
		"SELECT id, name, short_name, description FROM currencies WHERE short_name = ?", shortName)
	return scanCurrency(row)
}

// List returns all reference currencies.
func (r *Repository) List() ([]Currency, error) {
	rows, err := r.db.Query("SELECT id, name, short_name, description FROM currencies ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query currencies: %w", err)
	}
	defer rows.Close()

	var currencies []Currency
	for rows.Next() {
		var c Currency
		if err := rows.Scan(&c.ID, &c.Name, &c.ShortName, &c.Description); err != nil {
			return nil, fmt.Errorf("failed to scan currency: %w", err)
		}
		currencies = append(currencies, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating currencies: %w", err)
	}

	return currencies, nil
}

// InsertRate appends a rate observation for a currency.
func (r *Repository) InsertRate(currencyID int64, cost decimal.Decimal, timestamp time.Time) (*Rate, error) {
	if cost.IsNegative() {
		return nil, fmt.Errorf("%w: rate cost must not be negative", domain.ErrValidation)
	}

	res, err := r.db.Exec(
		"INSERT INTO rates (currency_id, cost, timestamp) VALUES (?, ?, ?)",
		currencyID, cost.String(), timestamp.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert rate: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get rate id: %w", err)
	}

	r.log.Debug().
		Int64("currency_id", currencyID).
		Str("cost", cost.String()).
		Msg("Rate recorded")

	return &Rate{ID: id, CurrencyID: currencyID, Cost: cost, Timestamp: timestamp}, nil
}

// LatestRate returns the most recent rate for a currency. Ties on timestamp
// resolve to the highest rowid, i.e. insertion order. Returns
// domain.ErrRateUnavailable when the currency has no rates at all.
func (r *Repository) LatestRate(currencyID int64) (*Rate, error) {
	row := r.db.QueryRow(`
		SELECT id, currency_id, cost, timestamp FROM rates
		WHERE currency_id = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT 1
	`, currencyID)

	rate, err := scanRate(row)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrRateUnavailable
	}
	return rate, err
}

// History returns the most recent rate observations for a currency, newest
// first.
func (r *Repository) History(currencyID int64, limit int) ([]Rate, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.Query(`
		SELECT id, currency_id, cost, timestamp FROM rates
		WHERE currency_id = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, currencyID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query rate history: %w", err)
	}
	defer rows.Close()

	var rates []Rate
	for rows.Next() {
		var rate Rate
		var cost string
		var ts int64
		if err := rows.Scan(&rate.ID, &rate.CurrencyID, &cost, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan rate: %w", err)
		}
		rate.Cost, err = decimal.NewFromString(cost)
		if err != nil {
			return nil, fmt.Errorf("failed to parse rate cost %q: %w", cost, err)
		}
		rate.Timestamp = time.Unix(ts, 0)
		rates = append(rates, rate)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rates: %w", err)
	}

	return rates, nil
}

func scanCurrency(row *sql.Row) (*Currency, error) {
	var c Currency
	err := row.Scan(&c.ID, &c.Name, &c.ShortName, &c.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan currency: %w", err)
	}
	return &c, nil
}

func scanRate(row *sql.Row) (*Rate, error) {
	var rate Rate
	var cost string
	var ts int64

	err := row.Scan(&rate.ID, &rate.CurrencyID, &cost, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan rate: %w", err)
	}

	rate.Cost, err = decimal.NewFromString(cost)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rate cost %q: %w", cost, err)
	}
	rate.Timestamp = time.Unix(ts, 0)

	return &rate, nil
}
