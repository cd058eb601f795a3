package currency

import (
	"time"

	"github.com/shopspring/decimal"
)

// Currency is a static reference entity. The engine never mutates it.
type Currency struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	ShortName   string `json:"short_name"`
	Description string `json:"description,omitempty"`
}

// Rate is one observation of a currency's market price, produced by an
// external ingestion process. Immutable once recorded.
type Rate struct {
	ID         int64           `json:"id"`
	CurrencyID int64           `json:"currency_id"`
	Cost       decimal.Decimal `json:"cost"`
	Timestamp  time.Time       `json:"timestamp"`
}
