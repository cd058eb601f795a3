package portfolio

import (
	"time"

	"github.com/shopspring/decimal"
)

// Portfolio is a user's cash + holdings + history container. Balance is
// mutated only by ledger operations; the notify threshold drives the
// valuation change detector.
type Portfolio struct {
	ID              string          `json:"id"`
	AccountID       int64           `json:"account_id"`
	Balance         decimal.Decimal `json:"balance"`
	NotifyThreshold *float64        `json:"notify_threshold,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Holding is the quantity of one currency owned inside a portfolio.
// A holding row exists only while its amount is positive: a full sell
// deletes the row instead of leaving it at zero.
type Holding struct {
	PortfolioID string          `json:"portfolio_id"`
	CurrencyID  int64           `json:"currency_id"`
	Amount      decimal.Decimal `json:"amount"`
}
