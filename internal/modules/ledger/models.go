package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// OperationType distinguishes buys from sells.
type OperationType string

const (
	OperationBuy  OperationType = "BUY"
	OperationSell OperationType = "SELL"
)

// Operation is an immutable audit record of a buy or sell. Price is the
// latest rate cost at the instant of execution, never client-supplied.
type Operation struct {
	ID          string          `json:"id"`
	PortfolioID string          `json:"portfolio_id"`
	CurrencyID  int64           `json:"currency_id"`
	Type        OperationType   `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Price       decimal.Decimal `json:"price"`
	Total       decimal.Decimal `json:"total"`
	CreatedAt   time.Time       `json:"created_at"`
}
