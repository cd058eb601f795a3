package watch

// Watch is a standing daily rate notification for one currency in a
// portfolio, fired at NotifyTime every day.
type Watch struct {
	ID          string `json:"id"`
	PortfolioID string `json:"portfolio_id"`
	CurrencyID  int64  `json:"currency_id"`
	NotifyTime  string `json:"notify_time"` // "HH:MM", 24-hour
}
