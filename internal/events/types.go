// Package events provides event management functionality.
package events

import "time"

// EventType represents different event types
type EventType string

const (
	TradeExecuted       EventType = "TRADE_EXECUTED"
	PortfolioValueAlert EventType = "PORTFOLIO_VALUE_ALERT"
	RateWatchFired      EventType = "RATE_WATCH_FIRED"
	TelegramLinked      EventType = "TELEGRAM_LINKED"
	ErrorOccurred       EventType = "ERROR_OCCURRED"
)

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
	Module    string                 `json:"module"`
}
