// Package domain holds the shared error kinds and small cross-cutting
// interfaces of the engine.
package domain

import "errors"

// Engine error kinds. Callers distinguish them with errors.Is; everything
// else bubbling out of repositories is an infrastructure failure.
var (
	// ErrValidation rejects malformed input (non-positive amounts, bad
	// time-of-day strings) before any state change.
	ErrValidation = errors.New("validation failed")

	// ErrRateUnavailable means no rate has ever been recorded for the
	// requested currency. Normal absence of data, not a fault.
	ErrRateUnavailable = errors.New("no rate available")

	// ErrInsufficientBalance rejects a buy whose total cost exceeds the
	// portfolio's cash balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInsufficientHoldings rejects a sell of more units than held.
	ErrInsufficientHoldings = errors.New("insufficient holdings")

	// ErrForbidden signals an ownership mismatch. It carries no detail about
	// the target entity beyond "forbidden".
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound signals a missing portfolio, watch, currency or link code.
	ErrNotFound = errors.New("not found")

	// ErrConflict signals a chat id already bound to a different account.
	ErrConflict = errors.New("conflict")
)
