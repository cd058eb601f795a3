package events

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitDispatchesToSubscribers(t *testing.T) {
	m := NewManager(zerolog.Nop())

	var received []*Event
	m.Subscribe(TradeExecuted, func(event *Event) {
		received = append(received, event)
	})

	m.Emit(TradeExecuted, "ledger", map[string]interface{}{"portfolio_id": "p1"})

	require.Len(t, received, 1)
	assert.Equal(t, TradeExecuted, received[0].Type)
	assert.Equal(t, "ledger", received[0].Module)
	assert.Equal(t, "p1", received[0].Data["portfolio_id"])
}

func TestEmitIgnoresOtherTypes(t *testing.T) {
	m := NewManager(zerolog.Nop())

	count := 0
	m.Subscribe(TradeExecuted, func(event *Event) { count++ })

	m.Emit(RateWatchFired, "watch", nil)
	assert.Equal(t, 0, count)
}

func TestMultipleSubscribers(t *testing.T) {
	m := NewManager(zerolog.Nop())

	first, second := 0, 0
	m.Subscribe(TelegramLinked, func(event *Event) { first++ })
	m.Subscribe(TelegramLinked, func(event *Event) { second++ })

	m.Emit(TelegramLinked, "linking", nil)
	assert.Equal(t, 1, first)
	assert.Equal(t, 1, second)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	m := NewManager(zerolog.Nop())

	stayed, left := 0, 0
	m.Subscribe(TradeExecuted, func(event *Event) { stayed++ })
	id := m.Subscribe(TradeExecuted, func(event *Event) { left++ })

	m.Emit(TradeExecuted, "ledger", nil)
	m.Unsubscribe(TradeExecuted, id)
	m.Emit(TradeExecuted, "ledger", nil)

	assert.Equal(t, 2, stayed)
	assert.Equal(t, 1, left)

	m.mu.RLock()
	remaining := len(m.handlers[TradeExecuted])
	m.mu.RUnlock()
	assert.Equal(t, 1, remaining)
}

func TestUnsubscribeUnknownIDIsNoop(t *testing.T) {
	m := NewManager(zerolog.Nop())

	count := 0
	m.Subscribe(RateWatchFired, func(event *Event) { count++ })
	m.Unsubscribe(RateWatchFired, 999)

	m.Emit(RateWatchFired, "watch", nil)
	assert.Equal(t, 1, count)
}

func TestEmitError(t *testing.T) {
	m := NewManager(zerolog.Nop())

	var received *Event
	m.Subscribe(ErrorOccurred, func(event *Event) { received = event })

	m.EmitError("ledger", assert.AnError, map[string]interface{}{"op": "buy"})

	require.NotNil(t, received)
	assert.Equal(t, assert.AnError.Error(), received.Data["error"])
}
