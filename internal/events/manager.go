package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Handler receives published events. Handlers run synchronously on the
// emitting goroutine and must not block.
type Handler func(event *Event)

// Manager handles event emission, subscription and logging
type Manager struct {
	mu       sync.RWMutex
	handlers map[EventType]map[int]Handler
	nextID   int
	log      zerolog.Logger
}

// NewManager creates a new event manager
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		handlers: make(map[EventType]map[int]Handler),
		log:      log.With().Str("service", "events").Logger(),
	}
}

// Subscribe registers a handler for an event type and returns a
// subscription id for Unsubscribe. Short-lived subscribers such as SSE
// connections must deregister on disconnect.
func (m *Manager) Subscribe(eventType EventType, handler Handler) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	if m.handlers[eventType] == nil {
		m.handlers[eventType] = make(map[int]Handler)
	}
	m.handlers[eventType][m.nextID] = handler
	return m.nextID
}

// Unsubscribe removes a previously registered handler. Unknown ids are
// ignored.
func (m *Manager) Unsubscribe(eventType EventType, id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.handlers[eventType], id)
}

// Emit emits an event
func (m *Manager) Emit(eventType EventType, module string, data map[string]interface{}) {
	event := &Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
		Module:    module,
	}

	eventJSON, _ := json.Marshal(event)
	m.log.Info().
		Str("event_type", string(eventType)).
		Str("module", module).
		RawJSON("event", eventJSON).
		Msg("Event emitted")

	m.mu.RLock()
	handlers := make([]Handler, 0, len(m.handlers[eventType]))
	for _, handler := range m.handlers[eventType] {
		handlers = append(handlers, handler)
	}
	m.mu.RUnlock()

	for _, handler := range handlers {
		handler(event)
	}
}

// EmitError emits an error event
func (m *Manager) EmitError(module string, err error, context map[string]interface{}) {
	data := map[string]interface{}{
		"error":   err.Error(),
		"context": context,
	}
	m.Emit(ErrorOccurred, module, data)
}
