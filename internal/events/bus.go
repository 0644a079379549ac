package events

import (
	"sync"
	"time"
)

// Handler is a callback invoked with each matching event. Handlers run
// synchronously on the emitter's goroutine; long work belongs in a job,
// not a handler.
type Handler func(event *Event)

// Bus is an in-process publish/subscribe event bus
type Bus struct {
	mu          sync.RWMutex
	handlers    map[EventType][]Handler
	allHandlers []Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe registers a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// SubscribeAll registers a handler for every event type.
// Used by the SSE and websocket streams.
func (b *Bus) SubscribeAll(handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.allHandlers = append(b.allHandlers, handler)
}

// Emit publishes an event to all matching handlers
func (b *Bus) Emit(eventType EventType, module string, data map[string]interface{}) {
	event := &Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
		Module:    module,
	}

	b.mu.RLock()
	typed := make([]Handler, len(b.handlers[eventType]))
	copy(typed, b.handlers[eventType])
	all := make([]Handler, len(b.allHandlers))
	copy(all, b.allHandlers)
	b.mu.RUnlock()

	for _, handler := range typed {
		handler(event)
	}
	for _, handler := range all {
		handler(event)
	}
}
