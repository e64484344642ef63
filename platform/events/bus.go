package events

import (
	"context"
	"sync"

	"repwatch_backend/platform/logger"
)

// InMemoryBus is a simple in-process Bus. Asynchronous handlers are tracked
// so callers can drain them before shutdown.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	wg       sync.WaitGroup
	log      *logger.Logger
}

// NewInMemoryBus creates a new in-memory event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return &InMemoryBus{
		handlers: make(map[string][]Handler),
		log:      log,
	}
}

// Subscribe registers a handler for the named event type.
func (b *InMemoryBus) Subscribe(eventName string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventName] = append(b.handlers[eventName], handler)
}

// Publish dispatches the event to all handlers asynchronously. Handler errors
// are logged, never propagated; event consumers are fire-and-forget.
func (b *InMemoryBus) Publish(ctx context.Context, event Event) {
	for _, h := range b.handlersFor(event.EventName()) {
		h := h
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			if err := h.Handle(ctx, event); err != nil {
				b.log.Warn("event handler failed",
					"event", event.EventName(),
					"error", err.Error(),
				)
			}
		}()
	}
}

// PublishSync dispatches the event and waits for every handler, returning the
// first handler error.
func (b *InMemoryBus) PublishSync(ctx context.Context, event Event) error {
	var first error
	for _, h := range b.handlersFor(event.EventName()) {
		if err := h.Handle(ctx, event); err != nil {
			b.log.Warn("event handler failed",
				"event", event.EventName(),
				"error", err.Error(),
			)
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// Wait blocks until all asynchronously dispatched handlers have returned.
func (b *InMemoryBus) Wait() {
	b.wg.Wait()
}

func (b *InMemoryBus) handlersFor(name string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	hs := make([]Handler, len(b.handlers[name]))
	copy(hs, b.handlers[name])
	return hs
}

var _ Bus = (*InMemoryBus)(nil)
