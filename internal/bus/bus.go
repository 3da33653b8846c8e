// Package bus implements the single-consumer, FIFO event bus: a tagged
// message set with a typed registry mapping kind to handlers, and one
// consumer goroutine dispatching messages strictly in publish order.
//
// One buffered channel feeds a single goroutine rather than a fan-out of
// per-handler goroutines, so a handler's own follow-up publishes are
// always processed before any message published after the handler
// returns.
package bus

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Event is implemented by every message carried on the bus. Kind returns
// the message's registry tag; dispatch keys off it directly, with no
// reflection anywhere on the publish path.
type Event interface {
	Kind() string
}

// Handler processes one message. Registered handlers are invoked
// sequentially, in registration order, and awaited before the next queued
// message is dispatched.
type Handler func(ctx context.Context, msg Event) error

// Bus is the single-consumer FIFO dispatcher. All domain events in this
// system flow through exactly one Bus instance, created by the
// orchestrator at startup.
type Bus struct {
	logger   *zap.Logger
	queue    chan Event
	mu       sync.RWMutex
	handlers map[string][]Handler
}

// Config holds event bus configuration.
type Config struct {
	Logger     *zap.Logger
	BufferSize int // default 10000 if <= 0
}

// New creates a new event bus. Call Run to start the consumer loop.
func New(cfg Config) *Bus {
	bufSize := cfg.BufferSize
	if bufSize <= 0 {
		bufSize = 10000
	}
	return &Bus{
		logger:   cfg.Logger,
		queue:    make(chan Event, bufSize),
		handlers: make(map[string][]Handler),
	}
}

// Subscribe registers a typed handler for messages of kind T. T should be
// the concrete event struct (e.g. BookUpdated), not an interface; the
// registry key is the struct's own Kind tag, taken once here at
// registration time.
func Subscribe[T Event](b *Bus, handler func(ctx context.Context, msg T) error) {
	var zero T
	kind := zero.Kind()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[kind] = append(b.handlers[kind], func(ctx context.Context, msg Event) error {
		typed, ok := msg.(T)
		if !ok {
			return fmt.Errorf("bus: %s handler received %T", kind, msg)
		}
		return handler(ctx, typed)
	})
}

// Publish enqueues a message for dispatch. Non-blocking up to the buffer
// size; a full buffer blocks the caller, which in practice is always
// either the Run loop itself (a handler publishing a follow-up event) or a
// producer task (a venue adapter) that can tolerate backpressure.
func (b *Bus) Publish(msg Event) {
	b.queue <- msg
}

// Run drains the queue FIFO, invoking every handler registered for each
// message's kind in registration order, sequentially, until ctx is
// cancelled. A handler error is logged and does not stop the loop.
func (b *Bus) Run(ctx context.Context) {
	b.logger.Info("event-bus-starting")
	defer b.logger.Info("event-bus-stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-b.queue:
			b.dispatch(ctx, msg)
		}
	}
}

func (b *Bus) dispatch(ctx context.Context, msg Event) {
	kind := msg.Kind()
	b.mu.RLock()
	handlers := b.handlers[kind]
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := h(ctx, msg); err != nil {
			b.logger.Error("bus-handler-error",
				zap.String("message-kind", kind),
				zap.Error(err))
		}
	}
}

// UnsubscribeAll clears the handler registry. Used by tests and by
// orchestrator shutdown to make teardown order explicit.
func (b *Bus) UnsubscribeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = make(map[string][]Handler)
}

// Len reports the number of messages currently queued, for diagnostics.
func (b *Bus) Len() int {
	return len(b.queue)
}
