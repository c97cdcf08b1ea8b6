// Package memory provides an in-process event bus. It is used when no
// Kafka cluster is configured and by tests; nothing is persisted.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/ahrav/handyhire/internal/domain/events"
)

// HandlerFunc consumes a published envelope.
type HandlerFunc func(ctx context.Context, env events.EventEnvelope) error

var _ events.EventBus = (*Broker)(nil)

// Broker delivers envelopes synchronously to every subscribed handler.
type Broker struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]HandlerFunc
	closed   bool
}

// NewBroker creates a broker with no subscribers.
func NewBroker() *Broker {
	return &Broker{handlers: make(map[int]HandlerFunc)}
}

// ErrBrokerClosed is returned by operations on a closed broker.
var ErrBrokerClosed = errors.New("broker closed")

// Subscribe registers handler until ctx is cancelled.
func (b *Broker) Subscribe(ctx context.Context, handler HandlerFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if handler == nil {
		return errors.New("handler cannot be nil")
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrBrokerClosed
	}
	id := b.nextID
	b.nextID++
	b.handlers[id] = handler
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.handlers, id)
		b.mu.Unlock()
	}()

	return nil
}

// Publish hands env to every subscriber, stopping at the first error.
// The handler set is copied first so handlers may subscribe or publish.
func (b *Broker) Publish(ctx context.Context, env events.EventEnvelope, opts ...events.PublishOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := events.ApplyOptions(opts)
	if params.Key != "" {
		env.Key = params.Key
	}
	if len(params.Headers) > 0 {
		env.Headers = params.Headers
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrBrokerClosed
	}
	handlers := make([]HandlerFunc, 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := h(ctx, env); err != nil {
			return err
		}
	}
	return nil
}

// Close drops every subscriber. Later publishes fail with ErrBrokerClosed.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	clear(b.handlers)
	return nil
}
