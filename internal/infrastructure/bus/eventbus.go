package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"charity-admin/internal/domain/event"
)

// ErrBusStopped is returned by Publish once Stop has been called.
var ErrBusStopped = errors.New("event bus stopped")

// EventBus fans domain events out to the handlers subscribed to their type.
type EventBus interface {
	Publish(ctx context.Context, evt event.DomainEvent) error
	Subscribe(eventType string, handler EventHandler) error
	Start(ctx context.Context) error
	Stop() error
}

type EventHandler interface {
	Handle(ctx context.Context, evt event.DomainEvent) error
}

// EventHandlerFunc adapts a plain function to EventHandler.
type EventHandlerFunc func(ctx context.Context, evt event.DomainEvent) error

func (f EventHandlerFunc) Handle(ctx context.Context, evt event.DomainEvent) error {
	return f(ctx, evt)
}

// registry is the subscription table shared by both bus flavours.
type registry struct {
	mu       sync.RWMutex
	handlers map[string][]EventHandler
	stopped  bool
}

func (r *registry) subscribe(eventType string, handler EventHandler) error {
	if handler == nil {
		return fmt.Errorf("nil handler for %s", eventType)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.handlers == nil {
		r.handlers = make(map[string][]EventHandler)
	}
	r.handlers[eventType] = append(r.handlers[eventType], handler)
	return nil
}

// claim returns the handlers for eventType. reserve, when set, runs under the
// read lock so a concurrent markStopped cannot slip in between.
func (r *registry) claim(eventType string, reserve func(n int)) ([]EventHandler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.stopped {
		return nil, ErrBusStopped
	}
	handlers := r.handlers[eventType]
	if reserve != nil && len(handlers) > 0 {
		reserve(len(handlers))
	}
	return handlers, nil
}

func (r *registry) markStopped() {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()
}

// SyncEventBus runs handlers on the publishing goroutine, in subscription
// order. A failing or panicking handler does not stop the ones after it.
type SyncEventBus struct {
	registry
}

func NewSyncEventBus() *SyncEventBus {
	return &SyncEventBus{}
}

func (b *SyncEventBus) Subscribe(eventType string, handler EventHandler) error {
	return b.subscribe(eventType, handler)
}

// Publish returns every handler failure joined into one error.
func (b *SyncEventBus) Publish(ctx context.Context, evt event.DomainEvent) error {
	handlers, err := b.claim(evt.EventType(), nil)
	if err != nil {
		return err
	}
	var errs []error
	for _, handler := range handlers {
		if err := invoke(ctx, handler, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *SyncEventBus) Start(context.Context) error { return nil }

func (b *SyncEventBus) Stop() error {
	b.markStopped()
	return nil
}

func invoke(ctx context.Context, handler EventHandler, evt event.DomainEvent) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%s (%s): handler panic: %v", evt.EventType(), evt.AggregateID(), rec)
		}
	}()
	if err := handler.Handle(ctx, evt); err != nil {
		return fmt.Errorf("%s (%s): %w", evt.EventType(), evt.AggregateID(), err)
	}
	return nil
}
