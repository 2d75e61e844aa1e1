package bus

import (
	"context"
	"sync"
	"time"

	"charity-admin/internal/domain/event"
	"charity-admin/pkg/logger"
)

// AsyncEventBus runs each handler on its own goroutine. Handlers receive a
// context detached from the publisher's cancellation, bounded by
// handlerTimeout, since publishers are usually HTTP requests that finish
// before the handler does.
type AsyncEventBus struct {
	registry
	wg             sync.WaitGroup
	errorCh        chan error
	handlerTimeout time.Duration
	stopOnce       sync.Once
}

// NewAsyncEventBus creates a new async event bus
func NewAsyncEventBus(handlerTimeout time.Duration) *AsyncEventBus {
	if handlerTimeout <= 0 {
		handlerTimeout = 10 * time.Second
	}
	return &AsyncEventBus{
		errorCh:        make(chan error, 100),
		handlerTimeout: handlerTimeout,
	}
}

// Subscribe registers a handler for a specific event type
func (b *AsyncEventBus) Subscribe(eventType string, handler EventHandler) error {
	return b.subscribe(eventType, handler)
}

// Start begins logging handler errors until ctx is done.
func (b *AsyncEventBus) Start(ctx context.Context) error {
	log := logger.Tag("AsyncEventBus")
	go func() {
		for {
			select {
			case err, ok := <-b.errorCh:
				if !ok {
					return
				}
				log.WithError(err).Error("async event handler failed")
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

// Stop rejects further publishes, waits for in-flight handlers and closes
// the error channel.
func (b *AsyncEventBus) Stop() error {
	b.stopOnce.Do(func() {
		b.markStopped()
		b.wg.Wait()
		close(b.errorCh)
	})
	return nil
}

// Publish hands the event to every subscribed handler and returns immediately.
func (b *AsyncEventBus) Publish(ctx context.Context, evt event.DomainEvent) error {
	handlers, err := b.claim(evt.EventType(), b.wg.Add)
	if err != nil || len(handlers) == 0 {
		return err
	}

	detached := context.WithoutCancel(ctx)
	for _, handler := range handlers {
		go b.publishToHandler(detached, handler, evt)
	}
	return nil
}

// Wait blocks until every handler started so far has returned.
func (b *AsyncEventBus) Wait() {
	b.wg.Wait()
}

func (b *AsyncEventBus) publishToHandler(ctx context.Context, handler EventHandler, evt event.DomainEvent) {
	defer b.wg.Done()

	ctx, cancel := context.WithTimeout(ctx, b.handlerTimeout)
	defer cancel()

	if err := invoke(ctx, handler, evt); err != nil {
		select {
		case b.errorCh <- err:
		default:
			logger.WithCtx(ctx, "AsyncEventBus").WithError(err).Warn("error channel full, dropping error")
		}
	}
}
