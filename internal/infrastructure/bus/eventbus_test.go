package bus

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"charity-admin/internal/domain/event"
)

func refreshed(rangeKey string) *event.StatsRefreshed {
	return &event.StatsRefreshed{RangeKey: rangeKey, Timestamp: time.Now()}
}

func TestSyncEventBus_JoinsHandlerErrors(t *testing.T) {
	b := NewSyncEventBus()
	var calls int32
	boom := errors.New("mongo down")

	require.NoError(t, b.Subscribe(event.TypeStatsRefreshed, EventHandlerFunc(func(ctx context.Context, e event.DomainEvent) error {
		atomic.AddInt32(&calls, 1)
		return boom
	})))
	require.NoError(t, b.Subscribe(event.TypeStatsRefreshed, EventHandlerFunc(func(ctx context.Context, e event.DomainEvent) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})))

	err := b.Publish(context.Background(), refreshed("2024-03-01..2024-03-31"))
	assert.ErrorIs(t, err, boom)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))

	assert.NoError(t, b.Publish(context.Background(), &event.StatsQueryFailed{RangeKey: "x"}))
}

func TestSyncEventBus_RejectsNilHandler(t *testing.T) {
	assert.Error(t, NewSyncEventBus().Subscribe(event.TypeStatsRefreshed, nil))
}

func TestAsyncEventBus_HandlerOutlivesPublisherContext(t *testing.T) {
	b := NewAsyncEventBus(time.Second)
	require.NoError(t, b.Start(context.Background()))

	var seen atomic.Value
	require.NoError(t, b.Subscribe(event.TypeStatsRefreshed, EventHandlerFunc(func(ctx context.Context, e event.DomainEvent) error {
		seen.Store(ctx.Err() == nil && e.AggregateID() == "r1")
		return nil
	})))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, b.Publish(ctx, refreshed("r1")))
	cancel()
	b.Wait()

	assert.Equal(t, true, seen.Load())
	require.NoError(t, b.Stop())
	require.NoError(t, b.Stop())
}

func TestAsyncEventBus_NoHandlers(t *testing.T) {
	b := NewAsyncEventBus(0)
	assert.NoError(t, b.Publish(context.Background(), refreshed("r")))
	b.Wait()
}

func TestSyncEventBus_RecoversHandlerPanic(t *testing.T) {
	b := NewSyncEventBus()
	var after int32
	require.NoError(t, b.Subscribe(event.TypeStatsRefreshed, EventHandlerFunc(func(ctx context.Context, e event.DomainEvent) error {
		panic("nil snapshot")
	})))
	require.NoError(t, b.Subscribe(event.TypeStatsRefreshed, EventHandlerFunc(func(ctx context.Context, e event.DomainEvent) error {
		atomic.AddInt32(&after, 1)
		return nil
	})))

	err := b.Publish(context.Background(), refreshed("r"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil snapshot")
	assert.EqualValues(t, 1, atomic.LoadInt32(&after))
}

func TestSyncEventBus_PublishAfterStop(t *testing.T) {
	b := NewSyncEventBus()
	var calls int32
	require.NoError(t, b.Subscribe(event.TypeStatsRefreshed, EventHandlerFunc(func(ctx context.Context, e event.DomainEvent) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})))
	require.NoError(t, b.Start(context.Background()))
	require.NoError(t, b.Stop())

	assert.ErrorIs(t, b.Publish(context.Background(), refreshed("r")), ErrBusStopped)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestAsyncEventBus_PublishAfterStop(t *testing.T) {
	b := NewAsyncEventBus(time.Second)
	require.NoError(t, b.Start(context.Background()))
	require.NoError(t, b.Subscribe(event.TypeStatsRefreshed, EventHandlerFunc(func(ctx context.Context, e event.DomainEvent) error {
		return errors.New("archive down")
	})))
	require.NoError(t, b.Stop())

	assert.NotPanics(t, func() {
		assert.ErrorIs(t, b.Publish(context.Background(), refreshed("r")), ErrBusStopped)
		b.Wait()
	})
}

func TestAsyncEventBus_StopRacesPublish(t *testing.T) {
	b := NewAsyncEventBus(time.Second)
	require.NoError(t, b.Start(context.Background()))
	require.NoError(t, b.Subscribe(event.TypeStatsRefreshed, EventHandlerFunc(func(ctx context.Context, e event.DomainEvent) error {
		return errors.New("archive down")
	})))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				err := b.Publish(context.Background(), refreshed("r"))
				if err != nil {
					assert.ErrorIs(t, err, ErrBusStopped)
					return
				}
			}
		}()
	}
	require.NoError(t, b.Stop())
	wg.Wait()
}
