package querycache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)}
}

func counting(calls *int32, data any, err error) FetchFunc {
	return func(ctx context.Context) (any, error) {
		atomic.AddInt32(calls, 1)
		return data, err
	}
}

func TestClient_UnknownKeyIsLoading(t *testing.T) {
	c := NewClient(time.Minute)
	st := c.State("overall")
	assert.True(t, st.IsLoading())
	assert.False(t, st.IsFetching)
	assert.False(t, st.IsError())
}

func TestClient_FetchServesFreshData(t *testing.T) {
	clock := newClock()
	c := NewClient(time.Minute, WithClock(clock.Now))
	var calls int32

	st := c.Fetch(context.Background(), "k", counting(&calls, "v1", nil))
	require.Equal(t, StatusSuccess, st.Status)
	assert.Equal(t, "v1", st.Data)
	assert.False(t, st.IsFetching)

	st = c.Fetch(context.Background(), "k", counting(&calls, "v2", nil))
	assert.Equal(t, "v1", st.Data)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))

	clock.Advance(2 * time.Minute)
	st = c.Fetch(context.Background(), "k", counting(&calls, "v2", nil))
	assert.Equal(t, "v2", st.Data)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestClient_ErrorKeepsLastData(t *testing.T) {
	c := NewClient(time.Minute)
	var calls int32
	boom := errors.New("upstream 502")

	c.Fetch(context.Background(), "k", counting(&calls, "good", nil))
	st := c.Refetch(context.Background(), "k", counting(&calls, nil, boom))

	assert.True(t, st.IsError())
	assert.ErrorIs(t, st.Err, boom)
	assert.Equal(t, "good", st.Data)
	assert.False(t, st.IsLoading())

	st = c.Refetch(context.Background(), "k", counting(&calls, "again", nil))
	assert.Equal(t, StatusSuccess, st.Status)
	assert.NoError(t, st.Err)
}

func TestClient_ConcurrentFetchesShareOneCall(t *testing.T) {
	c := NewClient(time.Minute)
	var calls int32
	release := make(chan struct{})
	fn := func(ctx context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "shared", nil
	}

	var wg sync.WaitGroup
	results := make([]State, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.Fetch(context.Background(), "k", fn)
		}(i)
	}
	assert.Eventually(t, func() bool { return c.State("k").IsFetching }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
	for _, st := range results {
		assert.Equal(t, "shared", st.Data)
	}
}

func TestClient_InvalidateDiscardsSupersededResponse(t *testing.T) {
	c := NewClient(time.Minute)
	release := make(chan struct{})
	slow := func(ctx context.Context) (any, error) {
		<-release
		return "stale", nil
	}

	done := make(chan State)
	go func() { done <- c.Refetch(context.Background(), "k", slow) }()
	require.Eventually(t, func() bool { return c.State("k").IsFetching }, time.Second, 5*time.Millisecond)

	c.Invalidate("k")
	close(release)
	<-done

	st := c.State("k")
	assert.Nil(t, st.Data)
	assert.True(t, st.IsLoading())
	assert.False(t, st.IsFetching)

	var calls int32
	st = c.Fetch(context.Background(), "k", counting(&calls, "fresh", nil))
	assert.Equal(t, "fresh", st.Data)
}

func TestClient_CancelledCallerDoesNotFailSharedFetch(t *testing.T) {
	c := NewClient(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	st := c.Fetch(ctx, "k", func(ctx context.Context) (any, error) {
		return "ok", ctx.Err()
	})
	assert.Equal(t, StatusSuccess, st.Status)
	assert.Equal(t, "ok", st.Data)
}

func TestClient_PrefetchRunsInBackground(t *testing.T) {
	c := NewClient(time.Minute)
	var calls int32

	c.Prefetch("k", counting(&calls, "bg", nil))
	c.Wait()
	assert.Equal(t, "bg", c.State("k").Data)

	c.Prefetch("k", counting(&calls, "bg2", nil))
	c.Wait()
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestClient_PrefetchMarksKeyFetching(t *testing.T) {
	c := NewClient(time.Minute)
	release := make(chan struct{})

	c.Prefetch("k", func(ctx context.Context) (any, error) {
		<-release
		return "bg", nil
	})
	st := c.State("k")
	assert.True(t, st.IsLoading())
	assert.True(t, st.IsFetching)

	close(release)
	c.Wait()
	assert.False(t, c.State("k").IsFetching)
}

func TestClient_CollectsIdleKeys(t *testing.T) {
	clock := newClock()
	c := NewClient(time.Minute, WithClock(clock.Now), WithGCTime(10*time.Minute))
	var calls int32

	c.Fetch(context.Background(), "old", counting(&calls, 1, nil))
	clock.Advance(11 * time.Minute)
	c.Fetch(context.Background(), "new", counting(&calls, 2, nil))

	assert.Equal(t, 1, c.Len())
	assert.Nil(t, c.State("old").Data)
}
