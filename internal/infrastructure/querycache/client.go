// Package querycache tracks the lifecycle of keyed upstream queries:
// pending/success/error status, in-flight state, freshness and
// superseded responses.
package querycache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Status of a query key.
type Status string

const (
	StatusPending Status = "pending" // no data and no error yet
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// State is a copy of a query's current lifecycle. Data survives a later
// failed refetch, as dashboards keep showing the last good payload.
type State struct {
	Key        string
	Data       any
	Err        error
	Status     Status
	IsFetching bool
	UpdatedAt  time.Time
}

// IsLoading is true while no payload has resolved yet.
func (s State) IsLoading() bool { return s.Status == StatusPending }

// IsError reports whether the last fetch failed.
func (s State) IsError() bool { return s.Status == StatusError }

// FetchFunc loads a query's payload.
type FetchFunc func(ctx context.Context) (any, error)

type entry struct {
	state      State
	generation uint64
	inflight   int
	stale      bool
	lastAccess time.Time
}

// Client holds query states in memory. It is safe for concurrent use.
type Client struct {
	mu        sync.Mutex
	entries   map[string]*entry
	group     singleflight.Group
	staleTime time.Duration
	gcTime    time.Duration
	now       func() time.Time
	wg        sync.WaitGroup
}

// Option configures a Client.
type Option func(*Client)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithGCTime sets how long an untouched, idle key is retained.
func WithGCTime(d time.Duration) Option {
	return func(c *Client) { c.gcTime = d }
}

// NewClient creates a query client; successful payloads are fresh for staleTime.
func NewClient(staleTime time.Duration, opts ...Option) *Client {
	c := &Client{
		entries:   make(map[string]*entry),
		staleTime: staleTime,
		gcTime:    30 * time.Minute,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current state of key without triggering a fetch.
func (c *Client) State(key string) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return State{Key: key, Status: StatusPending}
	}
	e.lastAccess = c.now()
	return e.state
}

// Fetch returns the cached state when it is fresh, otherwise loads it.
// Concurrent callers for the same key share one call to fn.
func (c *Client) Fetch(ctx context.Context, key string, fn FetchFunc) State {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok && c.isFresh(e) {
		e.lastAccess = c.now()
		st := e.state
		c.mu.Unlock()
		return st
	}
	c.mu.Unlock()
	return c.run(ctx, key, fn)
}

// Refetch loads key regardless of freshness.
func (c *Client) Refetch(ctx context.Context, key string, fn FetchFunc) State {
	return c.run(ctx, key, fn)
}

// Prefetch starts a background load when key is not fresh and nothing is in
// flight for it. It never blocks.
func (c *Client) Prefetch(key string, fn FetchFunc) {
	c.mu.Lock()
	e := c.entry(key)
	if c.isFresh(e) || e.inflight > 0 {
		c.mu.Unlock()
		return
	}
	gen := c.begin(e)
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.complete(context.Background(), key, gen, fn)
	}()
}

// Invalidate marks key stale. Responses of fetches started before the call
// are discarded when they arrive.
func (c *Client) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		e.generation++
		e.stale = true
	}
}

// Wait blocks until background prefetches have finished.
func (c *Client) Wait() {
	c.wg.Wait()
}

// Len reports how many keys are tracked.
func (c *Client) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Client) run(ctx context.Context, key string, fn FetchFunc) State {
	c.mu.Lock()
	gen := c.begin(c.entry(key))
	c.mu.Unlock()
	return c.complete(ctx, key, gen, fn)
}

// begin marks a fetch in flight and returns the generation it belongs to.
// mu must be held.
func (c *Client) begin(e *entry) uint64 {
	e.inflight++
	e.state.IsFetching = true
	return e.generation
}

func (c *Client) complete(ctx context.Context, key string, gen uint64, fn FetchFunc) State {
	// The shared call must outlive the caller that happened to start it.
	callCtx := context.WithoutCancel(ctx)
	data, err, _ := c.group.Do(key+"#"+strconv.FormatUint(gen, 10), func() (any, error) {
		return fn(callCtx)
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entry(key)
	e.inflight--
	e.state.IsFetching = e.inflight > 0
	if e.generation != gen {
		return e.state
	}
	now := c.now()
	if err != nil {
		e.state.Err = err
		e.state.Status = StatusError
	} else {
		e.state.Data = data
		e.state.Err = nil
		e.state.Status = StatusSuccess
		e.stale = false
	}
	e.state.UpdatedAt = now
	c.collect(now)
	return e.state
}

// entry must be called with mu held.
func (c *Client) entry(key string) *entry {
	e, ok := c.entries[key]
	if !ok {
		e = &entry{state: State{Key: key, Status: StatusPending}}
		c.entries[key] = e
	}
	e.lastAccess = c.now()
	return e
}

func (c *Client) isFresh(e *entry) bool {
	if e.stale || e.state.Status != StatusSuccess {
		return false
	}
	return c.now().Sub(e.state.UpdatedAt) < c.staleTime
}

// collect drops idle keys nobody read within gcTime. mu must be held.
func (c *Client) collect(now time.Time) {
	if c.gcTime <= 0 {
		return
	}
	for key, e := range c.entries {
		if e.inflight == 0 && now.Sub(e.lastAccess) > c.gcTime {
			delete(c.entries, key)
		}
	}
}
