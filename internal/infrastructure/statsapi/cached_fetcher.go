package statsapi

import (
	"context"
	"time"

	"charity-admin/internal/domain/aggregate"
	"charity-admin/pkg/logger"
)

// PayloadCache stores raw upstream bodies shared between service instances.
type PayloadCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// RawFetcher is implemented by Client.
type RawFetcher interface {
	FetchRaw(ctx context.Context, endpoint aggregate.StatsEndpoint, rng aggregate.DateRange) ([]byte, error)
}

// CachedFetcher serves bodies from a PayloadCache before calling upstream.
// Cache failures only cost a cache miss.
type CachedFetcher struct {
	next  RawFetcher
	cache PayloadCache
	ttl   time.Duration
}

func NewCachedFetcher(next RawFetcher, cache PayloadCache, ttl time.Duration) *CachedFetcher {
	return &CachedFetcher{next: next, cache: cache, ttl: ttl}
}

// Fetch implements the aggregator's fetcher contract.
func (f *CachedFetcher) Fetch(ctx context.Context, endpoint aggregate.StatsEndpoint, rng aggregate.DateRange) (any, error) {
	log := logger.WithCtx(ctx, "CachedFetcher.Fetch")
	key := CacheKey(endpoint, rng)

	body, hit, err := f.cache.Get(ctx, key)
	if err != nil {
		log.WithError(err).WithField("key", key).Warn("payload cache read failed")
	}
	if hit {
		if v, err := Decode(body); err == nil {
			return v, nil
		}
		log.WithField("key", key).Warn("discarding undecodable cached payload")
	}

	body, err = f.next.FetchRaw(ctx, endpoint, rng)
	if err != nil {
		return nil, err
	}
	v, err := Decode(body)
	if err != nil {
		return nil, err
	}
	if err := f.cache.Set(ctx, key, body, f.ttl); err != nil {
		log.WithError(err).WithField("key", key).Warn("payload cache write failed")
	}
	return v, nil
}

// Invalidate drops the cached bodies of every endpoint for the range.
func (f *CachedFetcher) Invalidate(ctx context.Context, rng aggregate.DateRange) error {
	keys := make([]string, 0, len(aggregate.StatsEndpoints))
	for _, endpoint := range aggregate.StatsEndpoints {
		keys = append(keys, CacheKey(endpoint, rng))
	}
	return f.cache.Delete(ctx, keys...)
}

// CacheKey names the cached body of one endpoint and range.
func CacheKey(endpoint aggregate.StatsEndpoint, rng aggregate.DateRange) string {
	return "stats:" + string(endpoint) + ":" + rng.Key()
}
