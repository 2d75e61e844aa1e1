package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayloadCache_KeysCarryPrefix(t *testing.T) {
	cfg := RedisConfig{Addr: "127.0.0.1:6379", Prefix: "charity-admin:"}
	cache := NewPayloadCache(nil, cfg.Prefix)
	assert.Equal(t, "charity-admin:stats:overall:2024-03-01..2024-03-31", cache.key("stats:overall:2024-03-01..2024-03-31"))

	bare := NewPayloadCache(nil, "")
	assert.Equal(t, "stats:team", bare.key("stats:team"))
}

func TestConnect_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client, err := Connect(ctx, RedisConfig{Addr: "127.0.0.1:1"})
	require.Error(t, err)
	assert.Nil(t, client)
	assert.Contains(t, err.Error(), "127.0.0.1:1")
}
