package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STATS_API_BASE_URL", "https://api.example.org")

	cfg, err := Load("does-not-exist.env")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 15*time.Second, cfg.StatsAPITimeout)
	assert.Equal(t, time.Minute, cfg.StatsStaleTime)
	assert.Equal(t, "/statistics/teams", cfg.StatsTeam)
	assert.False(t, cfg.AuthEnabled())
	assert.False(t, cfg.RedisEnabled())
	assert.Equal(t, "charity-admin:", cfg.RedisPrefix)
	assert.False(t, cfg.ArchiveEnabled())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Ho_Chi_Minh", loc.String())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing base url", env: map[string]string{"STATS_API_BASE_URL": ""}},
		{name: "bad duration", env: map[string]string{"STATS_API_BASE_URL": "https://api.example.org", "STATS_API_TIMEOUT": "soon"}},
		{name: "bad log format", env: map[string]string{"STATS_API_BASE_URL": "https://api.example.org", "LOG_FORMAT": "xml"}},
		{name: "bad location", env: map[string]string{"STATS_API_BASE_URL": "https://api.example.org", "STATS_LOCATION": "Mars/Olympus"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("does-not-exist.env")
			assert.Error(t, err)
		})
	}
}
