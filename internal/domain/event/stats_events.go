package event

import (
	"time"

	"charity-admin/internal/domain/aggregate"
)

// DomainEvent represents a domain event
type DomainEvent interface {
	EventType() string
	AggregateID() string
	OccurredAt() time.Time
	Version() int
}

const (
	TypeStatsRefreshed   = "StatsRefreshed"
	TypeStatsQueryFailed = "StatsQueryFailed"
)

// StatsRefreshed is published after a report was rebuilt from resolved queries.
// DataUpdatedAt is the newest upstream response the report contains, so
// reports served from cache repeat the previous value.
type StatsRefreshed struct {
	RangeKey      string                 `json:"range_key"`
	Result        *aggregate.StatsResult `json:"result"`
	DataUpdatedAt time.Time              `json:"data_updated_at"`
	Timestamp     time.Time              `json:"timestamp"`
}

func (e *StatsRefreshed) EventType() string     { return TypeStatsRefreshed }
func (e *StatsRefreshed) AggregateID() string   { return e.RangeKey }
func (e *StatsRefreshed) OccurredAt() time.Time { return e.Timestamp }
func (e *StatsRefreshed) Version() int          { return 1 }

// StatsQueryFailed is published once per upstream query that ended in error.
type StatsQueryFailed struct {
	RangeKey  string                  `json:"range_key"`
	Endpoint  aggregate.StatsEndpoint `json:"endpoint"`
	Reason    string                  `json:"reason"`
	Timestamp time.Time               `json:"timestamp"`
}

func (e *StatsQueryFailed) EventType() string     { return TypeStatsQueryFailed }
func (e *StatsQueryFailed) AggregateID() string   { return e.RangeKey }
func (e *StatsQueryFailed) OccurredAt() time.Time { return e.Timestamp }
func (e *StatsQueryFailed) Version() int          { return 1 }
