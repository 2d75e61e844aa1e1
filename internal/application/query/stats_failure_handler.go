package query

import (
	"context"

	"charity-admin/internal/domain/event"
)

// ListStatsFailures query for the most recent upstream failures
// ListStatsFailures query for the most recent upstream failures, optionally
// restricted to one range key.
type ListStatsFailures struct {
	Limit    int
	RangeKey string
}

// EventLog is the read side of the in-process event store.
type EventLog interface {
	Recent(ctx context.Context, eventType string, limit int) ([]event.DomainEvent, error)
	GetEvents(ctx context.Context, aggregateID string) ([]event.DomainEvent, error)
}

type StatsFailureHandler struct {
	log EventLog
}

func NewStatsFailureHandler(log EventLog) *StatsFailureHandler {
	return &StatsFailureHandler{log: log}
}

// Handle returns recorded StatsQueryFailed events, newest first.
func (h *StatsFailureHandler) Handle(ctx context.Context, q ListStatsFailures) ([]*event.StatsQueryFailed, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultSnapshotLimit
	}
	if limit > maxSnapshotLimit {
		limit = maxSnapshotLimit
	}

	if q.RangeKey != "" {
		return h.forRange(ctx, q.RangeKey, limit)
	}

	events, err := h.log.Recent(ctx, event.TypeStatsQueryFailed, limit)
	if err != nil {
		return nil, err
	}
	failures := make([]*event.StatsQueryFailed, 0, len(events))
	for _, e := range events {
		if failed, ok := e.(*event.StatsQueryFailed); ok {
			failures = append(failures, failed)
		}
	}
	return failures, nil
}

// forRange walks the range's history, which is stored oldest first.
func (h *StatsFailureHandler) forRange(ctx context.Context, rangeKey string, limit int) ([]*event.StatsQueryFailed, error) {
	events, err := h.log.GetEvents(ctx, rangeKey)
	if err != nil {
		return nil, err
	}
	failures := make([]*event.StatsQueryFailed, 0, limit)
	for i := len(events) - 1; i >= 0 && len(failures) < limit; i-- {
		if failed, ok := events[i].(*event.StatsQueryFailed); ok {
			failures = append(failures, failed)
		}
	}
	return failures, nil
}
