package projection

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"charity-admin/internal/domain/event"
	"charity-admin/internal/domain/repository"
	"charity-admin/internal/infrastructure/bus"
	"charity-admin/pkg/logger"
)

// StatsSnapshotProjection archives served reports from StatsRefreshed events.
type StatsSnapshotProjection struct {
	repo  repository.StatsSnapshotRepository
	newID func() string

	mu       sync.Mutex
	archived map[string]time.Time // range key -> DataUpdatedAt of the last snapshot
}

func NewStatsSnapshotProjection(repo repository.StatsSnapshotRepository) *StatsSnapshotProjection {
	return &StatsSnapshotProjection{
		repo:     repo,
		newID:    uuid.NewString,
		archived: make(map[string]time.Time),
	}
}

// HandleStatsRefreshed stores one snapshot per upstream update of a range.
// Reports that are still loading carry no data and are skipped, as are
// reports rebuilt from data that was already archived.
func (p *StatsSnapshotProjection) HandleStatsRefreshed(ctx context.Context, e *event.StatsRefreshed) error {
	if e.Result == nil || e.Result.IsLoading {
		return nil
	}
	if !p.claim(e.RangeKey, e.DataUpdatedAt) {
		return nil
	}
	snapshot := &repository.StatsSnapshot{
		ID:         p.newID(),
		RangeKey:   e.RangeKey,
		From:       e.Result.From,
		To:         e.Result.To,
		Report:     e.Result,
		Error:      e.Result.Error,
		CapturedAt: e.Timestamp.UTC(),
	}
	if err := p.repo.Save(ctx, snapshot); err != nil {
		p.release(e.RangeKey, e.DataUpdatedAt)
		return fmt.Errorf("failed to archive stats for %s: %w", e.RangeKey, err)
	}
	logger.WithCtx(ctx, "StatsSnapshotProjection").
		WithField("snapshot_id", snapshot.ID).
		WithField("range", e.RangeKey).
		Debug("stats snapshot archived")
	return nil
}

// claim reserves the archive slot for a range at updatedAt. A zero updatedAt
// is always archived.
func (p *StatsSnapshotProjection) claim(rangeKey string, updatedAt time.Time) bool {
	if updatedAt.IsZero() {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if last, ok := p.archived[rangeKey]; ok && !updatedAt.After(last) {
		return false
	}
	p.archived[rangeKey] = updatedAt
	return true
}

func (p *StatsSnapshotProjection) release(rangeKey string, updatedAt time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if last, ok := p.archived[rangeKey]; ok && last.Equal(updatedAt) {
		delete(p.archived, rangeKey)
	}
}

// HandleStatsQueryFailed records upstream failures in the service log.
func (p *StatsSnapshotProjection) HandleStatsQueryFailed(ctx context.Context, e *event.StatsQueryFailed) error {
	logger.WithCtx(ctx, "StatsSnapshotProjection").
		WithField("range", e.RangeKey).
		WithField("endpoint", e.Endpoint).
		Warnf("upstream statistics query failed: %s", e.Reason)
	return nil
}

// Register subscribes the projection to the stats events.
func (p *StatsSnapshotProjection) Register(eventBus bus.EventBus) error {
	if err := eventBus.Subscribe(event.TypeStatsRefreshed, bus.EventHandlerFunc(
		func(ctx context.Context, e event.DomainEvent) error {
			refreshed, ok := e.(*event.StatsRefreshed)
			if !ok {
				return fmt.Errorf("unexpected event %T", e)
			}
			return p.HandleStatsRefreshed(ctx, refreshed)
		})); err != nil {
		return err
	}
	return eventBus.Subscribe(event.TypeStatsQueryFailed, bus.EventHandlerFunc(
		func(ctx context.Context, e event.DomainEvent) error {
			failed, ok := e.(*event.StatsQueryFailed)
			if !ok {
				return fmt.Errorf("unexpected event %T", e)
			}
			return p.HandleStatsQueryFailed(ctx, failed)
		}))
}
