package query

import (
	"context"
	"strings"

	"charity-admin/internal/domain/repository"
	"charity-admin/pkg/errors"
)

const (
	defaultSnapshotLimit = 20
	maxSnapshotLimit     = 100
)

// StatsSnapshotHandler serves the archived reports.
type StatsSnapshotHandler struct {
	repo repository.StatsSnapshotRepository
}

func NewStatsSnapshotHandler(repo repository.StatsSnapshotRepository) *StatsSnapshotHandler {
	return &StatsSnapshotHandler{repo: repo}
}

// List returns recent snapshots, newest first. Limit defaults to 20 and is capped at 100.
func (h *StatsSnapshotHandler) List(ctx context.Context, q ListStatsSnapshots) ([]*repository.StatsSnapshot, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultSnapshotLimit
	}
	if limit > maxSnapshotLimit {
		limit = maxSnapshotLimit
	}
	return h.repo.ListRecent(ctx, limit)
}

func (h *StatsSnapshotHandler) Get(ctx context.Context, q GetStatsSnapshot) (*repository.StatsSnapshot, error) {
	id := strings.TrimSpace(q.ID)
	if id == "" {
		return nil, errors.NewValidationError("snapshot id is required")
	}
	return h.repo.GetByID(ctx, id)
}
