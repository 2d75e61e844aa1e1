package repository

import (
	"context"
	"time"

	"charity-admin/internal/domain/aggregate"
)

// StatsSnapshot is an archived copy of a served report.
type StatsSnapshot struct {
	ID         string                 `json:"id" bson:"_id"`
	RangeKey   string                 `json:"range_key" bson:"range_key"`
	From       string                 `json:"from" bson:"from"`
	To         string                 `json:"to" bson:"to"`
	Report     *aggregate.StatsResult `json:"report" bson:"report"`
	Error      string                 `json:"error,omitempty" bson:"error,omitempty"`
	CapturedAt time.Time              `json:"captured_at" bson:"captured_at"`
}

// StatsSnapshotRepository stores and lists archived reports.
type StatsSnapshotRepository interface {
	Save(ctx context.Context, snapshot *StatsSnapshot) error
	GetByID(ctx context.Context, id string) (*StatsSnapshot, error)
	ListRecent(ctx context.Context, limit int) ([]*StatsSnapshot, error)
}
