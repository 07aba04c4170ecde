package ports

import (
	"context"
	"time"

	"TrendSnapshot/internal/domain"
)

// SourceReader queries the mutable news-item store for a half-open window
// [start, end). Implementations must apply a deterministic secondary order
// (score descending, ingestion time descending, id ascending) so downstream
// stages are reproducible. An empty result is a valid outcome, not an error.
type SourceReader interface {
	Window(ctx context.Context, start, end time.Time) ([]domain.SourceItem, error)
}

// SnapshotStore persists snapshot rows. The lifecycle manager is the only
// writer; Latest and ByID expose published snapshots only.
type SnapshotStore interface {
	Insert(ctx context.Context, snap domain.Snapshot) error
	// Transition flips status from→to in one conditional update and reports
	// whether a row was actually affected.
	Transition(ctx context.Context, id string, from, to domain.SnapshotStatus) (bool, error)
	Delete(ctx context.Context, id string) error
	CountBuilding(ctx context.Context) (int, error)
	// ReclaimStale deletes building rows older than the given bound, so a
	// crashed build cannot block the guard forever.
	ReclaimStale(ctx context.Context, olderThan time.Time) (int64, error)
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	Latest(ctx context.Context) (*domain.Snapshot, error)
	ByID(ctx context.Context, id string) (*domain.Snapshot, error)
}

// Scheduler controls when builds execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
