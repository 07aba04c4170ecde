package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"TrendSnapshot/internal/aggregate"
	"TrendSnapshot/internal/domain"
	"TrendSnapshot/internal/normalize"
	"TrendSnapshot/internal/ports"
	"TrendSnapshot/internal/rank"
)

// Limits are the tunable bounds of the snapshot lifecycle.
type Limits struct {
	Window    time.Duration // source window selecting news items
	Retention time.Duration // snapshots older than this are pruned
	Staleness time.Duration // building rows older than this are reclaimed
	MinItems  int           // smallest publishable snapshot
}

// DefaultLimits mirrors the production schedule: weekly window, four weeks
// of retention, a five-item floor, and a one-hour crash-reclaim bound.
func DefaultLimits() Limits {
	return Limits{
		Window:    7 * 24 * time.Hour,
		Retention: 28 * 24 * time.Hour,
		Staleness: time.Hour,
		MinItems:  5,
	}
}

// BuildOptions control a single build invocation.
type BuildOptions struct {
	// DryRun computes the full pipeline but persists nothing.
	DryRun bool
	// Publish selects the terminal status: published when true, draft when
	// false.
	Publish bool
}

// BuilderDeps wires the driven adapters into the lifecycle manager.
type BuilderDeps struct {
	Reader ports.SourceReader
	Store  ports.SnapshotStore
	Logger *slog.Logger
}

// Builder is the snapshot lifecycle manager: the only component that writes
// to the snapshot store. It owns the building→published/draft state machine,
// the single-in-flight guard, and retention pruning.
type Builder struct {
	reader ports.SourceReader
	store  ports.SnapshotStore
	logger *slog.Logger
	limits Limits
	now    func() time.Time
}

// NewBuilder constructs the lifecycle manager. Zero-valued limits fall back
// to the defaults.
func NewBuilder(deps BuilderDeps, limits Limits) *Builder {
	defaults := DefaultLimits()
	if limits.Window <= 0 {
		limits.Window = defaults.Window
	}
	if limits.Retention <= 0 {
		limits.Retention = defaults.Retention
	}
	if limits.Staleness <= 0 {
		limits.Staleness = defaults.Staleness
	}
	if limits.MinItems <= 0 {
		limits.MinItems = defaults.MinItems
	}

	return &Builder{
		reader: deps.Reader,
		store:  deps.Store,
		logger: deps.Logger,
		limits: limits,
		now:    time.Now,
	}
}

// Build runs one complete snapshot build. Logical failures (concurrent
// build, below threshold, publish race lost) come back as an unsuccessful
// BuildResult with a typed reason; infrastructure failures come back as
// errors and leave the store exactly as it was.
func (b *Builder) Build(ctx context.Context, opts BuildOptions) (domain.BuildResult, error) {
	if b.reader == nil || b.store == nil {
		return domain.BuildResult{}, fmt.Errorf("builder is not fully configured")
	}

	started := b.now().UTC()

	// A build killed mid-flight leaves its row in building status, which
	// would block the guard below forever. Reclaim anything old enough that
	// its process cannot still be alive.
	reclaimed, err := b.store.ReclaimStale(ctx, started.Add(-b.limits.Staleness))
	if err != nil {
		return domain.BuildResult{}, fmt.Errorf("reclaim stale builds: %w", err)
	}
	if reclaimed > 0 {
		b.warn("reclaimed stale building snapshots", "count", reclaimed)
	}

	// Advisory guard: cooperative, status-predicate based. It only excludes
	// builds issued through this component.
	inFlight, err := b.store.CountBuilding(ctx)
	if err != nil {
		return domain.BuildResult{}, fmt.Errorf("check in-flight builds: %w", err)
	}
	if inFlight > 0 {
		b.warn("build already in progress", "in_flight", inFlight)
		return domain.BuildResult{
			Reason:  domain.ReasonBuildInProgress,
			Message: "another snapshot build is in progress",
		}, nil
	}

	rangeEnd := started
	rangeStart := rangeEnd.Add(-b.limits.Window)

	sources, err := b.reader.Window(ctx, rangeStart, rangeEnd)
	if err != nil {
		return domain.BuildResult{}, fmt.Errorf("read source window: %w", err)
	}

	normalized := make([]domain.NormalizedItem, 0, len(sources))
	for _, src := range sources {
		normalized = append(normalized, normalize.Item(src, started))
	}

	ranked := rank.Assign(normalized)
	meta := aggregate.Summarize(ranked, b.now().UTC().Sub(started))

	if len(ranked) < b.limits.MinItems {
		b.warn("not enough items to build a snapshot",
			"items", len(ranked), "min", b.limits.MinItems)
		return domain.BuildResult{
			Reason: domain.ReasonBelowThreshold,
			Message: fmt.Sprintf("found %d items, need at least %d",
				len(ranked), b.limits.MinItems),
			Meta: &meta,
		}, nil
	}

	if opts.DryRun {
		b.info("dry run complete", "items", meta.ItemCount)
		return domain.BuildResult{Success: true, Meta: &meta}, nil
	}

	snap := domain.Snapshot{
		ID:            uuid.NewString(),
		Status:        domain.StatusBuilding,
		RangeStart:    rangeStart,
		RangeEnd:      rangeEnd,
		BuiltAt:       started,
		SchemaVersion: domain.SchemaVersion,
		AlgoVersion:   domain.AlgoVersion,
		Items:         ranked,
		Meta:          meta,
	}

	if err := b.store.Insert(ctx, snap); err != nil {
		return domain.BuildResult{}, fmt.Errorf("create snapshot: %w", err)
	}

	target := domain.StatusPublished
	if !opts.Publish {
		target = domain.StatusDraft
	}

	// The transition only succeeds while the row is still in building
	// status; zero rows affected means a racing process got there first.
	flipped, err := b.store.Transition(ctx, snap.ID, domain.StatusBuilding, target)
	if err != nil || !flipped {
		// Roll back rather than orphan a building row that would block the
		// guard on every future run.
		if delErr := b.store.Delete(ctx, snap.ID); delErr != nil {
			b.warn("rollback failed, building row may block future builds",
				"snapshot", snap.ID, "error", delErr)
		}
		if err != nil {
			return domain.BuildResult{}, fmt.Errorf("publish snapshot %s: %w", snap.ID, err)
		}
		return domain.BuildResult{
			Reason:  domain.ReasonPublishConflict,
			Message: "snapshot left building status before publish",
		}, nil
	}

	b.prune(ctx, started)

	b.info("snapshot built",
		"snapshot", snap.ID, "status", target, "items", meta.ItemCount)
	return domain.BuildResult{
		Success:    true,
		SnapshotID: snap.ID,
		Meta:       &meta,
	}, nil
}

// prune drops snapshots past retention, any status. Best effort: a pruning
// failure never fails the build that triggered it.
func (b *Builder) prune(ctx context.Context, now time.Time) {
	cutoff := now.Add(-b.limits.Retention)
	pruned, err := b.store.PruneOlderThan(ctx, cutoff)
	if err != nil {
		b.warn("retention pruning failed", "error", err)
		return
	}
	if pruned > 0 {
		b.info("pruned expired snapshots", "count", pruned, "cutoff", cutoff)
	}
}

// Prune runs retention pruning on demand, outside a build.
func (b *Builder) Prune(ctx context.Context) (int64, error) {
	if b.store == nil {
		return 0, fmt.Errorf("snapshot store is not configured")
	}
	return b.store.PruneOlderThan(ctx, b.now().UTC().Add(-b.limits.Retention))
}

// Latest returns the most recently published snapshot, or nil when none
// exists yet.
func (b *Builder) Latest(ctx context.Context) (*domain.Snapshot, error) {
	if b.store == nil {
		return nil, fmt.Errorf("snapshot store is not configured")
	}
	return b.store.Latest(ctx)
}

// ByID returns a published snapshot by identifier. Building and draft
// snapshots stay invisible, whatever id the caller guesses.
func (b *Builder) ByID(ctx context.Context, id string) (*domain.Snapshot, error) {
	if b.store == nil {
		return nil, fmt.Errorf("snapshot store is not configured")
	}
	return b.store.ByID(ctx, id)
}

func (b *Builder) info(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Info(msg, args...)
	}
}

func (b *Builder) warn(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Warn(msg, args...)
	}
}
