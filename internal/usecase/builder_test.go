package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"TrendSnapshot/internal/domain"
	"TrendSnapshot/internal/ports"
)

var fixedNow = time.Date(2026, time.August, 20, 6, 0, 0, 0, time.UTC)

type fakeReader struct {
	items []domain.SourceItem
	err   error

	start time.Time
	end   time.Time
}

func (f *fakeReader) Window(_ context.Context, start, end time.Time) ([]domain.SourceItem, error) {
	f.start, f.end = start, end
	return f.items, f.err
}

type fakeStore struct {
	building      int
	transitionOK  bool
	transitionErr error
	insertErr     error

	inserted   []domain.Snapshot
	deleted    []string
	lastTarget domain.SnapshotStatus
	reclaimedB time.Time
	prunedB    time.Time
	pruneErr   error
}

var _ ports.SnapshotStore = (*fakeStore)(nil)

func (f *fakeStore) Insert(_ context.Context, snap domain.Snapshot) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, snap)
	return nil
}

func (f *fakeStore) Transition(_ context.Context, _ string, _, to domain.SnapshotStatus) (bool, error) {
	f.lastTarget = to
	return f.transitionOK, f.transitionErr
}

func (f *fakeStore) Delete(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeStore) CountBuilding(_ context.Context) (int, error) {
	return f.building, nil
}

func (f *fakeStore) ReclaimStale(_ context.Context, olderThan time.Time) (int64, error) {
	f.reclaimedB = olderThan
	return 0, nil
}

func (f *fakeStore) PruneOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	f.prunedB = cutoff
	return 1, f.pruneErr
}

func (f *fakeStore) Latest(_ context.Context) (*domain.Snapshot, error) { return nil, nil }

func (f *fakeStore) ByID(_ context.Context, _ string) (*domain.Snapshot, error) { return nil, nil }

func sourceItems(n int) []domain.SourceItem {
	items := make([]domain.SourceItem, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, domain.SourceItem{
			ID:              string(rune('a' + i)),
			Title:           "clip",
			Platform:        "youtube",
			RawPreciseScore: "50",
			RawPublishedAt:  "2026-08-18T10:00:00Z",
		})
	}
	return items
}

func newTestBuilder(reader *fakeReader, store *fakeStore) *Builder {
	b := NewBuilder(BuilderDeps{Reader: reader, Store: store}, Limits{})
	b.now = func() time.Time { return fixedNow }
	return b
}

func TestBuildPublishesSnapshot(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{items: sourceItems(6)}
	store := &fakeStore{transitionOK: true}
	b := newTestBuilder(reader, store)

	result, err := b.Build(context.Background(), BuildOptions{Publish: true})
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if len(store.inserted) != 1 {
		t.Fatalf("expected one insert, got %d", len(store.inserted))
	}

	snap := store.inserted[0]
	if snap.Status != domain.StatusBuilding {
		t.Fatalf("snapshot must be created in building status, got %s", snap.Status)
	}
	if snap.ID != result.SnapshotID {
		t.Fatalf("result id %s does not match stored %s", result.SnapshotID, snap.ID)
	}
	if len(snap.Items) != 6 {
		t.Fatalf("expected 6 ranked items, got %d", len(snap.Items))
	}
	if got := reader.end.Sub(reader.start); got != 7*24*time.Hour {
		t.Fatalf("expected a 7-day window, got %v", got)
	}
	wantPrune := fixedNow.Add(-28 * 24 * time.Hour)
	if !store.prunedB.Equal(wantPrune) {
		t.Fatalf("expected prune cutoff %v, got %v", wantPrune, store.prunedB)
	}
}

func TestBuildBelowThresholdWritesNothing(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{items: sourceItems(4)}
	store := &fakeStore{transitionOK: true}
	b := newTestBuilder(reader, store)

	result, err := b.Build(context.Background(), BuildOptions{Publish: true})
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	if result.Success {
		t.Fatalf("expected failure, got %+v", result)
	}
	if result.Reason != domain.ReasonBelowThreshold {
		t.Fatalf("expected below_threshold, got %s", result.Reason)
	}
	if result.Meta == nil || result.Meta.ItemCount != 4 {
		t.Fatalf("expected shortfall meta, got %+v", result.Meta)
	}
	if len(store.inserted) != 0 {
		t.Fatalf("threshold rejection must not write, got %d inserts", len(store.inserted))
	}
}

func TestBuildGuardRejectsConcurrentBuild(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{items: sourceItems(6)}
	store := &fakeStore{building: 1, transitionOK: true}
	b := newTestBuilder(reader, store)

	result, err := b.Build(context.Background(), BuildOptions{Publish: true})
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	if result.Success || result.Reason != domain.ReasonBuildInProgress {
		t.Fatalf("expected build_in_progress, got %+v", result)
	}
	if len(store.inserted) != 0 {
		t.Fatalf("guard rejection must not write, got %d inserts", len(store.inserted))
	}
}

func TestBuildRollsBackOnPublishRace(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{items: sourceItems(6)}
	store := &fakeStore{transitionOK: false}
	b := newTestBuilder(reader, store)

	result, err := b.Build(context.Background(), BuildOptions{Publish: true})
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	if result.Success || result.Reason != domain.ReasonPublishConflict {
		t.Fatalf("expected publish_conflict, got %+v", result)
	}
	if len(store.inserted) != 1 || len(store.deleted) != 1 {
		t.Fatalf("expected insert then rollback delete, got %d/%d",
			len(store.inserted), len(store.deleted))
	}
	if store.deleted[0] != store.inserted[0].ID {
		t.Fatalf("rolled back wrong row: %s vs %s", store.deleted[0], store.inserted[0].ID)
	}
}

func TestBuildRollsBackOnTransitionError(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{items: sourceItems(6)}
	store := &fakeStore{transitionErr: errors.New("connection reset")}
	b := newTestBuilder(reader, store)

	_, err := b.Build(context.Background(), BuildOptions{Publish: true})
	if err == nil {
		t.Fatalf("expected infrastructure error")
	}
	if len(store.deleted) != 1 {
		t.Fatalf("expected rollback delete, got %d", len(store.deleted))
	}
}

func TestBuildDryRunPersistsNothing(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{items: sourceItems(6)}
	store := &fakeStore{transitionOK: true}
	b := newTestBuilder(reader, store)

	result, err := b.Build(context.Background(), BuildOptions{DryRun: true, Publish: true})
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	if !result.Success || result.SnapshotID != "" {
		t.Fatalf("dry run should succeed without an id, got %+v", result)
	}
	if result.Meta == nil || result.Meta.ItemCount != 6 {
		t.Fatalf("dry run must still report meta, got %+v", result.Meta)
	}
	if len(store.inserted) != 0 {
		t.Fatalf("dry run must not write, got %d inserts", len(store.inserted))
	}
}

func TestBuildDraftStatus(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{items: sourceItems(6)}
	store := &fakeStore{transitionOK: true}
	b := newTestBuilder(reader, store)

	result, err := b.Build(context.Background(), BuildOptions{Publish: false})
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if store.lastTarget != domain.StatusDraft {
		t.Fatalf("expected draft transition, got %s", store.lastTarget)
	}
}

func TestBuildPruneFailureDoesNotFailBuild(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{items: sourceItems(6)}
	store := &fakeStore{transitionOK: true, pruneErr: errors.New("timeout")}
	b := newTestBuilder(reader, store)

	result, err := b.Build(context.Background(), BuildOptions{Publish: true})
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	if !result.Success {
		t.Fatalf("pruning failure must not fail the build, got %+v", result)
	}
}

func TestBuildReaderErrorIsFatal(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{err: errors.New("permission denied")}
	store := &fakeStore{transitionOK: true}
	b := newTestBuilder(reader, store)

	_, err := b.Build(context.Background(), BuildOptions{Publish: true})
	if err == nil {
		t.Fatalf("expected error from reader failure")
	}
	if len(store.inserted) != 0 {
		t.Fatalf("reader failure must not write, got %d inserts", len(store.inserted))
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	t.Parallel()

	items := sourceItems(6)
	items[2].RawPreciseScore = "50" // duplicate scores to force tiebreaks

	runOnce := func() []string {
		reader := &fakeReader{items: items}
		store := &fakeStore{transitionOK: true}
		b := newTestBuilder(reader, store)
		if _, err := b.Build(context.Background(), BuildOptions{Publish: true}); err != nil {
			t.Fatalf("Build error: %v", err)
		}
		order := make([]string, 0, len(store.inserted[0].Items))
		for _, it := range store.inserted[0].Items {
			order = append(order, it.ID)
		}
		return order
	}

	first := runOnce()
	second := runOnce()
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("order differs at %d: %s vs %s", i, first[i], second[i])
		}
	}
}
