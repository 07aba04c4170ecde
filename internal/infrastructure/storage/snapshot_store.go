package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"TrendSnapshot/internal/domain"
	"TrendSnapshot/internal/ports"
)

const snapshotColumns = "id, status, range_start, range_end, built_at, " +
	"schema_version, algo_version, items, meta"

// PostgresSnapshotStore persists snapshot rows. Ranked items and metadata
// are embedded as JSONB so create, publish, and rollback each touch exactly
// one row.
type PostgresSnapshotStore struct {
	db *sql.DB
}

var _ ports.SnapshotStore = (*PostgresSnapshotStore)(nil)

// NewSnapshotStore wires a sql.DB implementation.
func NewSnapshotStore(db *sql.DB) *PostgresSnapshotStore {
	return &PostgresSnapshotStore{db: db}
}

// Insert writes a complete snapshot row in one statement.
func (s *PostgresSnapshotStore) Insert(ctx context.Context, snap domain.Snapshot) error {
	items, err := json.Marshal(snap.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}
	meta, err := json.Marshal(snap.Meta)
	if err != nil {
		return fmt.Errorf("marshal meta: %w", err)
	}

	query, args, err := qb.
		Insert("snapshots").
		Columns("id", "status", "range_start", "range_end", "built_at",
			"schema_version", "algo_version", "items", "meta").
		Values(snap.ID, string(snap.Status), snap.RangeStart, snap.RangeEnd,
			snap.BuiltAt, snap.SchemaVersion, snap.AlgoVersion, items, meta).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// Transition conditionally flips status from→to and reports whether a row
// was affected. Zero rows means the snapshot was no longer in the expected
// state, which the caller must treat as a lost race.
func (s *PostgresSnapshotStore) Transition(ctx context.Context, id string, from, to domain.SnapshotStatus) (bool, error) {
	query, args, err := qb.
		Update("snapshots").
		Set("status", string(to)).
		Where(sq.Eq{"id": id}).
		Where(sq.Eq{"status": string(from)}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build transition: %w", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("transition snapshot %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("transition rows affected: %w", err)
	}
	return affected == 1, nil
}

// Delete removes a snapshot row by id.
func (s *PostgresSnapshotStore) Delete(ctx context.Context, id string) error {
	query, args, err := qb.Delete("snapshots").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete snapshot %s: %w", id, err)
	}
	return nil
}

// CountBuilding returns the number of rows currently in building status.
func (s *PostgresSnapshotStore) CountBuilding(ctx context.Context) (int, error) {
	query, args, err := qb.
		Select("COUNT(*)").
		From("snapshots").
		Where(sq.Eq{"status": string(domain.StatusBuilding)}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count query: %w", err)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count building snapshots: %w", err)
	}
	return count, nil
}

// ReclaimStale deletes building rows older than the bound and returns how
// many were removed.
func (s *PostgresSnapshotStore) ReclaimStale(ctx context.Context, olderThan time.Time) (int64, error) {
	query, args, err := qb.
		Delete("snapshots").
		Where(sq.Eq{"status": string(domain.StatusBuilding)}).
		Where(sq.Lt{"built_at": olderThan}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build reclaim query: %w", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale snapshots: %w", err)
	}
	return result.RowsAffected()
}

// PruneOlderThan deletes snapshots of any status built before the cutoff.
func (s *PostgresSnapshotStore) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query, args, err := qb.
		Delete("snapshots").
		Where(sq.Lt{"built_at": cutoff}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build prune query: %w", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	return result.RowsAffected()
}

// Latest returns the most recently published snapshot, or nil when none
// exists.
func (s *PostgresSnapshotStore) Latest(ctx context.Context) (*domain.Snapshot, error) {
	query, args, err := qb.
		Select(snapshotColumns).
		From("snapshots").
		Where(sq.Eq{"status": string(domain.StatusPublished)}).
		OrderBy("built_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build latest query: %w", err)
	}

	return s.scanOne(ctx, query, args)
}

// ByID returns a snapshot only when it is published; building and draft
// rows are invisible through this accessor.
func (s *PostgresSnapshotStore) ByID(ctx context.Context, id string) (*domain.Snapshot, error) {
	query, args, err := qb.
		Select(snapshotColumns).
		From("snapshots").
		Where(sq.Eq{"id": id}).
		Where(sq.Eq{"status": string(domain.StatusPublished)}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build by-id query: %w", err)
	}

	return s.scanOne(ctx, query, args)
}

func (s *PostgresSnapshotStore) scanOne(ctx context.Context, query string, args []any) (*domain.Snapshot, error) {
	var (
		snap   domain.Snapshot
		status string
		items  []byte
		meta   []byte
	)

	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&snap.ID, &status, &snap.RangeStart, &snap.RangeEnd, &snap.BuiltAt,
		&snap.SchemaVersion, &snap.AlgoVersion, &items, &meta)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan snapshot: %w", err)
	}

	snap.Status = domain.SnapshotStatus(status)
	if err := json.Unmarshal(items, &snap.Items); err != nil {
		return nil, fmt.Errorf("unmarshal items: %w", err)
	}
	if err := json.Unmarshal(meta, &snap.Meta); err != nil {
		return nil, fmt.Errorf("unmarshal meta: %w", err)
	}

	return &snap, nil
}
