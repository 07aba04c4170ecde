package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema for the snapshot store. The news_items table belongs to the
// ingestion pipeline; it is created here only so local development works
// against an empty database. Apply via Init or a migration tool.
const Schema = `
CREATE TABLE IF NOT EXISTS news_items (
	id              TEXT PRIMARY KEY,
	title           TEXT,
	summary         TEXT,
	platform        TEXT,
	popularity_score DOUBLE PRECISION,
	precise_score   TEXT,
	published_at    TEXT,
	created_at      TEXT,
	view_count      TEXT,
	like_count      TEXT,
	comment_count   TEXT,
	keywords        TEXT,
	image_url       TEXT,
	ingested_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_news_items_ingested ON news_items (ingested_at);

CREATE TABLE IF NOT EXISTS snapshots (
	id             UUID PRIMARY KEY,
	status         TEXT NOT NULL,
	range_start    TIMESTAMPTZ NOT NULL,
	range_end      TIMESTAMPTZ NOT NULL,
	built_at       TIMESTAMPTZ NOT NULL,
	schema_version TEXT NOT NULL,
	algo_version   TEXT NOT NULL,
	items          JSONB NOT NULL,
	meta           JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_status_built ON snapshots (status, built_at DESC);
`

// Init applies the schema. Safe to call repeatedly.
func Init(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
