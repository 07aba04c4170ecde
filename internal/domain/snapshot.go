package domain

import "time"

// Version tags stamped onto every snapshot so consumers can detect
// incompatible payloads after a deploy.
const (
	SchemaVersion = "2"
	AlgoVersion   = "weekly-rank-v1"
)

// SnapshotStatus enumerates the lifecycle states of a snapshot row.
type SnapshotStatus string

const (
	StatusBuilding  SnapshotStatus = "building"
	StatusPublished SnapshotStatus = "published"
	StatusDraft     SnapshotStatus = "draft"
)

// SourceItem is one raw row from the ingestion pipeline's news_items table.
// Only the identifier is trusted; every other field may be missing or
// malformed and is carried as-is until the normalizer coerces it.
type SourceItem struct {
	ID              string
	Title           string
	Summary         string
	Platform        string
	Score           *float64 // raw popularity score, may be absent
	RawPreciseScore string
	RawPublishedAt  string
	RawCreatedAt    string
	RawViews        string
	RawLikes        string
	RawComments     string
	RawKeywords     string
	ImageURL        string
	IngestedAt      time.Time
}

// NormalizedItem is the canonical, fully-typed form of a SourceItem admitted
// into a build. Every field is well-formed; no raw strings survive this stage.
type NormalizedItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	Platform    string    `json:"platform"`
	ImageURL    string    `json:"image_url,omitempty"`
	PublishedAt time.Time `json:"published_at"`
	Score       float64   `json:"score"`
	Views       int64     `json:"views"`
	Likes       int64     `json:"likes"`
	Comments    int64     `json:"comments"`
	Keywords    []string  `json:"keywords"`
}

// RankedItem is a NormalizedItem with its dense 1-based position.
type RankedItem struct {
	NormalizedItem
	Rank int `json:"rank"`
}

// SnapshotMeta summarizes one build. Derived once, never mutated.
type SnapshotMeta struct {
	ItemCount      int            `json:"item_count"`
	PlatformCounts map[string]int `json:"platform_counts"`
	AvgScore       float64        `json:"avg_score"`
	MinScore       float64        `json:"min_score"`
	MaxScore       float64        `json:"max_score"`
	BuildMillis    int64          `json:"build_ms"`
	Notes          string         `json:"notes,omitempty"`
}

// Snapshot is the persisted, versioned artifact. Items are embedded and
// pre-sorted by rank; consumers must not re-sort them.
type Snapshot struct {
	ID            string         `json:"id"`
	Status        SnapshotStatus `json:"status"`
	RangeStart    time.Time      `json:"range_start"`
	RangeEnd      time.Time      `json:"range_end"`
	BuiltAt       time.Time      `json:"built_at"`
	SchemaVersion string         `json:"schema_version"`
	AlgoVersion   string         `json:"algo_version"`
	Items         []RankedItem   `json:"items"`
	Meta          SnapshotMeta   `json:"meta"`
}

// FailureReason distinguishes expected build outcomes from infrastructure
// errors so the scheduler can decide whether a retry makes sense.
type FailureReason string

const (
	ReasonNone            FailureReason = ""
	ReasonBuildInProgress FailureReason = "build_in_progress"
	ReasonBelowThreshold  FailureReason = "below_threshold"
	ReasonPublishConflict FailureReason = "publish_conflict"
)

// BuildResult is what the lifecycle manager reports back to its caller.
type BuildResult struct {
	Success    bool          `json:"success"`
	SnapshotID string        `json:"snapshot_id,omitempty"`
	Reason     FailureReason `json:"reason,omitempty"`
	Message    string        `json:"message,omitempty"`
	Meta       *SnapshotMeta `json:"meta,omitempty"`
}
