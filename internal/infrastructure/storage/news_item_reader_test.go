package storage

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestWindowScansNullableColumns(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	start := time.Date(2026, time.August, 13, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 7)
	ingested := start.Add(12 * time.Hour)

	rows := sqlmock.NewRows([]string{"id", "title", "summary", "platform",
		"popularity_score", "precise_score", "published_at", "created_at",
		"view_count", "like_count", "comment_count", "keywords", "image_url",
		"ingested_at"}).
		AddRow("yt:1", "clip", nil, "youtube", 88.5, "88.75",
			"2026-08-13T09:00:00Z", nil, "1,234", nil, nil, `["viral"]`, nil, ingested).
		AddRow("yt:2", nil, nil, nil, nil, nil,
			nil, nil, nil, nil, nil, nil, nil, ingested)

	mock.ExpectQuery("SELECT (.+) FROM news_items").
		WithArgs(start, end).
		WillReturnRows(rows)

	reader := NewNewsItemReader(db)
	items, err := reader.Window(context.Background(), start, end)
	if err != nil {
		t.Fatalf("Window error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}

	first := items[0]
	if first.ID != "yt:1" || first.Title != "clip" || first.Platform != "youtube" {
		t.Fatalf("unexpected first item: %+v", first)
	}
	if first.Score == nil || *first.Score != 88.5 {
		t.Fatalf("expected popularity score 88.5, got %v", first.Score)
	}
	if first.RawPreciseScore != "88.75" || first.RawViews != "1,234" {
		t.Fatalf("raw fields must pass through untouched: %+v", first)
	}

	second := items[1]
	if second.Score != nil {
		t.Fatalf("null score must stay nil, got %v", *second.Score)
	}
	if second.Title != "" || second.RawKeywords != "" {
		t.Fatalf("null columns must scan to empty strings: %+v", second)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestWindowEmptyResultIsNotAnError(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM news_items").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "summary",
			"platform", "popularity_score", "precise_score", "published_at",
			"created_at", "view_count", "like_count", "comment_count",
			"keywords", "image_url", "ingested_at"}))

	reader := NewNewsItemReader(db)
	items, err := reader.Window(context.Background(),
		time.Now().Add(-7*24*time.Hour), time.Now())
	if err != nil {
		t.Fatalf("Window error: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected no items, got %d", len(items))
	}
}
