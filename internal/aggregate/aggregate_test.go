package aggregate

import (
	"testing"
	"time"

	"TrendSnapshot/internal/domain"
)

func ranked(platform string, score float64) domain.RankedItem {
	return domain.RankedItem{
		NormalizedItem: domain.NormalizedItem{Platform: platform, Score: score},
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	items := []domain.RankedItem{
		ranked("youtube", 90),
		ranked("youtube", 80),
		ranked("tiktok", 50.555),
	}

	meta := Summarize(items, 1500*time.Millisecond)

	if meta.ItemCount != 3 {
		t.Fatalf("expected 3 items, got %d", meta.ItemCount)
	}
	if meta.PlatformCounts["youtube"] != 2 || meta.PlatformCounts["tiktok"] != 1 {
		t.Fatalf("unexpected platform counts: %v", meta.PlatformCounts)
	}
	if meta.AvgScore != 73.52 {
		t.Fatalf("expected avg 73.52, got %v", meta.AvgScore)
	}
	if meta.MinScore != 50.555 || meta.MaxScore != 90 {
		t.Fatalf("unexpected range: min %v max %v", meta.MinScore, meta.MaxScore)
	}
	if meta.BuildMillis != 1500 {
		t.Fatalf("expected 1500ms, got %d", meta.BuildMillis)
	}
}

func TestSummarizeEmptyInput(t *testing.T) {
	t.Parallel()

	meta := Summarize(nil, time.Second)

	if meta.ItemCount != 0 {
		t.Fatalf("expected zero count, got %d", meta.ItemCount)
	}
	if meta.AvgScore != 0 || meta.MinScore != 0 || meta.MaxScore != 0 {
		t.Fatalf("expected zero aggregates, got %+v", meta)
	}
	if len(meta.PlatformCounts) != 0 {
		t.Fatalf("expected empty counts, got %v", meta.PlatformCounts)
	}
}

func TestSummarizeUnknownPlatform(t *testing.T) {
	t.Parallel()

	meta := Summarize([]domain.RankedItem{ranked("", 10)}, 0)
	if meta.PlatformCounts["unknown"] != 1 {
		t.Fatalf("expected unknown bucket, got %v", meta.PlatformCounts)
	}
}
