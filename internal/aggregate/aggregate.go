package aggregate

import (
	"math"
	"time"

	"TrendSnapshot/internal/domain"
)

// Summarize computes the per-build metadata: platform distribution, score
// range, and elapsed build time. An empty item set yields zeroed aggregates.
func Summarize(items []domain.RankedItem, elapsed time.Duration) domain.SnapshotMeta {
	meta := domain.SnapshotMeta{
		ItemCount:      len(items),
		PlatformCounts: map[string]int{},
		BuildMillis:    elapsed.Milliseconds(),
	}

	if len(items) == 0 {
		return meta
	}

	var sum float64
	min := items[0].Score
	max := items[0].Score

	for _, item := range items {
		platform := item.Platform
		if platform == "" {
			platform = "unknown"
		}
		meta.PlatformCounts[platform]++

		sum += item.Score
		if item.Score < min {
			min = item.Score
		}
		if item.Score > max {
			max = item.Score
		}
	}

	meta.AvgScore = round2(sum / float64(len(items)))
	meta.MinScore = min
	meta.MaxScore = max
	return meta
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
