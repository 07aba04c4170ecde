package rank

import (
	"sort"

	"TrendSnapshot/internal/domain"
)

// Assign orders items by score descending, published time descending, then
// identifier ascending, and assigns dense 1-based ranks. The identifier
// tiebreak makes the order total, so equal scores and timestamps still
// produce reproducible output. Empty input yields an empty list.
func Assign(items []domain.NormalizedItem) []domain.RankedItem {
	sorted := make([]domain.NormalizedItem, len(items))
	copy(sorted, items)

	sort.Slice(sorted, func(i, j int) bool {
		return Less(sorted[i], sorted[j])
	})

	ranked := make([]domain.RankedItem, len(sorted))
	for i, item := range sorted {
		ranked[i] = domain.RankedItem{NormalizedItem: item, Rank: i + 1}
	}
	return ranked
}

// Less reports whether a sorts before b under the snapshot ordering.
func Less(a, b domain.NormalizedItem) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if !a.PublishedAt.Equal(b.PublishedAt) {
		return a.PublishedAt.After(b.PublishedAt)
	}
	return a.ID < b.ID
}
