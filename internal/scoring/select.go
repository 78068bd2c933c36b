package scoring

import (
	"cmp"
	"slices"

	"marquee/internal/media"
	"marquee/internal/resolve"
)

// RankByScore returns a copy of entries sorted by descending score. Equal
// scores keep their input order.
func RankByScore(entries []media.Scored) []media.Scored {
	ranked := slices.Clone(entries)
	slices.SortStableFunc(ranked, func(a, b media.Scored) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return ranked
}

// SortByTitle returns a copy of entries sorted by normalized title.
func SortByTitle(entries []media.Scored) []media.Scored {
	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, func(a, b media.Scored) int {
		return cmp.Compare(resolve.Normalize(a.Candidate.Title), resolve.Normalize(b.Candidate.Title))
	})
	return sorted
}

// SelectTop keeps the k highest scoring entries and orders them by title.
func SelectTop(entries []media.Scored, k int) []media.Scored {
	ranked := RankByScore(entries)
	if k >= 0 && len(ranked) > k {
		ranked = ranked[:k]
	}
	return SortByTitle(ranked)
}
