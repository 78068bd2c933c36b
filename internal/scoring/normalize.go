package scoring

import (
	"math"

	"marquee/internal/media"
)

// Normalize scores a fully rated batch. Popularity is log-scaled and mapped
// onto 0-100 relative to the batch's own extremes, then averaged with the
// primary rating and, when present, the secondary rating. Scores are only
// comparable within one batch.
func Normalize(batch []media.Scored) []media.Scored {
	if len(batch) == 0 {
		return []media.Scored{}
	}
	popMin, popMax := math.Inf(1), math.Inf(-1)
	for _, entry := range batch {
		value := logPopularity(entry.Candidate.Popularity)
		popMin = math.Min(popMin, value)
		popMax = math.Max(popMax, value)
	}

	out := make([]media.Scored, len(batch))
	for i, entry := range batch {
		normPop := Midpoint
		if popMax > popMin {
			normPop = (logPopularity(entry.Candidate.Popularity) - popMin) / (popMax - popMin) * 100
		}
		entry.Score = blend(normPop, entry.Rating)
		out[i] = entry
	}
	return out
}

// logPopularity is log10 of popularity. Zero, negative and NaN values have no
// logarithm and count as 0, the same as a popularity of 1.
func logPopularity(popularity float64) float64 {
	if math.IsNaN(popularity) || popularity <= 0 {
		return 0
	}
	return math.Log10(popularity)
}

func blend(normPop float64, rating media.Rating) float64 {
	sum, count := normPop+rating.Primary, 2.0
	if rating.Secondary != nil {
		sum += *rating.Secondary
		count++
	}
	return sum / count
}
