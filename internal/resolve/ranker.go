package resolve

import (
	"strings"

	"marquee/internal/media"
)

// Target is what the ranker measures candidates against: the source item's
// title variants, the year variant being probed, and any season or credit
// hints.
type Target struct {
	Kind           media.Kind
	Titles         map[string]struct{}
	Year           int
	Season         *media.SeasonHint
	Disambiguators map[string]struct{}
}

// NewTarget builds the ranking target for item at the given probe year.
func NewTarget(item media.SourceItem, kind media.Kind, year int) Target {
	target := Target{
		Kind:   kind,
		Titles: make(map[string]struct{}),
		Year:   year,
		Season: item.Season,
	}
	for _, variant := range TitleVariants(item.Title) {
		target.Titles[Normalize(variant)] = struct{}{}
	}
	for _, name := range item.Disambiguators {
		if key := Normalize(name); key != "" {
			if target.Disambiguators == nil {
				target.Disambiguators = make(map[string]struct{})
			}
			target.Disambiguators[key] = struct{}{}
		}
	}
	return target
}

// rule compares cand against best. Positive means cand wins, negative means
// best wins, zero defers to the next rule.
type rule struct {
	name    string
	compare func(cand, best *media.Candidate, target Target) int
}

var rules = []rule{
	{"disambiguator_overlap", compareDisambiguators},
	{"exact_title", compareExactTitle},
	{"season_match", compareSeason},
	{"has_release_date", compareHasDate},
	{"release_year_distance", compareYearDistance},
	{"popularity", comparePopularity},
}

// BetterOf returns whichever of cand and best matches target better. A nil
// best returns cand; a full tie keeps best so earlier candidates win.
func BetterOf(cand, best *media.Candidate, target Target) *media.Candidate {
	winner, _ := Decide(cand, best, target)
	return winner
}

// Decide is BetterOf plus the name of the rule that settled the comparison.
func Decide(cand, best *media.Candidate, target Target) (*media.Candidate, string) {
	switch {
	case cand == nil:
		return best, "no_candidate"
	case best == nil:
		return cand, "first_candidate"
	}
	for _, r := range rules {
		switch result := r.compare(cand, best, target); {
		case result > 0:
			return cand, r.name
		case result < 0:
			return best, r.name
		}
	}
	return best, "tie"
}

// ReduceBest folds candidates left to right through BetterOf.
func ReduceBest(candidates []media.Candidate, target Target) (media.Candidate, bool) {
	var best *media.Candidate
	for i := range candidates {
		best = BetterOf(&candidates[i], best, target)
	}
	if best == nil {
		return media.Candidate{}, false
	}
	return *best, true
}

func compareDisambiguators(cand, best *media.Candidate, target Target) int {
	if len(target.Disambiguators) == 0 {
		return 0
	}
	return compareInts(overlap(cand, target), overlap(best, target))
}

func overlap(c *media.Candidate, target Target) int {
	matched := make(map[string]struct{})
	for _, credit := range c.Credits {
		key := Normalize(credit.Name)
		if _, ok := target.Disambiguators[key]; ok {
			matched[key] = struct{}{}
		}
	}
	return len(matched)
}

func compareExactTitle(cand, best *media.Candidate, target Target) int {
	return compareBools(exactTitle(cand, target), exactTitle(best, target))
}

func exactTitle(c *media.Candidate, target Target) bool {
	_, ok := target.Titles[Normalize(c.Title)]
	return ok
}

func compareSeason(cand, best *media.Candidate, target Target) int {
	if target.Kind != media.KindTV {
		return 0
	}
	candSeason := matchingSeason(cand, target)
	bestSeason := matchingSeason(best, target)
	if result := compareBools(candSeason != nil, bestSeason != nil); result != 0 {
		return result
	}
	if candSeason == nil || target.Year <= 0 {
		return 0
	}
	candYear, candOK := media.Year(candSeason.AirDate)
	bestYear, bestOK := media.Year(bestSeason.AirDate)
	if !candOK || !bestOK {
		return 0
	}
	return compareInts(distance(bestYear, target.Year), distance(candYear, target.Year))
}

// matchingSeason finds the first season matching the hinted number or name,
// or an unnumbered season that aired in the target year.
func matchingSeason(c *media.Candidate, target Target) *media.Season {
	for i := range c.Seasons {
		season := &c.Seasons[i]
		if hint := target.Season; hint != nil {
			if hint.Number > 0 && season.Number == hint.Number {
				return season
			}
			if hint.Name != "" && strings.EqualFold(strings.TrimSpace(season.Name), strings.TrimSpace(hint.Name)) {
				return season
			}
		}
		if season.Number == 0 && target.Year > 0 {
			if year, ok := media.Year(season.AirDate); ok && year == target.Year {
				return season
			}
		}
	}
	return nil
}

func compareHasDate(cand, best *media.Candidate, _ Target) int {
	_, candOK := cand.ReleaseYear()
	_, bestOK := best.ReleaseYear()
	return compareBools(candOK, bestOK)
}

func compareYearDistance(cand, best *media.Candidate, target Target) int {
	if target.Year <= 0 {
		return 0
	}
	candYear, candOK := cand.ReleaseYear()
	bestYear, bestOK := best.ReleaseYear()
	if !candOK || !bestOK {
		return 0
	}
	return compareInts(distance(bestYear, target.Year), distance(candYear, target.Year))
}

func comparePopularity(cand, best *media.Candidate, _ Target) int {
	switch {
	case cand.Popularity > best.Popularity:
		return 1
	case cand.Popularity < best.Popularity:
		return -1
	default:
		return 0
	}
}

func compareBools(a, b bool) int {
	switch {
	case a && !b:
		return 1
	case !a && b:
		return -1
	default:
		return 0
	}
}

func compareInts(a, b int) int {
	switch {
	case a > b:
		return 1
	case a < b:
		return -1
	default:
		return 0
	}
}

func distance(year, target int) int {
	if year > target {
		return year - target
	}
	return target - year
}
