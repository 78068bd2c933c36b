// Package media holds the value types that flow through the feed pipeline:
// scraped source items, catalog candidates, ratings, and scored entries.
package media

import (
	"fmt"
	"strconv"
	"time"
)

// Kind identifies the catalog a candidate belongs to.
type Kind string

const (
	KindMovie Kind = "movie"
	KindTV    Kind = "tv"
)

// ParseKind accepts the catalog names used on the command line.
func ParseKind(value string) (Kind, error) {
	switch value {
	case "movie", "movies":
		return KindMovie, nil
	case "tv", "series", "show", "shows":
		return KindTV, nil
	default:
		return "", fmt.Errorf("unknown media kind %q", value)
	}
}

// SeasonHint carries the season a source listed for a series entry.
// Number is zero when the source gave only a name.
type SeasonHint struct {
	Name   string
	Number int
}

// SourceItem is one scraped entry awaiting resolution.
type SourceItem struct {
	Title          string
	Year           int
	Season         *SeasonHint
	Disambiguators []string
	Rank           int
}

// Label renders the item the way it appears in log lines and drop reports.
func (s SourceItem) Label() string {
	label := s.Title
	if s.Season != nil && s.Season.Name != "" {
		label = s.Season.Name + " of " + label
	}
	if s.Year > 0 {
		label = fmt.Sprintf("%s (%d)", label, s.Year)
	}
	return label
}

// Season is a season summary reported by the catalog for a series.
type Season struct {
	Number  int
	Name    string
	AirDate string
}

// Credit is one credited person on a catalog record.
type Credit struct {
	Role string
	Name string
}

// ExternalIDs holds identifiers in other databases.
type ExternalIDs struct {
	IMDbID string
	TVDBID string
}

// Candidate is one catalog record considered as a match for a SourceItem.
type Candidate struct {
	ID          int64
	Kind        Kind
	Title       string
	Popularity  float64
	ReleaseDate string
	Seasons     []Season
	Credits     []Credit
	PosterPath  string
	LastAirDate string
	NextAirDate string
	External    ExternalIDs
}

// ReleaseYear returns the year of the release or first-air date.
func (c Candidate) ReleaseYear() (int, bool) {
	return Year(c.ReleaseDate)
}

// SearchPage is one page of catalog search hits.
type SearchPage struct {
	Results    []Candidate
	Page       int
	TotalPages int
}

// Rating is an external rating on a 0-100 scale. Secondary is nil when the
// provider has no second signal for the title.
type Rating struct {
	Primary   float64
	Secondary *float64
}

// Scored pairs a candidate with its rating and batch-relative score.
type Scored struct {
	Candidate Candidate
	Rating    Rating
	Score     float64
}

const dateLayout = "2006-01-02"

// ParseDate parses a catalog date. Empty or malformed values report false.
func ParseDate(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

// Year extracts the year of a YYYY-MM-DD date.
func Year(value string) (int, bool) {
	if parsed, ok := ParseDate(value); ok {
		return parsed.Year(), true
	}
	if len(value) >= 4 {
		if year, err := strconv.Atoi(value[:4]); err == nil && year > 0 {
			return year, true
		}
	}
	return 0, false
}
