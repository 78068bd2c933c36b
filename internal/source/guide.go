package source

import (
	"fmt"

	"marquee/internal/media"
)

// Guide describes one editorial popularity page.
type Guide struct {
	Name    string
	URL     string
	Heading string
	Kind    media.Kind
}

// Headings the guide pages are expected to carry. The live pages prefix them
// with an entry count ("30 Most Popular Movies Right Now").
const (
	MoviesHeading = "Most Popular Movies Right Now"
	SeriesHeading = "Most Popular TV Shows Right Now"
)

// MoviesGuide returns the movies guide served from url.
func MoviesGuide(url string) Guide {
	return Guide{Name: "movies", URL: url, Heading: MoviesHeading, Kind: media.KindMovie}
}

// SeriesGuide returns the TV guide served from url.
func SeriesGuide(url string) Guide {
	return Guide{Name: "series", URL: url, Heading: SeriesHeading, Kind: media.KindTV}
}

// GuideFor maps a feed name to its guide.
func GuideFor(feed, url string) (Guide, error) {
	switch feed {
	case "movies":
		return MoviesGuide(url), nil
	case "series":
		return SeriesGuide(url), nil
	default:
		return Guide{}, fmt.Errorf("unknown feed %q", feed)
	}
}
