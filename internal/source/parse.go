package source

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/encoding/charmap"

	"marquee/internal/media"
	"marquee/internal/services"
)

var (
	yearPattern   = regexp.MustCompile(`\d{4}`)
	seasonPattern = regexp.MustCompile(`(?i)^season\s+(\d+)$`)
	seasonSuffix  = regexp.MustCompile(`(?i)^(season|part|volume|vol\.|chapter|book|series|limited)\b`)
	spacePattern  = regexp.MustCompile(`\s+`)
)

// Parse extracts the ranked entries from a guide page. It fails with
// services.ErrStructural when the page is not the expected guide or lists
// nothing.
func Parse(guide Guide, body []byte) ([]media.SourceItem, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, services.Wrap(services.ErrStructural, "source", "parse", guide.Name, err)
	}

	heading := cleanText(doc.Find("h1").First().Text())
	if !strings.Contains(heading, guide.Heading) {
		return nil, services.Wrap(services.ErrStructural, "source", "parse",
			fmt.Sprintf("%s heading %q does not contain %q", guide.Name, heading, guide.Heading), nil)
	}

	var items []media.SourceItem
	doc.Find(".article_movie_title h2").Each(func(_ int, s *goquery.Selection) {
		title := cleanText(s.Find("a").First().Text())
		if title == "" {
			return
		}
		item := media.SourceItem{Title: title}
		if match := yearPattern.FindString(s.Find(".start-year").First().Text()); match != "" {
			item.Year, _ = strconv.Atoi(match)
		}
		if guide.Kind == media.KindTV {
			item.Title, item.Season = splitSeason(title)
		}
		s.Closest(".countdown-item").Find(".director a").Each(func(_ int, a *goquery.Selection) {
			if name := cleanText(a.Text()); name != "" {
				item.Disambiguators = append(item.Disambiguators, name)
			}
		})
		item.Rank = len(items) + 1
		items = append(items, item)
	})
	if len(items) == 0 {
		return nil, services.Wrap(services.ErrStructural, "source", "parse", guide.Name+" lists no entries", nil)
	}
	return items, nil
}

// splitSeason turns "Severance: Season 2" into the show title and a season
// hint. Only the last ": " separates, and only when the suffix names a
// season-like instalment; "Star Wars: Andor" stays whole.
func splitSeason(title string) (string, *media.SeasonHint) {
	idx := strings.LastIndex(title, ": ")
	if idx < 0 {
		return title, nil
	}
	name := strings.TrimSpace(title[idx+2:])
	if !seasonSuffix.MatchString(name) {
		return title, nil
	}
	hint := &media.SeasonHint{Name: name}
	if match := seasonPattern.FindStringSubmatch(name); match != nil {
		hint.Number, _ = strconv.Atoi(match[1])
	}
	return strings.TrimSpace(title[:idx]), hint
}

// cleanText repairs mojibake, folds non-breaking spaces and collapses runs of
// whitespace.
func cleanText(value string) string {
	value = RepairMojibake(value)
	value = strings.ReplaceAll(value, "\u00a0", " ")
	return strings.TrimSpace(spacePattern.ReplaceAllString(value, " "))
}

// RepairMojibake reverses UTF-8 text that was decoded as Latin-1
// ("AmÃ©lie" -> "Amélie"). Values that do not round-trip to valid UTF-8 are
// returned unchanged.
func RepairMojibake(value string) string {
	encoded, err := charmap.ISO8859_1.NewEncoder().String(value)
	if err != nil || encoded == value || !utf8.ValidString(encoded) {
		return value
	}
	return encoded
}
