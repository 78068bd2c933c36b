package resolve

import (
	"regexp"
	"strings"
	"unicode"
)

var parenthetical = regexp.MustCompile(`\(.*\)`)

// TitleVariants returns the title as given, followed by the title with its
// parenthetical removed when that differs.
func TitleVariants(title string) []string {
	variants := []string{title}
	stripped := strings.TrimRightFunc(parenthetical.ReplaceAllString(title, ""), unicode.IsSpace)
	if stripped != title && strings.TrimSpace(stripped) != "" {
		variants = append(variants, stripped)
	}
	return variants
}

// YearVariants returns the search years to probe, exact year first. A zero
// year means the source gave none and yields a single unfiltered probe.
func YearVariants(year int) []int {
	if year <= 0 {
		return []int{0}
	}
	return []int{year, year - 1, year + 1}
}
