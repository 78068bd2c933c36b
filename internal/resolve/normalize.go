package resolve

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	wordDelimiters = regexp.MustCompile(`(\s|\.|,|_|-|=|'|\|)+`)
	punctuation    = regexp.MustCompile(`[^\p{L}\p{M}\p{N}_\s]`)
	duplicateSpace = regexp.MustCompile(`\s{2,}`)
	connectors     = regexp.MustCompile(`[&:\\/]+`)
)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "of": {},
}

// Normalize reduces a title to its comparison key. Two titles that differ
// only in case, spacing, punctuation, leading articles or connector words
// normalize to the same string, and Normalize(Normalize(s)) == Normalize(s).
func Normalize(title string) string {
	value := strings.Map(foldSpace, title)
	value = wordDelimiters.ReplaceAllString(value, " ")
	value = punctuation.ReplaceAllString(value, "")
	value = dropStopwords(value)
	value = duplicateSpace.ReplaceAllString(value, " ")
	value = connectors.ReplaceAllString(value, "")
	return strings.ToLower(strings.TrimSpace(value))
}

// foldSpace maps Unicode spaces to ASCII space. regexp's \s is ASCII only.
func foldSpace(r rune) rune {
	if unicode.IsSpace(r) {
		return ' '
	}
	return r
}

// dropStopwords removes whole-word articles and conjunctions regardless of case.
func dropStopwords(value string) string {
	words := strings.Fields(value)
	kept := words[:0]
	for _, word := range words {
		if _, ok := stopwords[strings.ToLower(word)]; ok {
			continue
		}
		kept = append(kept, word)
	}
	return strings.Join(kept, " ")
}
