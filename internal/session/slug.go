package session

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	slugDrop     = regexp.MustCompile(`[^\w.\s-]`)
	slugCollapse = regexp.MustCompile(`[-\s]+`)
)

// Slug turns a project name into a file basename: accents are folded to
// ASCII, everything is lowercased, characters other than letters, digits,
// '_', '.' and '-' are dropped, runs of whitespace and dashes become one
// dash, and leading or trailing dashes and underscores are trimmed.
func Slug(name string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), runes.Remove(runes.Predicate(func(r rune) bool {
		return r > unicode.MaxASCII
	})))
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}
	s := slugDrop.ReplaceAllString(strings.ToLower(folded), "")
	s = slugCollapse.ReplaceAllString(s, "-")
	return strings.Trim(s, "-_")
}
