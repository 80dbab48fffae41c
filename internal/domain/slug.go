package domain

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	slugStripExpr    = regexp.MustCompile(`[^\w\s-]`)
	slugCollapseExpr = regexp.MustCompile(`[-\s]+`)
)

// Slugify derives the URL identifier of an IPO from its display name: the
// name is decomposed and folded to ASCII, punctuation is dropped, and
// whitespace or hyphen runs become a single hyphen.
func Slugify(name string) string {
	// Chain is stateful, so build it per call.
	folder := transform.Chain(norm.NFKD, runes.Remove(runes.Predicate(func(r rune) bool {
		return r > unicode.MaxASCII
	})))

	folded, _, err := transform.String(folder, name)
	if err != nil {
		folded = name
	}

	s := slugStripExpr.ReplaceAllString(folded, "")
	s = strings.ToLower(strings.TrimSpace(s))
	return slugCollapseExpr.ReplaceAllString(s, "-")
}
