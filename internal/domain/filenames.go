package domain

import (
	"strings"
	"unicode"
)

// HTMLFileName derives the artifact file name for an offering page.
// Letters, digits, spaces, underscores and hyphens survive; everything
// else becomes an underscore. Spaces are kept, so existing corpus files
// like "Alpha Industries Ltd.html" keep resolving.
func HTMLFileName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == ' ' || r == '_' || r == '-' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return strings.TrimSpace(b.String()) + ".html"
}

// JSONFileName derives the document file name for an offering. Unlike the
// HTML name, punctuation is dropped rather than replaced, and separator
// runs collapse to a single underscore.
func JSONFileName(name string) string {
	var filtered strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' || unicode.IsSpace(r) {
			filtered.WriteRune(r)
		}
	}

	trimmed := strings.TrimSpace(filtered.String())

	var b strings.Builder
	inRun := false
	for _, r := range trimmed {
		if unicode.IsSpace(r) || r == '-' {
			inRun = true
			continue
		}
		if inRun {
			b.WriteByte('_')
			inRun = false
		}
		b.WriteRune(r)
	}
	if inRun {
		b.WriteByte('_')
	}

	return b.String() + ".json"
}
