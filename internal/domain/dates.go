package domain

import (
	"regexp"
	"strings"
	"time"
)

// Date layouts seen in corpus detail tables, in match order.
var dateLayouts = []string{
	"Jan 2, 2006",
	"Mon, Jan 2, 2006",
	"2 Jan 2006",
}

var (
	dateRangeExpr = regexp.MustCompile(`^(\w+ \d+, \d{4})to(\w+ \d+, \d{4})`)
	dateTokenExpr = regexp.MustCompile(`\w+ \d+, \d{4}`)
)

// ParseDate parses a detail-table date value; ok is false when no known
// layout matches.
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseDateRange handles "May 14, 2025toMay 16, 2025" style values the
// subscription window arrives in, returning the open and close dates. A
// value without the range marker is a single-day window with identical
// open and close dates.
func ParseDateRange(value string) (time.Time, time.Time, bool) {
	if m := dateRangeExpr.FindStringSubmatch(value); m != nil {
		openDate, okOpen := ParseDate(m[1])
		closeDate, okClose := ParseDate(m[2])
		if !okOpen || !okClose {
			return time.Time{}, time.Time{}, false
		}
		return openDate, closeDate, true
	}

	t, ok := ParseDate(value)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	return t, t, true
}

// ParseListingDate tolerates listing-date values that carry a weekday prefix
// or trailing noise by falling back to the first date-shaped token.
func ParseListingDate(value string) (time.Time, bool) {
	if t, ok := ParseDate(value); ok {
		return t, true
	}
	if token := dateTokenExpr.FindString(value); token != "" {
		return ParseDate(token)
	}
	return time.Time{}, false
}

// dateOnly projects t onto a calendar day in UTC so it compares cleanly with
// parsed detail-table dates.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
