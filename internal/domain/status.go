package domain

import "time"

// Detail-table labels the derivations key on. Matching is exact and
// case-sensitive, the way the extractor writes them.
const (
	LabelIPODate     = "IPO Date"
	LabelListingDate = "Listing Date"
	LabelListingAt   = "Listing At"
	LabelPriceBand   = "Price Band"
)

// DetailValue scans an ipo_details pair list for a label and returns its
// value. Rows are JSON arrays, so they arrive as []any; malformed rows are
// skipped. A repeated label keeps the last occurrence.
func DetailValue(details []any, label string) (string, bool) {
	var value string
	var found bool

	for _, item := range details {
		pair, ok := item.([]any)
		if !ok || len(pair) < 2 {
			continue
		}
		key, ok := pair[0].(string)
		if !ok || key != label {
			continue
		}
		if s, ok := pair[1].(string); ok {
			value, found = s, true
		}
	}

	return value, found
}

// StatusOn derives the subscription status of a record from its detail
// table as of the given day.
func StatusOn(details []any, today time.Time) Status {
	rangeValue, ok := DetailValue(details, LabelIPODate)
	if !ok {
		return StatusUnknown
	}

	openDate, closeDate, ok := ParseDateRange(rangeValue)
	if !ok {
		return StatusUnknown
	}

	day := dateOnly(today)
	switch {
	case day.Before(openDate):
		return StatusUpcoming
	case !day.After(closeDate):
		return StatusOpen
	default:
		// Past the close the listing date is still parsed and validated,
		// but both branches resolve to Closed.
		if listing, ok := DetailValue(details, LabelListingDate); ok {
			if t, ok := ParseListingDate(listing); ok && !day.Before(t) {
				return StatusClosed
			}
		}
		return StatusClosed
	}
}

// TodayEvents lists the calendar events a record hits on the given day.
func TodayEvents(details []any, today time.Time) []string {
	day := dateOnly(today)
	var events []string

	if rangeValue, ok := DetailValue(details, LabelIPODate); ok {
		if openDate, closeDate, ok := ParseDateRange(rangeValue); ok {
			if openDate.Equal(day) {
				events = append(events, EventOpeningToday)
			}
			if closeDate.Equal(day) {
				events = append(events, EventClosingToday)
			}
		}
	}

	if listing, ok := DetailValue(details, LabelListingDate); ok {
		if t, ok := ParseListingDate(listing); ok && t.Equal(day) {
			events = append(events, EventListingToday)
		}
	}

	return events
}

// ListingVenue returns the exchange from the "Listing At" detail row.
func ListingVenue(details []any) (string, bool) {
	return DetailValue(details, LabelListingAt)
}
