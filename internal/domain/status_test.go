package domain

import (
	"testing"
	"time"
)

func pairs(kv ...string) []any {
	details := make([]any, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		details = append(details, []any{kv[i], kv[i+1]})
	}
	return details
}

func TestDetailValue(t *testing.T) {
	t.Parallel()

	details := pairs("IPO Date", "May 14, 2025", "Listing At", "NSE SME")
	details = append(details, "garbage row", []any{"lonely"}, []any{42, "numeric label"})

	value, ok := DetailValue(details, "Listing At")
	if !ok || value != "NSE SME" {
		t.Fatalf("unexpected value: %q ok=%v", value, ok)
	}

	if _, ok := DetailValue(details, "Face Value"); ok {
		t.Fatalf("absent label should not be found")
	}

	// A repeated label keeps the last occurrence.
	repeated := pairs("IPO Date", "May 1, 2025", "IPO Date", "May 2, 2025")
	value, _ = DetailValue(repeated, "IPO Date")
	if value != "May 2, 2025" {
		t.Fatalf("expected last occurrence, got %q", value)
	}
}

func TestStatusOnRange(t *testing.T) {
	t.Parallel()

	details := pairs("IPO Date", "May 14, 2025toMay 16, 2025")

	cases := []struct {
		today time.Time
		want  Status
	}{
		{time.Date(2025, time.May, 13, 9, 0, 0, 0, time.UTC), StatusUpcoming},
		{time.Date(2025, time.May, 14, 0, 0, 0, 0, time.UTC), StatusOpen},
		{time.Date(2025, time.May, 15, 23, 0, 0, 0, time.UTC), StatusOpen},
		{time.Date(2025, time.May, 16, 12, 0, 0, 0, time.UTC), StatusOpen},
		{time.Date(2025, time.May, 17, 0, 0, 0, 0, time.UTC), StatusClosed},
	}

	for _, tc := range cases {
		if got := StatusOn(details, tc.today); got != tc.want {
			t.Fatalf("StatusOn(%v) = %s, want %s", tc.today, got, tc.want)
		}
	}
}

func TestStatusOnSingleDate(t *testing.T) {
	t.Parallel()

	details := pairs("IPO Date", "May 14, 2025")

	if got := StatusOn(details, time.Date(2025, time.May, 14, 10, 0, 0, 0, time.UTC)); got != StatusOpen {
		t.Fatalf("same day should be Open, got %s", got)
	}
	if got := StatusOn(details, time.Date(2025, time.May, 20, 0, 0, 0, 0, time.UTC)); got != StatusClosed {
		t.Fatalf("later day should be Closed, got %s", got)
	}
}

func TestStatusOnUnknown(t *testing.T) {
	t.Parallel()

	if got := StatusOn(pairs("Face Value", "10"), time.Now()); got != StatusUnknown {
		t.Fatalf("missing IPO Date should be Unknown, got %s", got)
	}
	if got := StatusOn(pairs("IPO Date", "sometime soon"), time.Now()); got != StatusUnknown {
		t.Fatalf("unparsable IPO Date should be Unknown, got %s", got)
	}
	if got := StatusOn(nil, time.Now()); got != StatusUnknown {
		t.Fatalf("empty details should be Unknown, got %s", got)
	}
}

func TestStatusOnClosedIgnoresListingDate(t *testing.T) {
	t.Parallel()

	today := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)

	past := pairs("IPO Date", "May 14, 2025toMay 16, 2025", "Listing Date", "Wed, May 21, 2025")
	future := pairs("IPO Date", "May 14, 2025toMay 16, 2025", "Listing Date", "Wed, Jun 18, 2025")
	malformed := pairs("IPO Date", "May 14, 2025toMay 16, 2025", "Listing Date", "tba")

	for _, details := range [][]any{past, future, malformed} {
		if got := StatusOn(details, today); got != StatusClosed {
			t.Fatalf("past-window record should be Closed regardless of listing date, got %s", got)
		}
	}
}

func TestTodayEvents(t *testing.T) {
	t.Parallel()

	details := pairs(
		"IPO Date", "May 14, 2025toMay 16, 2025",
		"Listing Date", "Wed, May 21, 2025",
	)

	events := TodayEvents(details, time.Date(2025, time.May, 14, 8, 0, 0, 0, time.UTC))
	if len(events) != 1 || events[0] != EventOpeningToday {
		t.Fatalf("unexpected events: %v", events)
	}

	events = TodayEvents(details, time.Date(2025, time.May, 16, 8, 0, 0, 0, time.UTC))
	if len(events) != 1 || events[0] != EventClosingToday {
		t.Fatalf("unexpected events: %v", events)
	}

	events = TodayEvents(details, time.Date(2025, time.May, 21, 8, 0, 0, 0, time.UTC))
	if len(events) != 1 || events[0] != EventListingToday {
		t.Fatalf("unexpected events: %v", events)
	}

	// A single-day window opens and closes on the same date.
	single := pairs("IPO Date", "May 14, 2025")
	events = TodayEvents(single, time.Date(2025, time.May, 14, 8, 0, 0, 0, time.UTC))
	if len(events) != 2 || events[0] != EventOpeningToday || events[1] != EventClosingToday {
		t.Fatalf("unexpected events: %v", events)
	}

	if events := TodayEvents(details, time.Date(2025, time.May, 18, 8, 0, 0, 0, time.UTC)); len(events) != 0 {
		t.Fatalf("expected no events, got %v", events)
	}
}

func TestListingVenue(t *testing.T) {
	t.Parallel()

	venue, ok := ListingVenue(pairs("Listing At", "BSE SME"))
	if !ok || venue != "BSE SME" {
		t.Fatalf("unexpected venue: %q ok=%v", venue, ok)
	}

	if _, ok := ListingVenue(pairs("IPO Date", "May 14, 2025")); ok {
		t.Fatalf("absent venue should not be found")
	}
}

func TestDocumentDetails(t *testing.T) {
	t.Parallel()

	doc := Document{"ipo_details": []any{[]any{"IPO Date", "May 14, 2025"}}}
	if _, ok := doc.Details(); !ok {
		t.Fatalf("details should be present")
	}

	if _, ok := (Document{}).Details(); ok {
		t.Fatalf("missing details should report absence")
	}
	if _, ok := (Document{"ipo_details": "not a list"}).Details(); ok {
		t.Fatalf("non-list details should report absence")
	}
}
