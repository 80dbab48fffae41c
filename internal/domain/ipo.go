package domain

// Document is the decoded JSON tree of a single IPO record. Its shape is
// whatever the extractor produced, so values stay untyped.
type Document map[string]any

// Details returns the ipo_details pair list of the document, when present.
func (d Document) Details() ([]any, bool) {
	raw, ok := d["ipo_details"]
	if !ok {
		return nil, false
	}
	details, ok := raw.([]any)
	return details, ok
}

// Candidate is an upstream listing row before its local artifacts exist.
type Candidate struct {
	Name string
	URL  string
}

// IndexEntry is one row of a year's current_meta.json index. The slug is
// not stored on disk; it is derived from the name when the index is loaded.
type IndexEntry struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	HTMLPath string `json:"html_path"`
	JSONPath string `json:"json_path,omitempty"`
	Year     int    `json:"year"`
	Slug     string `json:"slug,omitempty"`
}

// Status classifies an IPO relative to its subscription window.
type Status string

const (
	StatusUpcoming Status = "Upcoming"
	StatusOpen     Status = "Open"
	StatusClosed   Status = "Closed"
	StatusUnknown  Status = "Unknown"
)

// Calendar event tags attached to records by the today listing.
const (
	EventOpeningToday = "Opening Today"
	EventClosingToday = "Closing Today"
	EventListingToday = "Listing Today"
)

// ListEntry is the envelope every listing endpoint returns per record.
type ListEntry struct {
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	URL      string `json:"url"`
	HTMLPath string `json:"html_path"`
	JSONPath string `json:"json_path"`
	Year     int    `json:"year"`
	Status   Status `json:"status"`
}

// TodayEntry is a ListEntry plus the events that make it relevant today.
type TodayEntry struct {
	ListEntry
	TodayEvents []string `json:"today_events"`
}

// ListingEntry is a ListEntry plus the exchange the IPO lists at.
type ListingEntry struct {
	ListEntry
	ListingAt string `json:"listing_at"`
}

// OverviewEntry is a ListEntry plus headline facets for dashboards. The
// listing gain is carried verbatim from the record ("12.34%" style); it is
// null on records that have not listed yet.
type OverviewEntry struct {
	ListEntry
	PriceBand   string `json:"price_band,omitempty"`
	IPODates    string `json:"ipo_dates,omitempty"`
	ListingGain string `json:"listing_gain_percent,omitempty"`
}

// Overview aggregates corpus-wide counts with capped per-status lists. The
// counts always reflect the full lists, not the capped ones.
type Overview struct {
	TotalCurrentYear   int             `json:"total_ipos_current_year"`
	TotalUpcomingCount int             `json:"total_upcoming_ipos_count"`
	TotalOpenCount     int             `json:"total_open_ipos_count"`
	TotalClosedCount   int             `json:"total_closed_ipos_count"`
	Upcoming           []OverviewEntry `json:"upcoming_ipos_list"`
	Open               []OverviewEntry `json:"open_ipos_list"`
	Closed             []OverviewEntry `json:"closed_ipos_list"`
}
