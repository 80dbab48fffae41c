package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"IPOWatcher/internal/cache"
	"IPOWatcher/internal/domain"
	"IPOWatcher/internal/fields"
)

// Failure categories the transport layer maps onto HTTP codes.
var (
	ErrYearNotFound  = errors.New("year not found")
	ErrSlugNotFound  = errors.New("slug not found")
	ErrDetailLoad    = errors.New("detail load failed")
	ErrInvalidStatus = errors.New("invalid status type")
	ErrMissingQuery  = errors.New("missing query parameter")
)

var statusTokens = map[string]domain.Status{
	"upcoming": domain.StatusUpcoming,
	"open":     domain.StatusOpen,
	"closed":   domain.StatusClosed,
}

// QueryDeps collects the collaborators of the read-side use cases.
type QueryDeps struct {
	Cache  *cache.Cache
	Logger *slog.Logger
	// Now supplies the evaluation date for status derivations; tests pin
	// it, production leaves it nil for time.Now.
	Now func() time.Time
}

// Query serves every read endpoint from the corpus cache. It holds no
// state of its own; response-level caching happens at the transport.
type Query struct {
	cache  *cache.Cache
	logger *slog.Logger
	now    func() time.Time
}

// NewQuery wires the read-side use cases.
func NewQuery(deps QueryDeps) *Query {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Query{cache: deps.Cache, logger: logger, now: now}
}

// record pairs an index row with its lazily loaded document. doc is nil
// when the load failed; the envelope then carries StatusUnknown.
type record struct {
	entry  domain.IndexEntry
	doc    domain.Document
	status domain.Status
}

// Years lists partitions that have an index file, newest first.
func (q *Query) Years(ctx context.Context) ([]int, error) {
	years, err := q.cache.Years(ctx)
	if err != nil {
		return nil, fmt.Errorf("list years: %w", err)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years, nil
}

// All returns the envelope of every record across all years, newest year
// first. Years that fail to load are skipped.
func (q *Query) All(ctx context.Context) ([]domain.ListEntry, error) {
	records, err := q.collect(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.ListEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, envelope(rec))
	}
	return entries, nil
}

// ByYear returns the envelopes of one year or ErrYearNotFound when its
// index is missing or unreadable.
func (q *Query) ByYear(ctx context.Context, year int) ([]domain.ListEntry, error) {
	records, err := q.collectYear(ctx, year)
	if err != nil {
		q.logger.Debug("year unavailable", "year", year, "error", err)
		return nil, fmt.Errorf("no IPO data for year %d: %w", year, ErrYearNotFound)
	}

	entries := make([]domain.ListEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, envelope(rec))
	}
	return entries, nil
}

// Detail returns the full document of the record with the given slug,
// with the derived status injected. When field paths are given the result
// is the projection instead of the whole document.
func (q *Query) Detail(ctx context.Context, slug string, paths []string) (map[string]any, error) {
	entry, found, err := q.cache.FindBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("scan for slug %q: %w", slug, err)
	}
	if !found {
		return nil, fmt.Errorf("ipo with slug %q: %w", slug, ErrSlugNotFound)
	}

	doc, err := q.cache.Document(ctx, entry.Year, entry.JSONPath)
	if err != nil {
		q.logger.Error("detail document load failed", "slug", slug, "path", entry.JSONPath, "error", err)
		return nil, fmt.Errorf("detail for slug %q: %w", slug, ErrDetailLoad)
	}

	status := domain.StatusUnknown
	if details, ok := doc.Details(); ok {
		status = domain.StatusOn(details, q.now())
	}

	// The cached document is shared across requests; copy before
	// injecting the derived status.
	full := make(map[string]any, len(doc)+1)
	for k, v := range doc {
		full[k] = v
	}
	full["status"] = string(status)

	if len(paths) > 0 {
		return fields.Project(full, paths), nil
	}
	return full, nil
}

// ByStatus filters the flattened corpus by derived status. The token is
// case-insensitive; anything outside upcoming/open/closed is rejected.
func (q *Query) ByStatus(ctx context.Context, token string) ([]domain.ListEntry, error) {
	want, ok := statusTokens[strings.ToLower(token)]
	if !ok {
		return nil, fmt.Errorf("status %q must be one of upcoming, open, closed: %w", token, ErrInvalidStatus)
	}

	records, err := q.collect(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.ListEntry, 0)
	for _, rec := range records {
		if rec.status == want {
			entries = append(entries, envelope(rec))
		}
	}
	return entries, nil
}

// Search matches the query case-insensitively against record names and
// company descriptions. Records whose document failed to load still match
// by name.
func (q *Query) Search(ctx context.Context, query string) ([]domain.ListEntry, error) {
	if query == "" {
		return nil, fmt.Errorf("search: %w", ErrMissingQuery)
	}

	records, err := q.collect(ctx)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(query)
	entries := make([]domain.ListEntry, 0)
	for _, rec := range records {
		match := rec.entry.Name != "" && strings.Contains(strings.ToLower(rec.entry.Name), needle)
		if !match && rec.doc != nil {
			if desc := companyDescription(rec.doc); desc != "" {
				match = strings.Contains(strings.ToLower(desc), needle)
			}
		}
		if match {
			entries = append(entries, envelope(rec))
		}
	}
	return entries, nil
}

// Overview aggregates per-status counts over the whole corpus plus capped
// per-status lists. A nil limit leaves the lists uncapped; the counts
// always reflect the full lists.
func (q *Query) Overview(ctx context.Context, limit *int) (domain.Overview, error) {
	records, err := q.collect(ctx)
	if err != nil {
		return domain.Overview{}, err
	}

	currentYear := q.now().Year()
	var upcoming, open, closed []domain.OverviewEntry
	overview := domain.Overview{}

	for _, rec := range records {
		if rec.entry.Year == currentYear {
			overview.TotalCurrentYear++
		}
		switch rec.status {
		case domain.StatusUpcoming:
			upcoming = append(upcoming, overviewEntry(rec))
		case domain.StatusOpen:
			open = append(open, overviewEntry(rec))
		case domain.StatusClosed:
			closed = append(closed, overviewEntry(rec))
		}
	}

	overview.TotalUpcomingCount = len(upcoming)
	overview.TotalOpenCount = len(open)
	overview.TotalClosedCount = len(closed)
	overview.Upcoming = capList(upcoming, limit)
	overview.Open = capList(open, limit)
	overview.Closed = capList(closed, limit)
	return overview, nil
}

// Today returns the records opening, closing or listing on the current
// date, tagged with the events that apply. Records without a loadable
// detail table are skipped.
func (q *Query) Today(ctx context.Context) ([]domain.TodayEntry, error) {
	records, err := q.collect(ctx)
	if err != nil {
		return nil, err
	}

	today := q.now()
	entries := make([]domain.TodayEntry, 0)
	for _, rec := range records {
		if rec.doc == nil {
			continue
		}
		details, ok := rec.doc.Details()
		if !ok {
			continue
		}
		events := domain.TodayEvents(details, today)
		if len(events) == 0 {
			continue
		}
		entries = append(entries, domain.TodayEntry{ListEntry: envelope(rec), TodayEvents: events})
	}
	return entries, nil
}

// ByListingType filters by the exchange in the "Listing At" detail row,
// matched case-insensitively. Records without a detail table are skipped.
func (q *Query) ByListingType(ctx context.Context, listingType string) ([]domain.ListingEntry, error) {
	records, err := q.collect(ctx)
	if err != nil {
		return nil, err
	}

	want := strings.ToLower(listingType)
	entries := make([]domain.ListingEntry, 0)
	for _, rec := range records {
		if rec.doc == nil {
			continue
		}
		details, ok := rec.doc.Details()
		if !ok {
			continue
		}
		venue, ok := domain.ListingVenue(details)
		if !ok || strings.ToLower(venue) != want {
			continue
		}
		entries = append(entries, domain.ListingEntry{ListEntry: envelope(rec), ListingAt: venue})
	}
	return entries, nil
}

// collect walks every partition newest first and loads each record's
// document. A year that fails to load is logged and skipped.
func (q *Query) collect(ctx context.Context) ([]record, error) {
	years, err := q.cache.YearsNewestFirst(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover years: %w", err)
	}

	var records []record
	for _, year := range years {
		recs, err := q.collectYear(ctx, year)
		if err != nil {
			q.logger.Warn("skipping year", "year", year, "error", err)
			continue
		}
		records = append(records, recs...)
	}
	return records, nil
}

func (q *Query) collectYear(ctx context.Context, year int) ([]record, error) {
	entries, err := q.cache.Entries(ctx, year)
	if err != nil {
		return nil, err
	}

	today := q.now()
	records := make([]record, 0, len(entries))
	for _, entry := range entries {
		rec := record{entry: entry, status: domain.StatusUnknown}
		doc, err := q.cache.Document(ctx, year, entry.JSONPath)
		if err != nil {
			q.logger.Debug("record document unavailable", "year", year, "name", entry.Name, "error", err)
		} else {
			rec.doc = doc
			if details, ok := doc.Details(); ok {
				rec.status = domain.StatusOn(details, today)
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func envelope(rec record) domain.ListEntry {
	return domain.ListEntry{
		Name:     rec.entry.Name,
		Slug:     rec.entry.Slug,
		URL:      rec.entry.URL,
		HTMLPath: rec.entry.HTMLPath,
		JSONPath: rec.entry.JSONPath,
		Year:     rec.entry.Year,
		Status:   rec.status,
	}
}

func overviewEntry(rec record) domain.OverviewEntry {
	entry := domain.OverviewEntry{ListEntry: envelope(rec)}
	if rec.doc == nil {
		return entry
	}
	if details, ok := rec.doc.Details(); ok {
		if v, ok := domain.DetailValue(details, domain.LabelPriceBand); ok {
			entry.PriceBand = v
		}
		if v, ok := domain.DetailValue(details, domain.LabelIPODate); ok {
			entry.IPODates = v
		}
	}
	if gain, ok := rec.doc["listing_gain_percent"].(string); ok {
		entry.ListingGain = gain
	}
	return entry
}

func capList(entries []domain.OverviewEntry, limit *int) []domain.OverviewEntry {
	if entries == nil {
		entries = []domain.OverviewEntry{}
	}
	if limit == nil {
		return entries
	}
	n := *limit
	if n < 0 {
		n = 0
	}
	if n < len(entries) {
		return entries[:n]
	}
	return entries
}

func companyDescription(doc domain.Document) string {
	about, ok := doc["about_company"].(map[string]any)
	if !ok {
		return ""
	}
	desc, _ := about["description"].(string)
	return desc
}
