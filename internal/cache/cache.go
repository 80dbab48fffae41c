package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"IPOWatcher/internal/domain"
	"IPOWatcher/internal/ports"
)

var (
	indexHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ipowatcher_index_cache_hits_total",
		Help: "Year index requests served without touching the index file.",
	})
	indexMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ipowatcher_index_cache_misses_total",
		Help: "Year index requests that (re)loaded the index file.",
	})
	detailHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ipowatcher_detail_cache_hits_total",
		Help: "Record document requests served from memory.",
	})
	detailMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ipowatcher_detail_cache_misses_total",
		Help: "Record document requests that (re)loaded the record file.",
	})
)

// line is one cached record document together with the modification time
// its file had when it was read.
type line struct {
	mtime time.Time
	doc   domain.Document
}

// partition holds everything cached for one year. Its mutex serializes the
// check-then-load sequence so concurrent requests cannot interleave a
// staleness check with another goroutine's store.
type partition struct {
	mu         sync.Mutex
	loaded     bool
	indexMtime time.Time
	entries    []domain.IndexEntry
	docs       map[string]line
}

// Cache keeps per-year index partitions and lazily loaded record documents
// in memory. A cached value is fresh while the backing file's modification
// time has not moved past the one recorded at load; only a strictly newer
// mtime forces a reload. Reloading a year's index resets that year's
// record cache.
type Cache struct {
	store  ports.CorpusStore
	logger *slog.Logger

	mu         sync.Mutex
	partitions map[int]*partition
}

// New builds a cache over the given store.
func New(store ports.CorpusStore, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		store:      store,
		logger:     logger,
		partitions: map[int]*partition{},
	}
}

func (c *Cache) partition(year int) *partition {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.partitions[year]
	if !ok {
		p = &partition{docs: map[string]line{}}
		c.partitions[year] = p
	}
	return p
}

// Years lists partitions that currently have an index file, ascending.
func (c *Cache) Years(ctx context.Context) ([]int, error) {
	return c.store.Years(ctx)
}

// YearsNewestFirst lists every numeric partition, newest first. Listing
// operations walk this order so recent records come out on top.
func (c *Cache) YearsNewestFirst(ctx context.Context) ([]int, error) {
	years, err := c.store.AllYears(ctx)
	if err != nil {
		return nil, err
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years, nil
}

// Entries returns the index rows of one year, reloading them only when the
// index file changed. A failed reload leaves the previous rows cached but
// reports the failure to the caller.
func (c *Cache) Entries(ctx context.Context, year int) ([]domain.IndexEntry, error) {
	p := c.partition(year)
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := c.refreshLocked(ctx, year, p); err != nil {
		return nil, err
	}
	return p.entries, nil
}

// refreshLocked brings the partition's index up to date. The caller holds
// the partition mutex.
func (c *Cache) refreshLocked(ctx context.Context, year int, p *partition) error {
	mtime, err := c.store.IndexModTime(ctx, year)
	if err != nil {
		return err
	}

	if p.loaded && !p.indexMtime.Before(mtime) {
		indexHits.Inc()
		return nil
	}
	indexMisses.Inc()

	entries, readMtime, err := c.store.ReadIndex(ctx, year)
	if err != nil {
		return err
	}

	for i := range entries {
		entries[i].Year = year
		entries[i].Slug = domain.Slugify(entries[i].Name)
	}

	p.loaded = true
	p.indexMtime = readMtime
	p.entries = entries
	// Reloading the index empties the year's record cache; per-record
	// mtimes would catch changed files anyway, this also drops removed
	// ones.
	p.docs = map[string]line{}

	c.logger.Info("year index loaded", "year", year, "records", len(entries))
	return nil
}

// Document returns one record's parsed document, loading it lazily keyed
// by its index path. A missing file fails cleanly without creating a cache
// line; a failed decode keeps the previous line and reports the failure.
func (c *Cache) Document(ctx context.Context, year int, jsonPath string) (domain.Document, error) {
	if jsonPath == "" {
		return nil, fmt.Errorf("record in year %d has no document path", year)
	}

	p := c.partition(year)
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.loaded {
		if err := c.refreshLocked(ctx, year, p); err != nil {
			return nil, err
		}
	}

	mtime, err := c.store.DocumentModTime(ctx, jsonPath)
	if err != nil {
		return nil, err
	}

	if cached, ok := p.docs[jsonPath]; ok && !cached.mtime.Before(mtime) {
		detailHits.Inc()
		return cached.doc, nil
	}
	detailMisses.Inc()

	doc, err := c.store.ReadDocument(ctx, jsonPath)
	if err != nil {
		return nil, err
	}

	p.docs[jsonPath] = line{mtime: mtime, doc: doc}
	c.logger.Debug("record document loaded", "year", year, "path", jsonPath)
	return doc, nil
}

// FindBySlug scans partitions newest first and returns the first index row
// whose slug matches. When two years share a slug the newest partition
// wins; the older duplicate is unreachable. Partitions that fail to load
// are skipped.
func (c *Cache) FindBySlug(ctx context.Context, slug string) (domain.IndexEntry, bool, error) {
	years, err := c.YearsNewestFirst(ctx)
	if err != nil {
		return domain.IndexEntry{}, false, err
	}

	for _, year := range years {
		entries, err := c.Entries(ctx, year)
		if err != nil {
			c.logger.Debug("skipping year during slug scan", "year", year, "error", err)
			continue
		}
		for _, entry := range entries {
			if entry.Slug != "" && entry.Slug == slug {
				return entry, true, nil
			}
		}
	}

	return domain.IndexEntry{}, false, nil
}

// Clear drops every partition and preloads the index of each discoverable
// year. Record documents load again on demand. Years that fail to load are
// skipped, not fatal.
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	c.partitions = map[int]*partition{}
	c.mu.Unlock()

	years, err := c.store.AllYears(ctx)
	if err != nil {
		return fmt.Errorf("discover years: %w", err)
	}

	loaded := 0
	for _, year := range years {
		if _, err := c.Entries(ctx, year); err != nil {
			c.logger.Warn("preload failed", "year", year, "error", err)
			continue
		}
		loaded++
	}

	c.logger.Info("cache cleared and index preloaded", "years", loaded)
	return nil
}
