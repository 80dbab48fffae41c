package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"IPOWatcher/internal/domain"
	"IPOWatcher/internal/ports"
)

// IngestDeps wires the driven adapters of the corpus rebuild workflow.
type IngestDeps struct {
	Store     ports.CorpusStore
	Lister    ports.Lister
	Fetcher   ports.PageFetcher
	Extractor ports.Extractor
	Notifier  ports.Notifier
	Logger    *slog.Logger

	// Workers bounds concurrent page fetches. RefetchTop is how many
	// leading roster entries are fetched fresh even when already
	// archived; the newest offerings carry the volatile subscription
	// numbers.
	Workers    int
	RefetchTop int
}

// Ingestor rebuilds one year partition of the corpus from the upstream
// site: roster, archived pages, extracted documents, index file.
type Ingestor struct {
	store      ports.CorpusStore
	lister     ports.Lister
	fetcher    ports.PageFetcher
	extractor  ports.Extractor
	notifier   ports.Notifier
	logger     *slog.Logger
	workers    int
	refetchTop int
}

// NewIngestor constructs the ingestion workflow.
func NewIngestor(deps IngestDeps) *Ingestor {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	workers := deps.Workers
	if workers <= 0 {
		workers = 5
	}
	refetchTop := deps.RefetchTop
	if refetchTop < 0 {
		refetchTop = 0
	}

	return &Ingestor{
		store:      deps.Store,
		lister:     deps.Lister,
		fetcher:    deps.Fetcher,
		extractor:  deps.Extractor,
		notifier:   deps.Notifier,
		logger:     logger,
		workers:    workers,
		refetchTop: refetchTop,
	}
}

// Run rebuilds the given year partition. Offerings that fail to fetch or
// extract keep their roster entry without a document path; the API then
// serves them with status Unknown until the next run fills them in.
func (i *Ingestor) Run(ctx context.Context, year int) error {
	if i.lister == nil || i.store == nil {
		return fmt.Errorf("ingestor missing lister or store")
	}

	candidates, err := i.lister.List(ctx, year)
	if err != nil {
		return fmt.Errorf("list offerings %d: %w", year, err)
	}
	if len(candidates) == 0 {
		i.logger.Info("no offerings listed", "year", year)
		return nil
	}

	// Results keep roster order regardless of which worker finishes
	// first, so index diffs stay readable between runs.
	entries := make([]domain.IndexEntry, len(candidates))

	var g errgroup.Group
	g.SetLimit(i.workers)
	for idx, cand := range candidates {
		g.Go(func() error {
			entries[idx] = i.process(ctx, year, cand, idx < i.refetchTop)
			return nil
		})
	}
	_ = g.Wait()

	if err := i.store.WriteIndex(ctx, year, entries); err != nil {
		return fmt.Errorf("write index %d: %w", year, err)
	}

	extracted := 0
	for _, entry := range entries {
		if entry.JSONPath != "" {
			extracted++
		}
	}
	i.logger.Info("ingest finished", "year", year, "offerings", len(entries), "documents", extracted)

	if i.notifier != nil {
		if err := i.notifier.PublishDigest(ctx, ingestDigest(year, entries)); err != nil {
			i.logger.Warn("digest delivery failed", "error", err)
		}
	}

	return nil
}

func (i *Ingestor) process(ctx context.Context, year int, cand domain.Candidate, force bool) domain.IndexEntry {
	entry := domain.IndexEntry{Name: cand.Name, URL: cand.URL, Year: year}

	htmlRel := fmt.Sprintf("%d/html/%s", year, domain.HTMLFileName(cand.Name))
	if !force && i.store.ArtifactExists(ctx, htmlRel) {
		i.logger.Debug("page already archived", "name", cand.Name)
		entry.HTMLPath = htmlRel
	} else {
		if i.fetcher == nil {
			i.logger.Warn("no fetcher configured", "name", cand.Name)
			return entry
		}
		payload, err := i.fetcher.FetchPage(ctx, cand)
		if err != nil {
			i.logger.Warn("page fetch failed", "name", cand.Name, "error", err)
			return entry
		}
		if err := i.store.WriteArtifact(ctx, htmlRel, payload); err != nil {
			i.logger.Warn("page store failed", "name", cand.Name, "error", err)
			return entry
		}
		entry.HTMLPath = htmlRel
	}

	if i.extractor == nil {
		return entry
	}

	// Extraction always reads back the archive, so entries skipped above
	// still pick up extractor improvements.
	raw, err := i.store.ReadArtifact(ctx, htmlRel)
	if err != nil {
		i.logger.Warn("archived page unreadable", "name", cand.Name, "error", err)
		return entry
	}
	doc, err := i.extractor.Extract(raw)
	if err != nil {
		i.logger.Warn("extraction failed", "name", cand.Name, "error", err)
		return entry
	}

	jsonRel := fmt.Sprintf("%d/json/%s", year, domain.JSONFileName(cand.Name))
	if err := i.store.WriteDocument(ctx, jsonRel, doc); err != nil {
		i.logger.Warn("document store failed", "name", cand.Name, "error", err)
		return entry
	}
	entry.JSONPath = jsonRel

	return entry
}

func ingestDigest(year int, entries []domain.IndexEntry) string {
	extracted := 0
	var missing []string
	for _, entry := range entries {
		if entry.JSONPath != "" {
			extracted++
		} else {
			missing = append(missing, entry.Name)
		}
	}

	message := fmt.Sprintf("IPO corpus %d refreshed: %d offerings, %d documents.\n", year, len(entries), extracted)
	for _, name := range missing {
		message += fmt.Sprintf("- %s: no document\n", name)
	}
	return message
}
