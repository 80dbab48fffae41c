package ports

import (
	"context"
	"time"

	"IPOWatcher/internal/domain"
)

// CorpusStore reads and writes the year-partitioned corpus on its backing
// storage. Paths are always relative to the corpus root.
type CorpusStore interface {
	// Years lists partitions that have an index file, ascending.
	Years(ctx context.Context) ([]int, error)
	// AllYears lists every numeric partition, index file or not.
	AllYears(ctx context.Context) ([]int, error)

	ReadIndex(ctx context.Context, year int) ([]domain.IndexEntry, time.Time, error)
	IndexModTime(ctx context.Context, year int) (time.Time, error)

	ReadDocument(ctx context.Context, relPath string) (domain.Document, error)
	DocumentModTime(ctx context.Context, relPath string) (time.Time, error)

	WriteIndex(ctx context.Context, year int, entries []domain.IndexEntry) error
	WriteDocument(ctx context.Context, relPath string, doc domain.Document) error
	WriteArtifact(ctx context.Context, relPath string, data []byte) error
	ReadArtifact(ctx context.Context, relPath string) ([]byte, error)
	ArtifactExists(ctx context.Context, relPath string) bool
}

// ResponseCache stores assembled API payloads under their category TTL.
// Implementations absorb backend failures; a failed lookup is a miss.
type ResponseCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Clear(ctx context.Context) error
}

// Lister discovers upstream listing rows for a year.
type Lister interface {
	List(ctx context.Context, year int) ([]domain.Candidate, error)
}

// PageFetcher downloads the full HTML payload for one candidate page.
type PageFetcher interface {
	FetchPage(ctx context.Context, cand domain.Candidate) ([]byte, error)
}

// Extractor turns a stored HTML payload into a structured document.
type Extractor interface {
	Extract(html []byte) (domain.Document, error)
}

// Notifier streams operational digests to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when background refreshes execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
