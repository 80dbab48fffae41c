package cache

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"IPOWatcher/internal/domain"
	"IPOWatcher/internal/infrastructure/corpus"
	"IPOWatcher/internal/logging"
)

func testCache(t *testing.T) (*Cache, string) {
	t.Helper()
	root := t.TempDir()
	store := corpus.NewStore(root)
	return New(store, logging.NewWithWriter(io.Discard, "error")), root
}

func writeIndexFile(t *testing.T, root string, year string, entries []domain.IndexEntry, mtime time.Time) string {
	t.Helper()
	dir := filepath.Join(root, year)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(dir, "current_meta.json")
	data, err := json.Marshal(entries)
	if err != nil {
		t.Fatalf("marshal index: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write index: %v", err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	return path
}

func writeRawFile(t *testing.T, path string, data string, mtime time.Time) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
}

func TestEntriesFreshWhileMtimeUnchanged(t *testing.T) {
	t.Parallel()

	c, root := testCache(t)
	base := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	path := writeIndexFile(t, root, "2025", []domain.IndexEntry{{Name: "Alpha Ltd"}}, base)

	entries, err := c.Entries(context.Background(), 2025)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "Alpha Ltd" {
		t.Fatalf("unexpected entries: %+v", entries)
	}

	// Same mtime, different content: cache must not notice.
	writeRawFile(t, path, `[{"name":"Beta Ltd"}]`, base)
	entries, err = c.Entries(context.Background(), 2025)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entries[0].Name != "Alpha Ltd" {
		t.Fatalf("expected cached entry, got %q", entries[0].Name)
	}

	// Newer mtime: reload.
	writeRawFile(t, path, `[{"name":"Beta Ltd"}]`, base.Add(time.Minute))
	entries, err = c.Entries(context.Background(), 2025)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entries[0].Name != "Beta Ltd" {
		t.Fatalf("expected reloaded entry, got %q", entries[0].Name)
	}
}

func TestEntriesSetsYearAndSlug(t *testing.T) {
	t.Parallel()

	c, root := testCache(t)
	base := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	writeIndexFile(t, root, "2024", []domain.IndexEntry{{Name: "Crème & Co. Ltd"}}, base)

	entries, err := c.Entries(context.Background(), 2024)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entries[0].Year != 2024 {
		t.Fatalf("unexpected year: %d", entries[0].Year)
	}
	if entries[0].Slug != "creme-co-ltd" {
		t.Fatalf("unexpected slug: %q", entries[0].Slug)
	}
}

func TestEntriesReloadFailureKeepsServingNothing(t *testing.T) {
	t.Parallel()

	c, root := testCache(t)
	base := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	path := writeIndexFile(t, root, "2025", []domain.IndexEntry{{Name: "Alpha Ltd"}}, base)

	if _, err := c.Entries(context.Background(), 2025); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Corrupt file with a newer mtime: the reload fails and the failure
	// surfaces to the caller.
	writeRawFile(t, path, "{not json", base.Add(time.Minute))
	if _, err := c.Entries(context.Background(), 2025); err == nil {
		t.Fatal("expected reload error")
	}

	// Corrupt content behind an unchanged mtime is invisible; the cached
	// rows keep serving.
	if err := os.Chtimes(path, base, base); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	entries, err := c.Entries(context.Background(), 2025)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entries[0].Name != "Alpha Ltd" {
		t.Fatalf("expected retained entry, got %q", entries[0].Name)
	}

	// A good file with a newer mtime recovers.
	writeRawFile(t, path, `[{"name":"Gamma Ltd"}]`, base.Add(2*time.Minute))
	entries, err = c.Entries(context.Background(), 2025)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entries[0].Name != "Gamma Ltd" {
		t.Fatalf("expected recovered entry, got %q", entries[0].Name)
	}
}

func TestEntriesMissingIndex(t *testing.T) {
	t.Parallel()

	c, _ := testCache(t)
	if _, err := c.Entries(context.Background(), 1999); err == nil {
		t.Fatal("expected error for missing index")
	}
}

func TestDocumentLazyLoadAndFreshness(t *testing.T) {
	t.Parallel()

	c, root := testCache(t)
	base := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	writeIndexFile(t, root, "2025", []domain.IndexEntry{{Name: "Alpha Ltd", JSONPath: "2025/json/Alpha_Ltd.json"}}, base)
	docPath := filepath.Join(root, "2025", "json", "Alpha_Ltd.json")
	writeRawFile(t, docPath, `{"name":"Alpha Ltd","lot_size":10}`, base)

	doc, err := c.Document(context.Background(), 2025, "2025/json/Alpha_Ltd.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc["lot_size"] != float64(10) {
		t.Fatalf("unexpected document: %+v", doc)
	}

	// Changed bytes behind the same mtime stay invisible.
	writeRawFile(t, docPath, `{"name":"Alpha Ltd","lot_size":20}`, base)
	doc, err = c.Document(context.Background(), 2025, "2025/json/Alpha_Ltd.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc["lot_size"] != float64(10) {
		t.Fatalf("expected cached document, got %+v", doc)
	}

	// A newer mtime reloads.
	writeRawFile(t, docPath, `{"name":"Alpha Ltd","lot_size":20}`, base.Add(time.Minute))
	doc, err = c.Document(context.Background(), 2025, "2025/json/Alpha_Ltd.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc["lot_size"] != float64(20) {
		t.Fatalf("expected reloaded document, got %+v", doc)
	}
}

func TestDocumentMissingFile(t *testing.T) {
	t.Parallel()

	c, root := testCache(t)
	base := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	writeIndexFile(t, root, "2025", []domain.IndexEntry{{Name: "Alpha Ltd", JSONPath: "2025/json/Alpha_Ltd.json"}}, base)

	if _, err := c.Document(context.Background(), 2025, "2025/json/Alpha_Ltd.json"); err == nil {
		t.Fatal("expected error for missing document")
	}

	// The failed lookup must not leave a cache line behind; once the file
	// appears it loads normally.
	docPath := filepath.Join(root, "2025", "json", "Alpha_Ltd.json")
	writeRawFile(t, docPath, `{"name":"Alpha Ltd"}`, base)
	doc, err := c.Document(context.Background(), 2025, "2025/json/Alpha_Ltd.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc["name"] != "Alpha Ltd" {
		t.Fatalf("unexpected document: %+v", doc)
	}
}

func TestDocumentEmptyPath(t *testing.T) {
	t.Parallel()

	c, root := testCache(t)
	base := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	writeIndexFile(t, root, "2025", []domain.IndexEntry{{Name: "Alpha Ltd"}}, base)

	if _, err := c.Document(context.Background(), 2025, ""); err == nil {
		t.Fatal("expected error for empty document path")
	}
}

func TestDocumentDecodeFailureRetainsLine(t *testing.T) {
	t.Parallel()

	c, root := testCache(t)
	base := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	writeIndexFile(t, root, "2025", []domain.IndexEntry{{Name: "Alpha Ltd", JSONPath: "2025/json/Alpha_Ltd.json"}}, base)
	docPath := filepath.Join(root, "2025", "json", "Alpha_Ltd.json")
	writeRawFile(t, docPath, `{"name":"Alpha Ltd"}`, base)

	if _, err := c.Document(context.Background(), 2025, "2025/json/Alpha_Ltd.json"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	writeRawFile(t, docPath, "{broken", base.Add(time.Minute))
	if _, err := c.Document(context.Background(), 2025, "2025/json/Alpha_Ltd.json"); err == nil {
		t.Fatal("expected decode error")
	}

	// The previous line survived the failed reload: winding the mtime back
	// makes it fresh again and it serves despite the broken bytes on disk.
	if err := os.Chtimes(docPath, base, base); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	doc, err := c.Document(context.Background(), 2025, "2025/json/Alpha_Ltd.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc["name"] != "Alpha Ltd" {
		t.Fatalf("expected retained document, got %+v", doc)
	}
}

func TestIndexReloadResetsDocuments(t *testing.T) {
	t.Parallel()

	c, root := testCache(t)
	base := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	indexPath := writeIndexFile(t, root, "2025", []domain.IndexEntry{{Name: "Alpha Ltd", JSONPath: "2025/json/Alpha_Ltd.json"}}, base)
	docPath := filepath.Join(root, "2025", "json", "Alpha_Ltd.json")
	writeRawFile(t, docPath, `{"lot_size":10}`, base)

	if _, err := c.Document(context.Background(), 2025, "2025/json/Alpha_Ltd.json"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// New bytes behind an unchanged mtime would normally be invisible.
	writeRawFile(t, docPath, `{"lot_size":99}`, base)

	// Touching the index wipes the year's record cache, so the next read
	// hits disk regardless of the record's mtime.
	if err := os.Chtimes(indexPath, base.Add(time.Minute), base.Add(time.Minute)); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if _, err := c.Entries(context.Background(), 2025); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	doc, err := c.Document(context.Background(), 2025, "2025/json/Alpha_Ltd.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc["lot_size"] != float64(99) {
		t.Fatalf("expected reloaded document, got %+v", doc)
	}
}

func TestFindBySlugNewestYearWins(t *testing.T) {
	t.Parallel()

	c, root := testCache(t)
	base := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	writeIndexFile(t, root, "2024", []domain.IndexEntry{{Name: "Alpha Ltd", JSONPath: "2024/json/Alpha_Ltd.json"}}, base)
	writeIndexFile(t, root, "2025", []domain.IndexEntry{{Name: "Alpha Ltd", JSONPath: "2025/json/Alpha_Ltd.json"}}, base)

	entry, found, err := c.FindBySlug(context.Background(), "alpha-ltd")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found {
		t.Fatal("expected a match")
	}
	if entry.Year != 2025 {
		t.Fatalf("expected newest year to win, got %d", entry.Year)
	}

	_, found, err = c.FindBySlug(context.Background(), "no-such-company")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Fatal("expected no match")
	}
}

func TestFindBySlugSkipsBrokenYears(t *testing.T) {
	t.Parallel()

	c, root := testCache(t)
	base := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	writeIndexFile(t, root, "2024", []domain.IndexEntry{{Name: "Alpha Ltd"}}, base)
	writeRawFile(t, filepath.Join(root, "2025", "current_meta.json"), "{broken", base)

	entry, found, err := c.FindBySlug(context.Background(), "alpha-ltd")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found || entry.Year != 2024 {
		t.Fatalf("unexpected result: found=%v entry=%+v", found, entry)
	}
}

func TestClearResetsAndPreloads(t *testing.T) {
	t.Parallel()

	c, root := testCache(t)
	base := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	writeIndexFile(t, root, "2025", []domain.IndexEntry{{Name: "Alpha Ltd", JSONPath: "2025/json/Alpha_Ltd.json"}}, base)
	docPath := filepath.Join(root, "2025", "json", "Alpha_Ltd.json")
	writeRawFile(t, docPath, `{"lot_size":10}`, base)

	if _, err := c.Document(context.Background(), 2025, "2025/json/Alpha_Ltd.json"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Invisible content change; only a full reset can surface it.
	writeRawFile(t, docPath, `{"lot_size":42}`, base)

	// A broken sibling year must not fail the clear.
	writeRawFile(t, filepath.Join(root, "2031", "current_meta.json"), "{broken", base)

	if err := c.Clear(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	doc, err := c.Document(context.Background(), 2025, "2025/json/Alpha_Ltd.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc["lot_size"] != float64(42) {
		t.Fatalf("expected fresh document after clear, got %+v", doc)
	}
}
