package corpus

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"IPOWatcher/internal/domain"
)

func writeFixture(t *testing.T, root string, rel string, content string) {
	t.Helper()

	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
}

func TestStoreYears(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFixture(t, root, "2024/current_meta.json", `[]`)
	writeFixture(t, root, "2025/current_meta.json", `[]`)
	if err := os.MkdirAll(filepath.Join(root, "2023"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(root, "docs"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	store := NewStore(root)
	ctx := context.Background()

	years, err := store.Years(ctx)
	if err != nil {
		t.Fatalf("Years error: %v", err)
	}
	if len(years) != 2 || years[0] != 2024 || years[1] != 2025 {
		t.Fatalf("unexpected years: %v", years)
	}

	all, err := store.AllYears(ctx)
	if err != nil {
		t.Fatalf("AllYears error: %v", err)
	}
	if len(all) != 3 || all[0] != 2023 {
		t.Fatalf("unexpected all years: %v", all)
	}
}

func TestStoreYearsMissingRoot(t *testing.T) {
	t.Parallel()

	store := NewStore(filepath.Join(t.TempDir(), "nope"))
	years, err := store.Years(context.Background())
	if err != nil {
		t.Fatalf("missing root should not error: %v", err)
	}
	if len(years) != 0 {
		t.Fatalf("expected no years, got %v", years)
	}
}

func TestStoreReadIndex(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFixture(t, root, "2025/current_meta.json",
		`[{"name": "Acme Ltd IPO", "url": "/ipo/acme/123/", "html_path": "2025/html/Acme Ltd IPO.html", "year": 2025}]`)

	store := NewStore(root)
	entries, mtime, err := store.ReadIndex(context.Background(), 2025)
	if err != nil {
		t.Fatalf("ReadIndex error: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "Acme Ltd IPO" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
	if mtime.IsZero() {
		t.Fatalf("expected a modification time")
	}

	if _, _, err := store.ReadIndex(context.Background(), 1999); err == nil {
		t.Fatalf("missing index should error")
	}

	writeFixture(t, root, "2024/current_meta.json", `{not json`)
	if _, _, err := store.ReadIndex(context.Background(), 2024); err == nil {
		t.Fatalf("malformed index should error")
	}
}

func TestStoreDocumentRoundTrip(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store := NewStore(root)
	ctx := context.Background()

	doc := domain.Document{"ipo_details": []any{[]any{"IPO Date", "May 14, 2025"}}}
	if err := store.WriteDocument(ctx, "2025/json/Acme_Ltd_IPO.json", doc); err != nil {
		t.Fatalf("WriteDocument error: %v", err)
	}

	got, err := store.ReadDocument(ctx, "2025/json/Acme_Ltd_IPO.json")
	if err != nil {
		t.Fatalf("ReadDocument error: %v", err)
	}
	if _, ok := got.Details(); !ok {
		t.Fatalf("round trip lost details: %+v", got)
	}

	if _, err := store.DocumentModTime(ctx, "2025/json/Acme_Ltd_IPO.json"); err != nil {
		t.Fatalf("DocumentModTime error: %v", err)
	}
	if _, err := store.DocumentModTime(ctx, "2025/json/absent.json"); err == nil {
		t.Fatalf("missing document should error")
	}
}

func TestStoreRejectsEscapingPaths(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	ctx := context.Background()

	for _, rel := range []string{"../outside.json", "2025/../../outside.json", "/etc/passwd"} {
		if _, err := store.ReadDocument(ctx, rel); err == nil {
			t.Fatalf("path %q should be rejected", rel)
		}
	}
}

func TestStoreArtifacts(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	ctx := context.Background()
	rel := "2025/html/Acme Ltd IPO.html"

	if store.ArtifactExists(ctx, rel) {
		t.Fatalf("artifact should not exist yet")
	}

	if err := store.WriteArtifact(ctx, rel, []byte("<html></html>")); err != nil {
		t.Fatalf("WriteArtifact error: %v", err)
	}

	if !store.ArtifactExists(ctx, rel) {
		t.Fatalf("artifact should exist")
	}

	data, err := store.ReadArtifact(ctx, rel)
	if err != nil {
		t.Fatalf("ReadArtifact error: %v", err)
	}
	if string(data) != "<html></html>" {
		t.Fatalf("unexpected artifact content: %q", data)
	}
}
