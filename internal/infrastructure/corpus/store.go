package corpus

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"IPOWatcher/internal/domain"
	"IPOWatcher/internal/ports"
)

const indexFileName = "current_meta.json"

// Store reads and writes the year-partitioned corpus under a root
// directory. It performs plain I/O only; freshness tracking lives in the
// cache layer above it.
type Store struct {
	root string
}

var _ ports.CorpusStore = (*Store)(nil)

// NewStore roots a filesystem store at dir.
func NewStore(dir string) *Store {
	return &Store{root: dir}
}

// Root returns the corpus root directory.
func (s *Store) Root() string {
	return s.root
}

// Years lists partitions that have an index file, ascending. A missing
// root directory yields an empty list, not an error.
func (s *Store) Years(ctx context.Context) ([]int, error) {
	return s.years(ctx, true)
}

// AllYears lists every numeric partition directory, ascending.
func (s *Store) AllYears(ctx context.Context) ([]int, error) {
	return s.years(ctx, false)
}

func (s *Store) years(ctx context.Context, requireIndex bool) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return []int{}, nil
		}
		return nil, fmt.Errorf("read corpus root: %w", err)
	}

	years := make([]int, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		year, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue
		}
		if requireIndex {
			if _, err := os.Stat(s.indexPath(year)); err != nil {
				continue
			}
		}
		years = append(years, year)
	}

	sort.Ints(years)
	return years, nil
}

// ReadIndex loads a partition's index file and reports the modification
// time it carried. The mtime is taken before the content so a concurrent
// replace is seen as stale on the next freshness check.
func (s *Store) ReadIndex(ctx context.Context, year int) ([]domain.IndexEntry, time.Time, error) {
	if err := ctx.Err(); err != nil {
		return nil, time.Time{}, err
	}

	path := s.indexPath(year)
	info, err := os.Stat(path)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("stat index %d: %w", year, err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("read index %d: %w", year, err)
	}

	var entries []domain.IndexEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, time.Time{}, fmt.Errorf("decode index %d: %w", year, err)
	}

	return entries, info.ModTime(), nil
}

// IndexModTime reports the current modification time of a partition index.
func (s *Store) IndexModTime(ctx context.Context, year int) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}

	info, err := os.Stat(s.indexPath(year))
	if err != nil {
		return time.Time{}, fmt.Errorf("stat index %d: %w", year, err)
	}
	return info.ModTime(), nil
}

// ReadDocument loads one record file addressed relative to the root.
func (s *Store) ReadDocument(ctx context.Context, relPath string) (domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := s.resolve(relPath)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document %s: %w", relPath, err)
	}

	var doc domain.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", relPath, err)
	}

	return doc, nil
}

// DocumentModTime reports the current modification time of a record file.
func (s *Store) DocumentModTime(ctx context.Context, relPath string) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}

	path, err := s.resolve(relPath)
	if err != nil {
		return time.Time{}, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, fmt.Errorf("stat document %s: %w", relPath, err)
	}
	return info.ModTime(), nil
}

// WriteIndex replaces a partition's index file. The write lands on a temp
// file first so readers never observe a half-written index.
func (s *Store) WriteIndex(ctx context.Context, year int, entries []domain.IndexEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode index %d: %w", year, err)
	}

	return s.writeFile(s.indexPath(year), raw)
}

// WriteDocument replaces one record file addressed relative to the root.
func (s *Store) WriteDocument(ctx context.Context, relPath string, doc domain.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.resolve(relPath)
	if err != nil {
		return err
	}

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document %s: %w", relPath, err)
	}

	return s.writeFile(path, raw)
}

// WriteArtifact stores a raw fetched payload (HTML) under the root.
func (s *Store) WriteArtifact(ctx context.Context, relPath string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.resolve(relPath)
	if err != nil {
		return err
	}

	return s.writeFile(path, data)
}

// ReadArtifact loads a raw stored payload.
func (s *Store) ReadArtifact(ctx context.Context, relPath string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := s.resolve(relPath)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", relPath, err)
	}
	return data, nil
}

// ArtifactExists reports whether a stored payload is already present.
func (s *Store) ArtifactExists(ctx context.Context, relPath string) bool {
	if ctx.Err() != nil {
		return false
	}

	path, err := s.resolve(relPath)
	if err != nil {
		return false
	}

	_, err = os.Stat(path)
	return err == nil
}

func (s *Store) indexPath(year int) string {
	return filepath.Join(s.root, strconv.Itoa(year), indexFileName)
}

// resolve maps a corpus-relative path onto the filesystem, rejecting
// anything that would escape the root.
func (s *Store) resolve(relPath string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(relPath))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("path %q escapes corpus root", relPath)
	}
	return filepath.Join(s.root, clean), nil
}

func (s *Store) writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close %s: %w", path, err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
