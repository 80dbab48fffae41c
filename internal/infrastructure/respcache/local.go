package respcache

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultLocalSize = 1024

type localEntry struct {
	value   []byte
	expires time.Time
}

// Local is an in-process LRU of rendered responses. Entries expire lazily:
// a deadline is stored per entry and checked on read, which keeps the LRU
// itself free of timers.
type Local struct {
	entries *lru.Cache[string, localEntry]
}

// NewLocal builds a bounded local cache. A non-positive size falls back to
// the default.
func NewLocal(size int) (*Local, error) {
	if size <= 0 {
		size = defaultLocalSize
	}
	entries, err := lru.New[string, localEntry](size)
	if err != nil {
		return nil, err
	}
	return &Local{entries: entries}, nil
}

// Get returns a cached response if it is present and not past its
// deadline. Expired entries are dropped on the way out.
func (l *Local) Get(key string) ([]byte, bool) {
	entry, ok := l.entries.Get(key)
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expires) {
		l.entries.Remove(key)
		return nil, false
	}
	return entry.value, true
}

// Set stores a response until ttl elapses. A non-positive ttl stores
// nothing.
func (l *Local) Set(key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	l.entries.Add(key, localEntry{value: value, expires: time.Now().Add(ttl)})
}

// Clear drops every entry.
func (l *Local) Clear() {
	l.entries.Purge()
}
