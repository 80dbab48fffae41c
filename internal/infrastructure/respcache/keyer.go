package respcache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Key builds a stable cache key for one operation and its normalized
// parameters. Parameters hash in sorted order, so callers may pass them in
// any order and still share entries.
func Key(prefix, op string, params map[string]string) string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(op)
	for _, name := range names {
		b.WriteByte('|')
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(params[name])
	}

	sum := sha256.Sum256([]byte(b.String()))
	return fmt.Sprintf("%s:%s:%s", prefix, op, hex.EncodeToString(sum[:])[:16])
}
