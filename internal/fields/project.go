package fields

import (
	"strconv"
	"strings"

	"IPOWatcher/internal/domain"
)

// Parse splits a comma separated fields parameter into clean dotted paths.
func Parse(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	paths := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			paths = append(paths, part)
		}
	}
	return paths
}

// Project builds a reduced document holding only the requested dotted
// paths. Numeric path segments index into arrays on both the lookup and
// the rebuild side, so "items.0.name" projects to {"items":[{"name":...}]}.
// A path that resolves to nothing still appears in the output as a null
// key, except when reaching it would have to grow an array; then the path
// stops at the array as it is.
func Project(doc domain.Document, paths []string) map[string]any {
	out := map[string]any{}

	for _, path := range paths {
		segs := strings.Split(path, ".")
		value, ok := resolve(map[string]any(doc), segs)

		if len(segs) == 1 {
			if ok {
				out[segs[0]] = value
			} else {
				out[segs[0]] = nil
			}
			continue
		}

		// The response root is always an object, so the first segment is
		// a key even when it looks numeric.
		out[segs[0]] = place(childFor(out[segs[0]], segs[1]), segs[1:], value, ok)
	}

	return out
}

// resolve walks the document along the path. Maps are stepped by key,
// arrays by numeric index.
func resolve(node any, segs []string) (any, bool) {
	current := node
	for _, seg := range segs {
		switch n := current.(type) {
		case map[string]any:
			child, ok := n[seg]
			if !ok {
				return nil, false
			}
			current = child
		case []any:
			idx, ok := index(seg)
			if !ok || idx >= len(n) {
				return nil, false
			}
			current = n[idx]
		default:
			return nil, false
		}
	}
	return current, true
}

// place writes value at segs inside node and returns the updated node.
// Arrays grow with empty objects when a present value needs a slot beyond
// their length; a missing value never grows them.
func place(node any, segs []string, value any, hasValue bool) any {
	seg := segs[0]

	if idx, ok := index(seg); ok {
		arr, _ := node.([]any)
		if idx >= len(arr) {
			if !hasValue {
				return arr
			}
			for len(arr) <= idx {
				arr = append(arr, map[string]any{})
			}
		}
		if len(segs) == 1 {
			if hasValue {
				arr[idx] = value
			} else {
				arr[idx] = nil
			}
			return arr
		}
		arr[idx] = place(childFor(arr[idx], segs[1]), segs[1:], value, hasValue)
		return arr
	}

	m, ok := node.(map[string]any)
	if !ok {
		m = map[string]any{}
	}
	if len(segs) == 1 {
		if hasValue {
			m[seg] = value
		} else {
			m[seg] = nil
		}
		return m
	}
	m[seg] = place(childFor(m[seg], segs[1]), segs[1:], value, hasValue)
	return m
}

// childFor coerces an existing child to the container the next segment
// needs: a slice before an index, an object before a key.
func childFor(existing any, nextSeg string) any {
	if _, ok := index(nextSeg); ok {
		if arr, ok := existing.([]any); ok {
			return arr
		}
		return []any{}
	}
	if m, ok := existing.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func index(seg string) (int, bool) {
	if seg == "" {
		return 0, false
	}
	for _, r := range seg {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(seg)
	if err != nil {
		return 0, false
	}
	return n, true
}
