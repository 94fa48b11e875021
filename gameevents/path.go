package gameevents

import (
	"strconv"
	"strings"
)

// ResolvePath resolves a dotted accessor string against an event payload.
// Bracket index notation is accepted and normalized to dot form, so
// "a.b[1]" and "a.b.1" address the same value.
//
// The second return value reports whether the path resolved to a present,
// non-null value. A missing key, an explicit JSON null, an out-of-range
// index and a non-container intermediate all resolve to (nil, false);
// callers never see a panic from traversal.
func ResolvePath(payload map[string]any, path string) (any, bool) {
	segments := splitPath(path)
	if len(segments) == 0 {
		return nil, false
	}

	var current any = payload
	for _, seg := range segments {
		switch c := current.(type) {
		case map[string]any:
			v, ok := c[seg]
			if !ok {
				return nil, false
			}
			current = v
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(c) {
				return nil, false
			}
			current = c[idx]
		default:
			// Leaf reached with segments left over.
			return nil, false
		}
	}

	if current == nil {
		// Explicit null is treated the same as an absent field.
		return nil, false
	}
	return current, true
}

// splitPath normalizes "a.b[1].c" into ["a", "b", "1", "c"].
func splitPath(path string) []string {
	normalized := strings.NewReplacer("[", ".", "]", "").Replace(path)
	parts := strings.Split(normalized, ".")
	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			segments = append(segments, p)
		}
	}
	return segments
}
