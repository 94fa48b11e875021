package gameevents

import "strings"

var newlineStripper = strings.NewReplacer(
	"\r\n", "", "\n", "", "\r", "",
	`\r\n`, "", `\n`, "", `\r`, "",
)

// SanitizePayload strips embedded newline sequences from every string in
// the payload, recursing through nested objects and arrays. Play-by-play
// text fields end up in logs and rendered transcripts; a newline smuggled
// into a player name must not be able to forge extra lines there. Both
// real newline bytes and the literal two-character escapes are removed.
//
// The input is not mutated; a sanitized copy is returned.
func SanitizePayload(v any) any {
	switch val := v.(type) {
	case string:
		return newlineStripper.Replace(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[newlineStripper.Replace(k)] = SanitizePayload(elem)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = SanitizePayload(elem)
		}
		return out
	default:
		return v
	}
}
