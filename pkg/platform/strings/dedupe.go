// Package strings normalizes token lists read from configuration.
package strings

import "strings"

// Dedupe trims each value and drops empties and repeats, keeping the first
// occurrence order.
func Dedupe(values []string) []string {
	return dedupe(values, strings.TrimSpace)
}

// DedupeFold is Dedupe with lower-casing, for case-insensitive tokens such as
// MIME types.
func DedupeFold(values []string) []string {
	return dedupe(values, func(v string) string {
		return strings.ToLower(strings.TrimSpace(v))
	})
}

func dedupe(values []string, norm func(string) string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = norm(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
