// Package strings parses list-valued settings.
package strings

import (
	"strings"
)

// SplitList splits a comma separated setting such as KAFKA_BROKERS. Elements
// are trimmed; empty and repeated elements are dropped, first one wins.
func SplitList(s string) []string {
	return Dedupe(strings.Split(s, ","), strings.TrimSpace)
}

// Dedupe normalizes each value with norm, drops empty results and keeps the
// first occurrence of each. A nil norm keeps values as they are.
func Dedupe[T ~string](values []T, norm func(string) string) []T {
	out := make([]T, 0, len(values))
	seen := make(map[T]struct{}, len(values))
	for _, v := range values {
		if norm != nil {
			v = T(norm(string(v)))
		}
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
