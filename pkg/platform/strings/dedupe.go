// Package strings provides small list helpers used when parsing configuration.
package strings

import (
	"strings"
)

// DedupeAndTrim trims each value, drops empties and keeps the first occurrence
// of each remaining value in order.
func DedupeAndTrim(values []string) []string {
	return dedupe(values, false)
}

// SplitList splits a comma separated list and dedupes it. When fold is true the
// entries are lower-cased before comparison.
func SplitList(s string, fold bool) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return dedupe(strings.Split(s, ","), fold)
}

func dedupe(values []string, fold bool) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if fold {
			v = strings.ToLower(v)
		}
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}
