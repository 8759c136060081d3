// Package strings holds small string slice helpers shared by request DTOs.
package strings

import "strings"

// DedupeAndTrim trims every value, drops blanks and keeps the first occurrence of each.
// Order is preserved and an empty input is returned as is.
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
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
