// Package enums holds the string enums shared by models, services and the
// API. Each value matches a Postgres enum label.
package enums

import (
	"fmt"
	"slices"
	"strings"
)

func known[T ~string](v T, all []T) bool {
	return slices.Contains(all, v)
}

// parse matches raw case-insensitively after trimming and returns the
// canonical label.
func parse[T ~string](kind, raw string, all []T) (T, error) {
	raw = strings.TrimSpace(raw)
	for _, v := range all {
		if strings.EqualFold(string(v), raw) {
			return v, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", kind, raw)
}
