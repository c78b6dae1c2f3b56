// Package filters translates between the nested URL filter structure shared
// with the API (buckets i/il/h/hl plus global search attributes) and the
// canonical query the search layer executes. The bucket names and parameter
// keys are a wire contract and must not change.
package filters

import (
	"fmt"
	"strconv"
	"strings"
)

// Set maps a filter name to a scalar or list of scalars.
type Set map[string]any

// Copy returns a shallow copy with list values duplicated, so callers can
// mutate the result without touching the source.
func (s Set) Copy() Set {
	out := make(Set, len(s))
	for k, v := range s {
		if list, ok := v.([]any); ok {
			out[k] = append([]any(nil), list...)
			continue
		}
		out[k] = v
	}
	return out
}

// Values returns the filter's value as a list, treating a scalar as a
// singleton. The second return is false when the filter is absent.
func (s Set) Values(name string) ([]any, bool) {
	v, ok := s[name]
	if !ok {
		return nil, false
	}
	return toList(v), true
}

// Scope partitions filters between item and heading records.
type Scope int

const (
	ScopeItems Scope = iota
	ScopeHeadings
)

// Buckets returns the unlocked and locked bucket names for the scope.
func (s Scope) Buckets() (unlocked, locked string) {
	if s == ScopeHeadings {
		return "h", "hl"
	}
	return "i", "il"
}

func (s Scope) String() string {
	if s == ScopeHeadings {
		return "headings"
	}
	return "items"
}

// RecordTypeAll marks a query spanning both scopes.
const RecordTypeAll = -1

// List flattens a filter value into a slice, treating scalars as singletons.
func List(v any) []any { return toList(v) }

// Stringify renders a filter value for comparison and wire encoding.
func Stringify(v any) string { return toString(v) }

func toList(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	default:
		return []any{v}
	}
}

// bucketSet reads a named bucket, degrading to an empty Set when the value is
// missing or not a mapping.
func bucketSet(input map[string]any, name string) Set {
	raw, ok := input[name]
	if !ok {
		return Set{}
	}
	switch t := raw.(type) {
	case map[string]any:
		return Set(t).Copy()
	case Set:
		return t.Copy()
	default:
		return Set{}
	}
}

func toInt(v any, fallback int) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return n
		}
	}
	return fallback
}

func toString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// toStrings accepts a list, a single scalar, or a comma-separated string.
func toStrings(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			out = append(out, toString(item))
		}
		return out
	case string:
		if strings.TrimSpace(t) == "" {
			return nil
		}
		parts := strings.Split(t, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	default:
		return []string{toString(t)}
	}
}

func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	case Set:
		return len(t) == 0
	}
	return false
}
