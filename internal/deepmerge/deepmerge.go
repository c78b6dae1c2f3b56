// Package deepmerge implements the recursive structural merge used to combine
// filter trees. Conflicting non-map values accumulate into lists rather than
// overwrite, so a filter supplied by two sources keeps both values.
package deepmerge

import "reflect"

// Merge returns a new map combining left and right. Keys present on one side
// only are copied through. Equal values pass unchanged. When both sides hold
// maps the merge recurses; any other conflict concatenates both values as a
// flat list, treating scalars as singletons.
func Merge(left, right map[string]any) map[string]any {
	out := make(map[string]any, len(left)+len(right))
	for k, v := range left {
		out[k] = v
	}
	return MergeInto(out, right)
}

// MergeInto merges src into dst in place and returns dst.
func MergeInto(dst, src map[string]any) map[string]any {
	for k, sv := range src {
		dv, ok := dst[k]
		if !ok {
			dst[k] = sv
			continue
		}
		if reflect.DeepEqual(dv, sv) {
			continue
		}
		dm, dOK := asMap(dv)
		sm, sOK := asMap(sv)
		if dOK && sOK {
			dst[k] = Merge(dm, sm)
			continue
		}
		dst[k] = append(asList(dv), asList(sv)...)
	}
	return dst
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// asList flattens v into a []any, converting scalars to singletons. A fresh
// slice is always returned so callers never alias their inputs.
func asList(v any) []any {
	switch t := v.(type) {
	case []any:
		return append([]any(nil), t...)
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
