package filters

import "github.com/openhura/hura.go/internal/deepmerge"

// EncodeOptions adjusts how a query is rebuilt into shareable link options.
//
// Except entries are either a plain filter name, which removes the filter
// from the unlocked buckets, or a map of filter name to the value(s) to strip
// from a multi-valued filter. Global attribute names ("text", "sort",
// "direction", "page") may also appear as plain names.
//
// Plus merges extra filter values into the unlocked bucket of the given
// scope; repeated filters accumulate into lists.
type EncodeOptions struct {
	Except []any
	Plus   map[Scope]Set
}

// Encode rebuilds the nested URL structure for the current query. Locked
// buckets pass through untouched regardless of Except; buckets left empty are
// omitted.
func (p *Params) Encode(opts EncodeOptions) map[string]any {
	out := map[string]any{}

	for _, scope := range []Scope{ScopeItems, ScopeHeadings} {
		unlockedName, lockedName := scope.Buckets()

		unlocked := applyExcept(bucketSet(p.raw, unlockedName), opts.Except)
		if plus, ok := opts.Plus[scope]; ok {
			unlocked = Set(deepmerge.Merge(map[string]any(unlocked), map[string]any(plus.Copy())))
		}
		if len(unlocked) > 0 {
			out[unlockedName] = map[string]any(unlocked)
		}

		locked := bucketSet(p.raw, lockedName)
		if len(locked) > 0 {
			out[lockedName] = map[string]any(locked)
		}
	}

	excepted := exceptedNames(opts.Except)

	q := p.Canonical()
	if q.Text != "" && !excepted["text"] {
		out["text"] = q.Text
	}
	if q.Sort != "" && !excepted["sort"] {
		out["sort"] = q.Sort
		if !excepted["direction"] {
			out["direction"] = q.Direction
		}
	}
	if q.Page != 1 && !excepted["page"] {
		out["page"] = q.Page
	}
	if q.RecordType != 0 {
		out["record_type"] = q.RecordTypeParam()
	}

	return out
}

func exceptedNames(except []any) map[string]bool {
	names := map[string]bool{}
	for _, entry := range except {
		if name, ok := entry.(string); ok {
			names[name] = true
		}
	}
	return names
}

func applyExcept(set Set, except []any) Set {
	for _, entry := range except {
		switch t := entry.(type) {
		case string:
			delete(set, t)
		case map[string]any:
			for name, values := range t {
				removeValues(set, name, values)
			}
		}
	}
	return set
}

// removeValues strips the listed value(s) from a filter. A single remaining
// value collapses back to a scalar; none deletes the filter.
func removeValues(set Set, name string, values any) {
	current, ok := set.Values(name)
	if !ok {
		return
	}

	strip := map[string]bool{}
	for _, v := range toList(values) {
		strip[toString(v)] = true
	}

	remaining := make([]any, 0, len(current))
	for _, v := range current {
		if !strip[toString(v)] {
			remaining = append(remaining, v)
		}
	}

	switch len(remaining) {
	case 0:
		delete(set, name)
	case 1:
		set[name] = remaining[0]
	default:
		set[name] = remaining
	}
}
