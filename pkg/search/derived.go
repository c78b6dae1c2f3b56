package search

import (
	"context"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/openhura/hura.go/internal/deepmerge"
	"github.com/openhura/hura.go/pkg/filters"
)

// FacetValuesOptions adjusts the derived facet value lookups.
type FacetValuesOptions struct {
	// WithoutAll suppresses the synthetic "All" total.
	WithoutAll bool
}

// Categories returns the value distribution of the category facet.
func (s *Search[T]) Categories(ctx context.Context, opts FacetValuesOptions) ([]FacetValue, error) {
	return s.FacetValues(ctx, "category", opts)
}

// FacetValues issues a separate request computing one facet's value
// distribution, unconstrained by that facet's own filter and with zero result
// rows. The raw distribution is memoized per facet name for the life of the
// instance; when shared caching is enabled the request also populates the
// shared cache first, so a flush elsewhere does not refresh an instance that
// already memoized.
func (s *Search[T]) FacetValues(ctx context.Context, name string, opts FacetValuesOptions) ([]FacetValue, error) {
	s.mu.Lock()
	memo, ok := s.facetValueMemo[name]
	s.mu.Unlock()

	if !ok {
		params := s.APIParams()
		if and, isMap := params["and"].(map[string]any); isMap {
			delete(and, name)
			if len(and) == 0 {
				delete(params, "and")
			}
		}
		params["facets"] = name
		params["per_page"] = 0

		body, err := s.cachedFetch(ctx, searchPath, params)
		if err != nil {
			return nil, err
		}

		var env envelope
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, err
		}
		parsed, err := parseFacets(env.Search.Facets)
		if err != nil {
			return nil, err
		}

		memo = NewFacet(name, nil)
		for _, f := range parsed {
			if f.Name() == name {
				memo = f
				break
			}
		}

		s.mu.Lock()
		s.facetValueMemo[name] = memo
		s.mu.Unlock()
	}

	values := memo.Values("")
	if opts.WithoutAll {
		return values, nil
	}

	sum := 0
	for _, v := range values {
		sum += v.Count
	}
	return append([]FacetValue{{Label: "All", Count: sum}}, values...), nil
}

// Counts issues one combined facet-query request for the named queries. Each
// query's ad-hoc filters merge with the session's current and/without filters
// for the scope selected by the query's own record_type. Missing result keys
// come back as 0.
func (s *Search[T]) Counts(ctx context.Context, queries map[string]map[string]any) (map[string]int, error) {
	composed := map[string]any{}
	for name, query := range queries {
		scope := filters.ScopeItems
		if queryRecordType(query) != 0 {
			scope = filters.ScopeHeadings
		}

		base := map[string]any(s.AndFilters(scope).Copy())
		for k, v := range s.WithoutFilters(scope) {
			base["-"+k] = v
		}
		composed[name] = deepmerge.Merge(base, query)
	}

	params := s.MergeExtraFilters(map[string]any{
		"facet_query": composed,
		"per_page":    0,
	})

	key := requestKey(searchPath, params)
	s.mu.Lock()
	if memo, ok := s.countsMemo[key]; ok {
		s.mu.Unlock()
		return memo, nil
	}
	s.mu.Unlock()

	body, err := s.cachedFetch(ctx, searchPath, params)
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(queries))
	for name := range queries {
		counts[name] = env.Search.FacetQueries[name]
	}

	s.mu.Lock()
	s.countsMemo[key] = counts
	s.mu.Unlock()
	return counts, nil
}

func queryRecordType(query map[string]any) int {
	switch t := query["record_type"].(type) {
	case int:
		return t
	case float64:
		return int(t)
	case string:
		if n, err := strconv.Atoi(t); err == nil {
			return n
		}
	}
	return 0
}
