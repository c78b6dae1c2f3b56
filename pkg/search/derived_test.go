package search_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openhura/hura.go/pkg/search"
)

const facetValuesResponse = `{
	"search": {
		"result_count": 42,
		"facets": {
			"category": {"Images": 30, "Videos": 12}
		}
	}
}`

func TestFacetValuesIssuesSeparateUnconstrainedRequest(t *testing.T) {
	f := newFixture(t, func(_ *http.Request, w http.ResponseWriter) {
		w.Write([]byte(facetValuesResponse))
	})
	s := f.newSearch(map[string]any{
		"i": map[string]any{"category": "Images", "year": "1900"},
	}, search.Config{})

	values, err := s.FacetValues(context.Background(), "category", search.FacetValuesOptions{})
	require.NoError(t, err)

	q := f.lastQuery()
	assert.Empty(t, q.Get("and[category]"), "facet's own filter removed")
	assert.Equal(t, "1900", q.Get("and[year]"), "other filters kept")
	assert.Equal(t, "category", q.Get("facets"))
	assert.Equal(t, "0", q.Get("per_page"))

	assert.Equal(t, []search.FacetValue{
		{Label: "All", Count: 42},
		{Label: "Images", Count: 30},
		{Label: "Videos", Count: 12},
	}, values)
}

func TestFacetValuesWithoutAll(t *testing.T) {
	f := newFixture(t, func(_ *http.Request, w http.ResponseWriter) {
		w.Write([]byte(facetValuesResponse))
	})
	s := f.newSearch(nil, search.Config{})

	values, err := s.FacetValues(context.Background(), "category", search.FacetValuesOptions{WithoutAll: true})
	require.NoError(t, err)
	assert.Equal(t, []search.FacetValue{
		{Label: "Images", Count: 30},
		{Label: "Videos", Count: 12},
	}, values)
}

func TestFacetValuesMemoizedPerName(t *testing.T) {
	f := newFixture(t, func(_ *http.Request, w http.ResponseWriter) {
		w.Write([]byte(facetValuesResponse))
	})
	s := f.newSearch(nil, search.Config{})
	ctx := context.Background()

	_, err := s.FacetValues(ctx, "category", search.FacetValuesOptions{})
	require.NoError(t, err)
	_, err = s.FacetValues(ctx, "category", search.FacetValuesOptions{WithoutAll: true})
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.calls.Load())

	_, err = s.FacetValues(ctx, "year", search.FacetValuesOptions{})
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.calls.Load(), "different facet issues its own request")
}

func TestCategoriesDelegates(t *testing.T) {
	f := newFixture(t, func(_ *http.Request, w http.ResponseWriter) {
		w.Write([]byte(facetValuesResponse))
	})
	s := f.newSearch(nil, search.Config{})

	values, err := s.Categories(context.Background(), search.FacetValuesOptions{})
	require.NoError(t, err)
	assert.Equal(t, "All", values[0].Label)
	assert.Equal(t, "category", f.lastQuery().Get("facets"))
}

func TestCountsMergesSessionFilters(t *testing.T) {
	f := newFixture(t, func(_ *http.Request, w http.ResponseWriter) {
		w.Write([]byte(`{"search": {"facet_queries": {"images": 100}}}`))
	})
	s := f.newSearch(map[string]any{
		"i": map[string]any{"location": "Wellington", "-category": "Videos"},
	}, search.Config{})

	counts, err := s.Counts(context.Background(), map[string]map[string]any{
		"images":   {"record_type": 0, "category": "Images"},
		"headings": {"record_type": 1},
	})
	require.NoError(t, err)

	q := f.lastQuery()
	assert.Equal(t, "Wellington", q.Get("facet_query[images][location]"))
	assert.Equal(t, "Images", q.Get("facet_query[images][category]"))
	assert.Equal(t, "0", q.Get("facet_query[images][record_type]"))
	assert.Equal(t, "Videos", q.Get("facet_query[images][-category]"))
	assert.Empty(t, q.Get("facet_query[headings][location]"), "heading query unaffected by item filters")
	assert.Equal(t, "0", q.Get("per_page"))

	assert.Equal(t, 100, counts["images"])
	assert.Equal(t, 0, counts["headings"], "missing keys zero-filled")
}

func TestCountsMemoizedPerComposedParams(t *testing.T) {
	f := newFixture(t, func(_ *http.Request, w http.ResponseWriter) {
		w.Write([]byte(`{"search": {"facet_queries": {"images": 100}}}`))
	})
	s := f.newSearch(nil, search.Config{})
	ctx := context.Background()

	queries := map[string]map[string]any{"images": {"record_type": 0}}
	_, err := s.Counts(ctx, queries)
	require.NoError(t, err)
	_, err = s.Counts(ctx, queries)
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.calls.Load())
}
