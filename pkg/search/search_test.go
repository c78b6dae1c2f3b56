package search_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openhura/hura.go/pkg/cache"
	"github.com/openhura/hura.go/pkg/constants"
	"github.com/openhura/hura.go/pkg/filters"
	"github.com/openhura/hura.go/pkg/search"
	"github.com/openhura/hura.go/pkg/transport"
)

const searchResponse = `{
	"search": {
		"result_count": 42,
		"results": [
			{"id": 1, "title": "Kea"},
			{"id": 2, "title": "Tui"}
		],
		"facets": {
			"category": {"Images": 30, "Videos": 12},
			"year": {"1900": 7}
		},
		"facet_pivots": {
			"category": {"Images": 30}
		}
	}
}`

type record struct {
	attrs map[string]any
}

func newRecord(attrs map[string]any) record { return record{attrs: attrs} }

type fixture struct {
	server *httptest.Server
	calls  *atomic.Int32
	lastQ  *atomic.Value
}

func newFixture(t *testing.T, respond func(r *http.Request, w http.ResponseWriter)) *fixture {
	t.Helper()
	f := &fixture{calls: &atomic.Int32{}, lastQ: &atomic.Value{}}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		f.lastQ.Store(r.URL.Query())
		respond(r, w)
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fixture) lastQuery() url.Values {
	q, _ := f.lastQ.Load().(url.Values)
	return q
}

func (f *fixture) newSearch(input map[string]any, cfg search.Config) *search.Search[record] {
	deps := search.Deps{
		Transport: transport.New(transport.Config{APIURL: f.server.URL, Timeout: 5 * time.Second}, nil),
	}
	return search.New(input, cfg, deps, newRecord)
}

func respondOK(_ *http.Request, w http.ResponseWriter) {
	w.Write([]byte(searchResponse))
}

func TestResultsMapsRecordsAndPaginates(t *testing.T) {
	f := newFixture(t, respondOK)
	s := f.newSearch(map[string]any{"page": 2, "per_page": 2}, search.Config{})

	page, err := s.Results(context.Background())
	require.NoError(t, err)

	require.Len(t, page.Items, 2)
	assert.Equal(t, "Kea", page.Items[0].attrs["title"])
	assert.Equal(t, 2, page.CurrentPage())
	assert.Equal(t, 2, page.PerPage())
	assert.Equal(t, 42, page.TotalCount())
	assert.Equal(t, 21, page.TotalPages())
}

func TestExecutesAtMostOnce(t *testing.T) {
	f := newFixture(t, respondOK)
	s := f.newSearch(nil, search.Config{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.Results(ctx)
		require.NoError(t, err)
	}
	_, err := s.Total(ctx)
	require.NoError(t, err)
	_, err = s.Facets(ctx)
	require.NoError(t, err)
	_, err = s.FacetPivots(ctx)
	require.NoError(t, err)

	assert.Equal(t, int32(1), f.calls.Load())
}

func TestPaginationLimitCapsTotal(t *testing.T) {
	f := newFixture(t, respondOK)
	s := f.newSearch(nil, search.Config{PaginationLimit: 10})

	page, err := s.Results(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, page.TotalCount())

	// Total reports the uncapped count.
	total, err := s.Total(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, total)
}

func TestResultsEmptyWhenMissingFromResponse(t *testing.T) {
	f := newFixture(t, func(_ *http.Request, w http.ResponseWriter) {
		w.Write([]byte(`{"search": {"result_count": 0}}`))
	})
	s := f.newSearch(nil, search.Config{})

	page, err := s.Results(context.Background())
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	total, err := s.Total(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func TestGenericFailureDegradesToEmpty(t *testing.T) {
	f := newFixture(t, func(_ *http.Request, w http.ResponseWriter) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	s := f.newSearch(nil, search.Config{})

	page, err := s.Results(context.Background())
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	// The failure is frozen: no re-execution on later calls.
	_, err = s.Total(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestTimeoutSurfacesAndFreezes(t *testing.T) {
	f := newFixture(t, func(_ *http.Request, w http.ResponseWriter) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(searchResponse))
	})
	deps := search.Deps{
		Transport: transport.New(transport.Config{APIURL: f.server.URL, Timeout: 20 * time.Millisecond}, nil),
	}
	s := search.New(nil, search.Config{}, deps, newRecord)

	_, err := s.Results(context.Background())
	assert.ErrorIs(t, err, constants.ErrRequestTimeout)

	_, err = s.Total(context.Background())
	assert.ErrorIs(t, err, constants.ErrRequestTimeout)
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestCacheable(t *testing.T) {
	cases := []struct {
		input map[string]any
		want  bool
	}{
		{map[string]any{"page": 1}, true},
		{map[string]any{}, true},
		{map[string]any{"page": 2}, false},
		{map[string]any{"text": "dogs"}, false},
	}
	f := newFixture(t, respondOK)
	for _, tc := range cases {
		s := f.newSearch(tc.input, search.Config{})
		assert.Equal(t, tc.want, s.Cacheable(), "input %v", tc.input)
	}
}

func TestSharedCacheServesSecondInstance(t *testing.T) {
	f := newFixture(t, respondOK)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	shared := cache.NewRedisWithClient(client)

	cfg := search.Config{CacheEnabled: true}
	newCached := func() *search.Search[record] {
		deps := search.Deps{
			Transport: transport.New(transport.Config{APIURL: f.server.URL, Timeout: 5 * time.Second}, nil),
			Cache:     shared,
		}
		return search.New(map[string]any{"i": map[string]any{"category": "Images"}}, cfg, deps, newRecord)
	}

	_, err := newCached().Results(context.Background())
	require.NoError(t, err)
	_, err = newCached().Results(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(1), f.calls.Load())
}

func TestNonCacheableQueryBypassesCache(t *testing.T) {
	f := newFixture(t, respondOK)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	shared := cache.NewRedisWithClient(client)

	cfg := search.Config{CacheEnabled: true}
	for i := 0; i < 2; i++ {
		deps := search.Deps{
			Transport: transport.New(transport.Config{APIURL: f.server.URL, Timeout: 5 * time.Second}, nil),
			Cache:     shared,
		}
		s := search.New(map[string]any{"text": "dogs"}, cfg, deps, newRecord)
		_, err := s.Results(context.Background())
		require.NoError(t, err)
	}

	assert.Equal(t, int32(2), f.calls.Load())
}

func TestFacetsOrderedAndMemoized(t *testing.T) {
	f := newFixture(t, respondOK)
	s := f.newSearch(nil, search.Config{FacetOrder: []string{"year", "category"}})

	facets, err := s.Facets(context.Background())
	require.NoError(t, err)
	require.Len(t, facets, 2)
	assert.Equal(t, "year", facets[0].Name())
	assert.Equal(t, "category", facets[1].Name())

	again, err := s.Facets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, facets, again)
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestFacetLookup(t *testing.T) {
	f := newFixture(t, respondOK)
	s := f.newSearch(nil, search.Config{})
	ctx := context.Background()

	facet, err := s.Facet(ctx, "category")
	require.NoError(t, err)
	require.NotNil(t, facet)
	assert.Equal(t, "category", facet.Name())

	missing, err := s.Facet(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	blank, err := s.Facet(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, blank)
}

func TestFacetPivots(t *testing.T) {
	f := newFixture(t, respondOK)
	s := f.newSearch(nil, search.Config{})

	pivots, err := s.FacetPivots(context.Background())
	require.NoError(t, err)
	require.Len(t, pivots, 1)
	assert.Equal(t, "category", pivots[0].Name())
	assert.Equal(t, []search.FacetValue{{Label: "Images", Count: 30}}, pivots[0].Values(""))
}

func TestExtraFiltersMergedIntoRequest(t *testing.T) {
	f := newFixture(t, respondOK)
	s := f.newSearch(map[string]any{"i": map[string]any{"category": "Images"}}, search.Config{})
	s.SetAnd(map[string]any{"location": "Wellington"})
	s.SetWithout(map[string]any{"category": "Videos"})

	_, err := s.Results(context.Background())
	require.NoError(t, err)

	q := f.lastQuery()
	assert.Equal(t, "Images", q.Get("and[category]"))
	assert.Equal(t, "Wellington", q.Get("and[location]"))
	assert.Equal(t, "Videos", q.Get("without[category]"))
}

func TestScopeFiltersIndependentlyMemoized(t *testing.T) {
	f := newFixture(t, respondOK)
	s := f.newSearch(map[string]any{
		"record_type": 1,
		"i":           map[string]any{"category": "Images", "-year": "1900"},
		"h":           map[string]any{"heading_type": "Place"},
	}, search.Config{})

	items := s.AndFilters(filters.ScopeItems)
	headings := s.AndFilters(filters.ScopeHeadings)

	assert.Equal(t, "Images", items["category"])
	assert.NotContains(t, items, "heading_type")
	assert.Equal(t, "Place", headings["heading_type"])
	assert.NotContains(t, headings, "category")

	assert.Equal(t, "1900", s.WithoutFilters(filters.ScopeItems)["year"])
	assert.Empty(t, s.WithoutFilters(filters.ScopeHeadings))
}

func TestHasFilterAndValue(t *testing.T) {
	f := newFixture(t, respondOK)
	s := f.newSearch(map[string]any{
		"i": map[string]any{"location": []any{"Wellington", "Auckland"}},
	}, search.Config{Attributes: []string{"location"}})

	assert.True(t, s.HasFilterAndValue("location", "Wellington"))
	assert.True(t, s.HasFilterAndValue("location", "Auckland"))
	assert.False(t, s.HasFilterAndValue("location", "Dunedin"))
	assert.False(t, s.HasFilterAndValue("category", "Images"), "unconfigured attribute")
}

func TestAttributeReadsUnlockedScopeBucket(t *testing.T) {
	f := newFixture(t, respondOK)
	s := f.newSearch(map[string]any{
		"i": map[string]any{"location": "Wellington"},
	}, search.Config{Attributes: []string{"location"}})

	assert.Equal(t, "Wellington", s.Attribute("location"))
	assert.Nil(t, s.Attribute("unconfigured"))
}
