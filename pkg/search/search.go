// Package search orchestrates a single logical search against the API: it
// composes the final parameter set from decoded URL filters and programmatic
// overrides, executes the request lazily exactly once, and post-processes
// results, counts and facets.
package search

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"sync"

	"github.com/goccy/go-json"

	"github.com/openhura/hura.go/internal/deepmerge"
	"github.com/openhura/hura.go/pkg/cache"
	"github.com/openhura/hura.go/pkg/constants"
	"github.com/openhura/hura.go/pkg/filters"
	"github.com/openhura/hura.go/pkg/logger"
	"github.com/openhura/hura.go/pkg/pagination"
	"github.com/openhura/hura.go/pkg/transport"
)

const searchPath = "/records"

// Config carries the search-layer settings.
type Config struct {
	Filters filters.Config
	// FacetOrder fixes the display order of facet groups.
	FacetOrder []string
	// Attributes names the filters exposed through Attribute and
	// HasFilterAndValue.
	Attributes []string
	// PaginationLimit caps the reported total. Zero means uncapped.
	PaginationLimit int
	// CacheEnabled routes cacheable queries through the shared cache.
	CacheEnabled bool
}

// Deps are the collaborators a Search needs.
type Deps struct {
	Transport *transport.Client
	Cache     cache.Cache
	Logger    logger.Logger
}

type envelope struct {
	Search struct {
		ResultCount  *int             `json:"result_count"`
		Results      []map[string]any `json:"results"`
		Facets       json.RawMessage  `json:"facets"`
		FacetPivots  json.RawMessage  `json:"facet_pivots"`
		FacetQueries map[string]int   `json:"facet_queries"`
	} `json:"search"`
}

// Search holds the state of one logical search. It never issues a request at
// construction; the first Results/Total/Facets call executes exactly once and
// the response is held for the life of the instance, including after a
// failure.
type Search[T any] struct {
	params  *filters.Params
	cfg     Config
	deps    Deps
	factory func(map[string]any) T

	extraAnd     map[string]any
	extraOr      map[string]any
	extraWithout map[string]any

	execOnce sync.Once
	env      envelope
	execErr  error

	mu             sync.Mutex
	results        *pagination.Page[T]
	facets         []*Facet
	scopeAnd       map[filters.Scope]filters.Set
	scopeWithout   map[filters.Scope]filters.Set
	facetValueMemo map[string]*Facet
	countsMemo     map[string]map[string]int
}

// New builds a Search from the raw nested filter options. The factory
// converts one raw result item into the caller's record type.
func New[T any](input map[string]any, cfg Config, deps Deps, factory func(map[string]any) T) *Search[T] {
	if deps.Cache == nil {
		deps.Cache = cache.Noop{}
	}
	if deps.Logger == nil {
		deps.Logger = logger.Noop{}
	}
	return &Search[T]{
		params:         filters.NewParams(input, cfg.Filters),
		cfg:            cfg,
		deps:           deps,
		factory:        factory,
		scopeAnd:       map[filters.Scope]filters.Set{},
		scopeWithout:   map[filters.Scope]filters.Set{},
		facetValueMemo: map[string]*Facet{},
		countsMemo:     map[string]map[string]int{},
	}
}

// Canonical exposes the decoded query.
func (s *Search[T]) Canonical() *filters.CanonicalQuery { return s.params.Canonical() }

// Encode rebuilds the shareable URL options for the current query.
func (s *Search[T]) Encode(opts filters.EncodeOptions) map[string]any {
	return s.params.Encode(opts)
}

// SetAnd, SetOr and SetWithout install the programmatic filter overrides
// merged into every request this search issues.
func (s *Search[T]) SetAnd(f map[string]any)     { s.extraAnd = f }
func (s *Search[T]) SetOr(f map[string]any)      { s.extraOr = f }
func (s *Search[T]) SetWithout(f map[string]any) { s.extraWithout = f }

// MergeExtraFilters overlays the and/or/without overrides onto params.
func (s *Search[T]) MergeExtraFilters(params map[string]any) map[string]any {
	if len(s.extraAnd) > 0 {
		params = deepmerge.Merge(params, map[string]any{"and": s.extraAnd})
	}
	if len(s.extraOr) > 0 {
		params = deepmerge.Merge(params, map[string]any{"or": s.extraOr})
	}
	if len(s.extraWithout) > 0 {
		params = deepmerge.Merge(params, map[string]any{"without": s.extraWithout})
	}
	return params
}

// APIParams is the full parameter set for the main request: the canonical
// projection with extra filters overlaid.
func (s *Search[T]) APIParams() map[string]any {
	return s.MergeExtraFilters(s.params.Canonical().APIParams())
}

// Cacheable reports whether this query may use the shared response cache:
// no free text term and first page only.
func (s *Search[T]) Cacheable() bool {
	q := s.params.Canonical()
	return q.Text == "" && q.Page <= 1
}

// AndFilters returns the positive structural filters for a scope, memoized
// independently per scope.
func (s *Search[T]) AndFilters(scope filters.Scope) filters.Set {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.scopeAnd[scope]; ok {
		return cached
	}
	and, without, _, _ := s.params.Partition(s.params.ScopeFilters(scope))
	s.scopeAnd[scope] = and
	s.scopeWithout[scope] = without
	return and
}

// WithoutFilters returns the negative structural filters for a scope.
func (s *Search[T]) WithoutFilters(scope filters.Scope) filters.Set {
	s.mu.Lock()
	if cached, ok := s.scopeWithout[scope]; ok {
		s.mu.Unlock()
		return cached
	}
	s.mu.Unlock()
	s.AndFilters(scope)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scopeWithout[scope]
}

// Attribute returns the current value of a configured search attribute from
// the unlocked bucket of the active scope, or nil.
func (s *Search[T]) Attribute(name string) any {
	if !configured(s.cfg.Attributes, name) {
		return nil
	}
	unlocked, _ := s.params.Canonical().Scope().Buckets()
	raw, ok := s.params.Raw()[unlocked].(map[string]any)
	if !ok {
		return nil
	}
	return raw[name]
}

// HasFilterAndValue reports whether the named configured attribute currently
// holds value, scanning list values element-wise.
func (s *Search[T]) HasFilterAndValue(name string, value any) bool {
	current := s.Attribute(name)
	if current == nil {
		return false
	}
	want := filters.Stringify(value)
	for _, v := range filters.List(current) {
		if filters.Stringify(v) == want {
			return true
		}
	}
	return false
}

// execute issues the main request at most once and freezes the outcome. A
// generic failure degrades to an empty response; unavailable and timeout
// conditions are kept and surfaced on every accessor call.
func (s *Search[T]) execute(ctx context.Context) error {
	s.execOnce.Do(func() {
		params := s.APIParams()

		body, err := s.fetch(ctx, searchPath, params)
		if err != nil {
			if errors.Is(err, constants.ErrNotAvailable) || errors.Is(err, constants.ErrRequestTimeout) {
				s.execErr = err
				return
			}
			s.deps.Logger.Warn("search degraded to empty response", "error", err.Error())
			return
		}

		if err := json.Unmarshal(body, &s.env); err != nil {
			s.deps.Logger.Warn("search response undecodable", "error", err.Error())
		}
	})
	return s.execErr
}

// fetch routes a request through the shared cache when allowed.
func (s *Search[T]) fetch(ctx context.Context, path string, params map[string]any) ([]byte, error) {
	call := func(ctx context.Context) ([]byte, error) {
		return s.deps.Transport.Get(ctx, path, params, nil)
	}
	if !s.cfg.CacheEnabled || !s.Cacheable() {
		return call(ctx)
	}
	return s.deps.Cache.Fetch(ctx, requestKey(path, params), constants.SearchCacheTTL, call)
}

// cachedFetch is fetch without the cacheability rule, for the derived facet
// and count lookups that are always safe to share.
func (s *Search[T]) cachedFetch(ctx context.Context, path string, params map[string]any) ([]byte, error) {
	call := func(ctx context.Context) ([]byte, error) {
		return s.deps.Transport.Get(ctx, path, params, nil)
	}
	if !s.cfg.CacheEnabled {
		return call(ctx)
	}
	return s.deps.Cache.Fetch(ctx, requestKey(path, params), constants.ListCacheTTL, call)
}

// Results executes the search if needed and returns the mapped result page.
func (s *Search[T]) Results(ctx context.Context) (*pagination.Page[T], error) {
	if err := s.execute(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.results != nil {
		return s.results, nil
	}

	q := s.params.Canonical()
	items := make([]T, 0, len(s.env.Search.Results))
	for _, attrs := range s.env.Search.Results {
		items = append(items, s.factory(attrs))
	}

	total := 0
	if s.env.Search.ResultCount != nil {
		total = *s.env.Search.ResultCount
	}
	if s.cfg.PaginationLimit > 0 && total > s.cfg.PaginationLimit {
		total = s.cfg.PaginationLimit
	}

	s.results = pagination.NewPage(items, q.Page, q.PerPage, total)
	return s.results, nil
}

// Total executes the search if needed and returns the result count.
func (s *Search[T]) Total(ctx context.Context) (int, error) {
	if err := s.execute(ctx); err != nil {
		return 0, err
	}
	if s.env.Search.ResultCount == nil {
		return 0, nil
	}
	return *s.env.Search.ResultCount, nil
}

// Facets executes the search if needed and returns the facet groups ordered
// per the configured facet order. Memoized.
func (s *Search[T]) Facets(ctx context.Context) ([]*Facet, error) {
	if err := s.execute(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.facets != nil {
		return s.facets, nil
	}

	parsed, err := parseFacets(s.env.Search.Facets)
	if err != nil {
		s.deps.Logger.Warn("facets undecodable", "error", err.Error())
		parsed = nil
	}
	s.facets = orderFacets(parsed, s.cfg.FacetOrder)
	return s.facets, nil
}

// FacetPivots re-derives the pivot groups from the held response on every
// call. Unlike Facets it is deliberately not memoized.
func (s *Search[T]) FacetPivots(ctx context.Context) ([]*Facet, error) {
	if err := s.execute(ctx); err != nil {
		return nil, err
	}
	parsed, err := parseFacets(s.env.Search.FacetPivots)
	if err != nil {
		return nil, err
	}
	return orderFacets(parsed, s.cfg.FacetOrder), nil
}

// Facet returns the named facet group, or nil when absent or name is empty.
func (s *Search[T]) Facet(ctx context.Context, name string) (*Facet, error) {
	if name == "" {
		return nil, nil
	}
	facets, err := s.Facets(ctx)
	if err != nil {
		return nil, err
	}
	for _, f := range facets {
		if f.Name() == name {
			return f, nil
		}
	}
	return nil, nil
}

func configured(attributes []string, name string) bool {
	for _, a := range attributes {
		if a == name {
			return true
		}
	}
	return false
}

// requestKey hashes the path and deterministic parameter encoding into the
// shared cache key.
func requestKey(path string, params map[string]any) string {
	sum := sha1.Sum([]byte(path + "?" + transport.EncodeQuery(params)))
	return hex.EncodeToString(sum[:])
}
