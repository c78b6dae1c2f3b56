package hura

import (
	"os"

	"github.com/openhura/hura.go/pkg/cache"
	"github.com/openhura/hura.go/pkg/filters"
	"github.com/openhura/hura.go/pkg/logger"
	"github.com/openhura/hura.go/pkg/models"
	"github.com/openhura/hura.go/pkg/search"
	"github.com/openhura/hura.go/pkg/transport"
)

// Client is the top-level handle on the Hura API. It is safe for concurrent
// use; every entity namespace and search shares its transport and cache.
type Client struct {
	cfg       Config
	transport *transport.Client
	cache     cache.Cache
	log       logger.Logger
}

// New builds a Client from cfg. The cache is connected eagerly when caching
// is enabled so that a bad cache URL surfaces here rather than mid-search.
func New(cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	log := logger.New(os.Stderr)
	tr := transport.New(transport.Config{
		APIURL:  cfg.APIURL,
		APIKey:  cfg.APIKey,
		Timeout: cfg.Timeout.Duration,
		Debug:   cfg.Debug,
	}, log)

	var store cache.Cache = cache.Noop{}
	if cfg.Caching && cfg.CacheURL != "" {
		redisCache, err := cache.NewRedis(cfg.CacheURL)
		if err != nil {
			return nil, err
		}
		store = redisCache
	}

	return &Client{cfg: cfg, transport: tr, cache: store, log: log}, nil
}

// Transport exposes the underlying HTTP client, mainly for tests and
// advanced callers.
func (c *Client) Transport() *transport.Client { return c.transport }

func (c *Client) deps() models.Deps {
	return models.Deps{Transport: c.transport, Cache: c.cache, Logger: c.log}
}

func (c *Client) Records() *models.Records   { return models.NewRecords(c.deps()) }
func (c *Client) Concepts() *models.Concepts { return models.NewConcepts(c.deps()) }
func (c *Client) Users() *models.Users       { return models.NewUsers(c.deps()) }
func (c *Client) Sets() *models.Sets         { return models.NewSets(c.deps()) }
func (c *Client) Stories() *models.Stories   { return models.NewStories(c.deps()) }

// NewSearch builds a lazy search over records from nested filter options,
// typically the decoded query string of an incoming request.
func (c *Client) NewSearch(input map[string]any) *search.Search[*models.Record] {
	return NewSearch(c, input, models.NewRecord)
}

// NewSearch builds a lazy search producing the caller's own record type.
// Methods cannot carry type parameters, hence the package-level shape.
func NewSearch[T any](c *Client, input map[string]any, factory func(map[string]any) T) *search.Search[T] {
	deps := search.Deps{Transport: c.transport, Cache: c.cache, Logger: c.log}
	return search.New(input, c.searchConfig(), deps, factory)
}

func (c *Client) searchConfig() search.Config {
	return search.Config{
		Filters: filters.Config{
			TextSuffix:    c.cfg.TextSuffix,
			NonTextFields: c.cfg.NonTextFields,
			PerPage:       c.cfg.PerPage,
			FacetsPerPage: c.cfg.FacetsPerPage,
		},
		FacetOrder:      c.cfg.Facets,
		Attributes:      c.cfg.Attributes,
		PaginationLimit: c.cfg.PaginationLimit,
		CacheEnabled:    c.cfg.Caching,
	}
}
