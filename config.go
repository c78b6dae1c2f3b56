package hura

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/openhura/hura.go/pkg/constants"
)

// Config carries every knob of the client. It is read once at construction;
// changing it afterwards has no effect on an existing Client.
type Config struct {
	// APIURL is the base URL of the Hura API, without a trailing slash.
	APIURL string `toml:"api_url"`
	// APIKey authenticates every request unless a call overrides it.
	APIKey  string   `toml:"api_key"`
	Timeout Duration `toml:"timeout"`
	// Debug adds debug=true to every request and lowers the log level.
	Debug bool `toml:"debug"`

	// PerPage is the default search page size.
	PerPage int `toml:"per_page"`
	// FacetsPerPage is the default number of values returned per facet.
	FacetsPerPage int `toml:"facets_per_page"`
	// PaginationLimit caps the paginatable portion of large result sets.
	// Zero means uncapped.
	PaginationLimit int `toml:"pagination_limit"`
	// Attributes names the filters exposed as dynamic search accessors.
	Attributes []string `toml:"attributes"`
	// Facets fixes the display order of facet groups.
	Facets []string `toml:"facets"`
	// NonTextFields lists filter names whose text suffix is structural
	// rather than a free-text marker.
	NonTextFields []string `toml:"non_text_fields"`
	// TextSuffix marks filters folded into the free text query.
	TextSuffix string `toml:"text_suffix"`

	// Caching enables the shared response cache.
	Caching bool `toml:"caching"`
	// CacheURL is the redis URL of the shared cache.
	CacheURL string `toml:"cache_url"`
}

// Duration wraps time.Duration for TOML text encoding.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// DefaultConfig returns the built-in defaults. APIURL and APIKey have no
// default and must be set by the caller.
func DefaultConfig() Config {
	return Config{
		Timeout:       Duration{constants.DefaultTimeout},
		PerPage:       constants.DefaultPerPage,
		FacetsPerPage: constants.DefaultFacetsPerPage,
		TextSuffix:    constants.DefaultTextSuffix,
	}
}

// LoadConfig reads a TOML config file, layering it over the defaults. A
// missing file returns the defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("api_url is required")
	}
	return nil
}
