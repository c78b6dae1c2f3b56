package models

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/openhura/hura.go/pkg/cache"
	"github.com/openhura/hura.go/pkg/constants"
	"github.com/openhura/hura.go/pkg/logger"
	"github.com/openhura/hura.go/pkg/transport"
)

// Per-entity read errors. Each wraps the underlying transport sentinel so
// callers can match either level.
var (
	ErrRecordNotFound    = fmt.Errorf("%w: record", constants.ErrNotFound)
	ErrConceptNotFound   = fmt.Errorf("%w: concept", constants.ErrNotFound)
	ErrSetNotFound       = fmt.Errorf("%w: set", constants.ErrNotFound)
	ErrStoryNotFound     = fmt.Errorf("%w: story", constants.ErrNotFound)
	ErrUserNotFound      = fmt.Errorf("%w: user", constants.ErrNotFound)
	ErrStoryUnauthorised = fmt.Errorf("%w: story", constants.ErrUnauthorized)
)

// ErrNoSuchAttribute is returned by Record.Attribute for unknown names.
var ErrNoSuchAttribute = fmt.Errorf("no such attribute")

// Deps are the collaborators shared by all entity verbs.
type Deps struct {
	Transport *transport.Client
	Cache     cache.Cache
	Logger    logger.Logger
}

func (d Deps) cache() cache.Cache {
	if d.Cache == nil {
		return cache.Noop{}
	}
	return d.Cache
}

// validateID rejects ids that are not positive integers.
func validateID(id int) error {
	if id <= 0 {
		return fmt.Errorf("%w: id must be a positive integer, got %d", constants.ErrMalformedRequest, id)
	}
	return nil
}

// userListKey is the cache key for a user's set or story listing. Mutations
// delete it so the next listing refetches.
func userListKey(kind, apiKey string) string {
	return "users:" + apiKey + ":" + kind
}

// perUserOptions attaches a user's own API key to a call.
func perUserOptions(apiKey string) *transport.Options {
	if apiKey == "" {
		return nil
	}
	return &transport.Options{APIKey: apiKey}
}

// decodeEnvelope extracts one named object from a response body, or nil when
// the body does not carry it.
func decodeEnvelope(body []byte, key string) map[string]any {
	var out map[string]map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		return nil
	}
	return out[key]
}
