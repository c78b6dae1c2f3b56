package constants

import (
	"errors"
	"time"
)

// Errors
var (
	ErrNotFound         = errors.New("resource not found")
	ErrUnauthorized     = errors.New("unauthorized request")
	ErrForbidden        = errors.New("forbidden request")
	ErrNotAvailable     = errors.New("API temporarily unavailable")
	ErrRequestTimeout   = errors.New("request timed out")
	ErrMalformedRequest = errors.New("malformed request")
)

const (
	// DefaultTimeout applies when no per-call or configured timeout is given.
	DefaultTimeout = 30 * time.Second

	// TimeoutFloor is used when the configured timeout is zero or negative.
	TimeoutFloor = 5 * time.Second

	// MaxRetries bounds retries of service-unavailable responses.
	MaxRetries = 5

	// RetryBaseDelay is the initial backoff delay, doubled per attempt.
	RetryBaseDelay = 100 * time.Millisecond
)

const (
	SearchCacheTTL = time.Hour
	ListCacheTTL   = 24 * time.Hour
)

const (
	DefaultPerPage       = 20
	DefaultFacetsPerPage = 10
	DefaultTextSuffix    = "_text"
)
