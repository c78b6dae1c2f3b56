// Package transport executes HTTP calls against the Hura API. It owns query
// string encoding, API key attachment, timeouts, retry of unavailable
// responses and structured logging of every call. Callers receive raw
// response bytes or one of the typed errors from pkg/constants.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/openhura/hura.go/pkg/constants"
	"github.com/openhura/hura.go/pkg/logger"
)

// Config carries the transport-level settings, extracted from the client
// configuration at construction time.
type Config struct {
	APIURL  string
	APIKey  string
	Timeout time.Duration
	Debug   bool
}

// Options overrides per call. Zero values fall back to the configured
// defaults.
type Options struct {
	APIKey  string
	Timeout time.Duration
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	log        logger.Logger
}

func New(cfg Config, log logger.Logger) *Client {
	if log == nil {
		log = logger.Noop{}
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
		log:        log,
	}
}

// SetHTTPClient replaces the underlying HTTP client, mainly for tests.
func (c *Client) SetHTTPClient(client *http.Client) *Client {
	c.httpClient = client
	return c
}

func (c *Client) Get(ctx context.Context, path string, params map[string]any, opts *Options) ([]byte, error) {
	return c.request(ctx, http.MethodGet, path, params, nil, opts)
}

func (c *Client) Post(ctx context.Context, path string, params map[string]any, payload any, opts *Options) ([]byte, error) {
	return c.request(ctx, http.MethodPost, path, params, payload, opts)
}

func (c *Client) Put(ctx context.Context, path string, params map[string]any, payload any, opts *Options) ([]byte, error) {
	return c.request(ctx, http.MethodPut, path, params, payload, opts)
}

func (c *Client) Patch(ctx context.Context, path string, params map[string]any, payload any, opts *Options) ([]byte, error) {
	return c.request(ctx, http.MethodPatch, path, params, payload, opts)
}

func (c *Client) Delete(ctx context.Context, path string, params map[string]any, opts *Options) ([]byte, error) {
	return c.request(ctx, http.MethodDelete, path, params, nil, opts)
}

// GetJSON performs a GET and decodes the response body into target.
func (c *Client) GetJSON(ctx context.Context, path string, params map[string]any, opts *Options, target any) error {
	body, err := c.Get(ctx, path, params, opts)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("decode response for %s: %w", path, err)
	}
	return nil
}

func (c *Client) request(ctx context.Context, method, path string, params map[string]any, payload any, opts *Options) ([]byte, error) {
	if c.cfg.APIURL == "" {
		return nil, fmt.Errorf("API url not set")
	}

	requestID := uuid.NewString()
	fullURL := c.cfg.APIURL + path + "?" + c.encodeParams(params, opts)

	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request payload: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout(opts))
	defer cancel()

	start := time.Now()
	respBody, status, err := c.send(ctx, method, fullURL, body, requestID)
	elapsed := time.Since(start)

	if err != nil {
		c.log.Error("api call failed",
			"request_id", requestID, "method", method, "path", path,
			"status", status, "duration", elapsed.String(), "error", err.Error())
		return nil, err
	}

	c.log.Info("api call",
		"request_id", requestID, "method", method, "path", path,
		"status", status, "duration", elapsed.String())
	return respBody, nil
}

// send issues the request, retrying service-unavailable responses with
// exponential backoff before giving up.
func (c *Client) send(ctx context.Context, method, fullURL string, body []byte, requestID string) ([]byte, int, error) {
	delay := constants.RetryBaseDelay

	var lastStatus int
	for attempt := 1; attempt <= constants.MaxRetries; attempt++ {
		respBody, status, err := c.once(ctx, method, fullURL, body)
		lastStatus = status

		if err != nil || status != http.StatusServiceUnavailable {
			return respBody, status, err
		}

		if attempt < constants.MaxRetries {
			c.log.Warn("api unavailable, retrying",
				"request_id", requestID, "attempt", attempt, "backoff", delay.String())
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, lastStatus, fmt.Errorf("%w: %v", constants.ErrRequestTimeout, ctx.Err())
			}
			delay *= 2
		}
	}

	return nil, lastStatus, constants.ErrNotAvailable
}

func (c *Client) once(ctx context.Context, method, fullURL string, body []byte) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, 0, fmt.Errorf("%w: %s %s", constants.ErrRequestTimeout, method, req.URL.Path)
		}
		return nil, 0, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return respBody, resp.StatusCode, nil
	}
	if resp.StatusCode == http.StatusServiceUnavailable {
		// Handled by the retry loop.
		return nil, resp.StatusCode, nil
	}
	return nil, resp.StatusCode, statusError(resp.StatusCode, method, req.URL.Path, respBody)
}

func statusError(status int, method, path string, body []byte) error {
	switch status {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s %s", constants.ErrNotFound, method, path)
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s %s", constants.ErrUnauthorized, method, path)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %s %s", constants.ErrForbidden, method, path)
	default:
		return &RequestError{Status: status, Method: method, Path: path, Body: string(body)}
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

func (c *Client) timeout(opts *Options) time.Duration {
	if opts != nil && opts.Timeout > 0 {
		return opts.Timeout
	}
	if c.cfg.Timeout > 0 {
		return c.cfg.Timeout
	}
	return constants.TimeoutFloor
}

// encodeParams serializes nested filter parameters using the bracketed key
// convention the API expects: and[category][]=Images&and[category][]=Videos.
func (c *Client) encodeParams(params map[string]any, opts *Options) string {
	values := url.Values{}
	encodeInto(values, "", params)

	apiKey := c.cfg.APIKey
	if opts != nil && opts.APIKey != "" {
		apiKey = opts.APIKey
	}
	if apiKey != "" {
		values.Set("api_key", apiKey)
	}
	if c.cfg.Debug {
		values.Set("debug", "true")
	}
	return values.Encode()
}

// EncodeQuery serializes params deterministically, without auth or debug
// additions. Callers use it to derive stable cache keys.
func EncodeQuery(params map[string]any) string {
	values := url.Values{}
	encodeInto(values, "", params)
	return values.Encode()
}

func encodeInto(values url.Values, prefix string, v any) {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			encodeInto(values, bracketKey(prefix, k), t[k])
		}
	case []any:
		for _, item := range t {
			values.Add(prefix+"[]", fmt.Sprint(item))
		}
	case []string:
		for _, item := range t {
			values.Add(prefix+"[]", item)
		}
	case nil:
	default:
		values.Add(prefix, fmt.Sprint(t))
	}
}

func bracketKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "[" + key + "]"
}

// RequestError is returned for HTTP statuses without a dedicated sentinel.
type RequestError struct {
	Status int
	Method string
	Path   string
	Body   string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request failed: %s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}
