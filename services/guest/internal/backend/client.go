package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/aquamarinepk/aqm"
	"github.com/google/uuid"
)

const (
	defaultBaseURL  = "http://localhost:8080/api"
	defaultTimeout  = 10 * time.Second
	defaultCacheTTL = 30 * time.Second
	maxBodyBytes    = 4 << 20
)

// Cache tags. Reads are labelled with them and mutations invalidate them.
const (
	TagCategory = "Category"
	TagMenuItem = "MenuItem"
	TagTable    = "Table"
	TagSession  = "Session"
	TagBill     = "Bill"
	TagOrder    = "Order"
	TagUser     = "User"
)

// Options configures a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	CacheTTL   time.Duration
	HTTPClient *http.Client
	Logger     aqm.Logger
}

// Client talks to the restaurant backend. Every response is expected in the
// `{success, data, message}` envelope.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      *Cache
	logger     aqm.Logger

	mu          sync.RWMutex
	token       string
	tokenExpiry time.Time
}

func NewClient(opts Options) *Client {
	if opts.Logger == nil {
		opts.Logger = aqm.NewNoopLogger()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: httpClient,
		cache:      NewCache(opts.CacheTTL),
		logger:     opts.Logger,
	}
}

// NewClientFromConfig builds a Client from the `backend.*` config keys.
func NewClientFromConfig(config *aqm.Config, logger aqm.Logger) *Client {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}

	opts := Options{
		BaseURL:  defaultBaseURL,
		Timeout:  defaultTimeout,
		CacheTTL: defaultCacheTTL,
		Logger:   logger,
	}
	if config == nil {
		return NewClient(opts)
	}

	if baseURL, _ := config.GetString("backend.url"); baseURL != "" {
		opts.BaseURL = baseURL
	}
	opts.Timeout = durationOr(config, logger, "backend.timeout", defaultTimeout)
	opts.CacheTTL = durationOr(config, logger, "backend.cache_ttl", defaultCacheTTL)

	return NewClient(opts)
}

func durationOr(config *aqm.Config, logger aqm.Logger, key string, def time.Duration) time.Duration {
	raw, ok := config.GetString(key)
	if !ok || raw == "" {
		return def
	}
	parsed, ok := parsePositiveDuration(raw)
	if !ok {
		logger.Info("invalid duration, using default", "key", key, "value", raw, "default", def)
		return def
	}
	return parsed
}

func parsePositiveDuration(raw string) (time.Duration, bool) {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, false
	}
	return d, true
}

// SetToken stores the bearer token attached to every subsequent request.
func (c *Client) SetToken(token string, expiry time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	c.tokenExpiry = expiry
}

func (c *Client) ClearToken() {
	c.SetToken("", time.Time{})
}

// Token returns the current bearer token and its expiry (zero when unknown).
func (c *Client) Token() (string, time.Time) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token, c.tokenExpiry
}

type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// do performs a request and returns the `data` member of the envelope.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body interface{}) (json.RawMessage, error) {
	if c == nil {
		return nil, &APIError{Message: "backend client not configured"}
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token, _ := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &APIError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &APIError{Status: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)
	if len(bytes.TrimSpace(raw)) == 0 {
		decodeErr = nil
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		if decodeErr == nil {
			apiErr.Message = env.Message
			if env.Error != nil {
				apiErr.Code = env.Error.Code
				if apiErr.Message == "" {
					apiErr.Message = env.Error.Message
				}
			}
		}
		return nil, apiErr
	}

	if decodeErr != nil {
		return nil, &APIError{Status: resp.StatusCode, Err: fmt.Errorf("malformed response: %w", decodeErr)}
	}

	if env.Success != nil && !*env.Success {
		apiErr := &APIError{Status: resp.StatusCode, Message: env.Message}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			if apiErr.Message == "" {
				apiErr.Message = env.Error.Message
			}
		}
		return nil, apiErr
	}

	return env.Data, nil
}

// get performs a cached GET. The returned payload must not be modified.
func (c *Client) get(ctx context.Context, path string, tags ...string) (json.RawMessage, error) {
	if data, ok := c.cache.Get(path); ok {
		return data, nil
	}

	data, err := c.do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}

	c.cache.Set(path, data, tags...)
	return data, nil
}

// mutate performs a write and invalidates the given tags when it succeeds or
// when the outcome is unknown.
func (c *Client) mutate(ctx context.Context, method, path string, query url.Values, body interface{}, invalidate ...string) (json.RawMessage, error) {
	data, err := c.do(ctx, method, path, query, body)
	if err != nil {
		if IsUncertain(err) {
			c.cache.Invalidate(invalidate...)
		}
		return nil, err
	}

	if removed := c.cache.Invalidate(invalidate...); removed > 0 {
		c.logger.Debug("cache invalidated", "path", path, "tags", invalidate, "entries", removed)
	}
	return data, nil
}

func decodeObject(data json.RawMessage, dest interface{}) error {
	if isNull(data) {
		return &APIError{Status: http.StatusOK, Err: fmt.Errorf("response has no data")}
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return &APIError{Status: http.StatusOK, Err: fmt.Errorf("malformed response: %w", err)}
	}
	return nil
}

func decodeCollection(data json.RawMessage, dest interface{}) error {
	if err := decodeList(data, dest); err != nil {
		return &APIError{Status: http.StatusOK, Err: err}
	}
	return nil
}

func idTag(tag, id string) string {
	return tag + ":" + id
}
