package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/CELAEST/celaest-dashboard-sub003/internal/singleflight"
)

// DefaultBaseURL is used when neither WithBaseURL nor API_BASE_URL supply one.
const DefaultBaseURL = "http://localhost:8080/api/v1"

var errEmptyResponse = errors.New("transport returned no response")

// Client is the shared request layer every feature service calls through.
// It injects auth and tenant headers, coalesces concurrent identical GETs,
// unwraps response envelopes and reports every failure as *APIError.
// It is safe for concurrent use.
type Client struct {
	httpClient      *http.Client
	baseURL         string
	timeout         time.Duration
	userAgent       string
	middleware      []Middleware
	inflight        *singleflight.Group[*fetchResult]
	coalesceKeyFunc CoalesceKeyFunc
	coalesceCond    CoalesceCondition
	metrics         *MetricsCollector
	debug           *DebugConfig
	logger          Logger
	validationError error
}

// New constructs a Client using the provided functional options. A best effort
// validation is performed; call IsValid / ValidationError for errors.
func New(options ...Option) *Client {
	client := &Client{
		httpClient:      &http.Client{},
		baseURL:         DefaultBaseURL,
		userAgent:       UserAgent(),
		middleware:      []Middleware{},
		coalesceKeyFunc: DefaultCoalesceKeyFunc,
		coalesceCond:    DefaultCoalesceCondition,
		debug:           DefaultDebugConfig(),
	}
	client.inflight = singleflight.NewWithObserver[*fetchResult](func(n int) {
		client.metrics.RecordRegistrySize(n)
	})

	for _, option := range options {
		option(client)
	}

	if err := client.ValidateConfiguration(); err != nil {
		client.validationError = err
	}

	return client
}

// Get performs a GET; concurrent identical GETs share one network call.
func (c *Client) Get(ctx context.Context, path string, cfg *RequestConfig) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodGet, path, nil, cfg)
}

// Post performs a POST with body encoded as JSON.
func (c *Client) Post(ctx context.Context, path string, body any, cfg *RequestConfig) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodPost, path, body, cfg)
}

// Put performs a PUT with body encoded as JSON.
func (c *Client) Put(ctx context.Context, path string, body any, cfg *RequestConfig) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodPut, path, body, cfg)
}

// Patch performs a PATCH with body encoded as JSON.
func (c *Client) Patch(ctx context.Context, path string, body any, cfg *RequestConfig) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodPatch, path, body, cfg)
}

// Delete performs a DELETE.
func (c *Client) Delete(ctx context.Context, path string, cfg *RequestConfig) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodDelete, path, nil, cfg)
}

// Do executes a call and returns the unwrapped payload. An empty method
// means GET. The returned error, when non-nil, is always an *APIError.
func (c *Client) Do(ctx context.Context, method, path string, body any, cfg *RequestConfig) (json.RawMessage, error) {
	payload, _, apiErr := c.do(ctx, method, path, body, cfg.orZero())
	if apiErr != nil {
		return nil, apiErr
	}
	return payload, nil
}

// BaseURL returns the URL relative paths are appended to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// InFlight reports the number of distinct GET keys currently in flight.
func (c *Client) InFlight() int {
	if c.inflight == nil {
		return 0
	}
	return c.inflight.Len()
}

// do returns the payload, the transport status (0 when no response arrived)
// and the typed error, if any.
func (c *Client) do(ctx context.Context, method, path string, body any, cfg RequestConfig) (json.RawMessage, int, *APIError) {
	if ctx == nil {
		ctx = context.Background()
	}
	if method == "" {
		method = http.MethodGet
	}
	if c.validationError != nil {
		return nil, 0, &APIError{
			Message: c.validationError.Error(),
			Status:  http.StatusInternalServerError,
			Code:    CodeInvalidConfig,
			Method:  method,
			Cause:   c.validationError,
		}
	}

	start := time.Now()
	target := c.buildURL(path, cfg.Params)
	endpoint := getEndpoint(target)
	requestID := c.newRequestID()

	if c.logEnabled(c.debug != nil && c.debug.LogRequests) {
		c.logger.Debug("Starting request", "requestID", requestID, "method", method, "url", target, "endpoint", endpoint)
	}

	var (
		res *fetchResult
		err error
	)
	if c.inflight != nil && c.coalesceCond(method) {
		key := c.coalesceKeyFunc(path, cfg.Params, cfg.Token, cfg.OrgID)

		var joined bool
		res, err, joined = c.inflight.Do(ctx, key, func(shared context.Context) (*fetchResult, error) {
			return c.fetch(shared, method, target, body, cfg, requestID)
		})

		if joined {
			c.metrics.RecordCoalesced(endpoint)
			if c.logEnabled(c.debug != nil && c.debug.LogCoalescing) {
				c.logger.Debug("Coalesced with in-flight request", "requestID", requestID, "key", key)
			}
		}
	} else {
		res, err = c.fetch(ctx, method, target, body, cfg, requestID)
	}

	var (
		payload json.RawMessage
		apiErr  *APIError
		status  int
	)
	if err != nil {
		apiErr = networkError(err)
	} else {
		status = res.status
		payload, apiErr = interpret(res.status, res.body, cfg.SkipUnwrap)
	}

	duration := time.Since(start)
	metricStatus := status
	if apiErr != nil {
		metricStatus = apiErr.Status
		apiErr.Method = method
		apiErr.URL = target
		apiErr.RequestID = requestID
		apiErr.Timestamp = time.Now()
		apiErr.Duration = duration

		c.metrics.RecordError(apiErr, method, endpoint)
		if c.logger != nil && (c.debug == nil || c.debug.LogErrors) {
			c.logger.Warn("Request failed", "requestID", requestID, "method", method, "endpoint", endpoint,
				"status", apiErr.Status, "code", apiErr.Code, "message", apiErr.Message)
		}
	}
	c.metrics.RecordRequest(method, endpoint, metricStatus, duration)

	return payload, status, apiErr
}

// fetch performs one network round trip and reads the whole body.
func (c *Client) fetch(ctx context.Context, method, target string, body any, cfg RequestConfig, requestID string) (*fetchResult, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	c.applyHeaders(req, cfg, requestID)

	endpoint := getEndpointFromRequest(req)
	c.metrics.RecordRequestStart(method, endpoint)
	resp, err := c.executeMiddleware(req)
	c.metrics.RecordRequestEnd(method, endpoint)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, errEmptyResponse
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return &fetchResult{status: resp.StatusCode, body: data}, nil
}

// buildURL resolves path against the base URL and appends params.
func (c *Client) buildURL(path string, params map[string]string) string {
	target := path
	if !isAbsoluteURL(path) {
		target = c.baseURL + path
	}
	if len(params) == 0 {
		return target
	}

	values := make(url.Values, len(params))
	for k, v := range params {
		values.Set(k, v)
	}
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	return target + sep + values.Encode()
}

func isAbsoluteURL(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// applyHeaders sets defaults, then caller headers, then the auth and tenant
// headers, which always win.
func (c *Client) applyHeaders(req *http.Request, cfg RequestConfig, requestID string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if requestID != "" {
		req.Header.Set(HeaderRequestID, requestID)
	}
	if req.Method == http.MethodGet {
		req.Header.Set("Cache-Control", "no-cache")
	}

	for k, v := range cfg.Headers {
		req.Header.Set(k, v)
	}

	if cfg.Token != "" {
		req.Header.Set(HeaderAuthorization, "Bearer "+cfg.Token)
	}
	if cfg.OrgID != "" {
		req.Header.Set(HeaderOrganizationID, cfg.OrgID)
	}
}

func (c *Client) executeMiddleware(req *http.Request) (*http.Response, error) {
	if len(c.middleware) == 0 {
		return c.httpClient.Do(req)
	}

	current := RoundTripperFunc(c.httpClient.Do)

	for i := len(c.middleware) - 1; i >= 0; i-- {
		middleware := c.middleware[i]
		next := current
		current = RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			return middleware(r, next)
		})
	}

	return current.RoundTrip(req)
}

func (c *Client) newRequestID() string {
	if c.debug != nil && c.debug.Enabled && c.debug.RequestIDGen != nil {
		return c.debug.RequestIDGen()
	}
	return ""
}

// logEnabled gates the debug-only request and coalescing events. Failures
// are logged whenever a logger is set and left to its level filter.
func (c *Client) logEnabled(flag bool) bool {
	return flag && c.debug != nil && c.debug.Enabled && c.logger != nil
}

// IsValid reports whether configuration validation passed at construction.
func (c *Client) IsValid() bool {
	return c.validationError == nil
}

// ValidationError returns the configuration validation error, if any.
func (c *Client) ValidationError() error {
	return c.validationError
}

func getEndpoint(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "unknown"
	}
	return endpointOf(u)
}

func getEndpointFromRequest(req *http.Request) string {
	if req.URL == nil {
		return "unknown"
	}
	return endpointOf(req.URL)
}

func endpointOf(u *url.URL) string {
	var builder strings.Builder
	builder.WriteString(u.Host)

	if u.Path != "" && u.Path != "/" {
		builder.WriteString(u.Path)
	} else {
		builder.WriteByte('/')
	}

	return builder.String()
}
