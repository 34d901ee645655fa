package apiclient

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// WithBaseURL sets the URL relative paths are appended to. A trailing slash
// is trimmed since paths conventionally start with one.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithTimeout sets a whole-request timeout on the underlying http.Client.
// The default is no timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
		if c.httpClient != nil {
			c.httpClient = withTimeout(c.httpClient, d)
		}
	}
}

// WithHTTPClient sets a custom HTTP client. The client is copied, so a
// timeout set through WithTimeout never leaks into the caller's instance.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client == nil {
			c.httpClient = nil
			return
		}
		cp := *client
		if c.timeout != 0 {
			cp.Timeout = c.timeout
		}
		c.httpClient = &cp
	}
}

// withTimeout returns a shallow copy of hc with Timeout set to d.
func withTimeout(hc *http.Client, d time.Duration) *http.Client {
	cp := *hc
	cp.Timeout = d
	return &cp
}

// WithUserAgent overrides the User-Agent header; empty disables it.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithMiddleware adds middleware to the client
func WithMiddleware(middleware ...Middleware) Option {
	return func(c *Client) {
		c.middleware = append(c.middleware, middleware...)
	}
}

// WithCircuitBreaker appends a circuit breaker middleware.
func WithCircuitBreaker(config CircuitBreakerConfig) Option {
	return func(c *Client) {
		c.middleware = append(c.middleware, NewCircuitBreaker(config).Middleware())
	}
}

// WithRateLimit appends a middleware allowing r calls per second with the
// given burst.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(c *Client) {
		c.middleware = append(c.middleware, RateLimitMiddleware(rate.NewLimiter(r, burst)))
	}
}

// WithCoalesceKeyFunc sets a custom coalescing key function
func WithCoalesceKeyFunc(fn CoalesceKeyFunc) Option {
	return func(c *Client) {
		c.coalesceKeyFunc = fn
	}
}

// WithCoalesceCondition sets which methods participate in coalescing
func WithCoalesceCondition(fn CoalesceCondition) Option {
	return func(c *Client) {
		c.coalesceCond = fn
	}
}

// WithoutCoalescing sends every GET to the network.
func WithoutCoalescing() Option {
	return func(c *Client) {
		c.inflight = nil
	}
}

// WithMetrics enables Prometheus metrics collection
func WithMetrics() Option {
	return func(c *Client) {
		c.metrics = NewMetricsCollector()
	}
}

// WithMetricsCollector sets a custom metrics collector
func WithMetricsCollector(collector *MetricsCollector) Option {
	return func(c *Client) {
		c.metrics = collector
	}
}

// WithDebug enables debug logging with default configuration
func WithDebug() Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
	}
}

// WithDebugConfig sets custom debug configuration
func WithDebugConfig(config *DebugConfig) Option {
	return func(c *Client) {
		c.debug = config
	}
}

// WithLogger sets a custom logger for debug output
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithSimpleLogger enables debug logging with a simple console logger
func WithSimpleLogger() Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
		c.logger = NewSimpleLogger()
	}
}

// WithRequestIDGenerator sets a custom function for generating request IDs
func WithRequestIDGenerator(gen func() string) Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.RequestIDGen = gen
	}
}

// ValidateConfiguration validates the client configuration and returns an error if invalid
func (c *Client) ValidateConfiguration() error {
	var errors []string

	errors = append(errors, c.validateBaseURL()...)
	errors = append(errors, c.validateHTTPClientConfig()...)
	errors = append(errors, c.validateCoalescingConfig()...)
	errors = append(errors, c.validateDebugConfig()...)
	errors = append(errors, c.validateMiddlewareConfig()...)

	if len(errors) > 0 {
		return fmt.Errorf("invalid client configuration: %s", strings.Join(errors, "; "))
	}

	return nil
}

func (c *Client) validateBaseURL() []string {
	var errors []string

	if c.baseURL == "" {
		return append(errors, "baseURL must be set")
	}
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return append(errors, fmt.Sprintf("baseURL is not a valid URL: %v", err))
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		errors = append(errors, "baseURL scheme must be http or https")
	}
	if u.Host == "" {
		errors = append(errors, "baseURL must include a host")
	}

	return errors
}

func (c *Client) validateHTTPClientConfig() []string {
	var errors []string

	if c.httpClient == nil {
		errors = append(errors, "HTTP client cannot be nil")
	}
	if c.timeout < 0 {
		errors = append(errors, "timeout must not be negative")
	}

	return errors
}

func (c *Client) validateCoalescingConfig() []string {
	var errors []string

	if c.inflight != nil {
		if c.coalesceKeyFunc == nil {
			errors = append(errors, "coalesce key function must be set when coalescing is enabled")
		}
		if c.coalesceCond == nil {
			errors = append(errors, "coalesce condition must be set when coalescing is enabled")
		}
	}

	return errors
}

func (c *Client) validateDebugConfig() []string {
	var errors []string

	if c.debug != nil && c.debug.Enabled && c.logger == nil {
		errors = append(errors, "logger must be set when debug is enabled")
	}

	return errors
}

func (c *Client) validateMiddlewareConfig() []string {
	var errors []string

	for i, middleware := range c.middleware {
		if middleware == nil {
			errors = append(errors, fmt.Sprintf("middleware[%d] cannot be nil", i))
		}
	}

	return errors
}
