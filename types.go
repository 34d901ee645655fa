package apiclient

import (
	"net/http"
)

// Injected header names.
const (
	HeaderAuthorization  = "Authorization"
	HeaderOrganizationID = "X-Organization-ID"
	HeaderRequestID      = "X-Request-ID"
)

// RequestConfig is the per-call configuration bag. A nil *RequestConfig is
// equivalent to the zero value.
type RequestConfig struct {
	// Params are URL-encoded and appended to the request URL.
	Params map[string]string
	// Token, when non-empty, is sent as "Authorization: Bearer <Token>".
	Token string
	// OrgID, when non-empty, is sent as X-Organization-ID.
	OrgID string
	// Headers are merged under the injected auth and tenant headers.
	Headers map[string]string
	// SkipUnwrap returns the whole response envelope instead of its data.
	SkipUnwrap bool
}

// Middleware represents a middleware function
type Middleware func(req *http.Request, next RoundTripper) (*http.Response, error)

// RoundTripper represents the HTTP transport interface
type RoundTripper interface {
	RoundTrip(*http.Request) (*http.Response, error)
}

// Option represents a configuration option
type Option func(*Client)

// RoundTripperFunc is a helper type for middleware
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func (rc *RequestConfig) orZero() RequestConfig {
	if rc == nil {
		return RequestConfig{}
	}
	return *rc
}
