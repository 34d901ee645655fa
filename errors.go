package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Machine-readable codes attached by the client itself. Codes sent by the
// backend in error.code are passed through untouched.
const (
	CodeNetworkError      = "NETWORK_ERROR"
	CodeParseError        = "PARSE_ERROR"
	CodeDecodeError       = "DECODE_ERROR"
	CodeAuthUnavailable   = "AUTH_UNAVAILABLE"
	CodeTenantUnavailable = "TENANT_UNAVAILABLE"
	CodeInvalidConfig     = "INVALID_CONFIG"
	CodeCircuitOpen       = "CIRCUIT_OPEN"
	CodeRateLimited       = "RATE_LIMITED"
)

const (
	msgRequestFailed  = "Request failed"
	msgUnreadable     = "Failed to process server response"
	msgUnknownNetwork = "Unknown network error"
)

// Sentinel errors for errors.Is. They match any *APIError with the same Code.
var (
	// ErrNetwork matches failures where no usable response was received.
	ErrNetwork = &APIError{Code: CodeNetworkError}

	// ErrParse matches responses whose body was not valid JSON.
	ErrParse = &APIError{Code: CodeParseError}
)

// APIError is the single error shape returned by every Client operation.
type APIError struct {
	Message string
	Status  int
	Code    string
	Details json.RawMessage

	Method    string
	URL       string
	RequestID string
	Timestamp time.Time
	Duration  time.Duration
	Cause     error
}

// Error implements error interface.
func (e *APIError) Error() string {
	if e == nil {
		return "<nil>"
	}

	var b strings.Builder
	if e.RequestID != "" {
		fmt.Fprintf(&b, "[%s] ", e.RequestID)
	}
	if e.Code != "" {
		fmt.Fprintf(&b, "%s: ", e.Code)
	}
	fmt.Fprintf(&b, "%s (status %d)", e.Message, e.Status)
	if e.Cause != nil && e.Cause.Error() != e.Message {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *APIError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is reports a match when target is an *APIError with the same Code.
// A target with an empty Code matches on Status instead.
func (e *APIError) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	if t.Code != "" {
		return e.Code == t.Code
	}
	return t.Status != 0 && e.Status == t.Status
}

// DebugInfo renders a multi-line string with diagnostic context.
func (e *APIError) DebugInfo() string {
	if e == nil {
		return "Error: <nil>"
	}
	info := fmt.Sprintf("Message: %s\n", e.Message)
	info += fmt.Sprintf("Status: %d\n", e.Status)
	if e.Code != "" {
		info += fmt.Sprintf("Code: %s\n", e.Code)
	}
	if len(e.Details) > 0 {
		info += fmt.Sprintf("Details: %s\n", e.Details)
	}
	if e.RequestID != "" {
		info += fmt.Sprintf("Request ID: %s\n", e.RequestID)
	}
	if e.Method != "" {
		info += fmt.Sprintf("Method: %s\n", e.Method)
	}
	if e.URL != "" {
		info += fmt.Sprintf("URL: %s\n", e.URL)
	}
	if !e.Timestamp.IsZero() {
		info += fmt.Sprintf("Timestamp: %s\n", e.Timestamp.Format(time.RFC3339))
	}
	if e.Duration > 0 {
		info += fmt.Sprintf("Duration: %v\n", e.Duration)
	}
	if e.Cause != nil {
		info += fmt.Sprintf("Cause: %v\n", e.Cause)
	}
	return info
}

// AsAPIError extracts an *APIError from err's chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// StatusOf returns the HTTP-like status carried by err, or 0 when err is not
// an *APIError.
func StatusOf(err error) int {
	if apiErr, ok := AsAPIError(err); ok {
		return apiErr.Status
	}
	return 0
}

// IsNotFound reports whether err carries status 404.
func IsNotFound(err error) bool {
	return StatusOf(err) == http.StatusNotFound
}

// IsUnauthorized reports whether err carries status 401.
func IsUnauthorized(err error) bool {
	return StatusOf(err) == http.StatusUnauthorized
}

// IsForbidden reports whether err carries status 403.
func IsForbidden(err error) bool {
	return StatusOf(err) == http.StatusForbidden
}

// networkError normalizes a transport failure. An err that already is an
// *APIError is returned as a copy, since coalesced callers share err.
func networkError(err error) *APIError {
	if apiErr, ok := AsAPIError(err); ok {
		cp := *apiErr
		return &cp
	}
	msg := msgUnknownNetwork
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return &APIError{
		Message: msg,
		Status:  http.StatusInternalServerError,
		Code:    CodeNetworkError,
		Cause:   err,
	}
}
