package apiclient

import (
	"net/http"

	"golang.org/x/time/rate"
)

// RateLimitMiddleware paces outgoing network calls through limiter. A call
// waits for a token until its context ends, then fails with RATE_LIMITED
// (429). Coalesced GETs share one token since only the owner reaches the
// transport.
func RateLimitMiddleware(limiter *rate.Limiter) Middleware {
	return func(req *http.Request, next RoundTripper) (*http.Response, error) {
		if err := limiter.Wait(req.Context()); err != nil {
			return nil, &APIError{
				Message: "Rate limit wait aborted",
				Status:  http.StatusTooManyRequests,
				Code:    CodeRateLimited,
				Cause:   err,
			}
		}
		return next.RoundTrip(req)
	}
}
