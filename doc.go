// Package apiclient is the shared HTTP request layer of the dashboard: every
// feature service (marketplace, billing, licensing, analytics) calls the
// backend through one *Client.
//
// The client:
//
//   - Resolves paths against a base URL and appends query parameters
//   - Injects Authorization: Bearer <token> and X-Organization-ID per call
//   - Coalesces concurrent identical GETs into a single network call
//   - Unwraps {success, data, error} envelopes into the data payload
//   - Reports every failure (HTTP status, bad JSON, transport) as *APIError
//
// Tokens and organization ids are supplied on every call through
// RequestConfig (or a ScopedClient) and are never retained. Nothing is
// retried and nothing is cached beyond the lifetime of an in-flight GET.
//
// Typical usage:
//
//	cfg, err := apiclient.LoadConfig()
//	if err != nil { ... }
//	client, err := apiclient.NewFromConfig(cfg, apiclient.WithMetrics())
//	if err != nil { ... }
//
//	data, err := client.Get(ctx, "/licenses", &apiclient.RequestConfig{
//	    Params: map[string]string{"status": "active"},
//	    Token:  token,
//	    OrgID:  orgID,
//	})
//	if apiclient.IsUnauthorized(err) { ... }
//
// Decoded variants (GetJSON, Fetch[T], Send[T]) unmarshal the payload into
// Go values.
package apiclient
