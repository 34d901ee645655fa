package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
)

// AuthProvider supplies the caller's current access token. Acquiring and
// refreshing it is the provider's job; an empty token means anonymous.
type AuthProvider interface {
	Token(ctx context.Context) (string, error)
}

// TenantProvider supplies the active organization id. Empty means unscoped.
type TenantProvider interface {
	OrgID(ctx context.Context) (string, error)
}

// AuthFunc adapts a function to AuthProvider.
type AuthFunc func(ctx context.Context) (string, error)

func (f AuthFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

// TenantFunc adapts a function to TenantProvider.
type TenantFunc func(ctx context.Context) (string, error)

func (f TenantFunc) OrgID(ctx context.Context) (string, error) { return f(ctx) }

// StaticToken is an AuthProvider that always returns itself.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) { return string(t), nil }

// StaticOrg is a TenantProvider that always returns itself.
type StaticOrg string

func (o StaticOrg) OrgID(context.Context) (string, error) { return string(o), nil }

// ScopedClient fills Token and OrgID from providers on every call. Nothing
// is cached: each call asks the providers again. Values set explicitly on a
// RequestConfig take precedence.
type ScopedClient struct {
	client *Client
	auth   AuthProvider
	tenant TenantProvider
}

// Scoped binds providers to c. Either provider may be nil.
func (c *Client) Scoped(auth AuthProvider, tenant TenantProvider) *ScopedClient {
	return &ScopedClient{client: c, auth: auth, tenant: tenant}
}

// Get performs a scoped GET.
func (s *ScopedClient) Get(ctx context.Context, path string, cfg *RequestConfig) (json.RawMessage, error) {
	return s.Do(ctx, http.MethodGet, path, nil, cfg)
}

// Post performs a scoped POST.
func (s *ScopedClient) Post(ctx context.Context, path string, body any, cfg *RequestConfig) (json.RawMessage, error) {
	return s.Do(ctx, http.MethodPost, path, body, cfg)
}

// Put performs a scoped PUT.
func (s *ScopedClient) Put(ctx context.Context, path string, body any, cfg *RequestConfig) (json.RawMessage, error) {
	return s.Do(ctx, http.MethodPut, path, body, cfg)
}

// Patch performs a scoped PATCH.
func (s *ScopedClient) Patch(ctx context.Context, path string, body any, cfg *RequestConfig) (json.RawMessage, error) {
	return s.Do(ctx, http.MethodPatch, path, body, cfg)
}

// Delete performs a scoped DELETE.
func (s *ScopedClient) Delete(ctx context.Context, path string, cfg *RequestConfig) (json.RawMessage, error) {
	return s.Do(ctx, http.MethodDelete, path, nil, cfg)
}

// Do resolves credentials and delegates to the underlying Client.
func (s *ScopedClient) Do(ctx context.Context, method, path string, body any, cfg *RequestConfig) (json.RawMessage, error) {
	resolved, apiErr := s.resolve(ctx, cfg)
	if apiErr != nil {
		return nil, apiErr
	}
	return s.client.Do(ctx, method, path, body, resolved)
}

// DoJSON resolves credentials and decodes the payload into out.
func (s *ScopedClient) DoJSON(ctx context.Context, method, path string, body, out any, cfg *RequestConfig) error {
	resolved, apiErr := s.resolve(ctx, cfg)
	if apiErr != nil {
		return apiErr
	}
	return s.client.DoJSON(ctx, method, path, body, out, resolved)
}

func (s *ScopedClient) resolve(ctx context.Context, cfg *RequestConfig) (*RequestConfig, *APIError) {
	resolved := cfg.orZero()

	if resolved.Token == "" && s.auth != nil {
		token, err := s.auth.Token(ctx)
		if err != nil {
			return nil, &APIError{
				Message: "Access token unavailable",
				Status:  http.StatusUnauthorized,
				Code:    CodeAuthUnavailable,
				Cause:   err,
			}
		}
		resolved.Token = token
	}

	if resolved.OrgID == "" && s.tenant != nil {
		orgID, err := s.tenant.OrgID(ctx)
		if err != nil {
			return nil, &APIError{
				Message: "Organization unavailable",
				Status:  http.StatusBadRequest,
				Code:    CodeTenantUnavailable,
				Cause:   err,
			}
		}
		resolved.OrgID = orgID
	}

	return &resolved, nil
}
