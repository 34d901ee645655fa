package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
)

// GetJSON performs a GET and decodes the unwrapped payload into out.
func (c *Client) GetJSON(ctx context.Context, path string, out any, cfg *RequestConfig) error {
	return c.DoJSON(ctx, http.MethodGet, path, nil, out, cfg)
}

// PostJSON performs a POST and decodes the unwrapped payload into out.
func (c *Client) PostJSON(ctx context.Context, path string, body, out any, cfg *RequestConfig) error {
	return c.DoJSON(ctx, http.MethodPost, path, body, out, cfg)
}

// PutJSON performs a PUT and decodes the unwrapped payload into out.
func (c *Client) PutJSON(ctx context.Context, path string, body, out any, cfg *RequestConfig) error {
	return c.DoJSON(ctx, http.MethodPut, path, body, out, cfg)
}

// PatchJSON performs a PATCH and decodes the unwrapped payload into out.
func (c *Client) PatchJSON(ctx context.Context, path string, body, out any, cfg *RequestConfig) error {
	return c.DoJSON(ctx, http.MethodPatch, path, body, out, cfg)
}

// DeleteJSON performs a DELETE and decodes the unwrapped payload into out.
func (c *Client) DeleteJSON(ctx context.Context, path string, out any, cfg *RequestConfig) error {
	return c.DoJSON(ctx, http.MethodDelete, path, nil, out, cfg)
}

// DoJSON executes a call and decodes the unwrapped payload into out. A nil
// out discards the payload. Decode failures are reported as DECODE_ERROR
// with the response status.
func (c *Client) DoJSON(ctx context.Context, method, path string, body, out any, cfg *RequestConfig) error {
	payload, status, apiErr := c.do(ctx, method, path, body, cfg.orZero())
	if apiErr != nil {
		return apiErr
	}
	if decodeErr := decodePayload(payload, status, out); decodeErr != nil {
		decodeErr.Method = method
		decodeErr.URL = c.buildURL(path, cfg.orZero().Params)
		return decodeErr
	}
	return nil
}

// Fetch performs a GET and returns the payload decoded as T.
func Fetch[T any](ctx context.Context, c *Client, path string, cfg *RequestConfig) (T, error) {
	var out T
	err := c.DoJSON(ctx, http.MethodGet, path, nil, &out, cfg)
	return out, err
}

// Send performs a call with the given method and returns the payload
// decoded as T.
func Send[T any](ctx context.Context, c *Client, method, path string, body any, cfg *RequestConfig) (T, error) {
	var out T
	err := c.DoJSON(ctx, method, path, body, &out, cfg)
	return out, err
}

func decodePayload(payload json.RawMessage, status int, out any) *APIError {
	if out == nil || len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return &APIError{
			Message: "Failed to decode response payload",
			Status:  status,
			Code:    CodeDecodeError,
			Cause:   err,
		}
	}
	return nil
}
