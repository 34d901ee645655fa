package apiclient

import (
	"net/http"
	"testing"
)

func TestRequestConfigOrZero(t *testing.T) {
	var nilCfg *RequestConfig
	zero := nilCfg.orZero()
	if zero.Token != "" || zero.OrgID != "" || zero.Params != nil || zero.SkipUnwrap {
		t.Errorf("Expected zero config, got %+v", zero)
	}

	cfg := &RequestConfig{Token: "t", SkipUnwrap: true}
	copied := cfg.orZero()
	copied.Token = "changed"
	if cfg.Token != "t" {
		t.Error("orZero must return a copy")
	}
	if !copied.SkipUnwrap {
		t.Error("Expected fields to be copied")
	}
}

func TestRoundTripperFunc(t *testing.T) {
	called := false
	var rt RoundTripper = RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
		called = true
		return &http.Response{StatusCode: http.StatusOK}, nil
	})

	req, _ := http.NewRequest(http.MethodGet, "https://example.com", nil)
	resp, err := rt.RoundTrip(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called || resp.StatusCode != http.StatusOK {
		t.Error("Expected wrapped function to be called")
	}
}

func TestHeaderNames(t *testing.T) {
	if http.CanonicalHeaderKey(HeaderOrganizationID) != "X-Organization-Id" {
		t.Errorf("unexpected canonical form %q", http.CanonicalHeaderKey(HeaderOrganizationID))
	}
	if HeaderAuthorization != "Authorization" {
		t.Errorf("unexpected auth header %q", HeaderAuthorization)
	}
}
