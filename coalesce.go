package apiclient

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
)

// CoalesceKeyFunc builds the key identifying identical in-flight reads.
type CoalesceKeyFunc func(path string, params map[string]string, token, orgID string) string

// DefaultCoalesceKeyFunc derives the key from path, the JSON form of params
// (encoding/json sorts map keys), token and org id. The tuple is hashed so the
// token never appears in logs.
func DefaultCoalesceKeyFunc(path string, params map[string]string, token, orgID string) string {
	encodedParams, err := json.Marshal(params)
	if err != nil {
		encodedParams = nil
	}
	tuple, _ := json.Marshal([]string{path, string(encodedParams), token, orgID})

	sum := sha256.Sum256(tuple)
	return hex.EncodeToString(sum[:])
}

// CoalesceCondition decides whether a method participates in coalescing.
type CoalesceCondition func(method string) bool

// DefaultCoalesceCondition admits GET and the unspecified method only.
func DefaultCoalesceCondition(method string) bool {
	return method == "" || method == http.MethodGet
}

// fetchResult is the transport outcome shared between coalesced callers.
// Callers must treat body as read-only.
type fetchResult struct {
	status int
	body   []byte
}
