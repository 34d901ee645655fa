package apiclient

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/tidwall/gjson"
)

// Envelope is the {success, data, error} wrapper returned by the backend.
// Backends that return a resource directly produce an Envelope with
// HasData unset; the resource is then available as Raw.
type Envelope struct {
	Success bool
	Data    json.RawMessage
	HasData bool
	Error   *EnvelopeError

	// Raw is the full response document.
	Raw json.RawMessage
	// Valid is false when the body could not be parsed as JSON.
	Valid bool
}

// EnvelopeError is the error object of a failed envelope.
type EnvelopeError struct {
	Message string          `json:"message"`
	Code    string          `json:"code,omitempty"`
	Details json.RawMessage `json:"details,omitempty"`
}

var (
	emptyDocument     = json.RawMessage(`{}`)
	unreadableMessage = json.RawMessage(`{"success":false,"error":{"message":"` + msgUnreadable + `"}}`)
)

// ParseEnvelope validates body and extracts the envelope fields. It never
// fails: an empty body reads as {} and malformed JSON yields a synthetic
// unsuccessful envelope.
func ParseEnvelope(body []byte) *Envelope {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return &Envelope{Raw: emptyDocument, Valid: true}
	}
	if !gjson.ValidBytes(trimmed) {
		return &Envelope{
			Raw:   unreadableMessage,
			Error: &EnvelopeError{Message: msgUnreadable, Code: CodeParseError},
		}
	}

	env := &Envelope{Raw: json.RawMessage(bytes.Clone(trimmed)), Valid: true}
	root := gjson.ParseBytes(trimmed)
	if !root.IsObject() {
		return env
	}

	env.Success = root.Get("success").Bool()
	if data := root.Get("data"); data.Exists() {
		env.HasData = true
		env.Data = json.RawMessage(data.Raw)
	}

	switch e := root.Get("error"); {
	case e.IsObject():
		env.Error = &EnvelopeError{
			Message: e.Get("message").String(),
			Code:    e.Get("code").String(),
		}
		if d := e.Get("details"); d.Exists() {
			env.Error.Details = json.RawMessage(d.Raw)
		}
	case e.Type == gjson.String:
		env.Error = &EnvelopeError{Message: e.String()}
	}

	return env
}

// Payload returns what a successful call resolves to: the whole document
// when skipUnwrap is set or data is absent, otherwise data.
func (e *Envelope) Payload(skipUnwrap bool) json.RawMessage {
	if skipUnwrap || !e.HasData {
		return e.Raw
	}
	return e.Data
}

// statusError builds the typed error for a non-2xx response or an
// unparseable body.
func (e *Envelope) statusError(status int) *APIError {
	apiErr := &APIError{
		Message: msgRequestFailed,
		Status:  status,
	}
	if e.Error != nil {
		if e.Error.Message != "" {
			apiErr.Message = e.Error.Message
		}
		apiErr.Code = e.Error.Code
		apiErr.Details = e.Error.Details
	}
	return apiErr
}

// interpret maps a transport response onto the payload/typed-error contract.
func interpret(status int, body []byte, skipUnwrap bool) (json.RawMessage, *APIError) {
	env := ParseEnvelope(body)
	if !isSuccess(status) || !env.Valid {
		return nil, env.statusError(status)
	}
	return env.Payload(skipUnwrap), nil
}

func isSuccess(status int) bool {
	return status >= http.StatusOK && status < http.StatusMultipleChoices
}
