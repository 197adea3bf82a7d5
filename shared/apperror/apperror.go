// Package apperror defines the error taxonomy shared by every service.
//
// An *Error either carries a message that handlers render as {"error": ...},
// or, when it wraps a failed backend response, the backend's raw status and body
// so the gateway can return them to its caller unchanged.
package apperror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error
type Kind string

// Kind constants
const (
	KindInvalidInput        Kind = "invalid_input"
	KindNotFound            Kind = "not_found"
	KindConflict            Kind = "conflict"
	KindUpstreamUnavailable Kind = "upstream_unavailable"
	KindInternal            Kind = "internal"
)

// Status returns the HTTP status a kind maps to
func (k Kind) Status() int {
	switch k {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUpstreamUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error is the concrete error type returned across service boundaries
type Error struct {
	Kind    Kind
	Message string
	// Status overrides Kind.Status() when non-zero (backend passthrough)
	Status int
	// Body is a backend response body returned verbatim when set
	Body json.RawMessage
	// Details are merged into the rendered {"error": ...} object
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus returns the status code to respond with
func (e *Error) HTTPStatus() int {
	if e.Status != 0 {
		return e.Status
	}
	return e.Kind.Status()
}

// ResponseBody renders the JSON body for this error
func (e *Error) ResponseBody() json.RawMessage {
	if len(e.Body) > 0 {
		return e.Body
	}
	body := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		body[k] = v
	}
	body["error"] = e.Message
	raw, err := json.Marshal(body)
	if err != nil {
		return json.RawMessage(`{"error":"internal error"}`)
	}
	return raw
}

// WithDetails returns e with extra fields for the rendered body
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// InvalidInput reports a malformed or out-of-range request field
func InvalidInput(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidInput, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports an unknown resource
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Conflict reports an operation incompatible with the current state
func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// Upstream reports a backend call that could not be completed
func Upstream(service string, err error) *Error {
	return &Error{
		Kind:    KindUpstreamUnavailable,
		Message: fmt.Sprintf("%s unavailable", service),
		Err:     err,
	}
}

// Internal reports an unexpected failure
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", Err: err}
}

// FromResponse wraps a backend error response so it can be propagated verbatim
func FromResponse(status int, body []byte) *Error {
	e := &Error{Kind: kindForStatus(status), Status: status}

	var parsed struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if len(body) > 0 && json.Valid(body) {
		e.Body = append(json.RawMessage(nil), body...)
		if err := json.Unmarshal(body, &parsed); err == nil {
			e.Message = parsed.Error
			if e.Message == "" {
				e.Message = parsed.Message
			}
		}
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	if len(e.Body) == 0 {
		// Non-JSON bodies still get the {"error": ...} shape
		if len(body) > 0 {
			e.Message = string(body)
		}
	}
	return e
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusConflict:
		return KindConflict
	case status >= 400 && status < 500:
		return KindInvalidInput
	case status == http.StatusBadGateway || status == http.StatusServiceUnavailable || status == http.StatusGatewayTimeout:
		return KindUpstreamUnavailable
	default:
		return KindInternal
	}
}

// As extracts an *Error from err
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf returns the kind of err, KindInternal for foreign errors
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return KindInternal
}

// StatusOf returns the HTTP status for err
func StatusOf(err error) int {
	if appErr, ok := As(err); ok {
		return appErr.HTTPStatus()
	}
	return http.StatusInternalServerError
}
