// Package apierr classifies failed Graph API responses and defines the error
// kinds returned by adsgraph: *ConfigError for bad setup, *TransportError for
// network-level failures and *APIError for anything the server (or a gateway
// in front of it) reported as a failure.
package apierr

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// Error types used when the payload is not a native provider error.
const (
	TypeGateway  = "ApigeeError"
	TypeFallback = "HTTPError"
)

// Response is the raw envelope of one HTTP exchange. The body is fully read;
// nothing downstream needs the network connection.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Shape tells which payload layout produced a NormalizedError.
type Shape int

const (
	ShapeFallback Shape = iota
	ShapeNative
	ShapeGateway
)

func (s Shape) String() string {
	switch s {
	case ShapeNative:
		return "native"
	case ShapeGateway:
		return "gateway"
	default:
		return "fallback"
	}
}

// Code is an error code as sent by the server. Native errors carry numbers
// ("190"), gateway errors carry dotted identifiers ("oauth.v2.InvalidApiKey").
type Code string

// Int returns the numeric value of c when it is one.
func (c Code) Int() (int, bool) {
	n, err := strconv.Atoi(string(c))
	if err != nil {
		return 0, false
	}
	return n, true
}

// NormalizedError is the single error record both payload shapes map onto.
type NormalizedError struct {
	HTTPStatus  int
	Type        string
	Code        Code
	Message     string
	Subcode     *int
	TraceID     string
	UserTitle   string
	UserMessage string
	IsTransient bool
	Shape       Shape
}

// APIError is returned for every HTTP-level failure. It is the only error
// type resource code is expected to inspect; both native and gateway
// payloads surface through it.
type APIError struct {
	norm NormalizedError
	resp *Response
}

// NewAPIError wraps n and the envelope it was parsed from. The record is
// copied, so later changes to n do not leak into the error.
func NewAPIError(n NormalizedError, resp *Response) *APIError {
	if n.Subcode != nil {
		sc := *n.Subcode
		n.Subcode = &sc
	}
	return &APIError{norm: n, resp: resp}
}

func (e *APIError) Error() string {
	var b strings.Builder
	b.WriteString(e.norm.Type)
	b.WriteString(": ")
	if e.norm.Message != "" {
		b.WriteString(e.norm.Message)
	} else {
		b.WriteString(http.StatusText(e.norm.HTTPStatus))
	}
	if e.norm.Code != "" {
		fmt.Fprintf(&b, " (code %s", e.norm.Code)
		if e.norm.Subcode != nil {
			fmt.Fprintf(&b, ", subcode %d", *e.norm.Subcode)
		}
		b.WriteString(")")
	}
	if e.norm.HTTPStatus != 0 {
		fmt.Fprintf(&b, " [status %d]", e.norm.HTTPStatus)
	}
	if e.norm.TraceID != "" {
		fmt.Fprintf(&b, " [trace %s]", e.norm.TraceID)
	}
	return b.String()
}

func (e *APIError) ErrorType() string    { return e.norm.Type }
func (e *APIError) ErrorCode() Code      { return e.norm.Code }
func (e *APIError) ErrorMessage() string { return e.norm.Message }
func (e *APIError) TraceID() string      { return e.norm.TraceID }
func (e *APIError) HTTPStatus() int      { return e.norm.HTTPStatus }
func (e *APIError) Shape() Shape         { return e.norm.Shape }

// Subcode returns the native error_subcode, if the server sent one.
func (e *APIError) Subcode() (int, bool) {
	if e.norm.Subcode == nil {
		return 0, false
	}
	return *e.norm.Subcode, true
}

// Normalized returns a copy of the normalized record.
func (e *APIError) Normalized() NormalizedError {
	n := e.norm
	if n.Subcode != nil {
		sc := *n.Subcode
		n.Subcode = &sc
	}
	return n
}

// Body returns a copy of the raw response body.
func (e *APIError) Body() []byte {
	if e.resp == nil {
		return nil
	}
	return append([]byte(nil), e.resp.Body...)
}

// Header returns the response headers. Callers must not modify them.
func (e *APIError) Header() http.Header {
	if e.resp == nil {
		return nil
	}
	return e.resp.Header
}
