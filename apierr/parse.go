package apierr

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"
)

// maxFallbackBody caps how much of an unrecognized body ends up in the message.
const maxFallbackBody = 512

// nativeEnvelope is the provider's own layout: {"error": {...}}.
type nativeEnvelope struct {
	Error *nativeError `json:"error"`
}

type nativeError struct {
	Message      string          `json:"message"`
	Type         string          `json:"type"`
	Code         json.RawMessage `json:"code"`
	ErrorSubcode json.RawMessage `json:"error_subcode"`
	FBTraceID    string          `json:"fbtrace_id"`
	UserTitle    string          `json:"error_user_title"`
	UserMessage  string          `json:"error_user_msg"`
	IsTransient  bool            `json:"is_transient"`
}

// gatewayEnvelope is what an Apigee-style proxy sends when it rejects a call
// itself: {"fault": {"faultstring": "...", "detail": {"errorcode": "..."}}}.
type gatewayEnvelope struct {
	Fault *gatewayFault `json:"fault"`
}

type gatewayFault struct {
	FaultString string `json:"faultstring"`
	Detail      *struct {
		ErrorCode json.RawMessage `json:"errorcode"`
	} `json:"detail"`
}

// Parse maps a failed response body onto a NormalizedError. It tries the
// native shape, then the gateway shape, then builds a fallback record. It
// never fails: malformed bodies end up in the fallback.
func Parse(body []byte, status int) NormalizedError {
	if n, ok := Detect(body); ok {
		n.HTTPStatus = status
		return n
	}
	return fallback(body, status)
}

// Detect probes body for one of the two known error shapes. It reports false
// for anything else, including non-JSON input.
func Detect(body []byte) (NormalizedError, bool) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return NormalizedError{}, false
	}
	if n, ok := decodeNative(trimmed); ok {
		return n, true
	}
	if n, ok := decodeGateway(trimmed); ok {
		return n, true
	}
	return NormalizedError{}, false
}

// Classify decides whether resp is a failure. A recognized error body wins
// over the status code, so a 200 carrying a fault is still an error. Status
// >= 400 without a recognized body yields the fallback record.
func Classify(resp *Response) (*APIError, bool) {
	if resp == nil {
		return nil, false
	}
	n, ok := Detect(resp.Body)
	switch {
	case ok:
		n.HTTPStatus = resp.Status
	case resp.Status >= http.StatusBadRequest:
		n = fallback(resp.Body, resp.Status)
	default:
		return nil, false
	}
	return NewAPIError(n, resp), true
}

func decodeNative(body []byte) (NormalizedError, bool) {
	var env nativeEnvelope
	if !decodeLenient(body, &env) || env.Error == nil {
		return NormalizedError{}, false
	}
	e := env.Error
	code := codeFromRaw(e.Code)
	if e.Message == "" && e.Type == "" && code == "" {
		return NormalizedError{}, false
	}
	return NormalizedError{
		Type:        e.Type,
		Code:        code,
		Message:     e.Message,
		Subcode:     intFromRaw(e.ErrorSubcode),
		TraceID:     e.FBTraceID,
		UserTitle:   e.UserTitle,
		UserMessage: e.UserMessage,
		IsTransient: e.IsTransient,
		Shape:       ShapeNative,
	}, true
}

func decodeGateway(body []byte) (NormalizedError, bool) {
	var env gatewayEnvelope
	if !decodeLenient(body, &env) || env.Fault == nil {
		return NormalizedError{}, false
	}
	var code Code
	if env.Fault.Detail != nil {
		code = codeFromRaw(env.Fault.Detail.ErrorCode)
	}
	if env.Fault.FaultString == "" && code == "" {
		return NormalizedError{}, false
	}
	return NormalizedError{
		Type:    TypeGateway,
		Code:    code,
		Message: env.Fault.FaultString,
		Shape:   ShapeGateway,
	}, true
}

func fallback(body []byte, status int) NormalizedError {
	text := strings.TrimSpace(string(body))
	if len(text) > maxFallbackBody {
		i := maxFallbackBody
		for i > 0 && !utf8.RuneStart(text[i]) {
			i--
		}
		text = text[:i] + "..."
	}
	if text == "" {
		text = http.StatusText(status)
	}
	return NormalizedError{
		HTTPStatus: status,
		Type:       TypeFallback,
		Message:    fmt.Sprintf("HTTP %d: %s", status, text),
		Shape:      ShapeFallback,
	}
}

// decodeLenient accepts a partial decode when only some fields had the wrong
// JSON type; a syntax error or a non-object document is a miss.
func decodeLenient(body []byte, v any) bool {
	err := json.Unmarshal(body, v)
	if err == nil {
		return true
	}
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &typeErr) && typeErr.Field != ""
}

func codeFromRaw(raw json.RawMessage) Code {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return Code(strings.TrimSpace(s))
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return ""
	}
	return Code(n.String())
}

func intFromRaw(raw json.RawMessage) *int {
	c := codeFromRaw(raw)
	if c == "" {
		return nil
	}
	n, err := strconv.Atoi(string(c))
	if err != nil {
		return nil
	}
	return &n
}
