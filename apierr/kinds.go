package apierr

import (
	"errors"
	"fmt"
)

// TransportKind narrows down a network-level failure.
type TransportKind int

const (
	Network TransportKind = iota
	Timeout
	Canceled
)

func (k TransportKind) String() string {
	switch k {
	case Timeout:
		return "timeout"
	case Canceled:
		return "canceled"
	default:
		return "network"
	}
}

// TransportError reports that no HTTP response was obtained (DNS, refused
// connection, timeout). It is never retried by the client.
type TransportError struct {
	Kind   TransportKind
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %s: %v", e.Method, e.URL, e.Kind, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Timeout reports whether the exchange ran past its deadline.
func (e *TransportError) Timeout() bool { return e.Kind == Timeout }

// ConfigError reports bad or missing setup: an unusable base path, a missing
// account id for an account-scoped call, an unreadable config file.
type ConfigError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	msg := "configuration"
	if e.Field != "" {
		msg += " " + e.Field
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Kind tags which of the three failure kinds an error belongs to, so callers
// can switch on it instead of chaining errors.As.
type Kind int

const (
	KindNone Kind = iota
	KindConfiguration
	KindTransport
	KindAPI
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindConfiguration:
		return "configuration"
	case KindTransport:
		return "transport"
	case KindAPI:
		return "api"
	default:
		return "unknown"
	}
}

// KindOf returns the kind of err, looking through wrapping.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return KindAPI
	}
	var tErr *TransportError
	if errors.As(err, &tErr) {
		return KindTransport
	}
	var cErr *ConfigError
	if errors.As(err, &cErr) {
		return KindConfiguration
	}
	return KindUnknown
}
