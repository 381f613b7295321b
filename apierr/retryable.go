package apierr

import (
	"errors"
	"io"
	"net/http"
	"syscall"
)

// IsRetryable says "worth another shot?". The client itself never retries;
// this is for callers that wrap it with their own policy.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var tErr *TransportError
	if errors.As(err, &tErr) && tErr.Kind == Canceled {
		return false
	}

	// timeouts from net/http, http2, tls, etc.
	var to interface{ Timeout() bool }
	if errors.As(err, &to) && to.Timeout() {
		return true
	}

	// flaky connections / short reads
	if errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.norm.IsTransient {
			return true
		}
		switch apiErr.HTTPStatus() {
		case http.StatusRequestTimeout, // 408
			http.StatusTooEarly,            // 425
			http.StatusTooManyRequests,     // 429
			http.StatusInternalServerError, // 500
			http.StatusBadGateway,          // 502
			http.StatusServiceUnavailable,  // 503
			http.StatusGatewayTimeout:      // 504
			return true
		}
	}
	return false
}

// IsRateLimited reports a 429 from either the provider or the gateway.
func IsRateLimited(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.HTTPStatus() == http.StatusTooManyRequests
}
