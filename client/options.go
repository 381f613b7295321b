package client

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/adsgraph/adsgraph/apierr"
	"github.com/adsgraph/adsgraph/internal/metrics"
)

// Option mutates the Client during NewClient.
type Option func(*Client) error

func optionError(reason string, err error) error {
	return &apierr.ConfigError{Field: "option", Reason: reason, Err: err}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc == nil {
			return optionError("http client is nil", nil)
		}
		c.HTTPClient = hc
		return nil
	}
}

// WithHTTPTimeout bounds every exchange. Exceeding it is reported as a
// timeout TransportError. It applies regardless of option order and never
// changes an http.Client passed to WithHTTPClient.
func WithHTTPTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return optionError("http timeout must be > 0", nil)
		}
		c.httpTimeout = d
		return nil
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) error {
		if strings.TrimSpace(ua) == "" {
			return optionError("user agent is empty", nil)
		}
		c.UserAgent = ua
		return nil
	}
}

// WithLogger sets the logger; the default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) error {
		c.logger = l
		return nil
	}
}

// WithTokenSource supplies access tokens instead of the static token from
// the configuration.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(c *Client) error {
		if ts == nil {
			return optionError("token source is nil", nil)
		}
		c.tokens = ts
		return nil
	}
}

// WithProxy sends all traffic through an HTTP(S) proxy. It requires the
// client's transport to be an *http.Transport.
func WithProxy(proxyURL string) Option {
	return func(c *Client) error {
		u, err := url.Parse(proxyURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return optionError("invalid proxy url "+proxyURL, err)
		}
		var base *http.Transport
		switch t := c.HTTPClient.Transport.(type) {
		case nil:
			base = http.DefaultTransport.(*http.Transport).Clone()
		case *http.Transport:
			base = t.Clone()
		default:
			return optionError("proxy needs an *http.Transport", nil)
		}
		base.Proxy = http.ProxyURL(u)

		hc := *c.HTTPClient
		hc.Transport = base
		c.HTTPClient = &hc
		return nil
	}
}

// WithMetrics registers dispatch metrics with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *Client) error {
		if reg == nil {
			return optionError("metrics registerer is nil", nil)
		}
		m, err := metrics.New(reg)
		if err != nil {
			return optionError("register metrics", err)
		}
		c.metrics = m
		return nil
	}
}

// WithRequestIDHeader adds a fresh UUID under name to every request, for
// correlating calls in gateway logs.
func WithRequestIDHeader(name string) Option {
	return func(c *Client) error {
		if strings.TrimSpace(name) == "" {
			return optionError("request id header name is empty", nil)
		}
		c.requestIDHeader = name
		return nil
	}
}

// WithMaxBodySize caps the buffered response body. Larger bodies fail with
// a TransportError wrapping ErrBodyTooLarge.
func WithMaxBodySize(n int64) Option {
	return func(c *Client) error {
		if n < 1 {
			return optionError("max body size must be >= 1", nil)
		}
		c.maxBodyBytes = n
		return nil
	}
}

// WithMaxConcurrency bounds DispatchAll.
func WithMaxConcurrency(n int) Option {
	return func(c *Client) error {
		if n < 1 {
			return optionError("max concurrency must be >= 1", nil)
		}
		c.maxConcurrency = n
		return nil
	}
}
