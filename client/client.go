// Package client sends Graph API requests through a resolved
// config.Configuration, either straight to the provider or through a gateway
// that fronts it, and turns failed responses into *apierr.APIError.
package client

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/adsgraph/adsgraph/apierr"
	"github.com/adsgraph/adsgraph/config"
	"github.com/adsgraph/adsgraph/internal/metrics"
)

const (
	defaultUserAgent      = "adsgraph/0.1"
	defaultHTTPTimeout    = 60 * time.Second
	defaultMaxConcurrency = 4

	// defaultMaxBodyBytes caps how much of a response body is buffered.
	defaultMaxBodyBytes = 50 << 20
)

// ErrBodyTooLarge is wrapped in the TransportError returned when a response
// body exceeds the configured cap.
var ErrBodyTooLarge = errors.New("response body exceeds size limit")

// Response is the raw envelope of one exchange.
type Response = apierr.Response

// Request describes one call. Path segments are joined in order; a segment
// may itself contain slashes.
type Request struct {
	Method string // GET when empty
	Path   []string
	Query  url.Values

	// Body: nil, url.Values (form), []byte / string / io.Reader (raw) or
	// any value encodable as JSON.
	Body any

	// Header is applied together with the configured custom headers.
	Header http.Header

	// AccountScoped requires the account id header. Paths starting with an
	// "act_" segment get the header too when an account id is configured.
	AccountScoped bool

	// Timeout bounds this call on top of the client-wide HTTP timeout.
	Timeout time.Duration
}

// Client dispatches requests. It is safe for concurrent use; the underlying
// http.Client is the only shared mutable state.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string

	cfg             *config.Configuration
	logger          zerolog.Logger
	tokens          oauth2.TokenSource
	metrics         *metrics.Collector
	requestIDHeader string
	maxConcurrency  int
	httpTimeout     time.Duration
	maxBodyBytes    int64
}

// NewClient creates a client bound to cfg. A nil cfg means the active
// configuration set by config.Init; if there is none, a *apierr.ConfigError
// is returned.
func NewClient(cfg *config.Configuration, opts ...Option) (*Client, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if cfg == nil {
		return nil, &apierr.ConfigError{
			Field:  "configuration",
			Reason: "none given and config.Init was not called",
		}
	}

	c := &Client{
		HTTPClient: &http.Client{
			Timeout:   defaultHTTPTimeout,
			Transport: defaultTransport(),
		},
		UserAgent:      defaultUserAgent,
		cfg:            cfg,
		logger:         zerolog.Nop(),
		maxConcurrency: defaultMaxConcurrency,
		maxBodyBytes:   defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.httpTimeout > 0 {
		hc := *c.HTTPClient
		hc.Timeout = c.httpTimeout
		c.HTTPClient = &hc
	}
	if c.tokens == nil && cfg.AccessToken() != "" {
		c.tokens = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.AccessToken()})
	}

	c.logger.Debug().Object("config", cfg).Msg("graph client configured")
	return c, nil
}

// Config returns the configuration the client was built with.
func (c *Client) Config() *config.Configuration {
	return c.cfg
}

func defaultTransport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 100
	t.MaxIdleConnsPerHost = 10
	t.IdleConnTimeout = 90 * time.Second
	return t
}

func (c *Client) originLabel() string {
	if c.cfg.UsesDefaultOrigin() {
		return "provider"
	}
	return "gateway"
}
