package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/adsgraph/adsgraph/apierr"
	"github.com/adsgraph/adsgraph/config"
	"github.com/adsgraph/adsgraph/internal/utils"
)

// query parameters that never reach logs or errors verbatim
var secretParams = []string{"access_token", "appsecret_proof"}

// URL returns the absolute URL req would be sent to, without the
// appsecret_proof parameter.
func (c *Client) URL(req Request) (string, error) {
	return c.buildURL(req, "")
}

func (c *Client) buildURL(req Request, token string) (string, error) {
	base, err := url.Parse(c.cfg.BasePath())
	if err != nil {
		return "", &apierr.ConfigError{Field: "base_path", Reason: "unparsable", Err: err}
	}

	segs := make([]string, 0, len(req.Path)+1)
	if c.cfg.UsesDefaultOrigin() {
		segs = append(segs, c.cfg.APIVersion())
	}
	for _, p := range req.Path {
		for _, s := range strings.Split(p, "/") {
			if s == "" {
				continue
			}
			if s == "." || s == ".." {
				return "", &apierr.ConfigError{Field: "path", Reason: "relative segment " + s}
			}
			segs = append(segs, url.PathEscape(s))
		}
	}
	u := base.JoinPath(segs...)

	q := u.Query()
	for k, vs := range req.Query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	if proof := c.cfg.AppSecretProof(token); proof != "" {
		q.Set("appsecret_proof", proof)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Dispatch sends req and returns the raw envelope for any HTTP status.
// Failing to get a response at all yields a *apierr.TransportError; a setup
// problem found before any I/O yields a *apierr.ConfigError.
func (c *Client) Dispatch(ctx context.Context, req Request) (*Response, error) {
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	accountID := c.cfg.AccountIDHeader()
	if req.AccountScoped && accountID == "" {
		return nil, &apierr.ConfigError{
			Field:  "account_id",
			Reason: "account-scoped request without a configured account id",
		}
	}
	scoped := req.AccountScoped || isAccountPath(req.Path)

	tok, err := c.token()
	if err != nil {
		return nil, &apierr.ConfigError{Field: "access_token", Reason: "token source failed", Err: err}
	}
	accessToken := ""
	if tok != nil {
		accessToken = tok.AccessToken
	}

	u, err := c.buildURL(req, accessToken)
	if err != nil {
		return nil, err
	}

	body, contentType, err := utils.EncodeBody(req.Body)
	if err != nil {
		return nil, &apierr.ConfigError{Field: "body", Reason: "cannot encode request body", Err: err}
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, &apierr.ConfigError{Field: "request", Reason: "build request", Err: err}
	}
	c.setHeaders(httpReq, req.Header, tok, contentType)
	if scoped && accountID != "" {
		httpReq.Header.Set(config.AccountIDHeader, accountID)
	}

	logURL := redactURL(u)
	done := c.metrics.Start()
	defer done()
	start := time.Now()

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, c.transportFailure(method, logURL, start, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes+1))
	if err != nil {
		return nil, c.transportFailure(method, logURL, start, err)
	}
	if int64(len(data)) > c.maxBodyBytes {
		err = fmt.Errorf("%w: status %d, more than %d bytes", ErrBodyTooLarge, resp.StatusCode, c.maxBodyBytes)
		return nil, c.transportFailure(method, logURL, start, err)
	}

	elapsed := time.Since(start)
	c.metrics.ObserveRequest(method, c.originLabel(), resp.StatusCode, elapsed)
	c.logger.Debug().
		Str("method", method).
		Str("url", logURL).
		Int("status", resp.StatusCode).
		Int("bytes", len(data)).
		Dur("elapsed", elapsed).
		Msg("graph request")

	return &Response{
		Status: resp.StatusCode,
		Header: resp.Header.Clone(),
		Body:   data,
	}, nil
}

// Do dispatches req and classifies the result. A recognized error body or a
// status >= 400 returns the envelope together with a *apierr.APIError.
// Otherwise a non-empty body is decoded into v when v is non-nil.
func (c *Client) Do(ctx context.Context, req Request, v any) (*Response, error) {
	resp, err := c.Dispatch(ctx, req)
	if err != nil {
		return nil, err
	}

	if apiErr, ok := apierr.Classify(resp); ok {
		c.metrics.ObserveError("api", apiErr.ErrorType())
		c.logger.Warn().
			Int("status", apiErr.HTTPStatus()).
			Str("type", apiErr.ErrorType()).
			Str("code", string(apiErr.ErrorCode())).
			Str("trace_id", apiErr.TraceID()).
			Str("shape", apiErr.Shape().String()).
			Msg(apiErr.ErrorMessage())
		return resp, apiErr
	}

	if v != nil && len(bytes.TrimSpace(resp.Body)) > 0 {
		if err := json.Unmarshal(resp.Body, v); err != nil {
			return resp, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp, nil
}

// Call is Do with the result decoded into a fresh T.
func Call[T any](ctx context.Context, c *Client, req Request) (T, error) {
	var out T
	if _, err := c.Do(ctx, req, &out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

func (c *Client) token() (*oauth2.Token, error) {
	if c.tokens == nil {
		return nil, nil
	}
	tok, err := c.tokens.Token()
	if err != nil {
		return nil, err
	}
	if tok == nil || tok.AccessToken == "" {
		return nil, nil
	}
	return tok, nil
}

// setHeaders applies, in order: auth and defaults, configured custom
// headers, then per-request headers. Later layers replace earlier ones.
func (c *Client) setHeaders(r *http.Request, extra http.Header, tok *oauth2.Token, contentType string) {
	if tok != nil {
		tok.SetAuthHeader(r)
	}
	r.Header.Set("User-Agent", c.UserAgent)
	r.Header.Set("Accept", "application/json")
	if contentType != "" {
		r.Header.Set("Content-Type", contentType)
	}
	if c.requestIDHeader != "" {
		r.Header.Set(c.requestIDHeader, uuid.NewString())
	}
	for k, v := range c.cfg.CustomHeaders() {
		r.Header.Set(k, v)
	}
	for k, vs := range extra {
		r.Header.Del(k)
		for _, v := range vs {
			r.Header.Add(k, v)
		}
	}
}

func (c *Client) transportFailure(method, logURL string, start time.Time, err error) error {
	kind := transportKind(err)
	c.metrics.ObserveRequest(method, c.originLabel(), 0, time.Since(start))
	c.metrics.ObserveError("transport", kind.String())
	c.logger.Warn().
		Err(err).
		Str("method", method).
		Str("url", logURL).
		Str("kind", kind.String()).
		Msg("graph request failed")
	return &apierr.TransportError{Kind: kind, Method: method, URL: logURL, Err: err}
}

func transportKind(err error) apierr.TransportKind {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return apierr.Timeout
	case errors.Is(err, context.Canceled):
		return apierr.Canceled
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return apierr.Timeout
	}
	return apierr.Network
}

func isAccountPath(path []string) bool {
	for _, p := range path {
		p = strings.TrimLeft(p, "/")
		if p == "" {
			continue
		}
		return strings.HasPrefix(p, config.AccountIDPrefix)
	}
	return false
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.RawQuery == "" {
		return raw
	}
	q := u.Query()
	for _, k := range secretParams {
		if q.Has(k) {
			q.Set(k, "REDACTED")
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}
