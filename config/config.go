// Package config resolves the settings a client needs to reach the Graph API:
// which origin to talk to (the provider directly or a gateway in front of
// it), which headers to add to every call, which account the calls act for,
// and the provider credentials.
//
// A Configuration is built once and never changes afterwards.
package config

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"maps"
	"net/url"
	"regexp"
	"slices"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/rs/zerolog"

	"github.com/adsgraph/adsgraph/apierr"
)

const (
	// DefaultBasePath is the provider's public Graph endpoint.
	DefaultBasePath = "https://graph.facebook.com"

	// EnvBasePath overrides the default origin, e.g. to route calls
	// through an Apigee proxy. An explicit BasePath still wins over it.
	EnvBasePath = "FACEBOOK_GRAPH_BASE_URL"

	DefaultAPIVersion = "v24.0"

	// AccountIDPrefix marks account-scoped ids in the object model.
	AccountIDPrefix = "act_"

	// AccountIDHeader carries the bare account id to gateways that need it.
	AccountIDHeader = "X-CC-Account-Id"
)

var (
	versionRe     = regexp.MustCompile(`^v\d+(\.\d+)?$`)
	accountIDRe   = regexp.MustCompile(`^\d+$`)
	headerTokenRe = regexp.MustCompile("^[!#$%&'*+\\-.^_`|~0-9A-Za-z]+$")
)

// Origin records which source produced the base path.
type Origin int

const (
	OriginDefault Origin = iota
	OriginEnvironment
	OriginArgument
)

func (o Origin) String() string {
	switch o {
	case OriginArgument:
		return "argument"
	case OriginEnvironment:
		return "environment"
	default:
		return "default"
	}
}

// Params are the explicit inputs to Resolve. Zero values mean "not given".
type Params struct {
	BasePath         string            `yaml:"base_path"`
	CustomHeaders    map[string]string `yaml:"custom_headers"`
	AccountID        string            `yaml:"account_id"`
	RequireAccountID bool              `yaml:"require_account_id"`
	APIVersion       string            `yaml:"api_version"`

	AppID       string `yaml:"app_id"`
	AppSecret   string `yaml:"app_secret"`
	AccessToken string `yaml:"access_token"`
}

// Configuration is the resolved, immutable client configuration.
type Configuration struct {
	basePath      string
	origin        Origin
	customHeaders map[string]string
	accountID     string
	apiVersion    string

	appID       string
	appSecret   string
	accessToken string
}

// Resolve builds a Configuration from p and the environment. The base path
// comes from p.BasePath, else from EnvBasePath, else DefaultBasePath; the
// first non-empty source wins and the rest are not looked at. getenv defaults
// to the process environment read through GetEnv.
func Resolve(p Params, getenv func(string) string) (*Configuration, error) {
	if getenv == nil {
		getenv = processEnv
	}

	base, origin := resolveBasePath(p.BasePath, getenv)
	accountID := StripAccountPrefix(strings.TrimSpace(p.AccountID))
	version := strings.TrimSpace(p.APIVersion)
	if version == "" {
		version = DefaultAPIVersion
	}

	errs := validation.Errors{
		"base_path":      validation.Validate(base, validation.Required, validation.By(absoluteHTTPURL)),
		"custom_headers": validation.Validate(p.CustomHeaders, validation.By(headerNames)),
		"account_id":     validation.Validate(accountID, validation.When(p.RequireAccountID, validation.Required, validation.Match(accountIDRe).Error("must be digits after the act_ prefix"))),
		"api_version":    validation.Validate(version, validation.Match(versionRe)),
	}
	if err := errs.Filter(); err != nil {
		return nil, configError(err)
	}

	return &Configuration{
		basePath:      base,
		origin:        origin,
		customHeaders: maps.Clone(p.CustomHeaders),
		accountID:     accountID,
		apiVersion:    version,
		appID:         p.AppID,
		appSecret:     p.AppSecret,
		accessToken:   p.AccessToken,
	}, nil
}

func resolveBasePath(arg string, getenv func(string) string) (string, Origin) {
	if v := strings.TrimSpace(arg); v != "" {
		return strings.TrimRight(v, "/"), OriginArgument
	}
	if v := strings.TrimSpace(getenv(EnvBasePath)); v != "" {
		return strings.TrimRight(v, "/"), OriginEnvironment
	}
	return DefaultBasePath, OriginDefault
}

// StripAccountPrefix removes one leading "act_" from id.
func StripAccountPrefix(id string) string {
	return strings.TrimPrefix(id, AccountIDPrefix)
}

func (c *Configuration) BasePath() string   { return c.basePath }
func (c *Configuration) Origin() Origin     { return c.origin }
func (c *Configuration) APIVersion() string { return c.apiVersion }
func (c *Configuration) AppID() string      { return c.appID }
func (c *Configuration) AppSecret() string  { return c.appSecret }
func (c *Configuration) AccessToken() string {
	return c.accessToken
}

// AccountIDHeader returns the account id without its "act_" prefix, or ""
// when none was configured.
func (c *Configuration) AccountIDHeader() string { return c.accountID }

// CustomHeaders returns a copy of the headers added to every request.
func (c *Configuration) CustomHeaders() map[string]string {
	return maps.Clone(c.customHeaders)
}

// UsesDefaultOrigin reports whether calls go straight to the provider. Only
// then is the API version part of the URL; a gateway base path is taken as
// complete up to the resource path.
func (c *Configuration) UsesDefaultOrigin() bool {
	return c.basePath == DefaultBasePath
}

// AppSecretProof returns the hex HMAC-SHA256 of token keyed by the app
// secret, or "" when either is missing.
func (c *Configuration) AppSecretProof(token string) string {
	if c.appSecret == "" || token == "" {
		return ""
	}
	h := hmac.New(sha256.New, []byte(c.appSecret))
	h.Write([]byte(token))
	return hex.EncodeToString(h.Sum(nil))
}

// MarshalZerologObject logs the non-secret parts of c.
func (c *Configuration) MarshalZerologObject(e *zerolog.Event) {
	e.Str("base_path", c.basePath).
		Str("origin", c.origin.String()).
		Str("api_version", c.apiVersion).
		Bool("account_id_set", c.accountID != "").
		Strs("custom_headers", slices.Sorted(maps.Keys(c.customHeaders)))
}

func absoluteHTTPURL(value any) error {
	s, _ := value.(string)
	u, err := url.Parse(s)
	if err != nil {
		return errors.New("must be a valid URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("must use http or https scheme, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("must include a host")
	}
	return nil
}

func headerNames(value any) error {
	headers, _ := value.(map[string]string)
	for name := range headers {
		if !headerTokenRe.MatchString(name) {
			return fmt.Errorf("invalid header name %q", name)
		}
	}
	return nil
}

func configError(err error) error {
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		keys := slices.Sorted(maps.Keys(verrs))
		return &apierr.ConfigError{Field: strings.Join(keys, ","), Reason: "invalid", Err: err}
	}
	return &apierr.ConfigError{Reason: "invalid", Err: err}
}
