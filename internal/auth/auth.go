// Package auth obtains OAuth2 access tokens from the platform login endpoint. Every call to
// Authenticate performs a fresh token request; nothing is cached between publishes.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"platform-event-publisher/internal/config"
	"platform-event-publisher/internal/security"
)

const opAuthenticate = "authentication"

// Credentials identify the integration user and connected app.
type Credentials struct {
	ClientID      string
	ClientSecret  string
	Username      string
	Password      string
	SecurityToken string
}

// Secret returns the password grant secret: the password immediately followed by the
// security token.
func (c Credentials) Secret() string {
	return c.Password + c.SecurityToken
}

// Result is a successful token response.
type Result struct {
	AccessToken string
	// InstanceURL is the org's API host; every later call goes there.
	InstanceURL string
	// IssuedAt is the raw issued_at value (epoch seconds or milliseconds as a string).
	IssuedAt string
}

// IssuedTime parses IssuedAt. Values above 1e12 are read as milliseconds.
func (r *Result) IssuedTime() (time.Time, error) {
	n, err := strconv.ParseInt(r.IssuedAt, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("auth: parse issued_at %q: %w", r.IssuedAt, err)
	}
	if n > 1e12 {
		return time.UnixMilli(n).UTC(), nil
	}
	return time.Unix(n, 0).UTC(), nil
}

// logSuccess records the org host and, when the platform sent a parseable issued_at, the token's
// issue time.
func logSuccess(logger zerolog.Logger, r *Result) {
	ev := logger.Info().Str("instance_url", r.InstanceURL)
	if issued, err := r.IssuedTime(); err == nil {
		ev = ev.Time("issued_at", issued)
	} else if r.IssuedAt != "" {
		ev = ev.Str("issued_at_raw", r.IssuedAt)
	}
	ev.Msg("authentication successful")
}

// Authenticator yields a fresh access token and instance URL.
type Authenticator interface {
	Authenticate(ctx context.Context) (*Result, error)
}

// NewHTTPClient returns an HTTP client with the given timeout and OpenTelemetry transport.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// New returns the Authenticator for cfg.AuthFlow. httpClient nil uses NewHTTPClient with the
// configured timeout.
func New(cfg *config.Config, httpClient *http.Client, logger zerolog.Logger) (Authenticator, error) {
	if httpClient == nil {
		httpClient = NewHTTPClient(cfg.HTTPTimeoutDuration())
	}
	creds := Credentials{
		ClientID:      cfg.ClientID,
		ClientSecret:  cfg.ClientSecret,
		Username:      cfg.Username,
		Password:      cfg.Password,
		SecurityToken: cfg.SecurityToken,
	}
	switch cfg.AuthFlow {
	case config.AuthFlowPassword, "":
		return NewPasswordProvider(creds, cfg.TokenURL(), httpClient, logger), nil
	case config.AuthFlowJWT:
		key, err := security.ParsePrivateKey(cfg.JWTPrivateKey)
		if err != nil {
			return nil, fmt.Errorf("auth: load jwt private key: %w", err)
		}
		signer := security.NewAssertionSigner(key, 0)
		return NewJWTBearerProvider(creds.ClientID, creds.Username, cfg.TokenURL(), cfg.LoginBaseURL(), signer, httpClient, logger), nil
	default:
		return nil, fmt.Errorf("auth: unknown auth flow %q", cfg.AuthFlow)
	}
}
