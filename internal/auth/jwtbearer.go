package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"platform-event-publisher/internal/eventerr"
	"platform-event-publisher/internal/security"
)

// GrantTypeJWTBearer is the OAuth2 JWT bearer grant type (RFC 7523).
const GrantTypeJWTBearer = "urn:ietf:params:oauth:grant-type:jwt-bearer"

// tokenResponse is the login endpoint's JSON body, success and failure fields together.
type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	InstanceURL      string `json:"instance_url"`
	ID               string `json:"id"`
	IssuedAt         string `json:"issued_at"`
	Signature        string `json:"signature"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// JWTBearerProvider authenticates with a signed assertion instead of a password.
type JWTBearerProvider struct {
	clientID   string
	username   string
	tokenURL   string
	audience   string
	signer     *security.AssertionSigner
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewJWTBearerProvider returns a provider that signs assertions for clientID/username with aud
// set to audience (the login host) and posts them to tokenURL.
func NewJWTBearerProvider(clientID, username, tokenURL, audience string, signer *security.AssertionSigner, httpClient *http.Client, logger zerolog.Logger) *JWTBearerProvider {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &JWTBearerProvider{
		clientID:   clientID,
		username:   username,
		tokenURL:   tokenURL,
		audience:   audience,
		signer:     signer,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Authenticate signs a new assertion and exchanges it for an access token.
func (p *JWTBearerProvider) Authenticate(ctx context.Context) (*Result, error) {
	assertion, err := p.signer.Sign(p.clientID, p.username, p.audience)
	if err != nil {
		return nil, eventerr.Authentication(opAuthenticate, 0, "", fmt.Errorf("sign assertion: %w", err))
	}
	form := url.Values{}
	form.Set("grant_type", GrantTypeJWTBearer)
	form.Set("assertion", assertion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, eventerr.Authentication(opAuthenticate, 0, "", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, eventerr.Authentication(opAuthenticate, 0, "", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, eventerr.Authentication(opAuthenticate, resp.StatusCode, eventerr.StatusText(resp), err)
	}

	var tr tokenResponse
	_ = json.Unmarshal(body, &tr)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var cause error
		switch {
		case tr.Error != "":
			cause = fmt.Errorf("%s: %s", tr.Error, tr.ErrorDescription)
		case len(body) > 0:
			cause = errors.New(string(body))
		}
		return nil, eventerr.Authentication(opAuthenticate, resp.StatusCode, eventerr.StatusText(resp), cause)
	}
	if tr.AccessToken == "" || tr.InstanceURL == "" {
		return nil, eventerr.Authentication(opAuthenticate, 0, "", errors.New("token response missing access_token or instance_url"))
	}
	res := &Result{AccessToken: tr.AccessToken, InstanceURL: tr.InstanceURL, IssuedAt: tr.IssuedAt}
	logSuccess(p.logger, res)
	return res, nil
}
