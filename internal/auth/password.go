package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"platform-event-publisher/internal/eventerr"
)

// PasswordProvider authenticates with the OAuth2 username-password grant.
type PasswordProvider struct {
	creds      Credentials
	tokenURL   string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewPasswordProvider returns a provider posting to tokenURL with httpClient.
func NewPasswordProvider(creds Credentials, tokenURL string, httpClient *http.Client, logger zerolog.Logger) *PasswordProvider {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &PasswordProvider{creds: creds, tokenURL: tokenURL, httpClient: httpClient, logger: logger}
}

// Authenticate requests a new token. A non-2xx response yields an authentication error carrying
// the status code and text; no partial Result is returned.
func (p *PasswordProvider) Authenticate(ctx context.Context) (*Result, error) {
	conf := &oauth2.Config{
		ClientID:     p.creds.ClientID,
		ClientSecret: p.creds.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  p.tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	tok, err := conf.PasswordCredentialsToken(ctx, p.creds.Username, p.creds.Secret())
	if err != nil {
		return nil, tokenError(err)
	}
	res := &Result{
		AccessToken: tok.AccessToken,
		InstanceURL: extraString(tok, "instance_url"),
		IssuedAt:    extraString(tok, "issued_at"),
	}
	if res.InstanceURL == "" {
		return nil, eventerr.Authentication(opAuthenticate, 0, "", errors.New("token response missing instance_url"))
	}
	logSuccess(p.logger, res)
	return res, nil
}

func tokenError(err error) error {
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) && rerr.Response != nil {
		var cause error
		switch {
		case rerr.ErrorCode != "":
			cause = fmt.Errorf("%s: %s", rerr.ErrorCode, rerr.ErrorDescription)
		case len(rerr.Body) > 0:
			cause = errors.New(string(rerr.Body))
		}
		return eventerr.Authentication(opAuthenticate, rerr.Response.StatusCode, eventerr.StatusText(rerr.Response), cause)
	}
	return eventerr.Authentication(opAuthenticate, 0, "", err)
}

func extraString(tok *oauth2.Token, key string) string {
	switch v := tok.Extra(key).(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}
