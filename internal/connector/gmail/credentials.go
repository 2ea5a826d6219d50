package gmail

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/krasmussen37/ess/internal/domain"
	"github.com/krasmussen37/ess/internal/env"
	"github.com/krasmussen37/ess/internal/token"
)

// credentials is a resolved installed-app OAuth client plus a long-lived
// refresh token.
type credentials struct {
	clientID     string
	clientSecret string
	refreshToken string
}

// resolveCredentials follows the shared priority order: the environment
// snapshot first, then per-account config.
func resolveCredentials(snapshot *env.Snapshot, account domain.Account) (credentials, error) {
	clientID := snapshot.Get("ESS_GMAIL_CLIENT_ID")
	if clientID == "" {
		clientID = account.Config["client_id"]
	}
	if clientID == "" {
		return credentials{}, fmt.Errorf("missing gmail client id: set ESS_GMAIL_CLIENT_ID or account.config.client_id")
	}

	clientSecret := snapshot.Get("ESS_GMAIL_CLIENT_SECRET")
	if clientSecret == "" {
		clientSecret = account.Config["client_secret"]
	}
	if clientSecret == "" {
		return credentials{}, fmt.Errorf("missing gmail client secret: set ESS_GMAIL_CLIENT_SECRET or account.config.client_secret")
	}

	refreshToken := snapshot.Get("ESS_GMAIL_REFRESH_TOKEN")
	if refreshToken == "" {
		refreshToken = account.Config["refresh_token"]
	}
	if refreshToken == "" {
		return credentials{}, fmt.Errorf("missing gmail refresh token: set ESS_GMAIL_REFRESH_TOKEN or account.config.refresh_token")
	}

	return credentials{clientID: clientID, clientSecret: clientSecret, refreshToken: refreshToken}, nil
}

// fetchToken exchanges the refresh token for a fresh access token through
// the oauth2 refresh grant. The exchange goes through the connector's own
// HTTP client so tests can point ESS_GMAIL_TOKEN_URL at a stub server.
func (c *Connector) fetchToken(ctx context.Context, creds credentials) (token.AccessToken, error) {
	endpoint := google.Endpoint
	if tokenURL := c.env.Get("ESS_GMAIL_TOKEN_URL"); tokenURL != "" {
		endpoint = oauth2.Endpoint{TokenURL: tokenURL}
	}

	conf := &oauth2.Config{
		ClientID:     creds.clientID,
		ClientSecret: creds.clientSecret,
		Endpoint:     endpoint,
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.client)
	tok, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: creds.refreshToken}).Token()
	if err != nil {
		return token.AccessToken{}, fmt.Errorf("failed to exchange gmail refresh token: %w", err)
	}
	if tok.AccessToken == "" {
		return token.AccessToken{}, fmt.Errorf("token response did not include an access_token")
	}

	expiresAt := tok.Expiry
	if expiresAt.IsZero() {
		expiresAt = time.Now().Add(time.Hour)
	}
	return token.AccessToken{AccessToken: tok.AccessToken, ExpiresAt: expiresAt}, nil
}
