package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/krasmussen37/ess/internal/connector"
	"github.com/krasmussen37/ess/internal/domain"
	"github.com/krasmussen37/ess/internal/env"
	"github.com/krasmussen37/ess/internal/token"
)

// credentials is a resolved app registration: tenant, client id/secret.
type credentials struct {
	tenantID     string
	clientID     string
	clientSecret string
}

// resolveCredentials resolves the app registration, preferring the
// shared environment snapshot over per-account config.
func resolveCredentials(snapshot *env.Snapshot, account domain.Account) (credentials, error) {
	tenantID := snapshot.Get("ESS_TENANT_ID")
	if tenantID == "" {
		tenantID = account.Tenant
	}
	if tenantID == "" {
		tenantID = account.Config["tenant_id"]
	}
	if tenantID == "" {
		return credentials{}, fmt.Errorf("missing graph tenant id: set ESS_TENANT_ID or account.tenant_id")
	}

	clientID := snapshot.Get("ESS_CLIENT_ID")
	if clientID == "" {
		clientID = account.Config["client_id"]
	}
	if clientID == "" {
		return credentials{}, fmt.Errorf("missing graph client id: set ESS_CLIENT_ID or account.config.client_id")
	}

	clientSecret := snapshot.Get("ESS_CLIENT_SECRET")
	if clientSecret == "" {
		clientSecret = account.Config["client_secret"]
	}
	if clientSecret == "" {
		return credentials{}, fmt.Errorf("missing graph client secret: set ESS_CLIENT_SECRET or account.config.client_secret")
	}

	return credentials{tenantID: tenantID, clientID: clientID, clientSecret: clientSecret}, nil
}

// tokenResponse is the Microsoft identity platform's client-credentials
// grant response shape.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// fetchToken performs the OAuth2 client-credentials grant for app-only
// Graph access. The shared retry helper covers throttling on the token
// endpoint itself, which Microsoft's identity platform also applies under
// sustained load.
func (c *Connector) fetchToken(ctx context.Context, creds credentials) (token.AccessToken, error) {
	tokenURL := c.env.Get("ESS_GRAPH_TOKEN_URL")
	if tokenURL == "" {
		tokenURL = fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", creds.tenantID)
	}

	form := url.Values{
		"client_id":     {creds.clientID},
		"client_secret": {creds.clientSecret},
		"scope":         {graphScope},
		"grant_type":    {"client_credentials"},
	}
	encoded := form.Encode()

	body, err := connector.DoWithRetry(ctx, c.client, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodPost, tokenURL, strings.NewReader(encoded))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	})
	if err != nil {
		return token.AccessToken{}, err
	}

	var parsed tokenResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return token.AccessToken{}, fmt.Errorf("failed to parse token response: %w", err)
	}
	if parsed.AccessToken == "" {
		return token.AccessToken{}, fmt.Errorf("token response did not include an access_token")
	}

	return token.AccessToken{
		AccessToken: parsed.AccessToken,
		ExpiresAt:   time.Now().Add(time.Duration(parsed.ExpiresIn) * time.Second),
	}, nil
}
