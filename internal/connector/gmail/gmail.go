// Package gmail implements the connector.Connector contract against the
// Gmail API: a historyId cursor, a full-enumeration bootstrap that diffs
// against already-stored message ids and batch-fetches the rest, and an
// incremental sync that walks the history list and falls back to a full
// resync when Gmail reports the cursor has expired.
package gmail

import (
	"context"
	"fmt"
	"net/http"

	"github.com/krasmussen37/ess/internal/connector"
	"github.com/krasmussen37/ess/internal/domain"
	"github.com/krasmussen37/ess/internal/env"
	"github.com/krasmussen37/ess/internal/index"
	"github.com/krasmussen37/ess/internal/store"
	"github.com/krasmussen37/ess/internal/token"
)

// apiBase is the default Gmail API root; overridable for tests via
// ESS_GMAIL_API_BASE.
const apiBase = "https://www.googleapis.com/gmail/v1"

// batchURL is the default Gmail batch endpoint; overridable for tests via
// ESS_GMAIL_BATCH_URL.
const batchURL = "https://www.googleapis.com/batch/gmail/v1"

// listPageSize bounds message-id enumeration and history pages.
const listPageSize = 100

// batchSize bounds how many message ids are requested per batch call.
const batchSize = 25

// maxBatchRetries bounds retry rounds for ids Gmail's batch endpoint
// reported as retryable (429 sub-responses or simply missing from the
// response).
const maxBatchRetries = 3

// Connector is the Gmail connector.Connector implementation.
type Connector struct {
	client   *http.Client
	env      *env.Snapshot
	tokenKey []byte
}

var _ connector.Connector = (*Connector)(nil)

// New builds a gmail Connector. tokenKey may be nil, which disables token
// persistence.
func New(snapshot *env.Snapshot, tokenKey []byte) *Connector {
	return &Connector{client: http.DefaultClient, env: snapshot, tokenKey: tokenKey}
}

// Name identifies this connector in the registry and in account.provider.
func (c *Connector) Name() string { return "gmail_api" }

// Sync performs an incremental sync from the account's stored historyId,
// or a full bootstrap if none is stored yet.
func (c *Connector) Sync(ctx context.Context, s store.Store, ix *index.Index, account domain.Account) (connector.SyncReport, error) {
	historyKey := domain.GmailHistoryIDKey(account.ID)

	existingHistoryID, ok, err := s.GetSyncState(ctx, historyKey)
	if err != nil {
		return connector.SyncReport{}, fmt.Errorf("failed to read gmail history cursor: %w", err)
	}
	if !ok || existingHistoryID == "" {
		return c.syncFull(ctx, s, ix, account)
	}

	report, err := c.syncDelta(ctx, s, ix, account, existingHistoryID)
	if err != nil {
		if isHistoryExpired(err) {
			return c.syncFull(ctx, s, ix, account)
		}
		return report, err
	}
	return report, nil
}

// Import is not supported by the Gmail connector.
func (c *Connector) Import(ctx context.Context, s store.Store, ix *index.Index, path string, account domain.Account) (connector.ImportReport, error) {
	return connector.ImportReport{}, fmt.Errorf("gmail_api connector does not support archive import")
}

func (c *Connector) gmailAPIBase() string {
	if base := c.env.Get("ESS_GMAIL_API_BASE"); base != "" {
		return base
	}
	return apiBase
}

func (c *Connector) gmailBatchURL() string {
	if base := c.env.Get("ESS_GMAIL_BATCH_URL"); base != "" {
		return base
	}
	return batchURL
}

// accessToken returns a cached, unexpired bearer token, refreshing via
// the OAuth2 refresh_token grant otherwise.
func (c *Connector) accessToken(ctx context.Context, s store.Store, account domain.Account) (string, error) {
	cache, err := token.NewCache(s, c.tokenKey)
	if err != nil {
		return "", err
	}

	key := domain.GmailTokenKey(account.ID)
	if cached, err := cache.Load(ctx, key); err != nil {
		return "", err
	} else if cached != nil {
		return cached.AccessToken, nil
	}

	creds, err := resolveCredentials(c.env, account)
	if err != nil {
		return "", fmt.Errorf("failed to resolve gmail credentials: %w", err)
	}

	fresh, err := c.fetchToken(ctx, creds)
	if err != nil {
		return "", fmt.Errorf("failed to fetch gmail access token: %w", err)
	}
	if err := cache.Store(ctx, key, fresh); err != nil {
		return "", err
	}
	return fresh.AccessToken, nil
}
