// Package graph implements the connector.Connector contract against the
// Microsoft Graph API: per-folder delta-link cursors with a two-layer
// legacy key migration, a full paged enumeration bootstrap, and an
// incremental delta walk that applies @removed markers as deletes.
package graph

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

// apiBase is the default Graph API root; overridable for tests via
// ESS_GRAPH_API_BASE.
const apiBase = "https://graph.microsoft.com/v1.0"

// graphScope is the client-credentials scope for app-only Graph access.
const graphScope = "https://graph.microsoft.com/.default"

// messageSelectFields is the $select projection applied to every message
// page, matching the fields mapGraphMessageToEmail actually reads.
const messageSelectFields = "id,conversationId,subject,from,toRecipients,ccRecipients,bccRecipients," +
	"receivedDateTime,sentDateTime,bodyPreview,body,importance,isRead,hasAttachments,categories,webLink"

// fullSyncPageSize and deltaPageSize bound $top for the bootstrap
// enumeration and the delta walk respectively.
const (
	fullSyncPageSize = 250
	deltaPageSize    = 200
)

// maxConsecutivePageFailures abandons a folder's bootstrap after this many
// page fetches fail in a row. No partial cursor is persisted, so the next
// sync repeats the folder's bootstrap from the top.
const maxConsecutivePageFailures = 3

// Connector is the Microsoft Graph connector.Connector implementation.
type Connector struct {
	client   *http.Client
	env      *env.Snapshot
	tokenKey []byte
}

var _ connector.Connector = (*Connector)(nil)

// New builds a graph Connector. tokenKey may be nil, which disables token
// persistence.
func New(snapshot *env.Snapshot, tokenKey []byte) *Connector {
	return &Connector{client: http.DefaultClient, env: snapshot, tokenKey: tokenKey}
}

// Name identifies this connector in the registry and in account.provider.
func (c *Connector) Name() string { return "graph_api" }

// Sync discovers every non-excluded mail folder for account and syncs
// each independently, continuing past per-folder failures so one broken
// folder does not block the rest.
func (c *Connector) Sync(ctx context.Context, s store.Store, ix *index.Index, account domain.Account) (connector.SyncReport, error) {
	var report connector.SyncReport

	accessToken, err := c.accessToken(ctx, s, account)
	if err != nil {
		return report, err
	}

	folders, err := c.discoverFolders(ctx, accessToken, account)
	if err != nil {
		return report, fmt.Errorf("failed to discover graph folders: %w", err)
	}

	for _, folder := range folders {
		folderReport, err := c.syncFolder(ctx, s, ix, account, folder)
		report.Added += folderReport.Added
		report.Updated += folderReport.Updated
		report.Removed += folderReport.Removed
		report.Errors = append(report.Errors, folderReport.Errors...)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("folder=%s: %v", folder.essLabel, err))
		}
	}

	return report, nil
}

// Import is not supported by the Graph connector: remote mail has no
// local archive representation distinct from Sync.
func (c *Connector) Import(ctx context.Context, s store.Store, ix *index.Index, path string, account domain.Account) (connector.ImportReport, error) {
	return connector.ImportReport{}, fmt.Errorf("graph_api connector does not support archive import")
}

// accessToken returns a cached, unexpired bearer token for account,
// fetching and caching a fresh one via client-credentials grant otherwise.
func (c *Connector) accessToken(ctx context.Context, s store.Store, account domain.Account) (string, error) {
	cache, err := token.NewCache(s, c.tokenKey)
	if err != nil {
		return "", err
	}

	key := domain.GraphTokenKey(account.ID)
	if cached, err := cache.Load(ctx, key); err != nil {
		return "", err
	} else if cached != nil {
		return cached.AccessToken, nil
	}

	creds, err := resolveCredentials(c.env, account)
	if err != nil {
		return "", fmt.Errorf("failed to resolve graph credentials: %w", err)
	}

	fresh, err := c.fetchToken(ctx, creds)
	if err != nil {
		return "", fmt.Errorf("failed to fetch graph access token: %w", err)
	}
	if err := cache.Store(ctx, key, fresh); err != nil {
		return "", err
	}
	return fresh.AccessToken, nil
}

func (c *Connector) graphAPIBase() string {
	if base := c.env.Get("ESS_GRAPH_API_BASE"); base != "" {
		return base
	}
	return apiBase
}

// applyResult classifies the outcome of applying one delta/page message.
type applyResult int

const (
	applyAdded applyResult = iota
	applyUpdated
	applyRemoved
)

// applyMessageBuffered maps and ingests a single Graph message, or removes
// it from the Store/Index when it carries an @removed marker.
func (c *Connector) applyMessageBuffered(ctx context.Context, s store.Store, ix *index.Index, account domain.Account, folder discoveredFolder, msg graphMessage) (applyResult, error) {
	if msg.Removed != nil {
		if msg.ID == "" {
			return applyRemoved, fmt.Errorf("received @removed entry without an id")
		}
		if err := connector.Remove(ctx, s, ix, msg.ID); err != nil {
			return applyRemoved, err
		}
		return applyRemoved, nil
	}

	email, err := mapGraphMessageToEmail(msg, account.ID, folder.essLabel)
	if err != nil {
		return applyUpdated, err
	}

	existed, err := connector.Ingest(ctx, s, ix, email, account.Kind)
	if err != nil {
		return applyUpdated, err
	}
	if existed {
		return applyUpdated, nil
	}
	return applyAdded, nil
}

func tally(report *connector.SyncReport, result applyResult, err error, folderLabel, msgID string) {
	if err != nil {
		if msgID == "" {
			msgID = "<missing-id>"
		}
		report.Errors = append(report.Errors, fmt.Sprintf("folder=%s id=%s: %v", folderLabel, msgID, err))
		return
	}
	switch result {
	case applyAdded:
		report.Added++
	case applyRemoved:
		report.Removed++
	default:
		report.Updated++
	}
}
