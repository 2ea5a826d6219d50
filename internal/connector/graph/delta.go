package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/krasmussen37/ess/internal/connector"
	"github.com/krasmussen37/ess/internal/domain"
	"github.com/krasmussen37/ess/internal/index"
	"github.com/krasmussen37/ess/internal/store"
)

type graphRecipient struct {
	EmailAddress struct {
		Name    string `json:"name"`
		Address string `json:"address"`
	} `json:"emailAddress"`
}

type graphBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type graphMessage struct {
	ID               string           `json:"id"`
	ConversationID   string           `json:"conversationId"`
	Subject          string           `json:"subject"`
	From             *graphRecipient  `json:"from"`
	ToRecipients     []graphRecipient `json:"toRecipients"`
	CcRecipients     []graphRecipient `json:"ccRecipients"`
	BccRecipients    []graphRecipient `json:"bccRecipients"`
	ReceivedDateTime string           `json:"receivedDateTime"`
	SentDateTime     string           `json:"sentDateTime"`
	BodyPreview      string           `json:"bodyPreview"`
	Body             *graphBody       `json:"body"`
	Importance       string           `json:"importance"`
	IsRead           *bool            `json:"isRead"`
	HasAttachments   bool             `json:"hasAttachments"`
	Categories       []string         `json:"categories"`
	WebLink          string           `json:"webLink"`
	Removed          *struct {
		Reason string `json:"reason"`
	} `json:"@removed"`
}

type graphMessagesPage struct {
	Value    []graphMessage `json:"value"`
	NextLink string         `json:"@odata.nextLink"`
}

type graphDeltaPage struct {
	Value     []graphMessage `json:"value"`
	NextLink  string         `json:"@odata.nextLink"`
	DeltaLink string         `json:"@odata.deltaLink"`
}

func (c *Connector) fetchMessagesPage(ctx context.Context, accessToken, pageURL string) (graphMessagesPage, error) {
	body, err := c.getJSON(ctx, accessToken, pageURL)
	if err != nil {
		return graphMessagesPage{}, err
	}
	var page graphMessagesPage
	if err := json.Unmarshal(body, &page); err != nil {
		return graphMessagesPage{}, fmt.Errorf("failed to parse messages page: %w", err)
	}
	return page, nil
}

func (c *Connector) fetchDeltaPage(ctx context.Context, accessToken, pageURL string) (graphDeltaPage, error) {
	body, err := c.getJSON(ctx, accessToken, pageURL)
	if err != nil {
		return graphDeltaPage{}, err
	}
	var page graphDeltaPage
	if err := json.Unmarshal(body, &page); err != nil {
		return graphDeltaPage{}, fmt.Errorf("failed to parse delta page: %w", err)
	}
	return page, nil
}

// loadDeltaLink resolves a folder's cursor, migrating forward through two
// legacy key shapes: a per-account-per-well-known-name key (predating
// per-folder-id keys), and for the inbox only, the very first unsuffixed
// key (predating multi-folder sync). A migration hit is written under the
// current key and the legacy row cleared so later loads skip straight to
// the fast path.
func (c *Connector) loadDeltaLink(ctx context.Context, s store.Store, account domain.Account, folder discoveredFolder) (string, error) {
	key := domain.GraphDeltaLinkKey(account.ID, folder.id)
	if v, ok, err := s.GetSyncState(ctx, key); err != nil {
		return "", err
	} else if ok && v != "" {
		return v, nil
	}

	if legacyName, ok := legacyDeltaKeyName(folder.displayName); ok {
		if v, migrated, err := c.migrateDeltaLink(ctx, s, key, domain.GraphDeltaLinkLegacyWellKnownKey(account.ID, legacyName)); err != nil {
			return "", err
		} else if migrated {
			return v, nil
		}
	}

	if strings.EqualFold(strings.TrimSpace(folder.displayName), "inbox") {
		if v, migrated, err := c.migrateDeltaLink(ctx, s, key, domain.GraphDeltaLinkLegacyKey(account.ID)); err != nil {
			return "", err
		} else if migrated {
			return v, nil
		}
	}

	return "", nil
}

func (c *Connector) migrateDeltaLink(ctx context.Context, s store.Store, currentKey, legacyKey string) (string, bool, error) {
	v, ok, err := s.GetSyncState(ctx, legacyKey)
	if err != nil {
		return "", false, err
	}
	if !ok || v == "" {
		return "", false, nil
	}
	if err := s.SetSyncState(ctx, currentKey, v); err != nil {
		return "", false, err
	}
	if err := s.ClearSyncState(ctx, legacyKey); err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (c *Connector) storeDeltaLink(ctx context.Context, s store.Store, account domain.Account, folder discoveredFolder, deltaLink string) error {
	return s.SetSyncState(ctx, domain.GraphDeltaLinkKey(account.ID, folder.id), deltaLink)
}

// syncFolder dispatches a folder to its bootstrap or incremental path
// depending on whether a delta cursor already exists for it.
func (c *Connector) syncFolder(ctx context.Context, s store.Store, ix *index.Index, account domain.Account, folder discoveredFolder) (connector.SyncReport, error) {
	existingDeltaLink, err := c.loadDeltaLink(ctx, s, account, folder)
	if err != nil {
		return connector.SyncReport{}, err
	}
	if existingDeltaLink == "" {
		return c.fullEnumerateFolder(ctx, s, ix, account, folder)
	}
	return c.deltaWalk(ctx, s, ix, account, folder, existingDeltaLink)
}

// deltaWalk follows an existing delta link to its end, applying each page
// (including @removed entries) and persisting the newest deltaLink seen.
func (c *Connector) deltaWalk(ctx context.Context, s store.Store, ix *index.Index, account domain.Account, folder discoveredFolder, startLink string) (connector.SyncReport, error) {
	var report connector.SyncReport
	nextURL := startLink
	var newestDeltaLink string

	for nextURL != "" {
		accessToken, err := c.accessToken(ctx, s, account)
		if err != nil {
			return report, err
		}
		page, err := c.fetchDeltaPage(ctx, accessToken, nextURL)
		if err != nil {
			return report, err
		}

		for _, msg := range page.Value {
			result, applyErr := c.applyMessageBuffered(ctx, s, ix, account, folder, msg)
			tally(&report, result, applyErr, folder.essLabel, msg.ID)
		}

		if err := ix.Commit(); err != nil {
			return report, fmt.Errorf("failed to commit index: %w", err)
		}

		if page.DeltaLink != "" {
			newestDeltaLink = page.DeltaLink
		}
		nextURL = page.NextLink
	}

	if newestDeltaLink != "" {
		if err := c.storeDeltaLink(ctx, s, account, folder, newestDeltaLink); err != nil {
			return report, err
		}
	}
	return report, nil
}

// fullEnumerateFolder bootstraps a folder with no cursor: it fully pages
// through /messages ordered newest-first so search results are useful as
// soon as the first page lands, then performs a second, separate walk of
// the delta endpoint purely to capture a baseline deltaLink for future
// incremental syncs. Messages encountered in that second walk are applied
// too; Ingest's upsert makes re-applying already-seen messages harmless.
func (c *Connector) fullEnumerateFolder(ctx context.Context, s store.Store, ix *index.Index, account domain.Account, folder discoveredFolder) (connector.SyncReport, error) {
	var report connector.SyncReport

	listURL := fmt.Sprintf("%s/me/mailFolders/%s/messages?$select=%s&$orderby=receivedDateTime desc&$top=%d",
		c.graphAPIBase(), url.PathEscape(folder.id), url.QueryEscape(messageSelectFields), fullSyncPageSize)

	consecutiveFailures := 0
	for listURL != "" {
		accessToken, err := c.accessToken(ctx, s, account)
		if err != nil {
			return report, err
		}
		page, err := c.fetchMessagesPage(ctx, accessToken, listURL)
		if err != nil {
			consecutiveFailures++
			if consecutiveFailures >= maxConsecutivePageFailures {
				return report, fmt.Errorf("abandoning folder after %d consecutive page failures: %w", consecutiveFailures, err)
			}
			continue
		}
		consecutiveFailures = 0
		for _, msg := range page.Value {
			result, applyErr := c.applyMessageBuffered(ctx, s, ix, account, folder, msg)
			tally(&report, result, applyErr, folder.essLabel, msg.ID)
		}
		if err := ix.Commit(); err != nil {
			return report, fmt.Errorf("failed to commit index: %w", err)
		}
		listURL = page.NextLink
	}

	deltaURL := fmt.Sprintf("%s/me/mailFolders/%s/messages/delta?$select=%s&$top=%d",
		c.graphAPIBase(), url.PathEscape(folder.id), url.QueryEscape(messageSelectFields), deltaPageSize)

	var newestDeltaLink string
	for deltaURL != "" {
		accessToken, err := c.accessToken(ctx, s, account)
		if err != nil {
			return report, err
		}
		page, err := c.fetchDeltaPage(ctx, accessToken, deltaURL)
		if err != nil {
			return report, err
		}
		for _, msg := range page.Value {
			result, applyErr := c.applyMessageBuffered(ctx, s, ix, account, folder, msg)
			tally(&report, result, applyErr, folder.essLabel, msg.ID)
		}
		if err := ix.Commit(); err != nil {
			return report, fmt.Errorf("failed to commit index: %w", err)
		}
		if page.DeltaLink != "" {
			newestDeltaLink = page.DeltaLink
		}
		deltaURL = page.NextLink
	}

	if newestDeltaLink != "" {
		if err := c.storeDeltaLink(ctx, s, account, folder, newestDeltaLink); err != nil {
			return report, err
		}
	}

	return report, nil
}
