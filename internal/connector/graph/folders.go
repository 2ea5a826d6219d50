package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/krasmussen37/ess/internal/connector"
	"github.com/krasmussen37/ess/internal/domain"
)

// excludedFolderNames are Outlook's sync-infrastructure folders; they never
// contain user mail. "searchfolders" is excluded too because its contents
// are virtual views that would duplicate real messages.
var excludedFolderNames = map[string]bool{
	"sync issues":     true,
	"conflicts":       true,
	"local failures":  true,
	"server failures": true,
	"searchfolders":   true,
}

// discoveredFolder is one mail folder found by discoverFolders, with its
// Graph id, the display name as reported (child folders compose
// "Parent/Child"), and the normalized label ess stores against emails.
type discoveredFolder struct {
	id          string
	displayName string
	essLabel    string
}

type graphMailFolder struct {
	ID               string `json:"id"`
	DisplayName      string `json:"displayName"`
	ChildFolderCount int    `json:"childFolderCount"`
}

type graphMailFolderPage struct {
	Value    []graphMailFolder `json:"value"`
	NextLink string            `json:"@odata.nextLink"`
}

// normalizeFolderLabel maps a Graph displayName to the canonical label ess
// uses in domain.Email.Folder. Well-known folders collapse to short names;
// custom folders use their lowercased display name as-is.
func normalizeFolderLabel(displayName string) string {
	lower := strings.ToLower(strings.TrimSpace(displayName))
	switch lower {
	case "inbox":
		return "inbox"
	case "sent items":
		return "sent"
	case "archive":
		return "archive"
	case "drafts":
		return "drafts"
	case "deleted items":
		return "trash"
	case "junk email":
		return "spam"
	case "outbox":
		return "outbox"
	case "conversation history":
		return "conversation_history"
	default:
		return lower
	}
}

// legacyDeltaKeyName maps a well-known displayName to the graph_name used
// in delta-link keys before dynamic folder discovery. Only the folders the
// pre-discovery versions synced have a legacy name.
func legacyDeltaKeyName(displayName string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(displayName)) {
	case "inbox":
		return "inbox", true
	case "sent items":
		return "sentitems", true
	case "archive":
		return "archive", true
	case "drafts":
		return "drafts", true
	case "deleted items":
		return "deleteditems", true
	case "junk email":
		return "junkemail", true
	default:
		return "", false
	}
}

func isExcludedFolder(displayName string) bool {
	return excludedFolderNames[strings.ToLower(strings.TrimSpace(displayName))]
}

// discoverFolders walks the account's mail folder tree breadth-first: the
// top-level mailFolders listing first, then each parent's childFolders via
// an explicit pending queue. Child folders are labeled
// "<parent_label>/<child_label>" so nested custom folders stay unique.
func (c *Connector) discoverFolders(ctx context.Context, accessToken string, account domain.Account) ([]discoveredFolder, error) {
	var out []discoveredFolder

	type pendingParent struct {
		id          string
		displayName string
	}
	var pending []pendingParent

	listURL := c.graphAPIBase() + "/me/mailFolders?includeHiddenFolders=true&$select=id,displayName,childFolderCount&$top=100"
	for listURL != "" {
		page, err := c.fetchFolderPage(ctx, accessToken, listURL)
		if err != nil {
			return nil, err
		}
		for _, f := range page.Value {
			if isExcludedFolder(f.DisplayName) {
				continue
			}
			out = append(out, discoveredFolder{
				id:          f.ID,
				displayName: f.DisplayName,
				essLabel:    normalizeFolderLabel(f.DisplayName),
			})
			if f.ChildFolderCount > 0 {
				pending = append(pending, pendingParent{id: f.ID, displayName: f.DisplayName})
			}
		}
		listURL = page.NextLink
	}

	for len(pending) > 0 {
		parent := pending[0]
		pending = pending[1:]

		childURL := c.graphAPIBase() + "/me/mailFolders/" + url.PathEscape(parent.id) +
			"/childFolders?includeHiddenFolders=true&$select=id,displayName,childFolderCount&$top=100"
		for childURL != "" {
			page, err := c.fetchFolderPage(ctx, accessToken, childURL)
			if err != nil {
				return nil, err
			}
			for _, child := range page.Value {
				if isExcludedFolder(child.DisplayName) {
					continue
				}
				childDisplay := parent.displayName + "/" + child.DisplayName
				out = append(out, discoveredFolder{
					id:          child.ID,
					displayName: childDisplay,
					essLabel:    normalizeFolderLabel(parent.displayName) + "/" + strings.ToLower(strings.TrimSpace(child.DisplayName)),
				})
				if child.ChildFolderCount > 0 {
					pending = append(pending, pendingParent{id: child.ID, displayName: childDisplay})
				}
			}
			childURL = page.NextLink
		}
	}

	return out, nil
}

func (c *Connector) fetchFolderPage(ctx context.Context, accessToken, pageURL string) (graphMailFolderPage, error) {
	body, err := c.getJSON(ctx, accessToken, pageURL)
	if err != nil {
		return graphMailFolderPage{}, err
	}
	var page graphMailFolderPage
	if err := json.Unmarshal(body, &page); err != nil {
		return graphMailFolderPage{}, fmt.Errorf("failed to parse mail folder page: %w", err)
	}
	return page, nil
}

// getJSON performs an authenticated GET with the shared retry helper.
func (c *Connector) getJSON(ctx context.Context, accessToken, requestURL string) ([]byte, error) {
	return connector.DoWithRetry(ctx, c.client, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodGet, requestURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+accessToken)
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
}
