package gmail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/krasmussen37/ess/internal/apperr"
	"github.com/krasmussen37/ess/internal/connector"
	"github.com/krasmussen37/ess/internal/domain"
	"github.com/krasmussen37/ess/internal/index"
	"github.com/krasmussen37/ess/internal/store"
)

// syncDelta walks the history feed from startHistoryID, applying the four
// record kinds: an added or label-changed id is fetched fresh and
// upserted, a deleted id is removed from the Store and Index. Each id is
// processed at most once per sync; the newest historyId is persisted once
// the walk completes.
func (c *Connector) syncDelta(ctx context.Context, s store.Store, ix *index.Index, account domain.Account, startHistoryID string) (connector.SyncReport, error) {
	var report connector.SyncReport
	seen := map[string]bool{}

	pageToken := ""
	var newestHistoryID string
	for {
		accessToken, err := c.accessToken(ctx, s, account)
		if err != nil {
			return report, err
		}

		page, err := c.fetchHistoryPage(ctx, accessToken, startHistoryID, pageToken)
		if err != nil {
			return report, err
		}
		if page.HistoryId > 0 {
			newestHistoryID = strconv.FormatUint(page.HistoryId, 10)
		}

		c.applyHistoryRecords(ctx, s, ix, account, page.History, seen, &report)

		if err := ix.Commit(); err != nil {
			return report, fmt.Errorf("failed to commit index: %w", err)
		}

		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	if newestHistoryID != "" {
		if err := s.SetSyncState(ctx, domain.GmailHistoryIDKey(account.ID), newestHistoryID); err != nil {
			return report, fmt.Errorf("failed to store gmail history cursor: %w", err)
		}
	}

	return report, nil
}

// applyHistoryRecords folds one history page into the Store and Index.
// Per-id failures are recorded in the report; only Store/Index failures
// that would make further progress meaningless surface as report errors
// too, never as a hard abort.
func (c *Connector) applyHistoryRecords(ctx context.Context, s store.Store, ix *index.Index, account domain.Account, records []*gmailapi.History, seen map[string]bool, report *connector.SyncReport) {
	for _, record := range records {
		if record == nil {
			continue
		}

		var changedIDs []string
		for _, added := range record.MessagesAdded {
			if added != nil && added.Message != nil {
				changedIDs = append(changedIDs, added.Message.Id)
			}
		}
		for _, deleted := range record.MessagesDeleted {
			if deleted == nil || deleted.Message == nil {
				continue
			}
			id := deleted.Message.Id
			if seen[id] {
				continue
			}
			seen[id] = true
			if err := connector.Remove(ctx, s, ix, id); err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("id=%s: %v", id, err))
				continue
			}
			report.Removed++
		}
		for _, labeled := range record.LabelsAdded {
			if labeled != nil && labeled.Message != nil {
				changedIDs = append(changedIDs, labeled.Message.Id)
			}
		}
		for _, unlabeled := range record.LabelsRemoved {
			if unlabeled != nil && unlabeled.Message != nil {
				changedIDs = append(changedIDs, unlabeled.Message.Id)
			}
		}

		for _, id := range changedIDs {
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true

			accessToken, err := c.accessToken(ctx, s, account)
			if err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("token refresh for id=%s: %v", id, err))
				continue
			}

			msg, err := c.fetchMessage(ctx, accessToken, id)
			if err != nil {
				// A 404 here means the message vanished between the history
				// record and now; treat it as a deletion.
				if isNotFound(err) {
					if removeErr := connector.Remove(ctx, s, ix, id); removeErr != nil {
						report.Errors = append(report.Errors, fmt.Sprintf("id=%s: %v", id, removeErr))
						continue
					}
					report.Removed++
				} else {
					report.Errors = append(report.Errors, fmt.Sprintf("fetch id=%s: %v", id, err))
				}
				continue
			}

			email, err := mapGmailMessageToEmail(msg, account.ID)
			if err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("id=%s: %v", id, err))
				continue
			}
			existed, err := connector.Ingest(ctx, s, ix, email, account.Kind)
			if err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("id=%s: %v", id, err))
				continue
			}
			if existed {
				report.Updated++
			} else {
				report.Added++
			}
		}
	}
}

func (c *Connector) fetchHistoryPage(ctx context.Context, accessToken, startHistoryID, pageToken string) (*gmailapi.ListHistoryResponse, error) {
	historyURL := fmt.Sprintf("%s/users/me/history?startHistoryId=%s&maxResults=%d",
		c.gmailAPIBase(), url.QueryEscape(startHistoryID), listPageSize)
	if pageToken != "" {
		historyURL += "&pageToken=" + url.QueryEscape(pageToken)
	}
	body, err := c.getJSON(ctx, accessToken, historyURL)
	if err != nil {
		return nil, err
	}
	var page gmailapi.ListHistoryResponse
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("failed to parse gmail history page: %w", err)
	}
	return &page, nil
}

func (c *Connector) fetchMessage(ctx context.Context, accessToken, id string) (*gmailapi.Message, error) {
	msgURL := fmt.Sprintf("%s/users/me/messages/%s?format=full", c.gmailAPIBase(), url.PathEscape(id))
	body, err := c.getJSON(ctx, accessToken, msgURL)
	if err != nil {
		return nil, err
	}
	var msg gmailapi.Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse gmail message %s: %w", id, err)
	}
	return &msg, nil
}

// isHistoryExpired reports whether the history walk failed because the
// stored cursor is too old for Gmail to serve (a 404 from the history
// endpoint), which forces a transparent re-bootstrap.
func isHistoryExpired(err error) bool {
	return isNotFound(err)
}

func isNotFound(err error) bool {
	var perm *apperr.PermanentProviderError
	return errors.As(err, &perm) && perm.Code == http.StatusNotFound
}
