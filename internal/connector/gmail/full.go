package gmail

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/krasmussen37/ess/internal/connector"
	"github.com/krasmussen37/ess/internal/domain"
	"github.com/krasmussen37/ess/internal/index"
	"github.com/krasmussen37/ess/internal/store"
)

// syncFull bootstraps an account with no history cursor: it captures the
// current historyId from the profile, enumerates every message id, diffs
// against what the Store already has, and batch-fetches only the
// difference.
func (c *Connector) syncFull(ctx context.Context, s store.Store, ix *index.Index, account domain.Account) (connector.SyncReport, error) {
	var report connector.SyncReport

	accessToken, err := c.accessToken(ctx, s, account)
	if err != nil {
		return report, err
	}

	profile, err := c.fetchProfile(ctx, accessToken)
	if err != nil {
		return report, fmt.Errorf("failed to fetch gmail profile: %w", err)
	}
	newHistoryID := strconv.FormatUint(profile.HistoryId, 10)

	existingIDs, err := s.GetEmailIDsForAccount(ctx, account.ID)
	if err != nil {
		return report, fmt.Errorf("failed to list existing email ids: %w", err)
	}

	var missingIDs []string
	pageToken := ""
	for {
		accessToken, err := c.accessToken(ctx, s, account)
		if err != nil {
			return report, err
		}
		page, err := c.fetchMessageListPage(ctx, accessToken, pageToken)
		if err != nil {
			return report, fmt.Errorf("failed to list gmail messages: %w", err)
		}
		for _, ref := range page.Messages {
			if !existingIDs[ref.Id] {
				missingIDs = append(missingIDs, ref.Id)
			}
		}
		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	if err := c.fetchAndApplyBatches(ctx, s, ix, account, missingIDs, &report); err != nil {
		return report, err
	}

	if err := s.SetSyncState(ctx, domain.GmailHistoryIDKey(account.ID), newHistoryID); err != nil {
		return report, fmt.Errorf("failed to store gmail history cursor: %w", err)
	}

	return report, nil
}

// fetchAndApplyBatches fetches ids in chunks of batchSize, retrying ids
// Gmail's batch endpoint reported as retryable for up to maxBatchRetries
// rounds before giving up on the remainder and recording them as errors
//.
func (c *Connector) fetchAndApplyBatches(ctx context.Context, s store.Store, ix *index.Index, account domain.Account, ids []string, report *connector.SyncReport) error {
	pending := append([]string(nil), ids...)

	for round := 0; len(pending) > 0 && round <= maxBatchRetries; round++ {
		var nextPending []string

		for start := 0; start < len(pending); start += batchSize {
			end := start + batchSize
			if end > len(pending) {
				end = len(pending)
			}
			chunk := pending[start:end]

			accessToken, err := c.accessToken(ctx, s, account)
			if err != nil {
				return err
			}
			result, err := c.batchGetMessages(ctx, accessToken, chunk)
			if err != nil {
				return err
			}

			for _, id := range chunk {
				msg, ok := result.messages[id]
				if !ok {
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

			if err := ix.Commit(); err != nil {
				return fmt.Errorf("failed to commit index after batch: %w", err)
			}

			report.Errors = append(report.Errors, result.errors...)
			nextPending = append(nextPending, result.retryableIDs...)
		}

		pending = nextPending
	}

	for _, id := range pending {
		report.Errors = append(report.Errors, fmt.Sprintf("id=%s: exhausted batch retries", id))
	}

	return nil
}

func (c *Connector) fetchProfile(ctx context.Context, accessToken string) (*gmailapi.Profile, error) {
	body, err := c.getJSON(ctx, accessToken, c.gmailAPIBase()+"/users/me/profile")
	if err != nil {
		return nil, err
	}
	var profile gmailapi.Profile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse gmail profile: %w", err)
	}
	return &profile, nil
}

func (c *Connector) fetchMessageListPage(ctx context.Context, accessToken, pageToken string) (*gmailapi.ListMessagesResponse, error) {
	listURL := fmt.Sprintf("%s/users/me/messages?maxResults=%d", c.gmailAPIBase(), listPageSize)
	if pageToken != "" {
		listURL += "&pageToken=" + url.QueryEscape(pageToken)
	}
	body, err := c.getJSON(ctx, accessToken, listURL)
	if err != nil {
		return nil, err
	}
	var page gmailapi.ListMessagesResponse
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("failed to parse gmail message list page: %w", err)
	}
	return &page, nil
}

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
