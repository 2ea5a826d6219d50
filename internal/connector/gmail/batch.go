package gmail

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/krasmussen37/ess/internal/apperr"
	"github.com/krasmussen37/ess/internal/connector"
)

// requestBoundary is the multipart boundary ess uses for outgoing batch
// requests. Gmail's batch response uses its own, different boundary,
// which postBatch reads back from the response Content-Type header.
const requestBoundary = "ess_gmail_batch_boundary"

type batchResult struct {
	messages     map[string]*gmailapi.Message
	retryableIDs []string
	errors       []string
}

// batchGetMessages issues one Gmail batch request for ids (already
// chunked to at most batchSize) and returns the full-format messages it
// could parse, the ids that came back retryable (a 429 sub-response, or
// an id the batch response didn't account for at all), and error lines
// for sub-requests that failed permanently. Adapted to use net/http's
// own response parser on each multipart part's raw HTTP text instead of
// hand-rolled brace matching.
func (c *Connector) batchGetMessages(ctx context.Context, accessToken string, ids []string) (batchResult, error) {
	result := batchResult{messages: map[string]*gmailapi.Message{}}
	if len(ids) == 0 {
		return result, nil
	}

	contentType, respBody, err := c.postBatch(ctx, accessToken, buildBatchRequestBody(ids))
	if err != nil {
		return result, err
	}

	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return result, fmt.Errorf("failed to parse batch response content type %q: %w", contentType, err)
	}
	boundary := params["boundary"]
	if boundary == "" {
		return result, fmt.Errorf("batch response content type %q carried no boundary", contentType)
	}

	reader := multipart.NewReader(bytes.NewReader(respBody), boundary)
	idx := 0

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return result, fmt.Errorf("failed to read batch response part: %w", err)
		}

		i := idx
		idx++
		id := ""
		if i < len(ids) {
			id = ids[i]
		}
		markRetryable := func() {
			if id != "" {
				result.retryableIDs = append(result.retryableIDs, id)
			}
		}

		inner, err := http.ReadResponse(bufio.NewReader(part), nil)
		if err != nil {
			part.Close()
			markRetryable()
			continue
		}
		payload, readErr := io.ReadAll(inner.Body)
		inner.Body.Close()
		part.Close()
		if readErr != nil {
			markRetryable()
			continue
		}

		switch {
		case inner.StatusCode == http.StatusTooManyRequests:
			markRetryable()
			continue
		case inner.StatusCode >= 300:
			// Permanent per-message failure (e.g. 404 for a message deleted
			// mid-enumeration): reported, never retried.
			result.errors = append(result.errors,
				fmt.Sprintf("id=%s status=%d: %s", id, inner.StatusCode, apperr.TruncateBody(payload)))
			continue
		}

		var msg gmailapi.Message
		if err := json.Unmarshal(payload, &msg); err != nil || msg.Id == "" {
			markRetryable()
			continue
		}
		result.messages[msg.Id] = &msg
	}

	for i := idx; i < len(ids); i++ {
		result.retryableIDs = append(result.retryableIDs, ids[i])
	}

	return result, nil
}

func buildBatchRequestBody(ids []string) []byte {
	var buf bytes.Buffer
	for i, id := range ids {
		fmt.Fprintf(&buf, "--%s\r\n", requestBoundary)
		buf.WriteString("Content-Type: application/http\r\n")
		fmt.Fprintf(&buf, "Content-ID: <item%d>\r\n\r\n", i+1)
		fmt.Fprintf(&buf, "GET /gmail/v1/users/me/messages/%s?format=full HTTP/1.1\r\n\r\n", id)
	}
	fmt.Fprintf(&buf, "--%s--\r\n", requestBoundary)
	return buf.Bytes()
}

// postBatch performs the batch HTTP call with the same 429 backoff policy
// as connector.DoWithRetry, but (unlike that helper) also returns the
// response's Content-Type header, needed to learn Gmail's response
// boundary.
func (c *Connector) postBatch(ctx context.Context, accessToken string, body []byte) (contentType string, respBody []byte, err error) {
	backoff := 1 * time.Second
	const maxBackoff = 32 * time.Second

	for attempt := 0; attempt <= connector.MaxRateLimitRetries; attempt++ {
		req, buildErr := http.NewRequest(http.MethodPost, c.gmailBatchURL(), bytes.NewReader(body))
		if buildErr != nil {
			return "", nil, buildErr
		}
		req = req.WithContext(ctx)
		req.Header.Set("Authorization", "Bearer "+accessToken)
		req.Header.Set("Content-Type", fmt.Sprintf("multipart/mixed; boundary=%s", requestBoundary))

		resp, doErr := c.client.Do(req)
		if doErr != nil {
			return "", nil, &apperr.TransientProviderError{Msg: "batch request failed", Err: doErr}
		}
		raw, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return "", nil, &apperr.TransientProviderError{Msg: "failed to read batch response", Err: readErr}
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			if attempt == connector.MaxRateLimitRetries {
				return "", nil, &apperr.TransientProviderError{Code: resp.StatusCode, Msg: "batch request exhausted retries"}
			}
			wait := backoff
			if ra := resp.Header.Get("Retry-After"); ra != "" {
				if secs, err := strconv.Atoi(ra); err == nil && secs >= 0 {
					wait = time.Duration(secs) * time.Second
				}
			}
			connector.Sleep(wait)
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		if resp.StatusCode >= 500 {
			return "", nil, &apperr.TransientProviderError{Code: resp.StatusCode, Msg: fmt.Sprintf("batch server error: %s", apperr.TruncateBody(raw))}
		}
		if resp.StatusCode >= 400 {
			return "", nil, &apperr.PermanentProviderError{Code: resp.StatusCode, Msg: fmt.Sprintf("batch request failed: %s", apperr.TruncateBody(raw))}
		}

		return resp.Header.Get("Content-Type"), raw, nil
	}

	return "", nil, &apperr.TransientProviderError{Msg: "batch request failed without a response"}
}
