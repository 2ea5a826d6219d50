package connector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/krasmussen37/ess/internal/apperr"
)

// MaxRateLimitRetries bounds the number of 429 retries per request.
const MaxRateLimitRetries = 5

// initialBackoff and maxBackoff bound the exponential backoff applied
// between 429 retries.
const (
	initialBackoff = 1 * time.Second
	maxBackoff     = 32 * time.Second
)

// Sleep is a package-level indirection so tests can stub out real waits.
var Sleep = time.Sleep

// DoWithRetry executes req (built fresh each attempt by build, since an
// *http.Request body can only be read once) and retries on HTTP 429 with
// exponential backoff, honoring a Retry-After header in whole seconds
// when present. Other non-2xx statuses and transport errors are returned
// immediately as apperr.TransientProviderError (5xx/network) or
// apperr.PermanentProviderError (other 4xx); they are
// never retried here.
func DoWithRetry(ctx context.Context, client *http.Client, build func() (*http.Request, error)) ([]byte, error) {
	backoff := initialBackoff

	for attempt := 0; attempt <= MaxRateLimitRetries; attempt++ {
		req, err := build()
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}
		req = req.WithContext(ctx)

		resp, err := client.Do(req)
		if err != nil {
			return nil, &apperr.TransientProviderError{Msg: "request failed", Err: err}
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, &apperr.TransientProviderError{Msg: "failed to read response body", Err: readErr}
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			if attempt == MaxRateLimitRetries {
				return nil, &apperr.TransientProviderError{
					Code: resp.StatusCode,
					Msg:  fmt.Sprintf("request exhausted retries: %s", apperr.TruncateBody(body)),
				}
			}
			wait := backoff
			if ra := resp.Header.Get("Retry-After"); ra != "" {
				if secs, err := strconv.Atoi(ra); err == nil && secs >= 0 {
					wait = time.Duration(secs) * time.Second
				}
			}
			Sleep(wait)
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}

		if resp.StatusCode >= 500 {
			return nil, &apperr.TransientProviderError{
				Code: resp.StatusCode,
				Msg:  fmt.Sprintf("server error: %s", apperr.TruncateBody(body)),
			}
		}
		if resp.StatusCode >= 400 {
			return nil, &apperr.PermanentProviderError{
				Code: resp.StatusCode,
				Msg:  fmt.Sprintf("request failed: %s", apperr.TruncateBody(body)),
			}
		}

		return body, nil
	}

	return nil, &apperr.TransientProviderError{Msg: "request failed without a response"}
}
