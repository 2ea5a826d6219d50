// Package search fuses the Index's scored ranking with the Store's
// authoritative records: the index ranks and coarse-filters,
// the store hydrates, and residual predicates the index cannot express
// are applied afterwards. Ordering is always the index's score order.
package search

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/krasmussen37/ess/internal/domain"
	"github.com/krasmussen37/ess/internal/filter"
	"github.com/krasmussen37/ess/internal/index"
	"github.com/krasmussen37/ess/internal/store"
)

// Result is one ranked hit: the full email, its BM25 score, and a short
// snippet around the first match in the body.
type Result struct {
	Email   domain.Email
	Score   float64
	Snippet string
}

// Coordinator orchestrates one search across the Index and the Store.
type Coordinator struct {
	store store.Store
	index *index.Index
}

// New builds a Coordinator over the shared store and index handles.
func New(s store.Store, ix *index.Index) *Coordinator {
	return &Coordinator{store: s, index: ix}
}

// Search runs f against the index, hydrates each hit from the store,
// applies the residual predicates, and returns the page window
// [offset, offset+limit) in index score order. Hits whose id is missing
// from the store (an index/store inconsistency) are skipped.
func (c *Coordinator) Search(ctx context.Context, f filter.Filter) ([]Result, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = filter.DefaultLimit
	}
	requested := limit + f.Offset
	if requested < 1 {
		requested = 1
	}

	hits, err := c.index.Search(f.ToIndexQuery(), requested, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to query index: %w", err)
	}

	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		email, err := c.store.GetEmail(ctx, hit.ID)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to hydrate email %s: %w", hit.ID, err)
		}
		if email == nil {
			continue
		}
		if !matchesResiduals(*email, f) {
			continue
		}
		results = append(results, Result{
			Email:   *email,
			Score:   hit.Score,
			Snippet: buildSnippet(*email, f.Query),
		})
	}

	if f.Offset > 0 {
		if f.Offset >= len(results) {
			return nil, nil
		}
		results = results[f.Offset:]
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// matchesResiduals applies the predicates the index query did not cover
// for this hit: exact from-address and account, membership of the `to`
// filter in any recipient list, and unread-only.
func matchesResiduals(email domain.Email, f filter.Filter) bool {
	if from := strings.TrimSpace(f.From); from != "" {
		if !strings.EqualFold(email.FromAddr, from) {
			return false
		}
	}

	if account := strings.TrimSpace(f.Account); account != "" {
		if email.AccountID != account {
			return false
		}
	}

	if to := strings.TrimSpace(f.To); to != "" {
		found := false
		for _, addr := range email.Recipients() {
			if strings.EqualFold(addr, to) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if f.UnreadOnly && email.IsRead {
		return false
	}

	return true
}
