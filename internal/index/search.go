package index

import (
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// Hit is a scored match returned by Search. The coordinator hydrates the
// full record from the Store using ID.
type Hit struct {
	ID    string
	Score float64
}

// Search runs q against the index, returning up to size hits starting at
// offset from, ordered by score descending (bleve's default order).
func (ix *Index) Search(q query.Query, size, from int) ([]Hit, error) {
	ix.mu.Lock()
	idx := ix.bleve
	ix.mu.Unlock()

	req := bleve.NewSearchRequestOptions(q, size, from, false)
	// Descending score with the document id as a deterministic tie-break.
	req.SortBy([]string{"-_score", "_id"})
	result, err := idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("failed to run search: %w", err)
	}

	hits := make([]Hit, 0, len(result.Hits))
	for _, h := range result.Hits {
		hits = append(hits, Hit{ID: h.ID, Score: h.Score})
	}
	return hits, nil
}
