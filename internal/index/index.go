// Package index wraps a bleve full-text index over the email corpus. It is
// authoritative for scored search only; the Store remains authoritative
// for content.
package index

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/krasmussen37/ess/internal/apperr"
	"github.com/krasmussen37/ess/internal/domain"
	"github.com/krasmussen37/ess/internal/store"
)

// Index is a thin, mutex-guarded wrapper around a bleve.Index that adds
// a buffered-add/commit cycle: writers call
// AddEmailBuffered repeatedly and then Commit once per batch, rather than paying
// a disk flush per document.
type Index struct {
	path string

	mu    sync.Mutex
	bleve bleve.Index
	batch *bleve.Batch
}

// Open opens an existing on-disk index, creating one with the package's
// mapping if none exists yet at path.
func Open(path string) (*Index, error) {
	idx, err := bleve.Open(path)
	if err == nil {
		return newIndex(path, idx), nil
	}
	if !errors.Is(err, bleve.ErrorIndexPathDoesNotExist) && !errors.Is(err, bleve.ErrorIndexMetaMissing) {
		return nil, fmt.Errorf("failed to open index at %s: %w",
			path, apperr.NewLocalError("search index could not be opened, it may be corrupt", err))
	}

	m, err := buildIndexMapping()
	if err != nil {
		return nil, fmt.Errorf("failed to build index mapping: %w", err)
	}
	idx, err = bleve.New(path, m)
	if err != nil {
		return nil, fmt.Errorf("failed to create index at %s: %w", path, err)
	}
	return newIndex(path, idx), nil
}

func newIndex(path string, idx bleve.Index) *Index {
	return &Index{path: path, bleve: idx, batch: idx.NewBatch()}
}

// AddEmailBuffered stages an email for indexing. It is not visible to
// Search until Commit is called; callers doing bulk work (Reindex, an
// import, or a connector's bootstrap pass) should buffer and commit once
// per batch rather than paying a disk flush per document.
func (ix *Index) AddEmailBuffered(e domain.Email, kind domain.AccountKind) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if err := ix.batch.Index(e.ID, toDocument(e, kind)); err != nil {
		return fmt.Errorf("failed to buffer email %s for indexing: %w", e.ID, err)
	}
	return nil
}

// AddEmail indexes a single email and commits immediately, making it
// visible to Search as soon as it returns. Connector ingest does not use
// it (that path stages with AddEmailBuffered and commits per batch); it
// replaces any existing document for the id, so it is idempotent.
func (ix *Index) AddEmail(e domain.Email, kind domain.AccountKind) error {
	ix.mu.Lock()
	batch := ix.bleve.NewBatch()
	if err := batch.Index(e.ID, toDocument(e, kind)); err != nil {
		ix.mu.Unlock()
		return fmt.Errorf("failed to index email %s: %w", e.ID, err)
	}
	err := ix.bleve.Batch(batch)
	ix.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to commit email %s to index: %w", e.ID, err)
	}
	return nil
}

// Commit flushes the buffered batch to the index and resets the batch
// for the next round of adds.
func (ix *Index) Commit() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.batch.Size() == 0 {
		return nil
	}
	if err := ix.bleve.Batch(ix.batch); err != nil {
		return fmt.Errorf("failed to commit index batch: %w", err)
	}
	ix.batch = ix.bleve.NewBatch()
	return nil
}

// DeleteEmail removes a document by id, visible immediately.
func (ix *Index) DeleteEmail(id string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if err := ix.bleve.Delete(id); err != nil {
		return fmt.Errorf("failed to delete email %s from index: %w", id, err)
	}
	return nil
}

// Stats reports corpus size for the stats command/tool.
type Stats struct {
	DocCount  uint64
	SizeBytes uint64
}

func (ix *Index) Stats() (Stats, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	count, err := ix.bleve.DocCount()
	if err != nil {
		return Stats{}, fmt.Errorf("failed to count indexed documents: %w", err)
	}

	var size uint64
	if sizer, ok := ix.bleve.(interface{ StatsMap() map[string]interface{} }); ok {
		if v, ok := sizer.StatsMap()["index"].(map[string]interface{}); ok {
			if n, ok := v["CurOnDiskBytes"].(uint64); ok {
				size = n
			}
		}
	}

	return Stats{DocCount: count, SizeBytes: size}, nil
}

// Close releases the underlying bleve index.
func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.bleve.Close()
}

// Reindex clears and rebuilds the index from the Store's AllEmails stream,
// the recovery path when Open detects corruption or when the user runs an
// explicit reindex. It returns the number of
// documents indexed.
func (ix *Index) Reindex(ctx context.Context, s store.Store) (int, error) {
	if err := ix.deleteAll(); err != nil {
		return 0, err
	}

	ix.mu.Lock()
	ix.batch = ix.bleve.NewBatch()
	ix.mu.Unlock()

	count := 0
	err := s.AllEmails(ctx, func(e domain.Email, kind domain.AccountKind) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := ix.AddEmailBuffered(e, kind); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("failed to stream emails for reindex: %w", err)
	}
	if err := ix.Commit(); err != nil {
		return count, err
	}
	return count, nil
}

// deleteAll drops every document currently in the index, so a reindex
// over a Store that lost rows does not leave stale documents behind.
func (ix *Index) deleteAll() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	for {
		req := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), 1000, 0, false)
		result, err := ix.bleve.Search(req)
		if err != nil {
			return fmt.Errorf("failed to enumerate documents for reindex: %w", err)
		}
		if len(result.Hits) == 0 {
			return nil
		}
		batch := ix.bleve.NewBatch()
		for _, hit := range result.Hits {
			batch.Delete(hit.ID)
		}
		if err := ix.bleve.Batch(batch); err != nil {
			return fmt.Errorf("failed to delete documents for reindex: %w", err)
		}
	}
}
