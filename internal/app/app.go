// Package app is the composition root's working half: it owns the shared
// Store and Index handles, the connector registry, and the sync
// orchestration the CLI and the tool server both call into.
package app

import (
	"context"
	"fmt"
	"os"

	"github.com/krasmussen37/ess/internal/config"
	"github.com/krasmussen37/ess/internal/connector"
	"github.com/krasmussen37/ess/internal/connector/archive"
	"github.com/krasmussen37/ess/internal/connector/gmail"
	"github.com/krasmussen37/ess/internal/connector/graph"
	"github.com/krasmussen37/ess/internal/env"
	"github.com/krasmussen37/ess/internal/index"
	"github.com/krasmussen37/ess/internal/search"
	"github.com/krasmussen37/ess/internal/store"
	"github.com/krasmussen37/ess/internal/store/sqlite"
	"github.com/krasmussen37/ess/internal/token"
)

// App bundles the process-wide handles: one Store, one Index writer, the
// connector registry, and the search coordinator over them.
type App struct {
	Config   *config.Config
	Store    store.Store
	Index    *index.Index
	Registry *connector.Registry
	Search   *search.Coordinator

	env      *env.Snapshot
	tokenKey []byte
}

// Open builds a fully wired App against the default data directory. The
// environment snapshot is taken once here; connectors read credentials
// through it for the rest of the run.
func Open(ctx context.Context) (*App, error) {
	cfg, err := config.Load("")
	if err != nil {
		return nil, err
	}

	snapshot := env.Capture()

	var tokenKey []byte
	if raw := snapshot.Get("ESS_TOKEN_CACHE_KEY"); raw != "" {
		tokenKey, err = token.ParseKeyHex(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid ESS_TOKEN_CACHE_KEY: %w", err)
		}
	}

	s, err := sqlite.Open(config.DBPath())
	if err != nil {
		return nil, err
	}

	ix, err := openIndexWithRecovery(ctx, s, config.IndexDir())
	if err != nil {
		s.Close()
		return nil, err
	}

	registry := connector.NewRegistry()
	registry.Register(graph.New(snapshot, tokenKey))
	registry.Register(gmail.New(snapshot, tokenKey))
	registry.Register(archive.New())

	return &App{
		Config:   cfg,
		Store:    s,
		Index:    ix,
		Registry: registry,
		Search:   search.New(s, ix),
		env:      snapshot,
		tokenKey: tokenKey,
	}, nil
}

// Close releases the Index and Store handles, Index first so its final
// commit can still read the Store if bleve needs to flush.
func (a *App) Close() error {
	var firstErr error
	if a.Index != nil {
		if err := a.Index.Close(); err != nil {
			firstErr = err
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// openIndexWithRecovery opens the Index, and on failure removes the
// directory and rebuilds it from the Store before retrying once — the
// Store is authoritative for content, so a corrupt index is never
// fatal.
func openIndexWithRecovery(ctx context.Context, s store.Store, path string) (*index.Index, error) {
	ix, err := index.Open(path)
	if err == nil {
		return ix, nil
	}

	fmt.Fprintf(os.Stderr, "failed to open index at %s: %v; rebuilding from store\n", path, err)
	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("failed to remove corrupt index directory %s: %w", path, err)
	}

	ix, err = index.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to recreate index at %s: %w", path, err)
	}
	if _, err := ix.Reindex(ctx, s); err != nil {
		ix.Close()
		return nil, fmt.Errorf("failed to rebuild index from store: %w", err)
	}
	return ix, nil
}
