// Package connector defines the provider-agnostic sync/import contract
// and a name-keyed registry of concrete connectors.
package connector

import (
	"context"
	"strings"

	"github.com/krasmussen37/ess/internal/domain"
	"github.com/krasmussen37/ess/internal/index"
	"github.com/krasmussen37/ess/internal/store"
)

// SyncReport aggregates the outcome of one sync() call. Errors are
// collected rather than aborting the run: a batch that produces errors
// still commits its successes.
type SyncReport struct {
	Added   int
	Updated int
	Removed int
	Errors  []string
}

// ImportReport aggregates the outcome of one import() call.
type ImportReport struct {
	FilesProcessed int
	Imported       int
	Errors         []string
}

// Connector is implemented by each provider-specific sync/import
// component. Sync performs remote, credentialed ingestion;
// Import reads from a local path and never talks to a remote provider.
type Connector interface {
	Name() string
	Sync(ctx context.Context, s store.Store, ix *index.Index, account domain.Account) (SyncReport, error)
	Import(ctx context.Context, s store.Store, ix *index.Index, path string, account domain.Account) (ImportReport, error)
}

// Registry is a case-insensitive, name-keyed lookup of connectors,
// populated at construction time by internal/app when it builds the App.
type Registry struct {
	byName map[string]Connector
	order  []string
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byName: map[string]Connector{}}
}

// Register adds c under its own Name(), lowercased.
func (r *Registry) Register(c Connector) {
	key := strings.ToLower(c.Name())
	if _, exists := r.byName[key]; !exists {
		r.order = append(r.order, key)
	}
	r.byName[key] = c
}

// Get looks up a connector by name, case-insensitively.
func (r *Registry) Get(name string) (Connector, bool) {
	c, ok := r.byName[strings.ToLower(name)]
	return c, ok
}

// All returns every registered connector in registration order.
func (r *Registry) All() []Connector {
	out := make([]Connector, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}
