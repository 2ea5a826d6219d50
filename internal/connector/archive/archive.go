// Package archive implements the connector.Connector contract for local
// JSON archives: a one-shot importer over a file or a directory of
// files, with forgiving field resolution so archives produced by
// different exporters all land in the canonical Email shape.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/krasmussen37/ess/internal/connector"
	"github.com/krasmussen37/ess/internal/domain"
	"github.com/krasmussen37/ess/internal/index"
	"github.com/krasmussen37/ess/internal/store"
)

// Connector is the JSON archive importer.
type Connector struct{}

var _ connector.Connector = (*Connector)(nil)

// New builds an archive Connector.
func New() *Connector { return &Connector{} }

// Name identifies this connector in the registry.
func (c *Connector) Name() string { return "json_archive" }

// Sync is not supported: archives have no remote change feed.
func (c *Connector) Sync(ctx context.Context, s store.Store, ix *index.Index, account domain.Account) (connector.SyncReport, error) {
	return connector.SyncReport{}, fmt.Errorf("json_archive connector does not support live sync; use import")
}

// Import reads a single .json file or every .json file in a directory
// (sorted), maps each payload into an Email, and ingests it. Duplicates
// by id are skipped; per-file failures are recorded in the report and do
// not abort the rest of the run.
func (c *Connector) Import(ctx context.Context, s store.Store, ix *index.Index, path string, account domain.Account) (connector.ImportReport, error) {
	var report connector.ImportReport

	if err := s.UpsertAccount(ctx, &account); err != nil {
		return report, fmt.Errorf("failed to upsert account before import: %w", err)
	}

	files, err := collectJSONFiles(path)
	if err != nil {
		return report, err
	}

	// One batch id per run, stamped into each imported email's metadata
	// so rows can be traced back to the import that produced them.
	batchID := uuid.NewString()

	for _, filePath := range files {
		report.FilesProcessed++

		imported, err := c.importFile(ctx, s, ix, account, filePath, batchID)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", filePath, err))
			continue
		}
		if imported {
			report.Imported++
		}
	}

	if err := ix.Commit(); err != nil {
		return report, fmt.Errorf("failed to commit index after import: %w", err)
	}

	return report, nil
}

func collectJSONFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("import path does not exist: %w", err)
	}

	if !info.IsDir() {
		if strings.EqualFold(filepath.Ext(path), ".json") {
			return []string{path}, nil
		}
		return nil, fmt.Errorf("expected .json file, got %s", path)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive directory %s: %w", path, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.Type().IsRegular() && strings.EqualFold(filepath.Ext(entry.Name()), ".json") {
			files = append(files, filepath.Join(path, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// importFile reads one archive file and ingests its email, reporting
// imported=false when the id already exists in the Store.
func (c *Connector) importFile(ctx context.Context, s store.Store, ix *index.Index, account domain.Account, filePath, batchID string) (bool, error) {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return false, fmt.Errorf("failed to read archive file: %w", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return false, fmt.Errorf("failed to parse archive file: %w", err)
	}

	email, err := mapArchivePayload(payload, account.ID, filepath.Base(filePath), batchID)
	if err != nil {
		return false, err
	}

	if existing, err := s.GetEmail(ctx, email.ID); err == nil && existing != nil {
		return false, nil
	}

	if _, err := connector.Ingest(ctx, s, ix, email, account.Kind); err != nil {
		return false, err
	}
	return true, nil
}
