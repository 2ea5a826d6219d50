package connector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/krasmussen37/ess/internal/domain"
	"github.com/krasmussen37/ess/internal/index"
	"github.com/krasmussen37/ess/internal/store"
)

// Ingest applies the per-email sequence shared by every connector:
// mapping is already done by the caller, this upserts into the Store,
// buffers into the Index (committed by the
// caller once per page/batch), and fans out contact-stat updates. It
// reports whether the email already existed, so callers can tally
// added/updated.
func Ingest(ctx context.Context, s store.Store, ix *index.Index, e domain.Email, kind domain.AccountKind) (existed bool, err error) {
	if existing, getErr := s.GetEmail(ctx, e.ID); getErr == nil && existing != nil {
		existed = true
	}

	if err := s.UpsertEmail(ctx, &e); err != nil {
		return existed, fmt.Errorf("failed to upsert email %s: %w", e.ID, err)
	}

	if err := ix.AddEmailBuffered(e, kind); err != nil {
		return existed, fmt.Errorf("failed to buffer email %s for indexing: %w", e.ID, err)
	}

	for _, addr := range uniqueLowerAddresses(e) {
		if err := s.UpdateContactStats(ctx, addr, time.Now()); err != nil {
			return existed, fmt.Errorf("failed to update contact stats for %s: %w", addr, err)
		}
	}

	return existed, nil
}

// Remove deletes an email from both the Store and the Index, used by
// connectors applying a provider-reported deletion.
func Remove(ctx context.Context, s store.Store, ix *index.Index, id string) error {
	if err := s.DeleteEmail(ctx, id); err != nil {
		return fmt.Errorf("failed to delete email %s: %w", id, err)
	}
	if err := ix.DeleteEmail(id); err != nil {
		return fmt.Errorf("failed to delete email %s from index: %w", id, err)
	}
	return nil
}

func uniqueLowerAddresses(e domain.Email) []string {
	seen := map[string]bool{}
	var out []string
	add := func(addr string) {
		addr = strings.ToLower(strings.TrimSpace(addr))
		if addr == "" || seen[addr] {
			return
		}
		seen[addr] = true
		out = append(out, addr)
	}
	add(e.FromAddr)
	for _, addr := range e.Recipients() {
		add(addr)
	}
	return out
}
