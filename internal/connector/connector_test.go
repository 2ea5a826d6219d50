package connector

import (
	"context"
	"testing"

	"github.com/krasmussen37/ess/internal/domain"
	"github.com/krasmussen37/ess/internal/index"
	"github.com/krasmussen37/ess/internal/store"
)

type stubConnector struct{ name string }

func (s stubConnector) Name() string { return s.name }
func (s stubConnector) Sync(ctx context.Context, st store.Store, ix *index.Index, a domain.Account) (SyncReport, error) {
	return SyncReport{}, nil
}
func (s stubConnector) Import(ctx context.Context, st store.Store, ix *index.Index, path string, a domain.Account) (ImportReport, error) {
	return ImportReport{}, nil
}

func TestRegistry_LookupIsCaseInsensitive(t *testing.T) {
	r := NewRegistry()
	r.Register(stubConnector{name: "Gmail"})

	got, ok := r.Get("GMAIL")
	if !ok {
		t.Fatal("Get(\"GMAIL\") not found")
	}
	if got.Name() != "Gmail" {
		t.Errorf("got.Name() = %q, want Gmail", got.Name())
	}
}

func TestRegistry_AllPreservesRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(stubConnector{name: "graph"})
	r.Register(stubConnector{name: "gmail"})
	r.Register(stubConnector{name: "json_archive"})

	all := r.All()
	if len(all) != 3 || all[0].Name() != "graph" || all[2].Name() != "json_archive" {
		t.Fatalf("All() = %+v, want [graph gmail json_archive]", all)
	}
}

func TestUniqueLowerAddresses_DedupesAndLowercases(t *testing.T) {
	e := domain.Email{
		FromAddr: "Alice@Example.com",
		To:       []string{"bob@example.com", "ALICE@example.com"},
		CC:       []string{"  "},
	}
	got := uniqueLowerAddresses(e)
	want := map[string]bool{"alice@example.com": true, "bob@example.com": true}
	if len(got) != len(want) {
		t.Fatalf("uniqueLowerAddresses() = %v, want %v", got, want)
	}
	for _, addr := range got {
		if !want[addr] {
			t.Errorf("unexpected address %q", addr)
		}
	}
}
