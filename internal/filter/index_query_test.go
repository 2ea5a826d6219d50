package filter

import (
	"os"
	"testing"
	"time"

	"github.com/krasmussen37/ess/internal/domain"
	"github.com/krasmussen37/ess/internal/index"
)

func newTestIndex(t *testing.T) *index.Index {
	t.Helper()
	dir, err := os.MkdirTemp("", "ess-filter-index-*")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	ix, err := index.Open(dir)
	if err != nil {
		t.Fatalf("index.Open: %v", err)
	}
	t.Cleanup(func() { ix.Close() })
	return ix
}

func TestToIndexQuery_ScopeFiltersByAccountKind(t *testing.T) {
	ix := newTestIndex(t)

	if err := ix.AddEmailBuffered(domain.Email{
		ID: "a", Subject: "kickoff planning", ReceivedAt: time.Now(),
	}, domain.KindProfessional); err != nil {
		t.Fatalf("AddEmailBuffered: %v", err)
	}
	if err := ix.AddEmailBuffered(domain.Email{
		ID: "b", Subject: "kickoff dinner", ReceivedAt: time.Now(),
	}, domain.KindPersonal); err != nil {
		t.Fatalf("AddEmailBuffered: %v", err)
	}
	if err := ix.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	f := Filter{Query: "kickoff", Scope: ScopeProfessional}
	hits, err := ix.Search(f.ToIndexQuery(), 10, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "a" {
		t.Fatalf("hits = %+v, want exactly [a]", hits)
	}
}

func TestToIndexQuery_UnreadOnly(t *testing.T) {
	ix := newTestIndex(t)

	if err := ix.AddEmailBuffered(domain.Email{ID: "read", Subject: "status", IsRead: true, ReceivedAt: time.Now()}, domain.KindPersonal); err != nil {
		t.Fatalf("AddEmailBuffered: %v", err)
	}
	if err := ix.AddEmailBuffered(domain.Email{ID: "unread", Subject: "status", IsRead: false, ReceivedAt: time.Now()}, domain.KindPersonal); err != nil {
		t.Fatalf("AddEmailBuffered: %v", err)
	}
	if err := ix.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	f := Filter{Query: "status", UnreadOnly: true}
	hits, err := ix.Search(f.ToIndexQuery(), 10, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "unread" {
		t.Fatalf("hits = %+v, want exactly [unread]", hits)
	}
}

func TestToIndexQuery_EmptyQueryMatchesAll(t *testing.T) {
	ix := newTestIndex(t)
	if err := ix.AddEmailBuffered(domain.Email{ID: "only", Subject: "anything", ReceivedAt: time.Now()}, domain.KindPersonal); err != nil {
		t.Fatalf("AddEmailBuffered: %v", err)
	}
	if err := ix.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	var f Filter
	hits, err := ix.Search(f.ToIndexQuery(), 10, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("hits = %+v, want 1", hits)
	}
}
