package search

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/krasmussen37/ess/internal/domain"
	"github.com/krasmussen37/ess/internal/filter"
	"github.com/krasmussen37/ess/internal/index"
	"github.com/krasmussen37/ess/internal/store/sqlite"
)

type fixture struct {
	store *sqlite.DB
	index *index.Index
	coord *Coordinator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	s, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ix, err := index.Open(filepath.Join(t.TempDir(), "index"))
	require.NoError(t, err)
	t.Cleanup(func() { ix.Close() })

	return &fixture{store: s, index: ix, coord: New(s, ix)}
}

func (f *fixture) addAccount(t *testing.T, id string, kind domain.AccountKind) {
	t.Helper()
	err := f.store.UpsertAccount(context.Background(), &domain.Account{
		ID: id, Address: id + "@example.com", Kind: kind, Enabled: true,
	})
	require.NoError(t, err)
}

func (f *fixture) addEmail(t *testing.T, e domain.Email, kind domain.AccountKind) {
	t.Helper()
	if e.ReceivedAt.IsZero() {
		e.ReceivedAt = time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	}
	require.NoError(t, f.store.UpsertEmail(context.Background(), &e))
	require.NoError(t, f.index.AddEmail(e, kind))
}

func TestSearchRanksSubjectOverBody(t *testing.T) {
	f := newFixture(t)
	f.addAccount(t, "acc-pro", domain.KindProfessional)
	f.addAccount(t, "acc-personal", domain.KindPersonal)

	f.addEmail(t, domain.Email{
		ID: "A", AccountID: "acc-pro", Subject: "Kickoff notes", BodyText: "agenda",
	}, domain.KindProfessional)
	f.addEmail(t, domain.Email{
		ID: "B", AccountID: "acc-personal", Subject: "Weekly digest", BodyText: "kickoff mentioned here",
	}, domain.KindPersonal)

	results, err := f.coord.Search(context.Background(), filter.Filter{
		Query: "kickoff", Scope: filter.ScopeAll, Limit: 10,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "A", results[0].Email.ID)
	require.Equal(t, "B", results[1].Email.ID)
	require.Greater(t, results[0].Score, results[1].Score,
		"a subject match must outscore a body match")
}

func TestSearchScopeFilter(t *testing.T) {
	f := newFixture(t)
	f.addAccount(t, "acc-pro", domain.KindProfessional)
	f.addAccount(t, "acc-personal", domain.KindPersonal)

	f.addEmail(t, domain.Email{
		ID: "A", AccountID: "acc-pro", Subject: "Kickoff notes", BodyText: "agenda",
	}, domain.KindProfessional)
	f.addEmail(t, domain.Email{
		ID: "B", AccountID: "acc-personal", Subject: "Weekly digest", BodyText: "kickoff mentioned here",
	}, domain.KindPersonal)

	results, err := f.coord.Search(context.Background(), filter.Filter{
		Query: "kickoff", Scope: filter.ScopeProfessional, Limit: 10,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "A", results[0].Email.ID)
}

func TestSearchResidualPredicates(t *testing.T) {
	f := newFixture(t)
	f.addAccount(t, "acc-pro", domain.KindProfessional)

	f.addEmail(t, domain.Email{
		ID: "read", AccountID: "acc-pro", Subject: "status update",
		FromAddr: "alice@example.com", To: []string{"me@example.com"}, IsRead: true,
	}, domain.KindProfessional)
	f.addEmail(t, domain.Email{
		ID: "unread", AccountID: "acc-pro", Subject: "status update",
		FromAddr: "bob@example.com", CC: []string{"me@example.com"}, IsRead: false,
	}, domain.KindProfessional)

	results, err := f.coord.Search(context.Background(), filter.Filter{
		Query: "status", Scope: filter.ScopeAll, UnreadOnly: true, Limit: 10,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "unread", results[0].Email.ID)

	results, err = f.coord.Search(context.Background(), filter.Filter{
		Query: "status", Scope: filter.ScopeAll, From: "ALICE@example.com", Limit: 10,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "read", results[0].Email.ID, "from filter is case-insensitive")

	results, err = f.coord.Search(context.Background(), filter.Filter{
		Query: "status", Scope: filter.ScopeAll, To: "me@example.com", Limit: 10,
	})
	require.NoError(t, err)
	require.Len(t, results, 2, "to filter matches to/cc/bcc membership")
}

func TestSearchLimitAndOffset(t *testing.T) {
	f := newFixture(t)
	f.addAccount(t, "acc-pro", domain.KindProfessional)

	for _, id := range []string{"1", "2", "3", "4"} {
		f.addEmail(t, domain.Email{
			ID: id, AccountID: "acc-pro", Subject: "meeting " + id, BodyText: "notes",
		}, domain.KindProfessional)
	}

	page1, err := f.coord.Search(context.Background(), filter.Filter{
		Query: "meeting", Scope: filter.ScopeAll, Limit: 2,
	})
	require.NoError(t, err)
	require.Len(t, page1, 2)

	page2, err := f.coord.Search(context.Background(), filter.Filter{
		Query: "meeting", Scope: filter.ScopeAll, Limit: 2, Offset: 2,
	})
	require.NoError(t, err)
	require.Len(t, page2, 2)
	require.NotEqual(t, page1[0].Email.ID, page2[0].Email.ID)
}

func TestSearchSkipsHitsMissingFromStore(t *testing.T) {
	f := newFixture(t)
	f.addAccount(t, "acc-pro", domain.KindProfessional)

	// Index a document without a corresponding store row.
	require.NoError(t, f.index.AddEmail(domain.Email{
		ID: "ghost", Subject: "kickoff", ReceivedAt: time.Now(),
	}, domain.KindProfessional))

	results, err := f.coord.Search(context.Background(), filter.Filter{
		Query: "kickoff", Scope: filter.ScopeAll, Limit: 10,
	})
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestBuildSnippetWindowsAroundMatch(t *testing.T) {
	body := strings.Repeat("x", 200) + " the kickoff agenda follows " + strings.Repeat("y", 200)
	email := domain.Email{BodyText: body}

	snippet := buildSnippet(email, "kickoff")
	require.Contains(t, snippet, "kickoff")
	require.True(t, strings.Contains(body, snippet), "snippet must be a substring of the body")
	require.LessOrEqual(t, len(snippet), snippetBefore+len("kickoff")+snippetAfter+1)
}

func TestBuildSnippetNeverSplitsMultiByteRunes(t *testing.T) {
	body := strings.Repeat("é", 100) + "kickoff" + strings.Repeat("日", 100)
	email := domain.Email{BodyText: body}

	snippet := buildSnippet(email, "kickoff")
	require.True(t, utf8ValidString(snippet), "snippet must not split a multi-byte rune")
	require.True(t, strings.Contains(body, snippet))
}

func TestBuildSnippetFallbacks(t *testing.T) {
	email := domain.Email{BodyText: "short body with no match"}
	snippet := buildSnippet(email, "zzz")
	require.Equal(t, "short body with no match", snippet)

	require.Empty(t, buildSnippet(email, ""))

	email = domain.Email{Preview: "preview only text with kickoff inside"}
	require.Contains(t, buildSnippet(email, "kickoff"), "kickoff")
}

func utf8ValidString(s string) bool {
	for _, r := range s {
		if r == '�' {
			return false
		}
	}
	return true
}
