package filter

import (
	"testing"
	"time"
)

func TestToSQLWhere_EmptyFilterIsTriviallyTrue(t *testing.T) {
	var f Filter
	got := f.ToSQLWhere()
	if got.Clause != "1 = 1" {
		t.Errorf("Clause = %q, want %q", got.Clause, "1 = 1")
	}
	if len(got.Params) != 0 {
		t.Errorf("Params = %v, want empty", got.Params)
	}
}

func TestToSQLWhere_FullyPopulatedFilter(t *testing.T) {
	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	f := Filter{
		Query:      "kickoff",
		Scope:      ScopeProfessional,
		From:       "alice@example.com",
		To:         "owner@example.com",
		Since:      &since,
		Until:      &until,
		Account:    "acc-pro",
		Folder:     "inbox",
		UnreadOnly: true,
	}

	got := f.ToSQLWhere()

	wantFragments := []string{
		"(subject LIKE ? OR body_text LIKE ? OR from_name LIKE ? OR from_addr LIKE ?)",
		"account_id IN (SELECT id FROM accounts WHERE kind = ?)",
		"LOWER(from_addr) = LOWER(?)",
		"(LOWER(to_addrs) LIKE LOWER(?) OR LOWER(cc_addrs) LIKE LOWER(?) OR LOWER(bcc_addrs) LIKE LOWER(?))",
		"DATE(received_at) >= DATE(?)",
		"DATE(received_at) <= DATE(?)",
		"account_id = ?",
		"folder = ?",
		"COALESCE(is_read, 0) = 0",
	}
	for _, frag := range wantFragments {
		if !containsFragment(got.Clause, frag) {
			t.Errorf("Clause %q does not contain fragment %q", got.Clause, frag)
		}
	}

	wantParamCount := 4 + 1 + 1 + 3 + 1 + 1 + 1 + 1 // unread_only contributes no param
	if len(got.Params) != wantParamCount {
		t.Errorf("len(Params) = %d, want %d: %v", len(got.Params), wantParamCount, got.Params)
	}
}

func TestToSQLWhere_QueryExpandsToFourLikeParams(t *testing.T) {
	f := Filter{Query: "budget"}
	got := f.ToSQLWhere()
	if len(got.Params) != 4 {
		t.Fatalf("len(Params) = %d, want 4", len(got.Params))
	}
	for _, p := range got.Params {
		if p != "%budget%" {
			t.Errorf("param = %v, want %%budget%%", p)
		}
	}
}

func containsFragment(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}
