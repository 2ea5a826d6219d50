package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/krasmussen37/ess/internal/domain"
	"github.com/krasmussen37/ess/internal/store"
)

func TestSearchEmails_QueryMatchesSubjectOrBody(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedEmail(t, db, &domain.Email{ID: "m1", Subject: "quarterly report", BodyText: "nothing relevant"})
	seedEmail(t, db, &domain.Email{ID: "m2", Subject: "lunch", BodyText: "let's discuss the quarterly numbers"})
	seedEmail(t, db, &domain.Email{ID: "m3", Subject: "unrelated", BodyText: "unrelated"})

	got, err := db.SearchEmails(ctx, store.SearchFilters{Query: "quarterly"})
	if err != nil {
		t.Fatalf("SearchEmails() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2: %+v", len(got), got)
	}
}

func TestSearchEmails_FiltersByAccountKindFolderFrom(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedAccount(t, db, "acc-1", domain.KindProfessional)
	seedAccount(t, db, "acc-2", domain.KindPersonal)
	seedEmail(t, db, &domain.Email{ID: "m1", AccountID: "acc-1", Folder: "inbox", FromAddr: "Boss@Example.com"})
	seedEmail(t, db, &domain.Email{ID: "m2", AccountID: "acc-2", Folder: "inbox", FromAddr: "friend@example.com"})
	seedEmail(t, db, &domain.Email{ID: "m3", AccountID: "acc-1", Folder: "archive", FromAddr: "boss@example.com"})

	got, err := db.SearchEmails(ctx, store.SearchFilters{Kind: domain.KindProfessional})
	if err != nil {
		t.Fatalf("SearchEmails(kind) error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("SearchEmails(kind=professional) len = %d, want 2", len(got))
	}

	got, err = db.SearchEmails(ctx, store.SearchFilters{Folder: "inbox"})
	if err != nil {
		t.Fatalf("SearchEmails(folder) error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("SearchEmails(folder=inbox) len = %d, want 2", len(got))
	}

	got, err = db.SearchEmails(ctx, store.SearchFilters{FromAddress: "boss@example.com"})
	if err != nil {
		t.Fatalf("SearchEmails(from) error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("SearchEmails(from, case-insensitive) len = %d, want 2", len(got))
	}
}

func TestSearchEmails_OrderedByReceivedDescendingWithLimitOffset(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		seedEmail(t, db, &domain.Email{
			ID:         string(rune('a' + i)),
			ReceivedAt: time.Date(2026, 1, i, 0, 0, 0, 0, time.UTC),
		})
	}

	got, err := db.SearchEmails(ctx, store.SearchFilters{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("SearchEmails() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2", len(got))
	}
	if !got[0].ReceivedAt.After(got[1].ReceivedAt) {
		t.Errorf("results not ordered received_at descending: %+v", got)
	}
	if got[0].ReceivedAt.Day() != 4 {
		t.Errorf("offset not applied: first result day = %d, want 4", got[0].ReceivedAt.Day())
	}
}

func TestSearchEmails_DefaultLimit(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	for i := 0; i < 25; i++ {
		seedEmail(t, db, &domain.Email{
			ID:         string(rune('a'+i%26)) + string(rune('A'+i/26)),
			ReceivedAt: time.Date(2026, 1, 1, 0, 0, i, 0, time.UTC),
		})
	}

	got, err := db.SearchEmails(ctx, store.SearchFilters{})
	if err != nil {
		t.Fatalf("SearchEmails() error: %v", err)
	}
	if len(got) != 20 {
		t.Errorf("len(got) = %d, want default limit 20", len(got))
	}
}
