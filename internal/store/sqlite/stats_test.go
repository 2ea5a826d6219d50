package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/krasmussen37/ess/internal/domain"
)

func TestStats_CountsAndPerAccountBreakdown(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedAccount(t, db, "acc-1", domain.KindProfessional)
	seedAccount(t, db, "acc-2", domain.KindPersonal)
	seedEmail(t, db, &domain.Email{ID: "m1", AccountID: "acc-1"})
	seedEmail(t, db, &domain.Email{ID: "m2", AccountID: "acc-1"})
	seedEmail(t, db, &domain.Email{ID: "m3", AccountID: "acc-2"})
	if err := db.UpdateContactStats(ctx, "a@example.com", time.Now()); err != nil {
		t.Fatalf("UpdateContactStats() error: %v", err)
	}

	st, err := db.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error: %v", err)
	}
	if st.Accounts != 2 || st.Emails != 3 || st.Contacts != 1 {
		t.Fatalf("Stats() = %+v, want {Accounts:2 Emails:3 Contacts:1}", st)
	}
	if len(st.ByAccount) != 2 {
		t.Fatalf("len(ByAccount) = %d, want 2", len(st.ByAccount))
	}
	for _, row := range st.ByAccount {
		if row.AccountID == "acc-1" && row.Emails != 2 {
			t.Errorf("acc-1 emails = %d, want 2", row.Emails)
		}
		if row.AccountID == "acc-2" && row.Emails != 1 {
			t.Errorf("acc-2 emails = %d, want 1", row.Emails)
		}
	}
}

func TestStats_AccountWithNoEmails(t *testing.T) {
	db := newTestDB(t)
	seedAccount(t, db, "acc-empty", domain.KindPersonal)

	st, err := db.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() error: %v", err)
	}
	if len(st.ByAccount) != 1 || st.ByAccount[0].Emails != 0 {
		t.Fatalf("ByAccount = %+v, want one account with 0 emails", st.ByAccount)
	}
}
