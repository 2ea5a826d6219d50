package sqlite

import (
	"context"
	"testing"

	"github.com/krasmussen37/ess/internal/domain"
)

func seedAccount(t *testing.T, db *DB, id string, kind domain.AccountKind) {
	t.Helper()
	if err := db.UpsertAccount(context.Background(), &domain.Account{
		ID:      id,
		Address: id + "@example.com",
		Kind:    kind,
		Enabled: true,
		Config:  map[string]string{"k": "v"},
	}); err != nil {
		t.Fatalf("seedAccount(%s): %v", id, err)
	}
}

func TestUpsertAndGetAccount(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedAccount(t, db, "acc-pro", domain.KindProfessional)

	got, err := db.GetAccount(ctx, "acc-pro")
	if err != nil {
		t.Fatalf("GetAccount() error: %v", err)
	}
	if got.Kind != domain.KindProfessional {
		t.Errorf("Kind = %q, want %q", got.Kind, domain.KindProfessional)
	}
	if got.Config["k"] != "v" {
		t.Errorf("Config[k] = %q, want %q", got.Config["k"], "v")
	}
}

func TestUpsertAccount_ReplacesInPlace(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedAccount(t, db, "acc-1", domain.KindPersonal)

	if err := db.UpsertAccount(ctx, &domain.Account{
		ID:      "acc-1",
		Address: "acc-1@example.com",
		Kind:    domain.KindProfessional,
		Enabled: false,
	}); err != nil {
		t.Fatalf("second UpsertAccount() error: %v", err)
	}

	got, err := db.GetAccount(ctx, "acc-1")
	if err != nil {
		t.Fatalf("GetAccount() error: %v", err)
	}
	if got.Kind != domain.KindProfessional || got.Enabled {
		t.Errorf("account not replaced in place: %+v", got)
	}
}

func TestListAccounts_OrderedByAddress(t *testing.T) {
	db := newTestDB(t)
	seedAccount(t, db, "zed", domain.KindPersonal)
	seedAccount(t, db, "amy", domain.KindPersonal)

	accounts, err := db.ListAccounts(context.Background())
	if err != nil {
		t.Fatalf("ListAccounts() error: %v", err)
	}
	if len(accounts) != 2 || accounts[0].ID != "amy" {
		t.Fatalf("accounts not ordered by address: %+v", accounts)
	}
}

func TestRemoveAccount_OrphansEmails(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedAccount(t, db, "acc-1", domain.KindPersonal)

	if err := db.UpsertEmail(ctx, &domain.Email{ID: "m1", AccountID: "acc-1"}); err != nil {
		t.Fatalf("UpsertEmail() error: %v", err)
	}

	n, err := db.RemoveAccount(ctx, "acc-1")
	if err != nil {
		t.Fatalf("RemoveAccount() error: %v", err)
	}
	if n != 1 {
		t.Errorf("RemoveAccount() removed = %d, want 1", n)
	}

	e, err := db.GetEmail(ctx, "m1")
	if err != nil {
		t.Fatalf("GetEmail() after account removal: %v", err)
	}
	if e.AccountID != "" {
		t.Errorf("email.AccountID = %q, want empty (orphaned, not cascaded)", e.AccountID)
	}
}
