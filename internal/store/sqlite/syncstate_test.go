package sqlite

import (
	"context"
	"testing"
)

func TestSyncState_SetGetClear(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if _, ok, err := db.GetSyncState(ctx, "missing"); err != nil || ok {
		t.Fatalf("GetSyncState(missing) = (_, %v, %v), want (_, false, nil)", ok, err)
	}

	if err := db.SetSyncState(ctx, "k", "v1"); err != nil {
		t.Fatalf("SetSyncState() error: %v", err)
	}
	v, ok, err := db.GetSyncState(ctx, "k")
	if err != nil || !ok || v != "v1" {
		t.Fatalf("GetSyncState(k) = (%q, %v, %v), want (v1, true, nil)", v, ok, err)
	}

	if err := db.SetSyncState(ctx, "k", "v2"); err != nil {
		t.Fatalf("second SetSyncState() error: %v", err)
	}
	v, _, _ = db.GetSyncState(ctx, "k")
	if v != "v2" {
		t.Errorf("GetSyncState(k) after update = %q, want v2", v)
	}

	if err := db.ClearSyncState(ctx, "k"); err != nil {
		t.Fatalf("ClearSyncState() error: %v", err)
	}
	if _, ok, _ := db.GetSyncState(ctx, "k"); ok {
		t.Error("GetSyncState(k) after clear: still present")
	}
}
