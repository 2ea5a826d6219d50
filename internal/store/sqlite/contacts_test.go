package sqlite

import (
	"context"
	"testing"
	"time"
)

func TestUpdateContactStats_CreatesThenIncrements(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	t1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := db.UpdateContactStats(ctx, "a@example.com", t1); err != nil {
		t.Fatalf("first UpdateContactStats() error: %v", err)
	}
	t2 := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	if err := db.UpdateContactStats(ctx, "a@example.com", t2); err != nil {
		t.Fatalf("second UpdateContactStats() error: %v", err)
	}

	contacts, err := db.GetContacts(ctx, "")
	if err != nil {
		t.Fatalf("GetContacts() error: %v", err)
	}
	if len(contacts) != 1 {
		t.Fatalf("len(contacts) = %d, want 1", len(contacts))
	}
	c := contacts[0]
	if c.MessageCount != 2 {
		t.Errorf("MessageCount = %d, want 2", c.MessageCount)
	}
	if !c.LastSeen.Equal(t2) {
		t.Errorf("LastSeen = %v, want %v", c.LastSeen, t2)
	}
	if !c.FirstSeen.Equal(t1) {
		t.Errorf("FirstSeen = %v, want %v (should not move on update)", c.FirstSeen, t1)
	}
}

func TestGetContacts_FiltersBySubstring(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now()
	if err := db.UpdateContactStats(ctx, "alice@example.com", now); err != nil {
		t.Fatalf("UpdateContactStats() error: %v", err)
	}
	if err := db.UpdateContactStats(ctx, "bob@example.com", now); err != nil {
		t.Fatalf("UpdateContactStats() error: %v", err)
	}

	contacts, err := db.GetContacts(ctx, "alice")
	if err != nil {
		t.Fatalf("GetContacts() error: %v", err)
	}
	if len(contacts) != 1 || contacts[0].Address != "alice@example.com" {
		t.Fatalf("GetContacts(alice) = %+v, want just alice", contacts)
	}
}

func TestGetContacts_OrderedByMessageCountDescending(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now()
	if err := db.UpdateContactStats(ctx, "quiet@example.com", now); err != nil {
		t.Fatalf("UpdateContactStats() error: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := db.UpdateContactStats(ctx, "loud@example.com", now); err != nil {
			t.Fatalf("UpdateContactStats() error: %v", err)
		}
	}

	contacts, err := db.GetContacts(ctx, "")
	if err != nil {
		t.Fatalf("GetContacts() error: %v", err)
	}
	if len(contacts) != 2 || contacts[0].Address != "loud@example.com" {
		t.Fatalf("contacts not ordered by message_count desc: %+v", contacts)
	}
}
