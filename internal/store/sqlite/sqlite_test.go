package sqlite

import "testing"

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpen_RunsMigrations(t *testing.T) {
	db := newTestDB(t)

	version, err := db.readSchemaVersion()
	if err != nil {
		t.Fatalf("readSchemaVersion() error: %v", err)
	}
	if version != 1 {
		t.Errorf("schema version = %d, want 1", version)
	}
}

func TestOpen_Idempotent(t *testing.T) {
	db := newTestDB(t)

	if _, err := db.migrate(); err != nil {
		t.Fatalf("second migrate() error: %v", err)
	}
}

func TestOpen_RejectsNewerSchema(t *testing.T) {
	db := newTestDB(t)

	if err := db.writeSchemaVersion(supportedSchemaVersion + 1); err != nil {
		t.Fatalf("writeSchemaVersion() error: %v", err)
	}
	if _, err := db.migrate(); err == nil {
		t.Fatal("migrate() with a future schema version: want error, got nil")
	}
}
