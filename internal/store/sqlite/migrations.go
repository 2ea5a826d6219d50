package sqlite

const schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version     INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS accounts (
    id           TEXT PRIMARY KEY,
    address      TEXT NOT NULL UNIQUE,
    display_name TEXT,
    tenant       TEXT,
    kind         TEXT NOT NULL DEFAULT 'personal',
    provider     TEXT NOT NULL DEFAULT '',
    enabled      BOOLEAN NOT NULL DEFAULT 1,
    last_sync    DATETIME,
    config       TEXT NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS emails (
    id                  TEXT PRIMARY KEY,
    internet_message_id TEXT,
    conversation_id     TEXT,
    account_id          TEXT REFERENCES accounts(id) ON DELETE SET NULL,
    subject             TEXT,
    from_addr           TEXT,
    from_name           TEXT,
    to_addrs            TEXT NOT NULL DEFAULT '[]',
    cc_addrs            TEXT NOT NULL DEFAULT '[]',
    bcc_addrs           TEXT NOT NULL DEFAULT '[]',
    body_text           TEXT,
    body_html           TEXT,
    preview             TEXT,
    received_at         DATETIME NOT NULL,
    sent_at             DATETIME,
    importance          TEXT NOT NULL DEFAULT 'normal',
    is_read             BOOLEAN NOT NULL DEFAULT 0,
    has_attachments     BOOLEAN NOT NULL DEFAULT 0,
    folder              TEXT NOT NULL DEFAULT '',
    categories          TEXT NOT NULL DEFAULT '[]',
    flagged             BOOLEAN NOT NULL DEFAULT 0,
    web_link            TEXT,
    metadata            TEXT NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS contacts (
    address       TEXT PRIMARY KEY,
    display_name  TEXT,
    company       TEXT,
    external_ids  TEXT NOT NULL DEFAULT '{}',
    message_count INTEGER NOT NULL DEFAULT 0,
    first_seen    DATETIME,
    last_seen     DATETIME
);

CREATE TABLE IF NOT EXISTS sync_state (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_emails_account      ON emails(account_id);
CREATE INDEX IF NOT EXISTS idx_emails_conversation  ON emails(conversation_id);
CREATE INDEX IF NOT EXISTS idx_emails_received      ON emails(received_at DESC);
CREATE INDEX IF NOT EXISTS idx_emails_folder        ON emails(folder);
`

// supportedSchemaVersion is the highest on-disk schema version this binary
// understands. open() fails with a ConfigError if the database reports a
// higher version.
const supportedSchemaVersion = 1

// migrate reads the current schema version and applies pending migrations.
// Re-running the sequence on a current database is a no-op.
func (s *DB) migrate() (int, error) {
	version, err := s.readSchemaVersion()
	if err != nil {
		return 0, err
	}

	if version > supportedSchemaVersion {
		return 0, errUnsupportedSchema(version)
	}

	if version == 0 {
		if _, err := s.db.Exec(schemaV1); err != nil {
			return 0, err
		}
		if err := s.writeSchemaVersion(1); err != nil {
			return 0, err
		}
		return 1, nil
	}

	// Current database: re-applying the baseline is idempotent (CREATE
	// TABLE/INDEX IF NOT EXISTS).
	if _, err := s.db.Exec(schemaV1); err != nil {
		return 0, err
	}
	return version, nil
}

func (s *DB) readSchemaVersion() (int, error) {
	var exists int
	err := s.db.QueryRow(`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='schema_migrations'`).Scan(&exists)
	if err != nil {
		return 0, err
	}
	if exists == 0 {
		return 0, nil
	}

	var version int
	err = s.db.QueryRow(`SELECT version FROM schema_migrations LIMIT 1`).Scan(&version)
	if err != nil {
		return 0, nil
	}
	return version, nil
}

func (s *DB) writeSchemaVersion(version int) error {
	if _, err := s.db.Exec(`DELETE FROM schema_migrations`); err != nil {
		return err
	}
	_, err := s.db.Exec(`INSERT INTO schema_migrations (version) VALUES (?)`, version)
	return err
}
