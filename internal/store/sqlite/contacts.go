package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/krasmussen37/ess/internal/domain"
)

// GetContacts returns contacts ordered by message-count descending,
// optionally filtered by a substring match on address or display name.
func (s *DB) GetContacts(ctx context.Context, query string) ([]domain.Contact, error) {
	sqlQuery := `SELECT address, display_name, company, external_ids, message_count, first_seen, last_seen
		FROM contacts`
	var args []any
	if query != "" {
		sqlQuery += ` WHERE address LIKE ? OR display_name LIKE ?`
		like := "%" + query + "%"
		args = append(args, like, like)
	}
	sqlQuery += ` ORDER BY message_count DESC`

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	defer rows.Close()

	var out []domain.Contact
	for rows.Next() {
		var c domain.Contact
		var displayName, company sql.NullString
		var extJSON string
		var firstSeen, lastSeen sql.NullString

		if err := rows.Scan(&c.Address, &displayName, &company, &extJSON, &c.MessageCount, &firstSeen, &lastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan contact row: %w", err)
		}
		c.DisplayName = displayName.String
		c.Company = company.String
		c.ExternalIDs = map[string]string{}
		_ = json.Unmarshal([]byte(extJSON), &c.ExternalIDs)
		if firstSeen.Valid {
			if t, err := time.Parse(time.RFC3339, firstSeen.String); err == nil {
				c.FirstSeen = t
			}
		}
		if lastSeen.Valid {
			if t, err := time.Parse(time.RFC3339, lastSeen.String); err == nil {
				c.LastSeen = t
			}
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateContactStats idempotently increments a contact's message count and
// refreshes last_seen, creating the row on first appearance.
func (s *DB) UpdateContactStats(ctx context.Context, address string, at time.Time) error {
	ts := at.UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO contacts (address, message_count, first_seen, last_seen)
		VALUES (?, 1, ?, ?)
		ON CONFLICT(address) DO UPDATE SET
			message_count = message_count + 1,
			last_seen     = excluded.last_seen`,
		address, ts, ts,
	)
	if err != nil {
		return fmt.Errorf("failed to update contact stats for %s: %w", address, err)
	}
	return nil
}
