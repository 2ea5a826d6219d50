package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/krasmussen37/ess/internal/domain"
	"github.com/krasmussen37/ess/internal/store"
)

// SearchEmails implements the structured-predicate-only fallback search:
// LIKE-style substring matching on subject/body/from-name/
// from-address for a query string, equality filters for account/kind/
// folder/from-address, a deterministic order by received descending, and a
// limit/offset. It does not score and is a fallback for callers that bypass
// the Index.
func (s *DB) SearchEmails(ctx context.Context, f store.SearchFilters) ([]domain.Email, error) {
	var where []string
	var args []any

	if f.Query != "" {
		like := "%" + f.Query + "%"
		where = append(where, `(e.subject LIKE ? OR e.body_text LIKE ? OR e.from_name LIKE ? OR e.from_addr LIKE ?)`)
		args = append(args, like, like, like, like)
	}
	if f.AccountID != "" {
		where = append(where, `e.account_id = ?`)
		args = append(args, f.AccountID)
	}
	if f.Kind != "" {
		where = append(where, `a.kind = ?`)
		args = append(args, string(f.Kind))
	}
	if f.Folder != "" {
		where = append(where, `e.folder = ?`)
		args = append(args, f.Folder)
	}
	if f.FromAddress != "" {
		where = append(where, `lower(e.from_addr) = lower(?)`)
		args = append(args, f.FromAddress)
	}

	clause := "1=1"
	if len(where) > 0 {
		clause = strings.Join(where, " AND ")
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT ` + joinedEmailColumns + `
		` + joinedEmailFrom + `
		WHERE ` + clause + `
		ORDER BY e.received_at DESC
		LIMIT ? OFFSET ?`
	args = append(args, limit, f.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search emails: %w", err)
	}
	defer rows.Close()

	emails, err := scanEmails(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan search results: %w", err)
	}
	return emails, nil
}
