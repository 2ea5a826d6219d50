package sqlite

import (
	"context"
	"fmt"

	"github.com/krasmussen37/ess/internal/store"
)

// Stats returns aggregate counts plus a per-account breakdown.
func (s *DB) Stats(ctx context.Context) (store.Stats, error) {
	var st store.Stats

	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM accounts`).Scan(&st.Accounts); err != nil {
		return st, fmt.Errorf("failed to count accounts: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM emails`).Scan(&st.Emails); err != nil {
		return st, fmt.Errorf("failed to count emails: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM contacts`).Scan(&st.Contacts); err != nil {
		return st, fmt.Errorf("failed to count contacts: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.address, count(e.id)
		FROM accounts a LEFT JOIN emails e ON e.account_id = a.id
		GROUP BY a.id, a.address
		ORDER BY a.address ASC`)
	if err != nil {
		return st, fmt.Errorf("failed to compute per-account stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row store.AccountStats
		if err := rows.Scan(&row.AccountID, &row.Address, &row.Emails); err != nil {
			return st, fmt.Errorf("failed to scan account stats row: %w", err)
		}
		st.ByAccount = append(st.ByAccount, row)
	}
	if err := rows.Err(); err != nil {
		return st, fmt.Errorf("failed to iterate account stats: %w", err)
	}

	return st, nil
}
