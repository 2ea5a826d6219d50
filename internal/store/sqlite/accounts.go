package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/krasmussen37/ess/internal/domain"
)

// UpsertAccount inserts or updates an account by id.
func (s *DB) UpsertAccount(ctx context.Context, a *domain.Account) error {
	cfgJSON, err := json.Marshal(nonNilMap(a.Config))
	if err != nil {
		return fmt.Errorf("failed to marshal account config: %w", err)
	}

	var lastSync any
	if !a.LastSync.IsZero() {
		lastSync = a.LastSync.UTC().Format(time.RFC3339)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, address, display_name, tenant, kind, provider, enabled, last_sync, config)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			address      = excluded.address,
			display_name = excluded.display_name,
			tenant       = excluded.tenant,
			kind         = excluded.kind,
			provider     = excluded.provider,
			enabled      = excluded.enabled,
			last_sync    = excluded.last_sync,
			config       = excluded.config`,
		a.ID, a.Address, a.DisplayName, a.Tenant, string(a.Kind), a.Provider, a.Enabled, lastSync, string(cfgJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert account %s: %w", a.ID, err)
	}
	return nil
}

// GetAccount retrieves a single account by id.
func (s *DB) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, address, display_name, tenant, kind, provider, enabled, last_sync, config
		FROM accounts WHERE id = ?`, id)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %s not found: %w", id, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account %s: %w", id, err)
	}
	return a, nil
}

// ListAccounts returns all accounts ordered by address.
func (s *DB) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, address, display_name, tenant, kind, provider, enabled, last_sync, config
		FROM accounts ORDER BY address ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var out []domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account row: %w", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}
	return out, nil
}

// RemoveAccount deletes an account by id. emails.account_id is ON DELETE
// SET NULL, so its emails are orphaned rather than cascaded; callers that
// want the emails gone too must delete them explicitly before removing
// the account. Contacts are always left in place.
func (s *DB) RemoveAccount(ctx context.Context, id string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("failed to remove account %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count removed accounts: %w", err)
	}
	return int(n), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (*domain.Account, error) {
	var a domain.Account
	var tenant, displayName sql.NullString
	var lastSync sql.NullString
	var kind, cfgJSON string

	if err := row.Scan(&a.ID, &a.Address, &displayName, &tenant, &kind, &a.Provider, &a.Enabled, &lastSync, &cfgJSON); err != nil {
		return nil, err
	}

	a.DisplayName = displayName.String
	a.Tenant = tenant.String
	a.Kind = domain.AccountKind(kind)

	if lastSync.Valid && lastSync.String != "" {
		t, err := time.Parse(time.RFC3339, lastSync.String)
		if err == nil {
			a.LastSync = t
		}
	}

	a.Config = map[string]string{}
	if cfgJSON != "" {
		_ = json.Unmarshal([]byte(cfgJSON), &a.Config)
	}

	return &a, nil
}

func nonNilMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
