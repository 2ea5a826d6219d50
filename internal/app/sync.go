package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/krasmussen37/ess/internal/connector"
	"github.com/krasmussen37/ess/internal/domain"
)

// AccountSyncResult pairs one account with the report its connector
// produced (or the error that prevented the sync from running at all).
type AccountSyncResult struct {
	Account domain.Account
	Report  connector.SyncReport
	Err     error
}

// SyncAccounts runs each account's connector in turn, updating the
// account's last-sync timestamp after a successful run. One account's
// failure never blocks the others; the caller decides what a fatal
// outcome looks like from the per-account results.
func (a *App) SyncAccounts(ctx context.Context, accounts []domain.Account) []AccountSyncResult {
	results := make([]AccountSyncResult, 0, len(accounts))

	for _, account := range accounts {
		if !account.Enabled {
			continue
		}

		result := AccountSyncResult{Account: account}

		conn, ok := a.Registry.Get(account.Provider)
		if !ok {
			result.Err = fmt.Errorf("no connector registered for provider %q", account.Provider)
			results = append(results, result)
			continue
		}

		result.Report, result.Err = conn.Sync(ctx, a.Store, a.Index, account)
		if result.Err == nil {
			account.LastSync = time.Now().UTC()
			if err := a.Store.UpsertAccount(ctx, &account); err != nil {
				result.Err = fmt.Errorf("failed to record last sync: %w", err)
			}
		}

		results = append(results, result)
	}

	return results
}

// ResolveAccounts returns the single named account, or every configured
// account when accountID is empty.
func (a *App) ResolveAccounts(ctx context.Context, accountID string) ([]domain.Account, error) {
	if id := strings.TrimSpace(accountID); id != "" {
		account, err := a.Store.GetAccount(ctx, id)
		if err != nil {
			return nil, err
		}
		if account == nil {
			return nil, fmt.Errorf("account not found: %s", id)
		}
		return []domain.Account{*account}, nil
	}

	accounts, err := a.Store.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, fmt.Errorf("no accounts configured; use 'ess accounts add' first")
	}
	return accounts, nil
}

// ResolveSingleAccount is ResolveAccounts for operations that need
// exactly one target (import): ambiguous multi-account setups must name
// the account explicitly.
func (a *App) ResolveSingleAccount(ctx context.Context, accountID string) (domain.Account, error) {
	accounts, err := a.ResolveAccounts(ctx, accountID)
	if err != nil {
		return domain.Account{}, err
	}
	if len(accounts) > 1 {
		return domain.Account{}, fmt.Errorf("multiple accounts configured; pass --account <id> to disambiguate")
	}
	return accounts[0], nil
}

// WatchInterval parses the configured watch-mode delay, falling back to
// five minutes when the config value does not parse.
func (a *App) WatchInterval() time.Duration {
	if d, err := time.ParseDuration(a.Config.Sync.WatchInterval); err == nil && d > 0 {
		return d
	}
	return 5 * time.Minute
}
