// Package store defines the persistence interface for the ingest-and-index
// engine. Implementations do not leak query strings to callers.
package store

import (
	"context"
	"time"

	"github.com/krasmussen37/ess/internal/domain"
)

// SearchFilters is the structured-predicate-only fallback search for
// callers that bypass the Index. It does not score.
type SearchFilters struct {
	Query       string
	AccountID   string
	Kind        domain.AccountKind
	Folder      string
	FromAddress string
	Limit       int
	Offset      int
}

// AccountStats is the per-account breakdown returned by Stats.
type AccountStats struct {
	AccountID string
	Address   string
	Emails    int
}

// Stats aggregates counts across the Store.
type Stats struct {
	Accounts int
	Emails   int
	Contacts int
	ByAccount []AccountStats
}

// Store is the durable, transactional primary record of accounts,
// emails, contacts and opaque sync state.
type Store interface {
	// Accounts
	UpsertAccount(ctx context.Context, a *domain.Account) error
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
	ListAccounts(ctx context.Context) ([]domain.Account, error)
	RemoveAccount(ctx context.Context, id string) (int, error)

	// Emails
	UpsertEmail(ctx context.Context, e *domain.Email) error
	GetEmail(ctx context.Context, id string) (*domain.Email, error)
	GetEmailsByConversation(ctx context.Context, conversationID string) ([]domain.Email, error)
	GetEmailIDsForAccount(ctx context.Context, accountID string) (map[string]bool, error)
	DeleteEmail(ctx context.Context, id string) error
	SearchEmails(ctx context.Context, f SearchFilters) ([]domain.Email, error)
	AllEmails(ctx context.Context, fn func(domain.Email, domain.AccountKind) error) error

	// Contacts
	GetContacts(ctx context.Context, query string) ([]domain.Contact, error)
	UpdateContactStats(ctx context.Context, address string, at time.Time) error

	// Sync state
	GetSyncState(ctx context.Context, key string) (string, bool, error)
	SetSyncState(ctx context.Context, key, value string) error
	ClearSyncState(ctx context.Context, key string) error

	Stats(ctx context.Context) (Stats, error)
	Close() error
}
