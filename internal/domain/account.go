package domain

import "time"

// AccountKind distinguishes professional accounts from personal ones for
// scope filtering.
type AccountKind string

const (
	KindProfessional AccountKind = "professional"
	KindPersonal     AccountKind = "personal"
)

// Account is a configured mailbox, identified by its lowercased address.
type Account struct {
	ID          string            `json:"account_id"`
	Address     string            `json:"address"`
	DisplayName string            `json:"display_name,omitempty"`
	Tenant      string            `json:"tenant_id,omitempty"`
	Kind        AccountKind       `json:"kind"`
	Provider    string            `json:"provider,omitempty"`
	Enabled     bool              `json:"enabled"`
	LastSync    time.Time         `json:"last_sync,omitempty"`
	Config      map[string]string `json:"config,omitempty"`
}
