package domain

import "time"

// SyncState is a single opaque key/value row used by connectors to persist
// cursors, token caches, and the schema version.
type SyncState struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}

// Well-known SyncState keys.
const (
	SchemaVersionKey = "schema_version"
)

// GraphDeltaLinkKey builds the per-account-per-folder cursor key for the
// Microsoft Graph connector.
func GraphDeltaLinkKey(accountID, folderID string) string {
	return "graph_delta_link:" + accountID + ":" + folderID
}

// GraphDeltaLinkLegacyWellKnownKey is the first migration fallback: a cursor
// keyed by account and a folder's legacy well-known Graph name (such as
// "sentitems"), predating per-folder-id keys.
func GraphDeltaLinkLegacyWellKnownKey(accountID, wellKnownName string) string {
	return "graph_delta_link:" + accountID + ":" + wellKnownName
}

// GraphDeltaLinkLegacyKey is the second migration fallback: the very first
// cursor key shape, predating multi-folder sync (inbox only, no suffix).
func GraphDeltaLinkLegacyKey(accountID string) string {
	return "graph_delta_link:" + accountID
}

// GmailHistoryIDKey builds the single-mailbox cursor key for the Gmail
// connector.
func GmailHistoryIDKey(accountID string) string {
	return "gmail_history_id:" + accountID
}

// GraphTokenKey and GmailTokenKey build the SyncState keys under which
// encrypted/plaintext OAuth token caches are stored.
func GraphTokenKey(accountID string) string { return "graph_api_token:" + accountID }
func GmailTokenKey(accountID string) string { return "gmail_access_token:" + accountID }
