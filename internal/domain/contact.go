package domain

import "time"

// Contact tracks a distinct email address seen across ingested messages.
// Identified by lowercased address; created lazily on first appearance.
type Contact struct {
	Address      string            `json:"address"`
	DisplayName  string            `json:"display_name,omitempty"`
	Company      string            `json:"company,omitempty"`
	ExternalIDs  map[string]string `json:"external_ids,omitempty"`
	MessageCount int               `json:"message_count"`
	FirstSeen    time.Time         `json:"first_seen,omitempty"`
	LastSeen     time.Time         `json:"last_seen,omitempty"`
}
