package index

import "github.com/krasmussen37/ess/internal/domain"

const emailDocType = "email"

// document is the indexed projection of an email: only the fields worth
// searching or filtering on, never the full record (the Store remains
// authoritative for content).
type document struct {
	Type           string `json:"_type"`
	Subject        string `json:"subject"`
	FromName       string `json:"from_name"`
	FromAddress    string `json:"from_address"`
	BodyText       string `json:"body_text"`
	AccountID      string `json:"account_id"`
	AccountKind    string `json:"account_kind"`
	Folder         string `json:"folder"`
	ConversationID string `json:"conversation_id"`
	ReceivedAt     string `json:"received_at"`
	HasAttachments bool   `json:"has_attachments"`
	To             []string `json:"to"`
	IsRead         bool   `json:"is_read"`
}

func toDocument(e domain.Email, kind domain.AccountKind) *document {
	return &document{
		Type:           emailDocType,
		Subject:        e.Subject,
		FromName:       e.FromName,
		FromAddress:    e.FromAddr,
		BodyText:       e.BodyText,
		AccountID:      e.AccountID,
		AccountKind:    string(kind),
		Folder:         e.Folder,
		ConversationID: e.ConversationID,
		ReceivedAt:     e.ReceivedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		HasAttachments: e.HasAttachments,
		To:             e.Recipients(),
		IsRead:         e.IsRead,
	}
}
