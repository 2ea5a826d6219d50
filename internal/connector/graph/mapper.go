package graph

import (
	"strings"
	"time"

	"github.com/jaytaylor/html2text"

	"github.com/krasmussen37/ess/internal/domain"
)

// previewRunes bounds bodyPreview/derived preview length.
const previewRunes = 240

func mapGraphMessageToEmail(msg graphMessage, accountID, folderLabel string) (domain.Email, error) {
	bodyText, bodyHTML := graphBodyFields(msg.Body)

	preview := msg.BodyPreview
	if preview == "" {
		preview = bodyText
	}
	preview = truncateRunes(strings.TrimSpace(preview), previewRunes)

	receivedAt := parseGraphTime(msg.ReceivedDateTime)
	sentAt := parseGraphTime(msg.SentDateTime)
	if sentAt.IsZero() {
		sentAt = receivedAt
	}

	fromAddr, fromName := "", ""
	if msg.From != nil {
		fromAddr = strings.ToLower(strings.TrimSpace(msg.From.EmailAddress.Address))
		fromName = msg.From.EmailAddress.Name
	}

	isRead := true
	if msg.IsRead != nil {
		isRead = *msg.IsRead
	}

	return domain.Email{
		ID:                msg.ID,
		InternetMessageID: msg.ID,
		ConversationID:    msg.ConversationID,
		AccountID:         accountID,
		Subject:           msg.Subject,
		FromAddr:          fromAddr,
		FromName:          fromName,
		To:                graphAddressList(msg.ToRecipients),
		CC:                graphAddressList(msg.CcRecipients),
		BCC:               graphAddressList(msg.BccRecipients),
		BodyText:          bodyText,
		BodyHTML:          bodyHTML,
		Preview:           preview,
		ReceivedAt:        receivedAt,
		SentAt:            sentAt,
		Importance:        mapGraphImportance(msg.Importance),
		IsRead:            isRead,
		HasAttachments:    msg.HasAttachments,
		Folder:            folderLabel,
		Categories:        msg.Categories,
		WebLink:           msg.WebLink,
		Metadata: map[string]string{
			"connector": "graph_api",
			"source":    "graph_delta_sync",
		},
	}, nil
}

func graphAddressList(recipients []graphRecipient) []string {
	out := make([]string, 0, len(recipients))
	for _, r := range recipients {
		addr := strings.ToLower(strings.TrimSpace(r.EmailAddress.Address))
		if addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

// graphBodyFields derives (plainText, html) from the message body,
// deriving plain text from HTML when that's the only representation
// Graph returned.
func graphBodyFields(body *graphBody) (text, html string) {
	if body == nil {
		return "", ""
	}
	if strings.EqualFold(body.ContentType, "html") {
		plain, err := html2text.FromString(body.Content, html2text.Options{PrettyTables: false})
		if err != nil {
			plain = body.Content
		}
		return plain, body.Content
	}
	return body.Content, ""
}

func mapGraphImportance(importance string) domain.Importance {
	switch strings.ToLower(importance) {
	case "high":
		return domain.ImportanceHigh
	case "low":
		return domain.ImportanceLow
	default:
		return domain.ImportanceNormal
	}
}

// parseGraphTime parses Graph's RFC3339 timestamps, returning the zero
// time for unparseable or empty values rather than failing the message.
func parseGraphTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	return time.Time{}
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
