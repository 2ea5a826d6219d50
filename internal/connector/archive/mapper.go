package archive

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/jaytaylor/html2text"

	"github.com/krasmussen37/ess/internal/domain"
)

// mapArchivePayload resolves an archive record into the canonical Email.
// The record may sit under an "email" key or be the payload itself, and
// most fields are probed under several aliases because archives come from
// more than one exporter generation.
func mapArchivePayload(payload map[string]any, accountID, sourceFile, batchID string) (domain.Email, error) {
	record := payload
	if wrapped, ok := payload["email"].(map[string]any); ok {
		record = wrapped
	}

	id := getStr(record, "id")
	if id == "" {
		id = getStr(payload, "id", "graph_id")
	}
	if id == "" {
		return domain.Email{}, fmt.Errorf("missing id/graph_id")
	}

	receivedAt := parseTime(
		getStr(record, "receivedDateTime", "received_at"),
		getStr(payload, "receivedDateTime", "received_at"),
		getStr(record, "sentDateTime", "sent_at"),
		getStr(payload, "sentDateTime", "archivedAt", "archived_at"),
	)
	if receivedAt.IsZero() {
		receivedAt = time.Now().UTC()
	}
	sentAt := parseTime(getStr(record, "sentDateTime", "sent_at"), getStr(payload, "sentDateTime"))

	headers := anyField(record, payload, "headers")

	fromName, fromAddr := parseContact(anyField(record, payload, "from", "sender"))
	if fromAddr == "" {
		fromAddr = firstAddressInHeader(headerValue(headers, "From", "from"))
	}

	to := parseRecipients(anyField(record, payload, "toRecipients", "to"))
	if len(to) == 0 {
		to = addressesInHeader(headerValue(headers, "To", "to"))
	}
	cc := parseRecipients(anyField(record, payload, "ccRecipients", "cc"))
	if len(cc) == 0 {
		cc = addressesInHeader(headerValue(headers, "Cc", "CC", "cc"))
	}
	bcc := parseRecipients(anyField(record, payload, "bccRecipients", "bcc"))
	if len(bcc) == 0 {
		bcc = addressesInHeader(headerValue(headers, "Bcc", "BCC", "bcc"))
	}

	bodyText, bodyHTML, preview := parseBody(record, payload)

	internetMessageID := headerValue(headers, "Message-ID", "messageId")
	if internetMessageID == "" {
		internetMessageID = getStr(record, "internetMessageId")
	}
	if internetMessageID == "" {
		internetMessageID = getStr(payload, "internetMessageId")
	}

	conversationID := getStr(record, "conversationId")
	if conversationID == "" {
		conversationID = getStr(payload, "conversationId")
	}
	if conversationID == "" {
		if topic := headerValue(headers, "Thread-Topic", "threadTopic"); topic != "" {
			conversationID = "thread-" + stableHashHex(topic)
		}
	}

	importance := domain.ImportanceNormal
	switch strings.ToLower(getStr(record, "importance") + getStr(payload, "importance")) {
	case "high":
		importance = domain.ImportanceHigh
	case "low":
		importance = domain.ImportanceLow
	}

	isRead := true
	if v, ok := getBool(record, "isRead"); ok {
		isRead = v
	} else if v, ok := getBool(payload, "isRead"); ok {
		isRead = v
	}

	hasAttachments := false
	if v, ok := getBool(record, "hasAttachments"); ok {
		hasAttachments = v
	} else if v, ok := getBool(payload, "hasAttachments"); ok {
		hasAttachments = v
	}

	folder := getStr(record, "folder", "direction")
	if folder == "" {
		folder = getStr(payload, "direction")
	}

	webLink := getStr(record, "webLink")
	if webLink == "" {
		webLink = getStr(payload, "webLink")
	}

	return domain.Email{
		ID:                id,
		InternetMessageID: internetMessageID,
		ConversationID:    conversationID,
		AccountID:         accountID,
		Subject:           firstNonEmpty(getStr(record, "subject"), getStr(payload, "subject")),
		FromAddr:          strings.ToLower(fromAddr),
		FromName:          fromName,
		To:                to,
		CC:                cc,
		BCC:               bcc,
		BodyText:          bodyText,
		BodyHTML:          bodyHTML,
		Preview:           preview,
		ReceivedAt:        receivedAt,
		SentAt:            sentAt,
		Importance:        importance,
		IsRead:            isRead,
		HasAttachments:    hasAttachments,
		Folder:            folder,
		Categories:        stringList(anyField(record, payload, "categories")),
		WebLink:           webLink,
		Metadata: map[string]string{
			"archive_connector": "json_archive",
			"source_file":       sourceFile,
			"import_batch":      batchID,
		},
	}, nil
}

// parseBody resolves (text, html, preview). HTML-only archives get their
// text synthesized; a body whose field value merely looks like HTML is
// treated as HTML even when it arrived under a text alias.
func parseBody(record, payload map[string]any) (text, html, preview string) {
	if body, ok := anyField(record, payload, "body").(map[string]any); ok {
		content := getStr(body, "content")
		if strings.EqualFold(getStr(body, "contentType"), "html") || looksLikeHTML(content) {
			html = content
		} else {
			text = content
		}
	}

	if text == "" {
		text = getStr(record, "bodyText", "body_text", "text")
	}
	if html == "" {
		html = getStr(record, "bodyHtml", "body_html", "html")
	}
	if text == "" && html == "" {
		if raw := getStr(payload, "body", "bodyText", "text", "content"); raw != "" {
			if looksLikeHTML(raw) {
				html = raw
			} else {
				text = raw
			}
		}
	}

	if text == "" && html != "" {
		text = htmlToText(html)
	}

	preview = firstNonEmpty(getStr(record, "bodyPreview", "preview", "snippet"), getStr(payload, "bodyPreview", "preview", "snippet"))
	if preview == "" && text != "" {
		runes := []rune(strings.TrimSpace(text))
		if len(runes) > 140 {
			runes = runes[:140]
		}
		preview = string(runes)
	}

	return text, html, preview
}

func htmlToText(html string) string {
	plain, err := html2text.FromString(html, html2text.Options{PrettyTables: false})
	if err != nil {
		return html
	}
	return strings.TrimSpace(plain)
}

func looksLikeHTML(value string) bool {
	lower := strings.ToLower(value)
	return strings.Contains(lower, "<html") || strings.Contains(lower, "<body") ||
		strings.Contains(lower, "<div") || strings.Contains(lower, "<p>") ||
		strings.Contains(lower, "<br")
}

// parseContact accepts {name, address}, {emailAddress:{name, address}},
// or a bare address string.
func parseContact(value any) (name, address string) {
	switch v := value.(type) {
	case nil:
		return "", ""
	case string:
		return "", strings.TrimSpace(v)
	case map[string]any:
		if inner, ok := v["emailAddress"].(map[string]any); ok {
			return getStr(inner, "name"), getStr(inner, "address", "email")
		}
		return getStr(v, "name"), getStr(v, "address", "email")
	default:
		return "", ""
	}
}

// parseRecipients accepts a list of contact shapes or a list of strings.
func parseRecipients(value any) []string {
	list, ok := value.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, entry := range list {
		if _, addr := parseContact(entry); addr != "" {
			out = append(out, strings.ToLower(addr))
		}
	}
	return out
}

func headerValue(headers any, keys ...string) string {
	m, ok := headers.(map[string]any)
	if !ok {
		return ""
	}
	return getStr(m, keys...)
}

// firstAddressInHeader pulls the first address out of a raw RFC header
// value like `"Alice" <alice@example.com>, bob@example.com`.
func firstAddressInHeader(raw string) string {
	addrs := addressesInHeader(raw)
	if len(addrs) == 0 {
		return ""
	}
	return addrs[0]
}

func addressesInHeader(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var out []string
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if start := strings.LastIndex(entry, "<"); start >= 0 {
			if end := strings.LastIndex(entry, ">"); end > start {
				entry = entry[start+1 : end]
			}
		}
		if strings.Contains(entry, "@") {
			out = append(out, strings.ToLower(strings.TrimSpace(entry)))
		}
	}
	return out
}

func anyField(record, payload map[string]any, keys ...string) any {
	for _, key := range keys {
		if v, ok := record[key]; ok && v != nil {
			return v
		}
	}
	for _, key := range keys {
		if v, ok := payload[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

func getStr(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := m[key].(string); ok {
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

func getBool(m map[string]any, keys ...string) (bool, bool) {
	for _, key := range keys {
		if v, ok := m[key].(bool); ok {
			return v, true
		}
	}
	return false, false
}

func stringList(value any) []string {
	list, ok := value.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, entry := range list {
		if s, ok := entry.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func parseTime(candidates ...string) time.Time {
	for _, raw := range candidates {
		if raw == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			return t
		}
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

func stableHashHex(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:8])
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
