package gmail

import (
	"encoding/base64"
	"net/mail"
	"strings"
	"time"

	"github.com/jaytaylor/html2text"
	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/krasmussen37/ess/internal/domain"
)

// systemLabels are Gmail label ids that never become user categories.
var systemLabels = map[string]bool{
	"INBOX": true, "SENT": true, "DRAFT": true, "DRAFTS": true,
	"TRASH": true, "SPAM": true, "UNREAD": true, "STARRED": true,
	"IMPORTANT": true, "CHAT": true,
	"CATEGORY_PERSONAL": true, "CATEGORY_SOCIAL": true,
	"CATEGORY_PROMOTIONS": true, "CATEGORY_UPDATES": true,
	"CATEGORY_FORUMS": true,
}

// mapGmailMessageToEmail converts a full-format Gmail message into the
// canonical Email: RFC headers for addressing, internalDate for the
// received timestamp, labels for read/flag/folder/category state, and a
// walk of the MIME part tree for the bodies.
func mapGmailMessageToEmail(msg *gmailapi.Message, accountID string) (domain.Email, error) {
	bodyText, bodyHTML := extractBodyParts(msg.Payload)

	subject := findHeader(msg.Payload, "Subject")
	fromName, fromAddr := parseFromHeader(findHeader(msg.Payload, "From"))

	receivedAt := time.Now().UTC()
	if msg.InternalDate > 0 {
		receivedAt = time.UnixMilli(msg.InternalDate).UTC()
	}
	var sentAt time.Time
	if raw := findHeader(msg.Payload, "Date"); raw != "" {
		if t, err := mail.ParseDate(raw); err == nil {
			sentAt = t.UTC()
		}
	}

	isRead := !containsLabel(msg.LabelIds, "UNREAD")
	flagged := containsLabel(msg.LabelIds, "STARRED")

	importance := domain.ImportanceNormal
	switch strings.ToLower(findHeader(msg.Payload, "Importance")) {
	case "high":
		importance = domain.ImportanceHigh
	case "low":
		importance = domain.ImportanceLow
	}

	return domain.Email{
		ID:                msg.Id,
		InternetMessageID: firstNonEmpty(findHeader(msg.Payload, "Message-ID"), findHeader(msg.Payload, "Message-Id")),
		ConversationID:    msg.ThreadId,
		AccountID:         accountID,
		Subject:           subject,
		FromAddr:          strings.ToLower(fromAddr),
		FromName:          fromName,
		To:                parseAddressList(findHeader(msg.Payload, "To")),
		CC:                parseAddressList(findHeader(msg.Payload, "Cc")),
		BCC:               parseAddressList(findHeader(msg.Payload, "Bcc")),
		BodyText:          bodyText,
		BodyHTML:          bodyHTML,
		Preview:           htmlEntityDecode(msg.Snippet),
		ReceivedAt:        receivedAt,
		SentAt:            sentAt,
		Importance:        importance,
		IsRead:            isRead,
		HasAttachments:    payloadHasAttachments(msg.Payload),
		Folder:            mapLabelsToFolder(msg.LabelIds),
		Categories:        extractUserLabels(msg.LabelIds),
		Flagged:           flagged,
		WebLink:           "https://mail.google.com/mail/u/0/#inbox/" + msg.Id,
		Metadata: map[string]string{
			"connector": "gmail_api",
			"source":    "gmail_sync",
		},
	}, nil
}

func findHeader(payload *gmailapi.MessagePart, name string) string {
	if payload == nil {
		return ""
	}
	for _, h := range payload.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// parseFromHeader splits "Display Name <addr>" with net/mail, falling
// back to treating the raw value as a bare address or bare name.
func parseFromHeader(raw string) (name, address string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ""
	}
	if addr, err := mail.ParseAddress(raw); err == nil {
		return addr.Name, addr.Address
	}
	if strings.Contains(raw, "@") {
		return "", raw
	}
	return raw, ""
}

// parseAddressList parses a comma-separated RFC 5322 address list,
// falling back to a comma split when strict parsing fails (real mailboxes
// contain plenty of malformed headers).
func parseAddressList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	if parsed, err := mail.ParseAddressList(raw); err == nil {
		out := make([]string, 0, len(parsed))
		for _, a := range parsed {
			if a.Address != "" {
				out = append(out, strings.ToLower(a.Address))
			}
		}
		return out
	}

	var out []string
	for _, part := range strings.Split(raw, ",") {
		if _, addr := parseFromHeader(part); addr != "" {
			out = append(out, strings.ToLower(addr))
		}
	}
	return out
}

// extractBodyParts walks the MIME part tree iteratively with an explicit
// stack (payloads nest arbitrarily deep; a hostile message should not be
// able to exhaust the goroutine stack), keeping the first text/plain and
// first text/html leaves. When only HTML exists, plain text is
// synthesized from it.
func extractBodyParts(payload *gmailapi.MessagePart) (text, html string) {
	if payload == nil {
		return "", ""
	}

	stack := []*gmailapi.MessagePart{payload}
	for len(stack) > 0 {
		part := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if part.Body != nil && part.Body.Data != "" {
			decoded, err := decodeBodyData(part.Body.Data)
			if err == nil {
				switch strings.ToLower(part.MimeType) {
				case "text/plain":
					if text == "" {
						text = decoded
					}
				case "text/html":
					if html == "" {
						html = decoded
					}
				}
			}
		}

		// Push children in reverse so they pop in document order.
		for i := len(part.Parts) - 1; i >= 0; i-- {
			if part.Parts[i] != nil {
				stack = append(stack, part.Parts[i])
			}
		}
	}

	if text == "" && html != "" {
		if plain, err := html2text.FromString(html, html2text.Options{PrettyTables: false}); err == nil {
			text = strings.TrimSpace(plain)
		}
	}

	return text, html
}

// decodeBodyData decodes Gmail's URL-safe base64 body data, which comes
// both with and without padding depending on the producing client.
func decodeBodyData(data string) (string, error) {
	if b, err := base64.RawURLEncoding.DecodeString(data); err == nil {
		return string(b), nil
	}
	b, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func payloadHasAttachments(payload *gmailapi.MessagePart) bool {
	if payload == nil {
		return false
	}
	stack := []*gmailapi.MessagePart{payload}
	for len(stack) > 0 {
		part := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if part.Filename != "" {
			return true
		}
		for _, child := range part.Parts {
			if child != nil {
				stack = append(stack, child)
			}
		}
	}
	return false
}

// mapLabelsToFolder derives the canonical folder label by priority:
// INBOX > SENT > DRAFTS > TRASH > SPAM > other.
func mapLabelsToFolder(labelIDs []string) string {
	switch {
	case containsLabel(labelIDs, "INBOX"):
		return "inbox"
	case containsLabel(labelIDs, "SENT"):
		return "sent"
	case containsLabel(labelIDs, "DRAFT") || containsLabel(labelIDs, "DRAFTS"):
		return "drafts"
	case containsLabel(labelIDs, "TRASH"):
		return "trash"
	case containsLabel(labelIDs, "SPAM"):
		return "spam"
	default:
		return "other"
	}
}

// extractUserLabels keeps only non-system labels as categories.
func extractUserLabels(labelIDs []string) []string {
	var out []string
	for _, l := range labelIDs {
		if !systemLabels[l] && !strings.HasPrefix(l, "CATEGORY_") {
			out = append(out, l)
		}
	}
	return out
}

func containsLabel(labelIDs []string, label string) bool {
	for _, l := range labelIDs {
		if l == label {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// htmlEntityDecode undoes the handful of entities Gmail escapes in
// snippets.
func htmlEntityDecode(s string) string {
	r := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&apos;", "'",
	)
	return r.Replace(s)
}
