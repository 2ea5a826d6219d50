package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/krasmussen37/ess/internal/domain"
	"github.com/krasmussen37/ess/internal/env"
)

func batchPart(buf *strings.Builder, boundary, status, body string) {
	fmt.Fprintf(buf, "--%s\r\n", boundary)
	buf.WriteString("Content-Type: application/http\r\n\r\n")
	fmt.Fprintf(buf, "HTTP/1.1 %s\r\nContent-Type: application/json\r\n\r\n%s\r\n", status, body)
}

func TestBatchGetMessagesPartialFailure(t *testing.T) {
	const boundary = "batch_reply_boundary"

	var reply strings.Builder
	batchPart(&reply, boundary, "200 OK", `{"id":"a","threadId":"t-a"}`)
	batchPart(&reply, boundary, "429 Too Many Requests", `{"error":{"code":429}}`)
	batchPart(&reply, boundary, "404 Not Found", `{"error":{"code":404,"message":"message c is gone"}}`)
	fmt.Fprintf(&reply, "--%s--\r\n", boundary)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("batch endpoint got method %s", r.Method)
		}
		w.Header().Set("Content-Type", "multipart/mixed; boundary="+boundary)
		fmt.Fprint(w, reply.String())
	}))
	defer srv.Close()

	c := New(env.FromMap(map[string]string{"ESS_GMAIL_BATCH_URL": srv.URL}), nil)

	result, err := c.batchGetMessages(context.Background(), "tok", []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("batchGetMessages returned error: %v", err)
	}

	if len(result.messages) != 1 || result.messages["a"] == nil {
		t.Fatalf("messages = %v, want exactly id a", result.messages)
	}
	if len(result.retryableIDs) != 1 || result.retryableIDs[0] != "b" {
		t.Errorf("retryableIDs = %v, want [b]", result.retryableIDs)
	}
	if len(result.errors) != 1 || !strings.Contains(result.errors[0], "message c is gone") {
		t.Errorf("errors = %v, want one line referencing c's body", result.errors)
	}
}

func TestBatchGetMessagesUnaccountedIDsAreRetryable(t *testing.T) {
	const boundary = "batch_reply_boundary"

	var reply strings.Builder
	batchPart(&reply, boundary, "200 OK", `{"id":"a"}`)
	fmt.Fprintf(&reply, "--%s--\r\n", boundary)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "multipart/mixed; boundary="+boundary)
		fmt.Fprint(w, reply.String())
	}))
	defer srv.Close()

	c := New(env.FromMap(map[string]string{"ESS_GMAIL_BATCH_URL": srv.URL}), nil)

	result, err := c.batchGetMessages(context.Background(), "tok", []string{"a", "b"})
	if err != nil {
		t.Fatalf("batchGetMessages returned error: %v", err)
	}
	if len(result.retryableIDs) != 1 || result.retryableIDs[0] != "b" {
		t.Errorf("retryableIDs = %v, want [b] (missing from response)", result.retryableIDs)
	}
}

func b64(s string) string { return base64.RawURLEncoding.EncodeToString([]byte(s)) }

func TestMapGmailMessageToEmail(t *testing.T) {
	msg := &gmailapi.Message{
		Id:           "m-1",
		ThreadId:     "t-1",
		Snippet:      "Lunch plans &amp; agenda",
		InternalDate: 1767366245000,
		LabelIds:     []string{"INBOX", "UNREAD", "STARRED", "Label_42"},
		Payload: &gmailapi.MessagePart{
			MimeType: "multipart/alternative",
			Headers: []*gmailapi.MessagePartHeader{
				{Name: "Subject", Value: "Lunch?"},
				{Name: "From", Value: `"Alice Smith" <Alice@Example.com>`},
				{Name: "To", Value: "bob@example.com, Carol <carol@example.com>"},
				{Name: "Date", Value: "Fri, 02 Jan 2026 15:04:05 +0000"},
				{Name: "Message-ID", Value: "<m-1@example.com>"},
			},
			Parts: []*gmailapi.MessagePart{
				{MimeType: "text/plain", Body: &gmailapi.MessagePartBody{Data: b64("Lunch at noon?")}},
				{MimeType: "text/html", Body: &gmailapi.MessagePartBody{Data: b64("<p>Lunch at noon?</p>")}},
			},
		},
	}

	email, err := mapGmailMessageToEmail(msg, "acc-personal")
	if err != nil {
		t.Fatalf("mapGmailMessageToEmail returned error: %v", err)
	}

	if email.ID != "m-1" || email.ConversationID != "t-1" || email.AccountID != "acc-personal" {
		t.Fatalf("identity fields = %+v", email)
	}
	if email.FromAddr != "alice@example.com" || email.FromName != "Alice Smith" {
		t.Errorf("from = %q / %q", email.FromAddr, email.FromName)
	}
	if len(email.To) != 2 || email.To[0] != "bob@example.com" || email.To[1] != "carol@example.com" {
		t.Errorf("To = %v", email.To)
	}
	if email.BodyText != "Lunch at noon?" {
		t.Errorf("BodyText = %q", email.BodyText)
	}
	if email.BodyHTML != "<p>Lunch at noon?</p>" {
		t.Errorf("BodyHTML = %q", email.BodyHTML)
	}
	if email.IsRead {
		t.Error("UNREAD label should invert to IsRead=false")
	}
	if !email.Flagged {
		t.Error("STARRED label should set Flagged")
	}
	if email.Folder != "inbox" {
		t.Errorf("Folder = %q, want inbox", email.Folder)
	}
	if len(email.Categories) != 1 || email.Categories[0] != "Label_42" {
		t.Errorf("Categories = %v, want the one user label", email.Categories)
	}
	if email.Preview != "Lunch plans & agenda" {
		t.Errorf("Preview = %q, want decoded entities", email.Preview)
	}
	if email.ReceivedAt.Unix() != 1767366245 {
		t.Errorf("ReceivedAt = %v", email.ReceivedAt)
	}
	if email.SentAt.IsZero() {
		t.Error("SentAt should parse from the Date header")
	}
	if email.InternetMessageID != "<m-1@example.com>" {
		t.Errorf("InternetMessageID = %q", email.InternetMessageID)
	}
}

func TestMapGmailMessageHTMLOnlySynthesizesText(t *testing.T) {
	msg := &gmailapi.Message{
		Id: "m-2",
		Payload: &gmailapi.MessagePart{
			MimeType: "text/html",
			Body:     &gmailapi.MessagePartBody{Data: b64("<p>Hello <b>there</b></p>")},
		},
	}
	email, err := mapGmailMessageToEmail(msg, "acc-personal")
	if err != nil {
		t.Fatalf("mapGmailMessageToEmail returned error: %v", err)
	}
	if email.BodyText == "" {
		t.Error("expected BodyText synthesized from HTML")
	}
	if !strings.Contains(email.BodyText, "Hello") {
		t.Errorf("BodyText = %q", email.BodyText)
	}
}

func TestMapLabelsToFolderPriority(t *testing.T) {
	cases := []struct {
		labels []string
		want   string
	}{
		{[]string{"INBOX", "SENT"}, "inbox"},
		{[]string{"SENT", "TRASH"}, "sent"},
		{[]string{"DRAFT"}, "drafts"},
		{[]string{"TRASH"}, "trash"},
		{[]string{"SPAM"}, "spam"},
		{[]string{"Label_7"}, "other"},
		{nil, "other"},
	}
	for _, tc := range cases {
		if got := mapLabelsToFolder(tc.labels); got != tc.want {
			t.Errorf("mapLabelsToFolder(%v) = %q, want %q", tc.labels, got, tc.want)
		}
	}
}

func TestPayloadHasAttachments(t *testing.T) {
	nested := &gmailapi.MessagePart{
		MimeType: "multipart/mixed",
		Parts: []*gmailapi.MessagePart{
			{MimeType: "text/plain", Body: &gmailapi.MessagePartBody{Data: b64("hi")}},
			{MimeType: "multipart/alternative", Parts: []*gmailapi.MessagePart{
				{MimeType: "application/pdf", Filename: "report.pdf"},
			}},
		},
	}
	if !payloadHasAttachments(nested) {
		t.Error("expected nested attachment to be detected")
	}
	if payloadHasAttachments(&gmailapi.MessagePart{MimeType: "text/plain"}) {
		t.Error("plain part should not report attachments")
	}
}

func TestGmailResolveCredentialsMissing(t *testing.T) {
	account := domain.Account{ID: "acc-personal", Config: map[string]string{}}
	if _, err := resolveCredentials(env.FromMap(nil), account); err == nil {
		t.Error("expected error when nothing is configured")
	}
}
