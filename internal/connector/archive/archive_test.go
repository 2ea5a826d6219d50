package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/krasmussen37/ess/internal/domain"
	"github.com/krasmussen37/ess/internal/index"
	"github.com/krasmussen37/ess/internal/store/sqlite"
)

const archivedEmail = `{
	"email": {
		"id": "msg-1",
		"subject": "Kickoff notes",
		"receivedDateTime": "2026-01-05T09:00:00Z",
		"from": {"emailAddress": {"name": "Alice", "address": "alice@example.com"}},
		"toRecipients": [{"emailAddress": {"address": "bob@example.com"}}],
		"body": {"contentType": "text", "content": "Agenda for the kickoff."},
		"isRead": false
	}
}`

func TestImportDirectoryDedupesByID(t *testing.T) {
	ctx := context.Background()

	s, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer s.Close()

	ix, err := index.Open(filepath.Join(t.TempDir(), "index"))
	if err != nil {
		t.Fatalf("failed to open index: %v", err)
	}
	defer ix.Close()

	dir := t.TempDir()
	for _, name := range []string{"one.json", "duplicate.json"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(archivedEmail), 0o600); err != nil {
			t.Fatalf("failed to write fixture: %v", err)
		}
	}

	account := domain.Account{ID: "acc-personal", Address: "me@example.com", Kind: domain.KindPersonal, Enabled: true}

	report, err := New().Import(ctx, s, ix, dir, account)
	if err != nil {
		t.Fatalf("Import returned error: %v", err)
	}

	if report.FilesProcessed != 2 {
		t.Errorf("FilesProcessed = %d, want 2", report.FilesProcessed)
	}
	if report.Imported != 1 {
		t.Errorf("Imported = %d, want 1", report.Imported)
	}
	if len(report.Errors) != 0 {
		t.Errorf("Errors = %v, want none", report.Errors)
	}

	email, err := s.GetEmail(ctx, "msg-1")
	if err != nil || email == nil {
		t.Fatalf("GetEmail(msg-1) = %v, %v", email, err)
	}
	if email.Subject != "Kickoff notes" || email.FromAddr != "alice@example.com" {
		t.Errorf("imported email = %+v", email)
	}
	if email.IsRead {
		t.Error("isRead=false in the archive should survive import")
	}
	if email.Metadata["import_batch"] == "" {
		t.Error("expected an import batch id in the metadata bag")
	}

	hits, err := ix.Search(index.NewTextQuery("subject", "kickoff", 1.0), 10, 0)
	if err != nil {
		t.Fatalf("index search failed: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "msg-1" {
		t.Errorf("index hits = %v, want exactly msg-1", hits)
	}
}

func TestImportSingleFileAndHTMLSynthesis(t *testing.T) {
	ctx := context.Background()

	s, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer s.Close()

	ix, err := index.Open(filepath.Join(t.TempDir(), "index"))
	if err != nil {
		t.Fatalf("failed to open index: %v", err)
	}
	defer ix.Close()

	payload := `{
		"id": "msg-html",
		"receivedDateTime": "2026-02-01T12:00:00Z",
		"subject": "Newsletter",
		"body": {"contentType": "html", "content": "<p>Big <b>news</b> inside</p>"}
	}`
	file := filepath.Join(t.TempDir(), "mail.json")
	if err := os.WriteFile(file, []byte(payload), 0o600); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	account := domain.Account{ID: "acc-personal", Address: "me@example.com", Kind: domain.KindPersonal, Enabled: true}
	report, err := New().Import(ctx, s, ix, file, account)
	if err != nil {
		t.Fatalf("Import returned error: %v", err)
	}
	if report.FilesProcessed != 1 || report.Imported != 1 {
		t.Fatalf("report = %+v", report)
	}

	email, err := s.GetEmail(ctx, "msg-html")
	if err != nil || email == nil {
		t.Fatalf("GetEmail(msg-html) = %v, %v", email, err)
	}
	if email.BodyHTML == "" {
		t.Error("expected HTML body preserved")
	}
	if email.BodyText == "" {
		t.Error("expected plain text synthesized from HTML")
	}
}

func TestImportRejectsNonJSONFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "mail.txt")
	if err := os.WriteFile(file, []byte("not json"), 0o600); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	if _, err := collectJSONFiles(file); err == nil {
		t.Error("expected error for a non-.json file")
	}
}

func TestMapArchivePayloadMissingID(t *testing.T) {
	_, err := mapArchivePayload(map[string]any{"subject": "no id"}, "acc", "f.json", "batch")
	if err == nil {
		t.Error("expected error for a payload without an id")
	}
}

func TestMapArchivePayloadThreadTopicConversation(t *testing.T) {
	payload := map[string]any{
		"id": "msg-2",
		"headers": map[string]any{
			"Thread-Topic": "Planning",
			"From":         `"Carol" <carol@example.com>`,
			"To":           "dave@example.com, erin@example.com",
		},
		"bodyText": "see attached",
	}
	email, err := mapArchivePayload(payload, "acc", "f.json", "batch")
	if err != nil {
		t.Fatalf("mapArchivePayload returned error: %v", err)
	}
	if email.ConversationID == "" || email.ConversationID == "Planning" {
		t.Errorf("ConversationID = %q, want a synthesized thread-<hash>", email.ConversationID)
	}
	if email.FromAddr != "carol@example.com" {
		t.Errorf("FromAddr = %q", email.FromAddr)
	}
	if len(email.To) != 2 {
		t.Errorf("To = %v", email.To)
	}
}
