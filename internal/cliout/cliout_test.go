package cliout

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/krasmussen37/ess/internal/domain"
	"github.com/krasmussen37/ess/internal/search"
)

func TestWriteSearchResultsRendersScoresAndSnippets(t *testing.T) {
	var buf bytes.Buffer
	results := []search.Result{
		{
			Email: domain.Email{
				ID: "A", Subject: "Kickoff notes", FromName: "Alice",
				ReceivedAt: time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC),
			},
			Score:   4.2,
			Snippet: "agenda for the kickoff",
		},
	}
	if err := WriteSearchResults(&buf, results); err != nil {
		t.Fatalf("WriteSearchResults: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"SCORE", "Kickoff notes", "Alice", "agenda for the kickoff", "4.20"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteSearchResultsEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, nil); err != nil {
		t.Fatalf("WriteSearchResults: %v", err)
	}
	if !strings.Contains(buf.String(), "No results.") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestWriteEmailListMarksUnread(t *testing.T) {
	var buf bytes.Buffer
	emails := []domain.Email{
		{ID: "A", Subject: "Read one", IsRead: true, ReceivedAt: time.Now()},
		{ID: "B", Subject: "Unread one", IsRead: false, ReceivedAt: time.Now()},
	}
	if err := WriteEmailList(&buf, emails); err != nil {
		t.Fatalf("WriteEmailList: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want header + 2 rows", len(lines))
	}
	if !strings.HasPrefix(lines[2], "*") {
		t.Errorf("unread row should start with *: %q", lines[2])
	}
}

func TestPrintJSONRoundTripsEmail(t *testing.T) {
	var buf bytes.Buffer
	email := domain.Email{ID: "A", Subject: "hello", ReceivedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	if err := PrintJSON(&buf, email); err != nil {
		t.Fatalf("PrintJSON: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `"id": "A"`) || !strings.Contains(out, `"subject": "hello"`) {
		t.Errorf("unexpected JSON: %s", out)
	}
}

func TestTruncateKeepsShortStrings(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("a very long subject line indeed", 10); len([]rune(got)) != 10 {
		t.Errorf("truncate length = %d (%q)", len([]rune(got)), got)
	}
}
