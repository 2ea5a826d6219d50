// Package cliout renders search results, emails, contacts and stats for
// the command surface, as fixed-width tables or indented JSON.
package cliout

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/krasmussen37/ess/internal/domain"
	"github.com/krasmussen37/ess/internal/index"
	"github.com/krasmussen37/ess/internal/search"
	"github.com/krasmussen37/ess/internal/store"
)

// PrintJSON encodes v as indented JSON to w.
func PrintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("Jan 2, 2006")
}

// WriteSearchResults renders ranked hits with scores and snippets.
func WriteSearchResults(w io.Writer, results []search.Result) error {
	if len(results) == 0 {
		fmt.Fprintln(w, "No results.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SCORE\tDATE\tFROM\tSUBJECT\tID")
	for _, r := range results {
		from := r.Email.FromName
		if from == "" {
			from = r.Email.FromAddr
		}
		fmt.Fprintf(tw, "%.2f\t%s\t%s\t%s\t%s\n",
			r.Score,
			formatDate(r.Email.ReceivedAt),
			truncate(from, 28),
			truncate(r.Email.Subject, 48),
			r.Email.ID,
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, r := range results {
		if r.Snippet != "" {
			fmt.Fprintf(w, "\n%s\n  %s\n", r.Email.ID, truncate(strings.ReplaceAll(r.Snippet, "\n", " "), 160))
		}
	}
	return nil
}

// WriteEmailList renders unranked emails (the list command and recent
// listings).
func WriteEmailList(w io.Writer, emails []domain.Email) error {
	if len(emails) == 0 {
		fmt.Fprintln(w, "No messages found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "UNREAD\tDATE\tFROM\tSUBJECT\tFOLDER\tID")
	for _, e := range emails {
		unread := " "
		if !e.IsRead {
			unread = "*"
		}
		from := e.FromName
		if from == "" {
			from = e.FromAddr
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			unread,
			formatDate(e.ReceivedAt),
			truncate(from, 28),
			truncate(e.Subject, 48),
			e.Folder,
			e.ID,
		)
	}
	return tw.Flush()
}

// WriteEmail renders one full email.
func WriteEmail(w io.Writer, e domain.Email) error {
	fmt.Fprintf(w, "Subject: %s\n", e.Subject)
	if e.FromName != "" {
		fmt.Fprintf(w, "From: %s <%s>\n", e.FromName, e.FromAddr)
	} else {
		fmt.Fprintf(w, "From: %s\n", e.FromAddr)
	}
	if len(e.To) > 0 {
		fmt.Fprintf(w, "To: %s\n", strings.Join(e.To, ", "))
	}
	if len(e.CC) > 0 {
		fmt.Fprintf(w, "Cc: %s\n", strings.Join(e.CC, ", "))
	}
	fmt.Fprintf(w, "Date: %s\n", e.ReceivedAt.Format(time.RFC1123Z))
	fmt.Fprintf(w, "Folder: %s\n", e.Folder)
	if e.ConversationID != "" {
		fmt.Fprintf(w, "Conversation: %s\n", e.ConversationID)
	}
	fmt.Fprintf(w, "ID: %s\n", e.ID)
	fmt.Fprintln(w, strings.Repeat("-", 60))

	body := e.BodyText
	if body == "" {
		body = e.Preview
	}
	fmt.Fprintln(w, body)
	return nil
}

// WriteThread renders a conversation oldest-first.
func WriteThread(w io.Writer, emails []domain.Email) error {
	if len(emails) == 0 {
		fmt.Fprintln(w, "No messages in this conversation.")
		return nil
	}
	for i, e := range emails {
		if i > 0 {
			fmt.Fprintln(w)
			fmt.Fprintln(w, strings.Repeat("-", 60))
		}
		if err := WriteEmail(w, e); err != nil {
			return err
		}
	}
	return nil
}

// WriteContacts renders contacts ordered the way the Store returns them
// (message count descending).
func WriteContacts(w io.Writer, contacts []domain.Contact) error {
	if len(contacts) == 0 {
		fmt.Fprintln(w, "No contacts found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MESSAGES\tADDRESS\tNAME\tLAST SEEN")
	for _, c := range contacts {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n",
			c.MessageCount,
			c.Address,
			truncate(c.DisplayName, 32),
			formatDate(c.LastSeen),
		)
	}
	return tw.Flush()
}

// WriteStats renders store and index stats with the per-account
// breakdown.
func WriteStats(w io.Writer, st store.Stats, ixStats index.Stats) error {
	fmt.Fprintf(w, "Accounts: %d\n", st.Accounts)
	fmt.Fprintf(w, "Emails:   %d\n", st.Emails)
	fmt.Fprintf(w, "Contacts: %d\n", st.Contacts)
	fmt.Fprintf(w, "Index:    %d docs, %d bytes\n", ixStats.DocCount, ixStats.SizeBytes)

	if len(st.ByAccount) > 0 {
		fmt.Fprintln(w)
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ACCOUNT\tADDRESS\tEMAILS")
		for _, row := range st.ByAccount {
			fmt.Fprintf(tw, "%s\t%s\t%d\n", row.AccountID, row.Address, row.Emails)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// WriteSyncReports prints the per-account summary lines the sync command
// emits.
func WriteSyncReports(w io.Writer, results []AccountSummary) {
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(w, "sync %s: failed: %v\n", r.AccountID, r.Err)
			continue
		}
		fmt.Fprintf(w, "sync %s: added=%d updated=%d removed=%d errors=%d\n",
			r.AccountID, r.Added, r.Updated, r.Removed, r.Errors)
	}
}

// AccountSummary is the flattened per-account sync outcome WriteSyncReports
// renders; the CLI maps app results into it so this package stays free of
// connector imports.
type AccountSummary struct {
	AccountID string
	Added     int
	Updated   int
	Removed   int
	Errors    int
	Err       error
}
