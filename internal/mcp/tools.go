package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/krasmussen37/ess/internal/app"
	"github.com/krasmussen37/ess/internal/domain"
	"github.com/krasmussen37/ess/internal/filter"
	"github.com/krasmussen37/ess/internal/store"
)

// toolSchemas describes the five tools the server advertises. Parameter
// shapes are the Filter model projected to JSON.
func toolSchemas() []map[string]any {
	str := map[string]any{"type": "string"}
	return []map[string]any{
		{
			"name":        "ess_search",
			"description": "Search indexed emails",
			"inputSchema": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query":   str,
					"from":    str,
					"to":      str,
					"since":   str,
					"until":   str,
					"scope":   str,
					"account": str,
					"folder":  str,
					"limit":   map[string]any{"type": "integer", "minimum": 1},
				},
				"required": []string{"query"},
			},
		},
		{
			"name":        "ess_thread",
			"description": "Return messages for a conversation",
			"inputSchema": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"conversation_id": str,
				},
				"required": []string{"conversation_id"},
			},
		},
		{
			"name":        "ess_contacts",
			"description": "Search contacts by name/email",
			"inputSchema": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": str,
				},
				"required": []string{"query"},
			},
		},
		{
			"name":        "ess_recent",
			"description": "List most recent emails",
			"inputSchema": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"scope":       str,
					"account":     str,
					"folder":      str,
					"unread_only": map[string]any{"type": "boolean"},
					"limit":       map[string]any{"type": "integer", "minimum": 1},
				},
			},
		},
		{
			"name":        "ess_stats",
			"description": "Return ESS database and index stats",
			"inputSchema": map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
	}
}

// toolArgs is the union of every tool's parameters; each tool reads the
// subset it documents.
type toolArgs struct {
	Query          string `json:"query"`
	From           string `json:"from"`
	To             string `json:"to"`
	Since          string `json:"since"`
	Until          string `json:"until"`
	Scope          string `json:"scope"`
	Account        string `json:"account"`
	Folder         string `json:"folder"`
	UnreadOnly     bool   `json:"unread_only"`
	Limit          int    `json:"limit"`
	ConversationID string `json:"conversation_id"`
}

func callTool(ctx context.Context, a *app.App, name string, rawArgs json.RawMessage) (any, error) {
	var args toolArgs
	if len(rawArgs) > 0 {
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return nil, fmt.Errorf("invalid tool arguments: %w", err)
		}
	}

	switch name {
	case "ess_search":
		return toolSearch(ctx, a, args)
	case "ess_thread":
		return toolThread(ctx, a, args)
	case "ess_contacts":
		return toolContacts(ctx, a, args)
	case "ess_recent":
		return toolRecent(ctx, a, args)
	case "ess_stats":
		return toolStats(ctx, a)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

func toolSearch(ctx context.Context, a *app.App, args toolArgs) (any, error) {
	if strings.TrimSpace(args.Query) == "" {
		return nil, fmt.Errorf("missing required param 'query'")
	}

	f, err := buildFilter(args)
	if err != nil {
		return nil, err
	}
	f.Query = args.Query

	results, err := a.Search.Search(ctx, f)
	if err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(results))
	for _, r := range results {
		out = append(out, map[string]any{
			"email":   emailJSON(r.Email),
			"score":   r.Score,
			"snippet": r.Snippet,
		})
	}
	return out, nil
}

func toolThread(ctx context.Context, a *app.App, args toolArgs) (any, error) {
	if strings.TrimSpace(args.ConversationID) == "" {
		return nil, fmt.Errorf("missing required param 'conversation_id'")
	}
	emails, err := a.Store.GetEmailsByConversation(ctx, args.ConversationID)
	if err != nil {
		return nil, err
	}
	return emailListJSON(emails), nil
}

func toolContacts(ctx context.Context, a *app.App, args toolArgs) (any, error) {
	if strings.TrimSpace(args.Query) == "" {
		return nil, fmt.Errorf("missing required param 'query'")
	}
	contacts, err := a.Store.GetContacts(ctx, args.Query)
	if err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(contacts))
	for _, c := range contacts {
		out = append(out, map[string]any{
			"address":       c.Address,
			"display_name":  c.DisplayName,
			"company":       c.Company,
			"message_count": c.MessageCount,
			"first_seen":    timeJSON(c.FirstSeen),
			"last_seen":     timeJSON(c.LastSeen),
		})
	}
	return out, nil
}

func toolRecent(ctx context.Context, a *app.App, args toolArgs) (any, error) {
	scope, err := filter.ParseScope(args.Scope)
	if err != nil {
		return nil, err
	}

	limit := args.Limit
	if limit <= 0 {
		limit = filter.DefaultLimit
	}

	var kind domain.AccountKind
	switch scope {
	case filter.ScopeProfessional:
		kind = domain.KindProfessional
	case filter.ScopePersonal:
		kind = domain.KindPersonal
	}

	emails, err := a.Store.SearchEmails(ctx, store.SearchFilters{
		AccountID: args.Account,
		Kind:      kind,
		Folder:    args.Folder,
		Limit:     limit,
	})
	if err != nil {
		return nil, err
	}

	if args.UnreadOnly {
		unread := emails[:0]
		for _, e := range emails {
			if !e.IsRead {
				unread = append(unread, e)
			}
		}
		emails = unread
	}

	return emailListJSON(emails), nil
}

func toolStats(ctx context.Context, a *app.App) (any, error) {
	st, err := a.Store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	ixStats, err := a.Index.Stats()
	if err != nil {
		return nil, err
	}
	accounts, err := a.Store.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}

	emailsByAccount := map[string]int{}
	for _, row := range st.ByAccount {
		emailsByAccount[row.AccountID] = row.Emails
	}

	accountEntries := make([]map[string]any, 0, len(accounts))
	for _, account := range accounts {
		accountEntries = append(accountEntries, map[string]any{
			"account_id": account.ID,
			"email":      account.Address,
			"type":       string(account.Kind),
			"count":      emailsByAccount[account.ID],
			"last_sync":  timeJSON(account.LastSync),
		})
	}

	return map[string]any{
		"total_emails":  st.Emails,
		"accounts":      accountEntries,
		"index_docs":    ixStats.DocCount,
		"index_size":    ixStats.SizeBytes,
		"contact_count": st.Contacts,
	}, nil
}

// buildFilter maps the shared arguments to a Filter: dates are
// YYYY-MM-DD, scope accepts professional|personal|all (plus the pro
// alias).
func buildFilter(args toolArgs) (filter.Filter, error) {
	scope, err := filter.ParseScope(args.Scope)
	if err != nil {
		return filter.Filter{}, err
	}

	f := filter.Filter{
		Scope:      scope,
		From:       args.From,
		To:         args.To,
		Account:    args.Account,
		Folder:     args.Folder,
		UnreadOnly: args.UnreadOnly,
		Limit:      args.Limit,
	}
	if f.Limit <= 0 {
		f.Limit = filter.DefaultLimit
	}

	if args.Since != "" {
		t, err := time.Parse("2006-01-02", strings.TrimSpace(args.Since))
		if err != nil {
			return filter.Filter{}, fmt.Errorf("param 'since' must be YYYY-MM-DD: %w", err)
		}
		f.Since = &t
	}
	if args.Until != "" {
		t, err := time.Parse("2006-01-02", strings.TrimSpace(args.Until))
		if err != nil {
			return filter.Filter{}, fmt.Errorf("param 'until' must be YYYY-MM-DD: %w", err)
		}
		f.Until = &t
	}

	return f, nil
}

func emailListJSON(emails []domain.Email) []map[string]any {
	out := make([]map[string]any, 0, len(emails))
	for _, e := range emails {
		out = append(out, emailJSON(e))
	}
	return out
}

// emailJSON is the wire projection of an email for tool results; bodies
// are included because the consuming model has no other way to read
// them.
func emailJSON(e domain.Email) map[string]any {
	return map[string]any{
		"id":              e.ID,
		"conversation_id": e.ConversationID,
		"account_id":      e.AccountID,
		"subject":         e.Subject,
		"from_address":    e.FromAddr,
		"from_name":       e.FromName,
		"to":              e.To,
		"cc":              e.CC,
		"bcc":             e.BCC,
		"body_text":       e.BodyText,
		"preview":         e.Preview,
		"received_at":     timeJSON(e.ReceivedAt),
		"sent_at":         timeJSON(e.SentAt),
		"importance":      string(e.Importance),
		"is_read":         e.IsRead,
		"has_attachments": e.HasAttachments,
		"folder":          e.Folder,
		"categories":      e.Categories,
		"flagged":         e.Flagged,
		"web_link":        e.WebLink,
	}
}

func timeJSON(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
