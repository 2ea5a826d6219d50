package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/krasmussen37/ess/internal/domain"
)

// UpsertEmail inserts or replaces an email by id, atomically.
func (s *DB) UpsertEmail(ctx context.Context, e *domain.Email) error {
	toJSON, err := json.Marshal(e.To)
	if err != nil {
		return fmt.Errorf("failed to marshal To addresses: %w", err)
	}
	ccJSON, err := json.Marshal(e.CC)
	if err != nil {
		return fmt.Errorf("failed to marshal CC addresses: %w", err)
	}
	bccJSON, err := json.Marshal(e.BCC)
	if err != nil {
		return fmt.Errorf("failed to marshal BCC addresses: %w", err)
	}
	catJSON, err := json.Marshal(e.Categories)
	if err != nil {
		return fmt.Errorf("failed to marshal categories: %w", err)
	}
	metaJSON, err := json.Marshal(nonNilMap(e.Metadata))
	if err != nil {
		return fmt.Errorf("failed to marshal email metadata: %w", err)
	}

	var accountID any
	if e.AccountID != "" {
		accountID = e.AccountID
	}
	var sentAt any
	if !e.SentAt.IsZero() {
		sentAt = e.SentAt.UTC().Format(time.RFC3339)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO emails (id, internet_message_id, conversation_id, account_id, subject,
			from_addr, from_name, to_addrs, cc_addrs, bcc_addrs, body_text, body_html, preview,
			received_at, sent_at, importance, is_read, has_attachments, folder, categories,
			flagged, web_link, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			internet_message_id = excluded.internet_message_id,
			conversation_id     = excluded.conversation_id,
			account_id          = excluded.account_id,
			subject             = excluded.subject,
			from_addr           = excluded.from_addr,
			from_name           = excluded.from_name,
			to_addrs            = excluded.to_addrs,
			cc_addrs            = excluded.cc_addrs,
			bcc_addrs           = excluded.bcc_addrs,
			body_text           = excluded.body_text,
			body_html           = excluded.body_html,
			preview             = excluded.preview,
			received_at         = excluded.received_at,
			sent_at             = excluded.sent_at,
			importance          = excluded.importance,
			is_read             = excluded.is_read,
			has_attachments     = excluded.has_attachments,
			folder              = excluded.folder,
			categories          = excluded.categories,
			flagged             = excluded.flagged,
			web_link            = excluded.web_link,
			metadata            = excluded.metadata`,
		e.ID, e.InternetMessageID, e.ConversationID, accountID, e.Subject,
		e.FromAddr, e.FromName, string(toJSON), string(ccJSON), string(bccJSON),
		e.BodyText, e.BodyHTML, e.Preview,
		e.ReceivedAt.UTC().Format(time.RFC3339), sentAt, string(e.Importance), e.IsRead,
		e.HasAttachments, e.Folder, string(catJSON), e.Flagged, e.WebLink, string(metaJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert email %s: %w", e.ID, err)
	}
	return nil
}

// joinedEmailColumns selects every Email field plus the owning account's
// kind (via left join, so orphaned emails still resolve).
const joinedEmailColumns = `e.id, e.internet_message_id, e.conversation_id, e.account_id, e.subject,
	e.from_addr, e.from_name, e.to_addrs, e.cc_addrs, e.bcc_addrs, e.body_text, e.body_html, e.preview,
	e.received_at, e.sent_at, e.importance, e.is_read, e.has_attachments, e.folder, e.categories,
	e.flagged, e.web_link, e.metadata, a.kind`

const joinedEmailFrom = `FROM emails e LEFT JOIN accounts a ON a.id = e.account_id`

// GetEmail retrieves a single email by id.
func (s *DB) GetEmail(ctx context.Context, id string) (*domain.Email, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+joinedEmailColumns+` `+joinedEmailFrom+` WHERE e.id = ?`, id)
	e, err := scanEmail(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get email %s: %w", id, err)
	}
	return e, nil
}

// GetEmailsByConversation returns all emails sharing a conversation id,
// ordered by received ascending.
func (s *DB) GetEmailsByConversation(ctx context.Context, conversationID string) ([]domain.Email, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+joinedEmailColumns+` `+joinedEmailFrom+`
		WHERE e.conversation_id = ? ORDER BY e.received_at ASC`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation %s: %w", conversationID, err)
	}
	defer rows.Close()
	return scanEmails(rows)
}

// GetEmailIDsForAccount returns the set of email ids already stored for an
// account, used by bootstrap connectors to diff against the provider's
// enumeration.
func (s *DB) GetEmailIDsForAccount(ctx context.Context, accountID string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM emails WHERE account_id = ?`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list email ids for account %s: %w", accountID, err)
	}
	defer rows.Close()

	out := map[string]bool{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan email id: %w", err)
		}
		out[id] = true
	}
	return out, rows.Err()
}

// DeleteEmail removes an email by id.
func (s *DB) DeleteEmail(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM emails WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete email %s: %w", id, err)
	}
	return nil
}

// AllEmails streams every email in the store, left-joined against accounts
// to resolve account kind, for Index.Reindex.
func (s *DB) AllEmails(ctx context.Context, fn func(domain.Email, domain.AccountKind) error) error {
	rows, err := s.db.QueryContext(ctx, `SELECT `+joinedEmailColumns+` `+joinedEmailFrom)
	if err != nil {
		return fmt.Errorf("failed to stream emails: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var kind sql.NullString
		e, err := scanEmailWithKind(rows, &kind)
		if err != nil {
			return fmt.Errorf("failed to scan email row: %w", err)
		}
		if err := fn(*e, domain.AccountKind(kind.String)); err != nil {
			return err
		}
	}
	return rows.Err()
}

func scanEmails(rows *sql.Rows) ([]domain.Email, error) {
	var out []domain.Email
	for rows.Next() {
		e, err := scanEmail(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan email row: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func scanEmail(row scanner) (*domain.Email, error) {
	var kind sql.NullString
	return scanEmailWithKind(row, &kind)
}

func scanEmailWithKind(row scanner, kind *sql.NullString) (*domain.Email, error) {
	var e domain.Email
	var internetMsgID, convID, accountID, fromName, bodyHTML, preview, webLink sql.NullString
	var toJSON, ccJSON, bccJSON, catJSON, metaJSON string
	var receivedAt string
	var sentAt sql.NullString
	var importance string

	if err := row.Scan(
		&e.ID, &internetMsgID, &convID, &accountID, &e.Subject,
		&e.FromAddr, &fromName, &toJSON, &ccJSON, &bccJSON, &e.BodyText, &bodyHTML, &preview,
		&receivedAt, &sentAt, &importance, &e.IsRead, &e.HasAttachments, &e.Folder, &catJSON,
		&e.Flagged, &webLink, &metaJSON, kind,
	); err != nil {
		return nil, err
	}

	e.InternetMessageID = internetMsgID.String
	e.ConversationID = convID.String
	e.AccountID = accountID.String
	e.FromName = fromName.String
	e.BodyHTML = bodyHTML.String
	e.Preview = preview.String
	e.WebLink = webLink.String
	e.Importance = domain.Importance(importance)

	if t, err := time.Parse(time.RFC3339, receivedAt); err == nil {
		e.ReceivedAt = t
	}
	if sentAt.Valid && sentAt.String != "" {
		if t, err := time.Parse(time.RFC3339, sentAt.String); err == nil {
			e.SentAt = t
		}
	}

	_ = json.Unmarshal([]byte(toJSON), &e.To)
	_ = json.Unmarshal([]byte(ccJSON), &e.CC)
	_ = json.Unmarshal([]byte(bccJSON), &e.BCC)
	_ = json.Unmarshal([]byte(catJSON), &e.Categories)
	e.Metadata = map[string]string{}
	_ = json.Unmarshal([]byte(metaJSON), &e.Metadata)

	return &e, nil
}
