package filter

import "strings"

// SQLWhere is a parameterized predicate fragment: clause has one "?"
// placeholder per entry in Params, never an interpolated value.
type SQLWhere struct {
	Clause string
	Params []any
}

// ToSQLWhere builds the structured predicate for the Store: the
// query string expands to four LIKE comparisons, address comparisons are
// case-insensitive, "to" matches to/cc/bcc, unread_only is expressed as
// coalesce(is_read, false) = false, and an empty filter yields the
// trivially-true clause. Column names match internal/store/sqlite's emails
// table.
func (f Filter) ToSQLWhere() SQLWhere {
	var fragments []string
	var params []any

	if text, ok := nonEmpty(f.Query); ok {
		fragments = append(fragments, "(subject LIKE ? OR body_text LIKE ? OR from_name LIKE ? OR from_addr LIKE ?)")
		like := "%" + text + "%"
		params = append(params, like, like, like, like)
	}

	if kind := f.Scope.accountKind(); kind != "" {
		fragments = append(fragments, "account_id IN (SELECT id FROM accounts WHERE kind = ?)")
		params = append(params, kind)
	}

	if from, ok := nonEmpty(f.From); ok {
		fragments = append(fragments, "LOWER(from_addr) = LOWER(?)")
		params = append(params, from)
	}

	if to, ok := nonEmpty(f.To); ok {
		fragments = append(fragments, "(LOWER(to_addrs) LIKE LOWER(?) OR LOWER(cc_addrs) LIKE LOWER(?) OR LOWER(bcc_addrs) LIKE LOWER(?))")
		like := "%" + to + "%"
		params = append(params, like, like, like)
	}

	if f.Since != nil {
		fragments = append(fragments, "DATE(received_at) >= DATE(?)")
		params = append(params, f.Since.UTC().Format("2006-01-02"))
	}

	if f.Until != nil {
		fragments = append(fragments, "DATE(received_at) <= DATE(?)")
		params = append(params, f.Until.UTC().Format("2006-01-02"))
	}

	if account, ok := nonEmpty(f.Account); ok {
		fragments = append(fragments, "account_id = ?")
		params = append(params, account)
	}

	if folder, ok := nonEmpty(f.Folder); ok {
		fragments = append(fragments, "folder = ?")
		params = append(params, folder)
	}

	if f.UnreadOnly {
		fragments = append(fragments, "COALESCE(is_read, 0) = 0")
	}

	clause := "1 = 1"
	if len(fragments) > 0 {
		clause = strings.Join(fragments, " AND ")
	}

	return SQLWhere{Clause: clause, Params: params}
}
