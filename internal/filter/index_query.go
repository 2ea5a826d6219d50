package filter

import (
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/krasmussen37/ess/internal/index"
)

// ToIndexQuery builds the index query for this filter: a free-text
// clause (match-all if the query string is empty) plus Must term clauses
// for any of account_kind, folder, from_address, to and a closed-interval
// range on received_at, plus an is_read clause for unread_only. Filter
// terms are always applied; the index's mapping (internal/index) names
// every field this planner references, so there is no "unsupported field"
// case to skip in this port.
func (f Filter) ToIndexQuery() query.Query {
	var must []query.Query

	if text, ok := nonEmpty(f.Query); ok {
		must = append(must, boostedTextQuery(text))
	} else {
		must = append(must, index.NewAllQuery())
	}

	if kind := f.Scope.accountKind(); kind != "" {
		must = append(must, index.NewKeywordQuery("account_kind", kind))
	}

	if folder, ok := nonEmpty(f.Folder); ok {
		must = append(must, index.NewKeywordQuery("folder", folder))
	}

	if from, ok := nonEmpty(f.From); ok {
		must = append(must, index.NewKeywordQuery("from_address", strings.ToLower(from)))
	}

	if to, ok := nonEmpty(f.To); ok {
		must = append(must, index.NewKeywordQuery("to", strings.ToLower(to)))
	}

	if account, ok := nonEmpty(f.Account); ok {
		must = append(must, index.NewKeywordQuery("account_id", account))
	}

	if r := f.dateRangeQuery(); r != nil {
		must = append(must, r)
	}

	if f.UnreadOnly {
		must = append(must, index.NewBoolQuery("is_read", false))
	}

	return query.NewBooleanQuery(must, nil, nil)
}

// boostedTextQuery matches the free-text clause over subject/from_name/
// body_text with their per-field boosts, combined as a
// disjunction so a hit in any one field counts.
func boostedTextQuery(text string) query.Query {
	return query.NewDisjunctionQuery([]query.Query{
		index.NewTextQuery("subject", text, index.BoostSubject),
		index.NewTextQuery("from_name", text, index.BoostFromName),
		index.NewTextQuery("body_text", text, index.BoostBody),
	})
}

// dateRangeQuery expands Since/Until to the start/end of their respective
// UTC days, returning nil if neither bound is set. A zero bound is left
// open.
func (f Filter) dateRangeQuery() query.Query {
	if f.Since == nil && f.Until == nil {
		return nil
	}

	var start, end time.Time
	if f.Since != nil {
		start = startOfDayUTC(*f.Since)
	}
	if f.Until != nil {
		end = endOfDayUTC(*f.Until)
	}

	trueVal := true
	q := query.NewDateRangeInclusiveQuery(start, end, &trueVal, &trueVal)
	q.SetField("received_at")
	return q
}

func startOfDayUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func endOfDayUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 23, 59, 59, 999999999, time.UTC)
}
