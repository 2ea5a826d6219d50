package index

import "github.com/blevesearch/bleve/v2/search/query"

// NewTextQuery builds a boosted match query over the free-text field name,
// used by the filter planner to assemble its BooleanQuery.
func NewTextQuery(field, text string, boost float64) query.Query {
	q := query.NewMatchQuery(text)
	q.SetField(field)
	q.SetBoost(boost)
	return q
}

// NewKeywordQuery builds an exact-match query over a keyword field.
func NewKeywordQuery(field, value string) query.Query {
	q := query.NewTermQuery(value)
	q.SetField(field)
	return q
}

// NewAllQuery matches every document, used when a filter carries no
// free-text term and search falls back to browsing by structured filters
// alone.
func NewAllQuery() query.Query {
	return query.NewMatchAllQuery()
}

// NewBoolQuery builds an exact-match query over a boolean field, used for
// the filter planner's unread_only clause.
func NewBoolQuery(field string, value bool) query.Query {
	q := query.NewBoolFieldQuery(value)
	q.SetField(field)
	return q
}
