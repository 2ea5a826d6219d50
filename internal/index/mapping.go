package index

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
)

// Field boosts applied at query time. Kept alongside the mapping so query construction and
// mapping stay in sync.
const (
	BoostSubject  = 5.0
	BoostFromName = 3.0
	BoostBody     = 1.0
)

// buildIndexMapping constructs the document mapping for the "email" type:
// free-text fields analyzed with the n-gram analyzer, low-cardinality
// fields kept as exact-match keywords, and the timestamp mapped so range
// queries work.
func buildIndexMapping() (*mapping.IndexMappingImpl, error) {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = ngramAnalyzerName
	if err := registerNgramAnalyzer(im); err != nil {
		return nil, err
	}

	ngramField := bleve.NewTextFieldMapping()
	ngramField.Analyzer = ngramAnalyzerName

	keyword := bleve.NewKeywordFieldMapping()

	dateField := bleve.NewDateTimeFieldMapping()

	storedOnlyBool := bleve.NewBooleanFieldMapping()
	storedOnlyBool.Index = false

	readField := bleve.NewBooleanFieldMapping()

	email := bleve.NewDocumentMapping()
	email.AddFieldMappingsAt("subject", ngramField)
	email.AddFieldMappingsAt("from_name", ngramField)
	email.AddFieldMappingsAt("from_address", ngramField)
	email.AddFieldMappingsAt("body_text", ngramField)
	email.AddFieldMappingsAt("account_id", keyword)
	email.AddFieldMappingsAt("account_kind", keyword)
	email.AddFieldMappingsAt("folder", keyword)
	email.AddFieldMappingsAt("conversation_id", keyword)
	email.AddFieldMappingsAt("received_at", dateField)
	email.AddFieldMappingsAt("has_attachments", storedOnlyBool)
	email.AddFieldMappingsAt("to", keyword)
	email.AddFieldMappingsAt("is_read", readField)

	im.AddDocumentMapping(emailDocType, email)
	im.TypeField = "_type"
	im.DefaultType = emailDocType

	return im, nil
}
