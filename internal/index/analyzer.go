package index

import (
	"github.com/blevesearch/bleve/v2/analysis/token/ngram"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	_ "github.com/blevesearch/bleve/v2/config"
	"github.com/blevesearch/bleve/v2/mapping"
)

// ngramAnalyzerName is registered on the index mapping and used for every
// free-text field (subject, sender name/address, body) so that partial and
// substring queries match without a separate prefix index.
const ngramAnalyzerName = "ess_ngram"

// registerNgramAnalyzer wires a custom analyzer combining bleve's Unicode
// tokenizer with a lowercasing filter and a 2-20 character n-gram filter.
func registerNgramAnalyzer(im *mapping.IndexMappingImpl) error {
	if err := im.AddCustomTokenFilter("ess_ngram_filter", map[string]interface{}{
		"type": ngram.Name,
		"min":  2.0,
		"max":  20.0,
	}); err != nil {
		return err
	}

	return im.AddCustomAnalyzer(ngramAnalyzerName, map[string]interface{}{
		"type":          "custom",
		"tokenizer":     unicode.Name,
		"token_filters": []string{"to_lower", "ess_ngram_filter"},
	})
}
