// internal/catalog/models.go
package catalog

import "context"

// Entry is one ATA system described in the catalog index.
type Entry struct {
	ATA04              string   `json:"ata04"`
	SystemName         string   `json:"system_name"`
	Keywords           []string `json:"keywords"`
	SampleDescriptions []string `json:"sample_descriptions"`
	Warnings           []string `json:"warnings"`
}

// Match is a catalog candidate for a work-order text with a similarity
// score normalized to [0, 1]. DocType, Snippet and Source carry the
// evidence provenance: which kind of document matched, the passage that
// matched, and which backend produced it.
type Match struct {
	ATA04      string  `json:"ata04"`
	SystemName string  `json:"system_name"`
	Score      float64 `json:"score"`
	DocType    string  `json:"doc_type,omitempty"`
	Snippet    string  `json:"snippet,omitempty"`
	Source     string  `json:"source,omitempty"`
}

// Matcher finds catalog candidates for free-form defect text. Results
// are ordered by descending score; matches below the configured minimum
// score are omitted.
type Matcher interface {
	Match(ctx context.Context, text string) ([]Match, error)
}
