// internal/catalog/esmatcher.go
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/techvna-coder/ata-wo-analyzer/internal/common/errors"
	"github.com/techvna-coder/ata-wo-analyzer/internal/common/logger"
)

// ESMatcher matches work-order text against the ATA catalog index with
// a lexical multi_match query.
type ESMatcher struct {
	client   *elasticsearch.Client
	index    string
	minScore float64
	topK     int
	logger   logger.Logger
}

// ESMatcherConfig carries the matcher tuning knobs.
type ESMatcherConfig struct {
	Index    string
	MinScore float64
	TopK     int
}

func NewESMatcher(client *elasticsearch.Client, cfg ESMatcherConfig, log logger.Logger) *ESMatcher {
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}
	return &ESMatcher{
		client:   client,
		index:    cfg.Index,
		minScore: cfg.MinScore,
		topK:     cfg.TopK,
		logger:   log,
	}
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Score  float64 `json:"_score"`
			Source Entry   `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// normalizeScore maps an unbounded Elasticsearch relevance score onto
// [0, 1). Monotonic, so relative hit ordering is preserved.
func normalizeScore(score float64) float64 {
	if score <= 0 {
		return 0
	}
	return score / (score + 10.0)
}

// Match queries the catalog index and returns candidates at or above
// the minimum normalized score, best first.
func (m *ESMatcher) Match(ctx context.Context, text string) ([]Match, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	queryBody := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  text,
				"fields": []string{"system_name^3", "sample_descriptions^2", "keywords", "warnings"},
				"type":   "best_fields",
			},
		},
	}

	body, _ := json.Marshal(queryBody)

	req := esapi.SearchRequest{
		Index: []string{m.index},
		Body:  strings.NewReader(string(body)),
		Size:  &m.topK,
	}

	res, err := req.Do(ctx, m.client)
	if err != nil {
		return nil, errors.NewSearchQueryFailedError(m.index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		if res.StatusCode == 404 {
			return nil, errors.NewIndexNotFoundError(m.index)
		}
		raw, _ := io.ReadAll(res.Body)
		return nil, errors.NewSearchQueryFailedError(m.index, fmt.Errorf("search error %s: %s", res.Status(), string(raw)))
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, errors.NewSearchQueryFailedError(m.index, fmt.Errorf("decoding search response: %w", err))
	}

	var matches []Match
	for _, hit := range parsed.Hits.Hits {
		score := normalizeScore(hit.Score)
		if score < m.minScore {
			continue
		}
		snippet := hit.Source.SystemName
		if len(hit.Source.SampleDescriptions) > 0 {
			snippet = hit.Source.SampleDescriptions[0]
		}
		matches = append(matches, Match{
			ATA04:      hit.Source.ATA04,
			SystemName: hit.Source.SystemName,
			Score:      score,
			DocType:    "CATALOG",
			Snippet:    snippet,
			Source:     "ATA Catalog",
		})
	}

	m.logger.Debug("catalog match completed", map[string]interface{}{
		"index":      m.index,
		"hits":       len(parsed.Hits.Hits),
		"candidates": len(matches),
	})

	return matches, nil
}

// Info fetches the catalog entry for a single chapter. Documents are
// indexed with the ata04 chapter as their id.
func (m *ESMatcher) Info(ctx context.Context, ata04 string) (*Entry, error) {
	req := esapi.GetRequest{
		Index:      m.index,
		DocumentID: ata04,
	}

	res, err := req.Do(ctx, m.client)
	if err != nil {
		return nil, errors.NewSearchQueryFailedError(m.index, err)
	}
	defer res.Body.Close()

	if res.StatusCode == 404 {
		return nil, errors.NewResourceNotFoundError("catalog", ata04)
	}
	if res.IsError() {
		return nil, errors.NewSearchQueryFailedError(m.index, fmt.Errorf("get error: %s", res.Status()))
	}

	var doc struct {
		Source Entry `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		return nil, errors.NewSearchQueryFailedError(m.index, fmt.Errorf("decoding document: %w", err))
	}
	return &doc.Source, nil
}

// SearchKeyword lists catalog entries whose keyword list matches the
// given term. Used by operators to inspect catalog coverage.
func (m *ESMatcher) SearchKeyword(ctx context.Context, keyword string) ([]Entry, error) {
	queryBody := map[string]interface{}{
		"query": map[string]interface{}{
			"match": map[string]interface{}{
				"keywords": keyword,
			},
		},
	}
	body, _ := json.Marshal(queryBody)

	req := esapi.SearchRequest{
		Index: []string{m.index},
		Body:  strings.NewReader(string(body)),
	}

	res, err := req.Do(ctx, m.client)
	if err != nil {
		return nil, errors.NewSearchQueryFailedError(m.index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, errors.NewSearchQueryFailedError(m.index, fmt.Errorf("keyword search error: %s", res.Status()))
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, errors.NewSearchQueryFailedError(m.index, fmt.Errorf("decoding keyword response: %w", err))
	}

	entries := make([]Entry, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		entries = append(entries, hit.Source)
	}
	return entries, nil
}

// Stats returns the document count of the catalog index.
func (m *ESMatcher) Stats(ctx context.Context) (int64, error) {
	req := esapi.CountRequest{Index: []string{m.index}}

	res, err := req.Do(ctx, m.client)
	if err != nil {
		return 0, errors.NewSearchQueryFailedError(m.index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, errors.NewSearchQueryFailedError(m.index, fmt.Errorf("count error: %s", res.Status()))
	}

	var parsed struct {
		Count int64 `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return 0, errors.NewSearchQueryFailedError(m.index, fmt.Errorf("decoding count response: %w", err))
	}
	return parsed.Count, nil
}
