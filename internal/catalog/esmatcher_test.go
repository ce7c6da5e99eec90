package catalog

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techvna-coder/ata-wo-analyzer/internal/common/logger"
)

func newTestES(t *testing.T, handler http.HandlerFunc) *elasticsearch.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return client
}

func createTestMatcher(t *testing.T, handler http.HandlerFunc) *ESMatcher {
	return NewESMatcher(newTestES(t, handler), ESMatcherConfig{
		Index:    "ata-catalog",
		MinScore: 0.2,
		TopK:     3,
	}, logger.NewTestLogger(t))
}

func searchFixture(hits ...map[string]interface{}) string {
	body, _ := json.Marshal(map[string]interface{}{
		"hits": map[string]interface{}{
			"hits": hits,
		},
	})
	return string(body)
}

func TestMatch_ReturnsNormalizedCandidates(t *testing.T) {
	var capturedBody map[string]interface{}

	m := createTestMatcher(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &capturedBody)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		_, _ = w.Write([]byte(searchFixture(
			map[string]interface{}{
				"_score":  40.0,
				"_source": map[string]interface{}{"ata04": "21-26", "system_name": "Air Conditioning Pack"},
			},
			map[string]interface{}{
				"_score":  10.0,
				"_source": map[string]interface{}{"ata04": "36-11", "system_name": "Bleed Air Supply"},
			},
		)))
	})

	matches, err := m.Match(context.Background(), "pack overheat warning in cruise")

	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "21-26", matches[0].ATA04)
	assert.InDelta(t, 0.8, matches[0].Score, 0.001)
	assert.Equal(t, "36-11", matches[1].ATA04)
	assert.InDelta(t, 0.5, matches[1].Score, 0.001)

	// The query must be a multi_match over the weighted catalog fields.
	query := capturedBody["query"].(map[string]interface{})
	mm := query["multi_match"].(map[string]interface{})
	assert.Equal(t, "pack overheat warning in cruise", mm["query"])
}

func TestMatch_FiltersBelowMinScore(t *testing.T) {
	m := createTestMatcher(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		_, _ = w.Write([]byte(searchFixture(
			map[string]interface{}{
				"_score":  1.0, // normalizes to ~0.09, below min score
				"_source": map[string]interface{}{"ata04": "25-60", "system_name": "Emergency Equipment"},
			},
		)))
	})

	matches, err := m.Match(context.Background(), "some vague text")

	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestMatch_EmptyTextShortCircuits(t *testing.T) {
	m := createTestMatcher(t, func(w http.ResponseWriter, _ *http.Request) {
		t.Fatal("no request expected for empty text")
	})

	matches, err := m.Match(context.Background(), "   ")

	require.NoError(t, err)
	assert.Nil(t, matches)
}

func TestMatch_IndexNotFound(t *testing.T) {
	m := createTestMatcher(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"type":"index_not_found_exception"}}`))
	})

	_, err := m.Match(context.Background(), "pack fault")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "INDEX_NOT_FOUND")
}

func TestInfo_ReturnsEntryByChapter(t *testing.T) {
	m := createTestMatcher(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ata-catalog/_doc/21-26", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		_, _ = w.Write([]byte(`{"_source":{"ata04":"21-26","system_name":"Air Conditioning Pack","keywords":["pack","overheat"]}}`))
	})

	entry, err := m.Info(context.Background(), "21-26")

	require.NoError(t, err)
	assert.Equal(t, "21-26", entry.ATA04)
	assert.Equal(t, "Air Conditioning Pack", entry.SystemName)
	assert.Contains(t, entry.Keywords, "overheat")
}

func TestInfo_UnknownChapter(t *testing.T) {
	m := createTestMatcher(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"found":false}`))
	})

	_, err := m.Info(context.Background(), "99-99")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "RESOURCE_NOT_FOUND")
}

func TestSearchKeyword_ListsMatchingEntries(t *testing.T) {
	m := createTestMatcher(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(raw), `"keywords"`)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		_, _ = w.Write([]byte(searchFixture(
			map[string]interface{}{
				"_score":  5.0,
				"_source": map[string]interface{}{"ata04": "32-47", "system_name": "Brake Temperature"},
			},
		)))
	})

	entries, err := m.SearchKeyword(context.Background(), "brake")

	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "32-47", entries[0].ATA04)
}

func TestNormalizeScore(t *testing.T) {
	assert.Equal(t, 0.0, normalizeScore(0))
	assert.Equal(t, 0.0, normalizeScore(-1))
	assert.InDelta(t, 0.5, normalizeScore(10), 0.001)
	assert.Less(t, normalizeScore(5), normalizeScore(50))
	assert.Less(t, normalizeScore(1000), 1.0)
}
