// test/e2e/e2e_test.go
//
// Exercises the whole pipeline end to end: CSV ingest, gate, citation
// extraction with registry validation, catalog matching against a fake
// Elasticsearch, decision making and CSV output. No live services are
// required.
package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techvna-coder/ata-wo-analyzer/internal/catalog"
	"github.com/techvna-coder/ata-wo-analyzer/internal/citation"
	"github.com/techvna-coder/ata-wo-analyzer/internal/common/logger"
	"github.com/techvna-coder/ata-wo-analyzer/internal/decision"
	"github.com/techvna-coder/ata-wo-analyzer/internal/gate"
	"github.com/techvna-coder/ata-wo-analyzer/internal/ingest"
	"github.com/techvna-coder/ata-wo-analyzer/internal/pipeline"
	"github.com/techvna-coder/ata-wo-analyzer/internal/registry"
)

const inputCSV = `ATA,W/O Description,W/O Action,Type,A/C,Issued,Closed
2126,PACK 1 OVHT warning during climb,Troubleshooting performed per TSM 21-26-00. Pack controller replaced.,PIREP,VN-A321,15-Mar-24,18-Mar-24
2100,PACK 1 OVHT warning during climb,Troubleshooting performed per TSM 21-26-00. Pack controller replaced.,PIREP,VN-A322,16-Mar-24,19-Mar-24
2520,Scheduled cabin cleaning,Cabin cleaned and inspected,MAREP,VN-A321,16-Mar-24,16-Mar-24
3247,Brake overheat indication after landing,Brake unit inspected found serviceable,PIREP,VN-A323,17-Mar-24,
`

// fakeES answers every search with a strong pack match.
func fakeES(t *testing.T) *elasticsearch.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"hits": map[string]interface{}{
				"hits": []map[string]interface{}{
					{
						"_score": 40.0,
						"_source": map[string]interface{}{
							"ata04":       "21-26",
							"system_name": "Air Conditioning Pack Temperature Control",
						},
					},
				},
			},
		})
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return client
}

func TestPipelineEndToEnd(t *testing.T) {
	log := logger.NewTestLogger(t)

	// Registry knows the cited TSM task.
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.MatchExpectationsInOrder(false)
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("21-26-00", "TSM").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	matcher := catalog.NewESMatcher(fakeES(t), catalog.ESMatcherConfig{
		Index:    "ata-catalog",
		MinScore: 0.2,
		TopK:     3,
	}, log)

	processor := pipeline.NewProcessor(
		gate.NewFilter(),
		citation.NewExtractor(),
		matcher,
		registry.NewPostgresRegistry(db, log),
		decision.NewEngine(0.75),
		pipeline.NewMapCache(),
		pipeline.Options{FilterNonDefect: true},
		log,
	)

	reader, err := ingest.NewReader(strings.NewReader(inputCSV))
	require.NoError(t, err)
	orders, rejected, err := reader.ReadAll()
	require.NoError(t, err)
	require.Len(t, orders, 4)
	assert.Empty(t, rejected)

	results, summary, err := processor.ProcessBatch(context.Background(), orders)
	require.NoError(t, err)
	require.Len(t, results, 4)
	assert.Equal(t, 0, summary.Failed)

	// Row 1: entered 21-26 agrees with citation and catalog.
	assert.Equal(t, decision.VerdictConfirm, results[0].Decision.Verdict)
	assert.Equal(t, "21-26", results[0].Decision.FinalATA)
	assert.Equal(t, 0.97, results[0].Decision.Confidence)
	assert.False(t, results[0].FromCache)

	// Row 2: identical text, different entered chapter. The cached
	// analysis is reused but the decision corrects this row's chapter.
	assert.True(t, results[1].FromCache)
	assert.Equal(t, decision.VerdictCorrect, results[1].Decision.Verdict)
	assert.Equal(t, "21-26", results[1].Decision.FinalATA)
	assert.Equal(t, 0.95, results[1].Decision.Confidence)

	// Row 3: routine cleaning short-circuits.
	assert.Equal(t, decision.VerdictNonDefect, results[2].Decision.Verdict)
	assert.Equal(t, "25-20", results[2].Decision.FinalATA)
	assert.Equal(t, 0.99, results[2].Decision.Confidence)

	// Row 4: defect with no citation; catalog disagrees with entered
	// chapter and the strong score corrects it.
	assert.Equal(t, decision.VerdictCorrect, results[3].Decision.Verdict)
	assert.Equal(t, "21-26", results[3].Decision.FinalATA)

	assert.Equal(t, 1, summary.CacheHits)

	// The registry must be consulted exactly once: the second identical
	// row comes from cache.
	assert.NoError(t, mock.ExpectationsWereMet())

	// Output renders without error.
	var sb strings.Builder
	writer, err := ingest.NewWriter(&sb)
	require.NoError(t, err)
	for _, result := range results {
		require.NoError(t, writer.Write(result))
	}
	require.NoError(t, writer.Flush())
	lines := strings.Split(strings.TrimSpace(sb.String()), "\n")
	assert.Len(t, lines, 5)
	assert.Contains(t, lines[1], "CONFIRM")
	assert.Contains(t, lines[2], "CORRECT")
	assert.Contains(t, lines[3], "NON_DEFECT")
}
