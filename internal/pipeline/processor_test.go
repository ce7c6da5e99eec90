package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techvna-coder/ata-wo-analyzer/internal/catalog"
	"github.com/techvna-coder/ata-wo-analyzer/internal/citation"
	"github.com/techvna-coder/ata-wo-analyzer/internal/common/logger"
	"github.com/techvna-coder/ata-wo-analyzer/internal/decision"
	"github.com/techvna-coder/ata-wo-analyzer/internal/gate"
	"github.com/techvna-coder/ata-wo-analyzer/internal/models"
)

type stubMatcher struct {
	matches   []catalog.Match
	err       error
	calls     int
	lastQuery string
}

func (s *stubMatcher) Match(_ context.Context, text string) ([]catalog.Match, error) {
	s.calls++
	s.lastQuery = text
	return s.matches, s.err
}

type stubValidator struct {
	known map[string]bool
	err   error
}

func (s *stubValidator) Exists(_ context.Context, taskNumber, manualType string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.known[manualType+"-"+taskNumber], nil
}

func createTestProcessor(t *testing.T, matcher catalog.Matcher, validator *stubValidator, cache Cache) *Processor {
	t.Helper()
	if validator == nil {
		validator = &stubValidator{}
	}
	return NewProcessor(
		gate.NewFilter(),
		citation.NewExtractor(),
		matcher,
		validator,
		decision.NewEngine(0.75),
		cache,
		Options{FilterNonDefect: true},
		logger.NewTestLogger(t),
	)
}

func TestProcess_AllSourcesAgree(t *testing.T) {
	matcher := &stubMatcher{matches: []catalog.Match{
		{ATA04: "21-26", SystemName: "Air Conditioning Pack", Score: 0.9},
	}}
	validator := &stubValidator{known: map[string]bool{"TSM-21-26-00": true}}
	p := createTestProcessor(t, matcher, validator, nil)

	result, err := p.Process(context.Background(), models.WorkOrder{
		ID:            "WO-1",
		EnteredATA:    "2126",
		Description:   "Pack 1 overheat warning in cruise",
		Rectification: "Troubleshooting performed per TSM 21-26-00, valve replaced",
	})

	require.NoError(t, err)
	assert.Equal(t, "21-26", result.EnteredATA)
	assert.True(t, result.Gate.IsDefect)
	assert.Equal(t, 1, result.Citation.Count)
	assert.True(t, result.Citation.Validated)
	assert.Equal(t, decision.VerdictConfirm, result.Decision.Verdict)
	assert.Equal(t, 0.97, result.Decision.Confidence)
}

func TestProcess_CatalogQueryUsesDescriptionOnly(t *testing.T) {
	matcher := &stubMatcher{}
	p := createTestProcessor(t, matcher, nil, nil)

	_, err := p.Process(context.Background(), models.WorkOrder{
		ID:            "WO-11",
		EnteredATA:    "21-26",
		Description:   "Pack 1 overheat warning in cruise",
		Rectification: "Troubleshooting per TSM 21-26-00, P/N 4711 valve installed",
	})

	require.NoError(t, err)
	require.Equal(t, 1, matcher.calls)
	// The rectification's part numbers and task digits stay out of the
	// similarity query.
	assert.Equal(t, "Pack 1 overheat warning in cruise", matcher.lastQuery)
}

func TestProcess_NonDefectShortCircuit(t *testing.T) {
	matcher := &stubMatcher{}
	p := createTestProcessor(t, matcher, nil, nil)

	result, err := p.Process(context.Background(), models.WorkOrder{
		ID:            "WO-2",
		EnteredATA:    "25-20",
		Description:   "Cabin cleaning prior to delivery flight",
		Rectification: "Cabin cleaned",
	})

	require.NoError(t, err)
	assert.False(t, result.Gate.IsDefect)
	assert.Equal(t, decision.VerdictNonDefect, result.Decision.Verdict)
	assert.Equal(t, "25-20", result.Decision.FinalATA)
	assert.Equal(t, 0.99, result.Decision.Confidence)
	assert.Equal(t, 0, matcher.calls, "non-defect rows must not hit the catalog")
}

func TestProcess_UnvalidatedCitationCarriesNoWeight(t *testing.T) {
	matcher := &stubMatcher{}
	validator := &stubValidator{known: map[string]bool{}} // nothing registered
	p := createTestProcessor(t, matcher, validator, nil)

	result, err := p.Process(context.Background(), models.WorkOrder{
		ID:            "WO-3",
		EnteredATA:    "21-26",
		Description:   "Pack fault reported",
		Rectification: "Ref TSM 99-99-00",
	})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Citation.Count)
	assert.False(t, result.Citation.Validated)
	// Without usable evidence the entered chapter goes to review.
	assert.Equal(t, decision.VerdictReview, result.Decision.Verdict)
	assert.Equal(t, "21-26", result.Decision.FinalATA)
}

func TestProcess_CatalogFailureDegrades(t *testing.T) {
	matcher := &stubMatcher{err: errors.New("search exploded")}
	validator := &stubValidator{known: map[string]bool{"TSM-21-26-00": true}}
	p := createTestProcessor(t, matcher, validator, nil)

	result, err := p.Process(context.Background(), models.WorkOrder{
		ID:            "WO-4",
		EnteredATA:    "21-26",
		Description:   "Pack fault",
		Rectification: "Per TSM 21-26-00",
	})

	require.NoError(t, err)
	assert.False(t, result.Catalog.HasScore)
	// Citation-only path still confirms.
	assert.Equal(t, decision.VerdictConfirm, result.Decision.Verdict)
	assert.Equal(t, 0.92, result.Decision.Confidence)
}

// Two rows with identical text but different entered chapters must get
// different decisions: only text-derived analysis is cached, never the
// decision itself.
func TestProcess_CacheReuseRecomputesDecisionPerRow(t *testing.T) {
	matcher := &stubMatcher{matches: []catalog.Match{
		{ATA04: "21-26", SystemName: "Air Conditioning Pack", Score: 0.9},
	}}
	validator := &stubValidator{known: map[string]bool{"TSM-21-26-00": true}}
	cache := NewMapCache()
	p := createTestProcessor(t, matcher, validator, cache)

	const description = "Pack 1 overheat warning"
	const rectification = "Troubleshooting per TSM 21-26-00"

	first, err := p.Process(context.Background(), models.WorkOrder{
		ID: "WO-5", EnteredATA: "21-26",
		Description: description, Rectification: rectification,
	})
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.Equal(t, decision.VerdictConfirm, first.Decision.Verdict)
	assert.Equal(t, 0.97, first.Decision.Confidence)

	second, err := p.Process(context.Background(), models.WorkOrder{
		ID: "WO-6", EnteredATA: "21-00",
		Description: description, Rectification: rectification,
	})
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, 1, matcher.calls, "identical text must reuse the cached analysis")
	// Same text, different entered ATA: the citation/catalog agreement
	// now corrects the entered chapter instead of confirming it.
	assert.Equal(t, decision.VerdictCorrect, second.Decision.Verdict)
	assert.Equal(t, "21-26", second.Decision.FinalATA)
	assert.Equal(t, 0.95, second.Decision.Confidence)
}

func TestProcess_RedisCacheRoundTrip(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	cache := NewRedisCache(client, 0)

	matcher := &stubMatcher{matches: []catalog.Match{
		{ATA04: "32-47", SystemName: "Brake Temperature", Score: 0.7},
	}}
	p := createTestProcessor(t, matcher, nil, cache)

	wo := models.WorkOrder{
		ID: "WO-7", EnteredATA: "32-47",
		Description:   "Brake overheat indication after landing",
		Rectification: "Brake unit inspected, found within limits",
	}

	first, err := p.Process(context.Background(), wo)
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	wo.ID = "WO-8"
	second, err := p.Process(context.Background(), wo)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Decision, second.Decision)
	assert.Equal(t, 1, matcher.calls)
}

func TestProcessBatch_IsolatesRowFailures(t *testing.T) {
	// A matcher error degrades inside Process, so force failure through
	// context cancellation awareness instead: stub returns matches for
	// all rows and the batch summary tallies verdicts.
	matcher := &stubMatcher{matches: []catalog.Match{
		{ATA04: "21-26", SystemName: "Air Conditioning Pack", Score: 0.9},
	}}
	p := createTestProcessor(t, matcher, nil, nil)

	orders := []models.WorkOrder{
		{ID: "WO-9", EnteredATA: "21-26", Description: "Pack fault", Rectification: "Replaced valve"},
		{ID: "WO-10", EnteredATA: "25-20", Description: "Cabin cleaning", Rectification: "Done"},
	}

	results, summary, err := p.ProcessBatch(context.Background(), orders)

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 0, summary.Failed)
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 1, summary.ByVerdict[string(decision.VerdictNonDefect)])
}

func TestCacheKey(t *testing.T) {
	key := CacheKey("pack fault", "replaced valve")

	assert.Len(t, key, 16)
	assert.Equal(t, key, CacheKey("pack fault", "replaced valve"))
	assert.NotEqual(t, key, CacheKey("pack fault", "other action"))
	// The separator keeps field boundaries unambiguous.
	assert.NotEqual(t, CacheKey("ab", "c"), CacheKey("a", "bc"))
}
