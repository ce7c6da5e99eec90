package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestEngine() *Engine {
	return NewEngine(0.75)
}

func TestMake_AllSourcesAgree(t *testing.T) {
	e := createTestEngine()

	r := e.Make(Evidence{E0: "21-26", E1: "21-26", E1Valid: true, E2: "21-26", E2Score: 0.9, HasScore: true})

	assert.Equal(t, VerdictConfirm, r.Verdict)
	assert.Equal(t, "21-26", r.FinalATA)
	assert.Equal(t, 0.97, r.Confidence)
}

func TestMake_CitationAndCatalogOverrideEntered(t *testing.T) {
	e := createTestEngine()

	r := e.Make(Evidence{E0: "21-00", E1: "21-26", E1Valid: true, E2: "21-26", E2Score: 0.8, HasScore: true})

	assert.Equal(t, VerdictCorrect, r.Verdict)
	assert.Equal(t, "21-26", r.FinalATA)
	assert.Equal(t, 0.95, r.Confidence)
}

func TestMake_CatalogConfirmsEntered(t *testing.T) {
	e := createTestEngine()

	tests := []struct {
		name     string
		score    float64
		hasScore bool
		wantConf float64
	}{
		{"high score", 0.85, true, 0.88},
		{"mid score", 0.65, true, 0.83},
		{"low-mid score", 0.45, true, 0.78},
		{"low score", 0.25, true, 0.73},
		{"very low score", 0.1, true, 0.68},
		{"missing score", 0, false, 0.68},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := e.Make(Evidence{E0: "32-47", E2: "32-47", E2Score: tt.score, HasScore: tt.hasScore})
			assert.Equal(t, VerdictConfirm, r.Verdict)
			assert.Equal(t, "32-47", r.FinalATA)
			assert.Equal(t, tt.wantConf, r.Confidence)
		})
	}
}

func TestMake_CitationOnly(t *testing.T) {
	e := createTestEngine()

	// Citation agrees with entered chapter.
	r := e.Make(Evidence{E0: "21-26", E1: "21-26", E1Valid: true})
	assert.Equal(t, VerdictConfirm, r.Verdict)
	assert.Equal(t, 0.92, r.Confidence)

	// Citation overrides entered chapter.
	r = e.Make(Evidence{E0: "21-00", E1: "21-26", E1Valid: true})
	assert.Equal(t, VerdictCorrect, r.Verdict)
	assert.Equal(t, "21-26", r.FinalATA)
	assert.Equal(t, 0.90, r.Confidence)

	// Weak catalog match is ignored in favor of the citation.
	r = e.Make(Evidence{E0: "21-00", E1: "21-26", E1Valid: true, E2: "32-00", E2Score: 0.2, HasScore: true})
	assert.Equal(t, VerdictCorrect, r.Verdict)
	assert.Equal(t, "21-26", r.FinalATA)
}

func TestMake_InvalidCitationIgnored(t *testing.T) {
	e := createTestEngine()

	// An unvalidated citation must not participate in reconciliation.
	r := e.Make(Evidence{E0: "21-26", E1: "99-99", E1Valid: false})

	assert.Equal(t, VerdictReview, r.Verdict)
	assert.Equal(t, "21-26", r.FinalATA)
	assert.Equal(t, 0.65, r.Confidence)
}

func TestMake_CatalogOnly(t *testing.T) {
	e := createTestEngine()

	// Strong disagreeing catalog match corrects the entered chapter.
	r := e.Make(Evidence{E0: "21-00", E2: "32-47", E2Score: 0.85, HasScore: true})
	assert.Equal(t, VerdictCorrect, r.Verdict)
	assert.Equal(t, "32-47", r.FinalATA)
	assert.Equal(t, 0.88, r.Confidence)

	// Moderate disagreeing catalog match still clears the threshold.
	r = e.Make(Evidence{E0: "21-00", E2: "32-47", E2Score: 0.45, HasScore: true})
	assert.Equal(t, VerdictCorrect, r.Verdict)
	assert.Equal(t, "32-47", r.FinalATA)
	assert.Equal(t, 0.78, r.Confidence)

	// Weak disagreeing catalog match stays with the entered chapter.
	r = e.Make(Evidence{E0: "21-00", E2: "32-47", E2Score: 0.35, HasScore: true})
	assert.Equal(t, VerdictReview, r.Verdict)
	assert.Equal(t, "21-00", r.FinalATA)
	assert.Equal(t, 0.73, r.Confidence)
}

func TestMake_CitationCatalogDisagree(t *testing.T) {
	e := createTestEngine()

	// Entered matches the citation.
	r := e.Make(Evidence{E0: "21-26", E1: "21-26", E1Valid: true, E2: "32-47", E2Score: 0.9, HasScore: true})
	assert.Equal(t, VerdictConfirm, r.Verdict)
	assert.Equal(t, 0.88, r.Confidence)

	// Entered matches a strong catalog match.
	r = e.Make(Evidence{E0: "32-47", E1: "21-26", E1Valid: true, E2: "32-47", E2Score: 0.9, HasScore: true})
	assert.Equal(t, VerdictConfirm, r.Verdict)
	assert.Equal(t, 0.85, r.Confidence)

	// Entered matches a weak catalog match.
	r = e.Make(Evidence{E0: "32-47", E1: "21-26", E1Valid: true, E2: "32-47", E2Score: 0.4, HasScore: true})
	assert.Equal(t, VerdictReview, r.Verdict)
	assert.Equal(t, "32-47", r.FinalATA)
	assert.Equal(t, 0.70, r.Confidence)

	// All three disagree.
	r = e.Make(Evidence{E0: "24-00", E1: "21-26", E1Valid: true, E2: "32-47", E2Score: 0.9, HasScore: true})
	assert.Equal(t, VerdictReview, r.Verdict)
	assert.Equal(t, "24-00", r.FinalATA)
	assert.Equal(t, 0.65, r.Confidence)
}

func TestMake_EnteredOnly(t *testing.T) {
	e := createTestEngine()

	r := e.Make(Evidence{E0: "21-26"})

	assert.Equal(t, VerdictReview, r.Verdict)
	assert.Equal(t, "21-26", r.FinalATA)
	assert.Equal(t, 0.65, r.Confidence)
}

func TestMake_NoEvidence(t *testing.T) {
	e := createTestEngine()

	r := e.Make(Evidence{})

	assert.Equal(t, VerdictReview, r.Verdict)
	assert.Equal(t, "", r.FinalATA)
	assert.Equal(t, 0.50, r.Confidence)
}

// TestMake_Totality sweeps evidence combinations and asserts every one
// produces a well-formed result.
func TestMake_Totality(t *testing.T) {
	e := createTestEngine()

	chapters := []string{"", "21-26", "32-47"}
	scores := []struct {
		score float64
		has   bool
	}{
		{0, false},
		{0.1, true},
		{0.5, true},
		{0.9, true},
	}

	for _, e0 := range chapters {
		for _, e1 := range chapters {
			for _, e1Valid := range []bool{true, false} {
				for _, e2 := range chapters {
					for _, s := range scores {
						r := e.Make(Evidence{E0: e0, E1: e1, E1Valid: e1Valid, E2: e2, E2Score: s.score, HasScore: s.has})
						require.NotEmpty(t, r.Verdict)
						require.NotEmpty(t, r.Reason)
						require.GreaterOrEqual(t, r.Confidence, 0.5)
						require.LessOrEqual(t, r.Confidence, 0.97)
						require.NoError(t, ValidateResult(r))
					}
				}
			}
		}
	}
}

// TestBucketScore_Monotonic asserts a higher similarity score never
// produces a lower confidence.
func TestBucketScore_Monotonic(t *testing.T) {
	prev := 0.0
	for s := 0.0; s <= 1.0; s += 0.05 {
		conf := bucketScore(s, true)
		assert.GreaterOrEqual(t, conf, prev, "score %.2f", s)
		prev = conf
	}
}

func TestValidateResult(t *testing.T) {
	assert.NoError(t, ValidateResult(Result{Verdict: VerdictConfirm, FinalATA: "21-26", Confidence: 0.97, Reason: "ok"}))
	assert.NoError(t, ValidateResult(Result{Verdict: VerdictReview, FinalATA: "", Confidence: 0.5, Reason: "ok"}))

	assert.Error(t, ValidateResult(Result{Verdict: "MAYBE", FinalATA: "21-26", Confidence: 0.9, Reason: "ok"}))
	assert.Error(t, ValidateResult(Result{Verdict: VerdictConfirm, FinalATA: "2126", Confidence: 0.9, Reason: "ok"}))
	assert.Error(t, ValidateResult(Result{Verdict: VerdictConfirm, FinalATA: "21-26", Confidence: 1.5, Reason: "ok"}))
	assert.Error(t, ValidateResult(Result{Verdict: VerdictConfirm, FinalATA: "21-26", Confidence: 0.9, Reason: ""}))
}
