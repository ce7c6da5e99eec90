// internal/decision/engine.go
package decision

import "fmt"

// Verdict is the outcome class of a reconciliation decision.
type Verdict string

const (
	VerdictConfirm   Verdict = "CONFIRM"
	VerdictCorrect   Verdict = "CORRECT"
	VerdictReview    Verdict = "REVIEW"
	VerdictNonDefect Verdict = "NON_DEFECT"
)

// Result is the outcome of reconciling the three ATA evidence sources.
type Result struct {
	Verdict    Verdict `json:"verdict"`
	FinalATA   string  `json:"final_ata"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// Evidence carries the three reconciliation inputs for one work order.
// E0 is the technician-entered chapter, E1 the chapter cited from a
// maintenance manual reference, E2 the chapter suggested by catalog
// matching. E1 participates only when E1Valid is set; E2Score is
// meaningful only when HasScore is set.
type Evidence struct {
	E0       string
	E1       string
	E1Valid  bool
	E2       string
	E2Score  float64
	HasScore bool
}

// Engine reconciles the evidence sources with a fixed-priority rule
// cascade. ConfidenceThreshold controls when a catalog-only agreement
// is strong enough to correct the entered chapter.
type Engine struct {
	ConfidenceThreshold float64
}

func NewEngine(threshold float64) *Engine {
	return &Engine{ConfidenceThreshold: threshold}
}

// bucketScore maps a catalog similarity score onto a confidence value.
// Missing scores land in the lowest bucket.
func bucketScore(score float64, hasScore bool) float64 {
	if !hasScore {
		return 0.68
	}
	switch {
	case score >= 0.8:
		return 0.88
	case score >= 0.6:
		return 0.83
	case score >= 0.4:
		return 0.78
	case score >= 0.2:
		return 0.73
	default:
		return 0.68
	}
}

// Make evaluates the rule cascade top to bottom and returns the first
// matching rule's result. The cascade is total: every evidence
// combination reaches a rule.
func (e *Engine) Make(ev Evidence) Result {
	e1 := ""
	if ev.E1Valid {
		e1 = ev.E1
	}
	hasE1 := e1 != ""
	hasE2 := ev.E2 != ""
	hasE0 := ev.E0 != ""

	// Rule 1: all three sources agree.
	if hasE0 && hasE1 && hasE2 && ev.E0 == e1 && ev.E0 == ev.E2 {
		return Result{
			Verdict:    VerdictConfirm,
			FinalATA:   ev.E0,
			Confidence: 0.97,
			Reason:     "All sources agree: entered ATA confirmed by manual citation and catalog match",
		}
	}

	// Rule 2: citation and catalog agree against the entered chapter.
	if hasE1 && hasE2 && e1 == ev.E2 && ev.E0 != e1 {
		return Result{
			Verdict:    VerdictCorrect,
			FinalATA:   e1,
			Confidence: 0.95,
			Reason:     fmt.Sprintf("Manual citation and catalog match agree on %s, overriding entered %s", e1, ev.E0),
		}
	}

	// Rule 3: catalog confirms the entered chapter, no usable citation.
	if hasE0 && hasE2 && ev.E0 == ev.E2 && !hasE1 {
		return Result{
			Verdict:    VerdictConfirm,
			FinalATA:   ev.E0,
			Confidence: bucketScore(ev.E2Score, ev.HasScore),
			Reason:     "Catalog match confirms entered ATA",
		}
	}

	// Rule 4: citation present but catalog absent or too weak.
	if hasE1 && (!hasE2 || (ev.HasScore && ev.E2Score < 0.3)) {
		if ev.E0 == e1 {
			return Result{
				Verdict:    VerdictConfirm,
				FinalATA:   ev.E0,
				Confidence: 0.92,
				Reason:     "Manual citation confirms entered ATA",
			}
		}
		return Result{
			Verdict:    VerdictCorrect,
			FinalATA:   e1,
			Confidence: 0.90,
			Reason:     fmt.Sprintf("Manual citation indicates %s, overriding entered %s", e1, ev.E0),
		}
	}

	// Rule 5: catalog evidence only.
	if hasE2 && ev.HasScore && ev.E2Score >= 0.3 && !hasE1 {
		conf := bucketScore(ev.E2Score, ev.HasScore)
		if ev.E0 == ev.E2 {
			return Result{
				Verdict:    VerdictConfirm,
				FinalATA:   ev.E0,
				Confidence: conf,
				Reason:     "Catalog match confirms entered ATA",
			}
		}
		if conf >= e.ConfidenceThreshold {
			return Result{
				Verdict:    VerdictCorrect,
				FinalATA:   ev.E2,
				Confidence: conf,
				Reason:     fmt.Sprintf("Catalog match indicates %s with high confidence, overriding entered %s", ev.E2, ev.E0),
			}
		}
		return Result{
			Verdict:    VerdictReview,
			FinalATA:   ev.E0,
			Confidence: conf,
			Reason:     fmt.Sprintf("Catalog match suggests %s but confidence below threshold, keeping entered %s for review", ev.E2, ev.E0),
		}
	}

	// Rule 6: citation and catalog disagree with each other.
	if hasE1 && hasE2 && e1 != ev.E2 {
		if ev.E0 == e1 {
			return Result{
				Verdict:    VerdictConfirm,
				FinalATA:   ev.E0,
				Confidence: 0.88,
				Reason:     "Entered ATA matches manual citation, catalog disagrees",
			}
		}
		if ev.E0 == ev.E2 {
			conf := bucketScore(ev.E2Score, ev.HasScore)
			if conf >= 0.85 {
				return Result{
					Verdict:    VerdictConfirm,
					FinalATA:   ev.E0,
					Confidence: 0.85,
					Reason:     "Entered ATA matches strong catalog match, citation disagrees",
				}
			}
			return Result{
				Verdict:    VerdictReview,
				FinalATA:   ev.E0,
				Confidence: 0.70,
				Reason:     "Entered ATA matches weak catalog match, citation disagrees",
			}
		}
		return Result{
			Verdict:    VerdictReview,
			FinalATA:   ev.E0,
			Confidence: 0.65,
			Reason:     "All three sources disagree",
		}
	}

	// Rule 7: entered chapter only.
	if hasE0 {
		return Result{
			Verdict:    VerdictReview,
			FinalATA:   ev.E0,
			Confidence: 0.65,
			Reason:     "No supporting evidence for entered ATA",
		}
	}

	// Rule 8: nothing usable at all.
	return Result{
		Verdict:    VerdictReview,
		FinalATA:   ev.E0,
		Confidence: 0.50,
		Reason:     "No evidence available",
	}
}
