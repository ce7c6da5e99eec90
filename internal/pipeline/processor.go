// internal/pipeline/processor.go
package pipeline

import (
	"context"
	"time"

	"github.com/techvna-coder/ata-wo-analyzer/internal/ata"
	"github.com/techvna-coder/ata-wo-analyzer/internal/catalog"
	"github.com/techvna-coder/ata-wo-analyzer/internal/citation"
	"github.com/techvna-coder/ata-wo-analyzer/internal/common/logger"
	"github.com/techvna-coder/ata-wo-analyzer/internal/common/metrics"
	"github.com/techvna-coder/ata-wo-analyzer/internal/decision"
	"github.com/techvna-coder/ata-wo-analyzer/internal/gate"
	"github.com/techvna-coder/ata-wo-analyzer/internal/models"
	"github.com/techvna-coder/ata-wo-analyzer/internal/registry"
)

// Options tunes per-row processing.
type Options struct {
	// FilterNonDefect short-circuits rows classified as routine
	// maintenance instead of running the full evidence pipeline.
	FilterNonDefect bool
	// RowTimeout bounds the collaborator calls for one row.
	RowTimeout time.Duration
}

// Processor runs one work order through the classification pipeline:
// gate, citation extraction, registry validation, catalog matching and
// the reconciliation decision.
type Processor struct {
	gate      *gate.Filter
	extractor *citation.Extractor
	matcher   catalog.Matcher
	validator registry.Validator
	engine    *decision.Engine
	cache     Cache
	opts      Options
	logger    logger.Logger
}

func NewProcessor(
	flt *gate.Filter,
	extractor *citation.Extractor,
	matcher catalog.Matcher,
	validator registry.Validator,
	engine *decision.Engine,
	cache Cache,
	opts Options,
	log logger.Logger,
) *Processor {
	if opts.RowTimeout <= 0 {
		opts.RowTimeout = 30 * time.Second
	}
	if cache == nil {
		cache = NewMapCache()
	}
	return &Processor{
		gate:      flt,
		extractor: extractor,
		matcher:   matcher,
		validator: validator,
		engine:    engine,
		cache:     cache,
		opts:      opts,
		logger:    log,
	}
}

// Process classifies one work order. Text-derived sub-results are
// cached by text digest and reused across rows with identical text; the
// decision is always recomputed against the row's own entered ATA.
func (p *Processor) Process(ctx context.Context, wo models.WorkOrder) (models.WOResult, error) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, p.opts.RowTimeout)
	defer cancel()

	e0 := ata.Normalize04(wo.EnteredATA)
	key := CacheKey(wo.Description, wo.Rectification)

	analysis, hit, err := p.cache.Get(ctx, key)
	if err != nil {
		// A failing cache degrades to recomputation.
		p.logger.Warn("cache lookup failed", map[string]interface{}{
			"work_order": wo.ID,
			"error":      err.Error(),
		})
		hit = false
	}
	if hit {
		metrics.CacheHits.WithLabelValues("hit").Inc()
	} else {
		metrics.CacheHits.WithLabelValues("miss").Inc()
		analysis, err = p.analyzeText(ctx, wo)
		if err != nil {
			return models.WOResult{}, err
		}
		if err := p.cache.Set(ctx, key, analysis); err != nil {
			p.logger.Warn("cache store failed", map[string]interface{}{
				"work_order": wo.ID,
				"error":      err.Error(),
			})
		}
	}

	result := models.WOResult{
		ID:            wo.ID,
		EnteredATA:    e0,
		Description:   wo.Description,
		Rectification: wo.Rectification,
		OrderType:     wo.OrderType,
		Aircraft:      wo.Aircraft,
		IssuedAt:      wo.IssuedAt,
		ClosedAt:      wo.ClosedAt,
		Gate:          analysis.Gate,
		Citation:      analysis.Citation,
		Catalog:       analysis.Catalog,
		FromCache:     hit,
	}

	if !analysis.Gate.IsDefect && p.opts.FilterNonDefect {
		result.Decision = decision.Result{
			Verdict:    decision.VerdictNonDefect,
			FinalATA:   e0,
			Confidence: 0.99,
			Reason:     analysis.Gate.Reason,
		}
	} else {
		decisionStart := time.Now()
		result.Decision = p.engine.Make(decision.Evidence{
			E0:       e0,
			E1:       analysis.Citation.ATA04,
			E1Valid:  analysis.Citation.Validated,
			E2:       analysis.Catalog.ATA04,
			E2Score:  analysis.Catalog.Score,
			HasScore: analysis.Catalog.HasScore,
		})
		metrics.PhaseDuration.WithLabelValues("decision").Observe(time.Since(decisionStart).Seconds())
	}

	result.Elapsed = time.Since(start)
	metrics.WorkOrdersProcessed.WithLabelValues(string(result.Decision.Verdict)).Inc()

	p.logger.Debug("work order processed", map[string]interface{}{
		"work_order": wo.ID,
		"verdict":    string(result.Decision.Verdict),
		"final_ata":  result.Decision.FinalATA,
		"from_cache": hit,
	})
	return result, nil
}

// analyzeText computes the text-derived sub-results for one work
// order. Collaborator failures degrade to absent evidence rather than
// failing the row; only context cancellation aborts.
func (p *Processor) analyzeText(ctx context.Context, wo models.WorkOrder) (*textAnalysis, error) {
	analysis := &textAnalysis{}

	gateStart := time.Now()
	isDefect, reason := p.gate.IsTechnicalDefect(wo.Description, wo.Rectification)
	analysis.Gate = models.GateResult{IsDefect: isDefect, Reason: reason}
	metrics.PhaseDuration.WithLabelValues("gate").Observe(time.Since(gateStart).Seconds())

	if !isDefect && p.opts.FilterNonDefect {
		return analysis, nil
	}

	citationStart := time.Now()
	citations := p.extractor.Extract(wo.Rectification)
	analysis.Citation = models.CitationResult{
		Citations: citations,
		Count:     len(citations),
	}
	if len(citations) > 0 {
		first := citations[0]
		analysis.Citation.ATA04 = first.ATA04
		analysis.Citation.Manual = string(first.ManualType)
		analysis.Citation.Task = first.TaskNumber
		analysis.Citation.Validated = p.validateCitation(ctx, wo.ID, first)
	}
	metrics.PhaseDuration.WithLabelValues("citation").Observe(time.Since(citationStart).Seconds())

	matchStart := time.Now()
	// Catalog evidence comes from the defect description alone: the
	// rectification narrative carries part numbers and cited task digits
	// that would skew the similarity query.
	matches, err := p.matcher.Match(ctx, wo.Description)
	switch {
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case err != nil:
		metrics.WorkOrdersFailed.WithLabelValues("CATALOG_MATCH").Inc()
		p.logger.Warn("catalog match failed, continuing without catalog evidence", map[string]interface{}{
			"work_order": wo.ID,
			"error":      err.Error(),
		})
	case len(matches) > 0:
		best := matches[0]
		analysis.Catalog = models.CatalogResult{
			ATA04:      best.ATA04,
			SystemName: best.SystemName,
			Score:      best.Score,
			HasScore:   true,
			DocType:    best.DocType,
			Snippet:    best.Snippet,
			Source:     best.Source,
		}
		metrics.CatalogMatches.WithLabelValues("matched").Inc()
	default:
		metrics.CatalogMatches.WithLabelValues("no_match").Inc()
	}
	metrics.PhaseDuration.WithLabelValues("catalog").Observe(time.Since(matchStart).Seconds())

	return analysis, nil
}

// validateCitation checks the cited task against the reference
// registry. An unreachable registry leaves the citation unvalidated, so
// it carries no weight in the decision.
func (p *Processor) validateCitation(ctx context.Context, workOrderID string, c citation.Citation) bool {
	if p.validator == nil {
		return false
	}
	exists, err := p.validator.Exists(ctx, c.TaskNumber, string(c.ManualType))
	if err != nil {
		metrics.WorkOrdersFailed.WithLabelValues("REGISTRY_LOOKUP").Inc()
		p.logger.Warn("registry validation failed, citation left unvalidated", map[string]interface{}{
			"work_order": workOrderID,
			"task":       c.TaskNumber,
			"error":      err.Error(),
		})
		return false
	}
	return exists
}
