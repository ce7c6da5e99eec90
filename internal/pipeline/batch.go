// internal/pipeline/batch.go
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/techvna-coder/ata-wo-analyzer/internal/ata"
	"github.com/techvna-coder/ata-wo-analyzer/internal/common/metrics"
	"github.com/techvna-coder/ata-wo-analyzer/internal/decision"
	"github.com/techvna-coder/ata-wo-analyzer/internal/models"
)

// BatchSummary aggregates one batch run.
type BatchSummary struct {
	RunID     string         `json:"run_id"`
	Total     int            `json:"total"`
	ByVerdict map[string]int `json:"by_verdict"`
	Failed    int            `json:"failed"`
	CacheHits int            `json:"cache_hits"`
	Elapsed   time.Duration  `json:"elapsed_ns"`
}

// ProcessBatch classifies rows sequentially. A failing row never aborts
// the batch: it is emitted as a REVIEW result carrying the failure
// diagnostic, and processing moves on.
func (p *Processor) ProcessBatch(ctx context.Context, orders []models.WorkOrder) ([]models.WOResult, BatchSummary, error) {
	start := time.Now()
	summary := BatchSummary{
		RunID:     uuid.NewString(),
		Total:     len(orders),
		ByVerdict: make(map[string]int),
	}

	p.logger.Info("batch started", map[string]interface{}{
		"run_id": summary.RunID,
		"rows":   len(orders),
	})

	results := make([]models.WOResult, 0, len(orders))
	for _, wo := range orders {
		if err := ctx.Err(); err != nil {
			return results, summary, err
		}

		result, err := p.Process(ctx, wo)
		if err != nil {
			summary.Failed++
			metrics.WorkOrdersFailed.WithLabelValues("ROW_FAILED").Inc()
			p.logger.Error("row failed, emitting review result", map[string]interface{}{
				"run_id":     summary.RunID,
				"work_order": wo.ID,
				"error":      err.Error(),
			})
			result = failedRowResult(wo, err)
		}
		if result.FromCache {
			summary.CacheHits++
		}
		summary.ByVerdict[string(result.Decision.Verdict)]++
		results = append(results, result)
	}

	summary.Elapsed = time.Since(start)
	p.logger.Info("batch finished", map[string]interface{}{
		"run_id":     summary.RunID,
		"rows":       summary.Total,
		"failed":     summary.Failed,
		"cache_hits": summary.CacheHits,
		"elapsed_ms": summary.Elapsed.Milliseconds(),
	})
	return results, summary, nil
}

func failedRowResult(wo models.WorkOrder, err error) models.WOResult {
	e0 := ata.Normalize04(wo.EnteredATA)
	return models.WOResult{
		ID:            wo.ID,
		EnteredATA:    e0,
		Description:   wo.Description,
		Rectification: wo.Rectification,
		OrderType:     wo.OrderType,
		Aircraft:      wo.Aircraft,
		IssuedAt:      wo.IssuedAt,
		ClosedAt:      wo.ClosedAt,
		Decision: decision.Result{
			Verdict:    decision.VerdictReview,
			FinalATA:   e0,
			Confidence: 0.50,
			Reason:     fmt.Sprintf("Processing failed: %v", err),
		},
	}
}
