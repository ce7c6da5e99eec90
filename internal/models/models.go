// internal/models/models.go
package models

import (
	"time"

	"github.com/techvna-coder/ata-wo-analyzer/internal/citation"
	"github.com/techvna-coder/ata-wo-analyzer/internal/decision"
)

// WorkOrder is one maintenance record to classify.
type WorkOrder struct {
	ID            string     `json:"id"`
	EnteredATA    string     `json:"entered_ata"`
	Description   string     `json:"description"`
	Rectification string     `json:"rectification"`
	OrderType     string     `json:"order_type,omitempty"`
	Aircraft      string     `json:"aircraft,omitempty"`
	IssuedAt      *time.Time `json:"issued_at,omitempty"`
	ClosedAt      *time.Time `json:"closed_at,omitempty"`
}

// GateResult records the defect / non-defect classification.
type GateResult struct {
	IsDefect bool   `json:"is_defect"`
	Reason   string `json:"reason"`
}

// CitationResult records what the extractor found in the rectification
// text. Manual, Task and ATA04 describe the first citation; Validated
// means that citation's task exists in the reference registry.
type CitationResult struct {
	Citations []citation.Citation `json:"citations,omitempty"`
	Count     int                 `json:"count"`
	Manual    string              `json:"manual,omitempty"`
	Task      string              `json:"task,omitempty"`
	ATA04     string              `json:"ata04,omitempty"`
	Validated bool                `json:"validated"`
}

// CatalogResult records the best catalog candidate with its evidence
// provenance.
type CatalogResult struct {
	ATA04      string  `json:"ata04,omitempty"`
	SystemName string  `json:"system_name,omitempty"`
	Score      float64 `json:"score,omitempty"`
	HasScore   bool    `json:"has_score"`
	DocType    string  `json:"doc_type,omitempty"`
	Snippet    string  `json:"snippet,omitempty"`
	Source     string  `json:"source,omitempty"`
}

// WOResult is the full classification outcome for one work order. The
// input fields travel with the outcome so the output file stands on its
// own.
type WOResult struct {
	ID            string          `json:"id"`
	EnteredATA    string          `json:"entered_ata"`
	Description   string          `json:"description"`
	Rectification string          `json:"rectification"`
	OrderType     string          `json:"order_type,omitempty"`
	Aircraft      string          `json:"aircraft,omitempty"`
	IssuedAt      *time.Time      `json:"issued_at,omitempty"`
	ClosedAt      *time.Time      `json:"closed_at,omitempty"`
	Gate          GateResult      `json:"gate"`
	Citation      CitationResult  `json:"citation"`
	Catalog       CatalogResult   `json:"catalog"`
	Decision      decision.Result `json:"decision"`
	FromCache     bool            `json:"from_cache"`
	Elapsed       time.Duration   `json:"elapsed_ns"`
}
