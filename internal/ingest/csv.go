// internal/ingest/csv.go
package ingest

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/techvna-coder/ata-wo-analyzer/internal/ata"
	"github.com/techvna-coder/ata-wo-analyzer/internal/common/errors"
	"github.com/techvna-coder/ata-wo-analyzer/internal/decision"
	"github.com/techvna-coder/ata-wo-analyzer/internal/models"
)

// Column headers as exported by the maintenance tracking system.
const (
	colATA         = "ATA"
	colDescription = "W/O Description"
	colAction      = "W/O Action"
	colType        = "Type"
	colAircraft    = "A/C"
	colIssued      = "Issued"
	colClosed      = "Closed"
)

var dateLayouts = []string{
	"02-Jan-06",
	"2006-01-02",
	"02/01/2006",
	"01/02/2006 15:04",
}

// rowSchema rejects rows that cannot be classified at all: both text
// fields empty, or a malformed entered ATA.
const rowSchema = `{
  "type": "object",
  "properties": {
    "entered_ata": {"type": "string", "maxLength": 20},
    "description": {"type": "string"},
    "rectification": {"type": "string"}
  },
  "anyOf": [
    {"properties": {"description": {"minLength": 1}}, "required": ["description"]},
    {"properties": {"rectification": {"minLength": 1}}, "required": ["rectification"]}
  ]
}`

var compiledRowSchema = gojsonschema.NewStringLoader(rowSchema)

// Reader streams work orders from a CSV export.
type Reader struct {
	csv     *csv.Reader
	columns map[string]int
	rowNum  int
}

// NewReader consumes the header row and builds the column mapping.
// Unknown extra columns are ignored; missing required columns fail
// fast.
func NewReader(r io.Reader) (*Reader, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, errors.NewInvalidInputRowError(fmt.Sprintf("reading header: %v", err))
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{colATA, colDescription, colAction} {
		if _, ok := columns[required]; !ok {
			return nil, errors.NewInvalidInputRowError(fmt.Sprintf("missing column %q", required))
		}
	}

	return &Reader{csv: cr, columns: columns}, nil
}

// Next returns the next work order, io.EOF at end of input, or a
// validation error for an unusable row. Callers typically log and skip
// validation errors.
func (r *Reader) Next() (models.WorkOrder, error) {
	record, err := r.csv.Read()
	if err == io.EOF {
		return models.WorkOrder{}, io.EOF
	}
	if err != nil {
		return models.WorkOrder{}, errors.NewInvalidInputRowError(fmt.Sprintf("row %d: %v", r.rowNum+1, err))
	}
	r.rowNum++

	wo := models.WorkOrder{
		ID:            fmt.Sprintf("row-%d", r.rowNum),
		EnteredATA:    r.field(record, colATA),
		Description:   r.field(record, colDescription),
		Rectification: r.field(record, colAction),
		OrderType:     r.field(record, colType),
		Aircraft:      r.field(record, colAircraft),
		IssuedAt:      r.date(record, colIssued),
		ClosedAt:      r.date(record, colClosed),
	}

	if err := validateRow(wo); err != nil {
		return wo, err
	}
	return wo, nil
}

// ReadAll drains the input. Rows failing validation are not dropped:
// each yields a REVIEW result carrying the validation diagnostic, so
// the batch still emits one result per input row.
func (r *Reader) ReadAll() ([]models.WorkOrder, []models.WOResult, error) {
	var (
		orders   []models.WorkOrder
		rejected []models.WOResult
	)
	for {
		wo, err := r.Next()
		if err == io.EOF {
			return orders, rejected, nil
		}
		if err != nil {
			if stdErr, ok := err.(*errors.StandardError); ok && stdErr.Code == errors.ErrCodeInvalidInputRow {
				rejected = append(rejected, RejectedRowResult(wo, err))
				continue
			}
			return orders, rejected, err
		}
		orders = append(orders, wo)
	}
}

// RejectedRowResult wraps a row that failed input validation as a
// review verdict so it still appears in the output.
func RejectedRowResult(wo models.WorkOrder, err error) models.WOResult {
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
			Reason:     fmt.Sprintf("Invalid input row: %v", err),
		},
	}
}

func (r *Reader) field(record []string, column string) string {
	idx, ok := r.columns[column]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func (r *Reader) date(record []string, column string) *time.Time {
	raw := r.field(record, column)
	if raw == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

func validateRow(wo models.WorkOrder) error {
	doc, err := json.Marshal(map[string]string{
		"entered_ata":   wo.EnteredATA,
		"description":   wo.Description,
		"rectification": wo.Rectification,
	})
	if err != nil {
		return errors.NewInvalidInputRowError(err.Error())
	}

	res, err := gojsonschema.Validate(compiledRowSchema, gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return errors.NewInvalidInputRowError(err.Error())
	}
	if !res.Valid() {
		var msgs []string
		for _, desc := range res.Errors() {
			msgs = append(msgs, desc.String())
		}
		return errors.NewInvalidInputRowError(
			fmt.Sprintf("%s: %s", wo.ID, strings.Join(msgs, "; ")))
	}
	return nil
}

// Writer emits classification results as CSV.
type Writer struct {
	csv *csv.Writer
}

var outputHeader = []string{
	"ID", "Entered ATA", "W/O Description", "W/O Action", "Type", "A/C", "Issued", "Closed",
	"Verdict", "Final ATA", "Confidence", "Reason",
	"Is Defect", "Gate Reason",
	"Cited Manual", "Cited Task", "Cited ATA", "Citation Count", "Citation Validated",
	"Catalog ATA", "Catalog System", "Catalog Score", "Doc Type", "Evidence Snippet", "Evidence Source",
	"From Cache",
}

func NewWriter(w io.Writer) (*Writer, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(outputHeader); err != nil {
		return nil, fmt.Errorf("writing header: %w", err)
	}
	return &Writer{csv: cw}, nil
}

func (w *Writer) Write(result models.WOResult) error {
	catalogScore := ""
	if result.Catalog.HasScore {
		catalogScore = strconv.FormatFloat(result.Catalog.Score, 'f', 3, 64)
	}
	return w.csv.Write([]string{
		result.ID,
		result.EnteredATA,
		result.Description,
		result.Rectification,
		result.OrderType,
		result.Aircraft,
		formatDate(result.IssuedAt),
		formatDate(result.ClosedAt),
		string(result.Decision.Verdict),
		result.Decision.FinalATA,
		strconv.FormatFloat(result.Decision.Confidence, 'f', 2, 64),
		result.Decision.Reason,
		strconv.FormatBool(result.Gate.IsDefect),
		result.Gate.Reason,
		result.Citation.Manual,
		result.Citation.Task,
		result.Citation.ATA04,
		strconv.Itoa(result.Citation.Count),
		strconv.FormatBool(result.Citation.Validated),
		result.Catalog.ATA04,
		result.Catalog.SystemName,
		catalogScore,
		result.Catalog.DocType,
		result.Catalog.Snippet,
		result.Catalog.Source,
		strconv.FormatBool(result.FromCache),
	})
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("02-Jan-06")
}

func (w *Writer) Flush() error {
	w.csv.Flush()
	return w.csv.Error()
}
