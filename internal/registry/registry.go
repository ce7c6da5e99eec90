// internal/registry/registry.go
package registry

import (
	"context"
	"database/sql"
	"strings"

	"github.com/lib/pq"

	"github.com/techvna-coder/ata-wo-analyzer/internal/common/errors"
	"github.com/techvna-coder/ata-wo-analyzer/internal/common/logger"
)

// Reference is one maintenance-manual task known to exist. The chapter
// through subsection columns keep the task number's components
// individually queryable.
type Reference struct {
	TaskNumber  string `json:"task_number"`
	ManualType  string `json:"manual_type"`
	ATA04       string `json:"ata04"`
	Chapter     string `json:"chapter"`
	Section     string `json:"section"`
	Subject     string `json:"subject"`
	Subsection1 string `json:"subsection1,omitempty"`
	Subsection2 string `json:"subsection2,omitempty"`
	Title       string `json:"title"`
	SourceFile  string `json:"source_file"`
}

// FillComponents populates the chapter through subsection fields from
// the task number when they are not already set.
func (ref *Reference) FillComponents() {
	if ref.Chapter != "" {
		return
	}
	parts := strings.Split(ref.TaskNumber, "-")
	fields := []*string{&ref.Chapter, &ref.Section, &ref.Subject, &ref.Subsection1, &ref.Subsection2}
	for i, part := range parts {
		if i >= len(fields) {
			break
		}
		*fields[i] = part
	}
}

// Validator answers whether a cited manual task exists in the fleet's
// documentation. Citations failing validation carry no evidentiary
// weight.
type Validator interface {
	Exists(ctx context.Context, taskNumber, manualType string) (bool, error)
}

const schema = `
CREATE TABLE IF NOT EXISTS manual_references (
	task_number  VARCHAR(20) NOT NULL,
	manual_type  VARCHAR(10) NOT NULL,
	ata04        VARCHAR(5)  NOT NULL,
	chapter      VARCHAR(2)  NOT NULL DEFAULT '',
	section      VARCHAR(2)  NOT NULL DEFAULT '',
	subject      VARCHAR(2)  NOT NULL DEFAULT '',
	subsection1  VARCHAR(3)  NOT NULL DEFAULT '',
	subsection2  VARCHAR(3)  NOT NULL DEFAULT '',
	title        TEXT        NOT NULL DEFAULT '',
	source_file  TEXT        NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (task_number, manual_type)
);
CREATE INDEX IF NOT EXISTS idx_manual_references_ata04 ON manual_references (ata04);
CREATE INDEX IF NOT EXISTS idx_manual_references_manual_type ON manual_references (manual_type);
`

// PostgresRegistry stores and validates manual task references.
type PostgresRegistry struct {
	db     *sql.DB
	logger logger.Logger
}

func NewPostgresRegistry(db *sql.DB, log logger.Logger) *PostgresRegistry {
	return &PostgresRegistry{db: db, logger: log}
}

// EnsureSchema creates the reference table and its indexes if missing.
func (r *PostgresRegistry) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return errors.NewQueryExecutionFailedError("ensure schema", err)
	}
	return nil
}

// Add upserts one reference.
func (r *PostgresRegistry) Add(ctx context.Context, ref Reference) error {
	const q = `
		INSERT INTO manual_references (task_number, manual_type, ata04, chapter, section, subject, subsection1, subsection2, title, source_file)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (task_number, manual_type)
		DO UPDATE SET ata04 = EXCLUDED.ata04, title = EXCLUDED.title, source_file = EXCLUDED.source_file`

	ref.FillComponents()
	_, err := r.db.ExecContext(ctx, q,
		strings.ToUpper(ref.TaskNumber), strings.ToUpper(ref.ManualType),
		ref.ATA04, ref.Chapter, ref.Section, ref.Subject, ref.Subsection1, ref.Subsection2,
		ref.Title, ref.SourceFile)
	if err != nil {
		return errors.NewQueryExecutionFailedError("add reference", err)
	}
	return nil
}

// AddBatch bulk-loads references inside one transaction using COPY.
func (r *PostgresRegistry) AddBatch(ctx context.Context, refs []Reference) (int, error) {
	if len(refs) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.NewQueryExecutionFailedError("begin batch", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("manual_references",
		"task_number", "manual_type", "ata04", "chapter", "section", "subject",
		"subsection1", "subsection2", "title", "source_file"))
	if err != nil {
		return 0, errors.NewQueryExecutionFailedError("prepare copy", err)
	}

	for _, ref := range refs {
		ref.FillComponents()
		if _, err := stmt.ExecContext(ctx,
			strings.ToUpper(ref.TaskNumber), strings.ToUpper(ref.ManualType),
			ref.ATA04, ref.Chapter, ref.Section, ref.Subject, ref.Subsection1, ref.Subsection2,
			ref.Title, ref.SourceFile); err != nil {
			stmt.Close()
			return 0, errors.NewQueryExecutionFailedError("copy row", err)
		}
	}

	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return 0, errors.NewQueryExecutionFailedError("flush copy", err)
	}
	if err := stmt.Close(); err != nil {
		return 0, errors.NewQueryExecutionFailedError("close copy", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.NewQueryExecutionFailedError("commit batch", err)
	}

	r.logger.Info("reference batch loaded", map[string]interface{}{
		"count": len(refs),
	})
	return len(refs), nil
}

// Exists reports whether a task number is registered. An empty
// manualType matches any manual.
func (r *PostgresRegistry) Exists(ctx context.Context, taskNumber, manualType string) (bool, error) {
	var (
		found bool
		err   error
	)
	if manualType == "" {
		const q = `SELECT EXISTS(SELECT 1 FROM manual_references WHERE task_number = $1)`
		err = r.db.QueryRowContext(ctx, q, strings.ToUpper(taskNumber)).Scan(&found)
	} else {
		const q = `SELECT EXISTS(SELECT 1 FROM manual_references WHERE task_number = $1 AND manual_type = $2)`
		err = r.db.QueryRowContext(ctx, q,
			strings.ToUpper(taskNumber), strings.ToUpper(manualType)).Scan(&found)
	}
	if err != nil {
		return false, errors.NewQueryExecutionFailedError("exists lookup", err)
	}
	return found, nil
}

// Get fetches one reference, or sql.ErrNoRows wrapped as not found.
func (r *PostgresRegistry) Get(ctx context.Context, taskNumber, manualType string) (*Reference, error) {
	const q = `
		SELECT task_number, manual_type, ata04, chapter, section, subject, subsection1, subsection2, title, source_file
		FROM manual_references
		WHERE task_number = $1 AND manual_type = $2`

	var ref Reference
	err := r.db.QueryRowContext(ctx, q,
		strings.ToUpper(taskNumber), strings.ToUpper(manualType)).
		Scan(&ref.TaskNumber, &ref.ManualType, &ref.ATA04,
			&ref.Chapter, &ref.Section, &ref.Subject, &ref.Subsection1, &ref.Subsection2,
			&ref.Title, &ref.SourceFile)
	if err == sql.ErrNoRows {
		return nil, errors.NewResourceNotFoundError("registry", taskNumber)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("get reference", err)
	}
	return &ref, nil
}

// SearchByATA lists references filed under an ATA04 chapter.
func (r *PostgresRegistry) SearchByATA(ctx context.Context, ata04 string, limit int) ([]Reference, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
		SELECT task_number, manual_type, ata04, chapter, section, subject, subsection1, subsection2, title, source_file
		FROM manual_references
		WHERE ata04 = $1
		ORDER BY task_number
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, q, ata04, limit)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("search by ata", err)
	}
	defer rows.Close()

	var refs []Reference
	for rows.Next() {
		var ref Reference
		if err := rows.Scan(&ref.TaskNumber, &ref.ManualType, &ref.ATA04,
			&ref.Chapter, &ref.Section, &ref.Subject, &ref.Subsection1, &ref.Subsection2,
			&ref.Title, &ref.SourceFile); err != nil {
			return nil, errors.NewQueryExecutionFailedError("scan reference", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("iterate references", err)
	}
	return refs, nil
}

// Stats returns reference counts grouped by manual type.
func (r *PostgresRegistry) Stats(ctx context.Context) (map[string]int64, error) {
	const q = `SELECT manual_type, COUNT(*) FROM manual_references GROUP BY manual_type`

	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("registry stats", err)
	}
	defer rows.Close()

	stats := make(map[string]int64)
	for rows.Next() {
		var manualType string
		var count int64
		if err := rows.Scan(&manualType, &count); err != nil {
			return nil, errors.NewQueryExecutionFailedError("scan stats", err)
		}
		stats[manualType] = count
	}
	return stats, rows.Err()
}

// Clear removes every reference. Used by the indexer before a full
// rebuild.
func (r *PostgresRegistry) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `TRUNCATE manual_references`); err != nil {
		return errors.NewQueryExecutionFailedError("clear registry", err)
	}
	return nil
}
