// internal/ragstore/store.go
package ragstore

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/techvna-coder/ata-wo-analyzer/internal/common/errors"
	"github.com/techvna-coder/ata-wo-analyzer/internal/common/logger"
)

func init() {
	// Registers sqlite-vec as an auto-loadable extension for the
	// mattn/go-sqlite3 driver.
	vec.Auto()
}

// Chunk is one retrievable passage of manual text with its provenance.
type Chunk struct {
	ID         int64   `json:"id"`
	ATA04      string  `json:"ata04"`
	TaskNumber string  `json:"task_number"`
	ManualType string  `json:"manual_type"`
	Title      string  `json:"title"`
	Text       string  `json:"text"`
	SourceFile string  `json:"source_file"`
	Similarity float64 `json:"similarity"`
}

// Store is a sqlite-vec backed vector index over manual chunks.
type Store struct {
	db        *sql.DB
	dimension int
	logger    logger.Logger
}

// Open opens (or creates) a store at path for vectors of the given
// width.
func Open(path string, dimension int, log logger.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.NewRAGStoreUnavailableError(err)
	}

	s := &Store{db: db, dimension: dimension, logger: log}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS chunks (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			ata04       TEXT NOT NULL,
			task_number TEXT NOT NULL DEFAULT '',
			manual_type TEXT NOT NULL DEFAULT '',
			title       TEXT NOT NULL DEFAULT '',
			text        TEXT NOT NULL,
			source_file TEXT NOT NULL DEFAULT ''
		)`,
		fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS vec_chunks USING vec0(
			chunk_id INTEGER PRIMARY KEY,
			embedding FLOAT[%d]
		)`, s.dimension),
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return errors.NewRAGStoreUnavailableError(fmt.Errorf("creating schema: %w", err))
		}
	}
	return nil
}

// Add inserts a chunk and its embedding in one transaction.
func (s *Store) Add(ctx context.Context, chunk Chunk, embedding []float32) error {
	if len(embedding) != s.dimension {
		return errors.NewInvalidInputRowError(
			fmt.Sprintf("embedding dimension %d, store expects %d", len(embedding), s.dimension))
	}

	blob, err := vec.SerializeFloat32(embedding)
	if err != nil {
		return errors.NewQueryExecutionFailedError("serialize embedding", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewQueryExecutionFailedError("begin add chunk", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO chunks (ata04, task_number, manual_type, title, text, source_file)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		chunk.ATA04, chunk.TaskNumber, chunk.ManualType, chunk.Title, chunk.Text, chunk.SourceFile)
	if err != nil {
		return errors.NewQueryExecutionFailedError("insert chunk", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return errors.NewQueryExecutionFailedError("chunk id", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO vec_chunks (chunk_id, embedding) VALUES (?, ?)`, id, blob); err != nil {
		return errors.NewQueryExecutionFailedError("insert embedding", err)
	}

	if err := tx.Commit(); err != nil {
		return errors.NewQueryExecutionFailedError("commit add chunk", err)
	}
	return nil
}

// Search returns the k nearest chunks to the query vector, most
// similar first. L2 distance is converted to a similarity in (0, 1]
// via 1/(1+distance).
func (s *Store) Search(ctx context.Context, embedding []float32, k int) ([]Chunk, error) {
	if len(embedding) != s.dimension {
		return nil, errors.NewInvalidInputRowError(
			fmt.Sprintf("query dimension %d, store expects %d", len(embedding), s.dimension))
	}
	if k <= 0 {
		k = 5
	}

	blob, err := vec.SerializeFloat32(embedding)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("serialize query", err)
	}

	const q = `
		SELECT
			c.id, c.ata04, c.task_number, c.manual_type, c.title, c.text, c.source_file,
			vec_distance_L2(v.embedding, ?) AS distance
		FROM vec_chunks v
		JOIN chunks c ON v.chunk_id = c.id
		ORDER BY distance
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, q, blob, k)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("knn search", err)
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		var distance float64
		if err := rows.Scan(&c.ID, &c.ATA04, &c.TaskNumber, &c.ManualType, &c.Title, &c.Text, &c.SourceFile, &distance); err != nil {
			return nil, errors.NewQueryExecutionFailedError("scan chunk", err)
		}
		c.Similarity = 1.0 / (1.0 + distance)
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// Count returns the number of stored chunks.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0, errors.NewQueryExecutionFailedError("count chunks", err)
	}
	return n, nil
}

// Clear drops all chunks and embeddings.
func (s *Store) Clear(ctx context.Context) error {
	for _, stmt := range []string{`DELETE FROM vec_chunks`, `DELETE FROM chunks`} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errors.NewQueryExecutionFailedError("clear store", err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// aggregateByChapter keeps the best similarity seen per ATA04 chapter.
func aggregateByChapter(chunks []Chunk) []Chunk {
	best := make(map[string]Chunk)
	for _, c := range chunks {
		if prev, ok := best[c.ATA04]; !ok || c.Similarity > prev.Similarity {
			best[c.ATA04] = c
		}
	}

	out := make([]Chunk, 0, len(best))
	for _, c := range best {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	return out
}
