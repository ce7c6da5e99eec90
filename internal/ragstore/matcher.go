// internal/ragstore/matcher.go
package ragstore

import (
	"context"
	"strings"

	"github.com/techvna-coder/ata-wo-analyzer/internal/catalog"
	"github.com/techvna-coder/ata-wo-analyzer/internal/common/logger"
)

// Embedder turns text into a query vector. Satisfied by
// embeddings.Client.
type Embedder interface {
	EmbedOne(ctx context.Context, text string) ([]float32, error)
}

// Matcher adapts the vector store to the catalog matching contract:
// embed the work-order text, retrieve nearest manual chunks, and keep
// the best-scoring chunk per ATA chapter.
type Matcher struct {
	store    *Store
	embedder Embedder
	minScore float64
	topK     int
	logger   logger.Logger
}

// MatcherConfig mirrors the lexical matcher's tuning knobs.
type MatcherConfig struct {
	MinScore float64
	TopK     int
}

func NewMatcher(store *Store, embedder Embedder, cfg MatcherConfig, log logger.Logger) *Matcher {
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}
	return &Matcher{
		store:    store,
		embedder: embedder,
		minScore: cfg.MinScore,
		topK:     cfg.TopK,
		logger:   log,
	}
}

func (m *Matcher) Match(ctx context.Context, text string) ([]catalog.Match, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	query, err := m.embedder.EmbedOne(ctx, text)
	if err != nil {
		return nil, err
	}

	// Over-fetch so chapter aggregation still yields topK chapters.
	chunks, err := m.store.Search(ctx, query, m.topK*4)
	if err != nil {
		return nil, err
	}

	var matches []catalog.Match
	for _, c := range aggregateByChapter(chunks) {
		if c.Similarity < m.minScore {
			continue
		}
		matches = append(matches, catalog.Match{
			ATA04:      c.ATA04,
			SystemName: c.Title,
			Score:      c.Similarity,
			DocType:    c.ManualType,
			Snippet:    snippet(c.Text),
			Source:     "RAG Store",
		})
		if len(matches) >= m.topK {
			break
		}
	}

	m.logger.Debug("rag match completed", map[string]interface{}{
		"chunks":     len(chunks),
		"candidates": len(matches),
	})
	return matches, nil
}

// snippet bounds the evidence passage carried on a match.
func snippet(text string) string {
	const maxRunes = 200
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	return string(runes[:maxRunes]) + "..."
}
