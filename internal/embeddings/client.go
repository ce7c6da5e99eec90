// internal/embeddings/client.go
package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/techvna-coder/ata-wo-analyzer/internal/common/errors"
	"github.com/techvna-coder/ata-wo-analyzer/internal/common/httpclient"
	"github.com/techvna-coder/ata-wo-analyzer/internal/common/logger"
)

// Client calls an OpenAI-compatible embeddings endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	dimension  int
	batchSize  int
	httpClient *httpclient.Client
	logger     logger.Logger
}

// Config carries the embeddings endpoint settings.
type Config struct {
	BaseURL   string
	APIKey    string
	Model     string
	Dimension int
	Timeout   time.Duration
	BatchSize int
}

func NewClient(cfg Config, log logger.Logger) *Client {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 64
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		dimension:  cfg.Dimension,
		batchSize:  cfg.BatchSize,
		httpClient: httpclient.NewClient(cfg.Timeout),
		logger:     log,
	}
}

// Dimension returns the configured vector width.
func (c *Client) Dimension() int {
	return c.dimension
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed returns one vector per input text, preserving input order.
// Large inputs are sent in batches.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := c.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

// EmbedOne is a convenience wrapper for single-text queries.
func (c *Client) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, errors.NewEmbeddingAPIFailedError(fmt.Errorf("expected 1 vector, got %d", len(vectors)))
	}
	return vectors[0], nil
}

func (c *Client) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embeddingRequest{Model: c.model, Input: texts})
	if err != nil {
		return nil, errors.NewEmbeddingAPIFailedError(err)
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, errors.NewEmbeddingAPIFailedError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.DoWithContext(ctx, req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.NewEmbeddingTimeoutError()
		}
		return nil, errors.NewEmbeddingAPIFailedError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, errors.NewEmbeddingAPIFailedError(
			fmt.Errorf("embeddings API returned %d: %s", resp.StatusCode, string(raw)))
	}

	var parsed embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, errors.NewEmbeddingAPIFailedError(fmt.Errorf("decoding response: %w", err))
	}
	if len(parsed.Data) != len(texts) {
		return nil, errors.NewEmbeddingAPIFailedError(
			fmt.Errorf("expected %d vectors, got %d", len(texts), len(parsed.Data)))
	}

	// The API may return data out of order; index is authoritative.
	vectors := make([][]float32, len(texts))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, errors.NewEmbeddingAPIFailedError(fmt.Errorf("vector index %d out of range", d.Index))
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}
