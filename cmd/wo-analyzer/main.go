// cmd/wo-analyzer/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/techvna-coder/ata-wo-analyzer/internal/catalog"
	"github.com/techvna-coder/ata-wo-analyzer/internal/citation"
	"github.com/techvna-coder/ata-wo-analyzer/internal/common/config"
	"github.com/techvna-coder/ata-wo-analyzer/internal/common/database"
	"github.com/techvna-coder/ata-wo-analyzer/internal/common/logger"
	"github.com/techvna-coder/ata-wo-analyzer/internal/common/observability"
	"github.com/techvna-coder/ata-wo-analyzer/internal/decision"
	"github.com/techvna-coder/ata-wo-analyzer/internal/embeddings"
	"github.com/techvna-coder/ata-wo-analyzer/internal/gate"
	"github.com/techvna-coder/ata-wo-analyzer/internal/ingest"
	"github.com/techvna-coder/ata-wo-analyzer/internal/pipeline"
	"github.com/techvna-coder/ata-wo-analyzer/internal/ragstore"
	"github.com/techvna-coder/ata-wo-analyzer/internal/registry"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	var (
		inputPath  = flag.String("input", "", "input work-order CSV (required)")
		outputPath = flag.String("output", "results.csv", "output CSV path")
		mode       = flag.String("mode", "", "matching mode: catalog or rag (overrides config)")
		threshold  = flag.Float64("threshold", 0, "confidence threshold for catalog corrections (overrides config)")
		noFilter   = flag.Bool("no-filter", false, "classify non-defect rows through the full pipeline")
	)
	flag.Parse()

	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting work-order analyzer...")

	if *inputPath == "" {
		zapLog.Fatal("missing required -input flag")
	}

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}
	if *mode != "" {
		cfg.Pipeline.Mode = *mode
	}
	if *threshold > 0 {
		cfg.Pipeline.ConfidenceThreshold = *threshold
	}
	if *noFilter {
		cfg.Pipeline.FilterNonDefect = false
	}
	// Flag overrides go through the same checks as the config file, so
	// an out-of-range -threshold or unknown -mode cannot slip in.
	if err := config.Validate(cfg); err != nil {
		zapLog.Fatal("invalid flag override", zap.Error(err))
	}

	obs := observability.New("wo-analyzer")
	defer obs.Shutdown()

	if cfg.Metrics.Enabled {
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cfg.Metrics.Address, nil); err != nil {
				zapLog.Warn("metrics server stopped", zap.Error(err))
			}
		}()
	}

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 5, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	refRegistry := registry.NewPostgresRegistry(pg.DB, log)
	if err := refRegistry.EnsureSchema(ctx); err != nil {
		zapLog.Fatal("registry schema failed", zap.Error(err))
	}

	// --- Init matcher for the configured mode ---
	var matcher catalog.Matcher
	switch cfg.Pipeline.Mode {
	case "rag":
		store, err := ragstore.Open(cfg.RAG.DBPath, cfg.RAG.Embeddings.Dimension, log)
		if err != nil {
			zapLog.Fatal("rag store failed", zap.Error(err))
		}
		defer store.Close()

		embedder := embeddings.NewClient(embeddings.Config{
			BaseURL:   cfg.RAG.Embeddings.BaseURL,
			APIKey:    cfg.RAG.Embeddings.APIKey,
			Model:     cfg.RAG.Embeddings.Model,
			Dimension: cfg.RAG.Embeddings.Dimension,
			Timeout:   time.Duration(cfg.RAG.Embeddings.Timeout) * time.Millisecond,
			BatchSize: cfg.RAG.Embeddings.BatchSize,
		}, log)
		matcher = ragstore.NewMatcher(store, embedder, ragstore.MatcherConfig{
			MinScore: cfg.Catalog.MinScore,
			TopK:     cfg.Catalog.TopK,
		}, log)
		zapLog.Info("RAG matcher initialized", zap.String("db", cfg.RAG.DBPath))

	default:
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping()
		}, 5, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		zapLog.Info("Elasticsearch connected successfully")

		matcher = catalog.NewESMatcher(esClient.Client, catalog.ESMatcherConfig{
			Index:    cfg.Catalog.Index,
			MinScore: cfg.Catalog.MinScore,
			TopK:     cfg.Catalog.TopK,
		}, log)
	}

	// --- Init Redis with retry ---
	var cache pipeline.Cache
	var redisClient *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redisClient, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redisClient.Ping(ctx)
	}, 5, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Warn("redis unavailable, falling back to in-process cache", zap.Error(err))
		cache = pipeline.NewMapCache()
	} else {
		defer redisClient.Close()
		zapLog.Info("Redis connected successfully")
		cache = pipeline.NewRedisCache(redisClient.Client,
			time.Duration(cfg.Pipeline.CacheTTLSeconds)*time.Second)
	}

	processor := pipeline.NewProcessor(
		gate.NewFilter(),
		citation.NewExtractor(),
		matcher,
		refRegistry,
		decision.NewEngine(cfg.Pipeline.ConfidenceThreshold),
		cache,
		pipeline.Options{
			FilterNonDefect: cfg.Pipeline.FilterNonDefect,
			RowTimeout:      time.Duration(cfg.Pipeline.RowTimeout) * time.Millisecond,
		},
		log,
	)

	// --- Read input ---
	in, err := os.Open(*inputPath)
	if err != nil {
		zapLog.Fatal("opening input failed", zap.Error(err))
	}
	defer in.Close()

	reader, err := ingest.NewReader(in)
	if err != nil {
		zapLog.Fatal("reading input header failed", zap.Error(err))
	}

	orders, rejected, err := reader.ReadAll()
	if err != nil {
		zapLog.Fatal("reading input failed", zap.Error(err))
	}
	zapLog.Info("input loaded",
		zap.Int("rows", len(orders)),
		zap.Int("rejected", len(rejected)),
	)

	// --- Process ---
	results, summary, err := processor.ProcessBatch(ctx, orders)
	if err != nil {
		zapLog.Fatal("batch aborted", zap.Error(err))
	}
	// Rejected input rows still appear in the output as review verdicts.
	results = append(results, rejected...)
	for _, result := range results {
		obs.RecordRowProcessed(ctx, string(result.Decision.Verdict))
		obs.RecordRowDuration(ctx, result.Elapsed, string(result.Decision.Verdict))
	}

	// --- Write output ---
	out, err := os.Create(*outputPath)
	if err != nil {
		zapLog.Fatal("creating output failed", zap.Error(err))
	}
	defer out.Close()

	writer, err := ingest.NewWriter(out)
	if err != nil {
		zapLog.Fatal("writing output header failed", zap.Error(err))
	}
	for _, result := range results {
		if err := writer.Write(result); err != nil {
			zapLog.Fatal("writing result failed", zap.Error(err))
		}
	}
	if err := writer.Flush(); err != nil {
		zapLog.Fatal("flushing output failed", zap.Error(err))
	}

	zapLog.Info("analysis complete",
		zap.String("runID", summary.RunID),
		zap.Int("rows", summary.Total),
		zap.Int("failed", summary.Failed),
		zap.Int("cacheHits", summary.CacheHits),
		zap.String("output", *outputPath),
		zap.Duration("elapsed", summary.Elapsed),
	)
	for verdict, count := range summary.ByVerdict {
		zapLog.Info("verdict count", zap.String("verdict", verdict), zap.Int("count", count))
	}
}
