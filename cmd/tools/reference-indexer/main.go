// cmd/tools/reference-indexer/main.go
//
// Walks a directory of maintenance manual files (SGML / S1000D),
// loads the task references into the Postgres registry and, with
// -rag, embeds the task text into the vector store.
package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/techvna-coder/ata-wo-analyzer/internal/common/config"
	"github.com/techvna-coder/ata-wo-analyzer/internal/common/database"
	"github.com/techvna-coder/ata-wo-analyzer/internal/common/logger"
	"github.com/techvna-coder/ata-wo-analyzer/internal/embeddings"
	"github.com/techvna-coder/ata-wo-analyzer/internal/ragstore"
	"github.com/techvna-coder/ata-wo-analyzer/internal/registry"
	"github.com/techvna-coder/ata-wo-analyzer/internal/sgml"
)

var manualExtensions = map[string]bool{
	".sgm":  true,
	".sgml": true,
	".xml":  true,
}

// manualTypeForFile infers the manual type from the filename prefix
// (tsm_2126.sgm, fim_3247.xml, ...).
func manualTypeForFile(path, fallback string) string {
	base := strings.ToLower(filepath.Base(path))
	for _, t := range []string{"tsm", "fim", "amm"} {
		if strings.HasPrefix(base, t) {
			return strings.ToUpper(t)
		}
	}
	return fallback
}

func main() {
	manualsDir := flag.String("manuals", "", "Directory of manual files (required)")
	defaultType := flag.String("type", "TSM", "Manual type when not inferable from filename")
	clear := flag.Bool("clear", false, "Clear the registry before indexing")
	buildRAG := flag.Bool("rag", false, "Also embed task text into the vector store")
	flag.Parse()

	if *manualsDir == "" {
		fmt.Println("Error: -manuals is required.")
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, "console")
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	ctx := context.Background()

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		fmt.Printf("Error connecting to PostgreSQL: %v\n", err)
		os.Exit(1)
	}
	defer pg.Close()

	reg := registry.NewPostgresRegistry(pg.DB, log)
	if err := reg.EnsureSchema(ctx); err != nil {
		fmt.Printf("Error creating schema: %v\n", err)
		os.Exit(1)
	}
	if *clear {
		if err := reg.Clear(ctx); err != nil {
			fmt.Printf("Error clearing registry: %v\n", err)
			os.Exit(1)
		}
	}

	var (
		store    *ragstore.Store
		embedder *embeddings.Client
	)
	if *buildRAG {
		store, err = ragstore.Open(cfg.RAG.DBPath, cfg.RAG.Embeddings.Dimension, log)
		if err != nil {
			fmt.Printf("Error opening vector store: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()

		embedder = embeddings.NewClient(embeddings.Config{
			BaseURL:   cfg.RAG.Embeddings.BaseURL,
			APIKey:    cfg.RAG.Embeddings.APIKey,
			Model:     cfg.RAG.Embeddings.Model,
			Dimension: cfg.RAG.Embeddings.Dimension,
			Timeout:   time.Duration(cfg.RAG.Embeddings.Timeout) * time.Millisecond,
			BatchSize: cfg.RAG.Embeddings.BatchSize,
		}, log)
	}

	var (
		files      int
		tasksTotal int
		chunks     int
	)

	err = filepath.WalkDir(*manualsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !manualExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		parser := sgml.NewParser(manualTypeForFile(path, *defaultType))
		doc, err := parser.Parse(f, path)
		if err != nil {
			// Unparseable files are reported and skipped, not fatal.
			fmt.Printf("Skipping %s: %v\n", path, err)
			return nil
		}
		files++

		refs := make([]registry.Reference, 0, len(doc.Tasks))
		for _, task := range doc.Tasks {
			refs = append(refs, registry.Reference{
				TaskNumber: task.TaskNumber,
				ManualType: task.ManualType,
				ATA04:      task.ATA04,
				Title:      task.Title,
				SourceFile: filepath.Base(path),
			})
		}
		added, err := reg.AddBatch(ctx, refs)
		if err != nil {
			return err
		}
		tasksTotal += added

		if store == nil || len(doc.Chunks) == 0 {
			return nil
		}

		texts := make([]string, len(doc.Chunks))
		for i, chunk := range doc.Chunks {
			texts[i] = chunk.Text
		}
		vectors, err := embedder.Embed(ctx, texts)
		if err != nil {
			return err
		}
		for i, chunk := range doc.Chunks {
			if err := store.Add(ctx, ragstore.Chunk{
				ATA04:      chunk.ATA04,
				TaskNumber: chunk.TaskNumber,
				ManualType: chunk.ManualType,
				Title:      chunk.Title,
				Text:       chunk.Text,
				SourceFile: filepath.Base(path),
			}, vectors[i]); err != nil {
				return err
			}
			chunks++
		}
		return nil
	})
	if err != nil {
		fmt.Printf("Error indexing manuals: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Indexed %d tasks from %d files", tasksTotal, files)
	if *buildRAG {
		fmt.Printf(", %d chunks embedded", chunks)
	}
	fmt.Println()

	stats, err := reg.Stats(ctx)
	if err == nil {
		for manualType, count := range stats {
			fmt.Printf("  %s: %d references\n", manualType, count)
		}
	}
}
