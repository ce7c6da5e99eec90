// cmd/tools/catalog-builder/main.go
//
// Loads the ATA catalog artifact and indexes it into Elasticsearch for
// the lexical matcher.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/techvna-coder/ata-wo-analyzer/internal/common/config"
	"github.com/techvna-coder/ata-wo-analyzer/internal/common/database"
	"github.com/techvna-coder/ata-wo-analyzer/pkg/catalogfile"
)

const indexMapping = `{
  "mappings": {
    "properties": {
      "ata04":               {"type": "keyword"},
      "system_name":         {"type": "text"},
      "keywords":            {"type": "text"},
      "sample_descriptions": {"type": "text"},
      "warnings":            {"type": "text"}
    }
  }
}`

func main() {
	catalogPath := flag.String("catalog", "reference_db/ata_catalog.json", "Path to catalog JSON artifact")
	indexName := flag.String("index", "", "Target index name (overrides config)")
	recreate := flag.Bool("recreate", false, "Drop and recreate the index before loading")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	file, err := catalogfile.Load(*catalogPath)
	if err != nil {
		fmt.Printf("Error loading catalog: %v\n", err)
		os.Exit(1)
	}
	if err := file.Validate(); err != nil {
		fmt.Printf("Invalid catalog: %v\n", err)
		os.Exit(1)
	}

	es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
	if err != nil {
		fmt.Printf("Error connecting to Elasticsearch: %v\n", err)
		os.Exit(1)
	}
	if err := es.Ping(); err != nil {
		fmt.Printf("Elasticsearch unreachable: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	index := cfg.Catalog.Index
	if *indexName != "" {
		index = *indexName
	}

	if *recreate {
		res, err := esapi.IndicesDeleteRequest{
			Index:             []string{index},
			IgnoreUnavailable: esapi.BoolPtr(true),
		}.Do(ctx, es.Client)
		if err != nil {
			fmt.Printf("Error deleting index: %v\n", err)
			os.Exit(1)
		}
		res.Body.Close()
	}

	createRes, err := esapi.IndicesCreateRequest{
		Index: index,
		Body:  strings.NewReader(indexMapping),
	}.Do(ctx, es.Client)
	if err != nil {
		fmt.Printf("Error creating index: %v\n", err)
		os.Exit(1)
	}
	// 400 means the index already exists, which is fine without -recreate.
	if createRes.IsError() && createRes.StatusCode != 400 {
		fmt.Printf("Error creating index: %s\n", createRes.Status())
		os.Exit(1)
	}
	createRes.Body.Close()

	indexed := 0
	for _, entry := range file.Systems {
		body, err := json.Marshal(entry)
		if err != nil {
			fmt.Printf("Error encoding entry %s: %v\n", entry.ATA04, err)
			os.Exit(1)
		}
		res, err := esapi.IndexRequest{
			Index:      index,
			DocumentID: entry.ATA04,
			Body:       strings.NewReader(string(body)),
		}.Do(ctx, es.Client)
		if err != nil {
			fmt.Printf("Error indexing entry %s: %v\n", entry.ATA04, err)
			os.Exit(1)
		}
		if res.IsError() {
			fmt.Printf("Error indexing entry %s: %s\n", entry.ATA04, res.Status())
			res.Body.Close()
			os.Exit(1)
		}
		res.Body.Close()
		indexed++
	}

	fmt.Printf("Indexed %d catalog entries into %s\n", indexed, index)
}
