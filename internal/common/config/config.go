// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Database DatabaseConfig `mapstructure:"database"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	RAG      RAGConfig      `mapstructure:"rag"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	SSLEnabled bool     `mapstructure:"ssl_enabled"`
	URL        string   `mapstructure:"url"` // Single URL for backwards compatibility
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// PipelineConfig holds the reconciliation pipeline settings.
type PipelineConfig struct {
	Mode                string  `mapstructure:"mode"`                 // "catalog" or "rag"
	FilterNonDefect     bool    `mapstructure:"filter_non_defect"`    // short-circuit routine work orders
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"` // [0.5, 1.0]
	CacheTTLSeconds     int     `mapstructure:"cache_ttl_seconds"`
	RowTimeout          int     `mapstructure:"row_timeout"` // milliseconds
}

// CatalogConfig holds settings for the Elasticsearch catalog matcher.
type CatalogConfig struct {
	Index    string  `mapstructure:"index"`
	MinScore float64 `mapstructure:"min_score"`
	TopK     int     `mapstructure:"top_k"`
	Timeout  int     `mapstructure:"timeout"` // milliseconds
}

// RAGConfig holds settings for the sqlite-vec store and the embedding API.
type RAGConfig struct {
	DBPath string `mapstructure:"db_path"`

	Embeddings struct {
		BaseURL   string `mapstructure:"base_url"`
		APIKey    string `mapstructure:"api_key"`
		Model     string `mapstructure:"model"`
		Dimension int    `mapstructure:"dimension"`
		Timeout   int    `mapstructure:"timeout"` // milliseconds
		BatchSize int    `mapstructure:"batch_size"`
	} `mapstructure:"embeddings"`
}

// MetricsConfig holds the Prometheus endpoint settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
