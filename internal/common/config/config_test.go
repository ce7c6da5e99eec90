package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createValidConfig() *Config {
	cfg := &Config{}
	cfg.Pipeline.Mode = "catalog"
	cfg.Pipeline.ConfidenceThreshold = 0.75
	cfg.Database.Postgres.Host = "localhost"
	cfg.Database.Postgres.Database = "ata"
	cfg.Database.Postgres.User = "ata"
	cfg.Database.Elasticsearch.Addresses = []string{"http://localhost:9200"}
	cfg.Database.Redis.Address = "localhost:6379"
	return cfg
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(createValidConfig()))
}

func TestValidate_ThresholdOutOfRange(t *testing.T) {
	cfg := createValidConfig()
	cfg.Pipeline.ConfidenceThreshold = 0.3

	err := Validate(cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "confidence_threshold")
}

func TestValidate_UnknownMode(t *testing.T) {
	cfg := createValidConfig()
	cfg.Pipeline.Mode = "hybrid"

	err := Validate(cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline.mode")
}
