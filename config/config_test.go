package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, ":8000", cfg.ListenAddr)
	assert.Equal(t, 10, cfg.MaxUploadMB)
	assert.Equal(t, 500, cfg.Retrieval.ChunkSize)
	assert.Equal(t, 100, cfg.Retrieval.ChunkOverlap)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.Equal(t, 0.6, cfg.Retrieval.RelevanceThreshold)
	assert.Equal(t, ProviderOpenAI, cfg.Embeddings.Provider)
	assert.Equal(t, 1536, cfg.Embeddings.Dimension)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9090")
	t.Setenv("CHUNK_SIZE", "800")
	t.Setenv("RELEVANCE_THRESHOLD", "0.45")
	t.Setenv("LLM_PROVIDER", ProviderOllama)

	cfg := Load()

	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, 800, cfg.Retrieval.ChunkSize)
	assert.Equal(t, 0.45, cfg.Retrieval.RelevanceThreshold)
	assert.Equal(t, ProviderOllama, cfg.LLM.Provider)
}

func TestGetEnvIntIgnoresGarbage(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "not-a-number")

	cfg := Load()
	assert.Equal(t, 500, cfg.Retrieval.ChunkSize)
}

func TestGetEnvEmptyValueFallsBack(t *testing.T) {
	t.Setenv("LISTEN_ADDR", "")

	cfg := Load()
	assert.Equal(t, ":8000", cfg.ListenAddr)
}
