package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/docsift/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, VectorChromem, cfg.VectorBackend)
	assert.Equal(t, 30, cfg.SplitLimit)
	assert.Equal(t, 500, cfg.Chunking.MaxTokens)
	assert.Equal(t, 1024, cfg.Chunking.PageMaxTokens)
	assert.Equal(t, 5, cfg.Batch.Size)
	assert.Equal(t, 2, cfg.Batch.Concurrency)
	assert.Equal(t, 10, cfg.Batch.PageBatch)
	assert.Equal(t, 3, cfg.Batch.Attempts)
	assert.Equal(t, time.Second, cfg.Batch.RetryDelay)
	assert.Equal(t, 60, cfg.Images.Quality)
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docsift.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage_path: /var/lib/docsift
namespace: legal
batch:
  size: 8
  retry_delay: 250ms
ai:
  embedding_model: text-embedding-3-small
`), 0o644))

	t.Setenv("DOCSIFT_NAMESPACE", "finance")
	t.Setenv("DOCSIFT_BATCH_CONCURRENCY", "6")

	cfg, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/docsift", cfg.StoragePath)
	assert.Equal(t, "finance", cfg.Namespace)
	assert.Equal(t, 8, cfg.Batch.Size)
	assert.Equal(t, 6, cfg.Batch.Concurrency)
	assert.Equal(t, 250*time.Millisecond, cfg.Batch.RetryDelay)
	assert.Equal(t, "text-embedding-3-small", cfg.AI.EmbeddingModel)
	// untouched fields keep their defaults
	assert.Equal(t, 10, cfg.Batch.PageBatch)
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("DOCSIFT_VECTOR_BACKEND=pgvector\nDOCSIFT_POSTGRES_DSN=postgres://localhost/docsift\n"), 0o644))

	// godotenv never overrides variables that are already set
	t.Setenv("DOCSIFT_VECTOR_BACKEND", "")
	os.Unsetenv("DOCSIFT_VECTOR_BACKEND")
	t.Setenv("DOCSIFT_POSTGRES_DSN", "")
	os.Unsetenv("DOCSIFT_POSTGRES_DSN")

	cfg, err := Load("", envFile)
	require.NoError(t, err)
	assert.Equal(t, VectorPgvector, cfg.VectorBackend)
	assert.Equal(t, "postgres://localhost/docsift", cfg.PostgresDSN)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingEnvFileTolerated(t *testing.T) {
	_, err := Load("", filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), "")
	assert.Error(t, err)

	t.Setenv("DOCSIFT_BATCH_SIZE", "many")
	_, err = Load("", "")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.VectorBackend = "faiss" }},
		{"pgvector without dsn", func(c *Config) { c.VectorBackend = VectorPgvector }},
		{"empty namespace", func(c *Config) { c.Namespace = "" }},
		{"zero batch", func(c *Config) { c.Batch.Size = 0 }},
		{"zero attempts", func(c *Config) { c.Batch.Attempts = 0 }},
		{"overlap too large", func(c *Config) { c.Chunking.ReSplitOverlap = c.Chunking.ReSplitTokens }},
		{"quality out of range", func(c *Config) { c.Images.Quality = 101 }},
		{"missing storage", func(c *Config) { c.StoragePath = "" }},
		{"bad embedding mode", func(c *Config) { c.AI.EmbeddingMode = "stream" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}

	t.Run("in memory needs no path", func(t *testing.T) {
		cfg := Default()
		cfg.StoragePath = ""
		cfg.InMemory = true
		assert.NoError(t, cfg.Validate())
	})
}

func TestProviderConfig(t *testing.T) {
	cfg := Default()
	cfg.AI.EmbeddingMode = string(ai.EmbeddingModeFanOut)
	cfg.AI.EmbeddingDimensions = 256

	pc := cfg.ProviderConfig()
	assert.Equal(t, ai.EmbeddingModeFanOut, pc.EmbeddingMode)
	assert.Equal(t, 256, pc.EmbeddingDimensions)
	assert.Equal(t, cfg.AI.ChatModel, pc.ChatModel)
}
