// Package config loads the engine configuration from an optional YAML file,
// a .env file and DOCSIFT_* environment variables, in that order of
// precedence from lowest to highest.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/poiesic/docsift/ai"
	"gopkg.in/yaml.v3"
)

// Vector backends.
const (
	VectorChromem  = "chromem"
	VectorPgvector = "pgvector"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "DOCSIFT_"

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// AIConfig mirrors ai.Config in file form.
type AIConfig struct {
	EmbeddingHost       string `yaml:"embedding_host"`
	ChatHost            string `yaml:"chat_host"`
	APIKey              string `yaml:"api_key"`
	EmbeddingModel      string `yaml:"embedding_model"`
	EmbeddingDimensions int    `yaml:"embedding_dimensions"`
	EmbeddingMode       string `yaml:"embedding_mode"`
	FanOutConcurrency   int    `yaml:"fanout_concurrency"`
	ChatModel           string `yaml:"chat_model"`
}

// ChunkingConfig holds the token budgets of both chunkers.
type ChunkingConfig struct {
	MaxTokens      int    `yaml:"max_tokens"`
	PageMaxTokens  int    `yaml:"page_max_tokens"`
	ModelMaxTokens int    `yaml:"model_max_tokens"`
	ReSplitTokens  int    `yaml:"resplit_tokens"`
	ReSplitOverlap int    `yaml:"resplit_overlap"`
	Encoding       string `yaml:"encoding"`
}

// BatchConfig sizes the coordinator and the workflows.
type BatchConfig struct {
	Size         int           `yaml:"size"`
	Concurrency  int           `yaml:"concurrency"`
	PageBatch    int           `yaml:"page_batch"`
	QAGroup      int           `yaml:"qa_group"`
	Attempts     int           `yaml:"attempts"`
	RetryDelay   time.Duration `yaml:"retry_delay"`
	UploadBatch  int           `yaml:"upload_batch"`
	FlushEvery   time.Duration `yaml:"flush_every"`
	DescribePool int           `yaml:"describe_pool"`
}

// ImageConfig controls recompression before images are described.
type ImageConfig struct {
	ThresholdBytes int `yaml:"threshold_bytes"`
	Quality        int `yaml:"quality"`
}

// Config is the whole engine configuration.
type Config struct {
	StoragePath   string         `yaml:"storage_path"`
	InMemory      bool           `yaml:"in_memory"`
	VectorBackend string         `yaml:"vector_backend"`
	VectorPath    string         `yaml:"vector_path"`
	PostgresDSN   string         `yaml:"postgres_dsn"`
	Namespace     string         `yaml:"namespace"`
	SplitLimit    int            `yaml:"split_limit"`
	AI            AIConfig       `yaml:"ai"`
	Chunking      ChunkingConfig `yaml:"chunking"`
	Batch         BatchConfig    `yaml:"batch"`
	Images        ImageConfig    `yaml:"images"`
}

// Default returns the built-in configuration.
func Default() *Config {
	def := ai.DefaultConfig()
	return &Config{
		StoragePath:   "docsift-data",
		VectorBackend: VectorChromem,
		VectorPath:    "docsift-vectors",
		Namespace:     "documents",
		SplitLimit:    30,
		AI: AIConfig{
			EmbeddingHost:     def.EmbeddingHost,
			ChatHost:          def.ChatHost,
			APIKey:            def.APIKey,
			EmbeddingModel:    def.EmbeddingModel,
			EmbeddingMode:     string(def.EmbeddingMode),
			FanOutConcurrency: def.FanOutConcurrency,
			ChatModel:         def.ChatModel,
		},
		Chunking: ChunkingConfig{
			MaxTokens:      500,
			PageMaxTokens:  1024,
			ModelMaxTokens: 8192,
			ReSplitTokens:  2000,
			ReSplitOverlap: 100,
			Encoding:       "cl100k_base",
		},
		Batch: BatchConfig{
			Size:         5,
			Concurrency:  2,
			PageBatch:    10,
			QAGroup:      10,
			Attempts:     3,
			RetryDelay:   time.Second,
			UploadBatch:  10,
			FlushEvery:   2 * time.Second,
			DescribePool: 4,
		},
		Images: ImageConfig{
			ThresholdBytes: int(0.9 * 1024 * 1024),
			Quality:        60,
		},
	}
}

// Load builds a Config from defaults, then the YAML file at path (skipped
// when path is empty), then envFile (a missing file is tolerated), then the
// process environment.
func Load(path, envFile string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	strs := map[string]*string{
		"STORAGE_PATH":       &c.StoragePath,
		"VECTOR_BACKEND":     &c.VectorBackend,
		"VECTOR_PATH":        &c.VectorPath,
		"POSTGRES_DSN":       &c.PostgresDSN,
		"NAMESPACE":          &c.Namespace,
		"AI_EMBEDDING_HOST":  &c.AI.EmbeddingHost,
		"AI_CHAT_HOST":       &c.AI.ChatHost,
		"AI_API_KEY":         &c.AI.APIKey,
		"AI_EMBEDDING_MODEL": &c.AI.EmbeddingModel,
		"AI_EMBEDDING_MODE":  &c.AI.EmbeddingMode,
		"AI_CHAT_MODEL":      &c.AI.ChatModel,
		"CHUNKING_ENCODING":  &c.Chunking.Encoding,
	}
	for key, dst := range strs {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"SPLIT_LIMIT":              &c.SplitLimit,
		"AI_EMBEDDING_DIMENSIONS":  &c.AI.EmbeddingDimensions,
		"AI_FANOUT_CONCURRENCY":    &c.AI.FanOutConcurrency,
		"CHUNKING_MAX_TOKENS":      &c.Chunking.MaxTokens,
		"CHUNKING_PAGE_MAX_TOKENS": &c.Chunking.PageMaxTokens,
		"BATCH_SIZE":               &c.Batch.Size,
		"BATCH_CONCURRENCY":        &c.Batch.Concurrency,
		"BATCH_PAGE_BATCH":         &c.Batch.PageBatch,
		"BATCH_ATTEMPTS":           &c.Batch.Attempts,
		"BATCH_UPLOAD_BATCH":       &c.Batch.UploadBatch,
	}
	for key, dst := range ints {
		v, ok := lookup(EnvPrefix + key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s%s=%q is not an integer", ErrInvalidConfig, EnvPrefix, key, v)
		}
		*dst = n
	}

	if v, ok := lookup(EnvPrefix + "IN_MEMORY"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %sIN_MEMORY=%q is not a boolean", ErrInvalidConfig, EnvPrefix, v)
		}
		c.InMemory = b
	}
	if v, ok := lookup(EnvPrefix + "BATCH_RETRY_DELAY"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %sBATCH_RETRY_DELAY=%q: %v", ErrInvalidConfig, EnvPrefix, v, err)
		}
		c.Batch.RetryDelay = d
	}
	return nil
}

// Validate checks ranges and cross-field requirements.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
		}
	}

	check(c.InMemory || c.StoragePath != "", "storage_path is required unless in_memory is set")
	check(c.Namespace != "", "namespace is required")
	switch c.VectorBackend {
	case VectorChromem:
	case VectorPgvector:
		check(c.PostgresDSN != "", "postgres_dsn is required for the pgvector backend")
	default:
		check(false, "unknown vector_backend %q", c.VectorBackend)
	}
	check(c.SplitLimit >= 1, "split_limit must be >= 1")
	check(c.Chunking.MaxTokens >= 1, "chunking.max_tokens must be >= 1")
	check(c.Chunking.PageMaxTokens >= 1, "chunking.page_max_tokens must be >= 1")
	check(c.Chunking.ModelMaxTokens >= c.Chunking.MaxTokens, "chunking.model_max_tokens must be >= max_tokens")
	check(c.Chunking.ReSplitOverlap < c.Chunking.ReSplitTokens, "chunking.resplit_overlap must be < resplit_tokens")
	check(c.Batch.Size >= 1, "batch.size must be >= 1")
	check(c.Batch.Concurrency >= 1, "batch.concurrency must be >= 1")
	check(c.Batch.PageBatch >= 1, "batch.page_batch must be >= 1")
	check(c.Batch.QAGroup >= 1, "batch.qa_group must be >= 1")
	check(c.Batch.Attempts >= 1, "batch.attempts must be >= 1")
	check(c.Batch.RetryDelay >= 0, "batch.retry_delay must not be negative")
	check(c.Batch.UploadBatch >= 1, "batch.upload_batch must be >= 1")
	check(c.Images.Quality >= 1 && c.Images.Quality <= 100, "images.quality must be in 1..100")
	check(c.Images.ThresholdBytes >= 1, "images.threshold_bytes must be >= 1")

	if err := c.ProviderConfig().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalidConfig, err))
	}
	return errors.Join(errs...)
}

// ProviderConfig converts the file form into an ai.Config.
func (c *Config) ProviderConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithEmbeddingHost(c.AI.EmbeddingHost),
		ai.WithChatHost(c.AI.ChatHost),
		ai.WithAPIKey(c.AI.APIKey),
		ai.WithEmbeddingModel(c.AI.EmbeddingModel),
		ai.WithEmbeddingDimensions(c.AI.EmbeddingDimensions),
		ai.WithEmbeddingMode(ai.EmbeddingMode(c.AI.EmbeddingMode)),
		ai.WithFanOutConcurrency(c.AI.FanOutConcurrency),
		ai.WithChatModel(c.AI.ChatModel),
	)
}
