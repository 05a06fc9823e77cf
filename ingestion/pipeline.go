package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/docsift/batch"
	"github.com/poiesic/docsift/enrichment"
)

// Progress event names, one per workflow.
const (
	EventFilesProgress = "files_processing_progress"
	EventQAProgress    = "curated_qa_extraction_progress"
	EventWebProgress   = "web_page_processing_progress"
)

// Vector metadata keys written by the workflows.
const (
	MetaFileID    = "file_id"
	MetaFileName  = "file_name"
	MetaType      = "type"
	MetaUserID    = "user_id"
	MetaProjectID = "project_id"
	MetaDossierID = "dossier_id"
	MetaCreatedAt = "created_at"
)

const (
	// DefaultNamespace is the vector namespace used when none is configured.
	DefaultNamespace = "documents"

	// DefaultPageBatchSize is the number of pages extracted and enriched together.
	DefaultPageBatchSize = 10

	// DefaultQAGroupSize is the number of sections sent for Q&A extraction at once.
	DefaultQAGroupSize = 10

	// DefaultAttempts bounds retries of storage writes and model calls.
	DefaultAttempts = 3

	// DefaultRetryDelay is the first retry delay.
	DefaultRetryDelay = time.Second
)

// settings are shared by every workflow.
type settings struct {
	namespace  string
	pageBatch  int
	qaGroup    int
	attempts   int
	retryDelay time.Duration
	enricher   *enrichment.Enricher
	parser     *FileWorkflow
	logger     *slog.Logger
}

func defaultSettings(component string) settings {
	return settings{
		namespace:  DefaultNamespace,
		pageBatch:  DefaultPageBatchSize,
		qaGroup:    DefaultQAGroupSize,
		attempts:   DefaultAttempts,
		retryDelay: DefaultRetryDelay,
		logger:     slog.Default().With("component", component),
	}
}

// Option configures a workflow.
type Option func(*settings) error

// WithNamespace sets the vector namespace chunks are written to.
func WithNamespace(namespace string) Option {
	return func(s *settings) error {
		if namespace == "" {
			return fmt.Errorf("%w: namespace must not be empty", ErrInvalidOption)
		}
		s.namespace = namespace
		return nil
	}
}

// WithPageBatchSize sets how many pages are extracted and enriched together.
// Default is DefaultPageBatchSize.
func WithPageBatchSize(n int) Option {
	return func(s *settings) error {
		if n < 1 {
			return fmt.Errorf("%w: page batch size must be >= 1", ErrInvalidOption)
		}
		s.pageBatch = n
		return nil
	}
}

// WithQAGroupSize sets how many sections are sent for Q&A extraction at once.
// Default is DefaultQAGroupSize.
func WithQAGroupSize(n int) Option {
	return func(s *settings) error {
		if n < 1 {
			return fmt.Errorf("%w: Q&A group size must be >= 1", ErrInvalidOption)
		}
		s.qaGroup = n
		return nil
	}
}

// WithRetry sets the attempt ceiling and first delay for storage writes
// and model calls.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(s *settings) error {
		if attempts < 1 {
			return fmt.Errorf("%w: attempts must be >= 1", ErrInvalidOption)
		}
		s.attempts = attempts
		s.retryDelay = delay
		return nil
	}
}

// WithEnricher enables image description during file processing.
// Without it image placeholders are left in the text.
func WithEnricher(e *enrichment.Enricher) Option {
	return func(s *settings) error {
		s.enricher = e
		return nil
	}
}

// WithFileWorkflow lets Q&A extraction parse files that have not been
// processed yet.
func WithFileWorkflow(w *FileWorkflow) Option {
	return func(s *settings) error {
		s.parser = w
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

func (s *settings) apply(opts []Option) error {
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return err
		}
	}
	return nil
}

// store retries a storage write with exponential backoff.
func (s *settings) store(ctx context.Context, op func() error) error {
	return batch.RetryWithBackoff(ctx, op, s.attempts, s.retryDelay)
}

// call retries a model call with linear backoff.
func (s *settings) call(ctx context.Context, op func() error) error {
	return batch.RetryLinear(ctx, op, s.attempts, s.retryDelay)
}
