package chunking

import (
	"fmt"
	"log/slog"
)

// Metadata keys set on produced chunks besides the HeaderKey entries.
const (
	MetaHasImage  = "has_image"
	MetaHasTable  = "has_table"
	MetaOversized = "oversized"
)

// Budget defaults.
const (
	DefaultHeaderMaxTokens = 500
	DefaultPageMaxTokens   = 1024
	DefaultModelMaxTokens  = 8192
	DefaultReSplitTokens   = 2000
	DefaultReSplitOverlap  = 100
)

type settings struct {
	maxTokens      int
	modelMaxTokens int
	reSplitTokens  int
	reSplitOverlap int
	tagImages      bool
	tagTables      bool
	logger         *slog.Logger
}

func (s *settings) validate() error {
	if s.maxTokens < 1 {
		return fmt.Errorf("%w: max tokens %d", ErrInvalidBudget, s.maxTokens)
	}
	if s.reSplitTokens < 1 || s.reSplitTokens > s.modelMaxTokens {
		return fmt.Errorf("%w: re-split size %d outside 1..%d", ErrInvalidBudget, s.reSplitTokens, s.modelMaxTokens)
	}
	if s.reSplitOverlap < 0 || s.reSplitOverlap >= s.reSplitTokens {
		return fmt.Errorf("%w: re-split overlap %d", ErrInvalidBudget, s.reSplitOverlap)
	}
	return nil
}

// Option configures a chunker.
type Option func(*settings) error

// WithMaxTokens sets the per-chunk token budget.
func WithMaxTokens(n int) Option {
	return func(s *settings) error {
		s.maxTokens = n
		return nil
	}
}

// WithModelMaxTokens sets the embedding model's hard input limit.
// Re-split pieces never exceed it. Default is 8192.
func WithModelMaxTokens(n int) Option {
	return func(s *settings) error {
		s.modelMaxTokens = n
		return nil
	}
}

// WithReSplit sets the size and overlap, in tokens, used to cut sections
// that do not fit the budget on their own. Default is 2000 with 100 overlap.
func WithReSplit(size, overlap int) Option {
	return func(s *settings) error {
		s.reSplitTokens = size
		s.reSplitOverlap = overlap
		return nil
	}
}

// WithContentTags records has_image and has_table on each chunk.
func WithContentTags(images, tables bool) Option {
	return func(s *settings) error {
		s.tagImages = images
		s.tagTables = tables
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
		s.logger = logger.With("component", "chunker")
		return nil
	}
}

func newSettings(maxTokens int, opts []Option) (*settings, error) {
	s := &settings{
		maxTokens:      maxTokens,
		modelMaxTokens: DefaultModelMaxTokens,
		reSplitTokens:  DefaultReSplitTokens,
		reSplitOverlap: DefaultReSplitOverlap,
		logger:         slog.Default().With("component", "chunker"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}
