package enrichment

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/docsift/ai"
	"github.com/poiesic/docsift/batch"
	"github.com/poiesic/docsift/core"
	"golang.org/x/sync/errgroup"
)

// Enricher replaces image placeholders in page text with model-generated
// descriptions. Image recompression runs on a worker pool.
type Enricher struct {
	describer     ai.ImageDescriber
	pool          *ants.Pool
	compress      CompressOptions
	contextWindow int
	concurrency   int
	attempts      int
	retryStep     time.Duration
	logger        *slog.Logger
}

// Option configures an Enricher.
type Option func(*Enricher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Enricher) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger.With("component", "enricher")
		return nil
	}
}

// WithPoolSize sets the number of recompression workers. Default is 2.
func WithPoolSize(size int) Option {
	return func(e *Enricher) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if e.pool != nil {
			e.pool.Release()
		}
		e.pool = pool
		return nil
	}
}

// WithCompression overrides the recompression limits.
func WithCompression(opts CompressOptions) Option {
	return func(e *Enricher) error {
		e.compress = opts
		return nil
	}
}

// WithContextWindow sets how many characters around an image form its hint.
func WithContextWindow(chars int) Option {
	return func(e *Enricher) error {
		if chars < 0 {
			chars = 0
		}
		e.contextWindow = chars
		return nil
	}
}

// WithConcurrency bounds how many images are described at once. Default is 5.
func WithConcurrency(n int) Option {
	return func(e *Enricher) error {
		if n < 1 {
			n = 1
		}
		e.concurrency = n
		return nil
	}
}

// WithRetry sets the attempt ceiling and linear backoff step for model calls.
// Default is 3 attempts stepping by one second.
func WithRetry(attempts int, step time.Duration) Option {
	return func(e *Enricher) error {
		if attempts < 1 {
			return batch.ErrInvalidMaxAttempts
		}
		e.attempts = attempts
		e.retryStep = step
		return nil
	}
}

// NewEnricher creates an Enricher backed by describer.
func NewEnricher(describer ai.ImageDescriber, opts ...Option) (*Enricher, error) {
	if describer == nil {
		return nil, ErrDescriberRequired
	}
	pool, err := ants.NewPool(2)
	if err != nil {
		return nil, err
	}
	e := &Enricher{
		describer:     describer,
		pool:          pool,
		compress:      DefaultCompressOptions(),
		contextWindow: DefaultContextWindow,
		concurrency:   5,
		attempts:      3,
		retryStep:     time.Second,
		logger:        slog.Default().With("component", "enricher"),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			e.Release()
			return nil, err
		}
	}
	return e, nil
}

// Release stops the recompression workers.
func (e *Enricher) Release() {
	if e.pool != nil {
		e.pool.Release()
	}
}

// Report counts the outcome of one Enrich call.
type Report struct {
	Described int
	Failed    int
}

// CompressImages shrinks oversized data URI images in place. An image that
// cannot be recompressed keeps its original URL.
func (e *Enricher) CompressImages(images []core.ImageRecord) {
	var wg sync.WaitGroup
	for i := range images {
		if !IsDataURI(images[i].ImageURL) {
			continue
		}
		wg.Add(1)
		task := func() {
			defer wg.Done()
			out, err := CompressDataURI(images[i].ImageURL, e.compress)
			if err != nil {
				e.logger.Warn("image recompression failed", "image", images[i].Name, "err", err)
				return
			}
			images[i].ImageURL = out
		}
		if err := e.pool.Submit(task); err != nil {
			e.logger.Warn("recompression pool rejected task, running inline", "err", err)
			task()
		}
	}
	wg.Wait()
}

// Enrich describes every image and splices the result into the page text
// that references it. A failed image is logged and counted, and leaves its
// placeholder untouched. texts and images are updated in place.
func (e *Enricher) Enrich(ctx context.Context, texts []core.TextContent, images []core.ImageRecord) Report {
	if len(images) == 0 {
		return Report{}
	}
	e.CompressImages(images)

	owners := make(map[string]int, len(images))
	for ti, text := range texts {
		for _, id := range text.ImageIDs {
			if _, seen := owners[id]; !seen {
				owners[id] = ti
			}
		}
	}

	results := make([]*core.ImageAnalysis, len(images))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i := range images {
		var hint string
		if ti, ok := owners[images[i].ID]; ok {
			if c, found := FindImageContext(texts[ti].Markdown, images[i].Name, e.contextWindow); found {
				hint = c.Hint()
			}
		}
		g.Go(func() error {
			results[i] = e.describe(gctx, images[i], hint)
			return nil
		})
	}
	_ = g.Wait()

	var report Report
	for i, analysis := range results {
		if analysis == nil || analysis.ImageSummary == "" {
			report.Failed++
			continue
		}
		images[i].Summary = analysis.ImageSummary
		images[i].StructuredOutput = analysis
		report.Described++

		ti, ok := owners[images[i].ID]
		if !ok {
			continue
		}
		placeholder := ImagePlaceholder(images[i].Name)
		texts[ti].Markdown = strings.ReplaceAll(texts[ti].Markdown, placeholder, Synopsis(images[i].Name, analysis))
	}

	e.logger.Debug("enriched images", "described", report.Described, "failed", report.Failed)
	return report
}

func (e *Enricher) describe(ctx context.Context, img core.ImageRecord, hint string) *core.ImageAnalysis {
	var analysis *core.ImageAnalysis
	err := batch.RetryLinear(ctx, func() error {
		var err error
		analysis, err = e.describer.DescribeImage(ctx, img.ImageURL, hint)
		return err
	}, e.attempts, e.retryStep)
	if err != nil {
		e.logger.Warn("image analysis failed", "image", img.Name, "page", img.PageNumber, "err", err)
		return nil
	}
	return analysis
}
