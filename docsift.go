// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package docsift wires the ingestion and retrieval components into one
// Engine built from a config.Config.
package docsift

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/docsift/ai"
	"github.com/poiesic/docsift/ai/openai"
	"github.com/poiesic/docsift/batch"
	"github.com/poiesic/docsift/chunking"
	"github.com/poiesic/docsift/config"
	"github.com/poiesic/docsift/core"
	"github.com/poiesic/docsift/enrichment"
	"github.com/poiesic/docsift/highlight"
	"github.com/poiesic/docsift/indexing"
	"github.com/poiesic/docsift/indexing/chromem"
	"github.com/poiesic/docsift/indexing/pgvector"
	"github.com/poiesic/docsift/ingestion"
	"github.com/poiesic/docsift/ocr"
	"github.com/poiesic/docsift/retrieval"
	"github.com/poiesic/docsift/scrape"
	"github.com/poiesic/docsift/storage/badger"
)

// Engine owns the stores, the AI provider and the workflows built on them.
type Engine struct {
	cfg          *config.Config
	store        *badger.Store
	index        indexing.VectorIndex
	closeIndex   func()
	provider     ai.AIProvider
	ownsProvider bool
	coordinator  *batch.Coordinator
	enricher     *enrichment.Enricher
	indexer      *indexing.Indexer
	retriever    *retrieval.Retriever
	resolver     *retrieval.Resolver
	highlighter  *highlight.Highlighter
	files        *ingestion.FileWorkflow
	qa           *ingestion.QAWorkflow
	web          *ingestion.WebWorkflow
	logger       *slog.Logger
}

// Option configures an Engine.
type Option func(*options)

type options struct {
	provider ai.AIProvider
	ocr      ocr.Service
	sink     batch.Sink
	scraper  ingestion.Scraper
	counter  chunking.TokenCounter
	logger   *slog.Logger
}

// WithProvider injects the AI provider. The engine does not close an
// injected provider.
func WithProvider(p ai.AIProvider) Option {
	return func(o *options) { o.provider = p }
}

// WithOCR sets the OCR service. Default is ocr.NewDirService().
func WithOCR(s ocr.Service) Option {
	return func(o *options) { o.ocr = s }
}

// WithSink sets where progress events go. Default logs them.
func WithSink(s batch.Sink) Option {
	return func(o *options) { o.sink = s }
}

// WithScraper replaces the HTTP scraper used by the web workflow.
func WithScraper(s ingestion.Scraper) Option {
	return func(o *options) { o.scraper = s }
}

// WithTokenCounter replaces the tiktoken counter named by the config.
func WithTokenCounter(c chunking.TokenCounter) Option {
	return func(o *options) { o.counter = c }
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// New builds an Engine. Everything opened before a failure is closed again.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	e := &Engine{
		cfg:    cfg,
		logger: o.logger.With("component", "engine"),
	}
	if err := e.build(ctx, o); err != nil {
		if cerr := e.Close(); cerr != nil {
			e.logger.Error("error releasing partially built engine", "err", cerr)
		}
		return nil, err
	}
	return e, nil
}

func (e *Engine) build(ctx context.Context, o *options) error {
	cfg := e.cfg

	backend, err := badger.OpenBackend(cfg.StoragePath, cfg.InMemory)
	if err != nil {
		return fmt.Errorf("opening document store: %w", err)
	}
	e.store = badger.NewStore(backend)

	if err := e.openIndex(ctx, o.logger); err != nil {
		return err
	}

	e.provider = o.provider
	if e.provider == nil {
		e.provider, err = openai.NewProvider(cfg.ProviderConfig())
		if err != nil {
			return fmt.Errorf("creating AI provider: %w", err)
		}
		e.ownsProvider = true
	}

	counter := o.counter
	if counter == nil {
		counter, err = chunking.NewTiktokenCounter(cfg.Chunking.Encoding)
		if err != nil {
			return err
		}
	}
	budget := []chunking.Option{
		chunking.WithModelMaxTokens(cfg.Chunking.ModelMaxTokens),
		chunking.WithReSplit(cfg.Chunking.ReSplitTokens, cfg.Chunking.ReSplitOverlap),
		chunking.WithLogger(o.logger),
	}
	headers, err := chunking.NewHeaderChunker(counter,
		append(budget, chunking.WithMaxTokens(cfg.Chunking.MaxTokens), chunking.WithContentTags(true, true))...)
	if err != nil {
		return err
	}
	pages, err := chunking.NewPageChunker(counter,
		append(budget, chunking.WithMaxTokens(cfg.Chunking.PageMaxTokens))...)
	if err != nil {
		return err
	}

	indexOpts := []indexing.Option{
		indexing.WithBatchSize(cfg.Batch.UploadBatch),
		indexing.WithLogger(o.logger),
	}
	if cfg.AI.EmbeddingDimensions > 0 {
		indexOpts = append(indexOpts, indexing.WithDimensions(cfg.AI.EmbeddingDimensions))
	}
	e.indexer, err = indexing.NewIndexer(e.provider.Embedder(), e.index, indexOpts...)
	if err != nil {
		return err
	}

	e.retriever, err = retrieval.NewRetriever(e.provider.Embedder(), e.index,
		retrieval.WithSplitLimit(cfg.SplitLimit),
		retrieval.WithLogger(o.logger))
	if err != nil {
		return err
	}

	e.resolver, err = retrieval.NewResolver(e.store, o.logger)
	if err != nil {
		return err
	}

	e.highlighter, err = highlight.NewHighlighter(highlight.WithLogger(o.logger))
	if err != nil {
		return err
	}

	compress := enrichment.DefaultCompressOptions()
	compress.Threshold = cfg.Images.ThresholdBytes
	compress.Quality = cfg.Images.Quality
	e.enricher, err = enrichment.NewEnricher(e.provider.ImageDescriber(),
		enrichment.WithPoolSize(cfg.Batch.DescribePool),
		enrichment.WithCompression(compress),
		enrichment.WithRetry(cfg.Batch.Attempts, cfg.Batch.RetryDelay),
		enrichment.WithLogger(o.logger))
	if err != nil {
		return err
	}

	sink := o.sink
	if sink == nil {
		sink = batch.NewLogSink(o.logger)
	}
	e.coordinator, err = batch.NewCoordinator(sink,
		batch.WithBatchSize(cfg.Batch.Size),
		batch.WithConcurrency(cfg.Batch.Concurrency),
		batch.WithFlushInterval(cfg.Batch.FlushEvery),
		batch.WithProgressSaver(badger.NewProgressRepository(backend)),
		batch.WithLogger(o.logger))
	if err != nil {
		return err
	}

	service := o.ocr
	if service == nil {
		service = ocr.NewDirService()
	}
	shared := []ingestion.Option{
		ingestion.WithNamespace(cfg.Namespace),
		ingestion.WithPageBatchSize(cfg.Batch.PageBatch),
		ingestion.WithQAGroupSize(cfg.Batch.QAGroup),
		ingestion.WithRetry(cfg.Batch.Attempts, cfg.Batch.RetryDelay),
		ingestion.WithLogger(o.logger),
	}
	e.files, err = ingestion.NewFileWorkflow(e.store, service, headers, e.indexer, e.coordinator,
		append(shared, ingestion.WithEnricher(e.enricher))...)
	if err != nil {
		return err
	}
	e.qa, err = ingestion.NewQAWorkflow(e.store, e.provider.QAExtractor(), pages, e.indexer, e.coordinator,
		append(shared, ingestion.WithFileWorkflow(e.files))...)
	if err != nil {
		return err
	}

	scraper := o.scraper
	if scraper == nil {
		scraper, err = scrape.New(scrape.WithLogger(o.logger))
		if err != nil {
			return err
		}
	}
	e.web, err = ingestion.NewWebWorkflow(e.store, scraper, headers, e.indexer, e.coordinator, shared...)
	return err
}

func (e *Engine) openIndex(ctx context.Context, logger *slog.Logger) error {
	switch e.cfg.VectorBackend {
	case config.VectorPgvector:
		x, err := pgvector.Connect(ctx, e.cfg.PostgresDSN, pgvector.WithLogger(logger))
		if err != nil {
			return err
		}
		e.index, e.closeIndex = x, x.Close
		return x.Migrate(ctx)
	default:
		path := e.cfg.VectorPath
		if e.cfg.InMemory {
			path = ""
		}
		x, err := chromem.Open(path)
		if err != nil {
			return err
		}
		e.index = x
		return nil
	}
}

// Close releases every resource the engine opened. It is safe on a
// partially built engine.
func (e *Engine) Close() error {
	var errs []error
	if e.coordinator != nil {
		e.coordinator.Release()
	}
	if e.enricher != nil {
		e.enricher.Release()
	}
	if e.provider != nil && e.ownsProvider {
		if err := e.provider.Close(); err != nil {
			e.logger.Error("error closing AI provider", "err", err)
			errs = append(errs, err)
		}
	}
	if e.closeIndex != nil {
		e.closeIndex()
	}
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			e.logger.Error("error closing document store", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Config returns the configuration the engine was built from.
func (e *Engine) Config() *config.Config {
	return e.cfg
}

// Store returns the document store.
func (e *Engine) Store() *badger.Store {
	return e.store
}

func (e *Engine) Indexer() *indexing.Indexer {
	return e.indexer
}

func (e *Engine) Retriever() *retrieval.Retriever {
	return e.retriever
}

func (e *Engine) Files() *ingestion.FileWorkflow {
	return e.files
}

func (e *Engine) QA() *ingestion.QAWorkflow {
	return e.qa
}

func (e *Engine) Web() *ingestion.WebWorkflow {
	return e.web
}

// Search runs a similarity query. An empty namespace means the configured one.
func (e *Engine) Search(ctx context.Context, q retrieval.Query) ([]indexing.Match, error) {
	if q.Namespace == "" {
		q.Namespace = e.cfg.Namespace
	}
	return e.retriever.Search(ctx, q)
}

// QueryContext is Search followed by per-document aggregation.
func (e *Engine) QueryContext(ctx context.Context, q retrieval.Query) (*retrieval.Context, error) {
	if q.Namespace == "" {
		q.Namespace = e.cfg.Namespace
	}
	return e.retriever.QueryContext(ctx, q)
}

// ResolveReferences loads the tables and images a retrieved chunk refers
// to from the document store.
func (e *Engine) ResolveReferences(ctx context.Context, m indexing.Match) (retrieval.References, error) {
	return e.resolver.Resolve(ctx, m)
}

// Highlight locates snippet in the PDF at source, a URL or a local path.
func (e *Engine) Highlight(ctx context.Context, source, snippet string, pages []int) (core.Highlight, error) {
	return e.highlighter.FindInPDF(ctx, source, snippet, pages)
}

// HighlightAll locates several snippets in one PDF, ordered by page and
// position.
func (e *Engine) HighlightAll(ctx context.Context, source string, snippets []string, pages []int) ([]core.Highlight, error) {
	return e.highlighter.FindAllInPDF(ctx, source, snippets, pages)
}

// DeleteVectors removes the vectors of the configured namespace that match
// filter and reports how many went.
func (e *Engine) DeleteVectors(ctx context.Context, filter indexing.Filter) (int, error) {
	return e.indexer.DeleteByFilter(ctx, e.cfg.Namespace, filter)
}
