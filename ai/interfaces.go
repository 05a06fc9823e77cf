package ai

import (
	"context"

	"github.com/poiesic/docsift/core"
)

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedDocuments generates one embedding per input text, in input order.
	// An empty input returns an empty result without contacting the provider.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates the embedding used to search for text.
	// Returns ErrEmptyQuery if text is empty.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// ImageDescriber produces a structured description of an image.
// Implementations must be thread-safe for concurrent use.
type ImageDescriber interface {
	// DescribeImage analyzes the image at imageURL (http(s) or data URI).
	// hint is surrounding document text that helps the model interpret the image.
	DescribeImage(ctx context.Context, imageURL, hint string) (*core.ImageAnalysis, error)
}

// QAExtractor pulls reusable question/answer pairs out of a document section.
// Implementations must be thread-safe for concurrent use.
type QAExtractor interface {
	// ExtractQAs returns the pairs found in content. An empty slice means
	// the section held nothing worth keeping.
	ExtractQAs(ctx context.Context, content string) ([]ExtractedQA, error)
}

// ExtractedQA is a question/answer pair as returned by a model, before it is
// attributed to a file and pages.
type ExtractedQA struct {
	Question   string
	Answer     string
	SourceType string // text, table or image
	Reference  string // section name the pair came from
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// ImageDescriber returns the vision service used for image enrichment.
	ImageDescriber() ImageDescriber

	// QAExtractor returns the curated Q&A extraction service.
	QAExtractor() QAExtractor

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
