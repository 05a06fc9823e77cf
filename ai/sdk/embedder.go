// Package sdk provides an ai.Embedder built on the official OpenAI Go SDK.
//
// Some embedding services cap the number of documents accepted per call.
// The embedder in this package sends one request per document and runs the
// requests of a batch concurrently, bounded by ai.Config.FanOutConcurrency.
package sdk

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/poiesic/docsift/ai"
	"golang.org/x/sync/errgroup"
)

// Task types are sent in the request's user field.
const (
	TaskRetrievalDocument = "RETRIEVAL_DOCUMENT"
	TaskRetrievalQuery    = "RETRIEVAL_QUERY"
)

// Embedder fans a batch out into one embedding request per document.
type Embedder struct {
	client      openai.Client
	model       string
	dimensions  int
	concurrency int
	logger      *slog.Logger
}

var _ ai.Embedder = (*Embedder)(nil)

// NewEmbedder creates a fan-out embedder. Extra request options are applied
// after the ones derived from config.
func NewEmbedder(config *ai.Config, opts ...option.RequestOption) (ai.Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	base := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithBaseURL(config.EmbeddingHost),
	}
	concurrency := config.FanOutConcurrency
	if concurrency < 1 {
		concurrency = 1
	}

	return &Embedder{
		client:      openai.NewClient(append(base, opts...)...),
		model:       config.EmbeddingModel,
		dimensions:  config.EmbeddingDimensions,
		concurrency: concurrency,
		logger:      slog.Default().With("component", "sdk-embedder"),
	}, nil
}

// EmbedDocuments embeds each text in its own request. Results keep input order.
// The first failed request cancels the rest of the batch.
func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	e.logger.Debug("fanning out document embeddings", "count", len(texts), "concurrency", e.concurrency)

	vectors := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, text := range texts {
		g.Go(func() error {
			v, err := e.embed(gctx, text, TaskRetrievalDocument)
			if err != nil {
				return fmt.Errorf("document %d: %w", i, err)
			}
			vectors[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		e.logger.Error("failed to embed documents", "count", len(texts), "err", err)
		return nil, err
	}
	return vectors, nil
}

// EmbedQuery embeds a search query.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ai.ErrEmptyQuery
	}
	return e.embed(ctx, text, TaskRetrievalQuery)
}

func (e *Embedder) embed(ctx context.Context, text, task string) ([]float32, error) {
	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.model),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(text),
		},
		User: openai.String(task),
	}
	if e.dimensions > 0 {
		params.Dimensions = openai.Int(int64(e.dimensions))
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) != 1 {
		return nil, fmt.Errorf("%w: sent 1, got %d", ai.ErrEmbeddingCountMismatch, len(resp.Data))
	}

	vector := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vector[i] = float32(v)
	}
	return vector, nil
}
