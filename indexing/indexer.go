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


package indexing

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/google/uuid"
	"github.com/poiesic/docsift/ai"
	"github.com/poiesic/docsift/core"
)

const (
	DefaultBatchSize       = 10
	DefaultDeletePageSize  = 10000
	DefaultDeleteBatchSize = 1000
)

// Indexer embeds chunks and maintains their vectors in a VectorIndex.
type Indexer struct {
	embedder        ai.Embedder
	index           VectorIndex
	batchSize       int
	pageSize        int
	deleteBatchSize int
	newID           func() string
	logger          *slog.Logger

	dimMu      sync.Mutex
	dimensions int
}

// Option configures an Indexer.
type Option func(*Indexer) error

// WithBatchSize sets how many chunks are embedded and upserted per call.
// Default is 10.
func WithBatchSize(n int) Option {
	return func(i *Indexer) error {
		if n < 1 {
			return fmt.Errorf("%w: batch size %d", ErrInvalidOption, n)
		}
		i.batchSize = n
		return nil
	}
}

// WithDeletePageSize sets how many matches one probe query collects when
// deleting by filter. Default is 10000.
func WithDeletePageSize(n int) Option {
	return func(i *Indexer) error {
		if n < 1 {
			return fmt.Errorf("%w: delete page size %d", ErrInvalidOption, n)
		}
		i.pageSize = n
		return nil
	}
}

// WithDimensions fixes the vector width used for probe queries. When unset
// it is learned from the embedder on first use.
func WithDimensions(n int) Option {
	return func(i *Indexer) error {
		if n < 1 {
			return fmt.Errorf("%w: dimensions %d", ErrInvalidOption, n)
		}
		i.dimensions = n
		return nil
	}
}

// WithIDGenerator replaces the random vector ID source.
func WithIDGenerator(fn func() string) Option {
	return func(i *Indexer) error {
		if fn == nil {
			fn = uuid.NewString
		}
		i.newID = fn
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(i *Indexer) error {
		if logger == nil {
			logger = slog.Default()
		}
		i.logger = logger.With("component", "indexer")
		return nil
	}
}

// NewIndexer creates an Indexer.
func NewIndexer(embedder ai.Embedder, index VectorIndex, opts ...Option) (*Indexer, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if index == nil {
		return nil, ErrIndexRequired
	}
	i := &Indexer{
		embedder:        embedder,
		index:           index,
		batchSize:       DefaultBatchSize,
		pageSize:        DefaultDeletePageSize,
		deleteBatchSize: DefaultDeleteBatchSize,
		newID:           uuid.NewString,
		logger:          slog.Default().With("component", "indexer"),
	}
	for _, opt := range opts {
		if err := opt(i); err != nil {
			return nil, err
		}
	}
	return i, nil
}

// Index returns the underlying vector index.
func (i *Indexer) Index() VectorIndex {
	return i.index
}

// BatchFunc observes upload progress after each batch.
type BatchFunc func(done, total int)

// Upload embeds chunks in fixed-size batches and upserts them into
// namespace. Each vector carries the chunk text, its pages and its metadata;
// meta is applied last and wins on key clashes. The vector IDs are returned
// in chunk order. Embedding failures are not retried.
func (i *Indexer) Upload(ctx context.Context, namespace string, chunks []core.PageChunk, meta map[string]any, onBatch BatchFunc) ([]string, error) {
	if namespace == "" {
		return nil, ErrNamespaceEmpty
	}
	ids := make([]string, 0, len(chunks))
	for start := 0; start < len(chunks); start += i.batchSize {
		if err := ctx.Err(); err != nil {
			return ids, err
		}
		end := min(start+i.batchSize, len(chunks))
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for j, chunk := range batch {
			texts[j] = chunk.Content
		}
		vectors, err := i.embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return ids, fmt.Errorf("embedding chunks %d-%d: %w", start, end-1, err)
		}
		if len(vectors) != len(batch) {
			return ids, fmt.Errorf("%w: sent %d, got %d", ai.ErrEmbeddingCountMismatch, len(batch), len(vectors))
		}

		records := make([]core.Embedding, len(batch))
		for j, chunk := range batch {
			id := i.newID()
			records[j] = core.Embedding{
				ID:       id,
				Values:   NormalizeVector(vectors[j]),
				Metadata: vectorMetadata(id, chunk, meta),
			}
		}
		if err := i.index.Upsert(ctx, namespace, records); err != nil {
			return ids, fmt.Errorf("upserting chunks %d-%d: %w", start, end-1, err)
		}
		for _, r := range records {
			ids = append(ids, r.ID)
		}

		i.logger.Debug("uploaded batch", "namespace", namespace, "done", end, "total", len(chunks))
		if onBatch != nil {
			onBatch(end, len(chunks))
		}
	}
	return ids, nil
}

func vectorMetadata(id string, chunk core.PageChunk, meta map[string]any) map[string]any {
	out := map[string]any{
		MetaID:          id,
		MetaText:        chunk.Content,
		MetaPageNumbers: chunk.PageNumbers,
	}
	maps.Copy(out, chunk.Metadata)
	maps.Copy(out, meta)
	return out
}

// DeleteByIDs removes vectors by ID in batches.
func (i *Indexer) DeleteByIDs(ctx context.Context, namespace string, ids []string) error {
	if namespace == "" {
		return ErrNamespaceEmpty
	}
	for start := 0; start < len(ids); start += i.deleteBatchSize {
		end := min(start+i.deleteBatchSize, len(ids))
		if err := i.index.Delete(ctx, namespace, ids[start:end]); err != nil {
			return fmt.Errorf("deleting vectors %d-%d: %w", start, end-1, err)
		}
	}
	return nil
}

// DeleteByFilter removes every vector matching filter and returns how many
// were removed. Stores without native filter deletion are drained with
// unranked probe queries, one page at a time. An empty filter is refused.
func (i *Indexer) DeleteByFilter(ctx context.Context, namespace string, filter Filter) (int, error) {
	if namespace == "" {
		return 0, ErrNamespaceEmpty
	}
	if len(filter) == 0 {
		return 0, ErrEmptyFilter
	}
	if err := filter.Validate(); err != nil {
		return 0, err
	}
	if fd, ok := i.index.(FilterDeleter); ok {
		return fd.DeleteByFilter(ctx, namespace, filter)
	}

	dims, err := i.probeDimensions(ctx)
	if err != nil {
		return 0, err
	}
	probe := make([]float32, dims)

	deleted := 0
	seen := map[string]struct{}{}
	for {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}
		matches, err := i.index.Query(ctx, namespace, QueryRequest{Vector: probe, Filter: filter, TopK: i.pageSize})
		if err != nil {
			return deleted, fmt.Errorf("probing matches: %w", err)
		}
		if len(matches) == 0 {
			break
		}
		ids := make([]string, 0, len(matches))
		for _, m := range matches {
			if _, ok := seen[m.ID]; ok {
				continue
			}
			seen[m.ID] = struct{}{}
			ids = append(ids, m.ID)
		}
		if len(ids) == 0 {
			return deleted, ErrDeleteStalled
		}
		if err := i.DeleteByIDs(ctx, namespace, ids); err != nil {
			return deleted, err
		}
		deleted += len(ids)
		i.logger.Debug("deleted page", "namespace", namespace, "count", len(ids), "total", deleted)

		if len(matches) < i.pageSize {
			break
		}
	}
	return deleted, nil
}

func (i *Indexer) probeDimensions(ctx context.Context) (int, error) {
	i.dimMu.Lock()
	defer i.dimMu.Unlock()
	if i.dimensions > 0 {
		return i.dimensions, nil
	}
	v, err := i.embedder.EmbedQuery(ctx, "dimension probe")
	if err != nil {
		return 0, fmt.Errorf("learning vector dimensions: %w", err)
	}
	i.dimensions = len(v)
	return i.dimensions, nil
}
