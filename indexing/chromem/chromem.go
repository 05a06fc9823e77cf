// Package chromem adapts an embedded chromem-go database to
// indexing.VectorIndex. Each namespace is a collection.
package chromem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/philippgille/chromem-go"
	"github.com/poiesic/docsift/core"
	"github.com/poiesic/docsift/indexing"
)

// ErrEmbeddingRequired is returned when a document reaches the store
// without a vector.
var ErrEmbeddingRequired = errors.New("documents must carry embeddings")

// Index is a VectorIndex backed by chromem-go.
//
// chromem only filters on exact string metadata, so queries rank the whole
// collection and apply the filter afterwards. Metadata values are stored
// JSON-encoded to survive the string-only metadata map.
type Index struct {
	db     *chromem.DB
	logger *slog.Logger
}

var _ indexing.VectorIndex = (*Index)(nil)

// Open creates an Index. An empty path keeps everything in memory;
// otherwise the database persists under path.
func Open(path string) (*Index, error) {
	var (
		db  *chromem.DB
		err error
	)
	if path == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(path, false)
		if err != nil {
			return nil, fmt.Errorf("failed to open vector database: %w", err)
		}
	}
	return &Index{
		db:     db,
		logger: slog.Default().With("component", "chromem-index"),
	}, nil
}

func refuseEmbedding(context.Context, string) ([]float32, error) {
	return nil, ErrEmbeddingRequired
}

func (x *Index) collection(namespace string) (*chromem.Collection, error) {
	if namespace == "" {
		return nil, indexing.ErrNamespaceEmpty
	}
	c, err := x.db.GetOrCreateCollection(namespace, nil, refuseEmbedding)
	if err != nil {
		return nil, fmt.Errorf("failed to open collection %q: %w", namespace, err)
	}
	return c, nil
}

// Upsert adds or replaces vectors.
func (x *Index) Upsert(ctx context.Context, namespace string, vectors []core.Embedding) error {
	if len(vectors) == 0 {
		return nil
	}
	c, err := x.collection(namespace)
	if err != nil {
		return err
	}
	docs := make([]chromem.Document, len(vectors))
	for i, v := range vectors {
		if len(v.Values) == 0 {
			return fmt.Errorf("%w: %s", ErrEmbeddingRequired, v.ID)
		}
		meta, err := encodeMetadata(v.Metadata)
		if err != nil {
			return fmt.Errorf("encoding metadata of %s: %w", v.ID, err)
		}
		text, _ := v.Metadata[indexing.MetaText].(string)
		docs[i] = chromem.Document{
			ID:        v.ID,
			Metadata:  meta,
			Embedding: v.Values,
			Content:   text,
		}
	}
	if err := c.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	x.logger.Debug("upserted vectors", "namespace", namespace, "count", len(docs))
	return nil
}

// Query ranks the collection against req.Vector and returns the best
// req.TopK matches passing req.Filter. A zero vector is replaced by a unit
// probe so the listing still succeeds; the ranking is then meaningless.
func (x *Index) Query(ctx context.Context, namespace string, req indexing.QueryRequest) ([]indexing.Match, error) {
	c, err := x.collection(namespace)
	if err != nil {
		return nil, err
	}
	total := c.Count()
	if total == 0 || req.TopK < 1 {
		return []indexing.Match{}, nil
	}

	vector := req.Vector
	if indexing.IsZeroVector(vector) && len(vector) > 0 {
		vector = make([]float32, len(req.Vector))
		vector[0] = 1
	}

	results, err := c.QueryEmbedding(ctx, vector, total, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection %q: %w", namespace, err)
	}

	matches := make([]indexing.Match, 0, min(req.TopK, len(results)))
	for _, r := range results {
		meta, err := decodeMetadata(r.Metadata)
		if err != nil {
			return nil, fmt.Errorf("decoding metadata of %s: %w", r.ID, err)
		}
		if !req.Filter.Matches(meta) {
			continue
		}
		matches = append(matches, indexing.Match{ID: r.ID, Score: r.Similarity, Metadata: meta})
		if len(matches) == req.TopK {
			break
		}
	}
	return matches, nil
}

// Delete removes vectors by ID.
func (x *Index) Delete(ctx context.Context, namespace string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	c, err := x.collection(namespace)
	if err != nil {
		return err
	}
	if err := c.Delete(ctx, nil, nil, ids...); err != nil {
		return fmt.Errorf("failed to delete from %q: %w", namespace, err)
	}
	return nil
}

// Count returns the number of vectors in namespace.
func (x *Index) Count(namespace string) (int, error) {
	c, err := x.collection(namespace)
	if err != nil {
		return 0, err
	}
	return c.Count(), nil
}

func encodeMetadata(meta map[string]any) (map[string]string, error) {
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		out[k] = string(b)
	}
	return out, nil
}

func decodeMetadata(meta map[string]string) (map[string]any, error) {
	out := make(map[string]any, len(meta))
	for k, s := range meta {
		var v any
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}
