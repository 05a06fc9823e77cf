package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/poiesic/docsift/ai"
	"github.com/poiesic/docsift/core"
	"github.com/poiesic/docsift/indexing"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultSplitLimit is the largest $in list sent in one query.
	DefaultSplitLimit = 30
	// DefaultDocumentKey is the metadata field naming a chunk's document.
	DefaultDocumentKey = "file_id"
	DefaultTopK        = 10
	defaultParallelism = 4
)

// Query describes one similarity search.
type Query struct {
	Text      string
	Namespace string
	Filter    indexing.Filter
	TopK      int
}

// DocumentContext is the text gathered for one document.
type DocumentContext struct {
	DocumentID string `json:"documentId"`
	Context    string `json:"context"`
	Pages      []int  `json:"pages"`
}

// Context is the aggregated form of a search: one block per document in
// order of first appearance, plus the page sets used for citation.
type Context struct {
	Documents []DocumentContext `json:"documents"`
	Pages     map[string][]int  `json:"pages"`
}

// Retriever answers similarity queries against a VectorIndex.
type Retriever struct {
	embedder    ai.Embedder
	index       indexing.VectorIndex
	splitLimit  int
	parallelism int
	documentKey string
	logger      *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever) error

// WithSplitLimit sets the largest $in list sent in one query. Longer lists
// are split into parallel sub-queries. Default is 30.
func WithSplitLimit(n int) Option {
	return func(r *Retriever) error {
		if n < 1 {
			return fmt.Errorf("%w: split limit %d", ErrInvalidOption, n)
		}
		r.splitLimit = n
		return nil
	}
}

// WithParallelism bounds concurrent sub-queries. Default is 4.
func WithParallelism(n int) Option {
	return func(r *Retriever) error {
		if n < 1 {
			return fmt.Errorf("%w: parallelism %d", ErrInvalidOption, n)
		}
		r.parallelism = n
		return nil
	}
}

// WithDocumentKey sets the metadata field used to group matches.
func WithDocumentKey(key string) Option {
	return func(r *Retriever) error {
		if key == "" {
			return fmt.Errorf("%w: empty document key", ErrInvalidOption)
		}
		r.documentKey = key
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger.With("component", "retriever")
		return nil
	}
}

// NewRetriever creates a Retriever.
func NewRetriever(embedder ai.Embedder, index indexing.VectorIndex, opts ...Option) (*Retriever, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if index == nil {
		return nil, ErrIndexRequired
	}
	r := &Retriever{
		embedder:    embedder,
		index:       index,
		splitLimit:  DefaultSplitLimit,
		parallelism: defaultParallelism,
		documentKey: DefaultDocumentKey,
		logger:      slog.Default().With("component", "retriever"),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Search embeds the query and returns scored matches, best first. Oversized
// $in filters fan out into sub-queries whose results are merged and
// de-duplicated by ID before the top q.TopK are kept.
func (r *Retriever) Search(ctx context.Context, q Query) ([]indexing.Match, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, ErrEmptyQuery
	}
	if q.TopK == 0 {
		q.TopK = DefaultTopK
	}
	if q.TopK < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTopK, q.TopK)
	}
	if q.Namespace == "" {
		return nil, indexing.ErrNamespaceEmpty
	}
	if err := q.Filter.Validate(); err != nil {
		return nil, err
	}

	vector, err := r.embedder.EmbedQuery(ctx, q.Text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	filters := splitFilter(q.Filter, r.splitLimit)
	if len(filters) > 1 {
		r.logger.Debug("split query filter", "subqueries", len(filters))
	}

	results := make([][]indexing.Match, len(filters))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallelism)
	for i, f := range filters {
		g.Go(func() error {
			matches, err := r.index.Query(gctx, q.Namespace, indexing.QueryRequest{
				Vector: vector,
				Filter: f,
				TopK:   q.TopK,
			})
			if err != nil {
				return err
			}
			results[i] = matches
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}
	return mergeMatches(results, q.TopK), nil
}

func mergeMatches(results [][]indexing.Match, topK int) []indexing.Match {
	if len(results) == 1 {
		return results[0]
	}
	best := map[string]indexing.Match{}
	for _, matches := range results {
		for _, m := range matches {
			if prev, ok := best[m.ID]; !ok || m.Score > prev.Score {
				best[m.ID] = m
			}
		}
	}
	merged := make([]indexing.Match, 0, len(best))
	for _, m := range best {
		merged = append(merged, m)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].ID < merged[j].ID
	})
	if len(merged) > topK {
		merged = merged[:topK]
	}
	return merged
}

// QueryContext runs Search and aggregates the matches per document.
func (r *Retriever) QueryContext(ctx context.Context, q Query) (*Context, error) {
	matches, err := r.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	return r.Aggregate(matches), nil
}

// Aggregate joins match texts per document with newlines and unions their
// pages. Matches without a document ID are grouped under "".
func (r *Retriever) Aggregate(matches []indexing.Match) *Context {
	out := &Context{Documents: []DocumentContext{}, Pages: map[string][]int{}}
	position := map[string]int{}
	for _, m := range matches {
		docID := fmt.Sprint(m.Metadata[r.documentKey])
		if m.Metadata[r.documentKey] == nil {
			docID = ""
		}
		i, ok := position[docID]
		if !ok {
			i = len(out.Documents)
			position[docID] = i
			out.Documents = append(out.Documents, DocumentContext{DocumentID: docID, Pages: []int{}})
		}
		doc := &out.Documents[i]
		if doc.Context == "" {
			doc.Context = m.Text()
		} else {
			doc.Context += "\n" + m.Text()
		}
		doc.Pages = core.MergePages(doc.Pages, m.PageNumbers())
	}
	for _, doc := range out.Documents {
		out.Pages[doc.DocumentID] = doc.Pages
	}
	return out
}
