package indexing

import (
	"context"

	"github.com/poiesic/docsift/core"
)

// Metadata keys written on every uploaded vector.
const (
	MetaID          = "id"
	MetaText        = "text"
	MetaPageNumbers = "page_numbers"
)

// QueryRequest is a similarity query against one namespace.
// A zero Vector asks for matches without ranking.
type QueryRequest struct {
	Vector []float32
	Filter Filter
	TopK   int
}

// Match is one scored hit returned by a VectorIndex.
type Match struct {
	ID       string
	Score    float32
	Metadata map[string]any
}

// Text returns the chunk text stored with the match.
func (m Match) Text() string {
	s, _ := m.Metadata[MetaText].(string)
	return s
}

// PageNumbers returns the page set stored with the match.
func (m Match) PageNumbers() []int {
	return PageNumbers(m.Metadata[MetaPageNumbers])
}

// VectorIndex is the contract with a vector store. Namespaces partition the
// store and are created on first use.
type VectorIndex interface {
	Upsert(ctx context.Context, namespace string, vectors []core.Embedding) error
	Query(ctx context.Context, namespace string, req QueryRequest) ([]Match, error)
	Delete(ctx context.Context, namespace string, ids []string) error
}

// FilterDeleter is implemented by stores that delete by filter natively.
// Stores without it are paginated by the Indexer.
type FilterDeleter interface {
	DeleteByFilter(ctx context.Context, namespace string, filter Filter) (int, error)
}
