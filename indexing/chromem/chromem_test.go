package chromem

import (
	"context"
	"testing"

	"github.com/poiesic/docsift/core"
	"github.com/poiesic/docsift/indexing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vectors() []core.Embedding {
	return []core.Embedding{
		{ID: "a", Values: []float32{1, 0, 0}, Metadata: map[string]any{
			"text": "alpha", "file_id": "f1", "page_numbers": []int{1, 2},
		}},
		{ID: "b", Values: []float32{0.8, 0.6, 0}, Metadata: map[string]any{
			"text": "beta", "file_id": "f2", "page_numbers": []int{3},
		}},
		{ID: "c", Values: []float32{0, 0, 1}, Metadata: map[string]any{
			"text": "gamma", "file_id": "f1", "page_numbers": []int{4},
		}},
	}
}

func openSeeded(t *testing.T) *Index {
	t.Helper()
	idx, err := Open("")
	require.NoError(t, err)
	require.NoError(t, idx.Upsert(context.Background(), "docs", vectors()))
	return idx
}

func TestIndex_QueryRanksAndDecodes(t *testing.T) {
	idx := openSeeded(t)

	matches, err := idx.Query(context.Background(), "docs", indexing.QueryRequest{
		Vector: []float32{1, 0, 0},
		TopK:   2,
	})
	require.NoError(t, err)
	require.Len(t, matches, 2)

	assert.Equal(t, "a", matches[0].ID)
	assert.Equal(t, "b", matches[1].ID)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-5)
	assert.Equal(t, "alpha", matches[0].Text())
	assert.Equal(t, []int{1, 2}, matches[0].PageNumbers())
}

func TestIndex_QueryFilters(t *testing.T) {
	idx := openSeeded(t)

	matches, err := idx.Query(context.Background(), "docs", indexing.QueryRequest{
		Vector: []float32{1, 0, 0},
		Filter: indexing.Filter{indexing.Eq("file_id", "f1")},
		TopK:   10,
	})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "a", matches[0].ID)
	assert.Equal(t, "c", matches[1].ID)

	matches, err = idx.Query(context.Background(), "docs", indexing.QueryRequest{
		Vector: []float32{1, 0, 0},
		Filter: indexing.Filter{indexing.In("page_numbers", 3, 4)},
		TopK:   10,
	})
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestIndex_ZeroVectorListsEverything(t *testing.T) {
	idx := openSeeded(t)

	matches, err := idx.Query(context.Background(), "docs", indexing.QueryRequest{
		Vector: make([]float32, 3),
		TopK:   10,
	})
	require.NoError(t, err)
	assert.Len(t, matches, 3)
}

func TestIndex_EmptyNamespaceQuery(t *testing.T) {
	idx, err := Open("")
	require.NoError(t, err)

	matches, err := idx.Query(context.Background(), "nothing-here", indexing.QueryRequest{
		Vector: []float32{1, 0, 0},
		TopK:   5,
	})
	require.NoError(t, err)
	assert.Empty(t, matches)

	_, err = idx.Query(context.Background(), "", indexing.QueryRequest{TopK: 1})
	assert.ErrorIs(t, err, indexing.ErrNamespaceEmpty)
}

func TestIndex_UpsertReplacesAndDelete(t *testing.T) {
	idx := openSeeded(t)
	ctx := context.Background()

	replacement := vectors()[0]
	replacement.Metadata = map[string]any{"text": "alpha v2"}
	require.NoError(t, idx.Upsert(ctx, "docs", []core.Embedding{replacement}))

	n, err := idx.Count("docs")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, idx.Delete(ctx, "docs", []string{"a", "b"}))
	n, err = idx.Count("docs")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestIndex_UpsertRequiresEmbedding(t *testing.T) {
	idx, err := Open("")
	require.NoError(t, err)

	err = idx.Upsert(context.Background(), "docs", []core.Embedding{{ID: "x"}})
	assert.ErrorIs(t, err, ErrEmbeddingRequired)
}

func TestIndex_WithIndexerDeleteByFilter(t *testing.T) {
	idx := openSeeded(t)
	indexer, err := indexing.NewIndexer(noEmbedder{}, idx, indexing.WithDimensions(3), indexing.WithDeletePageSize(1))
	require.NoError(t, err)

	deleted, err := indexer.DeleteByFilter(context.Background(), "docs", indexing.Filter{indexing.Eq("file_id", "f1")})
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	n, err := idx.Count("docs")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestIndex_Persistent(t *testing.T) {
	dir := t.TempDir()
	idx, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, idx.Upsert(context.Background(), "docs", vectors()))

	reopened, err := Open(dir)
	require.NoError(t, err)
	n, err := reopened.Count("docs")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

type noEmbedder struct{}

func (noEmbedder) EmbedDocuments(context.Context, []string) ([][]float32, error) {
	panic("not used")
}

func (noEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	panic("not used")
}
