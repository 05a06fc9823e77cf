package chunking

import (
	"strings"
	"testing"

	"github.com/poiesic/docsift/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func words(chunks []core.PageChunk, strip func(string) string) []string {
	var out []string
	for _, c := range chunks {
		out = append(out, strings.Fields(strip(c.Content))...)
	}
	return out
}

func TestNewHeaderChunker_Validation(t *testing.T) {
	_, err := NewHeaderChunker(nil)
	assert.ErrorIs(t, err, ErrCounterRequired)

	_, err = NewHeaderChunker(WordCounter{}, WithMaxTokens(0))
	assert.ErrorIs(t, err, ErrInvalidBudget)

	_, err = NewHeaderChunker(WordCounter{}, WithReSplit(10, 10))
	assert.ErrorIs(t, err, ErrInvalidBudget)

	_, err = NewHeaderChunker(WordCounter{}, WithModelMaxTokens(100), WithReSplit(200, 10))
	assert.ErrorIs(t, err, ErrInvalidBudget)

	c, err := NewHeaderChunker(WordCounter{}, WithLogger(nil))
	require.NoError(t, err)
	assert.Equal(t, DefaultHeaderMaxTokens, c.settings.maxTokens)
}

func TestHeaderChunker_SplitsAndInjectsHeaders(t *testing.T) {
	c, err := NewHeaderChunker(WordCounter{})
	require.NoError(t, err)

	chunks, err := c.Chunk([]core.PageMarkdown{
		{PageNumber: 1, RawText: "# Intro\nalpha beta\n## Details\ngamma"},
		{PageNumber: 2, RawText: "delta epsilon\n# Next\nzeta"},
	})
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	assert.Equal(t, "# Intro\nalpha beta", chunks[0].Content)
	assert.Equal(t, []int{1}, chunks[0].PageNumbers)
	assert.Equal(t, map[string]any{"Header 1": "Intro"}, chunks[0].Metadata)

	// the headless start of page 2 joins the open section of page 1
	assert.Equal(t, "# Intro\n## Details\ngamma\ndelta epsilon", chunks[1].Content)
	assert.Equal(t, []int{1, 2}, chunks[1].PageNumbers)
	assert.Equal(t, map[string]any{"Header 1": "Intro", "Header 2": "Details"}, chunks[1].Metadata)

	assert.Equal(t, "# Next\nzeta", chunks[2].Content)
	assert.Equal(t, []int{2}, chunks[2].PageNumbers)
}

func TestHeaderChunker_BudgetStopsMerge(t *testing.T) {
	c, err := NewHeaderChunker(WordCounter{}, WithMaxTokens(5))
	require.NoError(t, err)

	chunks, err := c.Chunk([]core.PageMarkdown{
		{PageNumber: 1, RawText: "# A\none two"},
		{PageNumber: 2, RawText: "three four five"},
	})
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, "# A\none two", chunks[0].Content)
	assert.Equal(t, "# A\nthree four five", chunks[1].Content)
	assert.Equal(t, []int{2}, chunks[1].PageNumbers)
	assert.Equal(t, map[string]any{"Header 1": "A"}, chunks[1].Metadata)

	for _, chunk := range chunks {
		assert.LessOrEqual(t, WordCounter{}.Count(chunk.Content), 5)
	}
}

func TestHeaderChunker_ReSplitsOversizedSection(t *testing.T) {
	c, err := NewHeaderChunker(WordCounter{}, WithMaxTokens(4), WithReSplit(2, 0))
	require.NoError(t, err)

	chunks, err := c.Chunk([]core.PageMarkdown{
		{PageNumber: 3, RawText: "# H\none two three four five six"},
	})
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for _, chunk := range chunks {
		assert.True(t, strings.HasPrefix(chunk.Content, "# H\n"))
		assert.LessOrEqual(t, WordCounter{}.Count(chunk.Content), 4)
		assert.Equal(t, true, chunk.Metadata[MetaOversized])
		assert.Equal(t, []int{3}, chunk.PageNumbers)
	}
	got := words(chunks, func(s string) string { return strings.TrimPrefix(s, "# H\n") })
	assert.Equal(t, []string{"one", "two", "three", "four", "five", "six"}, got)
}

func TestHeaderChunker_ContentTags(t *testing.T) {
	page := core.PageMarkdown{
		PageNumber: 1,
		RawText:    "# T\nsee ![fig](img-1.png)\n\n| a | b |\n|---|---|\n| 1 | 2 |",
	}

	tagged, err := NewHeaderChunker(WordCounter{}, WithContentTags(true, true))
	require.NoError(t, err)
	chunks, err := tagged.Chunk([]core.PageMarkdown{page})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, true, chunks[0].Metadata[MetaHasImage])
	assert.Equal(t, true, chunks[0].Metadata[MetaHasTable])

	plain, err := NewHeaderChunker(WordCounter{})
	require.NoError(t, err)
	chunks, err = plain.Chunk([]core.PageMarkdown{page})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.NotContains(t, chunks[0].Metadata, MetaHasImage)
	assert.NotContains(t, chunks[0].Metadata, MetaHasTable)
}

func TestHeaderChunker_Deterministic(t *testing.T) {
	c, err := NewHeaderChunker(WordCounter{}, WithMaxTokens(8))
	require.NoError(t, err)

	pages := []core.PageMarkdown{
		{PageNumber: 1, RawText: "lead in\n# One\na b c d\n## Two\ne f g"},
		{PageNumber: 2, RawText: "h i j k l\n# Three\nm n"},
	}
	first, err := c.Chunk(pages)
	require.NoError(t, err)
	second, err := c.Chunk(pages)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestHeaderChunker_InvalidPage(t *testing.T) {
	c, err := NewHeaderChunker(WordCounter{})
	require.NoError(t, err)

	_, err = c.Chunk([]core.PageMarkdown{{PageNumber: 0, RawText: "x"}})
	assert.ErrorIs(t, err, core.ErrInvalidPage)
}

func TestHeaderChunker_EmptyInput(t *testing.T) {
	c, err := NewHeaderChunker(WordCounter{})
	require.NoError(t, err)

	chunks, err := c.Chunk(nil)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}
