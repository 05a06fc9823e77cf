package ingestion

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/poiesic/docsift/ai"
	"github.com/poiesic/docsift/ai/mock"
	"github.com/poiesic/docsift/chunking"
	"github.com/poiesic/docsift/core"
	"github.com/poiesic/docsift/indexing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var faqPages = []string{
	"# FAQ\n\nWhat is docsift?\nA document ingestion pipeline.",
	"Who maintains it?\nThe platform team.",
}

func newQAWorkflow(t *testing.T, h *harness, extractor ai.QAExtractor, opts ...Option) *QAWorkflow {
	t.Helper()
	chunker, err := chunking.NewPageChunker(chunking.WordCounter{})
	require.NoError(t, err)
	w, err := NewQAWorkflow(h.store, extractor, chunker, h.indexer, h.coordinator, append(testOptions(), opts...)...)
	require.NoError(t, err)
	return w
}

func TestNewQAWorkflow_RequiresExtractor(t *testing.T) {
	h := newHarness(t)
	_, err := NewQAWorkflow(h.store, nil, h.files.chunker, h.indexer, h.coordinator)
	assert.ErrorIs(t, err, ErrQAExtractorRequired)
}

func TestQAWorkflow_ExtractsFromParsedFile(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.addFile(t, "faq.pdf", faqPages...)
	require.NoError(t, h.files.Parse(ctx, id, nil))

	extractor := mock.NewMockQAExtractor()
	w := newQAWorkflow(t, h, extractor)

	summary, err := w.Process(ctx, []string{id})
	require.NoError(t, err)
	require.Equal(t, 1, summary.Processed, "result: %v", summary.Results[0].Err)
	assert.Equal(t, 2, summary.TotalUnits)

	pairs, err := w.ListPairs(ctx, id)
	require.NoError(t, err)
	require.Len(t, pairs, 2)
	questions := []string{pairs[0].Question, pairs[1].Question}
	assert.ElementsMatch(t, []string{"What is docsift?", "Who maintains it?"}, questions)
	for _, p := range pairs {
		assert.NotEmpty(t, p.ID)
		assert.Equal(t, id, p.FileID)
		assert.Equal(t, "faq.pdf", p.FileName)
		assert.Equal(t, "text", p.SourceType)
		assert.NotEmpty(t, p.PageNumbers)
	}

	vectors := h.vectors(t, indexing.Eq(MetaFileID, id), indexing.Eq(MetaType, TypeCuratedQA))
	require.Len(t, vectors, 2)
	for _, v := range vectors {
		assert.Contains(t, v.Text(), "Q: ")
		assert.Contains(t, v.Text(), "\nA: ")
		assert.NotEmpty(t, v.Metadata[MetaQAID])
		assert.NotEmpty(t, v.Metadata[MetaQuestion])
	}

	last := h.sink.Last()
	assert.Equal(t, EventQAProgress, last.Event)
	assert.True(t, last.Completed)
}

func TestQAWorkflow_RerunReplacesPairs(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.addFile(t, "faq.pdf", faqPages...)
	require.NoError(t, h.files.Parse(ctx, id, nil))
	w := newQAWorkflow(t, h, mock.NewMockQAExtractor())

	_, err := w.Process(ctx, []string{id})
	require.NoError(t, err)
	_, err = w.Process(ctx, []string{id})
	require.NoError(t, err)

	pairs, err := w.ListPairs(ctx, id)
	require.NoError(t, err)
	assert.Len(t, pairs, 2)
	assert.Len(t, h.vectors(t, indexing.Eq(MetaType, TypeCuratedQA)), 2)
}

func TestQAWorkflow_UnparsedFile(t *testing.T) {
	t.Run("without file workflow", func(t *testing.T) {
		h := newHarness(t)
		id := h.addFile(t, "faq.pdf", faqPages...)
		w := newQAWorkflow(t, h, mock.NewMockQAExtractor())

		summary, err := w.Process(context.Background(), []string{id})
		require.NoError(t, err)
		assert.ErrorIs(t, summary.Results[0].Err, ErrFileNotParsed)
	})

	t.Run("parses first", func(t *testing.T) {
		h := newHarness(t)
		id := h.addFile(t, "faq.pdf", faqPages...)
		w := newQAWorkflow(t, h, mock.NewMockQAExtractor(), WithFileWorkflow(h.files))

		summary, err := w.Process(context.Background(), []string{id})
		require.NoError(t, err)
		require.NoError(t, summary.Results[0].Err)
		assert.Equal(t, 2, summary.TotalUnits)
		assert.Equal(t, 1, h.ocr.Calls("https://files.example.com/faq.pdf"))
		assert.Equal(t, core.StatusParsed, h.file(t, id).Status)
	})
}

func TestQAWorkflow_AllSectionsFail(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.addFile(t, "faq.pdf", faqPages...)
	require.NoError(t, h.files.Parse(ctx, id, nil))

	extractor := mock.NewMockQAExtractor()
	extractor.ExtractQAsFunc = func(context.Context, string) ([]ai.ExtractedQA, error) {
		return nil, errors.New("model overloaded")
	}
	w := newQAWorkflow(t, h, extractor)

	summary, err := w.Process(ctx, []string{id})
	require.NoError(t, err)
	assert.ErrorIs(t, summary.Results[0].Err, ErrAllSectionsFailed)
	// one section, tried twice
	assert.Equal(t, 2, extractor.CallCount())
}

func TestQAWorkflow_SkipsFailedSection(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.addFile(t, "faq.pdf",
		"# One\n\nWhat is one?\nThe first number.",
		"# Two\n\nWhat is two?\nThe second number.",
	)
	require.NoError(t, h.files.Parse(ctx, id, nil))

	extractor := mock.NewMockQAExtractor()
	fallback := mock.NewMockQAExtractor()
	extractor.ExtractQAsFunc = func(ctx context.Context, content string) ([]ai.ExtractedQA, error) {
		if strings.Contains(content, "What is two?") {
			return nil, errors.New("refused")
		}
		return fallback.ExtractQAs(ctx, content)
	}
	w := newQAWorkflow(t, h, extractor, WithQAGroupSize(1))

	summary, err := w.Process(ctx, []string{id})
	require.NoError(t, err)
	require.NoError(t, summary.Results[0].Err)
	assert.Equal(t, 1, summary.TotalUnits)
}

func TestFileReprocessKeepsQAVectors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.addFile(t, "faq.pdf", faqPages...)
	_, err := h.files.Process(ctx, []string{id})
	require.NoError(t, err)

	w := newQAWorkflow(t, h, mock.NewMockQAExtractor())
	_, err = w.Process(ctx, []string{id})
	require.NoError(t, err)

	_, err = h.files.Process(ctx, []string{id})
	require.NoError(t, err)
	assert.Len(t, h.vectors(t, indexing.Eq(MetaType, TypeCuratedQA)), 2)
}

func TestFormatQA(t *testing.T) {
	assert.Equal(t, "Q: Why?\nA: Because.", FormatQA(core.QAPair{Question: "Why?", Answer: "Because."}))
}
