package ingestion

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/docsift/core"
	"github.com/poiesic/docsift/indexing"
	"github.com/poiesic/docsift/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var reportPages = []string{
	"# Overview\n\nThe quarterly report covers revenue and costs.",
	"## Revenue\n\n| Region | Sales |\n|---|---|\n| EU | 10 |\n| US | 12 |\n\nSales grew in every region.",
	"## Costs\n\nCosts stayed flat.",
}

func TestNewFileWorkflow_RequiresCollaborators(t *testing.T) {
	h := newHarness(t)

	_, err := NewFileWorkflow(nil, h.ocr, nil, h.indexer, h.coordinator)
	assert.ErrorIs(t, err, ErrStoreRequired)

	_, err = NewFileWorkflow(h.store, nil, nil, h.indexer, h.coordinator)
	assert.ErrorIs(t, err, ErrOCRRequired)

	_, err = NewFileWorkflow(h.store, h.ocr, nil, h.indexer, h.coordinator)
	assert.ErrorIs(t, err, ErrChunkerRequired)
}

func TestNewFileWorkflow_InvalidOptions(t *testing.T) {
	h := newHarness(t)
	tests := []struct {
		name string
		opt  Option
	}{
		{"empty namespace", WithNamespace("")},
		{"zero page batch", WithPageBatchSize(0)},
		{"zero group", WithQAGroupSize(0)},
		{"zero attempts", WithRetry(0, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFileWorkflow(h.store, h.ocr, h.files.chunker, h.indexer, h.coordinator, tt.opt)
			assert.ErrorIs(t, err, ErrInvalidOption)
		})
	}
}

func TestFileWorkflow_Register(t *testing.T) {
	h := newHarness(t)
	id := h.addFile(t, "report.pdf", reportPages...)

	f := h.file(t, id)
	assert.Equal(t, core.StatusCreated, f.Status)
	assert.Equal(t, "report.pdf", f.Name)
	assert.False(t, f.CreatedAt.IsZero())
}

func TestFileWorkflow_Process(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	good := h.addFile(t, "report.pdf", reportPages...)
	bad := h.addFile(t, "broken.pdf")
	h.ocr.fail["https://files.example.com/broken.pdf"] = errors.New("ocr unavailable")

	summary, err := h.files.Process(ctx, []string{good, bad})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Failed)
	assert.Positive(t, summary.TotalUnits)
	assert.ErrorContains(t, summary.Results[1].Err, "ocr unavailable")
	// OCR is retried before the file fails
	assert.Equal(t, 2, h.ocr.Calls("https://files.example.com/broken.pdf"))

	f := h.file(t, good)
	assert.Equal(t, core.StatusParsed, f.Status)
	assert.Equal(t, 100.0, f.Progress)
	assert.Equal(t, core.StatusFailed, h.file(t, bad).Status)

	texts, err := storage.TextContents(h.store).Query(ctx, storage.Eq("fileId", good))
	require.NoError(t, err)
	assert.Len(t, texts, 3)

	tables, err := storage.Tables(h.store).Query(ctx, storage.Eq("fileId", good))
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, 2, tables[0].PageNumber)
	assert.Len(t, tables[0].Rows, 2)

	vectors := h.vectors(t, indexing.Eq(MetaFileID, good))
	assert.Len(t, vectors, summary.TotalUnits)
	for _, v := range vectors {
		assert.Equal(t, "report.pdf", v.Metadata[MetaFileName])
		assert.Equal(t, "pdf", v.Metadata[MetaType])
		assert.Equal(t, "user-1", v.Metadata[MetaUserID])
		assert.NotContains(t, v.Metadata, MetaProjectID)
		assert.NotEmpty(t, v.PageNumbers())
	}

	last := h.sink.Last()
	assert.True(t, last.Completed)
	assert.Equal(t, EventFilesProgress, last.Event)
	assert.Equal(t, 1, last.Data["failed"])
}

func TestFileWorkflow_ReprocessReplacesRecords(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.addFile(t, "report.pdf", reportPages...)

	first, err := h.files.Process(ctx, []string{id})
	require.NoError(t, err)
	require.Equal(t, 1, first.Processed)

	second, err := h.files.Process(ctx, []string{id})
	require.NoError(t, err)
	require.Equal(t, 1, second.Processed)

	texts, err := storage.TextContents(h.store).Query(ctx, storage.Eq("fileId", id))
	require.NoError(t, err)
	assert.Len(t, texts, 3)

	tables, err := storage.Tables(h.store).Query(ctx, storage.Eq("fileId", id))
	require.NoError(t, err)
	assert.Len(t, tables, 1)

	assert.Len(t, h.vectors(t, indexing.Eq(MetaFileID, id)), second.TotalUnits)
}

func TestFileWorkflow_EmptyDocumentFails(t *testing.T) {
	h := newHarness(t)
	id := h.addFile(t, "empty.pdf")

	summary, err := h.files.Process(context.Background(), []string{id})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	assert.ErrorIs(t, summary.Results[0].Err, ErrNoContent)
	assert.Equal(t, core.StatusFailed, h.file(t, id).Status)
}

func TestFileWorkflow_UnknownFileFails(t *testing.T) {
	h := newHarness(t)

	summary, err := h.files.Process(context.Background(), []string{"missing"})
	require.NoError(t, err)
	assert.ErrorIs(t, summary.Results[0].Err, storage.ErrNotFound)
}

func TestFileWorkflow_Parse(t *testing.T) {
	h := newHarness(t)
	id := h.addFile(t, "report.pdf", reportPages...)

	require.NoError(t, h.files.Parse(context.Background(), id, nil))

	assert.Equal(t, core.StatusParsed, h.file(t, id).Status)
	assert.Empty(t, h.vectors(t, indexing.Eq(MetaFileID, id)))
}

func TestFileWorkflow_Delete(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	keep := h.addFile(t, "keep.pdf", reportPages...)
	drop := h.addFile(t, "drop.pdf", reportPages...)

	_, err := h.files.Process(ctx, []string{keep, drop})
	require.NoError(t, err)

	require.NoError(t, h.files.Delete(ctx, []string{drop}))

	_, err = storage.Files(h.store).Get(ctx, drop)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	texts, err := storage.TextContents(h.store).Query(ctx, storage.Eq("fileId", drop))
	require.NoError(t, err)
	assert.Empty(t, texts)

	assert.Empty(t, h.vectors(t, indexing.Eq(MetaFileID, drop)))
	assert.NotEmpty(t, h.vectors(t, indexing.Eq(MetaFileID, keep)))
	assert.Equal(t, core.StatusParsed, h.file(t, keep).Status)
}

func TestPagesOf_SortsByPage(t *testing.T) {
	pages := pagesOf([]core.TextContent{
		{PageNumber: 3, Markdown: "c"},
		{PageNumber: 1, Markdown: "a"},
		{PageNumber: 2, Markdown: "b"},
	})
	require.Len(t, pages, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{pages[0].PageNumber, pages[1].PageNumber, pages[2].PageNumber})
	assert.Equal(t, "a", pages[0].RawText)
}

func TestFileMetadata(t *testing.T) {
	f := core.File{ID: "f1", Name: "a.pdf", DossierID: "d1"}
	meta := fileMetadata(f)

	assert.Equal(t, "f1", meta[MetaFileID])
	assert.Equal(t, "document", meta[MetaType])
	assert.Equal(t, "d1", meta[MetaDossierID])
	assert.NotContains(t, meta, MetaUserID)
	assert.NotContains(t, meta, MetaCreatedAt)
}
