package ingestion

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/poiesic/docsift/ai"
	"github.com/poiesic/docsift/batch"
	"github.com/poiesic/docsift/chunking"
	"github.com/poiesic/docsift/core"
	"github.com/poiesic/docsift/indexing"
	"github.com/poiesic/docsift/storage"
	"golang.org/x/sync/errgroup"
)

// TypeCuratedQA marks Q&A vectors in the index.
const TypeCuratedQA = "curated_qa"

// Q&A vector metadata keys.
const (
	MetaQAID      = "qa_id"
	MetaQuestion  = "question"
	MetaAnswer    = "answer"
	MetaReference = "reference"
)

// QAWorkflow extracts curated question/answer pairs from parsed files,
// stores them and indexes them for retrieval.
type QAWorkflow struct {
	settings
	extractor   ai.QAExtractor
	chunker     chunking.Chunker
	indexer     *indexing.Indexer
	coordinator *batch.Coordinator
	newID       func() string

	files *storage.Repository[core.File]
	texts *storage.Repository[core.TextContent]
	qas   *storage.Repository[core.QAPair]
}

// NewQAWorkflow creates a Q&A workflow. The chunker should preserve page
// boundaries so every pair can be traced to its pages.
func NewQAWorkflow(
	store storage.DocumentStore,
	extractor ai.QAExtractor,
	chunker chunking.Chunker,
	indexer *indexing.Indexer,
	coordinator *batch.Coordinator,
	opts ...Option,
) (*QAWorkflow, error) {
	switch {
	case store == nil:
		return nil, ErrStoreRequired
	case extractor == nil:
		return nil, ErrQAExtractorRequired
	case chunker == nil:
		return nil, ErrChunkerRequired
	case indexer == nil:
		return nil, ErrIndexerRequired
	case coordinator == nil:
		return nil, ErrCoordinatorRequired
	}

	w := &QAWorkflow{
		settings:    defaultSettings("qa-workflow"),
		extractor:   extractor,
		chunker:     chunker,
		indexer:     indexer,
		coordinator: coordinator,
		newID:       uuid.NewString,
		files:       storage.Files(store),
		texts:       storage.TextContents(store),
		qas:         storage.CuratedQAs(store),
	}
	if err := w.apply(opts); err != nil {
		return nil, err
	}
	return w, nil
}

// Process extracts Q&A pairs for each file under the batch coordinator.
// Files that are not parsed yet are parsed first when a file workflow is
// configured.
func (w *QAWorkflow) Process(ctx context.Context, fileIDs []string) (*batch.Summary, error) {
	jobs := make([]batch.Job, len(fileIDs))
	for i, id := range fileIDs {
		jobs[i] = batch.Job{
			ID: id,
			Run: func(ctx context.Context, progress *batch.ItemProgress) (int, error) {
				pairs, err := w.processFile(ctx, id, progress)
				return len(pairs), err
			},
		}
	}
	return w.coordinator.Run(ctx, EventQAProgress, jobs)
}

// ListPairs returns the stored pairs of a file ordered by first page.
func (w *QAWorkflow) ListPairs(ctx context.Context, fileID string) ([]core.QAPair, error) {
	found, err := w.qas.Query(ctx, storage.Eq("fileId", fileID))
	if err != nil {
		return nil, err
	}
	pairs := make([]core.QAPair, len(found))
	for i, p := range found {
		pairs[i] = *p
	}
	slices.SortStableFunc(pairs, func(a, b core.QAPair) int {
		return cmp.Compare(firstPage(a.PageNumbers), firstPage(b.PageNumbers))
	})
	return pairs, nil
}

func (w *QAWorkflow) processFile(ctx context.Context, fileID string, progress *batch.ItemProgress) ([]core.QAPair, error) {
	file, err := w.ensureParsed(ctx, fileID, progress)
	if err != nil {
		return nil, err
	}

	found, err := w.texts.Query(ctx, storage.Eq("fileId", fileID))
	if err != nil {
		return nil, fmt.Errorf("loading page text: %w", err)
	}
	texts := make([]core.TextContent, len(found))
	for i, t := range found {
		texts[i] = *t
	}
	chunks, err := w.chunker.Chunk(pagesOf(texts))
	if err != nil {
		return nil, fmt.Errorf("chunking: %w", err)
	}
	if len(chunks) == 0 {
		return nil, ErrNoContent
	}

	pairs, err := w.extract(ctx, file, chunks, progress)
	if err != nil {
		return nil, err
	}
	if err := w.replace(ctx, file, pairs, progress); err != nil {
		return nil, err
	}
	w.logger.Info("Q&A extraction finished", "file", fileID, "sections", len(chunks), "pairs", len(pairs))
	return pairs, nil
}

func (w *QAWorkflow) ensureParsed(ctx context.Context, fileID string, progress *batch.ItemProgress) (*core.File, error) {
	file, err := w.files.Get(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("loading file %s: %w", fileID, err)
	}
	if file.Status == core.StatusParsed {
		return file, nil
	}
	if w.parser == nil {
		return nil, fmt.Errorf("%w: %s is %s", ErrFileNotParsed, fileID, file.Status)
	}

	w.logger.Info("parsing file before Q&A extraction", "file", fileID, "status", file.Status)
	if err := w.parser.Parse(ctx, fileID, progress); err != nil {
		return nil, fmt.Errorf("parsing: %w", err)
	}
	return w.files.Get(ctx, fileID)
}

// extract sends sections to the model in groups. Sections inside a group
// run concurrently; a failed section is skipped.
func (w *QAWorkflow) extract(ctx context.Context, file *core.File, chunks []core.PageChunk, progress *batch.ItemProgress) ([]core.QAPair, error) {
	results := make([][]core.QAPair, len(chunks))
	var failed atomic.Int32

	for start := 0; start < len(chunks); start += w.qaGroup {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+w.qaGroup, len(chunks))

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				pairs, err := w.extractSection(ctx, file, chunks[i])
				if err != nil {
					failed.Add(1)
					w.logger.Warn("section extraction failed", "file", file.ID, "section", i, "err", err)
					return nil
				}
				results[i] = pairs
				return nil
			})
		}
		_ = g.Wait()
		progress.Report(batch.Percent(end, len(chunks)))
	}

	if int(failed.Load()) == len(chunks) {
		return nil, ErrAllSectionsFailed
	}
	return slices.Concat(results...), nil
}

func (w *QAWorkflow) extractSection(ctx context.Context, file *core.File, chunk core.PageChunk) ([]core.QAPair, error) {
	var extracted []ai.ExtractedQA
	err := w.call(ctx, func() error {
		var err error
		extracted, err = w.extractor.ExtractQAs(ctx, chunk.Content)
		return err
	})
	if err != nil {
		return nil, err
	}

	pairs := make([]core.QAPair, 0, len(extracted))
	for _, qa := range extracted {
		question := strings.TrimSpace(qa.Question)
		answer := strings.TrimSpace(qa.Answer)
		if question == "" || answer == "" {
			continue
		}
		pairs = append(pairs, core.QAPair{
			ID:          w.newID(),
			Question:    question,
			Answer:      answer,
			SourceType:  cmp.Or(qa.SourceType, "text"),
			Reference:   qa.Reference,
			PageNumbers: slices.Clone(chunk.PageNumbers),
			FileID:      file.ID,
			FileName:    file.Name,
		})
	}
	return pairs, nil
}

// replace swaps the file's stored pairs and Q&A vectors for the new set.
func (w *QAWorkflow) replace(ctx context.Context, file *core.File, pairs []core.QAPair, progress *batch.ItemProgress) error {
	if _, err := w.qas.DeleteWhere(ctx, storage.Eq("fileId", file.ID)); err != nil {
		return fmt.Errorf("removing previous pairs: %w", err)
	}
	filter := indexing.Filter{indexing.Eq(MetaFileID, file.ID), indexing.Eq(MetaType, TypeCuratedQA)}
	if _, err := w.indexer.DeleteByFilter(ctx, w.namespace, filter); err != nil {
		return fmt.Errorf("removing previous Q&A vectors: %w", err)
	}
	if len(pairs) == 0 {
		return nil
	}

	if err := w.store(ctx, func() error { return w.qas.SetAll(ctx, pairs...) }); err != nil {
		return fmt.Errorf("storing pairs: %w", err)
	}

	chunks := make([]core.PageChunk, len(pairs))
	for i, p := range pairs {
		chunks[i] = core.PageChunk{
			Content:     FormatQA(p),
			PageNumbers: p.PageNumbers,
			Metadata: map[string]any{
				MetaQAID:      p.ID,
				MetaQuestion:  p.Question,
				MetaAnswer:    p.Answer,
				MetaReference: p.Reference,
			},
		}
	}
	meta := fileMetadata(*file)
	meta[MetaType] = TypeCuratedQA

	progress.ReportSubPhase(0, len(chunks))
	_, err := w.indexer.Upload(ctx, w.namespace, chunks, meta, func(done, total int) {
		progress.ReportSubPhase(batch.Percent(done, total), total)
	})
	if err != nil {
		return fmt.Errorf("indexing pairs: %w", err)
	}
	return nil
}

// FormatQA renders a pair as the text that is embedded for it.
func FormatQA(p core.QAPair) string {
	return "Q: " + p.Question + "\nA: " + p.Answer
}

func firstPage(pages []int) int {
	if len(pages) == 0 {
		return 0
	}
	return pages[0]
}
