package ingestion

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/poiesic/docsift/batch"
	"github.com/poiesic/docsift/chunking"
	"github.com/poiesic/docsift/core"
	"github.com/poiesic/docsift/extraction"
	"github.com/poiesic/docsift/indexing"
	"github.com/poiesic/docsift/ocr"
	"github.com/poiesic/docsift/storage"
)

// FileWorkflow turns uploaded files into stored structure and indexed chunks:
// OCR, extraction, enrichment, persistence, chunking and indexing.
type FileWorkflow struct {
	settings
	ocr         ocr.Service
	chunker     chunking.Chunker
	indexer     *indexing.Indexer
	coordinator *batch.Coordinator

	files  *storage.Repository[core.File]
	texts  *storage.Repository[core.TextContent]
	tables *storage.Repository[core.TableRecord]
	images *storage.Repository[core.ImageRecord]
	qas    *storage.Repository[core.QAPair]
}

// NewFileWorkflow creates a file workflow.
func NewFileWorkflow(
	store storage.DocumentStore,
	ocrService ocr.Service,
	chunker chunking.Chunker,
	indexer *indexing.Indexer,
	coordinator *batch.Coordinator,
	opts ...Option,
) (*FileWorkflow, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if ocrService == nil {
		return nil, ErrOCRRequired
	}
	if chunker == nil {
		return nil, ErrChunkerRequired
	}
	if indexer == nil {
		return nil, ErrIndexerRequired
	}
	if coordinator == nil {
		return nil, ErrCoordinatorRequired
	}

	w := &FileWorkflow{
		settings:    defaultSettings("file-workflow"),
		ocr:         ocrService,
		chunker:     chunker,
		indexer:     indexer,
		coordinator: coordinator,
		files:       storage.Files(store),
		texts:       storage.TextContents(store),
		tables:      storage.Tables(store),
		images:      storage.Images(store),
		qas:         storage.CuratedQAs(store),
	}
	if err := w.apply(opts); err != nil {
		return nil, err
	}
	return w, nil
}

// Register stores metadata for a new file in the created state and returns
// its ID.
func (w *FileWorkflow) Register(ctx context.Context, file core.File) (string, error) {
	now := time.Now().UTC()
	file.Status = core.StatusCreated
	file.Progress = 0
	if file.CreatedAt.IsZero() {
		file.CreatedAt = now
	}
	file.UpdatedAt = now
	return w.files.Create(ctx, file)
}

// Process runs the full workflow for each file under the batch coordinator.
// Item failures are reported in the summary, never returned.
func (w *FileWorkflow) Process(ctx context.Context, fileIDs []string) (*batch.Summary, error) {
	jobs := make([]batch.Job, len(fileIDs))
	for i, id := range fileIDs {
		jobs[i] = batch.Job{
			ID: id,
			Run: func(ctx context.Context, progress *batch.ItemProgress) (int, error) {
				doc, err := w.processFile(ctx, id, progress, true)
				if err != nil {
					return 0, err
				}
				return len(doc.chunks), nil
			},
		}
	}
	return w.coordinator.Run(ctx, EventFilesProgress, jobs)
}

// Parse runs OCR, extraction, enrichment and persistence for one file
// without indexing it.
func (w *FileWorkflow) Parse(ctx context.Context, fileID string, progress *batch.ItemProgress) error {
	_, err := w.processFile(ctx, fileID, progress, false)
	return err
}

func (w *FileWorkflow) processFile(ctx context.Context, fileID string, progress *batch.ItemProgress, vectorize bool) (*document, error) {
	file, err := w.files.Get(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("loading file %s: %w", fileID, err)
	}

	doc := &document{file: *file, progress: progress}
	w.setStatus(ctx, fileID, core.StatusProcessing, 0)

	steps := []processor{
		processorFunc{"ocr", w.runOCR},
		processorFunc{"extract", w.extract},
	}
	if vectorize {
		steps = append(steps,
			processorFunc{"chunk", w.chunk},
			processorFunc{"index", w.index},
		)
	}

	if err := runProcessors(ctx, w.logger, doc, steps); err != nil {
		w.logger.Error("file processing failed", "file", fileID, "err", err)
		w.setStatus(context.WithoutCancel(ctx), fileID, core.StatusFailed, 100)
		return nil, err
	}

	w.setStatus(ctx, fileID, core.StatusParsed, 100)
	w.logger.Info("file processed",
		"file", fileID,
		"pages", len(doc.texts),
		"tables", len(doc.tables),
		"images", len(doc.images),
		"chunks", len(doc.chunks))
	return doc, nil
}

func (w *FileWorkflow) runOCR(ctx context.Context, doc *document) error {
	var result *ocr.Result
	err := w.call(ctx, func() error {
		var err error
		result, err = w.ocr.Process(ctx, doc.file.URL)
		return err
	})
	if err != nil {
		return err
	}
	if result == nil || len(result.Pages) == 0 {
		return ErrNoContent
	}
	doc.pages = slices.SortedFunc(slices.Values(result.Pages), func(a, b ocr.Page) int {
		return cmp.Compare(a.Index, b.Index)
	})
	return nil
}

// extract handles pages in fixed-size batches: structure, images, then
// persistence. Earlier records of the file are replaced.
func (w *FileWorkflow) extract(ctx context.Context, doc *document) error {
	if err := w.clearFileData(ctx, []string{doc.file.ID}); err != nil {
		return fmt.Errorf("clearing previous records: %w", err)
	}

	extractor, err := extraction.NewExtractor(doc.file.ID)
	if err != nil {
		return err
	}

	total := len(doc.pages)
	for start := 0; start < total; start += w.pageBatch {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+w.pageBatch, total)
		res := extractor.Extract(doc.pages[start:end])

		if w.enricher != nil {
			report := w.enricher.Enrich(ctx, res.Texts, res.Images)
			if report.Failed > 0 {
				w.logger.Warn("some images were not described", "file", doc.file.ID, "failed", report.Failed)
			}
		}

		if err := w.persist(ctx, res); err != nil {
			return err
		}
		doc.texts = append(doc.texts, res.Texts...)
		doc.tables = append(doc.tables, res.Tables...)
		doc.images = append(doc.images, res.Images...)

		percent := batch.Percent(end, total)
		doc.progress.Report(percent)
		w.setStatus(ctx, doc.file.ID, core.StatusProcessing, percent)
	}

	if len(doc.texts) == 0 {
		return ErrNoContent
	}
	return nil
}

func (w *FileWorkflow) persist(ctx context.Context, res extraction.DocumentResult) error {
	if err := w.store(ctx, func() error { return w.texts.SetAll(ctx, res.Texts...) }); err != nil {
		return fmt.Errorf("storing text: %w", err)
	}
	if err := w.store(ctx, func() error { return w.tables.SetAll(ctx, res.Tables...) }); err != nil {
		return fmt.Errorf("storing tables: %w", err)
	}
	if err := w.store(ctx, func() error { return w.images.SetAll(ctx, res.Images...) }); err != nil {
		return fmt.Errorf("storing images: %w", err)
	}
	return nil
}

func (w *FileWorkflow) chunk(ctx context.Context, doc *document) error {
	chunks, err := w.chunker.Chunk(pagesOf(doc.texts))
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return ErrNoContent
	}
	doc.chunks = chunks
	return nil
}

func (w *FileWorkflow) index(ctx context.Context, doc *document) error {
	meta := fileMetadata(doc.file)
	filter := indexing.Filter{indexing.Eq(MetaFileID, doc.file.ID), indexing.Eq(MetaType, meta[MetaType])}
	if _, err := w.indexer.DeleteByFilter(ctx, w.namespace, filter); err != nil {
		return fmt.Errorf("removing previous vectors: %w", err)
	}

	total := len(doc.chunks)
	doc.progress.ReportSubPhase(0, total)
	ids, err := w.indexer.Upload(ctx, w.namespace, doc.chunks, meta, func(done, total int) {
		doc.progress.ReportSubPhase(batch.Percent(done, total), total)
	})
	if err != nil {
		return err
	}
	doc.vectorIDs = ids
	return nil
}

// Delete removes files, every record derived from them and their vectors.
func (w *FileWorkflow) Delete(ctx context.Context, fileIDs []string) error {
	if len(fileIDs) == 0 {
		return nil
	}
	var errs []error
	for _, id := range fileIDs {
		if err := w.files.Delete(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("deleting file %s: %w", id, err))
		}
	}
	if err := w.clearFileData(ctx, fileIDs); err != nil {
		errs = append(errs, err)
	}
	if _, err := w.qas.DeleteWhere(ctx, storage.In("fileId", fileIDs...)); err != nil {
		errs = append(errs, fmt.Errorf("deleting Q&A pairs: %w", err))
	}
	if _, err := w.indexer.DeleteByFilter(ctx, w.namespace, indexing.DeleteFilter(map[string]any{MetaFileID: fileIDs})); err != nil {
		errs = append(errs, fmt.Errorf("deleting vectors: %w", err))
	}
	return errors.Join(errs...)
}

func (w *FileWorkflow) clearFileData(ctx context.Context, fileIDs []string) error {
	where := storage.In("fileId", fileIDs...)
	if _, err := w.texts.DeleteWhere(ctx, where); err != nil {
		return err
	}
	if _, err := w.tables.DeleteWhere(ctx, where); err != nil {
		return err
	}
	_, err := w.images.DeleteWhere(ctx, where)
	return err
}

// setStatus mirrors the file's progress into its stored metadata. Failures
// are logged; they never fail the file.
func (w *FileWorkflow) setStatus(ctx context.Context, fileID string, status core.Status, progress float64) {
	fields := storage.Fields{
		"status":    string(status),
		"progress":  progress,
		"updatedAt": time.Now().UTC(),
	}
	err := w.store(ctx, func() error { return w.files.Update(ctx, fileID, fields) })
	if err != nil {
		w.logger.Warn("failed to update file status", "file", fileID, "status", status, "err", err)
	}
}

// pagesOf orders page texts for chunking.
func pagesOf(texts []core.TextContent) []core.PageMarkdown {
	pages := make([]core.PageMarkdown, 0, len(texts))
	for _, t := range texts {
		pages = append(pages, core.PageMarkdown{PageNumber: t.PageNumber, RawText: t.Markdown})
	}
	slices.SortStableFunc(pages, func(a, b core.PageMarkdown) int {
		return cmp.Compare(a.PageNumber, b.PageNumber)
	})
	return pages
}

// fileMetadata is attached to every vector of a file. Empty ownership
// fields are left out so they never match a filter by accident.
func fileMetadata(file core.File) map[string]any {
	meta := map[string]any{
		MetaFileID:   file.ID,
		MetaFileName: file.Name,
		MetaType:     cmp.Or(file.Type, "document"),
	}
	for key, value := range map[string]string{
		MetaUserID:    file.UserID,
		MetaProjectID: file.ProjectID,
		MetaDossierID: file.DossierID,
	} {
		if value != "" {
			meta[key] = value
		}
	}
	if !file.CreatedAt.IsZero() {
		meta[MetaCreatedAt] = file.CreatedAt.Unix()
	}
	return meta
}
