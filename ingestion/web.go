package ingestion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/poiesic/docsift/batch"
	"github.com/poiesic/docsift/chunking"
	"github.com/poiesic/docsift/core"
	"github.com/poiesic/docsift/indexing"
	"github.com/poiesic/docsift/storage"
)

// Web page vector metadata.
const (
	TypeWebPage      = "web_page"
	SourceWebScraper = "web_scraping"

	MetaURL    = "url"
	MetaTitle  = "title"
	MetaSource = "source"
)

// Scraper fetches a page and returns its content as markdown.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*core.WebPage, error)
}

// WebWorkflow scrapes pages, stores them and indexes their chunks.
type WebWorkflow struct {
	settings
	scraper     Scraper
	chunker     chunking.Chunker
	indexer     *indexing.Indexer
	coordinator *batch.Coordinator
	pages       *storage.Repository[core.WebPage]
}

// NewWebWorkflow creates a web page workflow.
func NewWebWorkflow(
	store storage.DocumentStore,
	scraper Scraper,
	chunker chunking.Chunker,
	indexer *indexing.Indexer,
	coordinator *batch.Coordinator,
	opts ...Option,
) (*WebWorkflow, error) {
	switch {
	case store == nil:
		return nil, ErrStoreRequired
	case scraper == nil:
		return nil, ErrScraperRequired
	case chunker == nil:
		return nil, ErrChunkerRequired
	case indexer == nil:
		return nil, ErrIndexerRequired
	case coordinator == nil:
		return nil, ErrCoordinatorRequired
	}

	w := &WebWorkflow{
		settings:    defaultSettings("web-workflow"),
		scraper:     scraper,
		chunker:     chunker,
		indexer:     indexer,
		coordinator: coordinator,
		pages:       storage.WebPages(store),
	}
	if err := w.apply(opts); err != nil {
		return nil, err
	}
	return w, nil
}

// PageID returns the document ID a scraped URL is stored under.
func PageID(url string) string {
	return core.IDFromContent(url).String()
}

// Process scrapes and indexes each URL under the batch coordinator.
// Duplicate URLs are rejected by the coordinator.
func (w *WebWorkflow) Process(ctx context.Context, urls []string) (*batch.Summary, error) {
	jobs := make([]batch.Job, len(urls))
	for i, raw := range urls {
		url := strings.TrimSpace(raw)
		jobs[i] = batch.Job{
			ID: url,
			Run: func(ctx context.Context, progress *batch.ItemProgress) (int, error) {
				return w.processURL(ctx, url, progress)
			},
		}
	}
	return w.coordinator.Run(ctx, EventWebProgress, jobs)
}

func (w *WebWorkflow) processURL(ctx context.Context, url string, progress *batch.ItemProgress) (int, error) {
	var page *core.WebPage
	err := w.call(ctx, func() error {
		var err error
		page, err = w.scraper.Scrape(ctx, url)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("scraping: %w", err)
	}
	if page == nil || strings.TrimSpace(page.Markdown) == "" {
		return 0, ErrNoContent
	}
	page.URL = url
	progress.Report(50)

	if err := w.store(ctx, func() error { return w.pages.SetAll(ctx, *page) }); err != nil {
		return 0, fmt.Errorf("storing page: %w", err)
	}

	chunks, err := w.chunker.Chunk([]core.PageMarkdown{{PageNumber: 1, RawText: page.Markdown}})
	if err != nil {
		return 0, fmt.Errorf("chunking: %w", err)
	}
	if len(chunks) == 0 {
		return 0, ErrNoContent
	}
	progress.Report(75)

	docID := PageID(url)
	if _, err := w.indexer.DeleteByFilter(ctx, w.namespace, indexing.Filter{indexing.Eq(MetaFileID, docID)}); err != nil {
		return 0, fmt.Errorf("removing previous vectors: %w", err)
	}

	meta := map[string]any{
		MetaURL:       url,
		MetaTitle:     page.Title,
		MetaFileID:    docID,
		MetaType:      TypeWebPage,
		MetaSource:    SourceWebScraper,
		MetaCreatedAt: time.Now().Unix(),
	}
	progress.ReportSubPhase(0, len(chunks))
	_, err = w.indexer.Upload(ctx, w.namespace, chunks, meta, func(done, total int) {
		progress.ReportSubPhase(batch.Percent(done, total), total)
	})
	if err != nil {
		return 0, fmt.Errorf("indexing: %w", err)
	}

	w.logger.Info("web page processed", "url", url, "title", page.Title, "chunks", len(chunks))
	return len(chunks), nil
}

// Delete removes stored pages and their vectors.
func (w *WebWorkflow) Delete(ctx context.Context, urls []string) error {
	ids := make([]string, len(urls))
	for i, u := range urls {
		ids[i] = PageID(strings.TrimSpace(u))
		if err := w.pages.Delete(ctx, ids[i]); err != nil {
			return fmt.Errorf("deleting page %s: %w", u, err)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	_, err := w.indexer.DeleteByFilter(ctx, w.namespace, indexing.DeleteFilter(map[string]any{MetaFileID: ids}))
	return err
}
