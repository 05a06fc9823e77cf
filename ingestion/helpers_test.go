package ingestion

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/docsift/ai/mock"
	"github.com/poiesic/docsift/batch"
	"github.com/poiesic/docsift/chunking"
	"github.com/poiesic/docsift/core"
	"github.com/poiesic/docsift/indexing"
	"github.com/poiesic/docsift/indexing/chromem"
	"github.com/poiesic/docsift/ocr"
	"github.com/poiesic/docsift/storage"
	"github.com/poiesic/docsift/storage/badger"
	"github.com/stretchr/testify/require"
)

type fakeOCR struct {
	mu    sync.Mutex
	pages map[string][]string
	fail  map[string]error
	calls map[string]int
}

func newFakeOCR() *fakeOCR {
	return &fakeOCR{
		pages: map[string][]string{},
		fail:  map[string]error{},
		calls: map[string]int{},
	}
}

func (f *fakeOCR) Process(_ context.Context, url string) (*ocr.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[url]++
	if err := f.fail[url]; err != nil {
		return nil, err
	}
	res := &ocr.Result{}
	for i, md := range f.pages[url] {
		res.Pages = append(res.Pages, ocr.Page{Index: i, Markdown: md, Width: 612, Height: 792})
	}
	return res, nil
}

func (f *fakeOCR) Calls(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

type recordingSink struct {
	mu     sync.Mutex
	events []batch.Event
}

func (s *recordingSink) Send(_ context.Context, ev batch.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *recordingSink) Last() batch.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events[len(s.events)-1]
}

type harness struct {
	store       *badger.Store
	index       *chromem.Index
	indexer     *indexing.Indexer
	embedder    *mock.MockEmbedder
	sink        *recordingSink
	coordinator *batch.Coordinator
	ocr         *fakeOCR
	files       *FileWorkflow
}

func testOptions() []Option {
	return []Option{WithPageBatchSize(2), WithRetry(2, time.Millisecond)}
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	store, err := badger.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	index, err := chromem.Open("")
	require.NoError(t, err)

	embedder := mock.NewMockEmbedder()
	indexer, err := indexing.NewIndexer(embedder, index, indexing.WithBatchSize(2))
	require.NoError(t, err)

	sink := &recordingSink{}
	coordinator, err := batch.NewCoordinator(sink, batch.WithBatchSize(2), batch.WithConcurrency(2))
	require.NoError(t, err)
	t.Cleanup(coordinator.Release)

	chunker, err := chunking.NewHeaderChunker(chunking.WordCounter{})
	require.NoError(t, err)

	h := &harness{
		store:       store,
		index:       index,
		indexer:     indexer,
		embedder:    embedder,
		sink:        sink,
		coordinator: coordinator,
		ocr:         newFakeOCR(),
	}
	h.files, err = NewFileWorkflow(store, h.ocr, chunker, indexer, coordinator, testOptions()...)
	require.NoError(t, err)
	return h
}

// addFile registers a file whose OCR output is pages.
func (h *harness) addFile(t *testing.T, name string, pages ...string) string {
	t.Helper()
	url := fmt.Sprintf("https://files.example.com/%s", name)
	h.ocr.pages[url] = pages
	id, err := h.files.Register(context.Background(), core.File{Name: name, Type: "pdf", URL: url, UserID: "user-1"})
	require.NoError(t, err)
	return id
}

func (h *harness) file(t *testing.T, id string) *core.File {
	t.Helper()
	f, err := storage.Files(h.store).Get(context.Background(), id)
	require.NoError(t, err)
	return f
}

// vectors lists the vectors in the default namespace matching filter.
func (h *harness) vectors(t *testing.T, filter ...indexing.Condition) []indexing.Match {
	t.Helper()
	matches, err := h.index.Query(context.Background(), DefaultNamespace, indexing.QueryRequest{
		Vector: make([]float32, 8),
		Filter: filter,
		TopK:   1000,
	})
	require.NoError(t, err)
	return matches
}
