package storage

import (
	"context"

	"github.com/poiesic/docsift/core"
)

// Collection names used by the ingestion workflows.
const (
	CollectionFiles       = "files"
	CollectionTables      = "tables"
	CollectionImages      = "images"
	CollectionTextContent = "text_content"
	CollectionCuratedQAs  = "curated_qas"
	CollectionWebPages    = "web_pages"
)

// Fields is the stored form of a document. Keys follow the JSON names of
// the core types.
type Fields map[string]any

// Document is a stored record and its collection-unique ID.
type Document struct {
	ID     string
	Fields Fields
}

// WriteKind selects the operation of a batched write.
type WriteKind int

const (
	// WriteSet creates or replaces a document.
	WriteSet WriteKind = iota
	// WriteMerge merges fields into an existing document.
	WriteMerge
	// WriteDelete removes a document.
	WriteDelete
)

// Write is one operation of a Batch.
type Write struct {
	Kind       WriteKind
	Collection string
	ID         string
	Fields     Fields
}

// DocumentStore is a schemaless document database organised in collections.
// Implementations must be thread-safe and support concurrent access.
type DocumentStore interface {
	// Create stores fields under id, generating an ID when id is empty.
	// Returns ErrDuplicateKey if the document already exists.
	Create(ctx context.Context, collection, id string, fields Fields) (string, error)

	// Get retrieves a single document.
	// Returns ErrNotFound if the document doesn't exist.
	Get(ctx context.Context, collection, id string) (*Document, error)

	// Query returns every document of the collection matching all conditions,
	// ordered by ID. An OpIn condition may carry at most MaxInValues values.
	Query(ctx context.Context, collection string, where ...Where) ([]*Document, error)

	// Update merges fields into an existing document.
	// Returns ErrNotFound if the document doesn't exist.
	Update(ctx context.Context, collection, id string, fields Fields) error

	// Delete removes a document. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection, id string) error

	// Batch applies writes. A failed batch leaves earlier chunks committed
	// when the backend had to split it.
	Batch(ctx context.Context, writes []Write) error

	// Close releases the store.
	Close() error
}

// ProgressRepository persists coordinator progress snapshots.
type ProgressRepository interface {
	// SaveProgress stores the snapshot of a run, replacing earlier ones.
	SaveProgress(ctx context.Context, runID string, records map[string]core.ProgressRecord) error

	// LoadProgress returns the last snapshot of a run.
	// Returns nil, nil if the run is unknown.
	LoadProgress(ctx context.Context, runID string) (map[string]core.ProgressRecord, error)
}
