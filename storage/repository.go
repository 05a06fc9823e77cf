package storage

import (
	"context"
	"slices"
	"strings"

	"github.com/poiesic/docsift/core"
)

// Repository is a typed view over one collection of a DocumentStore.
type Repository[T any] struct {
	store      DocumentStore
	collection string
	idOf       func(T) string
}

// NewRepository creates a typed view. idOf returns the document ID of a
// record; it may return "" to let the store generate one.
func NewRepository[T any](store DocumentStore, collection string, idOf func(T) string) *Repository[T] {
	return &Repository[T]{store: store, collection: collection, idOf: idOf}
}

// Collection returns the collection name.
func (r *Repository[T]) Collection() string {
	return r.collection
}

// Create stores a new record and returns its ID.
func (r *Repository[T]) Create(ctx context.Context, v T) (string, error) {
	fields, err := ToFields(v)
	if err != nil {
		return "", err
	}
	return r.store.Create(ctx, r.collection, r.idOf(v), fields)
}

// Get retrieves a record by ID.
// Returns ErrNotFound if the record doesn't exist.
func (r *Repository[T]) Get(ctx context.Context, id string) (*T, error) {
	doc, err := r.store.Get(ctx, r.collection, id)
	if err != nil {
		return nil, err
	}
	return decode[T](doc)
}

// Query returns records matching all conditions, ordered by ID. Value
// lists longer than MaxInValues are split into several store queries.
func (r *Repository[T]) Query(ctx context.Context, where ...Where) ([]*T, error) {
	seen := make(map[string]*Document)
	for _, q := range SplitIn(where, MaxInValues) {
		docs, err := r.store.Query(ctx, r.collection, q...)
		if err != nil {
			return nil, err
		}
		for _, doc := range docs {
			seen[doc.ID] = doc
		}
	}

	docs := make([]*Document, 0, len(seen))
	for _, doc := range seen {
		docs = append(docs, doc)
	}
	slices.SortFunc(docs, func(a, b *Document) int { return strings.Compare(a.ID, b.ID) })

	out := make([]*T, 0, len(docs))
	for _, doc := range docs {
		v, err := decode[T](doc)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Update merges fields into an existing record.
func (r *Repository[T]) Update(ctx context.Context, id string, fields Fields) error {
	return r.store.Update(ctx, r.collection, id, fields)
}

// Delete removes a record.
func (r *Repository[T]) Delete(ctx context.Context, id string) error {
	return r.store.Delete(ctx, r.collection, id)
}

// SetAll creates or replaces records in one batch. Every record must
// carry an ID.
func (r *Repository[T]) SetAll(ctx context.Context, items ...T) error {
	if len(items) == 0 {
		return nil
	}
	writes := make([]Write, 0, len(items))
	for _, v := range items {
		id := r.idOf(v)
		if id == "" {
			return core.ErrMissingID
		}
		fields, err := ToFields(v)
		if err != nil {
			return err
		}
		writes = append(writes, Write{Kind: WriteSet, Collection: r.collection, ID: id, Fields: fields})
	}
	return r.store.Batch(ctx, writes)
}

// DeleteWhere removes every record matching the conditions and returns
// how many were removed.
func (r *Repository[T]) DeleteWhere(ctx context.Context, where ...Where) (int, error) {
	var writes []Write
	seen := make(map[string]struct{})
	for _, q := range SplitIn(where, MaxInValues) {
		docs, err := r.store.Query(ctx, r.collection, q...)
		if err != nil {
			return 0, err
		}
		for _, doc := range docs {
			if _, dup := seen[doc.ID]; dup {
				continue
			}
			seen[doc.ID] = struct{}{}
			writes = append(writes, Write{Kind: WriteDelete, Collection: r.collection, ID: doc.ID})
		}
	}
	if len(writes) == 0 {
		return 0, nil
	}
	return len(writes), r.store.Batch(ctx, writes)
}

func decode[T any](doc *Document) (*T, error) {
	fields := make(Fields, len(doc.Fields)+1)
	for k, v := range doc.Fields {
		fields[k] = v
	}
	fields["id"] = doc.ID

	var v T
	if err := FromFields(fields, &v); err != nil {
		return nil, err
	}
	return &v, nil
}
