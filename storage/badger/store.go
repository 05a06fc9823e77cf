package badger

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/poiesic/docsift/storage"
)

// Store implements storage.DocumentStore on BadgerDB. Documents are msgpack
// encoded under one key each; queries scan the collection's key range.
type Store struct {
	backend *Backend
	newID   func() string
}

var _ storage.DocumentStore = (*Store)(nil)

// NewStore creates a document store over backend. The store owns the
// backend and closes it on Close.
func NewStore(backend *Backend) *Store {
	return &Store{
		backend: backend,
		newID:   uuid.NewString,
	}
}

// Open opens a persistent store at path.
func Open(path string) (*Store, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, err
	}
	return NewStore(backend), nil
}

// Backend returns the underlying backend.
func (s *Store) Backend() *Backend {
	return s.backend
}

// Close closes the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// Create stores a new document.
func (s *Store) Create(ctx context.Context, collection, id string, fields storage.Fields) (string, error) {
	if err := validateCollection(collection); err != nil {
		return "", err
	}
	if id == "" {
		id = s.newID()
	}
	value, err := storage.Marshal(fields)
	if err != nil {
		return "", err
	}

	key := makeDocumentKey(collection, id)
	err = s.backend.WithTx(func(tx *badger.Txn) error {
		if _, err := tx.Get(key); err == nil {
			return fmt.Errorf("%w: %s/%s", storage.ErrDuplicateKey, collection, id)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := tx.Set(key, value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return "", err
	}
	return id, nil
}

// Get retrieves a document.
func (s *Store) Get(ctx context.Context, collection, id string) (*storage.Document, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}
	var doc *storage.Document
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		fields, err := readFields(tx, makeDocumentKey(collection, id))
		if err != nil {
			return err
		}
		doc = &storage.Document{ID: id, Fields: fields}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Query scans a collection and returns the documents matching every
// condition, ordered by ID.
func (s *Store) Query(ctx context.Context, collection string, where ...storage.Where) ([]*storage.Document, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}
	for _, w := range where {
		if err := w.Validate(); err != nil {
			return nil, err
		}
	}

	var docs []*storage.Document
	prefix := makeCollectionPrefix(collection)
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := iter.Item()
			var fields storage.Fields
			if err := item.Value(func(val []byte) error {
				return storage.Unmarshal(val, &fields)
			}); err != nil {
				return err
			}
			if !storage.MatchesAll(fields, where) {
				continue
			}
			id := string(item.KeyCopy(nil)[len(prefix):])
			docs = append(docs, &storage.Document{ID: id, Fields: fields})
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// Update merges fields into an existing document.
func (s *Store) Update(ctx context.Context, collection, id string, fields storage.Fields) error {
	if err := validateCollection(collection); err != nil {
		return err
	}
	return s.backend.WithTx(func(tx *badger.Txn) error {
		if err := mergeFields(tx, makeDocumentKey(collection, id), fields); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Delete removes a document.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := validateCollection(collection); err != nil {
		return err
	}
	return s.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Delete(makeDocumentKey(collection, id)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Batch applies writes in as few transactions as Badger allows.
func (s *Store) Batch(ctx context.Context, writes []storage.Write) error {
	for _, w := range writes {
		if err := validateCollection(w.Collection); err != nil {
			return err
		}
		if w.ID == "" {
			return fmt.Errorf("%w: batch write to %s has no id", storage.ErrInvalidQuery, w.Collection)
		}
	}

	return s.backend.WithBatch(func(apply func(op func(tx *badger.Txn) error) error) error {
		for _, w := range writes {
			if err := ctx.Err(); err != nil {
				return err
			}
			key := makeDocumentKey(w.Collection, w.ID)
			var op func(tx *badger.Txn) error
			switch w.Kind {
			case storage.WriteSet:
				value, err := storage.Marshal(w.Fields)
				if err != nil {
					return err
				}
				op = func(tx *badger.Txn) error { return tx.Set(key, value) }
			case storage.WriteMerge:
				op = func(tx *badger.Txn) error { return mergeFields(tx, key, w.Fields) }
			case storage.WriteDelete:
				op = func(tx *badger.Txn) error { return tx.Delete(key) }
			default:
				return fmt.Errorf("%w: unknown write kind %d", storage.ErrInvalidQuery, w.Kind)
			}
			if err := apply(op); err != nil {
				return err
			}
		}
		return nil
	})
}

func readFields(tx *badger.Txn, key []byte) (storage.Fields, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	var fields storage.Fields
	err = item.Value(func(val []byte) error {
		return storage.Unmarshal(val, &fields)
	})
	return fields, err
}

func mergeFields(tx *badger.Txn, key []byte, fields storage.Fields) error {
	current, err := readFields(tx, key)
	if err != nil {
		return err
	}
	if current == nil {
		current = storage.Fields{}
	}
	maps.Copy(current, fields)
	value, err := storage.Marshal(current)
	if err != nil {
		return err
	}
	return tx.Set(key, value)
}
