package badger

import (
	"fmt"
	"strings"

	"github.com/poiesic/docsift/storage"
)

// Key prefixes for different data types
const (
	documentPrefix = "doc"
	progressPrefix = "progress"
)

// validateCollection rejects names that would let one collection's key
// range overlap another's.
func validateCollection(collection string) error {
	if collection == "" || strings.Contains(collection, ":") {
		return fmt.Errorf("%w: %q", storage.ErrInvalidCollection, collection)
	}
	return nil
}

// makeDocumentKey generates a key for a document.
// Format: prefix:collection:id
func makeDocumentKey(collection, id string) []byte {
	return []byte(documentPrefix + ":" + collection + ":" + id)
}

// makeCollectionPrefix generates the key prefix shared by a collection.
// Format: prefix:collection:
func makeCollectionPrefix(collection string) []byte {
	return []byte(documentPrefix + ":" + collection + ":")
}

// makeProgressKey generates a key for a run's progress snapshot.
func makeProgressKey(runID string) []byte {
	return []byte(progressPrefix + ":" + runID)
}
