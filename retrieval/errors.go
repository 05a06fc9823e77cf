package retrieval

import "errors"

var (
	ErrEmbedderRequired = errors.New("embedder is required")
	ErrIndexRequired    = errors.New("vector index is required")
	ErrStoreRequired    = errors.New("document store is required")
	ErrEmptyQuery       = errors.New("query text is empty")
	ErrInvalidTopK      = errors.New("top k must be positive")
	ErrInvalidOption    = errors.New("invalid option")
)
