package indexing

import "errors"

var (
	ErrEmbedderRequired = errors.New("embedder is required")
	ErrIndexRequired    = errors.New("vector index is required")
	ErrNamespaceEmpty   = errors.New("namespace is empty")
	ErrInvalidFilter    = errors.New("invalid filter")
	ErrEmptyFilter      = errors.New("filter matches everything")
	ErrInvalidOption    = errors.New("invalid option")
	ErrDeleteStalled    = errors.New("delete by filter made no progress")
)
