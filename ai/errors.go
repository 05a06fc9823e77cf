package ai

import "errors"

var (
	// ErrEmptyQuery is returned when a query embedding is requested for empty text.
	ErrEmptyQuery = errors.New("query text is empty")

	// ErrEmbeddingCountMismatch is returned when a provider returns a different
	// number of vectors than texts submitted.
	ErrEmbeddingCountMismatch = errors.New("embedding count mismatch")

	// ErrEmptyResponse is returned when a model returns no choices.
	ErrEmptyResponse = errors.New("model returned no content")
)
