package chunking

import "errors"

var (
	// ErrCounterRequired is returned when a chunker is built without a token counter.
	ErrCounterRequired = errors.New("token counter is required")

	// ErrInvalidBudget is returned for non-positive or inconsistent token budgets.
	ErrInvalidBudget = errors.New("invalid token budget")
)
