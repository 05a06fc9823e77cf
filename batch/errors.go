package batch

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrNoItems is returned when a run is started with an empty item list.
	ErrNoItems = errors.New("no items to process")

	// ErrSinkRequired is returned when a coordinator is built without a sink.
	ErrSinkRequired = errors.New("progress sink is required")

	// ErrDuplicateItem is returned when two items share an ID.
	ErrDuplicateItem = errors.New("duplicate item id")
)

var (
	// ErrUnknownItem is returned when progress is reported for an untracked item.
	ErrUnknownItem = errors.New("unknown item")

	// ErrItemPanic wraps a recovered panic from an item's work function.
	ErrItemPanic = errors.New("item panicked")
)
