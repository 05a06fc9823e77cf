package highlight

import "errors"

var (
	ErrSourceEmpty    = errors.New("pdf source is empty")
	ErrFetchFailed    = errors.New("failed to fetch pdf")
	ErrTooLarge       = errors.New("pdf exceeds size limit")
	ErrInvalidPDF     = errors.New("invalid pdf")
	ErrPageOutOfRange = errors.New("page out of range")
	ErrNoStrategies   = errors.New("at least one strategy is required")
)
