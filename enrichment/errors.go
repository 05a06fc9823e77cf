package enrichment

import "errors"

var (
	// ErrDescriberRequired is returned when an Enricher is built without a vision service.
	ErrDescriberRequired = errors.New("image describer is required")

	// ErrInvalidDataURI is returned for strings that are not base64 image data URIs.
	ErrInvalidDataURI = errors.New("invalid image data URI")

	// ErrUndecodableImage is returned when image bytes are in no known format.
	ErrUndecodableImage = errors.New("cannot decode image")
)
