package ingestion

import "errors"

var (
	// ErrStoreRequired is returned when a document store is not provided.
	ErrStoreRequired = errors.New("document store required")

	// ErrOCRRequired is returned when an OCR service is not provided.
	ErrOCRRequired = errors.New("OCR service required")

	// ErrChunkerRequired is returned when a chunker is not provided.
	ErrChunkerRequired = errors.New("chunker required")

	// ErrIndexerRequired is returned when an indexer is not provided.
	ErrIndexerRequired = errors.New("indexer required")

	// ErrCoordinatorRequired is returned when a batch coordinator is not provided.
	ErrCoordinatorRequired = errors.New("coordinator required")

	// ErrQAExtractorRequired is returned when a Q&A extractor is not provided.
	ErrQAExtractorRequired = errors.New("Q&A extractor required")

	// ErrScraperRequired is returned when a web scraper is not provided.
	ErrScraperRequired = errors.New("scraper required")

	// ErrInvalidOption is returned when an option value is out of range.
	ErrInvalidOption = errors.New("invalid option")

	// ErrNoContent is returned when a document yields no usable text.
	ErrNoContent = errors.New("document has no content")

	// ErrFileNotParsed is returned when Q&A extraction meets a file that has
	// not been parsed and no file workflow is available to parse it.
	ErrFileNotParsed = errors.New("file is not parsed")

	// ErrAllSectionsFailed is returned when every section of a file failed
	// Q&A extraction.
	ErrAllSectionsFailed = errors.New("Q&A extraction failed for every section")
)
