// Package ingestion runs the document workflows on top of the batch
// coordinator.
//
// FileWorkflow takes uploaded files through OCR, structural extraction,
// image enrichment, persistence, header-aware chunking and indexing. Each
// file's status and progress are mirrored into its stored metadata.
//
// QAWorkflow extracts curated question/answer pairs from parsed files using
// page-preserving chunks, stores them and indexes them with type
// curated_qa. Unparsed files are parsed first when a FileWorkflow is
// supplied through WithFileWorkflow.
//
// WebWorkflow scrapes URLs, stores the markdown and indexes it as a single
// page document.
//
// All workflows report progress through the coordinator's sink. One failed
// item never fails its batch; failures are listed in the returned summary.
package ingestion
