// Package indexing embeds chunks and keeps their vectors in a vector store.
//
// The Indexer uploads chunks in fixed-size batches, attaching the chunk text,
// page numbers and caller metadata to every vector, and deletes either by
// vector ID or by metadata filter. Filters use the Mongo-style grammar
// common to hosted vector stores ($eq, $in, $gt, $lt and $and); Filter
// holds the parsed form and can evaluate itself against decoded metadata
// for stores that cannot.
//
// Store adapters live in subpackages: chromem for an embedded store and
// pgvector for PostgreSQL.
package indexing
