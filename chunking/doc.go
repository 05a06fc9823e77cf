// Package chunking cuts enriched page markdown into token-budgeted chunks
// for embedding.
//
// Two strategies share the Chunker interface. HeaderChunker serves general
// retrieval: headings are lifted out of the text and written back on top of
// every chunk, so a chunk reads on its own. PageChunker serves workflows
// that cite pages: headings stay inline and headed sections never join a
// chunk begun on an earlier page.
//
// Both count tokens with one TokenCounter regardless of the embedding model
// used later, and both record pages as a sorted set.
package chunking
