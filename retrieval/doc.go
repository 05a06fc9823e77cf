// Package retrieval answers free-text questions from the vector index,
// either as raw scored matches or as per-document context blocks with the
// pages each block was drawn from.
package retrieval
