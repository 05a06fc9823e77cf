// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package ai provides abstractions for AI services used in docsift.
//
// This package defines interfaces for AI operations including text embeddings,
// image description and curated Q&A extraction. Ingestion and retrieval code
// depend on these abstractions rather than concrete implementations.
//
// # Interfaces
//
//   - Embedder: Generates document and query embeddings
//   - ImageDescriber: Produces structured analyses of document images
//   - QAExtractor: Extracts reusable question/answer pairs from text
//   - AIProvider: Aggregates AI services for convenient initialization
//
// # Implementation Packages
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs via langchaingo
//   - ai/sdk: Fan-out embedder using the official OpenAI Go SDK, one request per document
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewProvider, openai.NewEmbedder, sdk.NewEmbedder)
// return INTERFACE types to enforce abstraction and prevent accidental coupling
// to concrete implementations.
//
//	provider, err := openai.NewProvider(config)  // returns ai.AIProvider
//
// Test utility constructors (mock.NewMockEmbedder, mock.NewMockQAExtractor)
// return CONCRETE types to enable test assertions and behavior injection.
//
//	mockEmbed := mock.NewMockEmbedder()  // returns *mock.MockEmbedder
//	mockEmbed.EmbedQueryFunc = ...       // needs concrete type
//	count := mockEmbed.CallCount()       // test assertion
//
// # Usage Example
//
//	config := ai.NewConfig(ai.WithEmbeddingMode(ai.EmbeddingModeFanOut))
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vectors, err := provider.Embedder().EmbedDocuments(ctx, []string{"chunk one", "chunk two"})
//	query, err := provider.Embedder().EmbedQuery(ctx, "what is the warranty period")
package ai
