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


// Package storage provides the document store abstraction used by ingestion.
//
// A DocumentStore keeps schemaless documents in named collections and
// answers equality and membership queries. Typed access goes through
// Repository, which converts core records to and from their stored Fields
// using msgpack keyed by the records' JSON names:
//
//	store, err := badger.Open("/path/to/db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	files := storage.Files(store)
//	id, err := files.Create(ctx, core.File{Name: "rfp.pdf"})
//
// # Query Limits
//
// Membership conditions carry at most MaxInValues values per store query.
// Repository.Query and Repository.DeleteWhere split longer lists and merge
// the results by document ID, so callers may pass lists of any length.
//
// # Thread Safety
//
// All store implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
