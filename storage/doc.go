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


// Package storage defines the record store used alongside the vector index.
//
// The pipeline needs three relational collaborators: collection lookup,
// document lookup and status tracking, and an append-only query history.
// Each is a repository interface here, bundled by RecordStore, with two
// implementations:
//
//   - storage/badger: embedded BadgerDB, the default
//   - storage/postgres: PostgreSQL through bun
//
// storage/badger also implements EmbeddingCacheRepository, used by
// ai.CachedEmbedder.
//
// # Serialization
//
// Badger values are MUS-encoded with Writer and Reader. Writer appends
// fields in order and Reader consumes them in the same order, remembering
// the first failure:
//
//	r := storage.NewReader(data)
//	id := core.ID(r.Uint64())
//	name := r.String()
//	if err := r.Err(); err != nil {
//	    return err
//	}
//
// # Usage
//
//	store, err := badger.OpenRecordStore(backend)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	c, err := store.Collections().CreateCollection(ctx, &core.Collection{Name: "papers"})
//
// Use in tests with in-memory storage:
//
//	store, backend, err := badger.NewMemoryRecordStore()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
