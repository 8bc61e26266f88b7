// Package index defines the vector index used for retrieval.
//
// One physical index holds the chunks of every collection. Each chunk is
// stored with scalar metadata (see ChunkToMetadata) including its
// collection_id, and queries and deletes are scoped by that key.
//
// Backends:
//
//   - index/badger: brute-force cosine scan over BadgerDB, the default
//   - index/chromem: chromem-go with metadata where filters
//
// index/indextest runs the same behavior tests against both.
package index
