package badger

import (
	"encoding/binary"
	"time"

	"github.com/poiesic/docqa/core"
)

// Key prefixes for different data types
const (
	collectionPrefix     = "coll:"
	collectionNamePrefix = "collname:"
	collectionIDSeq      = "collseq"
	documentPrefix       = "doc:"
	documentByCollPrefix = "doccoll:"
	documentIDSeq        = "docseq"
	queryPrefix          = "qry:"
	queryByCollPrefix    = "qrycoll:"
	queryIDSeq           = "qryseq"
	embeddingCachePrefix = "embc:"
)

// appendUint64 writes v in BigEndian order so lexicographic sort matches numeric sort.
func appendUint64(buf []byte, v uint64) []byte {
	return binary.BigEndian.AppendUint64(buf, v)
}

// makeCollectionKey generates a key for a collection by ID.
func makeCollectionKey(id core.ID) []byte {
	return appendUint64([]byte(collectionPrefix), uint64(id))
}

// makeCollectionNameKey generates the uniqueness key for a collection name.
func makeCollectionNameKey(name string) []byte {
	return append([]byte(collectionNamePrefix), name...)
}

// makeDocumentKey generates a key for a document by ID.
func makeDocumentKey(id core.ID) []byte {
	return appendUint64([]byte(documentPrefix), uint64(id))
}

// makeDocumentByCollectionKey generates a composite key for the collection index.
// Format: prefix:collectionID:documentID
func makeDocumentByCollectionKey(collectionID, documentID core.ID) []byte {
	return appendUint64(makePartialDocumentByCollectionKey(collectionID), uint64(documentID))
}

// makePartialDocumentByCollectionKey generates the prefix of a collection's documents.
func makePartialDocumentByCollectionKey(collectionID core.ID) []byte {
	return appendUint64([]byte(documentByCollPrefix), uint64(collectionID))
}

// makeQueryKey generates a key for a query record by ID.
func makeQueryKey(id core.ID) []byte {
	return appendUint64([]byte(queryPrefix), uint64(id))
}

// makeQueryByCollectionKey generates a composite key for the per-collection date index.
// Format: prefix:collectionID:timestamp:queryID
func makeQueryByCollectionKey(collectionID core.ID, ts time.Time, id core.ID) []byte {
	buf := makePartialQueryByCollectionKey(collectionID)
	buf = appendUint64(buf, uint64(ts.UnixMicro()))
	return appendUint64(buf, uint64(id))
}

// makePartialQueryByCollectionKey generates the prefix of a collection's query history.
func makePartialQueryByCollectionKey(collectionID core.ID) []byte {
	return appendUint64([]byte(queryByCollPrefix), uint64(collectionID))
}

// makeEmbeddingCacheKey generates a key for a cached embedding.
func makeEmbeddingCacheKey(key string) []byte {
	return append([]byte(embeddingCachePrefix), key...)
}

// binary64Suffix returns the trailing BigEndian uint64 of a composite key.
func binary64Suffix(key []byte) uint64 {
	return binary.BigEndian.Uint64(key[len(key)-8:])
}
