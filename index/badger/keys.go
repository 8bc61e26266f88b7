package badger

import (
	"encoding/binary"

	"github.com/poiesic/docqa/core"
)

// Key prefixes. Index names and collection IDs are length-prefixed so one
// name or tenant can never be a byte prefix of another.
const (
	chunkPrefix    = "vchunk:"
	documentPrefix = "vdoc:"
)

func appendSegment(buf []byte, s string) []byte {
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(s)))
	return append(buf, s...)
}

// makeChunkPrefix generates the prefix of every chunk in an index.
func makeChunkPrefix(name string) []byte {
	return appendSegment([]byte(chunkPrefix), name)
}

// makeCollectionPrefix generates the prefix of a collection's chunks.
// Format: prefix:name:collectionID
func makeCollectionPrefix(name, collectionID string) []byte {
	return appendSegment(makeChunkPrefix(name), collectionID)
}

// makeChunkKey generates the key of a chunk record.
// Format: prefix:name:collectionID:chunkID
func makeChunkKey(name, collectionID, chunkID string) []byte {
	return append(makeCollectionPrefix(name, collectionID), chunkID...)
}

// makeDocumentPrefix generates the prefix of a document's index entries.
// Format: prefix:name:documentID
func makeDocumentPrefix(name string, documentID core.ID) []byte {
	return binary.BigEndian.AppendUint64(appendSegment([]byte(documentPrefix), name), uint64(documentID))
}

// makeDocumentKey generates the document index entry of a chunk.
// Format: prefix:name:documentID:collectionID:chunkID
func makeDocumentKey(name string, documentID core.ID, collectionID, chunkID string) []byte {
	buf := appendSegment(makeDocumentPrefix(name, documentID), collectionID)
	return append(buf, chunkID...)
}

// chunkKeyFromDocumentKey recovers the chunk record key from a document index key.
func chunkKeyFromDocumentKey(name string, docKey []byte) []byte {
	tail := docKey[len(makeDocumentPrefix(name, 0)):]
	return append(makeChunkPrefix(name), tail...)
}
