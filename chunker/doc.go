// Package chunker splits extracted document text into overlapping,
// provenance-tagged word windows.
//
// Chunk ids are derived from the source filename and the window's sequence
// number, so chunking the same document twice produces the same ids and a
// re-index overwrites rather than duplicates.
package chunker
