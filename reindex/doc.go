// Package reindex rebuilds the vector index entries of a collection from its
// source documents.
//
// A run clears every chunk tagged with the collection, then re-extracts,
// re-chunks and re-embeds each document in batches. A failing document is
// recorded in the run's Result and never stops the others. Overlapping runs
// for the same collection share a single execution.
package reindex
