// Package ingestion turns stored files into indexed chunks.
//
// Processor runs the per-document pipeline (extract, chunk, embed,
// upsert) and is shared with the re-indexer. Pipeline registers documents
// in the record store as pending and processes them on an ants worker
// pool, moving each to processed or failed.
package ingestion
