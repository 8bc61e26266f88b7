// Package extract reads document text for ingestion.
//
// FileExtractor handles PDFs through ledongthuc/pdf and plain text or
// Markdown files directly. Each result carries a page map the chunker uses
// to attribute chunks to pages.
package extract
