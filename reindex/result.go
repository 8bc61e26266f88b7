package reindex

import (
	"errors"
	"fmt"

	"github.com/poiesic/docqa/core"
)

// Result summarizes a collection run.
type Result struct {
	Success        bool     `json:"success"`
	CollectionName string   `json:"collection_name,omitempty"`
	PDFsProcessed  int      `json:"pdfs_processed"`
	TotalPDFs      int      `json:"total_pdfs"`
	ChunksCreated  int      `json:"chunks_created"`
	Errors         []string `json:"errors"`
	BatchSize      int      `json:"batch_size,omitempty"`
	BatchSizes     []int    `json:"batch_sizes,omitempty"`
	Message        string   `json:"message,omitempty"`
	Error          string   `json:"error,omitempty"`
}

// DocumentResult summarizes a single-document run.
type DocumentResult struct {
	Success       bool   `json:"success"`
	Filename      string `json:"pdf_filename,omitempty"`
	ChunksCreated int    `json:"chunks_created"`
	Message       string `json:"message,omitempty"`
	Error         string `json:"error,omitempty"`
}

func failed(format string, args ...any) *Result {
	return &Result{Success: false, Errors: []string{}, Error: fmt.Sprintf(format, args...)}
}

// describeFailure renders a processing error as a per-document message.
func describeFailure(doc *core.Document, err error) string {
	switch {
	case errors.Is(err, core.ErrFileNotFound):
		return fmt.Sprintf("File not found: %s", doc.FilePath)
	case errors.Is(err, core.ErrEmptyText):
		return fmt.Sprintf("No text extracted from %s", doc.Filename)
	case errors.Is(err, core.ErrNoChunks):
		return fmt.Sprintf("No chunks created from %s", doc.Filename)
	case errors.Is(err, core.ErrEmbedding):
		return fmt.Sprintf("Embedding generation failed for %s: %v", doc.Filename, err)
	case errors.Is(err, core.ErrIndex):
		return fmt.Sprintf("Index storage failed for %s: %v", doc.Filename, err)
	}
	return fmt.Sprintf("Error processing %s: %v", doc.Filename, err)
}
