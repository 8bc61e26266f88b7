package core

import (
	"fmt"
	"strconv"
	"time"
)

// ID is a unique identifier for domain entities.
// Stores assign IDs from their sequences.
type ID uint64

// ParseID parses the decimal form of an ID, as produced by ID.String.
func ParseID(s string) (ID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid id %q", ErrValidation, s)
	}
	return ID(v), nil
}

// String returns the decimal form of the ID.
func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ChunkID builds the identifier of the sequenceID-th chunk of a source file.
// The same filename and sequence always yield the same id, which lets a
// re-index overwrite chunks in place.
func ChunkID(sourceFilename string, sequenceID int) string {
	return fmt.Sprintf("%s_chunk_%d", sourceFilename, sequenceID)
}

// PageMap maps a position bucket within extracted text to the page numbers
// that bucket was read from.
type PageMap map[int][]int

// Chunk is a bounded, provenance-tagged segment of a document's text.
type Chunk struct {
	ID             string
	Text           string
	ArticleTitle   string
	SourceFilename string
	PageNumbers    []int
	SequenceID     int    // Position within the document, starting at 0
	CollectionID   string // Logical tenant key, see Collection.TenantKey
	DocumentID     ID
}

// ScoredChunk is a retrieval hit. It is never persisted.
type ScoredChunk struct {
	Chunk Chunk
	Score float32
}

// Collection groups documents and is the tenancy boundary inside a shared index.
type Collection struct {
	ID          ID
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TenantKey returns the collection_id value stored on the collection's chunks.
func (c *Collection) TenantKey() string {
	return c.ID.String()
}

// DocumentStatus tracks a document through ingestion.
type DocumentStatus string

const (
	DocumentStatusPending   DocumentStatus = "pending"
	DocumentStatusProcessed DocumentStatus = "processed"
	DocumentStatusFailed    DocumentStatus = "failed"
)

// Document is a source file owned by a collection.
type Document struct {
	ID           ID
	CollectionID ID
	Title        string
	Filename     string
	FilePath     string
	Status       DocumentStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DisplayTitle returns the title, falling back to the filename.
func (d *Document) DisplayTitle() string {
	if d.Title != "" {
		return d.Title
	}
	return d.Filename
}

// QueryRecord is an answered question. Records are appended once and never mutated.
type QueryRecord struct {
	ID           ID
	CollectionID ID
	Question     string
	Answer       string
	SourcesCount int
	Timestamp    time.Time
}
