package index

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/poiesic/docqa/core"
)

// Metadata keys stored alongside each chunk.
const (
	MetaArticleTitle   = "article_title"
	MetaSourceFilename = "source_filename"
	MetaPageNumbers    = "page_numbers"
	MetaCollectionID   = "collection_id"
	MetaDocumentID     = "document_id"
	MetaSequenceID     = "sequence_id"
)

// EncodePageNumbers renders pages as a JSON array string.
func EncodePageNumbers(pages []int) string {
	if pages == nil {
		pages = []int{}
	}
	b, err := json.Marshal(pages)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// DecodePageNumbers parses page numbers written by any producer of this
// index: JSON arrays, Python-style lists or tuples, bare comma-separated
// lists and single integers. Anything unparseable yields an empty list.
func DecodePageNumbers(s string) []int {
	s = strings.TrimSpace(s)
	if s == "" {
		return []int{}
	}

	var pages []int
	if err := json.Unmarshal([]byte(s), &pages); err == nil {
		if pages == nil {
			return []int{}
		}
		return pages
	}

	s = strings.TrimPrefix(strings.TrimPrefix(s, "["), "(")
	s = strings.TrimSuffix(strings.TrimSuffix(s, "]"), ")")
	pages = []int{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return []int{}
		}
		pages = append(pages, n)
	}
	return pages
}

// ChunkToMetadata flattens a chunk's provenance into scalar strings.
func ChunkToMetadata(c core.Chunk) map[string]string {
	return map[string]string{
		MetaArticleTitle:   c.ArticleTitle,
		MetaSourceFilename: c.SourceFilename,
		MetaPageNumbers:    EncodePageNumbers(c.PageNumbers),
		MetaCollectionID:   c.CollectionID,
		MetaDocumentID:     c.DocumentID.String(),
		MetaSequenceID:     strconv.Itoa(c.SequenceID),
	}
}

// MetadataToChunk rebuilds a chunk from its ID, text and metadata.
// Missing or malformed numeric fields decode as zero.
func MetadataToChunk(id, text string, md map[string]string) core.Chunk {
	seq, _ := strconv.Atoi(md[MetaSequenceID])
	docID, _ := core.ParseID(md[MetaDocumentID])
	return core.Chunk{
		ID:             id,
		Text:           text,
		ArticleTitle:   md[MetaArticleTitle],
		SourceFilename: md[MetaSourceFilename],
		PageNumbers:    DecodePageNumbers(md[MetaPageNumbers]),
		SequenceID:     seq,
		CollectionID:   md[MetaCollectionID],
		DocumentID:     docID,
	}
}
