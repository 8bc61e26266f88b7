package rag

import (
	"errors"
	"unicode/utf8"

	"github.com/poiesic/docqa/core"
)

// PreviewLength is the number of characters of chunk text kept in a Source.
const PreviewLength = 200

// ErrorAnswer is the answer text of a failed pipeline run.
const ErrorAnswer = "I'm sorry, an error occurred while processing your question."

// Source attributes an answer to one retrieved chunk.
type Source struct {
	SourcePDF    string  `json:"source_pdf"`
	ArticleTitle string  `json:"article_title"`
	PageNumbers  []int   `json:"page_numbers"`
	ChunkPreview string  `json:"chunk_preview"`
	Score        float32 `json:"score"`
}

// Answer is the outcome of a question.
type Answer struct {
	Success        bool     `json:"success"`
	Answer         string   `json:"answer,omitempty"`
	Sources        []Source `json:"sources"`
	CollectionName string   `json:"collection_name,omitempty"`
	SourcesCount   int      `json:"sources_count"`
	Question       string   `json:"question,omitempty"`
	Error          string   `json:"error,omitempty"`
}

// newSource builds the attribution of hit.
func newSource(hit core.ScoredChunk) Source {
	pages := hit.Chunk.PageNumbers
	if pages == nil {
		pages = []int{}
	}
	return Source{
		SourcePDF:    hit.Chunk.SourceFilename,
		ArticleTitle: hit.Chunk.ArticleTitle,
		PageNumbers:  pages,
		ChunkPreview: Preview(hit.Chunk.Text),
		Score:        hit.Score,
	}
}

// Preview cuts text to PreviewLength characters and marks the cut with "...".
func Preview(text string) string {
	if utf8.RuneCountInString(text) <= PreviewLength {
		return text
	}
	return string([]rune(text)[:PreviewLength]) + "..."
}

// questionMessage renders a question validation error for display.
func questionMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrQuestionBlank):
		return "Question cannot be empty"
	case errors.Is(err, core.ErrQuestionTooShort):
		return "Question is too short"
	case errors.Is(err, core.ErrQuestionTooLong):
		return "Question is too long (max 1000 characters)"
	}
	return err.Error()
}
