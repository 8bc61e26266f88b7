// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package chunker

import (
	"fmt"
	"slices"
	"strings"

	"github.com/poiesic/docqa/core"
)

const (
	// DefaultChunkSize is the default window length in words.
	DefaultChunkSize = 600
	// DefaultChunkOverlap is the default number of words shared by neighbouring chunks.
	DefaultChunkOverlap = 100
)

// Options controls the segmentation window.
type Options struct {
	ChunkSize    int
	ChunkOverlap int
}

// DefaultOptions returns the default window of 600 words with 100 words of overlap.
func DefaultOptions() Options {
	return Options{
		ChunkSize:    DefaultChunkSize,
		ChunkOverlap: DefaultChunkOverlap,
	}
}

// Validate rejects windows that would not advance.
func (o Options) Validate() error {
	if o.ChunkSize < 1 || o.ChunkOverlap < 0 || o.ChunkOverlap >= o.ChunkSize {
		return fmt.Errorf("%w: %w (size=%d, overlap=%d)",
			core.ErrChunking, core.ErrInvalidChunkOptions, o.ChunkSize, o.ChunkOverlap)
	}
	return nil
}

// Source carries the provenance copied onto every chunk of a document.
type Source struct {
	ArticleTitle   string
	SourceFilename string
	CollectionID   string
	DocumentID     core.ID
	Pages          core.PageMap
}

// Chunk splits text into overlapping word windows.
//
// The text is tokenized on whitespace. Each window holds up to ChunkSize words
// joined by single spaces and the next window starts ChunkSize-ChunkOverlap
// words later, so consecutive chunks share exactly ChunkOverlap words.
// Empty text yields no chunks and no error.
func Chunk(text string, src Source, opts Options) ([]core.Chunk, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	words := strings.Fields(text)
	n := len(words)
	if n == 0 {
		return []core.Chunk{}, nil
	}

	step := opts.ChunkSize - opts.ChunkOverlap
	chunks := make([]core.Chunk, 0, (n+step-1)/step)
	for start, seq := 0, 0; start < n; start, seq = start+step, seq+1 {
		end := min(start+opts.ChunkSize, n)
		chunks = append(chunks, core.Chunk{
			ID:             core.ChunkID(src.SourceFilename, seq),
			Text:           strings.Join(words[start:end], " "),
			ArticleTitle:   src.ArticleTitle,
			SourceFilename: src.SourceFilename,
			PageNumbers:    inferPages(src.Pages, start, n),
			SequenceID:     seq,
			CollectionID:   src.CollectionID,
			DocumentID:     src.DocumentID,
		})
	}
	return chunks, nil
}

// inferPages maps a word offset to pages by its position ratio in the text.
// The result is approximate.
func inferPages(pages core.PageMap, start, total int) []int {
	if len(pages) == 0 {
		return []int{}
	}
	bucket := int(float64(start) / float64(total) * float64(len(pages)))
	if p, ok := pages[bucket]; ok {
		return slices.Clone(p)
	}
	if p, ok := pages[0]; ok {
		return slices.Clone(p)
	}
	return []int{1}
}
