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


package core

import (
	"errors"
	"fmt"
)

// Pipeline stage failures. Every error produced by a stage wraps exactly one of these.
var (
	// ErrExtraction indicates no text, or no usable text, could be read from a document.
	ErrExtraction = errors.New("extraction failed")

	// ErrChunking indicates an empty chunk set or an invalid chunking configuration.
	ErrChunking = errors.New("chunking failed")

	// ErrEmbedding indicates the embedding model was unavailable or a batch call failed.
	ErrEmbedding = errors.New("embedding failed")

	// ErrIndex indicates a vector index connect, upsert, query or delete failure.
	ErrIndex = errors.New("index operation failed")

	// ErrGeneration indicates the generation backend produced no usable answer.
	ErrGeneration = errors.New("generation failed")

	// ErrValidation indicates invalid caller input.
	ErrValidation = errors.New("validation failed")
)

// Detail errors, wrapped together with a stage error.
var (
	// ErrInvalidChunkOptions indicates chunk_size < 1, chunk_overlap < 0 or overlap >= size.
	ErrInvalidChunkOptions = errors.New("chunk overlap must be non-negative and smaller than chunk size")

	// ErrEmptyText indicates extraction yielded only whitespace.
	ErrEmptyText = errors.New("no text extracted")

	// ErrNoChunks indicates chunking produced nothing from non-empty input.
	ErrNoChunks = errors.New("no chunks created")

	// ErrFileNotFound indicates a document's file is missing on disk.
	ErrFileNotFound = errors.New("file not found")

	// ErrQuestionBlank indicates an empty or whitespace-only question.
	ErrQuestionBlank = errors.New("question cannot be empty")

	// ErrQuestionTooShort indicates a question under MinQuestionLength characters.
	ErrQuestionTooShort = errors.New("question is too short")

	// ErrQuestionTooLong indicates a question over MaxQuestionLength characters.
	ErrQuestionTooLong = errors.New("question is too long")

	// ErrCollectionNotFound indicates the collection does not exist.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrDocumentNotFound indicates the document does not exist.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrInvalidStatusTransition indicates a document status change the state machine forbids.
	ErrInvalidStatusTransition = errors.New("invalid document status transition")
)

// WrapStage tags err with a stage error unless it already carries it.
func WrapStage(stage, err error) error {
	if err == nil || errors.Is(err, stage) {
		return err
	}
	return fmt.Errorf("%w: %w", stage, err)
}
