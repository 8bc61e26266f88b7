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
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// MinQuestionLength is the shortest accepted question, after trimming.
	MinQuestionLength = 3
	// MaxQuestionLength is the longest accepted question, after trimming.
	MaxQuestionLength = 1000
)

// ValidateQuestion checks a user question and returns it trimmed.
//
// Validation rules:
//   - Must contain non-whitespace characters
//   - Must be at least MinQuestionLength characters
//   - Must be at most MaxQuestionLength characters
func ValidateQuestion(question string) (string, error) {
	q := strings.TrimSpace(question)
	n := utf8.RuneCountInString(q)
	switch {
	case n == 0:
		return "", fmt.Errorf("%w: %w", ErrValidation, ErrQuestionBlank)
	case n < MinQuestionLength:
		return "", fmt.Errorf("%w: %w", ErrValidation, ErrQuestionTooShort)
	case n > MaxQuestionLength:
		return "", fmt.Errorf("%w: %w", ErrValidation, ErrQuestionTooLong)
	}
	return q, nil
}

// ValidateDocumentStatus reports whether status is a known DocumentStatus.
func ValidateDocumentStatus(status DocumentStatus) error {
	switch status {
	case DocumentStatusPending, DocumentStatusProcessed, DocumentStatusFailed:
		return nil
	}
	return fmt.Errorf("%w: unknown document status %q", ErrValidation, status)
}

// ValidateStatusTransition enforces the document lifecycle:
//
//	pending -> processed | failed
//	failed  -> processed
//
// Staying in the same state is always allowed.
func ValidateStatusTransition(from, to DocumentStatus) error {
	if err := ValidateDocumentStatus(to); err != nil {
		return err
	}
	if from == to {
		return nil
	}
	switch from {
	case DocumentStatusPending:
		return nil
	case DocumentStatusFailed:
		if to == DocumentStatusProcessed {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, from, to)
}

// NextStatus returns the status a document moves to after a pipeline run,
// leaving processed documents untouched when a later run fails.
func NextStatus(current DocumentStatus, succeeded bool) DocumentStatus {
	if succeeded {
		return DocumentStatusProcessed
	}
	if current == DocumentStatusProcessed {
		return current
	}
	return DocumentStatusFailed
}
