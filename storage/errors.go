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


package storage

import (
	"errors"
	"fmt"

	"github.com/poiesic/docqa/core"
)

var (
	// ErrNotFound indicates that the requested record was not found.
	// Repositories also wrap the matching core sentinel where one exists.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateKey indicates a duplicate key violation.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrStorageClosed indicates that the storage backend is closed.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrUnsupportedBackend indicates an unknown record store backend name.
	ErrUnsupportedBackend = errors.New("unsupported storage backend")

	// ErrSerializationFailed indicates a serialization/deserialization failure.
	ErrSerializationFailed = errors.New("serialization failed")

	// ErrTruncatedData indicates that data was truncated during reading.
	ErrTruncatedData = errors.New("truncated data")
)

// CollectionNotFound reports a missing collection as both ErrNotFound and core.ErrCollectionNotFound.
func CollectionNotFound(id core.ID) error {
	return fmt.Errorf("%w: %w: id %d", ErrNotFound, core.ErrCollectionNotFound, id)
}

// DocumentNotFound reports a missing document as both ErrNotFound and core.ErrDocumentNotFound.
func DocumentNotFound(id core.ID) error {
	return fmt.Errorf("%w: %w: id %d", ErrNotFound, core.ErrDocumentNotFound, id)
}
