package index

import (
	"errors"
	"fmt"

	"github.com/poiesic/docqa/core"
)

var (
	// ErrIndexClosed indicates use of an index after Close.
	ErrIndexClosed = fmt.Errorf("%w: index is closed", core.ErrIndex)

	// ErrEmptyVector indicates a chunk or query without an embedding.
	ErrEmptyVector = fmt.Errorf("%w: empty vector", core.ErrIndex)

	// ErrEmptyChunkID indicates a chunk without an ID.
	ErrEmptyChunkID = fmt.Errorf("%w: empty chunk id", core.ErrIndex)

	// ErrUnsupportedBackend indicates an unknown index backend name.
	ErrUnsupportedBackend = errors.New("unsupported index backend")
)

// Wrap tags err as an index failure.
func Wrap(err error) error {
	return core.WrapStage(core.ErrIndex, err)
}

// ValidateEntry checks the fields every backend requires.
func ValidateEntry(e Entry) error {
	if e.Chunk.ID == "" {
		return ErrEmptyChunkID
	}
	if len(e.Vector) == 0 {
		return fmt.Errorf("%w: chunk %s", ErrEmptyVector, e.Chunk.ID)
	}
	return nil
}
