package reindex

import "errors"

var (
	// ErrRecordStoreRequired is returned when no record store is given.
	ErrRecordStoreRequired = errors.New("record store is required")

	// ErrProcessorRequired is returned when no document processor is given.
	ErrProcessorRequired = errors.New("document processor is required")
)
