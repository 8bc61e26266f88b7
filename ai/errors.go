package ai

import (
	"errors"
	"fmt"

	"github.com/poiesic/docqa/core"
)

// Generation outcomes. Callers treat all of them as "no result"; the
// distinction exists for logging.
var (
	// ErrGenerationTimeout indicates the request exceeded its deadline.
	ErrGenerationTimeout = fmt.Errorf("%w: request timed out", core.ErrGeneration)

	// ErrGenerationUnavailable indicates the backend could not be reached.
	ErrGenerationUnavailable = fmt.Errorf("%w: backend unreachable", core.ErrGeneration)

	// ErrGenerationStatus indicates a non-2xx response.
	ErrGenerationStatus = fmt.Errorf("%w: unexpected status", core.ErrGeneration)

	// ErrMalformedResponse indicates an unparseable or incomplete response body.
	ErrMalformedResponse = fmt.Errorf("%w: malformed response", core.ErrGeneration)

	// ErrDegenerateOutput indicates an empty or too-short completion.
	ErrDegenerateOutput = fmt.Errorf("%w: degenerate output", core.ErrGeneration)
)

var (
	// ErrEmbeddingCountMismatch indicates a backend returned a different number of vectors than texts.
	ErrEmbeddingCountMismatch = errors.New("embedding count mismatch")

	// ErrPoolClosed indicates the embedding pool was released.
	ErrPoolClosed = errors.New("embedding pool closed")
)
