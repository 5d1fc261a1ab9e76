package vector

import "errors"

var (
	// ErrIndexUnavailable means the backing store could not be reached.
	ErrIndexUnavailable = errors.New("vector index unavailable")

	// ErrDimensionMismatch means a vector's dimensionality does not match
	// the embedder the index was built with. This is a caller error: the
	// same embedder must be used for ingestion and query.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
