package index

import "errors"

var (
	// ErrIndexManagerRequired is returned when a graph index manager is not provided.
	ErrIndexManagerRequired = errors.New("index manager required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrIndexMismatch is returned when an index with the requested name
	// covers a different label or property.
	ErrIndexMismatch = errors.New("index covers a different label or property")

	// ErrDimensionMismatch is returned when the embedder produces vectors of
	// a different length than the index expects.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrStalledBuild is returned when nodes remain unembedded after their
	// embeddings were written.
	ErrStalledBuild = errors.New("nodes remain unembedded after write")
)
