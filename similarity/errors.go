package similarity

import "errors"

var (
	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrVectorSearcherRequired is returned when a vector searcher is not provided.
	ErrVectorSearcherRequired = errors.New("vector searcher required")

	// ErrLanguageModelRequired is returned when a language model is not provided.
	ErrLanguageModelRequired = errors.New("language model required")

	// ErrNoIndex is returned when no index handle is supplied.
	ErrNoIndex = errors.New("no similarity index attached")

	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = errors.New("k must be greater than 0")

	// ErrInvalidTokenBudget is returned when the token budget is not positive.
	ErrInvalidTokenBudget = errors.New("token budget must be greater than 0")
)
