package fusion

import "errors"

var (
	// ErrStructuredRetrieverRequired is returned when a structured retriever is not provided.
	ErrStructuredRetrieverRequired = errors.New("structured retriever required")

	// ErrSimilarityRetrieverRequired is returned when a similarity retriever is not provided.
	ErrSimilarityRetrieverRequired = errors.New("similarity retriever required")

	// ErrLanguageModelRequired is returned when a language model is not provided.
	ErrLanguageModelRequired = errors.New("language model required")

	// ErrNoResult is returned when a retriever reports neither a result nor an error.
	ErrNoResult = errors.New("retriever returned no result")
)
