package structured

import "errors"

var (
	// ErrQueryRunnerRequired is returned when a graph query runner is not provided.
	ErrQueryRunnerRequired = errors.New("query runner required")

	// ErrLanguageModelRequired is returned when a language model is not provided.
	ErrLanguageModelRequired = errors.New("language model required")

	// ErrSchemaRequired is returned when no graph schema is supplied.
	ErrSchemaRequired = errors.New("graph schema required")
)
