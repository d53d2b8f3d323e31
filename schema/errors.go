package schema

import "errors"

var (
	// ErrSchemaReaderRequired is returned when a schema reader is not provided.
	ErrSchemaReaderRequired = errors.New("schema reader required")

	// ErrEmptyStatement is returned for an empty generated statement.
	ErrEmptyStatement = errors.New("empty statement")

	// ErrMultipleStatements is returned when more than one statement is generated.
	ErrMultipleStatements = errors.New("multiple statements")

	// ErrWriteClause is returned when a statement would modify the graph.
	ErrWriteClause = errors.New("write clause not allowed")

	// ErrUnknownLabel is returned for a node label missing from the schema.
	ErrUnknownLabel = errors.New("unknown node label")

	// ErrUnknownRelationshipType is returned for a relationship type missing from the schema.
	ErrUnknownRelationshipType = errors.New("unknown relationship type")

	// ErrUnknownProperty is returned for a property missing from the schema.
	ErrUnknownProperty = errors.New("unknown property")

	// ErrInvalidPattern is returned when a relationship pattern matches no
	// schema triple in either direction.
	ErrInvalidPattern = errors.New("relationship pattern not in schema")
)
