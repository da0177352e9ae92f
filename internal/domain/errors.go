package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists signals a duplicate resource.
	ErrAlreadyExists = errors.New("already exists")
	// ErrValidation signals malformed caller input.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidFilter signals a malformed Where/WhereDocument tree.
	ErrInvalidFilter = errors.New("invalid filter")
	// ErrDimensionMismatch signals a vector of the wrong width for the collection.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrUnsafeSQL signals that engine-returned SQL failed validation.
	// The offending statement is never executed.
	ErrUnsafeSQL = errors.New("unsafe dynamic sql")
	// ErrNotSupported signals that the engine reported a feature as
	// unavailable (the empty dynamic-SQL sentinel). Callers may fall back.
	ErrNotSupported = errors.New("feature not supported by engine")
	// ErrEmbedderRequired signals a text operation on a collection without
	// a configured embedding function.
	ErrEmbedderRequired = errors.New("embedding function required")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)
