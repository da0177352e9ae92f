package vecsql

import "github.com/kailas-cloud/vecsql/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound               = domain.ErrNotFound
	ErrAlreadyExists          = domain.ErrAlreadyExists
	ErrValidation             = domain.ErrValidation
	ErrInvalidFilter          = domain.ErrInvalidFilter
	ErrDimensionMismatch      = domain.ErrDimensionMismatch
	ErrUnsafeSQL              = domain.ErrUnsafeSQL
	ErrNotSupported           = domain.ErrNotSupported
	ErrEmbedderRequired       = domain.ErrEmbedderRequired
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
)
