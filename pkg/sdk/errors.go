package vecmatch

import "github.com/kailas-cloud/vecmatch/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidInput      = domain.ErrInvalidInput
	ErrNotFound          = domain.ErrNotFound
	ErrProvider          = domain.ErrProvider
	ErrStorage           = domain.ErrStorage
	ErrDimensionMismatch = domain.ErrDimensionMismatch
)
