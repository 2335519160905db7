package kbquery

import "github.com/kailas-cloud/kbquery/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidQuery       = domain.ErrInvalidQuery
	ErrEmbedding          = domain.ErrEmbedding
	ErrStoreQuery         = domain.ErrStoreQuery
	ErrCollectionNotFound = domain.ErrCollectionNotFound
	ErrUnsupportedFilter  = domain.ErrUnsupportedFilter
	ErrMalformedResult    = domain.ErrMalformedResult
)
