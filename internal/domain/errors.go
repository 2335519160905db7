package domain

import "errors"

var (
	// ErrInvalidQuery signals a query that failed validation before reaching any collaborator.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrEmbedding signals that the query embedding could not be computed or was malformed.
	ErrEmbedding = errors.New("embedding error")
	// ErrStoreQuery signals that the vector store rejected or could not serve the query.
	ErrStoreQuery = errors.New("store query error")
	// ErrCollectionNotFound signals that the named collection does not exist.
	// Always reported together with ErrStoreQuery.
	ErrCollectionNotFound = errors.New("collection not found")
	// ErrUnsupportedFilter signals a metadata filter the store cannot evaluate.
	// Always reported together with ErrStoreQuery.
	ErrUnsupportedFilter = errors.New("unsupported filter")
	// ErrMalformedResult signals a store reply whose shape does not match the query contract.
	ErrMalformedResult = errors.New("malformed result")
)
