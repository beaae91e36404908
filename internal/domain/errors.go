package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidRequest signals a malformed search request. Rejected before retrieval.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrVectorDimMismatch signals a query embedding of the wrong dimension.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")

	// ErrRetrievalTimeout signals that a retrieval signal exceeded its deadline.
	ErrRetrievalTimeout = errors.New("retrieval timeout")
	// ErrRetrievalUnavailable signals that a retrieval backend failed.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")
	// ErrCatalogUnavailable signals that base entity records cannot be read.
	// Unlike retrieval failures it is never absorbed.
	ErrCatalogUnavailable = errors.New("catalog unavailable")

	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)

// IsInputError reports whether err is a request validation failure.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) || errors.Is(err, ErrVectorDimMismatch)
}
