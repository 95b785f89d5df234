package domain

import "errors"

var (
	// ErrInvalidRequest signals a malformed search request.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInvalidPagination signals a disallowed combination of pagination fields.
	ErrInvalidPagination = errors.New("invalid pagination")
	// ErrInvalidCursor signals a cursor that cannot be decoded.
	ErrInvalidCursor = errors.New("invalid cursor")
	// ErrInvalidLanguage signals a corpus language with no index mapping.
	ErrInvalidLanguage = errors.New("invalid language")
	// ErrMalformedQuery signals that the engine rejected the query syntax.
	ErrMalformedQuery = errors.New("malformed query")
	// ErrEngineFailure signals a document-search engine or network failure.
	ErrEngineFailure = errors.New("search engine failure")
	// ErrRelationalFailure signals a relational store failure.
	ErrRelationalFailure = errors.New("relational store failure")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrSemanticUnavailable signals a semantic route with no vector and fallback disabled.
	ErrSemanticUnavailable = errors.New("semantic search unavailable")
)
