// Package docsearch implements the search and indexing core of a
// multi-tenant documentation server: a deterministic segment builder,
// an atomic segment store, and a BM25F query engine.
package docsearch

import "github.com/go-mizu/docsearch/internal/apperr"

// The error taxonomy from spec §7, re-exported here as type aliases so
// callers of this package can write docsearch.StorageError etc.
// without reaching into internal/apperr, while store/sqlite,
// internal/query, and coordinator construct these types directly
// against the leaf package (avoiding an import cycle back into this
// package).
type (
	StorageError           = apperr.StorageError
	IndexVersionError      = apperr.IndexVersionError
	DocumentLoadError      = apperr.DocumentLoadError
	SchemaMismatchError    = apperr.SchemaMismatchError
	QueryTimeoutError      = apperr.QueryTimeoutError
	DuplicateDocumentError = apperr.DuplicateDocumentError
	IndexMissingError      = apperr.IndexMissingError
)
