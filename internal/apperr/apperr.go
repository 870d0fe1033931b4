// Package apperr holds the error taxonomy from spec §7 as a leaf
// package: store/sqlite, internal/query, and coordinator all return
// these types, and the root docsearch package re-exports them as
// public aliases, so none of those packages needs to import the root
// package and create a cycle.
package apperr

import "fmt"

// StorageError indicates a segment artifact or manifest could not be
// read or written: corrupt artifact, unreadable manifest JSON, disk
// full during publish. The current operation is fatal; a publish that
// failed this way leaves the manifest untouched.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IndexVersionError indicates a segment's metadata is missing a
// required bloom/corpus key or carries an unknown segment format
// version. Callers should treat this as "reindex required".
type IndexVersionError struct {
	SegmentID string
	Reason    string
}

func (e *IndexVersionError) Error() string {
	return fmt.Sprintf("index version: segment %s: %s (reindex required)", e.SegmentID, e.Reason)
}

// DocumentLoadError indicates a single document could not be
// materialized during a build (missing companion file, unreadable
// bytes). The document is skipped; the build continues.
type DocumentLoadError struct {
	Path string
	Err  error
}

func (e *DocumentLoadError) Error() string {
	return fmt.Sprintf("document load: %s: %v", e.Path, e.Err)
}

func (e *DocumentLoadError) Unwrap() error { return e.Err }

// SchemaMismatchError indicates an incoming document record lacks the
// schema's unique-key field, or that field is null/empty.
type SchemaMismatchError struct {
	Field string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("schema mismatch: missing unique key field %q", e.Field)
}

// QueryTimeoutError indicates scoring exceeded the query's soft
// deadline. It carries only the deadline; internal/query turns its
// message into Response.Warning and returns whatever was scored
// alongside it.
type QueryTimeoutError struct {
	Deadline string
}

func (e *QueryTimeoutError) Error() string {
	return fmt.Sprintf("query timeout: exceeded deadline %s", e.Deadline)
}

// DuplicateDocumentError indicates the same document_key was seen
// twice within one build. The second occurrence is rejected and
// counted as skipped.
type DuplicateDocumentError struct {
	DocumentKey string
}

func (e *DuplicateDocumentError) Error() string {
	return fmt.Sprintf("duplicate document: key %s already indexed in this build", e.DocumentKey)
}

// IndexMissingError indicates a tenant has no resident segment yet —
// the coordinator returns this instead of blocking or erroring with a
// generic failure.
type IndexMissingError struct {
	Tenant string
}

func (e *IndexMissingError) Error() string {
	return fmt.Sprintf("no search index for %s", e.Tenant)
}
