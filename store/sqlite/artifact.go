package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/go-mizu/docsearch/internal/apperr"
	"github.com/go-mizu/docsearch/internal/segment"
)

// writerDSN opens path with a single-writer-friendly pragma set, the
// same idiom the teacher's store/sqlite/store.go uses for its
// top-level database.
func writerDSN(path string) string {
	return fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)", path)
}

// ReaderDSN opens path read-only with the query-time pragmas ported
// from the original implementation's legacy read path (spec §4.D
// concurrency notes): WAL, NORMAL sync, a large page cache, mmap, and
// in-memory temp storage, tuned for a read-mostly, immutable file.
func ReaderDSN(path string) string {
	return fmt.Sprintf(
		"%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=cache_size(-64000)&_pragma=mmap_size(268435456)&_pragma=temp_store(MEMORY)&mode=ro",
		path,
	)
}

// writeArtifact serializes seg into a brand-new SQLite file at
// finalPath, via write-temp-then-rename so a reader never observes a
// partially-written artifact (spec invariant 5).
func writeArtifact(seg *segment.Segment, segmentsDir, finalPath string) (err error) {
	tmp, err := os.CreateTemp(segmentsDir, ".segment-*.tmp")
	if err != nil {
		return &apperr.StorageError{Op: "create temp artifact", Err: err}
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer func() {
		if err != nil {
			os.Remove(tmpPath)
		}
	}()

	db, err := sql.Open("sqlite", writerDSN(tmpPath))
	if err != nil {
		return &apperr.StorageError{Op: "open temp artifact", Err: err}
	}
	db.SetMaxOpenConns(1)
	defer db.Close()

	if _, err = db.Exec(artifactSchema); err != nil {
		return &apperr.StorageError{Op: "create artifact schema", Err: err}
	}

	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return &apperr.StorageError{Op: "begin artifact write", Err: err}
	}
	defer tx.Rollback() //nolint:errcheck

	if err = writeMetadata(ctx, tx, seg); err != nil {
		return err
	}
	if err = writeDocuments(ctx, tx, seg); err != nil {
		return err
	}
	if err = writePostings(ctx, tx, seg); err != nil {
		return err
	}
	if err = writeBloomBlocks(ctx, tx, seg); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return &apperr.StorageError{Op: "commit artifact write", Err: err}
	}
	if err = db.Close(); err != nil {
		return &apperr.StorageError{Op: "close artifact after write", Err: err}
	}
	db = nil

	if err = os.Rename(tmpPath, finalPath); err != nil {
		return &apperr.StorageError{Op: "rename artifact", Err: err}
	}
	return nil
}

func writeMetadata(ctx context.Context, tx *sql.Tx, seg *segment.Segment) error {
	schemaJSON, err := seg.Schema.ToDict()
	if err != nil {
		return &apperr.StorageError{Op: "encode schema metadata", Err: err}
	}

	entries := map[string]string{
		"segment_format_version": segment.FormatVersion,
		"schema":                 string(schemaJSON),
		"doc_count":              strconv.Itoa(seg.DocCount),
		"bloom_bit_size":         strconv.FormatUint(seg.Bloom.BitSize, 10),
		"bloom_hash_count":       strconv.Itoa(seg.Bloom.HashCount),
		"bloom_block_bits":       strconv.FormatUint(seg.Bloom.BlockBits, 10),
	}
	for key, value := range entries {
		if _, err := tx.ExecContext(ctx, `INSERT INTO metadata (key, value) VALUES (?, ?)`, key, value); err != nil {
			return &apperr.StorageError{Op: "insert metadata " + key, Err: err}
		}
	}
	return nil
}

func writeDocuments(ctx context.Context, tx *sql.Tx, seg *segment.Segment) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (doc_id, url, title, body, excerpt, path, language)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return &apperr.StorageError{Op: "prepare document insert", Err: err}
	}
	defer stmt.Close()

	for _, d := range seg.Documents {
		if _, err := stmt.ExecContext(ctx, d.DocID, d.URL, d.Title, d.Body, d.Excerpt, d.Path, d.Language); err != nil {
			return &apperr.StorageError{Op: "insert document", Err: err}
		}
	}
	return nil
}

func writePostings(ctx context.Context, tx *sql.Tx, seg *segment.Segment) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO postings (field, term, doc_id, tf, doc_length, positions_blob)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return &apperr.StorageError{Op: "prepare posting insert", Err: err}
	}
	defer stmt.Close()

	for field, byTerm := range seg.Postings {
		lengths := seg.FieldLengths[field]
		for term, postings := range byTerm {
			for _, p := range postings {
				docLen := 0
				if lengths != nil {
					docLen = lengths.Lengths[p.DocID]
				}
				blob := encodePositions(p.Positions)
				if _, err := stmt.ExecContext(ctx, field, term, p.DocID, len(p.Positions), docLen, blob); err != nil {
					return &apperr.StorageError{Op: "insert posting", Err: err}
				}
			}
		}
	}

	statStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO field_stats (field, total_terms, doc_count) VALUES (?, ?, ?)`)
	if err != nil {
		return &apperr.StorageError{Op: "prepare field stats insert", Err: err}
	}
	defer statStmt.Close()
	for field, fl := range seg.FieldLengths {
		if _, err := statStmt.ExecContext(ctx, field, fl.TotalTerms, fl.DocCount); err != nil {
			return &apperr.StorageError{Op: "insert field stats", Err: err}
		}
	}
	return nil
}

func writeBloomBlocks(ctx context.Context, tx *sql.Tx, seg *segment.Segment) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO bloom_blocks (block_index, bits) VALUES (?, ?)`)
	if err != nil {
		return &apperr.StorageError{Op: "prepare bloom block insert", Err: err}
	}
	defer stmt.Close()

	for idx, bits := range seg.BloomBlocks {
		if _, err := stmt.ExecContext(ctx, idx, bits); err != nil {
			return &apperr.StorageError{Op: "insert bloom block", Err: err}
		}
	}
	return nil
}

// encodePositions packs a sorted uint32 position list as big-endian
// uint32s, the positions_blob format readers decode in internal/query.
func encodePositions(positions []uint32) []byte {
	buf := make([]byte, 4*len(positions))
	for i, p := range positions {
		binary.BigEndian.PutUint32(buf[i*4:], p)
	}
	return buf
}

// DecodePositions is the reader-side counterpart of encodePositions.
func DecodePositions(blob []byte) []uint32 {
	n := len(blob) / 4
	out := make([]uint32, n)
	for i := 0; i < n; i++ {
		out[i] = binary.BigEndian.Uint32(blob[i*4:])
	}
	return out
}

// ReadMetadataKeys fetches the given metadata keys from an open
// artifact connection, for IndexVersionError checks (spec §4.D
// failure semantics) and bloom parameter recovery.
func ReadMetadataKeys(ctx context.Context, db *sql.DB, keys []string) (map[string]string, error) {
	placeholders := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		placeholders[i] = "?"
		args[i] = k
	}
	query := fmt.Sprintf(`SELECT key, value FROM metadata WHERE key IN (%s)`, strings.Join(placeholders, ", "))
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string, len(keys))
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

// ParseSchemaMetadata decodes the "schema" metadata value back into a
// schema.Schema-shaped JSON payload (callers further unmarshal via
// schema.FromDict).
func ParseSchemaMetadata(raw string) (json.RawMessage, error) {
	if raw == "" {
		return nil, fmt.Errorf("empty schema metadata")
	}
	return json.RawMessage(raw), nil
}

// artifactPath is a small helper kept next to the writer so Save, Open,
// and pruning all compute the same path for a segment_id.
func artifactPath(segmentsDir, segmentID string) string {
	return filepath.Join(segmentsDir, segmentFileName(segmentID))
}
