// Package sqlite implements the Segment Store (spec §4.A): an
// append-mostly collection of immutable SQLite segment artifacts plus
// a JSON manifest recording their lineage, one directory per tenant.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite"

	"github.com/go-mizu/docsearch/internal/apperr"
	"github.com/go-mizu/docsearch/internal/schema"
	"github.com/go-mizu/docsearch/internal/segment"
	"github.com/go-mizu/docsearch/store"
)

// Ensure interface compliance.
var _ store.Store = (*Store)(nil)

// DefaultMaxSegments is the retention ceiling applied after every
// successful publish: the MAX_SEGMENTS budget named in spec §4.A.
const DefaultMaxSegments = 32

// Store is one tenant's Segment Store. It owns a directory containing
// manifest.json and a *.db file per published segment_id.
type Store struct {
	segmentsDir string
	maxSegments int
	log         *slog.Logger
}

// New opens (creating if necessary) the segment store rooted at
// segmentsDir, typically "<tenant docs root>/__search_segments".
func New(segmentsDir string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(segmentsDir, 0o755); err != nil {
		return nil, &apperr.StorageError{Op: "create segments dir", Err: err}
	}
	return &Store{segmentsDir: segmentsDir, maxSegments: DefaultMaxSegments, log: log}, nil
}

// WithMaxSegments overrides the retention ceiling (default
// DefaultMaxSegments); returns s for chaining.
func (s *Store) WithMaxSegments(n int) *Store {
	if n > 0 {
		s.maxSegments = n
	}
	return s
}

// Save implements indexer.Publisher: it writes seg's artifact if its
// segment_id is not already present, then records it in the manifest
// and applies retention. Publishing an already-present segment_id is a
// no-op that reports alreadyExisted=true (idempotent publish).
func (s *Store) Save(ctx context.Context, seg *segment.Segment) (string, bool, error) {
	manifest, err := s.readManifest()
	if err != nil {
		return "", false, err
	}

	finalPath := artifactPath(s.segmentsDir, seg.SegmentID)
	for _, e := range manifest.Segments {
		if e.SegmentID == seg.SegmentID {
			return finalPath, true, nil
		}
	}

	if err := writeArtifact(seg, s.segmentsDir, finalPath); err != nil {
		return "", false, err
	}

	entry := manifestEntry{
		SegmentID: seg.SegmentID,
		CreatedAt: seg.CreatedAt.UTC().Format(time.RFC3339),
		Files:     []string{filepath.Base(finalPath)},
	}
	manifest.Segments = append(manifest.Segments, entry)
	manifest.LatestSegmentID = latestByCreatedAt(manifest.Segments)

	if err := s.writeManifest(manifest); err != nil {
		return "", false, err
	}

	if err := s.pruneLocked(manifest); err != nil {
		s.log.Warn("segment retention prune failed", "error", err)
	}

	return finalPath, false, nil
}

// LatestCreatedAt implements indexer.Publisher: it reports the
// creation time of the most recently published segment, used to gate
// --changed-only discovery (spec §4.C).
func (s *Store) LatestCreatedAt(ctx context.Context) (time.Time, bool, error) {
	manifest, err := s.readManifest()
	if err != nil {
		return time.Time{}, false, err
	}
	if manifest.LatestSegmentID == "" {
		return time.Time{}, false, nil
	}
	for _, e := range manifest.Segments {
		if e.SegmentID == manifest.LatestSegmentID {
			t, err := time.Parse(time.RFC3339, e.CreatedAt)
			if err != nil {
				return time.Time{}, false, &apperr.StorageError{Op: "parse manifest timestamp", Err: err}
			}
			return t, true, nil
		}
	}
	return time.Time{}, false, nil
}

// LatestSegmentID returns the manifest's latest_segment_id, or ok=false
// if the tenant has never published a segment.
func (s *Store) LatestSegmentID(ctx context.Context) (string, bool, error) {
	manifest, err := s.readManifest()
	if err != nil {
		return "", false, err
	}
	return manifest.LatestSegmentID, manifest.LatestSegmentID != "", nil
}

// ListSegments returns every segment_id currently recorded in the
// manifest, oldest first.
func (s *Store) ListSegments(ctx context.Context) ([]string, error) {
	manifest, err := s.readManifest()
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(manifest.Segments))
	for i, e := range manifest.Segments {
		ids[i] = e.SegmentID
	}
	return ids, nil
}

// ArtifactPath returns the path a segment_id's artifact would live at,
// without checking that it exists.
func (s *Store) ArtifactPath(segmentID string) string {
	return artifactPath(s.segmentsDir, segmentID)
}

// Open returns a read-only *sql.DB over segmentID's artifact, for the
// Query Engine to run its own SQL against (spec §4.D: per-task
// connection, no cross-thread sharing).
func (s *Store) Open(ctx context.Context, segmentID string) (*sql.DB, error) {
	path := artifactPath(s.segmentsDir, segmentID)
	if _, err := os.Stat(path); err != nil {
		return nil, &apperr.StorageError{Op: "stat artifact " + segmentID, Err: err}
	}
	db, err := sql.Open("sqlite", ReaderDSN(path))
	if err != nil {
		return nil, &apperr.StorageError{Op: "open artifact read-only", Err: err}
	}
	return db, nil
}

// Load fully deserializes segmentID's artifact back into an in-memory
// segment.Segment. The Query Engine does not use this path (it queries
// the artifact directly); Load exists for tooling and tests that need
// the whole segment (manifest inspection, export, verification).
func (s *Store) Load(ctx context.Context, segmentID string) (*segment.Segment, error) {
	db, err := s.Open(ctx, segmentID)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	meta, err := ReadMetadataKeys(ctx, db, []string{
		"schema", "bloom_bit_size", "bloom_hash_count", "bloom_block_bits",
	})
	if err != nil {
		return nil, &apperr.StorageError{Op: "read artifact metadata", Err: err}
	}
	schemaJSON, err := ParseSchemaMetadata(meta["schema"])
	if err != nil {
		return nil, &apperr.IndexVersionError{SegmentID: segmentID, Reason: "missing schema metadata"}
	}
	sch, err := schema.FromDict(schemaJSON)
	if err != nil {
		return nil, &apperr.IndexVersionError{SegmentID: segmentID, Reason: err.Error()}
	}

	seg := segment.New(segmentID, sch)

	if err := parseBloomParams(meta, seg); err != nil {
		return nil, err
	}

	if err := loadDocuments(ctx, db, seg); err != nil {
		return nil, err
	}
	if err := loadPostings(ctx, db, seg); err != nil {
		return nil, err
	}
	if err := loadFieldStats(ctx, db, seg); err != nil {
		return nil, err
	}
	if err := loadBloomBlocks(ctx, db, seg); err != nil {
		return nil, err
	}
	return seg, nil
}

// Latest loads the manifest's latest segment, or returns (nil, false,
// nil) if the tenant has no published segment yet.
func (s *Store) Latest(ctx context.Context) (*segment.Segment, bool, error) {
	id, ok, err := s.LatestSegmentID(ctx)
	if err != nil || !ok {
		return nil, false, err
	}
	seg, err := s.Load(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return seg, true, nil
}

// PruneToSegmentIDs deletes every manifest entry and artifact file not
// named in keep (spec §4.A retention operation, exposed for explicit
// caller-driven pruning in addition to the automatic ceiling in Save).
func (s *Store) PruneToSegmentIDs(ctx context.Context, keep map[string]bool) error {
	manifest, err := s.readManifest()
	if err != nil {
		return err
	}
	return s.prune(manifest, keep)
}

// ApplyRetention re-applies the MAX_SEGMENTS ceiling against the
// current manifest outside of a Save call, for operator-triggered
// pruning (the CLI's prune command) after lowering maxSegments.
func (s *Store) ApplyRetention(ctx context.Context) error {
	manifest, err := s.readManifest()
	if err != nil {
		return err
	}
	return s.pruneLocked(manifest)
}

// pruneLocked applies the default retention ceiling: keep the most
// recent maxSegments entries, dropping the rest.
func (s *Store) pruneLocked(manifest manifestFile) error {
	if len(manifest.Segments) <= s.maxSegments {
		return nil
	}
	sorted := append([]manifestEntry(nil), manifest.Segments...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].CreatedAt < sorted[j].CreatedAt })

	keep := make(map[string]bool, s.maxSegments)
	for _, e := range sorted[len(sorted)-s.maxSegments:] {
		keep[e.SegmentID] = true
	}
	return s.prune(manifest, keep)
}

func (s *Store) prune(manifest manifestFile, keep map[string]bool) error {
	var kept []manifestEntry
	var dropped []manifestEntry
	for _, e := range manifest.Segments {
		if keep[e.SegmentID] {
			kept = append(kept, e)
		} else {
			dropped = append(dropped, e)
		}
	}
	if len(dropped) == 0 {
		return nil
	}

	manifest.Segments = kept
	manifest.LatestSegmentID = latestByCreatedAt(kept)
	if err := s.writeManifest(manifest); err != nil {
		return err
	}

	for _, e := range dropped {
		path := artifactPath(s.segmentsDir, e.SegmentID)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.log.Warn("failed to remove pruned segment artifact", "segment_id", e.SegmentID, "error", err)
		}
	}
	return nil
}

func latestByCreatedAt(entries []manifestEntry) string {
	if len(entries) == 0 {
		return ""
	}
	best := entries[0]
	for _, e := range entries[1:] {
		if e.CreatedAt > best.CreatedAt {
			best = e
		}
	}
	return best.SegmentID
}

func parseBloomParams(meta map[string]string, seg *segment.Segment) error {
	var bits, blockBits uint64
	var count int
	if _, err := fmt.Sscanf(meta["bloom_bit_size"], "%d", &bits); err != nil {
		return &apperr.IndexVersionError{SegmentID: seg.SegmentID, Reason: "invalid bloom_bit_size"}
	}
	if _, err := fmt.Sscanf(meta["bloom_hash_count"], "%d", &count); err != nil {
		return &apperr.IndexVersionError{SegmentID: seg.SegmentID, Reason: "invalid bloom_hash_count"}
	}
	if _, err := fmt.Sscanf(meta["bloom_block_bits"], "%d", &blockBits); err != nil {
		return &apperr.IndexVersionError{SegmentID: seg.SegmentID, Reason: "invalid bloom_block_bits"}
	}
	seg.Bloom = segment.BloomParams{BitSize: bits, HashCount: count, BlockBits: blockBits}
	return nil
}

func loadDocuments(ctx context.Context, db *sql.DB, seg *segment.Segment) error {
	rows, err := db.QueryContext(ctx, `
		SELECT doc_id, url, title, body, excerpt, path, language FROM documents ORDER BY doc_id`)
	if err != nil {
		return &apperr.StorageError{Op: "query documents", Err: err}
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var d segment.StoredFields
		if err := rows.Scan(&d.DocID, &d.URL, &d.Title, &d.Body, &d.Excerpt, &d.Path, &d.Language); err != nil {
			return &apperr.StorageError{Op: "scan document row", Err: err}
		}
		seg.Documents = append(seg.Documents, d)
		count++
	}
	seg.DocCount = count
	return rows.Err()
}

func loadPostings(ctx context.Context, db *sql.DB, seg *segment.Segment) error {
	rows, err := db.QueryContext(ctx, `
		SELECT field, term, doc_id, positions_blob FROM postings ORDER BY field, term, doc_id`)
	if err != nil {
		return &apperr.StorageError{Op: "query postings", Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		var field, term string
		var docID segment.DocID
		var blob []byte
		if err := rows.Scan(&field, &term, &docID, &blob); err != nil {
			return &apperr.StorageError{Op: "scan posting row", Err: err}
		}
		seg.AddPosting(field, term, docID, DecodePositions(blob))
	}
	return rows.Err()
}

func loadFieldStats(ctx context.Context, db *sql.DB, seg *segment.Segment) error {
	rows, err := db.QueryContext(ctx, `SELECT field, total_terms, doc_count FROM field_stats`)
	if err != nil {
		return &apperr.StorageError{Op: "query field stats", Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		var field string
		fl := &segment.FieldLengths{Lengths: make(map[segment.DocID]int)}
		if err := rows.Scan(&field, &fl.TotalTerms, &fl.DocCount); err != nil {
			return &apperr.StorageError{Op: "scan field stats row", Err: err}
		}
		seg.FieldLengths[field] = fl
	}
	if err := rows.Err(); err != nil {
		return err
	}

	lenRows, err := db.QueryContext(ctx, `SELECT field, doc_id, doc_length FROM postings GROUP BY field, doc_id`)
	if err != nil {
		return &apperr.StorageError{Op: "query posting doc lengths", Err: err}
	}
	defer lenRows.Close()
	for lenRows.Next() {
		var field string
		var docID segment.DocID
		var length int
		if err := lenRows.Scan(&field, &docID, &length); err != nil {
			return &apperr.StorageError{Op: "scan doc length row", Err: err}
		}
		fl := seg.FieldLen(field)
		fl.Lengths[docID] = length
	}
	return lenRows.Err()
}

func loadBloomBlocks(ctx context.Context, db *sql.DB, seg *segment.Segment) error {
	rows, err := db.QueryContext(ctx, `SELECT block_index, bits FROM bloom_blocks`)
	if err != nil {
		return &apperr.StorageError{Op: "query bloom blocks", Err: err}
	}
	defer rows.Close()

	seg.BloomBlocks = make(map[uint64][]byte)
	for rows.Next() {
		var idx uint64
		var bits []byte
		if err := rows.Scan(&idx, &bits); err != nil {
			return &apperr.StorageError{Op: "scan bloom block row", Err: err}
		}
		seg.BloomBlocks[idx] = bits
	}
	return rows.Err()
}
