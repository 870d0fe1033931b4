package sqlite

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-mizu/docsearch/internal/apperr"
)

// manifestEntry mirrors spec §6.4's segments[] element.
type manifestEntry struct {
	SegmentID string   `json:"segment_id"`
	CreatedAt string   `json:"created_at"`
	Files     []string `json:"files"`
}

// manifestFile mirrors the full manifest JSON contract (spec §6.4).
type manifestFile struct {
	LatestSegmentID string          `json:"latest_segment_id"`
	Segments        []manifestEntry `json:"segments"`
	UpdatedAt       string          `json:"updated_at"`
}

const manifestName = "manifest.json"

func (s *Store) manifestPath() string {
	return filepath.Join(s.segmentsDir, manifestName)
}

// readManifest loads and parses the manifest, returning a zero-value
// manifest (not an error) if the file does not yet exist.
func (s *Store) readManifest() (manifestFile, error) {
	data, err := os.ReadFile(s.manifestPath())
	if os.IsNotExist(err) {
		return manifestFile{}, nil
	}
	if err != nil {
		return manifestFile{}, &apperr.StorageError{Op: "read manifest", Err: err}
	}
	var m manifestFile
	if err := json.Unmarshal(data, &m); err != nil {
		return manifestFile{}, &apperr.StorageError{Op: "parse manifest", Err: err}
	}
	return m, nil
}

// writeManifest persists m with write-temp-then-rename, the same
// atomic-publish idiom used for segment artifacts (spec §4.A, §3.2
// invariant 5).
func (s *Store) writeManifest(m manifestFile) error {
	sort.Slice(m.Segments, func(i, j int) bool { return m.Segments[i].CreatedAt < m.Segments[j].CreatedAt })
	m.UpdatedAt = time.Now().UTC().Format(time.RFC3339)

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return &apperr.StorageError{Op: "encode manifest", Err: err}
	}

	tmp, err := os.CreateTemp(s.segmentsDir, ".manifest-*.tmp")
	if err != nil {
		return &apperr.StorageError{Op: "create temp manifest", Err: err}
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return &apperr.StorageError{Op: "write temp manifest", Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return &apperr.StorageError{Op: "fsync temp manifest", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &apperr.StorageError{Op: "close temp manifest", Err: err}
	}
	if err := os.Rename(tmpPath, s.manifestPath()); err != nil {
		return &apperr.StorageError{Op: "rename manifest", Err: err}
	}
	return nil
}

func segmentFileName(segmentID string) string {
	return fmt.Sprintf("%s.db", segmentID)
}
