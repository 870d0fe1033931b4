// Package store declares the Segment Store contract (spec §4.A):
// publish, load, and retain immutable segment artifacts for one
// tenant. store/sqlite implements it.
package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-mizu/docsearch/internal/segment"
)

// Store is the abstract Segment Store a tenant's Coordinator and CLI
// depend on, decoupled from the concrete SQLite artifact format.
type Store interface {
	// Save publishes seg if its SegmentID is not already present,
	// returning its artifact path and whether it already existed.
	Save(ctx context.Context, seg *segment.Segment) (path string, alreadyExisted bool, err error)

	// LatestCreatedAt reports the creation time of the most recently
	// published segment, used to gate --changed-only discovery.
	LatestCreatedAt(ctx context.Context) (time.Time, bool, error)

	// LatestSegmentID returns the most recently published segment_id.
	LatestSegmentID(ctx context.Context) (string, bool, error)

	// ListSegments returns every currently retained segment_id.
	ListSegments(ctx context.Context) ([]string, error)

	// ArtifactPath returns the on-disk path for a segment_id.
	ArtifactPath(segmentID string) string

	// Open returns a read-only connection to a segment's artifact, for
	// the Query Engine to run its own SQL against.
	Open(ctx context.Context, segmentID string) (*sql.DB, error)

	// Load fully deserializes a segment's artifact into memory.
	Load(ctx context.Context, segmentID string) (*segment.Segment, error)

	// Latest loads the most recently published segment.
	Latest(ctx context.Context) (*segment.Segment, bool, error)

	// PruneToSegmentIDs deletes every segment not named in keep.
	PruneToSegmentIDs(ctx context.Context, keep map[string]bool) error

	// ApplyRetention re-applies the MAX_SEGMENTS ceiling against the
	// current manifest outside of a Save call.
	ApplyRetention(ctx context.Context) error
}
