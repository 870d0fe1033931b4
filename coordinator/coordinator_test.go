package coordinator

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-mizu/docsearch/internal/discovery"
	"github.com/go-mizu/docsearch/internal/indexer"
	"github.com/go-mizu/docsearch/internal/schema"
	sqlitestore "github.com/go-mizu/docsearch/store/sqlite"
)

func writeDoc(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newTestCoordinator(t *testing.T, docsRoot string) (*Coordinator, *sqlitestore.Store) {
	t.Helper()
	st, err := sqlitestore.New(filepath.Join(t.TempDir(), "segments"), nil)
	if err != nil {
		t.Fatal(err)
	}
	builder := indexer.New(st, nil)
	opts := indexer.Options{
		DocsRoot: docsRoot,
		Schema:   schema.Default(),
		Source:   discovery.SourceFilesystem,
	}
	return New("test-tenant", st, builder, opts, nil).WithPollInterval(20 * time.Millisecond), st
}

func TestAcquireBeforeAnyBuildReturnsIndexMissing(t *testing.T) {
	c, _ := newTestCoordinator(t, t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Open succeeds even with zero published segments: this is the
	// normal state before a tenant's first build, not a failure.
	if err := c.Open(ctx); err != nil {
		t.Fatalf("Open with no segments yet: %v", err)
	}
	defer c.Close()

	if _, err := c.Acquire(); err == nil {
		t.Fatal("expected IndexMissingError from Acquire")
	}
}

func TestRebuildMakesSegmentResident(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, "install.md", "---\nurl: https://ex.com/install\n---\n# Installation\n\nInstall with pip install pkg.\n")

	c, _ := newTestCoordinator(t, root)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c.Open(ctx)
	defer c.Close()

	result, err := c.Rebuild(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if result.DocumentsIndexed != 1 {
		t.Fatalf("indexed = %d, want 1", result.DocumentsIndexed)
	}

	h, err := c.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	defer h.Release()
	if h.SegmentID != result.SegmentID {
		t.Fatalf("resident segment = %s, want %s", h.SegmentID, result.SegmentID)
	}
}

// TestConcurrentRebuildsAreSerializedPerTenant asserts that firing two
// Rebuild calls at once never produces two segments: the second call
// observes the in-flight rebuild and returns without starting its own
// (spec §5 "a tenant-level lease/lock prevents two concurrent
// rebuilds").
func TestConcurrentRebuildsAreSerializedPerTenant(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, "a.md", "---\nurl: https://ex.com/a\n---\n# A\n\nbody text here\n")

	c, st := newTestCoordinator(t, root)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Open(ctx)
	defer c.Close()

	done := make(chan struct{}, 2)
	go func() { c.Rebuild(ctx); done <- struct{}{} }()
	go func() { c.Rebuild(ctx); done <- struct{}{} }()
	<-done
	<-done

	ids, err := st.ListSegments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 {
		t.Fatalf("got %d segments, want 1 (rebuilds of an identical corpus must fingerprint to the same segment_id)", len(ids))
	}
}

func TestPollLoopPicksUpSegmentPublishedOutOfBand(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, "a.md", "---\nurl: https://ex.com/a\n---\n# A\n\nsome body\n")

	c, st := newTestCoordinator(t, root)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := c.Open(ctx); err != nil {
		t.Fatalf("Open before any segment exists: %v", err)
	}
	defer c.Close()

	if _, err := c.Builder.Build(ctx, c.Options); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(2 * time.Second)
	for {
		if h, err := c.Acquire(); err == nil {
			h.Release()
			break
		}
		select {
		case <-deadline:
			t.Fatal("poll loop never picked up out-of-band segment")
		case <-time.After(10 * time.Millisecond):
		}
	}

	segID, ok, err := st.LatestSegmentID(ctx)
	if err != nil || !ok {
		t.Fatalf("expected a latest segment id, ok=%v err=%v", ok, err)
	}
	h, err := c.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	defer h.Release()
	if h.SegmentID != segID {
		t.Fatalf("resident = %s, want %s", h.SegmentID, segID)
	}
}
