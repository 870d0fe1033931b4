package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-mizu/docsearch/internal/discovery"
	"github.com/go-mizu/docsearch/internal/schema"
	"github.com/go-mizu/docsearch/internal/segment"
)

type fakePublisher struct {
	saved []*segment.Segment
}

func (f *fakePublisher) Save(_ context.Context, seg *segment.Segment) (string, bool, error) {
	for _, existing := range f.saved {
		if existing.SegmentID == seg.SegmentID {
			return existing.SegmentID + ".db", true, nil
		}
	}
	f.saved = append(f.saved, seg)
	return seg.SegmentID + ".db", false, nil
}

func (f *fakePublisher) LatestCreatedAt(context.Context) (time.Time, bool, error) {
	if len(f.saved) == 0 {
		return time.Time{}, false, nil
	}
	return f.saved[len(f.saved)-1].CreatedAt, true, nil
}

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

func TestBuildBasicIndexing(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, "install.md", "---\nurl: https://ex.com/install\n---\n# Installation\n\nInstall with pip install pkg.\n")

	pub := &fakePublisher{}
	b := New(pub, nil)

	result, err := b.Build(context.Background(), Options{
		DocsRoot: root,
		Schema:   schema.Default(),
		Source:   discovery.SourceFilesystem,
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.DocumentsIndexed != 1 {
		t.Fatalf("indexed = %d, want 1 (errors: %v)", result.DocumentsIndexed, result.Errors)
	}
	if result.SegmentID == "" {
		t.Fatal("expected a segment id")
	}
	if len(pub.saved) != 1 {
		t.Fatalf("saved %d segments, want 1", len(pub.saved))
	}

	seg := pub.saved[0]
	postings := seg.Postings["body"]["install"]
	if len(postings) != 1 {
		t.Fatalf("expected 'install' posting in body field, got %+v", seg.Postings["body"])
	}
}

func TestBuildDeduplicatesByDocumentKey(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, "a.md", "---\nurl: https://ex.com/same\n---\n# A\n\nbody a\n")
	writeDoc(t, root, "b.md", "---\nurl: https://ex.com/same\n---\n# B\n\nbody b\n")

	pub := &fakePublisher{}
	b := New(pub, nil)
	result, err := b.Build(context.Background(), Options{
		DocsRoot: root,
		Schema:   schema.Default(),
		Source:   discovery.SourceFilesystem,
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.DocumentsIndexed != 1 || result.DocumentsSkipped != 1 {
		t.Fatalf("got indexed=%d skipped=%d, want 1/1", result.DocumentsIndexed, result.DocumentsSkipped)
	}
}

func TestBuildEmptyCorpusProducesNoSegment(t *testing.T) {
	root := t.TempDir()
	pub := &fakePublisher{}
	b := New(pub, nil)
	result, err := b.Build(context.Background(), Options{
		DocsRoot: root,
		Schema:   schema.Default(),
		Source:   discovery.SourceFilesystem,
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.SegmentID != "" || len(pub.saved) != 0 {
		t.Fatalf("expected no segment for empty corpus, got %+v", result)
	}
}

func TestBuildIsIdempotentOnUnchangedCorpus(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, "install.md", "---\nurl: https://ex.com/install\n---\n# Installation\n\nInstall with pip install pkg.\n")

	pub := &fakePublisher{}
	b := New(pub, nil)

	_, err := b.Build(context.Background(), Options{DocsRoot: root, Schema: schema.Default(), Source: discovery.SourceFilesystem})
	if err != nil {
		t.Fatal(err)
	}
	result2, err := b.Build(context.Background(), Options{DocsRoot: root, Schema: schema.Default(), Source: discovery.SourceFilesystem})
	if err != nil {
		t.Fatal(err)
	}
	if len(pub.saved) != 1 {
		t.Fatalf("expected idempotent rebuild to reuse the existing segment, got %d saved", len(pub.saved))
	}
	if result2.SegmentID != pub.saved[0].SegmentID {
		t.Fatalf("segment id mismatch: %s != %s", result2.SegmentID, pub.saved[0].SegmentID)
	}
}

func TestBuildFrontMatterAbsentWithoutURLIsSkipped(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, "guide/getting-started.md", "Just a body with no heading or front matter.\n")

	pub := &fakePublisher{}
	b := New(pub, nil)
	result, err := b.Build(context.Background(), Options{DocsRoot: root, Schema: schema.Default(), Source: discovery.SourceFilesystem})
	if err != nil {
		t.Fatal(err)
	}
	// No front matter and no metadata means no URL is derivable from a
	// pure filesystem walk; this document is skipped rather than
	// fabricating a URL.
	if result.DocumentsIndexed != 0 || result.DocumentsSkipped != 1 {
		t.Fatalf("got %+v", result)
	}
}
