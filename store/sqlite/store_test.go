package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-mizu/docsearch/internal/schema"
	"github.com/go-mizu/docsearch/internal/segment"
)

func sampleSegment(t *testing.T, id string, urlSuffix string) *segment.Segment {
	t.Helper()
	sch := schema.Default()
	seg := segment.New("", sch)
	seg.DocCount = 1
	seg.Documents = append(seg.Documents, segment.StoredFields{
		DocID: 0, URL: "https://ex.com/" + urlSuffix, Title: "Title " + urlSuffix, Body: "hello world",
	})
	seg.AddPosting("body", "hello", 0, []uint32{0})
	seg.AddPosting("body", "world", 0, []uint32{1})
	seg.FieldLen("body").Add(0, 2)
	seg.PopulateBloom()

	schemaJSON, err := sch.ToDict()
	if err != nil {
		t.Fatal(err)
	}
	key := segment.DocumentKey("https://ex.com/" + urlSuffix)
	canon, err := segment.CanonicalJSON(segment.Document{URL: "https://ex.com/" + urlSuffix, Body: "hello world"})
	if err != nil {
		t.Fatal(err)
	}
	records := []segment.DocKeyRecord{{DocKey: key, RecordDigest: segment.RecordDigest(canon)}}
	seg.SegmentID = segment.Fingerprint(schemaJSON, records)
	if id != "" {
		seg.SegmentID = id
	}
	return seg
}

func TestSavePublishesArtifactAndManifest(t *testing.T) {
	dir := t.TempDir()
	store, err := New(filepath.Join(dir, "segments"), nil)
	if err != nil {
		t.Fatal(err)
	}

	seg := sampleSegment(t, "", "a")
	path, existed, err := store.Save(context.Background(), seg)
	if err != nil {
		t.Fatal(err)
	}
	if existed {
		t.Fatal("expected first publish to report existed=false")
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("artifact not written: %v", err)
	}

	latest, ok, err := store.LatestSegmentID(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !ok || latest != seg.SegmentID {
		t.Fatalf("latest segment id = %q, want %q", latest, seg.SegmentID)
	}
}

func TestSaveIsIdempotentForSameSegmentID(t *testing.T) {
	dir := t.TempDir()
	store, err := New(filepath.Join(dir, "segments"), nil)
	if err != nil {
		t.Fatal(err)
	}
	seg := sampleSegment(t, "", "a")

	_, existed1, err := store.Save(context.Background(), seg)
	if err != nil || existed1 {
		t.Fatalf("first save: existed=%v err=%v", existed1, err)
	}
	_, existed2, err := store.Save(context.Background(), seg)
	if err != nil {
		t.Fatal(err)
	}
	if !existed2 {
		t.Fatal("expected second save of the same segment_id to report existed=true")
	}

	ids, err := store.ListSegments(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 {
		t.Fatalf("expected exactly one manifest entry, got %d", len(ids))
	}
}

func TestLoadRoundTripsDocumentsAndPostings(t *testing.T) {
	dir := t.TempDir()
	store, err := New(filepath.Join(dir, "segments"), nil)
	if err != nil {
		t.Fatal(err)
	}
	seg := sampleSegment(t, "", "round-trip")
	if _, _, err := store.Save(context.Background(), seg); err != nil {
		t.Fatal(err)
	}

	loaded, err := store.Load(context.Background(), seg.SegmentID)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.DocCount != 1 || len(loaded.Documents) != 1 {
		t.Fatalf("got docs=%d count=%d", len(loaded.Documents), loaded.DocCount)
	}
	if loaded.Documents[0].Title != "Title round-trip" {
		t.Fatalf("title = %q", loaded.Documents[0].Title)
	}
	postings := loaded.Postings["body"]["hello"]
	if len(postings) != 1 || len(postings[0].Positions) != 1 || postings[0].Positions[0] != 0 {
		t.Fatalf("unexpected postings for 'hello': %+v", postings)
	}
	if len(loaded.BloomBlocks) == 0 {
		t.Fatal("expected bloom blocks to round-trip")
	}
}

func TestRetentionPrunesOldestSegments(t *testing.T) {
	dir := t.TempDir()
	store, err := New(filepath.Join(dir, "segments"), nil)
	if err != nil {
		t.Fatal(err)
	}
	store.WithMaxSegments(2)

	var ids []string
	for i := 0; i < 3; i++ {
		seg := sampleSegment(t, "", string(rune('a'+i)))
		seg.CreatedAt = time.Now().UTC().Add(time.Duration(i) * time.Minute)
		if _, _, err := store.Save(context.Background(), seg); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, seg.SegmentID)
	}

	remaining, err := store.ListSegments(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(remaining) != 2 {
		t.Fatalf("expected retention to keep 2 segments, got %d: %v", len(remaining), remaining)
	}

	oldestPath := store.ArtifactPath(ids[0])
	if _, err := os.Stat(oldestPath); !os.IsNotExist(err) {
		t.Fatalf("expected oldest artifact to be pruned from disk, stat err = %v", err)
	}
}

func TestPruneToSegmentIDsRemovesUnlistedSegments(t *testing.T) {
	dir := t.TempDir()
	store, err := New(filepath.Join(dir, "segments"), nil)
	if err != nil {
		t.Fatal(err)
	}

	segA := sampleSegment(t, "", "a")
	segB := sampleSegment(t, "", "b")
	if _, _, err := store.Save(context.Background(), segA); err != nil {
		t.Fatal(err)
	}
	if _, _, err := store.Save(context.Background(), segB); err != nil {
		t.Fatal(err)
	}

	if err := store.PruneToSegmentIDs(context.Background(), map[string]bool{segB.SegmentID: true}); err != nil {
		t.Fatal(err)
	}

	remaining, err := store.ListSegments(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(remaining) != 1 || remaining[0] != segB.SegmentID {
		t.Fatalf("got %v, want only %s", remaining, segB.SegmentID)
	}
	if _, err := os.Stat(store.ArtifactPath(segA.SegmentID)); !os.IsNotExist(err) {
		t.Fatal("expected pruned segment's artifact file to be removed")
	}
}
