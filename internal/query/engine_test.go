package query

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/go-mizu/docsearch/internal/schema"
	"github.com/go-mizu/docsearch/internal/segment"
	sqlitestore "github.com/go-mizu/docsearch/store/sqlite"
)

// buildTestSegment indexes docs (url -> body text) into a single
// segment using the default schema, mirroring what internal/indexer
// would produce, and publishes it through a Store so tests can open a
// real artifact connection.
func buildTestSegment(t *testing.T, docs map[string]string, titles map[string]string) (*sqlitestore.Store, string) {
	t.Helper()
	sch := schema.Default()
	seg := segment.New("", sch)

	var docID segment.DocID
	var records []segment.DocKeyRecord
	for url, body := range docs {
		title := titles[url]
		seg.Documents = append(seg.Documents, segment.ProjectStored(docID, segment.Document{
			URL: url, Title: title, Body: body, Excerpt: body,
		}))
		seg.DocCount++

		for _, word := range splitWords(title) {
			seg.AddPosting("title", word, docID, []uint32{0})
		}
		seg.FieldLen("title").Add(docID, len(splitWords(title)))

		words := splitWords(body)
		for pos, word := range words {
			seg.AddPosting("body", word, docID, []uint32{uint32(pos)})
		}
		seg.FieldLen("body").Add(docID, len(words))

		canon, err := segment.CanonicalJSON(segment.Document{URL: url, Body: body})
		if err != nil {
			t.Fatal(err)
		}
		records = append(records, segment.DocKeyRecord{
			DocKey:       segment.DocumentKey(url),
			RecordDigest: segment.RecordDigest(canon),
		})
		docID++
	}
	seg.PopulateBloom()

	schemaJSON, err := sch.ToDict()
	if err != nil {
		t.Fatal(err)
	}
	seg.SegmentID = segment.Fingerprint(schemaJSON, records)

	dir := t.TempDir()
	store, err := sqlitestore.New(filepath.Join(dir, "segments"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := store.Save(context.Background(), seg); err != nil {
		t.Fatal(err)
	}
	return store, seg.SegmentID
}

func splitWords(s string) []string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = nil
		}
	}
	for _, r := range s {
		if r == ' ' || r == '\n' || r == '\t' {
			flush()
			continue
		}
		cur = append(cur, toLowerRune(r))
	}
	flush()
	return words
}

func toLowerRune(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + ('a' - 'A')
	}
	return r
}

func TestSearchBasicQueryReturnsMatchingDocument(t *testing.T) {
	store, segID := buildTestSegment(t, map[string]string{
		"https://ex.com/install": "Install with pip install pkg",
	}, map[string]string{
		"https://ex.com/install": "Installation",
	})

	db, err := store.Open(context.Background(), segID)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	resp, err := NewEngine().Search(context.Background(), db, "install", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("got %d results, want 1: %+v", len(resp.Results), resp.Results)
	}
	r := resp.Results[0]
	if r.DocumentURL != "https://ex.com/install" {
		t.Fatalf("document_url = %q", r.DocumentURL)
	}
	if r.RelevanceScore <= 0 {
		t.Fatalf("expected positive score, got %f", r.RelevanceScore)
	}
}

func TestSearchFieldBoostRanksTitleMatchAbove(t *testing.T) {
	store, segID := buildTestSegment(t, map[string]string{
		"https://ex.com/a": "the word widget appears only in the body here",
		"https://ex.com/b": "unrelated body content with no matching keyword",
	}, map[string]string{
		"https://ex.com/a": "Guide",
		"https://ex.com/b": "widget",
	})

	db, err := store.Open(context.Background(), segID)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	resp, err := NewEngine().Search(context.Background(), db, "widget", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(resp.Results))
	}
	if resp.Results[0].DocumentURL != "https://ex.com/b" {
		t.Fatalf("expected title match to rank first, got %q first", resp.Results[0].DocumentURL)
	}
}

func TestSearchSynonymExpansionMatchesRelatedTerm(t *testing.T) {
	store, segID := buildTestSegment(t, map[string]string{
		"https://ex.com/a": "configure the service using environment variables",
	}, map[string]string{
		"https://ex.com/a": "Setup",
	})
	db, err := store.Open(context.Background(), segID)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	resp, err := NewEngine().Search(context.Background(), db, "configuration", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("expected synonym expansion to surface the doc, got %d results", len(resp.Results))
	}
}

func TestSearchBloomSkipsAbsentTermReturnsEmpty(t *testing.T) {
	store, segID := buildTestSegment(t, map[string]string{
		"https://ex.com/a": "completely unrelated content",
	}, map[string]string{"https://ex.com/a": "Doc"})
	db, err := store.Open(context.Background(), segID)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	resp, err := NewEngine().Search(context.Background(), db, "zzzznonexistentterm", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 0 {
		t.Fatalf("expected no results for absent term, got %d", len(resp.Results))
	}
}

func TestSearchEmptyQueryReturnsEmptyNoError(t *testing.T) {
	store, segID := buildTestSegment(t, map[string]string{
		"https://ex.com/a": "some content",
	}, map[string]string{"https://ex.com/a": "Doc"})
	db, err := store.Open(context.Background(), segID)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	resp, err := NewEngine().Search(context.Background(), db, "   ", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 0 {
		t.Fatal("expected empty results for blank query")
	}
}
