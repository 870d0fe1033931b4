// Package indexer implements the Segment Builder (spec §4.C): it
// discovers a tenant's documents, extracts typed fields, builds a
// deterministic segment, and hands it to a Publisher (the Segment
// Store) for atomic persistence.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-mizu/docsearch/internal/analyzer"
	"github.com/go-mizu/docsearch/internal/apperr"
	"github.com/go-mizu/docsearch/internal/discovery"
	"github.com/go-mizu/docsearch/internal/frontmatter"
	"github.com/go-mizu/docsearch/internal/schema"
	"github.com/go-mizu/docsearch/internal/segment"
)

// Publisher is the Segment Store's write-side contract, as seen by
// the builder. store/sqlite.Store implements this.
type Publisher interface {
	Save(ctx context.Context, seg *segment.Segment) (path string, alreadyExisted bool, err error)
	LatestCreatedAt(ctx context.Context) (time.Time, bool, error)
}

// Options configures one build (spec §4.C inputs).
type Options struct {
	DocsRoot     string
	Schema       schema.Schema
	Source       discovery.SourceType
	AllowPrefixes []string
	DenyPrefixes  []string
	ChangedPaths  map[string]bool
	ChangedOnly   bool
	Limit         int
}

// Result mirrors spec §4.C's result record.
type Result struct {
	DocumentsIndexed int
	DocumentsSkipped int
	Errors           []string
	SegmentID        string
	SegmentPath      string
}

// Builder runs Build against one tenant's docs root and a Publisher.
type Builder struct {
	Publisher Publisher
	Log       *slog.Logger
}

// New constructs a Builder. A nil logger falls back to slog.Default().
func New(pub Publisher, log *slog.Logger) *Builder {
	if log == nil {
		log = slog.Default()
	}
	return &Builder{Publisher: pub, Log: log}
}

// Build executes the full Segment Builder algorithm from spec §4.C
// and returns its result record.
func (b *Builder) Build(ctx context.Context, opts Options) (Result, error) {
	sch := opts.Schema
	if len(sch.Fields) == 0 {
		sch = schema.Default()
	}

	discOpts := discovery.Options{
		DocsRoot:      opts.DocsRoot,
		Source:        opts.Source,
		AllowPrefixes: opts.AllowPrefixes,
		DenyPrefixes:  opts.DenyPrefixes,
		ChangedPaths:  opts.ChangedPaths,
		ChangedOnly:   opts.ChangedOnly,
		Limit:         opts.Limit,
	}
	if opts.ChangedOnly && b.Publisher != nil {
		if since, ok, err := b.Publisher.LatestCreatedAt(ctx); err == nil && ok {
			discOpts.Since = since
		}
	}

	candidates, discErrs := discovery.Discover(discOpts)

	var result Result
	for _, e := range discErrs {
		result.Errors = append(result.Errors, e.Error())
	}

	schemaJSON, err := sch.ToDict()
	if err != nil {
		return result, fmt.Errorf("indexer: canonical schema: %w", err)
	}

	seg := segment.New("", sch)
	seen := make(map[string]bool)
	var records []segment.DocKeyRecord
	var nextDocID segment.DocID

	for _, cand := range candidates {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		doc, skip, err := extractDocument(cand)
		if err != nil {
			result.DocumentsSkipped++
			var mismatch *apperr.SchemaMismatchError
			if errors.As(err, &mismatch) {
				result.Errors = append(result.Errors, mismatch.Error())
			} else {
				result.Errors = append(result.Errors, (&apperr.DocumentLoadError{Path: cand.MarkdownPath, Err: err}).Error())
			}
			continue
		}
		if skip {
			result.DocumentsSkipped++
			continue
		}

		key := segment.DocumentKey(doc.URL)
		if seen[key] {
			result.DocumentsSkipped++
			result.Errors = append(result.Errors, (&apperr.DuplicateDocumentError{DocumentKey: key}).Error())
			continue
		}
		seen[key] = true

		canon, err := segment.CanonicalJSON(doc)
		if err != nil {
			result.DocumentsSkipped++
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		records = append(records, segment.DocKeyRecord{DocKey: key, RecordDigest: segment.RecordDigest(canon)})

		docID := nextDocID
		nextDocID++
		indexDocument(seg, sch, docID, doc)
		seg.Documents = append(seg.Documents, segment.ProjectStored(docID, doc))
		seg.DocCount++
		result.DocumentsIndexed++
	}

	if len(records) == 0 {
		return result, nil
	}

	seg.SegmentID = segment.Fingerprint(schemaJSON, records)
	seg.PopulateBloom()

	path, existed, err := b.Publisher.Save(ctx, seg)
	if err != nil {
		return result, fmt.Errorf("indexer: publish: %w", err)
	}
	result.SegmentID = seg.SegmentID
	result.SegmentPath = path
	if existed {
		b.Log.Info("segment already present, reused existing artifact", "segment_id", seg.SegmentID)
	}

	return result, nil
}

// extractDocument implements spec §4.C step 2-3: read markdown, split
// front matter, derive fields, and apply per-document gating.
func extractDocument(cand discovery.Candidate) (segment.Document, bool, error) {
	raw, err := os.ReadFile(cand.MarkdownPath)
	if err != nil {
		return segment.Document{}, false, err
	}

	matter, body, _ := frontmatter.Split(string(raw))
	headings := frontmatter.ExtractHeadings(body)
	excerpt := frontmatter.ExtractExcerpt(body)

	stem := strings.TrimSuffix(filepath.Base(cand.MarkdownPath), filepath.Ext(cand.MarkdownPath))
	title := frontmatter.DeriveTitle(matter.Title, headings, stem)

	url := matter.URL
	if cand.Metadata != nil && cand.Metadata.URL != "" {
		url = cand.Metadata.URL
	}
	if url == "" {
		return segment.Document{}, false, &apperr.SchemaMismatchError{Field: "url"}
	}

	language := matter.LanguageCode()
	if language == "" {
		language = frontmatter.DetectLanguageFromURL(url)
	}
	if language == "" {
		language = "en"
	}

	ts := deriveTimestamp(cand, matter)

	urlPath := url
	if idx := strings.Index(url, "://"); idx != -1 {
		rest := url[idx+3:]
		if slash := strings.Index(rest, "/"); slash != -1 {
			urlPath = rest[slash:]
		} else {
			urlPath = "/"
		}
	}

	return segment.Document{
		URL:            url,
		Title:          title,
		Body:           body,
		Excerpt:        excerpt,
		HeadingsH1:     headings.H1,
		HeadingsH2:     headings.H2,
		HeadingsH3Plus: headings.H3Plus,
		URLPath:        urlPath,
		Tags:           matter.TagsAsStrings(),
		Language:       language,
		Timestamp:      ts,
	}, false, nil
}

func deriveTimestamp(cand discovery.Candidate, matter frontmatter.Matter) time.Time {
	if cand.Metadata != nil {
		if t, err := time.Parse(time.RFC3339, cand.Metadata.Metadata.LastFetchedAt); err == nil {
			return t.UTC()
		}
		if t, err := time.Parse(time.RFC3339, cand.Metadata.Metadata.IndexedAt); err == nil {
			return t.UTC()
		}
	}
	if matter.LastFetchedAt != "" {
		if t, err := time.Parse(time.RFC3339, matter.LastFetchedAt); err == nil {
			return t.UTC()
		}
	}
	if !cand.MarkdownModTime.IsZero() {
		return cand.MarkdownModTime.UTC()
	}
	return time.Now().UTC()
}

// indexDocument tokenizes every indexed field of doc and records
// postings + field lengths into seg (spec §4.C step 4).
func indexDocument(seg *segment.Segment, sch schema.Schema, id segment.DocID, doc segment.Document) {
	fieldValue := func(name string) (text string, list []string, numeric float64, isNumeric bool) {
		switch name {
		case "title":
			return doc.Title, nil, 0, false
		case "body":
			return doc.Body, nil, 0, false
		case "excerpt":
			return doc.Excerpt, nil, 0, false
		case "headings_h1":
			return strings.Join(doc.HeadingsH1, " "), nil, 0, false
		case "headings_h2":
			return strings.Join(doc.HeadingsH2, " "), nil, 0, false
		case "headings_h3_plus":
			return strings.Join(doc.HeadingsH3Plus, " "), nil, 0, false
		case "tags":
			return "", doc.Tags, 0, false
		case "url_path":
			return "", []string{doc.URLPath}, 0, false
		case "timestamp":
			return "", nil, float64(doc.Timestamp.Unix()), true
		default:
			return "", nil, 0, false
		}
	}

	for _, f := range sch.Fields {
		if !f.Indexed {
			continue
		}
		text, list, numeric, isNumeric := fieldValue(f.Name)

		var tokens []analyzer.Token
		switch f.Type {
		case schema.TypeText:
			tokens = analyzer.ForProfile(f.AnalyzerProfile).Tokenize(text)
		case schema.TypeKeyword:
			if list != nil {
				tokens = analyzer.TokenizeAll(list)
			} else {
				tokens = analyzer.ForProfile(analyzer.ProfileKeyword).Tokenize(text)
			}
		case schema.TypeNumeric:
			if isNumeric {
				tokens = []analyzer.Token{analyzer.TokenizeNumeric(numeric)}
			}
		}
		if len(tokens) == 0 {
			continue
		}

		byTerm := make(map[string][]uint32)
		for _, tok := range tokens {
			byTerm[tok.Text] = append(byTerm[tok.Text], uint32(tok.Position))
		}
		for term, positions := range byTerm {
			seg.AddPosting(f.Name, term, id, positions)
		}
		seg.FieldLen(f.Name).Add(id, len(tokens))
	}
}
