// Package query implements the Query Engine (spec §4.D): tokenize,
// expand synonyms, probe the segment's bloom filter, fetch postings,
// score with BM25F, select the top hits, and build highlighted
// snippets — all against one immutable segment artifact opened
// read-only by the caller.
package query

import (
	"container/heap"
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-mizu/docsearch/internal/apperr"
	"github.com/go-mizu/docsearch/internal/analyzer"
	"github.com/go-mizu/docsearch/internal/schema"
	"github.com/go-mizu/docsearch/internal/segment"
	sqlitestore "github.com/go-mizu/docsearch/store/sqlite"
)

// DefaultMaxResults, MaxResultsCap, and DefaultDeadline are the
// bounds spec §4.D step 6 and §5 name.
const (
	DefaultMaxResults  = 10
	MaxResultsCap      = 50
	DefaultDeadline    = 5 * time.Second
	defaultSnippetCap  = 200
)

// MatchTrace records how a result was produced, for observability and
// the result record spec §4.D requires.
type MatchTrace struct {
	Stage        int
	StageName    string
	QueryVariant string
	MatchReason  string
}

// Result is one ranked hit (spec §4.D result record).
type Result struct {
	DocumentURL    string
	DocumentTitle  string
	Snippet        string
	RelevanceScore float64
	MatchTrace     MatchTrace
}

// Response wraps a query's results plus a non-fatal warning, set when
// the soft deadline was hit before scoring finished (spec §5
// cancellation semantics).
type Response struct {
	Results []Result
	Warning string
}

// Options configures one Search call.
type Options struct {
	MaxResults int
	Deadline   time.Duration
	Synonyms   map[string]map[string]struct{} // nil uses the package default table
}

func (o Options) withDefaults() Options {
	if o.MaxResults <= 0 {
		o.MaxResults = DefaultMaxResults
	}
	if o.MaxResults > MaxResultsCap {
		o.MaxResults = MaxResultsCap
	}
	if o.Deadline <= 0 {
		o.Deadline = DefaultDeadline
	}
	return o
}

// Engine runs queries against one opened segment artifact connection.
type Engine struct{}

// NewEngine constructs a stateless Query Engine. All per-query state
// (synonym table override, deadline) travels through Options.
func NewEngine() *Engine { return &Engine{} }

// Search implements the full pipeline from spec §4.D against db, a
// read-only connection to one segment artifact (as returned by
// store.Store.Open).
func (e *Engine) Search(ctx context.Context, db *sql.DB, queryText string, opts Options) (Response, error) {
	opts = opts.withDefaults()

	if strings.TrimSpace(queryText) == "" {
		return Response{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Deadline)
	defer cancel()

	meta, err := sqlitestore.ReadMetadataKeys(ctx, db, []string{
		"segment_format_version", "schema", "doc_count", "bloom_bit_size", "bloom_hash_count", "bloom_block_bits",
	})
	if err != nil {
		return Response{}, fmt.Errorf("query: read segment metadata: %w", err)
	}

	sch, totalDocs, bloomParams, err := parseIndexMetadata(meta)
	if err != nil {
		return Response{}, err
	}

	tokens := analyzer.ForProfile(analyzer.ProfileDefault).Tokenize(queryText)
	if len(tokens) == 0 {
		return Response{}, nil
	}
	rawTerms := make([]string, len(tokens))
	for i, t := range tokens {
		rawTerms[i] = t.Text
	}

	expander := NewSynonymExpander(opts.Synonyms)
	expandedSet, orderedTerms, highlightTerms := expander.ExpandTerms(rawTerms)

	survivors, err := bloomProbe(ctx, db, expandedSet, bloomParams)
	if err != nil {
		return Response{}, err
	}
	if len(survivors) == 0 {
		return Response{}, nil
	}

	fields := fieldsWithPositiveBoost(sch)
	if len(fields) == 0 {
		return Response{}, nil
	}

	avgLen, err := readFieldAverageLengths(ctx, db, fields, totalDocs)
	if err != nil {
		return Response{}, err
	}

	docTermWeighted, termDocFreq, docFieldPositions, warning := fetchPostings(ctx, db, fields, survivors, avgLen, opts.Deadline)

	scores := scoreDocuments(docTermWeighted, termDocFreq, totalDocs)
	applyPhraseBonus(scores, docFieldPositions, orderedTerms)

	top := selectTopK(scores, opts.MaxResults)
	if len(top) == 0 {
		return Response{Warning: warning}, nil
	}

	docs, err := fetchStoredFields(ctx, db, top)
	if err != nil {
		return Response{}, err
	}

	variant := strings.Join(highlightTerms, " ")
	if len(variant) > 100 {
		variant = variant[:100]
	}

	results := make([]Result, 0, len(top))
	for _, sd := range top {
		d, ok := docs[sd.docID]
		if !ok {
			continue
		}
		source := d.Body
		if source == "" {
			source = d.Excerpt
		}
		results = append(results, Result{
			DocumentURL:    d.URL,
			DocumentTitle:  d.Title,
			Snippet:        BuildSnippet(source, highlightTerms, defaultSnippetCap),
			RelevanceScore: sd.score,
			MatchTrace: MatchTrace{
				Stage:        5,
				StageName:    "bm25f",
				QueryVariant: variant,
				MatchReason:  "BM25F ranking across segment postings",
			},
		})
	}

	return Response{Results: results, Warning: warning}, nil
}

func parseIndexMetadata(meta map[string]string) (schema.Schema, int, segment.BloomParams, error) {
	if meta["segment_format_version"] != segment.FormatVersion {
		return schema.Schema{}, 0, segment.BloomParams{}, &apperr.IndexVersionError{Reason: "missing or unknown segment_format_version"}
	}
	schemaJSON, err := sqlitestore.ParseSchemaMetadata(meta["schema"])
	if err != nil {
		return schema.Schema{}, 0, segment.BloomParams{}, &apperr.IndexVersionError{Reason: "missing schema metadata"}
	}
	sch, err := schema.FromDict(schemaJSON)
	if err != nil {
		return schema.Schema{}, 0, segment.BloomParams{}, &apperr.IndexVersionError{Reason: err.Error()}
	}

	totalDocs, err := strconv.Atoi(meta["doc_count"])
	if err != nil {
		return schema.Schema{}, 0, segment.BloomParams{}, &apperr.IndexVersionError{Reason: "missing doc_count metadata"}
	}

	bitSize, err1 := strconv.ParseUint(meta["bloom_bit_size"], 10, 64)
	hashCount, err2 := strconv.Atoi(meta["bloom_hash_count"])
	blockBits, err3 := strconv.ParseUint(meta["bloom_block_bits"], 10, 64)
	if err1 != nil || err2 != nil || err3 != nil || bitSize == 0 || hashCount == 0 || blockBits == 0 {
		return schema.Schema{}, 0, segment.BloomParams{}, &apperr.IndexVersionError{Reason: "missing bloom-filter metadata"}
	}

	return sch, totalDocs, segment.BloomParams{BitSize: bitSize, HashCount: hashCount, BlockBits: blockBits}, nil
}

// bloomProbe implements spec §4.D step 3: derive bit positions for
// every candidate term, batch-load only the referenced blocks, and
// keep terms whose bits are all set.
func bloomProbe(ctx context.Context, db *sql.DB, candidates map[string]struct{}, params segment.BloomParams) ([]string, error) {
	type mask struct {
		block  uint64
		offset int
		bit    byte
	}
	masks := make(map[string][]mask, len(candidates))
	blocks := make(map[uint64]struct{})

	for term := range candidates {
		var ms []mask
		for _, pos := range segment.Positions(term, params) {
			block, offset, bit := segment.BlockMask(pos, params.BlockBits)
			ms = append(ms, mask{block, offset, bit})
			blocks[block] = struct{}{}
		}
		masks[term] = ms
	}
	if len(blocks) == 0 {
		return nil, nil
	}

	ids := make([]any, 0, len(blocks))
	placeholders := make([]string, 0, len(blocks))
	for b := range blocks {
		ids = append(ids, b)
		placeholders = append(placeholders, "?")
	}
	query := fmt.Sprintf(`SELECT block_index, bits FROM bloom_blocks WHERE block_index IN (%s)`, strings.Join(placeholders, ", "))
	rows, err := db.QueryContext(ctx, query, ids...)
	if err != nil {
		return nil, fmt.Errorf("query: bloom block read: %w", err)
	}
	defer rows.Close()

	loaded := make(map[uint64][]byte, len(blocks))
	for rows.Next() {
		var idx uint64
		var bits []byte
		if err := rows.Scan(&idx, &bits); err != nil {
			return nil, fmt.Errorf("query: scan bloom block: %w", err)
		}
		loaded[idx] = bits
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var survivors []string
	for term, ms := range masks {
		allSet := true
		for _, m := range ms {
			block, ok := loaded[m.block]
			if !ok || !segment.ProbeBlock(block, m.offset, m.bit) {
				allSet = false
				break
			}
		}
		if allSet {
			survivors = append(survivors, term)
		}
	}
	return survivors, nil
}

func fieldsWithPositiveBoost(sch schema.Schema) []schema.Field {
	var out []schema.Field
	for _, f := range sch.Fields {
		if f.Indexed && f.Boost > 0 {
			out = append(out, f)
		}
	}
	return out
}

// readFieldAverageLengths computes each field's mean token length
// across the whole segment (segment.FieldLengths.AvgLength's contract:
// the denominator is every document in the segment, not just the ones
// where the field happened to be nonempty). field_stats.doc_count only
// counts documents that contributed at least one token to that field,
// so it is read for diagnostics but deliberately not used as the
// divisor here — dividing by it instead of totalDocs would inflate the
// average length of any field that is legitimately sparse (tags,
// headings_h2), over-penalizing long documents that do carry the field
// under BM25F's length normalization.
func readFieldAverageLengths(ctx context.Context, db *sql.DB, fields []schema.Field, totalDocs int) (map[string]float64, error) {
	rows, err := db.QueryContext(ctx, `SELECT field, total_terms, doc_count FROM field_stats`)
	if err != nil {
		return nil, fmt.Errorf("query: read field stats: %w", err)
	}
	defer rows.Close()

	avg := make(map[string]float64, len(fields))
	for rows.Next() {
		var field string
		var totalTerms int64
		var docCount int
		if err := rows.Scan(&field, &totalTerms, &docCount); err != nil {
			return nil, fmt.Errorf("query: scan field stats: %w", err)
		}
		if totalDocs > 0 {
			avg[field] = float64(totalTerms) / float64(totalDocs)
		}
	}
	return avg, rows.Err()
}

// weightedEntry accumulates one document's weighted term frequency for
// scoring; the per-field positions for the phrase bonus are collected
// separately in fetchPostings' docFieldPositions.
type weightedEntry struct {
	weighted float64
}

func fetchPostings(
	ctx context.Context, db *sql.DB, fields []schema.Field, terms []string, avgLen map[string]float64, deadline time.Duration,
) (docTermWeighted map[segment.DocID]map[string]*weightedEntry, termDocFreq map[string]map[segment.DocID]struct{}, docFieldPositions map[segment.DocID]map[string]map[string][]uint32, warning string) {
	docTermWeighted = make(map[segment.DocID]map[string]*weightedEntry)
	termDocFreq = make(map[string]map[segment.DocID]struct{})
	docFieldPositions = make(map[segment.DocID]map[string]map[string][]uint32)

	placeholders := make([]string, len(terms))
	args := make([]any, 0, len(terms)+1)
	for i, t := range terms {
		placeholders[i] = "?"
		args = append(args, t)
	}
	inClause := strings.Join(placeholders, ", ")

	for _, f := range fields {
		select {
		case <-ctx.Done():
			warning = (&apperr.QueryTimeoutError{Deadline: deadline.String()}).Error()
			return docTermWeighted, termDocFreq, docFieldPositions, warning
		default:
		}

		query := fmt.Sprintf(
			`SELECT term, doc_id, tf, doc_length, positions_blob FROM postings WHERE field = ? AND term IN (%s)`, inClause)
		queryArgs := append([]any{f.Name}, args...)

		rows, err := db.QueryContext(ctx, query, queryArgs...)
		if err != nil {
			continue
		}
		func() {
			defer rows.Close()
			for rows.Next() {
				var term string
				var docID segment.DocID
				var tf, docLen int
				var blob []byte
				if err := rows.Scan(&term, &docID, &tf, &docLen, &blob); err != nil {
					continue
				}

				w := fieldWeightedTF(f.Boost, tf, docLen, avgLen[f.Name])

				byTerm, ok := docTermWeighted[docID]
				if !ok {
					byTerm = make(map[string]*weightedEntry)
					docTermWeighted[docID] = byTerm
				}
				entry, ok := byTerm[term]
				if !ok {
					entry = &weightedEntry{}
					byTerm[term] = entry
				}
				entry.weighted += w

				if termDocFreq[term] == nil {
					termDocFreq[term] = make(map[segment.DocID]struct{})
				}
				termDocFreq[term][docID] = struct{}{}

				byField, ok := docFieldPositions[docID]
				if !ok {
					byField = make(map[string]map[string][]uint32)
					docFieldPositions[docID] = byField
				}
				byFieldTerm, ok := byField[f.Name]
				if !ok {
					byFieldTerm = make(map[string][]uint32)
					byField[f.Name] = byFieldTerm
				}
				byFieldTerm[term] = sqlitestore.DecodePositions(blob)
			}
		}()
	}
	return docTermWeighted, termDocFreq, docFieldPositions, warning
}

func scoreDocuments(
	docTermWeighted map[segment.DocID]map[string]*weightedEntry, termDocFreq map[string]map[segment.DocID]struct{}, totalDocs int,
) map[segment.DocID]float64 {
	scores := make(map[segment.DocID]float64, len(docTermWeighted))
	for docID, byTerm := range docTermWeighted {
		var total float64
		for term, entry := range byTerm {
			df := len(termDocFreq[term])
			if df == 0 {
				continue
			}
			total += idfAdditive(totalDocs, df) * normalizedTF(entry.weighted)
		}
		scores[docID] = total
	}
	return scores
}

// applyPhraseBonus rewards documents where every term in orderedTerms
// appears, in order, within a small position window in the same field
// (spec §4.D step 5's optional phrase bonus).
func applyPhraseBonus(scores map[segment.DocID]float64, docFieldPositions map[segment.DocID]map[string]map[string][]uint32, orderedTerms []string) {
	if len(orderedTerms) < 2 {
		return
	}
	window := phraseWindow(len(orderedTerms))

	for docID, byField := range docFieldPositions {
		for _, byTerm := range byField {
			if hasOrderedPhrase(byTerm, orderedTerms, window) {
				scores[docID] += phraseBonus
				break
			}
		}
	}
}

func hasOrderedPhrase(byTerm map[string][]uint32, orderedTerms []string, window uint32) bool {
	first, ok := byTerm[orderedTerms[0]]
	if !ok {
		return false
	}
	for _, start := range first {
		end := start + window
		covered := 1
		last := start
		for _, term := range orderedTerms[1:] {
			positions, ok := byTerm[term]
			if !ok {
				break
			}
			found := false
			for _, p := range positions {
				if p > last && p <= end {
					last = p
					found = true
					break
				}
			}
			if !found {
				break
			}
			covered++
		}
		if covered == len(orderedTerms) {
			return true
		}
	}
	return false
}

type scoredDoc struct {
	docID segment.DocID
	score float64
}

// topKHeap is a bounded min-heap: the lowest-priority candidate (worst
// score, ties broken toward higher doc_id) sits at index 0 so it is
// the one evicted when the heap exceeds its capacity.
type topKHeap []scoredDoc

func (h topKHeap) Len() int { return len(h) }
func (h topKHeap) Less(i, j int) bool {
	if h[i].score != h[j].score {
		return h[i].score < h[j].score
	}
	return h[i].docID > h[j].docID
}
func (h topKHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *topKHeap) Push(x any)         { *h = append(*h, x.(scoredDoc)) }
func (h *topKHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// selectTopK implements spec §4.D step 6: bounded heap selection by
// score descending, tie-broken by ascending doc_id for determinism.
func selectTopK(scores map[segment.DocID]float64, k int) []scoredDoc {
	h := &topKHeap{}
	heap.Init(h)
	for docID, score := range scores {
		heap.Push(h, scoredDoc{docID: docID, score: score})
		if h.Len() > k {
			heap.Pop(h)
		}
	}

	out := make([]scoredDoc, h.Len())
	copy(out, *h)
	sort.Slice(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].docID < out[j].docID
	})
	return out
}

type storedDoc struct {
	URL, Title, Body, Excerpt string
}

func fetchStoredFields(ctx context.Context, db *sql.DB, top []scoredDoc) (map[segment.DocID]storedDoc, error) {
	if len(top) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(top))
	args := make([]any, len(top))
	for i, sd := range top {
		placeholders[i] = "?"
		args[i] = sd.docID
	}
	query := fmt.Sprintf(`SELECT doc_id, url, title, body, excerpt FROM documents WHERE doc_id IN (%s)`, strings.Join(placeholders, ", "))
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: fetch stored fields: %w", err)
	}
	defer rows.Close()

	out := make(map[segment.DocID]storedDoc, len(top))
	for rows.Next() {
		var docID segment.DocID
		var d storedDoc
		if err := rows.Scan(&docID, &d.URL, &d.Title, &d.Body, &d.Excerpt); err != nil {
			return nil, fmt.Errorf("query: scan stored fields: %w", err)
		}
		out[docID] = d
	}
	return out, rows.Err()
}
