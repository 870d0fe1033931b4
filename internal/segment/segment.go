package segment

import (
	"time"

	"github.com/go-mizu/docsearch/internal/schema"
)

// Segment is the immutable, in-memory representation of one build's
// output: everything the Segment Store persists and the Query Engine
// reads (spec §3.1).
type Segment struct {
	SegmentID string
	Schema    schema.Schema
	CreatedAt time.Time

	Documents []StoredFields
	DocCount  int

	// Postings[field][term] -> occurrence list.
	Postings map[string]map[string]PostingsList

	// FieldLengths[field] -> length statistics for that field.
	FieldLengths map[string]*FieldLengths

	Bloom       BloomParams
	BloomBlocks map[uint64][]byte
}

// New creates an empty Segment ready for incremental population by
// the indexer.
func New(id string, sch schema.Schema) *Segment {
	return &Segment{
		SegmentID:    id,
		Schema:       sch,
		CreatedAt:    time.Now().UTC(),
		Postings:     make(map[string]map[string]PostingsList),
		FieldLengths: make(map[string]*FieldLengths),
	}
}

// AddPosting appends an occurrence of term in field for doc at the
// given positions (already sorted and de-duplicated by the caller).
func (s *Segment) AddPosting(field, term string, doc DocID, positions []uint32) {
	byTerm, ok := s.Postings[field]
	if !ok {
		byTerm = make(map[string]PostingsList)
		s.Postings[field] = byTerm
	}
	byTerm[term] = append(byTerm[term], Posting{DocID: doc, Positions: positions})
}

// FieldLen returns (creating if absent) the FieldLengths accumulator
// for field.
func (s *Segment) FieldLen(field string) *FieldLengths {
	fl, ok := s.FieldLengths[field]
	if !ok {
		fl = &FieldLengths{Lengths: make(map[DocID]int)}
		s.FieldLengths[field] = fl
	}
	return fl
}

// Vocabulary returns the distinct terms across all indexed fields,
// used to size the bloom filter before population.
func (s *Segment) Vocabulary() []string {
	seen := make(map[string]struct{})
	for _, byTerm := range s.Postings {
		for term := range byTerm {
			seen[term] = struct{}{}
		}
	}
	terms := make([]string, 0, len(seen))
	for t := range seen {
		terms = append(terms, t)
	}
	return terms
}

// PopulateBloom sizes and fills the segment's bloom filter from its
// current vocabulary (spec §4.C.6).
func (s *Segment) PopulateBloom() {
	vocab := s.Vocabulary()
	s.Bloom = OptimalParams(len(vocab))
	b := NewBuilder(s.Bloom)
	for _, term := range vocab {
		b.Add(term)
	}
	s.BloomBlocks = b.Blocks()
}
