// Package segment defines the in-memory representation of an
// immutable segment: postings, field-length statistics, stored
// document records, and the bloom filter blocks used to skip absent
// query terms before touching postings.
package segment

// DocID identifies a document within one segment build. It is dense
// (0..N-1) and assigned in discovery order; it has no meaning across
// segments.
type DocID uint32

// Posting is one (field, term) tuple's occurrence list: which
// documents carry the term in that field, and at which token
// positions. Term frequency is len(Positions).
type Posting struct {
	DocID     DocID
	Positions []uint32 // sorted, unique, strictly within the field's token range
}

// PostingsList is the full occurrence list for one (field, term) pair,
// keyed implicitly by the caller (Segment.Postings[field][term]).
type PostingsList []Posting

// FieldLengths holds the length statistics required for BM25
// normalization of one field: each document's token count in that
// field, the sum over all documents, and the document count that
// contributes to the field (documents where the field was empty do
// not count toward AvgLength's denominator differently — they simply
// contribute a length of 0).
type FieldLengths struct {
	Lengths    map[DocID]int
	TotalTerms int64
	DocCount   int
}

// AvgLength returns the mean token length of the field across all
// documents in the segment (not just the ones where it is nonzero).
// A zero-document segment has an undefined average and returns 0.
func (fl FieldLengths) AvgLength(corpusDocCount int) float64 {
	if corpusDocCount == 0 {
		return 0
	}
	return float64(fl.TotalTerms) / float64(corpusDocCount)
}

// Add records that doc has n tokens in this field.
func (fl *FieldLengths) Add(doc DocID, n int) {
	if fl.Lengths == nil {
		fl.Lengths = make(map[DocID]int)
	}
	fl.Lengths[doc] = n
	fl.TotalTerms += int64(n)
	fl.DocCount++
}
