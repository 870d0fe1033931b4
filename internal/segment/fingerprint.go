package segment

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
)

// FormatVersion is the current segment artifact format. Any future
// incompatible change to the artifact layout must bump this, which
// flips every fingerprint and forces a full reindex.
const FormatVersion = "docsearch-segment-v1"

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// DocKeyRecord pairs a document's unique key with the SHA-256 digest
// of its canonical record JSON, as required by the fingerprint
// formula in spec §4.C.5.
type DocKeyRecord struct {
	DocKey       string
	RecordDigest string
}

// Fingerprint computes segment_id = SHA-256(version_tag ||
// canonical_schema_json || sum of sorted (doc_key, doc_digest) pairs).
// Two builds over identical schema and identical document records
// produce byte-identical IDs regardless of discovery order, since the
// doc/key pairs are sorted before hashing (spec testable property 1
// and scenario 5).
//
// An empty corpus has no fingerprint; callers must check len(records)
// before calling (spec §4.C.5: "empty corpus -> no segment persisted").
func Fingerprint(canonicalSchemaJSON []byte, records []DocKeyRecord) string {
	sorted := make([]DocKeyRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].DocKey < sorted[j].DocKey })

	h := sha256.New()
	h.Write([]byte(FormatVersion))
	h.Write(canonicalSchemaJSON)
	for _, r := range sorted {
		h.Write([]byte(r.DocKey))
		h.Write([]byte(r.RecordDigest))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// RecordDigest hashes the canonical JSON representation of one
// document record, for use in Fingerprint.
func RecordDigest(canonicalRecordJSON []byte) string {
	sum := sha256.Sum256(canonicalRecordJSON)
	return hex.EncodeToString(sum[:])
}
