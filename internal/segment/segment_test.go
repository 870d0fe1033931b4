package segment

import (
	"testing"
	"time"
)

func sampleDoc() Document {
	return Document{
		URL:        "https://ex.com/install",
		Title:      "Installation",
		Body:       "Install with pip install pkg",
		Excerpt:    "Install with pip install pkg",
		URLPath:    "/install",
		Tags:       []string{"b-tag", "a-tag"},
		Language:   "en",
		Timestamp:  time.Unix(1000, 0).UTC(),
	}
}

func TestFingerprintDeterministic(t *testing.T) {
	doc := sampleDoc()
	canon, err := CanonicalJSON(doc)
	if err != nil {
		t.Fatal(err)
	}
	digest := RecordDigest(canon)
	records := []DocKeyRecord{{DocKey: DocumentKey(doc.URL), RecordDigest: digest}}

	schemaJSON := []byte(`{"fields":[],"unique_field":"url"}`)
	id1 := Fingerprint(schemaJSON, records)
	id2 := Fingerprint(schemaJSON, records)
	if id1 != id2 {
		t.Fatalf("fingerprint not deterministic: %s != %s", id1, id2)
	}
}

func TestFingerprintOrderIndependent(t *testing.T) {
	d1 := sampleDoc()
	d2 := sampleDoc()
	d2.URL = "https://ex.com/other"

	mk := func(d Document) DocKeyRecord {
		canon, _ := CanonicalJSON(d)
		return DocKeyRecord{DocKey: DocumentKey(d.URL), RecordDigest: RecordDigest(canon)}
	}

	schemaJSON := []byte(`{"fields":[],"unique_field":"url"}`)
	a := Fingerprint(schemaJSON, []DocKeyRecord{mk(d1), mk(d2)})
	b := Fingerprint(schemaJSON, []DocKeyRecord{mk(d2), mk(d1)})
	if a != b {
		t.Fatalf("fingerprint depends on discovery order: %s != %s", a, b)
	}
}

func TestFingerprintChangesWithSchema(t *testing.T) {
	doc := sampleDoc()
	canon, _ := CanonicalJSON(doc)
	records := []DocKeyRecord{{DocKey: DocumentKey(doc.URL), RecordDigest: RecordDigest(canon)}}

	a := Fingerprint([]byte(`{"fields":[],"unique_field":"url"}`), records)
	b := Fingerprint([]byte(`{"fields":[],"unique_field":"path"}`), records)
	if a == b {
		t.Fatal("fingerprint did not change when schema changed")
	}
}

func TestBloomNoFalseNegative(t *testing.T) {
	terms := []string{"install", "pip", "package", "docsearch", "bloom", "segment"}
	params := OptimalParams(len(terms))
	b := NewBuilder(params)
	for _, term := range terms {
		b.Add(term)
	}
	blocks := b.Blocks()

	for _, term := range terms {
		for _, pos := range Positions(term, params) {
			blockIndex, byteOffset, mask := BlockMask(pos, params.BlockBits)
			block, ok := blocks[blockIndex]
			if !ok {
				t.Fatalf("term %q: block %d missing", term, blockIndex)
			}
			if !ProbeBlock(block, byteOffset, mask) {
				t.Fatalf("term %q: bit at block %d offset %d not set (false negative)", term, blockIndex, byteOffset)
			}
		}
	}
}

func TestBloomBlockMaskRoundTrip(t *testing.T) {
	params := BloomParams{BitSize: 4096 * 8 * 2, HashCount: 3, BlockBits: DefaultBlockBits}
	pos := uint64(5000)
	blockIndex, byteOffset, mask := BlockMask(pos, params.BlockBits)
	if blockIndex != 0 {
		t.Fatalf("expected block 0, got %d", blockIndex)
	}
	block := make([]byte, params.BlockBits/8)
	block[byteOffset] |= mask
	if !ProbeBlock(block, byteOffset, mask) {
		t.Fatal("expected probe to find set bit")
	}
}
