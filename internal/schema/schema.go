// Package schema describes the typed fields of a tenant's search
// index: which fields are indexed, stored, and how they contribute to
// BM25F scoring.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// FieldType is the storage/indexing discipline for a Field.
type FieldType string

const (
	// TypeText fields are tokenized with the field's analyzer profile
	// and contribute per-field postings.
	TypeText FieldType = "text"
	// TypeKeyword fields are indexed as one token per value (or one
	// token per element, for array values) without tokenization.
	TypeKeyword FieldType = "keyword"
	// TypeNumeric fields stringify to a canonical decimal form and
	// index as a single token.
	TypeNumeric FieldType = "numeric"
)

// Field is a single schema entry.
type Field struct {
	Name            string    `json:"name"`
	Type            FieldType `json:"type"`
	Stored          bool      `json:"stored"`
	Indexed         bool      `json:"indexed"`
	Boost           float32   `json:"boost"`
	AnalyzerProfile string    `json:"analyzer_profile,omitempty"`
}

// Schema is an ordered list of fields plus the name of the field that
// uniquely identifies a document within a segment.
type Schema struct {
	Fields     []Field `json:"fields"`
	UniqueField string `json:"unique_field"`
}

// Default returns the schema used by the Segment Builder when a
// tenant does not supply its own: title/headings/body/excerpt are
// indexed text fields (title boosted highest), url/language/url_path/
// tags are keyword fields (url and language stored but not indexed),
// timestamp is numeric and not indexed.
func Default() Schema {
	return Schema{
		UniqueField: "url",
		Fields: []Field{
			{Name: "url", Type: TypeKeyword, Stored: true, Indexed: false, Boost: 0},
			{Name: "title", Type: TypeText, Stored: true, Indexed: true, Boost: 3.0, AnalyzerProfile: "default"},
			{Name: "headings_h1", Type: TypeText, Stored: true, Indexed: true, Boost: 2.5, AnalyzerProfile: "default"},
			{Name: "headings_h2", Type: TypeText, Stored: true, Indexed: true, Boost: 2.0, AnalyzerProfile: "default"},
			{Name: "headings_h3_plus", Type: TypeText, Stored: true, Indexed: true, Boost: 1.5, AnalyzerProfile: "default"},
			{Name: "body", Type: TypeText, Stored: true, Indexed: true, Boost: 1.0, AnalyzerProfile: "default"},
			{Name: "excerpt", Type: TypeText, Stored: true, Indexed: true, Boost: 1.2, AnalyzerProfile: "default"},
			{Name: "url_path", Type: TypeKeyword, Stored: true, Indexed: true, Boost: 0.5},
			{Name: "tags", Type: TypeKeyword, Stored: true, Indexed: true, Boost: 1.0},
			{Name: "language", Type: TypeKeyword, Stored: true, Indexed: false, Boost: 0},
			{Name: "timestamp", Type: TypeNumeric, Stored: true, Indexed: false, Boost: 0},
		},
	}
}

// GetBoost returns the BM25F field weight for name, or 0 if the field
// does not exist or is not indexed.
func (s Schema) GetBoost(name string) float32 {
	for _, f := range s.Fields {
		if f.Name == name {
			if !f.Indexed {
				return 0
			}
			return f.Boost
		}
	}
	return 0
}

// Field looks up a field by name.
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// IndexedTextFields returns the names of all indexed text fields, in
// schema order.
func (s Schema) IndexedTextFields() []string {
	var names []string
	for _, f := range s.Fields {
		if f.Indexed && f.Type == TypeText {
			names = append(names, f.Name)
		}
	}
	return names
}

// IndexedFields returns the names of all indexed fields of any type,
// in schema order.
func (s Schema) IndexedFields() []string {
	var names []string
	for _, f := range s.Fields {
		if f.Indexed {
			names = append(names, f.Name)
		}
	}
	return names
}

// ToDict renders the schema as canonical JSON with a stable key
// ordering, so two schemas with identical content always produce
// byte-identical output — required for fingerprint determinism
// (spec §4.C.5).
func (s Schema) ToDict() ([]byte, error) {
	fields := make([]Field, len(s.Fields))
	copy(fields, s.Fields)
	sort.SliceStable(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })

	type canonicalField struct {
		AnalyzerProfile string    `json:"analyzer_profile,omitempty"`
		Boost           float32   `json:"boost"`
		Indexed         bool      `json:"indexed"`
		Name            string    `json:"name"`
		Stored          bool      `json:"stored"`
		Type            FieldType `json:"type"`
	}
	canonical := struct {
		Fields      []canonicalField `json:"fields"`
		UniqueField string           `json:"unique_field"`
	}{UniqueField: s.UniqueField}

	for _, f := range fields {
		canonical.Fields = append(canonical.Fields, canonicalField{
			AnalyzerProfile: f.AnalyzerProfile,
			Boost:           f.Boost,
			Indexed:         f.Indexed,
			Name:            f.Name,
			Stored:          f.Stored,
			Type:            f.Type,
		})
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(canonical); err != nil {
		return nil, fmt.Errorf("schema: encode canonical form: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// FromDict parses a schema previously produced by ToDict (or any
// equivalent JSON document shaped the same way).
func FromDict(data []byte) (Schema, error) {
	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return Schema{}, fmt.Errorf("schema: decode: %w", err)
	}
	return s, nil
}
