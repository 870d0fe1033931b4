package segment

import (
	"bytes"
	"encoding/json"
	"sort"
)

// canonicalDocument is the fixed-key-order JSON shape hashed into the
// segment fingerprint. Field order here is part of the contract: any
// reordering changes every fingerprint.
type canonicalDocument struct {
	Body           string   `json:"body"`
	Excerpt        string   `json:"excerpt"`
	HeadingsH1     []string `json:"headings_h1"`
	HeadingsH2     []string `json:"headings_h2"`
	HeadingsH3Plus []string `json:"headings_h3_plus"`
	Language       string   `json:"language"`
	Tags           []string `json:"tags"`
	Timestamp      int64    `json:"timestamp"`
	Title          string   `json:"title"`
	URL            string   `json:"url"`
	URLPath        string   `json:"url_path"`
}

// CanonicalJSON renders d with a fixed field order and sorted tag
// list, so that fingerprinting is insensitive to incidental ordering
// differences between two otherwise-identical extractions.
func CanonicalJSON(d Document) ([]byte, error) {
	tags := make([]string, len(d.Tags))
	copy(tags, d.Tags)
	sort.Strings(tags)

	cd := canonicalDocument{
		Body:           d.Body,
		Excerpt:        d.Excerpt,
		HeadingsH1:     orEmpty(d.HeadingsH1),
		HeadingsH2:     orEmpty(d.HeadingsH2),
		HeadingsH3Plus: orEmpty(d.HeadingsH3Plus),
		Language:       d.Language,
		Tags:           orEmpty(tags),
		Timestamp:      d.Timestamp.Unix(),
		Title:          d.Title,
		URL:            d.URL,
		URLPath:        d.URLPath,
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(cd); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
