package segment

import "time"

// Document is the unit indexed: one markdown page plus its derived
// metadata, identified by a canonical URL.
type Document struct {
	URL             string
	Title           string
	Body            string
	Excerpt         string
	HeadingsH1      []string
	HeadingsH2      []string
	HeadingsH3Plus  []string
	URLPath         string
	Tags            []string
	Language        string
	Timestamp       time.Time
}

// DocumentKey is the first 64 hex chars of SHA-256 over the
// canonicalized URL — the unique key spec §3.1 requires.
func DocumentKey(canonicalURL string) string {
	return sha256Hex(canonicalURL)[:64]
}

// StoredFields is the allow-listed, length-capped projection of a
// Document kept in the segment's documents table (spec §4.C.7). Only
// fields named here are retrievable after a query.
type StoredFields struct {
	DocID    DocID
	URL      string
	Title    string
	Body     string
	Path     string
	Excerpt  string
	Language string
}

const (
	bodyStoredCap  = 4096
	titleStoredCap = 512
)

// ProjectStored applies the default stored-field allow-list and
// per-field truncation caps.
func ProjectStored(id DocID, d Document) StoredFields {
	return StoredFields{
		DocID:    id,
		URL:      d.URL,
		Title:    truncate(d.Title, titleStoredCap),
		Body:     truncate(d.Body, bodyStoredCap),
		Path:     d.URLPath,
		Excerpt:  d.Excerpt,
		Language: d.Language,
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
