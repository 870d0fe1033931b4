// Package frontmatter extracts YAML front matter and derives title,
// headings, and excerpt fields from a markdown document body, per
// spec §4.C.2 and §6.3.
package frontmatter

import (
	"log/slog"
	"strings"

	"gopkg.in/yaml.v3"
)

// Matter is the set of front-matter keys the builder recognizes.
// Absent or malformed front matter MUST NOT abort indexing — callers
// treat a parse error the same as "no front matter" (spec §6.3).
type Matter struct {
	URL           string   `yaml:"url"`
	Title         string   `yaml:"title"`
	Language      string   `yaml:"language"`
	Lang          string   `yaml:"lang"`
	Tags          any      `yaml:"tags"`
	LastFetchedAt string   `yaml:"last_fetched_at"`
}

// Split separates leading `---`-delimited YAML front matter from the
// rest of a markdown document. If no front matter is present, matter
// is the zero value and body is the full input unchanged.
func Split(raw string) (matter Matter, body string, hasMatter bool) {
	lines := strings.Split(raw, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return Matter{}, raw, false
	}

	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			end = i
			break
		}
	}
	if end == -1 {
		return Matter{}, raw, false
	}

	yamlBlock := strings.Join(lines[1:end], "\n")
	var m Matter
	if err := yaml.Unmarshal([]byte(yamlBlock), &m); err != nil {
		// Malformed front matter: treat as absent, keep original body.
		slog.Debug("malformed front matter ignored", "error", err)
		return Matter{}, raw, false
	}

	rest := strings.Join(lines[end+1:], "\n")
	return m, rest, true
}

// TagsAsStrings coerces the Tags field (which may decode as a single
// string or a list, per spec §4.C.2) into a []string.
func (m Matter) TagsAsStrings() []string {
	switch v := m.Tags.(type) {
	case nil:
		return nil
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []any:
		var out []string
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// LanguageCode returns the lowercased, 5-char-max language code from
// whichever of Language/Lang is set, or "" if neither is.
func (m Matter) LanguageCode() string {
	code := m.Language
	if code == "" {
		code = m.Lang
	}
	code = strings.ToLower(strings.TrimSpace(code))
	if len(code) > 5 {
		code = code[:5]
	}
	return code
}
