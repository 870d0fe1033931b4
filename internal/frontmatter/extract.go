package frontmatter

import (
	"strings"
	"unicode"
)

// Headings is the tiered heading extraction result: H1, H2, and
// H3-and-deeper headings, each with trailing anchor markers like
// "[¶](#foo)" stripped (spec §4.C.2).
type Headings struct {
	H1       []string
	H2       []string
	H3Plus   []string
}

// ExtractHeadings walks body line by line and buckets ATX-style
// (`#`, `##`, `###`+) headings by level. It is a line scanner, not a
// markdown AST parse — the original extraction this is ported from
// works the same way.
func ExtractHeadings(body string) Headings {
	var h Headings
	inFence := false
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		level, text, ok := parseHeadingLine(trimmed)
		if !ok {
			continue
		}
		text = stripAnchor(text)
		switch {
		case level == 1:
			h.H1 = append(h.H1, text)
		case level == 2:
			h.H2 = append(h.H2, text)
		default:
			h.H3Plus = append(h.H3Plus, text)
		}
	}
	return h
}

func parseHeadingLine(line string) (level int, text string, ok bool) {
	if !strings.HasPrefix(line, "#") {
		return 0, "", false
	}
	i := 0
	for i < len(line) && line[i] == '#' {
		i++
	}
	if i == 0 || i > 6 {
		return 0, "", false
	}
	rest := strings.TrimSpace(line[i:])
	if rest == "" {
		return 0, "", false
	}
	return i, rest, true
}

// stripAnchor removes a trailing markdown-link anchor marker of the
// form "[¶](#some-anchor)" that static site generators append to
// headings.
func stripAnchor(text string) string {
	idx := strings.LastIndex(text, "[")
	if idx == -1 {
		return text
	}
	tail := text[idx:]
	if strings.Contains(tail, "](") && strings.HasSuffix(tail, ")") {
		return strings.TrimSpace(text[:idx])
	}
	return text
}

// ExtractExcerpt returns the first non-empty, non-heading,
// non-code-fence paragraph, normalized (collapsed whitespace) and
// truncated to 320 chars (spec §4.C.2).
func ExtractExcerpt(body string) string {
	const maxLen = 320
	inFence := false
	var para []string

	flush := func() string {
		text := strings.Join(para, " ")
		text = collapseWhitespace(text)
		return truncateRunes(text, maxLen)
	}

	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		if trimmed == "" {
			if len(para) > 0 {
				return flush()
			}
			continue
		}
		if strings.HasPrefix(trimmed, "#") {
			if len(para) > 0 {
				return flush()
			}
			continue
		}
		para = append(para, trimmed)
	}
	if len(para) > 0 {
		return flush()
	}
	return ""
}

func collapseWhitespace(s string) string {
	var b strings.Builder
	lastSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastSpace {
				b.WriteRune(' ')
			}
			lastSpace = true
			continue
		}
		lastSpace = false
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

// DeriveTitle implements the title fallback chain from spec §4.C.2:
// front matter title > first H1 heading > filename stem, title-cased.
func DeriveTitle(matterTitle string, headings Headings, filenameStem string) string {
	if matterTitle != "" {
		return matterTitle
	}
	if len(headings.H1) > 0 {
		return headings.H1[0]
	}
	return titleCase(filenameStem)
}

// titleCase converts a filename stem like "getting-started" into
// "Getting Started".
func titleCase(stem string) string {
	stem = strings.ReplaceAll(stem, "_", " ")
	stem = strings.ReplaceAll(stem, "-", " ")
	words := strings.Fields(stem)
	for i, w := range words {
		r := []rune(w)
		if len(r) == 0 {
			continue
		}
		r[0] = unicode.ToUpper(r[0])
		for j := 1; j < len(r); j++ {
			r[j] = unicode.ToLower(r[j])
		}
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// languagePatterns maps URL substrings to ISO-639 codes, matched in
// order against the document's path/host (spec §4.C.2). Constructed
// once, like the synonym table.
var languagePatterns = []struct {
	pattern string
	code    string
}{
	{"/ja/", "ja"}, {"ja.", "ja"},
	{"/zh/", "zh"}, {"zh.", "zh"}, {"/zh-cn/", "zh"}, {"/zh-tw/", "zh"},
	{"/ko/", "ko"}, {"ko.", "ko"},
	{"/fr/", "fr"}, {"fr.", "fr"},
	{"/de/", "de"}, {"de.", "de"},
	{"/es/", "es"}, {"es.", "es"},
	{"/pt/", "pt"}, {"pt.", "pt"}, {"/pt-br/", "pt"},
	{"/ru/", "ru"}, {"ru.", "ru"},
	{"/it/", "it"}, {"it.", "it"},
}

// DetectLanguageFromURL matches rawURL against known locale path/host
// patterns, returning "" if none match (caller defaults to "en").
func DetectLanguageFromURL(rawURL string) string {
	lower := strings.ToLower(rawURL)
	for _, p := range languagePatterns {
		if strings.Contains(lower, p.pattern) {
			return p.code
		}
	}
	return ""
}
