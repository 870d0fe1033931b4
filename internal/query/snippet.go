package query

import "strings"

// defaultSnippetChars is the window size spec §4.D step 7 names as its
// default.
const defaultSnippetChars = 200

// BuildSnippet selects a maxChars-wide window from source centered on
// the first occurrence of any term in highlightTerms (case
// insensitive), padding with ellipses when the window is truncated.
// When no term is found — a bloom false-positive fallback — it returns
// the leading maxChars instead.
func BuildSnippet(source string, highlightTerms []string, maxChars int) string {
	if maxChars <= 0 {
		maxChars = defaultSnippetChars
	}
	runes := []rune(source)
	if len(runes) == 0 {
		return ""
	}

	pos := firstTermRune(runes, highlightTerms)
	if pos < 0 {
		return truncateRunesEllipsis(runes, 0, maxChars)
	}

	half := maxChars / 2
	start := pos - half
	if start < 0 {
		start = 0
	}
	return truncateRunesEllipsis(runes, start, maxChars)
}

// firstTermRune returns the rune index of the first case-insensitive
// match of any term in runes, or -1 if none match.
func firstTermRune(runes []rune, terms []string) int {
	lower := strings.ToLower(string(runes))
	best := -1
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		idx := strings.Index(lower, term)
		if idx < 0 {
			continue
		}
		runeIdx := len([]rune(lower[:idx]))
		if best < 0 || runeIdx < best {
			best = runeIdx
		}
	}
	return best
}

func truncateRunesEllipsis(runes []rune, start, maxChars int) string {
	if start < 0 {
		start = 0
	}
	if start >= len(runes) {
		start = 0
	}
	end := start + maxChars
	if end > len(runes) {
		end = len(runes)
	}
	window := string(runes[start:end])

	var b strings.Builder
	if start > 0 {
		b.WriteString("…")
	}
	b.WriteString(strings.TrimSpace(window))
	if end < len(runes) {
		b.WriteString("…")
	}
	return b.String()
}
