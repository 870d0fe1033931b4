// Package analyzer implements the tokenizer profiles used by the
// Segment Builder and Query Engine: default (Unicode word
// segmentation), code-friendly (identifier/CamelCase aware), and
// keyword (whole-value tokenization).
package analyzer

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/clipperhouse/uax29/v2/words"
)

// Token is a single analyzed unit: its normalized text and its
// position in the analyzed sequence, plus the byte offsets it came
// from in the original input (used for snippet highlighting).
type Token struct {
	Text      string
	Position  int
	StartChar int
	EndChar   int
}

// Analyzer turns an input string into an ordered token sequence.
// Positions are 0-based, monotonically increasing, and dense — they
// may skip (stop-word removal) but never repeat.
type Analyzer interface {
	Tokenize(text string) []Token
}

// Profile names recognized by Schema fields.
const (
	ProfileDefault      = "default"
	ProfileCodeFriendly = "code-friendly"
	ProfileKeyword      = "keyword"
)

// ForProfile returns the Analyzer registered for name, falling back
// to the default profile for an empty or unrecognized name. Custom
// profiles are registered at process startup via Register; there is
// no runtime monkey-patching.
func ForProfile(name string) Analyzer {
	if a, ok := registry[name]; ok {
		return a
	}
	return registry[ProfileDefault]
}

var registry = map[string]Analyzer{
	ProfileDefault:      defaultAnalyzer{},
	ProfileCodeFriendly: codeFriendlyAnalyzer{},
	ProfileKeyword:      keywordAnalyzer{},
}

// Register installs a custom analyzer profile, callable once at
// process startup.
func Register(name string, a Analyzer) {
	registry[name] = a
}

// defaultAnalyzer lowercases, strips punctuation via Unicode word
// segmentation (UAX#29), and filters a small stop-word set.
type defaultAnalyzer struct{}

func (defaultAnalyzer) Tokenize(text string) []Token {
	var tokens []Token
	pos := 0
	offset := 0
	seg := words.NewSegmenter([]byte(text))
	for seg.Next() {
		raw := seg.Value()
		start := offset
		offset += len(raw)
		if !isWordlike(raw) {
			continue
		}
		lower := strings.ToLower(string(raw))
		if stopWords[lower] {
			continue
		}
		tokens = append(tokens, Token{
			Text:      lower,
			Position:  pos,
			StartChar: start,
			EndChar:   offset,
		})
		pos++
	}
	return tokens
}

// isWordlike reports whether a UAX#29 word segment carries at least
// one letter or digit (segmenting also yields whitespace and
// punctuation runs, which are not terms).
func isWordlike(raw []byte) bool {
	for _, r := range string(raw) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// stopWords is a small, fixed English stop-word set used by the
// default profile. Constructed once at package init, like the
// synonym table in internal/query.
var stopWords = buildStopWords()

func buildStopWords() map[string]bool {
	list := []string{
		"a", "an", "and", "are", "as", "at", "be", "by", "for", "from",
		"has", "he", "in", "is", "it", "its", "of", "on", "that", "the",
		"to", "was", "were", "will", "with",
	}
	m := make(map[string]bool, len(list))
	for _, w := range list {
		m[w] = true
	}
	return m
}

// codeFriendlyAnalyzer preserves identifiers with embedded
// underscores/digits as a single token, while also splitting on
// CamelCase boundaries and emitting each sub-word — plus the original
// token — so both "getUserID" and its parts "get"/"user"/"id" are
// searchable.
type codeFriendlyAnalyzer struct{}

func (codeFriendlyAnalyzer) Tokenize(text string) []Token {
	var tokens []Token
	pos := 0
	offset := 0
	seg := words.NewSegmenter([]byte(text))
	for seg.Next() {
		raw := seg.Value()
		start := offset
		offset += len(raw)
		if !isWordlike(raw) {
			continue
		}
		word := string(raw)
		lower := strings.ToLower(word)
		tokens = append(tokens, Token{Text: lower, Position: pos, StartChar: start, EndChar: offset})
		pos++

		for _, part := range splitCamelCase(word) {
			partLower := strings.ToLower(part)
			if partLower == lower {
				continue
			}
			tokens = append(tokens, Token{Text: partLower, Position: pos, StartChar: start, EndChar: offset})
			pos++
		}
	}
	return tokens
}

// splitCamelCase breaks an identifier on camelCase/PascalCase and
// snake_case boundaries: "getUserID" -> ["get", "User", "ID"],
// "user_id" -> ["user", "id"].
func splitCamelCase(word string) []string {
	var parts []string
	var cur strings.Builder
	runes := []rune(word)

	flush := func() {
		if cur.Len() > 0 {
			parts = append(parts, cur.String())
			cur.Reset()
		}
	}

	for i, r := range runes {
		switch {
		case r == '_' || r == '-':
			flush()
		case unicode.IsUpper(r) && i > 0 && unicode.IsLower(runes[i-1]):
			flush()
			cur.WriteRune(r)
		case unicode.IsUpper(r) && i > 0 && i+1 < len(runes) && unicode.IsUpper(runes[i-1]) && unicode.IsLower(runes[i+1]):
			flush()
			cur.WriteRune(r)
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return parts
}

// keywordAnalyzer treats the whole input as one token at position 0.
// Callers pass one value at a time for array-valued keyword fields
// (each element becomes its own token at an increasing position via
// TokenizeAll).
type keywordAnalyzer struct{}

func (keywordAnalyzer) Tokenize(text string) []Token {
	if text == "" {
		return nil
	}
	return []Token{{Text: strings.ToLower(text), Position: 0, StartChar: 0, EndChar: len(text)}}
}

// TokenizeAll analyzes each value in values as its own keyword token,
// assigning increasing positions — the array-of-string handling
// required for keyword fields by spec §4.B.
func TokenizeAll(values []string) []Token {
	var tokens []Token
	for i, v := range values {
		if v == "" {
			continue
		}
		tokens = append(tokens, Token{Text: strings.ToLower(v), Position: i, StartChar: 0, EndChar: len(v)})
	}
	return tokens
}

// TokenizeNumeric renders n in canonical decimal form and emits a
// single token at position 0, per spec §4.B numeric handling.
func TokenizeNumeric(n float64) Token {
	text := strconv.FormatFloat(n, 'f', -1, 64)
	return Token{Text: text, Position: 0, StartChar: 0, EndChar: len(text)}
}
