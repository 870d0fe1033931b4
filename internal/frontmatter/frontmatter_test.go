package frontmatter

import "testing"

func TestSplitExtractsMatterAndBody(t *testing.T) {
	raw := "---\ntitle: Hello\ntags:\n  - a\n  - b\n---\n# Hello\n\nBody text.\n"
	m, body, ok := Split(raw)
	if !ok {
		t.Fatal("expected front matter to be detected")
	}
	if m.Title != "Hello" {
		t.Errorf("title = %q", m.Title)
	}
	if got := m.TagsAsStrings(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("tags = %v", got)
	}
	if body == raw {
		t.Error("body was not stripped of front matter")
	}
}

func TestSplitAbsentFrontMatterReturnsOriginal(t *testing.T) {
	raw := "# No front matter\n\nJust a doc.\n"
	m, body, ok := Split(raw)
	if ok {
		t.Fatal("expected no front matter")
	}
	if body != raw {
		t.Error("body should equal original input")
	}
	if m.Title != "" {
		t.Error("matter should be zero value")
	}
}

func TestSplitMalformedFrontMatterDoesNotAbort(t *testing.T) {
	raw := "---\ntitle: [unterminated\n---\nBody.\n"
	_, body, ok := Split(raw)
	if ok {
		t.Fatal("malformed front matter should report hasMatter=false")
	}
	if body != raw {
		t.Error("malformed front matter must fall back to original body, never abort")
	}
}

func TestExtractHeadingsTiersByLevel(t *testing.T) {
	body := "# Title\n\n## Section\n\n### Sub\n\n#### Deep\n"
	h := ExtractHeadings(body)
	if len(h.H1) != 1 || h.H1[0] != "Title" {
		t.Errorf("H1 = %v", h.H1)
	}
	if len(h.H2) != 1 || h.H2[0] != "Section" {
		t.Errorf("H2 = %v", h.H2)
	}
	if len(h.H3Plus) != 2 {
		t.Errorf("H3Plus = %v", h.H3Plus)
	}
}

func TestExtractHeadingsIgnoresCodeFences(t *testing.T) {
	body := "# Real\n\n```\n# not a heading\n```\n"
	h := ExtractHeadings(body)
	if len(h.H1) != 1 {
		t.Fatalf("expected 1 H1 heading, got %v", h.H1)
	}
}

func TestExtractHeadingsStripsAnchors(t *testing.T) {
	body := "## Install [¶](#install)\n"
	h := ExtractHeadings(body)
	if len(h.H2) != 1 || h.H2[0] != "Install" {
		t.Errorf("H2 = %v", h.H2)
	}
}

func TestExtractExcerptSkipsHeadingsAndFences(t *testing.T) {
	body := "# Title\n\n```\ncode\n```\n\nFirst   real\nparagraph line.\n\nSecond paragraph.\n"
	excerpt := ExtractExcerpt(body)
	if excerpt != "First real paragraph line." {
		t.Errorf("excerpt = %q", excerpt)
	}
}

func TestDeriveTitleFallbackChain(t *testing.T) {
	if got := DeriveTitle("Explicit", Headings{H1: []string{"H1 Title"}}, "stem"); got != "Explicit" {
		t.Errorf("got %q, want front matter title", got)
	}
	if got := DeriveTitle("", Headings{H1: []string{"H1 Title"}}, "stem"); got != "H1 Title" {
		t.Errorf("got %q, want H1 title", got)
	}
	if got := DeriveTitle("", Headings{}, "getting-started"); got != "Getting Started" {
		t.Errorf("got %q, want title-cased stem", got)
	}
}

func TestDetectLanguageFromURL(t *testing.T) {
	if got := DetectLanguageFromURL("https://example.com/ja/install"); got != "ja" {
		t.Errorf("got %q", got)
	}
	if got := DetectLanguageFromURL("https://example.com/en/install"); got != "" {
		t.Errorf("got %q, want no match", got)
	}
}
