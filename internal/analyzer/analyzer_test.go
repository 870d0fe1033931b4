package analyzer

import "testing"

func TestDefaultAnalyzerLowercasesAndDropsStopWords(t *testing.T) {
	a := ForProfile(ProfileDefault)
	tokens := a.Tokenize("The Quick Fox")
	if len(tokens) != 2 {
		t.Fatalf("got %d tokens, want 2: %+v", len(tokens), tokens)
	}
	if tokens[0].Text != "quick" || tokens[1].Text != "fox" {
		t.Errorf("got %+v", tokens)
	}
	if tokens[0].Position != 0 || tokens[1].Position != 1 {
		t.Errorf("positions not dense: %+v", tokens)
	}
}

func TestCodeFriendlySplitsCamelCase(t *testing.T) {
	a := ForProfile(ProfileCodeFriendly)
	tokens := a.Tokenize("getUserID")

	var texts []string
	for _, tok := range tokens {
		texts = append(texts, tok.Text)
	}

	want := map[string]bool{"getuserid": true, "get": true, "user": true, "id": true}
	got := make(map[string]bool, len(texts))
	for _, text := range texts {
		got[text] = true
		if !want[text] {
			t.Errorf("unexpected token %q in %v", text, texts)
		}
	}
	if !got["getuserid"] {
		t.Fatalf("missing original token in %v", texts)
	}
}

func TestKeywordAnalyzerTreatsInputAsSingleToken(t *testing.T) {
	a := ForProfile(ProfileKeyword)
	tokens := a.Tokenize("Hello World")
	if len(tokens) != 1 || tokens[0].Text != "hello world" || tokens[0].Position != 0 {
		t.Fatalf("got %+v", tokens)
	}
}

func TestTokenizeAllAssignsIncreasingPositions(t *testing.T) {
	tokens := TokenizeAll([]string{"go", "rust", "", "zig"})
	if len(tokens) != 3 {
		t.Fatalf("got %d tokens, want 3: %+v", len(tokens), tokens)
	}
	if tokens[2].Text != "zig" || tokens[2].Position != 3 {
		t.Errorf("got %+v", tokens[2])
	}
}

func TestSplitCamelCaseBoundaries(t *testing.T) {
	cases := map[string][]string{
		"getUserID": {"get", "User", "ID"},
		"user_id":   {"user", "id"},
		"HTTPSPort": {"HTTPS", "Port"},
	}
	for input, want := range cases {
		got := splitCamelCase(input)
		if len(got) != len(want) {
			t.Errorf("splitCamelCase(%q) = %v, want %v", input, got, want)
			continue
		}
		for i := range got {
			if got[i] != want[i] {
				t.Errorf("splitCamelCase(%q)[%d] = %q, want %q", input, i, got[i], want[i])
			}
		}
	}
}
