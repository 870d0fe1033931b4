package discovery

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDiscoverFilesystemSkipsReservedDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "guide", "install.md"), "# Install")
	writeFile(t, filepath.Join(root, "__search_segments", "manifest.json"), "{}")
	writeFile(t, filepath.Join(root, ".git", "config.md"), "not a doc")

	candidates, errs := Discover(Options{DocsRoot: root, Source: SourceFilesystem})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(candidates) != 1 {
		t.Fatalf("got %d candidates, want 1: %+v", len(candidates), candidates)
	}
	if candidates[0].MarkdownRelPath != filepath.Join("guide", "install.md") {
		t.Errorf("got %q", candidates[0].MarkdownRelPath)
	}
}

func TestDiscoverOnlineResolvesCompanionMarkdown(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "guide", "install.md"), "# Install")
	meta := `{"url":"https://ex.com/install","title":"Installation","metadata":{"markdown_rel_path":"guide/install.md"}}`
	writeFile(t, filepath.Join(root, "__docs_metadata", "guide", "install.meta.json"), meta)

	candidates, errs := Discover(Options{DocsRoot: root, Source: SourceOnline})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(candidates) != 1 {
		t.Fatalf("got %d candidates, want 1", len(candidates))
	}
	if candidates[0].Metadata.URL != "https://ex.com/install" {
		t.Errorf("url = %q", candidates[0].Metadata.URL)
	}
}

func TestDiscoverOnlineURLFiltering(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.md"), "A")
	writeFile(t, filepath.Join(root, "b.md"), "B")
	writeFile(t, filepath.Join(root, "__docs_metadata", "a.meta.json"),
		`{"url":"https://ex.com/keep/a","metadata":{"markdown_rel_path":"a.md"}}`)
	writeFile(t, filepath.Join(root, "__docs_metadata", "b.meta.json"),
		`{"url":"https://ex.com/drop/b","metadata":{"markdown_rel_path":"b.md"}}`)

	candidates, _ := Discover(Options{
		DocsRoot:      root,
		Source:        SourceOnline,
		AllowPrefixes: []string{"https://ex.com/keep"},
	})
	if len(candidates) != 1 || candidates[0].Metadata.URL != "https://ex.com/keep/a" {
		t.Fatalf("got %+v", candidates)
	}
}

func TestDiscoverRespectsLimit(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"a.md", "b.md", "c.md"} {
		writeFile(t, filepath.Join(root, name), "# "+name)
	}
	candidates, _ := Discover(Options{DocsRoot: root, Source: SourceFilesystem, Limit: 2})
	if len(candidates) != 2 {
		t.Fatalf("got %d candidates, want 2", len(candidates))
	}
}
