package docsearch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-mizu/docsearch/internal/query"
)

func writeTenantDoc(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestTenantSearchBeforeRebuildReturnsIndexMissing(t *testing.T) {
	root := t.TempDir()
	tenant, err := Open(context.Background(), "acme", Options{DocsRoot: root})
	if err != nil {
		t.Fatal(err)
	}
	defer tenant.Close()

	_, err = tenant.Search(context.Background(), "install", query.Options{})
	if err == nil {
		t.Fatal("expected IndexMissingError before any rebuild")
	}
}

func TestTenantRebuildThenSearchFindsDocument(t *testing.T) {
	root := t.TempDir()
	writeTenantDoc(t, root, "install.md", "---\nurl: https://ex.com/install\n---\n# Installation\n\nInstall with pip install pkg.\n")

	tenant, err := Open(context.Background(), "acme", Options{DocsRoot: root})
	if err != nil {
		t.Fatal(err)
	}
	defer tenant.Close()

	if _, err := tenant.Rebuild(context.Background()); err != nil {
		t.Fatal(err)
	}

	resp, err := tenant.Search(context.Background(), "install", query.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("got %d results, want 1", len(resp.Results))
	}
	if resp.Results[0].DocumentURL != "https://ex.com/install" {
		t.Fatalf("document_url = %q", resp.Results[0].DocumentURL)
	}
}
