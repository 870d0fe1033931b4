// Package discovery walks a tenant's docs root to find the markdown
// + metadata pairs the Segment Builder indexes, per spec §4.C.1 and
// the filesystem layout in §6.1.
package discovery

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SourceType selects which discovery strategy to use.
type SourceType string

const (
	SourceOnline     SourceType = "online"
	SourceFilesystem SourceType = "filesystem"
	SourceGit        SourceType = "git"
)

// reservedDirs are skipped during filesystem/git discovery; they hold
// data owned by other components (sidecars, the segment store, the
// scheduler).
var reservedDirs = map[string]bool{
	"__docs_metadata":   true,
	"__search_segments": true,
	"__scheduler_meta":  true,
	".git":              true,
	".hg":               true,
	".svn":              true,
}

// MetadataInner mirrors the nested "metadata" object inside a sidecar
// JSON file (spec §6.2).
type MetadataInner struct {
	MarkdownRelPath string `json:"markdown_rel_path"`
	LastFetchedAt   string `json:"last_fetched_at"`
	IndexedAt       string `json:"indexed_at"`
}

// Metadata is the decoded `.meta.json` sidecar.
type Metadata struct {
	URL      string        `json:"url"`
	Title    string        `json:"title"`
	Metadata MetadataInner `json:"metadata"`
}

// Candidate is one discovered document awaiting extraction: the path
// to its markdown file, the path it was found at relative to the docs
// root, its optional sidecar metadata, and filesystem mtimes used by
// changed_only gating.
type Candidate struct {
	MarkdownPath    string
	MarkdownRelPath string
	MetadataPath    string // "" if discovered via filesystem walk with no sidecar
	Metadata        *Metadata
	MarkdownModTime time.Time
	MetadataModTime time.Time
}

// Options configures one discovery pass.
type Options struct {
	DocsRoot     string
	Source       SourceType
	AllowPrefixes []string
	DenyPrefixes  []string
	ChangedPaths  map[string]bool // relative paths; nil/empty means "no filter"
	ChangedOnly   bool
	Since         time.Time // previous segment's created_at, for ChangedOnly
	Limit         int       // 0 means unlimited
}

// Discover walks opts.DocsRoot per opts.Source and returns the
// filtered, limited candidate list (spec §4.C.1, §4.C.3).
func Discover(opts Options) ([]Candidate, []error) {
	var candidates []Candidate
	var errs []error

	switch opts.Source {
	case SourceOnline:
		candidates, errs = discoverOnline(opts.DocsRoot)
	case SourceFilesystem, SourceGit:
		candidates, errs = discoverFilesystem(opts.DocsRoot)
	default:
		candidates, errs = discoverFilesystem(opts.DocsRoot)
	}

	var filtered []Candidate
	for _, c := range candidates {
		if opts.Limit > 0 && len(filtered) >= opts.Limit {
			break
		}
		if !passesChangedPaths(c, opts.DocsRoot, opts.ChangedPaths) {
			continue
		}
		if opts.Source == SourceOnline && c.Metadata != nil {
			if !passesURLFilter(c.Metadata.URL, opts.AllowPrefixes, opts.DenyPrefixes) {
				continue
			}
		}
		if opts.ChangedOnly && !opts.Since.IsZero() {
			if c.MarkdownModTime.Before(opts.Since) && c.MetadataModTime.Before(opts.Since) {
				continue
			}
		}
		filtered = append(filtered, c)
	}

	return filtered, errs
}

func passesChangedPaths(c Candidate, root string, changed map[string]bool) bool {
	if len(changed) == 0 {
		return true
	}
	if changed[c.MarkdownRelPath] {
		return true
	}
	if c.MetadataPath != "" {
		if rel, err := filepath.Rel(root, c.MetadataPath); err == nil && changed[rel] {
			return true
		}
	}
	return false
}

func passesURLFilter(url string, allow, deny []string) bool {
	if len(allow) > 0 {
		matched := false
		for _, p := range allow {
			if strings.HasPrefix(url, p) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	for _, p := range deny {
		if strings.HasPrefix(url, p) {
			return false
		}
	}
	return true
}

// discoverOnline walks <root>/__docs_metadata/**/*.meta.json and
// resolves each sidecar's companion markdown file.
func discoverOnline(root string) ([]Candidate, []error) {
	var candidates []Candidate
	var errs []error

	metaRoot := filepath.Join(root, "__docs_metadata")
	_ = filepath.Walk(metaRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			errs = append(errs, fmt.Errorf("discovery: walk %s: %w", path, err))
			return nil
		}
		if info.IsDir() || !strings.HasSuffix(path, ".meta.json") {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("discovery: read %s: %w", path, err))
			return nil
		}
		var meta Metadata
		if err := json.Unmarshal(data, &meta); err != nil {
			errs = append(errs, fmt.Errorf("discovery: parse %s: %w", path, err))
			return nil
		}

		markdownRel := meta.Metadata.MarkdownRelPath
		if markdownRel == "" {
			rel, _ := filepath.Rel(metaRoot, path)
			markdownRel = strings.TrimSuffix(rel, ".meta.json") + ".md"
		}
		markdownPath := filepath.Join(root, markdownRel)

		mdInfo, statErr := os.Stat(markdownPath)
		cand := Candidate{
			MarkdownPath:    markdownPath,
			MarkdownRelPath: markdownRel,
			MetadataPath:    path,
			Metadata:        &meta,
			MetadataModTime: info.ModTime(),
		}
		if statErr == nil {
			cand.MarkdownModTime = mdInfo.ModTime()
		} else {
			errs = append(errs, fmt.Errorf("discovery: markdown missing for %s: %w", path, statErr))
		}
		candidates = append(candidates, cand)
		return nil
	})

	return candidates, errs
}

// discoverFilesystem walks <root>/**/*.md, skipping reserved
// subdirectories. It does not read sidecar metadata, so it does not
// exclude markdown files that an online sidecar also names (callers
// merging both strategies should dedupe on MarkdownRelPath).
func discoverFilesystem(root string) ([]Candidate, []error) {
	var candidates []Candidate
	var errs []error

	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			errs = append(errs, fmt.Errorf("discovery: walk %s: %w", path, err))
			return nil
		}
		if info.IsDir() {
			if reservedDirs[info.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".md") {
			return nil
		}
		rel, _ := filepath.Rel(root, path)
		candidates = append(candidates, Candidate{
			MarkdownPath:    path,
			MarkdownRelPath: rel,
			MarkdownModTime: info.ModTime(),
		})
		return nil
	})

	return candidates, errs
}
