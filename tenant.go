package docsearch

import (
	"context"
	"log/slog"

	"github.com/go-mizu/docsearch/coordinator"
	"github.com/go-mizu/docsearch/internal/discovery"
	"github.com/go-mizu/docsearch/internal/indexer"
	"github.com/go-mizu/docsearch/internal/query"
	"github.com/go-mizu/docsearch/internal/schema"
	"github.com/go-mizu/docsearch/store"
	sqlitestore "github.com/go-mizu/docsearch/store/sqlite"
)

// Options configures one Tenant: its documents root, discovery
// strategy, and field schema (spec §6.6's query engine boundary is the
// Tenant.Search method this package exposes).
type Options struct {
	// DocsRoot is the tenant's document tree, per spec §6.1's
	// filesystem layout.
	DocsRoot string
	// Schema describes indexed fields. The zero value uses
	// schema.Default().
	Schema schema.Schema
	// Source selects the discovery strategy (online/filesystem/git).
	// The zero value uses discovery.SourceFilesystem.
	Source discovery.SourceType
	// SegmentsDir overrides where segment artifacts and the manifest
	// are stored. The zero value uses "<DocsRoot>/__search_segments".
	SegmentsDir string
	// Log receives structured coordinator/builder logging. The zero
	// value uses slog.Default().
	Log *slog.Logger
}

// Tenant is one documentation corpus with its own docs root, schema,
// and segment store: the unit of isolation spec §6's glossary names.
// It assembles the Segment Store, Segment Builder, Query Engine, and
// Coordinator into the single entry point downstream callers (an
// HTTP/MCP layer, a CLI) depend on.
type Tenant struct {
	name        string
	store       store.Store
	coordinator *coordinator.Coordinator
	engine      *query.Engine
}

// Open constructs a Tenant and starts its Coordinator's manifest
// polling. Callers must call Close when done.
func Open(ctx context.Context, name string, opts Options) (*Tenant, error) {
	sch := opts.Schema
	if len(sch.Fields) == 0 {
		sch = schema.Default()
	}
	source := opts.Source
	if source == "" {
		source = discovery.SourceFilesystem
	}
	segmentsDir := opts.SegmentsDir
	if segmentsDir == "" {
		segmentsDir = opts.DocsRoot + "/__search_segments"
	}

	st, err := sqlitestore.New(segmentsDir, opts.Log)
	if err != nil {
		return nil, err
	}

	builder := indexer.New(st, opts.Log)
	buildOpts := indexer.Options{
		DocsRoot: opts.DocsRoot,
		Schema:   sch,
		Source:   source,
	}

	coord := coordinator.New(name, st, builder, buildOpts, opts.Log)
	if err := coord.Open(ctx); err != nil {
		return nil, err
	}

	return &Tenant{
		name:        name,
		store:       st,
		coordinator: coord,
		engine:      query.NewEngine(),
	}, nil
}

// Close stops the Coordinator's background polling and releases its
// resident segment handle.
func (t *Tenant) Close() { t.coordinator.Close() }

// Rebuild runs the Segment Builder against this tenant's docs root and
// publishes the result, serialized per-tenant by the Coordinator's
// rebuild lease.
func (t *Tenant) Rebuild(ctx context.Context) (indexer.Result, error) {
	return t.coordinator.Rebuild(ctx)
}

// RebuildAsync launches Rebuild in the background, matching spec
// §4.E's "on first cache-miss or on operator trigger" background
// rebuild behavior.
func (t *Tenant) RebuildAsync(ctx context.Context) { t.coordinator.RebuildAsync(ctx) }

// Search implements the query engine boundary spec §6.6 names:
// tokenize, expand synonyms, bloom-probe, score with BM25F, and return
// ranked, snippeted hits against this tenant's resident segment. If no
// segment has ever been published, it returns an IndexMissingError
// rather than blocking or failing generically, per spec §7's
// user-visible failure behavior.
func (t *Tenant) Search(ctx context.Context, queryText string, opts query.Options) (query.Response, error) {
	h, err := t.coordinator.Acquire()
	if err != nil {
		return query.Response{}, err
	}
	defer h.Release()

	return t.engine.Search(ctx, h.DB, queryText, opts)
}

// Store exposes the underlying Segment Store for operator tooling
// (pruning, manifest inspection) that needs direct access beyond
// Search and Rebuild.
func (t *Tenant) Store() store.Store { return t.store }
