// Package coordinator implements the per-tenant Coordinator (spec
// §4.E): it keeps one tenant's latest segment resident, polls the
// manifest for new segments, and runs background rebuilds without
// blocking in-flight queries.
package coordinator

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/go-mizu/docsearch/internal/apperr"
	"github.com/go-mizu/docsearch/internal/indexer"
	"github.com/go-mizu/docsearch/store"
)

// DefaultPollInterval is how often the coordinator re-reads the
// manifest for a newer latest_segment_id, per spec §4.E.
const DefaultPollInterval = 5 * time.Second

// Handle is a reference-counted wrapper around one opened segment
// connection. Readers call tryAcquire before using DB and Release when
// done; the coordinator only closes a handle's connection once its
// refcount drops to zero after being retired.
//
// retired and refcount transition under mu rather than independent
// atomics so that tryAcquire and retire can never interleave: a reader
// that observes retired==false is guaranteed its increment is visible
// to any retire that runs afterward, and a retire that has already set
// retired==true is guaranteed no later tryAcquire will hand out a
// closed DB.
type Handle struct {
	SegmentID string
	DB        *sql.DB

	mu       sync.Mutex
	refcount int64
	retired  bool
	closed   bool
}

// tryAcquire records a new reader of this handle, unless it has already
// been retired (superseded by a newer segment) — in which case it
// reports false and the caller must re-fetch the current resident
// handle instead. Call Release when the query that acquired it is
// finished.
func (h *Handle) tryAcquire() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.retired {
		return false
	}
	h.refcount++
	return true
}

// Release drops this reader's hold on the handle. If the handle has
// been retired and this was the last reader, its connection is closed.
func (h *Handle) Release() {
	h.mu.Lock()
	h.refcount--
	closeNow := h.retired && h.refcount == 0 && !h.closed
	if closeNow {
		h.closed = true
	}
	h.mu.Unlock()
	if closeNow {
		h.DB.Close()
	}
}

func (h *Handle) retire() {
	h.mu.Lock()
	h.retired = true
	closeNow := h.refcount == 0 && !h.closed
	if closeNow {
		h.closed = true
	}
	h.mu.Unlock()
	if closeNow {
		h.DB.Close()
	}
}

// Coordinator binds one tenant's Segment Store and Builder together,
// keeping a resident Handle warm and rebuilding it in the background.
type Coordinator struct {
	Tenant  string
	Store   store.Store
	Builder *indexer.Builder
	Options indexer.Options

	pollInterval time.Duration
	log          *slog.Logger

	resident atomic.Pointer[Handle]

	rebuildMu      sync.Mutex
	rebuildRunning bool
	bg             errgroup.Group

	cancel context.CancelFunc
	done   chan struct{}
}

// New constructs a Coordinator for one tenant. A nil logger falls
// back to slog.Default().
func New(tenant string, st store.Store, builder *indexer.Builder, opts indexer.Options, log *slog.Logger) *Coordinator {
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{
		Tenant:       tenant,
		Store:        st,
		Builder:      builder,
		Options:      opts,
		pollInterval: DefaultPollInterval,
		log:          log,
	}
}

// WithPollInterval overrides the manifest polling cadence (tests use a
// shorter interval than the spec's ~5s default).
func (c *Coordinator) WithPollInterval(d time.Duration) *Coordinator {
	c.pollInterval = d
	return c
}

// Open loads whatever segment is currently latest (if any) and starts
// the manifest-polling goroutine. The goroutine stops when ctx is
// canceled; callers should cancel ctx during shutdown, matching the
// cmd/docsearch/main.go signal-handling idiom.
func (c *Coordinator) Open(ctx context.Context) error {
	if err := c.refresh(ctx); err != nil {
		if _, ok := err.(*apperr.IndexMissingError); !ok {
			return err
		}
	}

	pollCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})

	go c.pollLoop(pollCtx)
	return nil
}

// Close stops manifest polling, waits for any background rebuild
// launched via RebuildAsync to finish, and releases the resident
// handle.
func (c *Coordinator) Close() {
	if c.cancel != nil {
		c.cancel()
		<-c.done
	}
	c.bg.Wait()
	if h := c.resident.Swap(nil); h != nil {
		h.retire()
	}
}

func (c *Coordinator) pollLoop(ctx context.Context) {
	defer close(c.done)
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.refresh(ctx); err != nil {
				c.log.Warn("manifest poll failed, retrying next tick", "tenant", c.Tenant, "error", err)
			}
		}
	}
}

// refresh re-reads the manifest and swaps the resident handle if a
// newer segment_id has been published. It is called both from Open
// (initial load) and from the poll loop.
func (c *Coordinator) refresh(ctx context.Context) error {
	latest, ok, err := c.Store.LatestSegmentID(ctx)
	if err != nil {
		return err
	}
	if !ok {
		if c.resident.Load() == nil {
			return &apperr.IndexMissingError{Tenant: c.Tenant}
		}
		return nil
	}

	current := c.resident.Load()
	if current != nil && current.SegmentID == latest {
		return nil
	}

	db, err := c.Store.Open(ctx, latest)
	if err != nil {
		return err
	}

	next := &Handle{SegmentID: latest, DB: db}
	old := c.resident.Swap(next)
	if old != nil {
		old.retire()
	}
	c.log.Info("resident segment swapped", "tenant", c.Tenant, "segment_id", latest)
	return nil
}

// Acquire returns the currently resident handle with its refcount
// incremented, or an IndexMissingError if no segment has ever been
// published for this tenant. Callers must call Release on the
// returned handle.
//
// refresh always swaps the resident pointer to the new handle before
// retiring the old one, so if tryAcquire loses the race against a
// concurrent retire, the resident pointer already points at a live
// handle by the time Acquire retries — this can only loop a bounded
// number of times, once per overlapping refresh.
func (c *Coordinator) Acquire() (*Handle, error) {
	for {
		h := c.resident.Load()
		if h == nil {
			return nil, &apperr.IndexMissingError{Tenant: c.Tenant}
		}
		if h.tryAcquire() {
			return h, nil
		}
	}
}

// Rebuild triggers a foreground-blocking Segment Builder run, but only
// one at a time per tenant: a concurrent call observes the in-flight
// rebuild and returns immediately without starting a second one. After
// a successful build, refresh runs synchronously so the resident
// handle reflects the new segment before Rebuild returns.
func (c *Coordinator) Rebuild(ctx context.Context) (indexer.Result, error) {
	c.rebuildMu.Lock()
	if c.rebuildRunning {
		c.rebuildMu.Unlock()
		return indexer.Result{}, nil
	}
	c.rebuildRunning = true
	c.rebuildMu.Unlock()

	defer func() {
		c.rebuildMu.Lock()
		c.rebuildRunning = false
		c.rebuildMu.Unlock()
	}()

	result, err := c.Builder.Build(ctx, c.Options)
	if err != nil {
		return result, err
	}
	if err := c.refresh(ctx); err != nil {
		if _, ok := err.(*apperr.IndexMissingError); !ok {
			return result, err
		}
	}
	return result, nil
}

// RebuildAsync launches Rebuild in the background (spec §4.E
// "background rebuild"), tracked by the coordinator's errgroup so
// Close can drain it before releasing the resident handle. Any error
// is logged rather than returned, since there is no caller left to
// hand it to.
func (c *Coordinator) RebuildAsync(ctx context.Context) {
	c.bg.Go(func() error {
		if _, err := c.Rebuild(ctx); err != nil {
			c.log.Error("background rebuild failed", "tenant", c.Tenant, "error", err)
		}
		return nil
	})
}
