package inventory

import (
	"context"
	"sync"
	"time"

	"github.com/rileyhilliard/hop/internal/errors"
	"github.com/rileyhilliard/hop/internal/inventory/cache"
	"github.com/rileyhilliard/hop/internal/logger"
)

// Fetcher lists the current fleet from the cloud provider.
// The coordinator treats it as a single opaque operation with
// unspecified latency; timeout policy belongs to the implementation.
type Fetcher interface {
	Fetch(ctx context.Context) ([]HostRecord, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context) ([]HostRecord, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context) ([]HostRecord, error) {
	return f(ctx)
}

// Delta summarizes the change between two consecutive snapshots,
// computed on host-id sets.
type Delta struct {
	Added   int `json:"added"`
	Removed int `json:"removed"`
	Total   int `json:"total"`
}

// Coordinator serves inventory snapshots with stale-while-revalidate
// semantics: cached data is returned immediately while at most one
// background fetch refreshes it.
type Coordinator struct {
	fetcher Fetcher
	store   *cache.Store
	ttl     time.Duration
	log     logger.Logger

	mu         sync.Mutex
	current    *Snapshot     // last known snapshot, memory-first
	inflight   chan struct{} // non-nil while a refresh is running; closed on completion
	refreshErr error         // outcome of the most recently completed refresh

	deltas chan Delta
}

// NewCoordinator creates a coordinator over the given fetcher and cache store.
func NewCoordinator(fetcher Fetcher, store *cache.Store, ttl time.Duration) *Coordinator {
	return &Coordinator{
		fetcher: fetcher,
		store:   store,
		ttl:     ttl,
		log:     logger.NewEnvLogger("[inventory]"),
		deltas:  make(chan Delta, 8),
	}
}

// SetLogger overrides the coordinator's logger. Useful for tests.
func (c *Coordinator) SetLogger(l logger.Logger) {
	c.log = l
}

// Deltas returns the channel on which refresh summaries are published.
// Sends never block: when nobody is listening the summary is dropped.
func (c *Coordinator) Deltas() <-chan Delta {
	return c.deltas
}

// Get returns the best available snapshot.
//
// With force set, it performs a synchronous fetch bypassing the TTL. If a
// background refresh is already in flight, the call waits for that refresh
// instead of starting a redundant one. On fetch failure the previous cached
// snapshot is returned unchanged along with the error, so the caller can
// warn without losing data.
//
// Without force, a fresh cached snapshot is returned with no fetch at all.
// A stale or absent snapshot is returned immediately while exactly one
// background fetch is scheduled; concurrent stale-triggering calls observe
// the in-flight refresh rather than starting another.
//
// The returned bool reports whether the snapshot is fresh (within the TTL).
func (c *Coordinator) Get(ctx context.Context, force bool) (*Snapshot, bool, error) {
	if force {
		return c.getForced(ctx)
	}

	snap := c.snapshot()
	if c.store.IsFresh(snap, c.ttl) {
		return snap, true, nil
	}

	// Stale or absent: serve what we have and revalidate in the background.
	c.mu.Lock()
	if c.inflight == nil {
		done := make(chan struct{})
		c.inflight = done
		// No cancellation: process exit simply abandons the fetch.
		go c.refresh(context.Background(), done)
	}
	c.mu.Unlock()

	if snap == nil {
		snap = &Snapshot{}
	}
	return snap, false, nil
}

// getForced performs (or joins) a synchronous refresh.
func (c *Coordinator) getForced(ctx context.Context) (*Snapshot, bool, error) {
	c.mu.Lock()
	if done := c.inflight; done != nil {
		// A refresh is already running: wait for its result rather than
		// racing a second fetch against it.
		c.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return c.snapshot(), false, errors.WrapWithCode(ctx.Err(), errors.ErrFetch,
				"Gave up waiting for the in-flight refresh", "")
		}
		c.mu.Lock()
		err := c.refreshErr
		c.mu.Unlock()
		snap := c.snapshot()
		if err != nil {
			return snap, false, err
		}
		return snap, c.store.IsFresh(snap, c.ttl), nil
	}

	done := make(chan struct{})
	c.inflight = done
	c.mu.Unlock()

	err := c.refresh(ctx, done)
	snap := c.snapshot()
	if err != nil {
		return snap, false, err
	}
	return snap, true, nil
}

// Wait blocks until the in-flight refresh, if any, has completed, then
// returns its outcome. A one-shot command that triggered a background
// refresh calls this after printing its output; otherwise the process
// would exit with the fetch half done and the cache never updated.
func (c *Coordinator) Wait(ctx context.Context) error {
	c.mu.Lock()
	done := c.inflight
	c.mu.Unlock()

	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return errors.WrapWithCode(ctx.Err(), errors.ErrFetch,
				"Gave up waiting for the background refresh", "")
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshErr
}

// refresh fetches the fleet, persists the result, and publishes a delta.
// The in-flight marker clears on any completion, success or failure, so a
// failed fetch can never lock out future refreshes. The outcome is
// recorded before the done channel closes, so joiners always observe it.
func (c *Coordinator) refresh(ctx context.Context, done chan struct{}) (err error) {
	defer func() {
		c.mu.Lock()
		c.inflight = nil
		c.refreshErr = err
		c.mu.Unlock()
		close(done)
	}()

	hosts, err := c.fetcher.Fetch(ctx)
	if err != nil {
		// Transient failure: stale data continues to serve.
		c.log.Warn("inventory fetch failed: %v", err)
		return errors.WrapWithCode(err, errors.ErrFetch,
			"Inventory fetch failed",
			"Check your cloud credentials and network; cached data is still served")
	}

	old := c.snapshot()
	snap := &Snapshot{FetchedAt: time.Now(), Hosts: hosts}

	c.mu.Lock()
	c.current = snap
	c.mu.Unlock()

	if err := c.store.Save(snap); err != nil {
		// The in-memory snapshot stays usable even when persistence fails.
		c.log.Warn("cannot persist inventory snapshot: %v", err)
	}

	delta := computeDelta(old, snap)
	c.log.Info("inventory refreshed: %d hosts (+%d/-%d)", delta.Total, delta.Added, delta.Removed)
	select {
	case c.deltas <- delta:
	default:
	}
	return nil
}

// snapshot returns the in-memory snapshot, falling back to the cache store.
// Load errors degrade to "no snapshot" with a warning.
func (c *Coordinator) snapshot() *Snapshot {
	c.mu.Lock()
	if c.current != nil {
		snap := c.current
		c.mu.Unlock()
		return snap
	}
	c.mu.Unlock()

	snap, err := c.store.Load()
	if err != nil {
		c.log.Warn("cannot load inventory cache: %v", err)
		return nil
	}
	if snap == nil {
		return nil
	}

	c.mu.Lock()
	if c.current == nil {
		c.current = snap
	}
	snap = c.current
	c.mu.Unlock()
	return snap
}

// computeDelta compares host-id sets of consecutive snapshots.
func computeDelta(prev, next *Snapshot) Delta {
	newIDs := next.IDSet()
	var oldIDs map[string]bool
	if prev != nil {
		oldIDs = prev.IDSet()
	}

	delta := Delta{Total: len(next.Hosts)}
	for id := range newIDs {
		if !oldIDs[id] {
			delta.Added++
		}
	}
	for id := range oldIDs {
		if !newIDs[id] {
			delta.Removed++
		}
	}
	return delta
}
