package inventory

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/hop/internal/errors"
	"github.com/rileyhilliard/hop/internal/inventory/cache"
	"github.com/rileyhilliard/hop/internal/logger"
)

// countingFetcher counts Fetch calls and can block until released.
type countingFetcher struct {
	mu      sync.Mutex
	calls   int32
	hosts   []HostRecord
	err     error
	blockCh chan struct{} // when set, Fetch waits on it
}

func (f *countingFetcher) Fetch(ctx context.Context) ([]HostRecord, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.blockCh != nil {
		<-f.blockCh
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]HostRecord, len(f.hosts))
	copy(out, f.hosts)
	return out, nil
}

func (f *countingFetcher) count() int {
	return int(atomic.LoadInt32(&f.calls))
}

func (f *countingFetcher) setHosts(hosts []HostRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hosts = hosts
	f.err = nil
}

func (f *countingFetcher) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func host(id, name string) HostRecord {
	return HostRecord{ID: id, Name: name, State: "running"}
}

func newTestCoordinator(t *testing.T, fetcher Fetcher, ttl time.Duration) *Coordinator {
	t.Helper()
	store := cache.NewStore(filepath.Join(t.TempDir(), "snapshot.json"))
	c := NewCoordinator(fetcher, store, ttl)
	c.SetLogger(logger.Noop())
	return c
}

func TestGet_ForcedFetchPopulatesSnapshot(t *testing.T) {
	fetcher := &countingFetcher{hosts: []HostRecord{host("i-1", "web-1")}}
	c := newTestCoordinator(t, fetcher, time.Hour)

	snap, fresh, err := c.Get(context.Background(), true)
	require.NoError(t, err)
	assert.True(t, fresh)
	require.Len(t, snap.Hosts, 1)
	assert.Equal(t, "i-1", snap.Hosts[0].ID)
	assert.Equal(t, 1, fetcher.count())
}

func TestGet_FreshCacheSkipsFetch(t *testing.T) {
	fetcher := &countingFetcher{hosts: []HostRecord{host("i-1", "web-1")}}
	c := newTestCoordinator(t, fetcher, time.Hour)

	_, _, err := c.Get(context.Background(), true)
	require.NoError(t, err)

	// Repeated reads within the TTL all come from memory.
	for i := 0; i < 5; i++ {
		snap, fresh, err := c.Get(context.Background(), false)
		require.NoError(t, err)
		assert.True(t, fresh)
		assert.Len(t, snap.Hosts, 1)
	}
	assert.Equal(t, 1, fetcher.count())
}

func TestGet_StaleServesImmediatelyAndRefreshesOnce(t *testing.T) {
	fetcher := &countingFetcher{hosts: []HostRecord{host("i-1", "web-1")}}
	c := newTestCoordinator(t, fetcher, time.Hour)
	_, _, err := c.Get(context.Background(), true)
	require.NoError(t, err)

	// Age the snapshot past the TTL and pin the next fetch in flight.
	c.mu.Lock()
	c.current.FetchedAt = time.Now().Add(-2 * time.Hour)
	c.mu.Unlock()
	release := make(chan struct{})
	fetcher.blockCh = release
	fetcher.setHosts([]HostRecord{host("i-1", "web-1"), host("i-2", "web-2")})

	// Two concurrent stale reads both return the old data immediately.
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap, fresh, err := c.Get(context.Background(), false)
			assert.NoError(t, err)
			assert.False(t, fresh)
			assert.Len(t, snap.Hosts, 1)
		}()
	}
	wg.Wait()

	close(release)
	waitForRefresh(t, c)

	// Exactly one background fetch ran for both stale reads.
	assert.Equal(t, 2, fetcher.count())
	snap, fresh, err := c.Get(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, fresh)
	assert.Len(t, snap.Hosts, 2)
}

func TestGet_EmptyCacheServesEmptySnapshot(t *testing.T) {
	release := make(chan struct{})
	fetcher := &countingFetcher{
		hosts:   []HostRecord{host("i-1", "web-1")},
		blockCh: release,
	}
	c := newTestCoordinator(t, fetcher, time.Hour)

	// Nothing cached yet: the caller still gets an immediate, empty answer.
	snap, fresh, err := c.Get(context.Background(), false)
	require.NoError(t, err)
	assert.False(t, fresh)
	assert.Empty(t, snap.Hosts)

	close(release)
	waitForRefresh(t, c)

	snap, fresh, err = c.Get(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, fresh)
	assert.Len(t, snap.Hosts, 1)
}

func TestGet_ForcedJoinsInflightRefresh(t *testing.T) {
	release := make(chan struct{})
	fetcher := &countingFetcher{
		hosts:   []HostRecord{host("i-1", "web-1")},
		blockCh: release,
	}
	c := newTestCoordinator(t, fetcher, time.Hour)

	// Kick off a background refresh via a stale read.
	_, _, err := c.Get(context.Background(), false)
	require.NoError(t, err)

	// The forced call must wait for that refresh, not start a second one.
	done := make(chan struct{})
	go func() {
		defer close(done)
		snap, _, err := c.Get(context.Background(), true)
		assert.NoError(t, err)
		assert.Len(t, snap.Hosts, 1)
	}()

	select {
	case <-done:
		t.Fatal("forced Get returned before the in-flight refresh finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("forced Get never returned")
	}
	assert.Equal(t, 1, fetcher.count())
}

func TestGet_ForcedJoinSeesRefreshFailure(t *testing.T) {
	fetcher := &countingFetcher{hosts: []HostRecord{host("i-1", "web-1")}}
	c := newTestCoordinator(t, fetcher, time.Hour)
	_, _, err := c.Get(context.Background(), true)
	require.NoError(t, err)

	// Age the snapshot and pin a failing refresh in flight.
	c.mu.Lock()
	c.current.FetchedAt = time.Now().Add(-2 * time.Hour)
	c.mu.Unlock()
	release := make(chan struct{})
	fetcher.blockCh = release
	fetcher.setErr(errors.New(errors.ErrFetch, "cloud is down", ""))

	_, _, err = c.Get(context.Background(), false)
	require.NoError(t, err)

	var joinedSnap *Snapshot
	var joinedErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		joinedSnap, _, joinedErr = c.Get(context.Background(), true)
	}()

	select {
	case <-done:
		t.Fatal("forced Get returned before the in-flight refresh finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("forced Get never returned")
	}

	// The joiner gets the fetch failure, not a silent stale success.
	require.Error(t, joinedErr)
	assert.True(t, errors.IsCode(joinedErr, errors.ErrFetch))
	require.NotNil(t, joinedSnap)
	assert.Len(t, joinedSnap.Hosts, 1, "stale data survives the failed refresh")
	assert.Equal(t, 2, fetcher.count())
}

func TestGet_ForcedFailureKeepsCachedSnapshot(t *testing.T) {
	fetcher := &countingFetcher{hosts: []HostRecord{host("i-1", "web-1")}}
	c := newTestCoordinator(t, fetcher, time.Hour)
	_, _, err := c.Get(context.Background(), true)
	require.NoError(t, err)

	fetcher.setErr(errors.New(errors.ErrFetch, "cloud is down", ""))

	snap, fresh, err := c.Get(context.Background(), true)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrFetch))
	assert.False(t, fresh)
	require.NotNil(t, snap)
	assert.Len(t, snap.Hosts, 1, "stale data survives a failed refresh")

	// The failure cleared the in-flight marker: the next force fetches again.
	fetcher.setHosts([]HostRecord{host("i-2", "db-1")})
	snap, _, err = c.Get(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, "i-2", snap.Hosts[0].ID)
}

func TestGet_LoadsPersistedSnapshotAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.json")

	fetcher := &countingFetcher{hosts: []HostRecord{host("i-1", "web-1")}}
	first := NewCoordinator(fetcher, cache.NewStore(path), time.Hour)
	first.SetLogger(logger.Noop())
	_, _, err := first.Get(context.Background(), true)
	require.NoError(t, err)

	// A new process (new coordinator) reads the same store without fetching.
	second := NewCoordinator(fetcher, cache.NewStore(path), time.Hour)
	second.SetLogger(logger.Noop())
	snap, fresh, err := second.Get(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, fresh)
	assert.Len(t, snap.Hosts, 1)
	assert.Equal(t, 1, fetcher.count())
}

func TestWait_NoRefreshPending(t *testing.T) {
	fetcher := &countingFetcher{hosts: []HostRecord{host("i-1", "web-1")}}
	c := newTestCoordinator(t, fetcher, time.Hour)

	require.NoError(t, c.Wait(context.Background()))
	assert.Equal(t, 0, fetcher.count())
}

func TestWait_JoinsBackgroundRefreshBeforeExit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	fetcher := &countingFetcher{hosts: []HostRecord{host("i-1", "web-1")}}
	c := NewCoordinator(fetcher, cache.NewStore(path), time.Hour)
	c.SetLogger(logger.Noop())
	_, _, err := c.Get(context.Background(), true)
	require.NoError(t, err)

	c.mu.Lock()
	c.current.FetchedAt = time.Now().Add(-2 * time.Hour)
	c.mu.Unlock()
	release := make(chan struct{})
	fetcher.blockCh = release
	fetcher.setHosts([]HostRecord{host("i-1", "web-1"), host("i-2", "web-2")})

	_, fresh, err := c.Get(context.Background(), false)
	require.NoError(t, err)
	assert.False(t, fresh)

	waited := make(chan struct{})
	go func() {
		defer close(waited)
		assert.NoError(t, c.Wait(context.Background()))
	}()

	select {
	case <-waited:
		t.Fatal("Wait returned while the refresh was still in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-waited:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait never returned")
	}

	// The refresh reached the store before Wait returned: a fresh process
	// sees the new fleet without fetching.
	next := NewCoordinator(fetcher, cache.NewStore(path), time.Hour)
	next.SetLogger(logger.Noop())
	snap, fresh, err := next.Get(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, fresh)
	assert.Len(t, snap.Hosts, 2)
	assert.Equal(t, 2, fetcher.count())
}

func TestWait_ReportsRefreshFailure(t *testing.T) {
	fetcher := &countingFetcher{hosts: []HostRecord{host("i-1", "web-1")}}
	c := newTestCoordinator(t, fetcher, time.Hour)
	_, _, err := c.Get(context.Background(), true)
	require.NoError(t, err)

	c.mu.Lock()
	c.current.FetchedAt = time.Now().Add(-2 * time.Hour)
	c.mu.Unlock()
	fetcher.setErr(errors.New(errors.ErrFetch, "cloud is down", ""))

	_, _, err = c.Get(context.Background(), false)
	require.NoError(t, err)

	err = c.Wait(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrFetch))
}

func TestWait_GivesUpWhenContextExpires(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	fetcher := &countingFetcher{
		hosts:   []HostRecord{host("i-1", "web-1")},
		blockCh: release,
	}
	c := newTestCoordinator(t, fetcher, time.Hour)

	_, _, err := c.Get(context.Background(), false)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err = c.Wait(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrFetch))
}

func TestDeltas_PublishedOnRefresh(t *testing.T) {
	fetcher := &countingFetcher{hosts: []HostRecord{host("i-1", "a"), host("i-2", "b")}}
	c := newTestCoordinator(t, fetcher, time.Hour)

	_, _, err := c.Get(context.Background(), true)
	require.NoError(t, err)

	select {
	case d := <-c.Deltas():
		assert.Equal(t, Delta{Added: 2, Removed: 0, Total: 2}, d)
	default:
		t.Fatal("no delta published for initial refresh")
	}

	fetcher.setHosts([]HostRecord{host("i-2", "b"), host("i-3", "c")})
	_, _, err = c.Get(context.Background(), true)
	require.NoError(t, err)

	select {
	case d := <-c.Deltas():
		assert.Equal(t, Delta{Added: 1, Removed: 1, Total: 2}, d)
	default:
		t.Fatal("no delta published for second refresh")
	}
}

func TestComputeDelta(t *testing.T) {
	tests := []struct {
		name     string
		prev     *Snapshot
		next     *Snapshot
		expected Delta
	}{
		{
			name:     "from nothing",
			prev:     nil,
			next:     &Snapshot{Hosts: []HostRecord{host("i-1", "a")}},
			expected: Delta{Added: 1, Total: 1},
		},
		{
			name:     "no change",
			prev:     &Snapshot{Hosts: []HostRecord{host("i-1", "a")}},
			next:     &Snapshot{Hosts: []HostRecord{host("i-1", "a")}},
			expected: Delta{Total: 1},
		},
		{
			name:     "replacement",
			prev:     &Snapshot{Hosts: []HostRecord{host("i-1", "a"), host("i-2", "b")}},
			next:     &Snapshot{Hosts: []HostRecord{host("i-2", "b"), host("i-3", "c")}},
			expected: Delta{Added: 1, Removed: 1, Total: 2},
		},
		{
			name:     "everything gone",
			prev:     &Snapshot{Hosts: []HostRecord{host("i-1", "a")}},
			next:     &Snapshot{},
			expected: Delta{Removed: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, computeDelta(tt.prev, tt.next))
		})
	}
}

// waitForRefresh blocks until no refresh is in flight.
func waitForRefresh(t *testing.T, c *Coordinator) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		inflight := c.inflight
		c.mu.Unlock()
		if inflight == nil {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("refresh never completed")
}
