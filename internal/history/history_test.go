package history

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/hop/internal/logger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(filepath.Join(t.TempDir(), FileName))
	s.SetLogger(logger.Noop())
	return s
}

func TestLoad_MissingFile(t *testing.T) {
	s := newTestStore(t)

	entries, err := s.Load()
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestLoad_CorruptFileDiscarded(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.path, []byte("{not json"), 0o644))

	entries, err := s.Load()
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestRecord_NewestFirst(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Record(Entry{HostID: "i-1", HostName: "web-1"}))
	require.NoError(t, s.Record(Entry{HostID: "i-2", HostName: "db-1", Command: "uptime"}))

	entries, err := s.Load()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "i-2", entries[0].HostID)
	assert.Equal(t, "uptime", entries[0].Command)
	assert.Equal(t, "i-1", entries[1].HostID)
	assert.False(t, entries[0].Timestamp.IsZero())
}

func TestRecord_DedupesSameHostAndCommand(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Record(Entry{HostID: "i-1", Command: "uptime"}))
	require.NoError(t, s.Record(Entry{HostID: "i-1", Command: "df -h"}))
	require.NoError(t, s.Record(Entry{HostID: "i-1", Command: "uptime"}))

	entries, err := s.Load()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "uptime", entries[0].Command)
	assert.Equal(t, "df -h", entries[1].Command)
}

func TestRecord_SameCommandDifferentHostsKept(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Record(Entry{HostID: "i-1", Command: "uptime"}))
	require.NoError(t, s.Record(Entry{HostID: "i-2", Command: "uptime"}))

	entries, err := s.Load()
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestRecord_PerHostCap(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < MaxPerHost+10; i++ {
		require.NoError(t, s.Record(Entry{HostID: "i-busy", Command: fmt.Sprintf("cmd-%d", i)}))
	}
	require.NoError(t, s.Record(Entry{HostID: "i-other", Command: "uptime"}))

	busy, err := s.ForHost("i-busy")
	require.NoError(t, err)
	assert.Len(t, busy, MaxPerHost)

	// The newest commands survive the cap.
	assert.Equal(t, fmt.Sprintf("cmd-%d", MaxPerHost+9), busy[0].Command)

	other, err := s.ForHost("i-other")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestRecord_GlobalCap(t *testing.T) {
	s := newTestStore(t)

	// Spread across hosts so the per-host cap never kicks in.
	for i := 0; i < MaxGlobal+20; i++ {
		require.NoError(t, s.Record(Entry{HostID: fmt.Sprintf("i-%d", i)}))
	}

	entries, err := s.Load()
	require.NoError(t, err)
	assert.Len(t, entries, MaxGlobal)
	assert.Equal(t, fmt.Sprintf("i-%d", MaxGlobal+19), entries[0].HostID)
}

func TestForHost(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Record(Entry{HostID: "i-1", Command: "uptime"}))
	require.NoError(t, s.Record(Entry{HostID: "i-2", Command: "df -h"}))
	require.NoError(t, s.Record(Entry{HostID: "i-1", Command: "free -m"}))

	entries, err := s.ForHost("i-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "free -m", entries[0].Command)
	assert.Equal(t, "uptime", entries[1].Command)

	none, err := s.ForHost("i-unknown")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestClear(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Record(Entry{HostID: "i-1"}))

	require.NoError(t, s.Clear())

	entries, err := s.Load()
	require.NoError(t, err)
	assert.Nil(t, entries)

	// Clearing an already-empty history is fine.
	require.NoError(t, s.Clear())
}

func TestRecord_ExplicitTimestampPreserved(t *testing.T) {
	s := newTestStore(t)
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Record(Entry{HostID: "i-1", Timestamp: ts}))

	entries, err := s.Load()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Timestamp.Equal(ts))
}

func TestSave_LeavesNoTempFiles(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Record(Entry{HostID: "i-1"}))

	files, err := os.ReadDir(filepath.Dir(s.path))
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, FileName, files[0].Name())
}
