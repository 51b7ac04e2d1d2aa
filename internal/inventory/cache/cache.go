// Package cache persists the last-known inventory snapshot to disk.
// The store holds exactly one JSON document and replaces it atomically on
// every save, so a crash mid-write never corrupts the on-disk state.
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rileyhilliard/hop/internal/errors"
	"github.com/rileyhilliard/hop/internal/logger"
)

// SnapshotFileName is the cache file name under the hop data directory.
const SnapshotFileName = "snapshot.json"

// Store reads and writes the inventory snapshot cache file.
type Store struct {
	path string
	log  logger.Logger
}

// NewStore creates a store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{
		path: path,
		log:  logger.NewEnvLogger("[cache]"),
	}
}

// DefaultPath returns the default cache file location (~/.hop/snapshot.json).
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrCache,
			"Cannot determine home directory",
			"Set the HOME environment variable")
	}
	return filepath.Join(home, ".hop", SnapshotFileName), nil
}

// SetLogger overrides the store's logger. Useful for tests.
func (s *Store) SetLogger(l logger.Logger) {
	s.log = l
}

// Path returns the cache file path.
func (s *Store) Path() string {
	return s.path
}

// Load returns the last saved snapshot regardless of its age.
// Returns (nil, nil) when no snapshot has ever been saved.
func (s *Store) Load() (*Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.log.Debug("cache file does not exist: %s", s.path)
			return nil, nil
		}
		return nil, errors.WrapWithCode(err, errors.ErrCache,
			"Cannot read inventory cache",
			"Check permissions on "+s.path)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrCache,
			"Inventory cache is corrupt",
			"Delete "+s.path+" and run 'hop list --refresh'")
	}

	s.log.Debug("loaded %d hosts from cache (age: %s)", len(snap.Hosts), snap.Age())
	return &snap, nil
}

// Save durably replaces the previous snapshot with the given one.
// The write goes to a temp file in the same directory followed by a rename,
// so concurrent readers see either the old or the new content, never a
// partial write. Snapshots are never merged: each save is a full replace.
func (s *Store) Save(snap *Snapshot) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.WrapWithCode(err, errors.ErrCache,
			"Cannot create cache directory",
			"Check permissions on "+dir)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrCache,
			"Cannot encode inventory snapshot", "")
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*.json")
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrCache,
			"Cannot create temp cache file",
			"Check permissions on "+dir)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()        //nolint:errcheck // Cleanup on failed write
		os.Remove(tmpPath) //nolint:errcheck // Cleanup on failed write
		return errors.WrapWithCode(err, errors.ErrCache,
			"Cannot write inventory cache",
			"Check free disk space")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath) //nolint:errcheck // Cleanup on failed close
		return errors.WrapWithCode(err, errors.ErrCache,
			"Cannot write inventory cache", "")
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath) //nolint:errcheck // Cleanup on failed rename
		return errors.WrapWithCode(err, errors.ErrCache,
			"Cannot replace inventory cache",
			"Check permissions on "+s.path)
	}

	s.log.Debug("cached %d hosts", len(snap.Hosts))
	return nil
}

// IsFresh reports whether the snapshot is younger than the TTL.
// A nil snapshot is never fresh.
func (s *Store) IsFresh(snap *Snapshot, ttl time.Duration) bool {
	if snap == nil {
		return false
	}
	return time.Since(snap.FetchedAt) < ttl
}

// Age returns the age of the cached snapshot on disk.
// The second return value is false when no cache exists or it is unreadable.
func (s *Store) Age() (time.Duration, bool) {
	snap, err := s.Load()
	if err != nil || snap == nil {
		return 0, false
	}
	return snap.Age(), true
}

// Invalidate deletes the cache file to force a fresh fetch on the next load.
func (s *Store) Invalidate() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return errors.WrapWithCode(err, errors.ErrCache,
			"Cannot delete inventory cache",
			"Check permissions on "+s.path)
	}
	s.log.Debug("cache invalidated")
	return nil
}
