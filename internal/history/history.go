// Package history records recent connections and remote commands so they
// can be replayed quickly. The history file lives next to the inventory
// snapshot under ~/.hop and is written atomically.
package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rileyhilliard/hop/internal/errors"
	"github.com/rileyhilliard/hop/internal/logger"
)

const (
	// FileName is the history file name under the state directory.
	FileName = "history.json"

	// MaxGlobal caps the total number of retained entries.
	MaxGlobal = 200

	// MaxPerHost caps the entries retained for any single host.
	MaxPerHost = 50
)

// Entry is one recorded connection or command run.
type Entry struct {
	HostID    string    `json:"host_id"`
	HostName  string    `json:"host_name,omitempty"`
	Command   string    `json:"command,omitempty"`
	Profile   string    `json:"profile,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Store persists history entries to a JSON file.
type Store struct {
	path string
	log  logger.Logger
}

// NewStore creates a history store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{path: path, log: logger.Default()}
}

// DefaultPath returns ~/.hop/history.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "could not determine home directory")
	}
	return filepath.Join(home, ".hop", FileName), nil
}

// SetLogger overrides the store's logger.
func (s *Store) SetLogger(log logger.Logger) {
	s.log = log
}

// Load reads all history entries, newest first. A missing file yields an
// empty history. A corrupt file is discarded with a warning rather than
// blocking the caller.
func (s *Store) Load() ([]Entry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.WrapWithCode(err, errors.ErrCache,
			"Cannot read history file",
			"Check permissions on "+s.path)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		s.log.Warn("Discarding corrupt history file: %v", err)
		return nil, nil
	}
	return entries, nil
}

// Record appends an entry and rewrites the file, enforcing the global and
// per-host caps. The newest entry is always first.
func (s *Store) Record(entry Entry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	entries, err := s.Load()
	if err != nil {
		return err
	}

	// Re-running the same command bumps the old entry to the front
	// instead of duplicating it.
	kept := entries[:0]
	for _, e := range entries {
		if e.HostID == entry.HostID && e.Command == entry.Command {
			continue
		}
		kept = append(kept, e)
	}

	entries = append([]Entry{entry}, kept...)
	entries = trim(entries)

	return s.save(entries)
}

// ForHost returns the retained entries for a single host, newest first.
func (s *Store) ForHost(hostID string) ([]Entry, error) {
	entries, err := s.Load()
	if err != nil {
		return nil, err
	}

	var out []Entry
	for _, e := range entries {
		if e.HostID == hostID {
			out = append(out, e)
		}
	}
	return out, nil
}

// Clear removes the history file.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.WrapWithCode(err, errors.ErrCache,
			"Cannot remove history file",
			"Check permissions on "+s.path)
	}
	return nil
}

func (s *Store) save(entries []Entry) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.WrapWithCode(err, errors.ErrCache,
			"Cannot create history directory",
			"Check permissions on "+dir)
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrCache,
			"Cannot encode history", "")
	}

	tmp, err := os.CreateTemp(dir, ".history-*.json")
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrCache,
			"Cannot create temp history file",
			"Check permissions on "+dir)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()        //nolint:errcheck
		os.Remove(tmpName) //nolint:errcheck
		return errors.WrapWithCode(err, errors.ErrCache,
			"Cannot write history", "Check free disk space")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName) //nolint:errcheck
		return errors.WrapWithCode(err, errors.ErrCache,
			"Cannot write history", "")
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName) //nolint:errcheck
		return errors.WrapWithCode(err, errors.ErrCache,
			"Cannot replace history file",
			"Check permissions on "+s.path)
	}
	return nil
}

// trim enforces MaxGlobal and MaxPerHost, preserving newest-first order.
func trim(entries []Entry) []Entry {
	perHost := make(map[string]int)
	out := make([]Entry, 0, len(entries))

	for _, e := range entries {
		if len(out) >= MaxGlobal {
			break
		}
		if perHost[e.HostID] >= MaxPerHost {
			continue
		}
		perHost[e.HostID]++
		out = append(out, e)
	}
	return out
}
