package scan

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rileyhilliard/hop/internal/errors"
)

// ResultsFileName is the scan results file under the state directory.
const ResultsFileName = "scan-results.json"

// ResultStore persists scan findings so later runs can search them without
// re-scanning the fleet.
type ResultStore struct {
	path string
}

// NewResultStore creates a store backed by the given file path.
func NewResultStore(path string) *ResultStore {
	return &ResultStore{path: path}
}

// DefaultResultsPath returns ~/.hop/scan-results.json.
func DefaultResultsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "could not determine home directory")
	}
	return filepath.Join(home, ".hop", ResultsFileName), nil
}

// Load reads all persisted findings. A missing file yields none.
func (s *ResultStore) Load() ([]Finding, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.WrapWithCode(err, errors.ErrCache,
			"Cannot read scan results",
			"Check permissions on "+s.path)
	}

	var findings []Finding
	if err := json.Unmarshal(data, &findings); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrCache,
			"Scan results file is corrupt",
			"Delete "+s.path+" and re-run 'hop scan'")
	}
	return findings, nil
}

// Save replaces the persisted findings with the given set.
func (s *ResultStore) Save(findings []Finding) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.WrapWithCode(err, errors.ErrCache,
			"Cannot create results directory",
			"Check permissions on "+dir)
	}

	data, err := json.MarshalIndent(findings, "", "  ")
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrCache,
			"Cannot encode scan results", "")
	}

	tmp, err := os.CreateTemp(dir, ".scan-*.json")
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrCache,
			"Cannot create temp results file",
			"Check permissions on "+dir)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()        //nolint:errcheck
		os.Remove(tmpName) //nolint:errcheck
		return errors.WrapWithCode(err, errors.ErrCache,
			"Cannot write scan results", "Check free disk space")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName) //nolint:errcheck
		return errors.WrapWithCode(err, errors.ErrCache,
			"Cannot write scan results", "")
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName) //nolint:errcheck
		return errors.WrapWithCode(err, errors.ErrCache,
			"Cannot replace results file",
			"Check permissions on "+s.path)
	}
	return nil
}

// Search returns findings whose source or content contains the keyword,
// case-insensitively. An empty keyword matches everything.
func (s *ResultStore) Search(keyword string) ([]Finding, error) {
	findings, err := s.Load()
	if err != nil {
		return nil, err
	}
	if keyword == "" {
		return findings, nil
	}

	needle := strings.ToLower(keyword)
	var out []Finding
	for _, f := range findings {
		if strings.Contains(strings.ToLower(f.Source), needle) ||
			strings.Contains(strings.ToLower(f.Content), needle) {
			out = append(out, f)
		}
	}
	return out, nil
}
