package sshcmd

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rileyhilliard/hop/internal/config"
	"github.com/rileyhilliard/hop/internal/inventory"
	"github.com/rileyhilliard/hop/internal/logger"
)

// KeyResolver picks the SSH key for a host record.
// Resolution order: per-host configured key, configured default key,
// discovery in ~/.ssh by the record's key-pair name, then the IdentityFile
// from ~/.ssh/config. An empty result means "let the agent handle it".
type KeyResolver struct {
	cfg    *config.Config
	sshDir string
	log    logger.Logger
}

// NewKeyResolver creates a resolver over the user's ~/.ssh directory.
func NewKeyResolver(cfg *config.Config) *KeyResolver {
	home, _ := os.UserHomeDir()
	return &KeyResolver{
		cfg:    cfg,
		sshDir: filepath.Join(home, ".ssh"),
		log:    logger.NewEnvLogger("[keys]"),
	}
}

// SetSSHDir overrides the key search directory. Useful for tests.
func (r *KeyResolver) SetSSHDir(dir string) {
	r.sshDir = dir
}

// SetLogger overrides the resolver's logger. Useful for tests.
func (r *KeyResolver) SetLogger(l logger.Logger) {
	r.log = l
}

// Resolve returns the key path for the host, or empty when none applies.
func (r *KeyResolver) Resolve(host inventory.HostRecord) string {
	if key, ok := r.cfg.HostKeys[host.ID]; ok && key != "" {
		return key
	}
	if r.cfg.DefaultKey != "" {
		return r.cfg.DefaultKey
	}
	if host.KeyName != "" {
		if key := r.Discover(host.KeyName); key != "" {
			return key
		}
	}
	if key := identityFromSSHConfig(host.PublicAddr); key != "" {
		return key
	}
	return ""
}

// Discover searches ~/.ssh for a key matching the cloud key-pair name.
// Exact filename patterns are tried first, then a case-insensitive
// substring match over all key files.
func (r *KeyResolver) Discover(keyName string) string {
	if keyName == "" {
		return ""
	}
	if _, err := os.Stat(r.sshDir); err != nil {
		r.log.Debug("ssh directory does not exist: %s", r.sshDir)
		return ""
	}

	patterns := []string{
		keyName,
		keyName + ".pem",
		"id_rsa_" + keyName,
		keyName + "_id_rsa",
		"aws_" + keyName,
		keyName + "_aws",
	}

	for _, pattern := range patterns {
		for _, candidate := range []string{pattern, pattern + ".pem"} {
			path := filepath.Join(r.sshDir, candidate)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				r.log.Debug("discovered key: %s", path)
				return path
			}
		}
	}

	// Fuzzy fallback: key name as a substring of the file stem.
	want := strings.ToLower(keyName)
	for _, path := range r.ListKeys() {
		stem := strings.ToLower(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
		if strings.Contains(stem, want) {
			r.log.Debug("fuzzy-discovered key: %s", path)
			return path
		}
	}

	r.log.Debug("no key found for key-pair name %s", keyName)
	return ""
}

// ListKeys lists likely SSH key files in the search directory.
func (r *KeyResolver) ListKeys() []string {
	if _, err := os.Stat(r.sshDir); err != nil {
		return nil
	}

	patterns := []string{"*.pem", "id_*", "*_id_rsa", "*_rsa", "aws_*"}
	seen := make(map[string]bool)
	var keys []string

	for _, pattern := range patterns {
		matches, _ := filepath.Glob(filepath.Join(r.sshDir, pattern))
		for _, m := range matches {
			if seen[m] {
				continue
			}
			info, err := os.Stat(m)
			if err != nil || info.IsDir() {
				continue
			}
			// Skip public halves
			if strings.HasSuffix(m, ".pub") {
				continue
			}
			seen[m] = true
			keys = append(keys, m)
		}
	}

	sort.Strings(keys)
	return keys
}

// CheckPermissions reports whether the key file has ssh-acceptable
// permissions (0600 or 0400).
func CheckPermissions(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	perm := info.Mode().Perm()
	return perm == 0600 || perm == 0400
}

// FixPermissions tightens the key file to 0600.
func FixPermissions(path string) error {
	return os.Chmod(path, 0600)
}
