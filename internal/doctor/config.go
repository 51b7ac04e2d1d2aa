package doctor

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/rileyhilliard/hop/internal/config"
	"github.com/rileyhilliard/hop/internal/inventory/cache"
	"github.com/rileyhilliard/hop/internal/sshcmd"
)

// ConfigCheck verifies the config file loads, validates, and lints clean.
type ConfigCheck struct {
	// Explicit is the --config flag value, empty for the search order.
	Explicit string
}

func (c *ConfigCheck) Name() string     { return "config" }
func (c *ConfigCheck) Category() string { return "CONFIG" }

func (c *ConfigCheck) Run() CheckResult {
	path, err := config.Find(c.Explicit)
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    "Cannot locate config file",
			Suggestion: err.Error(),
		}
	}
	if path == "" {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "No config file found, using defaults",
			Suggestion: "Run 'hop init' to create one",
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    "Config file failed to load: " + path,
			Suggestion: err.Error(),
		}
	}
	if err := config.Validate(cfg); err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    "Config file is invalid: " + path,
			Suggestion: err.Error(),
		}
	}

	if warnings := config.Lint(cfg); len(warnings) > 0 {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    fmt.Sprintf("Config loads but has %d warning(s)", len(warnings)),
			Suggestion: warnings[0],
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: "Config valid (" + path + ")",
	}
}

func (c *ConfigCheck) Fix() error {
	return nil // Config edits belong to the user
}

// KeyCheck verifies a configured SSH key exists with safe permissions.
type KeyCheck struct {
	// Label identifies where the key came from, e.g. "default_key".
	Label string
	Path  string
}

func (c *KeyCheck) Name() string     { return "key_" + c.Label }
func (c *KeyCheck) Category() string { return "SSH" }

func (c *KeyCheck) Run() CheckResult {
	if _, err := os.Stat(c.Path); err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("%s points to a missing key: %s", c.Label, c.Path),
			Suggestion: "Fix the path in your config or copy the key into place",
		}
	}

	if !sshcmd.CheckPermissions(c.Path) {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    fmt.Sprintf("%s has loose permissions: %s", c.Label, c.Path),
			Suggestion: "ssh refuses world-readable keys; run 'hop doctor --fix' or chmod 600 it",
			Fixable:    true,
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("%s ok (%s)", c.Label, c.Path),
	}
}

func (c *KeyCheck) Fix() error {
	return sshcmd.FixPermissions(c.Path)
}

// CacheCheck reports the state of the inventory snapshot cache.
type CacheCheck struct {
	Store *cache.Store
	Cfg   *config.Config
}

func (c *CacheCheck) Name() string     { return "inventory_cache" }
func (c *CacheCheck) Category() string { return "CACHE" }

func (c *CacheCheck) Run() CheckResult {
	snap, err := c.Store.Load()
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    "Inventory cache is unreadable",
			Suggestion: err.Error(),
		}
	}
	if snap == nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "No inventory cached yet",
			Suggestion: "Run 'hop list --refresh' to fetch the fleet",
		}
	}

	age := snap.Age().Round(time.Second)
	if !c.Store.IsFresh(snap, c.Cfg.CacheTTL) {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    fmt.Sprintf("Inventory cache is stale (%d hosts, %s old)", len(snap.Hosts), age),
			Suggestion: "Run 'hop list --refresh' to revalidate",
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("Inventory cache fresh (%d hosts, %s old)", len(snap.Hosts), age),
	}
}

func (c *CacheCheck) Fix() error {
	return nil // Refetching inventory is 'hop list --refresh', not a doctor fix
}

// NewChecks builds the full diagnostic set for the given environment.
func NewChecks(explicitConfig string, cfg *config.Config, store *cache.Store) []Check {
	checks := []Check{
		&BinaryCheck{Binary: "ssh", Required: true,
			Suggestion: "Install an OpenSSH client"},
		&BinaryCheck{Binary: "scp", Required: true,
			Suggestion: "Install an OpenSSH client"},
		&BinaryCheck{Binary: "aws",
			Suggestion: "Install the AWS CLI; 'hop list --refresh' needs it"},
		&AgentCheck{},
		&ConfigCheck{Explicit: explicitConfig},
	}

	if cfg.DefaultKey != "" {
		checks = append(checks, &KeyCheck{Label: "default_key", Path: cfg.DefaultKey})
	}
	hostIDs := make([]string, 0, len(cfg.HostKeys))
	for id := range cfg.HostKeys {
		hostIDs = append(hostIDs, id)
	}
	sort.Strings(hostIDs)
	for _, id := range hostIDs {
		checks = append(checks, &KeyCheck{Label: "host_keys." + id, Path: cfg.HostKeys[id]})
	}
	profileNames := make([]string, 0, len(cfg.Profiles))
	for name := range cfg.Profiles {
		profileNames = append(profileNames, name)
	}
	sort.Strings(profileNames)
	for _, name := range profileNames {
		if key := cfg.Profiles[name].RelayKey; key != "" {
			checks = append(checks, &KeyCheck{Label: "profiles." + name + ".relay_key", Path: key})
		}
	}

	checks = append(checks, &CacheCheck{Store: store, Cfg: cfg})
	return checks
}
