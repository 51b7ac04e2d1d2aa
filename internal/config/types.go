package config

import (
	"fmt"
	"time"
)

// CurrentConfigVersion is the schema version for the config file.
// Increment when making breaking changes to the config structure.
const CurrentConfigVersion = 1

// Config represents the complete hop configuration file.
// It is loaded once at process start and read-only afterwards.
type Config struct {
	Version int `yaml:"version" mapstructure:"version"`

	// DefaultUser is the SSH username used when connecting to hosts.
	DefaultUser string `yaml:"default_user" mapstructure:"default_user"`

	// DefaultKey is the SSH key path used when no per-host key applies.
	DefaultKey string `yaml:"default_key" mapstructure:"default_key"`

	// HostKeys maps host IDs to SSH key paths, overriding DefaultKey.
	HostKeys map[string]string `yaml:"host_keys" mapstructure:"host_keys"`

	// Regions to list during an inventory fetch. Empty means all regions.
	Regions []string `yaml:"regions" mapstructure:"regions"`

	// CacheTTL is how long a cached inventory snapshot counts as fresh.
	CacheTTL time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`

	// ProbeTimeout bounds reachability probes from 'hop list --probe'.
	ProbeTimeout time.Duration `yaml:"probe_timeout" mapstructure:"probe_timeout"`

	// Profiles are the routing profiles referenced by rules, keyed by name.
	Profiles map[string]Profile `yaml:"profiles" mapstructure:"profiles"`

	// Rules is the ordered routing rule list, evaluated first-match-wins.
	Rules []Rule `yaml:"rules" mapstructure:"rules"`

	// DefaultScanPaths are scanned on every host in addition to rule paths.
	DefaultScanPaths []string `yaml:"default_scan_paths" mapstructure:"default_scan_paths"`

	// ScanRules add paths and commands for hosts matching their conditions.
	ScanRules []ScanRule `yaml:"scan_rules" mapstructure:"scan_rules"`
}

// Profile defines how to reach hosts behind a relay (jump-host).
type Profile struct {
	// RelayHost is the jump-host address. Empty disables the relay.
	RelayHost string `yaml:"relay_host" mapstructure:"relay_host"`

	// RelayUser is the username on the relay.
	RelayUser string `yaml:"relay_user" mapstructure:"relay_user"`

	// RelayKey is a distinct SSH key for the relay itself.
	RelayKey string `yaml:"relay_key" mapstructure:"relay_key"`

	// RelayCommand is a verbatim ProxyCommand, overriding the relay fields.
	RelayCommand string `yaml:"relay_command" mapstructure:"relay_command"`

	// Port is the SSH port on the relay (default 22).
	Port int `yaml:"port" mapstructure:"port"`
}

// Rule applies a routing profile to hosts matching its conditions.
// Conditions within a rule are AND-ed; a rule with no conditions matches
// every host.
type Rule struct {
	// Name identifies the rule in warnings and 'hop route' output.
	Name string `yaml:"name" mapstructure:"name"`

	// Match maps condition kinds to expected values,
	// e.g. {name_contains: private, region: us-west-2}.
	Match map[string]string `yaml:"match" mapstructure:"match"`

	// Profile names the routing profile to apply.
	Profile string `yaml:"profile" mapstructure:"profile"`
}

// ScanRule adds scan paths and commands for matching hosts.
// Unlike routing rules, every matching scan rule contributes.
type ScanRule struct {
	Name     string            `yaml:"name" mapstructure:"name"`
	Match    map[string]string `yaml:"match" mapstructure:"match"`
	Paths    []string          `yaml:"paths" mapstructure:"paths"`
	Commands []string          `yaml:"commands" mapstructure:"commands"`
}

// MarshalYAML emits durations as strings ("1h", "5s") instead of raw
// nanosecond integers, so a generated config file reads the way the docs
// describe the fields. Loading accepts either form.
func (c *Config) MarshalYAML() (interface{}, error) {
	type wire struct {
		Version          int                `yaml:"version"`
		DefaultUser      string             `yaml:"default_user"`
		DefaultKey       string             `yaml:"default_key,omitempty"`
		HostKeys         map[string]string  `yaml:"host_keys,omitempty"`
		Regions          []string           `yaml:"regions,omitempty"`
		CacheTTL         string             `yaml:"cache_ttl"`
		ProbeTimeout     string             `yaml:"probe_timeout"`
		Profiles         map[string]Profile `yaml:"profiles,omitempty"`
		Rules            []Rule             `yaml:"rules,omitempty"`
		DefaultScanPaths []string           `yaml:"default_scan_paths,omitempty"`
		ScanRules        []ScanRule         `yaml:"scan_rules,omitempty"`
	}
	return wire{
		Version:          c.Version,
		DefaultUser:      c.DefaultUser,
		DefaultKey:       c.DefaultKey,
		HostKeys:         c.HostKeys,
		Regions:          c.Regions,
		CacheTTL:         durationString(c.CacheTTL),
		ProbeTimeout:     durationString(c.ProbeTimeout),
		Profiles:         c.Profiles,
		Rules:            c.Rules,
		DefaultScanPaths: c.DefaultScanPaths,
		ScanRules:        c.ScanRules,
	}, nil
}

// durationString renders d in the largest unit that divides it evenly,
// matching how the docs write durations ("1h", "30m", "5s").
func durationString(d time.Duration) string {
	switch {
	case d == 0:
		return "0s"
	case d%time.Hour == 0:
		return fmt.Sprintf("%dh", d/time.Hour)
	case d%time.Minute == 0:
		return fmt.Sprintf("%dm", d/time.Minute)
	case d%time.Second == 0:
		return fmt.Sprintf("%ds", d/time.Second)
	default:
		return d.String()
	}
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version:          CurrentConfigVersion,
		DefaultUser:      "ec2-user",
		HostKeys:         make(map[string]string),
		CacheTTL:         time.Hour,
		ProbeTimeout:     5 * time.Second,
		Profiles:         make(map[string]Profile),
		DefaultScanPaths: []string{"~/"},
	}
}
