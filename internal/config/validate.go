package config

import (
	"fmt"
	"regexp"

	"github.com/rileyhilliard/hop/internal/errors"
	"github.com/rileyhilliard/hop/internal/match"
)

// Validate checks the config for hard defects and returns structured errors.
// Soft problems that the resolver degrades around at runtime (like a rule
// referencing a missing profile) are reported by Lint instead, so a config
// with a dangling reference still loads.
func Validate(cfg *Config) error {
	if cfg.Version > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("This config is from the future (version %d, but hop only knows up to %d)", cfg.Version, CurrentConfigVersion),
			"Grab the latest hop release")
	}

	if cfg.CacheTTL < 0 {
		return errors.New(errors.ErrConfig,
			"cache_ttl cannot be negative",
			"Use a duration like 5m or 1h")
	}

	for _, r := range cfg.Rules {
		if err := validateConditions(r.Name, r.Match); err != nil {
			return err
		}
	}
	for _, r := range cfg.ScanRules {
		if err := validateConditions(r.Name, r.Match); err != nil {
			return err
		}
	}

	for name, p := range cfg.Profiles {
		if p.Port < 0 || p.Port > 65535 {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Profile '%s' has invalid port %d", name, p.Port),
				"Use a port between 1 and 65535, or omit it for 22")
		}
	}

	return nil
}

// validateConditions checks condition kinds and precompiles regex patterns
// so a typo surfaces at load time rather than mid-resolution.
func validateConditions(ruleName string, raw map[string]string) error {
	for key, value := range raw {
		kind, err := match.ParseKind(key)
		if err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				fmt.Sprintf("Rule '%s' has an unknown condition '%s'", ruleName, key),
				"Valid conditions: name_contains, name_regex, region, id, type_contains, has_public_addr")
		}
		if kind == match.KindNameRegex {
			if _, err := regexp.Compile("(?i)" + value); err != nil {
				return errors.WrapWithCode(err, errors.ErrConfig,
					fmt.Sprintf("Rule '%s' has an invalid name_regex '%s'", ruleName, value),
					"Fix the pattern; hop uses Go regexp syntax")
			}
		}
	}
	return nil
}

// Lint reports soft configuration problems as human-readable warnings.
// These never prevent the config from loading: the resolver falls back to a
// direct plan when a rule's profile is missing.
func Lint(cfg *Config) []string {
	var warnings []string

	for _, r := range cfg.Rules {
		if r.Profile == "" {
			warnings = append(warnings,
				fmt.Sprintf("rule '%s' names no profile and will never route", r.Name))
			continue
		}
		if _, ok := cfg.Profiles[r.Profile]; !ok {
			warnings = append(warnings,
				fmt.Sprintf("rule '%s' references missing profile '%s'", r.Name, r.Profile))
		}
	}

	for _, r := range cfg.ScanRules {
		if len(r.Paths) == 0 && len(r.Commands) == 0 {
			warnings = append(warnings,
				fmt.Sprintf("scan rule '%s' has neither paths nor commands", r.Name))
		}
	}

	return warnings
}
