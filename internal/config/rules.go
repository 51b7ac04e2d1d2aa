package config

import (
	"github.com/rileyhilliard/hop/internal/match"
	"github.com/rileyhilliard/hop/internal/route"
)

// RouteRules converts the config rule list to resolver rules, parsing each
// rule's condition map. Order is preserved: resolution is first-match-wins.
func (c *Config) RouteRules() ([]route.Rule, error) {
	rules := make([]route.Rule, 0, len(c.Rules))
	for _, r := range c.Rules {
		conds, err := match.ParseConditions(r.Match)
		if err != nil {
			return nil, err
		}
		rules = append(rules, route.Rule{
			Name:       r.Name,
			Conditions: conds,
			Profile:    r.Profile,
		})
	}
	return rules, nil
}

// RouteProfiles converts the config profile mapping to resolver profiles.
func (c *Config) RouteProfiles() map[string]route.Profile {
	profiles := make(map[string]route.Profile, len(c.Profiles))
	for name, p := range c.Profiles {
		profiles[name] = route.Profile{
			Name:         name,
			RelayHost:    p.RelayHost,
			RelayUser:    p.RelayUser,
			RelayKey:     p.RelayKey,
			RelayCommand: p.RelayCommand,
			Port:         p.Port,
		}
	}
	return profiles
}
