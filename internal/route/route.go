// Package route decides how to reach a host: directly, through a jump-host
// via a single -J flag, or through a separately-credentialed relay via a
// combined-hop ProxyCommand. Rules are evaluated first-match-wins using the
// shared condition matcher.
package route

import (
	"fmt"
	"strings"

	"github.com/rileyhilliard/hop/internal/inventory"
	"github.com/rileyhilliard/hop/internal/match"
)

// DefaultSSHPort is assumed when a profile does not set a port.
const DefaultSSHPort = 22

// Profile describes one way of reaching hosts behind a relay.
// At most one of RelayCommand or the relay-host fields drives path
// selection; RelayCommand wins when both are set.
type Profile struct {
	Name string

	// RelayHost is the jump-host address. Empty means direct connection.
	RelayHost string

	// RelayUser is the username on the relay.
	RelayUser string

	// RelayKey is a distinct credential for the relay itself. When set,
	// the relay hop carries its own identity and IdentitiesOnly.
	RelayKey string

	// RelayCommand is a verbatim ProxyCommand, overriding everything else.
	RelayCommand string

	// Port is the SSH port on the relay. Zero means DefaultSSHPort.
	Port int
}

// Rule binds a condition set to a routing profile. Rules live in a
// user-supplied ordered list; the first rule whose conditions all match a
// host selects its profile.
type Rule struct {
	Name       string
	Conditions []match.Condition
	Profile    string
}

// Plan is the resolved reachability of one host: the address to dial and
// the relay arguments to splice into the ssh/scp invocation.
// Plans are consumed by command construction and never persisted.
type Plan struct {
	// Target is the address to connect to.
	Target string

	// RelayArgs are the ssh arguments establishing the relay hop,
	// empty for direct connections.
	RelayArgs []string

	// ProfileName names the profile that produced the relay, empty for
	// direct plans.
	ProfileName string
}

// UsesRelay reports whether the plan goes through a jump-host.
func (p Plan) UsesRelay() bool {
	return len(p.RelayArgs) > 0
}

// ProfileNotFoundError reports a matched rule referencing a profile that
// does not exist. The caller surfaces it as a warning and proceeds with the
// direct plan returned alongside it.
type ProfileNotFoundError struct {
	Rule    string
	Profile string
}

func (e *ProfileNotFoundError) Error() string {
	return fmt.Sprintf("rule '%s' references missing profile '%s'", e.Rule, e.Profile)
}

// MissingPrivateAddressError reports a host that must be reached through a
// relay but has no private address for the relay to dial.
type MissingPrivateAddressError struct {
	Host    string
	Profile string
}

func (e *MissingPrivateAddressError) Error() string {
	return fmt.Sprintf("host '%s' requires relay profile '%s' but has no private address", e.Host, e.Profile)
}

// Resolve evaluates the ordered rule list against the host and returns its
// reachability plan.
//
// No matching rule is not an error: the host gets a direct plan using its
// public address (private when no public exists). Errors are configuration
// defects only (an invalid rule regex, a missing profile reference, or a
// relay-routed host without a private address) and are reported to the
// caller rather than silently misrouting.
func Resolve(host inventory.HostRecord, rules []Rule, profiles map[string]Profile) (Plan, error) {
	sets := make([][]match.Condition, len(rules))
	for i, r := range rules {
		sets[i] = r.Conditions
	}

	idx, err := match.FirstMatch(host, sets)
	if err != nil {
		return directPlan(host), err
	}
	if idx < 0 {
		return directPlan(host), nil
	}

	rule := rules[idx]
	profile, ok := profiles[rule.Profile]
	if !ok {
		return directPlan(host), &ProfileNotFoundError{Rule: rule.Name, Profile: rule.Profile}
	}

	relayArgs := RelayArgs(profile)
	if len(relayArgs) == 0 {
		// Profile without relay settings still pins the profile name,
		// e.g. for a custom port on a direct connection.
		plan := directPlan(host)
		plan.ProfileName = profile.Name
		return plan, nil
	}

	// The relay is assumed to be the only party that can reach the
	// private network, so the target switches to the private address.
	if host.PrivateAddr == "" {
		return Plan{}, &MissingPrivateAddressError{Host: host.DisplayName(), Profile: profile.Name}
	}

	return Plan{
		Target:      host.PrivateAddr,
		RelayArgs:   relayArgs,
		ProfileName: profile.Name,
	}, nil
}

// directPlan builds the no-relay plan: public address first, private as
// fallback for hosts with no public interface.
func directPlan(host inventory.HostRecord) Plan {
	target := host.PublicAddr
	if target == "" {
		target = host.PrivateAddr
	}
	return Plan{Target: target}
}

// RelayArgs builds the ssh arguments for a profile's relay mechanism.
// Precedence, first applicable wins:
//
//  1. RelayCommand is emitted verbatim as a ProxyCommand.
//  2. RelayKey produces a combined-hop ProxyCommand naming the relay's own
//     address, user, port, and credential, with IdentitiesOnly since an
//     explicit key is supplied.
//  3. Otherwise the single-flag -J jump-host form, leaving credential
//     resolution to the target's own settings.
//
// Returns nil when the profile has no relay configured.
func RelayArgs(profile Profile) []string {
	if profile.RelayCommand != "" {
		return []string{"-o", "ProxyCommand=" + profile.RelayCommand}
	}

	if profile.RelayHost == "" {
		return nil
	}

	if profile.RelayKey != "" {
		return []string{"-o", "ProxyCommand=" + combinedHopCommand(profile)}
	}

	return []string{"-J", relayEndpoint(profile)}
}

// combinedHopCommand embeds the full relay hop, including its distinct
// credential, into a single ProxyCommand string.
func combinedHopCommand(profile Profile) string {
	parts := []string{
		"ssh",
		"-i", profile.RelayKey,
		"-o", "IdentitiesOnly=yes",
		"-o", "StrictHostKeyChecking=no",
		"-o", "UserKnownHostsFile=/dev/null",
	}
	if profile.Port != 0 && profile.Port != DefaultSSHPort {
		parts = append(parts, "-p", fmt.Sprintf("%d", profile.Port))
	}
	parts = append(parts, "-W", "%h:%p", relayUserHost(profile))
	return strings.Join(parts, " ")
}

// relayEndpoint formats [user@]host[:port] for the -J flag.
func relayEndpoint(profile Profile) string {
	endpoint := relayUserHost(profile)
	if profile.Port != 0 && profile.Port != DefaultSSHPort {
		endpoint += fmt.Sprintf(":%d", profile.Port)
	}
	return endpoint
}

// relayUserHost formats [user@]host.
func relayUserHost(profile Profile) string {
	if profile.RelayUser != "" {
		return profile.RelayUser + "@" + profile.RelayHost
	}
	return profile.RelayHost
}
