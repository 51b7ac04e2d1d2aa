// Package match evaluates declarative attribute conditions against host
// records. It is the shared primitive behind both routing rules and scan
// rules: conditions within a rule are AND-ed, and rule lists are evaluated
// first-match-wins.
package match

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/rileyhilliard/hop/internal/errors"
	"github.com/rileyhilliard/hop/internal/inventory"
)

// Kind identifies a condition predicate. The set is fixed: every kind has
// exactly one handler in Matches, enforced by the exhaustive switch there.
type Kind int

const (
	// KindNameContains matches a case-insensitive substring of the host name.
	KindNameContains Kind = iota
	// KindNameRegex matches the host name against a case-insensitive pattern.
	KindNameRegex
	// KindRegion matches the region exactly.
	KindRegion
	// KindID matches the host ID exactly.
	KindID
	// KindTypeContains matches a case-insensitive substring of the instance type.
	KindTypeContains
	// KindHasPublicAddr matches on presence of a public address ("true"/"false").
	KindHasPublicAddr
)

// String returns the config-file spelling of the kind.
func (k Kind) String() string {
	switch k {
	case KindNameContains:
		return "name_contains"
	case KindNameRegex:
		return "name_regex"
	case KindRegion:
		return "region"
	case KindID:
		return "id"
	case KindTypeContains:
		return "type_contains"
	case KindHasPublicAddr:
		return "has_public_addr"
	default:
		return "unknown"
	}
}

// ParseKind converts a config-file condition key to its Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "name_contains":
		return KindNameContains, nil
	case "name_regex":
		return KindNameRegex, nil
	case "region":
		return KindRegion, nil
	case "id":
		return KindID, nil
	case "type_contains":
		return KindTypeContains, nil
	case "has_public_addr":
		return KindHasPublicAddr, nil
	default:
		return 0, errors.New(errors.ErrConfig,
			fmt.Sprintf("Unknown match condition '%s'", s),
			"Valid conditions: name_contains, name_regex, region, id, type_contains, has_public_addr")
	}
}

// Condition is one attribute predicate: a kind plus its expected value.
type Condition struct {
	Kind  Kind
	Value string
}

// ParseConditions converts the config-file condition mapping into a
// deterministic condition list, sorted by kind so evaluation order does not
// depend on map iteration.
func ParseConditions(raw map[string]string) ([]Condition, error) {
	conds := make([]Condition, 0, len(raw))
	for key, value := range raw {
		kind, err := ParseKind(key)
		if err != nil {
			return nil, err
		}
		conds = append(conds, Condition{Kind: kind, Value: value})
	}
	sort.Slice(conds, func(i, j int) bool { return conds[i].Kind < conds[j].Kind })
	return conds, nil
}

// Matches reports whether the host satisfies every condition (logical AND).
// An empty condition list matches every host. An invalid regex is a
// configuration error returned to the caller, never a silent false.
//
// Pure function: no I/O, deterministic given host and conditions.
func Matches(host inventory.HostRecord, conds []Condition) (bool, error) {
	for _, c := range conds {
		ok, err := matchOne(host, c)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func matchOne(host inventory.HostRecord, c Condition) (bool, error) {
	switch c.Kind {
	case KindNameContains:
		return strings.Contains(strings.ToLower(host.Name), strings.ToLower(c.Value)), nil

	case KindNameRegex:
		re, err := regexp.Compile("(?i)" + c.Value)
		if err != nil {
			return false, errors.WrapWithCode(err, errors.ErrConfig,
				fmt.Sprintf("Invalid name_regex pattern '%s'", c.Value),
				"Fix the pattern in your config; hop uses Go regexp syntax")
		}
		return re.MatchString(host.Name), nil

	case KindRegion:
		return host.Region == c.Value, nil

	case KindID:
		return host.ID == c.Value, nil

	case KindTypeContains:
		return strings.Contains(strings.ToLower(host.Kind), strings.ToLower(c.Value)), nil

	case KindHasPublicAddr:
		// A host with no public address satisfies "false" and fails "true".
		want := strings.EqualFold(c.Value, "true")
		return (host.PublicAddr != "") == want, nil

	default:
		return false, errors.New(errors.ErrConfig,
			fmt.Sprintf("Unhandled match condition kind %d", c.Kind), "")
	}
}

// FirstMatch scans condition sets in order and returns the index of the
// first set the host fully satisfies, or -1 when none match.
// This is the first-match-wins primitive shared by rule evaluation.
func FirstMatch(host inventory.HostRecord, conditionSets [][]Condition) (int, error) {
	for i, conds := range conditionSets {
		ok, err := Matches(host, conds)
		if err != nil {
			return -1, err
		}
		if ok {
			return i, nil
		}
	}
	return -1, nil
}
