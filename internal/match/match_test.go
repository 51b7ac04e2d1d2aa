package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/hop/internal/inventory"
)

func testHost() inventory.HostRecord {
	return inventory.HostRecord{
		ID:          "i-0abc123",
		Name:        "Web-Server-1",
		Kind:        "t3.medium",
		State:       "running",
		Region:      "us-west-2",
		PublicAddr:  "54.1.2.3",
		PrivateAddr: "10.0.0.5",
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		input    string
		expected Kind
	}{
		{"name_contains", KindNameContains},
		{"name_regex", KindNameRegex},
		{"region", KindRegion},
		{"id", KindID},
		{"type_contains", KindTypeContains},
		{"has_public_addr", KindHasPublicAddr},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			kind, err := ParseKind(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, kind)
			assert.Equal(t, tt.input, kind.String())
		})
	}
}

func TestParseKind_Unknown(t *testing.T) {
	_, err := ParseKind("hostname_glob")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hostname_glob")
}

func TestMatches_EmptyConditions(t *testing.T) {
	// No conditions means the rule matches every host.
	ok, err := Matches(testHost(), nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMatches_SingleCondition(t *testing.T) {
	tests := []struct {
		name     string
		cond     Condition
		expected bool
	}{
		{"name substring", Condition{KindNameContains, "web"}, true},
		{"name substring case-insensitive", Condition{KindNameContains, "WEB-SERVER"}, true},
		{"name substring miss", Condition{KindNameContains, "database"}, false},
		{"name regex", Condition{KindNameRegex, `^web-server-\d+$`}, true},
		{"name regex miss", Condition{KindNameRegex, `^db-`}, false},
		{"region exact", Condition{KindRegion, "us-west-2"}, true},
		{"region exact miss", Condition{KindRegion, "us-west"}, false},
		{"id exact", Condition{KindID, "i-0abc123"}, true},
		{"id partial does not match", Condition{KindID, "i-0abc"}, false},
		{"type substring", Condition{KindTypeContains, "t3"}, true},
		{"type substring miss", Condition{KindTypeContains, "gpu"}, false},
		{"has public addr true", Condition{KindHasPublicAddr, "true"}, true},
		{"has public addr false", Condition{KindHasPublicAddr, "false"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := Matches(testHost(), []Condition{tt.cond})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ok)
		})
	}
}

func TestMatches_NoPublicAddress(t *testing.T) {
	host := testHost()
	host.PublicAddr = ""

	ok, err := Matches(host, []Condition{{KindHasPublicAddr, "false"}})
	require.NoError(t, err)
	assert.True(t, ok, "absent address should satisfy has_public_addr: false")

	ok, err = Matches(host, []Condition{{KindHasPublicAddr, "true"}})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMatches_ConditionsAreANDed(t *testing.T) {
	conds := []Condition{
		{KindNameContains, "web"},
		{KindRegion, "us-west-2"},
	}
	ok, err := Matches(testHost(), conds)
	require.NoError(t, err)
	assert.True(t, ok)

	// One failing condition fails the whole rule.
	conds = append(conds, Condition{KindTypeContains, "gpu"})
	ok, err = Matches(testHost(), conds)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMatches_InvalidRegex(t *testing.T) {
	_, err := Matches(testHost(), []Condition{{KindNameRegex, "["}})
	require.Error(t, err, "a broken pattern is a config defect, not a silent non-match")
	assert.Contains(t, err.Error(), "name_regex")
}

func TestParseConditions(t *testing.T) {
	conds, err := ParseConditions(map[string]string{
		"region":        "eu-central-1",
		"name_contains": "api",
	})
	require.NoError(t, err)
	require.Len(t, conds, 2)

	// Deterministic order regardless of map iteration.
	assert.Equal(t, KindNameContains, conds[0].Kind)
	assert.Equal(t, KindRegion, conds[1].Kind)
}

func TestParseConditions_UnknownKey(t *testing.T) {
	_, err := ParseConditions(map[string]string{"glob": "*"})
	require.Error(t, err)
}

func TestFirstMatch(t *testing.T) {
	// The second and third sets both match; the second wins on order.
	sets := [][]Condition{
		{{KindRegion, "eu-west-1"}},
		{{KindNameContains, "web"}},
		{{KindNameContains, "web"}, {KindRegion, "us-west-2"}},
	}

	idx, err := FirstMatch(testHost(), sets)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
}

func TestFirstMatch_NoMatch(t *testing.T) {
	sets := [][]Condition{
		{{KindRegion, "eu-west-1"}},
		{{KindNameContains, "database"}},
	}

	idx, err := FirstMatch(testHost(), sets)
	require.NoError(t, err)
	assert.Equal(t, -1, idx)
}

func TestFirstMatch_EmptySetWins(t *testing.T) {
	// A rule with no conditions matches everything, so it shadows later rules.
	sets := [][]Condition{
		{{KindRegion, "eu-west-1"}},
		{},
		{{KindNameContains, "web"}},
	}

	idx, err := FirstMatch(testHost(), sets)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
}
