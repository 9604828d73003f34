package teamform

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func membersWith(field string, values ...string) []Member {
	out := make([]Member, len(values))
	for i, v := range values {
		out[i] = Member{Values: map[string]string{field: v}}
	}
	return out
}

// checkPlan asserts the guarantees every plan must satisfy.
func checkPlan(t *testing.T, teams [][]int, n, teamSize int) {
	t.Helper()

	wantTeams := n / teamSize
	if wantTeams < 1 {
		wantTeams = 1
	}
	require.Len(t, teams, wantTeams)

	seen := make([]int, n)
	minSize, maxSize := n, 0
	for _, team := range teams {
		for _, m := range team {
			seen[m]++
		}
		minSize = min(minSize, len(team))
		maxSize = max(maxSize, len(team))
	}
	for i, c := range seen {
		assert.Equal(t, 1, c, "member %d assigned %d times", i, c)
	}
	assert.LessOrEqual(t, maxSize-minSize, 1, "team sizes must be balanced")
	assert.LessOrEqual(t, maxSize, (n+wantTeams-1)/wantTeams)
}

func TestPlan_Validation(t *testing.T) {
	_, err := Plan(membersWith("role", "a", "b"), 1, nil)
	assert.ErrorIs(t, err, ErrTeamSize)

	_, err = Plan(membersWith("role", "a"), 2, nil)
	assert.ErrorIs(t, err, ErrTooFew)

	_, err = Plan(membersWith("role", "a", "b"), 2, []Rule{{Field: "role", Mode: "random"}})
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestPlan_NoRules(t *testing.T) {
	teams, err := Plan(make([]Member, 10), 3, nil)
	require.NoError(t, err)
	checkPlan(t, teams, 10, 3)

	sizes := []int{}
	for _, team := range teams {
		sizes = append(sizes, len(team))
	}
	assert.ElementsMatch(t, []int{4, 3, 3}, sizes)
}

func TestPlan_FewerThanTeamSize(t *testing.T) {
	teams, err := Plan(make([]Member, 3), 5, nil)
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Len(t, teams[0], 3)
}

func TestPlan_OnePerTeamDiversifies(t *testing.T) {
	members := membersWith("role",
		"developer", "developer", "developer",
		"designer", "designer", "designer",
		"business", "business", "business",
	)
	rules := []Rule{{Field: "role", Mode: OnePerTeam}}

	teams, err := Plan(members, 3, rules)
	require.NoError(t, err)
	checkPlan(t, teams, len(members), 3)

	for _, team := range teams {
		roles := map[string]bool{}
		for _, m := range team {
			roles[members[m].Values["role"]] = true
		}
		assert.Len(t, roles, 3, "each team should have one of every role")
	}
}

func TestPlan_OnePerTeamScarceValue(t *testing.T) {
	// Two designers for three teams: two teams get one, nobody gets both.
	members := membersWith("role",
		"designer", "designer",
		"developer", "developer", "developer", "developer", "developer", "developer", "developer",
	)
	teams, err := Plan(members, 3, []Rule{{Field: "role", Mode: OnePerTeam}})
	require.NoError(t, err)
	checkPlan(t, teams, len(members), 3)

	for _, team := range teams {
		designers := 0
		for _, m := range team {
			if members[m].Values["role"] == "designer" {
				designers++
			}
		}
		assert.LessOrEqual(t, designers, 1)
	}
}

func TestPlan_SpreadBalancesValues(t *testing.T) {
	members := membersWith("university",
		"KSU", "KSU", "KSU", "KSU",
		"KAU", "KAU", "KAU", "KAU",
	)
	teams, err := Plan(members, 4, []Rule{{Field: "university", Mode: Spread}})
	require.NoError(t, err)
	checkPlan(t, teams, len(members), 4)

	for _, team := range teams {
		counts := map[string]int{}
		for _, m := range team {
			counts[members[m].Values["university"]]++
		}
		assert.Equal(t, 2, counts["KSU"])
		assert.Equal(t, 2, counts["KAU"])
	}
}

func TestPlan_EmptyValuesGoToLeftovers(t *testing.T) {
	members := membersWith("role", "developer", "", "designer", "", "", "")
	teams, err := Plan(members, 3, []Rule{{Field: "role", Mode: OnePerTeam}})
	require.NoError(t, err)
	checkPlan(t, teams, len(members), 3)
}

func TestPlan_Deterministic(t *testing.T) {
	members := membersWith("role", "a", "b", "c", "a", "b", "c", "a", "b")
	rules := []Rule{{Field: "role", Mode: OnePerTeam}}

	first, err := Plan(members, 2, rules)
	require.NoError(t, err)
	second, err := Plan(members, 2, rules)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPlan_RandomizedInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	roles := []string{"developer", "designer", "business", ""}
	cities := []string{"Riyadh", "Jeddah", "Dammam"}

	for i := 0; i < 200; i++ {
		n := 2 + rng.Intn(40)
		teamSize := 2 + rng.Intn(6)
		members := make([]Member, n)
		for j := range members {
			members[j] = Member{Values: map[string]string{
				"role": roles[rng.Intn(len(roles))],
				"city": cities[rng.Intn(len(cities))],
			}}
		}
		rules := []Rule{{Field: "role", Mode: OnePerTeam}, {Field: "city", Mode: Spread}}

		t.Run(fmt.Sprintf("n=%d/size=%d", n, teamSize), func(t *testing.T) {
			teams, err := Plan(members, teamSize, rules)
			require.NoError(t, err)
			checkPlan(t, teams, n, teamSize)
		})
	}
}
