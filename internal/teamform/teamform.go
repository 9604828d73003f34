// Package teamform plans how participants are split into teams.
//
// Plan never touches storage: it takes members with their form answers and
// returns index groups. Every loop iteration assigns one member or stops, and
// the team capacities add up to exactly len(members), so a plan always
// places everyone.
package teamform

import (
	"errors"
	"fmt"
	"sort"
)

type Mode string

const (
	// OnePerTeam hands each team at most one member per distinct value while supply lasts.
	OnePerTeam Mode = "one_per_team"
	// Spread deals members of each value evenly across teams.
	Spread Mode = "spread"
)

var (
	ErrTeamSize    = errors.New("team size must be at least 2")
	ErrTooFew      = errors.New("at least 2 members are required")
	ErrUnknownMode = errors.New("unknown distribution mode")
)

// Rule distributes members by the answer stored under Field.
type Rule struct {
	Field string `json:"fieldKey"`
	Mode  Mode   `json:"mode"`
}

// Member is one participant to place; Values holds its answers by field key.
type Member struct {
	Values map[string]string
}

type planner struct {
	members  []Member
	rules    []Rule
	teams    [][]int
	assigned []bool

	base       int // every team holds at least base members
	extra      int // this many teams may hold base+1
	extrasUsed int
}

// Plan splits members into max(1, len/teamSize) teams and returns, per team,
// the indexes of its members.
func Plan(members []Member, teamSize int, rules []Rule) ([][]int, error) {
	if teamSize < 2 {
		return nil, ErrTeamSize
	}
	if len(members) < 2 {
		return nil, ErrTooFew
	}
	for _, r := range rules {
		if r.Mode != OnePerTeam && r.Mode != Spread {
			return nil, fmt.Errorf("%w: %q", ErrUnknownMode, r.Mode)
		}
	}

	n := len(members)
	teamCount := n / teamSize
	if teamCount < 1 {
		teamCount = 1
	}

	p := &planner{
		members:  members,
		rules:    rules,
		teams:    make([][]int, teamCount),
		assigned: make([]bool, n),
		base:     n / teamCount,
		extra:    n % teamCount,
	}

	for _, r := range rules {
		if r.Mode == OnePerTeam {
			p.onePerTeam(r.Field)
		}
	}
	for _, r := range rules {
		if r.Mode == Spread {
			p.spread(r.Field)
		}
	}
	p.fillLeftovers()

	return p.teams, nil
}

func (p *planner) hasRoom(t int) bool {
	size := len(p.teams[t])
	return size < p.base || (size == p.base && p.extrasUsed < p.extra)
}

func (p *planner) add(t, m int) {
	if len(p.teams[t]) == p.base {
		p.extrasUsed++
	}
	p.teams[t] = append(p.teams[t], m)
	p.assigned[m] = true
}

func (p *planner) countValue(t int, field, value string) int {
	c := 0
	for _, m := range p.teams[t] {
		if p.members[m].Values[field] == value {
			c++
		}
	}
	return c
}

// groups returns unassigned members with a non-empty value for field, keyed by
// value, plus the values in sorted order.
func (p *planner) groups(field string) (map[string][]int, []string) {
	byValue := map[string][]int{}
	for i, m := range p.members {
		if p.assigned[i] {
			continue
		}
		v := m.Values[field]
		if v == "" {
			continue
		}
		byValue[v] = append(byValue[v], i)
	}
	values := make([]string, 0, len(byValue))
	for v := range byValue {
		values = append(values, v)
	}
	sort.Strings(values)
	return byValue, values
}

func (p *planner) teamOrder(less func(a, b int) bool) []int {
	order := make([]int, len(p.teams))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return less(order[i], order[j]) })
	return order
}

func (p *planner) bySize(a, b int) bool {
	return len(p.teams[a]) < len(p.teams[b])
}

func (p *planner) onePerTeam(field string) {
	byValue, values := p.groups(field)
	for _, v := range values {
		queue := byValue[v]
		for _, t := range p.teamOrder(p.bySize) {
			if len(queue) == 0 {
				break
			}
			if !p.hasRoom(t) || p.countValue(t, field, v) > 0 {
				continue
			}
			p.add(t, queue[0])
			queue = queue[1:]
		}
	}
}

func (p *planner) spread(field string) {
	byValue, values := p.groups(field)
	for _, v := range values {
		for _, m := range byValue[v] {
			best := -1
			for _, t := range p.teamOrder(p.bySize) {
				if !p.hasRoom(t) {
					continue
				}
				if best == -1 || p.countValue(t, field, v) < p.countValue(best, field, v) {
					best = t
				}
			}
			if best == -1 {
				return
			}
			p.add(best, m)
		}
	}
}

// conflicts counts one-per-team rules the member would break by joining t.
func (p *planner) conflicts(t, m int) int {
	c := 0
	for _, r := range p.rules {
		if r.Mode != OnePerTeam {
			continue
		}
		v := p.members[m].Values[r.Field]
		if v != "" && p.countValue(t, r.Field, v) > 0 {
			c++
		}
	}
	return c
}

func (p *planner) fillLeftovers() {
	for m := range p.members {
		if p.assigned[m] {
			continue
		}
		best := -1
		for t := range p.teams {
			if !p.hasRoom(t) {
				continue
			}
			if best == -1 {
				best = t
				continue
			}
			cb, ct := p.conflicts(best, m), p.conflicts(t, m)
			if ct < cb || (ct == cb && len(p.teams[t]) < len(p.teams[best])) {
				best = t
			}
		}
		// capacities sum to len(members), so a team with room always exists
		p.add(best, m)
	}
}
