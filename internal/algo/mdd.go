package algo

import (
	"sort"

	"github.com/elektrokombinacija/cbs-mapf/internal/core"
)

// mdd is a multi-valued decision diagram: for each time step, the locations
// an agent can occupy on some minimum-cost path that honours its constraints.
type mdd struct {
	goal   core.Location
	levels [][]core.Location
}

// buildMDD builds the diagram of all cost-long paths of agent. It returns nil
// when no such path exists.
func buildMDD(g core.Graph, dist []int, agent *core.Agent, table *constraintTable, cost int) *mdd {
	if cost < 0 || dist[agent.Start] == Unreachable || dist[agent.Start] > cost {
		return nil
	}
	if !table.canSettle(agent.Goal, cost) {
		return nil
	}

	// Forward pass: locations reachable at t that can still make the goal by cost.
	forward := make([]map[core.Location]struct{}, cost+1)
	forward[0] = map[core.Location]struct{}{agent.Start: {}}
	for t := 0; t < cost; t++ {
		next := make(map[core.Location]struct{})
		for loc := range forward[t] {
			for _, n := range successors(g, loc) {
				if dist[n] == Unreachable || dist[n] > cost-(t+1) {
					continue
				}
				if table.blocked(loc, n, t+1) {
					continue
				}
				next[n] = struct{}{}
			}
		}
		if len(next) == 0 {
			return nil
		}
		forward[t+1] = next
	}
	if _, ok := forward[cost][agent.Goal]; !ok {
		return nil
	}

	// Backward pass: keep only locations with a valid continuation to the goal.
	m := &mdd{goal: agent.Goal, levels: make([][]core.Location, cost+1)}
	kept := map[core.Location]struct{}{agent.Goal: {}}
	m.levels[cost] = []core.Location{agent.Goal}
	for t := cost - 1; t >= 0; t-- {
		prev := make(map[core.Location]struct{})
		for loc := range forward[t] {
			for _, n := range successors(g, loc) {
				if _, ok := kept[n]; ok && !table.blocked(loc, n, t+1) {
					prev[loc] = struct{}{}
					break
				}
			}
		}
		level := make([]core.Location, 0, len(prev))
		for loc := range prev {
			level = append(level, loc)
		}
		sort.Slice(level, func(i, j int) bool { return level[i] < level[j] })
		m.levels[t] = level
		kept = prev
	}
	return m
}

// successors lists the neighbours of loc plus loc itself (a wait).
func successors(g core.Graph, loc core.Location) []core.Location {
	ns := g.Neighbors(loc)
	out := make([]core.Location, 0, len(ns)+1)
	out = append(out, ns...)
	return append(out, loc)
}

// singleton reports whether loc is the only location at time t. After the
// last level the agent rests at its goal.
func (m *mdd) singleton(t int, loc core.Location) bool {
	if t < 0 {
		return false
	}
	if t >= len(m.levels) {
		return loc == m.goal
	}
	level := m.levels[t]
	return len(level) == 1 && level[0] == loc
}

// width returns the number of locations at time t.
func (m *mdd) width(t int) int {
	if t < 0 || t >= len(m.levels) {
		return 1
	}
	return len(m.levels[t])
}
