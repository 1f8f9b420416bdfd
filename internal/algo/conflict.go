package algo

import (
	"fmt"
	"sort"

	"github.com/elektrokombinacija/cbs-mapf/internal/core"
)

// ConflictKind distinguishes how two agents collide.
type ConflictKind int

const (
	// VertexConflict: both agents occupy Loc at Time.
	VertexConflict ConflictKind = iota
	// EdgeConflict: Agent1 moves From -> Loc while Agent2 moves Loc -> From,
	// both arriving at Time.
	EdgeConflict
	// TargetConflict: Agent1 has settled at its goal Loc and Agent2 passes
	// through it at Time.
	TargetConflict
)

func (k ConflictKind) String() string {
	return [...]string{"vertex", "edge", "target"}[k]
}

// Cardinality classifies a conflict by how resolving it affects path costs.
type Cardinality int

const (
	// Cardinal: both agents' costs must rise.
	Cardinal Cardinality = iota
	// SemiCardinal: exactly one agent's cost must rise.
	SemiCardinal
	// NonCardinal: neither cost must rise.
	NonCardinal
	// CardinalityUnknown: no MDD was available to decide.
	CardinalityUnknown
)

func (c Cardinality) String() string {
	return [...]string{"cardinal", "semi-cardinal", "non-cardinal", "unknown"}[c]
}

// Conflict represents a collision between two agents.
type Conflict struct {
	Agent1, Agent2 core.AgentID
	Kind           ConflictKind
	Loc            core.Location
	From           core.Location // edge conflicts only
	Time           int
	Class          Cardinality
}

func (c Conflict) String() string {
	if c.Kind == EdgeConflict {
		return fmt.Sprintf("%s a%d/a%d %d<->%d@%d (%s)", c.Kind, c.Agent1, c.Agent2, c.From, c.Loc, c.Time, c.Class)
	}
	return fmt.Sprintf("%s a%d/a%d %d@%d (%s)", c.Kind, c.Agent1, c.Agent2, c.Loc, c.Time, c.Class)
}

// pairConflicts lists every conflict between paths pi and pj, in time order.
// With targets set, collisions with a settled agent are TargetConflicts.
func pairConflicts(i, j core.AgentID, pi, pj core.Path, targets bool) []Conflict {
	var out []Conflict
	horizon := len(pi)
	if len(pj) > horizon {
		horizon = len(pj)
	}
	for t := 0; t < horizon; t++ {
		li, lj := pi.At(t), pj.At(t)
		if li == lj {
			c := Conflict{Agent1: i, Agent2: j, Kind: VertexConflict, Loc: li, Time: t, Class: CardinalityUnknown}
			if targets {
				switch {
				case t >= len(pj)-1:
					c.Kind, c.Agent1, c.Agent2 = TargetConflict, j, i
				case t >= len(pi)-1:
					c.Kind = TargetConflict
				}
			}
			out = append(out, c)
			continue
		}
		if t > 0 && li == pj.At(t-1) && lj == pi.At(t-1) {
			out = append(out, Conflict{
				Agent1: i, Agent2: j, Kind: EdgeConflict,
				From: pi.At(t - 1), Loc: li, Time: t, Class: CardinalityUnknown,
			})
		}
	}
	return out
}

// FindAllConflicts lists every conflict among paths, sorted by time and then
// agent pair.
func FindAllConflicts(paths []core.Path, targets bool) []Conflict {
	var out []Conflict
	for i := 0; i < len(paths); i++ {
		for j := i + 1; j < len(paths); j++ {
			out = append(out, pairConflicts(core.AgentID(i), core.AgentID(j), paths[i], paths[j], targets)...)
		}
	}
	sortConflicts(out)
	return out
}

// FindFirstConflict returns the earliest conflict, or nil.
func FindFirstConflict(paths []core.Path, targets bool) *Conflict {
	all := FindAllConflicts(paths, targets)
	if len(all) == 0 {
		return nil
	}
	return &all[0]
}

// agentConflicts lists the conflicts of agent a against every other path.
func agentConflicts(a core.AgentID, paths []core.Path, targets bool) []Conflict {
	var out []Conflict
	for j := range paths {
		o := core.AgentID(j)
		if o == a {
			continue
		}
		if a < o {
			out = append(out, pairConflicts(a, o, paths[a], paths[o], targets)...)
		} else {
			out = append(out, pairConflicts(o, a, paths[o], paths[a], targets)...)
		}
	}
	return out
}

func sortConflicts(cs []Conflict) {
	sort.SliceStable(cs, func(x, y int) bool {
		return conflictBefore(cs[x], cs[y])
	})
}

func conflictBefore(a, b Conflict) bool {
	if a.Time != b.Time {
		return a.Time < b.Time
	}
	a1, a2 := orderedPair(a)
	b1, b2 := orderedPair(b)
	if a1 != b1 {
		return a1 < b1
	}
	if a2 != b2 {
		return a2 < b2
	}
	return a.Kind < b.Kind
}

func orderedPair(c Conflict) (core.AgentID, core.AgentID) {
	if c.Agent1 < c.Agent2 {
		return c.Agent1, c.Agent2
	}
	return c.Agent2, c.Agent1
}

func involves(c Conflict, a core.AgentID) bool {
	return c.Agent1 == a || c.Agent2 == a
}

// classify sets the cardinality of c from the agents' MDDs.
func classify(c *Conflict, mdds []*mdd) {
	m1, m2 := mdds[c.Agent1], mdds[c.Agent2]
	if m1 == nil || m2 == nil {
		c.Class = CardinalityUnknown
		return
	}
	var bound1, bound2 bool
	if c.Kind == EdgeConflict {
		bound1 = m1.singleton(c.Time-1, c.From) && m1.singleton(c.Time, c.Loc)
		bound2 = m2.singleton(c.Time-1, c.Loc) && m2.singleton(c.Time, c.From)
	} else {
		bound1 = m1.singleton(c.Time, c.Loc)
		bound2 = m2.singleton(c.Time, c.Loc)
	}
	switch {
	case bound1 && bound2:
		c.Class = Cardinal
	case bound1 || bound2:
		c.Class = SemiCardinal
	default:
		c.Class = NonCardinal
	}
}

// selectConflict picks the conflict to branch on. With prioritize set the
// order is cardinal, semi-cardinal, non-cardinal, unknown; ties prefer
// non-target conflicts and then the earliest. Otherwise the earliest wins.
func selectConflict(cs []Conflict, prioritize bool) Conflict {
	best := cs[0]
	if !prioritize {
		return best
	}
	for _, c := range cs[1:] {
		if c.Class != best.Class {
			if c.Class < best.Class {
				best = c
			}
			continue
		}
		if best.Kind == TargetConflict && c.Kind != TargetConflict {
			best = c
		}
	}
	return best
}

// reservationTable counts how often a move would collide with other agents'
// paths. It drives the focal ordering of the low-level search.
type reservationTable struct {
	vertex map[timedLoc]int
	edge   map[timedEdge]int
	parked map[core.Location]int // arrival time of agents resting there
}

func newReservationTable(paths []core.Path, skip core.AgentID) *reservationTable {
	rt := &reservationTable{
		vertex: make(map[timedLoc]int),
		edge:   make(map[timedEdge]int),
		parked: make(map[core.Location]int),
	}
	for i, p := range paths {
		if core.AgentID(i) == skip || len(p) == 0 {
			continue
		}
		for t, l := range p {
			rt.vertex[timedLoc{l, t}]++
			if t > 0 && p[t-1] != l {
				rt.edge[timedEdge{p[t-1], l, t}]++
			}
		}
		goal, at := p.Goal(), len(p)-1
		if prev, ok := rt.parked[goal]; !ok || at < prev {
			rt.parked[goal] = at
		}
	}
	return rt
}

// count returns the collisions caused by moving from -> to, arriving at t.
func (rt *reservationTable) count(from, to core.Location, t int) int {
	if rt == nil {
		return 0
	}
	n := rt.vertex[timedLoc{to, t}]
	if pt, ok := rt.parked[to]; ok && t > pt {
		n++
	}
	if from != to {
		n += rt.edge[timedEdge{to, from, t}]
	}
	return n
}
