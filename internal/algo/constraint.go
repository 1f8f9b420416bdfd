package algo

import (
	"fmt"

	"github.com/elektrokombinacija/cbs-mapf/internal/core"
)

// ConstraintKind selects how a Constraint restricts its agent.
type ConstraintKind int

const (
	// VertexConstraint forbids Loc at Time, or at every t >= Time when Permanent.
	VertexConstraint ConstraintKind = iota
	// EdgeConstraint forbids the move From -> Loc arriving at Time.
	EdgeConstraint
	// LengthConstraint forbids the agent from coming to rest at its goal at
	// or before Time.
	LengthConstraint
)

func (k ConstraintKind) String() string {
	return [...]string{"vertex", "edge", "length"}[k]
}

// Constraint prohibits one agent from a location, a move, or an early finish.
type Constraint struct {
	Agent     core.AgentID
	Kind      ConstraintKind
	Loc       core.Location
	From      core.Location // edge constraints only
	Time      int
	Permanent bool // vertex constraints only
}

func (c Constraint) String() string {
	switch c.Kind {
	case EdgeConstraint:
		return fmt.Sprintf("a%d !%d->%d@%d", c.Agent, c.From, c.Loc, c.Time)
	case LengthConstraint:
		return fmt.Sprintf("a%d len>%d", c.Agent, c.Time)
	default:
		if c.Permanent {
			return fmt.Sprintf("a%d !%d@%d+", c.Agent, c.Loc, c.Time)
		}
		return fmt.Sprintf("a%d !%d@%d", c.Agent, c.Loc, c.Time)
	}
}

type timedLoc struct {
	loc core.Location
	t   int
}

type timedEdge struct {
	from, to core.Location
	t        int
}

// constraintTable indexes the constraints of one agent for the low-level search.
type constraintTable struct {
	vertex    map[timedLoc]struct{}
	edge      map[timedEdge]struct{}
	permanent map[core.Location]int // earliest forbidden time
	// lastVertex is the latest timed vertex constraint per location.
	lastVertex map[core.Location]int
	// limit is the last time step at which a constraint can still bite.
	// Beyond it only permanent constraints apply. -1 when unconstrained.
	limit int
	// minLength is the latest length constraint time, -1 when there is none.
	minLength int
}

func newConstraintTable(agent core.AgentID, constraints []Constraint) *constraintTable {
	ct := &constraintTable{
		vertex:     make(map[timedLoc]struct{}),
		edge:       make(map[timedEdge]struct{}),
		permanent:  make(map[core.Location]int),
		lastVertex: make(map[core.Location]int),
		limit:      -1,
		minLength:  -1,
	}
	for _, c := range constraints {
		if c.Agent != agent {
			continue
		}
		switch c.Kind {
		case VertexConstraint:
			if c.Permanent {
				if t, ok := ct.permanent[c.Loc]; !ok || c.Time < t {
					ct.permanent[c.Loc] = c.Time
				}
			} else {
				ct.vertex[timedLoc{c.Loc, c.Time}] = struct{}{}
				if t, ok := ct.lastVertex[c.Loc]; !ok || c.Time > t {
					ct.lastVertex[c.Loc] = c.Time
				}
			}
		case EdgeConstraint:
			ct.edge[timedEdge{c.From, c.Loc, c.Time}] = struct{}{}
		case LengthConstraint:
			ct.minLength = max(ct.minLength, c.Time)
		}
		if c.Time > ct.limit {
			ct.limit = c.Time
		}
	}
	return ct
}

// blocked reports whether arriving at to at time t via from is forbidden.
func (ct *constraintTable) blocked(from, to core.Location, t int) bool {
	if _, ok := ct.vertex[timedLoc{to, t}]; ok {
		return true
	}
	if pt, ok := ct.permanent[to]; ok && t >= pt {
		return true
	}
	if from != to {
		if _, ok := ct.edge[timedEdge{from, to, t}]; ok {
			return true
		}
	}
	return false
}

// canSettle reports whether the agent may stop for good at goal from time t.
// Only constraints that would touch the waiting agent matter: a later vertex
// constraint on goal, a length constraint, or a permanent one on goal.
func (ct *constraintTable) canSettle(goal core.Location, t int) bool {
	if t <= ct.minLength {
		return false
	}
	if last, ok := ct.lastVertex[goal]; ok && last >= t {
		return false
	}
	_, forbidden := ct.permanent[goal]
	return !forbidden
}
