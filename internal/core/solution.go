package core

// TimedLocation is a location at a specific time step.
type TimedLocation struct {
	Loc Location
	T   int
}

// Path is the location of one agent at each time step, starting at t=0.
// The agent waits at the last location forever after the path ends.
type Path []Location

// At returns the location at time t, applying wait-at-goal semantics.
func (p Path) At(t int) Location {
	if len(p) == 0 {
		return NoLocation
	}
	if t < 0 {
		return p[0]
	}
	if t >= len(p) {
		return p[len(p)-1]
	}
	return p[t]
}

// Cost is the arrival time at the final location.
func (p Path) Cost() int {
	if len(p) == 0 {
		return 0
	}
	return len(p) - 1
}

// Goal returns the last location.
func (p Path) Goal() Location {
	if len(p) == 0 {
		return NoLocation
	}
	return p[len(p)-1]
}

// Timed expands the path into (location, time) pairs.
func (p Path) Timed() []TimedLocation {
	out := make([]TimedLocation, len(p))
	for t, l := range p {
		out[t] = TimedLocation{Loc: l, T: t}
	}
	return out
}

// Solution holds one path per agent, in agent order.
type Solution struct {
	Paths      []Path
	SumOfCosts int
	Makespan   int
}

// NewSolution builds a solution and computes its aggregate costs.
func NewSolution(paths []Path) *Solution {
	s := &Solution{Paths: paths}
	for _, p := range paths {
		c := p.Cost()
		s.SumOfCosts += c
		if c > s.Makespan {
			s.Makespan = c
		}
	}
	return s
}

// Path returns the path of agent id, or nil.
func (s *Solution) Path(id AgentID) Path {
	if id < 0 || int(id) >= len(s.Paths) {
		return nil
	}
	return s.Paths[id]
}
