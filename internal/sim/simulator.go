// Package sim executes a plan tick by tick on its instance and checks it.
//
// The simulator is independent of how the plan was produced: it moves every
// agent along its path (agents wait at their goals after arriving), checks
// each step against the map and the other agents, and collects execution
// metrics. It is used to verify solver output end to end.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/elektrokombinacija/cbs-mapf/internal/algo"
	"github.com/elektrokombinacija/cbs-mapf/internal/core"
	"github.com/elektrokombinacija/cbs-mapf/internal/ctxlog"
)

// ErrPlanInvalid reports a plan that cannot be executed as given.
var ErrPlanInvalid = errors.New("sim: plan invalid")

// SimulationConfig configures a simulation.
type SimulationConfig struct {
	// Instance to simulate
	Instance *core.Instance

	// Solver plans the instance when Solution is nil.
	Solver algo.Solver

	// Solution to execute. Takes precedence over Solver.
	Solution *core.Solution

	// Logger for per-run messages; taken from the context when nil.
	Logger *slog.Logger
}

// ViolationKind classifies a failed check.
type ViolationKind int

const (
	WrongStart ViolationKind = iota
	WrongGoal
	Blocked
	Jump
	VertexCollision
	EdgeCollision
	MissingPath
)

func (k ViolationKind) String() string {
	switch k {
	case WrongStart:
		return "wrong-start"
	case WrongGoal:
		return "wrong-goal"
	case Blocked:
		return "blocked"
	case Jump:
		return "jump"
	case VertexCollision:
		return "vertex-collision"
	case EdgeCollision:
		return "edge-collision"
	case MissingPath:
		return "missing-path"
	}
	return fmt.Sprintf("ViolationKind(%d)", int(k))
}

// Violation is one failed check. Other is -1 unless two agents collide.
type Violation struct {
	Kind  ViolationKind
	Agent core.AgentID
	Other core.AgentID
	Time  int
	Loc   core.Location
}

func (v Violation) String() string {
	if v.Other >= 0 {
		return fmt.Sprintf("%s: agents %d and %d at t=%d", v.Kind, v.Agent, v.Other, v.Time)
	}
	return fmt.Sprintf("%s: agent %d at t=%d", v.Kind, v.Agent, v.Time)
}

// SimulationMetrics collects metrics during a simulation.
type SimulationMetrics struct {
	// Timing
	StartTime    time.Time
	EndTime      time.Time
	PlanningTime time.Duration

	// Execution
	Ticks int
	Moves int
	Waits int
	// Arrivals[i] is the tick from which agent i stays at its goal.
	Arrivals []int

	Violations []Violation
}

// OK reports whether the plan executed without violations.
func (m *SimulationMetrics) OK() bool { return len(m.Violations) == 0 }

// Err returns nil for a valid plan, otherwise ErrPlanInvalid wrapping the
// first violation.
func (m *SimulationMetrics) Err() error {
	if m.OK() {
		return nil
	}
	return fmt.Errorf("%w: %s (%d violations)", ErrPlanInvalid, m.Violations[0], len(m.Violations))
}

// Simulator executes one plan.
type Simulator struct {
	mu sync.Mutex

	config   SimulationConfig
	log      *slog.Logger
	solution *core.Solution

	currentTime int
	positions   []core.Location

	metrics SimulationMetrics
}

// NewSimulator creates a simulator positioned at t=0.
func NewSimulator(config SimulationConfig) *Simulator {
	s := &Simulator{config: config, log: config.Logger}
	if inst := config.Instance; inst != nil {
		s.positions = make([]core.Location, len(inst.Agents))
		for i, a := range inst.Agents {
			s.positions[i] = a.Start
		}
	}
	return s
}

// Run plans if needed, then executes the plan to its makespan. The returned
// error covers planning and cancellation only; an invalid plan is reported in
// the metrics.
func (s *Simulator) Run(ctx context.Context) (*SimulationMetrics, error) {
	if s.config.Instance == nil {
		return nil, fmt.Errorf("%w: no instance", core.ErrInvalidInstance)
	}
	if s.log == nil {
		s.log = ctxlog.FromContext(ctx)
	}
	s.metrics.StartTime = time.Now()

	if err := s.plan(ctx); err != nil {
		return nil, fmt.Errorf("initial planning failed: %w", err)
	}
	s.checkStart()

	for s.step() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	s.checkGoals()

	s.metrics.EndTime = time.Now()
	if !s.metrics.OK() {
		s.log.Warn("plan invalid", "violations", len(s.metrics.Violations), "first", s.metrics.Violations[0].String())
	} else {
		s.log.Debug("plan executed", "ticks", s.metrics.Ticks, "moves", s.metrics.Moves, "waits", s.metrics.Waits)
	}
	return &s.metrics, nil
}

func (s *Simulator) plan(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config.Solution != nil {
		s.solution = s.config.Solution
		return nil
	}
	if s.config.Solver == nil {
		return errors.New("neither solution nor solver given")
	}
	start := time.Now()
	res, err := s.config.Solver.Solve(ctx, s.config.Instance)
	s.metrics.PlanningTime = time.Since(start)
	if err != nil {
		return err
	}
	s.solution = res.Solution
	return nil
}

func (s *Simulator) checkStart() {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst := s.config.Instance
	s.metrics.Arrivals = make([]int, len(inst.Agents))
	for i, a := range inst.Agents {
		p := s.solution.Path(a.ID)
		if len(p) == 0 {
			s.violate(Violation{Kind: MissingPath, Agent: a.ID})
			continue
		}
		if p[0] != a.Start {
			s.violate(Violation{Kind: WrongStart, Agent: a.ID, Loc: p[0]})
		}
		s.positions[i] = p[0]
	}
	s.checkVertices(0)
}

// step advances every agent by one tick. It returns false once the makespan
// has been reached.
func (s *Simulator) step() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentTime >= s.solution.Makespan {
		return false
	}
	ws := s.config.Instance.Workspace
	t := s.currentTime + 1
	for i, a := range s.config.Instance.Agents {
		p := s.solution.Path(a.ID)
		if len(p) == 0 {
			continue
		}
		from, to := s.positions[i], p.At(t)
		switch {
		case from == to:
			s.metrics.Waits++
		case !adjacent(ws, from, to):
			s.violate(Violation{Kind: Jump, Agent: a.ID, Time: t, Loc: to})
			s.metrics.Moves++
		default:
			s.metrics.Moves++
		}
		if !ws.Passable(to) {
			s.violate(Violation{Kind: Blocked, Agent: a.ID, Time: t, Loc: to})
		}
		s.positions[i] = to
	}
	s.checkEdges(t)
	s.checkVertices(t)
	s.currentTime = t
	s.metrics.Ticks = t
	return true
}

func (s *Simulator) checkVertices(t int) {
	occupant := make(map[core.Location]core.AgentID, len(s.positions))
	for i, l := range s.positions {
		id := s.config.Instance.Agents[i].ID
		if other, ok := occupant[l]; ok {
			s.violate(Violation{Kind: VertexCollision, Agent: other, Other: id, Time: t, Loc: l})
			continue
		}
		occupant[l] = id
	}
}

func (s *Simulator) checkEdges(t int) {
	agents := s.config.Instance.Agents
	for i := range agents {
		pi := s.solution.Path(agents[i].ID)
		for j := i + 1; j < len(agents); j++ {
			pj := s.solution.Path(agents[j].ID)
			if len(pi) == 0 || len(pj) == 0 {
				continue
			}
			if pi.At(t-1) == pj.At(t) && pi.At(t) == pj.At(t-1) && pi.At(t-1) != pi.At(t) {
				s.violate(Violation{Kind: EdgeCollision, Agent: agents[i].ID, Other: agents[j].ID, Time: t, Loc: pi.At(t)})
			}
		}
	}
}

func (s *Simulator) checkGoals() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, a := range s.config.Instance.Agents {
		p := s.solution.Path(a.ID)
		if len(p) == 0 {
			continue
		}
		if p.Goal() != a.Goal {
			s.violate(Violation{Kind: WrongGoal, Agent: a.ID, Time: len(p) - 1, Loc: p.Goal()})
		}
		s.metrics.Arrivals[i] = p.Cost()
	}
}

func (s *Simulator) violate(v Violation) {
	if v.Kind != VertexCollision && v.Kind != EdgeCollision {
		v.Other = -1
	}
	s.metrics.Violations = append(s.metrics.Violations, v)
}

// Positions returns the agent locations at the current tick.
func (s *Simulator) Positions() []core.Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Location, len(s.positions))
	copy(out, s.positions)
	return out
}

// Time returns the current tick.
func (s *Simulator) Time() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentTime
}

func adjacent(ws *core.Workspace, from, to core.Location) bool {
	for _, n := range ws.Neighbors(from) {
		if n == to {
			return true
		}
	}
	return false
}

// Check executes sol on inst and returns its metrics. The error is
// ErrPlanInvalid when any check failed.
func Check(ctx context.Context, inst *core.Instance, sol *core.Solution) (*SimulationMetrics, error) {
	if sol == nil {
		return nil, fmt.Errorf("%w: no solution", ErrPlanInvalid)
	}
	m, err := NewSimulator(SimulationConfig{Instance: inst, Solution: sol, }).Run(ctx)
	if err != nil {
		return nil, err
	}
	return m, m.Err()
}
