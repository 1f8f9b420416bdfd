package algo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/elektrokombinacija/cbs-mapf/internal/core"
	"github.com/elektrokombinacija/cbs-mapf/internal/ctxlog"
	"github.com/elektrokombinacija/cbs-mapf/internal/metrics"
)

// Prioritized implements prioritized planning: agents are planned one at a
// time in ID order, each treating earlier paths as hard constraints.
// It is fast and incomplete, and serves as a baseline.
type Prioritized struct {
	Timeout time.Duration
	Horizon int
}

// NewPrioritized creates a prioritized planning solver.
func NewPrioritized(timeout time.Duration) *Prioritized {
	return &Prioritized{Timeout: timeout}
}

func (p *Prioritized) Name() string { return "prioritized" }

// Solve implements prioritized planning.
func (p *Prioritized) Solve(ctx context.Context, inst *core.Instance) (*Result, error) {
	if err := inst.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigInvalid, err)
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := time.Now()
	horizon := p.Horizon
	if horizon == 0 {
		horizon = inst.Workspace.NumFreeCells() * max(1, len(inst.Agents))
	}

	var stats Stats
	paths := make([]core.Path, len(inst.Agents))
	var reserved []Constraint

	status := StatusSolved
	var solveErr error
	for _, agent := range inst.Agents {
		// Step 1: plan against everything reserved so far
		res, err := spaceTimeAStar(ctx, &lowLevelRequest{
			graph:   inst.Workspace,
			agent:   agent,
			dist:    DistanceTable(inst.Workspace, agent.Goal),
			table:   newConstraintTable(agent.ID, reserved),
			horizon: horizon,
			weight:  1,
		})
		stats.LowLevelCalls++
		if err != nil {
			if errors.Is(err, ErrAgentInfeasible) {
				status, solveErr = StatusInfeasible, fmt.Errorf("%w: %w", ErrInstanceInfeasible, err)
			} else {
				status, solveErr = StatusTimeout, fmt.Errorf("%w: %w", ErrResourceLimit, err)
			}
			break
		}
		stats.LowLevelExpanded += res.expanded
		paths[agent.ID] = res.path
		stats.Cost += res.cost
		stats.LowerBound += res.lowerBound

		// Step 2: reserve the path for every later agent
		for _, later := range inst.Agents[agent.ID+1:] {
			reserved = append(reserved, reservePath(later.ID, res.path)...)
		}
	}
	if status == StatusSolved {
		if err := VerifyPaths(inst, paths); err != nil {
			status, solveErr = StatusInfeasible, err
		}
	}
	stats.WallTime = time.Since(started)

	metrics.ObserveSolve(metrics.Solve{
		Variant:          p.Name(),
		Status:           status.String(),
		LowLevelCalls:    stats.LowLevelCalls,
		LowLevelExpanded: stats.LowLevelExpanded,
		Duration:         stats.WallTime,
	})
	ctxlog.FromContext(ctx).Info("prioritized planning finished", "status", status, "cost", stats.Cost)

	res := &Result{Status: status, Stats: stats}
	if status == StatusSolved {
		res.Solution = core.NewSolution(paths)
	}
	return res, solveErr
}

// reservePath converts path into constraints for agent: every occupied cell,
// every reversed move, and the final cell from arrival onwards.
func reservePath(agent core.AgentID, path core.Path) []Constraint {
	out := make([]Constraint, 0, 2*len(path))
	last := len(path) - 1
	for t := 0; t < last; t++ {
		out = append(out, Constraint{Agent: agent, Kind: VertexConstraint, Loc: path[t], Time: t})
		if path[t+1] != path[t] {
			out = append(out, Constraint{Agent: agent, Kind: EdgeConstraint, From: path[t+1], Loc: path[t], Time: t + 1})
		}
	}
	out = append(out, Constraint{Agent: agent, Kind: VertexConstraint, Loc: path[last], Time: last, Permanent: true})
	return out
}
