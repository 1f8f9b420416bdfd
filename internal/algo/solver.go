// Package algo implements the Conflict-Based Search solver family for MAPF.
package algo

import (
	"context"
	"errors"
	"time"

	"github.com/elektrokombinacija/cbs-mapf/internal/core"
)

var (
	// ErrInstanceInfeasible means the constraint tree was exhausted without a
	// conflict-free node.
	ErrInstanceInfeasible = errors.New("algo: instance infeasible")

	// ErrAgentInfeasible means a single-agent search found no path under its
	// constraints. It is recovered locally by discarding the branch.
	ErrAgentInfeasible = errors.New("algo: no path for agent under constraints")

	// ErrResourceLimit means the time or node budget ran out.
	ErrResourceLimit = errors.New("algo: resource limit exceeded")

	// ErrConfigInvalid means the configuration or the instance was rejected
	// before search started.
	ErrConfigInvalid = errors.New("algo: invalid configuration")
)

// Solver is the interface for MAPF algorithms.
type Solver interface {
	// Solve searches for collision-free paths for every agent of inst.
	// On Infeasible and Timeout the returned Result carries the statistics
	// alongside a non-nil error.
	Solve(ctx context.Context, inst *core.Instance) (*Result, error)

	// Name returns the algorithm name.
	Name() string
}

// Status is the outcome of a solve.
type Status int

const (
	StatusSolved Status = iota
	StatusInfeasible
	StatusTimeout
)

func (s Status) String() string {
	return [...]string{"solved", "infeasible", "timeout"}[s]
}

// Result is what a Solver returns.
type Result struct {
	Status Status
	// Solution is set when solved, and on timeout when a bounded variant
	// already holds a conflict-free incumbent.
	Solution *core.Solution
	Stats    Stats
}

// Stats are plain counters for the statistics writer.
type Stats struct {
	HighLevelExpanded  int
	HighLevelGenerated int
	LowLevelCalls      int
	LowLevelExpanded   int
	Bypasses           int
	Cost               int
	LowerBound         int
	WallTime           time.Duration
}
