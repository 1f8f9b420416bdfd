package sim

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elektrokombinacija/cbs-mapf/internal/algo"
	"github.com/elektrokombinacija/cbs-mapf/internal/core"
)

func mustParse(t *testing.T, rows ...string) *core.Workspace {
	t.Helper()
	ws, err := core.ParseWorkspace(rows...)
	require.NoError(t, err)
	return ws
}

// room is a 5x5 map with a pillar; four agents cross through it.
func room(t *testing.T) *core.Instance {
	inst := core.NewInstance(mustParse(t,
		".....",
		".....",
		"..@..",
		".....",
		".....",
	))
	inst.AddAgent(core.Coord{Row: 0, Col: 0}, core.Coord{Row: 4, Col: 4})
	inst.AddAgent(core.Coord{Row: 4, Col: 4}, core.Coord{Row: 0, Col: 0})
	inst.AddAgent(core.Coord{Row: 0, Col: 4}, core.Coord{Row: 4, Col: 0})
	inst.AddAgent(core.Coord{Row: 2, Col: 0}, core.Coord{Row: 2, Col: 4})
	return inst
}

func TestSolverOutputExecutes(t *testing.T) {
	solvers := []algo.Solver{algo.NewPrioritized(0)}
	for _, cfg := range []algo.Config{
		{Variant: algo.VariantCBS},
		{Variant: algo.VariantCBS, PrioritizeConflicts: true, BypassConflicts: true, TargetReasoning: true},
		{Variant: algo.VariantHBCBS, HighLevelBound: 1.5},
		{Variant: algo.VariantLBCBS, LowLevelBound: 1.5},
		{Variant: algo.VariantBCBS, HighLevelBound: 1.2, LowLevelBound: 1.2},
		{Variant: algo.VariantECBS, LowLevelBound: 1.5, PrioritizeConflicts: true},
	} {
		s, err := algo.NewCBS(cfg)
		require.NoError(t, err)
		solvers = append(solvers, s)
	}

	for _, solver := range solvers {
		t.Run(solver.Name(), func(t *testing.T) {
			inst := room(t)
			m, err := NewSimulator(SimulationConfig{Instance: inst, Solver: solver}).Run(context.Background())
			require.NoError(t, err)
			assert.True(t, m.OK(), "%v", m.Violations)
			assert.Positive(t, m.Ticks)
			assert.Len(t, m.Arrivals, 4)
			assert.Equal(t, m.Ticks*4, m.Moves+m.Waits)
		})
	}
}

func TestCheckJunction(t *testing.T) {
	inst := core.NewInstance(mustParse(t, "@.@", "...", "@.@"))
	inst.AddAgent(core.Coord{Row: 1, Col: 0}, core.Coord{Row: 1, Col: 2})
	inst.AddAgent(core.Coord{Row: 0, Col: 1}, core.Coord{Row: 2, Col: 1})
	ws := inst.Workspace

	// Agent 1 waits one step above the junction.
	sol := core.NewSolution([]core.Path{
		{ws.Loc(core.Coord{Row: 1, Col: 0}), 4, 5},
		{1, 1, 4, 7},
	})
	m, err := Check(context.Background(), inst, sol)
	require.NoError(t, err)
	assert.Equal(t, 3, m.Ticks)
	assert.Equal(t, []int{2, 3}, m.Arrivals)
	assert.Equal(t, 4, m.Moves)
	assert.Equal(t, 2, m.Waits)
}

func TestCheckFindsViolations(t *testing.T) {
	inst := core.NewInstance(mustParse(t, "....", ".@.."))
	inst.AddAgent(core.Coord{Row: 0, Col: 0}, core.Coord{Row: 0, Col: 3})
	inst.AddAgent(core.Coord{Row: 0, Col: 3}, core.Coord{Row: 0, Col: 0})

	tests := []struct {
		name  string
		paths []core.Path
		want  []ViolationKind
	}{
		{"swap", []core.Path{{0, 1, 2, 3}, {3, 2, 1, 0}}, []ViolationKind{EdgeCollision}},
		{"meet", []core.Path{{0, 1, 1, 2, 3}, {3, 2, 1, 0}}, []ViolationKind{VertexCollision}},
		{"jump", []core.Path{{0, 2, 3}, {3, 7, 6, 5, 4, 0}}, []ViolationKind{Jump, Jump, Blocked, Jump}},
		{"wrong ends", []core.Path{{1, 2}, {3, 7}}, []ViolationKind{WrongStart, WrongGoal, WrongGoal}},
		// Without a path agent 1 stays on its start, where agent 0 arrives.
		{"missing", []core.Path{{0, 1, 2, 3}}, []ViolationKind{MissingPath, VertexCollision}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Check(context.Background(), inst, core.NewSolution(tt.paths))
			require.ErrorIs(t, err, ErrPlanInvalid)
			var got []ViolationKind
			for _, v := range m.Violations {
				got = append(got, v.Kind)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheckNilSolution(t *testing.T) {
	_, err := Check(context.Background(), core.NewInstance(core.NewWorkspace(2, 2)), nil)
	assert.ErrorIs(t, err, ErrPlanInvalid)
}

func TestRunCancelled(t *testing.T) {
	inst := room(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sol := core.NewSolution([]core.Path{{0, 1}, {24, 23}, {4, 3}, {10, 11}})
	_, err := NewSimulator(SimulationConfig{Instance: inst, Solution: sol}).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
