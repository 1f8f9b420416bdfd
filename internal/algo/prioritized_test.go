package algo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elektrokombinacija/cbs-mapf/internal/core"
)

func TestPrioritizedJunction(t *testing.T) {
	inst := junctionInstance(t)

	res, err := NewPrioritized(time.Second).Solve(context.Background(), inst)
	require.NoError(t, err)
	requireValidSolution(t, inst, res)
	assert.Equal(t, 5, res.Solution.SumOfCosts)
	assert.Equal(t, 2, res.Stats.LowLevelCalls)
	assert.Equal(t, 0, res.Stats.HighLevelExpanded)
}

func TestPrioritizedSettlesEarly(t *testing.T) {
	// Agent 1 is already next to its goal and must not outwait agent 0's
	// whole reservation before stopping.
	inst := newInstance(createTwoRows(t),
		[2]core.Coord{{Row: 0, Col: 0}, {Row: 0, Col: 4}},
		[2]core.Coord{{Row: 1, Col: 0}, {Row: 1, Col: 1}},
	)
	res, err := NewPrioritized(time.Second).Solve(context.Background(), inst)
	require.NoError(t, err)
	requireValidSolution(t, inst, res)
	assert.Equal(t, 5, res.Solution.SumOfCosts)
	assert.Equal(t, core.Path{5, 6}, res.Solution.Paths[1])
}

func TestPrioritizedWaitsForLaterCrossing(t *testing.T) {
	// Agent 0 crosses agent 1's goal at t=2, so agent 1 may only settle
	// there once agent 0 has passed.
	inst := newInstance(createTwoRows(t),
		[2]core.Coord{{Row: 0, Col: 0}, {Row: 0, Col: 4}},
		[2]core.Coord{{Row: 1, Col: 2}, {Row: 0, Col: 2}},
	)
	res, err := NewPrioritized(time.Second).Solve(context.Background(), inst)
	require.NoError(t, err)
	requireValidSolution(t, inst, res)
	assert.Equal(t, 7, res.Solution.SumOfCosts)
	assert.Equal(t, 3, res.Solution.Paths[1].Cost())
}

func createTwoRows(t *testing.T) *core.Workspace {
	return mustWorkspace(t, ".....", ".....")
}

func TestPrioritizedSwapFails(t *testing.T) {
	inst := newInstance(mustWorkspace(t, ".."),
		[2]core.Coord{{Row: 0, Col: 0}, {Row: 0, Col: 1}},
		[2]core.Coord{{Row: 0, Col: 1}, {Row: 0, Col: 0}},
	)
	res, err := NewPrioritized(time.Second).Solve(context.Background(), inst)
	require.ErrorIs(t, err, ErrInstanceInfeasible)
	assert.Equal(t, StatusInfeasible, res.Status)
	assert.Nil(t, res.Solution)
}

func TestReservePath(t *testing.T) {
	cs := reservePath(3, core.Path{0, 1, 1, 2})
	want := []Constraint{
		{Agent: 3, Kind: VertexConstraint, Loc: 0, Time: 0},
		{Agent: 3, Kind: EdgeConstraint, From: 1, Loc: 0, Time: 1},
		{Agent: 3, Kind: VertexConstraint, Loc: 1, Time: 1},
		{Agent: 3, Kind: VertexConstraint, Loc: 1, Time: 2},
		{Agent: 3, Kind: EdgeConstraint, From: 2, Loc: 1, Time: 3},
		{Agent: 3, Kind: VertexConstraint, Loc: 2, Time: 3, Permanent: true},
	}
	assert.Equal(t, want, cs)
}

func TestPrioritizedName(t *testing.T) {
	var s Solver = NewPrioritized(0)
	assert.Equal(t, "prioritized", s.Name())

	cbs, err := NewCBS(Config{Variant: VariantECBS, LowLevelBound: 1.2})
	require.NoError(t, err)
	s = cbs
	assert.Equal(t, "ecbs", s.Name())
	assert.Equal(t, DefaultTimeout, cbs.Config().Timeout)
}
