package algo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elektrokombinacija/cbs-mapf/internal/core"
)

// createGrid creates an obstacle-free n x n workspace.
func createGrid(n int) *core.Workspace {
	return core.NewWorkspace(n, n)
}

func mustWorkspace(t *testing.T, rows ...string) *core.Workspace {
	t.Helper()
	w, err := core.ParseWorkspace(rows...)
	require.NoError(t, err)
	return w
}

// newInstance builds an instance from (start, goal) coordinate pairs.
func newInstance(w *core.Workspace, pairs ...[2]core.Coord) *core.Instance {
	inst := core.NewInstance(w)
	for _, p := range pairs {
		inst.AddAgent(p[0], p[1])
	}
	return inst
}

// junctionInstance is a plus-shaped map where two agents cross the centre.
func junctionInstance(t *testing.T) *core.Instance {
	w := mustWorkspace(t,
		"@.@",
		"...",
		"@.@",
	)
	return newInstance(w,
		[2]core.Coord{{Row: 1, Col: 0}, {Row: 1, Col: 2}},
		[2]core.Coord{{Row: 0, Col: 1}, {Row: 2, Col: 1}},
	)
}

// crossingInstance has four agents crossing a 6x6 room with two pillars.
func crossingInstance(t *testing.T) *core.Instance {
	w := mustWorkspace(t,
		"......",
		"......",
		"..@...",
		"...@..",
		"......",
		"......",
	)
	return newInstance(w,
		[2]core.Coord{{Row: 0, Col: 0}, {Row: 5, Col: 5}},
		[2]core.Coord{{Row: 5, Col: 0}, {Row: 0, Col: 5}},
		[2]core.Coord{{Row: 0, Col: 3}, {Row: 5, Col: 2}},
		[2]core.Coord{{Row: 3, Col: 0}, {Row: 1, Col: 5}},
	)
}

func solve(t *testing.T, cfg Config, inst *core.Instance) (*Result, error) {
	t.Helper()
	solver, err := NewCBS(cfg)
	require.NoError(t, err)
	return solver.Solve(context.Background(), inst)
}

func requireValidSolution(t *testing.T, inst *core.Instance, res *Result) {
	t.Helper()
	require.Equal(t, StatusSolved, res.Status)
	require.NotNil(t, res.Solution)
	require.NoError(t, VerifyPaths(inst, res.Solution.Paths))
	for i, a := range inst.Agents {
		p := res.Solution.Paths[i]
		assert.Equal(t, a.Start, p[0], "agent %d start", i)
		assert.Equal(t, a.Goal, p.Goal(), "agent %d goal", i)
	}
	assert.Empty(t, FindAllConflicts(res.Solution.Paths, true))
}

func TestFindFirstConflict_NoConflict(t *testing.T) {
	paths := []core.Path{{0, 1, 2}, {10, 11, 12}}
	assert.Nil(t, FindFirstConflict(paths, true))
}

func TestFindFirstConflict_VertexConflict(t *testing.T) {
	paths := []core.Path{{0, 1, 2}, {3, 1, 4}}

	c := FindFirstConflict(paths, false)
	require.NotNil(t, c)
	assert.Equal(t, VertexConflict, c.Kind)
	assert.Equal(t, core.Location(1), c.Loc)
	assert.Equal(t, 1, c.Time)
	assert.Equal(t, core.AgentID(0), c.Agent1)
	assert.Equal(t, core.AgentID(1), c.Agent2)
}

func TestFindFirstConflict_EdgeConflict(t *testing.T) {
	paths := []core.Path{{0, 1}, {1, 0}}

	c := FindFirstConflict(paths, false)
	require.NotNil(t, c)
	assert.Equal(t, EdgeConflict, c.Kind)
	assert.Equal(t, core.Location(0), c.From)
	assert.Equal(t, core.Location(1), c.Loc)
	assert.Equal(t, 1, c.Time)
}

func TestFindFirstConflict_TargetConflict(t *testing.T) {
	// Agent 0 settles on 1 at t=1; agent 1 passes through at t=2.
	paths := []core.Path{{0, 1}, {3, 2, 1, 4}}

	c := FindFirstConflict(paths, true)
	require.NotNil(t, c)
	assert.Equal(t, TargetConflict, c.Kind)
	assert.Equal(t, core.AgentID(0), c.Agent1, "settled agent comes first")
	assert.Equal(t, core.AgentID(1), c.Agent2)
	assert.Equal(t, 2, c.Time)

	c = FindFirstConflict(paths, false)
	require.NotNil(t, c)
	assert.Equal(t, VertexConflict, c.Kind)
}

func TestFindAllConflicts(t *testing.T) {
	paths := []core.Path{
		{0, 1, 2},
		{2, 1, 0},
		{5, 6, 2},
	}
	all := FindAllConflicts(paths, false)
	require.Len(t, all, 2)
	assert.Equal(t, 1, all[0].Time)
	assert.Equal(t, 2, all[1].Time)
	assert.Equal(t, core.AgentID(2), all[1].Agent2)

	// One pair can contribute several conflicts.
	same := FindAllConflicts([]core.Path{{0, 1, 2}, {3, 1, 2}}, false)
	require.Len(t, same, 2)
	assert.Equal(t, []int{1, 2}, []int{same[0].Time, same[1].Time})
	assert.Equal(t, core.AgentID(1), same[1].Agent2)
}

func TestCBSSingleAgentNoExpansions(t *testing.T) {
	inst := newInstance(createGrid(5), [2]core.Coord{{Row: 0, Col: 0}, {Row: 0, Col: 4}})

	res, err := solve(t, DefaultConfig(), inst)
	require.NoError(t, err)
	requireValidSolution(t, inst, res)
	assert.Equal(t, 0, res.Stats.HighLevelExpanded)
	assert.Equal(t, 4, res.Solution.SumOfCosts)
	assert.Equal(t, 1, res.Stats.LowLevelCalls)
}

func TestCBSJunctionOneAgentWaits(t *testing.T) {
	inst := junctionInstance(t)

	res, err := solve(t, DefaultConfig(), inst)
	require.NoError(t, err)
	requireValidSolution(t, inst, res)
	assert.Equal(t, 5, res.Solution.SumOfCosts)
	assert.Equal(t, 3, res.Solution.Makespan)
	assert.Equal(t, 1, res.Stats.HighLevelExpanded)
}

func TestCBSSwapCorridorInfeasible(t *testing.T) {
	inst := newInstance(mustWorkspace(t, ".."),
		[2]core.Coord{{Row: 0, Col: 0}, {Row: 0, Col: 1}},
		[2]core.Coord{{Row: 0, Col: 1}, {Row: 0, Col: 0}},
	)

	res, err := solve(t, DefaultConfig(), inst)
	require.ErrorIs(t, err, ErrInstanceInfeasible)
	require.NotNil(t, res)
	assert.Equal(t, StatusInfeasible, res.Status)
	assert.Nil(t, res.Solution)
}

func TestCBSThreeCellCorridorSwapInfeasible(t *testing.T) {
	inst := newInstance(mustWorkspace(t, "..."),
		[2]core.Coord{{Row: 0, Col: 0}, {Row: 0, Col: 2}},
		[2]core.Coord{{Row: 0, Col: 2}, {Row: 0, Col: 0}},
	)
	cfg := DefaultConfig()
	cfg.Horizon = 3

	res, err := solve(t, cfg, inst)
	require.ErrorIs(t, err, ErrInstanceInfeasible)
	assert.Equal(t, StatusInfeasible, res.Status)
}

func TestCBSUnreachableGoalInfeasible(t *testing.T) {
	inst := newInstance(mustWorkspace(t, ".@."),
		[2]core.Coord{{Row: 0, Col: 0}, {Row: 0, Col: 2}},
	)
	res, err := solve(t, DefaultConfig(), inst)
	require.ErrorIs(t, err, ErrInstanceInfeasible)
	assert.Equal(t, StatusInfeasible, res.Status)
}

func TestTargetReasoningPocket(t *testing.T) {
	// Agent 0 reaches its goal in the corridor first; agent 1 has to pass
	// through it, so agent 0 must wait in the pocket.
	w := mustWorkspace(t,
		"....",
		"@.@@",
	)
	inst := newInstance(w,
		[2]core.Coord{{Row: 1, Col: 1}, {Row: 0, Col: 1}},
		[2]core.Coord{{Row: 0, Col: 3}, {Row: 0, Col: 0}},
	)

	for _, tr := range []bool{false, true} {
		cfg := DefaultConfig()
		cfg.TargetReasoning = tr
		res, err := solve(t, cfg, inst)
		require.NoError(t, err, "target reasoning %v", tr)
		requireValidSolution(t, inst, res)
		assert.Equal(t, 6, res.Solution.SumOfCosts, "target reasoning %v", tr)
	}
}

// detourInstance needs agent 1 and agent 2 to step aside for agent 0, which
// must pass through agent 1's goal to reach its own. The optimum is 16.
func detourInstance(t *testing.T) *core.Instance {
	w := mustWorkspace(t,
		".@@..",
		".@...",
		".....",
		"@....",
		"...@.",
	)
	return newInstance(w,
		[2]core.Coord{{Row: 4, Col: 0}, {Row: 4, Col: 4}},
		[2]core.Coord{{Row: 4, Col: 4}, {Row: 3, Col: 4}},
		[2]core.Coord{{Row: 3, Col: 3}, {Row: 3, Col: 3}},
	)
}

func TestOptimalConfigsFindKnownOptimum(t *testing.T) {
	inst := detourInstance(t)
	tests := []struct {
		name string
		cfg  Config
	}{
		{"cbs plain", Config{Variant: VariantCBS}},
		{"cbs prioritize", Config{Variant: VariantCBS, PrioritizeConflicts: true}},
		{"cbs bypass", Config{Variant: VariantCBS, PrioritizeConflicts: true, BypassConflicts: true}},
		{"cbs target reasoning", Config{Variant: VariantCBS, TargetReasoning: true}},
		{"cbs all flags", Config{Variant: VariantCBS,
			PrioritizeConflicts: true, BypassConflicts: true, TargetReasoning: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.Timeout = 30 * time.Second
			res, err := solve(t, tt.cfg, inst)
			require.NoError(t, err)
			requireValidSolution(t, inst, res)
			assert.Equal(t, 16, res.Solution.SumOfCosts)
			assert.Equal(t, 16, res.Stats.LowerBound)
		})
	}
}

func TestAllVariantsRespectBounds(t *testing.T) {
	inst := detourInstance(t)
	const optimal = 16

	tests := []struct {
		name  string
		cfg   Config
		bound float64
	}{
		{"cbs plain", Config{Variant: VariantCBS}, 1},
		{"hbcbs", Config{Variant: VariantHBCBS, HighLevelBound: 1.5}, 1.5},
		{"lbcbs", Config{Variant: VariantLBCBS, LowLevelBound: 1.5}, 1.5},
		{"bcbs", Config{Variant: VariantBCBS, HighLevelBound: 1.2, LowLevelBound: 1.2}, 1.44},
		{"ecbs", Config{Variant: VariantECBS, LowLevelBound: 1.5}, 1.5},
		{"ecbs all flags", Config{Variant: VariantECBS, LowLevelBound: 1.2,
			PrioritizeConflicts: true, BypassConflicts: true, TargetReasoning: true}, 1.2},
		{"hbcbs all flags", Config{Variant: VariantHBCBS, HighLevelBound: 1.1,
			PrioritizeConflicts: true, BypassConflicts: true, TargetReasoning: true}, 1.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.Timeout = 30 * time.Second
			res, err := solve(t, tt.cfg, inst)
			require.NoError(t, err)
			requireValidSolution(t, inst, res)
			assert.GreaterOrEqual(t, res.Solution.SumOfCosts, optimal)
			assert.LessOrEqual(t, float64(res.Solution.SumOfCosts), tt.bound*float64(optimal))
		})
	}
}

func TestDeterministicPaths(t *testing.T) {
	inst := crossingInstance(t)
	cfg := Config{Variant: VariantECBS, LowLevelBound: 1.3, PrioritizeConflicts: true}

	first, err := solve(t, cfg, inst)
	require.NoError(t, err)
	second, err := solve(t, cfg, inst)
	require.NoError(t, err)

	if diff := cmp.Diff(first.Solution.Paths, second.Solution.Paths); diff != "" {
		t.Errorf("paths differ between runs (-first +second):\n%s", diff)
	}
	assert.Equal(t, first.Stats.HighLevelExpanded, second.Stats.HighLevelExpanded)
}

// treeRecorder keeps every generated node for structural checks.
type treeRecorder struct {
	NopObserver
	nodes    map[int]NodeInfo
	expanded int
	solution *core.Solution
}

func (r *treeRecorder) OnNodeGenerated(n NodeInfo) { r.nodes[n.ID] = n }
func (r *treeRecorder) OnNodeExpanded(NodeInfo)    { r.expanded++ }
func (r *treeRecorder) OnSolutionFound(_ NodeInfo, s *core.Solution) {
	r.solution = s
}

func TestChildCostNeverBelowParent(t *testing.T) {
	inst := crossingInstance(t)
	rec := &treeRecorder{nodes: make(map[int]NodeInfo)}

	cfg := DefaultConfig()
	cfg.TargetReasoning = true
	cfg.BypassConflicts = true
	cfg.Observer = rec
	res, err := solve(t, cfg, inst)
	require.NoError(t, err)
	requireValidSolution(t, inst, res)
	require.NotNil(t, rec.solution)

	for id, n := range rec.nodes {
		if n.ParentID < 0 {
			continue
		}
		parent, ok := rec.nodes[n.ParentID]
		require.True(t, ok, "node %d has unknown parent %d", id, n.ParentID)
		assert.GreaterOrEqual(t, n.Cost, parent.Cost, "node %d", id)
		assert.GreaterOrEqual(t, n.LowerBound, parent.LowerBound, "node %d", id)
	}
}

func TestECBSLowerBoundMonotone(t *testing.T) {
	inst := crossingInstance(t)
	rec := &treeRecorder{nodes: make(map[int]NodeInfo)}

	cfg := Config{Variant: VariantECBS, LowLevelBound: 1.5, Observer: rec}
	_, err := solve(t, cfg, inst)
	require.NoError(t, err)

	for id, n := range rec.nodes {
		if parent, ok := rec.nodes[n.ParentID]; ok {
			assert.GreaterOrEqual(t, n.LowerBound, parent.LowerBound, "node %d", id)
			assert.LessOrEqual(t, float64(n.Cost), 1.5*float64(n.LowerBound), "node %d", id)
		}
	}
}

func TestNodeBudgetTimeout(t *testing.T) {
	inst := junctionInstance(t)

	cfg := DefaultConfig()
	cfg.MaxNodes = 1
	res, err := solve(t, cfg, inst)
	require.ErrorIs(t, err, ErrResourceLimit)
	assert.Equal(t, StatusTimeout, res.Status)
	assert.Nil(t, res.Solution, "optimal search returns no incumbent")

	bounded := Config{Variant: VariantHBCBS, HighLevelBound: 1.5, MaxNodes: 1}
	res, err = solve(t, bounded, inst)
	require.ErrorIs(t, err, ErrResourceLimit)
	assert.Equal(t, StatusTimeout, res.Status)
	require.NotNil(t, res.Solution, "bounded search returns its incumbent")
	assert.Equal(t, 5, res.Solution.SumOfCosts)
	require.NoError(t, VerifyPaths(inst, res.Solution.Paths))
}

func TestCancelledContext(t *testing.T) {
	solver, err := NewCBS(DefaultConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := solver.Solve(ctx, junctionInstance(t))
	require.ErrorIs(t, err, ErrResourceLimit)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, StatusTimeout, res.Status)
}

func TestInvalidInstanceRejected(t *testing.T) {
	w := mustWorkspace(t, ".@.")
	inst := &core.Instance{Workspace: w, Agents: []*core.Agent{{ID: 0, Start: 1, Goal: 2}}}

	res, err := solve(t, DefaultConfig(), inst)
	require.ErrorIs(t, err, ErrConfigInvalid)
	assert.ErrorIs(t, err, core.ErrInvalidInstance)
	assert.Nil(t, res)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"default", DefaultConfig(), false},
		{"zero bounds mean one", Config{Variant: VariantCBS}, false},
		{"cbs with bound", Config{Variant: VariantCBS, HighLevelBound: 1.5}, true},
		{"hbcbs", Config{Variant: VariantHBCBS, HighLevelBound: 2}, false},
		{"hbcbs with low bound", Config{Variant: VariantHBCBS, HighLevelBound: 2, LowLevelBound: 1.1}, true},
		{"lbcbs", Config{Variant: VariantLBCBS, LowLevelBound: 2}, false},
		{"lbcbs with high bound", Config{Variant: VariantLBCBS, HighLevelBound: 2, LowLevelBound: 2}, true},
		{"bcbs", Config{Variant: VariantBCBS, HighLevelBound: 1.1, LowLevelBound: 1.2}, false},
		{"ecbs", Config{Variant: VariantECBS, LowLevelBound: 1.3}, false},
		{"ecbs with matching high bound", Config{Variant: VariantECBS, HighLevelBound: 1.3, LowLevelBound: 1.3}, false},
		{"ecbs with different high bound", Config{Variant: VariantECBS, HighLevelBound: 2, LowLevelBound: 1.3}, true},
		{"bound below one", Config{Variant: VariantBCBS, HighLevelBound: 0.5}, true},
		{"unknown variant", Config{Variant: Variant(9)}, true},
		{"negative timeout", Config{Variant: VariantCBS, Timeout: -time.Second}, true},
	}

	for _, tt := range tests {
		err := tt.cfg.Validate()
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrConfigInvalid, tt.name)
		} else {
			assert.NoError(t, err, tt.name)
		}
	}
}

func TestParseVariant(t *testing.T) {
	for i, name := range []string{"cbs", "HBCBS", " lbcbs", "bcbs", "ecbs"} {
		v, err := ParseVariant(name)
		require.NoError(t, err)
		assert.Equal(t, Variant(i), v)
	}
	_, err := ParseVariant("acbs")
	assert.ErrorIs(t, err, ErrConfigInvalid)
}
