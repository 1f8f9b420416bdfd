package observer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elektrokombinacija/cbs-mapf/internal/algo"
	"github.com/elektrokombinacija/cbs-mapf/internal/core"
	"github.com/elektrokombinacija/cbs-mapf/internal/vis/state"
)

func junction(t *testing.T) *core.Instance {
	t.Helper()
	ws, err := core.ParseWorkspace("@.@", "...", "@.@")
	require.NoError(t, err)
	inst := core.NewInstance(ws)
	inst.AddAgent(core.Coord{Row: 1, Col: 0}, core.Coord{Row: 1, Col: 2})
	inst.AddAgent(core.Coord{Row: 0, Col: 1}, core.Coord{Row: 2, Col: 1})
	return inst
}

func TestSolveRecordsTree(t *testing.T) {
	as := state.NewAlgoState()
	res, err := Solve(context.Background(), algo.Config{Variant: algo.VariantCBS}, junction(t), as)
	require.NoError(t, err)
	require.NotNil(t, res.Solution)
	assert.Equal(t, 5, res.Solution.SumOfCosts)
	assert.False(t, as.IsActive())

	nodes := as.Nodes()
	require.NotEmpty(t, nodes)
	assert.Equal(t, -1, nodes[0].ParentID)
	assert.NotNil(t, nodes[0].Conflict, "root has a conflict to branch on")

	var solved []state.TreeNode
	for _, n := range nodes {
		if n.Solution {
			solved = append(solved, n)
		}
	}
	require.Len(t, solved, 1)
	assert.Equal(t, 5, solved[0].Cost)
	assert.Equal(t, solved[0].ID, as.CurrentNode())

	expanded, conflicts := as.Counts()
	assert.Equal(t, res.Stats.HighLevelExpanded+1, expanded, "the goal node is popped but not branched")
	assert.Equal(t, res.Stats.HighLevelExpanded, conflicts)
}

func TestSolveInStepMode(t *testing.T) {
	as := state.NewAlgoState()
	as.Pause()

	type outcome struct {
		res *algo.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := Solve(context.Background(), algo.Config{Variant: algo.VariantCBS}, junction(t), as)
		done <- outcome{res, err}
	}()

	deadline := time.After(10 * time.Second)
	for {
		select {
		case out := <-done:
			require.NoError(t, out.err)
			assert.Equal(t, 5, out.res.Solution.SumOfCosts)
			return
		case <-deadline:
			t.Fatal("solve did not finish while stepping")
		default:
			as.Step()
			time.Sleep(time.Millisecond)
		}
	}
}

func TestSolveRejectsBadConfig(t *testing.T) {
	as := state.NewAlgoState()
	_, err := Solve(context.Background(), algo.Config{Variant: algo.VariantCBS, HighLevelBound: 2}, junction(t), as)
	assert.ErrorIs(t, err, algo.ErrConfigInvalid)
	assert.False(t, as.IsActive())
}
