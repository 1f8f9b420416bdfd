package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elektrokombinacija/cbs-mapf/internal/algo"
	"github.com/elektrokombinacija/cbs-mapf/internal/core"
)

func corridor(t *testing.T) *core.Instance {
	t.Helper()
	ws, err := core.ParseWorkspace("....", ".@..")
	require.NoError(t, err)
	inst := core.NewInstance(ws)
	inst.AddAgent(core.Coord{Row: 0, Col: 0}, core.Coord{Row: 0, Col: 3})
	inst.AddAgent(core.Coord{Row: 1, Col: 3}, core.Coord{Row: 1, Col: 2})
	return inst
}

func TestCellGeometry(t *testing.T) {
	ws := core.NewWorkspace(4, 2)
	assert.Equal(t, Point{X: 48, Y: 16}, CellCenter(core.Coord{Row: 0, Col: 1}))

	c, ok := CellAt(ws, Point{X: 100, Y: 40})
	assert.True(t, ok)
	assert.Equal(t, core.Coord{Row: 1, Col: 3}, c)

	_, ok = CellAt(ws, Point{X: -1, Y: 5})
	assert.False(t, ok)
}

func TestPositionsWithoutSolution(t *testing.T) {
	s := NewState(corridor(t), nil)
	pos := s.CurrentPositions()
	require.Len(t, pos, 2)
	assert.Equal(t, CellCenter(core.Coord{Row: 0, Col: 0}), pos[0])
	assert.Equal(t, CellCenter(core.Coord{Row: 1, Col: 3}), pos[1])
	assert.Nil(t, s.PathHistory(0))
}

func TestPositionsInterpolate(t *testing.T) {
	inst := corridor(t)
	sol := core.NewSolution([]core.Path{{0, 1, 2, 3}, {7, 6}})
	s := NewState(inst, sol)
	assert.Equal(t, 3.0, s.Playback.MaxTime)

	s.Playback.SetTime(1.5)
	pos := s.CurrentPositions()
	assert.Equal(t, Point{X: 64, Y: 16}, pos[0])
	// Agent 1 finished at t=1 and waits at its goal.
	assert.Equal(t, CellCenter(core.Coord{Row: 1, Col: 2}), pos[1])

	hist := s.PathHistory(0)
	require.Len(t, hist, 3)
	assert.Equal(t, pos[0], hist[2])
}

func TestPlayback(t *testing.T) {
	p := NewPlaybackState(4)
	clock := time.Unix(0, 0)
	p.now = func() time.Time { return clock }

	p.TogglePlay()
	clock = clock.Add(500 * time.Millisecond)
	p.Advance()
	assert.InDelta(t, 1.0, p.CurrentTime, 1e-9)

	clock = clock.Add(10 * time.Second)
	p.Advance()
	assert.Equal(t, 4.0, p.CurrentTime)
	assert.False(t, p.Playing)

	// Playing from the end rewinds.
	p.TogglePlay()
	assert.Equal(t, 0.0, p.CurrentTime)
	assert.True(t, p.Playing)

	p.SetTime(1.4)
	p.StepForward()
	assert.Equal(t, 2.0, p.CurrentTime)
	assert.False(t, p.Playing)
	p.SetTime(1.4)
	p.StepBack()
	assert.Equal(t, 1.0, p.CurrentTime)
	p.StepBack()
	p.StepBack()
	assert.Equal(t, 0.0, p.CurrentTime)
	assert.Equal(t, 0.0, p.Progress())

	p.SetSpeed(100)
	assert.Equal(t, 32.0, p.Speed)
}

func TestAlgoStateTree(t *testing.T) {
	a := NewAlgoState()
	a.Start()
	paths := []core.Path{{0, 1}, {1, 0}}
	a.AddNode(algo.NodeInfo{ID: 0, ParentID: -1, Paths: paths})
	paths[0][0] = 9 // the state holds its own copy

	a.ExpandNode(0)
	a.RecordConflict(0, algo.Conflict{Agent1: 0, Agent2: 1, Kind: algo.EdgeConflict, Loc: 1, From: 0, Time: 1})
	a.AddNode(algo.NodeInfo{ID: 1, ParentID: 0, Cost: 3})
	vc := algo.Constraint{Agent: 1, Kind: algo.VertexConstraint, Loc: 0, Time: 1}
	a.AddNode(algo.NodeInfo{ID: 3, ParentID: 0, Cost: 3, Constraints: []algo.Constraint{vc}})
	a.ExpandNode(3)
	assert.Equal(t, []algo.Constraint{vc}, a.CurrentConstraints())
	a.MarkSolution(3)
	a.Finish(nil)

	nodes := a.Nodes()
	require.Len(t, nodes, 3)
	assert.Equal(t, core.Location(0), nodes[0].Paths[0][0])
	assert.NotNil(t, nodes[0].Conflict)
	assert.True(t, nodes[1].Open)
	assert.True(t, nodes[2].Solution)
	assert.Equal(t, 3, a.CurrentNode())
	assert.Equal(t, 1, a.OpenCount())
	assert.Nil(t, a.Conflict())
	expanded, conflicts := a.Counts()
	assert.Equal(t, 2, expanded)
	assert.Equal(t, 1, conflicts)
	assert.False(t, a.IsActive())
	assert.NoError(t, a.LastError())

	a.Start()
	assert.Empty(t, a.Nodes())
	assert.Equal(t, -1, a.CurrentNode())
}

func TestAlgoStateStepping(t *testing.T) {
	a := NewAlgoState()
	a.WaitForStep() // not paused: returns at once

	a.Pause()
	assert.True(t, a.ShouldPause())
	done := make(chan struct{})
	go func() {
		a.WaitForStep()
		close(done)
	}()
	a.Step()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Step did not release the waiter")
	}
	assert.True(t, a.ShouldPause())

	a.Resume()
	assert.False(t, a.ShouldPause())
}

func TestToggleObstacleUndoRedo(t *testing.T) {
	inst := corridor(t)
	e := NewEditState()

	_, err := NewToggleObstacle(inst, core.Coord{Row: 0, Col: 0})
	assert.Error(t, err, "agent start")
	_, err = NewToggleObstacle(inst, core.Coord{Row: 5, Col: 0})
	assert.Error(t, err, "off map")

	c := core.Coord{Row: 0, Col: 2}
	act, err := NewToggleObstacle(inst, c)
	require.NoError(t, err)
	e.Execute(act, inst)
	assert.False(t, inst.Workspace.Passable(inst.Workspace.Loc(c)))
	assert.Equal(t, "Block (0,2)", act.Description())

	require.NotNil(t, e.Undo(inst))
	assert.True(t, inst.Workspace.Passable(inst.Workspace.Loc(c)))
	assert.True(t, e.CanRedo())

	require.NotNil(t, e.Redo(inst))
	assert.False(t, inst.Workspace.Passable(inst.Workspace.Loc(c)))
	assert.Nil(t, e.Redo(inst))

	// Clearing an existing obstacle.
	wall := core.Coord{Row: 1, Col: 1}
	act, err = NewToggleObstacle(inst, wall)
	require.NoError(t, err)
	e.Execute(act, inst)
	assert.True(t, inst.Workspace.Passable(inst.Workspace.Loc(wall)))
	assert.False(t, e.CanRedo())
}

func TestSelectAgent(t *testing.T) {
	e := NewEditState()
	e.SelectAgent(1)
	assert.Equal(t, core.AgentID(1), e.SelectedAgent)
	e.SelectAgent(1)
	assert.Equal(t, core.AgentID(-1), e.SelectedAgent)
	e.SelectAgent(0)
	e.ClearSelection()
	assert.Equal(t, core.AgentID(-1), e.SelectedAgent)
}
