// Package state manages the visualization state.
package state

import (
	"math"

	"github.com/elektrokombinacija/cbs-mapf/internal/core"
)

// CellSize is the side of one grid cell in world units.
const CellSize = 32.0

// Point is a position in world units.
type Point struct {
	X, Y float64
}

// CellCenter returns the world position of the centre of c.
func CellCenter(c core.Coord) Point {
	return Point{
		X: (float64(c.Col) + 0.5) * CellSize,
		Y: (float64(c.Row) + 0.5) * CellSize,
	}
}

// CellAt returns the cell under p. ok is false off the grid.
func CellAt(ws *core.Workspace, p Point) (c core.Coord, ok bool) {
	c = core.Coord{
		Row: int(math.Floor(p.Y / CellSize)),
		Col: int(math.Floor(p.X / CellSize)),
	}
	return c, ws.InBounds(c)
}

// State holds all visualization state.
type State struct {
	Instance *core.Instance
	Solution *core.Solution
	Playback *PlaybackState
	Edit     *EditState
	Algo     *AlgoState
}

// NewState creates a new visualization state. sol may be nil.
func NewState(inst *core.Instance, sol *core.Solution) *State {
	s := &State{
		Instance: inst,
		Playback: NewPlaybackState(0),
		Edit:     NewEditState(),
		Algo:     NewAlgoState(),
	}
	s.SetSolution(sol)
	return s
}

// SetSolution replaces the displayed solution and rewinds playback.
func (s *State) SetSolution(sol *core.Solution) {
	s.Solution = sol
	s.Playback.MaxTime = 0
	if sol != nil {
		s.Playback.MaxTime = float64(sol.Makespan)
	}
	s.Playback.Reset()
}

// point converts a location of the current workspace to world units.
func (s *State) point(l core.Location) Point {
	return CellCenter(s.Instance.Workspace.Coord(l))
}

// CurrentPositions returns agent positions at the playback time, indexed by
// agent ID. Without a solution every agent sits on its start.
func (s *State) CurrentPositions() []Point {
	if s.Instance == nil {
		return nil
	}
	positions := make([]Point, len(s.Instance.Agents))
	for i, a := range s.Instance.Agents {
		if s.Solution == nil || len(s.Solution.Path(a.ID)) == 0 {
			positions[i] = s.point(a.Start)
			continue
		}
		positions[i] = s.interpolate(s.Solution.Path(a.ID), s.Playback.CurrentTime)
	}
	return positions
}

// interpolate moves linearly between the cells of consecutive timesteps.
func (s *State) interpolate(path core.Path, t float64) Point {
	if t <= 0 {
		return s.point(path.At(0))
	}
	step := int(math.Floor(t))
	alpha := t - float64(step)
	a, b := s.point(path.At(step)), s.point(path.At(step+1))
	return Point{
		X: a.X + alpha*(b.X-a.X),
		Y: a.Y + alpha*(b.Y-a.Y),
	}
}

// PathHistory returns the cells agent id has visited up to the playback
// time, ending at its current position.
func (s *State) PathHistory(id core.AgentID) []Point {
	if s.Solution == nil {
		return nil
	}
	path := s.Solution.Path(id)
	if len(path) == 0 {
		return nil
	}
	var history []Point
	for t, l := range path {
		if float64(t) > s.Playback.CurrentTime {
			break
		}
		history = append(history, s.point(l))
	}
	return append(history, s.interpolate(path, s.Playback.CurrentTime))
}
