package scenario

import (
	"fmt"
	"math/rand"

	"github.com/elektrokombinacija/cbs-mapf/internal/algo"
	"github.com/elektrokombinacija/cbs-mapf/internal/core"
)

// GenParams controls random map and scenario generation.
type GenParams struct {
	Seed    int64
	Width   int
	Height  int
	Density float64 // fraction of cells turned into obstacles
	Routes  int     // number of scenario lines
	MapName string
}

// GenerateMap blocks cells at random until Density is reached. The result is
// not guaranteed to be connected; GenerateScenario only emits reachable routes.
func GenerateMap(p GenParams) (*core.Workspace, error) {
	if p.Width <= 0 || p.Height <= 0 {
		return nil, fmt.Errorf("scenario: bad map size %dx%d", p.Width, p.Height)
	}
	if p.Density < 0 || p.Density >= 1 {
		return nil, fmt.Errorf("scenario: obstacle density %v out of [0,1)", p.Density)
	}
	rng := rand.New(rand.NewSource(p.Seed))
	ws := core.NewWorkspace(p.Width, p.Height)
	cells := rng.Perm(p.Width * p.Height)
	for _, c := range cells[:int(p.Density*float64(len(cells)))] {
		ws.Block(ws.Coord(core.Location(c)))
	}
	return ws, nil
}

// GenerateScenario draws Routes start/goal pairs on ws with distinct starts
// and distinct goals, each goal reachable from its start. Buckets follow the
// MovingAI convention of optimal length divided by four.
func GenerateScenario(ws *core.Workspace, p GenParams) (*Scenario, error) {
	free := ws.FreeCells()
	if p.Routes > len(free) {
		return nil, fmt.Errorf("%w: %d routes on %d free cells", ErrNotEnoughRoutes, p.Routes, len(free))
	}
	rng := rand.New(rand.NewSource(p.Seed + 1))
	s := &Scenario{Map: p.MapName, Width: ws.Width, Height: ws.Height}

	starts := rng.Perm(len(free))
	usedGoal := make(map[core.Location]bool)
	for _, si := range starts {
		if len(s.Routes) == p.Routes {
			break
		}
		start := free[si]
		dist := algo.DistanceTable(ws, start)
		var goals []core.Location
		for _, g := range free {
			if g != start && !usedGoal[g] && dist[g] != algo.Unreachable {
				goals = append(goals, g)
			}
		}
		if len(goals) == 0 {
			continue
		}
		goal := goals[rng.Intn(len(goals))]
		usedGoal[goal] = true
		s.Routes = append(s.Routes, Route{
			Bucket:  dist[goal] / 4,
			Start:   ws.Coord(start),
			Goal:    ws.Coord(goal),
			Optimal: float64(dist[goal]),
		})
	}
	if len(s.Routes) < p.Routes {
		return nil, fmt.Errorf("%w: only %d reachable routes", ErrNotEnoughRoutes, len(s.Routes))
	}
	return s, nil
}
