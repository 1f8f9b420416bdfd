package draw

import (
	"image/color"

	"gioui.org/layout"

	"github.com/elektrokombinacija/cbs-mapf/internal/core"
	"github.com/elektrokombinacija/cbs-mapf/internal/vis/interact"
	"github.com/elektrokombinacija/cbs-mapf/internal/vis/state"
)

// ColorAgentSelected highlights the selected agent.
var ColorAgentSelected = color.NRGBA{R: 255, G: 255, B: 100, A: 255}

var agentPalette = []color.NRGBA{
	{R: 100, G: 200, B: 255, A: 255},
	{R: 255, G: 150, B: 100, A: 255},
	{R: 200, G: 100, B: 255, A: 255},
	{R: 120, G: 220, B: 120, A: 255},
	{R: 255, G: 110, B: 170, A: 255},
	{R: 240, G: 210, B: 90, A: 255},
	{R: 90, G: 210, B: 200, A: 255},
	{R: 180, G: 180, B: 180, A: 255},
}

// AgentColor returns a stable color for an agent.
func AgentColor(id core.AgentID) color.NRGBA {
	return agentPalette[int(id)%len(agentPalette)]
}

// DrawAgent draws an agent body at pos.
func DrawAgent(gtx layout.Context, pos state.Point, id core.AgentID, camera *interact.Camera, selected bool) {
	x, y := camera.WorldToScreen(pos.X, pos.Y)
	half := float32(state.CellSize) * 0.35 * camera.Zoom

	col := AgentColor(id)
	drawRect(gtx, x-half, y-half, x+half, y+half, col)
	if selected {
		DrawCircleOutline(gtx, x, y, half*1.6, ColorAgentSelected, 2*camera.Zoom)
	}
}

// DrawGoal marks the goal cell of an agent with a ring in its color.
func DrawGoal(gtx layout.Context, goal core.Coord, id core.AgentID, camera *interact.Camera) {
	p := state.CellCenter(goal)
	x, y := camera.WorldToScreen(p.X, p.Y)
	col := AgentColor(id)
	col.A = 160
	DrawCircleOutline(gtx, x, y, float32(state.CellSize)*0.3*camera.Zoom, col, 2*camera.Zoom)
}

// DrawAgents draws every agent at positions[id], with goals underneath.
func DrawAgents(gtx layout.Context, inst *core.Instance, positions []state.Point, camera *interact.Camera, selected core.AgentID) {
	for _, a := range inst.Agents {
		DrawGoal(gtx, inst.Workspace.Coord(a.Goal), a.ID, camera)
	}
	for _, a := range inst.Agents {
		if int(a.ID) < len(positions) {
			DrawAgent(gtx, positions[a.ID], a.ID, camera, a.ID == selected)
		}
	}
}

// AgentAt returns the agent whose body covers world point p, or -1.
func AgentAt(p state.Point, positions []state.Point) core.AgentID {
	half := state.CellSize * 0.35
	for id, pos := range positions {
		if p.X >= pos.X-half && p.X <= pos.X+half && p.Y >= pos.Y-half && p.Y <= pos.Y+half {
			return core.AgentID(id)
		}
	}
	return -1
}
