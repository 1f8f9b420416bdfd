// Package widgets provides Gio UI widgets for the visualizer.
package widgets

import (
	"image"
	"image/color"
	"log/slog"

	"gioui.org/io/event"
	"gioui.org/io/pointer"
	"gioui.org/layout"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/widget/material"

	"github.com/elektrokombinacija/cbs-mapf/internal/vis/draw"
	"github.com/elektrokombinacija/cbs-mapf/internal/vis/interact"
	"github.com/elektrokombinacija/cbs-mapf/internal/vis/state"
)

// Workspace is the main 2D map view.
type Workspace struct {
	state  *state.State
	camera *interact.Camera
	log    *slog.Logger
}

// NewWorkspace creates a new workspace widget.
func NewWorkspace(st *state.State, camera *interact.Camera, log *slog.Logger) *Workspace {
	return &Workspace{state: st, camera: camera, log: log}
}

// Layout renders the map, then either the node under expansion or the
// solution being played back.
func (w *Workspace) Layout(gtx layout.Context, th *material.Theme) layout.Dimensions {
	bounds := gtx.Constraints.Max
	defer clip.Rect(image.Rect(0, 0, bounds.X, bounds.Y)).Push(gtx.Ops).Pop()
	paint.Fill(gtx.Ops, color.NRGBA{R: 25, G: 28, B: 32, A: 255})

	inst := w.state.Instance
	if inst == nil {
		return layout.Dimensions{Size: bounds}
	}
	ws := inst.Workspace
	w.camera.FitOnce(0, 0, float64(ws.Width)*state.CellSize, float64(ws.Height)*state.CellSize,
		float32(bounds.X), float32(bounds.Y), 20)
	w.handlePointerEvents(gtx)

	draw.DrawWorkspace(gtx, ws, w.camera)

	if as := w.state.Algo; as.IsActive() {
		draw.DrawAllPaths(gtx, as.CurrentPaths(), ws, w.camera)
		for _, c := range as.CurrentConstraints() {
			draw.DrawConstraint(gtx, c, ws, w.camera)
		}
		draw.DrawConflict(gtx, as.Conflict(), ws, w.camera)
		draw.DrawAgents(gtx, inst, w.state.CurrentPositions(), w.camera, w.state.Edit.SelectedAgent)
		return layout.Dimensions{Size: bounds}
	}

	if sol := w.state.Solution; sol != nil {
		for _, a := range inst.Agents {
			col := draw.AgentColor(a.ID)
			if history := w.state.PathHistory(a.ID); len(history) > 1 {
				draw.DrawPathTrail(gtx, history, w.camera, col, 3)
			}
			draw.DrawFuturePath(gtx, sol.Path(a.ID), w.state.Playback.CurrentTime, ws, w.camera, col)
		}
		if sel := w.state.Edit.SelectedAgent; sel >= 0 {
			draw.DrawTimedPath(gtx, sol.Path(sel), ws, w.camera, draw.ColorAgentSelected)
		}
	}
	draw.DrawAgents(gtx, inst, w.state.CurrentPositions(), w.camera, w.state.Edit.SelectedAgent)
	return layout.Dimensions{Size: bounds}
}

func (w *Workspace) handlePointerEvents(gtx layout.Context) {
	area := clip.Rect(image.Rect(0, 0, gtx.Constraints.Max.X, gtx.Constraints.Max.Y)).Push(gtx.Ops)
	event.Op(gtx.Ops, w)
	area.Pop()

	for {
		ev, ok := gtx.Event(pointer.Filter{
			Target:  w,
			Kinds:   pointer.Press | pointer.Drag | pointer.Release | pointer.Scroll,
			ScrollY: pointer.ScrollRange{Min: -100, Max: 100},
		})
		if !ok {
			break
		}
		pe, ok := ev.(pointer.Event)
		if !ok {
			continue
		}
		w.camera.HandleEvent(pe)
		if pe.Kind == pointer.Press && pe.Buttons.Contain(pointer.ButtonPrimary) {
			w.handleClick(pe.Position.X, pe.Position.Y)
		}
	}
}

// handleClick selects an agent in view mode and toggles an obstacle in
// obstacle mode. The map is not edited while a solve is running.
func (w *Workspace) handleClick(screenX, screenY float32) {
	x, y := w.camera.ScreenToWorld(screenX, screenY)
	p := state.Point{X: x, Y: y}
	edit := w.state.Edit

	if edit.Mode == state.ModeObstacle {
		if w.state.Algo.IsActive() {
			return
		}
		cell, ok := state.CellAt(w.state.Instance.Workspace, p)
		if !ok {
			return
		}
		action, err := state.NewToggleObstacle(w.state.Instance, cell)
		if err != nil {
			w.log.Warn("cannot edit cell", "err", err)
			return
		}
		edit.Execute(action, w.state.Instance)
		w.state.SetSolution(nil)
		return
	}

	if id := draw.AgentAt(p, w.state.CurrentPositions()); id >= 0 {
		edit.SelectAgent(id)
		return
	}
	edit.ClearSelection()
}
