package widgets

import (
	"fmt"
	"image"
	"image/color"

	"gioui.org/layout"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/unit"
	"gioui.org/widget"
	"gioui.org/widget/material"

	"github.com/elektrokombinacija/cbs-mapf/internal/vis/state"
)

const toolbarHeight = 48

// Toolbar holds playback, editing and solver controls. Starting and stopping
// a solve is left to the owner through OnSolve and OnStop.
type Toolbar struct {
	state *state.State

	OnSolve func()
	OnStop  func()

	// Playback
	playBtn      widget.Clickable
	resetBtn     widget.Clickable
	stepFwdBtn   widget.Clickable
	stepBackBtn  widget.Clickable
	speedUpBtn   widget.Clickable
	speedDownBtn widget.Clickable

	// Editing
	viewModeBtn     widget.Clickable
	obstacleModeBtn widget.Clickable
	undoBtn         widget.Clickable
	redoBtn         widget.Clickable

	// Solver
	solveBtn  widget.Clickable
	stepBtn   widget.Clickable
	resumeBtn widget.Clickable
}

// NewToolbar creates a new toolbar.
func NewToolbar(st *state.State) *Toolbar {
	return &Toolbar{state: st}
}

// button is one toolbar entry; active buttons are highlighted.
type button struct {
	btn    *widget.Clickable
	label  string
	active bool
	hidden bool
}

// Layout renders the toolbar.
func (t *Toolbar) Layout(gtx layout.Context, th *material.Theme) layout.Dimensions {
	paint.FillShape(gtx.Ops, color.NRGBA{R: 40, G: 43, B: 48, A: 255},
		clip.Rect(image.Rect(0, 0, gtx.Constraints.Max.X, toolbarHeight)).Op())

	t.handleClicks(gtx)

	pb := t.state.Playback
	edit := t.state.Edit
	active := t.state.Algo.IsActive()
	paused := t.state.Algo.ShouldPause()

	play := ">"
	if pb.Playing {
		play = "||"
	}
	solve := "Solve"
	if active {
		solve = "Stop"
	}

	groups := [][]button{
		{
			{btn: &t.stepBackBtn, label: "|<"},
			{btn: &t.playBtn, label: play},
			{btn: &t.stepFwdBtn, label: ">|"},
			{btn: &t.resetBtn, label: "[]"},
		},
		{
			{btn: &t.speedDownBtn, label: "-"},
			{btn: &t.speedUpBtn, label: "+"},
		},
		{
			{btn: &t.viewModeBtn, label: "V", active: edit.Mode == state.ModeView},
			{btn: &t.obstacleModeBtn, label: "O", active: edit.Mode == state.ModeObstacle},
			{btn: &t.undoBtn, label: "<-", hidden: !edit.CanUndo()},
			{btn: &t.redoBtn, label: "->", hidden: !edit.CanRedo()},
		},
	}
	solver := []button{
		{btn: &t.solveBtn, label: solve},
		{btn: &t.stepBtn, label: ">>", active: paused},
		{btn: &t.resumeBtn, label: "Run", hidden: !paused},
	}

	var children []layout.FlexChild
	for i, g := range groups {
		if i > 0 {
			children = append(children, layout.Rigid(separator))
		}
		children = append(children, layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return t.row(gtx, th, g)
		}))
	}
	children = append(children,
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return t.status(gtx, th)
		}),
		layout.Flexed(1, func(gtx layout.Context) layout.Dimensions { return layout.Dimensions{} }),
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return t.row(gtx, th, solver)
		}),
	)

	return layout.Inset{Left: unit.Dp(10), Right: unit.Dp(10), Top: unit.Dp(8), Bottom: unit.Dp(8)}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		return layout.Flex{Axis: layout.Horizontal, Alignment: layout.Middle}.Layout(gtx, children...)
	})
}

func (t *Toolbar) row(gtx layout.Context, th *material.Theme, buttons []button) layout.Dimensions {
	var children []layout.FlexChild
	for _, b := range buttons {
		if b.hidden {
			continue
		}
		if len(children) > 0 {
			children = append(children, layout.Rigid(layout.Spacer{Width: unit.Dp(4)}.Layout))
		}
		children = append(children, layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return drawButton(gtx, th, b.btn, b.label, b.active)
		}))
	}
	return layout.Flex{Axis: layout.Horizontal}.Layout(gtx, children...)
}

// status names the selected agent or the edit mode.
func (t *Toolbar) status(gtx layout.Context, th *material.Theme) layout.Dimensions {
	s := ""
	switch {
	case t.state.Edit.SelectedAgent >= 0:
		if a := t.state.Instance.AgentByID(t.state.Edit.SelectedAgent); a != nil {
			ws := t.state.Instance.Workspace
			s = fmt.Sprintf("agent %d %v -> %v", a.ID, ws.Coord(a.Start), ws.Coord(a.Goal))
			if sol := t.state.Solution; sol != nil {
				s += fmt.Sprintf(" cost %d", sol.Path(a.ID).Cost())
			}
		}
	case t.state.Edit.Mode == state.ModeObstacle:
		s = "click a cell to toggle it"
	}
	return layout.Inset{Left: unit.Dp(12)}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		l := material.Label(th, 12, s)
		l.Color = color.NRGBA{R: 170, G: 170, B: 170, A: 255}
		return l.Layout(gtx)
	})
}

func separator(gtx layout.Context) layout.Dimensions {
	return layout.Inset{Left: unit.Dp(8), Right: unit.Dp(8)}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		paint.FillShape(gtx.Ops, color.NRGBA{R: 60, G: 65, B: 70, A: 255}, clip.Rect(image.Rect(0, 0, 1, 24)).Op())
		return layout.Dimensions{Size: image.Point{X: 1, Y: 24}}
	})
}

func drawButton(gtx layout.Context, th *material.Theme, btn *widget.Clickable, text string, active bool) layout.Dimensions {
	bg := color.NRGBA{R: 55, G: 58, B: 65, A: 255}
	if active {
		bg = color.NRGBA{R: 80, G: 130, B: 180, A: 255}
	}
	if btn.Hovered() {
		bg = lighten(bg, 15)
	}

	return btn.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		return layout.Background{}.Layout(gtx,
			func(gtx layout.Context) layout.Dimensions {
				gtx.Constraints.Min = image.Point{X: 32, Y: 28}
				paint.FillShape(gtx.Ops, bg, clip.Rect(image.Rectangle{Max: gtx.Constraints.Min}).Op())
				return layout.Dimensions{Size: gtx.Constraints.Min}
			},
			func(gtx layout.Context) layout.Dimensions {
				return layout.Center.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
					label := material.Label(th, 12, text)
					label.Color = color.NRGBA{R: 220, G: 220, B: 220, A: 255}
					return label.Layout(gtx)
				})
			},
		)
	})
}

func (t *Toolbar) handleClicks(gtx layout.Context) {
	pb := t.state.Playback
	for t.playBtn.Clicked(gtx) {
		pb.TogglePlay()
	}
	for t.resetBtn.Clicked(gtx) {
		pb.Reset()
	}
	for t.stepFwdBtn.Clicked(gtx) {
		pb.StepForward()
	}
	for t.stepBackBtn.Clicked(gtx) {
		pb.StepBack()
	}
	for t.speedUpBtn.Clicked(gtx) {
		pb.SetSpeed(pb.Speed * 2)
	}
	for t.speedDownBtn.Clicked(gtx) {
		pb.SetSpeed(pb.Speed / 2)
	}

	for t.viewModeBtn.Clicked(gtx) {
		t.state.Edit.Mode = state.ModeView
	}
	for t.obstacleModeBtn.Clicked(gtx) {
		t.state.Edit.Mode = state.ModeObstacle
		t.state.Edit.ClearSelection()
	}
	// Edits change the map, so the shown solution no longer applies.
	for t.undoBtn.Clicked(gtx) {
		if t.state.Edit.Undo(t.state.Instance) != nil {
			t.state.SetSolution(nil)
		}
	}
	for t.redoBtn.Clicked(gtx) {
		if t.state.Edit.Redo(t.state.Instance) != nil {
			t.state.SetSolution(nil)
		}
	}

	for t.solveBtn.Clicked(gtx) {
		if t.state.Algo.IsActive() {
			if t.OnStop != nil {
				t.OnStop()
			}
		} else if t.OnSolve != nil {
			t.OnSolve()
		}
	}
	for t.stepBtn.Clicked(gtx) {
		// Before a solve this arms step mode for the next one.
		t.state.Algo.Step()
	}
	for t.resumeBtn.Clicked(gtx) {
		t.state.Algo.Resume()
	}
}

func lighten(c color.NRGBA, d uint8) color.NRGBA {
	add := func(v uint8) uint8 { return uint8(min(int(v)+int(d), 255)) }
	return color.NRGBA{R: add(c.R), G: add(c.G), B: add(c.B), A: c.A}
}
