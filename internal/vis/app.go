// Package vis implements a Gio-based visualizer for CBS solves on grid maps.
package vis

import (
	"context"
	"errors"
	"image/color"
	"log/slog"

	"gioui.org/app"
	"gioui.org/io/event"
	"gioui.org/io/key"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/paint"
	"gioui.org/widget/material"

	"github.com/elektrokombinacija/cbs-mapf/internal/algo"
	"github.com/elektrokombinacija/cbs-mapf/internal/core"
	"github.com/elektrokombinacija/cbs-mapf/internal/vis/interact"
	"github.com/elektrokombinacija/cbs-mapf/internal/vis/observer"
	"github.com/elektrokombinacija/cbs-mapf/internal/vis/state"
	"github.com/elektrokombinacija/cbs-mapf/internal/vis/widgets"
)

type solveResult struct {
	res *algo.Result
	err error
}

// App is the main visualization application.
type App struct {
	state     *state.State
	theme     *material.Theme
	workspace *widgets.Workspace
	timeline  *widgets.Timeline
	toolbar   *widgets.Toolbar
	tree      *widgets.CBSTree
	camera    *interact.Camera

	cfg algo.Config
	log *slog.Logger

	window  *app.Window
	solving bool
	cancel  context.CancelFunc
	results chan solveResult
}

// NewApp creates the application for inst. cfg configures every solve
// started from the UI; its Observer is replaced.
func NewApp(inst *core.Instance, cfg algo.Config, logger *slog.Logger) *App {
	st := state.NewState(inst, nil)
	camera := interact.NewCamera()
	a := &App{
		state:     st,
		theme:     material.NewTheme(),
		workspace: widgets.NewWorkspace(st, camera, logger),
		timeline:  widgets.NewTimeline(st),
		toolbar:   widgets.NewToolbar(st),
		tree:      widgets.NewCBSTree(st),
		camera:    camera,
		cfg:       cfg,
		log:       logger,
		results:   make(chan solveResult, 1),
	}
	a.toolbar.OnSolve = a.startSolve
	a.toolbar.OnStop = a.stopSolve
	return a
}

// Run starts the application event loop. The first solve starts at once.
func (a *App) Run(w *app.Window) error {
	var ops op.Ops
	a.window = w
	tag := new(int)

	a.startSolve()
	defer a.stopSolve()

	for {
		switch e := w.Event().(type) {
		case app.DestroyEvent:
			return e.Err

		case app.FrameEvent:
			gtx := app.NewContext(&ops, e)
			a.collectResult()

			for {
				ev, ok := gtx.Event(key.Filter{Focus: tag, Optional: key.ModCtrl | key.ModShift})
				if !ok {
					break
				}
				if ke, ok := ev.(key.Event); ok && ke.State == key.Press {
					a.handleKeyEvent(ke)
				}
			}
			event.Op(gtx.Ops, tag)

			a.layout(gtx)
			e.Frame(gtx.Ops)

			if a.state.Playback.Playing {
				a.state.Playback.Advance()
				w.Invalidate()
			}
			if a.solving {
				w.Invalidate()
			}
		}
	}
}

// startSolve runs the solver on a copy of the instance so map edits never
// race with the search.
func (a *App) startSolve() {
	if a.solving {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.solving, a.cancel = true, cancel
	a.state.SetSolution(nil)

	inst := a.state.Instance.Clone()
	cfg := a.cfg
	go func() {
		res, err := observer.Solve(ctx, cfg, inst, a.state.Algo)
		a.results <- solveResult{res, err}
		if a.window != nil {
			a.window.Invalidate()
		}
	}()
}

func (a *App) stopSolve() {
	if !a.solving {
		return
	}
	a.cancel()
	// A solver waiting for a step must wake up to see the cancellation.
	a.state.Algo.Resume()
}

func (a *App) collectResult() {
	select {
	case r := <-a.results:
		a.solving = false
		a.cancel()
		switch {
		case r.err == nil:
			a.log.Info("solved",
				"soc", r.res.Solution.SumOfCosts,
				"makespan", r.res.Solution.Makespan,
				"expanded", r.res.Stats.HighLevelExpanded)
			a.state.SetSolution(r.res.Solution)
			a.state.Playback.Play()
		case errors.Is(r.err, context.Canceled):
			a.log.Info("solve stopped")
		default:
			a.log.Warn("solve failed", "err", r.err)
			if r.res != nil && r.res.Solution != nil {
				a.state.SetSolution(r.res.Solution)
			}
		}
	default:
	}
}

func (a *App) handleKeyEvent(e key.Event) {
	switch e.Name {
	case key.NameSpace:
		a.state.Playback.TogglePlay()
	case key.NameLeftArrow:
		a.state.Playback.StepBack()
	case key.NameRightArrow:
		a.state.Playback.StepForward()
	case key.NameHome:
		a.state.Playback.Reset()
	case "R":
		a.camera.Reset()
	case "S":
		if a.solving {
			a.stopSolve()
		} else {
			a.startSolve()
		}
	case "N":
		a.state.Algo.Step()
	case "Z":
		if e.Modifiers.Contain(key.ModCtrl) && a.state.Edit.Undo(a.state.Instance) != nil {
			a.state.SetSolution(nil)
		}
	case "Y":
		if e.Modifiers.Contain(key.ModCtrl) && a.state.Edit.Redo(a.state.Instance) != nil {
			a.state.SetSolution(nil)
		}
	}
}

func (a *App) layout(gtx layout.Context) layout.Dimensions {
	paint.Fill(gtx.Ops, color.NRGBA{R: 30, G: 30, B: 35, A: 255})

	return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return a.toolbar.Layout(gtx, a.theme)
		}),
		layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
			return layout.Flex{Axis: layout.Horizontal}.Layout(gtx,
				layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
					return a.workspace.Layout(gtx, a.theme)
				}),
				layout.Rigid(func(gtx layout.Context) layout.Dimensions {
					return a.tree.Layout(gtx, a.theme)
				}),
			)
		}),
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return a.timeline.Layout(gtx, a.theme)
		}),
	)
}
