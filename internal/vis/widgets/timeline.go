package widgets

import (
	"fmt"
	"image"
	"image/color"

	"gioui.org/io/event"
	"gioui.org/io/pointer"
	"gioui.org/layout"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/text"
	"gioui.org/unit"
	"gioui.org/widget/material"

	"github.com/elektrokombinacija/cbs-mapf/internal/vis/draw"
	"github.com/elektrokombinacija/cbs-mapf/internal/vis/state"
)

const (
	timelineHeight = 60
	timelineMargin = 20
	// maxTicks is the makespan above which per-step ticks are left out.
	maxTicks = 120
)

var (
	colorTrack = color.NRGBA{R: 60, G: 65, B: 70, A: 255}
	colorFill  = color.NRGBA{R: 100, G: 180, B: 255, A: 255}
	colorTick  = color.NRGBA{R: 90, G: 95, B: 100, A: 255}
)

// Timeline scrubs through the timesteps of the current solution. Ticks mark
// every step and a colored notch marks when each agent settles on its goal.
type Timeline struct {
	state    *state.State
	dragging bool
}

// NewTimeline creates a new timeline widget.
func NewTimeline(st *state.State) *Timeline {
	return &Timeline{state: st}
}

// Layout renders the timeline.
func (t *Timeline) Layout(gtx layout.Context, th *material.Theme) layout.Dimensions {
	width := gtx.Constraints.Max.X
	paint.FillShape(gtx.Ops, color.NRGBA{R: 35, G: 38, B: 42, A: 255}, clip.Rect(image.Rect(0, 0, width, timelineHeight)).Op())

	trackWidth := width - 2*timelineMargin
	t.handlePointerEvents(gtx, trackWidth)

	trackY := timelineHeight / 2
	fillRect(gtx, timelineMargin, trackY-3, timelineMargin+trackWidth, trackY+3, colorTrack)

	pb := t.state.Playback
	xAt := func(step float64) int {
		if pb.MaxTime <= 0 {
			return timelineMargin
		}
		return timelineMargin + int(float64(trackWidth)*step/pb.MaxTime)
	}

	if steps := int(pb.MaxTime); steps > 0 && steps <= maxTicks {
		for s := 0; s <= steps; s++ {
			x := xAt(float64(s))
			fillRect(gtx, x, trackY+5, x+1, trackY+9, colorTick)
		}
	}
	if sol := t.state.Solution; sol != nil {
		for i, p := range sol.Paths {
			x := xAt(float64(p.Cost()))
			col := draw.AgentColor(t.state.Instance.Agents[i].ID)
			fillRect(gtx, x-1, trackY-11, x+2, trackY-5, col)
		}
	}

	head := xAt(pb.CurrentTime)
	if head > timelineMargin {
		fillRect(gtx, timelineMargin, trackY-3, head, trackY+3, colorFill)
	}
	fillRect(gtx, head-6, trackY-6, head+6, trackY+6, color.NRGBA{R: 255, G: 255, B: 255, A: 255})

	t.drawLabels(gtx, th)
	return layout.Dimensions{Size: image.Point{X: width, Y: timelineHeight}}
}

func fillRect(gtx layout.Context, x0, y0, x1, y1 int, col color.NRGBA) {
	paint.FillShape(gtx.Ops, col, clip.Rect(image.Rect(x0, y0, x1, y1)).Op())
}

func (t *Timeline) drawLabels(gtx layout.Context, th *material.Theme) {
	pb := t.state.Playback
	label := func(s string, c color.NRGBA, align text.Alignment) layout.FlexChild {
		return layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			l := material.Label(th, 12, s)
			l.Color = c
			l.Alignment = align
			return l.Layout(gtx)
		})
	}
	layout.Inset{Top: unit.Dp(4), Left: unit.Dp(20), Right: unit.Dp(20)}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		return layout.Flex{Axis: layout.Horizontal, Spacing: layout.SpaceBetween}.Layout(gtx,
			label(fmt.Sprintf("t=%.1f", pb.CurrentTime), color.NRGBA{R: 200, G: 200, B: 200, A: 255}, text.Start),
			label(fmt.Sprintf("%.2g steps/s", pb.Speed), color.NRGBA{R: 150, G: 180, B: 200, A: 255}, text.Middle),
			label(fmt.Sprintf("makespan %d", int(pb.MaxTime)), color.NRGBA{R: 150, G: 150, B: 150, A: 255}, text.End),
		)
	})
}

func (t *Timeline) handlePointerEvents(gtx layout.Context, trackWidth int) {
	area := clip.Rect(image.Rect(0, 0, gtx.Constraints.Max.X, timelineHeight)).Push(gtx.Ops)
	event.Op(gtx.Ops, t)
	area.Pop()

	for {
		ev, ok := gtx.Event(pointer.Filter{
			Target: t,
			Kinds:  pointer.Press | pointer.Drag | pointer.Release,
		})
		if !ok {
			break
		}
		pe, ok := ev.(pointer.Event)
		if !ok {
			continue
		}
		switch pe.Kind {
		case pointer.Press:
			t.dragging = true
			t.seek(pe.Position.X, trackWidth)
		case pointer.Drag:
			if t.dragging {
				t.seek(pe.Position.X, trackWidth)
			}
		case pointer.Release:
			t.dragging = false
		}
	}
}

// seek jumps to the step under screenX and pauses playback.
func (t *Timeline) seek(screenX float32, trackWidth int) {
	if trackWidth <= 0 {
		return
	}
	progress := (float64(screenX) - timelineMargin) / float64(trackWidth)
	progress = min(max(progress, 0), 1)
	t.state.Playback.Pause()
	t.state.Playback.SetTime(progress * t.state.Playback.MaxTime)
}
