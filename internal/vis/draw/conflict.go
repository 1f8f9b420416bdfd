package draw

import (
	"image/color"
	"math"
	"time"

	"gioui.org/layout"

	"github.com/elektrokombinacija/cbs-mapf/internal/algo"
	"github.com/elektrokombinacija/cbs-mapf/internal/core"
	"github.com/elektrokombinacija/cbs-mapf/internal/vis/interact"
	"github.com/elektrokombinacija/cbs-mapf/internal/vis/state"
)

// Conflict colors
var (
	ColorConflictVertex = color.NRGBA{R: 255, G: 80, B: 80, A: 200}
	ColorConflictEdge   = color.NRGBA{R: 255, G: 150, B: 80, A: 200}
	ColorConflictTarget = color.NRGBA{R: 255, G: 90, B: 200, A: 200}
	ColorConstraint     = color.NRGBA{R: 200, G: 100, B: 100, A: 150}
)

// pulse oscillates in [0.4, 1] for blinking markers.
func pulse() float32 {
	return float32(math.Sin(float64(time.Now().UnixMilli())/200.0)*0.3 + 0.7)
}

// DrawConflict marks the conflict chosen for branching: a pulsing ring on
// vertex and target conflicts, a crossed bar on edge conflicts.
func DrawConflict(gtx layout.Context, c *algo.Conflict, ws *core.Workspace, camera *interact.Camera) {
	if c == nil {
		return
	}
	p := state.CellCenter(ws.Coord(c.Loc))
	x, y := camera.WorldToScreen(p.X, p.Y)
	k := pulse()

	switch c.Kind {
	case algo.EdgeConflict:
		q := state.CellCenter(ws.Coord(c.From))
		x0, y0 := camera.WorldToScreen(q.X, q.Y)
		col := ColorConflictEdge
		col.A = uint8(float32(col.A) * k)
		drawSegment(gtx, x0, y0, x, y, 4*camera.Zoom, col)

		mx, my := (x0+x)/2, (y0+y)/2
		r := 12 * camera.Zoom * k
		DrawCircleOutline(gtx, mx, my, r, ColorConflictEdge, 2*camera.Zoom)
		drawCross(gtx, mx, my, r*0.7, 3, ColorConflictEdge)

	case algo.TargetConflict:
		DrawCellOutline(gtx, ws.Coord(c.Loc), camera, ColorConflictTarget, 3*camera.Zoom)
		drawFilledCircle(gtx, x, y, 6*camera.Zoom*k, ColorConflictTarget)

	default:
		r := 16 * camera.Zoom * k
		DrawCircleOutline(gtx, x, y, r, ColorConflictVertex, 3*camera.Zoom)
		drawFilledCircle(gtx, x, y, r*0.4, ColorConflictVertex)
	}
}

func drawCross(gtx layout.Context, cx, cy, size, width float32, col color.NRGBA) {
	drawSegment(gtx, cx-size, cy-size, cx+size, cy+size, width, col)
	drawSegment(gtx, cx-size, cy+size, cx+size, cy-size, width, col)
}

// DrawConstraint draws a "forbidden" sign on the cell a constraint blocks.
// Length constraints mark the agent's goal.
func DrawConstraint(gtx layout.Context, c algo.Constraint, ws *core.Workspace, camera *interact.Camera) {
	p := state.CellCenter(ws.Coord(c.Loc))
	x, y := camera.WorldToScreen(p.X, p.Y)
	r := 10 * camera.Zoom

	DrawCircleOutline(gtx, x, y, r, ColorConstraint, 2*camera.Zoom)
	d := r * 0.7
	drawSegment(gtx, x-d, y-d, x+d, y+d, 2*camera.Zoom, ColorConstraint)
}
