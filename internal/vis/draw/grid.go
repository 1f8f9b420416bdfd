// Package draw renders the grid, agents, paths and conflicts.
package draw

import (
	"image/color"
	"math"

	"gioui.org/f32"
	"gioui.org/layout"
	"gioui.org/op/clip"
	"gioui.org/op/paint"

	"github.com/elektrokombinacija/cbs-mapf/internal/core"
	"github.com/elektrokombinacija/cbs-mapf/internal/vis/interact"
	"github.com/elektrokombinacija/cbs-mapf/internal/vis/state"
)

// Cell colors.
var (
	ColorCellFree     = color.NRGBA{R: 52, G: 58, B: 66, A: 255}
	ColorCellBlocked  = color.NRGBA{R: 18, G: 20, B: 24, A: 255}
	ColorCellGridLine = color.NRGBA{R: 40, G: 45, B: 50, A: 255}
)

// DrawWorkspace fills every cell of ws, free or blocked.
func DrawWorkspace(gtx layout.Context, ws *core.Workspace, camera *interact.Camera) {
	x0, y0 := camera.WorldToScreen(0, 0)
	x1, y1 := camera.WorldToScreen(float64(ws.Width)*state.CellSize, float64(ws.Height)*state.CellSize)
	drawRect(gtx, x0, y0, x1, y1, ColorCellGridLine)

	gap := max(1, camera.Zoom)
	for r := 0; r < ws.Height; r++ {
		for c := 0; c < ws.Width; c++ {
			col := ColorCellFree
			if !ws.Passable(ws.Loc(core.Coord{Row: r, Col: c})) {
				col = ColorCellBlocked
			}
			DrawCell(gtx, core.Coord{Row: r, Col: c}, camera, col, gap)
		}
	}
}

// DrawCell fills one cell, inset by inset screen pixels on each side.
func DrawCell(gtx layout.Context, c core.Coord, camera *interact.Camera, col color.NRGBA, inset float32) {
	x0, y0 := camera.WorldToScreen(float64(c.Col)*state.CellSize, float64(c.Row)*state.CellSize)
	x1, y1 := camera.WorldToScreen(float64(c.Col+1)*state.CellSize, float64(c.Row+1)*state.CellSize)
	drawRect(gtx, x0+inset/2, y0+inset/2, x1-inset/2, y1-inset/2, col)
}

// DrawCellOutline draws a rectangular frame around a cell.
func DrawCellOutline(gtx layout.Context, c core.Coord, camera *interact.Camera, col color.NRGBA, width float32) {
	x0, y0 := camera.WorldToScreen(float64(c.Col)*state.CellSize, float64(c.Row)*state.CellSize)
	x1, y1 := camera.WorldToScreen(float64(c.Col+1)*state.CellSize, float64(c.Row+1)*state.CellSize)
	drawRect(gtx, x0, y0, x1, y0+width, col)
	drawRect(gtx, x0, y1-width, x1, y1, col)
	drawRect(gtx, x0, y0, x0+width, y1, col)
	drawRect(gtx, x1-width, y0, x1, y1, col)
}

func drawRect(gtx layout.Context, x0, y0, x1, y1 float32, col color.NRGBA) {
	if x1 <= x0 || y1 <= y0 {
		return
	}
	var path clip.Path
	path.Begin(gtx.Ops)
	path.MoveTo(f32.Pt(x0, y0))
	path.LineTo(f32.Pt(x1, y0))
	path.LineTo(f32.Pt(x1, y1))
	path.LineTo(f32.Pt(x0, y1))
	path.Close()
	paint.FillShape(gtx.Ops, col, clip.Outline{Path: path.End()}.Op())
}

// DrawCircleOutline draws a ring.
func DrawCircleOutline(gtx layout.Context, centerX, centerY float32, radius float32, col color.NRGBA, strokeWidth float32) {
	var path clip.Path
	path.Begin(gtx.Ops)
	circle(&path, centerX, centerY, radius, 24)
	// The hole winds the other way so the non-zero rule leaves it empty.
	circle(&path, centerX, centerY, max(0, radius-strokeWidth), -24)
	paint.FillShape(gtx.Ops, col, clip.Outline{Path: path.End()}.Op())
}

func drawFilledCircle(gtx layout.Context, cx, cy, radius float32, col color.NRGBA) {
	var path clip.Path
	path.Begin(gtx.Ops)
	circle(&path, cx, cy, radius, 16)
	paint.FillShape(gtx.Ops, col, clip.Outline{Path: path.End()}.Op())
}

// circle appends a closed polygon approximating a circle. Negative segments
// wind counter-clockwise.
func circle(path *clip.Path, cx, cy, radius float32, segments int) {
	n := max(segments, -segments)
	path.MoveTo(f32.Pt(cx+radius, cy))
	for i := 1; i <= n; i++ {
		angle := float64(i) * 2 * math.Pi / float64(segments)
		path.LineTo(f32.Pt(cx+radius*float32(math.Cos(angle)), cy+radius*float32(math.Sin(angle))))
	}
	path.Close()
}

// drawSegment draws a thick line.
func drawSegment(gtx layout.Context, x1, y1, x2, y2, width float32, col color.NRGBA) {
	dx, dy := x2-x1, y2-y1
	length := float32(math.Sqrt(float64(dx*dx + dy*dy)))
	if length < 0.1 {
		return
	}
	px := -dy / length * width / 2
	py := dx / length * width / 2

	var path clip.Path
	path.Begin(gtx.Ops)
	path.MoveTo(f32.Pt(x1+px, y1+py))
	path.LineTo(f32.Pt(x2+px, y2+py))
	path.LineTo(f32.Pt(x2-px, y2-py))
	path.LineTo(f32.Pt(x1-px, y1-py))
	path.Close()
	paint.FillShape(gtx.Ops, col, clip.Outline{Path: path.End()}.Op())
}
