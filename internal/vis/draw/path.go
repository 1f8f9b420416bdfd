package draw

import (
	"image/color"

	"gioui.org/layout"

	"github.com/elektrokombinacija/cbs-mapf/internal/core"
	"github.com/elektrokombinacija/cbs-mapf/internal/vis/interact"
	"github.com/elektrokombinacija/cbs-mapf/internal/vis/state"
)

// DrawPath draws a polyline through world points.
func DrawPath(gtx layout.Context, points []state.Point, camera *interact.Camera, col color.NRGBA, width float32) {
	w := width * camera.Zoom
	for i := 0; i+1 < len(points); i++ {
		x1, y1 := camera.WorldToScreen(points[i].X, points[i].Y)
		x2, y2 := camera.WorldToScreen(points[i+1].X, points[i+1].Y)
		drawSegment(gtx, x1, y1, x2, y2, w, col)
	}
}

// DrawPathTrail draws a trail that fades towards its oldest point.
func DrawPathTrail(gtx layout.Context, history []state.Point, camera *interact.Camera, baseColor color.NRGBA, maxWidth float32) {
	n := len(history)
	for i := 0; i+1 < n; i++ {
		col := baseColor
		col.A = uint8(50 + float64(i)/float64(n)*150)
		w := maxWidth * camera.Zoom * (0.3 + 0.7*float32(i)/float32(n))

		x1, y1 := camera.WorldToScreen(history[i].X, history[i].Y)
		x2, y2 := camera.WorldToScreen(history[i+1].X, history[i+1].Y)
		drawSegment(gtx, x1, y1, x2, y2, w, col)
	}
}

// DrawFuturePath draws the part of path after currentTime, dimmed.
func DrawFuturePath(gtx layout.Context, path core.Path, currentTime float64, ws *core.Workspace, camera *interact.Camera, col color.NRGBA) {
	from := int(currentTime)
	if from+1 >= len(path) {
		return
	}
	points := make([]state.Point, 0, len(path)-from)
	for _, l := range path[from:] {
		points = append(points, state.CellCenter(ws.Coord(l)))
	}
	col.A = 80
	DrawPath(gtx, points, camera, col, 1.5)
}

// DrawTimedPath draws a whole path with markers at both ends. Waits are
// drawn as rings whose size grows with the wait length.
func DrawTimedPath(gtx layout.Context, path core.Path, ws *core.Workspace, camera *interact.Camera, col color.NRGBA) {
	if len(path) == 0 {
		return
	}
	points := make([]state.Point, len(path))
	for t, l := range path {
		points[t] = state.CellCenter(ws.Coord(l))
	}
	DrawPath(gtx, points, camera, col, 2)

	marker := col
	marker.A = 200
	for _, i := range []int{0, len(points) - 1} {
		x, y := camera.WorldToScreen(points[i].X, points[i].Y)
		drawFilledCircle(gtx, x, y, 4*camera.Zoom, marker)
	}

	wait := 0
	for t := 1; t <= len(path); t++ {
		if t < len(path) && path[t] == path[t-1] {
			wait++
			continue
		}
		if wait > 0 {
			x, y := camera.WorldToScreen(points[t-1].X, points[t-1].Y)
			DrawCircleOutline(gtx, x, y, float32(4+2*wait)*camera.Zoom, marker, camera.Zoom)
		}
		wait = 0
	}
}

// DrawAllPaths draws the paths of every agent in its color.
func DrawAllPaths(gtx layout.Context, paths []core.Path, ws *core.Workspace, camera *interact.Camera) {
	for id, path := range paths {
		col := AgentColor(core.AgentID(id))
		col.A = 100
		DrawTimedPath(gtx, path, ws, camera, col)
	}
}
