package widgets

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"gioui.org/f32"
	"gioui.org/io/event"
	"gioui.org/io/pointer"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/unit"
	"gioui.org/widget/material"

	"github.com/elektrokombinacija/cbs-mapf/internal/algo"
	"github.com/elektrokombinacija/cbs-mapf/internal/vis/state"
)

const (
	treeWidth   = 300
	treeTop     = 40
	levelHeight = 50
	nodeRadius  = 10
)

// CBSTree draws the constraint tree of the running or last solve.
type CBSTree struct {
	state        *state.State
	selectedNode int
	scrollY      float32

	// positions of the last frame, for hit testing
	positions map[int]f32.Point
}

// NewCBSTree creates a new CBS tree widget.
func NewCBSTree(st *state.State) *CBSTree {
	return &CBSTree{
		state:        st,
		selectedNode: -1,
	}
}

// Colors for tree nodes
var (
	ColorNodeOpen     = color.NRGBA{R: 100, G: 150, B: 200, A: 255}
	ColorNodeClosed   = color.NRGBA{R: 80, G: 100, B: 130, A: 255}
	ColorNodeCurrent  = color.NRGBA{R: 255, G: 200, B: 80, A: 255}
	ColorNodeSolution = color.NRGBA{R: 80, G: 200, B: 120, A: 255}
	ColorNodeSelected = color.NRGBA{R: 255, G: 255, B: 150, A: 255}
	ColorTreeEdge     = color.NRGBA{R: 70, G: 80, B: 90, A: 255}
	colorTreeText     = color.NRGBA{R: 150, G: 150, B: 150, A: 255}
)

// Layout renders the tree panel.
func (t *CBSTree) Layout(gtx layout.Context, th *material.Theme) layout.Dimensions {
	height := gtx.Constraints.Max.Y
	paint.FillShape(gtx.Ops, color.NRGBA{R: 35, G: 38, B: 42, A: 255}, clip.Rect(image.Rect(0, 0, treeWidth, height)).Op())

	t.handlePointerEvents(gtx, height)

	layout.Inset{Left: unit.Dp(10), Top: unit.Dp(8)}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		label := material.Label(th, 14, "Constraint Tree")
		label.Color = color.NRGBA{R: 200, G: 200, B: 200, A: 255}
		return label.Layout(gtx)
	})

	nodes := t.state.Algo.Nodes()
	t.positions = treeLayout(nodes, treeWidth)
	if len(nodes) > 0 {
		t.drawTree(gtx, th, nodes, height)
	}
	t.drawStats(gtx, th, nodes)

	return layout.Dimensions{Size: image.Point{X: treeWidth, Y: height}}
}

func (t *CBSTree) drawTree(gtx layout.Context, th *material.Theme, nodes []state.TreeNode, height int) {
	offsetY := -t.scrollY
	visible := func(y float32) bool { return y >= treeTop-nodeRadius && y <= float32(height) }

	for _, n := range nodes {
		parent, ok := t.positions[n.ParentID]
		if !ok {
			continue
		}
		child := t.positions[n.ID]
		if !visible(parent.Y+offsetY) && !visible(child.Y+offsetY) {
			continue
		}
		drawTreeEdge(gtx, parent.X, parent.Y+offsetY, child.X, child.Y+offsetY)
	}

	current := t.state.Algo.CurrentNode()
	for _, n := range nodes {
		pos := t.positions[n.ID]
		y := pos.Y + offsetY
		if !visible(y) {
			continue
		}
		drawTreeNode(gtx, pos.X, y, t.nodeColor(n, current))
		if len(nodes) <= 64 {
			drawNodeLabel(gtx, th, pos.X+nodeRadius+2, y-nodeRadius, fmt.Sprint(n.Cost))
		}
	}
}

// treeLayout places nodes by depth; siblings share a row in generation order.
func treeLayout(nodes []state.TreeNode, width int) map[int]f32.Point {
	levels := make(map[int][]int)
	for _, n := range nodes {
		levels[n.Depth] = append(levels[n.Depth], n.ID)
	}
	const marginX = 30
	avail := float32(width - 2*marginX)
	positions := make(map[int]f32.Point, len(nodes))
	for depth, ids := range levels {
		k := float32(len(ids))
		for i, id := range ids {
			positions[id] = f32.Point{
				X: marginX + avail*(2*float32(i)+1)/(2*k),
				Y: float32(treeTop + 20 + depth*levelHeight),
			}
		}
	}
	return positions
}

func (t *CBSTree) nodeColor(n state.TreeNode, current int) color.NRGBA {
	switch {
	case n.ID == t.selectedNode:
		return ColorNodeSelected
	case n.Solution:
		return ColorNodeSolution
	case n.ID == current:
		return ColorNodeCurrent
	case n.Open:
		return ColorNodeOpen
	}
	return ColorNodeClosed
}

func drawTreeNode(gtx layout.Context, x, y float32, col color.NRGBA) {
	var path clip.Path
	path.Begin(gtx.Ops)
	path.MoveTo(f32.Pt(x+nodeRadius, y))
	path.ArcTo(f32.Pt(x, y), f32.Pt(x, y), 2*math.Pi)
	path.Close()
	paint.FillShape(gtx.Ops, col, clip.Outline{Path: path.End()}.Op())
}

func drawNodeLabel(gtx layout.Context, th *material.Theme, x, y float32, s string) {
	defer op.Offset(image.Pt(int(x), int(y))).Push(gtx.Ops).Pop()
	label := material.Label(th, 9, s)
	label.Color = colorTreeText
	label.Layout(gtx)
}

func drawTreeEdge(gtx layout.Context, x1, y1, x2, y2 float32) {
	var path clip.Path
	path.Begin(gtx.Ops)
	path.MoveTo(f32.Pt(x1, y1))
	path.LineTo(f32.Pt(x2, y2))
	paint.FillShape(gtx.Ops, ColorTreeEdge, clip.Stroke{Path: path.End(), Width: 2}.Op())
}

func (t *CBSTree) drawStats(gtx layout.Context, th *material.Theme, nodes []state.TreeNode) {
	expanded, conflicts := t.state.Algo.Counts()
	lines := []string{
		fmt.Sprintf("Nodes expanded: %d", expanded),
		fmt.Sprintf("Conflicts found: %d", conflicts),
		fmt.Sprintf("Open: %d", t.state.Algo.OpenCount()),
	}
	for _, n := range nodes {
		if n.ID == t.selectedNode {
			lines = append(lines, nodeSummary(n)...)
			break
		}
	}
	if err := t.state.Algo.LastError(); err != nil {
		lines = append(lines, "Error: "+err.Error())
	}

	children := make([]layout.FlexChild, len(lines))
	for i, s := range lines {
		children[i] = layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			label := material.Label(th, 11, s)
			label.Color = colorTreeText
			return label.Layout(gtx)
		})
	}
	gtx.Constraints.Max.X = treeWidth
	layout.Inset{Left: unit.Dp(10), Bottom: unit.Dp(20)}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		return layout.S.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
			return layout.Flex{Axis: layout.Vertical}.Layout(gtx, children...)
		})
	})
}

func nodeSummary(n state.TreeNode) []string {
	out := []string{fmt.Sprintf("Node %d: cost %d, LB %d, conflicts %d", n.ID, n.Cost, n.LowerBound, n.Conflicts)}
	for _, c := range n.Constraints {
		out = append(out, "  + "+c.String())
	}
	if c := n.Conflict; c != nil {
		out = append(out, "  split on "+conflictSummary(c))
	}
	return out
}

func conflictSummary(c *algo.Conflict) string {
	return fmt.Sprintf("%s a%d/a%d t=%d", c.Kind, c.Agent1, c.Agent2, c.Time)
}

func (t *CBSTree) handlePointerEvents(gtx layout.Context, height int) {
	area := clip.Rect(image.Rect(0, 0, treeWidth, height)).Push(gtx.Ops)
	event.Op(gtx.Ops, t)
	area.Pop()

	for {
		ev, ok := gtx.Event(pointer.Filter{
			Target:  t,
			Kinds:   pointer.Scroll | pointer.Press,
			ScrollY: pointer.ScrollRange{Min: -1000, Max: 1000},
		})
		if !ok {
			break
		}
		pe, ok := ev.(pointer.Event)
		if !ok {
			continue
		}
		switch pe.Kind {
		case pointer.Scroll:
			t.scrollY = max(t.scrollY+pe.Scroll.Y, 0)
		case pointer.Press:
			t.selectedNode = t.nodeAt(pe.Position.X, pe.Position.Y+t.scrollY)
		}
	}
}

func (t *CBSTree) nodeAt(x, y float32) int {
	for id, p := range t.positions {
		dx, dy := p.X-x, p.Y-y
		if dx*dx+dy*dy <= nodeRadius*nodeRadius {
			return id
		}
	}
	return -1
}
