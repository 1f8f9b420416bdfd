package core

import (
	"fmt"
	"strings"
)

// Workspace is a 4-connected grid with obstacle cells.
// It is read-only once handed to a solver.
type Workspace struct {
	Width, Height int
	blocked       []bool
}

// NewWorkspace creates an obstacle-free width x height grid.
func NewWorkspace(width, height int) *Workspace {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Workspace{
		Width:   width,
		Height:  height,
		blocked: make([]bool, width*height),
	}
}

// ParseWorkspace builds a workspace from rows of '.' (free) and '@' (blocked).
// All rows must have the same length.
func ParseWorkspace(rows ...string) (*Workspace, error) {
	if len(rows) == 0 {
		return NewWorkspace(0, 0), nil
	}
	w := NewWorkspace(len(rows[0]), len(rows))
	for r, row := range rows {
		if len(row) != w.Width {
			return nil, fmt.Errorf("core: row %d has width %d, want %d", r, len(row), w.Width)
		}
		for c, ch := range row {
			switch ch {
			case '.':
			case '@':
				w.Block(Coord{Row: r, Col: c})
			default:
				return nil, fmt.Errorf("core: row %d col %d: unknown cell %q", r, c, ch)
			}
		}
	}
	return w, nil
}

// Block marks a cell as an obstacle. Out-of-bounds coordinates are ignored.
func (w *Workspace) Block(c Coord) {
	if w.InBounds(c) {
		w.blocked[w.Loc(c)] = true
	}
}

// Unblock clears an obstacle. Out-of-bounds coordinates are ignored.
func (w *Workspace) Unblock(c Coord) {
	if w.InBounds(c) {
		w.blocked[w.Loc(c)] = false
	}
}

// Clone returns an independent copy, for editing a map while a solver holds
// the original.
func (w *Workspace) Clone() *Workspace {
	return &Workspace{
		Width:   w.Width,
		Height:  w.Height,
		blocked: append([]bool(nil), w.blocked...),
	}
}

// InBounds reports whether c lies on the grid.
func (w *Workspace) InBounds(c Coord) bool {
	return c.Row >= 0 && c.Row < w.Height && c.Col >= 0 && c.Col < w.Width
}

// Loc converts a coordinate to its location index.
func (w *Workspace) Loc(c Coord) Location {
	return Location(c.Row*w.Width + c.Col)
}

// Coord converts a location index back to a coordinate.
func (w *Workspace) Coord(l Location) Coord {
	if w.Width == 0 {
		return Coord{}
	}
	return Coord{Row: int(l) / w.Width, Col: int(l) % w.Width}
}

// NumLocations returns Width*Height.
func (w *Workspace) NumLocations() int {
	return w.Width * w.Height
}

// Passable reports whether l is on the grid and not blocked.
func (w *Workspace) Passable(l Location) bool {
	return l >= 0 && int(l) < len(w.blocked) && !w.blocked[l]
}

// NumFreeCells counts passable cells.
func (w *Workspace) NumFreeCells() int {
	n := 0
	for _, b := range w.blocked {
		if !b {
			n++
		}
	}
	return n
}

// FreeCells lists passable cells in index order.
func (w *Workspace) FreeCells() []Location {
	cells := make([]Location, 0, len(w.blocked))
	for i, b := range w.blocked {
		if !b {
			cells = append(cells, Location(i))
		}
	}
	return cells
}

// Neighbors returns passable 4-neighbours in Up, Right, Down, Left order.
func (w *Workspace) Neighbors(l Location) []Location {
	if !w.Passable(l) {
		return nil
	}
	c := w.Coord(l)
	out := make([]Location, 0, 4)
	for m := MoveUp; m <= MoveLeft; m++ {
		d := moveDeltas[m]
		n := Coord{Row: c.Row + d[0], Col: c.Col + d[1]}
		if w.InBounds(n) && !w.blocked[w.Loc(n)] {
			out = append(out, w.Loc(n))
		}
	}
	return out
}

// TraversalCost is uniform: every move and every wait costs 1.
func (w *Workspace) TraversalCost(from, to Location) int {
	return 1
}

// String renders the grid with '.' and '@'.
func (w *Workspace) String() string {
	var sb strings.Builder
	for r := 0; r < w.Height; r++ {
		for c := 0; c < w.Width; c++ {
			if w.blocked[r*w.Width+c] {
				sb.WriteByte('@')
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
