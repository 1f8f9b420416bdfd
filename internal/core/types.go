// Package core defines domain models for multi-agent path finding on grids.
package core

import "fmt"

// Location identifies a map cell (row-major index).
type Location int

// NoLocation marks an absent location.
const NoLocation Location = -1

// Coord is a (row, column) grid position.
type Coord struct {
	Row, Col int
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
}

// Move classifies a single time step of an agent.
type Move int

const (
	MoveWait Move = iota
	MoveUp
	MoveRight
	MoveDown
	MoveLeft
)

func (m Move) String() string {
	return [...]string{"Wait", "Up", "Right", "Down", "Left"}[m]
}

// moveDeltas is indexed by Move and gives (dRow, dCol).
var moveDeltas = [...][2]int{
	MoveWait:  {0, 0},
	MoveUp:    {-1, 0},
	MoveRight: {0, 1},
	MoveDown:  {1, 0},
	MoveLeft:  {0, -1},
}

// Graph is the read-only map abstraction consumed by the solvers.
type Graph interface {
	// NumLocations returns the size of the Location index space.
	NumLocations() int
	// Passable reports whether an agent may occupy loc.
	Passable(loc Location) bool
	// Neighbors returns the locations reachable in one move. It is empty for
	// out-of-bounds and obstacle cells.
	Neighbors(loc Location) []Location
	// TraversalCost is the cost of moving (or waiting, when from == to).
	TraversalCost(from, to Location) int
}
