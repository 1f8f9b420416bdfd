package state

import (
	"fmt"

	"github.com/elektrokombinacija/cbs-mapf/internal/core"
)

// EditAction is one reversible change to an instance.
type EditAction interface {
	Do(inst *core.Instance)
	Undo(inst *core.Instance)
	Description() string
}

// EditMode selects what a primary click does on the map.
type EditMode int

const (
	// ModeView selects agents.
	ModeView EditMode = iota
	// ModeObstacle toggles obstacles.
	ModeObstacle
)

// EditState manages selection and map editing.
type EditState struct {
	Mode EditMode

	// SelectedAgent is -1 when nothing is selected.
	SelectedAgent core.AgentID

	undoStack []EditAction
	redoStack []EditAction
}

// NewEditState returns an empty history with no agent selected.
func NewEditState() *EditState {
	return &EditState{SelectedAgent: -1}
}

// SelectAgent toggles the selection of id.
func (e *EditState) SelectAgent(id core.AgentID) {
	if e.SelectedAgent == id {
		e.SelectedAgent = -1
		return
	}
	e.SelectedAgent = id
}

// ClearSelection clears the selection.
func (e *EditState) ClearSelection() {
	e.SelectedAgent = -1
}

// Execute performs an action and pushes it on the undo stack.
func (e *EditState) Execute(action EditAction, inst *core.Instance) {
	action.Do(inst)
	e.undoStack = append(e.undoStack, action)
	e.redoStack = nil
}

// Undo reverts the last action on inst. It returns nil when there is none.
func (e *EditState) Undo(inst *core.Instance) EditAction {
	if len(e.undoStack) == 0 {
		return nil
	}
	action := e.undoStack[len(e.undoStack)-1]
	e.undoStack = e.undoStack[:len(e.undoStack)-1]
	e.redoStack = append(e.redoStack, action)
	action.Undo(inst)
	return action
}

// Redo re-applies the last undone action on inst.
func (e *EditState) Redo(inst *core.Instance) EditAction {
	if len(e.redoStack) == 0 {
		return nil
	}
	action := e.redoStack[len(e.redoStack)-1]
	e.redoStack = e.redoStack[:len(e.redoStack)-1]
	e.undoStack = append(e.undoStack, action)
	action.Do(inst)
	return action
}

// CanUndo reports whether Undo has anything to revert.
func (e *EditState) CanUndo() bool {
	return len(e.undoStack) > 0
}

// CanRedo reports whether an undone edit can be reapplied.
func (e *EditState) CanRedo() bool {
	return len(e.redoStack) > 0
}

// ToggleObstacle flips one cell between free and blocked.
type ToggleObstacle struct {
	Cell    core.Coord
	Blocked bool // state after Do
}

// NewToggleObstacle builds the action that flips c on inst. It fails when c
// is off the map or is an agent's start or goal.
func NewToggleObstacle(inst *core.Instance, c core.Coord) (*ToggleObstacle, error) {
	ws := inst.Workspace
	if !ws.InBounds(c) {
		return nil, fmt.Errorf("cell %s is off the map", c)
	}
	l := ws.Loc(c)
	for _, a := range inst.Agents {
		if a.Start == l || a.Goal == l {
			return nil, fmt.Errorf("cell %s is an endpoint of agent %d", c, a.ID)
		}
	}
	return &ToggleObstacle{Cell: c, Blocked: ws.Passable(l)}, nil
}

func (a *ToggleObstacle) Do(inst *core.Instance) { a.set(inst, a.Blocked) }

func (a *ToggleObstacle) Undo(inst *core.Instance) { a.set(inst, !a.Blocked) }

func (a *ToggleObstacle) set(inst *core.Instance, blocked bool) {
	if blocked {
		inst.Workspace.Block(a.Cell)
	} else {
		inst.Workspace.Unblock(a.Cell)
	}
}

func (a *ToggleObstacle) Description() string {
	if a.Blocked {
		return "Block " + a.Cell.String()
	}
	return "Clear " + a.Cell.String()
}
