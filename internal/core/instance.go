package core

import (
	"errors"
	"fmt"
)

// ErrInvalidInstance reports an inconsistency between map and agents.
var ErrInvalidInstance = errors.New("core: invalid instance")

// Instance is a MAPF problem: a grid and a set of agents.
type Instance struct {
	Workspace *Workspace
	Agents    []*Agent
}

// NewInstance creates an instance over w with no agents.
func NewInstance(w *Workspace) *Instance {
	return &Instance{Workspace: w}
}

// AddAgent appends an agent with the next free ID.
func (inst *Instance) AddAgent(start, goal Coord) *Agent {
	a := &Agent{
		ID:    AgentID(len(inst.Agents)),
		Start: inst.Workspace.Loc(start),
		Goal:  inst.Workspace.Loc(goal),
	}
	inst.Agents = append(inst.Agents, a)
	return a
}

// Clone copies the instance onto a cloned workspace. Agents are shared,
// since they are immutable.
func (inst *Instance) Clone() *Instance {
	return &Instance{
		Workspace: inst.Workspace.Clone(),
		Agents:    append([]*Agent(nil), inst.Agents...),
	}
}

// Validate checks that every agent starts and ends on a free cell, that no
// two agents share a start or a goal, and that IDs are 0..n-1 in order.
func (inst *Instance) Validate() error {
	if inst.Workspace == nil {
		return fmt.Errorf("%w: no workspace", ErrInvalidInstance)
	}
	starts := make(map[Location]AgentID, len(inst.Agents))
	goals := make(map[Location]AgentID, len(inst.Agents))
	for i, a := range inst.Agents {
		if a == nil {
			return fmt.Errorf("%w: agent %d is nil", ErrInvalidInstance, i)
		}
		if a.ID != AgentID(i) {
			return fmt.Errorf("%w: agent at index %d has id %d", ErrInvalidInstance, i, a.ID)
		}
		if !inst.Workspace.Passable(a.Start) {
			return fmt.Errorf("%w: agent %d start %v is not passable",
				ErrInvalidInstance, a.ID, inst.Workspace.Coord(a.Start))
		}
		if !inst.Workspace.Passable(a.Goal) {
			return fmt.Errorf("%w: agent %d goal %v is not passable",
				ErrInvalidInstance, a.ID, inst.Workspace.Coord(a.Goal))
		}
		if other, ok := starts[a.Start]; ok {
			return fmt.Errorf("%w: agents %d and %d share start %v",
				ErrInvalidInstance, other, a.ID, inst.Workspace.Coord(a.Start))
		}
		if other, ok := goals[a.Goal]; ok {
			return fmt.Errorf("%w: agents %d and %d share goal %v",
				ErrInvalidInstance, other, a.ID, inst.Workspace.Coord(a.Goal))
		}
		starts[a.Start] = a.ID
		goals[a.Goal] = a.ID
	}
	return nil
}

// AgentByID finds an agent by ID.
func (inst *Instance) AgentByID(id AgentID) *Agent {
	if id < 0 || int(id) >= len(inst.Agents) {
		return nil
	}
	return inst.Agents[id]
}
