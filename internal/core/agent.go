package core

import "fmt"

// AgentID is a unique agent identifier. Agents of an instance are numbered 0..n-1.
type AgentID int

// Agent is one start/goal request. Immutable after instance load.
type Agent struct {
	ID    AgentID
	Start Location
	Goal  Location
}

func (a *Agent) String() string {
	return fmt.Sprintf("agent %d (%d -> %d)", a.ID, a.Start, a.Goal)
}
