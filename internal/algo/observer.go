package algo

import "github.com/elektrokombinacija/cbs-mapf/internal/core"

// Observer receives constraint tree events during a solve. Callbacks run on
// the search goroutine and must not retain the Paths slices beyond the call
// unless they copy them.
type Observer interface {
	// OnNodeGenerated is called when a node enters the frontier.
	OnNodeGenerated(node NodeInfo)

	// OnNodeExpanded is called when a node is popped from the frontier.
	OnNodeExpanded(node NodeInfo)

	// OnConflictSelected is called with the conflict chosen for branching.
	OnConflictSelected(nodeID int, conflict Conflict)

	// OnSolutionFound is called once with the conflict-free node.
	OnSolutionFound(node NodeInfo, solution *core.Solution)

	// ShouldPause returns true if the search should wait before the next expansion.
	ShouldPause() bool

	// WaitForStep blocks until the observer allows the next step.
	WaitForStep()
}

// NopObserver ignores every event. Embed it to implement a subset.
type NopObserver struct{}

func (NopObserver) OnNodeGenerated(NodeInfo)                  {}
func (NopObserver) OnNodeExpanded(NodeInfo)                   {}
func (NopObserver) OnConflictSelected(int, Conflict)          {}
func (NopObserver) OnSolutionFound(NodeInfo, *core.Solution) {}
func (NopObserver) ShouldPause() bool                         { return false }
func (NopObserver) WaitForStep()                              {}
