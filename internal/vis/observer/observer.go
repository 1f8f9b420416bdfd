// Package observer feeds solver events into the visualizer state.
package observer

import (
	"github.com/elektrokombinacija/cbs-mapf/internal/algo"
	"github.com/elektrokombinacija/cbs-mapf/internal/core"
	"github.com/elektrokombinacija/cbs-mapf/internal/vis/state"
)

var _ algo.Observer = (*AlgoStateObserver)(nil)

// AlgoStateObserver adapts AlgoState to algo.Observer.
type AlgoStateObserver struct {
	state *state.AlgoState
}

// NewAlgoStateObserver creates a new observer backed by AlgoState.
func NewAlgoStateObserver(as *state.AlgoState) *AlgoStateObserver {
	return &AlgoStateObserver{state: as}
}

func (o *AlgoStateObserver) OnNodeGenerated(node algo.NodeInfo) {
	o.state.AddNode(node)
}

func (o *AlgoStateObserver) OnNodeExpanded(node algo.NodeInfo) {
	o.state.ExpandNode(node.ID)
}

func (o *AlgoStateObserver) OnConflictSelected(nodeID int, conflict algo.Conflict) {
	o.state.RecordConflict(nodeID, conflict)
}

func (o *AlgoStateObserver) OnSolutionFound(node algo.NodeInfo, _ *core.Solution) {
	o.state.MarkSolution(node.ID)
}

func (o *AlgoStateObserver) ShouldPause() bool {
	return o.state.ShouldPause()
}

func (o *AlgoStateObserver) WaitForStep() {
	o.state.WaitForStep()
}
