package state

import (
	"slices"
	"sync"

	"github.com/elektrokombinacija/cbs-mapf/internal/algo"
	"github.com/elektrokombinacija/cbs-mapf/internal/core"
)

// TreeNode is a constraint tree node as shown in the tree panel.
type TreeNode struct {
	algo.NodeInfo
	Open     bool
	Solution bool
	Conflict *algo.Conflict // selected for branching, once expanded
}

// AlgoState tracks a running solve. The solver goroutine writes it through
// the observer; the UI goroutine reads it each frame.
type AlgoState struct {
	mu sync.Mutex

	Active bool
	Paused bool

	nodes   []*TreeNode
	byID    map[int]int
	current int

	NodesExpanded   int
	ConflictsFound  int
	CurrentConflict *algo.Conflict
	Err             error

	stepChan chan struct{}
}

// NewAlgoState creates an idle algorithm state.
func NewAlgoState() *AlgoState {
	return &AlgoState{
		byID:     make(map[int]int),
		current:  -1,
		stepChan: make(chan struct{}, 1),
	}
}

// Start clears the tree and marks a solve as running. The paused flag is
// kept so a solve can start in step mode.
func (a *AlgoState) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.Active = true
	a.nodes = nil
	a.byID = make(map[int]int)
	a.current = -1
	a.NodesExpanded = 0
	a.ConflictsFound = 0
	a.CurrentConflict = nil
	a.Err = nil
}

// Finish marks the solve as over.
func (a *AlgoState) Finish(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Active = false
	a.Err = err
}

// LastError returns the error the last solve finished with.
func (a *AlgoState) LastError() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Err
}

// IsActive reports whether a solve is running.
func (a *AlgoState) IsActive() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Active
}

// Pause makes the solver wait before its next expansion.
func (a *AlgoState) Pause() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Paused = true
}

// Resume lets the solver run freely.
func (a *AlgoState) Resume() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Paused = false
	a.signal()
}

// Step pauses and allows exactly one more expansion.
func (a *AlgoState) Step() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Paused = true
	a.signal()
}

func (a *AlgoState) signal() {
	select {
	case a.stepChan <- struct{}{}:
	default:
	}
}

// WaitForStep blocks while paused until Step or Resume.
func (a *AlgoState) WaitForStep() {
	if !a.ShouldPause() {
		return
	}
	<-a.stepChan
}

// ShouldPause returns whether the algorithm should pause.
func (a *AlgoState) ShouldPause() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Paused
}

// AddNode records a generated node. Paths are copied.
func (a *AlgoState) AddNode(info algo.NodeInfo) {
	a.mu.Lock()
	defer a.mu.Unlock()

	paths := make([]core.Path, len(info.Paths))
	for i, p := range info.Paths {
		paths[i] = slices.Clone(p)
	}
	info.Paths = paths
	info.Constraints = slices.Clone(info.Constraints)

	a.byID[info.ID] = len(a.nodes)
	a.nodes = append(a.nodes, &TreeNode{NodeInfo: info, Open: true})
}

// ExpandNode marks a node as being expanded.
func (a *AlgoState) ExpandNode(id int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.current = id
	a.NodesExpanded++
	if n := a.lookup(id); n != nil {
		n.Open = false
	}
}

// RecordConflict stores the conflict chosen at node id.
func (a *AlgoState) RecordConflict(id int, c algo.Conflict) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.ConflictsFound++
	a.CurrentConflict = &c
	if n := a.lookup(id); n != nil {
		n.Conflict = &c
	}
}

// MarkSolution flags node id as the goal node.
func (a *AlgoState) MarkSolution(id int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.CurrentConflict = nil
	if n := a.lookup(id); n != nil {
		n.Solution = true
	}
}

func (a *AlgoState) lookup(id int) *TreeNode {
	i, ok := a.byID[id]
	if !ok {
		return nil
	}
	return a.nodes[i]
}

// Nodes returns a snapshot of the tree in generation order.
func (a *AlgoState) Nodes() []TreeNode {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]TreeNode, len(a.nodes))
	for i, n := range a.nodes {
		out[i] = *n
	}
	return out
}

// CurrentNode returns the ID of the last expanded node, or -1.
func (a *AlgoState) CurrentNode() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// CurrentPaths returns the paths of the last expanded node.
func (a *AlgoState) CurrentPaths() []core.Path {
	a.mu.Lock()
	defer a.mu.Unlock()
	if n := a.lookup(a.current); n != nil {
		return n.Paths
	}
	return nil
}

// CurrentConstraints returns the constraints added by the last expanded node.
func (a *AlgoState) CurrentConstraints() []algo.Constraint {
	a.mu.Lock()
	defer a.mu.Unlock()
	if n := a.lookup(a.current); n != nil {
		return n.Constraints
	}
	return nil
}

// OpenCount counts nodes generated but not yet expanded.
func (a *AlgoState) OpenCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	open := 0
	for _, n := range a.nodes {
		if n.Open {
			open++
		}
	}
	return open
}

// Conflict returns the conflict last selected for branching.
func (a *AlgoState) Conflict() *algo.Conflict {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.CurrentConflict
}

// Counts returns the expansion and conflict counters.
func (a *AlgoState) Counts() (expanded, conflicts int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.NodesExpanded, a.ConflictsFound
}
