package algo

import (
	"container/heap"

	"github.com/elektrokombinacija/cbs-mapf/internal/core"
)

// ctNode is a node of the constraint tree. Its body is immutable once it is
// pushed to the frontier; paths and per-agent slices are shared with
// children for agents that were not replanned.
type ctNode struct {
	id     int
	parent int // -1 for the root
	depth  int
	// delta holds only the constraints added at this node.
	delta []Constraint
	// replanned is the agent whose path differs from the parent's, -1 at the root.
	replanned core.AgentID

	paths      []core.Path
	costs      []int
	bounds     []int // per-agent low-level lower bounds
	mdds       []*mdd
	cost       int
	lowerBound int
	conflicts  []Conflict

	openIndex  int
	focalIndex int
}

// NodeInfo is a read-only view of a constraint tree node for observers.
type NodeInfo struct {
	ID          int
	ParentID    int
	Depth       int
	Cost        int
	LowerBound  int
	Conflicts   int
	Constraints []Constraint
	Paths       []core.Path
}

func (n *ctNode) info() NodeInfo {
	return NodeInfo{
		ID:          n.id,
		ParentID:    n.parent,
		Depth:       n.depth,
		Cost:        n.cost,
		LowerBound:  n.lowerBound,
		Conflicts:   len(n.conflicts),
		Constraints: n.delta,
		Paths:       n.paths,
	}
}

// constraintTree is an arena of nodes indexed by id. Children refer to their
// parent by id only.
type constraintTree struct {
	nodes []*ctNode
}

// add assigns the next id to n and stores it.
func (t *constraintTree) add(n *ctNode) {
	n.id = len(t.nodes)
	t.nodes = append(t.nodes, n)
}

func (t *constraintTree) size() int { return len(t.nodes) }

// constraintsFor collects the constraints of agent along the path from the
// root to node id.
func (t *constraintTree) constraintsFor(id int, agent core.AgentID) []Constraint {
	var out []Constraint
	for id >= 0 {
		n := t.nodes[id]
		for _, c := range n.delta {
			if c.Agent == agent {
				out = append(out, c)
			}
		}
		id = n.parent
	}
	return out
}

// release drops the search data of an expanded node. Its delta stays for
// constraint reconstruction.
func (t *constraintTree) release(n *ctNode) {
	n.paths = nil
	n.costs = nil
	n.bounds = nil
	n.mdds = nil
	n.conflicts = nil
}

// ctOpenHeap orders by the variant key, then conflicts, then id.
type ctOpenHeap struct {
	nodes []*ctNode
	key   func(*ctNode) int
}

func (h *ctOpenHeap) Len() int { return len(h.nodes) }
func (h *ctOpenHeap) Less(i, j int) bool {
	a, b := h.nodes[i], h.nodes[j]
	if ka, kb := h.key(a), h.key(b); ka != kb {
		return ka < kb
	}
	if len(a.conflicts) != len(b.conflicts) {
		return len(a.conflicts) < len(b.conflicts)
	}
	return a.id < b.id
}
func (h *ctOpenHeap) Swap(i, j int) {
	h.nodes[i], h.nodes[j] = h.nodes[j], h.nodes[i]
	h.nodes[i].openIndex = i
	h.nodes[j].openIndex = j
}
func (h *ctOpenHeap) Push(x any) {
	n := x.(*ctNode)
	n.openIndex = len(h.nodes)
	h.nodes = append(h.nodes, n)
}
func (h *ctOpenHeap) Pop() any {
	old := h.nodes
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	x.openIndex = -1
	h.nodes = old[0 : n-1]
	return x
}

// ctFocalHeap orders by conflicts, then cost, then id.
type ctFocalHeap []*ctNode

func (h ctFocalHeap) Len() int { return len(h) }
func (h ctFocalHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if len(a.conflicts) != len(b.conflicts) {
		return len(a.conflicts) < len(b.conflicts)
	}
	if a.cost != b.cost {
		return a.cost < b.cost
	}
	return a.id < b.id
}
func (h ctFocalHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].focalIndex = i
	h[j].focalIndex = j
}
func (h *ctFocalHeap) Push(x any) {
	n := x.(*ctNode)
	n.focalIndex = len(*h)
	*h = append(*h, n)
}
func (h *ctFocalHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	x.focalIndex = -1
	*h = old[0 : n-1]
	return x
}

// frontier is the dual open/focal structure of the high-level search. Focal
// holds the open nodes whose cost is within weight times the minimum key.
// Membership is refreshed lazily, only when that threshold moves.
type frontier struct {
	open      *ctOpenHeap
	focal     ctFocalHeap
	weight    float64
	threshold float64
}

func newFrontier(weight float64, key func(*ctNode) int) *frontier {
	return &frontier{
		open:      &ctOpenHeap{key: key},
		weight:    weight,
		threshold: -1,
	}
}

func (f *frontier) Len() int { return f.open.Len() }

func (f *frontier) push(n *ctNode) {
	n.focalIndex = -1
	heap.Push(f.open, n)
	if float64(n.cost) <= f.threshold {
		heap.Push(&f.focal, n)
	}
}

// minKey returns the smallest open key. The frontier must not be empty.
func (f *frontier) minKey() int {
	return f.open.key(f.open.nodes[0])
}

// refresh brings focal membership in line with the current threshold.
func (f *frontier) refresh() {
	if f.open.Len() == 0 {
		return
	}
	th := f.weight * float64(f.minKey())
	switch {
	case th > f.threshold:
		for _, n := range f.open.nodes {
			if n.focalIndex < 0 && float64(n.cost) <= th {
				heap.Push(&f.focal, n)
			}
		}
	case th < f.threshold:
		for _, n := range f.focal {
			n.focalIndex = -1
		}
		f.focal = f.focal[:0]
		for _, n := range f.open.nodes {
			if float64(n.cost) <= th {
				heap.Push(&f.focal, n)
			}
		}
	}
	f.threshold = th
}

// pop removes and returns the best focal node, falling back to the open
// minimum. It returns nil when the frontier is empty.
func (f *frontier) pop() *ctNode {
	f.refresh()
	if f.focal.Len() == 0 {
		if f.open.Len() == 0 {
			return nil
		}
		return heap.Pop(f.open).(*ctNode)
	}
	n := heap.Pop(&f.focal).(*ctNode)
	heap.Remove(f.open, n.openIndex)
	return n
}
