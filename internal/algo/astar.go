package algo

import (
	"container/heap"
	"context"
	"fmt"

	"github.com/elektrokombinacija/cbs-mapf/internal/core"
)

// ctxCheckInterval is how many expansions pass between context checks.
const ctxCheckInterval = 1024

// spaceTimeKey identifies a search state. Times past the constraint limit
// collapse onto limit+1, turning the search spatial.
type spaceTimeKey struct {
	loc core.Location
	t   int
}

// astarNode for the open and focal queues.
type astarNode struct {
	loc        core.Location
	t          int
	g, h       int
	conflicts  int
	parent     *astarNode
	closed     bool
	openIndex  int
	focalIndex int
}

func (n *astarNode) f() int { return n.g + n.h }

// openHeap orders by f, then deeper g, then location and time.
type openHeap []*astarNode

func (h openHeap) Len() int { return len(h) }
func (h openHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if a.f() != b.f() {
		return a.f() < b.f()
	}
	if a.g != b.g {
		return a.g > b.g
	}
	if a.loc != b.loc {
		return a.loc < b.loc
	}
	return a.t < b.t
}
func (h openHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].openIndex = i
	h[j].openIndex = j
}
func (h *openHeap) Push(x any) {
	n := x.(*astarNode)
	n.openIndex = len(*h)
	*h = append(*h, n)
}
func (h *openHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	x.openIndex = -1
	*h = old[0 : n-1]
	return x
}

// focalHeap orders by conflicts with other agents, then as openHeap.
type focalHeap []*astarNode

func (h focalHeap) Len() int { return len(h) }
func (h focalHeap) Less(i, j int) bool {
	if h[i].conflicts != h[j].conflicts {
		return h[i].conflicts < h[j].conflicts
	}
	return openHeap(h).Less(i, j)
}
func (h focalHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].focalIndex = i
	h[j].focalIndex = j
}
func (h *focalHeap) Push(x any) {
	n := x.(*astarNode)
	n.focalIndex = len(*h)
	*h = append(*h, n)
}
func (h *focalHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	x.focalIndex = -1
	*h = old[0 : n-1]
	return x
}

// lowLevelRequest is one constrained single-agent search.
type lowLevelRequest struct {
	graph   core.Graph
	agent   *core.Agent
	dist    []int
	table   *constraintTable
	horizon int
	// weight > 1 enables the focal list.
	weight float64
	// others counts collisions for the focal ordering; may be nil.
	others *reservationTable
	// floor is a known lower bound on the cost, e.g. from the parent node.
	floor int
}

type lowLevelResult struct {
	path       core.Path
	cost       int
	lowerBound int
	expanded   int
}

// spaceTimeAStar finds a path for req.agent that honours req.table.
// In focal mode the returned cost is at most weight times the lower bound.
func spaceTimeAStar(ctx context.Context, req *lowLevelRequest) (*lowLevelResult, error) {
	agent := req.agent
	if req.dist[agent.Start] == Unreachable {
		return nil, fmt.Errorf("%w: agent %d cannot reach its goal", ErrAgentInfeasible, agent.ID)
	}
	focal := req.weight > 1
	limit := req.table.limit

	keyOf := func(loc core.Location, t int) spaceTimeKey {
		if t > limit {
			t = limit + 1
		}
		return spaceTimeKey{loc, t}
	}
	admissible := func(f, fMin int) bool {
		return float64(f) <= req.weight*float64(fMin)
	}

	start := &astarNode{loc: agent.Start, h: req.dist[agent.Start], openIndex: -1, focalIndex: -1}
	seen := map[spaceTimeKey]*astarNode{keyOf(agent.Start, 0): start}
	open := &openHeap{}
	fq := &focalHeap{}
	heap.Push(open, start)
	if focal {
		heap.Push(fq, start)
	}
	fMin := start.f()

	expanded := 0
	for open.Len() > 0 {
		if expanded%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		var cur *astarNode
		if focal {
			// Step 1: top up the focal list when the open minimum rises
			if minF := (*open)[0].f(); minF > fMin {
				for _, n := range *open {
					if n.focalIndex < 0 && admissible(n.f(), minF) {
						heap.Push(fq, n)
					}
				}
				fMin = minF
			}
			cur = heap.Pop(fq).(*astarNode)
			heap.Remove(open, cur.openIndex)
		} else {
			cur = heap.Pop(open).(*astarNode)
			fMin = cur.f()
		}
		cur.closed = true
		expanded++

		// Step 2: goal test with the stay-at-goal look-ahead
		if cur.loc == agent.Goal && req.table.canSettle(cur.loc, cur.t) {
			lb := fMin
			if lb > cur.g {
				lb = cur.g
			}
			if req.floor > lb {
				lb = req.floor
			}
			return &lowLevelResult{
				path:       reconstructPath(cur),
				cost:       cur.g,
				lowerBound: lb,
				expanded:   expanded,
			}, nil
		}

		// Step 3: expand moves, and waits while constraints still bite
		nt := cur.t + 1
		if nt > req.horizon {
			continue
		}
		for _, next := range successors(req.graph, cur.loc) {
			if next == cur.loc && cur.t > limit {
				continue
			}
			h := req.dist[next]
			if h == Unreachable || req.table.blocked(cur.loc, next, nt) {
				continue
			}
			g := cur.g + req.graph.TraversalCost(cur.loc, next)
			conflicts := cur.conflicts
			if focal {
				conflicts += req.others.count(cur.loc, next, nt)
			}

			key := keyOf(next, nt)
			if ex, ok := seen[key]; ok {
				if ex.closed && (!focal || g >= ex.g) {
					continue
				}
				if ex.closed {
					// Focal order expanded it on a longer path first. Reopen
					// as a fresh node so the closed node's subtree stays intact.
					n := &astarNode{
						loc: next, t: nt, g: g, h: h, conflicts: conflicts,
						parent: cur, openIndex: -1, focalIndex: -1,
					}
					seen[key] = n
					heap.Push(open, n)
					if admissible(n.f(), fMin) {
						heap.Push(fq, n)
					}
					continue
				}
				if g > ex.g || (g == ex.g && (!focal || conflicts >= ex.conflicts)) {
					continue
				}
				ex.t, ex.g, ex.conflicts, ex.parent = nt, g, conflicts, cur
				heap.Fix(open, ex.openIndex)
				if focal {
					if ex.focalIndex >= 0 {
						heap.Fix(fq, ex.focalIndex)
					} else if admissible(ex.f(), fMin) {
						heap.Push(fq, ex)
					}
				}
				continue
			}

			n := &astarNode{
				loc: next, t: nt, g: g, h: h, conflicts: conflicts,
				parent: cur, openIndex: -1, focalIndex: -1,
			}
			seen[key] = n
			heap.Push(open, n)
			if focal && admissible(n.f(), fMin) {
				heap.Push(fq, n)
			}
		}
	}

	return nil, fmt.Errorf("%w: agent %d", ErrAgentInfeasible, agent.ID)
}

// reconstructPath builds the path from start to n.
func reconstructPath(n *astarNode) core.Path {
	path := make(core.Path, n.t+1)
	for cur := n; cur != nil; cur = cur.parent {
		path[cur.t] = cur.loc
	}
	return path
}
