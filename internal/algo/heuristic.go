package algo

import (
	"container/heap"

	"github.com/elektrokombinacija/cbs-mapf/internal/core"
)

// Unreachable marks cells with no path to the goal in a distance table.
const Unreachable = -1

type distItem struct {
	loc   core.Location
	dist  int
	index int
}

type distHeap []*distItem

func (h distHeap) Len() int { return len(h) }
func (h distHeap) Less(i, j int) bool {
	if h[i].dist != h[j].dist {
		return h[i].dist < h[j].dist
	}
	return h[i].loc < h[j].loc
}
func (h distHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *distHeap) Push(x any) {
	it := x.(*distItem)
	it.index = len(*h)
	*h = append(*h, it)
}
func (h *distHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[0 : n-1]
	return x
}

// DistanceTable returns the shortest travel cost from every location to goal,
// ignoring other agents. Neighbor relations are assumed symmetric.
func DistanceTable(g core.Graph, goal core.Location) []int {
	dist := make([]int, g.NumLocations())
	for i := range dist {
		dist[i] = Unreachable
	}
	if !g.Passable(goal) {
		return dist
	}

	dist[goal] = 0
	pq := &distHeap{{loc: goal}}
	for pq.Len() > 0 {
		cur := heap.Pop(pq).(*distItem)
		if cur.dist > dist[cur.loc] {
			continue
		}
		for _, n := range g.Neighbors(cur.loc) {
			nd := cur.dist + g.TraversalCost(n, cur.loc)
			if dist[n] == Unreachable || nd < dist[n] {
				dist[n] = nd
				heap.Push(pq, &distItem{loc: n, dist: nd})
			}
		}
	}
	return dist
}
