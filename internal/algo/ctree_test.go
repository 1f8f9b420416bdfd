package algo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elektrokombinacija/cbs-mapf/internal/core"
)

func ctn(id, cost, conflicts int) *ctNode {
	return &ctNode{id: id, cost: cost, lowerBound: cost, conflicts: make([]Conflict, conflicts)}
}

func popIDs(f *frontier) []int {
	var ids []int
	for n := f.pop(); n != nil; n = f.pop() {
		ids = append(ids, n.id)
	}
	return ids
}

func TestFrontierOptimalOrder(t *testing.T) {
	f := newFrontier(1, func(n *ctNode) int { return n.cost })
	f.push(ctn(0, 10, 3))
	f.push(ctn(1, 8, 5))
	f.push(ctn(2, 10, 1))
	f.push(ctn(3, 8, 5))

	assert.Equal(t, []int{1, 3, 2, 0}, popIDs(f))
	assert.Equal(t, 0, f.Len())
}

func TestFrontierFocalPrefersFewerConflicts(t *testing.T) {
	f := newFrontier(1.5, func(n *ctNode) int { return n.cost })
	f.push(ctn(0, 10, 5))
	f.push(ctn(1, 12, 1))
	f.push(ctn(2, 16, 0))

	// Threshold 15 admits nodes 0 and 1; node 2 waits for the minimum to rise.
	assert.Equal(t, []int{1, 0, 2}, popIDs(f))
}

func TestFrontierRebuildsFocalWhenThresholdDrops(t *testing.T) {
	f := newFrontier(1.5, func(n *ctNode) int { return n.cost })
	f.push(ctn(0, 20, 3))
	f.push(ctn(1, 28, 0))

	require.Equal(t, 1, f.pop().id)

	f.push(ctn(2, 12, 5))
	// Minimum is now 12, threshold 18: node 0 leaves focal.
	assert.Equal(t, 2, f.pop().id)
	assert.Equal(t, 0, f.pop().id)
	assert.Nil(t, f.pop())
}

func TestFrontierKeyedByLowerBound(t *testing.T) {
	f := newFrontier(1.5, func(n *ctNode) int { return n.lowerBound })
	a := ctn(0, 14, 2)
	a.lowerBound = 10
	b := ctn(1, 16, 0)
	b.lowerBound = 11

	f.push(a)
	f.push(b)
	assert.Equal(t, 10, f.minKey())
	// Threshold 15 keeps b (cost 16) out of focal despite its conflicts.
	assert.Equal(t, 0, f.pop().id)
	assert.Equal(t, 1, f.pop().id)
}

func TestConstraintTreeCollectsAlongAncestors(t *testing.T) {
	var tree constraintTree
	root := &ctNode{parent: -1}
	tree.add(root)
	c1 := &ctNode{parent: root.id, delta: []Constraint{{Agent: 0, Kind: VertexConstraint, Loc: 3, Time: 1}}}
	tree.add(c1)
	c2 := &ctNode{parent: c1.id, delta: []Constraint{
		{Agent: 1, Kind: EdgeConstraint, From: 2, Loc: 3, Time: 2},
		{Agent: 0, Kind: VertexConstraint, Loc: 4, Time: 2},
	}}
	tree.add(c2)

	assert.Equal(t, 3, tree.size())
	assert.Equal(t, 2, c2.id)
	assert.Len(t, tree.constraintsFor(c2.id, 0), 2)
	assert.Len(t, tree.constraintsFor(c2.id, 1), 1)
	assert.Empty(t, tree.constraintsFor(c1.id, 1))

	tree.release(c1)
	assert.Nil(t, c1.paths)
	assert.Len(t, tree.constraintsFor(c2.id, 0), 2, "release keeps deltas")
}

func TestNodeInfo(t *testing.T) {
	n := ctn(7, 12, 2)
	n.parent = 3
	n.depth = 4
	info := n.info()
	assert.Equal(t, NodeInfo{ID: 7, ParentID: 3, Depth: 4, Cost: 12, LowerBound: 12, Conflicts: 2}, info)
}

func TestBypassRevertsReplannedBound(t *testing.T) {
	s := &search{cfg: Config{PrioritizeConflicts: true}}
	narrow := &mdd{goal: 2, levels: [][]core.Location{{0}, {1}, {2}}}
	wide := &mdd{goal: 5, levels: [][]core.Location{{3}, {1, 4}, {5}}}
	tight := &mdd{goal: 5, levels: [][]core.Location{{3}, {1}, {5}}}
	clash := Conflict{Agent1: 0, Agent2: 1, Kind: VertexConflict, Loc: 1, Time: 1, Class: Cardinal}

	node := &ctNode{
		id: 4, depth: 2,
		costs: []int{3, 5}, bounds: []int{3, 4},
		cost: 8, lowerBound: 7,
		mdds:      []*mdd{narrow, wide},
		conflicts: []Conflict{clash, clash},
	}
	child := &ctNode{
		id: 9, parent: 4, depth: 3, replanned: 1,
		delta: []Constraint{{Agent: 1, Kind: VertexConstraint, Loc: 4, Time: 1}},
		costs: []int{3, 5}, bounds: []int{3, 5},
		cost: 8, lowerBound: 8,
		mdds:      []*mdd{narrow, tight},
		conflicts: []Conflict{clash},
	}

	b := s.bypass(node, []*ctNode{nil, child})
	require.NotNil(t, b)
	assert.Equal(t, 4, b.parent)
	assert.Equal(t, 2, b.depth)
	assert.Nil(t, b.delta)
	assert.Equal(t, []int{3, 4}, b.bounds)
	assert.Equal(t, 7, b.lowerBound)
	assert.Same(t, wide, b.mdds[1])
	require.Len(t, b.conflicts, 1)
	assert.Equal(t, SemiCardinal, b.conflicts[0].Class)
	assert.Equal(t, []int{3, 5}, child.bounds, "child left untouched")

	// A cheaper path is off node's MDD, so the diagram is dropped.
	child.costs = []int{3, 4}
	child.cost = 7
	b = s.bypass(node, []*ctNode{child})
	require.NotNil(t, b)
	assert.Nil(t, b.mdds[1])
	assert.Equal(t, CardinalityUnknown, b.conflicts[0].Class)

	// No gain in conflicts: nothing to adopt.
	child.conflicts = []Conflict{clash, clash}
	assert.Nil(t, s.bypass(node, []*ctNode{child}))
}
