// Package astar runs heuristic best-first shortest-path search over a
// graph.Graph using straight-line distance to the goal as the estimate.
package astar

import (
	"container/heap"

	"dronenav/internal/geo"
	"dronenav/internal/graph"
)

type item struct {
	node int
	f    float64
	seq  int
}

// openSet is a min-heap on f; equal f values pop in push order.
type openSet []item

func (h openSet) Len() int { return len(h) }
func (h openSet) Less(i, j int) bool {
	if h[i].f != h[j].f {
		return h[i].f < h[j].f
	}
	return h[i].seq < h[j].seq
}
func (h openSet) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *openSet) Push(x any)   { *h = append(*h, x.(item)) }
func (h *openSet) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}

// FindPath returns the node sequence from start to goal, inclusive, and true.
// It returns nil, false when goal cannot be reached or either endpoint is not
// a node of g. The heuristic is not guaranteed admissible under the graph's
// cost model, so expanded nodes are reopened whenever a cheaper route to them
// turns up; the path returned is the first one to reach goal.
func FindPath(g *graph.Graph, start, goal int) ([]int, bool) {
	if g == nil || !g.Has(start) || !g.Has(goal) {
		return nil, false
	}
	goalPos := g.Positions[goal]
	h := func(n int) float64 { return geo.Distance(g.Positions[n], goalPos) }

	gScore := map[int]float64{start: 0}
	cameFrom := map[int]int{}
	open := &openSet{}
	seq := 0
	heap.Push(open, item{node: start, f: h(start), seq: seq})

	for open.Len() > 0 {
		cur := heap.Pop(open).(item)
		if cur.node == goal {
			return reconstruct(cameFrom, start, goal), true
		}
		// superseded by a later, cheaper push of the same node
		if cur.f > gScore[cur.node]+h(cur.node) {
			continue
		}
		for _, e := range g.Neighbors(cur.node) {
			if e.To == cur.node {
				continue
			}
			tentative := gScore[cur.node] + e.Cost
			if old, seen := gScore[e.To]; seen && tentative >= old {
				continue
			}
			gScore[e.To] = tentative
			cameFrom[e.To] = cur.node
			seq++
			heap.Push(open, item{node: e.To, f: tentative + h(e.To), seq: seq})
		}
	}
	return nil, false
}

func reconstruct(cameFrom map[int]int, start, goal int) []int {
	path := []int{goal}
	for n := goal; n != start; {
		n = cameFrom[n]
		path = append(path, n)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
