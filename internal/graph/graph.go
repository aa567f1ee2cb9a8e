// Package graph builds the constraint-filtered, directed adjacency model over
// vehicle start positions and delivery positions.
//
// Delivery nodes use the delivery id (positive). Vehicle start nodes use
// VehicleNode(i) = -(i+1) for the i-th vehicle in input order, so the two id
// spaces never overlap.
package graph

import (
	"dronenav/internal/geo"
	"dronenav/internal/model"
)

// Edge is a directed arc to To with a scalar cost.
type Edge struct {
	To   int
	Cost float64
}

// Graph is an adjacency list with node positions. Nodes keeps insertion
// order (deliveries first, then vehicle starts) so iteration is stable.
type Graph struct {
	Nodes     []int
	Positions map[int]model.Point
	Adj       map[int][]Edge
}

// VehicleNode returns the node id of the i-th vehicle's start position.
func VehicleNode(i int) int { return -(i + 1) }

// IsVehicleNode reports whether id lies in the vehicle id space.
func IsVehicleNode(id int) bool { return id < 0 }

// Neighbors returns the outgoing edges of id.
func (g *Graph) Neighbors(id int) []Edge { return g.Adj[id] }

// Has reports whether id is a node of g.
func (g *Graph) Has(id int) bool {
	_, ok := g.Positions[id]
	return ok
}

// EdgeCount returns the number of arcs.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, es := range g.Adj {
		n += len(es)
	}
	return n
}

// Build constructs the graph for one optimization run.
//
// Every ordered pair (src, dst) with dst a delivery and src != dst gets an
// edge with cost geo.Cost(distance, dst.Weight, dst.Priority, penalty), where
// penalty is noFlyPenalty when the straight segment crosses a zone. Edges out
// of a vehicle start are dropped when the delivery outweighs the vehicle's
// capacity or lies farther than its full battery allows. Delivery→delivery
// edges are never filtered: capacity and energy are only checked on the
// first hop.
func Build(deliveries []model.Delivery, vehicles []model.Vehicle, zones []model.NoFlyZone, noFlyPenalty float64) *Graph {
	g := &Graph{
		Nodes:     make([]int, 0, len(deliveries)+len(vehicles)),
		Positions: make(map[int]model.Point, len(deliveries)+len(vehicles)),
		Adj:       make(map[int][]Edge, len(deliveries)+len(vehicles)),
	}
	byID := make(map[int]model.Delivery, len(deliveries))
	for _, d := range deliveries {
		g.Nodes = append(g.Nodes, d.ID)
		g.Positions[d.ID] = d.Pos
		byID[d.ID] = d
	}
	vehicleByNode := make(map[int]model.Vehicle, len(vehicles))
	for i, v := range vehicles {
		id := VehicleNode(i)
		g.Nodes = append(g.Nodes, id)
		g.Positions[id] = v.Start
		vehicleByNode[id] = v
	}
	for _, src := range g.Nodes {
		srcPos := g.Positions[src]
		edges := []Edge{}
		for _, dst := range g.Nodes {
			if src == dst || IsVehicleNode(dst) {
				continue
			}
			d := byID[dst]
			dist := geo.Distance(srcPos, d.Pos)
			penalty := 0.0
			if geo.EdgeCrossesZones(srcPos, d.Pos, zones) {
				penalty = noFlyPenalty
			}
			if IsVehicleNode(src) {
				v := vehicleByNode[src]
				if d.Weight > v.MaxWeight {
					continue
				}
				if dist > v.Battery {
					continue
				}
			}
			edges = append(edges, Edge{To: dst, Cost: geo.Cost(dist, d.Weight, d.Priority, penalty)})
		}
		g.Adj[src] = edges
	}
	return g
}
