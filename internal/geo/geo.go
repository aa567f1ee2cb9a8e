// Package geo holds the planar geometry used by route construction and
// simulation: distances, segment intersection against no-fly polygons and the
// static edge cost model.
package geo

import (
	"math"

	"dronenav/internal/model"
)

// priorityWeight scales a delivery's priority rank into edge cost.
const priorityWeight = 100.0

// Distance returns the Euclidean distance between p and q.
func Distance(p, q model.Point) float64 {
	dx := p.X - q.X
	dy := p.Y - q.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// ccw reports whether a, b, c make a strict counter-clockwise turn.
func ccw(a, b, c model.Point) bool {
	return (c.Y-a.Y)*(b.X-a.X) > (b.Y-a.Y)*(c.X-a.X)
}

// SegmentsIntersect reports whether segment ab crosses segment cd.
//
// The orientation test is strict: collinear overlaps and shared endpoints are
// not treated specially and usually report false. Degenerate (zero-length)
// segments simply fall out of the same comparisons.
func SegmentsIntersect(a, b, c, d model.Point) bool {
	return ccw(a, c, d) != ccw(b, c, d) && ccw(a, b, c) != ccw(a, b, d)
}

// EdgeCrossesZones reports whether the straight segment start→end crosses
// any polygon edge of any zone. Zones are scanned in order and each polygon's
// edges in vertex order, closing edge last.
func EdgeCrossesZones(start, end model.Point, zones []model.NoFlyZone) bool {
	for _, z := range zones {
		n := len(z.Vertices)
		for i := 0; i < n; i++ {
			if SegmentsIntersect(start, end, z.Vertices[i], z.Vertices[(i+1)%n]) {
				return true
			}
		}
	}
	return false
}

// Cost is the static edge cost: distance·weight + priority·100 + penalty.
func Cost(distance, weight float64, priority int, noFlyPenalty float64) float64 {
	return distance*weight + float64(priority)*priorityWeight + noFlyPenalty
}
