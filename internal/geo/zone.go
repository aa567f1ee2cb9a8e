package geo

import (
	"fmt"

	geom "github.com/peterstace/simplefeatures/geom"

	"dronenav/internal/model"
)

// ZonePolygon converts a zone into a closed simple-features polygon. The
// ring is closed by repeating the first vertex. The returned error reports
// OGC validity problems (self-intersection, too few points); callers that
// only need the shape may ignore it.
func ZonePolygon(z model.NoFlyZone) (geom.Polygon, error) {
	if len(z.Vertices) < 3 {
		return geom.Polygon{}, fmt.Errorf("zone %d: need at least 3 vertices, got %d", z.ID, len(z.Vertices))
	}
	flat := make([]float64, 0, 2*(len(z.Vertices)+1))
	for _, v := range z.Vertices {
		flat = append(flat, v.X, v.Y)
	}
	flat = append(flat, z.Vertices[0].X, z.Vertices[0].Y)
	ring := geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
	poly := geom.NewPolygon([]geom.LineString{ring})
	if err := poly.Validate(); err != nil {
		return poly, fmt.Errorf("zone %d: %w", z.ID, err)
	}
	return poly, nil
}

// ZoneArea returns the planar area of a zone, or 0 when it cannot be built.
func ZoneArea(z model.NoFlyZone) float64 {
	poly, _ := ZonePolygon(z)
	return poly.Area()
}

// PathLineString builds a line string through the given points.
func PathLineString(pts []model.Point) geom.LineString {
	flat := make([]float64, 0, 2*len(pts))
	for _, p := range pts {
		flat = append(flat, p.X, p.Y)
	}
	return geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
}

// PointGeometry wraps a point as a simple-features geometry.
func PointGeometry(p model.Point) geom.Geometry {
	return geom.NewPoint(geom.Coordinates{XY: geom.XY{X: p.X, Y: p.Y}, Type: geom.DimXY}).AsGeometry()
}
