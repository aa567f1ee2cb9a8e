package report

import (
	"encoding/json"

	geom "github.com/peterstace/simplefeatures/geom"

	"dronenav/internal/geo"
	"dronenav/internal/model"
	"dronenav/internal/opt"
)

// GeoJSON renders the scenario and the routes of sol as a FeatureCollection:
// zones as polygons, vehicle starts and deliveries as points, one line string
// per non-empty route.
func GeoJSON(s model.Scenario, sol opt.Solution) ([]byte, error) {
	var fc geom.GeoJSONFeatureCollection
	for _, z := range s.Zones {
		poly, err := geo.ZonePolygon(z)
		if err != nil {
			continue
		}
		fc = append(fc, geom.GeoJSONFeature{
			Geometry:   poly.AsGeometry(),
			ID:         z.ID,
			Properties: map[string]interface{}{"kind": "noFlyZone", "area": poly.Area(), "activeStart": z.Active.Start.String(), "activeEnd": z.Active.End.String()},
		})
	}
	starts := map[int]model.Point{}
	for _, v := range s.Vehicles {
		starts[v.ID] = v.Start
		fc = append(fc, geom.GeoJSONFeature{
			Geometry:   geo.PointGeometry(v.Start),
			ID:         v.ID,
			Properties: map[string]interface{}{"kind": "vehicle", "maxWeight": v.MaxWeight, "battery": v.Battery, "speed": v.Speed},
		})
	}
	pos := map[int]model.Point{}
	for _, d := range s.Deliveries {
		pos[d.ID] = d.Pos
		fc = append(fc, geom.GeoJSONFeature{
			Geometry:   geo.PointGeometry(d.Pos),
			ID:         d.ID,
			Properties: map[string]interface{}{"kind": "delivery", "weight": d.Weight, "priority": d.Priority},
		})
	}
	for _, p := range sol.Plans {
		start, ok := starts[p.VehicleID]
		if !ok || len(p.Order) == 0 {
			continue
		}
		pts := []model.Point{start}
		for _, id := range p.Order {
			if q, ok := pos[id]; ok {
				pts = append(pts, q)
			}
		}
		if len(pts) < 2 {
			continue
		}
		ls := geo.PathLineString(pts)
		fc = append(fc, geom.GeoJSONFeature{
			Geometry:   ls.AsGeometry(),
			Properties: map[string]interface{}{"kind": "route", "vehicleId": p.VehicleID, "deliveries": p.Order, "length": ls.Length()},
		})
	}
	if fc == nil {
		fc = geom.GeoJSONFeatureCollection{}
	}
	return json.Marshal(fc)
}
