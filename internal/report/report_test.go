package report

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dronenav/internal/graph"
	"dronenav/internal/model"
	"dronenav/internal/opt"
)

func opts() Options {
	return Options{StartTime: model.MustClock("09:00"), Weights: opt.DefaultWeights(), NoFlyPenalty: 1000}
}

func wide() model.Window {
	return model.Window{Start: model.MustClock("00:00"), End: model.MustClock("23:59")}
}

func line() model.Scenario {
	return model.Scenario{
		Vehicles: []model.Vehicle{{ID: 1, MaxWeight: 100, Battery: 1000, Speed: 10}},
		Deliveries: []model.Delivery{
			{ID: 1, Pos: model.Point{X: 1}, Weight: 1, Priority: 1, Window: wide()},
			{ID: 2, Pos: model.Point{X: 2}, Weight: 1, Priority: 1, Window: wide()},
			{ID: 3, Pos: model.Point{X: 3}, Weight: 1, Priority: 1, Window: wide()},
		},
	}
}

func single(order ...int) opt.Solution {
	return opt.Solution{Plans: []opt.RoutePlan{{VehicleID: 1, Order: order}}}
}

func TestAnalyze_Clean(t *testing.T) {
	r := Analyze(line(), single(1, 2, 3), opts())
	assert.Equal(t, model.Summary{Assigned: 3, Total: 3, Percent: 100, Fitness: r.Evaluation.Score}, r.Summary)
	assert.InDelta(t, 150-0.3, r.Summary.Fitness, 1e-9)
	assert.Len(t, r.Legs, 3)
	assert.Empty(t, r.Detours)
}

func TestAnalyze_PartialAssignment(t *testing.T) {
	r := Analyze(line(), single(2), opts())
	assert.Equal(t, 1, r.Summary.Assigned)
	assert.InDelta(t, 100.0/3, r.Summary.Percent, 1e-9)
}

func TestAnalyze_CountsEveryLeg(t *testing.T) {
	s := line()
	s.Deliveries[0].Weight = 500
	s.Deliveries[2].Window = model.Window{Start: model.MustClock("10:00"), End: model.MustClock("11:00")}
	r := Analyze(s, single(1, 3), opts())

	// evaluator skips the overweight leg; the report still flies it
	assert.Equal(t, 1, r.Evaluation.Violations)
	assert.Equal(t, 1, r.Evaluation.Delivered)
	assert.Equal(t, 1, r.Summary.RuleViolations)
	assert.Equal(t, 1, r.Summary.TimeViolations)
	assert.Equal(t, 2, r.Summary.Assigned)
}

func TestAnalyze_ArrivalClockMatchesEvaluator(t *testing.T) {
	s := model.Scenario{
		Vehicles: []model.Vehicle{{ID: 1, MaxWeight: 100, Battery: 1000, Speed: 10}},
		Deliveries: []model.Delivery{
			{ID: 1, Pos: model.Point{X: 10}, Weight: 1, Priority: 1,
				Window: model.Window{Start: model.MustClock("10:00"), End: model.MustClock("10:00")}},
			{ID: 2, Pos: model.Point{X: 15}, Weight: 1, Priority: 1,
				Window: model.Window{Start: model.MustClock("10:31"), End: model.MustClock("11:00")}},
		},
	}
	r := Analyze(s, single(1, 2), opts())
	require.Len(t, r.Legs, 2)
	assert.Equal(t, model.MustClock("10:00"), r.Legs[0].Arrival)
	assert.Equal(t, model.MustClock("10:30"), r.Legs[1].Arrival)
	assert.Equal(t, 1, r.Evaluation.TimeViolations)
	assert.Equal(t, r.Evaluation.TimeViolations, r.Summary.TimeViolations)
}

func TestAnalyze_DetourForNoFlyLeg(t *testing.T) {
	s := model.Scenario{
		Vehicles: []model.Vehicle{{ID: 1, MaxWeight: 10, Battery: 100, Speed: 10}},
		Deliveries: []model.Delivery{
			{ID: 1, Pos: model.Point{X: 4}, Weight: 1, Priority: 1, Window: wide()},
			{ID: 2, Pos: model.Point{X: 4, Y: 4}, Weight: 1, Priority: 1, Window: wide()},
		},
		Zones: []model.NoFlyZone{{ID: 1, Vertices: []model.Point{{X: 1, Y: -1}, {X: 3, Y: -1}, {X: 3, Y: 1}, {X: 1, Y: 1}}}},
	}
	r := Analyze(s, single(1, 2), opts())
	require.Len(t, r.Detours, 1)
	d := r.Detours[0]
	assert.True(t, d.Found)
	assert.Equal(t, 1, d.DeliveryID)
	require.NotEmpty(t, d.Path)
	assert.Equal(t, graph.VehicleNode(0), d.Path[0])
	assert.Equal(t, 1, d.Path[len(d.Path)-1])
	assert.Equal(t, 1, r.Summary.RuleViolations)
}

func TestAnalyze_EmptyScenario(t *testing.T) {
	r := Analyze(model.Scenario{}, opt.Solution{}, opts())
	assert.Zero(t, r.Summary.Percent)
	assert.Zero(t, r.Summary.Total)
}

func TestGeoJSON(t *testing.T) {
	s := line()
	s.Zones = []model.NoFlyZone{{ID: 9, Vertices: []model.Point{{X: 5, Y: 5}, {X: 6, Y: 5}, {X: 6, Y: 6}, {X: 5, Y: 6}}}}
	b, err := GeoJSON(s, single(1, 2, 3))
	require.NoError(t, err)

	var doc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type string `json:"type"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(b, &doc))
	assert.Equal(t, "FeatureCollection", doc.Type)
	require.Len(t, doc.Features, 1+1+3+1)
	kinds := map[string]string{}
	for _, f := range doc.Features {
		kinds[f.Properties["kind"].(string)] = f.Geometry.Type
	}
	assert.Equal(t, "Polygon", kinds["noFlyZone"])
	assert.Equal(t, "Point", kinds["delivery"])
	assert.Equal(t, "LineString", kinds["route"])
}
