package opt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dronenav/internal/model"
)

func wideWindow() model.Window {
	return model.Window{Start: model.MustClock("00:00"), End: model.MustClock("23:59")}
}

func oneVehicle(ds ...model.Delivery) model.Scenario {
	return model.Scenario{
		Vehicles:   []model.Vehicle{{ID: 1, MaxWeight: 10, Battery: 100, Speed: 10}},
		Deliveries: ds,
	}
}

func plan(order ...int) Solution {
	return Solution{Plans: []RoutePlan{{VehicleID: 1, Order: order}}}
}

func newEval(s model.Scenario) *Evaluator {
	return NewEvaluator(s, model.MustClock("09:00"), DefaultWeights())
}

func TestEvaluate_AllFeasible(t *testing.T) {
	w := model.Window{Start: model.MustClock("09:00"), End: model.MustClock("10:00")}
	s := oneVehicle(
		model.Delivery{ID: 1, Pos: model.Point{X: 1}, Weight: 1, Priority: 1, Window: w},
		model.Delivery{ID: 2, Pos: model.Point{X: 2}, Weight: 1, Priority: 1, Window: w},
	)
	ev, legs := newEval(s).Trace(plan(1, 2))
	assert.Equal(t, 2, ev.Delivered)
	assert.Zero(t, ev.Violations)
	assert.Zero(t, ev.TimeViolations)
	assert.InDelta(t, 2.0, ev.Energy, 1e-9)
	assert.InDelta(t, 100-0.2, ev.Score, 1e-9)

	require.Len(t, legs, 2)
	assert.Equal(t, OutcomeDelivered, legs[1].Outcome)
	assert.Equal(t, model.MustClock("09:12"), legs[1].Arrival)
	assert.Equal(t, model.Point{X: 2}, legs[1].After.Pos)
	assert.InDelta(t, 98.0, legs[1].After.Energy, 1e-9)
}

func TestEvaluate_OverweightLeavesStateUnchanged(t *testing.T) {
	s := oneVehicle(model.Delivery{ID: 1, Pos: model.Point{X: 3, Y: 4}, Weight: 20, Window: wideWindow()})
	ev, legs := newEval(s).Trace(plan(1))
	assert.Zero(t, ev.Delivered)
	assert.Equal(t, 1, ev.Violations)
	assert.Zero(t, ev.Energy)
	assert.InDelta(t, -1000.0, ev.Score, 1e-9)

	require.Len(t, legs, 1)
	assert.Equal(t, OutcomeOverweight, legs[0].Outcome)
	assert.Equal(t, State{Pos: model.Point{}, Energy: 100, Clock: model.MustClock("09:00")}, legs[0].After)
}

func TestEvaluate_OutOfRangeSkipsTask(t *testing.T) {
	s := oneVehicle(
		model.Delivery{ID: 1, Pos: model.Point{X: 200}, Weight: 1, Window: wideWindow()},
		model.Delivery{ID: 2, Pos: model.Point{X: 5}, Weight: 1, Window: wideWindow()},
	)
	ev, legs := newEval(s).Trace(plan(1, 2))
	assert.Equal(t, 1, ev.Violations)
	assert.Equal(t, 1, ev.Delivered)
	assert.Equal(t, OutcomeOutOfRange, legs[0].Outcome)
	// second leg starts from the depot since the first was skipped
	assert.InDelta(t, 5.0, legs[1].Distance, 1e-9)
}

func TestEvaluate_NoFlyConsumesEnergyButNotTime(t *testing.T) {
	s := oneVehicle(
		model.Delivery{ID: 1, Pos: model.Point{X: 4}, Weight: 1, Window: wideWindow()},
		model.Delivery{ID: 2, Pos: model.Point{X: 5}, Weight: 1, Window: wideWindow()},
	)
	s.Zones = []model.NoFlyZone{{ID: 1, Vertices: []model.Point{{X: 1, Y: -1}, {X: 3, Y: -1}, {X: 3, Y: 1}, {X: 1, Y: 1}}}}
	ev, legs := newEval(s).Trace(plan(1, 2))

	assert.Equal(t, 1, ev.Violations)
	assert.Equal(t, 1, ev.Delivered)
	assert.InDelta(t, 5.0, ev.Energy, 1e-9)

	require.Len(t, legs, 2)
	assert.Equal(t, OutcomeNoFly, legs[0].Outcome)
	assert.Equal(t, State{Pos: model.Point{X: 4}, Energy: 96, Clock: model.MustClock("09:00")}, legs[0].After)
	assert.Equal(t, model.MustClock("09:06"), legs[1].Arrival)
}

func TestEvaluate_TimeWindowViolationStillDelivers(t *testing.T) {
	w := model.Window{Start: model.MustClock("10:00"), End: model.MustClock("11:00")}
	s := oneVehicle(model.Delivery{ID: 1, Pos: model.Point{X: 1}, Weight: 1, Window: w})
	ev, legs := newEval(s).Trace(plan(1))
	assert.Equal(t, 1, ev.Delivered)
	assert.Equal(t, 1, ev.TimeViolations)
	assert.Zero(t, ev.Violations)
	assert.InDelta(t, 50-0.1-500, ev.Score, 1e-9)
	assert.Equal(t, OutcomeLate, legs[0].Outcome)
}

func TestEvaluate_UnknownIDs(t *testing.T) {
	s := oneVehicle(model.Delivery{ID: 1, Pos: model.Point{X: 1}, Weight: 1, Window: wideWindow()})
	sol := Solution{Plans: []RoutePlan{
		{VehicleID: 1, Order: []int{99, 1}},
		{VehicleID: 7, Order: []int{1}},
	}}
	ev := newEval(s).Evaluate(sol)
	assert.Equal(t, 2, ev.Violations)
	assert.Equal(t, 1, ev.Delivered)
}

func TestEvaluate_CustomWeights(t *testing.T) {
	s := oneVehicle(model.Delivery{ID: 1, Pos: model.Point{X: 1}, Weight: 1, Window: wideWindow()})
	w := DefaultWeights().WithOverrides(map[string]float64{"delivered": 10, "energy": 0, "bogus": 3})
	ev := NewEvaluator(s, model.MustClock("09:00"), w).Evaluate(plan(1))
	assert.InDelta(t, 10.0, ev.Score, 1e-9)
}
