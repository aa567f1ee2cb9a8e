// Package report turns an optimized assignment into a human-facing summary:
// completion, fitness, rule and time-window violations, per-leg trace and
// detours around no-fly zones.
package report

import (
	"dronenav/internal/astar"
	"dronenav/internal/geo"
	"dronenav/internal/graph"
	"dronenav/internal/model"
	"dronenav/internal/opt"
)

// Detour is the graph path suggested for a leg whose straight segment
// crosses a no-fly zone. Path holds graph node ids (see graph.VehicleNode).
type Detour struct {
	VehicleID  int   `json:"vehicleId"`
	DeliveryID int   `json:"deliveryId"`
	Path       []int `json:"path,omitempty"`
	Found      bool  `json:"found"`
}

type Report struct {
	Summary    model.Summary  `json:"summary"`
	Evaluation opt.Evaluation `json:"evaluation"`
	Legs       []opt.Leg      `json:"legs"`
	Detours    []Detour       `json:"detours,omitempty"`
}

// Options for Analyze.
type Options struct {
	StartTime    model.Clock
	Weights      opt.Weights
	NoFlyPenalty float64
}

// Analyze reports on sol. The rule and time-window counts come from a
// separate pass that flies every leg regardless of violations, so they can
// differ from the evaluator's, which skips infeasible legs.
func Analyze(s model.Scenario, sol opt.Solution, o Options) Report {
	ev, legs := opt.NewEvaluator(s, o.StartTime, o.Weights).Trace(sol)
	rules, late := countViolations(s, sol, o.StartTime)
	total := len(s.Deliveries)
	assigned := sol.Assigned()
	pct := 0.0
	if total > 0 {
		pct = 100 * float64(assigned) / float64(total)
	}
	return Report{
		Summary: model.Summary{
			Assigned:       assigned,
			Total:          total,
			Percent:        pct,
			Fitness:        ev.Score,
			RuleViolations: rules,
			TimeViolations: late,
		},
		Evaluation: ev,
		Legs:       legs,
		Detours:    Detours(s, legs, o.NoFlyPenalty),
	}
}

func countViolations(s model.Scenario, sol opt.Solution, start model.Clock) (rules, late int) {
	vehicles := map[int]model.Vehicle{}
	for _, v := range s.Vehicles {
		vehicles[v.ID] = v
	}
	deliveries := map[int]model.Delivery{}
	for _, d := range s.Deliveries {
		deliveries[d.ID] = d
	}
	for _, p := range sol.Plans {
		v, ok := vehicles[p.VehicleID]
		if !ok {
			rules += len(p.Order)
			continue
		}
		pos, energy, clock := v.Start, v.Battery, start
		for _, id := range p.Order {
			d, ok := deliveries[id]
			if !ok {
				rules++
				continue
			}
			dist := geo.Distance(pos, d.Pos)
			if d.Weight > v.MaxWeight || dist > energy || geo.EdgeCrossesZones(pos, d.Pos, s.Zones) {
				rules++
			}
			clock = clock.Add(model.TravelTime(dist, v.Speed))
			if !d.Window.Contains(clock) {
				late++
			}
			energy -= dist
			pos = d.Pos
		}
	}
	return rules, late
}

// Detours searches the scenario graph for every no-fly leg in legs.
func Detours(s model.Scenario, legs []opt.Leg, noFlyPenalty float64) []Detour {
	var g *graph.Graph
	vehicleIdx := map[int]int{}
	for i, v := range s.Vehicles {
		vehicleIdx[v.ID] = i
	}
	var out []Detour
	prev := map[int]int{} // vehicle id -> node the vehicle is at
	for _, l := range legs {
		from, ok := prev[l.VehicleID]
		if !ok {
			from = graph.VehicleNode(vehicleIdx[l.VehicleID])
		}
		switch l.Outcome {
		case opt.OutcomeNoFly:
			if g == nil {
				g = graph.Build(s.Deliveries, s.Vehicles, s.Zones, noFlyPenalty)
			}
			path, found := astar.FindPath(g, from, l.DeliveryID)
			out = append(out, Detour{VehicleID: l.VehicleID, DeliveryID: l.DeliveryID, Path: path, Found: found})
			prev[l.VehicleID] = l.DeliveryID
		case opt.OutcomeDelivered, opt.OutcomeLate:
			prev[l.VehicleID] = l.DeliveryID
		}
	}
	return out
}
