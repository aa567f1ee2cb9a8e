package opt

import (
	"dronenav/internal/geo"
	"dronenav/internal/model"
)

// Weights are the fitness coefficients. Score is
// Delivered*n - Energy*e - Violation*v - TimeViolation*t.
type Weights struct {
	Delivered     float64 `json:"delivered" yaml:"delivered" mapstructure:"delivered"`
	Energy        float64 `json:"energy" yaml:"energy" mapstructure:"energy"`
	Violation     float64 `json:"violation" yaml:"violation" mapstructure:"violation"`
	TimeViolation float64 `json:"timeViolation" yaml:"timeViolation" mapstructure:"timeViolation"`
}

func DefaultWeights() Weights {
	return Weights{Delivered: 50, Energy: 0.1, Violation: 1000, TimeViolation: 500}
}

// WithOverrides returns w with any of the named keys in m replaced.
func (w Weights) WithOverrides(m map[string]float64) Weights {
	for k, v := range m {
		switch k {
		case "delivered":
			w.Delivered = v
		case "energy":
			w.Energy = v
		case "violation":
			w.Violation = v
		case "timeViolation":
			w.TimeViolation = v
		}
	}
	return w
}

// Evaluation is the outcome of simulating one Solution.
type Evaluation struct {
	Delivered      int     `json:"delivered"`
	Violations     int     `json:"violations"`
	TimeViolations int     `json:"timeViolations"`
	Energy         float64 `json:"energy"`
	Score          float64 `json:"score"`
}

// Outcome classifies a single simulated leg.
type Outcome string

const (
	OutcomeDelivered  Outcome = "delivered"
	OutcomeLate       Outcome = "late"
	OutcomeOverweight Outcome = "overweight"
	OutcomeOutOfRange Outcome = "out_of_range"
	OutcomeNoFly      Outcome = "no_fly"
	OutcomeUnknown    Outcome = "unknown"
)

// State is a vehicle's simulated position, remaining energy and clock.
type State struct {
	Pos    model.Point `json:"pos"`
	Energy float64     `json:"energy"`
	Clock  model.Clock `json:"clock"`
}

// Leg is one attempted delivery in a trace. After is the vehicle state once
// the leg has been applied (equal to the previous state for skipped legs).
type Leg struct {
	VehicleID  int         `json:"vehicleId"`
	DeliveryID int         `json:"deliveryId"`
	From       model.Point `json:"from"`
	To         model.Point `json:"to"`
	Distance   float64     `json:"distance"`
	Arrival    model.Clock `json:"arrival"`
	Outcome    Outcome     `json:"outcome"`
	After      State       `json:"after"`
}

// Evaluator scores solutions against one scenario. It only reads its maps
// after construction and is safe for concurrent use.
type Evaluator struct {
	vehicles   map[int]model.Vehicle
	deliveries map[int]model.Delivery
	zones      []model.NoFlyZone
	start      model.Clock
	weights    Weights
}

func NewEvaluator(s model.Scenario, start model.Clock, w Weights) *Evaluator {
	e := &Evaluator{
		vehicles:   make(map[int]model.Vehicle, len(s.Vehicles)),
		deliveries: make(map[int]model.Delivery, len(s.Deliveries)),
		zones:      s.Zones,
		start:      start,
		weights:    w,
	}
	for _, v := range s.Vehicles {
		e.vehicles[v.ID] = v
	}
	for _, d := range s.Deliveries {
		e.deliveries[d.ID] = d
	}
	return e
}

// Evaluate simulates sol and returns its score.
func (e *Evaluator) Evaluate(sol Solution) Evaluation {
	return e.simulate(sol, nil)
}

// Trace simulates sol and also returns every leg in execution order.
func (e *Evaluator) Trace(sol Solution) (Evaluation, []Leg) {
	var legs []Leg
	ev := e.simulate(sol, func(l Leg) { legs = append(legs, l) })
	return ev, legs
}

func (e *Evaluator) simulate(sol Solution, visit func(Leg)) Evaluation {
	var ev Evaluation
	for _, plan := range sol.Plans {
		v, ok := e.vehicles[plan.VehicleID]
		if !ok {
			// unknown vehicle: nothing on its plan can be flown
			for _, id := range plan.Order {
				ev.Violations++
				if visit != nil {
					visit(Leg{VehicleID: plan.VehicleID, DeliveryID: id, Outcome: OutcomeUnknown})
				}
			}
			continue
		}
		st := State{Pos: v.Start, Energy: v.Battery, Clock: e.start}
		for _, id := range plan.Order {
			d, ok := e.deliveries[id]
			if !ok {
				ev.Violations++
				if visit != nil {
					visit(Leg{VehicleID: v.ID, DeliveryID: id, From: st.Pos, Outcome: OutcomeUnknown, After: st})
				}
				continue
			}
			dist := geo.Distance(st.Pos, d.Pos)
			leg := Leg{VehicleID: v.ID, DeliveryID: id, From: st.Pos, To: d.Pos, Distance: dist}
			switch {
			case d.Weight > v.MaxWeight:
				ev.Violations++
				leg.Outcome = OutcomeOverweight
			case dist > st.Energy:
				ev.Violations++
				leg.Outcome = OutcomeOutOfRange
			case geo.EdgeCrossesZones(st.Pos, d.Pos, e.zones):
				// flown anyway: energy and position move, the clock does not
				ev.Violations++
				ev.Energy += dist
				st.Energy -= dist
				st.Pos = d.Pos
				leg.Outcome = OutcomeNoFly
				leg.Arrival = st.Clock
			default:
				arrival := st.Clock.Add(model.TravelTime(dist, v.Speed))
				leg.Outcome = OutcomeDelivered
				if !d.Window.Contains(arrival) {
					ev.TimeViolations++
					leg.Outcome = OutcomeLate
				}
				ev.Delivered++
				ev.Energy += dist
				st.Energy -= dist
				st.Clock = arrival
				st.Pos = d.Pos
				leg.Arrival = arrival
			}
			leg.After = st
			if visit != nil {
				visit(leg)
			}
		}
	}
	w := e.weights
	ev.Score = float64(ev.Delivered)*w.Delivered - ev.Energy*w.Energy -
		float64(ev.Violations)*w.Violation - float64(ev.TimeViolations)*w.TimeViolation
	return ev
}
