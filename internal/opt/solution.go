package opt

import "dronenav/internal/model"

// RoutePlan is one vehicle's ordered delivery ids.
type RoutePlan struct {
	VehicleID int
	Order     []int
}

// Solution is a chromosome: one plan per vehicle, in vehicle-list order.
// Each Solution owns its slices; operators never share them between
// population slots.
type Solution struct {
	Plans []RoutePlan
}

// Clone returns a deep copy of s.
func (s Solution) Clone() Solution {
	plans := make([]RoutePlan, len(s.Plans))
	for i, p := range s.Plans {
		plans[i] = RoutePlan{VehicleID: p.VehicleID, Order: append([]int(nil), p.Order...)}
	}
	return Solution{Plans: plans}
}

// Assigned returns the number of delivery ids across all plans.
func (s Solution) Assigned() int {
	n := 0
	for _, p := range s.Plans {
		n += len(p.Order)
	}
	return n
}

// Routes converts s to the API/store representation.
func (s Solution) Routes() []model.Route {
	out := make([]model.Route, len(s.Plans))
	for i, p := range s.Plans {
		out[i] = model.Route{VehicleID: p.VehicleID, Deliveries: append([]int{}, p.Order...)}
	}
	return out
}

// FromRoutes is the inverse of Routes.
func FromRoutes(rs []model.Route) Solution {
	plans := make([]RoutePlan, len(rs))
	for i, r := range rs {
		plans[i] = RoutePlan{VehicleID: r.VehicleID, Order: append([]int{}, r.Deliveries...)}
	}
	return Solution{Plans: plans}
}
