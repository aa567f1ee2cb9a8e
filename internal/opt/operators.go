package opt

import (
	"math/rand"
	"sort"
)

// randomSolution shuffles ids and deals them round-robin over vehicles.
func randomSolution(vehicles, deliveries []int, rng *rand.Rand) Solution {
	plans := make([]RoutePlan, len(vehicles))
	for i, id := range vehicles {
		plans[i] = RoutePlan{VehicleID: id, Order: []int{}}
	}
	ids := append([]int(nil), deliveries...)
	rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	for i, id := range ids {
		p := &plans[i%len(plans)]
		p.Order = append(p.Order, id)
	}
	return Solution{Plans: plans}
}

// crossover builds a child whose plans follow p1's vehicle order. Each id in
// the union of both parents goes, in shuffled order, to the vehicle that
// holds it in a parent picked by coin flip. If the picked parent does not
// hold the id at all the id is dropped.
func crossover(p1, p2 Solution, rng *rand.Rand) Solution {
	child := Solution{Plans: make([]RoutePlan, len(p1.Plans))}
	slot := make(map[int]int, len(p1.Plans))
	for i, p := range p1.Plans {
		child.Plans[i] = RoutePlan{VehicleID: p.VehicleID, Order: []int{}}
		slot[p.VehicleID] = i
	}
	set := map[int]bool{}
	for _, s := range []Solution{p1, p2} {
		for _, p := range s.Plans {
			if _, ok := slot[p.VehicleID]; !ok {
				continue
			}
			for _, id := range p.Order {
				set[id] = true
			}
		}
	}
	union := make([]int, 0, len(set))
	for id := range set {
		union = append(union, id)
	}
	sort.Ints(union) // map order must not leak into the rng stream
	rng.Shuffle(len(union), func(i, j int) { union[i], union[j] = union[j], union[i] })

	for _, id := range union {
		parent := p1
		if rng.Float64() >= 0.5 {
			parent = p2
		}
		if v, ok := holder(parent, id); ok {
			if i, ok := slot[v]; ok {
				child.Plans[i].Order = append(child.Plans[i].Order, id)
			}
		}
	}
	return child
}

// holder returns the first vehicle in s whose plan contains id.
func holder(s Solution, id int) (int, bool) {
	for _, p := range s.Plans {
		for _, x := range p.Order {
			if x == id {
				return p.VehicleID, true
			}
		}
	}
	return 0, false
}

// mutate moves one uniformly chosen delivery to a random position of a
// random vehicle (possibly the same one). s is modified in place.
func mutate(s Solution, rng *rand.Rand) {
	total := s.Assigned()
	if total == 0 || len(s.Plans) == 0 {
		return
	}
	k := rng.Intn(total)
	var id int
	for i := range s.Plans {
		p := &s.Plans[i]
		if k < len(p.Order) {
			id = p.Order[k]
			p.Order = append(p.Order[:k], p.Order[k+1:]...)
			break
		}
		k -= len(p.Order)
	}
	dst := &s.Plans[rng.Intn(len(s.Plans))]
	pos := rng.Intn(len(dst.Order) + 1)
	dst.Order = append(dst.Order, 0)
	copy(dst.Order[pos+1:], dst.Order[pos:])
	dst.Order[pos] = id
}

// repair appends every delivery missing from s to the currently shortest
// plan, lowest index first on ties, in ascending id order.
func repair(s Solution, deliveries []int) {
	if len(s.Plans) == 0 {
		return
	}
	present := make(map[int]bool, len(deliveries))
	for _, p := range s.Plans {
		for _, id := range p.Order {
			present[id] = true
		}
	}
	missing := []int{}
	for _, id := range deliveries {
		if !present[id] {
			missing = append(missing, id)
		}
	}
	sort.Ints(missing)
	for _, id := range missing {
		best := 0
		for i := range s.Plans {
			if len(s.Plans[i].Order) < len(s.Plans[best].Order) {
				best = i
			}
		}
		s.Plans[best].Order = append(s.Plans[best].Order, id)
	}
}
