package opt

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(s Solution) []int {
	var out []int
	for _, p := range s.Plans {
		out = append(out, p.Order...)
	}
	sort.Ints(out)
	return out
}

func TestRandomSolution_RoundRobin(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	s := randomSolution([]int{10, 20}, []int{1, 2, 3, 4, 5}, rng)
	require.Len(t, s.Plans, 2)
	assert.Equal(t, 10, s.Plans[0].VehicleID)
	assert.Equal(t, 20, s.Plans[1].VehicleID)
	assert.Len(t, s.Plans[0].Order, 3)
	assert.Len(t, s.Plans[1].Order, 2)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, ids(s))
}

func TestCrossover_IdenticalParentsKeepAssignment(t *testing.T) {
	p := Solution{Plans: []RoutePlan{
		{VehicleID: 1, Order: []int{3, 1}},
		{VehicleID: 2, Order: []int{2, 4, 5}},
	}}
	child := crossover(p, p.Clone(), rand.New(rand.NewSource(5)))
	assert.ElementsMatch(t, []int{1, 3}, child.Plans[0].Order)
	assert.ElementsMatch(t, []int{2, 4, 5}, child.Plans[1].Order)
}

func TestCrossover_CanDropButNeverDuplicates(t *testing.T) {
	p1 := Solution{Plans: []RoutePlan{{VehicleID: 1, Order: []int{1, 2}}, {VehicleID: 2, Order: []int{}}}}
	p2 := Solution{Plans: []RoutePlan{{VehicleID: 1, Order: []int{}}, {VehicleID: 2, Order: []int{3}}}}
	dropped := false
	for seed := int64(1); seed <= 50; seed++ {
		child := crossover(p1, p2, rand.New(rand.NewSource(seed)))
		got := ids(child)
		seen := map[int]bool{}
		for _, id := range got {
			assert.False(t, seen[id], "duplicate id %d", id)
			seen[id] = true
			assert.Contains(t, []int{1, 2, 3}, id)
		}
		if len(got) < 3 {
			dropped = true
		}
		for _, id := range child.Plans[0].Order {
			assert.NotEqual(t, 3, id, "id 3 only ever lives on vehicle 2")
		}
	}
	assert.True(t, dropped)
}

func TestMutate_PreservesMultiset(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	s := Solution{Plans: []RoutePlan{
		{VehicleID: 1, Order: []int{1, 2, 3}},
		{VehicleID: 2, Order: []int{4}},
	}}
	for i := 0; i < 100; i++ {
		mutate(s, rng)
		require.Equal(t, []int{1, 2, 3, 4}, ids(s))
	}
}

func TestMutate_EmptyIsNoop(t *testing.T) {
	s := Solution{Plans: []RoutePlan{{VehicleID: 1, Order: []int{}}}}
	mutate(s, rand.New(rand.NewSource(1)))
	assert.Empty(t, s.Plans[0].Order)
}

func TestRepair_AppendsMissingToShortest(t *testing.T) {
	s := Solution{Plans: []RoutePlan{
		{VehicleID: 1, Order: []int{1, 2}},
		{VehicleID: 2, Order: []int{}},
	}}
	repair(s, []int{1, 2, 3, 4, 5})
	assert.Equal(t, []int{1, 2, 5}, s.Plans[0].Order)
	assert.Equal(t, []int{3, 4}, s.Plans[1].Order)
}

func TestClone_IsDeep(t *testing.T) {
	s := Solution{Plans: []RoutePlan{{VehicleID: 1, Order: []int{1, 2}}}}
	c := s.Clone()
	c.Plans[0].Order[0] = 9
	assert.Equal(t, 1, s.Plans[0].Order[0])
	assert.Equal(t, s.Routes(), FromRoutes(s.Routes()).Routes())
}
