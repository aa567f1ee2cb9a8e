package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dronenav/internal/model"
)

func fixture() ([]model.Delivery, []model.Vehicle) {
	deliveries := []model.Delivery{
		{ID: 1, Pos: model.Point{X: 3, Y: 4}, Weight: 2, Priority: 1},
		{ID: 2, Pos: model.Point{X: 0, Y: 100}, Weight: 1, Priority: 2},
		{ID: 3, Pos: model.Point{X: 6, Y: 8}, Weight: 9, Priority: 3},
	}
	vehicles := []model.Vehicle{
		{ID: 10, MaxWeight: 5, Battery: 50, Speed: 10, Start: model.Point{}},
	}
	return deliveries, vehicles
}

func edgeTo(es []Edge, to int) (Edge, bool) {
	for _, e := range es {
		if e.To == to {
			return e, true
		}
	}
	return Edge{}, false
}

func TestBuild_NodesAndIDSpaces(t *testing.T) {
	ds, vs := fixture()
	g := Build(ds, vs, nil, 1000)
	assert.Equal(t, []int{1, 2, 3, -1}, g.Nodes)
	assert.True(t, g.Has(-1))
	assert.Equal(t, vs[0].Start, g.Positions[VehicleNode(0)])
	for _, es := range g.Adj {
		for _, e := range es {
			assert.False(t, IsVehicleNode(e.To), "no edge may enter a vehicle start")
		}
	}
}

func TestBuild_VehicleEdgesFiltered(t *testing.T) {
	ds, vs := fixture()
	g := Build(ds, vs, nil, 1000)
	out := g.Neighbors(VehicleNode(0))

	e, ok := edgeTo(out, 1)
	require.True(t, ok)
	assert.InDelta(t, 5*2+100, e.Cost, 1e-9)

	_, ok = edgeTo(out, 2)
	assert.False(t, ok, "beyond battery range")
	_, ok = edgeTo(out, 3)
	assert.False(t, ok, "over payload capacity")
}

func TestBuild_DeliveryEdgesUnfiltered(t *testing.T) {
	ds, vs := fixture()
	g := Build(ds, vs, nil, 1000)

	// 1→3 is kept even though delivery 3 exceeds every vehicle's capacity.
	e, ok := edgeTo(g.Neighbors(1), 3)
	require.True(t, ok)
	assert.InDelta(t, 5*9+300, e.Cost, 1e-9)
	// 1→2 is kept even though it is beyond battery range.
	_, ok = edgeTo(g.Neighbors(1), 2)
	assert.True(t, ok)
	_, ok = edgeTo(g.Neighbors(1), 1)
	assert.False(t, ok, "no self loops")
	assert.Equal(t, 3*2+1, g.EdgeCount())
}

func TestBuild_NoFlyPenalty(t *testing.T) {
	ds, vs := fixture()
	zone := model.NoFlyZone{ID: 1, Vertices: []model.Point{{X: 1, Y: 1}, {X: 2, Y: 1}, {X: 2, Y: 2}, {X: 1, Y: 2}}}
	g := Build(ds, vs, []model.NoFlyZone{zone}, 1000)
	e, ok := edgeTo(g.Neighbors(VehicleNode(0)), 1)
	require.True(t, ok)
	assert.InDelta(t, 5*2+100+1000, e.Cost, 1e-9)
}

func TestBuild_Empty(t *testing.T) {
	g := Build(nil, nil, nil, 1000)
	assert.Empty(t, g.Nodes)
	assert.Zero(t, g.EdgeCount())
}
