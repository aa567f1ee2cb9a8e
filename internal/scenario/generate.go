// Package scenario generates random but reproducible delivery scenarios.
package scenario

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"dronenav/internal/model"
)

// Params controls generation. Zero fields take the DefaultParams value.
type Params struct {
	Vehicles   int
	Deliveries int
	Zones      int
	MapSize    int

	MinVehicleWeight, MaxVehicleWeight float64
	MinBattery, MaxBattery             int
	MinSpeed, MaxSpeed                 float64

	MinDeliveryWeight, MaxDeliveryWeight float64
	WindowLength                         time.Duration

	MinZoneSize, MaxZoneSize int
	BaseTime                 model.Clock
}

func DefaultParams() Params {
	return Params{
		Vehicles:          5,
		Deliveries:        20,
		Zones:             3,
		MapSize:           100,
		MinVehicleWeight:  2,
		MaxVehicleWeight:  6,
		MinBattery:        8000,
		MaxBattery:        20000,
		MinSpeed:          5,
		MaxSpeed:          12,
		MinDeliveryWeight: 0.5,
		MaxDeliveryWeight: 5,
		WindowLength:      60 * time.Minute,
		MinZoneSize:       10,
		MaxZoneSize:       30,
		BaseTime:          model.MustClock("09:00"),
	}
}

func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.MapSize == 0 {
		p.MapSize = d.MapSize
	}
	if p.MaxVehicleWeight == 0 {
		p.MinVehicleWeight, p.MaxVehicleWeight = d.MinVehicleWeight, d.MaxVehicleWeight
	}
	if p.MaxBattery == 0 {
		p.MinBattery, p.MaxBattery = d.MinBattery, d.MaxBattery
	}
	if p.MaxSpeed == 0 {
		p.MinSpeed, p.MaxSpeed = d.MinSpeed, d.MaxSpeed
	}
	if p.MaxDeliveryWeight == 0 {
		p.MinDeliveryWeight, p.MaxDeliveryWeight = d.MinDeliveryWeight, d.MaxDeliveryWeight
	}
	if p.WindowLength == 0 {
		p.WindowLength = d.WindowLength
	}
	if p.MaxZoneSize == 0 {
		p.MinZoneSize, p.MaxZoneSize = d.MinZoneSize, d.MaxZoneSize
	}
	if p.BaseTime == 0 {
		p.BaseTime = d.BaseTime
	}
	return p
}

// Generate builds a scenario from rng. The same seed and params always yield
// the same scenario. Ids are 1-based in generation order.
func Generate(rng *rand.Rand, p Params) model.Scenario {
	p = p.withDefaults()
	s := model.Scenario{Name: fmt.Sprintf("random_%dv_%dd_%dz", p.Vehicles, p.Deliveries, p.Zones)}
	for i := 0; i < p.Vehicles; i++ {
		s.Vehicles = append(s.Vehicles, model.Vehicle{
			ID:        i + 1,
			MaxWeight: round1(uniform(rng, p.MinVehicleWeight, p.MaxVehicleWeight)),
			Battery:   float64(between(rng, p.MinBattery, p.MaxBattery)),
			Speed:     round1(uniform(rng, p.MinSpeed, p.MaxSpeed)),
			Start:     model.Point{X: float64(between(rng, 0, p.MapSize)), Y: float64(between(rng, 0, p.MapSize))},
		})
	}
	for i := 0; i < p.Deliveries; i++ {
		start := p.BaseTime.Add(time.Duration(between(rng, 0, 60)) * time.Minute)
		s.Deliveries = append(s.Deliveries, model.Delivery{
			ID:       i + 1,
			Pos:      model.Point{X: float64(between(rng, 0, p.MapSize)), Y: float64(between(rng, 0, p.MapSize))},
			Weight:   round1(uniform(rng, p.MinDeliveryWeight, p.MaxDeliveryWeight)),
			Priority: between(rng, 1, 5),
			Window:   model.Window{Start: start, End: start.Add(p.WindowLength)},
		})
	}
	for i := 0; i < p.Zones; i++ {
		start := p.BaseTime.Add(time.Duration(between(rng, 0, 60)) * time.Minute)
		lo, hi := p.MinZoneSize, p.MapSize-p.MinZoneSize
		if hi < lo {
			lo, hi = p.MapSize/2, p.MapSize/2
		}
		cx := float64(between(rng, lo, hi))
		cy := float64(between(rng, lo, hi))
		half := float64(between(rng, p.MinZoneSize, p.MaxZoneSize) / 2)
		s.Zones = append(s.Zones, model.NoFlyZone{
			ID: i + 1,
			Vertices: []model.Point{
				{X: cx - half, Y: cy - half},
				{X: cx + half, Y: cy - half},
				{X: cx + half, Y: cy + half},
				{X: cx - half, Y: cy + half},
			},
			Active: model.Window{Start: start, End: start.Add(p.WindowLength)},
		})
	}
	return s
}

// RandomParams picks entity counts the way the random scenario runner does:
// 5-10 vehicles, 20-40 deliveries, 2-5 zones.
func RandomParams(rng *rand.Rand) Params {
	p := DefaultParams()
	p.Vehicles = between(rng, 5, 10)
	p.Deliveries = between(rng, 20, 40)
	p.Zones = between(rng, 2, 5)
	return p
}

// Sizing returns the population size and generation count used for a
// scenario of n deliveries by the random scenario runner.
func Sizing(n int) (population, generations int) {
	return max(30, n), max(50, 2*n)
}

// between returns a uniform integer in [lo, hi].
func between(rng *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.Intn(hi-lo+1)
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
