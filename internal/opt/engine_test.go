package opt

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dronenav/internal/model"
)

func lineScenario() model.Scenario {
	w := wideWindow()
	return model.Scenario{
		Vehicles: []model.Vehicle{{ID: 1, MaxWeight: 100, Battery: 1000, Speed: 10}},
		Deliveries: []model.Delivery{
			{ID: 1, Pos: model.Point{X: 1}, Weight: 1, Priority: 1, Window: w},
			{ID: 2, Pos: model.Point{X: 2}, Weight: 1, Priority: 1, Window: w},
			{ID: 3, Pos: model.Point{X: 3}, Weight: 1, Priority: 1, Window: w},
		},
	}
}

func mixedScenario() model.Scenario {
	w := model.Window{Start: model.MustClock("09:00"), End: model.MustClock("09:30")}
	s := model.Scenario{
		Vehicles: []model.Vehicle{
			{ID: 1, MaxWeight: 3, Battery: 60, Speed: 20},
			{ID: 2, MaxWeight: 6, Battery: 40, Speed: 10, Start: model.Point{X: 20, Y: 20}},
		},
		Zones: []model.NoFlyZone{{ID: 1, Vertices: []model.Point{{X: 8, Y: 8}, {X: 12, Y: 8}, {X: 12, Y: 12}, {X: 8, Y: 12}}}},
	}
	for i := 1; i <= 12; i++ {
		s.Deliveries = append(s.Deliveries, model.Delivery{
			ID: i, Pos: model.Point{X: float64(i * 3 % 23), Y: float64(i * 7 % 19)},
			Weight: float64(i%5 + 1), Priority: i%5 + 1, Window: w,
		})
	}
	return s
}

func TestOptimize_LineDeliversEverything(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Seed = 1
	res, err := Optimize(context.Background(), lineScenario(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Evaluation.Delivered)
	assert.Zero(t, res.Evaluation.Violations)
	assert.Zero(t, res.Evaluation.TimeViolations)
	assert.Equal(t, res.Score, res.Evaluation.Score)
	assert.Equal(t, int64(1), res.Seed)
}

func TestOptimize_NoVehicles(t *testing.T) {
	s := lineScenario()
	s.Vehicles = nil
	_, err := Optimize(context.Background(), s, DefaultConfig())
	assert.True(t, errors.Is(err, ErrNoVehicles))
}

func TestOptimize_InvalidConfig(t *testing.T) {
	for _, mut := range []func(*Config){
		func(c *Config) { c.PopulationSize = 0 },
		func(c *Config) { c.Generations = 0 },
		func(c *Config) { c.CrossoverRate = 1.5 },
		func(c *Config) { c.MutationRate = -0.1 },
	} {
		cfg := DefaultConfig()
		mut(&cfg)
		_, err := NewEngine(lineScenario(), cfg)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	}
}

func TestOptimize_EmptyDeliveries(t *testing.T) {
	s := lineScenario()
	s.Deliveries = nil
	cfg := DefaultConfig()
	cfg.Seed = 3
	res, err := Optimize(context.Background(), s, cfg)
	require.NoError(t, err)
	assert.Zero(t, res.Score)
	require.Len(t, res.Best.Plans, 1)
	assert.Empty(t, res.Best.Plans[0].Order)
}

func TestOptimize_BestEverNonDecreasing(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Seed = 42
	cfg.Generations = 40
	var seen []GenerationStats
	cfg.OnGeneration = func(s GenerationStats) { seen = append(seen, s) }
	res, err := Optimize(context.Background(), mixedScenario(), cfg)
	require.NoError(t, err)

	require.Len(t, res.Metrics.History, 40)
	require.Len(t, seen, 40)
	for i := 1; i < len(res.Metrics.History); i++ {
		assert.GreaterOrEqual(t, res.Metrics.History[i], res.Metrics.History[i-1])
	}
	for _, s := range seen {
		assert.GreaterOrEqual(t, s.BestEver, s.Best)
		assert.GreaterOrEqual(t, s.Best, s.Mean)
		assert.GreaterOrEqual(t, s.Mean, s.Worst)
	}
	assert.Equal(t, res.Score, res.Metrics.History[39])
	assert.Equal(t, 40*cfg.PopulationSize, res.Metrics.Evaluations)
	assert.GreaterOrEqual(t, res.Metrics.Improvements, 1)
}

func TestOptimize_SeedDeterministicAcrossWorkerCounts(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Seed = 7
	cfg.Workers = 1
	a, err := Optimize(context.Background(), mixedScenario(), cfg)
	require.NoError(t, err)
	cfg.Workers = 4
	b, err := Optimize(context.Background(), mixedScenario(), cfg)
	require.NoError(t, err)
	assert.Equal(t, a.Best, b.Best)
	assert.Equal(t, a.Metrics.History, b.Metrics.History)
}

func TestOptimize_RepairKeepsEveryDelivery(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Seed = 11
	cfg.CrossoverRate = 1
	cfg.RepairOffspring = true
	res, err := Optimize(context.Background(), mixedScenario(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 12, res.Best.Assigned())
}

func TestOptimize_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Optimize(ctx, lineScenario(), DefaultConfig())
	assert.ErrorIs(t, err, context.Canceled)
}
