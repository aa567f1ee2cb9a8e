package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dronenav/internal/model"
)

func TestLoad_Defaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", c.HTTP.Addr)
	assert.Equal(t, "info", c.Log.Level)
	assert.Equal(t, 5.0, c.Rate.RPS)
	assert.Equal(t, 10, c.Rate.Burst)
	assert.Equal(t, 20, c.Optimizer.PopulationSize)
	assert.Equal(t, 50, c.Optimizer.Generations)
	assert.Equal(t, 0.7, c.Optimizer.CrossoverRate)
	assert.Equal(t, 0.2, c.Optimizer.MutationRate)
	assert.Equal(t, 1000.0, c.Optimizer.NoFlyPenalty)
	assert.Equal(t, "09:00", c.Optimizer.StartTime)
	assert.Equal(t, 50.0, c.Optimizer.Weights.Delivered)
	assert.Equal(t, 0.1, c.Optimizer.Weights.Energy)
	assert.Equal(t, 1000.0, c.Optimizer.Weights.Violation)
	assert.Equal(t, 500.0, c.Optimizer.Weights.TimeViolation)
	assert.Equal(t, 10, c.Webhooks.MaxAttempts)
	assert.Empty(t, c.Database.URL)
	assert.Equal(t, "dev", c.Auth.Mode)
	assert.Equal(t, "tenant", c.Auth.TenantClaim)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dronenav.yaml")
	doc := "log:\n  level: debug\noptimizer:\n  generations: 80\n  weights:\n    timeViolation: 250\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	t.Setenv("DRONENAV_HTTP_ADDR", ":9999")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, 80, c.Optimizer.Generations)
	assert.Equal(t, 250.0, c.Optimizer.Weights.TimeViolation)
	assert.Equal(t, 50.0, c.Optimizer.Weights.Delivered)
	assert.Equal(t, ":9999", c.HTTP.Addr)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/dronenav.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestLoad_BadStartTime(t *testing.T) {
	t.Setenv("DRONENAV_OPTIMIZER_STARTTIME", "nine")
	_, err := Load("")
	assert.Error(t, err)
}

func TestOptimizerConfig_EngineAndOverlay(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	o, err := c.Optimizer.WithOverlay(map[string]any{"generations": 5, "weights": map[string]any{"energy": 1}})
	require.NoError(t, err)
	assert.Equal(t, 5, o.Generations)
	assert.Equal(t, 1.0, o.Weights.Energy)
	assert.Equal(t, 500.0, o.Weights.TimeViolation)
	assert.Equal(t, 20, o.PopulationSize)

	ec, err := o.Engine()
	require.NoError(t, err)
	assert.Equal(t, model.MustClock("09:00"), ec.StartTime)
	assert.Equal(t, 5, ec.Generations)

	assert.Equal(t, float64(20), c.Optimizer.Map()["populationSize"])
}
