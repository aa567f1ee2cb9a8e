// Package config loads runtime settings from defaults, an optional config
// file and DRONENAV_* environment variables, in increasing precedence.
package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"dronenav/internal/auth"
	"dronenav/internal/model"
	"dronenav/internal/opt"
)

type HTTPConfig struct {
	Addr string `json:"addr" mapstructure:"addr"`
}

type LogConfig struct {
	Level  string `json:"level" mapstructure:"level"`
	Format string `json:"format" mapstructure:"format"` // json or console
}

type RateConfig struct {
	RPS   float64 `json:"rps" mapstructure:"rps"`
	Burst int     `json:"burst" mapstructure:"burst"`
}

// OptimizerConfig holds the genetic engine defaults. Tenants may overlay it
// through the admin endpoint.
type OptimizerConfig struct {
	PopulationSize  int         `json:"populationSize" mapstructure:"populationSize"`
	Generations     int         `json:"generations" mapstructure:"generations"`
	CrossoverRate   float64     `json:"crossoverRate" mapstructure:"crossoverRate"`
	MutationRate    float64     `json:"mutationRate" mapstructure:"mutationRate"`
	NoFlyPenalty    float64     `json:"noFlyPenalty" mapstructure:"noFlyPenalty"`
	StartTime       string      `json:"startTime" mapstructure:"startTime"`
	Workers         int         `json:"workers" mapstructure:"workers"`
	RepairOffspring bool        `json:"repairOffspring" mapstructure:"repairOffspring"`
	Weights         opt.Weights `json:"weights" mapstructure:"weights"`
}

type WebhooksConfig struct {
	MaxAttempts  int           `json:"maxAttempts" mapstructure:"maxAttempts"`
	PollInterval time.Duration `json:"pollInterval" mapstructure:"pollInterval"`
}

type DatabaseConfig struct {
	URL string `json:"url" mapstructure:"url"`
}

type RedisConfig struct {
	URL string `json:"url" mapstructure:"url"`
}

type Config struct {
	HTTP      HTTPConfig      `mapstructure:"http"`
	Log       LogConfig       `mapstructure:"log"`
	Rate      RateConfig      `mapstructure:"rate"`
	Optimizer OptimizerConfig `mapstructure:"optimizer"`
	Webhooks  WebhooksConfig  `mapstructure:"webhooks"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      auth.Config     `mapstructure:"auth"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("rate.rps", 5.0)
	v.SetDefault("rate.burst", 10)

	v.SetDefault("optimizer.populationSize", 20)
	v.SetDefault("optimizer.generations", 50)
	v.SetDefault("optimizer.crossoverRate", 0.7)
	v.SetDefault("optimizer.mutationRate", 0.2)
	v.SetDefault("optimizer.noFlyPenalty", 1000.0)
	v.SetDefault("optimizer.startTime", "09:00")
	v.SetDefault("optimizer.workers", 0)
	v.SetDefault("optimizer.repairOffspring", false)
	v.SetDefault("optimizer.weights.delivered", 50.0)
	v.SetDefault("optimizer.weights.energy", 0.1)
	v.SetDefault("optimizer.weights.violation", 1000.0)
	v.SetDefault("optimizer.weights.timeViolation", 500.0)

	v.SetDefault("webhooks.maxAttempts", 10)
	v.SetDefault("webhooks.pollInterval", "1s")

	v.SetDefault("database.url", "")
	v.SetDefault("redis.url", "")

	v.SetDefault("auth.mode", "dev")
	v.SetDefault("auth.hmacSecret", "")
	v.SetDefault("auth.jwksUrl", "")
	v.SetDefault("auth.tenantClaim", "tenant")
	v.SetDefault("auth.roleClaim", "role")
}

// Load builds the configuration. path may be empty to skip the config file;
// its format follows the file extension (yaml, json, toml).
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("DRONENAV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if _, err := model.ParseClock(c.Optimizer.StartTime); err != nil {
		return Config{}, fmt.Errorf("optimizer.startTime: %w", err)
	}
	return c, nil
}

// Engine converts the settings into an engine config (without seed).
func (o OptimizerConfig) Engine() (opt.Config, error) {
	start, err := model.ParseClock(o.StartTime)
	if err != nil {
		return opt.Config{}, err
	}
	return opt.Config{
		PopulationSize:  o.PopulationSize,
		Generations:     o.Generations,
		CrossoverRate:   o.CrossoverRate,
		MutationRate:    o.MutationRate,
		StartTime:       start,
		Weights:         o.Weights,
		Workers:         o.Workers,
		RepairOffspring: o.RepairOffspring,
	}, nil
}

// WithOverlay returns o with the keys present in m applied on top. Keys use
// the JSON field names; unknown keys are ignored.
func (o OptimizerConfig) WithOverlay(m map[string]any) (OptimizerConfig, error) {
	if len(m) == 0 {
		return o, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return o, err
	}
	out := o
	if err := json.Unmarshal(b, &out); err != nil {
		return o, fmt.Errorf("optimizer overlay: %w", err)
	}
	return out, nil
}

// Map is the JSON object form of o, as stored per tenant.
func (o OptimizerConfig) Map() map[string]any {
	b, _ := json.Marshal(o)
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	return m
}
