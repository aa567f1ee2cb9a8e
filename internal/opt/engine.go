package opt

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"dronenav/internal/model"
)

var (
	// ErrNoVehicles is returned before any chromosome is built when the
	// scenario has no vehicles to deal deliveries to.
	ErrNoVehicles    = errors.New("optimizer: scenario has no vehicles")
	ErrInvalidConfig = errors.New("optimizer: invalid config")
)

// Config drives one genetic optimization run.
type Config struct {
	PopulationSize int
	Generations    int
	CrossoverRate  float64
	MutationRate   float64
	StartTime      model.Clock
	Weights        Weights
	Seed           int64 // 0 picks a time-based seed; Result.Seed reports it
	Workers        int   // parallel evaluators; <= 0 uses GOMAXPROCS
	// RepairOffspring re-inserts ids that crossover dropped. Off by default
	// so runs reproduce the plain operator behaviour.
	RepairOffspring bool
	OnGeneration    func(GenerationStats)
}

func DefaultConfig() Config {
	return Config{
		PopulationSize: 20,
		Generations:    50,
		CrossoverRate:  0.7,
		MutationRate:   0.2,
		StartTime:      model.MustClock("09:00"),
		Weights:        DefaultWeights(),
	}
}

// Validate checks the sizes and rates.
func (c Config) Validate() error {
	if c.PopulationSize < 1 {
		return fmt.Errorf("%w: populationSize must be >= 1, got %d", ErrInvalidConfig, c.PopulationSize)
	}
	if c.Generations < 1 {
		return fmt.Errorf("%w: generations must be >= 1, got %d", ErrInvalidConfig, c.Generations)
	}
	if c.CrossoverRate < 0 || c.CrossoverRate > 1 {
		return fmt.Errorf("%w: crossoverRate must be in [0,1], got %g", ErrInvalidConfig, c.CrossoverRate)
	}
	if c.MutationRate < 0 || c.MutationRate > 1 {
		return fmt.Errorf("%w: mutationRate must be in [0,1], got %g", ErrInvalidConfig, c.MutationRate)
	}
	return nil
}

// GenerationStats is reported once per generation after evaluation.
type GenerationStats struct {
	Generation int     `json:"generation"`
	Best       float64 `json:"best"`
	Mean       float64 `json:"mean"`
	Worst      float64 `json:"worst"`
	BestEver   float64 `json:"bestEver"`
}

type Metrics struct {
	Generations  int           `json:"generations"`
	Evaluations  int           `json:"evaluations"`
	Improvements int           `json:"improvements"`
	BestFitness  float64       `json:"bestFitness"`
	History      []float64     `json:"history"` // best-ever score after each generation
	Elapsed      time.Duration `json:"elapsed"`
}

type Result struct {
	Best       Solution
	Score      float64
	Evaluation Evaluation
	Seed       int64
	Metrics    Metrics
}

// Engine is a generational genetic optimizer over one scenario.
type Engine struct {
	cfg        Config
	eval       *Evaluator
	vehicles   []int
	deliveries []int
}

func NewEngine(s model.Scenario, cfg Config) (*Engine, error) {
	if len(s.Vehicles) == 0 {
		return nil, ErrNoVehicles
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{cfg: cfg, eval: NewEvaluator(s, cfg.StartTime, cfg.Weights)}
	for _, v := range s.Vehicles {
		e.vehicles = append(e.vehicles, v.ID)
	}
	for _, d := range s.Deliveries {
		e.deliveries = append(e.deliveries, d.ID)
	}
	return e, nil
}

// Evaluator exposes the engine's fitness function.
func (e *Engine) Evaluator() *Evaluator { return e.eval }

// Optimize is NewEngine followed by Run.
func Optimize(ctx context.Context, s model.Scenario, cfg Config) (Result, error) {
	e, err := NewEngine(s, cfg)
	if err != nil {
		return Result{}, err
	}
	return e.Run(ctx)
}

// Run evolves the population for the configured number of generations and
// returns the best solution seen. ctx is checked between generations only.
func (e *Engine) Run(ctx context.Context) (Result, error) {
	started := time.Now()
	seed := e.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	pop := e.cfg.PopulationSize
	elites := int(math.Ceil(float64(pop) / 10))
	if elites < 1 {
		elites = 1
	}

	population := make([]Solution, pop)
	for i := range population {
		population[i] = randomSolution(e.vehicles, e.deliveries, rng)
	}

	var (
		best      Solution
		bestScore = math.Inf(-1)
		m         Metrics
	)
	scores := make([]float64, pop)
	for gen := 0; gen < e.cfg.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if err := e.evaluateAll(ctx, population, scores); err != nil {
			return Result{}, err
		}
		m.Evaluations += len(population)

		idx := make([]int, len(population))
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] > scores[idx[b]] })

		if top := scores[idx[0]]; top > bestScore {
			bestScore = top
			best = population[idx[0]].Clone()
			m.Improvements++
		}
		m.Generations++
		m.History = append(m.History, bestScore)
		if e.cfg.OnGeneration != nil {
			e.cfg.OnGeneration(stats(gen, scores, idx, bestScore))
		}
		if gen == e.cfg.Generations-1 {
			break
		}

		next := make([]Solution, 0, pop)
		for _, i := range idx[:min(elites, len(idx))] {
			next = append(next, population[i].Clone())
		}
		for len(next) < pop {
			var child Solution
			if rng.Float64() < e.cfg.CrossoverRate {
				p1 := population[rng.Intn(pop)]
				p2 := population[rng.Intn(pop)]
				child = crossover(p1, p2, rng)
				if e.cfg.RepairOffspring {
					repair(child, e.deliveries)
				}
			} else {
				child = population[rng.Intn(pop)].Clone()
			}
			if rng.Float64() < e.cfg.MutationRate {
				mutate(child, rng)
			}
			next = append(next, child)
		}
		population = next
	}

	m.BestFitness = bestScore
	m.Elapsed = time.Since(started)
	return Result{
		Best:       best,
		Score:      bestScore,
		Evaluation: e.eval.Evaluate(best),
		Seed:       seed,
		Metrics:    m,
	}, nil
}

// evaluateAll scores every chromosome in parallel. Each worker writes only its
// own scores slot and evaluation draws no random numbers, so the result is
// the same as a sequential pass.
func (e *Engine) evaluateAll(ctx context.Context, population []Solution, scores []float64) error {
	workers := e.cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers == 1 {
		for i, s := range population {
			scores[i] = e.eval.Evaluate(s).Score
		}
		return nil
	}
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range population {
		g.Go(func() error {
			scores[i] = e.eval.Evaluate(population[i]).Score
			return nil
		})
	}
	return g.Wait()
}

func stats(gen int, scores []float64, sorted []int, bestEver float64) GenerationStats {
	sum := 0.0
	for _, s := range scores {
		sum += s
	}
	return GenerationStats{
		Generation: gen,
		Best:       scores[sorted[0]],
		Worst:      scores[sorted[len(sorted)-1]],
		Mean:       sum / float64(len(scores)),
		BestEver:   bestEver,
	}
}
