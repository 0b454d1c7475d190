package main

import (
	"math"
	"sync"

	"github.com/pthm-cable/smoke/config"
	"github.com/pthm-cable/smoke/game"
	"github.com/pthm-cable/smoke/telemetry"
)

// Targets are the plume properties a parameter set is scored against.
type Targets struct {
	Mass   float64 // density mass over the scored windows
	Height float64 // normalized height of the centre of mass
}

// FitnessEvaluator runs headless simulations and computes fitness.
type FitnessEvaluator struct {
	params      *ParamVector
	maxTicks    int32
	seeds       []int64
	baseConfig  *config.Config
	targets     Targets
	statsWindow float64

	// Best run tracking
	mu          sync.Mutex
	bestFitness float64
	bestWindows []telemetry.WindowStats
	lastQuality float64 // quality from most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxTicks int32, seeds []int64, baseCfg *config.Config, targets Targets) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		maxTicks:    maxTicks,
		seeds:       seeds,
		baseConfig:  baseCfg,
		targets:     targets,
		statsWindow: 0.5,
		bestFitness: math.Inf(1),
	}
}

// BestWindows returns the window stats of the best evaluation.
func (fe *FitnessEvaluator) BestWindows() []telemetry.WindowStats {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.bestWindows
}

// LastQuality returns the quality score from the most recent evaluation.
func (fe *FitnessEvaluator) LastQuality() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastQuality
}

// failedFitness scores runs whose step failed or went non-finite.
const failedFitness = 1e6

// runResult holds the results from a single simulation run.
type runResult struct {
	failed      bool
	windowStats []telemetry.WindowStats // collected via StatsCallback each window
}

// seedResult holds the result from one seed evaluation.
type seedResult struct {
	fitness float64
	quality float64
	windows []telemetry.WindowStats
}

// Evaluate computes fitness for a parameter vector (lower = better).
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	// Run all seeds in parallel
	results := make([]seedResult, len(fe.seeds))
	var wg sync.WaitGroup

	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			result := fe.runSimulation(x, s)
			fitness := fe.computeFitness(result)
			results[idx] = seedResult{
				fitness: fitness,
				quality: math.Exp(-fitness),
				windows: result.windowStats,
			}
		}(i, seed)
	}
	wg.Wait()

	// Aggregate results
	var totalFitness, totalQuality float64
	bestSeedFitness := math.Inf(1)
	var bestSeedWindows []telemetry.WindowStats

	for _, r := range results {
		totalFitness += r.fitness
		totalQuality += r.quality
		if r.fitness < bestSeedFitness {
			bestSeedFitness = r.fitness
			bestSeedWindows = r.windows
		}
	}

	n := float64(len(fe.seeds))
	avgFitness := totalFitness / n

	fe.mu.Lock()
	if avgFitness < fe.bestFitness {
		fe.bestFitness = avgFitness
		fe.bestWindows = bestSeedWindows
	}
	fe.lastQuality = totalQuality / n
	fe.mu.Unlock()

	return avgFitness
}

// runSimulation executes a single headless run for maxTicks.
func (fe *FitnessEvaluator) runSimulation(x []float64, seed int64) *runResult {
	cfg := fe.baseConfig.Clone()
	fe.params.ApplyToConfig(cfg, x)
	if len(fe.seeds) > 1 {
		cfg.Flicker.Enabled = true
		cfg.Flicker.Seed = seed
	}

	result := &runResult{}

	g, err := game.NewGame(game.Options{
		Config:         cfg,
		Headless:       true,
		StatsWindowSec: fe.statsWindow,
		StepsPerUpdate: 1,
		StatsCallback: func(stats telemetry.WindowStats) {
			result.windowStats = append(result.windowStats, stats)
		},
	})
	if err != nil {
		result.failed = true
		return result
	}
	defer g.Unload()

	for g.Tick() < fe.maxTicks {
		if err := g.UpdateHeadless(); err != nil {
			result.failed = true
			return result
		}
	}
	return result
}

// Fitness component weights.
const (
	weightMass      = 1.0
	weightHeight    = 4.0
	weightStability = 0.5

	scoredFraction = 0.5 // score the last half of the windows
)

// computeFitness scores a run against the targets (lower = better).
// Mass error is measured in log space so over- and undershoot by the same
// factor cost the same.
func (fe *FitnessEvaluator) computeFitness(r *runResult) float64 {
	if r.failed {
		return failedFitness
	}
	windows := scoredWindows(r.windowStats)
	if len(windows) == 0 {
		return failedFitness
	}

	mass := make([]float64, len(windows))
	var height float64
	for i, w := range windows {
		if !finite(w.DensityMass) || !finite(w.CenterY) {
			return failedFitness
		}
		mass[i] = w.DensityMass
		height += w.CenterY
	}
	height /= float64(len(windows))

	meanMass := mean(mass)
	if meanMass <= 0 {
		return failedFitness
	}
	logErr := math.Log(meanMass / fe.targets.Mass)
	heightErr := height - fe.targets.Height
	c := cv(mass)

	return weightMass*logErr*logErr +
		weightHeight*heightErr*heightErr +
		weightStability*c*c
}

// scoredWindows drops the warmup part of a run.
func scoredWindows(windows []telemetry.WindowStats) []telemetry.WindowStats {
	skip := int(float64(len(windows)) * (1 - scoredFraction))
	return windows[skip:]
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// cv computes the coefficient of variation (std/mean) for a slice of values.
func cv(values []float64) float64 {
	m := mean(values)
	if m == 0 {
		return 0
	}
	var sqDiff float64
	for _, v := range values {
		d := v - m
		sqDiff += d * d
	}
	return math.Sqrt(sqDiff/float64(len(values))) / m
}
