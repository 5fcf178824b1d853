package main

import (
	"fmt"
	"math"
	"sync"

	"github.com/pthm-cable/yee/config"
	"github.com/pthm-cable/yee/scene"
	"github.com/pthm-cable/yee/telemetry"
)

// divergedFitness is returned for runs whose field stops being finite.
const divergedFitness = 10.0

// residualFloor bounds log10 of the residual energy ratio from below.
const residualFloor = 1e-30

// FitnessEvaluator runs pulse tests and scores PML parameters by the energy
// left in the domain after the pulse should have been absorbed.
type FitnessEvaluator struct {
	params     *ParamVector
	configPath string
	taus       []float64
	maxTicks   uint64

	mu          sync.Mutex
	lastResults []pulseResult
}

// NewFitnessEvaluator creates an evaluator with one pulse test per tau.
// maxTicks 0 sizes runs from the domain extent and pulse length.
func NewFitnessEvaluator(params *ParamVector, configPath string, taus []float64, maxTicks uint64) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:     params,
		configPath: configPath,
		taus:       taus,
		maxTicks:   maxTicks,
	}
}

// pulseResult holds the result of one pulse test.
type pulseResult struct {
	tau      float64
	ticks    uint64
	peak     float64
	residual float64
	diverged bool
	windows  []telemetry.WindowStats
}

func (r pulseResult) fitness() float64 {
	if r.diverged || r.peak <= 0 {
		return divergedFitness
	}
	return math.Log10(max(r.residual/r.peak, residualFloor))
}

// LastResults returns the per-pulse results of the most recent evaluation.
func (fe *FitnessEvaluator) LastResults() []pulseResult {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastResults
}

// Evaluate computes fitness for a raw parameter vector (lower = better).
// Fitness is the mean log10 of residual over peak energy.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	results := make([]pulseResult, len(fe.taus))
	errs := make([]error, len(fe.taus))
	var wg sync.WaitGroup
	for i, tau := range fe.taus {
		wg.Add(1)
		go func(idx int, tau float64) {
			defer wg.Done()
			results[idx], errs[idx] = fe.runPulse(x, tau)
		}(i, tau)
	}
	wg.Wait()

	var total float64
	for i, r := range results {
		if errs[i] != nil {
			r.diverged = true
		}
		total += r.fitness()
	}

	fe.mu.Lock()
	fe.lastResults = results
	fe.mu.Unlock()
	return total / float64(len(results))
}

// pulseConfig loads the base config and replaces its contents with a single
// Gaussian pulse at the lattice centre in an otherwise empty domain.
func (fe *FitnessEvaluator) pulseConfig(x []float64, tau float64) (*config.Config, error) {
	cfg, err := config.Load(fe.configPath)
	if err != nil {
		return nil, err
	}
	if err := fe.params.ApplyToConfig(cfg, x); err != nil {
		return nil, err
	}
	size := cfg.Derived.LatticeSize
	center := [3]int{size.X / 2, size.Y / 2, size.Z / 2}

	cfg.Materials = nil
	cfg.Projections = nil
	cfg.Telemetry.Probes = nil
	cfg.Solver.Workers = 1
	cfg.Sources = []config.SourceConfig{{
		Name: fmt.Sprintf("pulse_tau_%g", tau),
		Kind: "gaussian",
		Min:  center,
		T0:   6 * tau,
		Tau:  tau,
		J:    [3]float64{0, 0, 1},
	}}
	return cfg, nil
}

// pulseTicks is the time for the pulse to finish plus three crossings of the
// longest lattice side.
func pulseTicks(cfg *config.Config, tau float64) uint64 {
	size := cfg.Derived.LatticeSize
	longest := 0.0
	for a := 0; a < 3; a++ {
		longest = max(longest, float64(size.Axis(a))*cfg.Solver.Resolution[a])
	}
	c := cfg.Derived.Constants.SpeedOfLight()
	t := 12*tau + 3*longest/c
	return uint64(math.Ceil(t / cfg.Derived.TimeStep))
}

func (fe *FitnessEvaluator) runPulse(x []float64, tau float64) (pulseResult, error) {
	res := pulseResult{tau: tau}
	cfg, err := fe.pulseConfig(x, tau)
	if err != nil {
		return res, err
	}
	sc, err := scene.FromConfig(cfg)
	if err != nil {
		return res, err
	}
	inst, err := sc.Build()
	if err != nil {
		return res, err
	}
	defer inst.Close()

	res.ticks = fe.maxTicks
	if res.ticks == 0 {
		res.ticks = pulseTicks(cfg, tau)
	}

	st := inst.NewState()
	collector := telemetry.NewCollector(cfg.Telemetry.Window, cfg.Telemetry.EnergyEvery, cfg.Derived.TimeStep)
	for st.Tick() < res.ticks {
		inst.Step(st)
		tick := st.Tick()
		if collector.ShouldSample(tick) {
			collector.Record(st.Energy())
		}
		if collector.ShouldFlush(tick) || tick == res.ticks {
			w := collector.Flush(st, nil)
			res.windows = append(res.windows, w)
			res.peak = max(res.peak, w.EnergyMax)
			if !w.Finite {
				res.diverged = true
				return res, nil
			}
		}
	}
	res.residual = st.Energy()
	return res, nil
}
