package telemetry

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/pthm-cable/yee/solver"
)

// Collector samples field energy at a fixed cadence and produces a
// WindowStats every window.
type Collector struct {
	windowTicks uint64
	sampleEvery uint64
	dt          float64

	windowStartTick uint64
	energies        []float64
	lastEnergy      float64
	haveLast        bool
}

// NewCollector creates a collector with windows of windowTicks ticks that
// samples energy every sampleEvery ticks. dt converts ticks to time.
func NewCollector(windowTicks, sampleEvery uint64, dt float64) *Collector {
	if windowTicks < 1 {
		windowTicks = 1
	}
	if sampleEvery < 1 || sampleEvery > windowTicks {
		sampleEvery = windowTicks
	}
	return &Collector{
		windowTicks: windowTicks,
		sampleEvery: sampleEvery,
		dt:          dt,
	}
}

// ShouldSample reports whether tick falls on the energy cadence.
func (c *Collector) ShouldSample(tick uint64) bool {
	return tick%c.sampleEvery == 0
}

// Record adds one energy sample to the open window.
func (c *Collector) Record(energy float64) {
	c.energies = append(c.energies, energy)
}

// ShouldFlush returns true once the open window spans windowTicks ticks.
func (c *Collector) ShouldFlush(tick uint64) bool {
	return tick-c.windowStartTick >= c.windowTicks
}

// Flush samples s, closes the window and opens the next one at s.Tick().
// perf may be nil.
func (c *Collector) Flush(s *solver.State, perf *PerfCollector) WindowStats {
	fs := SampleField(s)
	samples := append(c.energies, fs.Energy)

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   s.Tick(),
		SimTime:         float64(s.Tick()) * c.dt,
		Energy:          fs.Energy,
		EnergyMin:       floats.Min(samples),
		EnergyMax:       floats.Max(samples),
		EnergyMean:      floats.Sum(samples) / float64(len(samples)),
		MaxE:            fs.MaxE,
		MaxH:            fs.MaxH,
		MaxEAt:          fs.MaxEAt.String(),
		Finite:          fs.Finite,
	}
	if c.haveLast && c.lastEnergy > 0 {
		stats.EnergyDrift = (fs.Energy - c.lastEnergy) / c.lastEnergy
	}
	if math.IsNaN(stats.EnergyDrift) {
		stats.Finite = false
	}
	if perf != nil {
		stats.AvgStepUS = perf.Stats().AvgTickDuration.Microseconds()
	}

	c.windowStartTick = s.Tick()
	c.energies = c.energies[:0]
	c.lastEnergy = fs.Energy
	c.haveLast = true
	return stats
}

// Reset forgets all history, for use after the state is reset.
func (c *Collector) Reset() {
	c.windowStartTick = 0
	c.energies = c.energies[:0]
	c.lastEnergy = 0
	c.haveLast = false
}

// WindowTicks returns the number of ticks per window.
func (c *Collector) WindowTicks() uint64 {
	return c.windowTicks
}
