package telemetry

import (
	"context"
	"log/slog"
	"math"

	"github.com/pthm-cable/yee/lattice"
	"github.com/pthm-cable/yee/solver"
)

// FieldSample summarises the current field of a state.
type FieldSample struct {
	Energy float64
	MaxE   float64
	MaxH   float64
	MaxEAt lattice.Point
	Finite bool
}

// SampleField scans the current slot of s once. It reads the state without
// locking; call it between steps or under an executor read lease.
func SampleField(s *solver.State) FieldSample {
	out := FieldSample{Finite: true}
	fields := s.Fields()
	cur := s.Current()
	best := -1
	for i, c := range fields.Data() {
		e := *c.E.Get(cur)
		h := *c.H.Get(cur)
		me := math.Sqrt(e.X*e.X + e.Y*e.Y + e.Z*e.Z)
		mh := math.Sqrt(h.X*h.X + h.Y*h.Y + h.Z*h.Z)
		if math.IsNaN(me) || math.IsInf(me, 0) || math.IsNaN(mh) || math.IsInf(mh, 0) {
			out.Finite = false
			continue
		}
		if me > out.MaxE {
			out.MaxE = me
			best = i
		}
		out.MaxH = max(out.MaxH, mh)
	}
	if best >= 0 {
		out.MaxEAt = fields.FromIndex(best)
	}
	out.Energy = s.Energy()
	return out
}

// WindowStats aggregates field samples over a window of ticks. It is one
// row of steps.csv.
type WindowStats struct {
	WindowStartTick uint64  `csv:"-"`
	WindowEndTick   uint64  `csv:"window_end"`
	SimTime         float64 `csv:"sim_time"`

	// Energy at window end, and its range over the samples in the window.
	Energy     float64 `csv:"energy"`
	EnergyMin  float64 `csv:"energy_min"`
	EnergyMax  float64 `csv:"energy_max"`
	EnergyMean float64 `csv:"energy_mean"`
	// Relative change against the previous window's end energy.
	EnergyDrift float64 `csv:"energy_drift"`

	MaxE   float64 `csv:"max_e"`
	MaxH   float64 `csv:"max_h"`
	MaxEAt string  `csv:"max_e_at"`
	Finite bool    `csv:"finite"`

	AvgStepUS int64 `csv:"avg_step_us"`
}

// LogValue implements slog.LogValuer.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("window_start", s.WindowStartTick),
		slog.Uint64("window_end", s.WindowEndTick),
		slog.Float64("sim_time", s.SimTime),
		slog.Float64("energy", s.Energy),
		slog.Float64("energy_min", s.EnergyMin),
		slog.Float64("energy_max", s.EnergyMax),
		slog.Float64("energy_drift", s.EnergyDrift),
		slog.Float64("max_e", s.MaxE),
		slog.Float64("max_h", s.MaxH),
		slog.String("max_e_at", s.MaxEAt),
		slog.Bool("finite", s.Finite),
		slog.Int64("avg_step_us", s.AvgStepUS),
	)
}

// LogStats logs the window at Info, or at Warn once the field has diverged.
func (s WindowStats) LogStats() {
	level := slog.LevelInfo
	if !s.Finite {
		level = slog.LevelWarn
	}
	slog.Log(context.Background(), level, "stats",
		"tick", s.WindowEndTick,
		"time", s.SimTime,
		"energy", s.Energy,
		"energy_drift", s.EnergyDrift,
		"max_e", s.MaxE,
		"max_h", s.MaxH,
		"max_e_at", s.MaxEAt,
		"step_us", s.AvgStepUS,
	)
}
