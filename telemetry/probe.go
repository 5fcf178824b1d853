package telemetry

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/pthm-cable/yee/lattice"
	"github.com/pthm-cable/yee/solver"
)

// Probe records one component of a field at a lattice point.
type Probe struct {
	Name      string
	Field     solver.Field
	Component int // 0=x, 1=y, 2=z
	Point     lattice.Point
}

// ParseComponent maps "x", "y" or "z" to 0, 1 or 2.
func ParseComponent(s string) (int, error) {
	switch s {
	case "x":
		return 0, nil
	case "y":
		return 1, nil
	case "z":
		return 2, nil
	}
	return 0, fmt.Errorf("unknown component %q", s)
}

// ProbeSample is one row of probes.csv.
type ProbeSample struct {
	Tick  uint64  `csv:"tick"`
	Time  float64 `csv:"time"`
	Probe string  `csv:"probe"`
	Value float64 `csv:"value"`
}

// ProbeSet samples a fixed list of probes and keeps their history.
type ProbeSet struct {
	probes  []Probe
	history [][]float64
	pending []ProbeSample
}

// NewProbeSet checks every probe lies inside size.
func NewProbeSet(size lattice.Point, probes ...Probe) (*ProbeSet, error) {
	seen := make(map[string]bool, len(probes))
	for i, p := range probes {
		if p.Name == "" {
			return nil, fmt.Errorf("probe %d: empty name", i)
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("probe %q: duplicate name", p.Name)
		}
		seen[p.Name] = true
		if !p.Point.Within(size) {
			return nil, fmt.Errorf("probe %q: point %v outside lattice %v", p.Name, p.Point, size)
		}
		if p.Component < 0 || p.Component > 2 {
			return nil, fmt.Errorf("probe %q: component %d out of range", p.Name, p.Component)
		}
	}
	return &ProbeSet{
		probes:  probes,
		history: make([][]float64, len(probes)),
	}, nil
}

// Len returns the number of probes.
func (ps *ProbeSet) Len() int { return len(ps.probes) }

// Record samples every probe from the current slot of s.
func (ps *ProbeSet) Record(s *solver.State) {
	for i, p := range ps.probes {
		v, _ := s.Value(p.Field, p.Point)
		x := [3]float64{v.X, v.Y, v.Z}[p.Component]
		ps.history[i] = append(ps.history[i], x)
		ps.pending = append(ps.pending, ProbeSample{
			Tick:  s.Tick(),
			Time:  s.Time(),
			Probe: p.Name,
			Value: x,
		})
	}
}

// Drain returns the samples recorded since the last Drain.
func (ps *ProbeSet) Drain() []ProbeSample {
	out := ps.pending
	ps.pending = nil
	return out
}

// History returns every value recorded for the named probe.
func (ps *ProbeSet) History(name string) []float64 {
	for i, p := range ps.probes {
		if p.Name == name {
			return ps.history[i]
		}
	}
	return nil
}

// Peak returns the largest absolute value recorded for the named probe.
func (ps *ProbeSet) Peak(name string) float64 {
	h := ps.History(name)
	if len(h) == 0 {
		return 0
	}
	abs := make([]float64, len(h))
	for i, v := range h {
		abs[i] = math.Abs(v)
	}
	return floats.Max(abs)
}

// Reset clears history and pending samples.
func (ps *ProbeSet) Reset() {
	for i := range ps.history {
		ps.history[i] = ps.history[i][:0]
	}
	ps.pending = nil
}
