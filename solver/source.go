package solver

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/yee/lattice"
)

// TimeFunction produces the current densities a source injects. Implementations
// must be safe for concurrent calls to the density methods once Prepare has
// returned for a given t.
type TimeFunction interface {
	// Prepare is called once per half step before any density is evaluated.
	Prepare(t float64)
	// ElectricCurrentDensity returns J at time t and physical position pos.
	ElectricCurrentDensity(t float64, pos r3.Vec) r3.Vec
	// MagneticCurrentDensity returns M at time t and physical position pos.
	MagneticCurrentDensity(t float64, pos r3.Vec) r3.Vec
	// Reset returns any internal state to its initial value.
	Reset()
}

// Source injects a time function at a set of lattice points.
type Source struct {
	Name     string
	Points   []lattice.Point
	Function TimeFunction
}

// PointSource is a source acting on a single cell.
func PointSource(name string, p lattice.Point, fn TimeFunction) Source {
	return Source{Name: name, Points: []lattice.Point{p}, Function: fn}
}

// RegionSource is a source acting on every cell of r.
func RegionSource(name string, r lattice.Range, fn TimeFunction) Source {
	pts := make([]lattice.Point, 0, r.Len())
	for p := range r.Points() {
		pts = append(pts, p)
	}
	return Source{Name: name, Points: pts, Function: fn}
}

// Excitation is a per-component sinusoid amplitude and phase (radians).
type Excitation struct {
	Amplitude r3.Vec `yaml:"amplitude"`
	Phase     r3.Vec `yaml:"phase"`
}

// sin evaluates A_i * sin(omega*t + phi_i) per component.
func (e Excitation) sin(omegaT float64) r3.Vec {
	return r3.Vec{
		X: e.Amplitude.X * math.Sin(omegaT+e.Phase.X),
		Y: e.Amplitude.Y * math.Sin(omegaT+e.Phase.Y),
		Z: e.Amplitude.Z * math.Sin(omegaT+e.Phase.Z),
	}
}

// ContinuousWave emits A*sin(2*pi*f*t + phi) indefinitely.
type ContinuousWave struct {
	Frequency float64
	J, M      Excitation
}

func (s *ContinuousWave) Prepare(float64) {}
func (s *ContinuousWave) Reset()          {}

func (s *ContinuousWave) ElectricCurrentDensity(t float64, _ r3.Vec) r3.Vec {
	return s.J.sin(2 * math.Pi * s.Frequency * t)
}

func (s *ContinuousWave) MagneticCurrentDensity(t float64, _ r3.Vec) r3.Vec {
	return s.M.sin(2 * math.Pi * s.Frequency * t)
}

// gaussianCutoff is the number of widths beyond which a pulse is treated as off.
const gaussianCutoff = 6

func gaussian(t, t0, tau float64) float64 {
	x := (t - t0) / tau
	if math.Abs(x) > gaussianCutoff {
		return 0
	}
	return math.Exp(-x * x)
}

// GaussianPulse emits A*exp(-((t-t0)/tau)^2).
type GaussianPulse struct {
	T0, Tau float64
	J, M    r3.Vec
}

func (s *GaussianPulse) Prepare(float64) {}
func (s *GaussianPulse) Reset()          {}

func (s *GaussianPulse) ElectricCurrentDensity(t float64, _ r3.Vec) r3.Vec {
	return r3.Scale(gaussian(t, s.T0, s.Tau), s.J)
}

func (s *GaussianPulse) MagneticCurrentDensity(t float64, _ r3.Vec) r3.Vec {
	return r3.Scale(gaussian(t, s.T0, s.Tau), s.M)
}

// ModulatedGaussian is a Gaussian envelope on a sinusoidal carrier. It has
// no DC content, so it leaves no static charge behind.
type ModulatedGaussian struct {
	T0, Tau   float64
	Frequency float64
	J, M      Excitation
}

func (s *ModulatedGaussian) Prepare(float64) {}
func (s *ModulatedGaussian) Reset()          {}

func (s *ModulatedGaussian) ElectricCurrentDensity(t float64, _ r3.Vec) r3.Vec {
	env := gaussian(t, s.T0, s.Tau)
	if env == 0 {
		return r3.Vec{}
	}
	return r3.Scale(env, s.J.sin(2*math.Pi*s.Frequency*(t-s.T0)))
}

func (s *ModulatedGaussian) MagneticCurrentDensity(t float64, _ r3.Vec) r3.Vec {
	env := gaussian(t, s.T0, s.Tau)
	if env == 0 {
		return r3.Vec{}
	}
	return r3.Scale(env, s.M.sin(2*math.Pi*s.Frequency*(t-s.T0)))
}

// RickerWavelet is (1 - 2*(pi*f*(t-t0))^2) * exp(-(pi*f*(t-t0))^2).
type RickerWavelet struct {
	T0, Frequency float64
	J, M          r3.Vec
}

func (s *RickerWavelet) Prepare(float64) {}
func (s *RickerWavelet) Reset()          {}

func (s *RickerWavelet) value(t float64) float64 {
	x := math.Pi * s.Frequency * (t - s.T0)
	x2 := x * x
	if x2 > gaussianCutoff*gaussianCutoff {
		return 0
	}
	return (1 - 2*x2) * math.Exp(-x2)
}

func (s *RickerWavelet) ElectricCurrentDensity(t float64, _ r3.Vec) r3.Vec {
	return r3.Scale(s.value(t), s.J)
}

func (s *RickerWavelet) MagneticCurrentDensity(t float64, _ r3.Vec) r3.Vec {
	return r3.Scale(s.value(t), s.M)
}

// maxSources is bounded by the uint16 source index, 0 meaning none.
const maxSources = math.MaxUint16

// installSources validates the sources and marks their cells in a source
// index lattice.
func installSources(sources []Source, size lattice.Point) (*lattice.Lattice[uint16], error) {
	if len(sources) > maxSources {
		return nil, configErrorf("sources", "at most %d sources supported, got %d", maxSources, len(sources))
	}
	idx := lattice.New[uint16](size)
	for k, s := range sources {
		if s.Function == nil {
			return nil, configErrorf(fmt.Sprintf("sources[%d].function", k), "source %q has no time function", s.Name)
		}
		for _, p := range s.Points {
			cell := idx.Get(p)
			if cell == nil {
				return nil, &SourceError{Source: s.Name, Point: p}
			}
			if *cell != 0 && *cell != uint16(k+1) {
				other := sources[*cell-1].Name
				return nil, configErrorf(fmt.Sprintf("sources[%d].points", k), "source %q overlaps %q at %v", s.Name, other, p)
			}
			*cell = uint16(k + 1)
		}
	}
	return idx, nil
}
