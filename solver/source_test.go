package solver

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/yee/lattice"
)

func TestContinuousWave_PerComponentPhase(t *testing.T) {
	s := &ContinuousWave{
		Frequency: 0.25,
		J:         Excitation{Amplitude: r3.Vec{X: 2, Y: 1}, Phase: r3.Vec{Y: math.Pi / 2}},
		M:         Excitation{Amplitude: r3.Vec{Z: 3}},
	}

	j := s.ElectricCurrentDensity(1, r3.Vec{})
	assert.InDelta(t, 2, j.X, 1e-12) // sin(pi/2)
	assert.InDelta(t, 0, j.Y, 1e-12) // sin(pi)
	assert.Zero(t, j.Z)

	m := s.MagneticCurrentDensity(0.5, r3.Vec{X: 5})
	assert.InDelta(t, 3*math.Sin(math.Pi/4), m.Z, 1e-12)
}

func TestGaussianPulse_PeakAndCutoff(t *testing.T) {
	s := &GaussianPulse{T0: 20, Tau: 10, J: r3.Vec{Y: 1}, M: r3.Vec{Z: -2}}

	assert.Equal(t, r3.Vec{Y: 1}, s.ElectricCurrentDensity(20, r3.Vec{}))
	assert.Equal(t, r3.Vec{Z: -2}, s.MagneticCurrentDensity(20, r3.Vec{}))
	assert.InDelta(t, math.Exp(-1), s.ElectricCurrentDensity(30, r3.Vec{}).Y, 1e-15)
	assert.InDelta(t, math.Exp(-1), s.ElectricCurrentDensity(10, r3.Vec{}).Y, 1e-15)
	assert.Equal(t, r3.Vec{}, s.ElectricCurrentDensity(81, r3.Vec{}))
	assert.Equal(t, r3.Vec{}, s.MagneticCurrentDensity(-41, r3.Vec{}))
}

func TestModulatedGaussian_NoDC(t *testing.T) {
	s := &ModulatedGaussian{T0: 24, Tau: 8, Frequency: 0.125, J: Excitation{Amplitude: r3.Vec{Z: 1}}}

	assert.Zero(t, s.ElectricCurrentDensity(24, r3.Vec{}).Z)
	var sum float64
	for i := 0; i <= 960; i++ {
		sum += s.ElectricCurrentDensity(float64(i)*0.05, r3.Vec{}).Z
	}
	assert.InDelta(t, 0, sum, 1e-9)
	assert.Equal(t, r3.Vec{}, s.MagneticCurrentDensity(30, r3.Vec{}))
}

func TestRickerWavelet(t *testing.T) {
	s := &RickerWavelet{T0: 10, Frequency: 0.1, J: r3.Vec{X: 1}}

	assert.InDelta(t, 1, s.ElectricCurrentDensity(10, r3.Vec{}).X, 1e-15)
	// Zero crossing at pi*f*(t-t0) = 1/sqrt(2).
	tz := 10 + 1/(math.Sqrt2*math.Pi*0.1)
	assert.InDelta(t, 0, s.ElectricCurrentDensity(tz, r3.Vec{}).X, 1e-12)
	assert.Less(t, s.ElectricCurrentDensity(15, r3.Vec{}).X, 0.0)
	assert.Equal(t, r3.Vec{}, s.ElectricCurrentDensity(100, r3.Vec{}))
}

// countingSource records every Prepare and Reset.
type countingSource struct {
	GaussianPulse
	prepared []float64
	resets   int
}

func (c *countingSource) Prepare(t float64) { c.prepared = append(c.prepared, t) }
func (c *countingSource) Reset()            { c.resets++ }

func TestSources_PrepareEachHalfStep(t *testing.T) {
	src := &countingSource{GaussianPulse: GaussianPulse{T0: 1, Tau: 1, J: r3.Vec{Y: 1}}}
	cfg := line1D(10)
	cfg.Sources = []Source{PointSource("counted", lattice.Pt(4, 0, 0), src)}
	inst := newInstance(t, cfg)
	s := inst.NewState()

	inst.StepN(s, 2)
	assert.Equal(t, []float64{0, 0.125, 0.25, 0.375}, src.prepared)

	inst.Reset(s)
	assert.Equal(t, 1, src.resets)
	assert.Len(t, inst.Sources(), 1)
}

func TestRegionSource_CoversRange(t *testing.T) {
	r := lattice.Box(lattice.Pt(1, 1, 1), lattice.Pt(3, 2, 4))
	src := RegionSource("plate", r, &GaussianPulse{Tau: 1})
	require.Len(t, src.Points, r.Len())
	for _, p := range src.Points {
		assert.True(t, r.Contains(p))
	}
}

func TestSources_InjectOnlyAtTheirCells(t *testing.T) {
	cfg := line1D(40)
	cfg.Sources = []Source{PointSource("kick", lattice.Pt(20, 0, 0), &GaussianPulse{
		T0: 0, Tau: 1, J: r3.Vec{Y: 1},
	})}
	inst := newInstance(t, cfg)
	s := inst.NewState()

	inst.Step(s)
	line := s.Line(FieldE, 1, 0, lattice.Point{})
	for x, v := range line {
		if x == 20 {
			// E = -Cb * J(dt/2) with Cb = dt.
			assert.InDelta(t, -0.25*math.Exp(-0.125*0.125), v, 1e-15)
			continue
		}
		assert.Zero(t, v, "x=%d", x)
	}
}
