package telemetry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/yee/lattice"
	"github.com/pthm-cable/yee/solver"
)

// pulse is a closed 1D line with a Gaussian current at cell 16 that is
// switched off after t=9.
func pulse(t *testing.T) (*solver.Instance, *solver.State) {
	t.Helper()
	inst, err := solver.New(solver.Config{
		DomainSize: r3.Vec{X: 32, Y: 1, Z: 1},
		Resolution: r3.Vec{X: 1, Y: 1, Z: 1},
		TimeStep:   0.25,
		Constants:  solver.Reduced,
		Workers:    1,
		Sources: []solver.Source{solver.PointSource("src", lattice.Pt(16, 0, 0), &solver.GaussianPulse{
			T0: 3, Tau: 1, J: r3.Vec{Y: 1},
		})},
	})
	require.NoError(t, err)
	t.Cleanup(inst.Close)
	return inst, inst.NewState()
}

func TestSampleField(t *testing.T) {
	inst, s := pulse(t)

	fs := SampleField(s)
	assert.Zero(t, fs.Energy)
	assert.Zero(t, fs.MaxE)
	assert.True(t, fs.Finite)

	inst.StepN(s, 20)
	fs = SampleField(s)
	assert.Greater(t, fs.Energy, 0.0)
	assert.InDelta(t, s.Energy(), fs.Energy, 1e-15)
	assert.Greater(t, fs.MaxE, 0.0)
	assert.Greater(t, fs.MaxH, 0.0)

	v, ok := s.Value(solver.FieldE, fs.MaxEAt)
	require.True(t, ok)
	assert.InDelta(t, fs.MaxE, math.Abs(v.Y), 1e-15)
}

func TestCollector_Windows(t *testing.T) {
	inst, s := pulse(t)
	c := NewCollector(20, 2, inst.TimeStep())

	var windows []WindowStats
	for range 60 {
		inst.Step(s)
		if c.ShouldSample(s.Tick()) {
			c.Record(s.Energy())
		}
		if c.ShouldFlush(s.Tick()) {
			windows = append(windows, c.Flush(s, nil))
		}
	}

	require.Len(t, windows, 3)
	for i, w := range windows {
		assert.Equal(t, uint64(20*i), w.WindowStartTick)
		assert.Equal(t, uint64(20*(i+1)), w.WindowEndTick)
		assert.InDelta(t, float64(w.WindowEndTick)*0.25, w.SimTime, 1e-12)
		assert.LessOrEqual(t, w.EnergyMin, w.EnergyMean)
		assert.LessOrEqual(t, w.EnergyMean, w.EnergyMax)
		assert.True(t, w.Finite)
	}
	assert.Zero(t, windows[0].EnergyDrift)

	// Once the source has died out, a closed lossless line conserves energy.
	assert.InDelta(t, 0, windows[2].EnergyDrift, 0.05)
	assert.InEpsilon(t, windows[2].EnergyMax, windows[2].EnergyMin, 0.05)

	c.Reset()
	assert.True(t, c.ShouldFlush(20))
	assert.False(t, c.ShouldFlush(19))
	assert.Equal(t, uint64(20), c.WindowTicks())
}

func TestCollector_Defaults(t *testing.T) {
	c := NewCollector(0, 5, 1)
	assert.Equal(t, uint64(1), c.WindowTicks())
	assert.True(t, c.ShouldSample(3))
}

func TestWindowStats_LogValue(t *testing.T) {
	w := WindowStats{WindowEndTick: 7, Energy: 1.5, MaxEAt: "(1, 2, 3)", Finite: true}
	attrs := w.LogValue().Group()
	got := map[string]any{}
	for _, a := range attrs {
		got[a.Key] = a.Value.Any()
	}
	assert.Equal(t, uint64(7), got["window_end"])
	assert.Equal(t, 1.5, got["energy"])
	assert.Equal(t, "(1, 2, 3)", got["max_e_at"])
}
