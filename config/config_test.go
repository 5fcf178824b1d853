package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/yee/lattice"
	"github.com/pthm-cable/yee/solver"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, lattice.Pt(160, 160, 1), cfg.Derived.LatticeSize)
	assert.Equal(t, solver.Reduced, cfg.Derived.Constants)
	assert.InDelta(t, 1/1.7320508075688772, cfg.Derived.CourantLimit, 1e-12)
	assert.InDelta(t, 0.99*cfg.Derived.CourantLimit, cfg.Derived.TimeStep, 1e-15)
	assert.Equal(t, []solver.Face{solver.XLow, solver.XHigh, solver.YLow, solver.YHigh}, cfg.Derived.PMLFaces)
	assert.Equal(t, 5*time.Millisecond, cfg.Derived.StepInterval)
	assert.InDeltaSlice(t, []float64{3.2, 3.2, 3.2}, cfg.Derived.OptimalSigma[:], 1e-12)

	require.Len(t, cfg.Materials, 1)
	assert.Equal(t, 4.0, cfg.Materials[0].RelativePermittivity)
	require.Len(t, cfg.Sources, 1)
	assert.Equal(t, "modulated_gaussian", cfg.Sources[0].Kind)
	require.Len(t, cfg.Telemetry.Probes, 1)
}

func TestLoad_MergesOverDefaults(t *testing.T) {
	path := writeFile(t, `
solver:
  domain_size: [64, 32, 16]
  time_step: 0.25
  boundary: [periodic, neumann, zero]
pml:
  faces: [all]
  thickness: 4
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, lattice.Pt(64, 32, 16), cfg.Derived.LatticeSize)
	assert.Equal(t, 0.25, cfg.Derived.TimeStep)
	assert.Equal(t, [3]solver.Boundary{solver.BoundaryPeriodic, solver.BoundaryNeumann, solver.BoundaryZero}, cfg.Derived.Boundary)
	assert.Len(t, cfg.Derived.PMLFaces, 6)
	// Untouched keys keep their defaults.
	assert.Equal(t, 2.5, cfg.PML.KappaMax)
	assert.Equal(t, 960, cfg.Screen.Width)
}

func TestLoad_Errors(t *testing.T) {
	cases := map[string]string{
		"units":    "solver:\n  units: imperial\n",
		"boundary": "solver:\n  boundary: [zero, sticky, zero]\n",
		"face":     "pml:\n  faces: [w+]\n",
		"yaml":     "solver: [\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestFaceParams_ResolvesOptimalSigma(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	p := cfg.FaceParams(solver.XLow)
	assert.Equal(t, cfg.Derived.OptimalSigma[0], p.SigmaMax)
	assert.Equal(t, 12, p.Thickness)

	cfg.PML.SigmaScale = 2
	assert.InDelta(t, 2*cfg.Derived.OptimalSigma[0], cfg.FaceParams(solver.XHigh).SigmaMax, 1e-12)

	cfg.PML.SigmaMax = 1.5
	assert.Equal(t, 1.5, cfg.FaceParams(solver.YLow).SigmaMax)
}

func TestFaceParams_NonCubicCells(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	cfg.Solver.Resolution = [3]float64{1, 0.5, 1}
	cfg.Solver.TimeStep = 0
	require.NoError(t, cfg.Recompute())

	sx := cfg.FaceParams(solver.XLow).SigmaMax
	sy := cfg.FaceParams(solver.YHigh).SigmaMax
	assert.InDelta(t, 2*sx, sy, 1e-12)
	assert.InDelta(t, solver.OptimalSigma(cfg.PML.Order, 0.5, 1, cfg.Derived.Constants), sy, 1e-12)
}

func TestWriteYAML_RoundTrip(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	cfg.Solver.Workers = 3
	cfg.Sources[0].T0 = 99

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, cfg.WriteYAML(path))

	back, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, back.Solver.Workers)
	assert.Equal(t, 99.0, back.Sources[0].T0)
	assert.Equal(t, cfg.Materials, back.Materials)
	assert.Equal(t, cfg.Derived.LatticeSize, back.Derived.LatticeSize)
}

func TestGlobal(t *testing.T) {
	require.NoError(t, Init(""))
	assert.NotNil(t, Cfg())
	assert.Panics(t, func() { MustInit(filepath.Join(t.TempDir(), "nope.yaml")) })
}
