package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/yee/config"
	"github.com/pthm-cable/yee/lattice"
	"github.com/pthm-cable/yee/solver"
)

func smallScene() *Scene {
	return New(Settings{
		DomainSize: r3.Vec{X: 20, Y: 10, Z: 1},
		Resolution: r3.Vec{X: 1, Y: 1, Z: 1},
		TimeStep:   0.5,
		Constants:  solver.Reduced,
		Workers:    1,
	})
}

func TestDistribution_LaterRegionsWin(t *testing.T) {
	s := smallScene()
	s.AddMaterial("glass", lattice.Box(lattice.Pt(5, 0, 0), lattice.Pt(15, 10, 1)), solver.Dielectric(2))
	s.AddMaterial("core", lattice.Box(lattice.Pt(8, 0, 0), lattice.Pt(12, 10, 1)), solver.Dielectric(9))

	dist := s.Distribution()
	assert.Equal(t, solver.Vacuum, dist(lattice.Pt(0, 0, 0)))
	assert.Equal(t, 2.0, dist(lattice.Pt(5, 3, 0)).RelativePermittivity)
	assert.Equal(t, 9.0, dist(lattice.Pt(10, 3, 0)).RelativePermittivity)
	assert.Equal(t, 2.0, dist(lattice.Pt(14, 3, 0)).RelativePermittivity)
	assert.Equal(t, solver.Vacuum, dist(lattice.Pt(15, 3, 0)))
}

func TestDistribution_Background(t *testing.T) {
	s := smallScene()
	s.Settings.Background = solver.Dielectric(3)
	assert.Equal(t, 3.0, s.Distribution()(lattice.Pt(1, 1, 0)).RelativePermittivity)
}

func TestRemove(t *testing.T) {
	s := smallScene()
	e := s.AddMaterial("glass", lattice.Box(lattice.Pt(0, 0, 0), lattice.Pt(20, 10, 1)), solver.Dielectric(2))
	assert.Equal(t, "glass", s.Name(e))

	s.Remove(e)
	s.Remove(e)
	assert.Equal(t, "", s.Name(e))
	assert.Equal(t, solver.Vacuum, s.Distribution()(lattice.Pt(3, 3, 0)))
}

func TestName_EveryKind(t *testing.T) {
	s := smallScene()
	src := s.AddSource("pulse", lattice.Single(lattice.Pt(2, 2, 0)), &solver.GaussianPulse{T0: 1, Tau: 1})
	view := s.AddView("ez", View{Field: solver.FieldE, Normal: 2})
	probe := s.AddProbe("near", Sensor{Field: solver.FieldE, Component: 2, Point: lattice.Pt(3, 3, 0)})

	assert.Equal(t, "pulse", s.Name(src))
	assert.Equal(t, "ez", s.Name(view))
	assert.Equal(t, "near", s.Name(probe))

	s.Remove(view)
	assert.Equal(t, "", s.Name(view))
	assert.Equal(t, "near", s.Name(probe))
}

func TestSources_InsertionOrder(t *testing.T) {
	s := smallScene()
	s.AddSource("a", lattice.Single(lattice.Pt(1, 1, 0)), &solver.GaussianPulse{T0: 5, Tau: 2, J: r3.Vec{Z: 1}})
	s.AddMaterial("m", lattice.Box(lattice.Pt(0, 0, 0), lattice.Pt(2, 2, 1)), solver.Dielectric(2))
	s.AddSource("b", lattice.Box(lattice.Pt(4, 4, 0), lattice.Pt(6, 5, 1)), &solver.GaussianPulse{T0: 5, Tau: 2, J: r3.Vec{Z: 1}})

	srcs := s.Sources()
	require.Len(t, srcs, 2)
	assert.Equal(t, "a", srcs[0].Name)
	assert.Equal(t, "b", srcs[1].Name)
	assert.Equal(t, []lattice.Point{lattice.Pt(4, 4, 0), lattice.Pt(5, 4, 0)}, srcs[1].Points)
}

func TestBuild(t *testing.T) {
	s := smallScene()
	s.AddMaterial("slab", lattice.Box(lattice.Pt(10, 0, 0), lattice.Pt(30, 10, 1)), solver.Dielectric(4))
	s.AddSource("src", lattice.Single(lattice.Pt(3, 5, 0)), &solver.GaussianPulse{T0: 5, Tau: 2, J: r3.Vec{Z: 1}})

	inst, err := s.Build()
	require.NoError(t, err)
	defer inst.Close()

	m, ok := inst.Material(lattice.Pt(12, 2, 0))
	require.True(t, ok)
	assert.Equal(t, 4.0, m.RelativePermittivity)
	require.Len(t, inst.Sources(), 1)

	st := inst.NewState()
	inst.StepN(st, 20)
	assert.True(t, st.Finite())
	assert.Greater(t, st.Energy(), 0.0)
}

func TestCompile_Errors(t *testing.T) {
	s := smallScene()
	s.AddMaterial("outside", lattice.Box(lattice.Pt(30, 0, 0), lattice.Pt(40, 10, 1)), solver.Dielectric(2))
	_, err := s.Compile()
	assert.ErrorContains(t, err, `material "outside"`)

	s = smallScene()
	s.AddMaterial("bad", lattice.Box(lattice.Pt(0, 0, 0), lattice.Pt(1, 1, 1)), solver.Material{RelativePermittivity: 0.5, RelativePermeability: 1})
	_, err = s.Compile()
	assert.Error(t, err)

	s = smallScene()
	s.AddSource("empty", lattice.Box(lattice.Pt(2, 2, 0), lattice.Pt(2, 3, 1)), &solver.GaussianPulse{})
	_, err = s.Compile()
	assert.ErrorContains(t, err, `source "empty"`)

	s = smallScene()
	s.AddSource("far", lattice.Single(lattice.Pt(50, 0, 0)), &solver.GaussianPulse{T0: 1, Tau: 1})
	_, err = s.Build()
	assert.ErrorIs(t, err, solver.ErrSourceRange)
}

func TestFromConfig_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	s, err := FromConfig(cfg)
	require.NoError(t, err)

	assert.Equal(t, lattice.Pt(160, 160, 1), s.LatticeSize())
	assert.Len(t, s.Settings.PML, 4)
	assert.Equal(t, cfg.Derived.OptimalSigma[0], s.Settings.PML[0].SigmaMax)

	views := s.Views()
	require.Len(t, views, 1)
	assert.Equal(t, "ez", views[0].Name)
	assert.Equal(t, 2, views[0].Normal)
	w, h := views[0].Size(s.LatticeSize())
	assert.Equal(t, []int{160, 160}, []int{w, h})

	probes := s.Probes()
	require.Len(t, probes, 1)
	assert.Equal(t, lattice.Pt(130, 80, 0), probes[0].Point)
	assert.Equal(t, 2, probes[0].Component)

	srcs := s.Sources()
	require.Len(t, srcs, 1)
	_, ok := srcs[0].Function.(*solver.ModulatedGaussian)
	assert.True(t, ok)

	inst, err := s.Build()
	require.NoError(t, err)
	defer inst.Close()
	m, _ := inst.Material(lattice.Pt(105, 80, 0))
	assert.Equal(t, 4.0, m.RelativePermittivity)
}

func TestFromConfig_Errors(t *testing.T) {
	load := func() *config.Config {
		cfg, err := config.Load("")
		require.NoError(t, err)
		return cfg
	}

	cfg := load()
	cfg.Sources[0].Kind = "square"
	_, err := FromConfig(cfg)
	assert.ErrorContains(t, err, "sources[0]")

	cfg = load()
	cfg.Projections[0].ColorMap = "rainbow"
	_, err = FromConfig(cfg)
	assert.ErrorContains(t, err, "projections[0]")

	cfg = load()
	cfg.Projections[0].Normal = "w"
	_, err = FromConfig(cfg)
	assert.Error(t, err)

	cfg = load()
	cfg.Telemetry.Probes[0].Field = "B"
	_, err = FromConfig(cfg)
	assert.ErrorContains(t, err, "telemetry.probes[0]")
}

func TestTimeFunction_Kinds(t *testing.T) {
	for _, kind := range []string{"continuous_wave", "gaussian", "modulated_gaussian", "ricker"} {
		fn, err := TimeFunction(config.SourceConfig{Kind: kind, Frequency: 0.1, T0: 10, Tau: 3, J: [3]float64{0, 0, 1}})
		require.NoError(t, err, kind)
		assert.NotNil(t, fn)
	}
}
