package scene

import (
	"fmt"

	"github.com/pthm-cable/yee/config"
	"github.com/pthm-cable/yee/lattice"
	"github.com/pthm-cable/yee/projection"
	"github.com/pthm-cable/yee/solver"
	"github.com/pthm-cable/yee/telemetry"
)

// FromConfig builds a scene from a loaded configuration.
func FromConfig(cfg *config.Config) (*Scene, error) {
	var pml []solver.PMLFace
	for _, f := range cfg.Derived.PMLFaces {
		pml = append(pml, solver.PMLFace{Face: f, PMLParams: cfg.FaceParams(f)})
	}

	s := New(Settings{
		DomainSize: config.Vec(cfg.Solver.DomainSize),
		Resolution: config.Vec(cfg.Solver.Resolution),
		TimeStep:   cfg.Derived.TimeStep,
		Constants:  cfg.Derived.Constants,
		Background: cfg.Solver.Background,
		Boundary:   cfg.Derived.Boundary,
		PML:        pml,
		Workers:    cfg.Solver.Workers,
	})

	for _, m := range cfg.Materials {
		s.AddMaterial(m.Name, lattice.Box(config.Pt(m.Min), config.Pt(m.Max)), m.Material)
	}

	for i, sc := range cfg.Sources {
		fn, err := TimeFunction(sc)
		if err != nil {
			return nil, fmt.Errorf("sources[%d]: %w", i, err)
		}
		box := lattice.Single(config.Pt(sc.Min))
		if sc.Max != [3]int{} {
			box = lattice.Box(config.Pt(sc.Min), config.Pt(sc.Max))
		}
		s.AddSource(sc.Name, box, fn)
	}

	for i, pc := range cfg.Projections {
		v, err := viewFromConfig(pc)
		if err != nil {
			return nil, fmt.Errorf("projections[%d]: %w", i, err)
		}
		s.AddView(pc.Name, v)
	}

	for i, pc := range cfg.Telemetry.Probes {
		field, err := solver.ParseField(pc.Field)
		if err != nil {
			return nil, fmt.Errorf("telemetry.probes[%d]: %w", i, err)
		}
		comp, err := telemetry.ParseComponent(pc.Component)
		if err != nil {
			return nil, fmt.Errorf("telemetry.probes[%d]: %w", i, err)
		}
		s.AddProbe(pc.Name, Sensor{Field: field, Component: comp, Point: config.Pt(pc.Point)})
	}
	return s, nil
}

// TimeFunction builds the waveform named by sc.Kind.
func TimeFunction(sc config.SourceConfig) (solver.TimeFunction, error) {
	j, m := config.Vec(sc.J), config.Vec(sc.M)
	jx := solver.Excitation{Amplitude: j, Phase: config.Vec(sc.JPhase)}
	mx := solver.Excitation{Amplitude: m, Phase: config.Vec(sc.MPhase)}

	switch sc.Kind {
	case "continuous_wave":
		return &solver.ContinuousWave{Frequency: sc.Frequency, J: jx, M: mx}, nil
	case "gaussian":
		return &solver.GaussianPulse{T0: sc.T0, Tau: sc.Tau, J: j, M: m}, nil
	case "modulated_gaussian":
		return &solver.ModulatedGaussian{T0: sc.T0, Tau: sc.Tau, Frequency: sc.Frequency, J: jx, M: mx}, nil
	case "ricker":
		return &solver.RickerWavelet{T0: sc.T0, Frequency: sc.Frequency, J: j, M: m}, nil
	}
	return nil, fmt.Errorf("unknown source kind %q", sc.Kind)
}

func viewFromConfig(pc config.ProjectionConfig) (View, error) {
	field, err := solver.ParseField(pc.Field)
	if err != nil {
		return View{}, err
	}
	normal, err := telemetry.ParseComponent(pc.Normal)
	if err != nil {
		return View{}, err
	}
	scale := pc.Scale
	if scale <= 0 {
		scale = 1
	}

	var cm projection.ColorMap
	switch pc.ColorMap {
	case "components":
		cm = projection.Components(scale)
	case "diverging", "grayscale":
		comp, err := telemetry.ParseComponent(pc.Component)
		if err != nil {
			return View{}, fmt.Errorf("component: %w", err)
		}
		if pc.ColorMap == "diverging" {
			cm = projection.Diverging(comp, scale)
		} else {
			cm = projection.Grayscale(comp, scale)
		}
	default:
		return View{}, fmt.Errorf("unknown color map %q", pc.ColorMap)
	}

	return View{
		Field:    field,
		Normal:   normal,
		Offset:   pc.Offset,
		Width:    pc.Width,
		Height:   pc.Height,
		ColorMap: cm,
		Every:    pc.Every,
		GIF:      pc.GIF,
		Delay:    pc.Delay,
	}, nil
}
