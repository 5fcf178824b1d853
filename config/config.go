// Package config provides configuration loading and access for yee runs.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/yee/lattice"
	"github.com/pthm-cable/yee/solver"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all run configuration.
type Config struct {
	Solver      SolverConfig       `yaml:"solver"`
	PML         PMLConfig          `yaml:"pml"`
	Materials   []MaterialConfig   `yaml:"materials"`
	Sources     []SourceConfig     `yaml:"sources"`
	Executor    ExecutorConfig     `yaml:"executor"`
	Projections []ProjectionConfig `yaml:"projections"`
	Telemetry   TelemetryConfig    `yaml:"telemetry"`
	Screen      ScreenConfig       `yaml:"screen"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// SolverConfig holds the domain and stepping parameters.
type SolverConfig struct {
	DomainSize    [3]float64      `yaml:"domain_size"`
	Resolution    [3]float64      `yaml:"resolution"`
	TimeStep      float64         `yaml:"time_step"`      // 0 = courant_factor * Courant limit
	CourantFactor float64         `yaml:"courant_factor"` // Used when time_step is 0
	Units         string          `yaml:"units"`          // "reduced" or "si"
	Workers       int             `yaml:"workers"`        // 0 = GOMAXPROCS
	Boundary      [3]string       `yaml:"boundary"`       // zero, neumann or periodic per axis
	Background    solver.Material `yaml:"background"`
}

// PMLConfig holds CPML grading. Faces lists face names ("x-", "y+", ...) or
// "all"; an empty list disables the PML.
type PMLConfig struct {
	Faces      []string `yaml:"faces"`
	Thickness  int      `yaml:"thickness"`
	Order      float64  `yaml:"m"`
	AlphaOrder float64  `yaml:"m_a"`
	SigmaMax   float64  `yaml:"sigma_max"`   // 0 = optimal per axis
	SigmaScale float64  `yaml:"sigma_scale"` // multiplies the optimum; 0 = 1
	KappaMax   float64  `yaml:"kappa_max"`
	AlphaMax   float64  `yaml:"alpha_max"`
}

// MaterialConfig fills the half-open cell box [min, max) with a material.
// Later entries win where boxes overlap.
type MaterialConfig struct {
	Name            string `yaml:"name"`
	Min             [3]int `yaml:"min"`
	Max             [3]int `yaml:"max"`
	solver.Material `yaml:",inline"`
}

// SourceConfig describes one source. With max unset the source is the
// single cell at min.
type SourceConfig struct {
	Name      string     `yaml:"name"`
	Kind      string     `yaml:"kind"` // continuous_wave, gaussian, modulated_gaussian, ricker
	Min       [3]int     `yaml:"min"`
	Max       [3]int     `yaml:"max"`
	Frequency float64    `yaml:"frequency"`
	T0        float64    `yaml:"t0"`
	Tau       float64    `yaml:"tau"`
	J         [3]float64 `yaml:"j"`
	M         [3]float64 `yaml:"m"`
	JPhase    [3]float64 `yaml:"j_phase"`
	MPhase    [3]float64 `yaml:"m_phase"`
}

// ExecutorConfig holds background run parameters.
type ExecutorConfig struct {
	StepIntervalMS float64 `yaml:"step_interval_ms"`
	QueueSize      int     `yaml:"queue_size"`
}

// ProjectionConfig describes one axis-aligned view of a field.
type ProjectionConfig struct {
	Name      string  `yaml:"name"`
	Field     string  `yaml:"field"`     // "E" or "H"
	Normal    string  `yaml:"normal"`    // x, y or z
	Offset    int     `yaml:"offset"`    // cell index along the normal
	Width     int     `yaml:"width"`     // 0 = lattice extent
	Height    int     `yaml:"height"`    // 0 = lattice extent
	ColorMap  string  `yaml:"color_map"` // diverging, grayscale or components
	Component string  `yaml:"component"` // x, y or z; ignored by components
	Scale     float64 `yaml:"scale"`
	Every     uint64  `yaml:"every"`
	GIF       string  `yaml:"gif"`       // output file, relative to the output dir
	Delay     int     `yaml:"gif_delay"` // hundredths of a second
}

// TelemetryConfig holds sampling parameters.
type TelemetryConfig struct {
	Window      uint64        `yaml:"window"`       // ticks per stats window
	EnergyEvery uint64        `yaml:"energy_every"` // ticks between energy samples
	PerfWindow  int           `yaml:"perf_window"`
	Probes      []ProbeConfig `yaml:"probes"`
}

// ProbeConfig records one field component at a cell.
type ProbeConfig struct {
	Name      string `yaml:"name"`
	Field     string `yaml:"field"`
	Component string `yaml:"component"`
	Point     [3]int `yaml:"point"`
}

// ScreenConfig holds viewer window settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	Constants    solver.Constants
	Boundary     [3]solver.Boundary
	LatticeSize  lattice.Point
	CourantLimit float64
	TimeStep     float64
	OptimalSigma [3]float64 // per axis, at the background permittivity
	PMLFaces     []solver.Face
	StepInterval time.Duration
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used. Lists in the file
// replace the default lists rather than extending them.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := Parse(data, cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.computeDerived(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse unmarshals data over cfg. It does not recompute derived values.
func Parse(data []byte, cfg *Config) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

// computeDerived resolves names and fills Derived.
func (c *Config) computeDerived() error {
	switch c.Solver.Units {
	case "", "reduced":
		c.Derived.Constants = solver.Reduced
	case "si":
		c.Derived.Constants = solver.SI
	default:
		return fmt.Errorf("solver.units: unknown unit system %q", c.Solver.Units)
	}

	for a, name := range c.Solver.Boundary {
		if name == "" {
			c.Derived.Boundary[a] = solver.BoundaryZero
			continue
		}
		b, err := solver.ParseBoundary(name)
		if err != nil {
			return fmt.Errorf("solver.boundary[%d]: %w", a, err)
		}
		c.Derived.Boundary[a] = b
	}

	res := Vec(c.Solver.Resolution)
	c.Derived.LatticeSize = solver.LatticeSize(Vec(c.Solver.DomainSize), res)
	c.Derived.CourantLimit = solver.CourantLimit(res, c.Derived.Constants)
	c.Derived.TimeStep = c.Solver.TimeStep
	if c.Derived.TimeStep == 0 {
		f := c.Solver.CourantFactor
		if f <= 0 || f > 1 {
			f = 0.99
		}
		c.Derived.TimeStep = f * c.Derived.CourantLimit
	}

	epsR := c.Solver.Background.RelativePermittivity
	if epsR < 1 {
		epsR = 1
	}
	for a := range c.Derived.OptimalSigma {
		c.Derived.OptimalSigma[a] = solver.OptimalSigma(c.PML.Order, c.Solver.Resolution[a], epsR, c.Derived.Constants)
	}

	c.Derived.PMLFaces = c.Derived.PMLFaces[:0]
	for _, name := range c.PML.Faces {
		if name == "all" {
			c.Derived.PMLFaces = append(c.Derived.PMLFaces[:0], solver.AllFaces[:]...)
			break
		}
		f, err := solver.ParseFace(name)
		if err != nil {
			return fmt.Errorf("pml.faces: %w", err)
		}
		c.Derived.PMLFaces = append(c.Derived.PMLFaces, f)
	}

	c.Derived.StepInterval = time.Duration(c.Executor.StepIntervalMS * float64(time.Millisecond))
	return nil
}

// Vec converts a yaml triple to a vector.
func Vec(a [3]float64) r3.Vec { return r3.Vec{X: a[0], Y: a[1], Z: a[2]} }

// Pt converts a yaml triple to a lattice point.
func Pt(a [3]int) lattice.Point { return lattice.Pt(a[0], a[1], a[2]) }

// Recompute refreshes Derived after fields were changed in code.
func (c *Config) Recompute() error {
	return c.computeDerived()
}

// FaceParams returns the grading parameters for face with sigma_max
// resolved along the face's axis.
func (c *Config) FaceParams(f solver.Face) solver.PMLParams {
	p := solver.PMLParams{
		Thickness:  c.PML.Thickness,
		Order:      c.PML.Order,
		AlphaOrder: c.PML.AlphaOrder,
		SigmaMax:   c.PML.SigmaMax,
		KappaMax:   c.PML.KappaMax,
		AlphaMax:   c.PML.AlphaMax,
	}
	if p.SigmaMax == 0 {
		scale := c.PML.SigmaScale
		if scale == 0 {
			scale = 1
		}
		p.SigmaMax = scale * c.Derived.OptimalSigma[f.Axis()]
	}
	return p
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
