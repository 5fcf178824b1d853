// Package scene composes a simulation from entities: material regions,
// sources, views and probes live in an ECS world and are compiled into a
// solver configuration.
package scene

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/yee/lattice"
	"github.com/pthm-cable/yee/solver"
	"github.com/pthm-cable/yee/telemetry"
)

// Settings are the scene-wide solver parameters.
type Settings struct {
	DomainSize r3.Vec
	Resolution r3.Vec
	TimeStep   float64
	Constants  solver.Constants
	Background solver.Material
	Boundary   [3]solver.Boundary
	PML        []solver.PMLFace
	Workers    int
}

// Scene owns an ECS world describing one simulation.
type Scene struct {
	Settings Settings

	world *ecs.World
	layer int

	materialMapper *ecs.Map4[Name, Region, Layer, Medium]
	sourceMapper   *ecs.Map4[Name, Region, Layer, Emitter]
	viewMapper     *ecs.Map3[Name, Layer, View]
	sensorMapper   *ecs.Map3[Name, Layer, Sensor]

	materialFilter *ecs.Filter4[Name, Region, Layer, Medium]
	sourceFilter   *ecs.Filter4[Name, Region, Layer, Emitter]
	viewFilter     *ecs.Filter3[Name, Layer, View]
	sensorFilter   *ecs.Filter3[Name, Layer, Sensor]

	nameMap *ecs.Map1[Name]
}

// New returns an empty scene.
func New(settings Settings) *Scene {
	world := ecs.NewWorld()
	return &Scene{
		Settings:       settings,
		world:          world,
		materialMapper: ecs.NewMap4[Name, Region, Layer, Medium](world),
		sourceMapper:   ecs.NewMap4[Name, Region, Layer, Emitter](world),
		viewMapper:     ecs.NewMap3[Name, Layer, View](world),
		sensorMapper:   ecs.NewMap3[Name, Layer, Sensor](world),
		materialFilter: ecs.NewFilter4[Name, Region, Layer, Medium](world),
		sourceFilter:   ecs.NewFilter4[Name, Region, Layer, Emitter](world),
		viewFilter:     ecs.NewFilter3[Name, Layer, View](world),
		sensorFilter:   ecs.NewFilter3[Name, Layer, Sensor](world),
		nameMap:        ecs.NewMap1[Name](world),
	}
}

// LatticeSize returns the lattice size implied by the settings.
func (s *Scene) LatticeSize() lattice.Point {
	return solver.LatticeSize(s.Settings.DomainSize, s.Settings.Resolution)
}

func (s *Scene) nextLayer() *Layer {
	s.layer++
	return &Layer{Order: s.layer}
}

// AddMaterial fills box with m. It is painted over every region added
// before it.
func (s *Scene) AddMaterial(name string, box lattice.Range, m solver.Material) ecs.Entity {
	return s.materialMapper.NewEntity(&Name{name}, &Region{box}, s.nextLayer(), &Medium{m})
}

// AddSource drives every cell of box with fn.
func (s *Scene) AddSource(name string, box lattice.Range, fn solver.TimeFunction) ecs.Entity {
	return s.sourceMapper.NewEntity(&Name{name}, &Region{box}, s.nextLayer(), &Emitter{fn})
}

// AddView registers a projection view.
func (s *Scene) AddView(name string, v View) ecs.Entity {
	return s.viewMapper.NewEntity(&Name{name}, s.nextLayer(), &v)
}

// AddProbe registers a probe point.
func (s *Scene) AddProbe(name string, sensor Sensor) ecs.Entity {
	return s.sensorMapper.NewEntity(&Name{name}, s.nextLayer(), &sensor)
}

// Remove deletes an entity of any kind. Removing a dead entity is a no-op.
func (s *Scene) Remove(e ecs.Entity) {
	if s.world.Alive(e) {
		s.world.RemoveEntity(e)
	}
}

// Name returns the name of e, or "" for a dead entity.
func (s *Scene) Name(e ecs.Entity) string {
	if !s.world.Alive(e) || !s.nameMap.HasAll(e) {
		return ""
	}
	return s.nameMap.Get(e).Value
}

type region struct {
	name  string
	box   lattice.Range
	order int
	m     solver.Material
}

func (s *Scene) regions() []region {
	var out []region
	query := s.materialFilter.Query()
	for query.Next() {
		name, r, layer, medium := query.Get()
		out = append(out, region{name: name.Value, box: r.Box, order: layer.Order, m: medium.Material})
	}
	slices.SortFunc(out, func(a, b region) int { return a.order - b.order })
	return out
}

// Distribution returns the material of the topmost region containing each
// point, or the background.
func (s *Scene) Distribution() solver.MaterialDistribution {
	regions := s.regions()
	background := s.Settings.Background
	if background == (solver.Material{}) {
		background = solver.Vacuum
	}
	return func(p lattice.Point) solver.Material {
		for i := len(regions) - 1; i >= 0; i-- {
			if regions[i].box.Contains(p) {
				return regions[i].m
			}
		}
		return background
	}
}

type emitter struct {
	order  int
	source solver.Source
}

// Sources returns the scene's sources in insertion order.
func (s *Scene) Sources() []solver.Source {
	var es []emitter
	query := s.sourceFilter.Query()
	for query.Next() {
		name, r, layer, em := query.Get()
		es = append(es, emitter{
			order:  layer.Order,
			source: solver.RegionSource(name.Value, r.Box, em.Function),
		})
	}
	slices.SortFunc(es, func(a, b emitter) int { return a.order - b.order })

	out := make([]solver.Source, len(es))
	for i, e := range es {
		out[i] = e.source
	}
	return out
}

// NamedView is a view with its entity name.
type NamedView struct {
	Name string
	View
}

// Views returns the scene's views in insertion order.
func (s *Scene) Views() []NamedView {
	type ordered struct {
		order int
		v     NamedView
	}
	var vs []ordered
	query := s.viewFilter.Query()
	for query.Next() {
		name, layer, v := query.Get()
		vs = append(vs, ordered{layer.Order, NamedView{Name: name.Value, View: *v}})
	}
	slices.SortFunc(vs, func(a, b ordered) int { return a.order - b.order })

	out := make([]NamedView, len(vs))
	for i, v := range vs {
		out[i] = v.v
	}
	return out
}

// Probes returns the scene's probes in insertion order.
func (s *Scene) Probes() []telemetry.Probe {
	type ordered struct {
		order int
		p     telemetry.Probe
	}
	var ps []ordered
	query := s.sensorFilter.Query()
	for query.Next() {
		name, layer, sensor := query.Get()
		ps = append(ps, ordered{layer.Order, telemetry.Probe{
			Name:      name.Value,
			Field:     sensor.Field,
			Component: sensor.Component,
			Point:     sensor.Point,
		}})
	}
	slices.SortFunc(ps, func(a, b ordered) int { return a.order - b.order })

	out := make([]telemetry.Probe, len(ps))
	for i, p := range ps {
		out[i] = p.p
	}
	return out
}

// Compile builds the solver configuration. Material regions reaching past
// the lattice are clipped; empty regions are rejected.
func (s *Scene) Compile() (solver.Config, error) {
	size := s.LatticeSize()
	for _, r := range s.regions() {
		if r.box.Clip(size).Empty() {
			return solver.Config{}, fmt.Errorf("material %q: region %v..%v has no cells inside lattice %v", r.name, r.box.Min, r.box.Max, size)
		}
		if err := r.m.Validate(); err != nil {
			return solver.Config{}, fmt.Errorf("material %q: %w", r.name, err)
		}
	}
	sources := s.Sources()
	for _, src := range sources {
		if len(src.Points) == 0 {
			return solver.Config{}, fmt.Errorf("source %q: empty region", src.Name)
		}
	}

	cfg := solver.Config{
		DomainSize: s.Settings.DomainSize,
		Resolution: s.Settings.Resolution,
		TimeStep:   s.Settings.TimeStep,
		Constants:  s.Settings.Constants,
		Material:   s.Distribution(),
		Boundary:   s.Settings.Boundary,
		PML:        s.Settings.PML,
		Sources:    sources,
		Workers:    s.Settings.Workers,
	}
	slog.Debug("scene compiled",
		"lattice", size.String(),
		"materials", len(s.regions()),
		"sources", len(sources),
		"views", len(s.Views()),
	)
	return cfg, nil
}

// Build compiles the scene and creates the solver instance.
func (s *Scene) Build() (*solver.Instance, error) {
	cfg, err := s.Compile()
	if err != nil {
		return nil, err
	}
	return solver.New(cfg)
}
