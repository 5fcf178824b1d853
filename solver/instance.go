package solver

import (
	"log/slog"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/yee/lattice"
)

// Instance is the immutable part of a simulation.
type Instance struct {
	size       lattice.Point
	strides    [4]int
	resolution r3.Vec
	invDx      [3]float64
	dt         float64
	constants  Constants
	boundary   [3]Boundary

	materials *materialPalette
	coeffs    *lattice.Lattice[Coefficients]

	slabs   []slab
	grading [3]axisGrading

	sources     []Source
	sourceIndex *lattice.Lattice[uint16]

	workers int
	pool    *pool
}

// New validates cfg and precomputes coefficients, CPML grading and the
// source map. Every rejection wraps ErrConfig or ErrSourceRange.
func New(cfg Config) (*Instance, error) {
	size, err := cfg.validate()
	if err != nil {
		return nil, err
	}

	materials, err := buildMaterials(cfg.Material, size, cfg.TimeStep, cfg.Constants)
	if err != nil {
		return nil, err
	}
	coeffs := lattice.New[Coefficients](size)
	for i, k := range materials.index.Data() {
		coeffs.Data()[i] = materials.coeffs[k]
	}

	slabs, grading, err := buildSlabs(cfg.PML, size, cfg.Resolution, cfg.TimeStep, cfg.Constants)
	if err != nil {
		return nil, err
	}

	sourceIndex, err := installSources(cfg.Sources, size)
	if err != nil {
		return nil, err
	}

	inst := &Instance{
		size:        size,
		strides:     coeffs.Strides(),
		resolution:  cfg.Resolution,
		invDx:       [3]float64{1 / cfg.Resolution.X, 1 / cfg.Resolution.Y, 1 / cfg.Resolution.Z},
		dt:          cfg.TimeStep,
		constants:   cfg.Constants,
		boundary:    cfg.Boundary,
		materials:   materials,
		coeffs:      coeffs,
		slabs:       slabs,
		grading:     grading,
		sources:     append([]Source(nil), cfg.Sources...),
		sourceIndex: sourceIndex,
		workers:     cfg.workers(),
	}
	if inst.workers > 1 {
		inst.pool = newPool(inst.workers)
	}

	slog.Debug("solver instance created",
		"size", size.String(),
		"dt", cfg.TimeStep,
		"courant", CourantLimit(cfg.Resolution, cfg.Constants),
		"materials", len(materials.materials),
		"pml_slabs", len(slabs),
		"sources", len(cfg.Sources),
		"workers", inst.workers,
	)
	return inst, nil
}

// Close stops the worker pool. The instance must not be stepped afterwards.
func (inst *Instance) Close() {
	if inst.pool != nil {
		inst.pool.stop()
	}
}

// Size returns the lattice size.
func (inst *Instance) Size() lattice.Point { return inst.size }

// Resolution returns the cell size.
func (inst *Instance) Resolution() r3.Vec { return inst.resolution }

// TimeStep returns dt.
func (inst *Instance) TimeStep() float64 { return inst.dt }

// Constants returns the unit system.
func (inst *Instance) Constants() Constants { return inst.constants }

// CourantLimit returns the stability bound for this instance's resolution.
func (inst *Instance) CourantLimit() float64 {
	return CourantLimit(inst.resolution, inst.constants)
}

// Workers returns the kernel parallelism.
func (inst *Instance) Workers() int { return inst.workers }

// Material returns the material at p.
func (inst *Instance) Material(p lattice.Point) (Material, bool) {
	k, ok := inst.materials.index.At(p)
	if !ok {
		return Material{}, false
	}
	return inst.materials.materials[k], true
}

// Sources returns the installed sources.
func (inst *Instance) Sources() []Source { return inst.sources }

// NewState allocates zeroed fields and CPML memory at tick 0.
func (inst *Instance) NewState() *State {
	s := &State{
		owner:  inst,
		fields: lattice.New[Cell](inst.size),
		psi:    make([]*lattice.Lattice[PsiCell], len(inst.slabs)),
	}
	for i := range inst.slabs {
		s.psi[i] = lattice.New[PsiCell](inst.slabs[i].psiSize())
	}
	return s
}

func (inst *Instance) checkOwner(s *State) {
	if s.owner != inst {
		panic("solver: state belongs to a different instance")
	}
}

// Step advances s by one tick: the H pass completes before the E pass
// starts.
func (inst *Instance) Step(s *State) {
	inst.checkOwner(s)
	prev := lattice.SwapIndexFromTick(s.tick)
	k := &kernel{
		inst: inst,
		s:    s,
		prev: prev,
		curr: prev.Other(),
		tick: s.tick,
		t:    float64(s.tick) * inst.dt,
	}
	n := len(inst.coeffs.Data())

	for _, src := range inst.sources {
		src.Function.Prepare(k.t)
	}
	inst.pool.run(n, k.updateH)

	tJ := k.t + 0.5*inst.dt
	for _, src := range inst.sources {
		src.Function.Prepare(tJ)
	}
	inst.pool.run(n, k.updateE)

	s.tick++
}

// StepN advances s by n ticks.
func (inst *Instance) StepN(s *State, n int) {
	for range n {
		inst.Step(s)
	}
}

// Reset zeroes fields and CPML memory, rewinds to tick 0 and resets every
// source function.
func (inst *Instance) Reset(s *State) {
	inst.checkOwner(s)
	s.clear()
	for _, src := range inst.sources {
		src.Function.Reset()
	}
}

// Energy returns sum(eps_r*eps0*|E|^2 + mu_r*mu0*|H|^2) over the current slot.
func (inst *Instance) Energy(s *State) float64 {
	inst.checkOwner(s)
	cur := s.Current()
	cells := s.fields.Data()
	index := inst.materials.index.Data()
	mats := inst.materials.materials
	eps0, mu0 := inst.constants.Epsilon0, inst.constants.Mu0

	plane := inst.strides[2]
	partial := make([]float64, inst.size.Z)
	for z := range partial {
		var sum float64
		for i := z * plane; i < (z+1)*plane; i++ {
			m := &mats[index[i]]
			e := cells[i].E.Get(cur)
			h := cells[i].H.Get(cur)
			sum += m.RelativePermittivity*eps0*r3.Norm2(*e) + m.RelativePermeability*mu0*r3.Norm2(*h)
		}
		partial[z] = sum
	}
	return floats.Sum(partial)
}
