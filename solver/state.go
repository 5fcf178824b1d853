package solver

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/yee/lattice"
)

// Field selects E or H.
type Field uint8

const (
	FieldE Field = iota
	FieldH
)

func (f Field) String() string {
	switch f {
	case FieldE:
		return "E"
	case FieldH:
		return "H"
	}
	return fmt.Sprintf("Field(%d)", uint8(f))
}

// ParseField accepts "e"/"E" and "h"/"H".
func ParseField(s string) (Field, error) {
	switch s {
	case "e", "E":
		return FieldE, nil
	case "h", "H":
		return FieldH, nil
	}
	return 0, fmt.Errorf("unknown field %q", s)
}

// Cell holds the double-buffered E and H vectors of one lattice cell.
type Cell struct {
	E lattice.SwapBuffer[r3.Vec]
	H lattice.SwapBuffer[r3.Vec]
}

// Get returns the slot i of field f.
func (c *Cell) Get(f Field, i lattice.SwapIndex) r3.Vec {
	if f == FieldH {
		return *c.H.Get(i)
	}
	return *c.E.Get(i)
}

// State is the mutable part of a simulation. It is created by
// Instance.NewState and only advanced by the Instance that created it.
type State struct {
	owner  *Instance
	fields *lattice.Lattice[Cell]
	psi    []*lattice.Lattice[PsiCell]
	tick   uint64
}

// Tick returns the number of completed steps since construction or reset.
func (s *State) Tick() uint64 { return s.tick }

// Time returns tick*dt.
func (s *State) Time() float64 { return float64(s.tick) * s.owner.dt }

// Size returns the lattice size.
func (s *State) Size() lattice.Point { return s.fields.Size() }

// Current is the swap slot holding the most recent field values.
func (s *State) Current() lattice.SwapIndex {
	return lattice.SwapIndexFromTick(s.tick)
}

// Fields exposes the field lattice. Callers must not write to it while the
// owning instance may be stepping.
func (s *State) Fields() *lattice.Lattice[Cell] { return s.fields }

// Value returns the current value of f at p, or false outside the lattice.
func (s *State) Value(f Field, p lattice.Point) (r3.Vec, bool) {
	c := s.fields.Get(p)
	if c == nil {
		return r3.Vec{}, false
	}
	return c.Get(f, s.Current()), true
}

// Line returns one component (0=x, 1=y, 2=z) of f sampled along axis through
// the point at. The coordinate of at along axis is ignored.
func (s *State) Line(f Field, component, axis int, at lattice.Point) []float64 {
	n := s.fields.Size().Axis(axis)
	out := make([]float64, n)
	cur := s.Current()
	for i := 0; i < n; i++ {
		c := s.fields.Get(at.WithAxis(axis, i))
		if c == nil {
			continue
		}
		out[i] = axisComponent(c.Get(f, cur), component)
	}
	return out
}

// Clone returns a deep copy bound to the same instance.
func (s *State) Clone() *State {
	c := &State{
		owner:  s.owner,
		fields: lattice.New[Cell](s.fields.Size()),
		psi:    make([]*lattice.Lattice[PsiCell], len(s.psi)),
		tick:   s.tick,
	}
	copy(c.fields.Data(), s.fields.Data())
	for i, p := range s.psi {
		c.psi[i] = lattice.New[PsiCell](p.Size())
		copy(c.psi[i].Data(), p.Data())
	}
	return c
}

// CopyFrom overwrites s with the contents of o. Both states must come from
// the same instance.
func (s *State) CopyFrom(o *State) {
	if s.owner != o.owner {
		panic("solver: CopyFrom across instances")
	}
	copy(s.fields.Data(), o.fields.Data())
	for i := range s.psi {
		copy(s.psi[i].Data(), o.psi[i].Data())
	}
	s.tick = o.tick
}

func (s *State) clear() {
	clear(s.fields.Data())
	for _, p := range s.psi {
		clear(p.Data())
	}
	s.tick = 0
}

// Finite reports whether every field value in the current slot is finite.
func (s *State) Finite() bool {
	cur := s.Current()
	for _, c := range s.fields.Data() {
		if !finiteVec(*c.E.Get(cur)) || !finiteVec(*c.H.Get(cur)) {
			return false
		}
	}
	return true
}

func finiteVec(v r3.Vec) bool {
	return finite(v.X) && finite(v.Y) && finite(v.Z)
}

// Energy is shorthand for the owning instance's Energy.
func (s *State) Energy() float64 {
	return s.owner.Energy(s)
}
