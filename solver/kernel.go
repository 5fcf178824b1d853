package solver

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/yee/lattice"
)

// Debug enables a finite check on every updated field value. A non-finite
// value panics with the tick and cell.
var Debug = false

// kernel carries the per-tick context of one Step.
type kernel struct {
	inst       *Instance
	s          *State
	prev, curr lattice.SwapIndex
	tick       uint64
	t          float64 // tick*dt
}

// advance moves p one cell forward in x-fastest order.
func advance(p *lattice.Point, size lattice.Point) {
	p.X++
	if p.X < size.X {
		return
	}
	p.X = 0
	p.Y++
	if p.Y < size.Y {
		return
	}
	p.Y = 0
	p.Z++
}

func curl(jac *[3]r3.Vec) r3.Vec {
	return r3.Vec{
		X: jac[1].Z - jac[2].Y,
		Y: jac[2].X - jac[0].Z,
		Z: jac[0].Y - jac[1].X,
	}
}

// psiCell returns the CPML memory of slab k at lattice point p.
func (k *kernel) psiCell(slab int16, p lattice.Point) *PsiCell {
	sl := &k.inst.slabs[slab]
	pl := k.s.psi[slab]
	return &pl.Data()[pl.ToIndex(p.Sub(sl.region.Min))]
}

// dE returns the forward difference (E[p+e_a] - E[p]) / dx_a of the previous
// E, with boundary closure and CPML stretching applied.
func (k *kernel) dE(a, i int, p lattice.Point, e r3.Vec) r3.Vec {
	inst := k.inst
	n := inst.size.Axis(a)
	if n == 1 {
		return r3.Vec{}
	}
	cells := k.s.fields.Data()
	c := p.Axis(a)
	stride := inst.strides[a]

	var next r3.Vec
	switch {
	case c+1 < n:
		next = *cells[i+stride].E.Get(k.prev)
	case inst.boundary[a] == BoundaryNeumann:
		return r3.Vec{}
	case inst.boundary[a] == BoundaryPeriodic:
		next = *cells[i-(n-1)*stride].E.Get(k.prev)
	}
	d := r3.Scale(inst.invDx[a], r3.Sub(next, e))

	g := &inst.grading[a]
	if slab := g.owner[c]; slab >= 0 {
		gr := g.h[c]
		cur, old := k.psiCell(slab, p).H.Pair(k.curr)
		*cur = r3.Add(r3.Scale(gr.B, *old), r3.Scale(gr.C, d))
		d = r3.Add(r3.Scale(gr.InvKappa, d), *cur)
	}
	return d
}

// dH returns the backward difference (H[p] - H[p-e_a]) / dx_a of the current
// H, with boundary closure and CPML stretching applied.
func (k *kernel) dH(a, i int, p lattice.Point, h r3.Vec) r3.Vec {
	inst := k.inst
	n := inst.size.Axis(a)
	if n == 1 {
		return r3.Vec{}
	}
	cells := k.s.fields.Data()
	c := p.Axis(a)
	stride := inst.strides[a]

	var before r3.Vec
	switch {
	case c > 0:
		before = *cells[i-stride].H.Get(k.curr)
	case inst.boundary[a] == BoundaryNeumann:
		return r3.Vec{}
	case inst.boundary[a] == BoundaryPeriodic:
		before = *cells[i+(n-1)*stride].H.Get(k.curr)
	}
	d := r3.Scale(inst.invDx[a], r3.Sub(h, before))

	g := &inst.grading[a]
	if slab := g.owner[c]; slab >= 0 {
		gr := g.e[c]
		cur, old := k.psiCell(slab, p).E.Pair(k.curr)
		*cur = r3.Add(r3.Scale(gr.B, *old), r3.Scale(gr.C, d))
		d = r3.Add(r3.Scale(gr.InvKappa, d), *cur)
	}
	return d
}

// updateH writes H_curr = Da*H_prev + Db*(-curl E_prev - M) for cells [lo, hi).
func (k *kernel) updateH(lo, hi int) {
	inst := k.inst
	cells := k.s.fields.Data()
	coeffs := inst.coeffs.Data()
	sources := inst.sourceIndex.Data()
	p := inst.coeffs.FromIndex(lo)

	for i := lo; i < hi; i++ {
		cell := &cells[i]
		e := *cell.E.Get(k.prev)

		var jac [3]r3.Vec
		for a := 0; a < 3; a++ {
			jac[a] = k.dE(a, i, p, e)
		}
		rhs := curl(&jac)

		if src := sources[i]; src != 0 {
			pos := r3.Vec{
				X: float64(p.X) * inst.resolution.X,
				Y: float64(p.Y) * inst.resolution.Y,
				Z: float64(p.Z) * inst.resolution.Z,
			}
			rhs = r3.Add(rhs, inst.sources[src-1].Function.MagneticCurrentDensity(k.t, pos))
		}

		co := coeffs[i]
		h := r3.Sub(r3.Scale(co.Da, *cell.H.Get(k.prev)), r3.Scale(co.Db, rhs))
		if Debug && !finiteVec(h) {
			panic(fmt.Sprintf("solver: non-finite H %v at tick %d cell %v (index %d)", h, k.tick, p, i))
		}
		*cell.H.Get(k.curr) = h
		advance(&p, inst.size)
	}
}

// updateE writes E_curr = Ca*E_prev + Cb*(curl H_curr - J) for cells [lo, hi).
func (k *kernel) updateE(lo, hi int) {
	inst := k.inst
	cells := k.s.fields.Data()
	coeffs := inst.coeffs.Data()
	sources := inst.sourceIndex.Data()
	p := inst.coeffs.FromIndex(lo)
	tJ := k.t + 0.5*inst.dt

	for i := lo; i < hi; i++ {
		cell := &cells[i]
		h := *cell.H.Get(k.curr)

		var jac [3]r3.Vec
		for a := 0; a < 3; a++ {
			jac[a] = k.dH(a, i, p, h)
		}
		rhs := curl(&jac)

		if src := sources[i]; src != 0 {
			pos := r3.Vec{
				X: (float64(p.X) + 0.5) * inst.resolution.X,
				Y: (float64(p.Y) + 0.5) * inst.resolution.Y,
				Z: (float64(p.Z) + 0.5) * inst.resolution.Z,
			}
			rhs = r3.Sub(rhs, inst.sources[src-1].Function.ElectricCurrentDensity(tJ, pos))
		}

		co := coeffs[i]
		e := r3.Add(r3.Scale(co.Ca, *cell.E.Get(k.prev)), r3.Scale(co.Cb, rhs))
		if Debug && !finiteVec(e) {
			panic(fmt.Sprintf("solver: non-finite E %v at tick %d cell %v (index %d)", e, k.tick, p, i))
		}
		*cell.E.Get(k.curr) = e
		advance(&p, inst.size)
	}
}
