// Package solver advances Maxwell's equations on a staggered Yee lattice.
//
// An Instance holds everything that is fixed for a simulation: lattice size,
// resolution, per-cell update coefficients, CPML grading and sources. A State
// holds everything that changes: E and H fields, CPML memory variables and
// the tick counter. One Instance can drive any number of States.
package solver

import "math"

// Constants are the vacuum permittivity and permeability of the unit system.
type Constants struct {
	Epsilon0 float64 `yaml:"epsilon0"`
	Mu0      float64 `yaml:"mu0"`
}

// SI units.
var SI = Constants{
	Epsilon0: 8.8541878128e-12,
	Mu0:      1.25663706212e-6,
}

// Reduced units with c = 1 and a vacuum impedance of 1.
var Reduced = Constants{Epsilon0: 1, Mu0: 1}

// SpeedOfLight returns 1/sqrt(eps0*mu0).
func (c Constants) SpeedOfLight() float64 {
	return 1 / math.Sqrt(c.Epsilon0*c.Mu0)
}

// Impedance returns sqrt(mu0/eps0).
func (c Constants) Impedance() float64 {
	return math.Sqrt(c.Mu0 / c.Epsilon0)
}

func (c Constants) valid() bool {
	return c.Epsilon0 > 0 && c.Mu0 > 0 && finite(c.Epsilon0) && finite(c.Mu0)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
