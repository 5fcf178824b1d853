package solver

import (
	"fmt"

	"github.com/pthm-cable/yee/lattice"
)

// Material describes a linear, isotropic, non-dispersive medium.
type Material struct {
	RelativePermittivity float64 `yaml:"eps_r"`
	RelativePermeability float64 `yaml:"mu_r"`
	ElectricConductivity float64 `yaml:"sigma_e"`
	MagneticConductivity float64 `yaml:"sigma_m"`
}

// Vacuum is the default material.
var Vacuum = Material{RelativePermittivity: 1, RelativePermeability: 1}

// Dielectric returns a lossless material with the given relative permittivity.
func Dielectric(epsR float64) Material {
	return Material{RelativePermittivity: epsR, RelativePermeability: 1}
}

// Validate checks eps_r >= 1, mu_r >= 1, sigma >= 0, all finite.
func (m Material) Validate() error {
	switch {
	case !finite(m.RelativePermittivity) || m.RelativePermittivity < 1:
		return fmt.Errorf("relative permittivity %v must be finite and >= 1", m.RelativePermittivity)
	case !finite(m.RelativePermeability) || m.RelativePermeability < 1:
		return fmt.Errorf("relative permeability %v must be finite and >= 1", m.RelativePermeability)
	case !finite(m.ElectricConductivity) || m.ElectricConductivity < 0:
		return fmt.Errorf("electric conductivity %v must be finite and >= 0", m.ElectricConductivity)
	case !finite(m.MagneticConductivity) || m.MagneticConductivity < 0:
		return fmt.Errorf("magnetic conductivity %v must be finite and >= 0", m.MagneticConductivity)
	}
	return nil
}

// MaterialDistribution assigns a material to every lattice cell.
type MaterialDistribution func(p lattice.Point) Material

// Uniform fills the whole domain with m.
func Uniform(m Material) MaterialDistribution {
	return func(lattice.Point) Material { return m }
}

// Coefficients are the per-cell Yee update constants:
//
//	E' = Ca*E + Cb*(curl H - J)
//	H' = Da*H + Db*(-curl E - M)
type Coefficients struct {
	Ca, Cb float64
	Da, Db float64
}

// NewCoefficients derives update coefficients for m at time step dt.
func NewCoefficients(m Material, dt float64, c Constants) (Coefficients, error) {
	if err := m.Validate(); err != nil {
		return Coefficients{}, err
	}
	ca, cb := yee(m.RelativePermittivity*c.Epsilon0, m.ElectricConductivity, dt)
	da, db := yee(m.RelativePermeability*c.Mu0, m.MagneticConductivity, dt)
	co := Coefficients{Ca: ca, Cb: cb, Da: da, Db: db}
	if !finite(ca) || !finite(cb) || !finite(da) || !finite(db) {
		return Coefficients{}, fmt.Errorf("non-finite coefficients %+v", co)
	}
	return co, nil
}

func yee(abs, sigma, dt float64) (a, b float64) {
	half := 0.5 * sigma * dt / abs
	a = (1 - half) / (1 + half)
	b = dt / (abs * (1 + half))
	return a, b
}
