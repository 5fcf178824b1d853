package solver

import (
	"fmt"
	"math"
	"runtime"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/yee/lattice"
)

// Config is everything New needs to build an Instance.
type Config struct {
	// DomainSize is the physical extent of the domain along each axis.
	DomainSize r3.Vec
	// Resolution is the cell size along each axis.
	Resolution r3.Vec
	// TimeStep must satisfy the Courant bound for Resolution.
	TimeStep  float64
	Constants Constants

	// Material defaults to Uniform(Vacuum).
	Material MaterialDistribution
	// Boundary holds the policy for the x, y and z faces.
	Boundary [3]Boundary
	PML      []PMLFace
	Sources  []Source

	// Workers is the kernel parallelism: 1 is serial, 0 uses GOMAXPROCS.
	Workers int
}

// CourantLimit returns the largest stable time step 1/(c*sqrt(sum 1/dx_i^2)).
func CourantLimit(resolution r3.Vec, c Constants) float64 {
	s := 1/(resolution.X*resolution.X) + 1/(resolution.Y*resolution.Y) + 1/(resolution.Z*resolution.Z)
	return 1 / (c.SpeedOfLight() * math.Sqrt(s))
}

// LatticeSize returns round(size/resolution) per axis.
func LatticeSize(size, resolution r3.Vec) lattice.Point {
	return lattice.Point{
		X: int(math.Round(size.X / resolution.X)),
		Y: int(math.Round(size.Y / resolution.Y)),
		Z: int(math.Round(size.Z / resolution.Z)),
	}
}

// courantSlack absorbs rounding when Δt is chosen exactly at the limit.
const courantSlack = 1e-12

func (c *Config) validate() (lattice.Point, error) {
	if !c.Constants.valid() {
		return lattice.Point{}, configErrorf("constants", "epsilon0 and mu0 must be finite and > 0, got %+v", c.Constants)
	}
	for a, name := range []string{"x", "y", "z"} {
		size := axisComponent(c.DomainSize, a)
		res := axisComponent(c.Resolution, a)
		if !finite(size) || size <= 0 {
			return lattice.Point{}, configErrorf("domain_size."+name, "must be finite and > 0, got %v", size)
		}
		if !finite(res) || res <= 0 {
			return lattice.Point{}, configErrorf("resolution."+name, "must be finite and > 0, got %v", res)
		}
		if int(c.Boundary[a]) >= len(boundaryNames) {
			return lattice.Point{}, configErrorf("boundary."+name, "unknown policy %v", c.Boundary[a])
		}
	}

	size := LatticeSize(c.DomainSize, c.Resolution)
	if size.X < 1 || size.Y < 1 || size.Z < 1 {
		return lattice.Point{}, configErrorf("domain_size", "lattice %v has an empty axis", size)
	}
	if n := float64(size.X) * float64(size.Y) * float64(size.Z); n > math.MaxInt32 {
		return lattice.Point{}, configErrorf("domain_size", "lattice %v has too many cells", size)
	}

	if !finite(c.TimeStep) || c.TimeStep <= 0 {
		return lattice.Point{}, configErrorf("time_step", "must be finite and > 0, got %v", c.TimeStep)
	}
	if limit := CourantLimit(c.Resolution, c.Constants); c.TimeStep > limit*(1+courantSlack) {
		return lattice.Point{}, configErrorf("time_step", "%v violates the Courant limit %v", c.TimeStep, limit)
	}
	if c.Workers < 0 {
		return lattice.Point{}, configErrorf("workers", "must be >= 0, got %d", c.Workers)
	}
	return size, nil
}

func (c *Config) workers() int {
	if c.Workers == 0 {
		return runtime.GOMAXPROCS(0)
	}
	return c.Workers
}

// materialPalette deduplicates the material distribution into a palette and
// a per-cell index.
type materialPalette struct {
	materials []Material
	coeffs    []Coefficients
	index     *lattice.Lattice[uint16]
}

func buildMaterials(dist MaterialDistribution, size lattice.Point, dt float64, c Constants) (*materialPalette, error) {
	if dist == nil {
		dist = Uniform(Vacuum)
	}
	mp := &materialPalette{index: lattice.New[uint16](size)}
	seen := make(map[Material]uint16)
	for cell, slot := range mp.index.All(mp.index.Full()) {
		m := dist(cell.Point)
		k, ok := seen[m]
		if !ok {
			if len(mp.materials) > math.MaxUint16 {
				return nil, configErrorf("material", "more than %d distinct materials", math.MaxUint16+1)
			}
			co, err := NewCoefficients(m, dt, c)
			if err != nil {
				return nil, configErrorf("material", "at %v: %v", cell.Point, err)
			}
			k = uint16(len(mp.materials))
			seen[m] = k
			mp.materials = append(mp.materials, m)
			mp.coeffs = append(mp.coeffs, co)
		}
		*slot = k
	}
	return mp, nil
}

func (mp *materialPalette) String() string {
	return fmt.Sprintf("%d materials", len(mp.materials))
}
