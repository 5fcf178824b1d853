package solver

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/yee/lattice"
)

// Face identifies one of the six domain faces.
type Face uint8

const (
	XLow Face = iota
	XHigh
	YLow
	YHigh
	ZLow
	ZHigh
)

var faceNames = [...]string{"x-", "x+", "y-", "y+", "z-", "z+"}

// AllFaces lists every face in canonical order.
var AllFaces = []Face{XLow, XHigh, YLow, YHigh, ZLow, ZHigh}

// Axis returns 0, 1 or 2.
func (f Face) Axis() int { return int(f) / 2 }

// High reports whether the face sits at the upper end of its axis.
func (f Face) High() bool { return f%2 == 1 }

func (f Face) String() string {
	if int(f) < len(faceNames) {
		return faceNames[f]
	}
	return fmt.Sprintf("Face(%d)", uint8(f))
}

// ParseFace accepts "x-", "x+", "y-", "y+", "z-" and "z+".
func ParseFace(s string) (Face, error) {
	for i, name := range faceNames {
		if s == name {
			return Face(i), nil
		}
	}
	return 0, fmt.Errorf("unknown face %q", s)
}

// PMLParams grade one CPML slab.
//
//	sigma(d) = SigmaMax * d^Order
//	kappa(d) = 1 + (KappaMax-1) * d^Order
//	alpha(d) = AlphaMax * (1-d)^AlphaOrder
//
// where d in [0,1] is the fractional depth into the slab.
type PMLParams struct {
	Thickness  int     `yaml:"thickness"`
	Order      float64 `yaml:"order"`
	AlphaOrder float64 `yaml:"alpha_order"`
	// SigmaMax <= 0 selects OptimalSigma for the slab's axis.
	SigmaMax float64 `yaml:"sigma_max"`
	KappaMax float64 `yaml:"kappa_max"`
	AlphaMax float64 `yaml:"alpha_max"`
}

// DefaultPML returns commonly used grading parameters.
func DefaultPML(thickness int) PMLParams {
	return PMLParams{
		Thickness:  thickness,
		Order:      3,
		AlphaOrder: 1,
		KappaMax:   2.5,
		AlphaMax:   0.05,
	}
}

// PMLFace attaches grading parameters to one face.
type PMLFace struct {
	Face Face
	PMLParams
}

// PMLAllFaces returns the same parameters on all six faces.
func PMLAllFaces(p PMLParams) []PMLFace {
	faces := make([]PMLFace, len(AllFaces))
	for i, f := range AllFaces {
		faces[i] = PMLFace{Face: f, PMLParams: p}
	}
	return faces
}

// OptimalSigma is the usual polynomial-grading estimate
// 0.8*(m+1) / (eta * dx * sqrt(eps_r)).
func OptimalSigma(order, dx, epsR float64, c Constants) float64 {
	return 0.8 * (order + 1) / (c.Impedance() * dx * math.Sqrt(epsR))
}

func (p PMLParams) validate(field string) error {
	switch {
	case p.Thickness < 1:
		return configErrorf(field+".thickness", "must be >= 1, got %d", p.Thickness)
	case !finite(p.Order) || p.Order < 0:
		return configErrorf(field+".order", "must be finite and >= 0, got %v", p.Order)
	case !finite(p.AlphaOrder) || p.AlphaOrder < 0:
		return configErrorf(field+".alpha_order", "must be finite and >= 0, got %v", p.AlphaOrder)
	case !finite(p.SigmaMax):
		return configErrorf(field+".sigma_max", "must be finite")
	case !finite(p.KappaMax) || p.KappaMax < 1:
		return configErrorf(field+".kappa_max", "must be finite and >= 1, got %v", p.KappaMax)
	case !finite(p.AlphaMax) || p.AlphaMax < 0:
		return configErrorf(field+".alpha_max", "must be finite and >= 0, got %v", p.AlphaMax)
	}
	return nil
}

// grading holds the derived CPML constants for one coordinate along an axis.
// Outside slabs B=C=0 and InvKappa=1.
type grading struct {
	B, C     float64
	InvKappa float64
}

var identityGrading = grading{InvKappa: 1}

func newGrading(p PMLParams, sigmaMax, d, dt float64, c Constants) grading {
	d = math.Min(math.Max(d, 0), 1)
	dm := math.Pow(d, p.Order)
	sigma := sigmaMax * dm
	kappa := 1 + (p.KappaMax-1)*dm
	alpha := p.AlphaMax * math.Pow(1-d, p.AlphaOrder)

	b := math.Exp(-(sigma/kappa + alpha) * dt / c.Epsilon0)
	var cc float64
	if denom := sigma*kappa + kappa*kappa*alpha; denom != 0 {
		cc = sigma / denom * (b - 1)
	}
	return grading{B: b, C: cc, InvKappa: 1 / kappa}
}

// slab is one CPML face: the cells it covers and the grading along its axis.
type slab struct {
	face   Face
	axis   int
	region lattice.Range
	params PMLParams
	sigma  float64
}

// psiSize returns the extent of the slab's psi lattice.
func (s *slab) psiSize() lattice.Point {
	return s.region.Extent()
}

// PsiCell holds the convolutional memory of one slab cell, one vector for the
// E update (derivatives of H) and one for the H update (derivatives of E).
type PsiCell struct {
	E lattice.SwapBuffer[r3.Vec]
	H lattice.SwapBuffer[r3.Vec]
}

// axisGrading is the per-coordinate CPML lookup along one axis.
type axisGrading struct {
	e, h  []grading
	owner []int16 // slab index, -1 outside any slab
}

// buildSlabs validates the PML faces and produces the slabs and per-axis
// grading tables.
func buildSlabs(faces []PMLFace, size lattice.Point, dx r3.Vec, dt float64, c Constants) ([]slab, [3]axisGrading, error) {
	var axes [3]axisGrading
	for a := 0; a < 3; a++ {
		n := size.Axis(a)
		axes[a] = axisGrading{
			e:     make([]grading, n),
			h:     make([]grading, n),
			owner: make([]int16, n),
		}
		for i := 0; i < n; i++ {
			axes[a].e[i] = identityGrading
			axes[a].h[i] = identityGrading
			axes[a].owner[i] = -1
		}
	}

	var seen [6]bool
	slabs := make([]slab, 0, len(faces))
	for i, f := range faces {
		field := fmt.Sprintf("pml[%d]", i)
		if int(f.Face) >= len(seen) {
			return nil, axes, configErrorf(field+".face", "unknown face %d", f.Face)
		}
		if seen[f.Face] {
			return nil, axes, configErrorf(field+".face", "duplicate face %v", f.Face)
		}
		seen[f.Face] = true
		if err := f.validate(field); err != nil {
			return nil, axes, err
		}

		a := f.Face.Axis()
		n := size.Axis(a)
		N := f.Thickness
		if N > n {
			return nil, axes, configErrorf(field+".thickness", "%d exceeds domain extent %d along axis %d", N, n, a)
		}

		sigma := f.SigmaMax
		if sigma <= 0 {
			sigma = OptimalSigma(f.Order, axisComponent(dx, a), 1, c)
		}

		region := lattice.Range{Max: size}
		lo, hi := 0, N
		if f.Face.High() {
			lo, hi = n-N, n
		}
		region.Min = region.Min.WithAxis(a, lo)
		region.Max = region.Max.WithAxis(a, hi)

		idx := int16(len(slabs))
		for coord := lo; coord < hi; coord++ {
			if axes[a].owner[coord] >= 0 {
				return nil, axes, configErrorf(field+".thickness", "slabs on axis %d overlap at %d", a, coord)
			}
			var dE, dH float64
			if f.Face.High() {
				edge := float64(n - 1 - N)
				dE = (float64(coord) - edge) / float64(N)
				dH = (float64(coord) + 0.5 - edge) / float64(N)
			} else {
				dE = float64(N-coord) / float64(N)
				dH = (float64(N-coord) - 0.5) / float64(N)
			}
			axes[a].e[coord] = newGrading(f.PMLParams, sigma, dE, dt, c)
			axes[a].h[coord] = newGrading(f.PMLParams, sigma, dH, dt, c)
			axes[a].owner[coord] = idx
		}

		slabs = append(slabs, slab{
			face:   f.Face,
			axis:   a,
			region: region,
			params: f.PMLParams,
			sigma:  sigma,
		})
	}
	return slabs, axes, nil
}

func axisComponent(v r3.Vec, a int) float64 {
	switch a {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}
