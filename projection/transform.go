// Package projection samples planar slices of a solver state into RGBA
// images.
package projection

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/yee/lattice"
)

// Transform is a row-major homogeneous 4x4 matrix.
type Transform [4][4]float64

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	}
}

// Scale returns diag(x, y, z, 1).
func Scale(x, y, z float64) Transform {
	t := Identity()
	t[0][0], t[1][1], t[2][2] = x, y, z
	return t
}

// Translate returns a translation by (x, y, z).
func Translate(x, y, z float64) Transform {
	t := Identity()
	t[0][3], t[1][3], t[2][3] = x, y, z
	return t
}

func (t Transform) dense() *mat.Dense {
	data := make([]float64, 0, 16)
	for _, row := range t {
		data = append(data, row[:]...)
	}
	return mat.NewDense(4, 4, data)
}

func fromDense(m mat.Matrix) Transform {
	var t Transform
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			t[i][j] = m.At(i, j)
		}
	}
	return t
}

// Compose returns ts[0] * ts[1] * ... so the last transform applies first.
func Compose(ts ...Transform) Transform {
	if len(ts) == 0 {
		return Identity()
	}
	acc := ts[0].dense()
	for _, t := range ts[1:] {
		var next mat.Dense
		next.Mul(acc, t.dense())
		acc = &next
	}
	return fromDense(acc)
}

// Apply returns t * (x, y, z, w).
func (t *Transform) Apply(x, y, z, w float64) (float64, float64, float64, float64) {
	return t[0][0]*x + t[0][1]*y + t[0][2]*z + t[0][3]*w,
		t[1][0]*x + t[1][1]*y + t[1][2]*z + t[1][3]*w,
		t[2][0]*x + t[2][1]*y + t[2][2]*z + t[2][3]*w,
		t[3][0]*x + t[3][1]*y + t[3][2]*z + t[3][3]*w
}

// Plane maps image UV to origin + u*U + v*V in lattice coordinates.
func Plane(origin, u, v r3.Vec) Transform {
	return Transform{
		{u.X, v.X, 0, origin.X},
		{u.Y, v.Y, 0, origin.Y},
		{u.Z, v.Z, 0, origin.Z},
		{0, 0, 0, 1},
	}
}

func unit(a int) r3.Vec {
	switch a {
	case 0:
		return r3.Vec{X: 1}
	case 1:
		return r3.Vec{Y: 1}
	}
	return r3.Vec{Z: 1}
}

// AxisPlane covers the whole lattice slice perpendicular to normal at the
// given offset. U runs along the first remaining axis and V along the second,
// both mapped to [-0.5, N-0.5] so pixel centres land on cell centres.
func AxisPlane(size lattice.Point, normal, offset int) Transform {
	ua, va := PlaneAxes(normal)
	nu, nv := float64(size.Axis(ua)), float64(size.Axis(va))

	place := Plane(r3.Scale(float64(offset), unit(normal)), unit(ua), unit(va))
	return Compose(
		place,
		Translate(-0.5, -0.5, 0),
		Scale(nu, nv, 1),
	)
}

// PlaneAxes returns the in-plane axes for a plane normal to normal, lower
// axis first. They are the image's horizontal and vertical axes.
func PlaneAxes(normal int) (u, v int) {
	u, v = (normal+1)%3, (normal+2)%3
	if u > v {
		u, v = v, u
	}
	return u, v
}
