package projection

import (
	"errors"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/yee/lattice"
	"github.com/pthm-cable/yee/solver"
)

func newState(t *testing.T, size lattice.Point) (*solver.Instance, *solver.State) {
	t.Helper()
	inst, err := solver.New(solver.Config{
		DomainSize: r3.Vec{X: float64(size.X), Y: float64(size.Y), Z: float64(size.Z)},
		Resolution: r3.Vec{X: 1, Y: 1, Z: 1},
		TimeStep:   0.5,
		Constants:  solver.Reduced,
		Workers:    1,
	})
	require.NoError(t, err)
	t.Cleanup(inst.Close)
	return inst, inst.NewState()
}

// setE writes a value into the current E slot of the cell at p.
func setE(s *solver.State, p lattice.Point, v r3.Vec) {
	*s.Fields().Get(p).E.Get(s.Current()) = v
}

func TestCompose_AppliesRightToLeft(t *testing.T) {
	tr := Compose(Translate(1, 2, 3), Scale(2, 2, 2))
	x, y, z, w := tr.Apply(1, 1, 1, 1)
	assert.Equal(t, []float64{3, 4, 5, 1}, []float64{x, y, z, w})

	assert.Equal(t, Identity(), Compose())
	assert.Equal(t, Scale(2, 3, 4), Compose(Identity(), Scale(2, 3, 4), Identity()))
}

func TestAxisPlane_PixelCentresHitCells(t *testing.T) {
	size := lattice.Pt(6, 4, 5)
	_, s := newState(t, size)
	setE(s, lattice.Pt(2, 1, 2), r3.Vec{Z: 1})
	setE(s, lattice.Pt(2, 1, 3), r3.Vec{Z: 1})

	target := NewImageTarget(6, 4)
	proj, err := CreateProjection(s, target, Params{
		Field:     solver.FieldE,
		Transform: AxisPlane(size, 2, 2),
		ColorMap:  Diverging(2, 1),
	})
	require.NoError(t, err)

	for y := 0; y < 4; y++ {
		for x := 0; x < 6; x++ {
			p, ok := proj.sample(x, y)
			require.True(t, ok)
			// Image rows run top-down, lattice y runs bottom-up.
			assert.Equal(t, lattice.Pt(x, 3-y, 2), p)
		}
	}

	pass := BeginPass(s)
	pass.Add(proj)
	misses, err := pass.Finish()
	require.NoError(t, err)
	assert.Zero(t, misses)

	black := color.RGBA{A: 255}
	for y := 0; y < 4; y++ {
		for x := 0; x < 6; x++ {
			want := black
			if x == 2 && y == 2 {
				want = color.RGBA{R: 255, A: 255}
			}
			assert.Equal(t, want, target.Image.RGBAAt(x, y), "pixel %d,%d", x, y)
		}
	}
}

func TestAxisPlane_Orientation(t *testing.T) {
	size := lattice.Pt(3, 4, 5)
	for _, tc := range []struct {
		normal int
		u, v   int
	}{
		{0, 1, 2},
		{1, 0, 2},
		{2, 0, 1},
	} {
		tr := AxisPlane(size, tc.normal, 1)
		nu, nv := float64(size.Axis(tc.u)), float64(size.Axis(tc.v))
		x, y, z, _ := tr.Apply(0.5/nu, 0.5/nv, 0, 1)
		p := [3]float64{x, y, z}
		assert.InDelta(t, 1, p[tc.normal], 1e-12)
		assert.InDelta(t, 0, p[tc.u], 1e-12)
		assert.InDelta(t, 0, p[tc.v], 1e-12)
	}
}

func TestProjection_SentinelOutsideLattice(t *testing.T) {
	size := lattice.Pt(8, 8, 1)
	_, s := newState(t, size)
	for p := range lattice.Box(lattice.Point{}, size).Points() {
		setE(s, p, r3.Vec{Z: 1})
	}

	// Pixel centres land on -4..11 along both axes, so a 4 pixel border falls outside.
	tr := Plane(r3.Vec{X: -4.5, Y: -4.5}, r3.Vec{X: 16}, r3.Vec{Y: 16})
	target := NewImageTarget(16, 16)
	proj, err := CreateProjection(s, target, Params{
		Field:     solver.FieldE,
		Transform: tr,
		ColorMap:  Diverging(2, 1),
	})
	require.NoError(t, err)

	pass := BeginPass(s)
	pass.Add(proj)
	misses, err := pass.Finish()
	require.NoError(t, err)
	assert.Equal(t, 16*16-8*8, misses)

	red := color.RGBA{R: 255, A: 255}
	assert.Equal(t, Sentinel, target.Image.RGBAAt(0, 0))
	assert.Equal(t, Sentinel, target.Image.RGBAAt(15, 15))
	assert.Equal(t, Sentinel, target.Image.RGBAAt(3, 8))
	assert.Equal(t, red, target.Image.RGBAAt(4, 4))
	assert.Equal(t, red, target.Image.RGBAAt(8, 8))
	assert.Equal(t, red, target.Image.RGBAAt(11, 11))
}

func TestPass_RejectsTickBoundary(t *testing.T) {
	inst, s := newState(t, lattice.Pt(4, 4, 4))
	proj, err := CreateProjection(s, NewImageTarget(4, 4), Params{
		Field:     solver.FieldH,
		Transform: AxisPlane(s.Size(), 0, 0),
		ColorMap:  Components(1),
	})
	require.NoError(t, err)

	pass := BeginPass(s)
	pass.Add(proj)
	inst.Step(s)
	_, err = pass.Finish()
	assert.True(t, errors.Is(err, ErrTickBoundary))
}

func TestCreateProjection_Validation(t *testing.T) {
	_, s := newState(t, lattice.Pt(2, 2, 2))
	_, err := CreateProjection(s, NewImageTarget(0, 3), Params{})
	assert.Error(t, err)
	_, err = CreateProjection(s, NewImageTarget(2, 2), Params{Field: solver.Field(7)})
	assert.Error(t, err)
}

func TestColorMaps(t *testing.T) {
	cm := Diverging(2, 2)
	assert.Equal(t, color.RGBA{R: 255, A: 255}, cm.RGBA(r3.Vec{Z: 2}))
	assert.Equal(t, color.RGBA{R: 255, A: 255}, cm.RGBA(r3.Vec{Z: 50}))
	assert.Equal(t, color.RGBA{B: 188, A: 255}, cm.RGBA(r3.Vec{Z: -1}))
	assert.Equal(t, color.RGBA{A: 255}, cm.RGBA(r3.Vec{X: 5}))

	g := Grayscale(0, 1)
	assert.Equal(t, color.RGBA{R: 188, G: 188, B: 188, A: 255}, g.RGBA(r3.Vec{}))
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, g.RGBA(r3.Vec{X: 1}))
	assert.Equal(t, color.RGBA{A: 255}, g.RGBA(r3.Vec{X: -1}))

	c := Components(1)
	assert.Equal(t, color.RGBA{R: 255, G: 188, B: 0, A: 255}, c.RGBA(r3.Vec{X: 1, Z: -1}))
}

func TestLinearToSRGB(t *testing.T) {
	assert.Equal(t, 0.0, LinearToSRGB(0))
	assert.InDelta(t, 1, LinearToSRGB(1), 1e-12)
	assert.InDelta(t, 12.92*0.002, LinearToSRGB(0.002), 1e-15)
	assert.InDelta(t, 0.7354, LinearToSRGB(0.5), 1e-4)
	assert.Equal(t, uint8(0), toByte(-3))
	assert.Equal(t, uint8(255), toByte(3))
}

func TestProjection_Cell(t *testing.T) {
	size := lattice.Pt(6, 4, 1)
	_, s := newState(t, size)
	proj, err := CreateProjection(s, NewImageTarget(6, 4), Params{
		Field:     solver.FieldH,
		Transform: AxisPlane(size, 2, 0),
		ColorMap:  Components(1),
	})
	require.NoError(t, err)

	p, ok := proj.Cell(1, 0)
	require.True(t, ok)
	assert.Equal(t, lattice.Pt(1, 3, 0), p)

	_, ok = proj.Cell(6, 0)
	assert.False(t, ok)
	_, ok = proj.Cell(0, -1)
	assert.False(t, ok)
}

func TestNewProjection_FromSize(t *testing.T) {
	size := lattice.Pt(4, 4, 1)
	params := Params{
		Field:     solver.FieldE,
		Transform: AxisPlane(size, 2, 0),
		ColorMap:  Components(1),
	}
	target := NewImageTarget(4, 4)
	proj, err := NewProjection(size, target, params)
	require.NoError(t, err)

	_, s := newState(t, size)
	setE(s, lattice.Pt(0, 3, 0), r3.Vec{X: 1})
	pass := BeginPass(s)
	pass.Add(proj)
	misses, err := pass.Finish()
	require.NoError(t, err)
	assert.Zero(t, misses)
	assert.Equal(t, uint8(255), target.Image.RGBAAt(0, 0).R)

	_, other := newState(t, lattice.Pt(5, 4, 1))
	pass = BeginPass(other)
	pass.Add(proj)
	_, err = pass.Finish()
	assert.ErrorContains(t, err, "projection built for lattice")
}
