package projection

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/pthm-cable/yee/lattice"
	"github.com/pthm-cable/yee/solver"
)

// Sentinel marks pixels whose sample point falls outside the lattice.
var Sentinel = color.RGBA{R: 255, G: 0, B: 255, A: 255}

// ErrTickBoundary is returned by Finish when the state advanced while the
// pass was open.
var ErrTickBoundary = errors.New("projection pass spans a tick boundary")

// Target receives projected pixels.
type Target interface {
	Size() (w, h int)
	Set(x, y int, c color.RGBA)
}

// ImageTarget writes into an in-memory RGBA image.
type ImageTarget struct {
	Image *image.RGBA
}

// NewImageTarget allocates a w x h image target.
func NewImageTarget(w, h int) *ImageTarget {
	return &ImageTarget{Image: image.NewRGBA(image.Rect(0, 0, w, h))}
}

func (t *ImageTarget) Size() (int, int) {
	b := t.Image.Bounds()
	return b.Dx(), b.Dy()
}

func (t *ImageTarget) Set(x, y int, c color.RGBA) {
	b := t.Image.Bounds()
	t.Image.SetRGBA(b.Min.X+x, b.Min.Y+y, c)
}

// Params configure a projection.
type Params struct {
	Field solver.Field
	// Transform maps (u, 1-v, 0, 1) to lattice coordinates.
	Transform Transform
	ColorMap  ColorMap
}

// Projection samples one plane of a state into a target.
type Projection struct {
	params Params
	target Target
	size   lattice.Point
	w, h   int
}

// CreateProjection binds params to target for states shaped like state.
func CreateProjection(state *solver.State, target Target, params Params) (*Projection, error) {
	return NewProjection(state.Size(), target, params)
}

// NewProjection binds params to target for states of the given lattice size.
func NewProjection(size lattice.Point, target Target, params Params) (*Projection, error) {
	w, h := target.Size()
	if w < 1 || h < 1 {
		return nil, fmt.Errorf("projection target has empty size %dx%d", w, h)
	}
	if params.Field != solver.FieldE && params.Field != solver.FieldH {
		return nil, fmt.Errorf("projection field %v", params.Field)
	}
	return &Projection{
		params: params,
		target: target,
		size:   size,
		w:      w,
		h:      h,
	}, nil
}

// Target returns the projection's target.
func (p *Projection) Target() Target { return p.target }

// sample maps pixel (x, y) to a lattice point. ok is false when the rounded
// point lies outside the lattice.
func (p *Projection) sample(x, y int) (lattice.Point, bool) {
	u := (float64(x) + 0.5) / float64(p.w)
	v := (float64(y) + 0.5) / float64(p.h)
	px, py, pz, pw := p.params.Transform.Apply(u, 1-v, 0, 1)
	if pw != 1 && pw != 0 {
		px, py, pz = px/pw, py/pw, pz/pw
	}
	pt := lattice.Point{
		X: int(math.Round(px)),
		Y: int(math.Round(py)),
		Z: int(math.Round(pz)),
	}
	if math.IsNaN(px+py+pz) || !pt.Within(p.size) {
		return pt, false
	}
	return pt, true
}

// Cell returns the lattice point sampled by target pixel (x, y).
func (p *Projection) Cell(x, y int) (lattice.Point, bool) {
	if x < 0 || y < 0 || x >= p.w || y >= p.h {
		return lattice.Point{}, false
	}
	return p.sample(x, y)
}

func (p *Projection) render(s *solver.State) int {
	fields := s.Fields()
	cur := s.Current()
	misses := 0
	for y := 0; y < p.h; y++ {
		for x := 0; x < p.w; x++ {
			pt, ok := p.sample(x, y)
			if !ok {
				p.target.Set(x, y, Sentinel)
				misses++
				continue
			}
			c := fields.Get(pt)
			p.target.Set(x, y, p.params.ColorMap.RGBA(c.Get(p.params.Field, cur)))
		}
	}
	return misses
}

// Pass renders several projections against one snapshot.
type Pass struct {
	state       *solver.State
	tick        uint64
	projections []*Projection
}

// BeginPass opens a pass on state. The caller must hold state stable (e.g. a
// read lease) until Finish returns.
func BeginPass(state *solver.State) *Pass {
	return &Pass{state: state, tick: state.Tick()}
}

// Add queues p for rendering.
func (ps *Pass) Add(p *Projection) {
	ps.projections = append(ps.projections, p)
}

// Finish renders every queued projection and returns the number of pixels
// that fell outside the lattice.
func (ps *Pass) Finish() (int, error) {
	if ps.state.Tick() != ps.tick {
		return 0, fmt.Errorf("%w: began at %d, now %d", ErrTickBoundary, ps.tick, ps.state.Tick())
	}
	misses := 0
	for _, p := range ps.projections {
		if p.size != ps.state.Size() {
			return misses, fmt.Errorf("projection built for lattice %v, state is %v", p.size, ps.state.Size())
		}
		misses += p.render(ps.state)
	}
	return misses, nil
}
