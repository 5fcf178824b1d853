package scene

import (
	"github.com/pthm-cable/yee/lattice"
	"github.com/pthm-cable/yee/projection"
	"github.com/pthm-cable/yee/solver"
)

// Name labels an entity in logs and errors.
type Name struct {
	Value string
}

// Region is the half-open cell box an entity covers.
type Region struct {
	Box lattice.Range
}

// Layer orders entities of one kind. Higher layers win where material
// regions overlap.
type Layer struct {
	Order int
}

// Medium fills a region with a material.
type Medium struct {
	Material solver.Material
}

// Emitter drives the cells of a region with a time function.
type Emitter struct {
	Function solver.TimeFunction
}

// View renders one axis-aligned slice of a field.
type View struct {
	Field  solver.Field
	Normal int
	Offset int
	// Width and Height default to the lattice extents of the plane.
	Width, Height int
	ColorMap      projection.ColorMap
	// Every is the recording cadence in ticks.
	Every uint64
	// GIF is an output file name; empty disables recording to GIF.
	GIF   string
	Delay int
}

// Size resolves the image size for a lattice of the given size.
func (v View) Size(size lattice.Point) (w, h int) {
	ua, va := projection.PlaneAxes(v.Normal)
	w, h = v.Width, v.Height
	if w < 1 {
		w = size.Axis(ua)
	}
	if h < 1 {
		h = size.Axis(va)
	}
	return w, h
}

// Params builds projection parameters for a lattice of the given size.
func (v View) Params(size lattice.Point) projection.Params {
	return projection.Params{
		Field:     v.Field,
		Transform: projection.AxisPlane(size, v.Normal, v.Offset),
		ColorMap:  v.ColorMap,
	}
}

// Sensor marks a probe point.
type Sensor struct {
	Field     solver.Field
	Component int
	Point     lattice.Point
}
