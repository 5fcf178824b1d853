// Package lattice provides strided 3D storage for per-cell simulation state.
package lattice

import (
	"fmt"
	"iter"
)

// Point is an integer cell coordinate.
type Point struct {
	X, Y, Z int
}

// Pt is shorthand for Point{x, y, z}.
func Pt(x, y, z int) Point {
	return Point{X: x, Y: y, Z: z}
}

// Add returns p + q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y, Z: p.Z + q.Z}
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y, Z: p.Z - q.Z}
}

// Axis returns the coordinate along axis a (0=x, 1=y, 2=z).
func (p Point) Axis(a int) int {
	switch a {
	case 0:
		return p.X
	case 1:
		return p.Y
	default:
		return p.Z
	}
}

// WithAxis returns p with the coordinate along axis a replaced by v.
func (p Point) WithAxis(a, v int) Point {
	switch a {
	case 0:
		p.X = v
	case 1:
		p.Y = v
	default:
		p.Z = v
	}
	return p
}

// Volume returns X*Y*Z.
func (p Point) Volume() int {
	return p.X * p.Y * p.Z
}

// Within reports whether 0 <= p < size on every axis.
func (p Point) Within(size Point) bool {
	return p.X >= 0 && p.Y >= 0 && p.Z >= 0 &&
		p.X < size.X && p.Y < size.Y && p.Z < size.Z
}

func (p Point) String() string {
	return fmt.Sprintf("(%d,%d,%d)", p.X, p.Y, p.Z)
}

// Unit returns the unit step along axis a.
func Unit(a int) Point {
	return Point{}.WithAxis(a, 1)
}

// Lattice is a dense 3D array of T stored x-fastest. The backing slice is
// allocated once and never reallocated.
type Lattice[T any] struct {
	size    Point
	strides [4]int
	data    []T
}

// New allocates a zero-initialised lattice. It panics if any extent is < 1;
// callers validate sizes coming from configuration before getting here.
func New[T any](size Point) *Lattice[T] {
	if size.X < 1 || size.Y < 1 || size.Z < 1 {
		panic(fmt.Sprintf("lattice: invalid size %v", size))
	}
	strides := [4]int{1, size.X, size.X * size.Y, size.X * size.Y * size.Z}
	return &Lattice[T]{
		size:    size,
		strides: strides,
		data:    make([]T, strides[3]),
	}
}

// Size returns the extent along each axis.
func (l *Lattice[T]) Size() Point { return l.size }

// Len returns the number of cells.
func (l *Lattice[T]) Len() int { return len(l.data) }

// Strides returns (1, Nx, Nx*Ny, Nx*Ny*Nz).
func (l *Lattice[T]) Strides() [4]int { return l.strides }

// Stride returns the index step for a unit move along axis a.
func (l *Lattice[T]) Stride(a int) int { return l.strides[a] }

// Data exposes the backing store in x-fastest order.
func (l *Lattice[T]) Data() []T { return l.data }

// ToIndex maps p to its linear index without bounds checking.
func (l *Lattice[T]) ToIndex(p Point) int {
	return p.X + p.Y*l.strides[1] + p.Z*l.strides[2]
}

// FromIndex maps a linear index back to its point.
func (l *Lattice[T]) FromIndex(i int) Point {
	z := i / l.strides[2]
	i -= z * l.strides[2]
	y := i / l.strides[1]
	return Point{X: i - y*l.strides[1], Y: y, Z: z}
}

// Index returns the linear index of p, or false if p lies outside the domain.
func (l *Lattice[T]) Index(p Point) (int, bool) {
	if !p.Within(l.size) {
		return 0, false
	}
	return l.ToIndex(p), true
}

// Get returns a pointer to the cell at p, or nil outside the domain.
func (l *Lattice[T]) Get(p Point) *T {
	i, ok := l.Index(p)
	if !ok {
		return nil
	}
	return &l.data[i]
}

// At returns the value at p and whether p lies inside the domain.
func (l *Lattice[T]) At(p Point) (T, bool) {
	i, ok := l.Index(p)
	if !ok {
		var zero T
		return zero, false
	}
	return l.data[i], true
}

// Fill sets every cell to v.
func (l *Lattice[T]) Fill(v T) {
	for i := range l.data {
		l.data[i] = v
	}
}

// Full returns the range covering the whole lattice.
func (l *Lattice[T]) Full() Range {
	return Range{Max: l.size}
}

// Cell is the position of one element yielded by All.
type Cell struct {
	Index int
	Point Point
}

// All iterates the cells of r (clipped to the domain) in x-fastest order.
// Each yielded pointer refers to a distinct cell.
func (l *Lattice[T]) All(r Range) iter.Seq2[Cell, *T] {
	r = r.Clip(l.size)
	return func(yield func(Cell, *T) bool) {
		if r.Empty() {
			return
		}
		for z := r.Min.Z; z < r.Max.Z; z++ {
			for y := r.Min.Y; y < r.Max.Y; y++ {
				base := y*l.strides[1] + z*l.strides[2]
				for x := r.Min.X; x < r.Max.X; x++ {
					i := base + x
					if !yield(Cell{Index: i, Point: Point{X: x, Y: y, Z: z}}, &l.data[i]) {
						return
					}
				}
			}
		}
	}
}

// Values iterates the cells of r by value.
func (l *Lattice[T]) Values(r Range) iter.Seq2[Cell, T] {
	return func(yield func(Cell, T) bool) {
		for c, v := range l.All(r) {
			if !yield(c, *v) {
				return
			}
		}
	}
}
