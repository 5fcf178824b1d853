package lattice

import "iter"

// Range is the half-open box [Min, Max).
type Range struct {
	Min, Max Point
}

// Box returns the range [min, max).
func Box(min, max Point) Range {
	return Range{Min: min, Max: max}
}

// Single returns the range holding only p.
func Single(p Point) Range {
	return Range{Min: p, Max: p.Add(Point{1, 1, 1})}
}

// Empty reports whether any extent is non-positive.
func (r Range) Empty() bool {
	return r.Max.X <= r.Min.X || r.Max.Y <= r.Min.Y || r.Max.Z <= r.Min.Z
}

// Extent returns Max-Min clamped at zero.
func (r Range) Extent() Point {
	if r.Empty() {
		return Point{}
	}
	return r.Max.Sub(r.Min)
}

// Len returns the number of cells in the range.
func (r Range) Len() int {
	return r.Extent().Volume()
}

// Contains reports whether p lies inside r.
func (r Range) Contains(p Point) bool {
	return p.X >= r.Min.X && p.Y >= r.Min.Y && p.Z >= r.Min.Z &&
		p.X < r.Max.X && p.Y < r.Max.Y && p.Z < r.Max.Z
}

// Clip intersects r with [0, size).
func (r Range) Clip(size Point) Range {
	return r.Intersect(Range{Max: size})
}

// Intersect returns the overlap of r and o.
func (r Range) Intersect(o Range) Range {
	return Range{
		Min: Point{max(r.Min.X, o.Min.X), max(r.Min.Y, o.Min.Y), max(r.Min.Z, o.Min.Z)},
		Max: Point{min(r.Max.X, o.Max.X), min(r.Max.Y, o.Max.Y), min(r.Max.Z, o.Max.Z)},
	}
}

// Points iterates every point of r in x-fastest order.
func (r Range) Points() iter.Seq[Point] {
	return func(yield func(Point) bool) {
		if r.Empty() {
			return
		}
		for z := r.Min.Z; z < r.Max.Z; z++ {
			for y := r.Min.Y; y < r.Max.Y; y++ {
				for x := r.Min.X; x < r.Max.X; x++ {
					if !yield(Point{X: x, Y: y, Z: z}) {
						return
					}
				}
			}
		}
	}
}
