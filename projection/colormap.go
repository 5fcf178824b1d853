package projection

import (
	"image/color"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// ColorMap maps a homogeneous field vector (vx, vy, vz, 1) to linear RGBA.
// Channels are clamped to [0, 1] before sRGB encoding.
type ColorMap Transform

// Components maps x, y, z to red, green, blue around mid grey, with
// +-scale reaching the ends of the range.
func Components(scale float64) ColorMap {
	k := 0.5 / scale
	return ColorMap{
		{k, 0, 0, 0.5},
		{0, k, 0, 0.5},
		{0, 0, k, 0.5},
		{0, 0, 0, 1},
	}
}

// Grayscale maps one component to grey, -scale black and +scale white.
func Grayscale(component int, scale float64) ColorMap {
	k := 0.5 / scale
	var cm ColorMap
	for ch := 0; ch < 3; ch++ {
		cm[ch][component] = k
		cm[ch][3] = 0.5
	}
	cm[3][3] = 1
	return cm
}

// Diverging maps one component to blue (negative) through black to red
// (positive), saturating at +-scale.
func Diverging(component int, scale float64) ColorMap {
	k := 1 / scale
	var cm ColorMap
	cm[0][component] = k
	cm[2][component] = -k
	cm[3][3] = 1
	return cm
}

// Apply returns the clamped linear RGBA for v.
func (cm *ColorMap) Apply(v r3.Vec) [4]float64 {
	t := (*Transform)(cm)
	r, g, b, a := t.Apply(v.X, v.Y, v.Z, 1)
	return [4]float64{clamp01(r), clamp01(g), clamp01(b), clamp01(a)}
}

// RGBA maps v through cm and encodes it as sRGB with linear alpha.
func (cm *ColorMap) RGBA(v r3.Vec) color.RGBA {
	c := cm.Apply(v)
	return color.RGBA{
		R: toByte(LinearToSRGB(c[0])),
		G: toByte(LinearToSRGB(c[1])),
		B: toByte(LinearToSRGB(c[2])),
		A: toByte(c[3]),
	}
}

func clamp01(x float64) float64 {
	if !(x > 0) { // NaN included
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func toByte(x float64) uint8 {
	return uint8(math.Round(clamp01(x) * 255))
}

// LinearToSRGB applies the sRGB transfer function to x in [0, 1].
func LinearToSRGB(x float64) float64 {
	if x <= 0.0031308 {
		return 12.92 * x
	}
	return 1.055*math.Pow(x, 1/2.4) - 0.055
}
