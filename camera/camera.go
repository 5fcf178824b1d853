// Package camera maps between screen pixels and the pixels of a projected
// view, with pan and zoom.
package camera

import "math"

// Camera controls the viewport onto one view image.
type Camera struct {
	// Position is the camera center in image pixels.
	X, Y float32

	// Zoom in screen pixels per image pixel.
	Zoom float32

	// Viewport rectangle on screen.
	ViewportX, ViewportY float32
	ViewportW, ViewportH float32

	// Image dimensions.
	ImageW, ImageH float32

	// Zoom constraints. MinZoom fits the whole image into the viewport.
	MinZoom, MaxZoom float32
}

// MaxMagnification bounds zooming in, relative to the fitted zoom.
const MaxMagnification = 16

// New creates a camera showing the whole image centered in the viewport.
func New(vx, vy, vw, vh, imageW, imageH float32) *Camera {
	c := &Camera{
		ViewportX: vx,
		ViewportY: vy,
		ImageW:    imageW,
		ImageH:    imageH,
	}
	c.Resize(vx, vy, vw, vh)
	c.Reset()
	return c
}

// fitZoom is the zoom at which the image just fits the viewport.
func (c *Camera) fitZoom() float32 {
	return min(c.ViewportW/c.ImageW, c.ViewportH/c.ImageH)
}

// ImageToScreen converts image coordinates to screen coordinates.
func (c *Camera) ImageToScreen(ix, iy float32) (sx, sy float32) {
	sx = c.ViewportX + c.ViewportW/2 + (ix-c.X)*c.Zoom
	sy = c.ViewportY + c.ViewportH/2 + (iy-c.Y)*c.Zoom
	return sx, sy
}

// ScreenToImage converts screen coordinates to image coordinates. ok is
// false when the point is outside the viewport or the image.
func (c *Camera) ScreenToImage(sx, sy float32) (ix, iy float32, ok bool) {
	ix = c.X + (sx-c.ViewportX-c.ViewportW/2)/c.Zoom
	iy = c.Y + (sy-c.ViewportY-c.ViewportH/2)/c.Zoom
	ok = c.InViewport(sx, sy) && ix >= 0 && iy >= 0 && ix < c.ImageW && iy < c.ImageH
	return ix, iy, ok
}

// Pixel returns the image pixel under a screen point.
func (c *Camera) Pixel(sx, sy float32) (x, y int, ok bool) {
	ix, iy, ok := c.ScreenToImage(sx, sy)
	if !ok {
		return 0, 0, false
	}
	return int(math.Floor(float64(ix))), int(math.Floor(float64(iy))), true
}

// InViewport reports whether a screen point lies in the viewport.
func (c *Camera) InViewport(sx, sy float32) bool {
	return sx >= c.ViewportX && sy >= c.ViewportY &&
		sx < c.ViewportX+c.ViewportW && sy < c.ViewportY+c.ViewportH
}

// Dest returns the screen rectangle the whole image is drawn into. Parts
// of it may lie outside the viewport.
func (c *Camera) Dest() (x, y, w, h float32) {
	x, y = c.ImageToScreen(0, 0)
	return x, y, c.ImageW * c.Zoom, c.ImageH * c.Zoom
}

// Resize updates the viewport and recalculates zoom constraints.
func (c *Camera) Resize(vx, vy, vw, vh float32) {
	c.ViewportX, c.ViewportY = vx, vy
	if vw == c.ViewportW && vh == c.ViewportH {
		return
	}
	c.ViewportW, c.ViewportH = vw, vh
	c.MinZoom = c.fitZoom()
	c.MaxZoom = c.MinZoom * MaxMagnification
	c.SetZoom(c.Zoom)
}

// Pan moves the camera by the given delta in screen pixels.
func (c *Camera) Pan(dx, dy float32) {
	c.X += dx / c.Zoom
	c.Y += dy / c.Zoom
	c.clampCenter()
}

// SetZoom sets the zoom level, clamped to min/max.
func (c *Camera) SetZoom(zoom float32) {
	c.Zoom = clamp(zoom, c.MinZoom, c.MaxZoom)
	c.clampCenter()
}

// ZoomAt multiplies the zoom by factor, keeping the image point under the
// screen point (sx, sy) fixed.
func (c *Camera) ZoomAt(factor, sx, sy float32) {
	ix, iy, _ := c.ScreenToImage(sx, sy)
	c.Zoom = clamp(c.Zoom*factor, c.MinZoom, c.MaxZoom)
	c.X = ix - (sx-c.ViewportX-c.ViewportW/2)/c.Zoom
	c.Y = iy - (sy-c.ViewportY-c.ViewportH/2)/c.Zoom
	c.clampCenter()
}

// Reset shows the whole image.
func (c *Camera) Reset() {
	c.X = c.ImageW / 2
	c.Y = c.ImageH / 2
	c.Zoom = c.MinZoom
}

// clampCenter keeps the visible area inside the image along any axis where
// the image is larger than the viewport, and centered otherwise.
func (c *Camera) clampCenter() {
	halfW := c.ViewportW / (2 * c.Zoom)
	halfH := c.ViewportH / (2 * c.Zoom)
	c.X = clampAxis(c.X, halfW, c.ImageW)
	c.Y = clampAxis(c.Y, halfH, c.ImageH)
}

func clampAxis(center, half, size float32) float32 {
	if 2*half >= size {
		return size / 2
	}
	return clamp(center, half, size-half)
}

// VisibleImageBounds returns the image-coordinate bounds of the visible area.
func (c *Camera) VisibleImageBounds() (minX, minY, maxX, maxY float32) {
	halfW := c.ViewportW / (2 * c.Zoom)
	halfH := c.ViewportH / (2 * c.Zoom)
	return c.X - halfW, c.Y - halfH, c.X + halfW, c.Y + halfH
}

// clamp restricts a value to a range.
func clamp(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
