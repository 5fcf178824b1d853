// Package renderer shows projected frames in a raylib window and draws the
// viewer's control panel.
package renderer

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/yee/observer"
)

// mailbox holds the most recent frame. Older frames are overwritten.
type mailbox struct {
	mu      sync.Mutex
	frame   observer.Frame
	pending bool
	dropped uint64
}

func (m *mailbox) put(f observer.Frame) {
	m.mu.Lock()
	if m.pending {
		m.dropped++
	}
	m.frame = f
	m.pending = true
	m.mu.Unlock()
}

func (m *mailbox) take() (observer.Frame, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.pending {
		return observer.Frame{}, false
	}
	m.pending = false
	return m.frame, true
}

// TextureSink is an observer.Sink backed by a GPU texture. Observe may be
// called from any goroutine; Init, Upload, Draw and Unload must run on the
// window thread.
type TextureSink struct {
	width, height int

	box    mailbox
	pixels []color.RGBA
	tick   uint64
	time   float64

	tex         rl.Texture2D
	initialized bool
}

// NewTextureSink creates a sink for w x h frames.
func NewTextureSink(w, h int) *TextureSink {
	return &TextureSink{
		width:  w,
		height: h,
		pixels: make([]color.RGBA, w*h),
	}
}

// Init creates the texture (must be called after the raylib window is created).
func (t *TextureSink) Init() {
	if t.initialized {
		return
	}
	img := rl.GenImageColor(t.width, t.height, rl.Black)
	t.tex = rl.LoadTextureFromImage(img)
	rl.UnloadImage(img)
	rl.SetTextureFilter(t.tex, rl.FilterPoint)
	t.initialized = true
}

func (t *TextureSink) Observe(f observer.Frame) error {
	if f.Image == nil {
		return fmt.Errorf("frame at tick %d has no image", f.Tick)
	}
	if b := f.Image.Bounds(); b.Dx() != t.width || b.Dy() != t.height {
		return fmt.Errorf("frame at tick %d is %dx%d, texture is %dx%d", f.Tick, b.Dx(), b.Dy(), t.width, t.height)
	}
	t.box.put(f)
	return nil
}

// Close is a no-op; the texture is released by Unload on the window thread.
func (t *TextureSink) Close() error { return nil }

// Upload copies the newest pending frame into the texture. It reports
// whether a frame was uploaded.
func (t *TextureSink) Upload() bool {
	f, ok := t.box.take()
	if !ok {
		return false
	}
	copyPixels(t.pixels, f.Image)
	t.tick, t.time = f.Tick, f.Time
	if t.initialized {
		rl.UpdateTexture(t.tex, t.pixels)
	}
	return true
}

func copyPixels(dst []color.RGBA, img *image.RGBA) {
	b := img.Bounds()
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):]
		for x := 0; x < b.Dx(); x++ {
			p := row[4*x : 4*x+4 : 4*x+4]
			dst[i] = color.RGBA{R: p[0], G: p[1], B: p[2], A: p[3]}
			i++
		}
	}
}

// Draw scales the texture into dst.
func (t *TextureSink) Draw(dst rl.Rectangle) {
	if !t.initialized {
		return
	}
	src := rl.Rectangle{X: 0, Y: 0, Width: float32(t.width), Height: float32(t.height)}
	rl.DrawTexturePro(t.tex, src, dst, rl.Vector2{}, 0, rl.White)
}

// Tick returns the tick of the last uploaded frame.
func (t *TextureSink) Tick() uint64 { return t.tick }

// Time returns the simulated time of the last uploaded frame.
func (t *TextureSink) Time() float64 { return t.time }

// Dropped returns how many frames were replaced before being uploaded.
func (t *TextureSink) Dropped() uint64 {
	t.box.mu.Lock()
	defer t.box.mu.Unlock()
	return t.box.dropped
}

// Unload frees the texture.
func (t *TextureSink) Unload() {
	if t.initialized {
		rl.UnloadTexture(t.tex)
		t.initialized = false
	}
}
