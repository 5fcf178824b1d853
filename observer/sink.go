// Package observer delivers projected frames to consumers such as animated
// GIF files or live textures.
package observer

import (
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"io"
	"os"
)

// Frame is one projected image taken between ticks.
type Frame struct {
	Tick  uint64
	Time  float64
	Image *image.RGBA
}

// Sink consumes frames. Observe is called from a single goroutine.
type Sink interface {
	Observe(f Frame) error
	Close() error
}

// GIFOptions configure a GIFSink.
type GIFOptions struct {
	// Delay per frame in hundredths of a second.
	Delay int
	// LoopCount follows image/gif: 0 loops forever, -1 plays once.
	LoopCount int
	Palette   color.Palette
}

// GIFSink collects frames and encodes them as one animated GIF on Close.
type GIFSink struct {
	w      io.Writer
	closer io.Closer
	opts   GIFOptions
	anim   gif.GIF
	closed bool
}

// NewGIFSink encodes to w. The caller keeps ownership of w.
func NewGIFSink(w io.Writer, opts GIFOptions) *GIFSink {
	if opts.Palette == nil {
		opts.Palette = palette.Plan9
	}
	if opts.Delay < 1 {
		opts.Delay = 4
	}
	return &GIFSink{
		w:    w,
		opts: opts,
		anim: gif.GIF{LoopCount: opts.LoopCount},
	}
}

// CreateGIF creates path and returns a sink that closes it on Close.
func CreateGIF(path string, opts GIFOptions) (*GIFSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create gif: %w", err)
	}
	s := NewGIFSink(f, opts)
	s.closer = f
	return s, nil
}

// Frames returns the number of frames collected so far.
func (s *GIFSink) Frames() int { return len(s.anim.Image) }

func (s *GIFSink) Observe(f Frame) error {
	if s.closed {
		return fmt.Errorf("gif sink closed")
	}
	if f.Image == nil {
		return fmt.Errorf("frame at tick %d has no image", f.Tick)
	}
	b := f.Image.Bounds()
	if n := len(s.anim.Image); n > 0 && s.anim.Image[0].Bounds() != b {
		return fmt.Errorf("frame at tick %d is %v, want %v", f.Tick, b, s.anim.Image[0].Bounds())
	}
	p := image.NewPaletted(b, s.opts.Palette)
	draw.Draw(p, b, f.Image, b.Min, draw.Src)
	s.anim.Image = append(s.anim.Image, p)
	s.anim.Delay = append(s.anim.Delay, s.opts.Delay)
	return nil
}

// Close encodes the animation. An empty animation writes nothing.
func (s *GIFSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var err error
	if len(s.anim.Image) > 0 {
		if err = gif.EncodeAll(s.w, &s.anim); err != nil {
			err = fmt.Errorf("encode gif: %w", err)
		}
	}
	if s.closer != nil {
		if cerr := s.closer.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close gif: %w", cerr)
		}
	}
	return err
}

// MultiSink fans frames out to several sinks.
type MultiSink []Sink

func (m MultiSink) Observe(f Frame) error {
	for _, s := range m {
		if err := s.Observe(f); err != nil {
			return err
		}
	}
	return nil
}

func (m MultiSink) Close() error {
	var first error
	for _, s := range m {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
