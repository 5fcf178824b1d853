package renderer

import (
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/yee/executor"
	"github.com/pthm-cable/yee/lattice"
	"github.com/pthm-cable/yee/observer"
	"github.com/pthm-cable/yee/solver"
)

func frame(tick uint64, w, h int) observer.Frame {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: uint8(tick), A: 255})
		}
	}
	return observer.Frame{Tick: tick, Time: float64(tick) / 2, Image: img}
}

func TestTextureSink_LatestFrameWins(t *testing.T) {
	ts := NewTextureSink(4, 3)
	assert.False(t, ts.Upload())

	require.NoError(t, ts.Observe(frame(1, 4, 3)))
	require.NoError(t, ts.Observe(frame(2, 4, 3)))
	assert.Equal(t, uint64(1), ts.Dropped())

	require.True(t, ts.Upload())
	assert.Equal(t, uint64(2), ts.Tick())
	assert.Equal(t, 1.0, ts.Time())
	assert.False(t, ts.Upload())

	// Row-major copy of the uploaded frame.
	assert.Equal(t, color.RGBA{R: 3, G: 2, B: 2, A: 255}, ts.pixels[2*4+3])
	assert.Equal(t, color.RGBA{R: 1, G: 0, B: 2, A: 255}, ts.pixels[1])
}

func TestTextureSink_RejectsBadFrames(t *testing.T) {
	ts := NewTextureSink(4, 3)
	assert.Error(t, ts.Observe(observer.Frame{Tick: 1}))
	assert.ErrorContains(t, ts.Observe(frame(1, 3, 4)), "3x4")
	assert.False(t, ts.Upload())
	assert.NoError(t, ts.Close())
}

func TestCopyPixels_SubImage(t *testing.T) {
	full := frame(0, 6, 6).Image
	sub := full.SubImage(image.Rect(2, 2, 4, 4)).(*image.RGBA)
	dst := make([]color.RGBA, 4)
	copyPixels(dst, sub)
	assert.Equal(t, color.RGBA{R: 2, G: 2, A: 255}, dst[0])
	assert.Equal(t, color.RGBA{R: 3, G: 3, A: 255}, dst[3])
}

func newExecutor(t *testing.T) *executor.Executor {
	t.Helper()
	inst, err := solver.New(solver.Config{
		DomainSize: r3.Vec{X: 32, Y: 1, Z: 1},
		Resolution: r3.Vec{X: 1, Y: 1, Z: 1},
		TimeStep:   0.5,
		Constants:  solver.Reduced,
		Workers:    1,
		Sources: []solver.Source{solver.PointSource("pulse", lattice.Pt(16, 0, 0), &solver.GaussianPulse{
			T0: 5, Tau: 2, J: r3.Vec{Y: 1},
		})},
	})
	require.NoError(t, err)
	e := executor.New(inst, executor.Options{StepInterval: time.Hour})
	t.Cleanup(func() {
		e.Close()
		inst.Close()
	})
	return e
}

func TestActions_Apply(t *testing.T) {
	e := newExecutor(t)

	require.NoError(t, Actions{Step: true}.Apply(e, nil))
	require.NoError(t, Actions{Step: true}.Apply(e, nil))
	assert.Equal(t, uint64(2), e.Tick())

	require.NoError(t, Actions{Toggle: true}.Apply(e, nil))
	assert.True(t, e.Running())
	require.NoError(t, Actions{Toggle: true}.Apply(e, nil))
	assert.False(t, e.Running())

	require.NoError(t, Actions{Reset: true, Step: true}.Apply(e, nil))
	assert.Equal(t, uint64(0), e.Tick())
	assert.Equal(t, executor.Stopped, e.Status())
}

func TestActions_ApplyInterval(t *testing.T) {
	e := newExecutor(t)
	var ticks []uint64
	onUpdate := func(s *solver.State) { ticks = append(ticks, s.Tick()) }

	require.NoError(t, Actions{IntervalChanged: true, Interval: 0, Toggle: true}.Apply(e, onUpdate))
	require.Eventually(t, func() bool { return e.Tick() >= 5 }, 2*time.Second, time.Millisecond)
	require.NoError(t, Actions{Toggle: true}.Apply(e, nil))

	var n int
	e.Read(func(*solver.State) { n = len(ticks) })
	assert.GreaterOrEqual(t, n, 5)
}
