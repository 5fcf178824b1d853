package observer

import (
	"image"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/pthm-cable/yee/projection"
	"github.com/pthm-cable/yee/solver"
)

// Recorder renders a projection every N ticks from the executor's update
// callback and hands the frame to a sink on its own goroutine. When the
// sink falls behind, frames are dropped rather than stalling the solver,
// unless the recorder was created with Block.
type Recorder struct {
	every  uint64
	block  bool
	proj   *projection.Projection
	target *projection.ImageTarget
	sink   Sink

	frames  chan Frame
	dropped atomic.Uint64
	written atomic.Uint64

	wg      sync.WaitGroup
	errOnce sync.Once
	err     error
	closed  bool
}

// RecorderOptions configure a Recorder.
type RecorderOptions struct {
	// Every is the tick cadence. Values below 1 record every tick.
	Every uint64
	// Queue is the number of frames that may wait for the sink.
	Queue int
	// Block makes OnUpdate wait for queue space instead of dropping the
	// frame. Use it when the caller owns the stepping loop.
	Block bool
}

// NewRecorder renders proj into target and forwards copies to sink.
func NewRecorder(proj *projection.Projection, target *projection.ImageTarget, sink Sink, opts RecorderOptions) *Recorder {
	if opts.Every < 1 {
		opts.Every = 1
	}
	if opts.Queue < 1 {
		opts.Queue = 4
	}
	r := &Recorder{
		every:  opts.Every,
		block:  opts.Block,
		proj:   proj,
		target: target,
		sink:   sink,
		frames: make(chan Frame, opts.Queue),
	}
	r.wg.Add(1)
	go r.drain()
	return r
}

// OnUpdate matches executor.UpdateFunc. It blocks on the sink only in
// Block mode.
func (r *Recorder) OnUpdate(s *solver.State) {
	if s.Tick()%r.every != 0 {
		return
	}
	pass := projection.BeginPass(s)
	pass.Add(r.proj)
	if _, err := pass.Finish(); err != nil {
		r.fail(err)
		return
	}

	img := image.NewRGBA(r.target.Image.Bounds())
	copy(img.Pix, r.target.Image.Pix)
	f := Frame{Tick: s.Tick(), Time: s.Time(), Image: img}
	if r.block {
		r.frames <- f
		return
	}
	select {
	case r.frames <- f:
	default:
		r.dropped.Add(1)
	}
}

func (r *Recorder) drain() {
	defer r.wg.Done()
	for f := range r.frames {
		if err := r.sink.Observe(f); err != nil {
			r.fail(err)
			continue
		}
		r.written.Add(1)
	}
}

func (r *Recorder) fail(err error) {
	r.errOnce.Do(func() {
		r.err = err
		slog.Warn("recorder error", "error", err)
	})
}

// Dropped returns the number of frames discarded because the sink was busy.
func (r *Recorder) Dropped() uint64 { return r.dropped.Load() }

// Written returns the number of frames the sink accepted.
func (r *Recorder) Written() uint64 { return r.written.Load() }

// Close flushes queued frames, closes the sink and returns the first error
// seen. OnUpdate must not be called concurrently with or after Close.
func (r *Recorder) Close() error {
	if r.closed {
		return r.err
	}
	r.closed = true
	close(r.frames)
	r.wg.Wait()
	if err := r.sink.Close(); err != nil {
		r.fail(err)
	}
	return r.err
}
