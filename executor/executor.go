// Package executor runs a solver on a background goroutine under start, stop,
// step and reset commands.
package executor

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pthm-cable/yee/solver"
)

// ErrClosed is returned for commands sent after Close or after the worker
// has exited.
var ErrClosed = errors.New("executor closed")

// Status is the executor's run state.
type Status uint32

const (
	Stopped Status = iota
	Running
	Resetting
)

func (s Status) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Running:
		return "running"
	case Resetting:
		return "resetting"
	}
	return fmt.Sprintf("Status(%d)", uint32(s))
}

// UpdateFunc is called on the worker after every step, under the write lock.
// It must not block or do I/O.
type UpdateFunc func(s *solver.State)

// Options configure an Executor.
type Options struct {
	// StepInterval is the minimum time between step starts while running.
	StepInterval time.Duration
	// QueueSize bounds the command channel. Defaults to 16.
	QueueSize int
	// OnUpdate is called after every step, including single steps taken
	// before the first Start. May be nil.
	OnUpdate UpdateFunc
	Logger   *slog.Logger
}

type commandKind uint8

const (
	cmdStart commandKind = iota
	cmdStop
	cmdStep
	cmdSetInterval
	cmdReset
)

var commandNames = [...]string{"start", "stop", "step", "set_interval", "reset"}

type command struct {
	kind     commandKind
	onUpdate UpdateFunc
	interval time.Duration
	ack      chan struct{}
}

// Executor owns a solver state and advances it on a dedicated goroutine.
type Executor struct {
	inst *solver.Instance

	mu    sync.RWMutex
	state *solver.State

	cmds      chan command
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	status   atomic.Uint32
	tick     atomic.Uint64
	stepTime atomic.Int64
	logger   *slog.Logger

	// Owned by the worker.
	interval time.Duration
	onUpdate UpdateFunc
	lastStep time.Time
	next     time.Time
}

// New allocates a state for inst and starts the worker in the stopped state.
func New(inst *solver.Instance, opts Options) *Executor {
	if opts.QueueSize < 1 {
		opts.QueueSize = 16
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	e := &Executor{
		inst:     inst,
		state:    inst.NewState(),
		cmds:     make(chan command, opts.QueueSize),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		logger:   opts.Logger,
		interval: opts.StepInterval,
		onUpdate: opts.OnUpdate,
	}
	go e.run()
	return e
}

// Start begins stepping at the configured interval. A non-nil onUpdate
// replaces the callback for this and all later steps.
func (e *Executor) Start(onUpdate UpdateFunc) error {
	return e.send(command{kind: cmdStart, onUpdate: onUpdate})
}

// Stop halts stepping after the tick in progress.
func (e *Executor) Stop() error {
	return e.send(command{kind: cmdStop})
}

// Step advances one tick while stopped and calls the current callback. It is
// ignored while running.
func (e *Executor) Step() error {
	return e.send(command{kind: cmdStep})
}

// SetStepInterval changes the interval from the next scheduling decision.
func (e *Executor) SetStepInterval(d time.Duration) error {
	if d < 0 {
		d = 0
	}
	return e.send(command{kind: cmdSetInterval, interval: d})
}

// Reset zeroes the state, rewinds to tick 0 and leaves the executor stopped.
func (e *Executor) Reset() error {
	return e.send(command{kind: cmdReset})
}

// Close stops the worker and waits for it. A tick in progress completes
// first. Close is idempotent.
func (e *Executor) Close() error {
	e.closeOnce.Do(func() { close(e.quit) })
	<-e.done
	return nil
}

// send delivers c in order and waits until the worker has applied it.
func (e *Executor) send(c command) error {
	c.ack = make(chan struct{})
	select {
	case <-e.done:
		return ErrClosed
	case <-e.quit:
		return ErrClosed
	case e.cmds <- c:
	}
	select {
	case <-c.ack:
		return nil
	case <-e.done:
		return ErrClosed
	}
}

// Read runs fn under a read lease. fn must not retain s.
func (e *Executor) Read(fn func(s *solver.State)) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	fn(e.state)
}

// Instance returns the solver instance.
func (e *Executor) Instance() *solver.Instance { return e.inst }

// Status returns the current run state.
func (e *Executor) Status() Status { return Status(e.status.Load()) }

// Running reports whether the executor is stepping on its own.
func (e *Executor) Running() bool { return e.Status() == Running }

// Tick returns the tick of the last completed step.
func (e *Executor) Tick() uint64 { return e.tick.Load() }

// Time returns the simulated time of the last completed step.
func (e *Executor) Time() float64 {
	return float64(e.Tick()) * e.inst.TimeStep()
}

// StepTime returns the wall time of the last step.
func (e *Executor) StepTime() time.Duration {
	return time.Duration(e.stepTime.Load())
}

func (e *Executor) run() {
	defer close(e.done)
	defer func() { e.logger.Info("executor stopped", "tick", e.Tick()) }()

	for {
		if e.Status() != Running {
			select {
			case <-e.quit:
				return
			case c := <-e.cmds:
				e.handle(c)
			}
			continue
		}

		if wait := time.Until(e.next); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-e.quit:
				timer.Stop()
				return
			case c := <-e.cmds:
				timer.Stop()
				e.handle(c)
				continue
			case <-timer.C:
			}
		} else {
			select {
			case <-e.quit:
				return
			case c := <-e.cmds:
				e.handle(c)
				continue
			default:
			}
		}

		e.stepOnce()
		e.next = e.lastStep.Add(e.interval)
	}
}

func (e *Executor) handle(c command) {
	defer close(c.ack)
	e.logger.Debug("executor command", "command", commandNames[c.kind], "status", e.Status().String(), "tick", e.Tick())

	switch c.kind {
	case cmdStart:
		if c.onUpdate != nil {
			e.onUpdate = c.onUpdate
		}
		if e.Status() != Running {
			e.status.Store(uint32(Running))
			e.next = time.Now()
		}
	case cmdStop:
		e.status.Store(uint32(Stopped))
	case cmdStep:
		if e.Status() != Running {
			e.stepOnce()
		}
	case cmdSetInterval:
		e.interval = c.interval
		e.next = e.lastStep.Add(e.interval)
	case cmdReset:
		e.status.Store(uint32(Resetting))
		e.mu.Lock()
		e.inst.Reset(e.state)
		e.mu.Unlock()
		e.tick.Store(0)
		e.stepTime.Store(0)
		e.status.Store(uint32(Stopped))
	}
}

func (e *Executor) stepOnce() {
	start := time.Now()
	e.mu.Lock()
	e.inst.Step(e.state)
	elapsed := time.Since(start)
	e.tick.Store(e.state.Tick())
	e.stepTime.Store(int64(elapsed))
	if e.onUpdate != nil {
		e.onUpdate(e.state)
	}
	e.mu.Unlock()
	e.lastStep = start
}
