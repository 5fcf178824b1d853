package executor

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/yee/lattice"
	"github.com/pthm-cable/yee/solver"
)

func newExecutor(t *testing.T, interval time.Duration) *Executor {
	t.Helper()
	inst, err := solver.New(solver.Config{
		DomainSize: r3.Vec{X: 64, Y: 1, Z: 1},
		Resolution: r3.Vec{X: 1, Y: 1, Z: 1},
		TimeStep:   0.5,
		Constants:  solver.Reduced,
		Workers:    1,
		Sources: []solver.Source{solver.PointSource("pulse", lattice.Pt(32, 0, 0), &solver.GaussianPulse{
			T0: 5, Tau: 2, J: r3.Vec{Y: 1},
		})},
	})
	require.NoError(t, err)
	e := New(inst, Options{StepInterval: interval})
	t.Cleanup(func() {
		e.Close()
		inst.Close()
	})
	return e
}

func TestExecutor_StepWhileStopped(t *testing.T) {
	e := newExecutor(t, time.Hour)
	assert.Equal(t, Stopped, e.Status())

	require.NoError(t, e.Step())
	require.NoError(t, e.Step())

	assert.Equal(t, uint64(2), e.Tick())
	assert.InDelta(t, 1.0, e.Time(), 1e-12)
	e.Read(func(s *solver.State) {
		assert.Equal(t, uint64(2), s.Tick())
	})
	assert.False(t, e.Running())
}

func TestExecutor_StartStopMonotonic(t *testing.T) {
	e := newExecutor(t, 0)

	var mu sync.Mutex
	var seen []uint64
	record := func(s *solver.State) {
		mu.Lock()
		seen = append(seen, s.Tick())
		mu.Unlock()
	}

	require.NoError(t, e.Start(record))
	assert.True(t, e.Running())
	require.Eventually(t, func() bool { return e.Tick() > 10 }, 5*time.Second, time.Millisecond)

	require.NoError(t, e.Stop())
	stopped := e.Tick()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, e.Tick(), "no steps after stop")

	require.NoError(t, e.Start(record))
	require.Eventually(t, func() bool { return e.Tick() > stopped+10 }, 5*time.Second, time.Millisecond)
	require.NoError(t, e.Stop())

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, seen)
	for i, tick := range seen {
		assert.Equal(t, uint64(i+1), tick, "tick sequence has a gap or regression")
	}
	assert.Greater(t, e.StepTime(), time.Duration(0))
}

func TestExecutor_StepBeforeStartCallsUpdate(t *testing.T) {
	inst, err := solver.New(solver.Config{
		DomainSize: r3.Vec{X: 16, Y: 1, Z: 1},
		Resolution: r3.Vec{X: 1, Y: 1, Z: 1},
		TimeStep:   0.5,
		Constants:  solver.Reduced,
		Workers:    1,
	})
	require.NoError(t, err)
	t.Cleanup(inst.Close)

	var seen []uint64
	e := New(inst, Options{
		StepInterval: time.Hour,
		OnUpdate:     func(s *solver.State) { seen = append(seen, s.Tick()) },
	})
	t.Cleanup(func() { e.Close() })

	require.NoError(t, e.Step())
	require.NoError(t, e.Step())
	e.Read(func(*solver.State) {
		assert.Equal(t, []uint64{1, 2}, seen)
	})

	// Start(nil) keeps the installed callback.
	require.NoError(t, e.Start(nil))
	require.Eventually(t, func() bool { return e.Tick() == 3 }, 5*time.Second, time.Millisecond)
	require.NoError(t, e.Stop())
	e.Read(func(*solver.State) {
		assert.Equal(t, []uint64{1, 2, 3}, seen)
	})
}

func TestExecutor_StepIgnoredWhileRunning(t *testing.T) {
	e := newExecutor(t, time.Hour)

	require.NoError(t, e.Start(nil))
	require.NoError(t, e.Step())
	require.Eventually(t, func() bool { return e.Tick() == 1 }, 5*time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, uint64(1), e.Tick())
	require.NoError(t, e.Stop())
}

func TestExecutor_SetStepInterval(t *testing.T) {
	e := newExecutor(t, time.Hour)

	require.NoError(t, e.Start(nil))
	require.Eventually(t, func() bool { return e.Tick() == 1 }, 5*time.Second, time.Millisecond)

	require.NoError(t, e.SetStepInterval(0))
	require.Eventually(t, func() bool { return e.Tick() > 5 }, 5*time.Second, time.Millisecond)
	require.NoError(t, e.Stop())
}

func TestExecutor_Reset(t *testing.T) {
	e := newExecutor(t, 0)

	for range 20 {
		require.NoError(t, e.Step())
	}
	e.Read(func(s *solver.State) {
		assert.Greater(t, s.Energy(), 0.0)
	})

	require.NoError(t, e.Start(nil))
	require.NoError(t, e.Reset())

	assert.Equal(t, Stopped, e.Status())
	assert.Equal(t, uint64(0), e.Tick())
	e.Read(func(s *solver.State) {
		assert.Equal(t, uint64(0), s.Tick())
		assert.Zero(t, s.Energy())
	})
}

func TestExecutor_ClosedRejectsCommands(t *testing.T) {
	e := newExecutor(t, 0)
	require.NoError(t, e.Start(nil))

	require.NoError(t, e.Close())
	require.NoError(t, e.Close())

	assert.ErrorIs(t, e.Step(), ErrClosed)
	assert.ErrorIs(t, e.Start(nil), ErrClosed)
	assert.ErrorIs(t, e.Reset(), ErrClosed)
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "stopped", Stopped.String())
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "resetting", Resetting.String())
	assert.Equal(t, "Status(9)", Status(9).String())
}
