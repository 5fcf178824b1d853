package session

import (
	"fmt"
	"log/slog"

	"github.com/pthm-cable/yee/telemetry"
)

// UpdateHeadless advances the state by steps ticks on the calling goroutine
// and writes any flushed telemetry.
func (s *Session) UpdateHeadless(steps int) {
	if s.state == nil {
		panic("session: UpdateHeadless on a viewer session")
	}
	for i := 0; i < steps; i++ {
		s.mu.Lock()
		s.perf.StartTick()
		s.perf.StartPhase(telemetry.PhaseStep)
		s.inst.Step(s.state)
		s.afterStep(s.state, true)
		s.perf.StartPhase(telemetry.PhaseOutput)
		s.mu.Unlock()

		s.drain()

		s.mu.Lock()
		s.perf.EndTick()
		s.mu.Unlock()
	}
}

// Run steps headlessly until maxTicks. It stops early with an error when
// the field diverges.
func (s *Session) Run(maxTicks uint64, stepsPerUpdate int) error {
	if stepsPerUpdate < 1 {
		stepsPerUpdate = 1
	}
	var diverged bool
	prev := s.statsCallback
	s.statsCallback = func(w telemetry.WindowStats) {
		if prev != nil {
			prev(w)
		}
		if !w.Finite {
			diverged = true
		}
	}
	defer func() { s.statsCallback = prev }()

	for s.Tick() < maxTicks {
		n := min(uint64(stepsPerUpdate), maxTicks-s.Tick())
		s.UpdateHeadless(int(n))
		if diverged {
			return fmt.Errorf("field diverged by tick %d", s.Tick())
		}
	}
	slog.Info("max ticks reached", "tick", s.Tick())
	return nil
}
