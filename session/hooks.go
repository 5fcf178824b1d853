package session

import (
	"log/slog"

	"github.com/pthm-cable/yee/solver"
	"github.com/pthm-cable/yee/telemetry"
)

// afterStep records probes, samples energy, feeds recorders and flushes the
// stats window. The caller holds s.mu and st is stable. timed is set when
// the caller opened a perf tick and wants per-phase timing.
func (s *Session) afterStep(st *solver.State, timed bool) {
	phase := func(name string) {
		if timed {
			s.perf.StartPhase(name)
		}
	}
	tick := st.Tick()

	phase(telemetry.PhaseProbes)
	s.probes.Record(st)

	phase(telemetry.PhaseEnergy)
	if s.collector.ShouldSample(tick) {
		s.energy = st.Energy()
		s.collector.Record(s.energy)
	}

	phase(telemetry.PhaseProject)
	for _, r := range s.recorders {
		r.OnUpdate(st)
	}

	if !s.collector.ShouldFlush(tick) {
		return
	}
	phase(telemetry.PhaseEnergy)
	stats := s.collector.Flush(st, s.perf)
	s.energy = stats.Energy
	s.windows = append(s.windows, pendingWindow{stats: stats, perf: s.perf.Stats()})

	for _, bm := range s.detector.Check(stats) {
		m := pendingMark{bookmark: bm}
		if s.snapshotDir != "" {
			m.snapshot = telemetry.TakeSnapshot(st, &bm, s.lines...)
		}
		s.marks = append(s.marks, m)
	}
}

// drain writes everything afterStep queued. It does I/O and must not be
// called with s.mu held.
func (s *Session) drain() {
	s.mu.Lock()
	windows, marks := s.windows, s.marks
	s.windows, s.marks = nil, nil
	samples := s.probes.Drain()
	s.mu.Unlock()

	for _, w := range windows {
		if s.statsCallback != nil {
			s.statsCallback(w.stats)
		}
		if s.logStats {
			w.stats.LogStats()
			w.perf.LogStats()
		}
		if err := s.output.WriteStats(w.stats); err != nil {
			slog.Error("failed to write stats", "error", err)
		}
		if err := s.output.WritePerf(w.perf, w.stats.WindowEndTick); err != nil {
			slog.Error("failed to write perf", "error", err)
		}
	}

	if err := s.output.WriteProbes(samples); err != nil {
		slog.Error("failed to write probes", "error", err)
	}

	for _, m := range marks {
		if s.logStats {
			m.bookmark.LogBookmark()
		}
		if err := s.output.WriteBookmark(m.bookmark); err != nil {
			slog.Error("failed to write bookmark", "error", err)
		}
		if m.snapshot != nil {
			s.saveSnapshot(m.snapshot)
		}
	}
}

// saveSnapshot writes a snapshot to the snapshot directory.
func (s *Session) saveSnapshot(snap *telemetry.Snapshot) {
	path, err := telemetry.SaveSnapshot(snap, s.snapshotDir)
	if err != nil {
		slog.Error("failed to save snapshot", "error", err)
		return
	}
	slog.Info("snapshot saved", "path", path, "tick", snap.Tick)
}

// resetTelemetry forgets collected history after the state was reset.
func (s *Session) resetTelemetry() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collector.Reset()
	s.probes.Reset()
	s.detector.Reset()
	s.energy = 0
	s.windows = nil
	s.marks = nil
}
