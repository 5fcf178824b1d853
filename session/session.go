// Package session wires a configured scene to the solver, telemetry, frame
// recorders and the optional viewer.
package session

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/pthm-cable/yee/camera"
	"github.com/pthm-cable/yee/config"
	"github.com/pthm-cable/yee/executor"
	"github.com/pthm-cable/yee/inspector"
	"github.com/pthm-cable/yee/lattice"
	"github.com/pthm-cable/yee/observer"
	"github.com/pthm-cable/yee/projection"
	"github.com/pthm-cable/yee/renderer"
	"github.com/pthm-cable/yee/scene"
	"github.com/pthm-cable/yee/solver"
	"github.com/pthm-cable/yee/telemetry"
)

// Options configure a Session.
type Options struct {
	// Config is required.
	Config *config.Config
	// OutputDir receives CSV logs, GIFs and a config copy. Empty disables output.
	OutputDir string
	// SnapshotDir receives a JSON snapshot per bookmark. Empty disables snapshots.
	SnapshotDir string
	// LogStats logs every stats window and bookmark.
	LogStats bool
	// Headless runs without an executor or textures.
	Headless bool
	// StatsCallback is called with each flushed window, from the goroutine
	// that calls Update or UpdateHeadless.
	StatsCallback func(telemetry.WindowStats)
}

// pendingWindow is a flushed window waiting to be written.
type pendingWindow struct {
	stats telemetry.WindowStats
	perf  telemetry.PerfStats
}

// pendingMark is a bookmark and, when snapshots are enabled, its snapshot.
type pendingMark struct {
	bookmark telemetry.Bookmark
	snapshot *telemetry.Snapshot
}

// Session holds one run.
type Session struct {
	cfg   *config.Config
	scene *scene.Scene
	inst  *solver.Instance

	// Exactly one of state and exec is set.
	state *solver.State
	exec  *executor.Executor

	logStats      bool
	snapshotDir   string
	statsCallback func(telemetry.WindowStats)

	// mu guards everything the executor worker touches in afterStep.
	mu        sync.Mutex
	perf      *telemetry.PerfCollector
	collector *telemetry.Collector
	probes    *telemetry.ProbeSet
	detector  *telemetry.BookmarkDetector
	lines     []telemetry.LineSpec
	energy    float64
	windows   []pendingWindow
	marks     []pendingMark

	output    *telemetry.OutputManager
	views     []scene.NamedView
	recorders []*observer.Recorder

	// Viewer, indexed like views.
	textures    []*renderer.TextureSink
	projections []*projection.Projection
	cameras     []*camera.Camera
	panel       *renderer.ControlPanel
	inspector   *inspector.Inspector
	interval    time.Duration
	active      int
	closed      bool
}

// New builds the scene and solver and opens outputs.
func New(opts Options) (*Session, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, fmt.Errorf("session: nil config")
	}
	sc, err := scene.FromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("building scene: %w", err)
	}
	inst, err := sc.Build()
	if err != nil {
		return nil, fmt.Errorf("building solver: %w", err)
	}

	s := &Session{
		cfg:           cfg,
		scene:         sc,
		inst:          inst,
		logStats:      opts.LogStats,
		snapshotDir:   opts.SnapshotDir,
		statsCallback: opts.StatsCallback,
		perf:          telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow),
		collector:     telemetry.NewCollector(cfg.Telemetry.Window, cfg.Telemetry.EnergyEvery, inst.TimeStep()),
		detector:      telemetry.NewBookmarkDetector(telemetry.BookmarkOptions{}),
		views:         sc.Views(),
	}

	s.probes, err = telemetry.NewProbeSet(inst.Size(), sc.Probes()...)
	if err != nil {
		inst.Close()
		return nil, err
	}
	s.lines = snapshotLines(inst.Size(), sc.Probes())

	s.output, err = telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		inst.Close()
		return nil, err
	}
	if err := s.output.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config copy", "error", err)
	}

	if opts.Headless {
		s.state = inst.NewState()
	} else {
		s.exec = executor.New(inst, executor.Options{
			StepInterval: cfg.Derived.StepInterval,
			QueueSize:    cfg.Executor.QueueSize,
			OnUpdate:     s.onUpdate,
		})
		s.panel = renderer.NewControlPanel(0, 0, panelWidth)
		s.inspector = inspector.NewInspector(0, 0)
		s.interval = cfg.Derived.StepInterval
	}

	if err := s.setupViews(opts.OutputDir, opts.Headless); err != nil {
		s.Close()
		return nil, err
	}

	slog.Info("session ready",
		"lattice", inst.Size().String(),
		"dt", inst.TimeStep(),
		"courant_limit", inst.CourantLimit(),
		"sources", len(inst.Sources()),
		"views", len(s.views),
		"probes", s.probes.Len(),
		"workers", inst.Workers(),
	)
	return s, nil
}

// setupViews creates a recorder per view. Headless views without a GIF
// path are skipped.
func (s *Session) setupViews(outputDir string, headless bool) error {
	size := s.inst.Size()
	for _, v := range s.views {
		var sinks observer.MultiSink
		w, h := v.Size(size)

		if !headless {
			tex := renderer.NewTextureSink(w, h)
			s.textures = append(s.textures, tex)
			sinks = append(sinks, tex)
		}
		if v.GIF != "" && outputDir != "" {
			gs, err := observer.CreateGIF(filepath.Join(outputDir, v.GIF), observer.GIFOptions{Delay: v.Delay})
			if err != nil {
				return fmt.Errorf("view %q: %w", v.Name, err)
			}
			sinks = append(sinks, gs)
		}
		if len(sinks) == 0 {
			continue
		}

		target := projection.NewImageTarget(w, h)
		proj, err := projection.NewProjection(size, target, v.Params(size))
		if err != nil {
			sinks.Close()
			return fmt.Errorf("view %q: %w", v.Name, err)
		}
		s.recorders = append(s.recorders, observer.NewRecorder(proj, target, sinks, observer.RecorderOptions{
			Every: v.Every,
			Block: headless,
		}))
		if !headless {
			s.projections = append(s.projections, proj)
			s.cameras = append(s.cameras, camera.New(0, 0, 1, 1, float32(w), float32(h)))
		}
	}
	return nil
}

// snapshotLines samples each probe's component along x through the probe,
// or E_z along x through the lattice centre when there are no probes.
func snapshotLines(size lattice.Point, probes []telemetry.Probe) []telemetry.LineSpec {
	if len(probes) == 0 {
		return []telemetry.LineSpec{{
			Field:     solver.FieldE,
			Component: 2,
			Axis:      0,
			At:        lattice.Pt(0, size.Y/2, size.Z/2),
		}}
	}
	lines := make([]telemetry.LineSpec, 0, len(probes))
	for _, p := range probes {
		lines = append(lines, telemetry.LineSpec{Field: p.Field, Component: p.Component, Axis: 0, At: p.Point})
	}
	return lines
}

// Tick returns the last completed tick.
func (s *Session) Tick() uint64 {
	if s.exec != nil {
		return s.exec.Tick()
	}
	return s.state.Tick()
}

// Instance returns the solver instance.
func (s *Session) Instance() *solver.Instance { return s.inst }

// Energy returns the last sampled field energy.
func (s *Session) Energy() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.energy
}

// Probes returns the probe set. Read it only while no step is running.
func (s *Session) Probes() *telemetry.ProbeSet { return s.probes }

// Close stops the executor, flushes recorders and pending telemetry and
// closes outputs. Textures must be released separately with UnloadViewer
// on the window thread.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.exec != nil {
		s.exec.Close()
	}
	var firstErr error
	for _, r := range s.recorders {
		if err := r.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.drain()
	if err := s.output.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	s.inst.Close()
	return firstErr
}
