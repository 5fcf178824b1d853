package main

import (
	"flag"
	"log/slog"
	"os"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/yee/config"
	"github.com/pthm-cable/yee/session"
	"github.com/pthm-cable/yee/solver"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without graphics")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	snapshotDir := flag.String("snapshot-dir", "", "Directory for bookmark snapshots")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs, GIFs and config copy")
	maxTicks := flag.Uint64("max-ticks", 0, "Stop after N ticks (0 = unlimited, headless requires N > 0)")
	stepsPerUpdate := flag.Int("steps-per-update", 10, "Ticks per headless update call")
	debug := flag.Bool("debug", false, "Panic on the first non-finite field value")
	flag.Parse()

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()
	solver.Debug = *debug

	opts := session.Options{
		Config:      cfg,
		OutputDir:   *outputDir,
		SnapshotDir: *snapshotDir,
		LogStats:    *logStats,
		Headless:    *headless,
	}

	if *headless {
		if *maxTicks == 0 {
			slog.Error("headless runs need -max-ticks")
			os.Exit(2)
		}
		s, err := session.New(opts)
		if err != nil {
			slog.Error("failed to start session", "error", err)
			os.Exit(1)
		}

		slog.Info("starting headless simulation",
			"max_ticks", *maxTicks,
			"steps_per_update", *stepsPerUpdate,
		)
		runErr := s.Run(*maxTicks, *stepsPerUpdate)
		if err := s.Close(); err != nil {
			slog.Error("failed to close session", "error", err)
		}
		if runErr != nil {
			slog.Error("run failed", "error", runErr)
			os.Exit(1)
		}
		return
	}

	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "Yee")
	defer rl.CloseWindow()
	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))
	// Escape clears the inspector selection instead of quitting.
	rl.SetExitKey(0)

	s, err := session.New(opts)
	if err != nil {
		slog.Error("failed to start session", "error", err)
		return
	}
	s.InitViewer()
	defer s.UnloadViewer()
	defer s.Close()

	for !rl.WindowShouldClose() {
		s.Update()
		s.Draw()

		if *maxTicks > 0 && s.Tick() >= *maxTicks {
			break
		}
	}
}
