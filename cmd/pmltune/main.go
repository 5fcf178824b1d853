// Package main tunes CPML grading parameters with CMA-ES by minimising the
// energy a pulse leaves behind in an empty domain.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/yee/config"
	"github.com/pthm-cable/yee/telemetry"
)

// EvalRecord is one row of optimize_log.csv.
type EvalRecord struct {
	Eval       int     `csv:"eval"`
	Fitness    float64 `csv:"fitness"`
	SigmaScale float64 `csv:"sigma_scale"`
	Order      float64 `csv:"order"`
	KappaMax   float64 `csv:"kappa_max"`
	AlphaMax   float64 `csv:"alpha_max"`
}

// formatDuration formats a duration as HH:MM:SS or MM:SS for shorter durations.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

func parseTaus(s string) ([]float64, error) {
	var taus []float64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil || v <= 0 {
			return nil, fmt.Errorf("invalid tau %q", part)
		}
		taus = append(taus, v)
	}
	if len(taus) == 0 {
		return nil, fmt.Errorf("no pulse widths given")
	}
	return taus, nil
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}

func main() {
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	tausFlag := flag.String("taus", "4,8,16", "Comma-separated Gaussian pulse widths, one test each")
	maxTicks := flag.Uint64("ticks", 0, "Ticks per pulse test (0 = sized from the domain)")
	maxEvals := flag.Int("max-evals", 120, "Maximum number of evaluations")
	population := flag.Int("population", 0, "CMA-ES population size (0 = auto)")
	outputDir := flag.String("output", "", "Output directory for results")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	if *outputDir == "" {
		fatal("missing flag", fmt.Errorf("--output is required"))
	}
	taus, err := parseTaus(*tausFlag)
	if err != nil {
		fatal("parsing -taus", err)
	}
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		fatal("creating output directory", err)
	}

	baseCfg, err := config.Load(*configPath)
	if err != nil {
		fatal("loading config", err)
	}
	if len(baseCfg.Derived.PMLFaces) == 0 {
		fatal("nothing to tune", fmt.Errorf("config has no pml faces"))
	}

	params := NewParamVector()
	evaluator := NewFitnessEvaluator(params, *configPath, taus, *maxTicks)

	dim := params.Dim()
	initX := params.Normalize(params.Clamp(params.ExtractFromConfig(baseCfg)))

	popSize := *population
	if popSize == 0 {
		popSize = 4 + int(3.0*math.Log(float64(dim)))
	}
	method := &optimize.CmaEsChol{
		InitStepSize: 0.3,
		Population:   popSize,
	}
	settings := &optimize.Settings{
		FuncEvaluations: *maxEvals,
		Concurrent:      0,
	}

	logPath := filepath.Join(*outputDir, "optimize_log.csv")
	logFile, err := os.Create(logPath)
	if err != nil {
		fatal("creating log file", err)
	}
	defer logFile.Close()

	evalCount := 0
	bestFitness := math.Inf(1)
	var bestParams []float64
	var bestResults []pulseResult
	startTime := time.Now()

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			raw := params.Clamp(params.Denormalize(x))
			fitness := evaluator.Evaluate(raw)
			evalCount++

			if fitness < bestFitness {
				bestFitness = fitness
				bestParams = raw
				bestResults = evaluator.LastResults()
			}

			rec := []EvalRecord{{
				Eval:       evalCount,
				Fitness:    fitness,
				SigmaScale: raw[0],
				Order:      raw[1],
				KappaMax:   raw[2],
				AlphaMax:   raw[3],
			}}
			if evalCount == 1 {
				err = gocsv.Marshal(rec, logFile)
			} else {
				err = gocsv.MarshalWithoutHeaders(rec, logFile)
			}
			if err != nil {
				slog.Warn("writing eval log", "error", err)
			}

			elapsed := time.Since(startTime)
			avgPerEval := elapsed / time.Duration(evalCount)
			remaining := time.Duration(*maxEvals-evalCount) * avgPerEval
			fmt.Printf("Eval %d/%d: reflection=%.2f dB (best=%.2f dB) | elapsed: %s, ETA: %s\n",
				evalCount, *maxEvals, 10*fitness, 10*bestFitness,
				formatDuration(elapsed), formatDuration(remaining))
			return fitness
		},
	}

	fmt.Printf("Starting CMA-ES optimization with %d parameters, population=%d, max_evals=%d\n",
		dim, popSize, *maxEvals)
	fmt.Printf("Pulse widths: %v\n", taus)

	result, err := optimize.Minimize(problem, initX, settings, method)
	if err != nil {
		slog.Info("optimization ended", "reason", err)
	}
	if bestParams == nil && result != nil {
		bestParams = params.Clamp(params.Denormalize(result.X))
	}
	if bestParams == nil {
		fatal("optimization produced no result", err)
	}

	fmt.Printf("\nOptimization complete after %d evaluations in %s\n", evalCount, formatDuration(time.Since(startTime)))
	fmt.Printf("Best fitness: %.3f (%.1f dB)\n", bestFitness, 10*bestFitness)
	fmt.Println("\nBest parameters:")
	for i, spec := range params.Specs {
		fmt.Printf("  %s: %.6f\n", spec.Name, bestParams[i])
	}

	bestCfg, err := config.Load(*configPath)
	if err != nil {
		fatal("reloading config", err)
	}
	if err := params.ApplyToConfig(bestCfg, bestParams); err != nil {
		fatal("applying best parameters", err)
	}
	configOutPath := filepath.Join(*outputDir, "best_config.yaml")
	if err := bestCfg.WriteYAML(configOutPath); err != nil {
		slog.Error("writing best config", "error", err)
	} else {
		fmt.Printf("\nBest config saved to: %s\n", configOutPath)
	}

	for _, r := range bestResults {
		name := fmt.Sprintf("best_tau_%g.csv", r.tau)
		if err := writeWindows(filepath.Join(*outputDir, name), r.windows); err != nil {
			slog.Warn("writing pulse windows", "tau", r.tau, "error", err)
		}
	}
}

func writeWindows(path string, windows []telemetry.WindowStats) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gocsv.MarshalFile(&windows, f)
}
