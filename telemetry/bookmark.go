package telemetry

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/stat"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkEnergyPeak BookmarkType = "energy_peak"
	BookmarkAbsorbed   BookmarkType = "absorbed"
	BookmarkSteady     BookmarkType = "steady_state"
	BookmarkDiverged   BookmarkType = "diverged"
)

// Bookmark marks a notable moment of a run.
type Bookmark struct {
	Type        BookmarkType `csv:"type" json:"type"`
	Tick        uint64       `csv:"tick" json:"tick"`
	Description string       `csv:"description" json:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"tick", b.Tick,
		"description", b.Description,
	)
}

// BookmarkOptions tune a BookmarkDetector.
type BookmarkOptions struct {
	// History is the number of windows kept. Minimum 3.
	History int
	// AbsorbedFraction of the peak energy below which the field counts as
	// absorbed.
	AbsorbedFraction float64
	// SteadyCV is the largest coefficient of variation of energy over the
	// full history that counts as steady.
	SteadyCV float64
}

// DefaultBookmarkOptions are used for zero fields.
var DefaultBookmarkOptions = BookmarkOptions{History: 8, AbsorbedFraction: 1e-3, SteadyCV: 0.01}

// BookmarkDetector watches window stats for notable moments. Each type
// fires at most once per run, except steady_state which re-arms once the
// energy leaves the band.
type BookmarkDetector struct {
	opts BookmarkOptions

	history     []WindowStats
	historyIdx  int
	historyFull bool

	peak      WindowStats
	prev      WindowStats
	havePrev  bool
	firedPeak bool
	absorbed  bool
	diverged  bool
	steady    bool
}

// NewBookmarkDetector fills zero option fields from DefaultBookmarkOptions.
func NewBookmarkDetector(opts BookmarkOptions) *BookmarkDetector {
	if opts.History < 3 {
		opts.History = DefaultBookmarkOptions.History
	}
	if opts.AbsorbedFraction <= 0 {
		opts.AbsorbedFraction = DefaultBookmarkOptions.AbsorbedFraction
	}
	if opts.SteadyCV <= 0 {
		opts.SteadyCV = DefaultBookmarkOptions.SteadyCV
	}
	return &BookmarkDetector{
		opts:    opts,
		history: make([]WindowStats, opts.History),
	}
}

// Check analyzes the latest window and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark

	if !stats.Finite {
		if !bd.diverged {
			bd.diverged = true
			bookmarks = append(bookmarks, Bookmark{
				Type:        BookmarkDiverged,
				Tick:        stats.WindowEndTick,
				Description: fmt.Sprintf("non-finite field near %s", stats.MaxEAt),
			})
		}
		return bookmarks
	}

	if b := bd.checkPeak(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkAbsorbed(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	bd.addToHistory(stats)

	if b := bd.checkSteady(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	if stats.EnergyMax > bd.peak.EnergyMax {
		bd.peak = stats
	}
	bd.prev = stats
	bd.havePrev = true
	return bookmarks
}

// Reset forgets all history.
func (bd *BookmarkDetector) Reset() {
	*bd = *NewBookmarkDetector(bd.opts)
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % len(bd.history)
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

// checkPeak fires on the first window whose energy falls after rising to
// the run maximum.
func (bd *BookmarkDetector) checkPeak(stats WindowStats) *Bookmark {
	if bd.firedPeak || !bd.havePrev || bd.peak.EnergyMax <= 0 {
		return nil
	}
	if bd.prev.EnergyMax < bd.peak.EnergyMax || stats.EnergyMax >= bd.prev.EnergyMax {
		return nil
	}
	bd.firedPeak = true
	return &Bookmark{
		Type:        BookmarkEnergyPeak,
		Tick:        bd.peak.WindowEndTick,
		Description: fmt.Sprintf("energy peaked at %.6g", bd.peak.EnergyMax),
	}
}

func (bd *BookmarkDetector) checkAbsorbed(stats WindowStats) *Bookmark {
	if bd.absorbed || !bd.firedPeak {
		return nil
	}
	limit := bd.opts.AbsorbedFraction * bd.peak.EnergyMax
	if stats.Energy > limit {
		return nil
	}
	bd.absorbed = true
	return &Bookmark{
		Type:        BookmarkAbsorbed,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("energy %.3g of peak", stats.Energy/bd.peak.EnergyMax),
	}
}

// checkSteady fires when energy has a small relative spread over a full
// history of non-zero windows.
func (bd *BookmarkDetector) checkSteady(stats WindowStats) *Bookmark {
	if !bd.historyFull {
		return nil
	}
	energies := make([]float64, len(bd.history))
	for i, h := range bd.history {
		energies[i] = h.Energy
	}
	mean, std := stat.MeanStdDev(energies, nil)
	if mean <= 0 {
		return nil
	}
	cv := std / mean
	if cv > bd.opts.SteadyCV {
		bd.steady = false
		return nil
	}
	if bd.steady {
		return nil
	}
	bd.steady = true
	return &Bookmark{
		Type:        BookmarkSteady,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("energy %.6g steady over %d windows (cv %.2g)", mean, len(bd.history), cv),
	}
}
