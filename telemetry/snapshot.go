package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pthm-cable/yee/lattice"
	"github.com/pthm-cable/yee/solver"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// LineSpec selects one component of a field along an axis through a point.
type LineSpec struct {
	Field     solver.Field
	Component int
	Axis      int
	At        lattice.Point
}

// Line is a sampled LineSpec.
type Line struct {
	Field     string    `json:"field"`
	Component int       `json:"component"`
	Axis      int       `json:"axis"`
	At        [3]int    `json:"at"`
	Values    []float64 `json:"values"`
}

// Snapshot is a JSON summary of a state: scalar stats plus field lines,
// small enough to plot offline.
type Snapshot struct {
	Version int     `json:"version"`
	Tick    uint64  `json:"tick"`
	Time    float64 `json:"time"`
	Size    [3]int  `json:"size"`

	Energy float64 `json:"energy"`
	MaxE   float64 `json:"max_e"`
	MaxH   float64 `json:"max_h"`

	Lines []Line `json:"lines"`

	Bookmark *Bookmark `json:"bookmark,omitempty"`
}

// TakeSnapshot samples s. bookmark may be nil.
func TakeSnapshot(s *solver.State, bookmark *Bookmark, lines ...LineSpec) *Snapshot {
	fs := SampleField(s)
	size := s.Size()
	snap := &Snapshot{
		Version:  SnapshotVersion,
		Tick:     s.Tick(),
		Time:     s.Time(),
		Size:     [3]int{size.X, size.Y, size.Z},
		Energy:   fs.Energy,
		MaxE:     fs.MaxE,
		MaxH:     fs.MaxH,
		Bookmark: bookmark,
	}
	for _, l := range lines {
		snap.Lines = append(snap.Lines, Line{
			Field:     l.Field.String(),
			Component: l.Component,
			Axis:      l.Axis,
			At:        [3]int{l.At.X, l.At.Y, l.At.Z},
			Values:    s.Line(l.Field, l.Component, l.Axis, l.At),
		})
	}
	return snap
}

// SaveSnapshot writes a snapshot to dir and returns its path.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	name := fmt.Sprintf("snapshot_%d", snapshot.Tick)
	if snapshot.Bookmark != nil {
		name = fmt.Sprintf("snapshot_%d_%s", snapshot.Tick, snapshot.Bookmark.Type)
	}
	path := filepath.Join(dir, name+".json")

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, nil
}

// LoadSnapshot reads a snapshot from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snapshot.Version != SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d, want %d", snapshot.Version, SnapshotVersion)
	}
	return &snapshot, nil
}
