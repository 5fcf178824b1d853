package telemetry

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/yee/lattice"
	"github.com/pthm-cable/yee/solver"
)

func window(tick uint64, energy float64) WindowStats {
	return WindowStats{WindowEndTick: tick, Energy: energy, EnergyMax: energy, Finite: true}
}

func types(bs []Bookmark) []BookmarkType {
	var out []BookmarkType
	for _, b := range bs {
		out = append(out, b.Type)
	}
	return out
}

func TestBookmarkDetector_PeakThenAbsorbed(t *testing.T) {
	bd := NewBookmarkDetector(BookmarkOptions{History: 4})

	energies := []float64{0.1, 0.5, 1.0, 0.6, 0.1, 0.01, 0.0005, 0.0001}
	got := map[BookmarkType]uint64{}
	for i, e := range energies {
		for _, b := range bd.Check(window(uint64(100*(i+1)), e)) {
			_, dup := got[b.Type]
			assert.False(t, dup, "%s fired twice", b.Type)
			got[b.Type] = b.Tick
		}
	}

	assert.Equal(t, uint64(300), got[BookmarkEnergyPeak])
	assert.Equal(t, uint64(700), got[BookmarkAbsorbed])
	assert.NotContains(t, got, BookmarkSteady)
}

func TestBookmarkDetector_Steady(t *testing.T) {
	bd := NewBookmarkDetector(BookmarkOptions{History: 3, SteadyCV: 0.01})

	assert.Empty(t, bd.Check(window(1, 1.0)))
	assert.Empty(t, bd.Check(window(2, 1.001)))
	// The dip at tick 3 is also the energy peak.
	assert.Equal(t, []BookmarkType{BookmarkEnergyPeak, BookmarkSteady}, types(bd.Check(window(3, 0.999))))
	// Stays steady: no repeat.
	assert.Empty(t, types(bd.Check(window(4, 1.0))))
	// Leaves the band, then settles again once the history is all 2.0.
	assert.Empty(t, types(bd.Check(window(5, 2.0))))
	assert.Empty(t, types(bd.Check(window(6, 2.0))))
	assert.Equal(t, []BookmarkType{BookmarkSteady}, types(bd.Check(window(7, 2.0))))
}

func TestBookmarkDetector_Diverged(t *testing.T) {
	bd := NewBookmarkDetector(BookmarkOptions{})
	bd.Check(window(1, 1))

	bad := WindowStats{WindowEndTick: 2, Finite: false, MaxEAt: "(3, 4, 5)"}
	bs := bd.Check(bad)
	require.Len(t, bs, 1)
	assert.Equal(t, BookmarkDiverged, bs[0].Type)
	assert.Contains(t, bs[0].Description, "(3, 4, 5)")
	assert.Empty(t, bd.Check(bad))

	bd.Reset()
	assert.Len(t, bd.Check(bad), 1)
}

func TestSnapshot_RoundTrip(t *testing.T) {
	inst, s := pulse(t)
	inst.StepN(s, 16)

	b := &Bookmark{Type: BookmarkEnergyPeak, Tick: 16}
	snap := TakeSnapshot(s, b, LineSpec{Field: solver.FieldE, Component: 1, Axis: 0, At: lattice.Pt(0, 0, 0)})
	assert.Equal(t, uint64(16), snap.Tick)
	assert.Equal(t, [3]int{32, 1, 1}, snap.Size)
	require.Len(t, snap.Lines, 1)
	assert.Len(t, snap.Lines[0].Values, 32)
	assert.Equal(t, "E", snap.Lines[0].Field)

	dir := filepath.Join(t.TempDir(), "snaps")
	path, err := SaveSnapshot(snap, dir)
	require.NoError(t, err)
	assert.Equal(t, "snapshot_16_energy_peak.json", filepath.Base(path))

	back, err := LoadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, snap, back)

	_, err = LoadSnapshot(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
