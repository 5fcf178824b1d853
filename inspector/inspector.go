// Package inspector shows the field values and material of a selected cell.
package inspector

import (
	"fmt"
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/yee/lattice"
	"github.com/pthm-cable/yee/solver"
)

// Panel dimensions
const (
	PanelWidth   = 280
	PanelPadding = 10
	HeaderHeight = 30
	PlotHeight   = 80
)

// HistoryLen is the number of samples kept for the plot.
const HistoryLen = 240

// Panel colors
var (
	ColorPanelBg     = rl.Color{R: 30, G: 30, B: 35, A: 240}
	ColorPanelHeader = rl.Color{R: 45, G: 45, B: 55, A: 255}
	ColorPanelBorder = rl.Color{R: 70, G: 70, B: 80, A: 255}
	ColorHeaderText  = rl.Color{R: 255, G: 255, B: 255, A: 255}
	ColorText        = rl.Color{R: 220, G: 220, B: 220, A: 255}
	ColorTextDim     = rl.Color{R: 150, G: 150, B: 150, A: 255}
	ColorPlotLine    = rl.Color{R: 255, G: 200, B: 100, A: 255}
	ColorPlotAxis    = rl.Color{R: 80, G: 80, B: 90, A: 255}
)

// CellData is a sample of one cell.
type CellData struct {
	Point    lattice.Point
	Tick     uint64
	E, H     r3.Vec
	Material solver.Material
}

// Inspector tracks the selected cell and its recent |E| history.
type Inspector struct {
	selected    lattice.Point
	hasSelected bool
	panelX      int32
	panelY      int32

	last    CellData
	history []float64
}

// NewInspector creates an inspector whose panel is drawn at (x, y).
func NewInspector(x, y int32) *Inspector {
	return &Inspector{panelX: x, panelY: y}
}

// SetPosition moves the panel.
func (ins *Inspector) SetPosition(x, y int32) {
	ins.panelX, ins.panelY = x, y
}

// Select starts tracking p. Selecting a different cell clears the history.
func (ins *Inspector) Select(p lattice.Point) {
	if ins.hasSelected && ins.selected == p {
		return
	}
	ins.selected = p
	ins.hasSelected = true
	ins.history = ins.history[:0]
	ins.last = CellData{}
}

// Deselect clears the current selection.
func (ins *Inspector) Deselect() {
	ins.hasSelected = false
	ins.history = ins.history[:0]
}

// Selected returns the selected cell.
func (ins *Inspector) Selected() (lattice.Point, bool) {
	return ins.selected, ins.hasSelected
}

// Sample reads the selected cell from st. The caller must hold st stable.
// Repeated samples at the same tick do not extend the history.
func (ins *Inspector) Sample(inst *solver.Instance, st *solver.State) {
	if !ins.hasSelected {
		return
	}
	e, ok := st.Value(solver.FieldE, ins.selected)
	if !ok {
		ins.Deselect()
		return
	}
	h, _ := st.Value(solver.FieldH, ins.selected)
	m, _ := inst.Material(ins.selected)

	if len(ins.history) > 0 && st.Tick() == ins.last.Tick {
		ins.last = CellData{Point: ins.selected, Tick: st.Tick(), E: e, H: h, Material: m}
		return
	}
	if st.Tick() < ins.last.Tick {
		// State was reset.
		ins.history = ins.history[:0]
	}
	ins.last = CellData{Point: ins.selected, Tick: st.Tick(), E: e, H: h, Material: m}
	if len(ins.history) == HistoryLen {
		copy(ins.history, ins.history[1:])
		ins.history = ins.history[:HistoryLen-1]
	}
	ins.history = append(ins.history, r3.Norm(e))
}

// Last returns the most recent sample.
func (ins *Inspector) Last() CellData { return ins.last }

// History returns the recorded |E| values, oldest first.
func (ins *Inspector) History() []float64 { return ins.history }

// Contains reports whether a screen point is over the panel.
func (ins *Inspector) Contains(x, y float32) bool {
	return ins.hasSelected &&
		x >= float32(ins.panelX) && x <= float32(ins.panelX+PanelWidth) &&
		y >= float32(ins.panelY) && y <= float32(ins.panelY+ins.panelHeight())
}

func (ins *Inspector) panelHeight() int32 {
	return HeaderHeight + PanelPadding + 20*6 + PlotHeight + PanelPadding*2
}

// Draw renders the panel if a cell is selected.
func (ins *Inspector) Draw() {
	if !ins.hasSelected {
		return
	}
	height := ins.panelHeight()
	rl.DrawRectangle(ins.panelX, ins.panelY, PanelWidth, height, ColorPanelBg)
	rl.DrawRectangleLinesEx(
		rl.Rectangle{X: float32(ins.panelX), Y: float32(ins.panelY), Width: PanelWidth, Height: float32(height)},
		1,
		ColorPanelBorder,
	)
	rl.DrawRectangle(ins.panelX, ins.panelY, PanelWidth, HeaderHeight, ColorPanelHeader)
	rl.DrawText("CELL "+ins.selected.String(), ins.panelX+PanelPadding, ins.panelY+7, 16, ColorHeaderText)

	x := ins.panelX + PanelPadding
	y := ins.panelY + HeaderHeight + PanelPadding
	d := ins.last
	y += drawLabel(x, y, "Tick", fmt.Sprintf("%d", d.Tick))
	y += drawLabel(x, y, "E", formatVec(d.E))
	y += drawLabel(x, y, "H", formatVec(d.H))
	y += drawLabel(x, y, "|E|", fmt.Sprintf("%.4g", r3.Norm(d.E)))
	y += drawLabel(x, y, "eps/mu", fmt.Sprintf("%.3g / %.3g", d.Material.RelativePermittivity, d.Material.RelativePermeability))
	y += drawLabel(x, y, "sigma", fmt.Sprintf("%.3g / %.3g", d.Material.ElectricConductivity, d.Material.MagneticConductivity))
	ins.drawPlot(x, y+PanelPadding, PanelWidth-2*PanelPadding, PlotHeight)
}

// drawPlot draws the |E| history scaled to its own peak.
func (ins *Inspector) drawPlot(x, y, w, h int32) {
	rl.DrawRectangleLines(x, y, w, h, ColorPlotAxis)
	if len(ins.history) < 2 {
		rl.DrawText("(collecting)", x+4, y+4, 12, ColorTextDim)
		return
	}
	peak := floats.Max(ins.history)
	if peak <= 0 || math.IsInf(peak, 0) || math.IsNaN(peak) {
		peak = 1
	}
	step := float32(w) / float32(HistoryLen-1)
	prevX, prevY := float32(0), float32(0)
	for i, v := range ins.history {
		px := float32(x) + float32(i)*step
		py := float32(y+h) - float32(v/peak)*float32(h-2) - 1
		if i > 0 {
			rl.DrawLineV(rl.Vector2{X: prevX, Y: prevY}, rl.Vector2{X: px, Y: py}, ColorPlotLine)
		}
		prevX, prevY = px, py
	}
	rl.DrawText(fmt.Sprintf("peak %.3g", peak), x+4, y+4, 12, ColorTextDim)
}

func drawLabel(x, y int32, name, value string) int32 {
	rl.DrawText(name+":", x, y, 14, ColorTextDim)
	rl.DrawText(value, x+70, y, 14, ColorText)
	return 20
}

func formatVec(v r3.Vec) string {
	return fmt.Sprintf("(%.3g, %.3g, %.3g)", v.X, v.Y, v.Z)
}
