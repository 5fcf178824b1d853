package renderer

import (
	"fmt"
	"time"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/yee/executor"
)

// Theme holds panel styling constants.
type Theme struct {
	PanelBg     rl.Color
	PanelBorder rl.Color
	Header      rl.Color
	Label       rl.Color
	Value       rl.Color
	Warning     rl.Color
	Padding     int32
	LineHeight  int32
	LabelWidth  int32
	FontSize    int32
}

// DefaultTheme returns the default panel theme.
func DefaultTheme() Theme {
	return Theme{
		PanelBg:     rl.Color{R: 20, G: 25, B: 30, A: 240},
		PanelBorder: rl.Color{R: 60, G: 70, B: 80, A: 255},
		Header:      rl.Yellow,
		Label:       rl.LightGray,
		Value:       rl.White,
		Warning:     rl.Color{R: 230, G: 90, B: 90, A: 255},
		Padding:     10,
		LineHeight:  18,
		LabelWidth:  80,
		FontSize:    14,
	}
}

// PanelStatus is the readout shown by the control panel.
type PanelStatus struct {
	Status   executor.Status
	Tick     uint64
	Time     float64
	Energy   float64
	StepTime time.Duration
	FPS      float64
	Interval time.Duration
	Dropped  uint64
}

// Actions are the user inputs collected during one frame.
type Actions struct {
	Toggle   bool
	Step     bool
	Reset    bool
	Interval time.Duration
	// IntervalChanged is set when the slider moved this frame.
	IntervalChanged bool
}

// Apply forwards the actions to the executor. onUpdate is passed to Start.
func (a Actions) Apply(e *executor.Executor, onUpdate executor.UpdateFunc) error {
	if a.IntervalChanged {
		if err := e.SetStepInterval(a.Interval); err != nil {
			return err
		}
	}
	if a.Reset {
		return e.Reset()
	}
	if a.Toggle {
		if e.Running() {
			return e.Stop()
		}
		return e.Start(onUpdate)
	}
	if a.Step && !e.Running() {
		return e.Step()
	}
	return nil
}

// MaxInterval bounds the step interval slider.
const MaxInterval = 100 * time.Millisecond

// ControlPanel draws run controls and the status readout.
type ControlPanel struct {
	X, Y, Width int32
	Theme       Theme
}

// NewControlPanel creates a panel at (x, y).
func NewControlPanel(x, y, width int32) *ControlPanel {
	return &ControlPanel{X: x, Y: y, Width: width, Theme: DefaultTheme()}
}

// Height returns the panel height in pixels.
func (p *ControlPanel) Height() int32 {
	return p.Theme.Padding*2 + 30 + 8 + 20 + 8 + p.Theme.LineHeight*7
}

// Draw renders the panel and returns what the user clicked.
func (p *ControlPanel) Draw(st PanelStatus) Actions {
	th := p.Theme
	rl.DrawRectangle(p.X, p.Y, p.Width, p.Height(), th.PanelBg)
	rl.DrawRectangleLines(p.X, p.Y, p.Width, p.Height(), th.PanelBorder)

	x := float32(p.X + th.Padding)
	y := float32(p.Y + th.Padding)
	bw := float32(p.Width-th.Padding*2-16) / 3

	var a Actions
	label := "Start"
	if st.Status == executor.Running {
		label = "Stop"
	}
	a.Toggle = gui.Button(rl.Rectangle{X: x, Y: y, Width: bw, Height: 30}, label)
	a.Step = gui.Button(rl.Rectangle{X: x + bw + 8, Y: y, Width: bw, Height: 30}, "Step")
	a.Reset = gui.Button(rl.Rectangle{X: x + 2*(bw+8), Y: y, Width: bw, Height: 30}, "Reset")
	y += 38

	ms := float32(st.Interval) / float32(time.Millisecond)
	sliderX := x + 30
	sliderW := float32(p.Width-th.Padding*2) - 70
	next := gui.SliderBar(rl.Rectangle{X: sliderX, Y: y, Width: sliderW, Height: 20}, "0", fmt.Sprintf("%dms", MaxInterval.Milliseconds()), ms, 0, float32(MaxInterval.Milliseconds()))
	if next != ms {
		a.Interval = time.Duration(next * float32(time.Millisecond)).Round(100 * time.Microsecond)
		a.IntervalChanged = a.Interval != st.Interval
	}
	y += 28

	ly := int32(y)
	ly = p.row(ly, "Status", st.Status.String(), th.Header)
	ly = p.row(ly, "Tick", fmt.Sprintf("%d", st.Tick), th.Value)
	ly = p.row(ly, "Time", fmt.Sprintf("%.4g", st.Time), th.Value)
	ly = p.row(ly, "Energy", fmt.Sprintf("%.5g", st.Energy), th.Value)
	ly = p.row(ly, "Step", fmt.Sprintf("%.2fms", float64(st.StepTime.Microseconds())/1000), th.Value)
	ly = p.row(ly, "Interval", st.Interval.String(), th.Value)
	dropColor := th.Value
	if st.Dropped > 0 {
		dropColor = th.Warning
	}
	p.row(ly, "Dropped", fmt.Sprintf("%d (%.0f fps)", st.Dropped, st.FPS), dropColor)

	return a
}

func (p *ControlPanel) row(y int32, label, value string, c rl.Color) int32 {
	x := p.X + p.Theme.Padding
	rl.DrawText(label+":", x, y, p.Theme.FontSize, p.Theme.Label)
	rl.DrawText(value, x+p.Theme.LabelWidth, y, p.Theme.FontSize, c)
	return y + p.Theme.LineHeight
}
