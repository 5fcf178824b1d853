package session

import (
	"fmt"
	"log/slog"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/yee/inspector"
	"github.com/pthm-cable/yee/renderer"
	"github.com/pthm-cable/yee/solver"
)

const (
	panelWidth = 280
	zoomStep   = 1.15
)

// InitViewer creates textures. Call it after rl.InitWindow.
func (s *Session) InitViewer() {
	for _, t := range s.textures {
		t.Init()
	}
}

// UnloadViewer releases textures. Call it before rl.CloseWindow.
func (s *Session) UnloadViewer() {
	for _, t := range s.textures {
		t.Unload()
	}
}

// onUpdate runs on the executor worker after every step.
func (s *Session) onUpdate(st *solver.State) {
	s.mu.Lock()
	s.perf.RecordStep(s.exec.StepTime())
	s.afterStep(st, false)
	s.mu.Unlock()
}

// viewArea is the screen rectangle left of the control panel.
func viewArea() rl.Rectangle {
	return rl.Rectangle{
		Width:  float32(rl.GetScreenWidth() - panelWidth),
		Height: float32(rl.GetScreenHeight()),
	}
}

// Update handles input, samples the inspected cell and writes telemetry.
// Call once per frame before Draw.
func (s *Session) Update() {
	if s.exec == nil {
		panic("session: Update on a headless session")
	}
	s.mu.Lock()
	s.perf.RecordFrame()
	s.mu.Unlock()

	area := viewArea()
	for _, c := range s.cameras {
		c.Resize(area.X, area.Y, area.Width, area.Height)
	}

	var a renderer.Actions
	a.Toggle = rl.IsKeyPressed(rl.KeySpace)
	a.Step = rl.IsKeyPressed(rl.KeyN)
	a.Reset = rl.IsKeyPressed(rl.KeyR)
	if rl.IsKeyPressed(rl.KeyTab) && len(s.textures) > 0 {
		s.active = (s.active + 1) % len(s.textures)
	}
	s.apply(a)
	s.handleCameraInput()
	s.handleSelection()

	if _, ok := s.inspector.Selected(); ok {
		s.exec.Read(func(st *solver.State) {
			s.inspector.Sample(s.inst, st)
		})
	}
	s.drain()
}

func (s *Session) handleCameraInput() {
	if len(s.cameras) == 0 {
		return
	}
	cam := s.cameras[s.active]
	mouse := rl.GetMousePosition()
	if !cam.InViewport(mouse.X, mouse.Y) {
		return
	}
	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		factor := float32(zoomStep)
		if wheel < 0 {
			factor = 1 / factor
		}
		cam.ZoomAt(factor, mouse.X, mouse.Y)
	}
	if rl.IsMouseButtonDown(rl.MouseButtonRight) {
		d := rl.GetMouseDelta()
		cam.Pan(-d.X, -d.Y)
	}
	if rl.IsKeyPressed(rl.KeyF) {
		cam.Reset()
	}
}

// handleSelection picks the cell under a left click on the active view.
func (s *Session) handleSelection() {
	if rl.IsKeyPressed(rl.KeyEscape) {
		s.inspector.Deselect()
		return
	}
	if !rl.IsMouseButtonPressed(rl.MouseButtonLeft) || len(s.cameras) == 0 {
		return
	}
	mouse := rl.GetMousePosition()
	if s.inspector.Contains(mouse.X, mouse.Y) {
		return
	}
	x, y, ok := s.cameras[s.active].Pixel(mouse.X, mouse.Y)
	if !ok {
		return
	}
	if p, ok := s.projections[s.active].Cell(x, y); ok {
		s.inspector.Select(p)
	}
}

func (s *Session) apply(a renderer.Actions) {
	if err := a.Apply(s.exec, s.onUpdate); err != nil {
		slog.Error("executor command failed", "error", err)
		return
	}
	if a.Reset {
		s.resetTelemetry()
		s.refresh()
	}
}

// refresh re-renders every view from the current state without stepping.
func (s *Session) refresh() {
	s.exec.Read(func(st *solver.State) {
		for _, r := range s.recorders {
			r.OnUpdate(st)
		}
	})
}

// Draw renders the active view, the inspector and the control panel.
func (s *Session) Draw() {
	rl.BeginDrawing()
	defer rl.EndDrawing()
	rl.ClearBackground(rl.Black)

	sw := int32(rl.GetScreenWidth())
	sh := int32(rl.GetScreenHeight())
	area := viewArea()

	for _, t := range s.textures {
		t.Upload()
	}
	if len(s.textures) > 0 {
		tex := s.textures[s.active]
		x, y, w, h := s.cameras[s.active].Dest()
		rl.BeginScissorMode(int32(area.X), int32(area.Y), int32(area.Width), int32(area.Height))
		tex.Draw(rl.Rectangle{X: x, Y: y, Width: w, Height: h})
		rl.EndScissorMode()
		rl.DrawText(fmt.Sprintf("%s  tick %d", s.views[s.active].Name, tex.Tick()), 10, 10, 18, rl.RayWhite)
	}

	s.inspector.SetPosition(int32(area.Width)-inspector.PanelWidth-10, 10)
	s.inspector.Draw()

	s.panel.X = sw - panelWidth
	s.panel.Y = 0
	s.panel.Width = panelWidth

	s.mu.Lock()
	perf := s.perf.Stats()
	energy := s.energy
	s.mu.Unlock()

	var dropped uint64
	for _, r := range s.recorders {
		dropped += r.Dropped()
	}
	for _, t := range s.textures {
		dropped += t.Dropped()
	}

	a := s.panel.Draw(renderer.PanelStatus{
		Status:   s.exec.Status(),
		Tick:     s.exec.Tick(),
		Time:     s.exec.Time(),
		Energy:   energy,
		StepTime: s.exec.StepTime(),
		FPS:      perf.FPS,
		Interval: s.interval,
		Dropped:  dropped,
	})
	if a.IntervalChanged {
		s.interval = a.Interval
	}
	s.apply(a)

	rl.DrawText("space: run/stop  n: step  r: reset  tab: view  wheel/right-drag: zoom/pan  f: fit  click: inspect",
		10, sh-24, 14, rl.Gray)
}
