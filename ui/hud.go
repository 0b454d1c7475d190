package ui

import (
	"fmt"
	"sort"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/smoke/fluid"
	"github.com/pthm-cable/smoke/systems"
	"github.com/pthm-cable/smoke/volume"
)

// HUDData holds all the data needed to render the main HUD.
type HUDData struct {
	Title     string
	Tick      int32
	SimTime   float64
	FPS       int32
	Paused    bool
	Mode      string
	Obstacle  string
	Debug     string
	Grid      volume.Dims
	Emitters  int
	Injecting int
	Measure   fluid.Measurements
}

// HUD renders the main heads-up display.
type HUD struct {
	renderer *Renderer
}

// NewHUD creates a new HUD renderer.
func NewHUD() *HUD {
	return &HUD{
		renderer: NewRenderer(),
	}
}

// Draw renders the HUD in the top-left corner.
func (h *HUD) Draw(data HUDData) {
	rl.DrawText(data.Title, 10, 10, 20, rl.White)

	rl.DrawText(
		fmt.Sprintf("Tick: %d | t=%.2fs | FPS: %d | Grid: %dx%dx%d", data.Tick, data.SimTime, data.FPS, data.Grid.X, data.Grid.Y, data.Grid.Z),
		10, 35, 16, rl.LightGray,
	)
	rl.DrawText(
		fmt.Sprintf("Mode: %s | Obstacle: %s | Emitters: %d (%d injecting)", data.Mode, data.Obstacle, data.Emitters, data.Injecting),
		10, 55, 16, rl.LightGray,
	)

	m := data.Measure
	rl.DrawText(
		fmt.Sprintf("Mass: %.1f | COM y: %.3f | Max T: %.2f | Max |u|: %.2f", m.DensityMass, m.CenterOfMass.Y, m.MaxTemperature, m.MaxSpeed),
		10, 75, 14, rl.Gray,
	)

	y := int32(95)
	if data.Debug != "" && data.Debug != "disabled" {
		rl.DrawText("Debug: "+data.Debug, 10, y, 16, rl.Orange)
		y += 20
	}
	if data.Paused {
		rl.DrawText("PAUSED", 10, y, 16, rl.Yellow)
	}
}

// DrawControls renders the control legend at the bottom of the screen.
func (h *HUD) DrawControls(screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-25, 14, rl.Gray)
}

// PerfPanelData holds performance metrics for display.
type PerfPanelData struct {
	PhaseTimes map[string]time.Duration
	Total      time.Duration
	Registry   *systems.SystemRegistry
}

// PerfPanel renders the stage performance breakdown.
type PerfPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
}

// NewPerfPanel creates a new performance panel.
func NewPerfPanel(x, y, width int32) *PerfPanel {
	return &PerfPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
	}
}

// SetPosition updates the panel position.
func (p *PerfPanel) SetPosition(x, y int32) {
	p.x = x
	p.y = y
}

// maxPerfRows caps the stages shown.
const maxPerfRows = 14

// Draw renders the performance panel with the slowest stages first.
func (p *PerfPanel) Draw(data PerfPanelData) {
	r := p.renderer
	names := SortedPhases(data.PhaseTimes)
	rows := min(len(names), maxPerfRows)

	height := r.Theme.Padding*2 + 40 + int32(rows)*r.Theme.LineHeight
	r.DrawPanel(p.x, p.y, p.width, height)

	x := p.x + r.Theme.Padding
	y := p.y + r.Theme.Padding

	rl.DrawText("Stage Performance", x, y, 16, rl.White)
	y += 20
	rl.DrawText(fmt.Sprintf("Tick: %s", data.Total.Round(time.Microsecond)), x, y, 14, rl.Yellow)
	y += 20

	for _, name := range names[:rows] {
		avg := data.PhaseTimes[name]
		frac := float32(0)
		if data.Total > 0 {
			frac = float32(avg) / float32(data.Total)
		}

		displayName := name
		if data.Registry != nil {
			displayName = data.Registry.GetName(name)
		}
		text := fmt.Sprintf("%s %4.1f%%", avg.Round(10*time.Microsecond), frac*100)
		y = r.DrawBar(x, y, displayName, frac, text, p.width-r.Theme.Padding*2+70)
	}
}

// SortedPhases returns phase names by descending average duration, ties by name.
func SortedPhases(times map[string]time.Duration) []string {
	names := make([]string, 0, len(times))
	for name := range times {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if times[names[i]] != times[names[j]] {
			return times[names[i]] > times[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}
