package ui

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// Renderer handles all UI drawing with consistent styling.
type Renderer struct {
	Theme Theme
}

// NewRenderer creates a renderer with the default theme.
func NewRenderer() *Renderer {
	return &Renderer{Theme: DefaultTheme()}
}

// DrawPanel draws a panel background with border.
func (r *Renderer) DrawPanel(x, y, width, height int32) {
	rl.DrawRectangle(x, y, width, height, r.Theme.PanelBg)
	rl.DrawRectangleLines(x, y, width, height, r.Theme.PanelBorder)
}

// DrawSectionHeader draws a section header and returns the new Y position.
func (r *Renderer) DrawSectionHeader(x, y int32, title string) int32 {
	rl.DrawText(title, x, y, r.Theme.HeaderFontSize, r.Theme.SectionHeader)
	return y + r.Theme.LineHeight + 2
}

// DrawLabelValue draws a label and value on the same line.
func (r *Renderer) DrawLabelValue(x, y int32, label, value string) int32 {
	rl.DrawText(label+":", x, y, r.Theme.FontSize, r.Theme.LabelColor)
	rl.DrawText(value, x+r.Theme.LabelWidth, y, r.Theme.FontSize, r.Theme.ValueColor)
	return y + r.Theme.LineHeight
}

// DrawBar draws a horizontal bar for a value in [0, 1] with its text.
// The fill shifts colour as the value grows.
func (r *Renderer) DrawBar(x, y int32, label string, value float32, text string, width int32) int32 {
	value = clamp01(value)

	barX := x + r.Theme.LabelWidth
	barWidth := width - r.Theme.LabelWidth - 70

	rl.DrawText(label, x, y, r.Theme.FontSize, r.Theme.LabelColor)
	rl.DrawRectangle(barX, y+2, barWidth, r.Theme.BarHeight, r.Theme.BarBg)

	fill := r.Theme.BarFill
	if value > 0.4 {
		fill = r.Theme.BarFillHigh
	} else if value > 0.2 {
		fill = r.Theme.BarFillMedium
	}
	rl.DrawRectangle(barX, y+2, int32(float32(barWidth)*value), r.Theme.BarHeight, fill)
	rl.DrawText(text, barX+barWidth+5, y, r.Theme.FontSize, r.Theme.ValueColor)

	return y + r.Theme.LineHeight
}

// Button draws a raygui button and reports whether it was clicked.
func (r *Renderer) Button(x, y, width float32, text string) bool {
	return gui.Button(rl.Rectangle{X: x, Y: y, Width: width, Height: r.Theme.ButtonHeight}, text)
}

// Toggle draws a button labelled with the toggle state and returns the new state.
func (r *Renderer) Toggle(x, y, width float32, label string, on bool) bool {
	if r.Button(x, y, width, toggleText(on, "[x] "+label, "[ ] "+label)) {
		return !on
	}
	return on
}

// Slider draws a labelled raygui slider with its value and returns the new value.
func (r *Renderer) Slider(x, y, width float32, sd SliderDescriptor, value float32) float32 {
	rl.DrawText(sd.Label, int32(x), int32(y), r.Theme.FontSize, r.Theme.LabelColor)
	y += float32(r.Theme.LineHeight) - 2
	out := gui.SliderBar(
		rl.Rectangle{X: x, Y: y, Width: width - 60, Height: r.Theme.SliderHeight},
		"", "",
		value, sd.Min, sd.Max,
	)
	format := sd.Format
	if format == "" {
		format = "%.2f"
	}
	rl.DrawText(fmt.Sprintf(format, out), int32(x+width-55), int32(y), r.Theme.FontSize, r.Theme.ValueColor)
	return out
}

func toggleText(on bool, onText, offText string) string {
	if on {
		return onText
	}
	return offText
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
