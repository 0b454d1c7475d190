// Package ui provides a descriptor-driven control panel and HUD for the
// smoke viewer. Controls are declared as metadata bound to getters and
// setters, so the panel layout follows the settings it edits.
package ui

import rl "github.com/gen2brain/raylib-go/raylib"

// ToggleDescriptor binds an on/off control to a boolean setting.
type ToggleDescriptor struct {
	ID    string      // Unique identifier
	Label string      // Display label
	Key   string      // Optional key binding shown after the label
	Get   func() bool // Current value
	Set   func(bool)  // Called when the user flips the toggle
	Group string      // Section the toggle belongs to
}

// SliderDescriptor binds a slider to a numeric setting.
type SliderDescriptor struct {
	ID     string
	Label  string
	Min    float32
	Max    float32
	Format string // Printf format for the value, e.g. "%.3f"
	Get    func() float64
	Set    func(float64)
	Group  string
}

// ActionDescriptor is a push button.
type ActionDescriptor struct {
	ID    string
	Label func() string // label may reflect state, e.g. "Pause"/"Resume"
	Do    func()
	Group string
}

// PanelDescriptor lists the controls of a panel. Sections are drawn in
// Groups order; controls with an unknown group are skipped.
type PanelDescriptor struct {
	Title   string
	Groups  []string
	Actions []ActionDescriptor
	Toggles []ToggleDescriptor
	Sliders []SliderDescriptor
}

// Theme holds UI styling constants.
type Theme struct {
	PanelBg        rl.Color
	PanelBorder    rl.Color
	SectionHeader  rl.Color
	LabelColor     rl.Color
	ValueColor     rl.Color
	BarBg          rl.Color
	BarFill        rl.Color
	BarFillMedium  rl.Color
	BarFillHigh    rl.Color
	Padding        int32
	LineHeight     int32
	LabelWidth     int32
	BarHeight      int32
	FontSize       int32
	HeaderFontSize int32
	ButtonHeight   float32
	SliderHeight   float32
}

// DefaultTheme returns the default UI theme.
func DefaultTheme() Theme {
	return Theme{
		PanelBg:        rl.Color{R: 20, G: 25, B: 30, A: 220},
		PanelBorder:    rl.Color{R: 60, G: 70, B: 80, A: 255},
		SectionHeader:  rl.Yellow,
		LabelColor:     rl.LightGray,
		ValueColor:     rl.White,
		BarBg:          rl.Color{R: 40, G: 40, B: 40, A: 255},
		BarFill:        rl.Color{R: 100, G: 150, B: 200, A: 255},
		BarFillMedium:  rl.Color{R: 200, G: 180, B: 100, A: 255},
		BarFillHigh:    rl.Color{R: 200, G: 100, B: 100, A: 255},
		Padding:        10,
		LineHeight:     16,
		LabelWidth:     110,
		BarHeight:      10,
		FontSize:       12,
		HeaderFontSize: 14,
		ButtonHeight:   22,
		SliderHeight:   14,
	}
}
