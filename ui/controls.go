package ui

import (
	rl "github.com/gen2brain/raylib-go/raylib"
)

// ControlPanel renders the raygui control panel described by a PanelDescriptor.
type ControlPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
	visible  bool
	desc     PanelDescriptor
}

// NewControlPanel creates a visible control panel.
func NewControlPanel(x, y, width int32, desc PanelDescriptor) *ControlPanel {
	return &ControlPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
		visible:  true,
		desc:     desc,
	}
}

// SetPosition moves the panel.
func (c *ControlPanel) SetPosition(x, y int32) {
	c.x = x
	c.y = y
}

// IsVisible returns whether the panel is shown.
func (c *ControlPanel) IsVisible() bool {
	return c.visible
}

// Toggle switches panel visibility.
func (c *ControlPanel) Toggle() bool {
	c.visible = !c.visible
	return c.visible
}

// Contains reports whether a screen point falls inside the visible panel.
// The viewer uses it to keep mouse drags over the panel from orbiting the camera.
func (c *ControlPanel) Contains(px, py float32) bool {
	if !c.visible {
		return false
	}
	h := c.Height()
	return px >= float32(c.x) && px < float32(c.x+c.width) &&
		py >= float32(c.y) && py < float32(c.y+h)
}

// Height returns the panel height for the current descriptor.
func (c *ControlPanel) Height() int32 {
	return panelHeight(c.desc, c.renderer.Theme)
}

// panelHeight lays the panel out without drawing. Actions and toggles are
// placed two per row, sliders one per row.
func panelHeight(desc PanelDescriptor, t Theme) int32 {
	rowH := int32(t.ButtonHeight) + 4
	sliderH := t.LineHeight + int32(t.SliderHeight) + 6

	h := t.Padding + t.LineHeight + 6
	for _, g := range desc.Groups {
		a, tg, s := groupCounts(desc, g)
		if a+tg+s == 0 {
			continue
		}
		h += t.LineHeight + 2
		h += int32(pairs(a)) * rowH
		h += int32(pairs(tg)) * rowH
		h += int32(s) * sliderH
		h += 4
	}
	return h + t.Padding
}

func groupCounts(desc PanelDescriptor, group string) (actions, toggles, sliders int) {
	for _, a := range desc.Actions {
		if a.Group == group {
			actions++
		}
	}
	for _, tg := range desc.Toggles {
		if tg.Group == group {
			toggles++
		}
	}
	for _, s := range desc.Sliders {
		if s.Group == group {
			sliders++
		}
	}
	return actions, toggles, sliders
}

func pairs(n int) int {
	return (n + 1) / 2
}

// Draw renders the panel and applies any changes through the descriptor setters.
func (c *ControlPanel) Draw() {
	if !c.visible {
		return
	}

	r := c.renderer
	t := r.Theme
	r.DrawPanel(c.x, c.y, c.width, c.Height())

	x := float32(c.x + t.Padding)
	inner := float32(c.width - t.Padding*2)
	half := (inner - 6) / 2
	rowH := t.ButtonHeight + 4

	y := c.y + t.Padding
	rl.DrawText(c.desc.Title, int32(x), y, 16, rl.White)
	y += t.LineHeight + 6

	for _, g := range c.desc.Groups {
		a, tg, s := groupCounts(c.desc, g)
		if a+tg+s == 0 {
			continue
		}
		y = r.DrawSectionHeader(int32(x), y, g)
		fy := float32(y)

		i := 0
		for _, ad := range c.desc.Actions {
			if ad.Group != g {
				continue
			}
			bx := x + float32(i%2)*(half+6)
			if r.Button(bx, fy, half, ad.Label()) {
				ad.Do()
			}
			if i%2 == 1 {
				fy += rowH
			}
			i++
		}
		if i%2 == 1 {
			fy += rowH
		}

		i = 0
		for _, td := range c.desc.Toggles {
			if td.Group != g {
				continue
			}
			bx := x + float32(i%2)*(half+6)
			label := td.Label
			if td.Key != "" {
				label += " (" + td.Key + ")"
			}
			on := td.Get()
			if next := r.Toggle(bx, fy, half, label, on); next != on {
				td.Set(next)
			}
			if i%2 == 1 {
				fy += rowH
			}
			i++
		}
		if i%2 == 1 {
			fy += rowH
		}

		for _, sd := range c.desc.Sliders {
			if sd.Group != g {
				continue
			}
			cur := float32(sd.Get())
			if next := r.Slider(x, fy, inner, sd, cur); next != cur {
				sd.Set(float64(next))
			}
			fy += float32(t.LineHeight) + t.SliderHeight + 6
		}
		y = int32(fy) + 4
	}
}
