package game

import (
	rl "github.com/gen2brain/raylib-go/raylib"
)

// Camera input sensitivities.
const (
	orbitDegreesPerPixel = 0.3
	zoomPerWheelStep     = 0.1
)

// handleInput processes keyboard and mouse input.
func (g *Game) handleInput() {
	// Window resize propagation
	g.handleResize()

	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}

	if rl.IsKeyPressed(rl.KeyP) || rl.IsKeyPressed(rl.KeySpace) {
		g.paused = !g.paused
	}
	if rl.IsKeyPressed(rl.KeyR) {
		logFailure("reset", g.Reset())
	}
	if rl.IsKeyPressed(rl.KeyO) {
		logFailure("obstacle", g.CycleObstacle())
	}
	if rl.IsKeyPressed(rl.KeyM) {
		g.SetMode(g.mode.Next())
	}
	if rl.IsKeyPressed(rl.KeyF) {
		g.SetFlicker(!g.flickerOn)
	}
	if rl.IsKeyPressed(rl.KeyH) {
		g.raymarcher.Settings.Shadows = !g.raymarcher.Settings.Shadows
		g.frameDirty = true
	}
	if rl.IsKeyPressed(rl.KeyG) {
		g.raymarcher.Settings.Debug = g.raymarcher.Settings.Debug.Next()
		g.frameDirty = true
	}
	if rl.IsKeyPressed(rl.KeyI) {
		logFailure("add emitter", g.AddInjection())
	}
	if rl.IsKeyPressed(rl.KeyK) {
		logFailure("remove emitter", g.RemoveInjection())
	}
	if rl.IsKeyPressed(rl.KeyLeftBracket) {
		logFailure("resize", g.ScaleGrid(0.5))
	}
	if rl.IsKeyPressed(rl.KeyRightBracket) {
		logFailure("resize", g.ScaleGrid(2))
	}

	// Panel visibility
	if rl.IsKeyPressed(rl.KeyTab) {
		g.controls.Toggle()
		g.params.Toggle()
	}
	if rl.IsKeyPressed(rl.KeyT) {
		g.showPerf = !g.showPerf
	}

	// Steps-per-update control with < > keys (comma and period)
	if rl.IsKeyPressed(rl.KeyComma) && g.stepsPerUpdate > 1 {
		g.stepsPerUpdate--
	}
	if rl.IsKeyPressed(rl.KeyPeriod) && g.stepsPerUpdate < 10 {
		g.stepsPerUpdate++
	}

	g.handleCameraInput()
}

// handleResize checks for window resize and propagates new dimensions.
func (g *Game) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	w := int(rl.GetScreenWidth())
	h := int(rl.GetScreenHeight())
	if w == g.screenWidth && h == g.screenHeight {
		return
	}
	g.screenWidth = w
	g.screenHeight = h
	g.camera.Resize(float64(w), float64(h))
	g.layoutPanels()
	g.frameDirty = true
}

// layoutPanels anchors the right-hand panels to the window edge.
func (g *Game) layoutPanels() {
	x := int32(g.screenWidth) - controlPanelWidth - 10
	g.params.SetPosition(x, 10)
	g.perfUI.SetPosition(x, 10)
}

// overPanel reports whether the mouse is over a visible panel.
func (g *Game) overPanel(p rl.Vector2) bool {
	if g.controls.Contains(p.X, p.Y) {
		return true
	}
	return !g.showPerf && g.params.Contains(p.X, p.Y)
}

// handleCameraInput orbits with a left drag and zooms with the wheel.
func (g *Game) handleCameraInput() {
	mouse := rl.GetMousePosition()
	if g.overPanel(mouse) {
		return
	}

	if rl.IsMouseButtonDown(rl.MouseButtonLeft) {
		d := rl.GetMouseDelta()
		if d.X != 0 || d.Y != 0 {
			g.camera.Orbit(-float64(d.X)*orbitDegreesPerPixel, float64(d.Y)*orbitDegreesPerPixel)
			g.frameDirty = true
		}
	}

	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		g.camera.Zoom(1 - float64(wheel)*zoomPerWheelStep)
		g.frameDirty = true
	}

	// Home key to reset camera
	if rl.IsKeyPressed(rl.KeyHome) {
		*g.camera = *newCamera(g.cfg)
		g.camera.Resize(float64(g.screenWidth), float64(g.screenHeight))
		g.frameDirty = true
	}
}
