// Package interact handles pan and zoom of the map view.
package interact

import (
	"gioui.org/io/pointer"
)

const (
	minZoom = 0.1
	maxZoom = 10
)

// Camera maps world units to screen pixels.
type Camera struct {
	OffsetX, OffsetY float32 // screen position of the world origin
	Zoom             float32 // pixels per world unit

	dragging     bool
	lastX, lastY float32
	fitted       bool
}

// NewCamera creates a camera at 100% with a small margin.
func NewCamera() *Camera {
	c := &Camera{}
	c.Reset()
	return c
}

// Reset returns to the default view. The next FitOnce refits.
func (c *Camera) Reset() {
	c.OffsetX, c.OffsetY, c.Zoom = 20, 20, 1
	c.fitted = false
}

// WorldToScreen maps a world point into window pixels.
func (c *Camera) WorldToScreen(worldX, worldY float64) (screenX, screenY float32) {
	return float32(worldX)*c.Zoom + c.OffsetX, float32(worldY)*c.Zoom + c.OffsetY
}

// ScreenToWorld is the inverse of WorldToScreen.
func (c *Camera) ScreenToWorld(screenX, screenY float32) (worldX, worldY float64) {
	return float64((screenX - c.OffsetX) / c.Zoom), float64((screenY - c.OffsetY) / c.Zoom)
}

// HandleEvent pans on secondary or middle drag and zooms on scroll.
func (c *Camera) HandleEvent(ev pointer.Event) {
	switch ev.Kind {
	case pointer.Press:
		c.dragging = ev.Buttons.Contain(pointer.ButtonSecondary) || ev.Buttons.Contain(pointer.ButtonTertiary)
		c.lastX, c.lastY = ev.Position.X, ev.Position.Y

	case pointer.Drag:
		if c.dragging {
			c.Pan(ev.Position.X-c.lastX, ev.Position.Y-c.lastY)
		}
		c.lastX, c.lastY = ev.Position.X, ev.Position.Y

	case pointer.Release:
		c.dragging = false

	case pointer.Scroll:
		switch {
		case ev.Scroll.Y > 0:
			c.ZoomBy(1/1.1, ev.Position.X, ev.Position.Y)
		case ev.Scroll.Y < 0:
			c.ZoomBy(1.1, ev.Position.X, ev.Position.Y)
		}
	}
}

// Pan shifts the view by a pixel delta.
func (c *Camera) Pan(dx, dy float32) {
	c.OffsetX += dx
	c.OffsetY += dy
}

// ZoomBy zooms by factor keeping the world point under (centerX, centerY)
// fixed on screen.
func (c *Camera) ZoomBy(factor float32, centerX, centerY float32) {
	worldX, worldY := c.ScreenToWorld(centerX, centerY)
	c.Zoom = clampZoom(c.Zoom * factor)
	newX, newY := c.WorldToScreen(worldX, worldY)
	c.Pan(centerX-newX, centerY-newY)
}

// CenterOn puts a world point in the middle of the screen.
func (c *Camera) CenterOn(worldX, worldY float64, screenWidth, screenHeight float32) {
	c.OffsetX = screenWidth/2 - float32(worldX)*c.Zoom
	c.OffsetY = screenHeight/2 - float32(worldY)*c.Zoom
}

// FitBounds zooms and centers so the world rectangle fills the screen less
// margin on every side.
func (c *Camera) FitBounds(minX, minY, maxX, maxY float64, screenWidth, screenHeight, margin float32) {
	worldW, worldH := maxX-minX, maxY-minY
	if worldW <= 0 || worldH <= 0 {
		return
	}
	zoomX := (screenWidth - 2*margin) / float32(worldW)
	zoomY := (screenHeight - 2*margin) / float32(worldH)
	c.Zoom = clampZoom(min(zoomX, zoomY))
	c.CenterOn((minX+maxX)/2, (minY+maxY)/2, screenWidth, screenHeight)
}

// FitOnce calls FitBounds the first time after creation or Reset.
func (c *Camera) FitOnce(minX, minY, maxX, maxY float64, screenWidth, screenHeight, margin float32) {
	if c.fitted {
		return
	}
	c.FitBounds(minX, minY, maxX, maxY, screenWidth, screenHeight, margin)
	c.fitted = true
}

func clampZoom(z float32) float32 {
	return max(minZoom, min(z, maxZoom))
}
