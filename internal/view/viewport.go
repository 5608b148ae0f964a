// Package view converts between grid coordinates and screen pixels.
package view

import "math"

// Zoom limits and the tile edge length in pixels at zoom 1.0.
const (
	MinZoom    = 0.05
	MaxZoom    = 64.0
	BaseTilePx = 8.0
)

// Viewport is the camera: a grid-space centre plus a zoom factor.
type Viewport struct {
	CenterX float64 // grid units
	CenterY float64
	Zoom    float64
}

// Clamp bounds zoom to [MinZoom, MaxZoom] and keeps the centre inside the
// grid. Mirrors the camera clamp applied on every input frame.
func (v *Viewport) Clamp(n int) {
	if v.Zoom < MinZoom {
		v.Zoom = MinZoom
	}
	if v.Zoom > MaxZoom {
		v.Zoom = MaxZoom
	}
	if v.CenterX < 0 {
		v.CenterX = 0
	}
	if v.CenterX > float64(n) {
		v.CenterX = float64(n)
	}
	if v.CenterY < 0 {
		v.CenterY = 0
	}
	if v.CenterY > float64(n) {
		v.CenterY = float64(n)
	}
}

// Transform maps grid space to a concrete screen rectangle for one frame.
type Transform struct {
	scale   float64 // pixels per grid unit
	originX float64 // screen x of grid (0,0)
	originY float64
	screenW int
	screenH int
	n       int
}

// NewTransform derives the frame transform from a viewport and screen size.
func NewTransform(v Viewport, screenW, screenH, n int) Transform {
	scale := BaseTilePx * v.Zoom
	return Transform{
		scale:   scale,
		originX: float64(screenW)/2 - v.CenterX*scale,
		originY: float64(screenH)/2 - v.CenterY*scale,
		screenW: screenW,
		screenH: screenH,
		n:       n,
	}
}

// Scale returns the pixel size of one grid unit.
func (t Transform) Scale() float64 { return t.scale }

// GridToScreen maps a grid-space point to screen pixels.
func (t Transform) GridToScreen(gx, gy float64) (float64, float64) {
	return t.originX + gx*t.scale, t.originY + gy*t.scale
}

// ScreenToGrid maps a screen pixel to the cell containing it (floor). The
// result may be outside [0,n); callers treat that as "no tile".
func (t Transform) ScreenToGrid(sx, sy int) (int, int) {
	gx := (float64(sx) - t.originX) / t.scale
	gy := (float64(sy) - t.originY) / t.scale
	return int(math.Floor(gx)), int(math.Floor(gy))
}

// CellRect returns the pixel rectangle [x0,x1)×[y0,y1) of cell (cx, cy).
// Both edges are floored independently from the cell's own corner and the
// next cell's corner, so adjacent rectangles share an exact boundary pixel at
// any fractional zoom; sizing cells as floor(width) instead leaves 1px seams.
func (t Transform) CellRect(cx, cy int) (x0, y0, x1, y1 int) {
	x0 = int(math.Floor(t.originX + float64(cx)*t.scale))
	y0 = int(math.Floor(t.originY + float64(cy)*t.scale))
	x1 = int(math.Floor(t.originX + float64(cx+1)*t.scale))
	y1 = int(math.Floor(t.originY + float64(cy+1)*t.scale))
	return
}

// VisibleCells returns the inclusive cell range intersecting the screen,
// clamped to the grid. ok is false when the grid is entirely off screen.
func (t Transform) VisibleCells() (minX, minY, maxX, maxY int, ok bool) {
	minX = int(math.Floor((0 - t.originX) / t.scale))
	minY = int(math.Floor((0 - t.originY) / t.scale))
	maxX = int(math.Ceil((float64(t.screenW) - t.originX) / t.scale))
	maxY = int(math.Ceil((float64(t.screenH) - t.originY) / t.scale))
	if minX < 0 {
		minX = 0
	}
	if minY < 0 {
		minY = 0
	}
	if maxX > t.n-1 {
		maxX = t.n - 1
	}
	if maxY > t.n-1 {
		maxY = t.n - 1
	}
	ok = minX <= maxX && minY <= maxY
	return
}
