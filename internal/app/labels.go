package app

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/font/basicfont"
)

// labelFace is the shared bitmap face for territory labels.
var labelFace = text.NewGoXFace(basicfont.Face7x13)

// drawLabel renders a centred, boxed faction label at screen position (x, y).
func drawLabel(dst *ebiten.Image, s string, x, y float64) {
	w, h := text.Measure(s, labelFace, 0)
	bx := float32(x - w/2 - 3)
	by := float32(y - h/2 - 2)
	vector.FillRect(dst, bx, by, float32(w)+6, float32(h)+4,
		color.RGBA{R: 8, G: 10, B: 8, A: 200}, false)
	vector.StrokeRect(dst, bx, by, float32(w)+6, float32(h)+4,
		1.0, color.RGBA{R: 60, G: 100, B: 60, A: 180}, false)

	op := &text.DrawOptions{}
	op.GeoM.Translate(x-w/2, y-h/2)
	op.ColorScale.ScaleWithColor(color.RGBA{R: 230, G: 235, B: 225, A: 255})
	text.Draw(dst, s, labelFace, op)
}
