package app

import (
	"fmt"
	"image/color"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/feralbyte/gridclaim/internal/world"
)

// Inspector panel — rendered into an offscreen buffer at 1× then blitted at
// inspScale.
const (
	inspScale = 2
	inspBufW  = 210
	inspBufH  = 140
	inspPad   = 5
	inspLineH = 13
)

// Inspector holds the clicked tile, if any.
type Inspector struct {
	selected bool
	x, y     int
}

// handleInspectorClick selects the tile under the cursor, or deselects when
// the click lands outside the grid.
func (a *App) handleInspectorClick(mx, my int) {
	gx, gy := a.transform().ScreenToGrid(mx, my)
	if _, ok := a.store.Reader().Read(gx, gy); !ok {
		a.inspector.selected = false
		return
	}
	a.inspector = Inspector{selected: true, x: gx, y: gy}
}

// inspectorLines formats the selected tile record for the panel.
func inspectorLines(r world.Reader, x, y int) []string {
	rec, ok := r.Read(x, y)
	if !ok {
		return []string{fmt.Sprintf("(%d,%d) out of range", x, y)}
	}
	lines := []string{fmt.Sprintf("[ tile %d,%d ]", x, y)}
	if !rec.Owned() {
		return append(lines, "unowned")
	}

	faction, _ := r.Factions().Lookup(uint32(rec.FactionIndex))
	lines = append(lines, fmt.Sprintf("faction: %s (#%d)", faction, rec.FactionIndex))
	lines = append(lines, fmt.Sprintf("color:   #%06X", rec.ColorRGB))
	if rec.PaintedBy != world.NoPlayer {
		painter, _ := r.Players().Lookup(rec.PaintedBy)
		lines = append(lines, fmt.Sprintf("painter: %s", painter))
	} else {
		lines = append(lines, "painter: -")
	}
	lines = append(lines, fmt.Sprintf("overpaint: %d/%d", rec.Overpaint, world.MaxOverpaint))

	flags := ""
	if rec.IsCore() {
		flags += " core"
	}
	if rec.CorePending() {
		flags += " pending"
	}
	if flags == "" {
		flags = " -"
	}
	lines = append(lines, "flags:"+flags)
	if rec.Expiry > 0 {
		lines = append(lines, fmt.Sprintf("expires: %s", time.Unix(int64(rec.Expiry), 0).UTC().Format("01-02 15:04")))
	}
	if rec.PaintedAt > 0 {
		lines = append(lines, fmt.Sprintf("painted: %s", time.Unix(int64(rec.PaintedAt), 0).UTC().Format("01-02 15:04")))
	}
	return lines
}

// drawInspector renders the tile panel into the offscreen buffer at 1×, then
// blits it onto the screen at inspScale in the top-right corner.
func (a *App) drawInspector(screen *ebiten.Image) {
	if !a.inspector.selected {
		return
	}
	buf := a.inspBuf
	buf.Clear()
	bw, bh := float32(inspBufW), float32(inspBufH)

	panelBg := color.RGBA{R: 14, G: 16, B: 14, A: 230}
	panelBorder := color.RGBA{R: 55, G: 80, B: 55, A: 255}
	vector.FillRect(buf, 0, 0, bw, bh, panelBg, false)
	vector.StrokeRect(buf, 0, 0, bw, bh, 1.0, panelBorder, false)
	vector.StrokeLine(buf, 1, 1, bw-1, 1, 1.0, color.RGBA{R: 70, G: 110, B: 70, A: 60}, false)

	ly := inspPad
	for _, line := range inspectorLines(a.store.Reader(), a.inspector.x, a.inspector.y) {
		ebitenutil.DebugPrintAt(buf, line, inspPad, ly)
		ly += inspLineH
	}

	opts := &ebiten.DrawImageOptions{}
	opts.GeoM.Scale(inspScale, inspScale)
	opts.GeoM.Translate(float64(a.width-inspBufW*inspScale-8), 8)
	screen.DrawImage(buf, opts)

	// Selection outline on the tile itself.
	x0, y0, x1, y1 := a.transform().CellRect(a.inspector.x, a.inspector.y)
	vector.StrokeRect(screen, float32(x0)-1, float32(y0)-1,
		float32(x1-x0)+2, float32(y1-y0)+2, 1.5,
		color.RGBA{R: 255, G: 240, B: 60, A: 220}, false)
}
