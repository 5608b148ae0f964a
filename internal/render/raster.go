package render

import (
	"image"
	"image/color"

	"github.com/feralbyte/gridclaim/internal/view"
	"github.com/feralbyte/gridclaim/internal/world"
)

// Mode selects the per-cell coloring rule.
type Mode int

const (
	ModeOwner     Mode = iota // plain ownership color from the tile record
	ModePainter               // color by last painter
	ModeOverpaint             // ramp by overpaint count
	ModeAlliance              // color by alliance membership
	ModeCoreOnly              // highlight core tiles, dim everything else
	modeCount
)

// ModeName returns the HUD label for a mode.
func ModeName(m Mode) string {
	switch m {
	case ModeOwner:
		return "owner"
	case ModePainter:
		return "painter"
	case ModeOverpaint:
		return "overpaint"
	case ModeAlliance:
		return "alliance"
	case ModeCoreOnly:
		return "core"
	}
	return "?"
}

// FrameRequest describes one rasterization pass over the visible window.
// Alliances is a read-only snapshot owned by the caller; workers only read it.
type FrameRequest struct {
	Viewport  view.Viewport
	Width     int
	Height    int
	Mode      Mode
	ShowSeams bool
	Alliances map[uint16]uint32 // faction index -> 0xRRGGBB
}

// rowSpan is a half-open pixel-row range [Y0, Y1) touched by a worker.
type rowSpan struct {
	y0, y1 int
}

// partial is one worker's rasterized stripe for a given generation.
type partial struct {
	gen    uint64
	worker int
	img    *image.RGBA
	spans  []rowSpan
	err    error
}

// painterPalette colors the "by last painter" mode; painter indices hash into
// it, so a painter keeps a stable color for the session.
var painterPalette = [12]uint32{
	0xE6194B, 0x3CB44B, 0xFFE119, 0x4363D8, 0xF58231, 0x911EB4,
	0x46F0F0, 0xF032E6, 0xBCF60C, 0xFABEBE, 0x008080, 0xAAFFC3,
}

// overpaintRamp maps overpaint count 0..4 to a heat color.
var overpaintRamp = [5]uint32{0x3A3A55, 0x4A6FA5, 0x63B37A, 0xD9A441, 0xC8452C}

const seamRGB = 0x14141C

// dimRGB halves each channel; used for cells a mode de-emphasizes.
func dimRGB(c uint32) uint32 {
	return (c >> 1) & 0x7F7F7F
}

// cellColor resolves the fill color of one owned cell under the active mode.
// ok is false for unowned cells, which keep the frame background.
func cellColor(r world.Reader, x, y int, req *FrameRequest) (uint32, bool) {
	fi := r.FactionIndexAt(x, y)
	if fi == world.NoFaction {
		return 0, false
	}
	switch req.Mode {
	case ModePainter:
		p := r.PainterAt(x, y)
		if p == world.NoPlayer {
			return dimRGB(r.ColorAt(x, y)), true
		}
		return painterPalette[p%uint32(len(painterPalette))], true
	case ModeOverpaint:
		op := r.OverpaintAt(x, y)
		if op > world.MaxOverpaint {
			op = world.MaxOverpaint
		}
		return overpaintRamp[op], true
	case ModeAlliance:
		if c, ok := req.Alliances[fi]; ok {
			return c, true
		}
		return dimRGB(r.ColorAt(x, y)), true
	case ModeCoreOnly:
		if r.FlagsAt(x, y)&world.FlagCore != 0 {
			return r.ColorAt(x, y), true
		}
		return dimRGB(dimRGB(r.ColorAt(x, y))), true
	default:
		return r.ColorAt(x, y), true
	}
}

// rasterizeStripe renders every visible cell whose grid row satisfies
// row % workers == index into dst, and returns the pixel-row spans it wrote.
// Rows are interleaved across workers so load stays balanced regardless of
// how ownership clusters spatially, and workers never share a row.
//
// Same-color horizontal runs are filled with a single call each; the store is
// read through the allocation-free field accessors only.
func rasterizeStripe(r world.Reader, req FrameRequest, workers, index int, dst *image.RGBA) []rowSpan {
	tr := view.NewTransform(req.Viewport, req.Width, req.Height, r.N())
	minX, minY, maxX, maxY, ok := tr.VisibleCells()
	if !ok {
		return nil
	}

	var spans []rowSpan
	for gy := minY; gy <= maxY; gy++ {
		if gy%workers != index {
			continue
		}
		_, y0, _, y1 := tr.CellRect(minX, gy)
		if y0 < 0 {
			y0 = 0
		}
		if y1 > req.Height {
			y1 = req.Height
		}
		if y0 >= y1 {
			continue
		}

		// The compositor copies whole scanlines, so the worker owns the full
		// width of its rows: clear them to the background first.
		fillRect(dst, 0, y0, req.Width, y1, backgroundRGBA)

		runStart := minX
		runColor, runOK := cellColor(r, minX, gy, &req)
		for gx := minX + 1; gx <= maxX+1; gx++ {
			var c uint32
			var cOK bool
			if gx <= maxX {
				c, cOK = cellColor(r, gx, gy, &req)
			}
			if gx <= maxX && c == runColor && cOK == runOK {
				continue
			}
			if runOK {
				x0, _, _, _ := tr.CellRect(runStart, gy)
				x1, _, _, _ := tr.CellRect(gx, gy)
				fillRect(dst, x0, y0, x1, y1, rgbaFromPacked(runColor))
			}
			runStart, runColor, runOK = gx, c, cOK
		}

		if req.ShowSeams {
			drawRowSeams(r, tr, req, gy, minX, maxX, y0, y1, dst)
		}
		spans = append(spans, rowSpan{y0: y0, y1: y1})
	}
	return spans
}

// drawRowSeams strokes interior ownership boundaries falling inside this
// worker's rows: the left edge of a cell whose left neighbour differs, and
// the top edge of a cell whose upper neighbour differs.
func drawRowSeams(r world.Reader, tr view.Transform, req FrameRequest, gy, minX, maxX, y0, y1 int, dst *image.RGBA) {
	seam := rgbaFromPacked(seamRGB)
	for gx := minX; gx <= maxX; gx++ {
		fi := r.FactionIndexAt(gx, gy)
		if fi == world.NoFaction {
			continue
		}
		x0, _, x1, _ := tr.CellRect(gx, gy)
		if r.FactionIndexAt(gx-1, gy) != fi {
			fillRect(dst, x0, y0, x0+1, y1, seam)
		}
		if r.FactionIndexAt(gx, gy-1) != fi {
			fillRect(dst, x0, y0, x1, y0+1, seam)
		}
	}
}

var backgroundRGBA = color.RGBA{R: 16, G: 18, B: 16, A: 255}

func rgbaFromPacked(c uint32) color.RGBA {
	return color.RGBA{R: uint8(c >> 16), G: uint8(c >> 8), B: uint8(c), A: 255}
}

// fillRect fills the clamped half-open rectangle [x0,x1)×[y0,y1): the first
// scanline is written pixel by pixel, the rest copied from it.
func fillRect(dst *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	b := dst.Bounds()
	if x0 < b.Min.X {
		x0 = b.Min.X
	}
	if y0 < b.Min.Y {
		y0 = b.Min.Y
	}
	if x1 > b.Max.X {
		x1 = b.Max.X
	}
	if y1 > b.Max.Y {
		y1 = b.Max.Y
	}
	if x0 >= x1 || y0 >= y1 {
		return
	}
	first := dst.PixOffset(x0, y0)
	rowLen := (x1 - x0) * 4
	for i := 0; i < rowLen; i += 4 {
		dst.Pix[first+i] = c.R
		dst.Pix[first+i+1] = c.G
		dst.Pix[first+i+2] = c.B
		dst.Pix[first+i+3] = c.A
	}
	for y := y0 + 1; y < y1; y++ {
		off := dst.PixOffset(x0, y)
		copy(dst.Pix[off:off+rowLen], dst.Pix[first:first+rowLen])
	}
}
