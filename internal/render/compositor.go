package render

import (
	"image"
	"sync/atomic"
)

// compositor assembles per-worker stripes into one of two alternating
// full-size framebuffers. The hidden buffer is drawn and the front pointer
// flipped only once every expected partial of the current generation has
// arrived; the presented buffer is never written, so the viewer cannot
// observe a row-torn frame.
type compositor struct {
	want    int // partials per frame
	gen     uint64
	arrived int

	bufs  [2]*image.RGBA
	back  int // index into bufs currently hidden
	front atomic.Pointer[image.RGBA]
}

func newCompositor(want int) *compositor {
	return &compositor{want: want}
}

// begin starts a new generation, discarding any partials still pending for
// the previous one. Buffers are (re)allocated when the frame size changes;
// the front keeps presenting the last good frame until the new one completes.
func (c *compositor) begin(gen uint64, w, h int) {
	c.gen = gen
	c.arrived = 0
	if c.bufs[0] == nil || c.bufs[0].Bounds().Dx() != w || c.bufs[0].Bounds().Dy() != h {
		c.bufs[0] = image.NewRGBA(image.Rect(0, 0, w, h))
		c.bufs[1] = image.NewRGBA(image.Rect(0, 0, w, h))
		c.back = 0
		c.front.Store(nil)
	}
	clearRGBA(c.bufs[c.back], backgroundRGBA.R, backgroundRGBA.G, backgroundRGBA.B)
}

// offer merges one partial. Partials tagged with a superseded generation are
// dropped. Returns (accepted, flipped); flipped is true when this partial
// completed the frame and visibility toggled.
func (c *compositor) offer(p partial) (accepted, flipped bool) {
	if p.gen != c.gen {
		return false, false
	}
	dst := c.bufs[c.back]
	if p.img != nil && p.img.Bounds() == dst.Bounds() {
		stride := dst.Stride
		for _, sp := range p.spans {
			y0, y1 := sp.y0, sp.y1
			if y0 < 0 {
				y0 = 0
			}
			if y1 > dst.Bounds().Dy() {
				y1 = dst.Bounds().Dy()
			}
			if y0 >= y1 {
				continue
			}
			copy(dst.Pix[y0*stride:y1*stride], p.img.Pix[y0*stride:y1*stride])
		}
	}
	c.arrived++
	if c.arrived < c.want {
		return true, false
	}
	// Complete: flip which surface is visible.
	c.front.Store(dst)
	c.back = 1 - c.back
	return true, true
}

// Front returns the currently presented framebuffer, or nil before the first
// complete composite at the current size. It is only ever replaced wholesale,
// never written in place.
func (c *compositor) Front() *image.RGBA {
	return c.front.Load()
}

func clearRGBA(img *image.RGBA, r, g, b uint8) {
	px := img.Pix
	for i := 0; i < len(px); i += 4 {
		px[i] = r
		px[i+1] = g
		px[i+2] = b
		px[i+3] = 0xFF
	}
}
