package render

import (
	"image"
	"testing"
)

// stripePartial builds a partial whose rows [y0,y1) are a solid color.
func stripePartial(gen uint64, worker, w, h, y0, y1 int, r, g, b uint8) partial {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := y0; y < y1; y++ {
		off := img.PixOffset(0, y)
		for x := 0; x < w; x++ {
			img.Pix[off+x*4] = r
			img.Pix[off+x*4+1] = g
			img.Pix[off+x*4+2] = b
			img.Pix[off+x*4+3] = 0xFF
		}
	}
	return partial{gen: gen, worker: worker, img: img, spans: []rowSpan{{y0: y0, y1: y1}}}
}

func TestCompositor_FlipsOnlyWhenComplete(t *testing.T) {
	c := newCompositor(2)
	c.begin(1, 8, 8)

	if _, flipped := c.offer(stripePartial(1, 0, 8, 8, 0, 4, 1, 0, 0)); flipped {
		t.Fatal("half-assembled frame must not flip")
	}
	if c.Front() != nil {
		t.Fatal("nothing should be presented before the first complete composite")
	}
	if _, flipped := c.offer(stripePartial(1, 1, 8, 8, 4, 8, 0, 1, 0)); !flipped {
		t.Fatal("final partial should flip")
	}
	front := c.Front()
	if front == nil {
		t.Fatal("front should present after a complete composite")
	}
	if front.Pix[0] != 1 || front.Pix[7*front.Stride+1] != 1 {
		t.Fatal("front does not contain both stripes")
	}
}

// Dispatching generation G, then G+1 before any G partial arrives, must
// composite only G+1; G is never presented.
func TestCompositor_SupersededGenerationNeverPresents(t *testing.T) {
	c := newCompositor(2)
	c.begin(1, 8, 8)
	c.begin(2, 8, 8) // supersede before any partial of gen 1 arrives

	if accepted, _ := c.offer(stripePartial(1, 0, 8, 8, 0, 4, 9, 9, 9)); accepted {
		t.Fatal("stale partial must be dropped")
	}
	if accepted, _ := c.offer(stripePartial(1, 1, 8, 8, 4, 8, 9, 9, 9)); accepted {
		t.Fatal("stale partial must be dropped")
	}
	if c.Front() != nil {
		t.Fatal("superseded generation must never present")
	}

	c.offer(stripePartial(2, 0, 8, 8, 0, 4, 5, 0, 0))
	_, flipped := c.offer(stripePartial(2, 1, 8, 8, 4, 8, 5, 0, 0))
	if !flipped || c.Front() == nil {
		t.Fatal("current generation should present normally")
	}
	if c.Front().Pix[0] != 5 {
		t.Fatal("front contains stale pixels")
	}
}

// After any successful composite the previously visible surface becomes the
// hidden one and vice versa.
func TestCompositor_DoubleBufferAlternates(t *testing.T) {
	c := newCompositor(1)

	c.begin(1, 4, 4)
	c.offer(stripePartial(1, 0, 4, 4, 0, 4, 1, 1, 1))
	first := c.Front()

	c.begin(2, 4, 4)
	c.offer(stripePartial(2, 0, 4, 4, 0, 4, 2, 2, 2))
	second := c.Front()

	if first == second {
		t.Fatal("composite must flip to the other surface")
	}

	c.begin(3, 4, 4)
	c.offer(stripePartial(3, 0, 4, 4, 0, 4, 3, 3, 3))
	third := c.Front()
	if third != first {
		t.Fatal("surfaces should alternate between exactly two buffers")
	}
}

// While a frame is being assembled, the presented surface must not change —
// no partially composited state is ever visible.
func TestCompositor_FrontStableDuringAssembly(t *testing.T) {
	c := newCompositor(2)
	c.begin(1, 4, 4)
	c.offer(stripePartial(1, 0, 4, 4, 0, 2, 1, 0, 0))
	c.offer(stripePartial(1, 1, 4, 4, 2, 4, 1, 0, 0))
	presented := c.Front()
	sum := byteSum(presented.Pix)

	c.begin(2, 4, 4)
	c.offer(stripePartial(2, 0, 4, 4, 0, 2, 7, 7, 7))
	if c.Front() != presented || byteSum(c.Front().Pix) != sum {
		t.Fatal("presented surface changed mid-assembly")
	}
}

func byteSum(p []byte) int {
	s := 0
	for _, b := range p {
		s += int(b)
	}
	return s
}

func TestCompositor_ResizeReallocates(t *testing.T) {
	c := newCompositor(1)
	c.begin(1, 4, 4)
	c.offer(stripePartial(1, 0, 4, 4, 0, 4, 1, 1, 1))
	if c.Front() == nil {
		t.Fatal("frame should present")
	}

	// Size change: front resets until the first frame at the new size lands.
	c.begin(2, 8, 8)
	if c.Front() != nil {
		t.Fatal("front should reset on resize")
	}
	c.offer(stripePartial(2, 0, 8, 8, 0, 8, 2, 2, 2))
	front := c.Front()
	if front == nil || front.Bounds().Dx() != 8 {
		t.Fatal("front should present at the new size")
	}
}
