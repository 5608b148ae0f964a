package render

import (
	"errors"
	"testing"
	"time"

	"github.com/feralbyte/gridclaim/internal/view"
)

func waitForFrame(t *testing.T, p *Pipeline) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if p.Front() != nil {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("no frame composited before deadline")
}

func pipelineRequest() FrameRequest {
	return FrameRequest{
		Viewport: view.Viewport{CenterX: 2, CenterY: 2, Zoom: 1},
		Width:    32,
		Height:   32,
		Mode:     ModeOwner,
	}
}

func TestPipeline_ProducesFrame(t *testing.T) {
	s := paintedWorld(t)
	p := New(s.Reader(), WithWorkers(3), WithThrottle(0))
	p.Start()
	defer p.Stop()

	p.Request(pipelineRequest())
	waitForFrame(t, p)

	front := p.Front()
	if r, _, _, _ := pixelAt(front, 4, 4); r != 0xFF {
		t.Fatalf("cell (0,0) not red in composited frame: r=%02x", r)
	}
	if r, g, b, _ := pixelAt(front, 12, 12); r != backgroundRGBA.R || g != backgroundRGBA.G || b != backgroundRGBA.B {
		t.Fatal("unowned cell not background in composited frame")
	}
	if st := p.Stats(); st.Frames == 0 || st.Dispatches == 0 {
		t.Fatalf("stats not recorded: %+v", st)
	}
}

func TestPipeline_SingleThreadedFallback(t *testing.T) {
	s := paintedWorld(t)
	p := New(s.Reader(), WithSingleThreaded(), WithThrottle(0))
	p.Start()
	defer p.Stop()

	p.Request(pipelineRequest())
	waitForFrame(t, p)

	// The fallback runs the identical rule table: same pixels.
	front := p.Front()
	if r, _, _, _ := pixelAt(front, 4, 4); r != 0xFF {
		t.Fatalf("fallback frame wrong: r=%02x", r)
	}
	if _, _, b, _ := pixelAt(front, 28, 12); b != 0xFF {
		t.Fatal("fallback frame missing blue cell")
	}
}

func TestPipeline_CoalescesToLatestRequest(t *testing.T) {
	s := paintedWorld(t)
	p := New(s.Reader(), WithWorkers(2), WithThrottle(50*time.Millisecond))
	p.Start()
	defer p.Stop()

	// Burst of requests inside one throttle window; only the first (immediate)
	// and the last (coalesced) should render.
	first := pipelineRequest()
	p.Request(first)
	for i := 0; i < 20; i++ {
		req := pipelineRequest()
		req.Viewport.CenterX = float64(i)
		p.Request(req)
	}
	last := pipelineRequest()
	last.Mode = ModeOverpaint
	p.Request(last)

	time.Sleep(200 * time.Millisecond)
	st := p.Stats()
	if st.Dispatches > 3 {
		t.Fatalf("burst of 22 requests dispatched %d renders, want coalescing", st.Dispatches)
	}
	if st.Dispatches == 0 {
		t.Fatal("nothing dispatched")
	}
}

// A failed worker leaves its generation incomplete: the frame must never
// flip, and the fault is counted instead. The next generation supersedes the
// broken one and presents normally.
func TestPipeline_FailedWorkerGenerationNeverPresents(t *testing.T) {
	s := paintedWorld(t)
	p := New(s.Reader(), WithWorkers(2), WithThrottle(0))

	p.dispatch(pipelineRequest())
	p.handlePartial(stripePartial(p.gen, 0, 32, 32, 0, 16, 1, 0, 0))
	p.handlePartial(partial{gen: p.gen, worker: 1, err: errors.New("raster failure")})

	if p.Front() != nil {
		t.Fatal("generation with a failed worker was presented")
	}
	st := p.Stats()
	if st.Faults != 1 || st.Frames != 0 {
		t.Fatalf("stats after failed worker: %+v", st)
	}
	select {
	case f := <-p.Faults():
		if f.Gen != p.gen {
			t.Fatalf("fault tagged gen %d, want %d", f.Gen, p.gen)
		}
	default:
		t.Fatal("worker failure not reported on the fault channel")
	}

	p.dispatch(pipelineRequest())
	p.handlePartial(stripePartial(p.gen, 0, 32, 32, 0, 16, 2, 0, 0))
	p.handlePartial(stripePartial(p.gen, 1, 32, 32, 16, 32, 2, 0, 0))
	if p.Front() == nil {
		t.Fatal("superseding generation should present")
	}
}

func TestDefaultWorkerCount(t *testing.T) {
	if w := DefaultWorkerCount(); w < 1 {
		t.Fatalf("worker count %d", w)
	}
}
