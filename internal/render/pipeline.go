// Package render rasterizes the ownership grid into presentable frames with
// a fixed pool of stripe workers and a double-buffered compositor.
package render

import (
	"fmt"
	"image"
	"runtime"
	"sync"
	"time"

	"github.com/feralbyte/gridclaim/internal/world"
)

// DefaultThrottle is the minimum interval between dispatched renders; more
// frequent requests are coalesced into the next allowed tick.
const DefaultThrottle = 16 * time.Millisecond

// DefaultWorkerCount reserves one core for the coordinator on machines with
// at least four cores, and uses every core on smaller ones.
func DefaultWorkerCount() int {
	cores := runtime.NumCPU()
	if cores >= 4 {
		return cores - 1
	}
	if cores < 1 {
		return 1
	}
	return cores
}

// Fault is a tagged failure reported by a worker task instead of being
// silently dropped; the coordinator surfaces it and keeps presenting the last
// good frame.
type Fault struct {
	Source string
	Gen    uint64
	Err    error
}

// Option configures a Pipeline before Start.
type Option func(*Pipeline)

// WithWorkers overrides the worker count (minimum 1).
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n < 1 {
			n = 1
		}
		p.workers = n
	}
}

// WithThrottle overrides the minimum dispatch interval; zero disables
// throttling (tests).
func WithThrottle(d time.Duration) Option {
	return func(p *Pipeline) { p.throttle = d }
}

// WithSingleThreaded switches to the degraded fallback: the identical
// coloring rule table runs on the coordinator goroutine with no worker pool.
func WithSingleThreaded() Option {
	return func(p *Pipeline) {
		p.single = true
		p.workers = 1
	}
}

type job struct {
	gen uint64
	req FrameRequest
}

// Pipeline is the parallel render coordinator. One goroutine (run) owns
// dispatch, throttling, and compositing; W workers rasterize row-interleaved
// stripes and answer with generation-tagged partials. Issuing a new
// generation is the only cancellation: late partials for an old generation
// are dropped on arrival.
type Pipeline struct {
	reader   world.Reader
	workers  int
	throttle time.Duration
	single   bool

	comp  *compositor
	stats *Stats

	reqCh     chan FrameRequest
	partialCh chan partial
	faultCh   chan Fault
	quit      chan struct{}
	done      chan struct{}
	jobChs    []chan job

	gen          uint64 // owned by run
	dispatchedAt time.Time
	bufPool      sync.Pool
}

// New creates a pipeline reading from r. Call Start before Request.
func New(r world.Reader, opts ...Option) *Pipeline {
	p := &Pipeline{
		reader:   r,
		workers:  DefaultWorkerCount(),
		throttle: DefaultThrottle,
		stats:    &Stats{},
		reqCh:    make(chan FrameRequest, 1),
		faultCh:  make(chan Fault, 16),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.comp = newCompositor(p.workers)
	p.partialCh = make(chan partial, p.workers)
	return p
}

// Start launches the worker pool and the coordinator loop.
func (p *Pipeline) Start() {
	if !p.single {
		p.jobChs = make([]chan job, p.workers)
		for i := range p.jobChs {
			p.jobChs[i] = make(chan job, 1)
			go p.workerLoop(i, p.jobChs[i])
		}
	}
	go p.run()
}

// Stop shuts the pipeline down and waits for the coordinator to exit.
func (p *Pipeline) Stop() {
	close(p.quit)
	<-p.done
}

// Request asks for a frame. Non-blocking: if a request is already pending it
// is replaced, so only the latest viewport is ever rendered.
func (p *Pipeline) Request(req FrameRequest) {
	for {
		select {
		case p.reqCh <- req:
			return
		default:
			// Drop the superseded pending request and retry.
			select {
			case <-p.reqCh:
			default:
			}
		}
	}
}

// Front returns the currently presented frame, or nil before the first
// complete composite. The returned image is never mutated in place.
func (p *Pipeline) Front() *image.RGBA { return p.comp.Front() }

// Faults returns the channel of tagged worker failures.
func (p *Pipeline) Faults() <-chan Fault { return p.faultCh }

// Stats returns the pipeline's counters.
func (p *Pipeline) Stats() StatsSnapshot { return p.stats.Snapshot() }

func (p *Pipeline) run() {
	defer close(p.done)
	var (
		pending    *FrameRequest
		lastSent   time.Time
		timer      = time.NewTimer(time.Hour)
		timerArmed bool
	)
	if !timer.Stop() {
		<-timer.C
	}
	arm := func(d time.Duration) {
		if timerArmed && !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(d)
		timerArmed = true
	}

	for {
		select {
		case req := <-p.reqCh:
			if wait := p.throttle - time.Since(lastSent); wait > 0 {
				pending = &req
				arm(wait)
				continue
			}
			p.dispatch(req)
			lastSent = time.Now()
			pending = nil
		case <-timer.C:
			timerArmed = false
			if pending != nil {
				p.dispatch(*pending)
				lastSent = time.Now()
				pending = nil
			}
		case pt := <-p.partialCh:
			p.handlePartial(pt)
		case <-p.quit:
			return
		}
	}
}

// dispatch starts a new generation. In fallback mode the stripe covering
// every row is rasterized inline; otherwise each worker gets the job, its
// previous undelivered job being discarded (superseded generations are never
// worth finishing).
func (p *Pipeline) dispatch(req FrameRequest) {
	p.gen++
	p.comp.begin(p.gen, req.Width, req.Height)
	p.dispatchedAt = time.Now()
	p.stats.dispatches.Add(1)

	if p.single {
		img := p.getBuf(req.Width, req.Height)
		spans := rasterizeStripe(p.reader, req, 1, 0, img)
		p.handlePartial(partial{gen: p.gen, worker: 0, img: img, spans: spans})
		return
	}
	j := job{gen: p.gen, req: req}
	for _, ch := range p.jobChs {
		select {
		case ch <- j:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- j:
			default:
			}
		}
	}
}

func (p *Pipeline) handlePartial(pt partial) {
	if pt.err != nil {
		p.stats.faults.Add(1)
		p.reportFault(Fault{Source: "render", Gen: pt.gen, Err: pt.err})
		// The failed worker's rows are missing, so its generation must not
		// composite: withholding the partial starves the generation and the
		// next dispatch supersedes it. The last good frame keeps presenting.
		return
	}
	accepted, flipped := p.comp.offer(pt)
	if !accepted {
		p.stats.stalePartials.Add(1)
	}
	if pt.img != nil {
		p.putBuf(pt.img) // composite copied what it needed; release now
	}
	if flipped {
		p.stats.frames.Add(1)
		p.stats.lastCompositeUS.Store(time.Since(p.dispatchedAt).Microseconds())
	}
}

func (p *Pipeline) reportFault(f Fault) {
	select {
	case p.faultCh <- f:
	default:
		// Fault channel backed up; the counter still records it.
	}
}

func (p *Pipeline) workerLoop(idx int, jobs <-chan job) {
	for {
		select {
		case <-p.quit:
			return
		case j := <-jobs:
			p.runJob(idx, j)
		}
	}
}

// runJob rasterizes one stripe. Panics are converted into tagged faults so a
// broken worker degrades the frame rather than the process; its generation
// simply never composites and is superseded by the next one.
func (p *Pipeline) runJob(idx int, j job) {
	defer func() {
		if r := recover(); r != nil {
			pt := partial{gen: j.gen, worker: idx, err: fmt.Errorf("worker %d: %v", idx, r)}
			select {
			case p.partialCh <- pt:
			case <-p.quit:
			}
		}
	}()
	img := p.getBuf(j.req.Width, j.req.Height)
	spans := rasterizeStripe(p.reader, j.req, p.workers, idx, img)
	select {
	case p.partialCh <- partial{gen: j.gen, worker: idx, img: img, spans: spans}:
	case <-p.quit:
	}
}

func (p *Pipeline) getBuf(w, h int) *image.RGBA {
	if v := p.bufPool.Get(); v != nil {
		img := v.(*image.RGBA)
		if img.Bounds().Dx() == w && img.Bounds().Dy() == h {
			return img
		}
	}
	return image.NewRGBA(image.Rect(0, 0, w, h))
}

func (p *Pipeline) putBuf(img *image.RGBA) {
	p.bufPool.Put(img)
}
