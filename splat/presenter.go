package splat

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
)

// Phase is the presenter state machine tag.
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseDecoding
	PhaseUploading
	PhaseReady
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseDecoding:
		return "decoding"
	case PhaseUploading:
		return "uploading"
	case PhaseReady:
		return "ready"
	}
	return "unknown"
}

type request struct {
	gen   uint64
	index int
}

// Presenter keeps exactly one complete frame visible to the render loop
// while a single background worker prepares the next one in the inactive
// buffer, then flips the two roles under a pointer-swap critical section.
// The render loop therefore never observes a half-written frame.
//
// Requests supersede each other: issuing Request(i) then Request(j)
// guarantees the active buffer eventually holds j and never settles on i,
// regardless of how the two decodes interleave. Supersession is
// cooperative, checked after decode, after buffer reset, before upload and
// before the flip; a superseded result is discarded without touching the
// active buffer. Request never blocks on decode or upload work.
type Presenter struct {
	cache  *Cache
	logger *log.Logger

	gen      atomic.Uint64
	requests chan request

	mu              sync.Mutex
	cond            *sync.Cond
	bufs            [2]FrameBuffer
	activeBuf       int
	current         int
	phase           Phase
	lastErr         error
	lastRequested   int
	supersededCount int64
	appliedGen      uint64
	closed          bool
}

// NewPresenter creates a presenter over cache with the two render buffers
// and starts its background worker. Panics if either buffer is nil.
func NewPresenter(cache *Cache, a, b FrameBuffer, logger *log.Logger) *Presenter {
	if a == nil || b == nil {
		panic("splat: presenter needs two non-nil buffers")
	}
	if logger == nil {
		logger = log.Default()
	}
	p := &Presenter{
		cache:         cache,
		logger:        logger,
		requests:      make(chan request, 1),
		bufs:          [2]FrameBuffer{a, b},
		current:       -1,
		lastRequested: -1,
	}
	p.cond = sync.NewCond(&p.mu)
	go p.loop()
	return p
}

// Request asks the presenter to make index the visible frame and returns
// immediately. A prior in-flight or pending request is superseded; only
// the most recent request's result is ever applied.
func (p *Presenter) Request(index int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	gen := p.gen.Add(1)
	p.lastRequested = index
	req := request{gen: gen, index: index}
	for {
		select {
		case p.requests <- req:
			return
		default:
		}
		select {
		case <-p.requests:
			// Dropped a pending request that was never started.
			p.supersededCount++
		default:
		}
	}
}

// Active returns the buffer the render loop should draw and the frame
// index it holds (-1 until the first flip). The critical section is a
// pointer read; it never waits on disk I/O or decode work.
func (p *Presenter) Active() (FrameBuffer, int) {
	p.mu.Lock()
	buf := p.bufs[p.activeBuf]
	idx := p.current
	p.mu.Unlock()
	return buf, idx
}

// Requested returns the index of the most recent request, -1 if none.
func (p *Presenter) Requested() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastRequested
}

// Phase returns the current state machine phase.
func (p *Presenter) Phase() Phase {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.phase
}

// Err returns and clears the most recent failure that affected the latest
// requested frame. Failures of superseded requests are logged instead.
func (p *Presenter) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.lastErr
	p.lastErr = nil
	return err
}

// Sync blocks until every request issued before the call has been applied
// or discarded. Session setup and tests use it; the render path never
// needs to.
func (p *Presenter) Sync() {
	target := p.gen.Load()
	p.mu.Lock()
	for p.appliedGen < target && !p.closed {
		p.cond.Wait()
	}
	p.mu.Unlock()
}

// Close stops the background worker. The active buffer stays readable.
func (p *Presenter) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()
	close(p.requests)
}

func (p *Presenter) loop() {
	for req := range p.requests {
		p.run(req)

		p.mu.Lock()
		if req.gen > p.appliedGen {
			p.appliedGen = req.gen
		}
		if p.phase == PhaseReady {
			p.phase = PhaseIdle
		}
		p.cond.Broadcast()
		p.mu.Unlock()
	}
}

func (p *Presenter) run(req request) {
	p.setPhase(PhaseDecoding)

	frame, err := p.cache.Load(context.Background(), req.index)
	if err != nil {
		p.fail(req, err)
		return
	}
	if p.discardIfSuperseded(req) { // after decode
		return
	}

	p.mu.Lock()
	inactive := 1 - p.activeBuf
	buf := p.bufs[inactive]
	p.phase = PhaseUploading
	p.mu.Unlock()

	if err := buf.Reset(); err != nil {
		p.fail(req, fmt.Errorf("%w: resetting buffer: %v", ErrResource, err))
		return
	}
	if p.discardIfSuperseded(req) { // after reset, before upload
		return
	}
	if err := buf.Upload(frame); err != nil {
		p.fail(req, fmt.Errorf("%w: uploading frame %d: %v", ErrResource, req.index, err))
		return
	}

	p.mu.Lock()
	if p.gen.Load() != req.gen { // before flip
		p.supersededCount++
		p.phase = PhaseIdle
		p.mu.Unlock()
		return
	}
	p.activeBuf = inactive
	p.current = req.index
	p.phase = PhaseReady
	p.mu.Unlock()

	p.cache.EvictOthers(req.index)
}

func (p *Presenter) setPhase(phase Phase) {
	p.mu.Lock()
	p.phase = phase
	p.mu.Unlock()
}

func (p *Presenter) discardIfSuperseded(req request) bool {
	if p.gen.Load() == req.gen {
		return false
	}
	p.mu.Lock()
	p.supersededCount++
	p.phase = PhaseIdle
	p.mu.Unlock()
	return true
}

// fail leaves the active buffer untouched. The failure surfaces through
// Err when it concerns the latest request; a failure that was already
// superseded is background noise and only logged. The cache has marked the
// index unavailable either way.
func (p *Presenter) fail(req request, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.phase = PhaseIdle
	if p.gen.Load() == req.gen {
		p.lastErr = err
		return
	}
	p.logger.Printf("splat: background decode of frame %d failed: %v", req.index, err)
}
