package splat

import (
	"context"
	"log"
	"sync"
	"time"
)

// Options configure a playback session. The zero value plays back in
// autoplay mode at DefaultFPS from frame 0, unpaused, with a bounded cache,
// default decode batches and in-memory render buffers.
type Options struct {
	// Mode selects autoplay or manual navigation for the session.
	Mode Mode

	// FPS is the autoplay target frame rate; <= 0 selects DefaultFPS.
	FPS float64

	// StartPaused opens the session with autoplay paused.
	StartPaused bool

	// InitialIndex is the first frame to present, for hosts resuming a
	// previous viewing position.
	InitialIndex int

	// Preload eagerly decodes the whole sequence at open time, trading
	// memory for zero per-frame decode latency. Only sensible for short
	// sequences.
	Preload bool

	// BatchSize bounds decoder batches; <= 0 selects ply.DefaultBatchSize.
	BatchSize int

	// Buffers supplies custom render buffers, e.g. GPU-backed ones. Nil
	// entries fall back to MemoryBuffer.
	Buffers [2]FrameBuffer

	// Logger receives background decode failures. Nil selects log.Default.
	Logger *log.Logger
}

// Session ties one frame sequence to a cache, a clock and a presenter. It
// is an explicit handle owned by the call site; nothing in this package
// keeps process-wide playback state.
//
// The host drives a session from its render loop: once per tick call
// Advance, then read Active (or ActiveFrame) to draw. Navigation calls may
// come from the same goroutine or another one; the render path itself
// never blocks on decode work.
type Session struct {
	seq    *Sequence
	cache  *Cache
	pres   *Presenter
	mode   Mode
	logger *log.Logger

	mu    sync.Mutex
	clock *Clock
}

// Open discovers the frame sequence in dir and prepares a session. The
// initial frame is decoded synchronously, so a bad directory, an empty
// sequence, an out-of-range start index or a corrupt first frame all
// surface here rather than mid-playback.
func Open(dir string, opts Options) (*Session, error) {
	seq, err := ScanSequence(dir)
	if err != nil {
		return nil, err
	}
	if opts.InitialIndex < 0 || opts.InitialIndex >= seq.Len() {
		return nil, &IndexOutOfRangeError{Index: opts.InitialIndex, Count: seq.Len()}
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	cache := NewCache(seq, opts.BatchSize)
	if opts.Preload {
		if err := cache.Preload(context.Background()); err != nil {
			return nil, err
		}
	}

	clock := NewClock(opts.Mode, seq.Len(), opts.FPS)
	clock.SetPaused(opts.StartPaused)
	if err := clock.Seek(opts.InitialIndex); err != nil {
		return nil, err
	}

	a, b := opts.Buffers[0], opts.Buffers[1]
	if a == nil {
		a = &MemoryBuffer{}
	}
	if b == nil {
		b = &MemoryBuffer{}
	}
	pres := NewPresenter(cache, a, b, logger)

	if _, err := cache.Load(context.Background(), opts.InitialIndex); err != nil {
		pres.Close()
		return nil, err
	}
	pres.Request(opts.InitialIndex)
	pres.Sync()
	if err := pres.Err(); err != nil {
		pres.Close()
		return nil, err
	}

	return &Session{
		seq:    seq,
		cache:  cache,
		pres:   pres,
		mode:   opts.Mode,
		logger: logger,
		clock:  clock,
	}, nil
}

// Advance drives the clock and the presenter state machine; the host calls
// it once per render tick, passing the current time, before reading the
// active buffer. It returns the first failure affecting the current target
// frame since the previous call; background failures of frames that were
// navigated away from are logged and their indices skipped for the rest of
// the session.
func (s *Session) Advance(now time.Time) error {
	s.mu.Lock()
	target := s.clock.Tick(now)
	if s.mode == ModeAutoplay && !s.clock.Paused() && s.cache.Unavailable(target) {
		target = s.skipUnavailableLocked(target)
	}
	s.mu.Unlock()

	if target != s.pres.Requested() {
		if _, shown := s.pres.Active(); target != shown {
			s.pres.Request(target)
		}
	}
	return s.pres.Err()
}

// skipUnavailableLocked advances past frames marked permanently
// unavailable, wrapping around. Losing frames must not stall autoplay of
// the rest; if somehow every frame failed, the target is kept and its
// error surfaces through Advance.
func (s *Session) skipUnavailableLocked(target int) int {
	n := s.seq.Len()
	for i := 1; i < n; i++ {
		cand := (target + i) % n
		if !s.cache.Unavailable(cand) {
			_ = s.clock.Seek(cand)
			return cand
		}
	}
	return target
}

// SetPaused pauses or resumes autoplay.
func (s *Session) SetPaused(paused bool) {
	s.mu.Lock()
	s.clock.SetPaused(paused)
	s.mu.Unlock()
}

// Paused reports whether autoplay is paused.
func (s *Session) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock.Paused()
}

// Next requests the frame after the currently displayed one, wrapping
// around, and returns the target index. Like all navigation it is
// last-request-wins: a request issued while an earlier one is still being
// serviced supersedes it, and the earlier result is discarded.
func (s *Session) Next() int {
	s.mu.Lock()
	target := (s.displayedOrClockLocked() + 1) % s.seq.Len()
	_ = s.clock.Seek(target)
	s.mu.Unlock()
	s.pres.Request(target)
	return target
}

// Previous requests the frame before the currently displayed one, wrapping
// around, and returns the target index.
func (s *Session) Previous() int {
	s.mu.Lock()
	n := s.seq.Len()
	target := (s.displayedOrClockLocked() - 1 + n) % n
	_ = s.clock.Seek(target)
	s.mu.Unlock()
	s.pres.Request(target)
	return target
}

// Seek requests an explicit frame index.
func (s *Session) Seek(index int) error {
	s.mu.Lock()
	if err := s.clock.Seek(index); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()
	s.pres.Request(index)
	return nil
}

// displayedOrClockLocked is the base for relative navigation: the frame
// the renderer currently shows, or the clock target before the first flip.
func (s *Session) displayedOrClockLocked() int {
	if _, shown := s.pres.Active(); shown >= 0 {
		return shown
	}
	return s.clock.Index()
}

// CurrentIndex returns the current playback target index.
func (s *Session) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock.Index()
}

// FrameCount returns the number of frames in the sequence.
func (s *Session) FrameCount() int { return s.seq.Len() }

// Active returns the render buffer to draw and the frame index it holds.
// This is the render loop's read path: a pointer-sized critical section,
// no I/O.
func (s *Session) Active() (FrameBuffer, int) { return s.pres.Active() }

// ActiveFrame returns the frame in the active buffer when the default
// MemoryBuffer is in use; nil otherwise, or before the first flip.
func (s *Session) ActiveFrame() *Frame {
	buf, _ := s.pres.Active()
	if mb, ok := buf.(*MemoryBuffer); ok {
		return mb.Frame()
	}
	return nil
}

// Sync blocks until all issued requests have been applied or discarded.
// Intended for tests and teardown, not the render path.
func (s *Session) Sync() { s.pres.Sync() }

// Close stops background work. The active buffer stays readable.
func (s *Session) Close() { s.pres.Close() }
