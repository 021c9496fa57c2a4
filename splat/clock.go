package splat

import "time"

// DefaultFPS is the autoplay rate used when Options.FPS is zero.
const DefaultFPS = 30

// Mode selects how a session's clock advances. The two modes are mutually
// exclusive per session.
type Mode uint8

const (
	// ModeAutoplay advances with wall-clock time at a fixed frame rate.
	ModeAutoplay Mode = iota

	// ModeManual advances only on explicit Next/Previous/Seek requests.
	ModeManual
)

// Clock owns the playback index. In autoplay it accumulates elapsed
// wall-clock time and advances floor(elapsed/frameDuration) frames per
// tick, so a slow consumer skips frames to stay in sync instead of
// degrading to a fixed +1 step. The fractional remainder stays in the
// accumulator.
//
// Clock is not safe for concurrent use; the session serializes access.
type Clock struct {
	mode       Mode
	frameCount int
	frameDur   time.Duration
	index      int
	paused     bool
	last       time.Time
}

// NewClock creates a clock over frameCount frames. fps <= 0 selects
// DefaultFPS. Panics if frameCount is not positive.
func NewClock(mode Mode, frameCount int, fps float64) *Clock {
	if frameCount <= 0 {
		panic("splat: clock needs at least one frame")
	}
	if fps <= 0 {
		fps = DefaultFPS
	}
	return &Clock{
		mode:       mode,
		frameCount: frameCount,
		frameDur:   time.Duration(float64(time.Second) / fps),
	}
}

// Tick advances an autoplay clock to now and returns the target index.
// Manual or paused clocks only update the accumulator origin, so that
// resuming does not jump.
func (c *Clock) Tick(now time.Time) int {
	if c.mode != ModeAutoplay || c.paused || c.last.IsZero() {
		c.last = now
		return c.index
	}
	steps := int(now.Sub(c.last) / c.frameDur)
	if steps <= 0 {
		return c.index
	}
	c.index = (c.index + steps) % c.frameCount
	c.last = c.last.Add(time.Duration(steps) * c.frameDur)
	return c.index
}

// Next steps the index forward with wraparound and returns it.
func (c *Clock) Next() int {
	c.index = (c.index + 1) % c.frameCount
	c.last = time.Time{}
	return c.index
}

// Previous steps the index backward with wraparound and returns it.
func (c *Clock) Previous() int {
	c.index = (c.index - 1 + c.frameCount) % c.frameCount
	c.last = time.Time{}
	return c.index
}

// Seek jumps to index.
func (c *Clock) Seek(index int) error {
	if index < 0 || index >= c.frameCount {
		return &IndexOutOfRangeError{Index: index, Count: c.frameCount}
	}
	c.index = index
	c.last = time.Time{}
	return nil
}

// Index returns the current target index.
func (c *Clock) Index() int { return c.index }

// SetPaused pauses or resumes autoplay advancement.
func (c *Clock) SetPaused(paused bool) { c.paused = paused }

// Paused reports whether autoplay advancement is paused.
func (c *Clock) Paused() bool { return c.paused }
