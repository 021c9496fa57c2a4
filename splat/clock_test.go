package splat_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plus3/splatplay/splat"
)

func TestClockAdvancesByElapsedTime(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := splat.NewClock(splat.ModeAutoplay, 100, 10)

	// First tick only establishes the origin.
	assert.Equal(t, 0, clock.Tick(base))

	// 0.5s at 10fps lands exactly 5 frames in.
	assert.Equal(t, 5, clock.Tick(base.Add(500*time.Millisecond)))
}

func TestClockSkipsFramesWhenConsumerIsSlow(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := splat.NewClock(splat.ModeAutoplay, 100, 10)
	clock.Tick(base)

	// A 350ms stall is 3.5 frame periods: advance 3, keep the half.
	assert.Equal(t, 3, clock.Tick(base.Add(350*time.Millisecond)))
	assert.Equal(t, 4, clock.Tick(base.Add(450*time.Millisecond)))
}

func TestClockKeepsFractionalRemainder(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := splat.NewClock(splat.ModeAutoplay, 100, 10)
	clock.Tick(base)

	// Two 150ms ticks are 3 frame periods in total, not 2: the 50ms
	// left over from the first tick must carry into the second.
	assert.Equal(t, 1, clock.Tick(base.Add(150*time.Millisecond)))
	assert.Equal(t, 3, clock.Tick(base.Add(300*time.Millisecond)))
}

func TestClockWrapsAround(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := splat.NewClock(splat.ModeAutoplay, 4, 10)
	clock.Tick(base)

	assert.Equal(t, 2, clock.Tick(base.Add(time.Second)), "10 steps over 4 frames")
}

func TestClockPausedHoldsAndResumesWithoutJump(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := splat.NewClock(splat.ModeAutoplay, 100, 10)
	clock.Tick(base)

	clock.SetPaused(true)
	assert.True(t, clock.Paused())
	assert.Equal(t, 0, clock.Tick(base.Add(10*time.Second)))

	// Time spent paused must not be replayed on resume.
	clock.SetPaused(false)
	assert.Equal(t, 0, clock.Tick(base.Add(10*time.Second+50*time.Millisecond)))
	assert.Equal(t, 1, clock.Tick(base.Add(10*time.Second+150*time.Millisecond)))
}

func TestClockManualIgnoresTime(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := splat.NewClock(splat.ModeManual, 5, 10)

	clock.Tick(base)
	assert.Equal(t, 0, clock.Tick(base.Add(time.Minute)))

	assert.Equal(t, 1, clock.Next())
	assert.Equal(t, 0, clock.Previous())
	assert.Equal(t, 4, clock.Previous(), "previous from zero wraps to the end")
	assert.Equal(t, 0, clock.Next())
}

func TestClockSeek(t *testing.T) {
	clock := splat.NewClock(splat.ModeManual, 5, 10)

	require.NoError(t, clock.Seek(3))
	assert.Equal(t, 3, clock.Index())

	err := clock.Seek(5)
	var oob *splat.IndexOutOfRangeError
	require.ErrorAs(t, err, &oob)
	assert.Equal(t, 5, oob.Index)
	assert.ErrorIs(t, clock.Seek(-1), splat.ErrInput)
}

func TestClockRequiresFrames(t *testing.T) {
	assert.Panics(t, func() {
		splat.NewClock(splat.ModeAutoplay, 0, 30)
	})
}
