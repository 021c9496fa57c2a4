package splat_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plus3/splatplay/splat"
)

// gatedBuffer blocks each upload until the test feeds a token, pinning the
// presenter's worker mid-flight so supersession interleavings become
// deterministic.
type gatedBuffer struct {
	splat.MemoryBuffer
	gate chan struct{}
}

func (b *gatedBuffer) Upload(frame *splat.Frame) error {
	<-b.gate
	return b.MemoryBuffer.Upload(frame)
}

// errorBuffer refuses every upload.
type errorBuffer struct {
	splat.MemoryBuffer
}

func (b *errorBuffer) Upload(frame *splat.Frame) error {
	return errors.New("device lost")
}

func newTestCache(t *testing.T, frames int) *splat.Cache {
	t.Helper()
	dir := t.TempDir()
	writeFrames(t, dir, frames)
	seq, err := splat.ScanSequence(dir)
	require.NoError(t, err)
	return splat.NewCache(seq, 0)
}

func TestPresenterFirstFlip(t *testing.T) {
	cache := newTestCache(t, 3)
	a, b := &splat.MemoryBuffer{}, &splat.MemoryBuffer{}
	p := splat.NewPresenter(cache, a, b, quietLogger())
	defer p.Close()

	_, idx := p.Active()
	assert.Equal(t, -1, idx, "nothing is displayed before the first flip")

	p.Request(1)
	p.Sync()

	buf, idx := p.Active()
	assert.Equal(t, 1, idx)
	require.NoError(t, p.Err())
	frame := buf.(*splat.MemoryBuffer).Frame()
	require.NotNil(t, frame)
	assert.Equal(t, 1, frame.Index)
	assert.Equal(t, splat.PhaseIdle, p.Phase())
}

func TestPresenterLastRequestWins(t *testing.T) {
	cache := newTestCache(t, 5)
	p := splat.NewPresenter(cache, &splat.MemoryBuffer{}, &splat.MemoryBuffer{}, quietLogger())
	defer p.Close()

	for i := 0; i < 5; i++ {
		p.Request(i)
	}
	assert.Equal(t, 4, p.Requested())
	p.Sync()

	_, idx := p.Active()
	assert.Equal(t, 4, idx, "only the most recent request may settle")
}

func TestPresenterSupersededInFlight(t *testing.T) {
	cache := newTestCache(t, 3)
	gate := make(chan struct{}, 4)
	p := splat.NewPresenter(cache, &gatedBuffer{gate: gate}, &gatedBuffer{gate: gate}, quietLogger())
	defer p.Close()

	p.Request(1)
	require.Eventually(t, func() bool {
		return p.Phase() == splat.PhaseUploading
	}, time.Second, time.Millisecond, "worker should be pinned in upload")

	// Frame 1 is decoded and mid-upload; this supersedes it.
	p.Request(2)
	gate <- struct{}{}
	gate <- struct{}{}
	p.Sync()

	_, idx := p.Active()
	assert.Equal(t, 2, idx)
}

func TestPresenterRequestNeverBlocks(t *testing.T) {
	cache := newTestCache(t, 3)
	gate := make(chan struct{}, 8)
	p := splat.NewPresenter(cache, &gatedBuffer{gate: gate}, &gatedBuffer{gate: gate}, quietLogger())
	defer p.Close()

	// With the gate shut the worker wedges on the first upload; every
	// further request must still return immediately, displacing the
	// previously pending one.
	p.Request(0)
	for i := 0; i < 100; i++ {
		p.Request(i % 3)
	}
	p.Request(2)

	for i := 0; i < 4; i++ {
		gate <- struct{}{}
	}
	p.Sync()

	_, idx := p.Active()
	assert.Equal(t, 2, idx)
}

func TestPresenterDecodeFailureKeepsActiveFrame(t *testing.T) {
	dir := t.TempDir()
	writeFrames(t, dir, 3)
	corruptFrame(t, dir, 2)
	seq, err := splat.ScanSequence(dir)
	require.NoError(t, err)
	cache := splat.NewCache(seq, 0)

	p := splat.NewPresenter(cache, &splat.MemoryBuffer{}, &splat.MemoryBuffer{}, quietLogger())
	defer p.Close()

	p.Request(0)
	p.Sync()
	require.NoError(t, p.Err())

	p.Request(2)
	p.Sync()

	err = p.Err()
	require.Error(t, err)
	assert.ErrorIs(t, err, splat.ErrFormat)
	assert.NoError(t, p.Err(), "the error is delivered once, then cleared")

	_, idx := p.Active()
	assert.Equal(t, 0, idx, "a failed request must not disturb the displayed frame")
}

func TestPresenterUploadFailure(t *testing.T) {
	cache := newTestCache(t, 2)
	p := splat.NewPresenter(cache, &errorBuffer{}, &errorBuffer{}, quietLogger())
	defer p.Close()

	p.Request(0)
	p.Sync()

	err := p.Err()
	require.Error(t, err)
	assert.ErrorIs(t, err, splat.ErrResource)

	_, idx := p.Active()
	assert.Equal(t, -1, idx)
}

func TestPresenterNilBufferPanics(t *testing.T) {
	cache := newTestCache(t, 1)
	assert.Panics(t, func() {
		splat.NewPresenter(cache, &splat.MemoryBuffer{}, nil, quietLogger())
	})
}

func BenchmarkPresenterFlip(b *testing.B) {
	dir := b.TempDir()
	writeFrames(b, dir, 2)
	seq, err := splat.ScanSequence(dir)
	if err != nil {
		b.Fatal(err)
	}
	cache := splat.NewCache(seq, 0)
	if err := cache.Preload(context.Background()); err != nil {
		b.Fatal(err)
	}
	p := splat.NewPresenter(cache, &splat.MemoryBuffer{}, &splat.MemoryBuffer{}, quietLogger())
	defer p.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.Request(i % 2)
		p.Sync()
	}
}
