package splat

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plus3/splatplay/splat/ply"
)

func writeTestSequence(t *testing.T, dir string, frames, pointsPer int) {
	t.Helper()
	for i := 0; i < frames; i++ {
		points := make([]ply.Point, pointsPer)
		for j := range points {
			points[j].Position = [3]float32{float32(i), float32(j), 1}
			points[j].LogScale = [3]float32{-4, -4, -4}
			points[j].Rotation = [4]float32{1, 0, 0, 0}
		}
		path := filepath.Join(dir, fmt.Sprintf("frame_%06d.ply", i+1))
		f, err := os.Create(path)
		require.NoError(t, err)
		require.NoError(t, ply.Encode(f, points, ply.ColorSH))
		require.NoError(t, f.Close())
	}
}

// corruptTestFrame replaces one frame with a truncated header.
func corruptTestFrame(t *testing.T, dir string, index int) {
	t.Helper()
	path := filepath.Join(dir, fmt.Sprintf("frame_%06d.ply", index+1))
	garbage := []byte("ply\nformat binary_little_endian 1.0\nelement vertex 9\nproperty float x\n")
	require.NoError(t, os.WriteFile(path, garbage, 0o644))
}

func scanTestSequence(t *testing.T, dir string) *Sequence {
	t.Helper()
	seq, err := ScanSequence(dir)
	require.NoError(t, err)
	return seq
}

func TestCacheLoadAndBoundedEviction(t *testing.T) {
	dir := t.TempDir()
	writeTestSequence(t, dir, 4, 10)
	cache := NewCache(scanTestSequence(t, dir), 0)

	f0, err := cache.Load(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 0, f0.Index)
	assert.Len(t, f0.Points, 10)
	assert.Equal(t, float32(0), f0.Points[0].Position[0])

	// A second load of a resident frame returns the same decode.
	again, err := cache.Load(context.Background(), 0)
	require.NoError(t, err)
	assert.Same(t, f0, again)

	f1, err := cache.Load(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, float32(1), f1.Points[0].Position[0])

	// Presentation of frame 1 evicts everything else.
	cache.EvictOthers(1)
	assert.False(t, cache.Resident(0))
	assert.True(t, cache.Resident(1))
	assert.Equal(t, f1.ByteSize(), cache.residentBytes)

	for i := 0; i < 4; i++ {
		if i != 1 {
			assert.False(t, cache.Resident(i), "slot %d should be empty", i)
		}
	}
}

func TestCacheJoinsConcurrentLoads(t *testing.T) {
	dir := t.TempDir()
	writeTestSequence(t, dir, 1, 5000)
	cache := NewCache(scanTestSequence(t, dir), 0)

	const loaders = 16
	frames := make([]*Frame, loaders)
	var wg sync.WaitGroup
	for i := 0; i < loaders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f, err := cache.Load(context.Background(), 0)
			assert.NoError(t, err)
			frames[i] = f
		}()
	}
	wg.Wait()

	for i := 1; i < loaders; i++ {
		assert.Same(t, frames[0], frames[i])
	}
	assert.Equal(t, int64(1), cache.decodeCount, "duplicate requests must join one decode")
}

func TestCacheFailedFrameIsPermanentlyUnavailable(t *testing.T) {
	dir := t.TempDir()
	writeTestSequence(t, dir, 3, 5)
	corruptTestFrame(t, dir, 1)
	cache := NewCache(scanTestSequence(t, dir), 0)

	_, err := cache.Load(context.Background(), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFormat)
	assert.True(t, cache.Unavailable(1))

	// Even after the file is repaired, the session does not retry: a
	// corrupt frame is assumed corrupt for the whole session.
	writeTestSequence(t, dir, 3, 5)
	_, err = cache.Load(context.Background(), 1)
	assert.Error(t, err)
	assert.Equal(t, int64(0), cache.decodeCount)
}

func TestCacheLoadOutOfRange(t *testing.T) {
	dir := t.TempDir()
	writeTestSequence(t, dir, 2, 5)
	cache := NewCache(scanTestSequence(t, dir), 0)

	_, err := cache.Load(context.Background(), 7)
	var oob *IndexOutOfRangeError
	require.ErrorAs(t, err, &oob)
	assert.Equal(t, 7, oob.Index)
}

func TestCachePreloadPinsEverything(t *testing.T) {
	dir := t.TempDir()
	writeTestSequence(t, dir, 5, 10)
	cache := NewCache(scanTestSequence(t, dir), 0)

	require.NoError(t, cache.Preload(context.Background()))
	for i := 0; i < 5; i++ {
		assert.True(t, cache.Resident(i), "frame %d should be preloaded", i)
	}

	// Eviction is a no-op for preloaded caches.
	cache.EvictOthers(2)
	for i := 0; i < 5; i++ {
		assert.True(t, cache.Resident(i))
	}
}

func TestCachePreloadSurvivesCorruptFrame(t *testing.T) {
	dir := t.TempDir()
	writeTestSequence(t, dir, 4, 10)
	corruptTestFrame(t, dir, 2)
	cache := NewCache(scanTestSequence(t, dir), 0)

	require.NoError(t, cache.Preload(context.Background()))
	assert.True(t, cache.Resident(0))
	assert.True(t, cache.Resident(1))
	assert.False(t, cache.Resident(2))
	assert.True(t, cache.Resident(3))
	assert.True(t, cache.Unavailable(2))
}

func TestCachePreloadFailsWhenNothingDecodes(t *testing.T) {
	dir := t.TempDir()
	writeTestSequence(t, dir, 2, 5)
	corruptTestFrame(t, dir, 0)
	corruptTestFrame(t, dir, 1)
	cache := NewCache(scanTestSequence(t, dir), 0)

	err := cache.Preload(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDecode)
}
