package splat

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/kamstrup/intmap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/plus3/splatplay/splat/ply"
)

// Cache holds decoded frames for one sequence. In bounded mode (the
// default) at most one slot stays resident: after a frame has been handed
// to the presenter, every other slot is evicted, capping memory at one
// frame rather than the whole capture. Preload trades that bound away for
// zero per-frame decode latency on short sequences.
//
// A frame that fails to decode is marked permanently unavailable for the
// session; the original error is returned on every later request without
// touching the file again.
type Cache struct {
	seq       *Sequence
	batchSize int

	group singleflight.Group

	mu            sync.Mutex
	resident      *intmap.Map[uint32, *Frame]
	failed        *intmap.Map[uint32, error]
	failedIndices []int
	preloaded     bool
	residentBytes int64

	decodeCount int64
	minDecode   time.Duration
	maxDecode   time.Duration
	totalDecode time.Duration
	lastDecode  time.Duration
}

// NewCache creates a bounded cache over seq. batchSize bounds decoder
// batches; <= 0 selects ply.DefaultBatchSize.
func NewCache(seq *Sequence, batchSize int) *Cache {
	return &Cache{
		seq:       seq,
		batchSize: batchSize,
		resident:  intmap.New[uint32, *Frame](8),
		failed:    intmap.New[uint32, error](8),
		minDecode: time.Duration(1<<63 - 1),
	}
}

// Load returns the decoded frame for index, decoding on demand. Duplicate
// concurrent requests for the same not-yet-resident index join a single
// in-flight decode rather than decoding twice.
func (c *Cache) Load(ctx context.Context, index int) (*Frame, error) {
	path, err := c.seq.Path(index)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	if f, ok := c.resident.Get(uint32(index)); ok {
		c.mu.Unlock()
		return f, nil
	}
	if err, ok := c.failed.Get(uint32(index)); ok {
		c.mu.Unlock()
		return nil, err
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(strconv.Itoa(index), func() (any, error) {
		// Re-check under the key's flight: a joiner may arrive after the
		// winning decode already settled the slot.
		c.mu.Lock()
		if f, ok := c.resident.Get(uint32(index)); ok {
			c.mu.Unlock()
			return f, nil
		}
		if err, ok := c.failed.Get(uint32(index)); ok {
			c.mu.Unlock()
			return nil, err
		}
		c.mu.Unlock()

		start := time.Now()
		f, err := decodeFile(path, index, c.batchSize)
		elapsed := time.Since(start)

		c.mu.Lock()
		defer c.mu.Unlock()
		if err != nil {
			c.failed.Put(uint32(index), err)
			c.failedIndices = append(c.failedIndices, index)
			return nil, err
		}
		c.resident.Put(uint32(index), f)
		c.residentBytes += f.ByteSize()
		c.noteDecodeLocked(elapsed)
		return f, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Frame), nil
}

// EvictOthers empties every slot except keep. The presenter calls this
// once a frame has been flipped in; preloaded caches keep everything.
func (c *Cache) EvictOthers(keep int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.preloaded {
		return
	}
	kept, ok := c.resident.Get(uint32(keep))
	if ok && c.resident.Len() == 1 {
		return
	}
	c.resident = intmap.New[uint32, *Frame](8)
	c.residentBytes = 0
	if ok {
		c.resident.Put(uint32(keep), kept)
		c.residentBytes = kept.ByteSize()
	}
}

// Preload eagerly decodes every frame and pins them all for the session.
// Individual frame failures are recorded as permanently unavailable, not
// fatal; an error is returned only when no frame decoded at all.
func (c *Cache) Preload(ctx context.Context) error {
	c.mu.Lock()
	c.preloaded = true
	c.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := 0; i < c.seq.Len(); i++ {
		g.Go(func() error {
			_, _ = c.Load(ctx, i)
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.resident.Len() == 0 {
		return fmt.Errorf("%w: every frame in %q failed to decode", ErrDecode, c.seq.Dir)
	}
	return nil
}

// Unavailable reports whether index failed earlier this session.
func (c *Cache) Unavailable(index int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.failed.Get(uint32(index))
	return ok
}

// Resident reports whether index currently occupies a slot.
func (c *Cache) Resident(index int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.resident.Get(uint32(index))
	return ok
}

func (c *Cache) noteDecodeLocked(d time.Duration) {
	c.decodeCount++
	c.lastDecode = d
	c.totalDecode += d
	if d < c.minDecode {
		c.minDecode = d
	}
	if d > c.maxDecode {
		c.maxDecode = d
	}
}

func decodeFile(path string, index int, batchSize int) (*Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", ErrDecode, path, err)
	}
	defer f.Close()

	points, kind, err := ply.DecodeAll(f, batchSize)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return &Frame{Index: index, Source: path, Points: points, Colors: kind}, nil
}
