package splat

import "time"

// SessionStats is a point-in-time snapshot of playback and cache state,
// for debug overlays and stress reports.
type SessionStats struct {
	FrameCount     int
	CurrentIndex   int
	DisplayedIndex int
	Paused         bool
	Phase          Phase

	ResidentFrames int
	ResidentBytes  int64

	DecodeCount int64
	MinDecode   time.Duration
	MaxDecode   time.Duration
	AvgDecode   time.Duration
	LastDecode  time.Duration

	Superseded    int64
	FailedIndices []int
}

// CollectStats gathers a consistent-enough snapshot for display. Each
// subsystem is sampled under its own lock; the values are advisory, not a
// transaction.
func (s *Session) CollectStats() SessionStats {
	var stats SessionStats
	stats.FrameCount = s.seq.Len()

	s.mu.Lock()
	stats.CurrentIndex = s.clock.Index()
	stats.Paused = s.clock.Paused()
	s.mu.Unlock()

	s.cache.collectStats(&stats)
	s.pres.collectStats(&stats)
	return stats
}

func (c *Cache) collectStats(into *SessionStats) {
	c.mu.Lock()
	defer c.mu.Unlock()
	into.ResidentFrames = c.resident.Len()
	into.ResidentBytes = c.residentBytes
	into.DecodeCount = c.decodeCount
	if c.decodeCount > 0 {
		into.MinDecode = c.minDecode
		into.MaxDecode = c.maxDecode
		into.AvgDecode = c.totalDecode / time.Duration(c.decodeCount)
		into.LastDecode = c.lastDecode
	}
	into.FailedIndices = append([]int(nil), c.failedIndices...)
}

func (p *Presenter) collectStats(into *SessionStats) {
	p.mu.Lock()
	defer p.mu.Unlock()
	into.DisplayedIndex = p.current
	into.Phase = p.phase
	into.Superseded = p.supersededCount
}
