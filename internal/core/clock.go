package core

import (
	"sync"
	"time"
)

// ClockModel maintains the believed playback offset between polls. Each new
// snapshot replaces the model state wholesale, so partial updates can never
// accumulate drift.
type ClockModel struct {
	mu       sync.RWMutex
	snapshot *PlaybackSnapshot
}

func NewClockModel() *ClockModel {
	return &ClockModel{}
}

// Observe replaces the model state with a fresh snapshot.
func (c *ClockModel) Observe(snapshot *PlaybackSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = snapshot
}

// Snapshot returns the last observed snapshot, or nil before the first poll.
func (c *ClockModel) Snapshot() *PlaybackSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

// EstimateOffsetMs extrapolates the current track offset at the given wall
// clock time. While playing, the estimate advances with elapsed wall time and
// is clamped at the track duration (the track likely ended; the next poll
// corrects). While paused or with no snapshot, the estimate is frozen.
func (c *ClockModel) EstimateOffsetMs(now time.Time) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.snapshot == nil {
		return 0
	}

	offset := c.snapshot.ProgressMs
	if c.snapshot.IsPlaying {
		elapsed := now.Sub(c.snapshot.ObservedAt)
		if elapsed > 0 {
			offset += int(elapsed.Milliseconds())
		}
	}

	if c.snapshot.DurationMs > 0 && offset > c.snapshot.DurationMs {
		offset = c.snapshot.DurationMs
	}

	return offset
}
