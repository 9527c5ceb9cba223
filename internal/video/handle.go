package video

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sethziin/stc/internal/core"
)

// Handle is the server-side model of the embedded companion player. The
// service cannot reach into the page directly, so it keeps the authoritative
// target state here; the page polls the companion endpoint and converges its
// local player onto it. Position advances with the wall clock while playing.
type Handle struct {
	mu       sync.Mutex
	videoID  string
	state    core.HandleState
	anchorMs int
	anchorAt time.Time
	logger   *zap.Logger

	now func() time.Time
}

// NewHandle creates an unloaded handle.
func NewHandle(logger *zap.Logger) *Handle {
	return &Handle{
		logger: logger,
		state:  core.HandleUnstarted,
		now:    time.Now,
	}
}

// Load implements core.PlaybackHandle. Loading resets position to zero in the
// paused state; the synchronizer seeks and starts playback afterwards.
func (h *Handle) Load(_ context.Context, videoID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.videoID = videoID
	h.state = core.HandlePaused
	h.anchorMs = 0
	h.anchorAt = h.now()

	h.logger.Debug("Companion video loaded", zap.String("videoID", videoID))
	return nil
}

// Play implements core.PlaybackHandle.
func (h *Handle) Play(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state == core.HandlePlaying {
		return nil
	}

	h.anchorMs = h.positionLocked()
	h.anchorAt = h.now()
	h.state = core.HandlePlaying
	return nil
}

// Pause implements core.PlaybackHandle.
func (h *Handle) Pause(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.anchorMs = h.positionLocked()
	h.anchorAt = h.now()
	h.state = core.HandlePaused
	return nil
}

// Seek implements core.PlaybackHandle.
func (h *Handle) Seek(_ context.Context, offsetMs int) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if offsetMs < 0 {
		offsetMs = 0
	}
	h.anchorMs = offsetMs
	h.anchorAt = h.now()
	return nil
}

// CurrentTimeMs implements core.PlaybackHandle.
func (h *Handle) CurrentTimeMs(_ context.Context) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.positionLocked(), nil
}

// State implements core.PlaybackHandle.
func (h *Handle) State(_ context.Context) (core.HandleState, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state, nil
}

// Companion reports the target state for the polling page.
func (h *Handle) Companion() (videoID string, positionMs int, playing bool, loaded bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.videoID == "" {
		return "", 0, false, false
	}
	return h.videoID, h.positionLocked(), h.state == core.HandlePlaying, true
}

func (h *Handle) positionLocked() int {
	if h.state != core.HandlePlaying {
		return h.anchorMs
	}
	return h.anchorMs + int(h.now().Sub(h.anchorAt)/time.Millisecond)
}
