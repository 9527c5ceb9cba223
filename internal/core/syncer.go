package core

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Syncer keeps a companion playback handle aligned with the primary stream's
// estimated offset. Corrections are gated by a drift threshold (hysteresis)
// and a cooldown between seeks, because the companion clock is not perfectly
// steady and the primary offset is only sampled periodically: correcting on
// every tick causes visible seek-thrashing.
type Syncer struct {
	handle      PlaybackHandle
	logger      *zap.Logger
	thresholdMs int
	cooldown    time.Duration

	mu             sync.Mutex
	loadedVideoID  string
	loadedTrackID  string
	lastCorrection time.Time
	playing        bool

	now func() time.Time
}

func NewSyncer(handle PlaybackHandle, thresholdMs int, cooldown time.Duration, logger *zap.Logger) *Syncer {
	return &Syncer{
		handle:      handle,
		logger:      logger,
		thresholdMs: thresholdMs,
		cooldown:    cooldown,
		now:         time.Now,
	}
}

// Loaded reports whether a companion video is currently loaded.
func (s *Syncer) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadedVideoID != ""
}

// LoadedTrackID returns the primary track the loaded video belongs to.
func (s *Syncer) LoadedTrackID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadedTrackID
}

// Load transitions to the loaded state for a new track: load the video, seek
// to the current offset, and match the primary play state. Prior sync state
// is discarded.
func (s *Syncer) Load(ctx context.Context, trackID, videoID string, offsetMs int, playing bool) error {
	if err := s.handle.Load(ctx, videoID); err != nil {
		return err
	}
	if err := s.handle.Seek(ctx, offsetMs); err != nil {
		return err
	}

	var err error
	if playing {
		err = s.handle.Play(ctx)
	} else {
		err = s.handle.Pause(ctx)
	}
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.loadedVideoID = videoID
	s.loadedTrackID = trackID
	s.lastCorrection = s.now()
	s.playing = playing
	s.mu.Unlock()

	s.logger.Info("Companion video loaded",
		zap.String("trackID", trackID),
		zap.String("videoID", videoID),
		zap.Int("offsetMs", offsetMs),
		zap.Bool("playing", playing))

	return nil
}

// Unload discards the loaded video and pauses the handle. Used when the track
// changes and no companion video exists for the new one.
func (s *Syncer) Unload(ctx context.Context) {
	s.mu.Lock()
	wasLoaded := s.loadedVideoID != ""
	s.loadedVideoID = ""
	s.loadedTrackID = ""
	s.mu.Unlock()

	if !wasLoaded {
		return
	}

	if err := s.handle.Pause(ctx); err != nil {
		s.logger.Debug("Failed to pause companion on unload", zap.Error(err))
	}
}

// SetPlaying propagates a primary play/pause transition to the companion and
// forces a re-anchoring seek, bypassing the cooldown.
func (s *Syncer) SetPlaying(ctx context.Context, playing bool, offsetMs int) error {
	s.mu.Lock()
	if s.loadedVideoID == "" || s.playing == playing {
		s.mu.Unlock()
		return nil
	}
	s.playing = playing
	s.mu.Unlock()

	var err error
	if playing {
		err = s.handle.Play(ctx)
	} else {
		err = s.handle.Pause(ctx)
	}
	if err != nil {
		return err
	}

	s.correct(ctx, offsetMs, true)
	return nil
}

// CheckDrift performs the periodic drift check against the estimated offset.
// Returns true when a corrective seek was issued.
func (s *Syncer) CheckDrift(ctx context.Context, estimatedMs int) (bool, error) {
	s.mu.Lock()
	loaded := s.loadedVideoID != ""
	s.mu.Unlock()

	if !loaded {
		return false, nil
	}

	corrected := s.correct(ctx, estimatedMs, false)
	return corrected, nil
}

func (s *Syncer) correct(ctx context.Context, estimatedMs int, forced bool) bool {
	companionMs, err := s.handle.CurrentTimeMs(ctx)
	if err != nil {
		s.logger.Debug("Failed to read companion time", zap.Error(err))
		return false
	}

	drift := companionMs - estimatedMs
	if drift < 0 {
		drift = -drift
	}

	if !forced {
		if drift <= s.thresholdMs {
			return false
		}

		s.mu.Lock()
		inCooldown := s.now().Sub(s.lastCorrection) < s.cooldown
		s.mu.Unlock()
		if inCooldown {
			s.logger.Debug("Drift above threshold but inside correction cooldown",
				zap.Int("driftMs", drift))
			return false
		}
	}

	if err := s.handle.Seek(ctx, estimatedMs); err != nil {
		s.logger.Warn("Corrective seek failed", zap.Error(err))
		return false
	}

	s.mu.Lock()
	s.lastCorrection = s.now()
	s.mu.Unlock()

	s.logger.Debug("Issued corrective seek",
		zap.Int("driftMs", drift),
		zap.Int("targetMs", estimatedMs),
		zap.Bool("forced", forced))

	return true
}
