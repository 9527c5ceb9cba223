package core

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Engine runs the synchronization loop: a snapshot poll, a lyric scheduler
// tick, and a companion drift check, each on its own timer so a slow upstream
// never delays the others. Within one poll cycle the snapshot observation
// happens before lyric resolution and video lookup are triggered.
type Engine struct {
	config   *SyncConfig
	fetcher  SnapshotFetcher
	resolver LyricResolver
	locator  VideoLocator
	syncer   *Syncer
	clock    *ClockModel
	recorder Recorder
	logger   *zap.Logger

	mu        sync.RWMutex
	trackID   string
	lyrics    LyricSet
	resolved  bool
	activeIdx int
}

// NewEngine wires the engine. locator and syncer may be nil together to run
// without the companion video feature; recorder may be nil.
func NewEngine(
	config *SyncConfig,
	fetcher SnapshotFetcher,
	resolver LyricResolver,
	locator VideoLocator,
	syncer *Syncer,
	recorder Recorder,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		config:    config,
		fetcher:   fetcher,
		resolver:  resolver,
		locator:   locator,
		syncer:    syncer,
		clock:     NewClockModel(),
		recorder:  recorder,
		logger:    logger,
		activeIdx: -1,
	}
}

// Run drives the three timers until the context is cancelled. Only an
// AuthError from the snapshot fetcher terminates the run; every other upstream
// failure degrades to "state frozen until the next successful poll".
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("Starting sync engine",
		zap.Duration("pollInterval", e.config.PollInterval),
		zap.Duration("lyricTick", e.config.LyricTick),
		zap.Duration("driftTick", e.config.DriftTick))

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error { return e.pollLoop(gCtx) })
	g.Go(func() error { return e.lyricLoop(gCtx) })
	if e.syncer != nil {
		g.Go(func() error { return e.driftLoop(gCtx) })
	}

	err := g.Wait()
	e.logger.Info("Sync engine stopped")
	return err
}

func (e *Engine) pollLoop(ctx context.Context) error {
	if err := e.pollOnce(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(e.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := e.pollOnce(ctx); err != nil {
				return err
			}
		}
	}
}

func (e *Engine) pollOnce(ctx context.Context) error {
	snapshot, err := e.fetcher.CurrentlyPlaying(ctx)
	if err != nil {
		if IsAuthError(err) {
			return err
		}
		// Transient upstream failure: keep the prior lyric and video state
		// frozen and retry on the next tick.
		e.record(func(r Recorder) { r.RecordPoll("error") })
		e.logger.Warn("Snapshot poll failed", zap.Error(err))
		return nil
	}

	e.record(func(r Recorder) {
		r.RecordPoll("ok")
		r.SetPlaying(snapshot.IsPlaying)
	})

	prior := e.clock.Snapshot()
	e.clock.Observe(snapshot)

	trackChanged := prior == nil || !prior.SameTrack(snapshot)
	playChanged := prior != nil && prior.IsPlaying != snapshot.IsPlaying

	if trackChanged {
		e.onTrackChange(ctx, snapshot)
		return nil
	}

	if playChanged && e.syncer != nil {
		offset := e.clock.EstimateOffsetMs(time.Now())
		if err := e.syncer.SetPlaying(ctx, snapshot.IsPlaying, offset); err != nil {
			e.logger.Warn("Failed to propagate play state to companion", zap.Error(err))
			e.record(func(r Recorder) { r.RecordError("syncer", "playstate") })
		}
	}

	return nil
}

func (e *Engine) onTrackChange(ctx context.Context, snapshot *PlaybackSnapshot) {
	e.mu.Lock()
	e.trackID = snapshot.TrackID
	e.lyrics = nil
	e.resolved = false
	e.activeIdx = -1
	e.mu.Unlock()

	if snapshot.TrackID == "" {
		if e.syncer != nil {
			e.syncer.Unload(ctx)
		}
		e.logger.Info("Nothing playing")
		return
	}

	e.logger.Info("Track changed",
		zap.String("trackID", snapshot.TrackID),
		zap.String("title", snapshot.TrackTitle),
		zap.Strings("artists", snapshot.Artists))

	// Both lookups run async so a slow lyric source cannot delay the next
	// poll. Results are discarded if the track changed again in flight.
	go e.resolveLyrics(ctx, snapshot)
	if e.locator != nil && e.syncer != nil {
		go e.locateVideo(ctx, snapshot)
	}
}

func (e *Engine) resolveLyrics(ctx context.Context, snapshot *PlaybackSnapshot) {
	artist := strings.Join(snapshot.Artists, ", ")
	set, err := e.resolver.Resolve(ctx, snapshot.TrackTitle, artist, snapshot.DurationMs)
	if err != nil {
		e.logger.Warn("Lyric resolution failed",
			zap.String("trackID", snapshot.TrackID),
			zap.Error(err))
		e.record(func(r Recorder) { r.RecordError("lyrics", "resolve") })
		set = nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.trackID != snapshot.TrackID {
		e.logger.Debug("Discarding stale lyric resolution",
			zap.String("resolvedFor", snapshot.TrackID),
			zap.String("current", e.trackID))
		return
	}

	e.lyrics = set
	e.resolved = true
	e.activeIdx = -1
}

func (e *Engine) locateVideo(ctx context.Context, snapshot *PlaybackSnapshot) {
	artist := strings.Join(snapshot.Artists, ", ")
	videoID, err := e.locator.Find(ctx, snapshot.TrackTitle, artist, snapshot.DurationMs)
	if err != nil {
		e.logger.Debug("Companion video lookup failed", zap.Error(err))
		e.record(func(r Recorder) { r.RecordError("video", "lookup") })
		return
	}

	e.mu.RLock()
	stale := e.trackID != snapshot.TrackID
	e.mu.RUnlock()
	if stale {
		return
	}

	if videoID == "" {
		// No companion video for this track: a normal terminal outcome.
		e.syncer.Unload(ctx)
		return
	}

	offset := e.clock.EstimateOffsetMs(time.Now())
	if err := e.syncer.Load(ctx, snapshot.TrackID, videoID, offset, snapshot.IsPlaying); err != nil {
		e.logger.Warn("Failed to load companion video",
			zap.String("videoID", videoID),
			zap.Error(err))
		e.record(func(r Recorder) { r.RecordError("syncer", "load") })
	}
}

func (e *Engine) lyricLoop(ctx context.Context) error {
	ticker := time.NewTicker(e.config.LyricTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			e.lyricTick(time.Now())
		}
	}
}

func (e *Engine) lyricTick(now time.Time) {
	offset := e.clock.EstimateOffsetMs(now)

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.resolved || len(e.lyrics) == 0 {
		e.activeIdx = -1
		return
	}

	idx := ActiveLine(e.lyrics, offset)
	if idx != e.activeIdx {
		e.activeIdx = idx
		if idx >= 0 {
			e.logger.Debug("Lyric line advanced",
				zap.Int("index", idx),
				zap.Int("offsetMs", offset))
		}
	}
}

func (e *Engine) driftLoop(ctx context.Context) error {
	ticker := time.NewTicker(e.config.DriftTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			e.driftTick(ctx)
		}
	}
}

func (e *Engine) driftTick(ctx context.Context) {
	snapshot := e.clock.Snapshot()
	if snapshot == nil || !snapshot.IsPlaying {
		return
	}

	corrected, err := e.syncer.CheckDrift(ctx, e.clock.EstimateOffsetMs(time.Now()))
	if err != nil {
		e.logger.Debug("Drift check failed", zap.Error(err))
		return
	}
	if corrected {
		e.record(func(r Recorder) { r.RecordCorrection(false) })
	}
}

// View returns the current playback read model for the presentation layer.
func (e *Engine) View() CurrentPlaybackView {
	snapshot := e.clock.Snapshot()
	if snapshot == nil {
		return CurrentPlaybackView{}
	}

	e.mu.RLock()
	hasLyrics := e.resolved && len(e.lyrics) > 0
	e.mu.RUnlock()

	return CurrentPlaybackView{
		IsPlaying:  snapshot.IsPlaying,
		TrackTitle: snapshot.TrackTitle,
		Artists:    snapshot.Artists,
		AlbumArt:   snapshot.ArtworkURL,
		ProgressMs: e.clock.EstimateOffsetMs(time.Now()),
		DurationMs: snapshot.DurationMs,
		HasLyrics:  hasLyrics,
	}
}

// ActiveLyric returns the currently active lyric line, if any. The second
// return distinguishes "no active line yet" from "no lyrics at all" only via
// the view's HasLyrics flag; absence here is never an error state.
func (e *Engine) ActiveLyric() (ActiveLyricLine, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.activeIdx < 0 || e.activeIdx >= len(e.lyrics) {
		return ActiveLyricLine{}, false
	}

	line := e.lyrics[e.activeIdx]
	return ActiveLyricLine{Text: line.Text, TimeMs: line.TimeMs}, true
}

func (e *Engine) record(fn func(Recorder)) {
	if e.recorder != nil {
		fn(e.recorder)
	}
}
