// Package core implements the now-playing synchronization engine: the playback
// clock model, the lyric line scheduler, and the companion stream synchronizer.
package core

import (
	"context"
	"time"
)

// PlaybackSnapshot is one polled observation of the primary stream. Snapshots
// are immutable; a new poll produces a new snapshot that supersedes the prior
// one wholesale.
type PlaybackSnapshot struct {
	IsPlaying  bool
	TrackID    string
	TrackTitle string
	Artists    []string
	ProgressMs int
	DurationMs int
	ArtworkURL string
	ObservedAt time.Time
}

// SameTrack reports whether both snapshots refer to the same track. Two
// empty track IDs (nothing playing) count as the same.
func (s *PlaybackSnapshot) SameTrack(other *PlaybackSnapshot) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.TrackID == other.TrackID
}

// LyricLine is a single time-aligned lyric line.
type LyricLine struct {
	TimeMs int    `json:"timeMs"`
	Text   string `json:"text"`
}

// LyricSet is an ordered sequence of lyric lines, non-decreasing in TimeMs.
// An empty set means "confirmed no lyrics", which is a normal terminal state.
type LyricSet []LyricLine

// CurrentPlaybackView is the read model exposed to the presentation layer.
type CurrentPlaybackView struct {
	IsPlaying  bool     `json:"isPlaying"`
	TrackTitle string   `json:"trackTitle,omitempty"`
	Artists    []string `json:"artists,omitempty"`
	AlbumArt   string   `json:"albumArt,omitempty"`
	ProgressMs int      `json:"progressMs"`
	DurationMs int      `json:"durationMs,omitempty"`
	HasLyrics  bool     `json:"hasLyrics"`
}

// ActiveLyricLine is the currently active line, if any.
type ActiveLyricLine struct {
	Text   string `json:"text"`
	TimeMs int    `json:"timeMs"`
}

// SnapshotFetcher polls the primary stream for the current playback state.
// Implementations return an is-playing=false snapshot when nothing is playing
// and an error only for network or auth failures.
type SnapshotFetcher interface {
	CurrentlyPlaying(ctx context.Context) (*PlaybackSnapshot, error)
}

// LyricResolver resolves lyrics for a track. Absence of lyrics is reported as
// an empty set, never as an error.
type LyricResolver interface {
	Resolve(ctx context.Context, title, artist string, durationMs int) (LyricSet, error)
}

// VideoLocator finds a best-match companion video for a track. An empty video
// ID means no usable match, which is a normal terminal outcome.
type VideoLocator interface {
	Find(ctx context.Context, title, artist string, durationMs int) (string, error)
}

// HandleState is the companion playback handle's reported state.
type HandleState int

const (
	HandleUnstarted HandleState = iota
	HandlePlaying
	HandlePaused
	HandleEnded
)

// PlaybackHandle drives an externally-controlled companion stream. It is
// constructed once by the session owner and injected; the synchronizer never
// reaches for it through ambient globals.
type PlaybackHandle interface {
	Load(ctx context.Context, videoID string) error
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Seek(ctx context.Context, offsetMs int) error
	CurrentTimeMs(ctx context.Context) (int, error)
	State(ctx context.Context) (HandleState, error)
}

// Recorder receives operational metrics from the engine and resolver. The
// HTTP server provides the production implementation; a nil Recorder is valid.
type Recorder interface {
	RecordPoll(status string)
	RecordResolution(source, status string)
	RecordCacheHit(kind string)
	RecordCorrection(forced bool)
	RecordError(component, errorType string)
	SetPlaying(playing bool)
}
