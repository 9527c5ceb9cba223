package core

import (
	"testing"
	"time"
)

func TestClockModel_ExtrapolatesWhilePlaying(t *testing.T) {
	clock := NewClockModel()
	t0 := time.Now()

	clock.Observe(&PlaybackSnapshot{
		IsPlaying:  true,
		TrackID:    "track1",
		ProgressMs: 10000,
		DurationMs: 200000,
		ObservedAt: t0,
	})

	if got := clock.EstimateOffsetMs(t0.Add(2500 * time.Millisecond)); got != 12500 {
		t.Errorf("estimate at T0+2500ms = %d, want 12500", got)
	}
}

func TestClockModel_FrozenWhilePaused(t *testing.T) {
	clock := NewClockModel()
	t0 := time.Now()

	clock.Observe(&PlaybackSnapshot{
		IsPlaying:  false,
		TrackID:    "track1",
		ProgressMs: 10000,
		DurationMs: 200000,
		ObservedAt: t0,
	})

	if got := clock.EstimateOffsetMs(t0.Add(2500 * time.Millisecond)); got != 10000 {
		t.Errorf("paused estimate at T0+2500ms = %d, want 10000 (frozen)", got)
	}
}

func TestClockModel_ClampsAtDuration(t *testing.T) {
	clock := NewClockModel()
	t0 := time.Now()

	clock.Observe(&PlaybackSnapshot{
		IsPlaying:  true,
		TrackID:    "track1",
		ProgressMs: 199000,
		DurationMs: 200000,
		ObservedAt: t0,
	})

	if got := clock.EstimateOffsetMs(t0.Add(5 * time.Second)); got != 200000 {
		t.Errorf("estimate past track end = %d, want clamped 200000", got)
	}
}

func TestClockModel_NoSnapshot(t *testing.T) {
	clock := NewClockModel()

	if got := clock.EstimateOffsetMs(time.Now()); got != 0 {
		t.Errorf("estimate with no snapshot = %d, want 0", got)
	}

	if clock.Snapshot() != nil {
		t.Error("Snapshot should be nil before the first observation")
	}
}

func TestClockModel_ObserveReplacesWholesale(t *testing.T) {
	clock := NewClockModel()
	t0 := time.Now()

	clock.Observe(&PlaybackSnapshot{IsPlaying: true, TrackID: "a", ProgressMs: 50000, ObservedAt: t0})
	clock.Observe(&PlaybackSnapshot{IsPlaying: true, TrackID: "b", ProgressMs: 1000, ObservedAt: t0})

	if got := clock.EstimateOffsetMs(t0); got != 1000 {
		t.Errorf("estimate after replacement = %d, want 1000", got)
	}
	if clock.Snapshot().TrackID != "b" {
		t.Errorf("snapshot TrackID = %q, want %q", clock.Snapshot().TrackID, "b")
	}
}

func TestClockModel_MonotonicWhilePlaying(t *testing.T) {
	clock := NewClockModel()
	t0 := time.Now()

	clock.Observe(&PlaybackSnapshot{
		IsPlaying:  true,
		ProgressMs: 5000,
		DurationMs: 300000,
		ObservedAt: t0,
	})

	prev := 0
	for i := 0; i < 10; i++ {
		got := clock.EstimateOffsetMs(t0.Add(time.Duration(i) * 300 * time.Millisecond))
		if got < prev {
			t.Fatalf("estimate decreased between ticks: %d then %d", prev, got)
		}
		prev = got
	}
}
