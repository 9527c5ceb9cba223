package store

import (
	"context"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/sethziin/stc/internal/core"
)

func openTestStore(t *testing.T) *LyricStore {
	t.Helper()

	path := filepath.Join(t.TempDir(), "lyrics.db")
	s, err := OpenLyricStore(path, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to open lyric store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return s
}

func TestLyricStore_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	set := core.LyricSet{
		{TimeMs: 0, Text: "first line"},
		{TimeMs: 20000, Text: "second line"},
	}

	if err := s.Put(ctx, "artist|song", set); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, ok, err := s.Get(ctx, "artist|song")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok {
		t.Fatal("expected a hit for persisted key")
	}
	if len(got) != 2 || got[0].Text != "first line" || got[1].TimeMs != 20000 {
		t.Errorf("round-tripped set mismatch: %+v", got)
	}
}

func TestLyricStore_MissingKey(t *testing.T) {
	s := openTestStore(t)

	_, ok, err := s.Get(context.Background(), "nobody|nothing")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok {
		t.Error("unknown key should miss")
	}
}

func TestLyricStore_EmptySetNotPersisted(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, "artist|instrumental", core.LyricSet{}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	_, ok, err := s.Get(ctx, "artist|instrumental")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok {
		t.Error("empty sets must not be persisted")
	}
}

func TestLyricStore_Replace(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, "k", core.LyricSet{{TimeMs: 0, Text: "old"}}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := s.Put(ctx, "k", core.LyricSet{{TimeMs: 0, Text: "new"}}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, ok, err := s.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("Get failed: %v ok=%v", err, ok)
	}
	if got[0].Text != "new" {
		t.Errorf("expected replaced value, got %q", got[0].Text)
	}
}
