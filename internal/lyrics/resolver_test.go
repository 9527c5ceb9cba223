package lyrics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/sethziin/stc/internal/core"
	"github.com/sethziin/stc/internal/store"
)

type fakeSource struct {
	name   string
	result Result
	err    error

	mu    sync.Mutex
	calls int
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Query(_ context.Context, _, _ string, _ int) (Result, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.result, f.err
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestResolver(t *testing.T, sources ...Source) *Resolver {
	t.Helper()
	cache := store.NewTTLCache[core.LyricSet](64, 0.001)
	return NewResolver(sources, cache, nil, 15*time.Minute, time.Minute, nil, zap.NewNop())
}

func tenLines() string {
	return "line 0\nline 1\nline 2\nline 3\nline 4\n" +
		"line 5\nline 6\nline 7\nline 8\nline 9"
}

func TestResolver_SyncedWinsOverFallbacks(t *testing.T) {
	synced := &fakeSource{name: "a", result: Result{Lines: core.LyricSet{{TimeMs: 0, Text: "synced"}}}}
	plain := &fakeSource{name: "b", result: Result{Plain: "plain"}}
	r := newTestResolver(t, synced, plain)

	set, err := r.Resolve(context.Background(), "Song", "Artist", 200000)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if len(set) != 1 || set[0].Text != "synced" {
		t.Errorf("expected synced lyrics, got %+v", set)
	}
	if plain.callCount() != 0 {
		t.Error("later sources must not be queried once one succeeds")
	}
}

func TestResolver_FallsThroughEmptyAndFailingSources(t *testing.T) {
	empty := &fakeSource{name: "a"}
	failing := &fakeSource{name: "b", err: errors.New("connection refused")}
	plain := &fakeSource{name: "c", result: Result{Plain: tenLines()}}
	r := newTestResolver(t, empty, failing, plain)

	set, err := r.Resolve(context.Background(), "Song", "Artist", 200000)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if len(set) != 10 {
		t.Fatalf("expected 10 synthesized lines, got %d", len(set))
	}
	for i, line := range set {
		if line.TimeMs != i*20000 {
			t.Errorf("line %d at %dms, want %dms", i, line.TimeMs, i*20000)
		}
	}
	if empty.callCount() != 1 || failing.callCount() != 1 {
		t.Error("every earlier source should have been tried once")
	}
}

func TestResolver_CachesFoundResult(t *testing.T) {
	src := &fakeSource{name: "a", result: Result{Plain: tenLines()}}
	r := newTestResolver(t, src)
	ctx := context.Background()

	first, _ := r.Resolve(ctx, "Song", "Artist", 200000)
	second, _ := r.Resolve(ctx, "Song", "Artist", 200000)

	if src.callCount() != 1 {
		t.Errorf("source queried %d times, want 1", src.callCount())
	}
	if len(first) != len(second) {
		t.Errorf("cache returned different set: %d vs %d lines", len(first), len(second))
	}
}

func TestResolver_NormalizedKeyCollapsesVariants(t *testing.T) {
	src := &fakeSource{name: "a", result: Result{Plain: "only line"}}
	r := newTestResolver(t, src)
	ctx := context.Background()

	r.Resolve(ctx, "Song (Remastered 2011)", "Artist", 200000)
	r.Resolve(ctx, "song", "ARTIST", 200000)

	if src.callCount() != 1 {
		t.Errorf("title variants should share a cache entry, source queried %d times", src.callCount())
	}
}

func TestResolver_ExhaustedChainReturnsCachedEmpty(t *testing.T) {
	a := &fakeSource{name: "a"}
	b := &fakeSource{name: "b"}
	r := newTestResolver(t, a, b)
	ctx := context.Background()

	set, err := r.Resolve(ctx, "Obscure", "Nobody", 100000)
	if err != nil {
		t.Fatalf("absence must not be an error: %v", err)
	}
	if len(set) != 0 {
		t.Errorf("expected empty set, got %+v", set)
	}

	// The miss is cached: a second resolve must not hit the chain again.
	r.Resolve(ctx, "Obscure", "Nobody", 100000)
	if a.callCount() != 1 || b.callCount() != 1 {
		t.Errorf("empty result should be cached, calls a=%d b=%d", a.callCount(), b.callCount())
	}
}

func TestResolver_PersistsFoundSets(t *testing.T) {
	persist := openResolverTestStore(t)
	src := &fakeSource{name: "a", result: Result{Lines: core.LyricSet{{TimeMs: 0, Text: "kept"}}}}
	cache := store.NewTTLCache[core.LyricSet](64, 0.001)
	r := NewResolver([]Source{src}, cache, persist, 15*time.Minute, time.Minute, nil, zap.NewNop())
	ctx := context.Background()

	if _, err := r.Resolve(ctx, "Song", "Artist", 200000); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	// A fresh resolver sharing only the disk store must find the set without
	// touching any source.
	cold := &fakeSource{name: "cold"}
	r2 := NewResolver([]Source{cold}, store.NewTTLCache[core.LyricSet](64, 0.001),
		persist, 15*time.Minute, time.Minute, nil, zap.NewNop())

	set, err := r2.Resolve(ctx, "Song", "Artist", 200000)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(set) != 1 || set[0].Text != "kept" {
		t.Errorf("expected persisted set, got %+v", set)
	}
	if cold.callCount() != 0 {
		t.Error("disk hit should bypass the source chain")
	}
}

func openResolverTestStore(t *testing.T) *store.LyricStore {
	t.Helper()
	s, err := store.OpenLyricStore(t.TempDir()+"/lyrics.db", zap.NewNop())
	if err != nil {
		t.Fatalf("failed to open lyric store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}
