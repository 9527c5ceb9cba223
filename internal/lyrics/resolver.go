package lyrics

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sethziin/stc/internal/core"
	"github.com/sethziin/stc/internal/store"
	"github.com/sethziin/stc/pkg/fuzzy"
)

// Resolver walks an ordered source chain until one produces lyrics, caching
// every outcome under the track's normalized key. Absence is a result, not an
// error: an exhausted chain yields an empty set cached with a short TTL so the
// chain is retried once the entry expires, while found sets live longer and
// are additionally persisted to disk. Resolve never fails the caller over a
// missing track.
type Resolver struct {
	sources    []Source
	cache      *store.TTLCache[core.LyricSet]
	persist    *store.LyricStore
	normalizer *fuzzy.Normalizer
	group      singleflight.Group
	recorder   core.Recorder
	logger     *zap.Logger

	foundTTL time.Duration
	emptyTTL time.Duration
}

// NewResolver assembles the resolver. persist may be nil to run memory-only;
// recorder may be nil.
func NewResolver(
	sources []Source,
	cache *store.TTLCache[core.LyricSet],
	persist *store.LyricStore,
	foundTTL, emptyTTL time.Duration,
	recorder core.Recorder,
	logger *zap.Logger,
) *Resolver {
	return &Resolver{
		sources:    sources,
		cache:      cache,
		persist:    persist,
		normalizer: fuzzy.NewNormalizer(),
		recorder:   recorder,
		logger:     logger,
		foundTTL:   foundTTL,
		emptyTTL:   emptyTTL,
	}
}

// Resolve implements core.LyricResolver. Concurrent calls for the same track
// collapse into one upstream pass.
func (r *Resolver) Resolve(ctx context.Context, title, artist string, durationMs int) (core.LyricSet, error) {
	key := r.normalizer.Key(artist, title)

	if set, ok := r.cache.Get(key); ok {
		r.recordCacheHit("memory")
		return set, nil
	}

	result, _, _ := r.group.Do(key, func() (any, error) {
		return r.resolveKey(ctx, key, title, artist, durationMs), nil
	})

	return result.(core.LyricSet), nil
}

func (r *Resolver) resolveKey(ctx context.Context, key, title, artist string, durationMs int) core.LyricSet {
	if r.persist != nil {
		set, ok, err := r.persist.Get(ctx, key)
		if err != nil {
			r.logger.Warn("Lyric store read failed", zap.String("key", key), zap.Error(err))
		} else if ok {
			r.recordCacheHit("store")
			r.cache.Set(key, set, r.foundTTL)
			return set
		}
	}

	for _, source := range r.sources {
		result, err := source.Query(ctx, title, artist, durationMs)
		if err != nil {
			// A failing source is indistinguishable from one with no lyrics;
			// move down the chain.
			r.logger.Warn("Lyric source failed",
				zap.String("source", source.Name()),
				zap.String("title", title),
				zap.String("artist", artist),
				zap.Error(err))
			r.recordResolution(source.Name(), "error")
			continue
		}
		if result.Empty() {
			continue
		}

		set := result.Lines
		kind := "synced"
		if len(set) == 0 {
			set = Synthesize(result.Plain, durationMs)
			kind = "synthesized"
		}
		if len(set) == 0 {
			continue
		}

		r.logger.Info("Resolved lyrics",
			zap.String("source", source.Name()),
			zap.String("kind", kind),
			zap.String("title", title),
			zap.String("artist", artist),
			zap.Int("lines", len(set)))
		r.recordResolution(source.Name(), kind)
		r.cache.Set(key, set, r.foundTTL)
		r.persistSet(ctx, key, set)

		return set
	}

	r.logger.Debug("No lyrics found",
		zap.String("title", title),
		zap.String("artist", artist))
	r.recordResolution("none", "empty")
	r.cache.Set(key, core.LyricSet{}, r.emptyTTL)

	return core.LyricSet{}
}

func (r *Resolver) persistSet(ctx context.Context, key string, set core.LyricSet) {
	if r.persist == nil {
		return
	}
	if err := r.persist.Put(ctx, key, set); err != nil {
		r.logger.Warn("Lyric store write failed", zap.String("key", key), zap.Error(err))
	}
}

func (r *Resolver) recordResolution(source, status string) {
	if r.recorder != nil {
		r.recorder.RecordResolution(source, status)
	}
}

func (r *Resolver) recordCacheHit(kind string) {
	if r.recorder != nil {
		r.recorder.RecordCacheHit(kind)
	}
}
