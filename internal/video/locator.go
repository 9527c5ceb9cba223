// Package video locates a companion audio stream for the currently playing
// track by scraping public search results.
package video

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sethziin/stc/internal/core"
	"github.com/sethziin/stc/internal/store"
	"github.com/sethziin/stc/pkg/fuzzy"
)

const defaultSearchBaseURL = "https://www.youtube.com/results"

// Reject filters: live recordings, full albums and fan uploads drift from the
// studio timing the lyrics were aligned to. "live"/"stream" match as whole
// words so titles like "Alive" survive.
var (
	rejectWordRegex = regexp.MustCompile(`(?i)\b(live|stream)\b`)
	rejectTerms     = []string{
		"full album",
		"cover",
		"reaction",
		"official video",
	}
)

// Locator searches for a video whose audio matches the playing track. Find
// returns the empty string when no acceptable candidate exists; that outcome
// is cached briefly so every poll does not re-trigger a search.
type Locator struct {
	client     *http.Client
	baseURL    string
	cache      *store.TTLCache[string]
	normalizer *fuzzy.Normalizer
	limiter    *rate.Limiter
	logger     *zap.Logger

	foundTTL time.Duration
	emptyTTL time.Duration
}

// NewLocator assembles the locator. The limiter spaces searches out so track
// skipping does not hammer the results endpoint.
func NewLocator(cacheSize int, foundTTL, emptyTTL, timeout time.Duration, logger *zap.Logger) *Locator {
	return &Locator{
		client:     &http.Client{Timeout: timeout},
		baseURL:    defaultSearchBaseURL,
		cache:      store.NewTTLCache[string](cacheSize, 0.001),
		normalizer: fuzzy.NewNormalizer(),
		limiter:    rate.NewLimiter(rate.Every(2*time.Second), 3),
		logger:     logger,
		foundTTL:   foundTTL,
		emptyTTL:   emptyTTL,
	}
}

// Find implements core.VideoLocator.
func (l *Locator) Find(ctx context.Context, title, artist string, durationMs int) (string, error) {
	key := l.normalizer.Key(artist, title)

	if id, ok := l.cache.Get(key); ok {
		return id, nil
	}

	if err := l.limiter.Wait(ctx); err != nil {
		return "", err
	}

	candidates, err := l.search(ctx, title, artist)
	if err != nil {
		return "", err
	}

	id := l.pick(candidates, title, artist, durationMs)
	if id == "" {
		l.logger.Debug("No companion video found",
			zap.String("title", title), zap.String("artist", artist))
		l.cache.Set(key, "", l.emptyTTL)
		return "", nil
	}

	l.logger.Info("Located companion video",
		zap.String("title", title),
		zap.String("artist", artist),
		zap.String("videoID", id))
	l.cache.Set(key, id, l.foundTTL)

	return id, nil
}

// candidate is one search result row.
type candidate struct {
	id         string
	title      string
	channel    string
	durationMs int
}

var (
	videoIDRegex    = regexp.MustCompile(`"videoId":"([^"]+)"`)
	videoTitleRegex = regexp.MustCompile(`"title":\{"runs":\[\{"text":"((?:[^"\\]|\\.)*)"`)
	channelRegex    = regexp.MustCompile(`"ownerText":\{"runs":\[\{"text":"((?:[^"\\]|\\.)*)"`)
	lengthRegex     = regexp.MustCompile(`"lengthText":\{[^}]*"simpleText":"([0-9:]+)"`)
)

func (l *Locator) search(ctx context.Context, title, artist string) ([]candidate, error) {
	query := url.Values{}
	query.Set("search_query", artist+" "+title)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"?"+query.Encode(), http.NoBody)
	if err != nil {
		return nil, &core.UpstreamError{Source: "video-search", Err: err}
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64)")
	req.Header.Set("Accept-Language", "en")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, &core.UpstreamError{Source: "video-search", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &core.UpstreamError{Source: "video-search", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, &core.UpstreamError{Source: "video-search", Err: err}
	}

	return parseResults(string(body)), nil
}

// parseResults extracts result rows from the embedded page data. The page is
// one huge JSON blob, so each videoRenderer block is scanned with targeted
// expressions rather than decoded wholesale.
func parseResults(page string) []candidate {
	var candidates []candidate

	blocks := strings.Split(page, `"videoRenderer":`)
	for _, block := range blocks[1:] {
		if len(block) > 8192 {
			block = block[:8192]
		}

		id := firstMatch(videoIDRegex, block)
		title := unescapeJSON(firstMatch(videoTitleRegex, block))
		if id == "" || title == "" {
			continue
		}

		candidates = append(candidates, candidate{
			id:         id,
			title:      title,
			channel:    unescapeJSON(firstMatch(channelRegex, block)),
			durationMs: parseLengthMs(firstMatch(lengthRegex, block)),
		})
	}

	return candidates
}

func firstMatch(re *regexp.Regexp, block string) string {
	m := re.FindStringSubmatch(block)
	if m == nil {
		return ""
	}
	return m[1]
}

func unescapeJSON(raw string) string {
	if raw == "" {
		return ""
	}
	unquoted, err := strconv.Unquote(`"` + raw + `"`)
	if err != nil {
		return raw
	}
	return unquoted
}

// parseLengthMs converts "m:ss" or "h:mm:ss" to milliseconds.
func parseLengthMs(length string) int {
	if length == "" {
		return 0
	}

	total := 0
	for _, part := range strings.Split(length, ":") {
		n, err := strconv.Atoi(part)
		if err != nil {
			return 0
		}
		total = total*60 + n
	}

	return total * 1000
}

// pick scores every surviving candidate and returns the best, or "" when none
// qualify.
func (l *Locator) pick(candidates []candidate, title, artist string, durationMs int) string {
	wantTitle := l.normalizer.NormalizeTitle(title)
	wantArtist := l.normalizer.NormalizeArtist(artist)

	best := ""
	bestScore := 0.0

	for _, c := range candidates {
		if rejected(c) {
			continue
		}

		score := l.score(c, wantTitle, wantArtist, durationMs)
		if score > bestScore {
			best, bestScore = c.id, score
		}
	}

	return best
}

func rejected(c candidate) bool {
	if rejectWordRegex.MatchString(c.title) {
		return true
	}

	lowerTitle := strings.ToLower(c.title)
	for _, term := range rejectTerms {
		if strings.Contains(lowerTitle, term) {
			return true
		}
	}

	// VEVO uploads are typically the music video, not the album audio.
	return strings.Contains(strings.ToUpper(c.channel), "VEVO")
}

func (l *Locator) score(c candidate, wantTitle, wantArtist string, durationMs int) float64 {
	lowerTitle := strings.ToLower(c.title)

	score := l.normalizer.Similarity(l.normalizer.NormalizeTitle(c.title), wantTitle)
	if strings.Contains(strings.ToLower(c.channel), wantArtist) {
		score += 1.0
	}

	// Auto-generated artist channels carry the canonical studio audio.
	if strings.HasSuffix(c.channel, "- Topic") {
		score += 4.0
	}
	if strings.Contains(lowerTitle, "official audio") {
		score += 3.0
	}
	if strings.Contains(lowerTitle, "official") {
		score += 1.0
	}
	if strings.Contains(lowerTitle, "audio") {
		score += 0.5
	}

	if durationMs > 0 && c.durationMs > 0 {
		tolerance := l.normalizer.DurationTolerance(
			time.Duration(durationMs)*time.Millisecond,
			time.Duration(c.durationMs)*time.Millisecond)
		if tolerance == 0 {
			return 0
		}
		score += tolerance
	}

	return score
}
