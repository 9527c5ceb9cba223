package lyrics

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const defaultLRCLibBaseURL = "https://lrclib.net/api/get"

// LRCLibSource queries the lrclib catalog, the only source in the chain that
// can return time-aligned lyrics directly.
type LRCLibSource struct {
	client  *http.Client
	baseURL string
	logger  *zap.Logger
}

// NewLRCLibSource creates the source with a per-request timeout.
func NewLRCLibSource(timeout time.Duration, logger *zap.Logger) *LRCLibSource {
	return &LRCLibSource{
		client:  &http.Client{Timeout: timeout},
		baseURL: defaultLRCLibBaseURL,
		logger:  logger,
	}
}

// Name implements Source.
func (s *LRCLibSource) Name() string {
	return "lrclib"
}

type lrclibResponse struct {
	SyncedLyrics string `json:"syncedLyrics"`
	PlainLyrics  string `json:"plainLyrics"`
	Instrumental bool   `json:"instrumental"`
}

// Query implements Source. Synced lyrics win over the plain block; tracks the
// catalog marks instrumental come back empty.
func (s *LRCLibSource) Query(ctx context.Context, title, artist string, durationMs int) (Result, error) {
	params := url.Values{}
	params.Set("track_name", title)
	params.Set("artist_name", artist)
	if durationMs > 0 {
		params.Set("duration", strconv.Itoa(durationMs/1000))
	}

	var resp lrclibResponse
	err := fetchJSON(ctx, s.client, s.Name(), s.baseURL+"?"+params.Encode(), &resp)
	if errors.Is(err, errNotFound) {
		return Result{}, nil
	}
	if err != nil {
		return Result{}, err
	}

	if resp.Instrumental {
		s.logger.Debug("Track is instrumental", zap.String("title", title), zap.String("artist", artist))
		return Result{}, nil
	}

	if resp.SyncedLyrics != "" {
		if set := ParseLRC(resp.SyncedLyrics); len(set) > 0 {
			return Result{Lines: set}, nil
		}
	}

	return Result{Plain: resp.PlainLyrics}, nil
}
