package lyrics

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

const defaultOVHBaseURL = "https://api.lyrics.ovh/v1"

// OVHSource queries the lyrics.ovh plain-text catalog, the mid-chain fallback
// when no synced lyrics exist.
type OVHSource struct {
	client  *http.Client
	baseURL string
	logger  *zap.Logger
}

// NewOVHSource creates the source with a per-request timeout.
func NewOVHSource(timeout time.Duration, logger *zap.Logger) *OVHSource {
	return &OVHSource{
		client:  &http.Client{Timeout: timeout},
		baseURL: defaultOVHBaseURL,
		logger:  logger,
	}
}

// Name implements Source.
func (s *OVHSource) Name() string {
	return "lyrics.ovh"
}

type ovhResponse struct {
	Lyrics string `json:"lyrics"`
}

// Query implements Source.
func (s *OVHSource) Query(ctx context.Context, title, artist string, _ int) (Result, error) {
	endpoint := s.baseURL + "/" + url.PathEscape(artist) + "/" + url.PathEscape(title)

	var resp ovhResponse
	err := fetchJSON(ctx, s.client, s.Name(), endpoint, &resp)
	if errors.Is(err, errNotFound) {
		return Result{}, nil
	}
	if err != nil {
		return Result{}, err
	}

	return Result{Plain: resp.Lyrics}, nil
}
