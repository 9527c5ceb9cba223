package lyrics

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sethziin/stc/internal/core"
)

const defaultGeniusBaseURL = "https://api.genius.com"

// minScrapedLength guards against pages where the lyric container only holds
// boilerplate; anything shorter is treated as not found.
const minScrapedLength = 50

var (
	lyricContainerRegex = regexp.MustCompile(`(?s)<div[^>]*class="[^"]*Lyrics__Container[^"]*"[^>]*>(.*?)</div>`)
	lineBreakRegex      = regexp.MustCompile(`(?i)<br\s*/?>|</p>|</div>`)
	htmlTagRegex        = regexp.MustCompile(`<[^>]*>`)
	excessNewlineRegex  = regexp.MustCompile(`\n{3,}`)
)

// GeniusSource searches the Genius API for the track and scrapes the lyric
// page it points at. It is the last resort in the chain: scraping page markup
// is brittle, so it runs only when a token is configured and both catalog
// sources came up empty.
type GeniusSource struct {
	client      *http.Client
	baseURL     string
	accessToken string
	logger      *zap.Logger
}

// NewGeniusSource creates the source. An empty accessToken makes every query
// a silent miss.
func NewGeniusSource(accessToken string, timeout time.Duration, logger *zap.Logger) *GeniusSource {
	return &GeniusSource{
		client:      &http.Client{Timeout: timeout},
		baseURL:     defaultGeniusBaseURL,
		accessToken: accessToken,
		logger:      logger,
	}
}

// Name implements Source.
func (s *GeniusSource) Name() string {
	return "genius"
}

type geniusSearchResponse struct {
	Response struct {
		Hits []struct {
			Result struct {
				URL string `json:"url"`
			} `json:"result"`
		} `json:"hits"`
	} `json:"response"`
}

// Query implements Source.
func (s *GeniusSource) Query(ctx context.Context, title, artist string, _ int) (Result, error) {
	if s.accessToken == "" {
		return Result{}, nil
	}

	pageURL, err := s.search(ctx, title, artist)
	if err != nil {
		return Result{}, err
	}
	if pageURL == "" {
		return Result{}, nil
	}

	page, err := s.fetchPage(ctx, pageURL)
	if err != nil {
		return Result{}, err
	}

	plain := extractLyrics(page)
	if len(plain) <= minScrapedLength {
		s.logger.Debug("Scraped lyric container too short",
			zap.String("url", pageURL),
			zap.Int("length", len(plain)))
		return Result{}, nil
	}

	return Result{Plain: plain}, nil
}

func (s *GeniusSource) search(ctx context.Context, title, artist string) (string, error) {
	endpoint := s.baseURL + "/search?q=" + url.QueryEscape(title+" "+artist)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return "", &core.UpstreamError{Source: s.Name(), Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+s.accessToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", &core.UpstreamError{Source: s.Name(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &core.UpstreamError{Source: s.Name(), Err: fmt.Errorf("search status %d", resp.StatusCode)}
	}

	var search geniusSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&search); err != nil {
		return "", &core.ParseError{Source: s.Name(), Err: err}
	}

	if len(search.Response.Hits) == 0 {
		return "", nil
	}

	return search.Response.Hits[0].Result.URL, nil
}

func (s *GeniusSource) fetchPage(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
	if err != nil {
		return "", &core.UpstreamError{Source: s.Name(), Err: err}
	}
	req.Header.Set("User-Agent", "stc/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", &core.UpstreamError{Source: s.Name(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &core.UpstreamError{Source: s.Name(), Err: fmt.Errorf("page status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", &core.UpstreamError{Source: s.Name(), Err: err}
	}

	return string(body), nil
}

// extractLyrics pulls every lyric container out of the page markup and
// flattens it to plain text.
func extractLyrics(page string) string {
	matches := lyricContainerRegex.FindAllStringSubmatch(page, -1)
	if len(matches) == 0 {
		return ""
	}

	var blocks []string
	for _, match := range matches {
		blocks = append(blocks, match[1])
	}

	return stripHTML(strings.Join(blocks, "\n"))
}

// stripHTML converts break and block-closing tags to newlines, drops every
// remaining tag, and collapses runs of blank lines.
func stripHTML(raw string) string {
	text := lineBreakRegex.ReplaceAllString(raw, "\n")
	text = htmlTagRegex.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "&amp;", "&")
	text = strings.ReplaceAll(text, "&#x27;", "'")
	text = strings.ReplaceAll(text, "&quot;", `"`)
	text = excessNewlineRegex.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}
