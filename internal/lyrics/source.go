// Package lyrics resolves time-aligned lyrics from an ordered chain of
// unreliable upstream sources, with caching and plain-text synthesis.
package lyrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/sethziin/stc/internal/core"
)

// Result is whatever a single source produced: time-aligned lines when the
// source provides them, otherwise a plain-text block for the resolver to
// synthesize into an evenly-paced set. Both empty means the source had
// nothing for this track.
type Result struct {
	Lines core.LyricSet
	Plain string
}

// Empty reports whether the source produced nothing usable.
func (r Result) Empty() bool {
	return len(r.Lines) == 0 && r.Plain == ""
}

// Source is one lyric provider in the fallback chain. Query returns an empty
// Result (not an error) when the source simply has no lyrics for the track;
// errors are reserved for network and payload failures.
type Source interface {
	Name() string
	Query(ctx context.Context, title, artist string, durationMs int) (Result, error)
}

// retryBackoff is the pause before the single retry on a transient timeout.
const retryBackoff = 2 * time.Second

// fetchJSON performs a GET with one bounded retry for transient network
// errors only; HTTP-level failures are not retried since they would fail
// identically within the same resolution pass.
func fetchJSON(ctx context.Context, client *http.Client, source, url string, target any) error {
	err := doFetchJSON(ctx, client, source, url, target)
	if err == nil {
		return nil
	}

	var netErr net.Error
	if !errors.As(err, &netErr) {
		return err
	}

	select {
	case <-ctx.Done():
		return err
	case <-time.After(retryBackoff):
	}

	return doFetchJSON(ctx, client, source, url, target)
}

// errNotFound signals an upstream 404, which sources map to an empty Result.
var errNotFound = errors.New("not found")

func doFetchJSON(ctx context.Context, client *http.Client, source, url string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return &core.UpstreamError{Source: source, Err: err}
	}
	req.Header.Set("User-Agent", "stc/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return &core.UpstreamError{Source: source, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return &core.UpstreamError{Source: source, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return &core.ParseError{Source: source, Err: err}
	}

	return nil
}
