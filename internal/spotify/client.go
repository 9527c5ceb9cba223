// Package spotify polls the Spotify Web API for the account's currently
// playing track.
package spotify

import (
	"context"
	"errors"
	"time"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/sethziin/stc/internal/core"
)

// Fetcher implements core.SnapshotFetcher on top of the Web API using a
// long-lived refresh token. Access tokens are minted lazily by the oauth2
// transport, so construction never touches the network.
type Fetcher struct {
	client *spotify.Client
	logger *zap.Logger
}

// NewFetcher builds the authenticated API client. The refresh token must
// carry the user-read-currently-playing scope.
func NewFetcher(ctx context.Context, config *core.SpotifyConfig, logger *zap.Logger) *Fetcher {
	auth := spotifyauth.New(
		spotifyauth.WithClientID(config.ClientID),
		spotifyauth.WithClientSecret(config.ClientSecret),
		spotifyauth.WithScopes(spotifyauth.ScopeUserReadCurrentlyPlaying),
	)

	// Expiry in the past forces a refresh-grant mint on first use.
	token := &oauth2.Token{
		RefreshToken: config.RefreshToken,
		Expiry:       time.Now().Add(-time.Hour),
	}

	return &Fetcher{
		client: spotify.New(auth.Client(ctx, token)),
		logger: logger,
	}
}

// CurrentlyPlaying implements core.SnapshotFetcher. A paused player, an empty
// player, and the API's 204 "nothing playing" response all map to a snapshot
// with IsPlaying false rather than an error; only credential failures come
// back as an AuthError.
func (f *Fetcher) CurrentlyPlaying(ctx context.Context) (*core.PlaybackSnapshot, error) {
	observed := time.Now()

	currently, err := f.client.PlayerCurrentlyPlaying(ctx)
	if err != nil {
		return nil, f.mapError(err)
	}

	if currently == nil || currently.Item == nil {
		return &core.PlaybackSnapshot{IsPlaying: false, ObservedAt: observed}, nil
	}

	track := currently.Item

	artists := make([]string, 0, len(track.Artists))
	for _, artist := range track.Artists {
		artists = append(artists, artist.Name)
	}

	progress := int(currently.Progress)
	duration := int(track.Duration)
	if duration > 0 && progress > duration {
		progress = duration
	}

	artwork := ""
	if len(track.Album.Images) > 0 {
		artwork = track.Album.Images[0].URL
	}

	snapshot := &core.PlaybackSnapshot{
		IsPlaying:  currently.Playing,
		TrackID:    string(track.ID),
		TrackTitle: track.Name,
		Artists:    artists,
		ProgressMs: progress,
		DurationMs: duration,
		ArtworkURL: artwork,
		ObservedAt: observed,
	}

	f.logger.Debug("Fetched playback snapshot",
		zap.String("trackID", snapshot.TrackID),
		zap.Bool("isPlaying", snapshot.IsPlaying),
		zap.Int("progressMs", snapshot.ProgressMs))

	return snapshot, nil
}

// mapError sorts API failures into the credential errors that must stop the
// engine and the transient upstream errors that must not.
func (f *Fetcher) mapError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return &core.AuthError{Err: err}
	}

	var apiErr spotify.Error
	if errors.As(err, &apiErr) && (apiErr.Status == 401 || apiErr.Status == 403) {
		return &core.AuthError{Err: err}
	}

	return &core.UpstreamError{Source: "spotify", Err: err}
}
