// Package main provides the stc service entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/sethziin/stc/internal/core"
	httpserver "github.com/sethziin/stc/internal/http"
	"github.com/sethziin/stc/internal/lyrics"
	"github.com/sethziin/stc/internal/spotify"
	"github.com/sethziin/stc/internal/store"
	"github.com/sethziin/stc/internal/video"
)

var (
	cfgFile string
	config  *core.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "stc",
	Short: "stc - now-playing synchronization and lyric resolution service",
	Long: `stc polls a Spotify account's currently playing track, resolves
time-aligned lyrics from a chain of sources, locates a matching companion
video, and keeps both in sync with the live playback position.`,
	RunE: runSTC,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("spotify-client-id", "", "Spotify client ID")
	rootCmd.PersistentFlags().String("spotify-client-secret", "", "Spotify client secret")
	rootCmd.PersistentFlags().String("spotify-refresh-token", "", "Spotify refresh token")
	rootCmd.PersistentFlags().String("genius-access-token", "", "Genius API access token (optional)")
	rootCmd.PersistentFlags().String("lyric-store-path", "./lyrics.db", "path to the persistent lyric store (empty disables it)")
	rootCmd.PersistentFlags().Bool("video-enabled", true, "enable the companion video locator")
	rootCmd.PersistentFlags().String("server-host", "0.0.0.0", "HTTP server host")
	rootCmd.PersistentFlags().Int("server-port", 8080, "HTTP server port")
	rootCmd.PersistentFlags().Duration("poll-interval", 0, "playback poll interval (0 uses the default)")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind flags: %v\n", err)
		os.Exit(1)
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(".env")
		viper.SetConfigType("env")
	}

	viper.SetEnvPrefix("STC")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
			os.Exit(1)
		}
	}

	config = buildConfig()
	logger = buildLogger(config.Log.Level)
}

func buildConfig() *core.Config {
	cfg := core.DefaultConfig()

	cfg.Spotify.ClientID = viper.GetString("spotify-client-id")
	cfg.Spotify.ClientSecret = viper.GetString("spotify-client-secret")
	cfg.Spotify.RefreshToken = viper.GetString("spotify-refresh-token")

	cfg.Lyrics.GeniusAccessToken = viper.GetString("genius-access-token")
	cfg.Lyrics.StorePath = viper.GetString("lyric-store-path")

	cfg.Video.Enabled = viper.GetBool("video-enabled")

	if interval := viper.GetDuration("poll-interval"); interval > 0 {
		cfg.Sync.PollInterval = interval
	}

	cfg.Server.Host = viper.GetString("server-host")
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if port := viper.GetInt("server-port"); port != 0 {
		cfg.Server.Port = port
	}

	cfg.Log.Level = viper.GetString("log-level")

	return cfg
}

func buildLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	builtLogger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to build logger: %v", err))
	}

	return builtLogger
}

// playbackProxy breaks the construction cycle between the HTTP server (which
// reads from the engine) and the engine (which records into the server).
type playbackProxy struct {
	engine atomic.Pointer[core.Engine]
}

func (p *playbackProxy) View() core.CurrentPlaybackView {
	if e := p.engine.Load(); e != nil {
		return e.View()
	}
	return core.CurrentPlaybackView{}
}

func (p *playbackProxy) ActiveLyric() (core.ActiveLyricLine, bool) {
	if e := p.engine.Load(); e != nil {
		return e.ActiveLyric()
	}
	return core.ActiveLyricLine{}, false
}

func runSTC(_ *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("Starting stc",
		zap.Duration("pollInterval", config.Sync.PollInterval),
		zap.Bool("videoEnabled", config.Video.Enabled))

	if err := validateConfig(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	fetcher := spotify.NewFetcher(ctx, &config.Spotify, logger.Named("spotify"))

	var persist *store.LyricStore
	if config.Lyrics.StorePath != "" {
		opened, err := store.OpenLyricStore(config.Lyrics.StorePath, logger.Named("store"))
		if err != nil {
			return fmt.Errorf("failed to open lyric store: %w", err)
		}
		persist = opened
		defer persist.Close()
	}

	var handle *video.Handle
	var locator core.VideoLocator
	var syncer *core.Syncer
	if config.Video.Enabled {
		handle = video.NewHandle(logger.Named("companion"))
		locator = video.NewLocator(
			config.Video.CacheSize,
			config.Video.FoundTTL,
			config.Video.EmptyTTL,
			config.Video.RequestTimeout,
			logger.Named("video"),
		)
		syncer = core.NewSyncer(handle,
			config.Sync.DriftThresholdMs,
			config.Sync.CorrectionCooldown,
			logger.Named("syncer"))
	}

	playback := &playbackProxy{}
	var companion httpserver.CompanionReader
	if handle != nil {
		companion = handle
	}
	httpServer := httpserver.NewServer(&config.Server, playback, companion, logger.Named("http"))

	sources := []lyrics.Source{
		lyrics.NewLRCLibSource(config.Lyrics.RequestTimeout, logger.Named("lrclib")),
		lyrics.NewOVHSource(config.Lyrics.RequestTimeout, logger.Named("lyricsovh")),
		lyrics.NewGeniusSource(config.Lyrics.GeniusAccessToken, config.Lyrics.RequestTimeout, logger.Named("genius")),
	}

	resolver := lyrics.NewResolver(
		sources,
		store.NewTTLCache[core.LyricSet](config.Lyrics.CacheSize, 0.001),
		persist,
		config.Lyrics.FoundTTL,
		config.Lyrics.EmptyTTL,
		httpServer,
		logger.Named("lyrics"),
	)

	engine := core.NewEngine(
		&config.Sync,
		fetcher,
		resolver,
		locator,
		syncer,
		httpServer,
		logger.Named("engine"),
	)
	playback.engine.Store(engine)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return httpServer.Start(gCtx)
	})

	g.Go(func() error {
		return engine.Run(gCtx)
	})

	logger.Info("stc started successfully",
		zap.String("http_addr", fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)))

	if err := g.Wait(); err != nil {
		logger.Error("stc stopped with error", zap.Error(err))
		return err
	}

	logger.Info("stc stopped gracefully")
	return nil
}

func validateConfig() error {
	if config.Spotify.ClientID == "" {
		return fmt.Errorf("spotify client ID is required")
	}

	if config.Spotify.ClientSecret == "" {
		return fmt.Errorf("spotify client secret is required")
	}

	if config.Spotify.RefreshToken == "" {
		return fmt.Errorf("spotify refresh token is required")
	}

	return nil
}
