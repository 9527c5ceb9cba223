package core

import (
	"time"
)

type Config struct {
	Spotify SpotifyConfig
	Lyrics  LyricsConfig
	Video   VideoConfig
	Sync    SyncConfig
	Server  ServerConfig
	Log     LogConfig
}

type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

type LyricsConfig struct {
	GeniusAccessToken string
	StorePath         string
	CacheSize         int
	FoundTTL          time.Duration
	EmptyTTL          time.Duration
	RequestTimeout    time.Duration
}

type VideoConfig struct {
	Enabled        bool
	CacheSize      int
	FoundTTL       time.Duration
	EmptyTTL       time.Duration
	RequestTimeout time.Duration
}

type SyncConfig struct {
	PollInterval       time.Duration
	LyricTick          time.Duration
	DriftTick          time.Duration
	DriftThresholdMs   int
	CorrectionCooldown time.Duration
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type LogConfig struct {
	Level string
}

func DefaultConfig() *Config {
	return &Config{
		Lyrics: LyricsConfig{
			StorePath:      "./lyrics.db",
			CacheSize:      512,
			FoundTTL:       15 * time.Minute,
			EmptyTTL:       60 * time.Second,
			RequestTimeout: 5 * time.Second,
		},
		Video: VideoConfig{
			Enabled:        true,
			CacheSize:      256,
			FoundTTL:       15 * time.Minute,
			EmptyTTL:       60 * time.Second,
			RequestTimeout: 5 * time.Second,
		},
		Sync: SyncConfig{
			PollInterval:       2 * time.Second,
			LyricTick:          500 * time.Millisecond,
			DriftTick:          4 * time.Second,
			DriftThresholdMs:   1500,
			CorrectionCooldown: 4 * time.Second,
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
