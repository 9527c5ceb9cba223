// Package http exposes the now-playing API, health probes, and Prometheus
// metrics.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sethziin/stc/internal/core"
)

// PlaybackReader is the engine surface the API serves from.
type PlaybackReader interface {
	View() core.CurrentPlaybackView
	ActiveLyric() (core.ActiveLyricLine, bool)
}

// CompanionReader reports the target state of the companion player. A nil
// reader means the companion feature is disabled.
type CompanionReader interface {
	Companion() (videoID string, positionMs int, playing bool, loaded bool)
}

type Server struct {
	config  *core.ServerConfig
	logger  *zap.Logger
	server  *http.Server
	metrics *Metrics
}

type Metrics struct {
	PollsTotal       *prometheus.CounterVec
	ResolutionsTotal *prometheus.CounterVec
	CacheHitsTotal   *prometheus.CounterVec
	CorrectionsTotal *prometheus.CounterVec
	ErrorsTotal      *prometheus.CounterVec
	Playing          prometheus.Gauge
}

func NewServer(config *core.ServerConfig, playback PlaybackReader, companion CompanionReader, logger *zap.Logger) *Server {
	metrics := &Metrics{
		PollsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stc_polls_total",
				Help: "Total number of playback polls",
			},
			[]string{"status"},
		),
		ResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stc_lyric_resolutions_total",
				Help: "Total number of lyric resolution attempts",
			},
			[]string{"source", "status"},
		),
		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stc_cache_hits_total",
				Help: "Total number of lyric cache hits",
			},
			[]string{"layer"},
		),
		CorrectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stc_sync_corrections_total",
				Help: "Total number of companion stream seek corrections",
			},
			[]string{"forced"},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stc_errors_total",
				Help: "Total number of errors",
			},
			[]string{"component", "type"},
		),
		Playing: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "stc_playing",
				Help: "Whether a track is currently playing (1) or not (0)",
			},
		),
	}

	prometheus.MustRegister(
		metrics.PollsTotal,
		metrics.ResolutionsTotal,
		metrics.CacheHitsTotal,
		metrics.CorrectionsTotal,
		metrics.ErrorsTotal,
		metrics.Playing,
	)

	s := &Server{
		config:  config,
		logger:  logger,
		metrics: metrics,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"stc"}`))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready","service":"stc"}`))
	})

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/api/now-playing", func(w http.ResponseWriter, _ *http.Request) {
		s.writeJSON(w, playback.View())
	})

	mux.HandleFunc("/api/now-playing/lyric", func(w http.ResponseWriter, _ *http.Request) {
		line, ok := playback.ActiveLyric()
		if !ok {
			s.writeJSON(w, struct {
				Active bool `json:"active"`
			}{false})
			return
		}

		s.writeJSON(w, struct {
			Active bool   `json:"active"`
			Text   string `json:"text"`
			TimeMs int    `json:"timeMs"`
		}{true, line.Text, line.TimeMs})
	})

	mux.HandleFunc("/api/companion", func(w http.ResponseWriter, _ *http.Request) {
		type companionView struct {
			Loaded     bool   `json:"loaded"`
			VideoID    string `json:"videoId,omitempty"`
			PositionMs int    `json:"positionMs,omitempty"`
			Playing    bool   `json:"playing,omitempty"`
		}

		if companion == nil {
			s.writeJSON(w, companionView{})
			return
		}

		videoID, positionMs, playing, loaded := companion.Companion()
		if !loaded {
			s.writeJSON(w, companionView{})
			return
		}

		s.writeJSON(w, companionView{
			Loaded:     true,
			VideoID:    videoID,
			PositionMs: positionMs,
			Playing:    playing,
		})
	})

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      mux,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}

	return s
}

func (s *Server) writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("Failed to write API response", zap.Error(err))
	}
}

// Handler exposes the routed mux, used by tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server",
		zap.String("addr", s.server.Addr))

	go func() {
		<-ctx.Done()
		s.logger.Info("Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Failed to shutdown HTTP server gracefully", zap.Error(err))
		}
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

// RecordPoll implements core.Recorder.
func (s *Server) RecordPoll(status string) {
	s.metrics.PollsTotal.WithLabelValues(status).Inc()
}

// RecordResolution implements core.Recorder.
func (s *Server) RecordResolution(source, status string) {
	s.metrics.ResolutionsTotal.WithLabelValues(source, status).Inc()
}

// RecordCacheHit implements core.Recorder.
func (s *Server) RecordCacheHit(layer string) {
	s.metrics.CacheHitsTotal.WithLabelValues(layer).Inc()
}

// RecordCorrection implements core.Recorder.
func (s *Server) RecordCorrection(forced bool) {
	s.metrics.CorrectionsTotal.WithLabelValues(fmt.Sprintf("%t", forced)).Inc()
}

// RecordError implements core.Recorder.
func (s *Server) RecordError(component, errorType string) {
	s.metrics.ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

// SetPlaying implements core.Recorder.
func (s *Server) SetPlaying(playing bool) {
	if playing {
		s.metrics.Playing.Set(1)
		return
	}
	s.metrics.Playing.Set(0)
}
