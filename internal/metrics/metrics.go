package metrics

import (
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// Watch-time metrics
	MinutesWatched = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "zentube_minutes_watched_total",
			Help: "Total minutes of active playback recorded",
		},
	)

	SegmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zentube_watch_segments_total",
			Help: "Elapsed playback segments by outcome",
		},
		[]string{"result"}, // recorded, short, failed
	)

	RolloversTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "zentube_daily_rollovers_total",
			Help: "Daily counter rollovers performed",
		},
	)

	// Notification metrics
	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zentube_notifications_total",
			Help: "Notifications emitted",
		},
		[]string{"kind"},
	)

	BreakRemindersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zentube_break_reminders_total",
			Help: "Break reminder lifecycle events",
		},
		[]string{"action"}, // shown, dismissed, snoozed
	)

	// Storage metrics
	StorageErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zentube_storage_errors_total",
			Help: "Storage operation failures",
		},
		[]string{"op"},
	)

	// Player metrics
	ActivePlayers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "zentube_active_players",
			Help: "Number of mounted player sessions",
		},
	)

	PlayingPlayers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "zentube_playing_players",
			Help: "Number of player sessions currently playing",
		},
	)

	// Catalog metrics
	CatalogRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zentube_catalog_requests_total",
			Help: "YouTube catalog lookups",
		},
		[]string{"endpoint", "cache"},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(
		MinutesWatched,
		SegmentsTotal,
		RolloversTotal,
		NotificationsTotal,
		BreakRemindersTotal,
		StorageErrors,
		ActivePlayers,
		PlayingPlayers,
		CatalogRequests,
	)
}

// Server is the metrics HTTP server
type Server struct {
	server   *http.Server
	logger   zerolog.Logger
	listener net.Listener // set when socket-activated
}

// NewServer creates a new metrics server
func NewServer(addr string, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &Server{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
		logger: logger.With().Str("component", "metrics").Logger(),
	}
}

// SetListener sets a pre-created listener for systemd socket activation
func (s *Server) SetListener(ln net.Listener) {
	s.listener = ln
}

// Start starts the metrics server
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("Starting metrics server")
	go func() {
		var err error
		if s.listener != nil {
			s.logger.Debug().Msg("Using systemd socket-activated metrics listener")
			err = s.server.Serve(s.listener)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Metrics server error")
		}
	}()
	return nil
}

// Stop stops the metrics server
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping metrics server")
	return s.server.Close()
}
