package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/goodtune/zentube/internal/breaks"
	"github.com/goodtune/zentube/internal/catalog"
	"github.com/goodtune/zentube/internal/config"
	"github.com/goodtune/zentube/internal/engine"
	"github.com/goodtune/zentube/internal/library"
	"github.com/goodtune/zentube/internal/metrics"
	"github.com/goodtune/zentube/internal/playback"
	"github.com/goodtune/zentube/internal/server"
	"github.com/goodtune/zentube/internal/storage"
	"github.com/goodtune/zentube/internal/storage/bolt"
	"github.com/goodtune/zentube/internal/storage/memory"
	"github.com/goodtune/zentube/internal/storage/redis"
	"github.com/goodtune/zentube/internal/storage/sqlite"
	"github.com/goodtune/zentube/internal/systemd"
	"github.com/goodtune/zentube/internal/usage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start ZenTube server",
	Long:  `Start the ZenTube server with the watch page, REST API, player WebSocket and metrics endpoint.`,
	RunE:  runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

func runServer(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Setup logger
	logger, closeLog := setupLogger(cfg.Logging)
	defer closeLog()
	log.Logger = logger

	logger.Info().
		Str("version", version).
		Str("config", configPath).
		Msg("Starting ZenTube")

	// Check for systemd socket activation
	sdListeners, err := systemd.GetListeners()
	if err != nil {
		return fmt.Errorf("failed to get systemd listeners: %w", err)
	}
	if sdListeners.Activated {
		logger.Info().Msg("Running with systemd socket activation")
	}

	// Initialize storage
	store, err := openStorage(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close storage")
		}
	}()

	logger.Info().
		Str("type", cfg.Storage.Type).
		Str("path", cfg.Storage.Path).
		Msg("Storage initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clk := clock.New()
	items := storage.NewManager(store, clk, logger)

	// Relay writes from other processes sharing the backend
	go func() {
		if err := items.Watch(ctx); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("Storage change feed stopped")
		}
	}()

	// Initialize the wellbeing engine
	wellbeing := engine.New(items, engineOptions(cfg), clk, logger)
	logger.Info().
		Bool("pause_on_limit", cfg.Wellbeing.PauseOnLimit).
		Msg("Wellbeing engine initialized")

	// Initialize the history retention scheduler
	retention, err := usage.NewRetentionScheduler(
		wellbeing.History(),
		cfg.Wellbeing.RetentionTime,
		cfg.Wellbeing.HistoryRetentionDays,
		clk,
		logger,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize Retention Scheduler: %w", err)
	}
	retention.Start()
	logger.Info().
		Str("run_at", cfg.Wellbeing.RetentionTime).
		Int("days", cfg.Wellbeing.HistoryRetentionDays).
		Msg("Retention Scheduler initialized")

	// Initialize the catalog client
	catalogClient, err := catalog.New(ctx, catalog.Config{
		APIKey:     cfg.Catalog.APIKey,
		RegionCode: cfg.Catalog.RegionCode,
		MaxResults: cfg.Catalog.MaxResults,
		CacheSize:  cfg.Catalog.CacheSize,
		CacheTTL:   parseDuration(cfg.Catalog.CacheTTL, 10*time.Minute),
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize catalog: %w", err)
	}

	// Initialize HTTP Server
	httpServer := server.NewServer(server.Config{
		ListenAddr:     fmt.Sprintf("%s:%d", cfg.Server.BindAddress, cfg.Server.HTTPPort),
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, wellbeing, library.New(items, clk), catalogClient, logger)

	// Use systemd socket-activated listener if available
	if sdListeners.Activated && sdListeners.HTTP != nil {
		httpServer.SetListener(sdListeners.HTTP)
	}

	if err := httpServer.Start(); err != nil {
		return fmt.Errorf("failed to start HTTP Server: %w", err)
	}

	// Initialize Metrics Server
	var metricsServer *metrics.Server
	if cfg.Server.MetricsPort > 0 {
		metricsAddr := fmt.Sprintf("%s:%d", cfg.Server.BindAddress, cfg.Server.MetricsPort)
		metricsServer = metrics.NewServer(metricsAddr, logger)

		if sdListeners.Activated && sdListeners.Metrics != nil {
			metricsServer.SetListener(sdListeners.Metrics)
		}

		if err := metricsServer.Start(); err != nil {
			return fmt.Errorf("failed to start Metrics Server: %w", err)
		}
		logger.Info().Str("addr", metricsAddr).Msg("Metrics Server started")
	}

	logger.Info().Msg("ZenTube startup complete")
	logger.Info().Msgf("Watch page: http://%s:%d/", cfg.Server.BindAddress, cfg.Server.HTTPPort)

	// Notify systemd that we're ready to serve requests
	if err := systemd.NotifyReady(); err != nil {
		logger.Warn().Err(err).Msg("Failed to send systemd ready notification")
	} else {
		logger.Debug().Msg("Sent systemd ready notification")
	}
	go systemd.RunWatchdog(ctx, logger)

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("Shutdown signal received, gracefully stopping...")

	if err := systemd.NotifyStopping(); err != nil {
		logger.Warn().Err(err).Msg("Failed to send systemd stopping notification")
	}

	// Stop accepting players first, then flush every open segment
	if err := httpServer.Stop(); err != nil {
		logger.Error().Err(err).Msg("Error stopping HTTP Server")
	}
	wellbeing.Close()
	retention.Stop()

	if metricsServer != nil {
		if err := metricsServer.Stop(); err != nil {
			logger.Error().Err(err).Msg("Error stopping Metrics Server")
		}
	}

	logger.Info().Msg("ZenTube stopped")

	return nil
}

// engineOptions maps the tracking, playback, breaks and wellbeing sections
// onto the per-session timings.
func engineOptions(cfg *config.Config) engine.Options {
	return engine.Options{
		Tracking: usage.Config{
			TickInterval:          parseDuration(cfg.Tracking.TickInterval, usage.DefaultTickInterval),
			MinSegment:            parseDuration(cfg.Tracking.MinSegment, usage.DefaultMinSegment),
			OverLimitInterval:     parseDuration(cfg.Tracking.OverLimitInterval, usage.DefaultOverLimitInterval),
			RolloverCheckInterval: parseDuration(cfg.Tracking.RolloverCheckInterval, usage.DefaultRolloverCheckInterval),
			NearLimitMinutes:      cfg.Tracking.NearLimitMinutes,
		},
		Playback: playback.Config{
			PollInterval: parseDuration(cfg.Playback.PollInterval, playback.DefaultPollInterval),
			StaleAfter:   parseDuration(cfg.Playback.StaleAfter, playback.DefaultStaleAfter),
		},
		Snooze:       parseDuration(cfg.Breaks.Snooze, breaks.DefaultSnooze),
		PauseOnLimit: cfg.Wellbeing.PauseOnLimit,
	}
}

func openStorage(cfg config.StorageConfig) (storage.Store, error) {
	storageType := cfg.Type
	if storageType == "" {
		storageType = "bolt"
	}

	switch storageType {
	case "bolt":
		return bolt.Open(cfg.Path)
	case "sqlite":
		return sqlite.Open(cfg.Path)
	case "redis":
		return redis.Open(cfg.Redis)
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s (expected bolt, sqlite, redis or memory)", storageType)
	}
}

// setupLogger configures the logger based on configuration. The returned
// func closes the log file, if any.
func setupLogger(cfg config.LoggingConfig) (zerolog.Logger, func()) {
	// Set log level
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	var out io.Writer = os.Stdout
	closeFn := func() {}
	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		out = rotator
		closeFn = func() { _ = rotator.Close() }
	}

	// Set output format
	if cfg.Format == "text" {
		return zerolog.New(zerolog.ConsoleWriter{Out: out, NoColor: cfg.File != ""}).With().Timestamp().Logger(), closeFn
	}

	// Default to JSON
	return zerolog.New(out).With().Timestamp().Logger(), closeFn
}

// parseDuration parses a duration string with a fallback
func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
