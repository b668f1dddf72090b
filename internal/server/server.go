// Package server exposes the wellbeing engine, the library and the catalog
// over HTTP, and hosts the player WebSocket.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/goodtune/zentube/internal/catalog"
	"github.com/goodtune/zentube/internal/engine"
	"github.com/goodtune/zentube/internal/library"
	"github.com/goodtune/zentube/internal/server/api"
	"github.com/goodtune/zentube/internal/storage"
	"github.com/goodtune/zentube/web"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Config holds the HTTP server configuration.
type Config struct {
	ListenAddr     string
	AllowedOrigins []string
}

// Server is the HTTP server.
type Server struct {
	config   Config
	engine   *engine.Engine
	library  *library.Library
	catalog  *catalog.Client
	server   *http.Server
	router   *mux.Router
	upgrader websocket.Upgrader
	listener net.Listener // set when socket-activated
	logger   zerolog.Logger
}

// NewServer creates a new HTTP server.
func NewServer(cfg Config, e *engine.Engine, lib *library.Library, catalogClient *catalog.Client, logger zerolog.Logger) *Server {
	s := &Server{
		config:  cfg,
		engine:  e,
		library: lib,
		catalog: catalogClient,
		router:  mux.NewRouter(),
		logger:  logger.With().Str("component", "http").Logger(),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}

	s.setupRoutes()

	var handler http.Handler = s.router
	if len(cfg.AllowedOrigins) > 0 {
		handler = CORSMiddleware(cfg.AllowedOrigins)(handler)
	}

	s.server = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Use(LoggingMiddleware(s.logger))

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/ws/player", s.handlePlayer).Methods("GET")

	apiRouter := s.router.PathPrefix("/api").Subrouter()

	wellbeingHandler := api.NewWellbeingHandler(s.engine, s.logger)
	apiRouter.HandleFunc("/watch-time", wellbeingHandler.WatchTime).Methods("GET")
	apiRouter.HandleFunc("/wellbeing/settings", wellbeingHandler.GetSettings).Methods("GET")
	apiRouter.HandleFunc("/wellbeing/settings", wellbeingHandler.PutSettings).Methods("PUT")
	apiRouter.HandleFunc("/wellbeing/settings", wellbeingHandler.PatchSettings).Methods("PATCH")
	apiRouter.HandleFunc("/wellbeing/target", wellbeingHandler.PutTarget).Methods("PUT")
	apiRouter.HandleFunc("/wellbeing/break", wellbeingHandler.PutBreak).Methods("PUT")
	apiRouter.HandleFunc("/data", wellbeingHandler.ResetData).Methods("DELETE")

	api.NewListHandler(s.library.History, "history", s.logger).Register(apiRouter, "/library/history")
	api.NewListHandler(s.library.WatchLater, "watch-later", s.logger).Register(apiRouter, "/library/watch-later")
	api.NewListHandler(s.library.Liked, "liked", s.logger).Register(apiRouter, "/library/liked")
	api.NewListHandler[storage.Channel](s.library.Subscriptions, "subscriptions", s.logger).Register(apiRouter, "/library/subscriptions")
	api.NewPersonalHandler(s.library, s.logger).Register(apiRouter)

	catalogHandler := api.NewCatalogHandler(s.catalog, s.logger)
	apiRouter.HandleFunc("/catalog/popular", catalogHandler.Popular).Methods("GET")
	apiRouter.HandleFunc("/catalog/search", catalogHandler.Search).Methods("GET")
	apiRouter.HandleFunc("/catalog/categories", catalogHandler.Categories).Methods("GET")
	apiRouter.HandleFunc("/catalog/suggestions", catalogHandler.Suggestions).Methods("GET")
	apiRouter.HandleFunc("/catalog/videos/{id}", catalogHandler.Video).Methods("GET")
	apiRouter.HandleFunc("/catalog/videos/{id}/comments", catalogHandler.Comments).Methods("GET")
	apiRouter.HandleFunc("/catalog/videos/{id}/recommended", catalogHandler.Recommended).Methods("GET")

	// Watch page, registered last so it only sees unmatched paths
	web.SetupUIRoutes(s.router)
}

// Handler returns the root handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// SetListener sets a pre-created listener for systemd socket activation
func (s *Server) SetListener(ln net.Listener) {
	s.listener = ln
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.config.ListenAddr).Msg("Starting HTTP server")

	go func() {
		var err error
		if s.listener != nil {
			s.logger.Debug().Msg("Using systemd socket-activated HTTP listener")
			err = s.server.Serve(s.listener)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("HTTP server error")
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server. Hijacked player connections are
// closed by unmounting their sessions through the engine.
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}

	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":          "ok",
		"active_sessions": s.engine.Sessions(),
		"catalog":         s.catalog.Enabled(),
	})
}

// checkOrigin accepts same-host pages and the configured origins.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if originAllowed(s.config.AllowedOrigins, origin) {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host == r.Host
}
