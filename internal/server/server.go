// Package server provides the local HTTP API of mudra.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/server/api"
	"github.com/ayusman/mudra/internal/store"
)

// shutdownTimeout bounds graceful shutdown in Run.
const shutdownTimeout = 5 * time.Second

// Controller is the running app as seen by the API. *app.App implements it.
type Controller interface {
	api.Engine
	Status() app.Status
	SetEnabled(enabled bool)
	Preview() *capture.Preview
	Plugins() *plugin.Manager
}

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	App       Controller
	Log       *zap.Logger
}

// Server represents the HTTP server for the mudra application.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
	log    *zap.Logger
	live   *LiveHandler
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	log := config.Log
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
		log:    log,
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if c := s.config.App; c != nil {
		s.mux.HandleFunc("/api/status", s.handleStatus)
		s.mux.HandleFunc("/api/plugins", s.handlePlugins)
		s.mux.Handle("/api/gestures", api.NewGestureHandler(c))
		s.mux.Handle("/api/stream", NewStreamHandler(c.Preview()))

		s.live = NewLiveHandler(c, s.log.Named("live"))
		s.mux.Handle("/api/live", s.live)

		if st := s.config.Store; st != nil {
			bindings := api.NewBindingHandler(st, c, s.log.Named("api"))
			s.mux.Handle("/api/settings", api.NewSettingsHandler(st, c, s.log.Named("api")))
			s.mux.Handle("/api/bindings", bindings)
			s.mux.Handle("/api/bindings/", bindings)
		}
	}

	if s.config.Store != nil {
		s.mux.Handle("/api/events", api.NewEventHandler(s.config.Store))
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	})
}

type enableRequest struct {
	Enabled *bool `json:"enabled"`
}

// handleStatus serves GET /api/status and toggles gesture control on PUT.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPut:
		var req enableRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "enabled is required"})
			return
		}
		s.config.App.SetEnabled(*req.Enabled)
		s.log.Info("gesture control set via API", zap.Bool("enabled", *req.Enabled))
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.config.App.Status())
}

// handlePlugins lists the discovered executor plugins.
func (s *Server) handlePlugins(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	plugins := s.config.App.Plugins().List()
	manifests := make([]plugin.Manifest, 0, len(plugins))
	for _, p := range plugins {
		manifests = append(manifests, p.Manifest)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"plugins": manifests})
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Info("http server listening", zap.String("addr", addr))

	select {
	case err := <-errCh:
		s.Close()
		return errors.Wrap(err, "http server")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	if err != nil {
		return errors.Wrap(err, "http shutdown")
	}
	return nil
}

// Close stops background broadcasting.
func (s *Server) Close() {
	if s.live != nil {
		s.live.Close()
	}
}
