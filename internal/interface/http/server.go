// Package http implements the keep-alive HTTP surface: a root ping,
// a JSON health endpoint and a small HTML status page. Hosting
// platforms probe these to keep the bot process alive.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/studyhub/comptia-study-hub/config"
	"github.com/studyhub/comptia-study-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// StatusSource reports the live numbers the health endpoints expose.
type StatusSource struct {
	// BotRunning reports whether the polling loop is up.
	BotRunning func() bool

	// ActiveSessions counts running pomodoro timers.
	ActiveSessions func() int

	// Learners counts tracked users.
	Learners func() int
}

// Server is the keep-alive HTTP server.
type Server struct {
	config    config.HTTPConfig
	app       config.AppConfig
	source    StatusSource
	log       *logger.Logger
	startedAt time.Time
	server    *http.Server
}

// NewServer creates the server with its routes mounted.
func NewServer(cfg config.HTTPConfig, app config.AppConfig, source StatusSource, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Default()
	}

	s := &Server{
		config:    cfg,
		app:       app,
		source:    source,
		log:       log.With(logger.Component("http")),
		startedAt: time.Now(),
	}

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// Start begins serving. It blocks until the listener fails or Shutdown
// is called; a clean shutdown returns nil.
func (s *Server) Start() error {
	s.log.Info("http server listening", logger.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains connections gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("http server shutting down")
	return s.server.Shutdown(ctx)
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "%s is alive\n", s.app.Name)
}

// healthPayload is the /health response body.
type healthPayload struct {
	Status         string `json:"status"`
	Name           string `json:"name"`
	Version        string `json:"version"`
	Environment    string `json:"environment"`
	UptimeSeconds  int64  `json:"uptime_seconds"`
	BotRunning     bool   `json:"bot_running"`
	ActiveSessions int    `json:"active_sessions"`
	Learners       int    `json:"learners"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	payload := healthPayload{
		Status:        "ok",
		Name:          s.app.Name,
		Version:       s.app.Version,
		Environment:   string(s.app.Environment),
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
	}
	if s.source.BotRunning != nil {
		payload.BotRunning = s.source.BotRunning()
		if !payload.BotRunning {
			payload.Status = "degraded"
		}
	}
	if s.source.ActiveSessions != nil {
		payload.ActiveSessions = s.source.ActiveSessions()
	}
	if s.source.Learners != nil {
		payload.Learners = s.source.Learners()
	}

	w.Header().Set("Content-Type", "application/json")
	if payload.Status != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	botState := "unknown"
	if s.source.BotRunning != nil {
		if s.source.BotRunning() {
			botState = "running"
		} else {
			botState = "stopped"
		}
	}

	sessions, learners := 0, 0
	if s.source.ActiveSessions != nil {
		sessions = s.source.ActiveSessions()
	}
	if s.source.Learners != nil {
		learners = s.source.Learners()
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, statusPage,
		html.EscapeString(s.app.Name),
		html.EscapeString(s.app.Name),
		html.EscapeString(s.app.Version),
		botState,
		time.Since(s.startedAt).Round(time.Second),
		learners,
		sessions,
	)
}

const statusPage = `<!DOCTYPE html>
<html>
<head><title>%s status</title>
<style>
body { font-family: monospace; background: #0d1117; color: #c9d1d9; padding: 2rem; }
h1 { color: #58a6ff; }
td { padding: 0.2rem 1rem 0.2rem 0; }
</style>
</head>
<body>
<h1>🤖 %s</h1>
<table>
<tr><td>version</td><td>%s</td></tr>
<tr><td>bot</td><td>%s</td></tr>
<tr><td>uptime</td><td>%s</td></tr>
<tr><td>learners</td><td>%d</td></tr>
<tr><td>active timers</td><td>%d</td></tr>
</table>
</body>
</html>
`
