// Package httpserver wires the serve mode routes onto one listener.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"git.home.luguber.info/inful/resourcesync/internal/config"
	rserrors "git.home.luguber.info/inful/resourcesync/internal/errors"
	"git.home.luguber.info/inful/resourcesync/internal/logfields"
	"git.home.luguber.info/inful/resourcesync/internal/server/handlers"
	smw "git.home.luguber.info/inful/resourcesync/internal/server/middleware"
	"git.home.luguber.info/inful/resourcesync/internal/urls"
)

// Options carries the handler modules served by Server.
type Options struct {
	Documents *handlers.DocumentHandlers
	Metadata  *handlers.MetadataHandlers
	Health    *handlers.HealthHandlers
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
}

// Server serves the output directory, metadata renderings and metrics.
type Server struct {
	cfg          *config.Config
	opts         Options
	errorAdapter *rserrors.HTTPErrorAdapter
	httpServer   *http.Server
	ln           net.Listener
}

// New constructs the server; Start binds it.
func New(cfg *config.Config, opts Options) *Server {
	return &Server{
		cfg:          cfg,
		opts:         opts,
		errorAdapter: rserrors.NewHTTPErrorAdapter(slog.Default()),
	}
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	if s.opts.Metrics != nil {
		mux.Handle("GET /metrics", s.opts.Metrics)
	}
	if s.opts.Health != nil {
		mux.HandleFunc("GET /healthz", s.opts.Health.HandleHealthCheck)
	}
	mux.HandleFunc("GET /resource/{rest...}", s.handleResource)
	mux.HandleFunc("GET /{path...}", s.handlePath)
	return smw.Chain(slog.Default(), s.errorAdapter)(mux)
}

// handleResource serves /resource/<handle>/<prefix>.
func (s *Server) handleResource(w http.ResponseWriter, r *http.Request) {
	rest := r.PathValue("rest")
	i := strings.LastIndex(rest, "/")
	if i <= 0 || i == len(rest)-1 {
		s.errorAdapter.WriteErrorResponse(w, r, rserrors.NotFound("resource", rest))
		return
	}
	s.opts.Metadata.Render(w, r, rest[:i], rest[i+1:])
}

// handlePath serves /<handle>?format=<prefix> and the published documents.
// The root serves the source description.
func (s *Server) handlePath(w http.ResponseWriter, r *http.Request) {
	p := r.PathValue("path")
	if format := r.URL.Query().Get("format"); format != "" {
		s.opts.Metadata.Render(w, r, p, format)
		return
	}
	if p == "" {
		p = urls.Description
	}
	s.opts.Documents.ServeDocument(w, r, p)
}

// Start binds the configured address and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Server.Listen)
	if err != nil {
		return rserrors.Wrap(err, rserrors.CategoryRuntime, rserrors.SeverityFatal, "http listen failed").
			WithContext("listen", s.cfg.Server.Listen)
	}
	s.ln = ln
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server stopped", logfields.Error(err))
		}
	}()
	slog.Info("HTTP server started", slog.String("addr", ln.Addr().String()), logfields.URL(s.cfg.BaseURL))
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}
