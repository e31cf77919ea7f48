// Package server hosts the form relay over HTTP(S).
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
)

const (
	// shutdownTimeout is the maximum time to wait for in-flight requests
	// during graceful shutdown.
	shutdownTimeout = 30 * time.Second

	readHeaderTimeout = 10 * time.Second
)

// ServerConfig holds the configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddr is the address to listen on (e.g., ":8080").
	ListenAddr string

	// Path is where the relay handler is mounted (e.g., "/api/send-form").
	Path string

	// Handler serves the relay endpoint.
	Handler http.Handler

	// ProviderName is reported by the health check. Empty means no
	// provider is configured.
	ProviderName string

	// AllowedOrigins is the CORS allow-list. "*" allows any origin.
	AllowedOrigins []string

	// TLSConfig enables HTTPS when set.
	TLSConfig *tls.Config
}

// Server is an HTTP server that routes form submissions to the relay handler.
type Server struct {
	config ServerConfig
	router *mux.Router

	mu       sync.Mutex
	listener net.Listener
}

// New creates a new Server with the given configuration.
func New(cfg ServerConfig) *Server {
	if cfg.Path == "" {
		cfg.Path = "/api/send-form"
	}

	s := &Server{config: cfg}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(recoverMiddleware, requestIDMiddleware, corsMiddleware(s.config.AllowedOrigins))

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	// All methods reach the relay so it can answer 405 itself.
	r.Handle(s.config.Path, s.config.Handler)

	return r
}

// Handler returns the root handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	name := s.config.ProviderName
	if name == "" {
		name = "none"
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"provider": name,
	})
}

// ListenAndServe starts the HTTP server and blocks until the context is cancelled.
// On context cancellation, it stops accepting new connections and waits up to
// 30 seconds for in-flight requests to complete.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return err
	}
	if s.config.TLSConfig != nil {
		ln = tls.NewListener(ln, s.config.TLSConfig)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	slog.Info("HTTP server listening",
		"addr", ln.Addr().String(),
		"path", s.config.Path,
		"provider", s.config.ProviderName,
		"tls_enabled", s.config.TLSConfig != nil,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("shutdown timeout reached, forcing close", "error", err)
		srv.Close()
		return nil
	}
	slog.Info("all requests completed")
	return nil
}

// Addr returns the listener address, or empty string if not listening.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}
