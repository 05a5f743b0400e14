// Package handlers wires the HTTP surface: the profiler chat API, the speech
// routes, and the environment-gated internal debug namespace.
package handlers

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/bytedance/sonic"

	"github.com/nori-cloud/story/core"
)

// Server owns the HTTP mux and its lifecycle.
type Server struct {
	addr      string
	mux       *http.ServeMux
	server    *http.Server
	logger    *core.Logger
	startedAt time.Time
}

// healthResponse is returned by GET /health.
type healthResponse struct {
	Status     string  `json:"status"`
	UptimeSecs float64 `json:"uptime_seconds"`
}

// NewServer creates and configures the HTTP server (does not start it).
func NewServer(addr string, logger *core.Logger) *Server {
	if logger == nil {
		logger = core.GetLogger()
	}
	mux := http.NewServeMux()
	s := &Server{
		addr:      addr,
		mux:       mux,
		logger:    logger.With(map[string]any{"component": "http"}),
		startedAt: time.Now(),
	}
	mux.HandleFunc("/health", s.handleHealth)
	return s
}

// ServeHTTP implements http.Handler so the full route table can be exercised
// with httptest without a live listener.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Handle registers a handler for the given URL pattern.
func (s *Server) Handle(pattern string, handler http.Handler) {
	s.mux.Handle(pattern, handler)
}

// HandleFunc registers a handler function for the given URL pattern.
func (s *Server) HandleFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.mux.HandleFunc(pattern, handler)
}

// Start begins listening in the background. Blocks until the listener is
// established so the caller knows the port is open before returning.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	s.server = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.With(map[string]any{"error": err}).Error("http server stopped")
		}
	}()

	s.logger.With(map[string]any{"addr": ln.Addr().String()}).Info("http server listening")
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:     "ok",
		UptimeSecs: time.Since(s.startedAt).Seconds(),
	})
}

// writeJSON serializes v and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := sonic.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"encoding failure"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}
