package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/anstrom/skim/internal/logging"
)

const (
	serverShutdownTimeout = 5 * time.Second
	serverReadTimeout     = 10 * time.Second
)

// Server exposes the Prometheus registry over HTTP while scans run.
type Server struct {
	metrics    *PrometheusMetrics
	router     *mux.Router
	httpServer *http.Server
	listener   net.Listener
	logger     *logging.Logger
}

// NewServer builds the metrics HTTP server. It does not start listening.
func NewServer(addr string, pm *PrometheusMetrics, logger *logging.Logger) *Server {
	s := &Server{
		metrics: pm,
		router:  mux.NewRouter(),
		logger:  logger.WithComponent("metrics"),
	}
	s.setupRoutes()

	accessLog := slog.NewLogLogger(s.logger.Handler(), slog.LevelDebug).Writer()
	handler := handlers.RecoveryHandler(handlers.PrintRecoveryStack(false))(
		handlers.CombinedLoggingHandler(accessLog, s.router),
	)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: serverReadTimeout,
	}
	return s
}

func (s *Server) setupRoutes() {
	promHandler := promhttp.HandlerFor(s.metrics.GetRegistry(), promhttp.HandlerOpts{})
	s.router.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		s.metrics.UpdateSystemMetrics()
		promHandler.ServeHTTP(w, r)
	}).Methods(http.MethodGet)

	s.router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	}).Methods(http.MethodGet)
}

// Router returns the route table, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.httpServer.Handler
}

// Start binds the listen address and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	s.listener = ln

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Metrics server stopped", "error", err)
		}
	}()

	s.logger.Info("Metrics server listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address once Start has succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.httpServer.Addr
	}
	return s.listener.Addr().String()
}

// Shutdown stops the server, waiting for in-flight scrapes.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, serverShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
