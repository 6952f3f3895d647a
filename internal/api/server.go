package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gameshelf/internal/logging"
	"gameshelf/internal/resolution"
	"gameshelf/internal/services"
)

// Server exposes a resolution.Service over HTTP.
type Server struct {
	bind    string
	svc     *resolution.Service
	logger  *slog.Logger
	handler http.Handler

	listener net.Listener
	server   *http.Server
}

// NewServer builds the router for svc. bind may be empty when the caller
// only needs Handler.
func NewServer(bind string, svc *resolution.Service, logger *slog.Logger) *Server {
	s := &Server{
		bind:   strings.TrimSpace(bind),
		svc:    svc,
		logger: logging.NewComponentLogger(logger, "api"),
	}
	s.handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestContext)
	r.Use(chimiddleware.Recoverer)
	r.Use(observe)

	r.Route("/api", func(r chi.Router) {
		r.Get("/search", s.handleSearch)
		r.Get("/games", s.handleGames)
		r.Get("/games/enhanced", s.handleEnhanced)
		r.Get("/resolve/{id}", s.handleResolve)
		r.Get("/validate/{id}", s.handleValidate)
		r.Get("/preferences", s.handleGetPreferences)
		r.Put("/preferences", s.handlePutPreferences)
		r.Get("/stats", s.handleStats)
		r.Delete("/cache", s.handleClearCache)
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Start listens on the bind address and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	if s.bind == "" {
		return fmt.Errorf("api bind address is empty")
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener
	s.server = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound address once Start succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down, waiting briefly for in-flight requests.
func (s *Server) Stop() {
	if s.server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	requestID, _ := services.RequestIDFromContext(r.Context())
	s.writeJSON(w, status, ErrorResponse{Error: message, RequestID: requestID})
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrInvalidID):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrAllSourcesUnavailable), errors.Is(err, services.ErrRejected):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
