package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/solflow/feerouter/internal/allocation"
	"github.com/solflow/feerouter/internal/executor"
	"github.com/solflow/feerouter/internal/logger"
	"github.com/solflow/feerouter/internal/types"
)

// Controller is the engine surface the server exposes over HTTP.
type Controller interface {
	SetAllocations(input map[types.Channel]float64) error
	SetFeatureEnabled(channel types.Channel, enabled bool) error
	RunCycle(ctx context.Context) (types.CycleResult, error)
	Status() types.StatusReport
	RecentCycles(ctx context.Context, limit int) ([]types.CycleResult, error)
	StoreHealthy(ctx context.Context) bool
}

// Server handles HTTP requests for engine control and observability.
type Server struct {
	router     *mux.Router
	port       string
	controller Controller
	metrics    http.Handler
	logger     zerolog.Logger
}

// NewServer creates a web server bound to the given controller. The metrics
// handler is optional.
func NewServer(port string, controller Controller, metricsHandler http.Handler) *Server {
	if port == "" {
		port = "8080"
	}

	server := &Server{
		router:     mux.NewRouter(),
		port:       port,
		controller: controller,
		metrics:    metricsHandler,
		logger:     logger.GetForComponent("web_server"),
	}
	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/allocations", s.handleSetAllocations).Methods("PUT")
	api.HandleFunc("/features/{channel}", s.handleSetFeature).Methods("PUT")
	api.HandleFunc("/distribute", s.handleDistribute).Methods("POST")
	api.HandleFunc("/cycles", s.handleGetCycles).Methods("GET")

	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics).Methods("GET")
	}

	s.router.Use(s.corsMiddleware)
	s.router.Use(s.loggingMiddleware)
}

// Start starts the web server
func (s *Server) Start() error {
	s.logger.Info().Str("port", s.port).Msg("Starting web server")

	server := &http.Server{
		Addr:         ":" + s.port,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return server.ListenAndServe()
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	dbHealthy := s.controller.StoreHealthy(r.Context())

	status := "OK"
	statusCode := http.StatusOK
	if !dbHealthy {
		status = "DEGRADED"
		statusCode = http.StatusServiceUnavailable
	}

	s.writeJSONResponse(w, statusCode, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":          runtime.Version(),
			"goroutines_count": runtime.NumGoroutine(),
			"alloc_bytes":      memStats.Alloc,
			"gc_cycles":        memStats.NumGC,
		},
		"database_healthy": dbHealthy,
	})
}

// handleStatus returns the engine's full live view
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSONResponse(w, http.StatusOK, s.controller.Status())
}

// handleSetAllocations replaces the allocation set
func (s *Server) handleSetAllocations(w http.ResponseWriter, r *http.Request) {
	var input map[types.Channel]float64
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Malformed allocation body")
		return
	}

	if err := s.controller.SetAllocations(input); err != nil {
		var validationErr *allocation.ValidationError
		if errors.As(err, &validationErr) {
			s.writeErrorResponse(w, http.StatusUnprocessableEntity, validationErr.Error())
			return
		}
		s.logger.Error().Err(err).Msg("Failed to set allocations")
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to set allocations")
		return
	}

	s.writeJSONResponse(w, http.StatusOK, s.controller.Status().Allocations)
}

type featureRequest struct {
	Enabled bool `json:"enabled"`
}

// handleSetFeature toggles one channel on or off
func (s *Server) handleSetFeature(w http.ResponseWriter, r *http.Request) {
	channel := types.Channel(mux.Vars(r)["channel"])
	if !types.IsValidChannel(channel) {
		s.writeErrorResponse(w, http.StatusNotFound, "Unknown channel")
		return
	}

	var req featureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Malformed feature body")
		return
	}

	if err := s.controller.SetFeatureEnabled(channel, req.Enabled); err != nil {
		s.logger.Error().Err(err).Str("channel", string(channel)).Msg("Failed to toggle feature")
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to toggle feature")
		return
	}

	status := s.controller.Status()
	s.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"allocations": status.Allocations,
		"features":    status.Features,
	})
}

// handleDistribute triggers one manual claim-and-distribute cycle
func (s *Server) handleDistribute(w http.ResponseWriter, r *http.Request) {
	result, err := s.controller.RunCycle(r.Context())
	if err != nil {
		if errors.Is(err, executor.ErrCycleInFlight) {
			s.writeErrorResponse(w, http.StatusConflict, "A cycle is already in flight")
			return
		}
		s.logger.Error().Err(err).Msg("Manual cycle failed")
		s.writeErrorResponse(w, http.StatusBadGateway, "Cycle failed: "+err.Error())
		return
	}

	s.writeJSONResponse(w, http.StatusOK, result)
}

// handleGetCycles returns recent cycle history
func (s *Server) handleGetCycles(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= 100 {
			limit = parsedLimit
		}
	}

	cycles, err := s.controller.RecentCycles(r.Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to get recent cycles")
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve cycles")
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"cycles": cycles,
		"count":  len(cycles),
		"limit":  limit,
	})
}

// writeJSONResponse writes a JSON response
func (s *Server) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (s *Server) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	s.writeJSONResponse(w, statusCode, map[string]interface{}{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	})
}

// corsMiddleware adds CORS headers
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
