package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tournevent/xpsrate/internal/telemetry"
	"github.com/tournevent/xpsrate/pkg/shipper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// Server is the HTTP server of the rate service.
type Server struct {
	port     int
	registry *shipper.Registry
	logger   *otelzap.Logger
	metrics  *telemetry.Metrics
	gatherer prometheus.Gatherer
}

// Config holds server configuration.
type Config struct {
	Port int
	// Metrics records API calls; nil registers a new set on the default registry.
	Metrics *telemetry.Metrics
	// Gatherer backs /metrics; nil uses the default registry.
	Gatherer prometheus.Gatherer
}

// New creates a new server instance.
func New(cfg Config, registry *shipper.Registry, logger *otelzap.Logger) *Server {
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = telemetry.NewMetrics(nil)
	}
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	return &Server{
		port:     cfg.Port,
		registry: registry,
		logger:   logger,
		metrics:  metrics,
		gatherer: gatherer,
	}
}

// Handler returns the routes of the service.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", s.handleHealth)

	// Prometheus metrics
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	mux.HandleFunc("POST /rates", s.handleRates)
	mux.HandleFunc("GET /methods", s.handleMethods)
	mux.HandleFunc("POST /methods/{id}/refresh", s.handleRefresh)
	mux.HandleFunc("GET /methods/{id}/tracking/{code}", s.handleTracking)

	return mux
}

// Run starts the HTTP server and blocks until context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", zap.Int("port", s.port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleRates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	var req rateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	shipment := req.Shipment.toModel()
	result, err := s.registry.CalculateFor(ctx, shipment, req.ShippingMethodIDs)
	if err != nil {
		s.metrics.RecordRequest("rates", "all", "error", time.Since(start).Seconds())
		s.logger.Ctx(ctx).Error("Rate calculation failed", zap.Error(err))
		writeError(w, statusFor(err), err.Error())
		return
	}

	status := "success"
	if len(result.Errors) > 0 {
		status = "partial"
	}
	s.metrics.RecordRequest("rates", "all", status, time.Since(start).Seconds())

	s.logger.Ctx(ctx).Info("Rates calculated",
		zap.String("shipment_id", shipment.ID),
		zap.Int("rates", len(result.Rates)),
		zap.Int("errors", len(result.Errors)),
	)

	writeJSON(w, http.StatusOK, rateResultToResponse(result))
}

func (s *Server) handleMethods(w http.ResponseWriter, r *http.Request) {
	methods := s.registry.All()
	resp := methodsResponse{Methods: make([]methodOutput, 0, len(methods))}
	for _, m := range methods {
		resp.Methods = append(resp.Methods, methodToOutput(m))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	method, err := s.registry.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	if err := method.Refresh(ctx); err != nil {
		s.logger.Ctx(ctx).Warn("Catalog refresh failed",
			zap.String("method_id", method.Name()),
			zap.Error(err),
		)
		writeJSON(w, http.StatusOK, refreshResponse{
			Method: methodToOutput(method),
			Error:  errorToOutput(err),
		})
		return
	}

	writeJSON(w, http.StatusOK, refreshResponse{Method: methodToOutput(method)})
}

func (s *Server) handleTracking(w http.ResponseWriter, r *http.Request) {
	method, err := s.registry.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	tracker, ok := method.(shipper.Tracker)
	if !ok {
		writeError(w, http.StatusNotFound, "method has no tracking")
		return
	}

	url := tracker.TrackingURL(r.PathValue("code"))
	if url == "" {
		writeError(w, http.StatusNotFound, "no tracking URL configured")
		return
	}
	writeJSON(w, http.StatusOK, trackingResponse{URL: url})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, shipper.ErrInvalidShipment):
		return http.StatusBadRequest
	case errors.Is(err, shipper.ErrMethodNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
